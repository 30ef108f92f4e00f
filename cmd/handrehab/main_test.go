package main

import (
	"testing"

	"github.com/ayusman/handrehab/internal/gesture"
)

func TestParseKinds(t *testing.T) {
	kinds, err := parseKinds("open-close, rotation,")
	if err != nil {
		t.Fatalf("parseKinds() error = %v", err)
	}
	if len(kinds) != 2 || kinds[0] != gesture.KindOpenClose || kinds[1] != gesture.KindRotation {
		t.Errorf("parseKinds() = %v", kinds)
	}

	if _, err := parseKinds("wave"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("HANDREHAB_TEST_ADDR", ":9090")
	if got := envOr("HANDREHAB_TEST_ADDR", ":8080"); got != ":9090" {
		t.Errorf("envOr() = %q, want :9090", got)
	}
	t.Setenv("HANDREHAB_TEST_ADDR", "")
	if got := envOr("HANDREHAB_TEST_ADDR", ":8080"); got != ":8080" {
		t.Errorf("envOr() = %q, want :8080", got)
	}
}

func TestSettingsURL(t *testing.T) {
	tests := map[string]string{
		":8080":          "http://localhost:8080/",
		"127.0.0.1:9000": "http://127.0.0.1:9000/",
	}
	for addr, want := range tests {
		if got := settingsURL(addr); got != want {
			t.Errorf("settingsURL(%q) = %q, want %q", addr, got, want)
		}
	}
}
