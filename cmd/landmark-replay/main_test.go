package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/handrehab/internal/app"
	"github.com/ayusman/handrehab/internal/detector"
	"github.com/ayusman/handrehab/internal/gesture"
	"github.com/ayusman/handrehab/internal/store"
	"github.com/ayusman/handrehab/testdata"
)

func TestEngineConfig(t *testing.T) {
	t.Run("kinds", func(t *testing.T) {
		cfg, err := engineConfig("open-close, finger-tap", "")
		if err != nil {
			t.Fatalf("engineConfig() error = %v", err)
		}
		if len(cfg.Kinds) != 2 || cfg.Kinds[1] != gesture.KindFingerTap {
			t.Errorf("Kinds = %v", cfg.Kinds)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		if _, err := engineConfig("open-close,juggling", ""); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("stored settings", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "settings.db")
		st, err := store.New(dbPath)
		if err != nil {
			t.Fatalf("store.New() error = %v", err)
		}
		settings := app.DefaultSettings()
		settings.RotationThreshold = 60
		settings.GraceFrames = 3
		if err := app.SaveSettings(st, settings); err != nil {
			t.Fatalf("SaveSettings() error = %v", err)
		}
		st.Close()

		cfg, err := engineConfig("rotation", dbPath)
		if err != nil {
			t.Fatalf("engineConfig() error = %v", err)
		}
		if cfg.Gesture.RotationThreshold != 60 || cfg.GraceFrames != 3 {
			t.Errorf("cfg = %+v", cfg)
		}
	})
}

func TestReplay(t *testing.T) {
	frames, err := testdata.LoadFrames(testdata.FingerTap)
	if err != nil {
		t.Fatalf("LoadFrames() error = %v", err)
	}
	cfg, _ := engineConfig("finger-tap", "")

	var out bytes.Buffer
	final, err := replay(frames, cfg, &out, nil)
	if err != nil {
		t.Fatalf("replay() error = %v", err)
	}

	if got := final.Counter(gesture.KindFingerTap, gesture.CounterSequences); got != 1 {
		t.Errorf("sequences = %d, want 1", got)
	}
	text := out.String()
	if !strings.Contains(text, "finger-tap#0: Target: Middle") {
		t.Errorf("missing label change in output:\n%s", text)
	}
	if !strings.Contains(text, "sequence completed: Index 0.20s, Middle 0.20s, Ring 0.20s, Pinky 0.20s") {
		t.Errorf("missing sequence in output:\n%s", text)
	}

	var counters bytes.Buffer
	printCounters(&counters, final)
	if !strings.Contains(counters.String(), "finger-tap#0 taps: 4") {
		t.Errorf("unexpected counters:\n%s", counters.String())
	}
}

func TestReplay_SkipsOutOfOrder(t *testing.T) {
	recorded, _ := testdata.LoadFrames(testdata.OpenClose)
	// Frame 2 arrives twice.
	var frames []detector.Frame
	frames = append(frames, recorded[:2]...)
	frames = append(frames, recorded[1:]...)
	cfg, _ := engineConfig("open-close", "")

	var out bytes.Buffer
	final, err := replay(frames, cfg, &out, nil)
	if err != nil {
		t.Fatalf("replay() error = %v", err)
	}
	if !strings.Contains(out.String(), "skipped") {
		t.Errorf("expected a skipped frame:\n%s", out.String())
	}
	if got := final.Counter(gesture.KindOpenClose, gesture.CounterCycles); got != 3 {
		t.Errorf("cycles = %d, want 3", got)
	}
}
