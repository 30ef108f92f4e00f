package api

import (
	"net/http"
	"testing"

	"github.com/ayusman/handrehab/internal/app"
	"github.com/ayusman/handrehab/internal/gesture"
)

func TestSettingsHandler(t *testing.T) {
	s := newTestStore(t)
	handler := NewSettingsHandler(newTestManager(t, s))

	t.Run("get returns defaults", func(t *testing.T) {
		rec := do(t, handler, http.MethodGet, "/api/settings", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var got app.Settings
		decode(t, rec, &got)
		if got != app.DefaultSettings() {
			t.Errorf("settings = %+v, want defaults", got)
		}
	})

	t.Run("partial update is merged and persisted", func(t *testing.T) {
		rec := do(t, handler, http.MethodPut, "/api/settings", map[string]interface{}{
			"rotation_threshold": 45,
			"rotation_policy":    "settle",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		stored, err := app.LoadSettings(s)
		if err != nil {
			t.Fatalf("LoadSettings() error = %v", err)
		}
		if stored.RotationThreshold != 45 || stored.RotationPolicy != gesture.RearmOnSettle {
			t.Errorf("stored = %+v", stored)
		}
		if stored.TapThreshold != gesture.DefaultTapThreshold {
			t.Errorf("TapThreshold = %v, want unchanged default", stored.TapThreshold)
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		rec := do(t, handler, http.MethodPut, "/api/settings", map[string]interface{}{"queue_depth": 9})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := do(t, handler, http.MethodDelete, "/api/settings", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}
