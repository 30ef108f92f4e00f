package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/handrehab/internal/app"
	"github.com/ayusman/handrehab/internal/capture"
	"github.com/ayusman/handrehab/internal/detector"
	"github.com/ayusman/handrehab/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// newTestManager creates a manager whose cameras loop blank frames and whose
// detectors always see an open palm.
func newTestManager(t *testing.T, s *store.Store) *app.Manager {
	t.Helper()

	m := app.NewManager(app.Config{
		Store: s,
		NewCamera: func(capture.Config) capture.Camera {
			return capture.NewBlankCamera(0)
		},
		NewDetector: func(detector.Config) (detector.Detector, error) {
			d := detector.NewMockDetector()
			d.SetSubjects([]detector.Snapshot{detector.OpenPalm()})
			return d, nil
		},
	})
	t.Cleanup(m.StopAll)
	return m
}

// do sends a request with an optional JSON body to handler.
func do(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
