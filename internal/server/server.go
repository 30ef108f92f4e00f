// Package server provides the HTTP surface: session control, live frame streams and
// settings.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/handrehab/internal/app"
	"github.com/ayusman/handrehab/internal/server/api"
	"github.com/ayusman/handrehab/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Manager   *app.Manager
}

// Server is the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Manager != nil {
		sessions := api.NewSessionHandler(s.config.Manager)
		router := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Streaming endpoints: /api/sessions/{id}/ws and /api/sessions/{id}/stream
			id, sub := splitSessionPath(r.URL.Path)
			if sub == "ws" || sub == "stream" {
				s.serveSubscriber(w, r, id, sub)
				return
			}
			sessions.ServeHTTP(w, r)
		})
		s.mux.Handle("/api/sessions", router)
		s.mux.Handle("/api/sessions/", router)
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Manager))
	}

	if s.config.Store != nil {
		presets := api.NewPresetHandler(s.config.Store)
		s.mux.Handle("/api/presets", presets)
		s.mux.Handle("/api/presets/", presets)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// splitSessionPath splits /api/sessions/{id}/{sub}.
func splitSessionPath(path string) (id, sub string) {
	rest := strings.Trim(strings.TrimPrefix(path, "/api/sessions"), "/")
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		sub = parts[1]
	}
	return id, sub
}

func (s *Server) serveSubscriber(w http.ResponseWriter, r *http.Request, id, kind string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.config.Manager.Get(id)
	if errors.Is(err, app.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if session.Status() != app.StatusRunning {
		http.Error(w, "Session has ended", http.StatusGone)
		return
	}

	if kind == "ws" {
		serveSessionWS(w, r, session)
		return
	}
	serveSessionStream(w, r, session)
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Manager != nil {
		running := 0
		for _, session := range s.config.Manager.List() {
			if session.Status() == app.StatusRunning {
				running++
			}
		}
		response["sessions"] = running
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe starts the HTTP server on addr and blocks until it stops.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops accepting connections and closes open ones, streams included.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Close()
}
