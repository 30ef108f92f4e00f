package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/handrehab/internal/app"
	"github.com/ayusman/handrehab/internal/gesture"
	"github.com/ayusman/handrehab/internal/store"
)

// SessionHandler handles HTTP requests for session resources.
type SessionHandler struct {
	manager *app.Manager
}

// NewSessionHandler creates a new SessionHandler backed by the given manager.
func NewSessionHandler(m *app.Manager) *SessionHandler {
	return &SessionHandler{manager: m}
}

// ServeHTTP routes:
//
//	GET    /api/sessions
//	POST   /api/sessions
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	POST   /api/sessions/{id}/reset
//	POST   /api/sessions/{id}/stop
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, action, _ := strings.Cut(path, "/")
	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "reset", "stop":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if action == "reset" {
			h.reset(w, r, id)
		} else {
			h.stop(w, r, id)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// createSessionRequest either names a preset or carries a session config inline.
type createSessionRequest struct {
	Preset string `json:"preset,omitempty"`
	app.SessionConfig
}

type listSessionsResponse struct {
	Sessions []app.Info `json:"sessions"`
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions := h.manager.List()
	response := listSessionsResponse{Sessions: make([]app.Info, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, s.Info())
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	for _, k := range req.Kinds {
		if _, err := gesture.ParseKind(string(k)); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Seconds < 0 {
		writeError(w, http.StatusBadRequest, "Seconds must not be negative")
		return
	}

	var (
		session *app.Session
		err     error
	)
	if req.Preset != "" {
		session, err = h.manager.StartPreset(req.Preset)
	} else {
		session, err = h.manager.Start(req.SessionConfig)
	}
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Preset not found")
		case errors.Is(err, app.ErrCameraBusy):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, session.Info())
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.manager.Get(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Info())
}

func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.manager.Remove(id); err != nil && !errors.Is(err, app.ErrStopTimeout) {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) reset(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.manager.Get(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if err := session.Reset(); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reset requested"})
}

func (h *SessionHandler) stop(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.manager.Get(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if err := h.manager.Stop(id); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Info())
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, app.ErrSessionEnded):
		writeError(w, http.StatusConflict, "Session has ended")
	case errors.Is(err, app.ErrStopTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
