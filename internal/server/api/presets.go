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

// PresetHandler handles HTTP requests for preset resources.
type PresetHandler struct {
	store *store.Store
}

// NewPresetHandler creates a new PresetHandler with the given store.
func NewPresetHandler(s *store.Store) *PresetHandler {
	return &PresetHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *PresetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/presets or /api/presets/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/presets")
	path = strings.TrimPrefix(path, "/")

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

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type presetRequest struct {
	Name   string            `json:"name"`
	Config app.SessionConfig `json:"config"`
}

type presetResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Config    app.SessionConfig `json:"config"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

type listPresetsResponse struct {
	Presets []presetResponse `json:"presets"`
}

func toPresetResponse(p *store.Preset) presetResponse {
	resp := presetResponse{
		ID:        p.ID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.Format(timeFormat),
		UpdatedAt: p.UpdatedAt.Format(timeFormat),
	}
	// Stored configs are validated on write.
	json.Unmarshal(p.Config, &resp.Config)
	return resp
}

// decode reads and validates a preset request.
func (h *PresetHandler) decode(w http.ResponseWriter, r *http.Request) (*store.Preset, bool) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return nil, false
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return nil, false
	}
	for _, k := range req.Config.Kinds {
		if _, err := gesture.ParseKind(string(k)); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
	}

	config, err := json.Marshal(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid config")
		return nil, false
	}
	return &store.Preset{Name: req.Name, Config: config}, true
}

func (h *PresetHandler) list(w http.ResponseWriter, r *http.Request) {
	presets, err := h.store.Presets().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list presets")
		return
	}

	response := listPresetsResponse{Presets: make([]presetResponse, 0, len(presets))}
	for _, p := range presets {
		response.Presets = append(response.Presets, toPresetResponse(p))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *PresetHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	preset, err := h.store.Presets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get preset")
		return
	}
	writeJSON(w, http.StatusOK, toPresetResponse(preset))
}

func (h *PresetHandler) create(w http.ResponseWriter, r *http.Request) {
	preset, ok := h.decode(w, r)
	if !ok {
		return
	}

	if _, err := h.store.Presets().GetByName(preset.Name); err == nil {
		writeError(w, http.StatusConflict, "Preset name already exists")
		return
	}

	if err := h.store.Presets().Create(preset); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create preset")
		return
	}
	writeJSON(w, http.StatusCreated, toPresetResponse(preset))
}

func (h *PresetHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := h.store.Presets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get preset")
		return
	}

	preset, ok := h.decode(w, r)
	if !ok {
		return
	}
	if other, err := h.store.Presets().GetByName(preset.Name); err == nil && other.ID != id {
		writeError(w, http.StatusConflict, "Preset name already exists")
		return
	}

	existing.Name = preset.Name
	existing.Config = preset.Config
	if err := h.store.Presets().Update(existing); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update preset")
		return
	}
	writeJSON(w, http.StatusOK, toPresetResponse(existing))
}

func (h *PresetHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Presets().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete preset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
