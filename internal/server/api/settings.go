package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/handrehab/internal/app"
)

// SettingsHandler reads and replaces the tunables applied to new sessions.
type SettingsHandler struct {
	manager *app.Manager
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(m *app.Manager) *SettingsHandler {
	return &SettingsHandler{manager: m}
}

// ServeHTTP handles GET and PUT /api/settings. PUT accepts a partial document: fields
// left out keep their current value.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.manager.Settings())
	case http.MethodPut:
		settings := h.manager.Settings()
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if err := settings.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.manager.UpdateSettings(settings); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
		writeJSON(w, http.StatusOK, settings)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
