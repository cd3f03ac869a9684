package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/manager"
	"github.com/TasosParaskevakis/lmstudio-chat-app/pkg/types"
)

const statusURL = "/api/models/status"

// health godoc
// @Summary      Liveness
// @Tags         system
// @Produce      json
// @Success      200 {object} types.HealthResponse
// @Router       /api/health [get]
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{OK: true})
}

// modelsAvailable godoc
// @Summary      List loadable models
// @Description  Asks the backend for its models; falls back to a static list with a note when it is unreachable.
// @Tags         models
// @Produce      json
// @Success      200 {object} types.ModelsResponse
// @Router       /api/models/available [get]
func (h *handlers) modelsAvailable(w http.ResponseWriter, r *http.Request) {
	l := h.Catalog.Available(r.Context())
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: l.Models, Note: l.Note})
}

// modelsStatus godoc
// @Summary      Lifecycle status
// @Description  Active model, lifecycle status and load progress. Also served at /api/models/loaded.
// @Tags         models
// @Produce      json
// @Success      200 {object} types.StatusResponse
// @Router       /api/models/status [get]
func (h *handlers) modelsStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse(h.Lifecycle.Status()))
}

func statusResponse(s manager.Snapshot) types.StatusResponse {
	resp := types.StatusResponse{Status: string(s.State), Progress: s.Progress, LastError: s.LastError}
	if s.ActiveModel != "" {
		name := s.ActiveModel
		resp.Model = &name
	}
	return resp
}

// modelsLoad godoc
// @Summary      Load a model
// @Description  Fire-and-forget. Ignored while a load or unload is running or when the model is already active.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        body body types.LoadRequest true "Model to load"
// @Success      202 {object} types.AcceptedResponse
// @Failure      400 {object} types.ErrorResponse
// @Router       /api/models/load [post]
func (h *handlers) modelsLoad(w http.ResponseWriter, r *http.Request) {
	var req types.LoadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	started := h.Lifecycle.RequestLoad(name)
	logEvent(r, requestLogLevel(r), "model load", http.StatusAccepted, time.Time{}, nil, map[string]any{"model": name, "started": started})
	writeJSON(w, http.StatusAccepted, types.AcceptedResponse{StatusURL: statusURL})
}

// modelsUnload godoc
// @Summary      Unload the active model
// @Description  Fire-and-forget. Ignored while a transition is running or when nothing is loaded.
// @Tags         models
// @Produce      json
// @Success      202 {object} types.AcceptedResponse
// @Router       /api/models/unload [post]
func (h *handlers) modelsUnload(w http.ResponseWriter, r *http.Request) {
	started := h.Lifecycle.RequestUnload()
	logEvent(r, requestLogLevel(r), "model unload", http.StatusAccepted, time.Time{}, nil, map[string]any{"started": started})
	writeJSON(w, http.StatusAccepted, types.AcceptedResponse{StatusURL: statusURL})
}
