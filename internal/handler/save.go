package handler

import (
	"net/http"

	"tycoon-engine/internal/middleware"
	"tycoon-engine/internal/persistence"
	"tycoon-engine/pkg/apierror"
	"tycoon-engine/pkg/response"
)

// SaveHandler triggers saves and loads outside the autosave schedule.
type SaveHandler struct {
	adapter *persistence.Adapter
}

// NewSaveHandler creates a new save handler.
func NewSaveHandler(adapter *persistence.Adapter) *SaveHandler {
	return &SaveHandler{adapter: adapter}
}

// SaveLocal handles POST /saves/local
func (h *SaveHandler) SaveLocal(w http.ResponseWriter, r *http.Request) {
	if err := h.adapter.SaveLocal(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": "saved"})
}

// LoadLocal handles POST /saves/local/load
func (h *SaveHandler) LoadLocal(w http.ResponseWriter, r *http.Request) {
	st, err := h.adapter.LoadLocal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, st)
}

// ClearLocal handles DELETE /saves/local
func (h *SaveHandler) ClearLocal(w http.ResponseWriter, r *http.Request) {
	if err := h.adapter.ClearLocal(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	response.NoContent(w)
}

// SaveCloud handles POST /saves/cloud
func (h *SaveHandler) SaveCloud(w http.ResponseWriter, r *http.Request) {
	if err := h.adapter.SaveCloud(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": "saved"})
}

// LoadCloud handles POST /saves/cloud/load
func (h *SaveHandler) LoadCloud(w http.ResponseWriter, r *http.Request) {
	tokenData := middleware.GetTokenDataFromContext(r.Context())
	if tokenData == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}
	st, err := h.adapter.LoadCloud(r.Context(), tokenData.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, st)
}
