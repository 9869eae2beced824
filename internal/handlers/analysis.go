package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Analyze runs the analyzer over a room's discussion.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Analyze(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "room"))
	if err != nil {
		h.fail(w, r, err, "analyze room")
		return
	}
	h.JSON(w, http.StatusOK, result)
}
