package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
)

// RoleHeader carries the caller's role for facilitator-only endpoints.
const RoleHeader = "X-Charette-Role"

// AdvancePhaseRequest represents the phase change request.
type AdvancePhaseRequest struct {
	Direction string `json:"direction"`
}

// PhaseResponse reports the phase after a change.
type PhaseResponse struct {
	CurrentPhase int    `json:"currentPhase"`
	Name         string `json:"name"`
}

// AdvancePhase moves a charette one phase forward or back. Only analysts and
// project managers may call it.
func (h *Handler) AdvancePhase(w http.ResponseWriter, r *http.Request) {
	role, err := models.ParseRole(r.Header.Get(RoleHeader))
	if err != nil || !role.CanFacilitate() {
		h.Error(w, http.StatusForbidden, "only an analyst or project manager can change the phase")
		return
	}

	var req AdvancePhaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := phase.ParseDirection(req.Direction)
	if err != nil {
		h.fail(w, r, err, "change phase")
		return
	}

	current, err := h.svc.AdvancePhase(r.Context(), chi.URLParam(r, "id"), d)
	if err != nil {
		h.fail(w, r, err, "change phase")
		return
	}
	h.JSON(w, http.StatusOK, PhaseResponse{CurrentPhase: current, Name: phase.Name(current)})
}

func phaseNames() []string {
	return append([]string(nil), models.Phases[:]...)
}
