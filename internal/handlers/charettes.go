package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/charette/internal/models"
)

// CreateCharetteRequest represents the charette creation request.
type CreateCharetteRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Metadata    models.Metadata `json:"metadata"`
	CreatedBy   string          `json:"createdBy,omitempty"`
}

// ParticipantRequest represents the add participant request.
type ParticipantRequest struct {
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

// ListCharettes returns every charette.
func (h *Handler) ListCharettes(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListSessions(r.Context())
	if err != nil {
		h.fail(w, r, err, "list charettes")
		return
	}
	h.JSON(w, http.StatusOK, sessions)
}

// CreateCharette handles charette creation.
func (h *Handler) CreateCharette(w http.ResponseWriter, r *http.Request) {
	var req CreateCharetteRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.svc.CreateSession(r.Context(), models.SessionFields{
		Title:       sanitizeName(req.Title),
		Description: req.Description,
		Metadata:    req.Metadata,
		CreatedBy:   sanitizeName(req.CreatedBy),
	})
	if err != nil {
		h.fail(w, r, err, "create charette")
		return
	}
	h.JSON(w, http.StatusCreated, sess)
}

// GetCharette returns one charette with its participants and rooms.
func (h *Handler) GetCharette(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "get charette")
		return
	}
	h.JSON(w, http.StatusOK, sess)
}

// UpdateCharette applies a partial update.
func (h *Handler) UpdateCharette(w http.ResponseWriter, r *http.Request) {
	var patch models.SessionPatch
	if !h.decode(w, r, &patch) {
		return
	}
	if patch.Title != nil {
		title := sanitizeName(*patch.Title)
		patch.Title = &title
	}

	if err := h.svc.UpdateSession(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		h.fail(w, r, err, "update charette")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCharette removes a charette with its rooms and messages.
func (h *Handler) DeleteCharette(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "delete charette")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddParticipant registers a user on a charette.
func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	var req ParticipantRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.svc.AddParticipant(r.Context(), chi.URLParam(r, "id"), sanitizeName(req.UserName), models.Role(req.Role))
	if err != nil {
		h.fail(w, r, err, "add participant")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
