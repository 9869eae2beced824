package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/charette/internal/models"
)

// PostMessageRequest represents the post message request.
type PostMessageRequest struct {
	UserName string `json:"userName"`
	Role     string `json:"role"`
	Text     string `json:"text"`
}

// ListMessages returns a room's messages newer than the since query
// parameter (Unix ms, exclusive), oldest first.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	var since int64
	if s := r.URL.Query().Get("since"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			h.Error(w, http.StatusBadRequest, "since must be a non-negative timestamp in milliseconds")
			return
		}
		since = v
	}

	messages, err := h.svc.ListMessages(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "room"), since)
	if err != nil {
		h.fail(w, r, err, "fetch messages")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	h.JSON(w, http.StatusOK, messages)
}

// PostMessage appends a message to a room.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.svc.SendMessage(r.Context(),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "room"),
		sanitizeName(req.UserName),
		models.Role(req.Role),
		req.Text,
	)
	if err != nil {
		h.fail(w, r, err, "post message")
		return
	}
	h.JSON(w, http.StatusCreated, msg)
}
