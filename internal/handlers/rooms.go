package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CreateBreakoutRoomsRequest represents the breakout room creation request.
type CreateBreakoutRoomsRequest struct {
	Count     int      `json:"count"`
	Questions []string `json:"questions"`
}

// MembershipRequest identifies the user joining or leaving a room.
type MembershipRequest struct {
	UserName string `json:"userName"`
}

// CreateBreakoutRooms creates a batch of rooms sharing the same questions.
func (h *Handler) CreateBreakoutRooms(w http.ResponseWriter, r *http.Request) {
	var req CreateBreakoutRoomsRequest
	if !h.decode(w, r, &req) {
		return
	}

	rooms, err := h.svc.CreateBreakoutRooms(r.Context(), chi.URLParam(r, "id"), req.Count, req.Questions)
	if err != nil {
		h.fail(w, r, err, "create breakout rooms")
		return
	}
	h.JSON(w, http.StatusCreated, rooms)
}

// JoinRoom moves a user into a breakout room.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, "join room", h.svc.JoinRoom)
}

// LeaveRoom removes a user from a breakout room.
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, "leave room", h.svc.LeaveRoom)
}

func (h *Handler) membership(w http.ResponseWriter, r *http.Request, action string, op func(ctx context.Context, sessionID, roomID, userName string) error) {
	var req MembershipRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := op(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "room"), sanitizeName(req.UserName)); err != nil {
		h.fail(w, r, err, action)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
