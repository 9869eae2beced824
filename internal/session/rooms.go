package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/charette/internal/models"
)

// RoomManager sequences the membership calls of a room switch for one user.
type RoomManager struct {
	remote   Remote
	rec      *Reconciler
	userName string
	logger   zerolog.Logger

	mu sync.Mutex
}

// NewRoomManager creates a RoomManager acting for userName.
func NewRoomManager(remote Remote, rec *Reconciler, userName string, logger zerolog.Logger) *RoomManager {
	return &RoomManager{
		remote:   remote,
		rec:      rec,
		userName: userName,
		logger:   logger,
	}
}

// UserName returns the user the manager switches.
func (m *RoomManager) UserName() string {
	return m.userName
}

// SwitchRoom moves the user from the active room to roomID. An active
// breakout room is left before roomID is joined, and the view only moves to
// roomID once both calls have succeeded; its messages are then loaded from
// scratch. If either call fails the view stays where it was and the error is
// returned. Switching to the active room does nothing.
func (m *RoomManager) SwitchRoom(ctx context.Context, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		roomID = models.MainRoom
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sessionID := m.rec.SessionID()
	if sessionID == "" {
		return ErrNoSession
	}
	current := m.rec.Room()
	if roomID == current {
		return nil
	}

	log := m.logger.With().
		Str("session", sessionID).
		Str("from", current).
		Str("to", roomID).
		Logger()

	if models.IsBreakout(current) {
		if err := m.remote.LeaveRoom(ctx, sessionID, current, m.userName); err != nil {
			log.Warn().Err(err).Str("op", "leave_room").Msg("room switch aborted")
			return fmt.Errorf("leave room %s: %w", current, err)
		}
	}

	if models.IsBreakout(roomID) {
		if err := m.remote.JoinRoom(ctx, sessionID, roomID, m.userName); err != nil {
			log.Warn().Err(err).Str("op", "join_room").Msg("room switch aborted")
			m.rejoin(ctx, sessionID, current, log)
			return fmt.Errorf("join room %s: %w", roomID, err)
		}
	}

	if !m.rec.SetRoom(sessionID, roomID) {
		return nil
	}

	if err := m.rec.RefreshMessages(ctx, sessionID, roomID); err != nil {
		// The switch stands; the message poller fills the room in.
		log.Debug().Err(err).Msg("initial message load failed")
	}
	log.Info().Msg("switched room")
	return nil
}

// rejoin puts the user back into the breakout room the view still shows
// after a failed join, so the server agrees with the unchanged view.
func (m *RoomManager) rejoin(ctx context.Context, sessionID, roomID string, log zerolog.Logger) {
	if !models.IsBreakout(roomID) {
		return
	}
	if err := m.remote.JoinRoom(ctx, sessionID, roomID, m.userName); err != nil {
		log.Error().Err(err).Str("op", "rejoin_room").Msg("could not restore previous room")
	}
}
