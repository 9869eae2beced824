// Package session keeps a local view of a charette consistent with the remote
// session store by polling, with optimistic appends for the user's own writes.
package session

import (
	"context"
	"errors"

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
)

var (
	// ErrNoSession is returned by operations that need an open charette.
	ErrNoSession = errors.New("no charette open")
	// ErrNotFacilitator is returned when a participant tries to change phase.
	ErrNotFacilitator = errors.New("only an analyst or project manager can change the phase")
)

// Remote is the session store the view is synchronized against. It is
// implemented by the REST client and, for demo mode, by charette.Service.
type Remote interface {
	ListSessions(ctx context.Context) ([]models.Session, error)
	CreateSession(ctx context.Context, fields models.SessionFields) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	UpdateSession(ctx context.Context, id string, patch models.SessionPatch) error
	DeleteSession(ctx context.Context, id string) error
	AddParticipant(ctx context.Context, sessionID, userName string, role models.Role) error
	ListMessages(ctx context.Context, sessionID, roomID string, since int64) ([]models.Message, error)
	SendMessage(ctx context.Context, sessionID, roomID, userName string, role models.Role, text string) (*models.Message, error)
	CreateBreakoutRooms(ctx context.Context, sessionID string, count int, questions []string) ([]models.BreakoutRoom, error)
	JoinRoom(ctx context.Context, sessionID, roomID, userName string) error
	LeaveRoom(ctx context.Context, sessionID, roomID, userName string) error
	AdvancePhase(ctx context.Context, sessionID string, d phase.Direction) (int, error)
}
