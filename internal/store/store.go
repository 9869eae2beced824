package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
)

// ErrNotFound is returned when a charette or breakout room does not exist.
var ErrNotFound = models.ErrNotFound

// DataStore defines persistent storage of charettes, participants and breakout rooms.
// MemoryStore, SQLiteStore and PostgresStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Charette operations
	ListSessions(ctx context.Context) ([]models.Session, error)
	CreateSession(ctx context.Context, fields models.SessionFields) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	UpdateSession(ctx context.Context, id string, patch models.SessionPatch) error
	DeleteSession(ctx context.Context, id string) error
	AdvancePhase(ctx context.Context, id string, d phase.Direction) (int, error)

	// Membership operations
	AddParticipant(ctx context.Context, sessionID, userName string, role models.Role) error
	CreateBreakoutRooms(ctx context.Context, sessionID string, count int, questions []string) ([]models.BreakoutRoom, error)
	JoinRoom(ctx context.Context, sessionID, roomID, userName string) error
	LeaveRoom(ctx context.Context, sessionID, roomID, userName string) error
}

// MessageStore defines storage of room message streams.
// MemoryStore, SQLiteStore and RedisStore implement this interface.
type MessageStore interface {
	Ping(ctx context.Context) error

	// AddMessage assigns ID and Timestamp and stores msg. Timestamps are
	// strictly increasing within a (charette, room) pair.
	AddMessage(ctx context.Context, msg *models.Message) error
	// ListMessages returns messages with Timestamp > since in ascending order.
	ListMessages(ctx context.Context, charetteID, roomID string, since int64, limit int) ([]models.Message, error)
	DeleteMessages(ctx context.Context, charetteID string) error
}

// DefaultMessageLimit bounds a single ListMessages call when limit <= 0.
const DefaultMessageLimit = 500

// ListAll returns every message of a room newer than since, reading the
// stream one page at a time. Timestamps are strictly increasing within a
// room, so the last timestamp of a page is an exact cursor for the next.
func ListAll(ctx context.Context, ms MessageStore, charetteID, roomID string, since int64) ([]models.Message, error) {
	all := []models.Message{}
	for {
		page, err := ms.ListMessages(ctx, charetteID, roomID, since, DefaultMessageLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < DefaultMessageLimit {
			return all, nil
		}
		since = page[len(page)-1].Timestamp
	}
}

func newMessageID() string {
	return ulid.Make().String()
}

// nextTimestamp returns the current Unix ms, bumped past last when the clock
// has not moved on since the previous message in the room.
func nextTimestamp(last int64) int64 {
	now := time.Now().UnixMilli()
	if now <= last {
		return last + 1
	}
	return now
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultMessageLimit {
		return DefaultMessageLimit
	}
	return limit
}

// roomName returns the display name of the n-th breakout room (1-based).
func roomName(n int) string {
	return fmt.Sprintf("Breakout Room %d", n)
}

func cleanQuestions(questions []string) []string {
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

func breakoutMinutes(m models.Metadata) models.Metadata {
	if m.BreakoutRoomTime <= 0 {
		m.BreakoutRoomTime = models.DefaultBreakoutMinutes
	}
	return m
}
