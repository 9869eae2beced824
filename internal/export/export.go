// Package export renders charette transcripts for archiving.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
)

// Source is the subset of the session store a transcript is read from.
type Source interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListMessages(ctx context.Context, sessionID, roomID string, since int64) ([]models.Message, error)
}

// Transcript is a charette with the messages of its rooms.
type Transcript struct {
	Session    *models.Session  `json:"session" yaml:"session"`
	Phase      string           `json:"phase" yaml:"phase"`
	Rooms      []RoomTranscript `json:"rooms" yaml:"rooms"`
	ExportedAt time.Time        `json:"exportedAt" yaml:"exportedAt"`
}

// RoomTranscript holds one room's messages in timestamp order.
type RoomTranscript struct {
	ID       string           `json:"id" yaml:"id"`
	Name     string           `json:"name" yaml:"name"`
	Messages []models.Message `json:"messages" yaml:"messages"`
}

// MainRoomName is the display name of the main room.
const MainRoomName = "Main Room"

// Collect reads a charette and its messages. An empty roomID collects the
// main room and every breakout room; otherwise only that room.
func Collect(ctx context.Context, src Source, sessionID, roomID string) (*Transcript, error) {
	sess, err := src.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get charette %s: %w", sessionID, err)
	}

	rooms := []RoomTranscript{{ID: models.MainRoom, Name: MainRoomName}}
	for _, r := range sess.BreakoutRooms {
		rooms = append(rooms, RoomTranscript{ID: r.ID, Name: r.Name})
	}
	if roomID != "" {
		var picked []RoomTranscript
		for _, r := range rooms {
			if r.ID == roomID {
				picked = append(picked, r)
			}
		}
		if len(picked) == 0 {
			return nil, fmt.Errorf("room %s: %w", roomID, models.ErrNotFound)
		}
		rooms = picked
	}

	for i := range rooms {
		msgs, err := src.ListMessages(ctx, sessionID, rooms[i].ID, 0)
		if err != nil {
			return nil, fmt.Errorf("list messages of %s: %w", rooms[i].ID, err)
		}
		if msgs == nil {
			msgs = []models.Message{}
		}
		rooms[i].Messages = msgs
	}

	return &Transcript{
		Session:    sess,
		Phase:      phase.Name(sess.CurrentPhase),
		Rooms:      rooms,
		ExportedAt: time.Now().UTC(),
	}, nil
}

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(t *Transcript, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, yaml, md)", format)
	}
}
