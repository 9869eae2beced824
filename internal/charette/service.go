// Package charette implements the remote session store operations on top of
// the persistence layer: validation, membership rules and phase changes.
package charette

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/charette/internal/analysis"
	"github.com/eldtechnologies/charette/internal/metrics"
	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
	"github.com/eldtechnologies/charette/internal/store"
)

// MaxMessageLength bounds the text of a single message, in bytes.
const MaxMessageLength = 4096

// Service exposes the charette operations shared by the HTTP API and the
// in-process demo backend.
type Service struct {
	data     store.DataStore
	messages store.MessageStore
	analyzer analysis.Analyzer
	logger   zerolog.Logger
}

// NewService creates a Service. A nil analyzer falls back to analysis.Fixed.
func NewService(data store.DataStore, messages store.MessageStore, analyzer analysis.Analyzer, logger zerolog.Logger) *Service {
	if analyzer == nil {
		analyzer = analysis.NewFixed()
	}
	return &Service{
		data:     data,
		messages: messages,
		analyzer: analyzer,
		logger:   logger,
	}
}

// NewMemoryService creates a Service backed by a fresh in-memory store.
func NewMemoryService(logger zerolog.Logger) *Service {
	mem := store.NewMemoryStore()
	return NewService(mem, mem, nil, logger)
}

// Ping checks both stores.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.data.Ping(ctx); err != nil {
		return fmt.Errorf("data store: %w", err)
	}
	if err := s.messages.Ping(ctx); err != nil {
		return fmt.Errorf("message store: %w", err)
	}
	return nil
}

// ListSessions returns every charette.
func (s *Service) ListSessions(ctx context.Context) ([]models.Session, error) {
	return s.data.ListSessions(ctx)
}

// CreateSession creates a charette at the first phase.
func (s *Service) CreateSession(ctx context.Context, fields models.SessionFields) (*models.Session, error) {
	fields.Title = strings.TrimSpace(fields.Title)
	if fields.Title == "" {
		return nil, models.ErrEmptyTitle
	}
	if fields.Metadata.BreakoutRoomTime < 0 {
		fields.Metadata.BreakoutRoomTime = 0
	}

	sess, err := s.data.CreateSession(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("create charette: %w", err)
	}

	metrics.SessionsCreated.Inc()
	s.logger.Info().Str("charette", sess.ID).Str("title", sess.Title).Msg("charette created")
	return sess, nil
}

// GetSession returns a charette with participants and rooms.
func (s *Service) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return s.data.GetSession(ctx, id)
}

// UpdateSession applies a partial update.
func (s *Service) UpdateSession(ctx context.Context, id string, patch models.SessionPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.ErrEmptyTitle
		}
		patch.Title = &title
	}
	return s.data.UpdateSession(ctx, id, patch)
}

// DeleteSession removes a charette and its message streams.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.data.DeleteSession(ctx, id); err != nil {
		return err
	}
	if err := s.messages.DeleteMessages(ctx, id); err != nil {
		// The charette is gone; orphaned streams expire on their own.
		s.logger.Warn().Err(err).Str("charette", id).Msg("failed to delete message streams")
	}
	s.logger.Info().Str("charette", id).Msg("charette deleted")
	return nil
}

// AddParticipant registers a user on a charette.
func (s *Service) AddParticipant(ctx context.Context, sessionID, userName string, role models.Role) error {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return models.ErrEmptyUserName
	}
	role, err := models.ParseRole(string(role))
	if err != nil {
		return err
	}
	return s.data.AddParticipant(ctx, sessionID, userName, role)
}

// ListMessages returns every message of a room newer than since.
func (s *Service) ListMessages(ctx context.Context, sessionID, roomID string, since int64) ([]models.Message, error) {
	if err := s.checkRoom(ctx, sessionID, roomID); err != nil {
		return nil, err
	}
	return store.ListAll(ctx, s.messages, sessionID, roomID, since)
}

// SendMessage appends a message to a room stream.
func (s *Service) SendMessage(ctx context.Context, sessionID, roomID, userName string, role models.Role, text string) (*models.Message, error) {
	if err := models.ValidateMessage(userName, text); err != nil {
		return nil, err
	}
	role, err := models.ParseRole(string(role))
	if err != nil {
		return nil, err
	}
	text = truncate(strings.TrimSpace(text), MaxMessageLength)
	if err := s.checkRoom(ctx, sessionID, roomID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		CharetteID: sessionID,
		RoomID:     roomID,
		UserName:   strings.TrimSpace(userName),
		Role:       role,
		Text:       text,
	}
	if err := s.messages.AddMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	metrics.MessagesPosted.WithLabelValues(roomType(roomID)).Inc()
	return msg, nil
}

// CreateBreakoutRooms creates count rooms, each with the given questions.
func (s *Service) CreateBreakoutRooms(ctx context.Context, sessionID string, count int, questions []string) ([]models.BreakoutRoom, error) {
	if count < 1 || count > models.MaxBreakoutRooms {
		return nil, models.ErrInvalidRoomCount
	}
	rooms, err := s.data.CreateBreakoutRooms(ctx, sessionID, count, questions)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("charette", sessionID).Int("count", count).Msg("breakout rooms created")
	return rooms, nil
}

// JoinRoom moves a user into a breakout room, out of any other.
func (s *Service) JoinRoom(ctx context.Context, sessionID, roomID, userName string) error {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return models.ErrEmptyUserName
	}
	if err := s.data.JoinRoom(ctx, sessionID, roomID, userName); err != nil {
		return err
	}
	metrics.RoomMembership.WithLabelValues("join").Inc()
	return nil
}

// LeaveRoom removes a user from a breakout room.
func (s *Service) LeaveRoom(ctx context.Context, sessionID, roomID, userName string) error {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return models.ErrEmptyUserName
	}
	if err := s.data.LeaveRoom(ctx, sessionID, roomID, userName); err != nil {
		return err
	}
	metrics.RoomMembership.WithLabelValues("leave").Inc()
	return nil
}

// AdvancePhase moves the charette one phase forward or back, clamped.
// Callers decide who may invoke it.
func (s *Service) AdvancePhase(ctx context.Context, sessionID string, d phase.Direction) (int, error) {
	d, err := phase.ParseDirection(string(d))
	if err != nil {
		return 0, err
	}
	current, err := s.data.AdvancePhase(ctx, sessionID, d)
	if err != nil {
		return 0, err
	}

	metrics.PhaseTransitions.WithLabelValues(string(d)).Inc()
	s.logger.Info().
		Str("charette", sessionID).
		Str("direction", string(d)).
		Int("phase", current).
		Str("phase_name", phase.Name(current)).
		Msg("phase changed")
	return current, nil
}

// Analyze runs the analyzer over a room's full message stream.
func (s *Service) Analyze(ctx context.Context, sessionID, roomID string) (*models.AnalysisResult, error) {
	sess, err := s.data.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if models.IsBreakout(roomID) && sess.Room(roomID) == nil {
		return nil, fmt.Errorf("room %s: %w", roomID, models.ErrNotFound)
	}
	messages, err := store.ListAll(ctx, s.messages, sessionID, roomID, 0)
	if err != nil {
		return nil, err
	}
	return s.analyzer.Analyze(ctx, sess, roomID, messages)
}

// checkRoom verifies the charette exists and roomID is main or one of its rooms.
func (s *Service) checkRoom(ctx context.Context, sessionID, roomID string) error {
	sess, err := s.data.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if models.IsBreakout(roomID) && sess.Room(roomID) == nil {
		return fmt.Errorf("room %s: %w", roomID, models.ErrNotFound)
	}
	if roomID == "" {
		return fmt.Errorf("room: %w", models.ErrNotFound)
	}
	return nil
}

func roomType(roomID string) string {
	if models.IsBreakout(roomID) {
		return "breakout"
	}
	return "main"
}

// truncate cuts text to at most limit bytes without splitting a rune.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	n := limit
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}
