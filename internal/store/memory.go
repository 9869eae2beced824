package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
)

// MemoryStore keeps everything in process memory. It backs the demo mode
// and tests, and implements both DataStore and MessageStore.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	order    []string
	messages map[string][]models.Message
	lastTS   map[string]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		messages: make(map[string][]models.Message),
		lastTS:   make(map[string]int64),
	}
}

func streamKey(charetteID, roomID string) string {
	return charetteID + "/" + roomID
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// ListSessions returns all charettes in creation order.
func (s *MemoryStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.sessions[id].Clone())
	}
	return out, nil
}

// CreateSession creates a new charette at the initial phase.
func (s *MemoryStore) CreateSession(ctx context.Context, fields models.SessionFields) (*models.Session, error) {
	sess := &models.Session{
		ID:            uuid.NewString(),
		Title:         fields.Title,
		Description:   fields.Description,
		Metadata:      breakoutMinutes(fields.Metadata),
		CurrentPhase:  phase.Initial,
		Participants:  []models.Participant{},
		BreakoutRooms: []models.BreakoutRoom{},
		CreatedBy:     fields.CreatedBy,
		CreatedAt:     time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.order = append(s.order, sess.ID)
	s.mu.Unlock()

	return sess.Clone(), nil
}

// GetSession retrieves a charette by ID.
func (s *MemoryStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// UpdateSession applies a partial update.
func (s *MemoryStore) UpdateSession(ctx context.Context, id string, patch models.SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	patch.Apply(sess)
	return nil
}

// DeleteSession removes a charette and its message streams.
func (s *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	s.deleteMessagesLocked(id)
	return nil
}

// AdvancePhase moves the charette one phase in direction d, clamped at both ends.
func (s *MemoryStore) AdvancePhase(ctx context.Context, id string, d phase.Direction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return 0, ErrNotFound
	}
	sess.CurrentPhase = phase.Apply(sess.CurrentPhase, d)
	return sess.CurrentPhase, nil
}

// AddParticipant registers userName, updating the role if already present.
func (s *MemoryStore) AddParticipant(ctx context.Context, sessionID, userName string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	for i := range sess.Participants {
		if sess.Participants[i].UserName == userName {
			sess.Participants[i].Role = role
			return nil
		}
	}
	sess.Participants = append(sess.Participants, models.Participant{UserName: userName, Role: role})
	return nil
}

// CreateBreakoutRooms appends count rooms sharing the same questions.
func (s *MemoryStore) CreateBreakoutRooms(ctx context.Context, sessionID string, count int, questions []string) ([]models.BreakoutRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	questions = cleanQuestions(questions)
	created := make([]models.BreakoutRoom, 0, count)
	for i := 0; i < count; i++ {
		room := models.BreakoutRoom{
			ID:           uuid.NewString(),
			Name:         roomName(len(sess.BreakoutRooms) + 1),
			Participants: []string{},
			Questions:    append([]string(nil), questions...),
		}
		sess.BreakoutRooms = append(sess.BreakoutRooms, room)
		created = append(created, room.Clone())
	}
	return created, nil
}

// JoinRoom moves userName into roomID, removing them from any other breakout room first.
func (s *MemoryStore) JoinRoom(ctx context.Context, sessionID, roomID, userName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if !models.IsBreakout(roomID) {
		return nil
	}
	target := sess.Room(roomID)
	if target == nil {
		return ErrNotFound
	}

	for i := range sess.BreakoutRooms {
		room := &sess.BreakoutRooms[i]
		if room.ID != roomID {
			room.Participants = slices.DeleteFunc(room.Participants, func(v string) bool { return v == userName })
		}
	}
	if !target.HasParticipant(userName) {
		target.Participants = append(target.Participants, userName)
	}
	return nil
}

// LeaveRoom removes userName from roomID. Leaving a room one is not in is a no-op.
func (s *MemoryStore) LeaveRoom(ctx context.Context, sessionID, roomID, userName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if !models.IsBreakout(roomID) {
		return nil
	}
	room := sess.Room(roomID)
	if room == nil {
		return ErrNotFound
	}
	room.Participants = slices.DeleteFunc(room.Participants, func(v string) bool { return v == userName })
	return nil
}

// AddMessage stores a message in its room stream.
func (s *MemoryStore) AddMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := streamKey(msg.CharetteID, msg.RoomID)
	if msg.ID == "" {
		msg.ID = newMessageID()
	}
	msg.Timestamp = nextTimestamp(s.lastTS[key])
	s.lastTS[key] = msg.Timestamp
	s.messages[key] = append(s.messages[key], *msg)
	return nil
}

// ListMessages returns messages newer than since in ascending order.
func (s *MemoryStore) ListMessages(ctx context.Context, charetteID, roomID string, since int64, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.messages[streamKey(charetteID, roomID)]
	start := sort.Search(len(stream), func(i int) bool { return stream[i].Timestamp > since })

	out := make([]models.Message, 0, len(stream)-start)
	for _, m := range stream[start:] {
		out = append(out, m)
		if len(out) >= normalizeLimit(limit) {
			break
		}
	}
	return out, nil
}

// DeleteMessages drops every stream of a charette.
func (s *MemoryStore) DeleteMessages(ctx context.Context, charetteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteMessagesLocked(charetteID)
	return nil
}

func (s *MemoryStore) deleteMessagesLocked(charetteID string) {
	prefix := charetteID + "/"
	for key := range s.messages {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(s.messages, key)
			delete(s.lastTS, key)
		}
	}
}
