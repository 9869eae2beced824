package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
)

// SQLiteStore handles SQLite database operations. It implements both
// DataStore and MessageStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/charette.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/charette.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// A single writer keeps timestamp assignment and room moves serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS charettes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		current_phase INTEGER NOT NULL DEFAULT 0,
		created_by TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS participants (
		charette_id TEXT NOT NULL REFERENCES charettes(id) ON DELETE CASCADE,
		user_name TEXT NOT NULL,
		role TEXT NOT NULL,
		joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (charette_id, user_name)
	);

	CREATE TABLE IF NOT EXISTS breakout_rooms (
		id TEXT PRIMARY KEY,
		charette_id TEXT NOT NULL REFERENCES charettes(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		questions TEXT NOT NULL DEFAULT '[]',
		position INTEGER NOT NULL
	);

	-- One row per user: a user is in at most one breakout room per charette.
	CREATE TABLE IF NOT EXISTS room_members (
		charette_id TEXT NOT NULL REFERENCES charettes(id) ON DELETE CASCADE,
		room_id TEXT NOT NULL REFERENCES breakout_rooms(id) ON DELETE CASCADE,
		user_name TEXT NOT NULL,
		joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (charette_id, user_name)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		charette_id TEXT NOT NULL REFERENCES charettes(id) ON DELETE CASCADE,
		room_id TEXT NOT NULL,
		user_name TEXT NOT NULL,
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		ts INTEGER NOT NULL,
		UNIQUE (charette_id, room_id, ts)
	);

	CREATE INDEX IF NOT EXISTS idx_charettes_created ON charettes(created_at);
	CREATE INDEX IF NOT EXISTS idx_rooms_charette ON breakout_rooms(charette_id, position);
	CREATE INDEX IF NOT EXISTS idx_messages_stream ON messages(charette_id, room_id, ts);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListSessions retrieves all charettes, oldest first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM charettes ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sessions := make([]models.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.GetSession(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // deleted concurrently
			}
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, nil
}

// CreateSession creates a new charette record.
func (s *SQLiteStore) CreateSession(ctx context.Context, fields models.SessionFields) (*models.Session, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	meta, err := json.Marshal(breakoutMinutes(fields.Metadata))
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO charettes (id, title, description, metadata, current_phase, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, fields.Title, fields.Description, string(meta), phase.Initial, fields.CreatedBy, now)
	if err != nil {
		return nil, err
	}

	return s.GetSession(ctx, id)
}

// GetSession retrieves a charette with its participants and breakout rooms.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	sess := &models.Session{
		Participants:  []models.Participant{},
		BreakoutRooms: []models.BreakoutRoom{},
	}
	var meta string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, metadata, current_phase, created_by, created_at
		FROM charettes WHERE id = ?
	`, id).Scan(
		&sess.ID,
		&sess.Title,
		&sess.Description,
		&meta,
		&sess.CurrentPhase,
		&sess.CreatedBy,
		&sess.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &sess.Metadata); err != nil {
		return nil, err
	}

	if err := s.loadParticipants(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.loadRooms(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SQLiteStore) loadParticipants(ctx context.Context, sess *models.Session) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_name, role FROM participants
		WHERE charette_id = ?
		ORDER BY joined_at, rowid
	`, sess.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.UserName, &p.Role); err != nil {
			return err
		}
		sess.Participants = append(sess.Participants, p)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadRooms(ctx context.Context, sess *models.Session) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, questions FROM breakout_rooms
		WHERE charette_id = ?
		ORDER BY position
	`, sess.ID)
	if err != nil {
		return err
	}

	index := make(map[string]int)
	for rows.Next() {
		var room models.BreakoutRoom
		var questions string
		if err := rows.Scan(&room.ID, &room.Name, &questions); err != nil {
			rows.Close()
			return err
		}
		if err := json.Unmarshal([]byte(questions), &room.Questions); err != nil {
			rows.Close()
			return err
		}
		room.Participants = []string{}
		index[room.ID] = len(sess.BreakoutRooms)
		sess.BreakoutRooms = append(sess.BreakoutRooms, room)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	members, err := s.db.QueryContext(ctx, `
		SELECT room_id, user_name FROM room_members
		WHERE charette_id = ?
		ORDER BY joined_at, rowid
	`, sess.ID)
	if err != nil {
		return err
	}
	defer members.Close()

	for members.Next() {
		var roomID, userName string
		if err := members.Scan(&roomID, &userName); err != nil {
			return err
		}
		if i, ok := index[roomID]; ok {
			sess.BreakoutRooms[i].Participants = append(sess.BreakoutRooms[i].Participants, userName)
		}
	}
	return members.Err()
}

// UpdateSession applies a partial update to a charette.
func (s *SQLiteStore) UpdateSession(ctx context.Context, id string, patch models.SessionPatch) error {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	patch.Apply(sess)

	meta, err := json.Marshal(sess.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE charettes SET title = ?, description = ?, metadata = ?
		WHERE id = ?
	`, sess.Title, sess.Description, string(meta), id)
	return err
}

// DeleteSession removes a charette; participants, rooms and messages cascade.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM charettes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// AdvancePhase moves the charette one phase, clamped at both ends.
func (s *SQLiteStore) AdvancePhase(ctx context.Context, id string, d phase.Direction) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, `SELECT current_phase FROM charettes WHERE id = ?`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	next := phase.Apply(current, d)
	if _, err := tx.ExecContext(ctx, `UPDATE charettes SET current_phase = ? WHERE id = ?`, next, id); err != nil {
		return 0, err
	}
	return next, tx.Commit()
}

// AddParticipant registers a participant, updating the role if already present.
func (s *SQLiteStore) AddParticipant(ctx context.Context, sessionID, userName string, role models.Role) error {
	if err := s.exists(ctx, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (charette_id, user_name, role, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (charette_id, user_name) DO UPDATE SET role = excluded.role
	`, sessionID, userName, string(role), time.Now().UTC())
	return err
}

// CreateBreakoutRooms appends count rooms sharing the same questions.
func (s *SQLiteStore) CreateBreakoutRooms(ctx context.Context, sessionID string, count int, questions []string) ([]models.BreakoutRoom, error) {
	questions = cleanQuestions(questions)
	qs, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.existsTx(ctx, tx, sessionID); err != nil {
		return nil, err
	}

	var existing int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM breakout_rooms WHERE charette_id = ?
	`, sessionID).Scan(&existing)
	if err != nil {
		return nil, err
	}

	rooms := make([]models.BreakoutRoom, 0, count)
	for i := 0; i < count; i++ {
		room := models.BreakoutRoom{
			ID:           uuid.New().String(),
			Name:         roomName(existing + i + 1),
			Participants: []string{},
			Questions:    append([]string(nil), questions...),
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO breakout_rooms (id, charette_id, name, questions, position)
			VALUES (?, ?, ?, ?, ?)
		`, room.ID, sessionID, room.Name, string(qs), existing+i)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rooms, nil
}

// JoinRoom moves userName into roomID. The primary key on room_members makes
// the move replace any previous membership in the same statement.
func (s *SQLiteStore) JoinRoom(ctx context.Context, sessionID, roomID, userName string) error {
	if err := s.exists(ctx, sessionID); err != nil {
		return err
	}
	if !models.IsBreakout(roomID) {
		return nil
	}
	if err := s.roomExists(ctx, sessionID, roomID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_members (charette_id, room_id, user_name, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (charette_id, user_name) DO UPDATE
		SET room_id = excluded.room_id, joined_at = excluded.joined_at
		WHERE room_members.room_id <> excluded.room_id
	`, sessionID, roomID, userName, time.Now().UTC())
	return err
}

// LeaveRoom removes userName from roomID.
func (s *SQLiteStore) LeaveRoom(ctx context.Context, sessionID, roomID, userName string) error {
	if err := s.exists(ctx, sessionID); err != nil {
		return err
	}
	if !models.IsBreakout(roomID) {
		return nil
	}
	if err := s.roomExists(ctx, sessionID, roomID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM room_members
		WHERE charette_id = ? AND room_id = ? AND user_name = ?
	`, sessionID, roomID, userName)
	return err
}

// AddMessage stores a message, assigning a timestamp strictly after the
// newest one in the same room.
func (s *SQLiteStore) AddMessage(ctx context.Context, msg *models.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.existsTx(ctx, tx, msg.CharetteID); err != nil {
		return err
	}

	var last int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(ts), 0) FROM messages WHERE charette_id = ? AND room_id = ?
	`, msg.CharetteID, msg.RoomID).Scan(&last)
	if err != nil {
		return err
	}

	if msg.ID == "" {
		msg.ID = newMessageID()
	}
	msg.Timestamp = nextTimestamp(last)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, charette_id, room_id, user_name, role, text, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.CharetteID, msg.RoomID, msg.UserName, string(msg.Role), msg.Text, msg.Timestamp)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ListMessages returns messages newer than since in ascending order.
func (s *SQLiteStore) ListMessages(ctx context.Context, charetteID, roomID string, since int64, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, charette_id, room_id, user_name, role, text, ts
		FROM messages
		WHERE charette_id = ? AND room_id = ? AND ts > ?
		ORDER BY ts
		LIMIT ?
	`, charetteID, roomID, since, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.CharetteID, &m.RoomID, &m.UserName, &m.Role, &m.Text, &m.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteMessages removes every message of a charette.
func (s *SQLiteStore) DeleteMessages(ctx context.Context, charetteID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE charette_id = ?`, charetteID)
	return err
}

func (s *SQLiteStore) exists(ctx context.Context, id string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM charettes WHERE id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) existsTx(ctx context.Context, tx *sql.Tx, id string) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM charettes WHERE id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) roomExists(ctx context.Context, sessionID, roomID string) error {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM breakout_rooms WHERE id = ? AND charette_id = ?
	`, roomID, sessionID).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
