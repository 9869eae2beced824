package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
)

// PostgresStore handles PostgreSQL database operations. Message streams live
// in Redis when running against Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ListSessions retrieves all charettes, oldest first.
func (s *PostgresStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM charettes ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	sessions := make([]models.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.GetSession(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, nil
}

// CreateSession creates a new charette record.
func (s *PostgresStore) CreateSession(ctx context.Context, fields models.SessionFields) (*models.Session, error) {
	meta, err := json.Marshal(breakoutMinutes(fields.Metadata))
	if err != nil {
		return nil, err
	}

	var id string
	err = s.pool.QueryRow(ctx, `
		INSERT INTO charettes (title, description, metadata, current_phase, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, fields.Title, fields.Description, meta, phase.Initial, fields.CreatedBy).Scan(&id)
	if err != nil {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

// GetSession retrieves a charette with its participants and breakout rooms.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	sess := &models.Session{
		Participants:  []models.Participant{},
		BreakoutRooms: []models.BreakoutRoom{},
	}
	var meta []byte

	err := s.pool.QueryRow(ctx, `
		SELECT id, title, description, metadata, current_phase, created_by, created_at
		FROM charettes WHERE id = $1
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(meta, &sess.Metadata); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT user_name, role FROM participants
		WHERE charette_id = $1
		ORDER BY joined_at, user_name
	`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.UserName, &p.Role); err != nil {
			rows.Close()
			return nil, err
		}
		sess.Participants = append(sess.Participants, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Members are aggregated per room so the room list is a single query.
	rows, err = s.pool.Query(ctx, `
		SELECT r.id, r.name, r.questions,
		       COALESCE(array_agg(m.user_name ORDER BY m.joined_at) FILTER (WHERE m.user_name IS NOT NULL), '{}')
		FROM breakout_rooms r
		LEFT JOIN room_members m ON m.room_id = r.id
		WHERE r.charette_id = $1
		GROUP BY r.id, r.name, r.questions, r.position
		ORDER BY r.position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var room models.BreakoutRoom
		var questions []byte
		if err := rows.Scan(&room.ID, &room.Name, &questions, &room.Participants); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(questions, &room.Questions); err != nil {
			return nil, err
		}
		sess.BreakoutRooms = append(sess.BreakoutRooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdateSession applies a partial update to a charette.
func (s *PostgresStore) UpdateSession(ctx context.Context, id string, patch models.SessionPatch) error {
	var meta []byte
	if patch.Metadata != nil {
		var err error
		if meta, err = json.Marshal(patch.Metadata); err != nil {
			return err
		}
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE charettes
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    metadata = COALESCE($4, metadata)
		WHERE id = $1
	`, id, patch.Title, patch.Description, meta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSession removes a charette; participants and rooms cascade.
func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM charettes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdvancePhase moves the charette one phase, clamped at both ends.
func (s *PostgresStore) AdvancePhase(ctx context.Context, id string, d phase.Direction) (int, error) {
	step := 0
	switch d {
	case phase.Next:
		step = 1
	case phase.Previous:
		step = -1
	}

	var current int
	err := s.pool.QueryRow(ctx, `
		UPDATE charettes
		SET current_phase = LEAST(GREATEST(current_phase + $2, $3), $4)
		WHERE id = $1
		RETURNING current_phase
	`, id, step, phase.Initial, phase.Terminal()).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return current, nil
}

// AddParticipant registers a participant, updating the role if already present.
func (s *PostgresStore) AddParticipant(ctx context.Context, sessionID, userName string, role models.Role) error {
	if err := s.exists(ctx, sessionID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO participants (charette_id, user_name, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (charette_id, user_name) DO UPDATE SET role = EXCLUDED.role
	`, sessionID, userName, string(role))
	return err
}

// CreateBreakoutRooms appends count rooms sharing the same questions.
func (s *PostgresStore) CreateBreakoutRooms(ctx context.Context, sessionID string, count int, questions []string) ([]models.BreakoutRoom, error) {
	questions = cleanQuestions(questions)
	qs, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock the charette row so concurrent batches number rooms consistently.
	var id string
	err = tx.QueryRow(ctx, `SELECT id FROM charettes WHERE id = $1 FOR UPDATE`, sessionID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var existing int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM breakout_rooms WHERE charette_id = $1`, sessionID).Scan(&existing); err != nil {
		return nil, err
	}

	rooms := make([]models.BreakoutRoom, 0, count)
	for i := 0; i < count; i++ {
		room := models.BreakoutRoom{
			Name:         roomName(existing + i + 1),
			Participants: []string{},
			Questions:    append([]string(nil), questions...),
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO breakout_rooms (charette_id, name, questions, position)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, sessionID, room.Name, qs, existing+i).Scan(&room.ID)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rooms, nil
}

// JoinRoom moves userName into roomID, replacing any previous membership.
func (s *PostgresStore) JoinRoom(ctx context.Context, sessionID, roomID, userName string) error {
	if err := s.exists(ctx, sessionID); err != nil {
		return err
	}
	if !models.IsBreakout(roomID) {
		return nil
	}
	if err := s.roomExists(ctx, sessionID, roomID); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO room_members (charette_id, room_id, user_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (charette_id, user_name) DO UPDATE
		SET room_id = EXCLUDED.room_id, joined_at = NOW()
		WHERE room_members.room_id <> EXCLUDED.room_id
	`, sessionID, roomID, userName)
	return err
}

// LeaveRoom removes userName from roomID.
func (s *PostgresStore) LeaveRoom(ctx context.Context, sessionID, roomID, userName string) error {
	if err := s.exists(ctx, sessionID); err != nil {
		return err
	}
	if !models.IsBreakout(roomID) {
		return nil
	}
	if err := s.roomExists(ctx, sessionID, roomID); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		DELETE FROM room_members
		WHERE charette_id = $1 AND room_id = $2 AND user_name = $3
	`, sessionID, roomID, userName)
	return err
}

func (s *PostgresStore) exists(ctx context.Context, id string) error {
	var found bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM charettes WHERE id = $1)`, id).Scan(&found); err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) roomExists(ctx context.Context, sessionID, roomID string) error {
	var found bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM breakout_rooms WHERE id = $1 AND charette_id = $2)
	`, roomID, sessionID).Scan(&found)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}
