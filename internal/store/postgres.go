package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Gateway and worker start together; only one of them runs the DDL.
	const lockID = 727001 // chat session schema lock

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id UUID PRIMARY KEY,
			mode TEXT NOT NULL,
			busy BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGSERIAL PRIMARY KEY,
			session_id UUID REFERENCES chat_sessions(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			is_error BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS chat_messages_session_idx ON chat_messages(session_id, id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, mode Mode, greeting Message) (Session, error) {
	id := uuid.New()
	now := time.Now()
	if greeting.CreatedAt.IsZero() {
		greeting.CreatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO chat_sessions(id, mode, busy, created_at) VALUES($1,$2,false,$3)`,
		id, mode, now); err != nil {
		return Session{}, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO chat_messages(session_id, role, content, is_error, created_at) VALUES($1,$2,$3,$4,$5)`,
		id, greeting.Role, greeting.Content, greeting.IsError, greeting.CreatedAt); err != nil {
		return Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return Session{}, err
	}
	return Session{ID: id, Mode: mode, Messages: []Message{greeting}, CreatedAt: now}, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	sess := Session{ID: id}
	row := s.db.QueryRowContext(ctx, `SELECT mode, busy, created_at FROM chat_sessions WHERE id=$1`, id)
	if err := row.Scan(&sess.Mode, &sess.Busy, &sess.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("failed to get session %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, is_error, created_at
		FROM chat_messages
		WHERE session_id=$1
		ORDER BY id`, id)
	if err != nil {
		return Session{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.IsError, &m.CreatedAt); err != nil {
			return Session{}, err
		}
		sess.Messages = append(sess.Messages, m)
	}
	return sess, rows.Err()
}

func (s *PostgresStore) SetMode(ctx context.Context, id uuid.UUID, mode Mode) error {
	res, err := s.db.ExecContext(ctx, `UPDATE chat_sessions SET mode=$1 WHERE id=$2`, mode, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PostgresStore) AcquireBusy(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE chat_sessions SET busy=true WHERE id=$1 AND busy=false`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM chat_sessions WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrSessionNotFound
	}
	return ErrSessionBusy
}

func (s *PostgresStore) ReleaseBusy(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE chat_sessions SET busy=false WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PostgresStore) AppendMessage(ctx context.Context, id uuid.UUID, msg Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages(session_id, role, content, is_error, created_at)
		SELECT id, $2, $3, $4, $5 FROM chat_sessions WHERE id=$1`,
		id, msg.Role, msg.Content, msg.IsError, msg.CreatedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
