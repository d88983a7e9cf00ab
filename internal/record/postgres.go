package record

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlConversations creates the conversations log and the applications status
// table. Applied idempotently on startup.
const ddlConversations = `
CREATE TABLE IF NOT EXISTS conversations (
    id                   BIGSERIAL    PRIMARY KEY,
    session_id           TEXT         NOT NULL,
    interviewer_response TEXT         NOT NULL,
    candidate_response   TEXT         NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversations_session_created
    ON conversations (session_id, created_at);

CREATE TABLE IF NOT EXISTS applications (
    id               TEXT         PRIMARY KEY,
    interview_status TEXT         NOT NULL DEFAULT 'PENDING',
    updated_at       TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// PostgresStore implements Store backed by a pgx connection pool.
// All methods are safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to the database at dsn and ensures the schema
// exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("record store: connect: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// migrate applies the DDL. Idempotent.
func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, ddlConversations); err != nil {
		return fmt.Errorf("record store: migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable. Used by readiness checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateConversation implements Store.
func (s *PostgresStore) CreateConversation(ctx context.Context, rec Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	const q = `
		INSERT INTO conversations (session_id, interviewer_response, candidate_response, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := s.pool.Exec(ctx, q, rec.SessionID, rec.InterviewerResponse, rec.CandidateResponse, createdAt)
	if err != nil {
		return fmt.Errorf("record store: create conversation: %w", err)
	}
	return nil
}

// Conversations implements Store.
func (s *PostgresStore) Conversations(ctx context.Context, sessionID string) ([]Record, error) {
	const q = `
		SELECT session_id, interviewer_response, candidate_response, created_at
		FROM   conversations
		WHERE  session_id = $1
		ORDER  BY created_at, id`

	rows, err := s.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("record store: conversations: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		err := row.Scan(&r.SessionID, &r.InterviewerResponse, &r.CandidateResponse, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("record store: scan conversations: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// MarkCompleted implements Store.
func (s *PostgresStore) MarkCompleted(ctx context.Context, applicationID string) error {
	const q = `
		INSERT INTO applications (id, interview_status, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET interview_status = EXCLUDED.interview_status, updated_at = now()`
	if _, err := s.pool.Exec(ctx, q, applicationID, StatusCompleted); err != nil {
		return fmt.Errorf("record store: mark completed: %w", err)
	}
	return nil
}

// Status implements Store.
func (s *PostgresStore) Status(ctx context.Context, applicationID string) (string, error) {
	const q = `SELECT interview_status FROM applications WHERE id = $1`

	var status string
	err := s.pool.QueryRow(ctx, q, applicationID).Scan(&status)
	if err == pgx.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("record store: status: %w", err)
	}
	return status, nil
}
