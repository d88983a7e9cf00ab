// Package record persists conversation records and application interview
// status for interview sessions.
//
// A conversation record is written once per successful AI turn generation and
// is append-only: it carries the raw assistant content exactly as returned by
// the generator (the alignment engine re-parses it later) plus the candidate
// text captured around the same time. Application status tracks the external
// lifecycle signal — a status of COMPLETED is authoritative and forces a
// locally active session to end.
package record

import (
	"context"
	"errors"
	"time"
)

// StatusCompleted is the application interview status that short-circuits a
// session into its terminal state regardless of local phase.
const StatusCompleted = "COMPLETED"

// ErrNotFound is returned when an application does not exist.
var ErrNotFound = errors.New("record: application not found")

// Record is one persisted conversation exchange. Append-only; one record per
// completed AI turn-generation call.
type Record struct {
	// SessionID identifies the interview session.
	SessionID string

	// InterviewerResponse is the raw assistant content (a JSON interviewer
	// payload, possibly code-fenced). Stored verbatim, parsed on read.
	InterviewerResponse string

	// CandidateResponse is the raw candidate text captured around the same
	// time. May be empty for the opening turn.
	CandidateResponse string

	// CreatedAt is when the record was written.
	CreatedAt time.Time
}

// Store is the persistence boundary for conversation records and application
// interview status.
type Store interface {
	// CreateConversation appends rec. The store assigns CreatedAt when zero.
	CreateConversation(ctx context.Context, rec Record) error

	// Conversations returns all records for sessionID ordered by creation
	// time (oldest first).
	Conversations(ctx context.Context, sessionID string) ([]Record, error)

	// MarkCompleted sets the owning application's interview status to
	// COMPLETED. Idempotent.
	MarkCompleted(ctx context.Context, applicationID string) error

	// Status returns the application's interview status. Returns ErrNotFound
	// if the application does not exist.
	Status(ctx context.Context, applicationID string) (string, error)
}
