// Package turn implements the ordered turn log and the turn coordinator that
// drives the listen → generate → speak cycle of an interview session.
package turn

import (
	"fmt"
	"sync"
)

// Role identifies the speaker of a turn.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Turn is one utterance in a session's ordered log. Immutable once appended.
//
// Content for interviewer turns is the raw structured payload returned by the
// generator; for candidate turns it is the candidate envelope wrapping the
// recognized utterance with remaining-time context.
type Turn struct {
	Role     Role
	Content  string
	Sequence int
}

// Store is the append-only ordered turn log for one session. Sequence numbers
// strictly increase in insertion order, and turns strictly alternate roles:
// the opening turn belongs to the interviewer, every later interviewer turn
// must follow a candidate turn and vice versa.
//
// Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	turns []Turn
	seq   int
}

// NewStore creates an empty turn log.
func NewStore() *Store {
	return &Store{}
}

// Append adds a turn and returns it with its assigned sequence number.
// Appends that would break the alternation invariant are rejected.
func (s *Store) Append(role Role, content string) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.turns) == 0 {
		if role != RoleInterviewer {
			return Turn{}, fmt.Errorf("turn store: opening turn must be the interviewer's, got %s", role)
		}
	} else if last := s.turns[len(s.turns)-1].Role; last == role {
		return Turn{}, fmt.Errorf("turn store: consecutive %s turns are not allowed", role)
	}

	s.seq++
	t := Turn{Role: role, Content: content, Sequence: s.seq}
	s.turns = append(s.turns, t)
	return t, nil
}

// Turns returns a snapshot of the log in insertion order.
func (s *Store) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns in the log.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// DropLast removes the most recent turn if it belongs to role and reports
// whether a turn was removed. Used by the coordinator when a cycle is
// abandoned, so the next attempt can re-append the candidate turn without
// breaking the alternation invariant.
func (s *Store) DropLast(role Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.turns); n > 0 && s.turns[n-1].Role == role {
		s.turns = s.turns[:n-1]
		return true
	}
	return false
}

// Last returns the most recent turn and true, or a zero turn and false when
// the log is empty.
func (s *Store) Last() (Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	return s.turns[len(s.turns)-1], true
}
