package record

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation used in tests and local
// development without a database. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	records  []Record
	statuses map[string]string
	seq      int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{statuses: make(map[string]string)}
}

// CreateConversation implements Store.
func (s *MemoryStore) CreateConversation(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		// Monotonic fallback so ordering stays stable within one instant.
		s.seq++
		rec.CreatedAt = time.Now().UTC().Add(time.Duration(s.seq) * time.Nanosecond)
	}
	s.records = append(s.records, rec)
	return nil
}

// Conversations implements Store.
func (s *MemoryStore) Conversations(_ context.Context, sessionID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

// MarkCompleted implements Store.
func (s *MemoryStore) MarkCompleted(_ context.Context, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[applicationID] = StatusCompleted
	return nil
}

// Status implements Store.
func (s *MemoryStore) Status(_ context.Context, applicationID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[applicationID]
	if !ok {
		return "", ErrNotFound
	}
	return status, nil
}

// SetStatus seeds an application status. Test helper.
func (s *MemoryStore) SetStatus(applicationID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[applicationID] = status
}
