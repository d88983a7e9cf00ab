// Package mock provides a test double for the tts.Synthesizer interface.
//
// Use Synthesizer to feed controlled audio payloads and inject per-key
// failures without a live TTS backend.
package mock

import (
	"context"
	"sync"

	"github.com/vikram-capsitech/hirevox/pkg/provider/tts"
)

// Call records a single invocation of Synthesize.
type Call struct {
	// APIKey is the credential passed to Synthesize.
	APIKey string
	// Req is the request passed to Synthesize.
	Req tts.Request
}

// Synthesizer is a mock implementation of tts.Synthesizer.
type Synthesizer struct {
	mu sync.Mutex

	// Audio is returned by Synthesize when Err and ErrByKey are nil.
	Audio []byte

	// Err, if non-nil, is returned for every key unless ErrByKey overrides it.
	Err error

	// ErrByKey maps an API key to the error Synthesize returns for it.
	ErrByKey map[string]error

	// CallLog records every invocation in order.
	CallLog []Call
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// Synthesize implements tts.Synthesizer.
func (s *Synthesizer) Synthesize(_ context.Context, apiKey string, req tts.Request) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallLog = append(s.CallLog, Call{APIKey: apiKey, Req: req})
	if err, ok := s.ErrByKey[apiKey]; ok {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Audio, nil
}

// Calls returns a snapshot of recorded invocations.
func (s *Synthesizer) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.CallLog))
	copy(out, s.CallLog)
	return out
}
