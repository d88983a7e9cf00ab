package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// KeyPool rotates an ordered list of provider credentials across synthesis
// calls. It remembers the index of the most recently successful key and
// starts there on the next call, so a healthy key keeps being reused and
// exhausted keys are only retried once per call.
//
// A KeyPool is constructed once per process and shared; all methods are safe
// for concurrent use. Rotation state is only mutated after a confirmed
// success — concurrent callers may observe a slightly stale start index,
// which affects rotation fairness but never correctness.
type KeyPool struct {
	synth Synthesizer
	keys  []string

	mu   sync.Mutex
	last int // index of the most recently successful key
}

// NewKeyPool creates a pool over keys, tried in order. At least one key is
// required.
func NewKeyPool(synth Synthesizer, keys []string) (*KeyPool, error) {
	if synth == nil {
		return nil, fmt.Errorf("tts: key pool: synthesizer must not be nil")
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("tts: key pool: at least one API key is required")
	}
	cp := make([]string, len(keys))
	copy(cp, keys)
	return &KeyPool{synth: synth, keys: cp}, nil
}

// Len returns the number of credentials in the pool.
func (p *KeyPool) Len() int {
	return len(p.keys)
}

// LastSuccessfulIndex returns the index the next call will start from.
func (p *KeyPool) LastSuccessfulIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Synthesize performs req against the pool. startIndex pins the first key to
// try; pass a negative or out-of-range value to start from the last
// successful index. Each key is tried at most once, wrapping around the list.
//
// Keys are skipped on rate-limit (HTTP 429), provider quota errors, and
// transport failures. Context cancellation aborts the rotation immediately.
//
// On success the pool records the succeeding key's index and returns the
// audio payload together with that index, so a caller can pin subsequent
// related calls to the same key. If every key fails, the returned error wraps
// [ErrPoolExhausted] and the rotation state is not mutated.
func (p *KeyPool) Synthesize(ctx context.Context, req Request, startIndex int) ([]byte, int, error) {
	start := startIndex
	if start < 0 || start >= len(p.keys) {
		start = p.LastSuccessfulIndex()
	}

	var lastErr error
	for i := 0; i < len(p.keys); i++ {
		idx := (start + i) % len(p.keys)

		audio, err := p.synth.Synthesize(ctx, p.keys[idx], req)
		if err == nil {
			p.mu.Lock()
			p.last = idx
			p.mu.Unlock()
			return audio, idx, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, fmt.Errorf("tts: key pool: %w", ctxErr)
		}

		lastErr = err
		if IsQuota(err) {
			slog.Warn("tts key quota exhausted, rotating", "key_index", idx, "err", err)
		} else {
			slog.Warn("tts key failed, rotating", "key_index", idx, "err", err)
		}
	}

	return nil, 0, fmt.Errorf("%w after %d keys: %w", ErrPoolExhausted, len(p.keys), lastErr)
}

// Exhausted reports whether err indicates the whole pool failed.
func Exhausted(err error) bool {
	return errors.Is(err, ErrPoolExhausted)
}
