package session

import (
	"context"
	"sync"
	"time"
)

// Tracker recomputes the remaining interview time on a fixed interval while
// a session is active. Remaining never goes negative; once the deadline
// passes it stays at zero. The tracker itself never ends the session — it
// only reports, through OnExpire, that the deadline was reached.
//
// Safe for concurrent use.
type Tracker struct {
	duration time.Duration
	interval time.Duration

	// now is the clock, injectable in tests.
	now func() time.Time

	// OnTick, if set, receives the recomputed remaining time every interval.
	OnTick func(remaining time.Duration)

	// OnExpire, if set, fires once when remaining first reaches zero.
	OnExpire func()

	mu        sync.Mutex
	startedAt time.Time
	started   bool
	expired   bool

	stopOnce sync.Once
	stop     chan struct{}
}

// NewTracker creates a tracker for an interview of the given duration,
// ticking every interval (1 s when zero).
func NewTracker(duration, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Tracker{
		duration: duration,
		interval: interval,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Start snapshots the activation time and begins ticking until Stop is
// called or ctx is done.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.startedAt = t.now()
	t.mu.Unlock()

	go t.run(ctx)
}

// Stop halts the tick loop. Idempotent.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Remaining reports the time left, clamped at zero. Before Start it is the
// full duration.
func (t *Tracker) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

func (t *Tracker) remainingLocked() time.Duration {
	if !t.started {
		return t.duration
	}
	remaining := t.duration - t.now().Sub(t.startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *Tracker) run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.onTick()
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tracker) onTick() {
	t.mu.Lock()
	remaining := t.remainingLocked()
	fireExpire := remaining == 0 && !t.expired
	if fireExpire {
		t.expired = true
	}
	t.mu.Unlock()

	if t.OnTick != nil {
		t.OnTick(remaining)
	}
	if fireExpire && t.OnExpire != nil {
		t.OnExpire()
	}
}
