package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vikram-capsitech/hirevox/internal/record"
)

// StatusWatcher polls the application status and forces the session to end
// when an external collaborator has already marked it completed. The external
// status is authoritative: a completed application ends the local session
// even while coordinator work is in flight.
type StatusWatcher struct {
	applicationID string
	records       record.Store
	machine       *Machine
	interval      time.Duration
}

// NewStatusWatcher creates a watcher polling every interval (10 s when zero).
func NewStatusWatcher(applicationID string, records record.Store, machine *Machine, interval time.Duration) *StatusWatcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StatusWatcher{
		applicationID: applicationID,
		records:       records,
		machine:       machine,
		interval:      interval,
	}
}

// Run polls until ctx is done or the session ends. Intended to run in its
// own goroutine for the lifetime of a session.
func (w *StatusWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.machine.Phase() == PhaseEnded {
				return
			}
			if w.check(ctx) {
				return
			}
		}
	}
}

// check returns true once the watcher has observed a completed status and
// ended the session.
func (w *StatusWatcher) check(ctx context.Context) bool {
	status, err := w.records.Status(ctx, w.applicationID)
	if err != nil {
		if !errors.Is(err, record.ErrNotFound) {
			slog.Warn("application status poll failed",
				"application_id", w.applicationID, "err", err)
		}
		return false
	}
	if status != record.StatusCompleted {
		return false
	}

	slog.Info("application completed externally, ending session",
		"application_id", w.applicationID)
	w.machine.End(EndReasonExternal)
	return true
}
