// Package mock provides a test double for the speechio.Adapter interface.
//
// The mock records the order of capture/playback operations so tests can
// assert the strict listen/speak alternation the turn coordinator enforces.
// Speak completes synchronously by default; set HoldPlayback to take control
// of completion timing.
package mock

import (
	"context"
	"sync"

	"github.com/vikram-capsitech/hirevox/pkg/speechio"
)

// Adapter is a mock implementation of speechio.Adapter.
type Adapter struct {
	mu sync.Mutex

	// StartCaptureErr, if non-nil, is returned by StartCapture.
	StartCaptureErr error

	// SpeakErr, if non-nil, is returned by Speak (done is not invoked).
	SpeakErr error

	// PlaybackErr, if non-nil, is passed to the done callback.
	PlaybackErr error

	// HoldPlayback, when true, defers the done callback until
	// ReleasePlayback is called.
	HoldPlayback bool

	// Ops records operations in order: "start-capture", "stop-capture",
	// "speak:<text>", "cancel-playback".
	Ops []string

	pendingDone func(error)
}

var _ speechio.Adapter = (*Adapter)(nil)

// StartCapture implements speechio.Adapter.
func (a *Adapter) StartCapture(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Ops = append(a.Ops, "start-capture")
	return a.StartCaptureErr
}

// StopCapture implements speechio.Adapter.
func (a *Adapter) StopCapture() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Ops = append(a.Ops, "stop-capture")
}

// Speak implements speechio.Adapter.
func (a *Adapter) Speak(_ context.Context, text string, done func(error)) error {
	a.mu.Lock()
	a.Ops = append(a.Ops, "speak:"+text)
	if a.SpeakErr != nil {
		err := a.SpeakErr
		a.mu.Unlock()
		return err
	}
	if a.HoldPlayback {
		a.pendingDone = done
		a.mu.Unlock()
		return nil
	}
	err := a.PlaybackErr
	a.mu.Unlock()

	done(err)
	return nil
}

// CancelPlayback implements speechio.Adapter.
func (a *Adapter) CancelPlayback() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Ops = append(a.Ops, "cancel-playback")
	a.pendingDone = nil
}

// ReleasePlayback fires the deferred done callback from a held Speak call.
func (a *Adapter) ReleasePlayback() {
	a.mu.Lock()
	done := a.pendingDone
	a.pendingDone = nil
	err := a.PlaybackErr
	a.mu.Unlock()

	if done != nil {
		done(err)
	}
}

// OpLog returns a snapshot of recorded operations.
func (a *Adapter) OpLog() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.Ops))
	copy(out, a.Ops)
	return out
}
