package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// frameRecorder captures outbound frames in place of a live websocket.
type frameRecorder struct {
	mu     sync.Mutex
	frames []outboundEvent
	err    error
}

func (r *frameRecorder) Write(_ context.Context, _ websocket.MessageType, p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	var ev outboundEvent
	if err := json.Unmarshal(p, &ev); err != nil {
		return err
	}
	r.frames = append(r.frames, ev)
	return nil
}

func (r *frameRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.frames))
	for i, f := range r.frames {
		out[i] = f.Type
	}
	return out
}

func (r *frameRecorder) frame(i int) outboundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[i]
}

func TestClientSpeakAndPlaybackDone(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	client := NewClient(rec, nil)

	doneCh := make(chan error, 1)
	if err := client.Speak(context.Background(), "hello there", func(err error) { doneCh <- err }); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	got := rec.frame(0)
	if got.Type != eventSpeak || got.Text != "hello there" {
		t.Fatalf("speak frame = %+v", got)
	}
	if len(got.Audio) != 0 {
		t.Fatalf("expected text-only frame without a synthesizer, got %d audio bytes", len(got.Audio))
	}

	select {
	case <-doneCh:
		t.Fatal("done fired before playback completed")
	default:
	}

	client.deliverPlaybackDone(nil)
	select {
	case err := <-doneCh:
		if err != nil {
			t.Fatalf("done error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("done never fired")
	}
}

func TestClientPlaybackFailurePropagates(t *testing.T) {
	t.Parallel()

	client := NewClient(&frameRecorder{}, nil)

	doneCh := make(chan error, 1)
	if err := client.Speak(context.Background(), "q", func(err error) { doneCh <- err }); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	client.deliverPlaybackDone(errors.New("decoder stalled"))
	select {
	case err := <-doneCh:
		if err == nil || !strings.Contains(err.Error(), "decoder stalled") {
			t.Fatalf("done error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("done never fired")
	}
}

func TestClientCancelSuppressesPlaybackDone(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	client := NewClient(rec, nil)

	fired := make(chan struct{}, 1)
	if err := client.Speak(context.Background(), "q", func(error) { fired <- struct{}{} }); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	client.CancelPlayback()
	client.deliverPlaybackDone(nil)

	select {
	case <-fired:
		t.Fatal("done fired for a cancelled playback")
	case <-time.After(50 * time.Millisecond):
	}

	want := []string{eventSpeak, eventPlaybackCancel}
	if got := rec.types(); len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("frames = %v, want %v", got, want)
	}
}

func TestClientSpeakSendFailureClearsPending(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{err: errors.New("broken pipe")}
	client := NewClient(rec, nil)

	fired := make(chan struct{}, 1)
	if err := client.Speak(context.Background(), "q", func(error) { fired <- struct{}{} }); err == nil {
		t.Fatal("expected send failure")
	}

	client.deliverPlaybackDone(nil)
	select {
	case <-fired:
		t.Fatal("done fired after failed send")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClientCaptureFrames(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	client := NewClient(rec, nil)

	if err := client.StartCapture(context.Background()); err != nil {
		t.Fatalf("StartCapture() error = %v", err)
	}
	client.StopCapture()

	want := []string{eventCaptureStart, eventCaptureStop}
	if got := rec.types(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("frames = %v, want %v", got, want)
	}
}

func TestClientAcquire(t *testing.T) {
	t.Parallel()

	t.Run("granted", func(t *testing.T) {
		t.Parallel()
		rec := &frameRecorder{}
		client := NewClient(rec, nil)

		go func() {
			time.Sleep(10 * time.Millisecond)
			client.deliverPermission(true, "")
		}()
		if err := client.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if got := rec.types(); len(got) != 1 || got[0] != eventPermissionRequest {
			t.Fatalf("frames = %v", got)
		}
	})

	t.Run("denied with detail", func(t *testing.T) {
		t.Parallel()
		client := NewClient(&frameRecorder{}, nil)

		go func() {
			time.Sleep(10 * time.Millisecond)
			client.deliverPermission(false, "camera blocked by browser")
		}()
		err := client.Acquire(context.Background())
		if err == nil || !strings.Contains(err.Error(), "camera blocked") {
			t.Fatalf("Acquire() error = %v", err)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		t.Parallel()
		client := NewClient(&frameRecorder{}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		if err := client.Acquire(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("Acquire() error = %v, want context.Canceled", err)
		}
	})
}

func TestClientPushHelpers(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	client := NewClient(rec, nil)

	client.SendCountdown(3)
	client.SendRemaining("12:34")
	client.SendError("something broke")

	if got := rec.frame(0); got.Type != eventCountdown || got.TicksLeft != 3 {
		t.Fatalf("countdown frame = %+v", got)
	}
	if got := rec.frame(1); got.Type != eventRemaining || got.Remaining != "12:34" {
		t.Fatalf("remaining frame = %+v", got)
	}
	if got := rec.frame(2); got.Type != eventError || got.Message != "something broke" {
		t.Fatalf("error frame = %+v", got)
	}
}
