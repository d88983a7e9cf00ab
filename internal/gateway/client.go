package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/vikram-capsitech/hirevox/internal/session"
	"github.com/vikram-capsitech/hirevox/pkg/speechio"
)

// permissionTimeout bounds how long a media permission prompt may stay open
// on the client before the attempt is treated as denied.
const permissionTimeout = 60 * time.Second

// wsConn is the frame transport a Client writes to. *websocket.Conn satisfies
// it; tests substitute a recorder.
type wsConn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
}

// Client is the server side of one candidate connection. It backs both the
// speech I/O adapter and the media permission boundary for the session built
// on top of it: outbound events steer the client's recognition and playback,
// and the handler's read loop feeds results back in through the deliver*
// methods.
type Client struct {
	conn wsConn

	// synth renders interviewer text as audio for the speak event. When nil
	// the client is expected to synthesize locally (text-only frames).
	synth *speechio.Player

	writeMu sync.Mutex

	mu          sync.Mutex
	pendingDone func(error)
	permCh      chan error
}

// NewClient wraps an accepted websocket connection. synth may be nil.
func NewClient(conn wsConn, synth *speechio.Player) *Client {
	return &Client{conn: conn, synth: synth}
}

var (
	_ speechio.Adapter = (*Client)(nil)
	_ session.Media    = (*Client)(nil)
)

// StartCapture implements speechio.Adapter.
func (c *Client) StartCapture(ctx context.Context) error {
	return c.send(ctx, outboundEvent{Type: eventCaptureStart})
}

// StopCapture implements speechio.Adapter.
func (c *Client) StopCapture() {
	if err := c.send(context.Background(), outboundEvent{Type: eventCaptureStop}); err != nil {
		slog.Warn("capture-stop send failed", "err", err)
	}
}

// Speak implements speechio.Adapter: synthesize text (when a synthesizer is
// configured), ship it to the client, and hold done until the client reports
// playback completion.
func (c *Client) Speak(ctx context.Context, text string, done func(err error)) error {
	var audio []byte
	if c.synth != nil {
		var err error
		audio, err = c.synth.Synthesize(ctx, text)
		if err != nil {
			return fmt.Errorf("gateway: synthesize: %w", err)
		}
	}

	c.mu.Lock()
	c.pendingDone = done
	c.mu.Unlock()

	if err := c.send(ctx, outboundEvent{Type: eventSpeak, Text: text, Audio: audio}); err != nil {
		c.mu.Lock()
		c.pendingDone = nil
		c.mu.Unlock()
		return err
	}
	return nil
}

// CancelPlayback implements speechio.Adapter. The pending done callback is
// suppressed; a later playback-done for the cancelled utterance is ignored.
func (c *Client) CancelPlayback() {
	c.mu.Lock()
	c.pendingDone = nil
	c.mu.Unlock()
	if err := c.send(context.Background(), outboundEvent{Type: eventPlaybackCancel}); err != nil {
		slog.Warn("playback-cancel send failed", "err", err)
	}
}

// Acquire implements session.Media: prompt the client for camera and
// microphone access and wait for its answer.
func (c *Client) Acquire(ctx context.Context) error {
	ch := make(chan error, 1)
	c.mu.Lock()
	c.permCh = ch
	c.mu.Unlock()

	if err := c.send(ctx, outboundEvent{Type: eventPermissionRequest}); err != nil {
		return err
	}

	timer := time.NewTimer(permissionTimeout)
	defer timer.Stop()
	select {
	case err := <-ch:
		return err
	case <-timer.C:
		return fmt.Errorf("gateway: permission prompt timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release implements session.Media. Device teardown happens on the client
// when the connection or session closes, so this is a no-op.
func (c *Client) Release() {}

// deliverPlaybackDone resolves the pending Speak completion. Events with no
// pending playback (cancelled or duplicate) are dropped.
func (c *Client) deliverPlaybackDone(playErr error) {
	c.mu.Lock()
	done := c.pendingDone
	c.pendingDone = nil
	c.mu.Unlock()
	if done != nil {
		done(playErr)
	}
}

// deliverPermission resolves a pending Acquire.
func (c *Client) deliverPermission(granted bool, detail string) {
	c.mu.Lock()
	ch := c.permCh
	c.permCh = nil
	c.mu.Unlock()
	if ch == nil {
		return
	}
	if granted {
		ch <- nil
		return
	}
	if detail == "" {
		detail = "denied by user"
	}
	ch <- fmt.Errorf("gateway: %s", detail)
}

// SendPhase pushes a session phase change to the client.
func (c *Client) SendPhase(p session.Phase) {
	if err := c.send(context.Background(), outboundEvent{Type: eventPhase, Phase: string(p)}); err != nil {
		slog.Warn("phase send failed", "phase", p, "err", err)
	}
}

// SendCountdown pushes a pre-start countdown tick.
func (c *Client) SendCountdown(ticksLeft int) {
	if err := c.send(context.Background(), outboundEvent{Type: eventCountdown, TicksLeft: ticksLeft}); err != nil {
		slog.Warn("countdown send failed", "err", err)
	}
}

// SendRemaining pushes the formatted remaining interview time.
func (c *Client) SendRemaining(formatted string) {
	if err := c.send(context.Background(), outboundEvent{Type: eventRemaining, Remaining: formatted}); err != nil {
		slog.Warn("remaining send failed", "err", err)
	}
}

// SendError surfaces a user-facing error to the client.
func (c *Client) SendError(message string) {
	if err := c.send(context.Background(), outboundEvent{Type: eventError, Message: message}); err != nil {
		slog.Warn("error send failed", "err", err)
	}
}

// SendEnded tells the client the session reached its terminal phase.
func (c *Client) SendEnded(reason session.EndReason) {
	if err := c.send(context.Background(), outboundEvent{Type: eventEnded, Reason: string(reason)}); err != nil {
		slog.Warn("ended send failed", "err", err)
	}
}

// send marshals event and writes it as one text frame. Writes are serialized;
// the websocket library rejects concurrent writers.
func (c *Client) send(ctx context.Context, event outboundEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("gateway: marshal %s event: %w", event.Type, err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}
