// Package gateway exposes the interview session over a websocket. The
// candidate's client performs speech recognition and audio playback; the
// gateway translates its events (begin, permission result, recognized
// utterance, playback completion, end) into session state machine and turn
// coordinator calls, and pushes interviewer turns, phase changes, and errors
// back out.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/vikram-capsitech/hirevox/internal/turn"
	"github.com/vikram-capsitech/hirevox/pkg/speechio"
)

// Session is the per-connection interview stack the handler drives. The app
// layer assembles it from the state machine and turn coordinator.
type Session interface {
	// Begin runs the lifecycle from permission acquisition to active.
	Begin(ctx context.Context) error

	// HandleUtterance processes one recognized candidate utterance.
	HandleUtterance(ctx context.Context, text string, isRetry bool) error

	// End terminates the session explicitly. Idempotent.
	End()
}

// BeginRequest carries the interview identity and metadata from the begin
// event.
type BeginRequest struct {
	SessionID     string
	ApplicationID string
	Meta          turn.Metadata
}

// SessionFactory assembles the session stack for one connection, using client
// as its speech I/O adapter and media boundary.
type SessionFactory func(ctx context.Context, client *Client, req BeginRequest) (Session, error)

// Handler upgrades HTTP requests to websocket interview connections.
type Handler struct {
	factory SessionFactory

	// newPlayer builds the per-connection synthesis player; nil means
	// text-only speak frames. Per-connection because the player pins the
	// voice key used for the whole session.
	newPlayer func() *speechio.Player
}

// NewHandler creates a gateway handler. newPlayer may be nil.
func NewHandler(factory SessionFactory, newPlayer func() *speechio.Player) *Handler {
	return &Handler{factory: factory, newPlayer: newPlayer}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "session closed")

	var synth *speechio.Player
	if h.newPlayer != nil {
		synth = h.newPlayer()
	}
	client := NewClient(conn, synth)

	h.serve(r.Context(), conn, client)
}

// serve runs the read loop for one connection.
func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, client *Client) {
	var sess Session
	defer func() {
		if sess != nil {
			sess.End()
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
				return
			}
			slog.Info("websocket read ended", "err", err)
			return
		}

		var ev inboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("malformed gateway event", "err", err)
			client.SendError("malformed event")
			continue
		}

		switch ev.Type {
		case eventBegin:
			if sess != nil {
				client.SendError("session already begun")
				continue
			}
			sess, err = h.factory(ctx, client, BeginRequest{
				SessionID:     ev.SessionID,
				ApplicationID: ev.ApplicationID,
				Meta: turn.Metadata{
					JobTitle:         ev.JobTitle,
					JobDescription:   ev.JobDescription,
					CandidateName:    ev.CandidateName,
					CandidateProfile: ev.CandidateProfile,
				},
			})
			if err != nil {
				slog.Error("session setup failed", "session_id", ev.SessionID, "err", err)
				client.SendError("session setup failed")
				return
			}
			go h.begin(ctx, client, sess)

		case eventPermission:
			client.deliverPermission(ev.Granted, ev.Error)

		case eventUtterance:
			if sess == nil {
				continue
			}
			go h.utterance(ctx, sess, ev.Text)

		case eventPlaybackDone:
			var playErr error
			if ev.Error != "" {
				playErr = errors.New(ev.Error)
			}
			client.deliverPlaybackDone(playErr)

		case eventEnd:
			if sess != nil {
				sess.End()
			}

		default:
			slog.Debug("unknown gateway event", "type", ev.Type)
		}
	}
}

func (h *Handler) begin(ctx context.Context, client *Client, sess Session) {
	if err := sess.Begin(ctx); err != nil {
		slog.Warn("session begin failed", "err", err)
		client.SendError(err.Error())
	}
}

func (h *Handler) utterance(ctx context.Context, sess Session, text string) {
	err := sess.HandleUtterance(ctx, text, false)
	switch {
	case err == nil:
	case errors.Is(err, turn.ErrBusy):
		// Overlapping utterance during generation; dropped on purpose.
	default:
		// Retry exhaustion and playback failures already reach the client
		// through the coordinator's error callback.
		slog.Warn("utterance handling failed", "err", err)
	}
}
