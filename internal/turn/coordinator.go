package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/vikram-capsitech/hirevox/internal/observe"
	"github.com/vikram-capsitech/hirevox/internal/record"
	"github.com/vikram-capsitech/hirevox/internal/wire"
	"github.com/vikram-capsitech/hirevox/pkg/provider/llm"
	"github.com/vikram-capsitech/hirevox/pkg/provider/tts"
	"github.com/vikram-capsitech/hirevox/pkg/speechio"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// ErrBusy is returned when an utterance arrives while a cycle is already in
// flight. Callers treat it as "ignored", not as a failure.
var ErrBusy = errors.New("turn: cycle already in flight")

// ErrRetriesExhausted wraps the final generation error after the retry budget
// is spent.
var ErrRetriesExhausted = errors.New("turn: generation retries exhausted")

// CoordinatorConfig holds all dependencies for a Coordinator.
type CoordinatorConfig struct {
	SessionID     string
	ApplicationID string

	Store     *Store
	Generator Generator
	Speech    speechio.Adapter
	Records   record.Store

	// Remaining reports the interview time left; its value is embedded in
	// every candidate envelope. Must not be nil.
	Remaining func() time.Duration

	// OnEnd is invoked exactly once when the generator signals the end of
	// the interview. Optional.
	OnEnd func()

	// OnError surfaces user-facing errors (retry budget spent, playback
	// failures). Optional.
	OnError func(error)

	// MaxRetries is the transient-failure retry budget per cycle. Default 3.
	MaxRetries int

	// RetryDelay is the linear backoff unit: the n-th retry waits n times
	// this value. Default 1 s.
	RetryDelay time.Duration

	// Metrics records turn-cycle telemetry. Optional.
	Metrics *observe.Metrics
}

// Coordinator drives one listen → generate → speak cycle per candidate
// utterance. At most one cycle is in flight per session: utterances arriving
// mid-cycle are ignored, and capture is only resumed after playback completes
// so the session never listens while it is speaking.
//
// All exported methods are safe for concurrent use.
type Coordinator struct {
	cfg CoordinatorConfig

	// sleep is the backoff wait, injectable in tests.
	sleep func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	inFlight   bool
	retryCount int
	ended      bool
}

// NewCoordinator creates a Coordinator. Store, Generator, Speech, Records and
// Remaining are required.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Store == nil || cfg.Generator == nil || cfg.Speech == nil || cfg.Records == nil {
		return nil, fmt.Errorf("turn: coordinator: store, generator, speech and records are required")
	}
	if cfg.Remaining == nil {
		return nil, fmt.Errorf("turn: coordinator: Remaining func is required")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Coordinator{
		cfg: cfg,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}, nil
}

// Opening drives the one-time session initialization call: it asks the
// generator for the opening interviewer turn, speaks it, and starts capture.
// Used by the session state machine's starting → active transition.
func (c *Coordinator) Opening(ctx context.Context) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return nil
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	c.inFlight = true
	c.mu.Unlock()

	return c.cycle(ctx, "")
}

// HandleUtterance processes one recognized candidate utterance.
//
// Empty text is ignored. When a cycle is already in flight and isRetry is
// false the call returns ErrBusy without side effects. On the first
// invocation of a cycle the coordinator stops capture, cancels playback, and
// appends the candidate turn; retries reuse that turn and rebuild the request
// context fresh, so the envelope always carries the current remaining time.
func (c *Coordinator) HandleUtterance(ctx context.Context, text string, isRetry bool) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return nil
	}
	if c.inFlight && !isRetry {
		c.mu.Unlock()
		return ErrBusy
	}
	if !isRetry {
		c.inFlight = true
		c.mu.Unlock()

		// First invocation only: silence the session and log the utterance.
		c.cfg.Speech.StopCapture()
		c.cfg.Speech.CancelPlayback()
		envelope := wire.EncodeCandidate(text, c.cfg.Remaining())
		if _, err := c.cfg.Store.Append(RoleCandidate, envelope); err != nil {
			c.finishCycle()
			return err
		}
	} else {
		c.mu.Unlock()
	}

	return c.cycle(ctx, text)
}

// cycle performs one generation attempt for text ("" for the opening turn)
// and handles the success, retry, and exhaustion paths. The caller must have
// claimed the in-flight guard.
func (c *Coordinator) cycle(ctx context.Context, text string) error {
	ctx, span := observe.StartSpan(ctx, "turn.cycle")
	defer span.End()

	start := time.Now()
	payload, raw, err := c.cfg.Generator.NextTurn(ctx, c.buildContext(text))
	if m := c.cfg.Metrics; m != nil {
		m.AIDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.Bool("success", err == nil)))
	}
	if err != nil {
		return c.handleGenerationFailure(ctx, text, err)
	}

	c.mu.Lock()
	c.retryCount = 0
	c.mu.Unlock()

	if _, err := c.cfg.Store.Append(RoleInterviewer, raw); err != nil {
		c.finishCycle()
		return err
	}
	c.persist(ctx, raw, text)

	if payload.IsEnded {
		c.terminate(ctx)
		c.finishCycle()
		if m := c.cfg.Metrics; m != nil {
			m.TurnCycles.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ended")))
		}
		return nil
	}

	if err := c.speak(ctx, payload.AIResponse); err != nil {
		if m := c.cfg.Metrics; m != nil && tts.Exhausted(err) {
			m.PoolExhaustions.Add(ctx, 1)
		}
		// Playback could not start; resume capture so the candidate is not
		// left in a dead session.
		c.finishCycle()
		c.notifyError(err)
		c.resumeCapture(ctx)
		return err
	}
	// The generation call is done once playback starts; a new utterance
	// arriving mid-playback barges in (first-invocation side effects cancel
	// the playback) rather than being dropped.
	c.finishCycle()
	if m := c.cfg.Metrics; m != nil {
		m.TurnCycles.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))
	}
	return nil
}

// handleGenerationFailure applies the retry policy: linear backoff with the
// same utterance and isRetry=true, then surface the error and resume capture
// once the budget is spent.
func (c *Coordinator) handleGenerationFailure(ctx context.Context, text string, genErr error) error {
	c.mu.Lock()
	if c.retryCount < c.cfg.MaxRetries {
		c.retryCount++
		attempt := c.retryCount
		c.mu.Unlock()

		if m := c.cfg.Metrics; m != nil {
			m.GenerationRetries.Add(ctx, 1)
		}
		slog.Warn("turn generation failed, retrying",
			"session_id", c.cfg.SessionID, "attempt", attempt, "err", genErr)

		if err := c.sleep(ctx, c.cfg.RetryDelay*time.Duration(attempt)); err != nil {
			c.abandonCycle(text)
			return err
		}
		if text == "" {
			return c.cycle(ctx, "")
		}
		return c.HandleUtterance(ctx, text, true)
	}
	c.retryCount = 0
	c.mu.Unlock()

	if m := c.cfg.Metrics; m != nil {
		m.TurnCycles.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "retry_exhausted")))
	}
	c.abandonCycle(text)

	err := fmt.Errorf("%w: %w", ErrRetriesExhausted, genErr)
	c.notifyError(err)
	// Resume capture so the candidate can re-attempt verbally.
	c.resumeCapture(ctx)
	return err
}

// abandonCycle releases the in-flight guard and drops the unanswered
// candidate turn so the next verbal attempt can re-append it without breaking
// the alternation invariant.
func (c *Coordinator) abandonCycle(text string) {
	if text != "" {
		c.cfg.Store.DropLast(RoleCandidate)
	}
	c.finishCycle()
}

// speak plays reply and resumes capture only after playback completes.
func (c *Coordinator) speak(ctx context.Context, reply string) error {
	start := time.Now()
	return c.cfg.Speech.Speak(ctx, reply, func(playErr error) {
		if m := c.cfg.Metrics; m != nil {
			m.TTSDuration.Record(ctx, time.Since(start).Seconds(),
				metric.WithAttributes(attribute.Bool("success", playErr == nil)))
		}
		if playErr != nil {
			slog.Warn("playback failed", "session_id", c.cfg.SessionID, "err", playErr)
			c.notifyError(playErr)
		}
		c.resumeCapture(ctx)
	})
}

// persist writes the conversation record for a successful generation.
// Best-effort: persistence failures are logged, not fatal to the cycle.
func (c *Coordinator) persist(ctx context.Context, raw, candidateText string) {
	err := c.cfg.Records.CreateConversation(ctx, record.Record{
		SessionID:           c.cfg.SessionID,
		InterviewerResponse: raw,
		CandidateResponse:   candidateText,
	})
	if err != nil {
		observe.Logger(ctx).Warn("conversation record write failed",
			"session_id", c.cfg.SessionID, "err", err)
	}
}

// terminate handles the AI-signaled end of the interview: cancel speech I/O,
// mark the application completed, and notify the session machine. Runs its
// side effects exactly once even if further utterances race in.
func (c *Coordinator) terminate(ctx context.Context) {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.ended = true
	c.mu.Unlock()

	c.cfg.Speech.StopCapture()
	c.cfg.Speech.CancelPlayback()

	if c.cfg.ApplicationID != "" {
		if err := c.cfg.Records.MarkCompleted(ctx, c.cfg.ApplicationID); err != nil {
			slog.Warn("mark application completed failed",
				"application_id", c.cfg.ApplicationID, "err", err)
		}
	}
	if c.cfg.OnEnd != nil {
		c.cfg.OnEnd()
	}
}

// Shutdown ends the coordinator from the outside (explicit end action or an
// externally observed completed status). It cancels any active capture and
// playback; no further utterances are processed. Idempotent. Unlike the
// AI-signaled path it does not touch the application status — the caller owns
// that decision.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.ended = true
	c.mu.Unlock()

	c.cfg.Speech.StopCapture()
	c.cfg.Speech.CancelPlayback()
}

// Ended reports whether the coordinator has processed its final turn.
func (c *Coordinator) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

// buildContext renders the turn log as alternating chat messages and appends
// a freshly encoded envelope for text. The trailing candidate turn (appended
// on the first invocation of this cycle) is excluded so the envelope carries
// the remaining time of this attempt, not a frozen snapshot.
func (c *Coordinator) buildContext(text string) []llm.Message {
	turns := c.cfg.Store.Turns()
	if n := len(turns); n > 0 && turns[n-1].Role == RoleCandidate {
		turns = turns[:n-1]
	}

	msgs := make([]llm.Message, 0, len(turns)+1)
	for _, t := range turns {
		role := "user"
		if t.Role == RoleInterviewer {
			role = "assistant"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	msgs = append(msgs, llm.Message{
		Role:    "user",
		Content: wire.EncodeCandidate(text, c.cfg.Remaining()),
	})
	return msgs
}

// resumeCapture restarts listening unless the session has ended.
func (c *Coordinator) resumeCapture(ctx context.Context) {
	c.mu.Lock()
	ended := c.ended
	c.mu.Unlock()
	if ended {
		return
	}
	if err := c.cfg.Speech.StartCapture(ctx); err != nil {
		slog.Warn("resume capture failed", "session_id", c.cfg.SessionID, "err", err)
	}
}

// finishCycle releases the single-flight guard.
func (c *Coordinator) finishCycle() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

// notifyError surfaces a user-facing error through the configured callback.
func (c *Coordinator) notifyError(err error) {
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
	}
}
