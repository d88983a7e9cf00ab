package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vikram-capsitech/hirevox/internal/gateway"
	"github.com/vikram-capsitech/hirevox/internal/session"
	"github.com/vikram-capsitech/hirevox/internal/turn"
	"github.com/vikram-capsitech/hirevox/internal/wire"
)

// defaultInterviewDuration applies when the config omits a duration.
const defaultInterviewDuration = 30 * time.Minute

// interviewSession bundles the state machine and turn coordinator for one
// websocket connection.
type interviewSession struct {
	machine *session.Machine
	coord   *turn.Coordinator
}

var _ gateway.Session = (*interviewSession)(nil)

func (s *interviewSession) Begin(ctx context.Context) error {
	return s.machine.Begin(ctx)
}

func (s *interviewSession) HandleUtterance(ctx context.Context, text string, isRetry bool) error {
	return s.coord.HandleUtterance(ctx, text, isRetry)
}

func (s *interviewSession) End() {
	s.machine.End(session.EndReasonExplicit)
}

// sessionFactory assembles the per-connection interview stack: turn store,
// generator, coordinator, state machine and, when an application ID is
// present, the external status watcher. The gateway client serves as both the
// speech I/O adapter and the media permission boundary.
func (a *App) sessionFactory(ctx context.Context, client *gateway.Client, req gateway.BeginRequest) (gateway.Session, error) {
	if req.SessionID == "" {
		return nil, fmt.Errorf("app: session id is required")
	}

	generator, err := turn.NewLLMGenerator(a.providers.LLM, req.Meta)
	if err != nil {
		return nil, fmt.Errorf("app: build generator: %w", err)
	}

	interview := a.cfg.Interview
	duration := interview.Duration.Std()
	if duration <= 0 {
		duration = defaultInterviewDuration
	}

	// The machine owns the deadline tracker the coordinator reads from, and
	// the coordinator supplies the machine's initialization and shutdown
	// hooks, so both are declared before either is constructed.
	var machine *session.Machine

	coord, err := turn.NewCoordinator(turn.CoordinatorConfig{
		SessionID:     req.SessionID,
		ApplicationID: req.ApplicationID,
		Store:         turn.NewStore(),
		Generator:     generator,
		Speech:        client,
		Records:       a.records,
		Remaining: func() time.Duration {
			return machine.Remaining()
		},
		OnEnd: func() {
			machine.End(session.EndReasonAISignaled)
		},
		OnError: func(err error) {
			client.SendError(err.Error())
		},
		MaxRetries: interview.MaxRetries,
		RetryDelay: interview.RetryDelay.Std(),
		Metrics:    a.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("app: build coordinator: %w", err)
	}

	// Outlives the connection's request context only until the session ends.
	watchCtx, stopWatch := context.WithCancel(context.Background())

	machine, err = session.NewMachine(session.MachineConfig{
		SessionID:      req.SessionID,
		Media:          client,
		Duration:       duration,
		CountdownTicks: interview.CountdownTicks,
		EndOnDeadline:  interview.EndOnDeadline,
		Initialize:     coord.Opening,
		Shutdown:       coord.Shutdown,
		OnPhase:        client.SendPhase,
		OnCountdownTick: func(ticksLeft int) {
			client.SendCountdown(ticksLeft)
		},
		OnTick: func(remaining time.Duration) {
			client.SendRemaining(wire.FormatRemaining(remaining))
		},
		OnEnd: func(reason session.EndReason) {
			stopWatch()
			client.SendEnded(reason)
			go a.finalize(req.SessionID)
		},
		Metrics: a.metrics,
	})
	if err != nil {
		stopWatch()
		return nil, fmt.Errorf("app: build session: %w", err)
	}

	if req.ApplicationID != "" {
		watcher := session.NewStatusWatcher(
			req.ApplicationID, a.records, machine, interview.StatusPollInterval.Std())
		go watcher.Run(watchCtx)
	}

	slog.Info("interview session assembled",
		"session_id", req.SessionID,
		"application_id", req.ApplicationID,
		"job_title", req.Meta.JobTitle)

	return &interviewSession{machine: machine, coord: coord}, nil
}
