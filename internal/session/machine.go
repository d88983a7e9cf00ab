// Package session implements the interview session lifecycle: the phase
// state machine from media permission acquisition through countdown and the
// active interview to the terminal ended phase, plus the deadline tracker
// and the external-status watcher.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vikram-capsitech/hirevox/internal/observe"
)

// Phase is the lifecycle state of an interview session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRequesting Phase = "requesting"
	PhaseCountdown  Phase = "countdown"
	PhaseStarting   Phase = "starting"
	PhaseActive     Phase = "active"
	PhaseEnded      Phase = "ended"
)

// EndReason records what moved a session to the ended phase.
type EndReason string

const (
	// EndReasonExplicit is the candidate or operator ending the session.
	EndReasonExplicit EndReason = "explicit"
	// EndReasonAISignaled is the generator returning isEnded = true.
	EndReasonAISignaled EndReason = "ai_signaled"
	// EndReasonExternal is an externally observed completed status.
	EndReasonExternal EndReason = "external"
	// EndReasonDeadline is the interview clock running out, only when
	// deadline termination is enabled.
	EndReasonDeadline EndReason = "deadline"
)

// ErrPermissionDenied wraps media acquisition failures. The session returns
// to idle; the candidate must retry explicitly.
var ErrPermissionDenied = errors.New("session: media permission denied")

// ErrNotIdle is returned when Begin is called on a session that already left
// the idle phase.
var ErrNotIdle = errors.New("session: already begun")

// Media is the camera and microphone permission boundary. Acquisition
// happens on the candidate's client; the gateway relays the outcome.
type Media interface {
	// Acquire requests camera and microphone access. An error means denial.
	Acquire(ctx context.Context) error
	// Release gives the devices back. Safe to call when nothing is held.
	Release()
}

// MachineConfig holds the dependencies and tuning of a session Machine.
type MachineConfig struct {
	SessionID string

	Media Media

	// Duration is the scheduled interview length.
	Duration time.Duration

	// CountdownTicks is the number of pre-start countdown ticks. Default 5.
	CountdownTicks int

	// TickInterval is the countdown and deadline tick period. Default 1 s.
	TickInterval time.Duration

	// EndOnDeadline, when true, ends the session when the interview clock
	// reaches zero. When false the deadline only informs the envelope and
	// termination stays with the generator or an explicit end.
	EndOnDeadline bool

	// Initialize runs the one-time session initialization (the opening
	// interviewer turn). Executed at most once per session.
	Initialize func(ctx context.Context) error

	// Shutdown cancels in-flight turn work when the session ends. Optional.
	Shutdown func()

	// OnPhase observes phase transitions. Optional.
	OnPhase func(Phase)

	// OnCountdownTick observes countdown progress with the ticks left
	// after the current one. Optional.
	OnCountdownTick func(ticksLeft int)

	// OnTick observes the recomputed remaining time every tick interval
	// while the session is active. Optional.
	OnTick func(remaining time.Duration)

	// OnEnd observes the terminal transition with its reason. Optional.
	OnEnd func(EndReason)

	Metrics *observe.Metrics
}

// Machine is the session lifecycle state machine. Transitions are driven by
// Begin (idle through active) and End (any phase to ended); the terminal
// ended phase is final.
//
// Safe for concurrent use.
type Machine struct {
	cfg MachineConfig

	// sleep waits out one countdown tick, injectable in tests.
	sleep func(ctx context.Context, d time.Duration) error

	mu             sync.Mutex
	phase          Phase
	hasInitialized bool
	endReason      EndReason
	tracker        *Tracker
}

// NewMachine creates a session machine in the idle phase.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.Media == nil {
		return nil, fmt.Errorf("session: machine: media boundary is required")
	}
	if cfg.Initialize == nil {
		return nil, fmt.Errorf("session: machine: initialize func is required")
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("session: machine: duration must be positive, got %v", cfg.Duration)
	}
	if cfg.CountdownTicks <= 0 {
		cfg.CountdownTicks = 5
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Machine{
		cfg:   cfg,
		phase: PhaseIdle,
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

// Phase returns the current lifecycle phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Remaining reports the interview time left. Before activation it is the
// full configured duration.
func (m *Machine) Remaining() time.Duration {
	m.mu.Lock()
	tracker := m.tracker
	m.mu.Unlock()
	if tracker == nil {
		return m.cfg.Duration
	}
	return tracker.Remaining()
}

// Begin drives the session from idle to active: acquire media, run the
// countdown, perform the one-time initialization, then activate the deadline
// tracker. On permission denial the session returns to idle and
// ErrPermissionDenied is wrapped in the returned error, so the candidate can
// retry with another Begin.
func (m *Machine) Begin(ctx context.Context) error {
	if err := m.transition(PhaseIdle, PhaseRequesting); err != nil {
		return err
	}

	if err := m.cfg.Media.Acquire(ctx); err != nil {
		m.setPhase(PhaseIdle)
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	m.setPhase(PhaseCountdown)
	for i := m.cfg.CountdownTicks; i > 0; i-- {
		if m.cfg.OnCountdownTick != nil {
			m.cfg.OnCountdownTick(i)
		}
		if err := m.sleep(ctx, m.cfg.TickInterval); err != nil {
			m.End(EndReasonExplicit)
			return fmt.Errorf("session: countdown aborted: %w", err)
		}
		if m.Phase() == PhaseEnded {
			return fmt.Errorf("session: ended during countdown")
		}
	}

	m.setPhase(PhaseStarting)
	if err := m.initialize(ctx); err != nil {
		m.End(EndReasonExplicit)
		return fmt.Errorf("session: initialize: %w", err)
	}

	return m.activate(ctx)
}

// initialize runs the one-time initialization, guarded so it executes at
// most once per session.
func (m *Machine) initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.hasInitialized {
		m.mu.Unlock()
		return nil
	}
	m.hasInitialized = true
	m.mu.Unlock()

	return m.cfg.Initialize(ctx)
}

// activate enters the active phase and starts the deadline tracker.
func (m *Machine) activate(ctx context.Context) error {
	m.mu.Lock()
	if m.phase == PhaseEnded {
		m.mu.Unlock()
		return fmt.Errorf("session: ended before activation")
	}
	m.phase = PhaseActive
	m.tracker = NewTracker(m.cfg.Duration, m.cfg.TickInterval)
	m.tracker.OnTick = m.cfg.OnTick
	if m.cfg.EndOnDeadline {
		m.tracker.OnExpire = func() { m.End(EndReasonDeadline) }
	}
	tracker := m.tracker
	m.mu.Unlock()

	m.notifyPhase(PhaseActive)
	tracker.Start(ctx)
	if met := m.cfg.Metrics; met != nil {
		met.ActiveSessions.Add(ctx, 1)
	}
	slog.Info("session active",
		"session_id", m.cfg.SessionID, "duration", m.cfg.Duration)
	return nil
}

// End moves the session to the terminal ended phase. The first call wins;
// later calls (any reason) are no-ops. External completion is authoritative
// and overrides in-flight work the same way.
func (m *Machine) End(reason EndReason) {
	m.mu.Lock()
	if m.phase == PhaseEnded {
		m.mu.Unlock()
		return
	}
	wasActive := m.phase == PhaseActive
	m.phase = PhaseEnded
	m.endReason = reason
	tracker := m.tracker
	m.mu.Unlock()

	if tracker != nil {
		tracker.Stop()
	}
	if m.cfg.Shutdown != nil {
		m.cfg.Shutdown()
	}
	m.cfg.Media.Release()
	if wasActive {
		if met := m.cfg.Metrics; met != nil {
			met.ActiveSessions.Add(context.Background(), -1)
		}
	}

	m.notifyPhase(PhaseEnded)
	if m.cfg.OnEnd != nil {
		m.cfg.OnEnd(reason)
	}
	slog.Info("session ended", "session_id", m.cfg.SessionID, "reason", reason)
}

// EndReason returns the reason the session ended, or "" while it has not.
func (m *Machine) EndReason() EndReason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endReason
}

// transition moves from exactly the given phase to the next one.
func (m *Machine) transition(from, to Phase) error {
	m.mu.Lock()
	if m.phase != from {
		current := m.phase
		m.mu.Unlock()
		return fmt.Errorf("%w: phase is %s", ErrNotIdle, current)
	}
	m.phase = to
	m.mu.Unlock()
	m.notifyPhase(to)
	return nil
}

func (m *Machine) setPhase(p Phase) {
	m.mu.Lock()
	if m.phase == PhaseEnded {
		m.mu.Unlock()
		return
	}
	m.phase = p
	m.mu.Unlock()
	m.notifyPhase(p)
}

func (m *Machine) notifyPhase(p Phase) {
	if m.cfg.OnPhase != nil {
		m.cfg.OnPhase(p)
	}
}
