package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeMedia is an in-test Media implementation.
type fakeMedia struct {
	mu       sync.Mutex
	err      error
	acquires int
	releases int
}

func (m *fakeMedia) Acquire(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquires++
	return m.err
}

func (m *fakeMedia) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
}

// newTestMachine builds a machine with instant countdown ticks.
func newTestMachine(t *testing.T, cfg MachineConfig) *Machine {
	t.Helper()
	if cfg.Media == nil {
		cfg.Media = &fakeMedia{}
	}
	if cfg.Duration == 0 {
		cfg.Duration = 30 * time.Minute
	}
	if cfg.Initialize == nil {
		cfg.Initialize = func(context.Context) error { return nil }
	}
	m, err := NewMachine(cfg)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	m.sleep = func(context.Context, time.Duration) error { return nil }
	return m
}

func TestMachineBegin_ReachesActive(t *testing.T) {
	t.Parallel()
	var phases []Phase
	var mu sync.Mutex
	var ticks []int
	var initialized int

	m := newTestMachine(t, MachineConfig{
		SessionID: "sess-1",
		OnPhase: func(p Phase) {
			mu.Lock()
			phases = append(phases, p)
			mu.Unlock()
		},
		OnCountdownTick: func(left int) { ticks = append(ticks, left) },
		Initialize: func(context.Context) error {
			initialized++
			return nil
		},
	})

	if err := m.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer m.End(EndReasonExplicit)

	if got := m.Phase(); got != PhaseActive {
		t.Fatalf("Phase() = %s, want active", got)
	}
	want := []Phase{PhaseRequesting, PhaseCountdown, PhaseStarting, PhaseActive}
	mu.Lock()
	defer mu.Unlock()
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phases[%d] = %s, want %s", i, phases[i], want[i])
		}
	}
	if len(ticks) != 5 || ticks[0] != 5 || ticks[4] != 1 {
		t.Errorf("countdown ticks = %v, want 5..1", ticks)
	}
	if initialized != 1 {
		t.Errorf("initialize ran %d times, want 1", initialized)
	}
}

func TestMachineBegin_PermissionDenialReturnsToIdle(t *testing.T) {
	t.Parallel()
	media := &fakeMedia{err: errors.New("NotAllowedError")}
	m := newTestMachine(t, MachineConfig{Media: media})

	err := m.Begin(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Begin error = %v, want ErrPermissionDenied", err)
	}
	if got := m.Phase(); got != PhaseIdle {
		t.Fatalf("Phase() after denial = %s, want idle", got)
	}

	// The candidate can retry explicitly once permissions are granted.
	media.mu.Lock()
	media.err = nil
	media.mu.Unlock()
	if err := m.Begin(context.Background()); err != nil {
		t.Fatalf("Begin retry: %v", err)
	}
	m.End(EndReasonExplicit)
}

func TestMachineBegin_RejectedWhenNotIdle(t *testing.T) {
	t.Parallel()
	m := newTestMachine(t, MachineConfig{})
	if err := m.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer m.End(EndReasonExplicit)

	if err := m.Begin(context.Background()); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("second Begin error = %v, want ErrNotIdle", err)
	}
}

func TestMachineEnd_IsTerminalAndFirstReasonWins(t *testing.T) {
	t.Parallel()
	media := &fakeMedia{}
	var reasons []EndReason
	var shutdowns int

	m := newTestMachine(t, MachineConfig{
		Media:    media,
		Shutdown: func() { shutdowns++ },
		OnEnd:    func(r EndReason) { reasons = append(reasons, r) },
	})
	if err := m.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	m.End(EndReasonAISignaled)
	m.End(EndReasonExplicit)
	m.End(EndReasonExternal)

	if got := m.Phase(); got != PhaseEnded {
		t.Fatalf("Phase() = %s, want ended", got)
	}
	if len(reasons) != 1 || reasons[0] != EndReasonAISignaled {
		t.Errorf("end reasons = %v, want single ai_signaled", reasons)
	}
	if got := m.EndReason(); got != EndReasonAISignaled {
		t.Errorf("EndReason() = %s, want ai_signaled", got)
	}
	if shutdowns != 1 {
		t.Errorf("shutdown ran %d times, want 1", shutdowns)
	}
	media.mu.Lock()
	defer media.mu.Unlock()
	if media.releases != 1 {
		t.Errorf("media released %d times, want 1", media.releases)
	}

	if err := m.Begin(context.Background()); !errors.Is(err, ErrNotIdle) {
		t.Errorf("Begin after end error = %v, want ErrNotIdle", err)
	}
}

func TestMachineBegin_InitializeFailureEndsSession(t *testing.T) {
	t.Parallel()
	initErr := errors.New("opening turn failed")
	m := newTestMachine(t, MachineConfig{
		Initialize: func(context.Context) error { return initErr },
	})

	if err := m.Begin(context.Background()); !errors.Is(err, initErr) {
		t.Fatalf("Begin error = %v, want wrapped initialize failure", err)
	}
	if got := m.Phase(); got != PhaseEnded {
		t.Fatalf("Phase() = %s, want ended", got)
	}
}

func TestMachineRemaining_FullDurationUntilActive(t *testing.T) {
	t.Parallel()
	m := newTestMachine(t, MachineConfig{Duration: 45 * time.Minute})
	if got := m.Remaining(); got != 45*time.Minute {
		t.Errorf("Remaining() = %v, want 45m", got)
	}
}

func TestNewMachine_Validation(t *testing.T) {
	t.Parallel()
	_, err := NewMachine(MachineConfig{})
	if err == nil {
		t.Fatal("expected error for missing media boundary")
	}
	_, err = NewMachine(MachineConfig{
		Media:      &fakeMedia{},
		Initialize: func(context.Context) error { return nil },
	})
	if err == nil {
		t.Fatal("expected error for non-positive duration")
	}
}
