package resilience

import (
	"errors"
	"testing"
	"time"
)

type transition struct {
	from CircuitState
	to   CircuitState
}

func TestCircuitBreaker_OpensThenRecovers(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	var seen []transition
	b := NewCircuitBreaker("test_feed", CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      5 * time.Second,
		HalfOpenMaxReq:   1,
	},
		WithClock(func() time.Time { return now }),
		WithTransitionHook(func(_ string, from, to CircuitState) {
			seen = append(seen, transition{from: from, to: to})
		}),
	)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("unexpected state after first failure: got=%s want=%s", state, CircuitStateClosed)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("unexpected state after threshold: got=%s want=%s", state, CircuitStateOpen)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open trial to pass, got %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected second half-open trial to be refused, got %v", err)
	}

	b.Record(false)
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("unexpected state after trial success: got=%s want=%s", state, CircuitStateClosed)
	}

	want := []transition{
		{CircuitStateClosed, CircuitStateOpen},
		{CircuitStateOpen, CircuitStateHalfOpen},
		{CircuitStateHalfOpen, CircuitStateClosed},
	}
	if len(seen) != len(want) {
		t.Fatalf("unexpected transitions: got=%v want=%v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("unexpected transition %d: got=%v want=%v", i, seen[i], want[i])
		}
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b := NewCircuitBreaker("test_queue", CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Second},
		WithClock(func() time.Time { return now }),
	)

	b.Record(true)
	now = now.Add(2 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open trial to pass, got %v", err)
	}
	b.Record(true)

	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("unexpected state after trial failure: got=%s want=%s", state, CircuitStateOpen)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected reopened breaker to refuse, got %v", err)
	}
}

func TestCircuitBreaker_DisabledAdmitsEverything(t *testing.T) {
	t.Parallel()

	b := NewCircuitBreaker("test_disabled", CircuitBreakerConfig{Enabled: false, FailureThreshold: 1})
	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("disabled breaker refused: %v", err)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("unexpected state: got=%s want=%s", state, CircuitStateClosed)
	}
}

func TestCircuitBreakerConfig_NormalizeAndValidate(t *testing.T) {
	t.Parallel()

	got := CircuitBreakerConfig{Enabled: true}.Normalize()
	if got != DefaultCircuitBreakerConfig() {
		t.Fatalf("unexpected normalized config: got=%+v want=%+v", got, DefaultCircuitBreakerConfig())
	}
	if err := got.Validate("FEED"); err != nil {
		t.Fatalf("normalized config invalid: %v", err)
	}
	if err := (CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Second}).Validate("FEED"); err == nil {
		t.Fatalf("expected error for zero half-open limit")
	}
}
