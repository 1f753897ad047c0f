// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

package breaker

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend unavailable")

func fail() error    { return errBackend }
func succeed() error { return nil }

func TestOpensAfterMaxFailures(t *testing.T) {
	cb := New(Config{MaxFailures: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		if err := cb.Call(fail); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}

	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	// Open circuit fails fast without invoking the function.
	called := false
	err := cb.Call(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("guarded function invoked while open")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(Config{MaxFailures: 3, ResetTimeout: time.Minute})

	cb.Call(fail)
	cb.Call(fail)
	cb.Call(succeed)
	cb.Call(fail)
	cb.Call(fail)

	if got := cb.State(); got != StateClosed {
		t.Errorf("state = %v, want closed after interleaved success", got)
	}
}

func TestHalfOpenRecovery(t *testing.T) {
	cb := New(Config{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond, SuccessThreshold: 2})

	cb.Call(fail)
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	time.Sleep(20 * time.Millisecond)

	// First probe transitions to half-open; two successes close it.
	if err := cb.Call(succeed); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if got := cb.State(); got != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", got)
	}
	if err := cb.Call(succeed); err != nil {
		t.Fatalf("second probe failed: %v", err)
	}
	if got := cb.State(); got != StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond})

	cb.Call(fail)
	time.Sleep(20 * time.Millisecond)

	cb.Call(fail)
	if got := cb.State(); got != StateOpen {
		t.Errorf("state = %v, want open after half-open failure", got)
	}
}

func TestOnStateChange(t *testing.T) {
	cb := New(Config{MaxFailures: 1, ResetTimeout: time.Minute})

	changed := make(chan [2]State, 1)
	cb.OnStateChange(func(from, to State) {
		changed <- [2]State{from, to}
	})

	cb.Call(fail)

	select {
	case got := <-changed:
		if got[0] != StateClosed || got[1] != StateOpen {
			t.Errorf("transition = %v -> %v", got[0], got[1])
		}
	case <-time.After(time.Second):
		t.Error("state change callback not invoked")
	}
}

func TestDefaults(t *testing.T) {
	cb := New(Config{})

	if cb.config.MaxFailures != 5 {
		t.Errorf("MaxFailures = %d", cb.config.MaxFailures)
	}
	if cb.config.ResetTimeout != 60*time.Second {
		t.Errorf("ResetTimeout = %v", cb.config.ResetTimeout)
	}
	if cb.config.SuccessThreshold != 2 {
		t.Errorf("SuccessThreshold = %d", cb.config.SuccessThreshold)
	}
}
