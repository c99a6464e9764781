package ratelimit

import (
	"errors"
	"testing"
	"time"
)

type failingStore struct{}

func (failingStore) Get(string) (Window, bool, error) {
	return Window{}, false, errors.New("counter service down")
}
func (failingStore) Set(string, Window, time.Duration) error {
	return errors.New("counter service down")
}

func TestLimiter_AllowsUpToMax(t *testing.T) {
	l := New(NewMemoryStore())

	for i := 0; i < 5; i++ {
		res := l.Check("article:intro", 5, time.Minute)
		if !res.Allowed {
			t.Fatalf("request %d unexpectedly rejected", i+1)
		}
		if want := 5 - (i + 1); res.Remaining != want {
			t.Errorf("request %d: expected remaining %d, got %d", i+1, want, res.Remaining)
		}
	}

	res := l.Check("article:intro", 5, time.Minute)
	if res.Allowed {
		t.Error("sixth request within the window should be rejected")
	}
	if res.Remaining != 0 {
		t.Errorf("rejected request should report 0 remaining, got %d", res.Remaining)
	}
}

func TestLimiter_RejectionDoesNotExtendWindow(t *testing.T) {
	l := New(NewMemoryStore())

	first := l.Check("key", 1, time.Minute)
	rejected := l.Check("key", 1, time.Minute)

	if !first.Allowed || rejected.Allowed {
		t.Fatal("expected first allowed, second rejected")
	}
	if !rejected.ResetAt.Equal(first.ResetAt) {
		t.Error("rejected requests must not move the window reset time")
	}
}

func TestLimiter_WindowResets(t *testing.T) {
	l := New(NewMemoryStore())
	window := 30 * time.Millisecond

	if !l.Check("key", 1, window).Allowed {
		t.Fatal("first request should be allowed")
	}
	if l.Check("key", 1, window).Allowed {
		t.Fatal("second request in window should be rejected")
	}

	time.Sleep(2 * window)

	if !l.Check("key", 1, window).Allowed {
		t.Error("request after window expiry should start a fresh window")
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New(NewMemoryStore())

	if !l.Check("article:a", 1, time.Minute).Allowed {
		t.Fatal("first request for a should be allowed")
	}
	if l.Check("article:a", 1, time.Minute).Allowed {
		t.Fatal("a is exhausted")
	}
	if !l.Check("article:b", 1, time.Minute).Allowed {
		t.Error("exhausting a must not affect b")
	}
}

func TestLimiter_FailsOpenOnStoreErrors(t *testing.T) {
	l := New(failingStore{})

	for i := 0; i < 10; i++ {
		if !l.Check("key", 1, time.Minute).Allowed {
			t.Fatal("store failures must not reject requests")
		}
	}
}

func TestNew_NilStoreDefaultsToMemory(t *testing.T) {
	l := New(nil)

	if !l.Check("key", 1, time.Minute).Allowed {
		t.Fatal("first request should be allowed")
	}
	if l.Check("key", 1, time.Minute).Allowed {
		t.Error("nil-store limiter should still count requests")
	}
}
