package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestAllowWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := New(Config{Now: clock.Now})
	user := uuid.New()
	rule := Rule{Limit: 2, Window: 60 * time.Second}

	for i := 0; i < 2; i++ {
		if d := l.Allow("generate", user, rule); !d.Allowed {
			t.Fatalf("call %d: want allowed", i+1)
		}
	}
	clock.Advance(10 * time.Second)
	d := l.Allow("generate", user, rule)
	if d.Allowed {
		t.Fatalf("third call: want rejected")
	}
	if d.RetryAfter != 50*time.Second {
		t.Fatalf("retry after: want=50s got=%s", d.RetryAfter)
	}

	clock.Advance(50 * time.Second)
	if d := l.Allow("generate", user, rule); !d.Allowed || d.Remaining != 1 {
		t.Fatalf("after window: want allowed with 1 remaining, got %+v", d)
	}
}

func TestScopesAndUsersAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	l := New(Config{Now: clock.Now})
	a, b := uuid.New(), uuid.New()
	rule := Rule{Limit: 1, Window: time.Minute}

	if !l.Allow("upload", a, rule).Allowed {
		t.Fatalf("upload a: want allowed")
	}
	if !l.Allow("generate", a, rule).Allowed {
		t.Fatalf("generate a: want allowed")
	}
	if !l.Allow("upload", b, rule).Allowed {
		t.Fatalf("upload b: want allowed")
	}
	if l.Allow("upload", a, rule).Allowed {
		t.Fatalf("upload a second time: want rejected")
	}
}

func TestSweepRemovesStaleAndBoundsMap(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	l := New(Config{Now: clock.Now, SweepEvery: 1000, MaxBuckets: 10})
	rule := Rule{Limit: 5, Window: time.Second}

	for i := 0; i < 10; i++ {
		l.Allow("s", uuid.New(), rule)
	}
	clock.Advance(2 * time.Second)
	// Exceeding the ceiling triggers a sweep that clears elapsed windows.
	l.Allow("s", uuid.New(), rule)
	l.Allow("s", uuid.New(), rule)
	if n := l.Len(); n != 2 {
		t.Fatalf("after stale sweep: want=2 got=%d", n)
	}

	for i := 0; i < 30; i++ {
		l.Allow("s", uuid.New(), rule)
	}
	if n := l.Len(); n > 11 {
		t.Fatalf("live buckets should stay near the ceiling, got %d", n)
	}
}

func TestZeroRuleAlwaysAllows(t *testing.T) {
	l := New(Config{})
	for i := 0; i < 5; i++ {
		if !l.Allow("s", uuid.New(), Rule{}).Allowed {
			t.Fatalf("zero rule: want allowed")
		}
	}
}

func TestKeyFormat(t *testing.T) {
	u := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	if got, want := Key("generate", u, time.Minute), "generate:00000000-0000-0000-0000-000000000001:60000"; got != want {
		t.Fatalf("Key: want=%q got=%q", want, got)
	}
}
