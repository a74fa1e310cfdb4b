package httpx

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type statusErr struct {
	code int
	wait time.Duration
}

func (e statusErr) Error() string             { return http.StatusText(e.code) }
func (e statusErr) HTTPStatusCode() int       { return e.code }
func (e statusErr) RetryAfter() time.Duration { return e.wait }

func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestPolicyRetriesUntilSuccess(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxRetries: 3, Base: time.Second, Max: 10 * time.Second, Sleep: noSleep(&waits)}
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return statusErr{code: http.StatusBadGateway}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 || len(waits) != 2 {
		t.Fatalf("calls=%d waits=%d", calls, len(waits))
	}
	// second wait doubles the base, within jitter
	if waits[1] < 1600*time.Millisecond || waits[1] > 2400*time.Millisecond {
		t.Fatalf("backoff: got=%v", waits[1])
	}
}

func TestPolicyStopsOnPermanentError(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxRetries: 3, Base: time.Second, Sleep: noSleep(&waits)}
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return statusErr{code: http.StatusBadRequest}
	})
	var se statusErr
	if !errors.As(err, &se) || se.code != http.StatusBadRequest {
		t.Fatalf("err: got=%v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestPolicyHonorsServerHintAndCap(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxRetries: 1, Base: time.Second, Max: 5 * time.Second, Sleep: noSleep(&waits)}
	err := p.Do(context.Background(), func(context.Context) error {
		return statusErr{code: http.StatusTooManyRequests, wait: time.Minute}
	})
	if err == nil {
		t.Fatalf("want error after retries are spent")
	}
	if len(waits) != 1 || waits[0] < 4*time.Second || waits[0] > 6*time.Second {
		t.Fatalf("waits: got=%v", waits)
	}
}

func TestPolicyRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := DefaultPolicy(3).Do(ctx, func(context.Context) error { calls++; return nil })
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Fatalf("want canceled before first call: err=%v calls=%d", err, calls)
	}
}

func TestParseRetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "7")
	if got := ParseRetryAfter(h); got != 7*time.Second {
		t.Fatalf("ParseRetryAfter: want=7s got=%v", got)
	}
	h.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")
	if got := ParseRetryAfter(h); got != 0 {
		t.Fatalf("ParseRetryAfter date: want=0 got=%v", got)
	}
}
