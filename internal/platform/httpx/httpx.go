// Package httpx holds the retry policy shared by the outbound LLM clients.
package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPStatusCoder is implemented by provider errors that carry a status.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// RetryAfterer is implemented by provider errors that carry a server hint.
type RetryAfterer interface {
	RetryAfter() time.Duration
}

func IsRetryableHTTPStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports whether a failed upstream call is worth repeating.
// A cancelled caller context is never retried.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

// ParseRetryAfter reads a Retry-After header value in seconds.
func ParseRetryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	ra := strings.TrimSpace(h.Get("Retry-After"))
	if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// Policy is exponential backoff with +/-20% jitter. A server hint replaces
// the computed delay but is still capped at Max.
type Policy struct {
	MaxRetries int
	Base       time.Duration
	Max        time.Duration
	// Retryable defaults to IsRetryableError.
	Retryable func(error) bool
	// Sleep defaults to a context-aware timer; tests replace it.
	Sleep func(context.Context, time.Duration) error
	// OnRetry is called before each sleep.
	OnRetry func(attempt int, wait time.Duration, err error)
}

func DefaultPolicy(maxRetries int) Policy {
	return Policy{MaxRetries: max(0, maxRetries), Base: time.Second, Max: 10 * time.Second}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// retry budget is spent. The last error is returned unwrapped.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryableError
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	backoff := p.Base
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !retryable(err) {
			return err
		}
		wait := backoff
		var ra RetryAfterer
		if errors.As(err, &ra) && ra.RetryAfter() > 0 {
			wait = ra.RetryAfter()
		}
		if p.Max > 0 && wait > p.Max {
			wait = p.Max
		}
		wait = Jitter(wait)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		backoff *= 2
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Jitter spreads base by +/-20%.
func Jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := max(0, base.Seconds()-delta)
	high := base.Seconds() + delta
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}
