package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttle caps outbound provider calls across the whole process. A
// non-positive rps returns inv unchanged.
func Throttle(inv Invoker, rps float64, burst int) Invoker {
	if inv == nil || rps <= 0 {
		return inv
	}
	if burst < 1 {
		burst = 1
	}
	return &throttled{next: inv, lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

type throttled struct {
	next Invoker
	lim  *rate.Limiter
}

func (t *throttled) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := t.lim.Wait(ctx); err != nil {
		return nil, fmt.Errorf("llm: throttle wait: %w", err)
	}
	return t.next.Invoke(ctx, req)
}
