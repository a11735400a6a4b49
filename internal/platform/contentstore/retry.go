package contentstore

import (
	"context"
	"time"

	"github.com/yungbote/coursefront-backend/internal/platform/httpx"
)

type RetryPolicy struct {
	MaxAttempts int
	Step        time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Step:        500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

var sleep = httpx.Sleep

// Retry runs op until it succeeds, fails with a non-retryable error, or the
// policy's attempts are used up. Delay before attempt n+1 is n*Step, raised
// to the server's Retry-After when that is longer, and capped at MaxDelay.
func Retry[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var (
		out T
		err error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err = op(ctx)
		if err == nil || !IsRetryable(err) || attempt == attempts {
			return out, err
		}
		if serr := sleep(ctx, p.delay(attempt, err)); serr != nil {
			return out, err
		}
	}
	return out, err
}

func (p RetryPolicy) delay(attempt int, err error) time.Duration {
	d := httpx.LinearBackoff(attempt, p.Step, p.MaxDelay)
	if ra := retryAfterOf(err); ra > d {
		d = ra
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
