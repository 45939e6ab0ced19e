package retry

import (
	"context"
	"fmt"
	"time"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/logger"
)

// Backoff returns the wait before the next attempt; attempt starts at 1.
type Backoff func(attempt int) time.Duration

// Linear waits base*attempt.
func Linear(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// Exponential doubles the wait on every attempt.
func Exponential(initial time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return initial << uint(attempt-1)
	}
}

type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	// Sleep defaults to a context-aware timer; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op until it succeeds, returns a non-retryable error, or the attempt
// budget is exhausted. It returns the number of attempts made.
func Do(ctx context.Context, p Policy, log logger.Logger, name string, op func(ctx context.Context, attempt int) error) (int, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if !apperrors.IsRetryable(err) || attempt == p.MaxAttempts {
			return attempt, fmt.Errorf("%s failed after %d attempt(s): %w", name, attempt, err)
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if log != nil {
			log.Warn(name+" failed, retrying", map[string]interface{}{
				"error":       err.Error(),
				"attempt":     attempt,
				"maxAttempts": p.MaxAttempts,
				"nextRetryIn": delay.String(),
			})
		}
		if serr := sleep(ctx, delay); serr != nil {
			return attempt, fmt.Errorf("%s aborted after %d attempt(s): %w", name, attempt, err)
		}
	}
	return p.MaxAttempts, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
