package database

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// backoff retries an operation, doubling the wait between attempts up to max.
type backoff struct {
	retries int
	base    time.Duration
	max     time.Duration
	jitter  float64 // extra random fraction of each delay, 0 disables
}

func defaultBackoff() backoff {
	return backoff{retries: 5, base: 100 * time.Millisecond, max: 30 * time.Second, jitter: 0.25}
}

// retry runs op until it succeeds, the retries are used up or ctx ends.
// The last failure is wrapped in the returned error.
func (b backoff) retry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = op(); err == nil {
			return nil
		}
		if attempt >= b.retries {
			return fmt.Errorf("giving up after %d attempts: %w", attempt+1, err)
		}

		wait := b.delay(attempt)
		slog.DebugContext(ctx, "Database operation failed, backing off",
			"event", "db_retry", "attempt", attempt+1, "wait_ms", wait.Milliseconds(), "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// delay is base * 2^attempt, capped at max, plus up to jitter of itself.
func (b backoff) delay(attempt int) time.Duration {
	d := b.base
	for i := 0; i < attempt && d < b.max; i++ {
		d *= 2
	}
	d = min(d, b.max)
	if b.jitter > 0 {
		d += time.Duration(rand.Float64() * b.jitter * float64(d))
	}
	return d
}
