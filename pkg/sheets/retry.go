package sheets

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// RetryPolicy retries an operation with exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Sleep waits for d or until ctx is done. Nil means a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
	// Retryable reports whether a failure is worth another attempt. Nil
	// retries every error.
	Retryable func(err error) bool
}

// DefaultRetryPolicy makes 3 attempts, waiting 1s then 2s, capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Second,
		Retryable:   IsTransient,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds or the attempts are used up. The final error
// is a *RemoteUnavailableError wrapping the last failure.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			remoteAttempts.WithLabelValues(op, "ok").Inc()
			return nil
		}
		remoteAttempts.WithLabelValues(op, "error").Inc()
		log.WithFields(log.Fields{
			"op":      op,
			"attempt": attempt,
		}).Warnf("Remote call failed: %v", err)

		if attempt == attempts {
			break
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return &RemoteUnavailableError{Op: op, Attempts: attempt, Err: err}
		}
		if serr := sleep(ctx, p.Delay(attempt)); serr != nil {
			return &RemoteUnavailableError{Op: op, Attempts: attempt, Err: serr}
		}
		remoteRetries.WithLabelValues(op).Inc()
	}
	return &RemoteUnavailableError{Op: op, Attempts: attempts, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
