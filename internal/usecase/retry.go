package usecase

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"VitalPulse/internal/domain/models"
)

const (
	retryBackoffMin = 20 * time.Millisecond
	retryBackoffMax = 400 * time.Millisecond
)

// withRetry runs fn up to attempts times with jittered exponential backoff.
// Context errors and caller mistakes are not retried.
func withRetry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !retryable(ctx, err) || attempt == attempts {
			break
		}
		select {
		case <-time.After(backoffWithJitter(retryBackoffMin, retryBackoffMax, attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, models.ErrUnknownMetric),
		errors.Is(err, models.ErrInvalidObservation),
		errors.Is(err, models.ErrInvalidThreshold),
		errors.Is(err, models.ErrBaselineNotFound):
		return false
	}
	return true
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}
