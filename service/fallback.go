package service

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrAllAttemptsFailed = errors.New("all attempts failed")

// Attempt is one backend in a fallback chain.
type Attempt[T any] func(ctx context.Context) (T, error)

// FirstSuccess tries each attempt in order, each bounded by timeout, and returns the first
// result that doesn't error. When every attempt fails the joined errors are wrapped in
// ErrAllAttemptsFailed. A cancelled parent context stops the chain early.
func FirstSuccess[T any](ctx context.Context, timeout time.Duration, attempts []Attempt[T]) (T, error) {
	var zero T
	var errs []error
	for i, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		v, err := runAttempt(ctx, timeout, attempt)
		if err == nil {
			return v, nil
		}
		errs = append(errs, fmt.Errorf("attempt %d: %w", i, err))
	}
	return zero, fmt.Errorf("%w: %w", ErrAllAttemptsFailed, errors.Join(errs...))
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, attempt Attempt[T]) (T, error) {
	if timeout <= 0 {
		return attempt(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return attempt(actx)
}
