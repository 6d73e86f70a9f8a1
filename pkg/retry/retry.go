// Package retry provides bounded retry over an ordered list of candidates.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when every attempt failed.
var ErrExhausted = errors.New("retry budget exhausted")

// ErrNoCandidates is returned when FirstOf is called with an empty list.
var ErrNoCandidates = errors.New("no candidates")

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts is the number of passes over the candidates (at least 1).
	MaxAttempts int

	// Delay is the pause between passes.
	Delay time.Duration

	// OnFailure, if set, is called after every failed candidate.
	OnFailure func(attempt int, err error)
}

// DefaultPolicy returns three attempts two seconds apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
	}
}

// FirstOf tries the candidates in priority order and returns the first
// success. A failed pass over all candidates is followed by Delay before
// the next pass. After MaxAttempts passes the last error is returned
// wrapped in ErrExhausted. Cancelling ctx aborts the wait.
func FirstOf[C, T any](ctx context.Context, p Policy, candidates []C, fn func(context.Context, C) (T, error)) (T, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, ErrNoCandidates
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				return zero, fmt.Errorf("retry cancelled before attempt %d: %w", attempt, err)
			}

			result, err := fn(ctx, c)
			if err == nil {
				return result, nil
			}
			lastErr = err
			if p.OnFailure != nil {
				p.OnFailure(attempt, err)
			}
		}

		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxAttempts, lastErr)
}

// Do retries fn under the policy.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	_, err := FirstOf(ctx, p, []struct{}{{}}, func(ctx context.Context, _ struct{}) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
