// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package retry implements the exponential-backoff retry policy shared by
// the store and broker: a bounded number of attempts, base delay grown by a
// multiplier with a cap and a little jitter, and a predicate deciding which
// errors are transient.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultMultiplier = 2.0
)

// Config controls the retry policy. The zero value retries transient
// errors three times with a 1s base delay doubled per attempt.
type Config struct {
	// MaxRetries is the number of retries after the first attempt, so a
	// call makes at most MaxRetries+1 attempts.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the grown delay.
	MaxDelay time.Duration

	// Multiplier grows the delay after each retry.
	Multiplier float64

	// Retryable decides whether an error is transient. A nil predicate
	// retries every error.
	Retryable func(error) bool
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.Multiplier <= 1 {
		c.Multiplier = DefaultMultiplier
	}
	return c
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// retry budget is exhausted. It returns the number of attempts made and
// the last error, nil on success. Context cancellation aborts the backoff
// sleep and surfaces ctx.Err.
func Do(ctx context.Context, cfg Config, fn func(context.Context) error) (int, error) {
	cfg = cfg.withDefaults()

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return attempt, err
		}
		if attempt == cfg.MaxRetries+1 {
			break
		}

		// 10% jitter keeps concurrent retriers from thundering in step.
		sleep := delay + time.Duration(rand.Float64()*float64(delay)*0.1)
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return attempt, ctx.Err()
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return cfg.MaxRetries + 1, lastErr
}
