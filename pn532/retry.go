// go-isodep
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-isodep.
//
// go-isodep is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-isodep is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-isodep; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package pn532

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryConfig configures exponential backoff for PN532 commands
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first
	MaxAttempts int
	// InitialBackoff is the delay after the first failure
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between attempts
	MaxBackoff time.Duration
	// BackoffMultiplier grows the delay after each failure
	BackoffMultiplier float64
	// Jitter is the random fraction (0.0-1.0) added to or taken from each delay
	Jitter float64
	// RetryTimeout bounds all attempts together; zero means no bound
	RetryTimeout time.Duration
}

// DefaultRetryConfig returns the retry settings used for device connections
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryTimeout:      10 * time.Second,
	}
}

// RetryWithConfig calls fn until it succeeds, returns a non-retryable error,
// or the attempts run out.
func RetryWithConfig(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.RetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RetryTimeout)
		defer cancel()
	}

	attempts := max(config.MaxAttempts, 1)
	backoff := config.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt-1, lastErr)
			}
			return fmt.Errorf("retry aborted: %w", err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		debugf("attempt %d/%d failed: %v", attempt, attempts, lastErr)

		timer := time.NewTimer(applyJitter(backoff, config.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, lastErr)
		case <-timer.C:
		}

		backoff = nextBackoff(backoff, config)
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", attempts, lastErr)
}

func nextBackoff(current time.Duration, config *RetryConfig) time.Duration {
	multiplier := config.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	next := time.Duration(float64(current) * multiplier)
	if config.MaxBackoff > 0 && next > config.MaxBackoff {
		return config.MaxBackoff
	}
	return next
}

func applyJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || d <= 0 {
		return d
	}
	jitter = min(jitter, 1)
	delta := (rand.Float64()*2 - 1) * jitter * float64(d) //nolint:gosec // backoff spread only
	return d + time.Duration(delta)
}
