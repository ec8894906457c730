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

// Package retry holds the retry loops shared by the session and the transports.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrExhausted is returned when every attempt asked for a retry.
	ErrExhausted = errors.New("retries exhausted")
	// ErrTimeout is returned by Poll when the deadline passes.
	ErrTimeout = errors.New("timed out waiting for condition")
)

// Operation is one attempt. It returns the result, whether the attempt should
// be repeated, and an error that stops retrying immediately.
type Operation[T any] func(attempt int) (T, bool, error)

// Config configures Do.
type Config struct {
	// OnRetry runs before each repeated attempt; an error aborts the loop.
	OnRetry     func(attempt int) error
	Description string
	MaxRetries  int
	RetryDelay  time.Duration
}

// Do runs op until it succeeds, fails permanently or MaxRetries repeats have
// been spent.
func Do[T any](ctx context.Context, config Config, op Operation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := beforeRetry(ctx, config, attempt); err != nil {
				return zero, err
			}
		}

		result, shouldRetry, err := op(attempt)
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
	}

	if config.Description == "" {
		return zero, ErrExhausted
	}
	return zero, fmt.Errorf("%s: %w after %d attempts", config.Description, ErrExhausted, config.MaxRetries+1)
}

func beforeRetry(ctx context.Context, config Config, attempt int) error {
	if config.OnRetry != nil {
		if err := config.OnRetry(attempt); err != nil {
			return err
		}
	}
	if config.RetryDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(config.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poll repeats op every interval until it stops asking for a retry or the
// timeout expires. It is used for ready-bit polling on the bus transports.
func Poll[T any](ctx context.Context, timeout, interval time.Duration, op Operation[T]) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for attempt := 0; time.Now().Before(deadline); attempt++ {
		result, shouldRetry, err := op(attempt)
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(interval):
		}
	}

	return zero, ErrTimeout
}
