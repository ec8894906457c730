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

// Package polling waits for an ISO-DEP card to enter the reader's field.
package polling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-isodep/pn532"
	"github.com/rs/zerolog"
)

// ErrNoTagInPoll indicates no tag was detected during one polling cycle
var ErrNoTagInPoll = errors.New("no tag detected in polling cycle")

// Selector activates a card in the field
type Selector interface {
	SelectISODEPTarget(ctx context.Context) (*pn532.Target, error)
}

// Config controls how often the field is polled
type Config struct {
	Logger zerolog.Logger
	// PollInterval is the pause between polls that found nothing
	PollInterval time.Duration
	// PollTimeout bounds a single InListPassiveTarget
	PollTimeout time.Duration
}

// DefaultConfig returns the default polling configuration
func DefaultConfig() *Config {
	return &Config{
		Logger:       zerolog.Nop(),
		PollInterval: 250 * time.Millisecond,
		PollTimeout:  time.Second,
	}
}

// WaitForTarget polls until a card is selected or ctx is done. Empty polls
// and transient reader errors are retried; other errors end the wait.
func WaitForTarget(ctx context.Context, selector Selector, config *Config) (*pn532.Target, error) {
	if config == nil {
		config = DefaultConfig()
	}

	for attempt := 1; ; attempt++ {
		target, err := poll(ctx, selector, config.PollTimeout)
		if err == nil {
			config.Logger.Debug().Int("attempt", attempt).Str("target", target.String()).Msg("card selected")
			return target, nil
		}
		if !errors.Is(err, ErrNoTagInPoll) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", pn532.ErrTagNotFound, ctx.Err())
		case <-time.After(config.PollInterval):
		}
	}
}

// poll runs one selection attempt
func poll(ctx context.Context, selector Selector, timeout time.Duration) (*pn532.Target, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", pn532.ErrTagNotFound, err)
	}

	pollCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	target, err := selector.SelectISODEPTarget(pollCtx)
	switch {
	case err == nil:
		return target, nil
	case errors.Is(err, pn532.ErrTagNotFound):
		return nil, ErrNoTagInPoll
	case ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded):
		// the poll timed out, not the caller
		return nil, ErrNoTagInPoll
	case ctx.Err() == nil && pn532.IsRetryable(err):
		return nil, ErrNoTagInPoll
	default:
		return nil, fmt.Errorf("tag detection failed: %w", err)
	}
}
