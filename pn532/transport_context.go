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
	"time"
)

// TransportContext defines the interface for communication with PN532 devices
// with context support for cancellation and timeouts.
type TransportContext interface {
	Transport

	// SendCommandContext sends a command to the PN532 with context support
	SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error)
}

// DefaultTransportTimeout is the read timeout restored after a command that
// ran under a context deadline.
const DefaultTransportTimeout = 5 * time.Second

// transportContextAdapter wraps a Transport to provide context support
type transportContextAdapter struct {
	Transport
}

// SendCommandContext implements TransportContext by using the context deadline
func (t *transportContextAdapter) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled before sending command: %w", ctx.Err())
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		if timeout := time.Until(deadline); timeout > 0 {
			defer func() {
				_ = t.SetTimeout(DefaultTransportTimeout)
			}()
			if err := t.SetTimeout(timeout); err != nil {
				return nil, err
			}
		}
	}

	type result struct {
		err  error
		data []byte
	}
	resultChan := make(chan result, 1)

	go func() {
		data, err := t.SendCommand(cmd, args)
		resultChan <- result{err, data}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled while waiting for command response: %w", ctx.Err())
	case res := <-resultChan:
		return res.data, res.err
	}
}

// AsTransportContext converts a Transport to TransportContext
func AsTransportContext(t Transport) TransportContext {
	if tc, ok := t.(TransportContext); ok {
		return tc
	}
	return &transportContextAdapter{Transport: t}
}
