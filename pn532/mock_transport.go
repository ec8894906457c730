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
	"sync"
	"time"
)

// MockTransport is a scriptable Transport for tests. Responses are keyed by
// command code and returned including the response code.
type MockTransport struct {
	responses    map[byte][]byte
	errors       map[byte]error
	calls        map[byte]int
	lastArgs     map[byte][]byte
	responseFunc func(cmd byte, args []byte) ([]byte, error)
	delay        time.Duration
	timeout      time.Duration
	mu           sync.Mutex
	closed       bool
}

// NewMockTransport creates a mock transport with no scripted responses
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[byte][]byte),
		errors:    make(map[byte]error),
		calls:     make(map[byte]int),
		lastArgs:  make(map[byte][]byte),
		timeout:   DefaultTransportTimeout,
	}
}

// SetResponse scripts the response for cmd and clears any scripted error
func (m *MockTransport) SetResponse(cmd byte, response []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cmd] = append([]byte(nil), response...)
	delete(m.errors, cmd)
}

// SetError makes cmd fail with err
func (m *MockTransport) SetError(cmd byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[cmd] = err
}

// ClearError removes a scripted error
func (m *MockTransport) ClearError(cmd byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errors, cmd)
}

// SetResponseFunc answers every command without a scripted error through fn
func (m *MockTransport) SetResponseFunc(fn func(cmd byte, args []byte) ([]byte, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseFunc = fn
}

// SetDelay delays every command
func (m *MockTransport) SetDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
}

// GetCallCount returns how often cmd was sent
func (m *MockTransport) GetCallCount(cmd byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[cmd]
}

// LastArgs returns the arguments of the last cmd sent
func (m *MockTransport) LastArgs(cmd byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.lastArgs[cmd]...)
}

// SendCommand implements Transport
func (m *MockTransport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	return m.SendCommandContext(context.Background(), cmd, args)
}

// SendCommandContext implements TransportContext; the delay honours ctx
func (m *MockTransport) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, NewTransportError("SendCommand", "mock", ErrTransportClosed, ErrorTypePermanent)
	}
	m.calls[cmd]++
	m.lastArgs[cmd] = append([]byte(nil), args...)
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("mock command %02X: %w", cmd, ctx.Err())
		case <-timer.C:
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.errors[cmd]; ok {
		return nil, err
	}
	if m.responseFunc != nil {
		return m.responseFunc(cmd, args)
	}
	if resp, ok := m.responses[cmd]; ok {
		return append([]byte(nil), resp...), nil
	}
	return nil, NewTransportError("SendCommand", "mock",
		fmt.Errorf("%w: no response scripted for command %02X", ErrInvalidResponse, cmd), ErrorTypePermanent)
}

// Close marks the transport closed
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetTimeout records the timeout
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// Timeout returns the last timeout set
func (m *MockTransport) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// IsConnected returns false after Close
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

var _ TransportContext = (*MockTransport)(nil)
