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
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    1 * time.Microsecond,
		MaxBackoff:        10 * time.Microsecond,
		BackoffMultiplier: 2.0,
		Jitter:            0.0,
		RetryTimeout:      100 * time.Millisecond,
	}
}

func TestTransportWithRetry_NewTransportWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		config   *RetryConfig
		expected *RetryConfig
		name     string
	}{
		{
			name:     "Default config when nil provided",
			config:   nil,
			expected: DefaultRetryConfig(),
		},
		{
			name:     "Custom config preserved",
			config:   fastRetryConfig(5),
			expected: fastRetryConfig(5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockTransport := NewMockTransport()
			wrapper := NewTransportWithRetry(mockTransport, tt.config)

			require.NotNil(t, wrapper)
			assert.Equal(t, mockTransport, wrapper.Unwrap())
			assert.Equal(t, tt.expected, wrapper.config)
		})
	}
}

func TestTransportWithRetry_SendCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setupMock      func(*MockTransport)
		config         *RetryConfig
		name           string
		expectedError  error
		args           []byte
		expectedResult []byte
		expectedCalls  int
		cmd            byte
	}{
		{
			name: "Success on first attempt",
			setupMock: func(m *MockTransport) {
				m.SetResponse(0x02, []byte{0x03, 0x32, 0x01, 0x06, 0x07})
			},
			config:         DefaultRetryConfig(),
			cmd:            0x02,
			expectedResult: []byte{0x03, 0x32, 0x01, 0x06, 0x07},
			expectedCalls:  1,
		},
		{
			name: "Success after transient failures",
			setupMock: func(m *MockTransport) {
				var calls atomic.Int32
				m.SetResponseFunc(func(_ byte, _ []byte) ([]byte, error) {
					if calls.Add(1) < 3 {
						return nil, NewNoACKError("ack", "mock")
					}
					return []byte{0x15}, nil
				})
			},
			config:         fastRetryConfig(3),
			cmd:            0x14,
			args:           []byte{0x01, 0x14, 0x01},
			expectedResult: []byte{0x15},
			expectedCalls:  3,
		},
		{
			name: "Non-retryable error fails immediately",
			setupMock: func(m *MockTransport) {
				m.SetError(0x4A, NewDataTooLargeError("write", "mock"))
			},
			config:        fastRetryConfig(3),
			cmd:           0x4A,
			args:          []byte{0x01, 0x00},
			expectedError: ErrDataTooLarge,
			expectedCalls: 1,
		},
		{
			name: "Retryable error exhausts attempts",
			setupMock: func(m *MockTransport) {
				m.SetError(0x02, NewTimeoutError("SendCommand", "mock"))
			},
			config:        fastRetryConfig(2),
			cmd:           0x02,
			expectedError: ErrTransportTimeout,
			expectedCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockTransport := NewMockTransport()
			tt.setupMock(mockTransport)
			wrapper := NewTransportWithRetry(mockTransport, tt.config)

			result, err := wrapper.SendCommand(tt.cmd, tt.args)

			if tt.expectedError != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tt.expectedError)
				var te *TransportError
				require.ErrorAs(t, err, &te)
				assert.Contains(t, te.Op, "SendCommand")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedResult, result)
			}
			assert.Equal(t, tt.expectedCalls, mockTransport.GetCallCount(tt.cmd))
		})
	}
}

func TestTransportWithRetry_ContextCancelled(t *testing.T) {
	t.Parallel()

	mockTransport := NewMockTransport()
	mockTransport.SetResponse(0x02, []byte{0x03, 0x32, 0x01, 0x06, 0x07})
	mockTransport.SetDelay(time.Second)
	wrapper := NewTransportWithRetry(mockTransport, fastRetryConfig(3))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := wrapper.SendCommandContext(ctx, 0x02, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled))
}

func TestTransportWithRetry_Delegation(t *testing.T) {
	t.Parallel()

	mockTransport := NewMockTransport()
	wrapper := NewTransportWithRetry(mockTransport, DefaultRetryConfig())

	assert.Equal(t, TransportMock, wrapper.Type())
	assert.True(t, wrapper.IsConnected())

	require.NoError(t, wrapper.SetTimeout(250*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, mockTransport.Timeout())

	require.NoError(t, wrapper.Close())
	assert.False(t, wrapper.IsConnected())
}

func TestTransportWithRetry_SetRetryConfig(t *testing.T) {
	t.Parallel()

	mockTransport := NewMockTransport()
	wrapper := NewTransportWithRetry(mockTransport, DefaultRetryConfig())
	initialConfig := wrapper.config

	newConfig := fastRetryConfig(10)
	newConfig.BackoffMultiplier = 1.5
	wrapper.SetRetryConfig(newConfig)

	assert.Equal(t, newConfig, wrapper.config)
	assert.NotEqual(t, initialConfig, wrapper.config)
}
