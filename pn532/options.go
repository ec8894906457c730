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
	"time"
)

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithRetryConfig sets the retry configuration for the device
func WithRetryConfig(config *RetryConfig) Option {
	return func(d *Device) error {
		d.SetRetryConfig(config)
		return nil
	}
}

// WithTimeout sets the default timeout for device operations
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		return d.SetTimeout(timeout)
	}
}

// WithMaxRetries sets the maximum number of attempts for device operations
func WithMaxRetries(maxAttempts int) Option {
	return func(device *Device) error {
		config := device.retryConfig()
		config.MaxAttempts = maxAttempts
		device.SetRetryConfig(config)
		return nil
	}
}

// WithRetryBackoff sets the initial backoff duration for retries
func WithRetryBackoff(initialBackoff time.Duration) Option {
	return func(device *Device) error {
		config := device.retryConfig()
		config.InitialBackoff = initialBackoff
		device.SetRetryConfig(config)
		return nil
	}
}

// WithPassiveActivationRetries sets MxRtyPassiveActivation applied by Init
func WithPassiveActivationRetries(retries byte) Option {
	return func(device *Device) error {
		device.config.PassiveActivationRetries = retries
		return nil
	}
}

// retryConfig returns a copy of the current retry config, or the defaults
func (d *Device) retryConfig() *RetryConfig {
	if d.config.RetryConfig == nil {
		return DefaultRetryConfig()
	}
	config := *d.config.RetryConfig
	return &config
}
