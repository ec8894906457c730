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
	"fmt"
	"time"

	"github.com/ZaparooProject/go-isodep/detection"
)

// TransportFactory is a function type for creating transports
type TransportFactory func(path string) (Transport, error)

// TransportFromDeviceFactory is a function type for creating transports from detected devices
type TransportFromDeviceFactory func(device detection.DeviceInfo) (Transport, error)

// ConnectOption represents a functional option for ConnectDevice
type ConnectOption func(*connectConfig) error

// connectConfig holds configuration options for device connection
type connectConfig struct {
	registry               *detection.Registry
	detectionOptions       *detection.Options
	retryConfig            *RetryConfig
	transportFactory       TransportFactory
	transportDeviceFactory TransportFromDeviceFactory
	deviceOptions          []Option
	timeout                time.Duration
	autoDetect             bool
}

// WithAutoDetection picks the best device found by registry instead of
// using a specific path
func WithAutoDetection(registry *detection.Registry) ConnectOption {
	return func(c *connectConfig) error {
		if registry == nil {
			return fmt.Errorf("%w: nil detection registry", ErrInvalidParameter)
		}
		c.autoDetect = true
		c.registry = registry
		return nil
	}
}

// WithDetectionOptions overrides the options used for auto-detection
func WithDetectionOptions(opts detection.Options) ConnectOption {
	return func(c *connectConfig) error {
		c.detectionOptions = &opts
		return nil
	}
}

// WithDeviceOptions adds device-level options
func WithDeviceOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.deviceOptions = append(c.deviceOptions, opts...)
		return nil
	}
}

// WithConnectTimeout sets the device connection timeout
func WithConnectTimeout(timeout time.Duration) ConnectOption {
	return func(c *connectConfig) error {
		c.timeout = timeout
		return nil
	}
}

// WithConnectRetry sets the backoff used while initializing the device
func WithConnectRetry(config *RetryConfig) ConnectOption {
	return func(c *connectConfig) error {
		c.retryConfig = config
		return nil
	}
}

// WithTransportFactory sets the transport factory function
func WithTransportFactory(factory TransportFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportFactory = factory
		return nil
	}
}

// WithTransportFromDeviceFactory sets the transport from device factory function
func WithTransportFromDeviceFactory(factory TransportFromDeviceFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportDeviceFactory = factory
		return nil
	}
}

func applyConnectOptions(opts []ConnectOption) (*connectConfig, error) {
	config := &connectConfig{
		timeout:     30 * time.Second,
		retryConfig: DefaultRetryConfig(),
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply connect option: %w", err)
		}
	}

	return config, nil
}

// ConnectDevice creates and initializes a PN532 device from a path or
// auto-detection. Initialization is retried with backoff, since readers
// behind USB bridges often miss the first wake-up.
//
// Example usage:
//
//	// Connect to specific device
//	device, err := pn532.ConnectDevice(ctx, "/dev/ttyUSB0",
//		pn532.WithTransportFactory(openUART))
//
//	// Auto-detect device
//	reg := detection.NewRegistry(uartdetect.New())
//	device, err := pn532.ConnectDevice(ctx, "",
//		pn532.WithAutoDetection(reg),
//		pn532.WithTransportFromDeviceFactory(openDetected))
func ConnectDevice(ctx context.Context, path string, opts ...ConnectOption) (*Device, error) {
	config, err := applyConnectOptions(opts)
	if err != nil {
		return nil, err
	}

	if config.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.timeout)
		defer cancel()
	}

	transport, err := createTransport(ctx, path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	device, err := setupDevice(ctx, transport, config)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	return device, nil
}

func createTransport(ctx context.Context, path string, config *connectConfig) (Transport, error) {
	if config.autoDetect || path == "" {
		return createAutoDetectedTransport(ctx, config)
	}
	return createManualTransport(path, config.transportFactory)
}

func setupDevice(ctx context.Context, transport Transport, config *connectConfig) (*Device, error) {
	device, err := New(transport, config.deviceOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	err = RetryWithConfig(ctx, config.retryConfig, func() error {
		return device.InitContext(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize device: %w", err)
	}

	return device, nil
}

// createManualTransport handles creation of transport for a specific path
func createManualTransport(path string, factory TransportFactory) (Transport, error) {
	if factory == nil {
		return nil, errors.New("transport factory not provided")
	}

	transport, err := factory(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport for path %s: %w", path, err)
	}

	return transport, nil
}

// createAutoDetectedTransport opens the most likely detected device
func createAutoDetectedTransport(ctx context.Context, config *connectConfig) (Transport, error) {
	if config.registry == nil {
		return nil, errors.New("no device path and no detection registry")
	}
	if config.transportDeviceFactory == nil {
		return nil, errors.New("transport device factory not provided")
	}

	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe
	if config.detectionOptions != nil {
		opts = *config.detectionOptions
	}

	devices, err := config.registry.DetectAll(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to detect devices: %w", err)
	}

	var errs []error
	for _, device := range devices {
		transport, err := config.transportDeviceFactory(device)
		if err == nil {
			debugf("using detected device %s", device)
			return transport, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", device.Path, err))
	}
	return nil, errors.Join(append([]error{ErrDeviceNotFound}, errs...)...)
}
