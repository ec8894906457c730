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

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-isodep/detection"
	i2cdetect "github.com/ZaparooProject/go-isodep/detection/i2c"
	uartdetect "github.com/ZaparooProject/go-isodep/detection/uart"
	"github.com/ZaparooProject/go-isodep/pn532"
	"github.com/ZaparooProject/go-isodep/transport/i2c"
	"github.com/ZaparooProject/go-isodep/transport/uart"
)

// openTransport opens a reader by path; I2C buses are told apart by name.
func openTransport(path string) (pn532.Transport, error) {
	if strings.Contains(strings.ToLower(path), "i2c") {
		return openI2C(path)
	}
	return openUART(path)
}

func openUART(path string) (pn532.Transport, error) {
	t, err := uart.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create UART transport: %w", err)
	}
	return t, nil
}

func openI2C(path string) (pn532.Transport, error) {
	t, err := i2c.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create I2C transport: %w", err)
	}
	return t, nil
}

func openDetected(device detection.DeviceInfo) (pn532.Transport, error) {
	switch device.Transport {
	case uartdetect.Transport:
		return openUART(device.Path)
	case i2cdetect.Transport:
		return openI2C(device.Path)
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", device.Transport)
	}
}

// probeFirmware confirms a PN532 by asking for its firmware version
func probeFirmware(open pn532.TransportFactory) func(context.Context, string) (map[string]string, error) {
	return func(ctx context.Context, path string) (map[string]string, error) {
		transport, err := open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = transport.Close() }()

		device, err := pn532.New(transport, pn532.WithMaxRetries(1))
		if err != nil {
			return nil, err
		}
		fw, err := device.GetFirmwareVersion(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]string{"firmware": fw.String()}, nil
	}
}

func newRegistry() *detection.Registry {
	return detection.NewRegistry(
		uartdetect.New(probeFirmware(openUART)),
		i2cdetect.New(probeFirmware(openI2C)),
	)
}

func connect(ctx context.Context, cfg *config) (*pn532.Device, error) {
	opts := []pn532.ConnectOption{
		pn532.WithConnectTimeout(cfg.timeout),
	}
	if cfg.device == "" {
		opts = append(opts,
			pn532.WithAutoDetection(newRegistry()),
			pn532.WithTransportFromDeviceFactory(openDetected))
	} else {
		opts = append(opts, pn532.WithTransportFactory(openTransport))
	}

	device, err := pn532.ConnectDevice(ctx, cfg.device, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PN532 device: %w", err)
	}
	return device, nil
}
