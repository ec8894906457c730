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

// Package i2c finds PN532 readers on I2C buses registered with periph.
package i2c

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ZaparooProject/go-isodep/detection"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	// Transport is the transport name reported for I2C devices
	Transport = "i2c"

	// DefaultPN532Address is the standard I2C address for PN532 (0x48 >> 1)
	DefaultPN532Address = 0x24
)

// Prober talks to a PN532 on the named bus and returns metadata about it
type Prober func(ctx context.Context, bus string) (map[string]string, error)

// busRef names one bus known to the host
type busRef struct {
	Name   string
	Number int
}

// Detector lists I2C buses and, in safe mode, checks the PN532 address
type Detector struct {
	probe        Prober
	listBuses    func() ([]busRef, error)
	probeAddress func(bus string, addr uint16) error
}

// New creates an I2C detector. probe, if set, confirms a device in safe mode
// after its address has been acknowledged.
func New(probe Prober) *Detector {
	return &Detector{
		probe:        probe,
		listBuses:    hostBuses,
		probeAddress: readStatus,
	}
}

// Transport implements detection.Detector
func (*Detector) Transport() string {
	return Transport
}

// Detect implements detection.Detector. In passive mode every bus is
// reported at the default address with low confidence, since nothing is
// sent on the wire.
func (d *Detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if opts == nil {
		defaults := detection.DefaultOptions()
		opts = &defaults
	}

	buses, err := d.listBuses()
	if err != nil {
		return nil, err
	}

	var devices []detection.DeviceInfo
	for _, bus := range buses {
		if err := ctx.Err(); err != nil {
			return devices, err
		}
		if detection.IsPathIgnored(bus.Name, opts.IgnorePaths) {
			continue
		}

		device := detection.DeviceInfo{
			Transport:  Transport,
			Path:       bus.Name,
			Name:       fmt.Sprintf("PN532 on %s", bus.Name),
			Confidence: detection.Low,
			Metadata: map[string]string{
				"bus":     strconv.Itoa(bus.Number),
				"address": fmt.Sprintf("0x%02X", DefaultPN532Address),
			},
		}

		if opts.Mode == detection.Safe {
			if err := d.probeAddress(bus.Name, DefaultPN532Address); err != nil {
				continue
			}
			device.Confidence = detection.Medium

			if d.probe != nil {
				if metadata, err := d.probe(ctx, bus.Name); err == nil {
					for k, v := range metadata {
						device.Metadata[k] = v
					}
					device.Confidence = detection.High
				}
			}
		}
		devices = append(devices, device)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// hostBuses initializes the periph host drivers and lists the I2C buses
func hostBuses() ([]busRef, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: %w", detection.ErrUnsupportedPlatform, err)
	}

	refs := i2creg.All()
	buses := make([]busRef, 0, len(refs))
	for _, ref := range refs {
		buses = append(buses, busRef{Name: ref.Name, Number: ref.Number})
	}
	return buses, nil
}

// readStatus reads the PN532 status byte; a missing device leaves the
// address unacknowledged and the read fails
func readStatus(bus string, addr uint16) error {
	b, err := i2creg.Open(bus)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	dev := &i2c.Dev{Bus: b, Addr: addr}
	status := make([]byte, 1)
	return dev.Tx(nil, status)
}
