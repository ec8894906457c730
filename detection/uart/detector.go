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

// Package uart finds PN532 readers behind USB serial bridges.
package uart

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-isodep/detection"
	"go.bug.st/serial/enumerator"
)

// Transport is the transport name reported for serial devices
const Transport = "uart"

// Prober talks to the device at path and reports whether it is a PN532.
// The returned metadata is attached to the detected device.
type Prober func(ctx context.Context, path string) (map[string]string, error)

// serialPort is one port as reported by the operating system
type serialPort struct {
	Path         string
	Name         string
	VIDPID       string
	Manufacturer string
	Product      string
	SerialNumber string
}

// Detector lists serial ports and, in safe mode, probes them
type Detector struct {
	probe     Prober
	listPorts func(ctx context.Context) ([]serialPort, error)
}

// New creates a serial port detector. probe may be nil, in which case safe
// mode detection falls back to passive enumeration.
func New(probe Prober) *Detector {
	return &Detector{probe: probe, listPorts: getSerialPorts}
}

// Transport implements detection.Detector
func (*Detector) Transport() string {
	return Transport
}

// Detect implements detection.Detector. Blocked and ignored ports are
// skipped before any probing.
func (d *Detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if opts == nil {
		defaults := detection.DefaultOptions()
		opts = &defaults
	}

	ports, err := d.listPorts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return devices, err
		}
		if detection.IsPathIgnored(port.Path, opts.IgnorePaths) {
			continue
		}
		if port.VIDPID != "" && detection.IsBlocked(port.VIDPID, opts.Blocklist) {
			continue
		}

		device := deviceInfo(port)
		if opts.Mode == detection.Safe && d.probe != nil {
			metadata, err := d.probe(ctx, port.Path)
			if err != nil {
				continue
			}
			for k, v := range metadata {
				device.Metadata[k] = v
			}
			device.Confidence = detection.High
		}
		devices = append(devices, device)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func deviceInfo(port serialPort) detection.DeviceInfo {
	info := detection.DeviceInfo{
		Transport:  Transport,
		Path:       port.Path,
		Name:       port.Name,
		Confidence: detection.Low,
		Metadata:   make(map[string]string),
	}

	setMeta := func(key, value string) {
		if value != "" {
			info.Metadata[key] = value
		}
	}
	setMeta("vidpid", port.VIDPID)
	setMeta("manufacturer", port.Manufacturer)
	setMeta("product", port.Product)
	setMeta("serial", port.SerialNumber)

	if bridge, ok := detection.BridgeName(port.VIDPID); ok {
		info.Metadata["bridge"] = bridge
		info.Confidence = detection.Medium
		if info.Name == "" || info.Name == port.Path {
			info.Name = bridge
		}
	}
	if info.Name == "" {
		info.Name = port.Path
	}
	return info
}

// getSerialPorts merges the enumerator's view with the platform's own list,
// which sometimes knows ports the enumerator misses
func getSerialPorts(ctx context.Context) ([]serialPort, error) {
	details, enumErr := enumerator.GetDetailedPortsList()

	ports := make([]serialPort, 0, len(details))
	seen := make(map[string]bool)
	for _, d := range details {
		port := serialPort{
			Path:         d.Name,
			Name:         d.Name,
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
		}
		if d.IsUSB {
			port.VIDPID = detection.FormatVIDPID(d.VID, d.PID)
			if d.Product != "" {
				port.Name = d.Product
			}
		}
		ports = append(ports, port)
		seen[strings.ToLower(port.Path)] = true
	}

	extra, platformErr := platformPorts(ctx)
	if enumErr != nil && platformErr != nil {
		return nil, fmt.Errorf("%w (platform: %w)", enumErr, platformErr)
	}
	for _, port := range extra {
		if !seen[strings.ToLower(port.Path)] {
			ports = append(ports, port)
			seen[strings.ToLower(port.Path)] = true
		}
	}
	return ports, nil
}
