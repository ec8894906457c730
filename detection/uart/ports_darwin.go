//go:build darwin

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

package uart

import (
	"context"
	"path/filepath"
	"strings"
)

// platformPorts lists /dev/cu.* callout devices, which unlike /dev/tty.*
// do not block waiting for carrier detect
func platformPorts(_ context.Context) ([]serialPort, error) {
	matches, err := filepath.Glob("/dev/cu.*")
	if err != nil {
		return nil, err
	}

	var ports []serialPort
	for _, path := range matches {
		name := filepath.Base(path)
		if includeMacOSDevice(name) {
			ports = append(ports, serialPort{Path: path, Name: name})
		}
	}
	return ports, nil
}

// includeMacOSDevice drops Bluetooth and system ports
func includeMacOSDevice(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range []string{"bluetooth", "console", "debug", "system", "kernel"} {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}
