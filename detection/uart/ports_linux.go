//go:build linux

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
)

// platformPorts resolves the serialN aliases Raspberry Pi OS creates for the
// GPIO header UARTs, where PN532 HATs are usually wired
func platformPorts(_ context.Context) ([]serialPort, error) {
	matches, err := filepath.Glob("/dev/serial[0-9]")
	if err != nil {
		return nil, err
	}

	ports := make([]serialPort, 0, len(matches))
	for _, alias := range matches {
		target, err := filepath.EvalSymlinks(alias)
		if err != nil {
			continue
		}
		ports = append(ports, serialPort{Path: target, Name: filepath.Base(alias)})
	}
	return ports, nil
}
