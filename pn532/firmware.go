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
)

// FirmwareVersion contains PN532 firmware version information
type FirmwareVersion struct {
	Version          string
	IC               byte
	SupportIso14443a bool
	SupportIso14443b bool
	SupportIso18092  bool
}

func (f *FirmwareVersion) String() string {
	return fmt.Sprintf("PN5%02X v%s", f.IC, f.Version)
}

// GetFirmwareVersion returns the PN532 firmware version
func (d *Device) GetFirmwareVersion(ctx context.Context) (*FirmwareVersion, error) {
	res, err := d.sendCommand(ctx, cmdGetFirmwareVersion, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to send GetFirmwareVersion command: %w", err)
	}
	if len(res) < 5 {
		return nil, fmt.Errorf("%w: firmware version response too short: % X", ErrInvalidResponse, res)
	}
	if res[1] != 0x32 {
		return nil, fmt.Errorf("%w: unexpected IC %02X", ErrInvalidResponse, res[1])
	}

	return &FirmwareVersion{
		IC:               res[1],
		Version:          fmt.Sprintf("%d.%d", res[2], res[3]),
		SupportIso14443a: res[4]&0x01 == 0x01,
		SupportIso14443b: res[4]&0x02 == 0x02,
		SupportIso18092:  res[4]&0x04 == 0x04,
	}, nil
}
