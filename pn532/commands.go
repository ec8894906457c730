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

import "time"

// PN532 Command codes
const (
	cmdGetFirmwareVersion  = 0x02
	cmdSamConfiguration    = 0x14
	cmdRFConfiguration     = 0x32
	cmdInCommunicateThru   = 0x42
	cmdInListPassiveTarget = 0x4A
	cmdInRelease           = 0x52
)

// SAM configuration modes
const (
	SAMModeNormal      byte = 0x01
	SAMModeVirtualCard byte = 0x02
	SAMModeWiredCard   byte = 0x03
	SAMModeDualCard    byte = 0x04
)

// RFConfiguration items
const (
	rfItemField    = 0x01
	rfItemTimings  = 0x02
	rfItemMaxRetry = 0x05
)

// Baud rate / modulation for InListPassiveTarget
const (
	brTy106kbpsTypeA = 0x00
)

// DefaultPassiveActivationRetries bounds InListPassiveTarget's internal
// retries. Each retry takes about 100ms, so 0x0A gives up after a second
// instead of the default 0xFF (wait forever).
const DefaultPassiveActivationRetries byte = 0x0A

// maxCommunicateThruData is the largest frame InCommunicateThru accepts
const maxCommunicateThruData = 262

// communicationTimeoutCodes maps the RFConfiguration timeout code n to
// 100µs * 2^(n-1); code 0 disables the timeout.
const (
	minTimeoutCode = 0x01
	maxTimeoutCode = 0x10
	timeoutUnit    = 100 * time.Microsecond
)
