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

// Package frame builds and parses PN532 host interface frames.
package frame

// Frame direction constants - these indicate the direction of data flow
const (
	HostToPn532 = 0xD4 // Commands from host to PN532
	Pn532ToHost = 0xD5 // Responses from PN532 to host
)

// Frame markers and control bytes
const (
	Preamble   = 0x00
	StartCode1 = 0x00
	StartCode2 = 0xFF
	Postamble  = 0x00
	ErrorCode  = 0x7F // application level error frame payload
)

// Frame size limits
const (
	MaxNormalDataLength   = 255 // LEN is one byte in a normal frame
	MaxExtendedDataLength = 265 // TFI + 264 bytes of PN532 buffer
	MinFrameLength        = 6   // preamble + start code + len + lcs + ack body
	normalOverhead        = 7   // preamble, start code (2), LEN, LCS, DCS, postamble
	extendedOverhead      = 10  // normal overhead plus FF FF marker and two length bytes

	// MaxFrameSize is the largest frame on the wire
	MaxFrameSize = MaxExtendedDataLength + extendedOverhead
)

// ACK and NACK frames - these are used for flow control
var (
	AckFrame   = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	NackFrame  = []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
	ErrorFrame = []byte{0x00, 0x00, 0xFF, 0x01, 0xFF, 0x7F, 0x81, 0x00}
)
