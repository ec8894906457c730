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

package type4

import (
	"encoding/binary"
	"fmt"
)

const (
	ccFileID  uint16 = 0xE103
	ccMinSize        = 15

	tlvNDEFFileControl = 0x04
	accessGranted      = 0x00

	// nlenSize is the length prefix at the start of the NDEF file
	nlenSize = 2

	// maxShortOffset is the largest offset READ/UPDATE BINARY can address
	// in P1-P2
	maxShortOffset = 0x7FFF
)

// CapabilityContainer is the content of the CC file (E103).
type CapabilityContainer struct {
	// MappingVersion is the major/minor version in the high/low nibble.
	MappingVersion byte
	// MaxReadSize (MLe) is the most data one READ BINARY may return.
	MaxReadSize uint16
	// MaxWriteSize (MLc) is the most data one UPDATE BINARY may carry.
	MaxWriteSize uint16
	// NDEFFileID is the file holding NLEN and the message.
	NDEFFileID uint16
	// NDEFFileSize is the size of the NDEF file including NLEN.
	NDEFFileSize uint16
	ReadAccess   byte
	WriteAccess  byte
}

// ParseCapabilityContainer decodes a mapping version 1.x or 2.x CC file.
func ParseCapabilityContainer(data []byte) (*CapabilityContainer, error) {
	if len(data) < ccMinSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidCC, len(data))
	}
	if ccLen := binary.BigEndian.Uint16(data); int(ccLen) < ccMinSize {
		return nil, fmt.Errorf("%w: CCLEN %d", ErrInvalidCC, ccLen)
	}

	cc := &CapabilityContainer{
		MappingVersion: data[2],
		MaxReadSize:    binary.BigEndian.Uint16(data[3:]),
		MaxWriteSize:   binary.BigEndian.Uint16(data[5:]),
	}
	if major := cc.MappingVersion >> 4; major < 1 || major > 2 {
		return nil, fmt.Errorf("%w: mapping version %d.%d", ErrInvalidCC, major, cc.MappingVersion&0x0F)
	}

	if data[7] != tlvNDEFFileControl || data[8] != 0x06 {
		return nil, fmt.Errorf("%w: expected NDEF File Control TLV, got %02X %02X", ErrInvalidCC, data[7], data[8])
	}
	cc.NDEFFileID = binary.BigEndian.Uint16(data[9:])
	cc.NDEFFileSize = binary.BigEndian.Uint16(data[11:])
	cc.ReadAccess = data[13]
	cc.WriteAccess = data[14]

	if cc.MaxReadSize == 0 || cc.MaxWriteSize == 0 {
		return nil, fmt.Errorf("%w: MLe %d MLc %d", ErrInvalidCC, cc.MaxReadSize, cc.MaxWriteSize)
	}
	if cc.NDEFFileSize < nlenSize+1 {
		return nil, fmt.Errorf("%w: NDEF file size %d", ErrInvalidCC, cc.NDEFFileSize)
	}
	return cc, nil
}

// Readable reports whether the NDEF file may be read without security.
func (cc *CapabilityContainer) Readable() bool {
	return cc.ReadAccess == accessGranted
}

// Writable reports whether the NDEF file may be updated without security.
func (cc *CapabilityContainer) Writable() bool {
	return cc.WriteAccess == accessGranted
}

// MaxMessageSize is the largest NDEF message the file can hold.
func (cc *CapabilityContainer) MaxMessageSize() int {
	size := min(int(cc.NDEFFileSize), maxShortOffset+1)
	return size - nlenSize
}

func (cc *CapabilityContainer) String() string {
	return fmt.Sprintf("v%d.%d MLe=%d MLc=%d file=%04X size=%d read=%02X write=%02X",
		cc.MappingVersion>>4, cc.MappingVersion&0x0F, cc.MaxReadSize, cc.MaxWriteSize,
		cc.NDEFFileID, cc.NDEFFileSize, cc.ReadAccess, cc.WriteAccess)
}
