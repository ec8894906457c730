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
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-isodep"
)

const (
	// sakISODEP is the SAK bit announcing ISO/IEC 14443-4 support
	sakISODEP = 0x20

	// maxThruFrameSize is the largest card frame InCommunicateThru can carry
	maxThruFrameSize = 256

	defaultFSCI = 2
	defaultFWI  = 4
	maxFWI      = 14

	// frameWaitUnit is 256 * 16 / fc, the FWT for FWI 0
	frameWaitUnit = 4096 * time.Second / 13_560_000

	// linkMargin covers the host link round trip on top of the card FWT
	linkMargin = 200 * time.Millisecond
)

// ATS format byte flags
const (
	atsHasTA = 0x10
	atsHasTB = 0x20
	atsHasTC = 0x40
)

// Target is an ISO/IEC 14443-4 type A card selected by InListPassiveTarget
type Target struct {
	UID    []byte
	ATS    []byte
	ATQA   [2]byte
	Number byte
	SAK    byte
}

// parseTarget decodes one type A target entry of an InListPassiveTarget
// response: Tg, SENS_RES(2), SEL_RES, NFCIDLength, NFCID, ATS.
func parseTarget(data []byte) (*Target, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("%w: target data too short: % X", ErrInvalidResponse, data)
	}
	uidLen := int(data[4])
	if len(data) < 5+uidLen {
		return nil, fmt.Errorf("%w: truncated UID", ErrInvalidResponse)
	}

	t := &Target{
		Number: data[0],
		ATQA:   [2]byte{data[1], data[2]},
		SAK:    data[3],
		UID:    append([]byte(nil), data[5:5+uidLen]...),
	}

	rest := data[5+uidLen:]
	if len(rest) > 0 {
		atsLen := int(rest[0])
		if atsLen == 0 || atsLen > len(rest) {
			return nil, fmt.Errorf("%w: bad ATS length %d", ErrInvalidResponse, atsLen)
		}
		t.ATS = append([]byte(nil), rest[:atsLen]...)
	}
	return t, nil
}

// SupportsISODEP reports whether the card announced ISO/IEC 14443-4 in its
// SAK and sent an ATS.
func (t *Target) SupportsISODEP() bool {
	return t.SAK&sakISODEP != 0 && len(t.ATS) > 0
}

func (t *Target) formatByte() (byte, bool) {
	if len(t.ATS) < 2 {
		return 0, false
	}
	return t.ATS[1], true
}

// FrameSizeIndex returns FSCI from the ATS format byte
func (t *Target) FrameSizeIndex() byte {
	t0, ok := t.formatByte()
	if !ok {
		return defaultFSCI
	}
	return t0 & 0x0F
}

// FrameSize returns the card frame size (FSC), limited to what
// InCommunicateThru can carry
func (t *Target) FrameSize() int {
	size, err := isodep.FrameSizeFromIndex(t.FrameSizeIndex())
	if err != nil {
		// RFU codes are read as the maximum
		size = isodep.MaxFrameSize
	}
	return min(size, maxThruFrameSize)
}

// FrameWaitIndex returns FWI from interface byte TB(1)
func (t *Target) FrameWaitIndex() byte {
	t0, ok := t.formatByte()
	if !ok || t0&atsHasTB == 0 {
		return defaultFWI
	}
	pos := 2
	if t0&atsHasTA != 0 {
		pos++
	}
	if pos >= len(t.ATS) {
		return defaultFWI
	}
	fwi := t.ATS[pos] >> 4
	if fwi > maxFWI {
		return defaultFWI
	}
	return fwi
}

// FrameWaitTime returns the card's frame waiting time
func (t *Target) FrameWaitTime() time.Duration {
	return frameWaitUnit << t.FrameWaitIndex()
}

// SessionOptions returns block layer options matching the card's ATS
func (t *Target) SessionOptions() []isodep.Option {
	return []isodep.Option{
		isodep.WithMaxFrameSize(t.FrameSize()),
		isodep.WithFrameTimeout(t.FrameWaitTime() + linkMargin),
	}
}

func (t *Target) String() string {
	return fmt.Sprintf("Tg%d UID=%s ATQA=%02X%02X SAK=%02X ATS=%s",
		t.Number, hex.EncodeToString(t.UID), t.ATQA[0], t.ATQA[1], t.SAK, hex.EncodeToString(t.ATS))
}
