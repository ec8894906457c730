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

package apdu

import "fmt"

// StatusWord is the SW1-SW2 trailer of a response.
type StatusWord uint16

// Status words used by NFC Forum Type 4 tags.
const (
	SWSuccess          StatusWord = 0x9000
	SWWarnEOF          StatusWord = 0x6282
	SWWrongLength      StatusWord = 0x6700
	SWSecurityStatus   StatusWord = 0x6982
	SWConditionsNotMet StatusWord = 0x6985
	SWWrongData        StatusWord = 0x6A80
	SWFuncNotSupported StatusWord = 0x6A81
	SWFileNotFound     StatusWord = 0x6A82
	SWNotEnoughMemory  StatusWord = 0x6A84
	SWWrongP1P2        StatusWord = 0x6A86
	SWWrongOffset      StatusWord = 0x6B00
	SWInsNotSupported  StatusWord = 0x6D00
	SWClaNotSupported  StatusWord = 0x6E00
	SWUnknown          StatusWord = 0x6F00
)

var statusText = map[StatusWord]string{
	SWSuccess:          "success",
	SWWarnEOF:          "end of file reached before Le bytes",
	SWWrongLength:      "wrong length",
	SWSecurityStatus:   "security status not satisfied",
	SWConditionsNotMet: "conditions of use not satisfied",
	SWWrongData:        "incorrect data",
	SWFuncNotSupported: "function not supported",
	SWFileNotFound:     "file or application not found",
	SWNotEnoughMemory:  "not enough memory",
	SWWrongP1P2:        "incorrect P1/P2",
	SWWrongOffset:      "offset outside file",
	SWInsNotSupported:  "instruction not supported",
	SWClaNotSupported:  "class not supported",
	SWUnknown:          "no precise diagnosis",
}

// NewStatusWord builds a status word from its two bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

func (sw StatusWord) SW1() byte { return byte(sw >> 8) }

func (sw StatusWord) SW2() byte { return byte(sw) }

// IsSuccess reports 9000 and 61XX.
func (sw StatusWord) IsSuccess() bool {
	return sw == SWSuccess || sw.SW1() == 0x61
}

// IsWarning reports 62XX and 63XX.
func (sw StatusWord) IsWarning() bool {
	return sw.SW1() == 0x62 || sw.SW1() == 0x63
}

// IsError reports execution and checking errors, 64XX to 6FXX.
func (sw StatusWord) IsError() bool {
	return sw.SW1() >= 0x64 && sw.SW1() <= 0x6F
}

// Verbose returns the status word with a description.
func (sw StatusWord) Verbose() string {
	switch sw.SW1() {
	case 0x61:
		return fmt.Sprintf("[%04X] %d bytes available", uint16(sw), sw.SW2())
	case 0x6C:
		return fmt.Sprintf("[%04X] wrong Le, card expects %d", uint16(sw), sw.SW2())
	}
	if text, ok := statusText[sw]; ok {
		return fmt.Sprintf("[%04X] %s", uint16(sw), text)
	}
	return fmt.Sprintf("[%04X] %s", uint16(sw), sw.category())
}

func (sw StatusWord) String() string {
	return fmt.Sprintf("%04X", uint16(sw))
}

func (sw StatusWord) category() string {
	switch sw.SW1() {
	case 0x62, 0x63:
		return "warning"
	case 0x64, 0x65, 0x66:
		return "execution error"
	case 0x67, 0x68, 0x69, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F:
		return "checking error"
	default:
		return "unknown status"
	}
}
