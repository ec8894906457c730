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

// Package apdu encodes and decodes ISO/IEC 7816-4 command and response APDUs
// and provides a client that hides the 61XX and 6CXX status handling.
package apdu

import (
	"errors"
	"fmt"
)

// Length limits of the short and extended encodings.
const (
	MaxShortLc    = 255
	MaxShortLe    = 256
	MaxExtendedLc = 65535
	MaxExtendedLe = 65536
	headerLen     = 4
)

// Instruction bytes used by this module.
const (
	InsSelect       byte = 0xA4
	InsReadBinary   byte = 0xB0
	InsUpdateBinary byte = 0xD6
	InsGetResponse  byte = 0xC0
)

var (
	ErrCommandTooShort  = errors.New("command APDU shorter than header")
	ErrResponseTooShort = errors.New("response APDU shorter than status word")
	ErrInvalidLength    = errors.New("invalid APDU length field")
	ErrDataTooLarge     = errors.New("APDU data too large")
)

// Command is a command APDU. Ne is the expected response length; 0 means
// no response data is expected.
type Command struct {
	Data []byte
	Ne   int
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
}

// Bytes encodes the command, choosing the extended form when Lc or Le do
// not fit in one byte.
func (c *Command) Bytes() ([]byte, error) {
	nc := len(c.Data)
	if nc > MaxExtendedLc {
		return nil, fmt.Errorf("%w: %d bytes", ErrDataTooLarge, nc)
	}
	if c.Ne < 0 || c.Ne > MaxExtendedLe {
		return nil, fmt.Errorf("%w: Ne %d", ErrInvalidLength, c.Ne)
	}

	extended := nc > MaxShortLc || c.Ne > MaxShortLe
	buf := make([]byte, 0, headerLen+3+nc+3)
	buf = append(buf, c.CLA, c.INS, c.P1, c.P2)

	if nc > 0 {
		if extended {
			buf = append(buf, 0x00, byte(nc>>8), byte(nc))
		} else {
			buf = append(buf, byte(nc))
		}
		buf = append(buf, c.Data...)
	}

	if c.Ne > 0 {
		switch {
		case !extended:
			buf = append(buf, byte(c.Ne)) // 256 encodes as 0x00
		case nc == 0:
			buf = append(buf, 0x00, byte(c.Ne>>8), byte(c.Ne))
		default:
			buf = append(buf, byte(c.Ne>>8), byte(c.Ne))
		}
	}
	return buf, nil
}

// String returns a short description for logs.
func (c *Command) String() string {
	return fmt.Sprintf("CLA=%02X INS=%02X P1=%02X P2=%02X Lc=%d Le=%d",
		c.CLA, c.INS, c.P1, c.P2, len(c.Data), c.Ne)
}

// ParseCommand decodes a command APDU, short or extended, as received by a
// card.
func ParseCommand(raw []byte) (*Command, error) {
	if len(raw) < headerLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrCommandTooShort, len(raw))
	}
	cmd := &Command{CLA: raw[0], INS: raw[1], P1: raw[2], P2: raw[3]}
	body := raw[headerLen:]

	switch {
	case len(body) == 0:
		return cmd, nil
	case len(body) == 1:
		cmd.Ne = shortLe(body[0])
		return cmd, nil
	case body[0] != 0x00:
		return parseShortBody(cmd, body)
	case len(body) == 3:
		cmd.Ne = extendedLe(body[1], body[2])
		return cmd, nil
	default:
		return parseExtendedBody(cmd, body)
	}
}

func parseShortBody(cmd *Command, body []byte) (*Command, error) {
	nc := int(body[0])
	switch len(body) {
	case 1 + nc:
	case 2 + nc:
		cmd.Ne = shortLe(body[1+nc])
	default:
		return nil, fmt.Errorf("%w: Lc %d with %d body bytes", ErrInvalidLength, nc, len(body))
	}
	cmd.Data = body[1 : 1+nc]
	return cmd, nil
}

func parseExtendedBody(cmd *Command, body []byte) (*Command, error) {
	if len(body) < 3 {
		return nil, fmt.Errorf("%w: truncated extended length", ErrInvalidLength)
	}
	nc := int(body[1])<<8 | int(body[2])
	switch len(body) {
	case 3 + nc:
	case 5 + nc:
		cmd.Ne = extendedLe(body[3+nc], body[4+nc])
	default:
		return nil, fmt.Errorf("%w: Lc %d with %d body bytes", ErrInvalidLength, nc, len(body))
	}
	cmd.Data = body[3 : 3+nc]
	return cmd, nil
}

func shortLe(b byte) int {
	if b == 0 {
		return MaxShortLe
	}
	return int(b)
}

func extendedLe(hi, lo byte) int {
	ne := int(hi)<<8 | int(lo)
	if ne == 0 {
		return MaxExtendedLe
	}
	return ne
}

// Response is a response APDU.
type Response struct {
	Data   []byte
	Status StatusWord
}

// ParseResponse splits raw into data and status word.
func ParseResponse(raw []byte) (*Response, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrResponseTooShort, len(raw))
	}
	n := len(raw) - 2
	return &Response{
		Data:   raw[:n],
		Status: NewStatusWord(raw[n], raw[n+1]),
	}, nil
}

// Bytes encodes the response, as sent by a card.
func (r *Response) Bytes() []byte {
	out := make([]byte, 0, len(r.Data)+2)
	out = append(out, r.Data...)
	return append(out, r.Status.SW1(), r.Status.SW2())
}

func (r *Response) String() string {
	return fmt.Sprintf("%d bytes, %s", len(r.Data), r.Status.Verbose())
}
