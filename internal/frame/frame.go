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

package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrIncomplete means buf does not hold a whole frame yet.
	ErrIncomplete       = errors.New("incomplete frame")
	ErrLengthChecksum   = errors.New("frame length checksum mismatch")
	ErrDataChecksum     = errors.New("frame data checksum mismatch")
	ErrWrongDirection   = errors.New("unexpected frame identifier")
	ErrApplicationError = errors.New("PN532 reported a syntax error")
	ErrTooLarge         = errors.New("frame data too large")
	ErrEmptyFrame       = errors.New("information frame without data")
)

// Kind tells the frame types apart.
type Kind uint8

const (
	KindInformation Kind = iota
	KindAck
	KindNack
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindInformation:
		return "information"
	case KindAck:
		return "ACK"
	case KindNack:
		return "NACK"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Frame is a parsed frame. Data excludes the TFI.
type Frame struct {
	Data []byte
	Kind Kind
}

// Build appends an information frame carrying tfi and payload to dst, using
// the extended format when the body exceeds one length byte.
func Build(dst []byte, tfi byte, payload []byte) ([]byte, error) {
	length := 1 + len(payload)
	if length > MaxExtendedDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, length)
	}

	dst = append(dst, Preamble, StartCode1, StartCode2)
	if length > MaxNormalDataLength {
		hi, lo := byte(length>>8), byte(length)
		dst = append(dst, 0xFF, 0xFF, hi, lo, ^(hi+lo)+1)
	} else {
		dst = append(dst, byte(length), CalculateLengthChecksum(byte(length)))
	}
	dst = append(dst, tfi)
	dst = append(dst, payload...)
	return append(dst, CalculateDataChecksum(tfi, payload), Postamble), nil
}

// Size returns the encoded size of a frame carrying payload.
func Size(payload []byte) int {
	if 1+len(payload) > MaxNormalDataLength {
		return extendedOverhead + 1 + len(payload)
	}
	return normalOverhead + 1 + len(payload)
}

// Parse decodes the first frame in buf. It returns the number of bytes
// consumed, including leading garbage and the postamble when present.
// ErrIncomplete asks the caller to read more bytes and try again.
func Parse(buf []byte, tfi byte) (Frame, int, error) {
	start := findStart(buf)
	if start < 0 {
		return Frame{}, 0, ErrIncomplete
	}
	p := start + 2
	if p+2 > len(buf) {
		return Frame{}, 0, ErrIncomplete
	}

	switch {
	case buf[p] == 0x00 && buf[p+1] == 0xFF:
		return Frame{Kind: KindAck}, withPostamble(buf, p+2), nil
	case buf[p] == 0xFF && buf[p+1] == 0x00:
		return Frame{Kind: KindNack}, withPostamble(buf, p+2), nil
	}

	length, body, err := parseLength(buf, p)
	if err != nil {
		return Frame{}, 0, err
	}
	if body+length+1 > len(buf) {
		return Frame{}, 0, ErrIncomplete
	}

	end := body + length
	n := withPostamble(buf, end+1)
	if ValidateChecksum(buf[body : end+1]) {
		return Frame{}, n, ErrDataChecksum
	}
	if length == 1 && buf[body] == ErrorCode {
		return Frame{Kind: KindError}, n, ErrApplicationError
	}
	if buf[body] != tfi {
		return Frame{}, n, fmt.Errorf("%w: %02X", ErrWrongDirection, buf[body])
	}

	data := make([]byte, length-1)
	copy(data, buf[body+1:end])
	return Frame{Kind: KindInformation, Data: data}, n, nil
}

// parseLength reads LEN/LCS or the extended length at p and returns the body
// length and offset.
func parseLength(buf []byte, p int) (length, body int, err error) {
	if buf[p] == 0xFF && buf[p+1] == 0xFF {
		if p+5 > len(buf) {
			return 0, 0, ErrIncomplete
		}
		hi, lo, lcs := buf[p+2], buf[p+3], buf[p+4]
		if hi+lo+lcs != 0 {
			return 0, 0, ErrLengthChecksum
		}
		length = int(hi)<<8 | int(lo)
		body = p + 5
	} else {
		if buf[p]+buf[p+1] != 0 {
			return 0, 0, ErrLengthChecksum
		}
		length = int(buf[p])
		body = p + 2
	}
	if length == 0 {
		return 0, 0, ErrEmptyFrame
	}
	return length, body, nil
}

func findStart(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == StartCode1 && buf[i+1] == StartCode2 {
			return i
		}
	}
	return -1
}

func withPostamble(buf []byte, n int) int {
	if n < len(buf) && buf[n] == Postamble {
		return n + 1
	}
	return n
}
