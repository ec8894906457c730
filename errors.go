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

package isodep

import (
	"errors"
	"fmt"
)

// Block layer errors.
var (
	// ErrMalformedBlock is returned for a block without its control byte.
	ErrMalformedBlock = errors.New("malformed block")
	// ErrUnexpectedContinuation is returned when a block's PCB does not belong to
	// the current exchange (lost block, retransmission or desynchronised peer).
	ErrUnexpectedContinuation = errors.New("unexpected continuation")
	// ErrBufferOverflow is returned when a fragment does not fit the destination.
	ErrBufferOverflow = errors.New("reassembly buffer overflow")
)

// Session and listener errors.
var (
	ErrProtocol       = errors.New("protocol error")
	ErrTooManyWTX     = errors.New("too many waiting time extensions")
	ErrDeselectFailed = errors.New("deselect failed")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrNoResponse     = errors.New("no response to resend")
)

// BlockError describes a rejected block.
type BlockError struct {
	Err error
	Op  string
	PCB byte
	Len int
}

func (e *BlockError) Error() string {
	if e.Len == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s (%d bytes): %v", e.Op, DescribePCB(e.PCB), e.Len, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

func newBlockError(op string, block []byte, err error) *BlockError {
	be := &BlockError{Op: op, Err: err, Len: len(block)}
	if len(block) > 0 {
		be.PCB = block[0]
	}
	return be
}
