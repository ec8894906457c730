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

// rxPhase is the receive side of the layer: either waiting for the first block
// of a response or part way through a chained one.
type rxPhase uint8

const (
	rxIdle rxPhase = iota
	rxReassembling
)

// Layer holds the block-protocol state for one peer.
//
// It does not own any buffers: encoded blocks are appended to a caller slice and
// decoded payloads are written into a caller slice whose length bounds the
// reassembled payload. Layer is not safe for concurrent use; a session owns
// exactly one.
type Layer struct {
	pcb      byte
	pcbPrev  byte
	rx       rxPhase
	received int
}

// NewLayer returns a layer whose next block is I(0).
func NewLayer() *Layer {
	l := &Layer{}
	l.Reset()
	return l
}

// Reset returns the layer to its initial state. Any partially reassembled
// payload in the caller's buffer must be discarded by the caller.
func (l *Layer) Reset() {
	l.pcb = PCBInitial
	l.pcbPrev = PCBInitial
	l.rx = rxIdle
	l.received = 0
}

// PCB returns the control byte the layer holds for its next block.
func (l *Layer) PCB() byte {
	return l.pcb
}

// PrevPCB returns the control byte of the last unchained I-block sent.
func (l *Layer) PrevPCB() byte {
	return l.pcbPrev
}

// Reassembling reports whether a chained block has been accepted and the
// final block of that chain is still outstanding.
func (l *Layer) Reassembling() bool {
	return l.rx == rxReassembling
}

// Received returns the number of payload bytes accepted into the current chain.
func (l *Layer) Received() int {
	return l.received
}

// EncodeBlock appends an unchained I-block carrying payload to dst and
// advances the block number. The returned slice must be transmitted as is;
// retransmissions reuse it rather than calling EncodeBlock again.
func (l *Layer) EncodeBlock(dst, payload []byte) []byte {
	pcb := IBlockPCB(l.pcb, false)
	dst = append(dst, pcb)
	dst = append(dst, payload...)
	l.pcbPrev = pcb
	l.pcb = pcb ^ PCBBlockNum
	return dst
}

// EncodeChainedBlock appends an I-block with the chaining flag set. The block
// number is left alone until the last fragment goes out through EncodeBlock.
func (l *Layer) EncodeChainedBlock(dst, payload []byte) []byte {
	dst = append(dst, IBlockPCB(l.pcb, true))
	return append(dst, payload...)
}

// BuildAckBlock appends an R(ACK) for the current block number to dst. The
// R-block becomes the layer's current PCB; the block number does not change.
func (l *Layer) BuildAckBlock(dst []byte) []byte {
	l.pcb = RBlockPCB(l.pcb, false)
	return append(dst, l.pcb)
}

// IsChaining reports whether block continues the exchange whose last
// unchained PCB was PrevPCB and announces more blocks to come.
func (l *Layer) IsChaining(block []byte) bool {
	return len(block) > 0 && block[0] == l.pcbPrev|PCBChaining
}

// DecodeBlock writes the information field of block into dst at the current
// reassembly offset. It returns the total number of payload bytes held in dst
// for this exchange and whether block was the last one.
//
// Rejected blocks leave both dst and the layer untouched.
func (l *Layer) DecodeBlock(dst, block []byte) (n int, complete bool, err error) {
	if len(block) == 0 {
		return l.received, false, newBlockError("decode", block, ErrMalformedBlock)
	}

	pcb := block[0]
	inf := block[1:]

	if IsChained(pcb) {
		if !l.IsChaining(block) {
			return l.received, false, newBlockError("decode", block, ErrUnexpectedContinuation)
		}
		if err := l.checkCapacity(dst, block); err != nil {
			return l.received, false, err
		}
		l.received += copy(dst[l.received:], inf)
		l.rx = rxReassembling
		return l.received, false, nil
	}

	if pcb != l.pcbPrev {
		return l.received, false, newBlockError("decode", block, ErrUnexpectedContinuation)
	}
	if err := l.checkCapacity(dst, block); err != nil {
		return l.received, false, err
	}

	switch l.rx {
	case rxReassembling:
		n = l.received + copy(dst[l.received:], inf)
	default:
		n = copy(dst, inf)
	}
	l.rx = rxIdle
	l.received = 0
	return n, true, nil
}

func (l *Layer) checkCapacity(dst, block []byte) error {
	if l.received+len(block)-1 > len(dst) {
		return newBlockError("decode", block, ErrBufferOverflow)
	}
	return nil
}

// follow aligns the layer with an I-block received from the reader when the
// layer plays the card role: the response must carry the reader's block number.
func (l *Layer) follow(pcb byte) {
	l.pcb = IBlockPCB(pcb, false)
	l.pcbPrev = l.pcb
}
