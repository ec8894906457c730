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

import "fmt"

// Protocol control byte layout (ISO/IEC 14443-4 §7.1.1.1).
//
//	I-block: 0 0 0 C 0 0 1 N   C = chaining, N = block number
//	R-block: 1 0 1 A 0 0 1 N   A = NAK
//	S-block: 1 1 x x 0 0 1 0   xx = 00 DESELECT, 11 WTX
const (
	PCBTypeMask  byte = 0xC0 // bits 7,6
	PCBTypeI     byte = 0x00
	PCBTypeR     byte = 0x80
	PCBTypeS     byte = 0xC0
	PCBFixedBit  byte = 0x02 // always set on every block kind
	PCBChaining  byte = 0x10 // I-block: more blocks follow
	PCBBlockNum  byte = 0x01 // I/R-block: sequence toggle
	PCBRNak      byte = 0x10 // R-block: negative acknowledgement
	PCBRFixedBit byte = 0x20 // R-block: bit 5 is always set
	PCBSWTXMask  byte = 0x30 // S-block: 00 = DESELECT, 11 = WTX
)

// Canonical control bytes.
const (
	PCBInitial  = PCBTypeI | PCBFixedBit                // 0x02
	PCBRAck     = PCBTypeR | PCBRFixedBit | PCBFixedBit // 0xA2
	PCBRNakBase = PCBRAck | PCBRNak                     // 0xB2
	PCBDeselect = PCBTypeS | PCBFixedBit                // 0xC2
	PCBWTX      = PCBTypeS | PCBSWTXMask | PCBFixedBit  // 0xF2
)

// BlockType is the kind of block encoded in the two most significant PCB bits.
type BlockType byte

const (
	BlockI BlockType = iota
	BlockR
	BlockS
	BlockInvalid
)

func (t BlockType) String() string {
	switch t {
	case BlockI:
		return "I-block"
	case BlockR:
		return "R-block"
	case BlockS:
		return "S-block"
	default:
		return fmt.Sprintf("BlockType(%d)", byte(t))
	}
}

// TypeOf classifies a protocol control byte.
func TypeOf(pcb byte) BlockType {
	switch pcb & PCBTypeMask {
	case PCBTypeI:
		return BlockI
	case PCBTypeR:
		return BlockR
	case PCBTypeS:
		return BlockS
	default:
		return BlockInvalid
	}
}

// IBlockPCB builds an I-block control byte.
func IBlockPCB(blockNum byte, chaining bool) byte {
	pcb := PCBInitial | blockNum&PCBBlockNum
	if chaining {
		pcb |= PCBChaining
	}
	return pcb
}

// RBlockPCB builds an R(ACK) or R(NAK) control byte.
func RBlockPCB(blockNum byte, nak bool) byte {
	pcb := PCBRAck | blockNum&PCBBlockNum
	if nak {
		pcb |= PCBRNak
	}
	return pcb
}

// IsChained reports whether an I-block PCB has the chaining flag set.
func IsChained(pcb byte) bool {
	return TypeOf(pcb) == BlockI && pcb&PCBChaining != 0
}

// IsNAK reports whether an R-block PCB is a negative acknowledgement.
func IsNAK(pcb byte) bool {
	return TypeOf(pcb) == BlockR && pcb&PCBRNak != 0
}

// IsWTX reports whether an S-block PCB is a waiting time extension request.
func IsWTX(pcb byte) bool {
	return TypeOf(pcb) == BlockS && pcb&PCBSWTXMask == PCBSWTXMask
}

// IsDeselect reports whether an S-block PCB is a DESELECT.
func IsDeselect(pcb byte) bool {
	return TypeOf(pcb) == BlockS && pcb&PCBSWTXMask == 0
}

// DescribePCB returns a short human readable form of a control byte, used in logs.
func DescribePCB(pcb byte) string {
	switch TypeOf(pcb) {
	case BlockI:
		if pcb&PCBChaining != 0 {
			return fmt.Sprintf("I(%d,chained)", pcb&PCBBlockNum)
		}
		return fmt.Sprintf("I(%d)", pcb&PCBBlockNum)
	case BlockR:
		if pcb&PCBRNak != 0 {
			return fmt.Sprintf("R(NAK,%d)", pcb&PCBBlockNum)
		}
		return fmt.Sprintf("R(ACK,%d)", pcb&PCBBlockNum)
	case BlockS:
		if IsWTX(pcb) {
			return "S(WTX)"
		}
		if IsDeselect(pcb) {
			return "S(DESELECT)"
		}
		return fmt.Sprintf("S(%02X)", pcb)
	default:
		return fmt.Sprintf("PCB(%02X)", pcb)
	}
}
