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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPCBConstants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0x02), PCBInitial)
	assert.Equal(t, byte(0xA2), PCBRAck)
	assert.Equal(t, byte(0xB2), PCBRNakBase)
	assert.Equal(t, byte(0xC2), PCBDeselect)
	assert.Equal(t, byte(0xF2), PCBWTX)
}

func TestTypeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pcb  byte
		want BlockType
	}{
		{name: "I-block", pcb: 0x02, want: BlockI},
		{name: "chained I-block", pcb: 0x13, want: BlockI},
		{name: "R(ACK)", pcb: 0xA3, want: BlockR},
		{name: "R(NAK)", pcb: 0xB2, want: BlockR},
		{name: "S(DESELECT)", pcb: 0xC2, want: BlockS},
		{name: "S(WTX)", pcb: 0xF2, want: BlockS},
		{name: "reserved", pcb: 0x42, want: BlockInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TypeOf(tt.pcb))
		})
	}
}

func TestPCBBuilders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0x02), IBlockPCB(0, false))
	assert.Equal(t, byte(0x03), IBlockPCB(1, false))
	assert.Equal(t, byte(0x13), IBlockPCB(0xA3, true))
	assert.Equal(t, byte(0xA2), RBlockPCB(0x02, false))
	assert.Equal(t, byte(0xB3), RBlockPCB(0x03, true))
}

func TestPCBPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, IsChained(0x12))
	assert.False(t, IsChained(0x02))
	assert.False(t, IsChained(0xB2), "NAK bit is not chaining")

	assert.True(t, IsNAK(0xB3))
	assert.False(t, IsNAK(0xA3))
	assert.False(t, IsNAK(0x12))

	assert.True(t, IsWTX(0xF2))
	assert.False(t, IsWTX(0xC2))
	assert.True(t, IsDeselect(0xC2))
	assert.False(t, IsDeselect(0xF2))
}

func TestDescribePCB(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "I(0)", DescribePCB(0x02))
	assert.Equal(t, "I(1,chained)", DescribePCB(0x13))
	assert.Equal(t, "R(ACK,1)", DescribePCB(0xA3))
	assert.Equal(t, "R(NAK,0)", DescribePCB(0xB2))
	assert.Equal(t, "S(WTX)", DescribePCB(0xF2))
	assert.Equal(t, "S(DESELECT)", DescribePCB(0xC2))
	assert.Equal(t, "PCB(42)", DescribePCB(0x42))
	assert.Equal(t, "I-block", BlockI.String())
}

func TestFrameSizeFromIndex(t *testing.T) {
	t.Parallel()

	size, err := FrameSizeFromIndex(0)
	assert.NoError(t, err)
	assert.Equal(t, 16, size)

	size, err = FrameSizeFromIndex(8)
	assert.NoError(t, err)
	assert.Equal(t, 256, size)

	_, err = FrameSizeFromIndex(13)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		opt     Option
		name    string
		wantErr bool
	}{
		{name: "defaults", opt: WithRetransmissions(2)},
		{name: "frame size too small", opt: WithMaxFrameSize(8), wantErr: true},
		{name: "frame size too large", opt: WithMaxFrameSize(8192), wantErr: true},
		{name: "frame size index", opt: WithFrameSizeIndex(5)},
		{name: "bad frame size index", opt: WithFrameSizeIndex(0x0F), wantErr: true},
		{name: "zero payload", opt: WithMaxPayloadSize(0), wantErr: true},
		{name: "zero timeout", opt: WithFrameTimeout(0), wantErr: true},
		{name: "negative wtx", opt: WithMaxWTXRequests(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := newConfig([]Option{tt.opt})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}
