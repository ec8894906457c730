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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateChecksum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{name: "empty data", data: []byte{}, want: 0},
		{name: "single byte", data: []byte{0x42}, want: 0x42},
		{name: "overflow wraps", data: []byte{0xFF, 0x01}, want: 0x00},
		{name: "multiple bytes", data: []byte{0x01, 0x02, 0x03, 0x04}, want: 0x0A},
		{
			name: "InCommunicateThru with I-block",
			data: []byte{0xD4, 0x42, 0x02, 0x00, 0xA4, 0x04, 0x00},
			want: 0xC0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CalculateChecksum(tt.data))
		})
	}
}

func TestValidateChecksum(t *testing.T) {
	t.Parallel()

	assert.False(t, ValidateChecksum([]byte{0x10, 0xF0}))
	assert.True(t, ValidateChecksum([]byte{0x10, 0x20}), "non-zero sum needs a NACK")
	assert.False(t, ValidateChecksum(nil))
	assert.False(t, ValidateChecksum([]byte{0xD4, 0x03, 0x29}))
}

func TestCalculateDataChecksum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0x2A), CalculateDataChecksum(HostToPn532, []byte{0x02}))
	assert.Equal(t, byte(0x2C), CalculateDataChecksum(HostToPn532, nil))
	assert.Equal(t, byte(0x26), CalculateDataChecksum(HostToPn532, []byte{0x02, 0x01, 0x03}))
}

// Length plus LCS is always zero modulo 256.
func TestCalculateLengthChecksum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0xFE), CalculateLengthChecksum(0x02))
	assert.Equal(t, byte(0x00), CalculateLengthChecksum(0x00))
	for i := 0; i < 256; i++ {
		length := byte(i)
		assert.Zero(t, length+CalculateLengthChecksum(length), "length %d", i)
	}
}
