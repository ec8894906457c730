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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBuild_GetFirmwareVersion(t *testing.T) {
	t.Parallel()

	got, err := Build(nil, HostToPn532, []byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00}, got)
	assert.Equal(t, len(got), Size([]byte{0x02}))
}

func TestBuild_Extended(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{0x01}, 299)
	_, err := Build(nil, HostToPn532, payload)
	require.ErrorIs(t, err, ErrTooLarge)

	payload = bytes.Repeat([]byte{0x01}, 259)
	got, err := Build(nil, HostToPn532, payload)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0xFF, 0xFF, 0x01, 0x04, 0xFB, 0xD4}, got[:9])
	assert.Equal(t, len(got), Size(payload))

	parsed, n, err := Parse(got, HostToPn532)
	require.NoError(t, err)
	assert.Equal(t, len(got), n)
	assert.Equal(t, payload, parsed.Data)
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr  error
		name     string
		buf      []byte
		wantData []byte
		wantKind Kind
		wantN    int
	}{
		{
			name:     "ACK",
			buf:      AckFrame,
			wantKind: KindAck,
			wantN:    6,
		},
		{
			name:     "NACK",
			buf:      NackFrame,
			wantKind: KindNack,
			wantN:    6,
		},
		{
			name:     "ACK followed by response",
			buf:      append(append([]byte(nil), AckFrame...), 0x00, 0x00, 0xFF),
			wantKind: KindAck,
			wantN:    6,
		},
		{
			name:     "firmware version response",
			buf:      []byte{0x00, 0x00, 0xFF, 0x06, 0xFA, 0xD5, 0x03, 0x32, 0x01, 0x06, 0x07, 0xE8, 0x00},
			wantKind: KindInformation,
			wantData: []byte{0x03, 0x32, 0x01, 0x06, 0x07},
			wantN:    13,
		},
		{
			name:     "leading garbage and no postamble",
			buf:      []byte{0x55, 0x55, 0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD5, 0x15, 0x16},
			wantKind: KindInformation,
			wantData: []byte{0x15},
			wantN:    10,
		},
		{
			name:    "application error frame",
			buf:     ErrorFrame,
			wantErr: ErrApplicationError,
			wantN:   8,
		},
		{
			name:    "truncated body",
			buf:     []byte{0x00, 0x00, 0xFF, 0x06, 0xFA, 0xD5, 0x03},
			wantErr: ErrIncomplete,
		},
		{
			name:    "no start code",
			buf:     []byte{0x55, 0x55, 0x55},
			wantErr: ErrIncomplete,
		},
		{
			name:    "bad length checksum",
			buf:     []byte{0x00, 0x00, 0xFF, 0x02, 0xFD, 0xD5, 0x15, 0x16, 0x00},
			wantErr: ErrLengthChecksum,
		},
		{
			name:    "bad data checksum",
			buf:     []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD5, 0x15, 0x17, 0x00},
			wantErr: ErrDataChecksum,
			wantN:   9,
		},
		{
			name:    "host frame where device frame expected",
			buf:     []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00},
			wantErr: ErrWrongDirection,
			wantN:   9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, n, err := Parse(tt.buf, Pn532ToHost)
			assert.Equal(t, tt.wantN, n)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantData, got.Data)
		})
	}
}

func TestBuildParse_Property(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 1, MaxExtendedDataLength-1).Draw(t, "payload")

		buf, err := Build(nil, Pn532ToHost, payload)
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		got, n, err := Parse(buf, Pn532ToHost)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if n != len(buf) || !bytes.Equal(got.Data, payload) {
			t.Fatalf("mismatch: n=%d len=%d", n, len(buf))
		}
	})
}

func TestBufferPool(t *testing.T) {
	t.Parallel()

	small := GetBuffer(6)
	assert.Len(t, small, 6)
	PutBuffer(small)

	large := GetBuffer(200)
	assert.Len(t, large, 200)
	large[0] = 0xAA
	PutBuffer(large)

	again := GetBuffer(200)
	assert.Zero(t, again[0])
	PutBuffer(again)

	huge := GetBuffer(largeBufferSize + 1)
	assert.Len(t, huge, largeBufferSize+1)
	PutBuffer(huge)
}
