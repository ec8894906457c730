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

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_Bytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cmd  Command
		want []byte
	}{
		{
			name: "case 1",
			cmd:  Command{CLA: 0x00, INS: 0xA4, P1: 0x04, P2: 0x00},
			want: []byte{0x00, 0xA4, 0x04, 0x00},
		},
		{
			name: "case 2 short",
			cmd:  Command{INS: InsReadBinary, Ne: 15},
			want: []byte{0x00, 0xB0, 0x00, 0x00, 0x0F},
		},
		{
			name: "case 2 short Le 256",
			cmd:  Command{INS: InsReadBinary, Ne: 256},
			want: []byte{0x00, 0xB0, 0x00, 0x00, 0x00},
		},
		{
			name: "case 3 short",
			cmd:  Command{INS: InsSelect, P2: 0x0C, Data: []byte{0xE1, 0x03}},
			want: []byte{0x00, 0xA4, 0x00, 0x0C, 0x02, 0xE1, 0x03},
		},
		{
			name: "case 4 short",
			cmd:  Command{INS: InsSelect, P1: 0x04, Data: []byte{0xD2, 0x76}, Ne: 256},
			want: []byte{0x00, 0xA4, 0x04, 0x00, 0x02, 0xD2, 0x76, 0x00},
		},
		{
			name: "case 2 extended",
			cmd:  Command{INS: InsReadBinary, Ne: 1024},
			want: []byte{0x00, 0xB0, 0x00, 0x00, 0x00, 0x04, 0x00},
		},
		{
			name: "case 4 extended Le 65536",
			cmd:  Command{INS: InsUpdateBinary, Data: []byte{0x01}, Ne: MaxExtendedLe},
			want: []byte{0x00, 0xD6, 0x00, 0x00, 0x00, 0x00, 0x01, 0x01, 0x00, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.cmd.Bytes()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			parsed, err := ParseCommand(got)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd.INS, parsed.INS)
			assert.Equal(t, tt.cmd.Ne, parsed.Ne)
			assert.Equal(t, len(tt.cmd.Data), len(parsed.Data))
		})
	}
}

func TestCommand_Bytes_ExtendedData(t *testing.T) {
	t.Parallel()

	cmd := Command{INS: InsUpdateBinary, Data: bytes.Repeat([]byte{0xAB}, 300)}
	raw, err := cmd.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x2C}, raw[4:7])
	assert.Len(t, raw, 4+3+300)

	parsed, err := ParseCommand(raw)
	require.NoError(t, err)
	assert.Equal(t, cmd.Data, parsed.Data)
}

func TestCommand_Bytes_Invalid(t *testing.T) {
	t.Parallel()

	_, err := (&Command{Data: make([]byte, MaxExtendedLc+1)}).Bytes()
	require.ErrorIs(t, err, ErrDataTooLarge)

	_, err = (&Command{Ne: -1}).Bytes()
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestParseCommand_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		raw     []byte
	}{
		{name: "short header", raw: []byte{0x00, 0xA4, 0x04}, wantErr: ErrCommandTooShort},
		{name: "Lc beyond body", raw: []byte{0x00, 0xA4, 0x04, 0x00, 0x05, 0x01}, wantErr: ErrInvalidLength},
		{name: "trailing bytes", raw: []byte{0x00, 0xA4, 0x04, 0x00, 0x01, 0x01, 0x00, 0x00}, wantErr: ErrInvalidLength},
		{name: "truncated extended", raw: []byte{0x00, 0xB0, 0x00, 0x00, 0x00, 0x01}, wantErr: ErrInvalidLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseCommand(tt.raw)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseResponse(t *testing.T) {
	t.Parallel()

	resp, err := ParseResponse([]byte{0x01, 0x02, 0x90, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, resp.Data)
	assert.Equal(t, SWSuccess, resp.Status)
	assert.Equal(t, []byte{0x01, 0x02, 0x90, 0x00}, resp.Bytes())

	resp, err = ParseResponse([]byte{0x6A, 0x82})
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
	assert.Equal(t, SWFileNotFound, resp.Status)

	_, err = ParseResponse([]byte{0x90})
	require.ErrorIs(t, err, ErrResponseTooShort)
}

func TestStatusWord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contains  string
		sw        StatusWord
		isSuccess bool
		isWarning bool
		isError   bool
	}{
		{sw: SWSuccess, isSuccess: true, contains: "success"},
		{sw: NewStatusWord(0x61, 0x10), isSuccess: true, contains: "16 bytes available"},
		{sw: SWWarnEOF, isWarning: true, contains: "end of file"},
		{sw: NewStatusWord(0x6C, 0x0F), isError: true, contains: "card expects 15"},
		{sw: SWFileNotFound, isError: true, contains: "not found"},
		{sw: NewStatusWord(0x69, 0x99), isError: true, contains: "checking error"},
		{sw: NewStatusWord(0x12, 0x34), contains: "unknown status"},
	}

	for _, tt := range tests {
		t.Run(tt.sw.String(), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.isSuccess, tt.sw.IsSuccess())
			assert.Equal(t, tt.isWarning, tt.sw.IsWarning())
			assert.Equal(t, tt.isError, tt.sw.IsError())
			assert.Contains(t, tt.sw.Verbose(), tt.contains)
		})
	}
}

type scriptedCard struct {
	responses [][]byte
	sent      [][]byte
	err       error
}

func (s *scriptedCard) Transmit(cmd []byte) ([]byte, error) {
	s.sent = append(s.sent, append([]byte(nil), cmd...))
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return []byte{0x6F, 0x00}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func TestClient_Send(t *testing.T) {
	t.Parallel()

	card := &scriptedCard{responses: [][]byte{{0x90, 0x00}}}
	trace, err := NewClient(card).Send(SelectByName([]byte{0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01}))

	require.NoError(t, err)
	require.Len(t, trace, 1)
	assert.Equal(t, SWSuccess, trace.Status())
	assert.Equal(t, []byte{0x00, 0xA4, 0x04, 0x00, 0x07, 0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01, 0x00}, card.sent[0])
}

func TestClient_Send_GetResponse(t *testing.T) {
	t.Parallel()

	card := &scriptedCard{responses: [][]byte{
		{0xAA, 0x61, 0x02},
		{0xBB, 0xCC, 0x90, 0x00},
	}}
	trace, err := NewClient(card).Send(ReadBinary(0, 3))

	require.NoError(t, err)
	require.Len(t, trace, 2)
	assert.Equal(t, []byte{0x00, 0xC0, 0x00, 0x00, 0x02}, card.sent[1])
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, trace.Data())
	assert.Equal(t, SWSuccess, trace.Status())
}

func TestClient_Send_WrongLength(t *testing.T) {
	t.Parallel()

	card := &scriptedCard{responses: [][]byte{
		{0x6C, 0x04},
		{0x01, 0x02, 0x03, 0x04, 0x90, 0x00},
	}}
	trace, err := NewClient(card).Send(ReadBinary(0x0010, 2))

	require.NoError(t, err)
	require.Len(t, trace, 2)
	assert.Equal(t, []byte{0x00, 0xB0, 0x00, 0x10, 0x04}, card.sent[1])
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, trace.Data())
}

func TestClient_Send_TransmitError(t *testing.T) {
	t.Parallel()

	errLink := errors.New("link down")
	card := &scriptedCard{err: errLink}
	_, err := NewClient(card).Send(SelectFile(0xE103))

	require.ErrorIs(t, err, errLink)
	assert.Contains(t, err.Error(), "transmission error")
}

func TestClient_Send_EndlessFollowUps(t *testing.T) {
	t.Parallel()

	responses := make([][]byte, maxFollowUps+1)
	for i := range responses {
		responses[i] = []byte{0x61, 0x01}
	}
	trace, err := NewClient(&scriptedCard{responses: responses}).Send(ReadBinary(0, 1))

	require.Error(t, err)
	assert.Len(t, trace, maxFollowUps)
}

func TestCommandBuilders(t *testing.T) {
	t.Parallel()

	raw, err := SelectFile(0xE104).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xA4, 0x00, 0x0C, 0x02, 0xE1, 0x04}, raw)

	raw, err = ReadBinary(0x0102, 0x3B).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xB0, 0x01, 0x02, 0x3B}, raw)

	raw, err = UpdateBinary(0, []byte{0x00, 0x00}).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xD6, 0x00, 0x00, 0x02, 0x00, 0x00}, raw)
}
