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

package type4_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ZaparooProject/go-isodep"
	"github.com/ZaparooProject/go-isodep/apdu"
	testutil "github.com/ZaparooProject/go-isodep/internal/testing"
	"github.com/ZaparooProject/go-isodep/type4"
	"github.com/hsanjuan/go-ndef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTag(t *testing.T, card isodep.APDUHandler) *type4.Tag {
	t.Helper()

	transport, err := testutil.NewCardTransport(card)
	require.NoError(t, err)
	session, err := isodep.NewSession(transport)
	require.NoError(t, err)
	return type4.New(session)
}

func countINS(commands [][]byte, ins byte) int {
	n := 0
	for _, c := range commands {
		if len(c) > 1 && c[1] == ins {
			n++
		}
	}
	return n
}

func marshalText(t *testing.T, text string) []byte {
	t.Helper()
	raw, err := ndef.NewTextMessage(text, "en").Marshal()
	require.NoError(t, err)
	return raw
}

func TestTag_ReadCapabilityContainer(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualType4Card(nil)
	cc, err := newTag(t, card).ReadCapabilityContainer()
	require.NoError(t, err)

	assert.Equal(t, byte(0x20), cc.MappingVersion)
	assert.Equal(t, uint16(testutil.DefaultMLe), cc.MaxReadSize)
	assert.Equal(t, uint16(testutil.DefaultMLc), cc.MaxWriteSize)
	assert.Equal(t, testutil.NDEFFileID, cc.NDEFFileID)
	assert.Equal(t, uint16(testutil.DefaultNDEFFileSize), cc.NDEFFileSize)
	assert.True(t, cc.Readable())
	assert.True(t, cc.Writable())
	assert.Equal(t, testutil.DefaultNDEFFileSize-2, cc.MaxMessageSize())
	assert.Contains(t, cc.String(), "file=E104")
}

func TestTag_ReadNDEF(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualType4Card(nil)
	msg, err := newTag(t, card).ReadNDEF()
	require.NoError(t, err)

	got, err := msg.Marshal()
	require.NoError(t, err)
	assert.Equal(t, marshalText(t, "Hello World"), got)
	assert.Len(t, msg.Records, 1)
}

func TestTag_ReadNDEF_Chunked(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualType4Card(nil)
	text := strings.Repeat("0123456789", 30)
	require.NoError(t, card.SetNDEFText(text))
	want := card.NDEF()

	raw, err := newTag(t, card).ReadNDEFBytes()
	require.NoError(t, err)
	assert.Equal(t, want, raw)

	// CC, NLEN, then ceil(len/MLe) data reads
	wantReads := 2 + (len(want)+testutil.DefaultMLe-1)/testutil.DefaultMLe
	assert.Equal(t, wantReads, countINS(card.Commands, apdu.InsReadBinary))
}

func TestTag_WriteNDEF(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualType4Card(nil)
	tag := newTag(t, card)

	text := strings.Repeat("zaparoo ", 20)
	require.NoError(t, tag.WriteNDEF(ndef.NewTextMessage(text, "en")))
	want := marshalText(t, text)
	assert.Equal(t, want, card.NDEF())

	// NLEN cleared, data in MLc chunks, NLEN set
	updates := make([][]byte, 0)
	for _, c := range card.Commands {
		if c[1] == apdu.InsUpdateBinary {
			updates = append(updates, c)
		}
	}
	wantChunks := (len(want) + testutil.DefaultMLc - 1) / testutil.DefaultMLc
	require.Len(t, updates, wantChunks+2)
	assert.Equal(t, []byte{0x00, 0xD6, 0x00, 0x00, 0x02, 0x00, 0x00}, updates[0])
	last := updates[len(updates)-1]
	assert.Equal(t, []byte{0x00, 0xD6, 0x00, 0x00, 0x02, byte(len(want) >> 8), byte(len(want))}, last)
	for _, u := range updates[1 : len(updates)-1] {
		assert.LessOrEqual(t, int(u[4]), testutil.DefaultMLc)
	}

	raw, err := tag.ReadNDEFBytes()
	require.NoError(t, err)
	assert.Equal(t, want, raw)
}

func TestTag_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setup   func(*testutil.VirtualCard)
		wantErr error
		name    string
		write   []byte
	}{
		{
			name:    "empty NDEF file",
			setup:   func(c *testutil.VirtualCard) { c.SetNDEF(nil) },
			wantErr: type4.ErrNoNDEF,
		},
		{
			name: "read-only tag",
			setup: func(c *testutil.VirtualCard) {
				c.SetFile(0xE103, testutil.BuildCapabilityContainer(0x3B, 0x34, 0xE104, 0x0800, 0xFF))
			},
			write:   []byte{0xD1, 0x01, 0x00, 0x54},
			wantErr: type4.ErrReadOnly,
		},
		{
			name: "read-protected tag",
			setup: func(c *testutil.VirtualCard) {
				cc := testutil.BuildCapabilityContainer(0x3B, 0x34, 0xE104, 0x0800, 0x00)
				cc[13] = 0x80
				c.SetFile(0xE103, cc)
			},
			wantErr: type4.ErrReadProtected,
		},
		{
			name: "message too large",
			setup: func(c *testutil.VirtualCard) {
				c.SetFile(0xE103, testutil.BuildCapabilityContainer(0x3B, 0x34, 0xE104, 0x0010, 0x00))
			},
			write:   bytes.Repeat([]byte{0x55}, 15),
			wantErr: type4.ErrNDEFTooLarge,
		},
		{
			name: "NLEN beyond file",
			setup: func(c *testutil.VirtualCard) {
				c.SetFile(0xE103, testutil.BuildCapabilityContainer(0x3B, 0x34, 0xE104, 0x0010, 0x00))
				c.SetFile(0xE104, []byte{0x00, 0x40, 0xD1})
			},
			wantErr: type4.ErrInvalidCC,
		},
		{
			name:    "short CC",
			setup:   func(c *testutil.VirtualCard) { c.SetFile(0xE103, []byte{0x00, 0x0F, 0x20}) },
			wantErr: type4.ErrInvalidCC,
		},
		{
			name: "NDEF file missing",
			setup: func(c *testutil.VirtualCard) {
				c.SetFile(0xE103, testutil.BuildCapabilityContainer(0x3B, 0x34, 0xE105, 0x0800, 0x00))
			},
			wantErr: type4.ErrNotType4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			card := testutil.NewVirtualType4Card(nil)
			tt.setup(card)
			tag := newTag(t, card)

			var err error
			if tt.write != nil {
				err = tag.WriteNDEFBytes(tt.write)
			} else {
				_, err = tag.ReadNDEF()
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTag_NotType4(t *testing.T) {
	t.Parallel()

	card := isodep.APDUHandlerFunc(func(context.Context, []byte) ([]byte, error) {
		return []byte{0x6A, 0x82}, nil
	})
	_, err := newTag(t, card).ReadNDEF()
	require.ErrorIs(t, err, type4.ErrNotType4)
}

func TestTag_StatusError(t *testing.T) {
	t.Parallel()

	card := isodep.APDUHandlerFunc(func(context.Context, []byte) ([]byte, error) {
		return []byte{0x69, 0x85}, nil
	})
	_, err := newTag(t, card).ReadCapabilityContainer()

	var se *type4.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apdu.SWConditionsNotMet, se.Status)
	assert.Contains(t, se.Error(), "conditions of use not satisfied")
}

func TestTag_CardRemoved(t *testing.T) {
	t.Parallel()

	card := testutil.NewVirtualType4Card(nil)
	card.Remove()

	_, err := newTag(t, card).ReadNDEF()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseCapabilityContainer(t *testing.T) {
	t.Parallel()

	valid := testutil.BuildCapabilityContainer(0x00FF, 0x00F6, 0xE104, 0x1000, 0x00)

	tests := []struct {
		mutate  func([]byte)
		name    string
		wantErr bool
	}{
		{name: "valid", mutate: func([]byte) {}},
		{name: "mapping version 1.0", mutate: func(b []byte) { b[2] = 0x10 }},
		{name: "mapping version 3.0", mutate: func(b []byte) { b[2] = 0x30 }, wantErr: true},
		{name: "CCLEN too small", mutate: func(b []byte) { b[1] = 0x0E }, wantErr: true},
		{name: "zero MLe", mutate: func(b []byte) { b[3], b[4] = 0, 0 }, wantErr: true},
		{name: "wrong TLV", mutate: func(b []byte) { b[7] = 0x05 }, wantErr: true},
		{name: "tiny file", mutate: func(b []byte) { b[11], b[12] = 0, 2 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := append([]byte(nil), valid...)
			tt.mutate(data)
			cc, err := type4.ParseCapabilityContainer(data)
			if tt.wantErr {
				require.ErrorIs(t, err, type4.ErrInvalidCC)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint16(0x1000), cc.NDEFFileSize)
		})
	}
}
