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

package pn532

import (
	"testing"
	"time"

	"github.com/ZaparooProject/go-isodep"
	testutil "github.com/ZaparooProject/go-isodep/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	t.Parallel()

	res := testutil.BuildISODEPTargetResponse(testutil.TestType4UID, testutil.TestType4ATS)
	target, err := parseTarget(res[2:])
	require.NoError(t, err)

	assert.Equal(t, byte(1), target.Number)
	assert.Equal(t, [2]byte{0x03, 0x44}, target.ATQA)
	assert.Equal(t, byte(0x20), target.SAK)
	assert.Equal(t, testutil.TestType4UID, target.UID)
	assert.Equal(t, testutil.TestType4ATS, target.ATS)
	assert.True(t, target.SupportsISODEP())
	assert.Contains(t, target.String(), "04526a1ab25f80")
}

func TestParseTarget_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "too short", data: []byte{0x01, 0x00, 0x44}},
		{name: "truncated UID", data: []byte{0x01, 0x00, 0x44, 0x20, 0x07, 0x04, 0x52}},
		{name: "zero ATS length", data: []byte{0x01, 0x00, 0x44, 0x20, 0x01, 0x04, 0x00}},
		{name: "ATS longer than data", data: []byte{0x01, 0x00, 0x44, 0x20, 0x01, 0x04, 0x06, 0x75}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseTarget(tt.data)
			require.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestTarget_FrameParameters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ats       []byte
		wantFSCI  byte
		wantFSC   int
		wantFWI   byte
		supported bool
	}{
		{
			name:      "type 4 test card",
			ats:       testutil.TestType4ATS,
			wantFSCI:  5,
			wantFSC:   64,
			wantFWI:   8,
			supported: true,
		},
		{
			name:      "no interface bytes",
			ats:       []byte{0x02, 0x08},
			wantFSCI:  8,
			wantFSC:   256,
			wantFWI:   4,
			supported: true,
		},
		{
			name:      "TB without TA",
			ats:       []byte{0x03, 0x28, 0xA1},
			wantFSCI:  8,
			wantFSC:   256,
			wantFWI:   10,
			supported: true,
		},
		{
			name:      "RFU FWI falls back",
			ats:       []byte{0x03, 0x22, 0xF1},
			wantFSCI:  2,
			wantFSC:   32,
			wantFWI:   4,
			supported: true,
		},
		{
			name:      "large FSCI capped",
			ats:       []byte{0x02, 0x0C},
			wantFSCI:  12,
			wantFSC:   256,
			wantFWI:   4,
			supported: true,
		},
		{
			name:      "RFU FSCI capped",
			ats:       []byte{0x02, 0x0D},
			wantFSCI:  13,
			wantFSC:   256,
			wantFWI:   4,
			supported: true,
		},
		{
			name:     "TL only",
			ats:      []byte{0x01},
			wantFSCI: 2,
			wantFSC:  32,
			wantFWI:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sak := byte(0x20)
			if !tt.supported {
				sak = 0
			}
			target := &Target{SAK: sak, ATS: tt.ats}

			assert.Equal(t, tt.wantFSCI, target.FrameSizeIndex())
			assert.Equal(t, tt.wantFSC, target.FrameSize())
			assert.Equal(t, tt.wantFWI, target.FrameWaitIndex())
			assert.Equal(t, tt.supported, target.SupportsISODEP())
		})
	}
}

func TestTarget_FrameWaitTime(t *testing.T) {
	t.Parallel()

	target := &Target{SAK: 0x20, ATS: testutil.TestType4ATS}
	fwt := target.FrameWaitTime()
	assert.InDelta(t, 77.3, float64(fwt)/float64(time.Millisecond), 0.1)

	config := isodep.DefaultConfig()
	for _, opt := range target.SessionOptions() {
		require.NoError(t, opt(config))
	}
	assert.Equal(t, 64, config.MaxFrameSize)
	assert.Equal(t, fwt+linkMargin, config.FrameTimeout)
}
