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

package main

import (
	"testing"
	"time"

	"github.com/ZaparooProject/go-isodep/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want    *config
		name    string
		wantErr string
		args    []string
	}{
		{
			name: "defaults",
			want: &config{timeout: 30 * time.Second},
		},
		{
			name: "all flags",
			args: []string{"-d", "/dev/ttyUSB0", "--timeout", "5s", "--frame-size", "64", "--debug",
				"--apdu", "00A4040007D2760000850101"},
			want: &config{
				device:    "/dev/ttyUSB0",
				apdu:      "00A4040007D2760000850101",
				timeout:   5 * time.Second,
				frameSize: 64,
				debug:     true,
			},
		},
		{
			name:    "apdu with write",
			args:    []string{"--apdu", "00B0000000", "--write", "hello"},
			wantErr: "cannot be combined",
		},
		{
			name: "largest frame size",
			args: []string{"--frame-size", "4096"},
			want: &config{timeout: 30 * time.Second, frameSize: 4096},
		},
		{
			name:    "frame size too large",
			args:    []string{"--frame-size", "5000"},
			wantErr: "between 16 and 4096",
		},
		{
			name:    "frame size too small",
			args:    []string{"--frame-size", "8"},
			wantErr: "between 16 and 4096",
		},
		{
			name:    "zero timeout",
			args:    []string{"--timeout", "0s"},
			wantErr: "must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := parseFlags(tt.args)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestOpenDetectedUnknownTransport(t *testing.T) {
	t.Parallel()

	_, err := openDetected(detection.DeviceInfo{Transport: "spi", Path: "/dev/spidev0.0"})
	require.ErrorContains(t, err, "unsupported transport type")
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"i2c", "uart"}, newRegistry().Transports())
}
