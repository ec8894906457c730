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

package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/ZaparooProject/go-isodep/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(probe Prober, present map[string]bool, buses ...busRef) *Detector {
	d := New(probe)
	d.listBuses = func() ([]busRef, error) { return buses, nil }
	d.probeAddress = func(bus string, addr uint16) error {
		if addr != DefaultPN532Address || !present[bus] {
			return errors.New("address not acknowledged")
		}
		return nil
	}
	return d
}

var testBuses = []busRef{
	{Name: "/dev/i2c-1", Number: 1},
	{Name: "/dev/i2c-3", Number: 3},
}

func TestDetector_Passive(t *testing.T) {
	t.Parallel()

	d := newTestDetector(nil, nil, testBuses...)
	assert.Equal(t, "i2c", d.Transport())

	devices, err := d.Detect(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	for _, device := range devices {
		assert.Equal(t, detection.Low, device.Confidence)
		assert.Equal(t, "0x24", device.Metadata["address"])
	}
	assert.Equal(t, "3", devices[1].Metadata["bus"])
}

func TestDetector_SafeMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		probe          Prober
		present        map[string]bool
		name           string
		wantPaths      []string
		wantConfidence detection.Confidence
	}{
		{
			name:           "address acknowledged",
			present:        map[string]bool{"/dev/i2c-1": true},
			wantPaths:      []string{"/dev/i2c-1"},
			wantConfidence: detection.Medium,
		},
		{
			name:    "confirmed by prober",
			present: map[string]bool{"/dev/i2c-3": true},
			probe: func(context.Context, string) (map[string]string, error) {
				return map[string]string{"firmware": "1.6"}, nil
			},
			wantPaths:      []string{"/dev/i2c-3"},
			wantConfidence: detection.High,
		},
		{
			name:    "prober rejects",
			present: map[string]bool{"/dev/i2c-3": true},
			probe: func(context.Context, string) (map[string]string, error) {
				return nil, errors.New("bad frame")
			},
			wantPaths:      []string{"/dev/i2c-3"},
			wantConfidence: detection.Medium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := newTestDetector(tt.probe, tt.present, testBuses...)
			opts := detection.DefaultOptions()
			opts.Mode = detection.Safe

			devices, err := d.Detect(context.Background(), &opts)
			require.NoError(t, err)

			paths := make([]string, 0, len(devices))
			for _, device := range devices {
				paths = append(paths, device.Path)
				assert.Equal(t, tt.wantConfidence, device.Confidence)
			}
			assert.Equal(t, tt.wantPaths, paths)
		})
	}
}

func TestDetector_NothingFound(t *testing.T) {
	t.Parallel()

	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe
	_, err := newTestDetector(nil, nil, testBuses...).Detect(context.Background(), &opts)
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)

	opts = detection.DefaultOptions()
	opts.IgnorePaths = []string{"/dev/i2c-1", "/dev/i2c-3"}
	_, err = newTestDetector(nil, nil, testBuses...).Detect(context.Background(), &opts)
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)

	_, err = newTestDetector(nil, nil).Detect(context.Background(), nil)
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestDetector_UnsupportedHostSkippedByRegistry(t *testing.T) {
	t.Parallel()

	d := New(nil)
	d.listBuses = func() ([]busRef, error) {
		return nil, detection.ErrUnsupportedPlatform
	}

	_, err := detection.NewRegistry(d).DetectAll(context.Background(), nil)
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}
