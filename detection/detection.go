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

// Package detection finds PN532 readers attached to the host.
//
// Detectors are collected in an explicit Registry; nothing registers itself
// on import:
//
//	reg := detection.NewRegistry(uart.New(nil), i2c.New(nil))
//	devices, err := reg.DetectAll(ctx, nil)
package detection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// Detection errors
var (
	ErrNoDevicesFound       = errors.New("no PN532 devices found")
	ErrUnsupportedPlatform  = errors.New("transport not supported on this platform")
	ErrUnsupportedTransport = errors.New("no detector for transport")
	ErrDuplicateDetector    = errors.New("detector already registered")
	ErrDetectionTimeout     = errors.New("detection timed out")
)

// Mode controls how intrusive detection is allowed to be
type Mode int

const (
	// Passive only enumerates devices and never talks to them
	Passive Mode = iota
	// Safe sends a GetFirmwareVersion probe to candidate devices
	Safe
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Confidence ranks how likely a detected device is a PN532
type Confidence int

const (
	// Low confidence: the device merely exists
	Low Confidence = iota
	// Medium confidence: the device matches a known PN532 bridge or address
	Medium
	// High confidence: the device answered a PN532 probe
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
}

// DeviceInfo describes a detected device
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s:%s (%s, confidence %s)", d.Transport, d.Path, d.Name, d.Confidence)
}

// Options configures a detection run
type Options struct {
	// Blocklist holds VID:PID pairs that are never probed
	Blocklist []string
	// IgnorePaths holds device paths that are skipped entirely
	IgnorePaths []string
	// Transports restricts detection to these transports; empty means all
	Transports []string
	// Timeout bounds the whole run
	Timeout time.Duration
	// Mode selects passive enumeration or probing
	Mode Mode
}

// DefaultOptions returns passive detection with the default blocklist
func DefaultOptions() Options {
	return Options{
		Blocklist: DefaultBlocklist(),
		Timeout:   5 * time.Second,
		Mode:      Passive,
	}
}

// Detector finds devices for one transport
type Detector interface {
	// Transport returns the transport name, e.g. "uart"
	Transport() string
	// Detect returns the devices found. It returns ErrNoDevicesFound when the
	// transport works but nothing is attached.
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

// Registry holds the detectors used for auto-detection
type Registry struct {
	detectors map[string]Detector
	mu        sync.RWMutex
}

// NewRegistry creates a registry holding the given detectors. Later
// detectors with a duplicate transport name are ignored.
func NewRegistry(detectors ...Detector) *Registry {
	r := &Registry{detectors: make(map[string]Detector)}
	for _, d := range detectors {
		_ = r.Register(d)
	}
	return r
}

// Register adds a detector
func (r *Registry) Register(d Detector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := d.Transport()
	if _, ok := r.detectors[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateDetector, name)
	}
	r.detectors[name] = d
	return nil
}

// Transports returns the registered transport names in sorted order
func (r *Registry) Transports() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect runs the detector for one transport
func (r *Registry) Detect(ctx context.Context, transport string, opts *Options) ([]DeviceInfo, error) {
	r.mu.RLock()
	d, ok := r.detectors[transport]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTransport, transport)
	}

	opts = normalizeOptions(opts)
	ctx, cancel := withOptionalTimeout(ctx, opts.Timeout)
	defer cancel()

	devices, err := d.Detect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s detection: %w", transport, err)
	}
	return filterDevices(devices, opts), nil
}

// DetectAll runs every registered detector and returns the devices sorted by
// confidence, best first. Detectors that fail or find nothing are skipped;
// ErrNoDevicesFound is returned when no detector found anything.
func (r *Registry) DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	opts = normalizeOptions(opts)
	ctx, cancel := withOptionalTimeout(ctx, opts.Timeout)
	defer cancel()

	var (
		devices []DeviceInfo
		errs    []error
	)
	for _, name := range r.Transports() {
		if len(opts.Transports) > 0 && !slices.Contains(opts.Transports, name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return devices, fmt.Errorf("%w: %w", ErrDetectionTimeout, err)
		}

		r.mu.RLock()
		d := r.detectors[name]
		r.mu.RUnlock()

		found, err := d.Detect(ctx, opts)
		switch {
		case errors.Is(err, ErrNoDevicesFound), errors.Is(err, ErrUnsupportedPlatform):
		case err != nil:
			errs = append(errs, fmt.Errorf("%s detection: %w", name, err))
		default:
			devices = append(devices, filterDevices(found, opts)...)
		}
	}

	if len(devices) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(append([]error{ErrNoDevicesFound}, errs...)...)
		}
		return nil, ErrNoDevicesFound
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	return devices, nil
}

func normalizeOptions(opts *Options) *Options {
	if opts == nil {
		defaults := DefaultOptions()
		return &defaults
	}
	return opts
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func filterDevices(devices []DeviceInfo, opts *Options) []DeviceInfo {
	kept := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		if IsPathIgnored(d.Path, opts.IgnorePaths) {
			continue
		}
		if vidpid := d.Metadata["vidpid"]; vidpid != "" && IsBlocked(vidpid, opts.Blocklist) {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}
