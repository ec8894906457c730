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
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Frame size limits. A frame size counts the PCB and the two CRC bytes added
// by the transport, so the information field of a block is three bytes shorter.
const (
	MinFrameSize     = 16
	MaxFrameSize     = 4096
	DefaultFrameSize = 32
	frameOverhead    = 3
)

// Config holds the tunables shared by Session and Listener.
type Config struct {
	// Logger receives block-level traces at debug level.
	Logger zerolog.Logger
	// FrameTimeout bounds a single frame round trip (FWT). A WTX request
	// multiplies it for the next wait.
	FrameTimeout time.Duration
	// MaxFrameSize is the peer's frame size (FSC for a reader, FSD for a card).
	MaxFrameSize int
	// MaxPayloadSize is the capacity of the reassembly buffer.
	MaxPayloadSize int
	// MaxWTXRequests caps consecutive waiting time extensions per frame.
	MaxWTXRequests int
	// Retransmissions is how often a frame is resent after a transient
	// transport failure.
	Retransmissions int
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() *Config {
	return &Config{
		Logger:          zerolog.Nop(),
		FrameTimeout:    time.Second,
		MaxFrameSize:    DefaultFrameSize,
		MaxPayloadSize:  4096,
		MaxWTXRequests:  16,
		Retransmissions: 2,
	}
}

// Validate checks the configuration for values the protocol cannot work with.
func (c *Config) Validate() error {
	if c.MaxFrameSize < MinFrameSize || c.MaxFrameSize > MaxFrameSize {
		return fmt.Errorf("%w: frame size %d outside [%d, %d]",
			ErrInvalidConfig, c.MaxFrameSize, MinFrameSize, MaxFrameSize)
	}
	if c.MaxPayloadSize <= 0 {
		return fmt.Errorf("%w: payload size must be positive", ErrInvalidConfig)
	}
	if c.FrameTimeout <= 0 {
		return fmt.Errorf("%w: frame timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxWTXRequests < 0 || c.Retransmissions < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidConfig)
	}
	return nil
}

// maxInf is the largest information field that fits one frame.
func (c *Config) maxInf() int {
	return c.MaxFrameSize - frameOverhead
}

// Option configures a Session or Listener.
type Option func(*Config) error

// WithMaxFrameSize sets the peer's frame size in bytes.
func WithMaxFrameSize(size int) Option {
	return func(c *Config) error {
		c.MaxFrameSize = size
		return nil
	}
}

// WithFrameSizeIndex sets the frame size from an FSCI/FSDI code as found in
// the ATS or RATS.
func WithFrameSizeIndex(index byte) Option {
	return func(c *Config) error {
		size, err := FrameSizeFromIndex(index)
		if err != nil {
			return err
		}
		c.MaxFrameSize = size
		return nil
	}
}

// WithFrameTimeout sets the per frame timeout.
func WithFrameTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.FrameTimeout = timeout
		return nil
	}
}

// WithMaxPayloadSize sets the reassembly buffer capacity.
func WithMaxPayloadSize(size int) Option {
	return func(c *Config) error {
		c.MaxPayloadSize = size
		return nil
	}
}

// WithMaxWTXRequests limits consecutive waiting time extensions.
func WithMaxWTXRequests(n int) Option {
	return func(c *Config) error {
		c.MaxWTXRequests = n
		return nil
	}
}

// WithRetransmissions sets how often a frame is resent on transient errors.
func WithRetransmissions(n int) Option {
	return func(c *Config) error {
		c.Retransmissions = n
		return nil
	}
}

// WithLogger sets the logger for block traces.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

func newConfig(opts []Option) (*Config, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

var frameSizes = [...]int{16, 24, 32, 40, 48, 64, 96, 128, 256, 512, 1024, 2048, 4096}

// FrameSizeFromIndex maps an FSCI/FSDI code to a frame size in bytes.
func FrameSizeFromIndex(index byte) (int, error) {
	if int(index) >= len(frameSizes) {
		return 0, fmt.Errorf("%w: frame size index %d", ErrInvalidConfig, index)
	}
	return frameSizes[index], nil
}
