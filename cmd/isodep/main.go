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

// Command isodep talks to an ISO/IEC 14443-4 card through a PN532 reader.
// It either sends one raw APDU or reads, and optionally rewrites, the NDEF
// message of a Type 4 tag.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/ZaparooProject/go-isodep"
	"github.com/ZaparooProject/go-isodep/pn532"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

type config struct {
	device    string
	apdu      string
	write     string
	timeout   time.Duration
	frameSize int
	debug     bool
}

func parseFlags(args []string) (*config, error) {
	cfg := &config{}
	fs := pflag.NewFlagSet("isodep", pflag.ContinueOnError)
	fs.StringVarP(&cfg.device, "device", "d", "",
		"reader path (e.g. /dev/ttyUSB0, COM3 or /dev/i2c-1); empty for auto-detection")
	fs.DurationVarP(&cfg.timeout, "timeout", "t", 30*time.Second, "time allowed to connect and find a card")
	fs.IntVar(&cfg.frameSize, "frame-size", 0, fmt.Sprintf("override the card's maximum frame size (%d-%d)",
		isodep.MinFrameSize, isodep.MaxFrameSize))
	fs.StringVar(&cfg.apdu, "apdu", "", "send this hex encoded command APDU instead of reading NDEF")
	fs.StringVarP(&cfg.write, "write", "w", "", "write this text to the tag as a new NDEF message")
	fs.BoolVar(&cfg.debug, "debug", false, "enable debug output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.apdu != "" && cfg.write != "" {
		return nil, errors.New("--apdu and --write cannot be combined")
	}
	if cfg.frameSize != 0 && (cfg.frameSize < isodep.MinFrameSize || cfg.frameSize > isodep.MaxFrameSize) {
		return nil, fmt.Errorf("--frame-size must be between %d and %d", isodep.MinFrameSize, isodep.MaxFrameSize)
	}
	if cfg.timeout <= 0 {
		return nil, errors.New("--timeout must be positive")
	}
	return cfg, nil
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(cfg.debug)
	pn532.SetLogger(logger.With().Str("component", "pn532").Logger())
	pn532.SetDebugEnabled(cfg.debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("failed")
		stop()
		os.Exit(1)
	}
}
