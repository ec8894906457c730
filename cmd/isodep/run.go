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
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/go-isodep"
	"github.com/ZaparooProject/go-isodep/apdu"
	"github.com/ZaparooProject/go-isodep/polling"
	"github.com/ZaparooProject/go-isodep/type4"
	"github.com/hsanjuan/go-ndef"
	"github.com/rs/zerolog"
)

// maxCardTimeout is the longest InCommunicateThru wait the PN532 supports
const maxCardTimeout = 3276800 * time.Microsecond

func run(ctx context.Context, cfg *config, logger zerolog.Logger) error {
	var command []byte
	if cfg.apdu != "" {
		raw, err := hex.DecodeString(strings.ReplaceAll(cfg.apdu, " ", ""))
		if err != nil {
			return fmt.Errorf("invalid --apdu: %w", err)
		}
		command = raw
	}

	device, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = device.Close() }()
	if fw := device.FirmwareVersion(); fw != nil {
		logger.Info().Str("firmware", fw.String()).Msg("reader ready")
	}

	logger.Info().Msg("waiting for card")
	pollConfig := polling.DefaultConfig()
	pollConfig.Logger = logger
	waitCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	target, err := polling.WaitForTarget(waitCtx, device, pollConfig)
	cancel()
	if err != nil {
		return err
	}
	logger.Info().
		Str("target", target.String()).
		Int("fsc", target.FrameSize()).
		Dur("fwt", target.FrameWaitTime()).
		Msg("card selected")

	if err := device.SetCommunicationTimeout(ctx, min(target.FrameWaitTime()*2, maxCardTimeout)); err != nil {
		logger.Warn().Err(err).Msg("keeping default communication timeout")
	}

	opts := append(target.SessionOptions(), isodep.WithLogger(logger))
	if cfg.frameSize > 0 {
		opts = append(opts, isodep.WithMaxFrameSize(cfg.frameSize))
	}
	session, err := isodep.NewSession(device, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Deselect(ctx); err != nil {
			logger.Debug().Err(err).Msg("deselect")
		}
		if err := device.Release(ctx); err != nil {
			logger.Debug().Err(err).Msg("release")
		}
	}()

	if command != nil {
		return sendAPDU(session, command)
	}
	return readWriteNDEF(type4.New(session), cfg.write, logger)
}

func sendAPDU(session *isodep.Session, raw []byte) error {
	cmd, err := apdu.ParseCommand(raw)
	if err != nil {
		return err
	}

	trace, err := apdu.NewClient(session).Send(cmd)
	if err != nil {
		return err
	}
	_, _ = fmt.Println(trace)
	return nil
}

func readWriteNDEF(tag *type4.Tag, text string, logger zerolog.Logger) error {
	cc, err := tag.ReadCapabilityContainer()
	if err != nil {
		return err
	}
	logger.Info().Str("cc", cc.String()).Msg("type 4 tag")

	if text != "" {
		if err := tag.WriteNDEF(ndef.NewTextMessage(text, "en")); err != nil {
			return fmt.Errorf("failed to write NDEF: %w", err)
		}
		logger.Info().Str("text", text).Msg("write successful")
	}

	msg, err := tag.ReadNDEF()
	if errors.Is(err, type4.ErrNoNDEF) {
		_, _ = fmt.Println("tag holds no NDEF message")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read NDEF: %w", err)
	}
	_, _ = fmt.Println(msg.String())
	return nil
}
