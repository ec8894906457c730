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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-isodep/internal/retry"
	"github.com/rs/zerolog"
)

// Session runs complete APDU exchanges with a card over a FrameTransport.
// It fragments commands larger than the card's frame size, answers waiting
// time extensions and reassembles chained responses.
//
// A Session is safe for concurrent use; exchanges are serialised.
type Session struct {
	transport FrameTransport
	config    *Config
	layer     *Layer
	logger    zerolog.Logger
	rx        []byte
	tx        []byte
	mu        sync.Mutex
}

// NewSession creates a session on top of transport.
func NewSession(transport FrameTransport, opts ...Option) (*Session, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidConfig)
	}
	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Session{
		transport: transport,
		config:    config,
		layer:     NewLayer(),
		logger:    config.Logger.With().Str("component", "isodep").Logger(),
		rx:        make([]byte, config.MaxPayloadSize),
		tx:        make([]byte, 0, config.MaxFrameSize),
	}, nil
}

// Config returns a copy of the session configuration.
func (s *Session) Config() Config {
	return *s.config
}

// Exchange sends apdu to the card and returns its complete response.
// After a failed exchange the block numbering is reset; most cards need to
// be reselected at that point.
func (s *Session) Exchange(ctx context.Context, apdu []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.send(ctx, apdu)
	if err == nil {
		resp, err = s.receive(ctx, resp)
	}
	if err != nil {
		s.logger.Debug().Err(err).Msg("exchange failed, resetting block numbering")
		s.layer.Reset()
		return nil, err
	}
	return resp, nil
}

// Transmit is Exchange without a caller context, for APDU clients.
func (s *Session) Transmit(apdu []byte) ([]byte, error) {
	return s.Exchange(context.Background(), apdu)
}

// Deselect sends S(DESELECT) and resets the block numbering. The layer is
// reset even if the card does not answer.
func (s *Session) Deselect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.layer.Reset()

	resp, err := s.transceive(ctx, []byte{PCBDeselect}, s.config.FrameTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeselectFailed, err)
	}
	if len(resp) == 0 || !IsDeselect(resp[0]) {
		return fmt.Errorf("%w: unexpected answer % X", ErrDeselectFailed, resp)
	}
	return nil
}

// Reset drops any partial exchange and restarts block numbering, as needed
// after the card has been reselected.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layer.Reset()
}

// send transmits apdu, chaining it when it exceeds the card's frame size, and
// returns the card's answer to the last block.
func (s *Session) send(ctx context.Context, apdu []byte) ([]byte, error) {
	maxInf := s.config.maxInf()

	for len(apdu) > maxInf {
		frame := s.layer.EncodeChainedBlock(s.tx[:0], apdu[:maxInf])
		resp, err := s.transceive(ctx, frame, s.config.FrameTimeout)
		if err != nil {
			return nil, err
		}
		if err := s.checkAck(resp); err != nil {
			return nil, err
		}
		apdu = apdu[maxInf:]
	}

	frame := s.layer.EncodeBlock(s.tx[:0], apdu)
	return s.transceive(ctx, frame, s.config.FrameTimeout)
}

func (s *Session) checkAck(resp []byte) error {
	if len(resp) == 0 {
		return newBlockError("send", resp, ErrMalformedBlock)
	}
	pcb := resp[0]
	if TypeOf(pcb) != BlockR || IsNAK(pcb) {
		return fmt.Errorf("%w: expected R(ACK), got %s", ErrProtocol, DescribePCB(pcb))
	}
	if pcb&PCBBlockNum != s.layer.PCB()&PCBBlockNum {
		return newBlockError("send", resp, ErrUnexpectedContinuation)
	}
	return nil
}

// receive walks the card's answers until a final I-block completes the
// response.
func (s *Session) receive(ctx context.Context, resp []byte) ([]byte, error) {
	wtxCount := 0

	for {
		if len(resp) == 0 {
			return nil, newBlockError("receive", resp, ErrMalformedBlock)
		}
		pcb := resp[0]

		switch {
		case TypeOf(pcb) == BlockI:
			n, complete, err := s.layer.DecodeBlock(s.rx, resp)
			if err != nil {
				return nil, err
			}
			if complete {
				out := make([]byte, n)
				copy(out, s.rx[:n])
				return out, nil
			}
			ack := s.layer.BuildAckBlock(s.tx[:0])
			resp, err = s.transceive(ctx, ack, s.config.FrameTimeout)
			if err != nil {
				return nil, err
			}

		case IsWTX(pcb):
			wtxCount++
			if wtxCount > s.config.MaxWTXRequests {
				return nil, fmt.Errorf("%w: %d requests", ErrTooManyWTX, wtxCount)
			}
			if len(resp) < 2 {
				return nil, newBlockError("wtx", resp, ErrMalformedBlock)
			}
			wtxm := resp[1] & wtxmMask
			if wtxm == 0 {
				return nil, fmt.Errorf("%w: WTXM 0", ErrProtocol)
			}
			s.logger.Debug().Uint8("wtxm", wtxm).Msg("waiting time extension")
			timeout := s.config.FrameTimeout * time.Duration(wtxm)
			var err error
			resp, err = s.transceive(ctx, []byte{PCBWTX, wtxm}, timeout)
			if err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("%w: unexpected %s", ErrProtocol, DescribePCB(pcb))
		}
	}
}

// wtxmMask selects the multiplier in the WTX INF byte; the top bits carry
// power level indication.
const wtxmMask = 0x3F

// transceive sends one frame and waits for one frame, resending the same
// bytes after transient failures.
func (s *Session) transceive(ctx context.Context, frame []byte, timeout time.Duration) ([]byte, error) {
	var lastErr error

	resp, err := retry.Do(ctx, retry.Config{
		Description: "transceive " + DescribePCB(frame[0]),
		MaxRetries:  s.config.Retransmissions,
		OnRetry: func(attempt int) error {
			s.logger.Debug().Int("attempt", attempt).Err(lastErr).Msg("retransmitting frame")
			return nil
		},
	}, func(int) ([]byte, bool, error) {
		s.logger.Trace().Hex("frame", frame).Str("pcb", DescribePCB(frame[0])).Msg(">>")

		frameCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := s.transport.TransceiveFrame(frameCtx, frame)
		cancel()

		if err != nil {
			if ctx.Err() == nil && IsTransient(err) {
				lastErr = err
				return nil, true, nil
			}
			return nil, false, err
		}

		s.logger.Trace().Hex("frame", resp).Msg("<<")
		return resp, false, nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) && lastErr != nil {
			return nil, fmt.Errorf("%w: %w", err, lastErr)
		}
		return nil, fmt.Errorf("transceive failed: %w", err)
	}
	return resp, nil
}
