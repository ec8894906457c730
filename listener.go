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
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// APDUHandler answers a reassembled command APDU on the card side.
type APDUHandler interface {
	HandleAPDU(ctx context.Context, cmd []byte) ([]byte, error)
}

// APDUHandlerFunc adapts a function to APDUHandler.
type APDUHandlerFunc func(ctx context.Context, cmd []byte) ([]byte, error)

// HandleAPDU calls f.
func (f APDUHandlerFunc) HandleAPDU(ctx context.Context, cmd []byte) ([]byte, error) {
	return f(ctx, cmd)
}

// Listener is the card side of the block protocol. It turns the reader's
// frames into complete command APDUs for an APDUHandler and frames the
// handler's responses. It is used for card emulation and as the virtual card
// in tests.
type Listener struct {
	handler APDUHandler
	config  *Config
	layer   *Layer
	logger  zerolog.Logger
	rx      []byte
	tx      []byte
	last    []byte
	pending []byte
	waiting []byte
	wtxm    byte
	mu      sync.Mutex
}

// NewListener creates a listener. WithMaxFrameSize sets the reader's frame
// size (FSD) and WithMaxPayloadSize bounds a reassembled command.
func NewListener(handler APDUHandler, opts ...Option) (*Listener, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: nil handler", ErrInvalidConfig)
	}
	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Listener{
		handler: handler,
		config:  config,
		layer:   NewLayer(),
		logger:  config.Logger.With().Str("component", "isodep-listener").Logger(),
		rx:      make([]byte, config.MaxPayloadSize),
		tx:      make([]byte, 0, config.MaxFrameSize),
	}, nil
}

// RequestWTX makes the listener answer the next complete command with an
// S(WTX) request carrying wtxm before running the handler.
func (l *Listener) RequestWTX(wtxm byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wtxm = wtxm & wtxmMask
}

// Reset drops any partial command or response.
func (l *Listener) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset()
}

func (l *Listener) reset() {
	l.layer.Reset()
	l.last = nil
	l.pending = nil
	l.waiting = nil
}

// HandleFrame processes one frame from the reader and returns the frame to
// send back.
func (l *Listener) HandleFrame(ctx context.Context, frame []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(frame) == 0 {
		return nil, newBlockError("listen", frame, ErrMalformedBlock)
	}
	pcb := frame[0]
	l.logger.Trace().Hex("frame", frame).Str("pcb", DescribePCB(pcb)).Msg("<<")

	var (
		out []byte
		err error
	)
	switch {
	case TypeOf(pcb) == BlockI:
		out, err = l.handleIBlock(ctx, frame)
	case IsNAK(pcb):
		if l.last == nil {
			return nil, ErrNoResponse
		}
		out = l.last
	case TypeOf(pcb) == BlockR:
		out, err = l.continueResponse()
	case IsDeselect(pcb):
		l.reset()
		return []byte{PCBDeselect}, nil
	case IsWTX(pcb):
		out, err = l.resumeAfterWTX(ctx, frame)
	default:
		return nil, fmt.Errorf("%w: unexpected %s", ErrProtocol, DescribePCB(pcb))
	}
	if err != nil {
		return nil, err
	}

	l.last = out
	l.logger.Trace().Hex("frame", out).Str("pcb", DescribePCB(out[0])).Msg(">>")
	return append([]byte(nil), out...), nil
}

func (l *Listener) handleIBlock(ctx context.Context, frame []byte) ([]byte, error) {
	if !l.layer.Reassembling() {
		// A new command; drop whatever was left of the previous response.
		l.pending = nil
		l.waiting = nil
		l.layer.follow(frame[0])
	}

	n, complete, err := l.layer.DecodeBlock(l.rx, frame)
	if err != nil {
		// the exchange is lost; the next I-block starts a new command
		l.reset()
		return nil, err
	}
	if !complete {
		return l.layer.BuildAckBlock(l.tx[:0]), nil
	}

	if l.wtxm != 0 {
		l.waiting = append([]byte{}, l.rx[:n]...)
		wtxm := l.wtxm
		l.wtxm = 0
		return append(l.tx[:0], PCBWTX, wtxm), nil
	}
	return l.respond(ctx, l.rx[:n])
}

func (l *Listener) resumeAfterWTX(ctx context.Context, frame []byte) ([]byte, error) {
	if l.waiting == nil {
		return nil, fmt.Errorf("%w: WTX response without request", ErrProtocol)
	}
	if len(frame) < 2 {
		return nil, newBlockError("listen", frame, ErrMalformedBlock)
	}
	cmd := l.waiting
	l.waiting = nil
	return l.respond(ctx, cmd)
}

func (l *Listener) respond(ctx context.Context, cmd []byte) ([]byte, error) {
	resp, err := l.handler.HandleAPDU(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("apdu handler: %w", err)
	}
	if resp == nil {
		// an empty response is still a new I-block
		resp = []byte{}
	}
	l.pending = resp
	return l.continueResponse()
}

// continueResponse emits the next fragment of the pending response.
func (l *Listener) continueResponse() ([]byte, error) {
	if l.pending == nil {
		if l.last == nil {
			return nil, ErrNoResponse
		}
		return l.last, nil
	}

	maxInf := l.config.maxInf()
	if len(l.pending) > maxInf {
		out := l.layer.EncodeChainedBlock(l.tx[:0], l.pending[:maxInf])
		l.pending = l.pending[maxInf:]
		return out, nil
	}

	out := l.layer.EncodeBlock(l.tx[:0], l.pending)
	l.pending = nil
	return out, nil
}
