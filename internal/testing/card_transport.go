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

package testing

import (
	"context"
	"errors"
	"sync"

	"github.com/ZaparooProject/go-isodep"
)

// LinkError is a simulated RF or bus failure.
type LinkError struct {
	Msg       string
	Transient bool
}

func (e *LinkError) Error() string { return e.Msg }

// Temporary reports whether a retry may succeed.
func (e *LinkError) Temporary() bool { return e.Transient }

var (
	// ErrLinkGlitch is a transient failure; the frame may be resent.
	ErrLinkGlitch = &LinkError{Msg: "simulated RF glitch", Transient: true}
	// ErrLinkLost is a permanent failure.
	ErrLinkLost = &LinkError{Msg: "simulated link loss"}
)

// fault describes what happens to the next frame.
type fault struct {
	err          error
	deliverFirst bool
}

// CardTransport connects an isodep.Listener to a reader as an
// isodep.FrameTransport, with fault injection between them.
type CardTransport struct {
	Listener *isodep.Listener
	faults   []fault
	sent     [][]byte
	replies  [][]byte
	mu       sync.Mutex
}

// NewCardTransport puts card behind a listener built with opts.
func NewCardTransport(card isodep.APDUHandler, opts ...isodep.Option) (*CardTransport, error) {
	listener, err := isodep.NewListener(card, opts...)
	if err != nil {
		return nil, err
	}
	return &CardTransport{Listener: listener}, nil
}

// FailNext makes the next frame fail with err before it reaches the card.
func (t *CardTransport) FailNext(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faults = append(t.faults, fault{err: err})
}

// LoseNextResponse delivers the next frame to the card and then fails with
// err, as if the card's answer was lost.
func (t *CardTransport) LoseNextResponse(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faults = append(t.faults, fault{err: err, deliverFirst: true})
}

// Sent returns copies of every frame the reader sent.
func (t *CardTransport) Sent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.sent...)
}

// Replies returns copies of every frame the card answered with.
func (t *CardTransport) Replies() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.replies...)
}

// TransceiveFrame implements isodep.FrameTransport.
func (t *CardTransport) TransceiveFrame(ctx context.Context, frame []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.sent = append(t.sent, append([]byte(nil), frame...))
	var next *fault
	if len(t.faults) > 0 {
		next = &t.faults[0]
		t.faults = t.faults[1:]
	}
	t.mu.Unlock()

	if next != nil && !next.deliverFirst {
		return nil, next.err
	}

	reply, err := t.Listener.HandleFrame(ctx, frame)
	if err != nil {
		if errors.Is(err, ErrCardRemoved) {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}

	t.mu.Lock()
	t.replies = append(t.replies, reply)
	t.mu.Unlock()

	if next != nil {
		return nil, next.err
	}
	return reply, nil
}
