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
)

// FrameTransport carries one ISO 14443-4 frame to the card and returns the
// card's answer. Implementations add and strip the CRC and honour the context
// deadline as the frame waiting time.
type FrameTransport interface {
	TransceiveFrame(ctx context.Context, frame []byte) ([]byte, error)
}

// FrameTransportFunc adapts a function to FrameTransport.
type FrameTransportFunc func(ctx context.Context, frame []byte) ([]byte, error)

// TransceiveFrame calls f.
func (f FrameTransportFunc) TransceiveFrame(ctx context.Context, frame []byte) ([]byte, error) {
	return f(ctx, frame)
}

// IsTransient reports whether a transport error is worth resending the same
// frame for. Errors exposing Temporary() decide for themselves; otherwise only
// an expired frame deadline counts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) {
		return temp.Temporary()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
