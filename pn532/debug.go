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

package pn532

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	debugEnabled atomic.Bool
	debugLogger  atomic.Pointer[zerolog.Logger]
)

func init() {
	SetLogger(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().
		Str("component", "pn532").
		Logger())
}

// SetDebugEnabled turns package debug output on or off
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetLogger replaces the logger used for debug output
func SetLogger(logger zerolog.Logger) {
	debugLogger.Store(&logger)
}

func debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	debugLogger.Load().Debug().Msgf(format, args...)
}
