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

package type4

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-isodep/apdu"
)

var (
	// ErrNotType4 means the card has no NDEF application or CC file.
	ErrNotType4 = errors.New("not an NFC Forum Type 4 tag")
	// ErrInvalidCC means the capability container could not be parsed.
	ErrInvalidCC = errors.New("invalid capability container")
	// ErrNoNDEF means the NDEF file is empty.
	ErrNoNDEF = errors.New("no NDEF message on tag")
	// ErrReadOnly means the NDEF file does not grant write access.
	ErrReadOnly = errors.New("NDEF file is read-only")
	// ErrReadProtected means the NDEF file does not grant read access.
	ErrReadProtected = errors.New("NDEF file is read-protected")
	// ErrNDEFTooLarge means the message does not fit the NDEF file.
	ErrNDEFTooLarge = errors.New("NDEF message too large for tag")
)

// StatusError is an unexpected status word from the tag.
type StatusError struct {
	Op     string
	Status apdu.StatusWord
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Status.Verbose())
}
