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

/*
Package pn532 drives PN532 NFC controllers as ISO/IEC 14443-4 readers.

The PN532 is a 13.56 MHz transceiver. This package uses it to select a type A
card that supports ISO-DEP and then passes raw block-layer frames to the card
with InCommunicateThru, so a *Device can be handed to isodep.NewSession as its
frame transport.

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-isodep"
	    "github.com/ZaparooProject/go-isodep/pn532"
	    "github.com/ZaparooProject/go-isodep/transport/uart"
	)

	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}

	device, err := pn532.New(transport, pn532.WithTimeout(2*time.Second))
	if err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	if err := device.InitContext(ctx); err != nil {
	    log.Fatal(err)
	}

	target, err := device.SelectISODEPTarget(ctx)
	if err != nil {
	    log.Fatal(err)
	}

	session, err := isodep.NewSession(device, target.SessionOptions()...)
	if err != nil {
	    log.Fatal(err)
	}
	resp, err := session.Exchange(ctx, selectAPDU)

Transport Selection:

  - UART: USB-to-serial adapters and the HSU interface
  - I2C: embedded boards, through periph.io

Error Handling:

Transport failures are *TransportError values classified by ErrorType;
IsRetryable and GetErrorType inspect any wrapped error. Non-zero PN532 status
bytes are returned as *StatusError. Both implement Temporary, which is what the
block layer uses to decide whether to resend a frame.

Thread Safety:

A Device serializes nothing beyond what its transport does. Use one Device
and one isodep.Session per goroutine.
*/
package pn532
