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
Package isodep implements the ISO/IEC 14443-4 block transmission protocol
(ISO-DEP) used to carry APDUs between a contactless reader and a card.

The protocol wraps every frame in a block whose first byte, the protocol
control byte (PCB), says what kind of block it is:

  - I-blocks carry application data. Bit 0 is the block number, which
    alternates between exchanges, and bit 4 marks a fragment that is
    followed by more fragments (chaining).
  - R-blocks acknowledge (ACK) or reject (NAK) a block during chaining.
  - S-blocks carry supervisory requests: DESELECT and waiting time
    extension (WTX).

Layer holds the per-card state: the next PCB to send, the PCB of the last
block sent, and the progress of an incoming chained response. It is a pure
state machine with no I/O:

	layer := isodep.NewLayer()
	frame := layer.EncodeBlock(nil, apdu)
	// ... send frame, receive answer ...
	n, complete, err := layer.DecodeBlock(buf, answer)

Session and Listener drive a Layer over a FrameTransport for the reader
and the card side respectively:

	session, err := isodep.NewSession(device, isodep.WithMaxFrameSize(64))
	if err != nil {
		return err
	}
	resp, err := session.Exchange(ctx, selectCommand)

Transports such as the PN532 driver in the pn532 package implement
FrameTransport; the CRC and framing below the block layer are their job.

Chained fragments keep the block number of the block that completes the
chain: only the final I-block of a chain advances the sequence. Both Session
and Listener follow that convention.
*/
package isodep
