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

package apdu

import (
	"fmt"
	"strings"
)

// Transmitter sends a raw command APDU and returns the raw response.
// isodep.Session satisfies it.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Transaction is one command with its response.
type Transaction struct {
	Command  *Command
	Response *Response
}

// Trace lists the transactions needed to complete one logical command.
type Trace []Transaction

// Last returns the final transaction, or nil for an empty trace.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// Data concatenates response data across GET RESPONSE continuations.
func (t Trace) Data() []byte {
	var out []byte
	for _, tx := range t {
		out = append(out, tx.Response.Data...)
	}
	return out
}

// Status returns the status word of the final transaction.
func (t Trace) Status() StatusWord {
	if last := t.Last(); last != nil {
		return last.Response.Status
	}
	return 0
}

func (t Trace) String() string {
	var b strings.Builder
	for i, tx := range t {
		fmt.Fprintf(&b, "#%d %s -> %s\n", i, tx.Command, tx.Response)
	}
	return b.String()
}

// maxFollowUps bounds GET RESPONSE and Le corrections for one command.
const maxFollowUps = 32

// Client sends commands through a Transmitter.
type Client struct {
	Card Transmitter
}

// NewClient creates a client for card.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Send transmits cmd. On 61XX it fetches the remaining data with GET
// RESPONSE; on 6CXX it repeats the command with the Le the card asked for.
func (c *Client) Send(cmd *Command) (Trace, error) {
	var trace Trace
	for i := 0; i < maxFollowUps; i++ {
		resp, err := c.transmit(cmd)
		if err != nil {
			return trace, err
		}
		trace = append(trace, Transaction{Command: cmd, Response: resp})

		switch resp.Status.SW1() {
		case 0x61:
			cmd = &Command{CLA: cmd.CLA &^ 0x10, INS: InsGetResponse, Ne: shortLe(resp.Status.SW2())}
		case 0x6C:
			retry := *cmd
			retry.Ne = shortLe(resp.Status.SW2())
			cmd = &retry
		default:
			return trace, nil
		}
	}
	return trace, fmt.Errorf("card kept requesting follow-ups after %d commands", maxFollowUps)
}

func (c *Client) transmit(cmd *Command) (*Response, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}
	rawResp, err := c.Card.Transmit(raw)
	if err != nil {
		return nil, fmt.Errorf("transmission error: %w", err)
	}
	return ParseResponse(rawResp)
}
