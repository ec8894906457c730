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
	"time"

	"github.com/ZaparooProject/go-isodep"
	"github.com/ZaparooProject/go-isodep/internal/frame"
)

// Additional command bytes understood by VirtualPN532
const (
	CmdRFConfiguration = 0x32
)

// BuildRFConfigurationResponse creates an RFConfiguration response
func BuildRFConfigurationResponse() []byte {
	return []byte{0x33}
}

// cardFrameTimeout bounds one InCommunicateThru exchange with the attached
// card, like the PN532's own communication timeout.
const cardFrameTimeout = 100 * time.Millisecond

// VirtualPN532 simulates a PN532 at the host frame level. Write accepts
// host frames, Read streams ACKs and responses back as a UART would, and
// ReadI2C serves them as I2C reads with the leading status byte.
//
// An attached card is reported by InListPassiveTarget and reached through
// InCommunicateThru.
type VirtualPN532 struct {
	card                isodep.FrameTransport
	cardUID             []byte
	cardATS             []byte
	lastResponse        []byte
	rx                  []byte
	tx                  [][]byte
	commands            []byte
	txOffset            int
	mu                  sync.Mutex
	targetSelected      bool
	injectChecksumError bool
	dropNextACK         bool
}

// NewVirtualPN532 creates a simulator with no card in the field
func NewVirtualPN532() *VirtualPN532 {
	return &VirtualPN532{}
}

// AttachCard places an ISO-DEP card in the field
func (v *VirtualPN532) AttachCard(card isodep.FrameTransport, uid, ats []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.card = card
	v.cardUID = append([]byte(nil), uid...)
	v.cardATS = append([]byte(nil), ats...)
	v.targetSelected = false
}

// DetachCard removes the card from the field
func (v *VirtualPN532) DetachCard() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.card = nil
	v.targetSelected = false
}

// InjectChecksumError corrupts the data checksum of the next response. The
// stored copy stays intact so a NACK gets a good retransmission.
func (v *VirtualPN532) InjectChecksumError() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.injectChecksumError = true
}

// DropNextACK suppresses both the ACK and the response for the next command
func (v *VirtualPN532) DropNextACK() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropNextACK = true
}

// Commands returns the command codes received so far
func (v *VirtualPN532) Commands() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.commands...)
}

// HasPendingResponse reports whether output is waiting to be read
func (v *VirtualPN532) HasPendingResponse() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.tx) > 0
}

// ClearOutput drops unread output, like flushing a serial input buffer
func (v *VirtualPN532) ClearOutput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tx = nil
	v.txOffset = 0
}

// Write implements io.Writer; complete frames are answered immediately.
func (v *VirtualPN532) Write(data []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rx = append(v.rx, data...)
	for len(v.rx) > 0 {
		f, n, err := frame.Parse(v.rx, frame.HostToPn532)
		if errors.Is(err, frame.ErrIncomplete) {
			break
		}
		if n == 0 {
			n = 1
		}
		v.rx = v.rx[n:]
		if err != nil {
			continue
		}

		switch f.Kind {
		case frame.KindAck:
			// host abort; nothing pending to cancel
		case frame.KindNack:
			if v.lastResponse != nil {
				v.tx = append(v.tx, append([]byte(nil), v.lastResponse...))
			}
		case frame.KindInformation:
			v.handleCommand(f.Data)
		}
	}
	return len(data), nil
}

// Read implements io.Reader; it returns 0, nil when nothing is pending.
func (v *VirtualPN532) Read(buf []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := 0
	for n < len(buf) && len(v.tx) > 0 {
		head := v.tx[0]
		c := copy(buf[n:], head[v.txOffset:])
		n += c
		v.txOffset += c
		if v.txOffset == len(head) {
			v.tx = v.tx[1:]
			v.txOffset = 0
		}
	}
	return n, nil
}

// ReadI2C fills buf the way a PN532 answers an I2C read: a status byte with
// bit 0 set when a frame is ready, followed by that frame.
func (v *VirtualPN532) ReadI2C(buf []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()

	clear(buf)
	if len(buf) == 0 || len(v.tx) == 0 {
		return
	}
	buf[0] = 0x01
	if len(buf) == 1 {
		return
	}
	copy(buf[1:], v.tx[0])
	v.tx = v.tx[1:]
	v.txOffset = 0
}

func (v *VirtualPN532) handleCommand(data []byte) {
	if len(data) == 0 {
		return
	}
	cmd, args := data[0], data[1:]
	v.commands = append(v.commands, cmd)

	if v.dropNextACK {
		v.dropNextACK = false
		return
	}
	v.tx = append(v.tx, append([]byte(nil), frame.AckFrame...))

	payload := v.respond(cmd, args)
	if payload == nil {
		v.lastResponse = append([]byte(nil), frame.ErrorFrame...)
		v.tx = append(v.tx, append([]byte(nil), frame.ErrorFrame...))
		return
	}

	resp, err := frame.Build(nil, frame.Pn532ToHost, payload)
	if err != nil {
		return
	}
	v.lastResponse = resp
	out := append([]byte(nil), resp...)
	if v.injectChecksumError {
		v.injectChecksumError = false
		out[len(out)-2] ^= 0xFF
	}
	v.tx = append(v.tx, out)
}

func (v *VirtualPN532) respond(cmd byte, args []byte) []byte {
	switch cmd {
	case CmdGetFirmwareVersion:
		return BuildFirmwareVersionResponse()
	case CmdSAMConfiguration:
		return BuildSAMConfigurationResponse()
	case CmdRFConfiguration:
		return BuildRFConfigurationResponse()
	case CmdInListPassiveTarget:
		if v.card == nil {
			return BuildNoTagResponse()
		}
		v.targetSelected = true
		return BuildISODEPTargetResponse(v.cardUID, v.cardATS)
	case CmdInRelease:
		v.targetSelected = false
		return BuildReleaseResponse()
	case CmdInCommunicateThru:
		return v.communicateThru(args)
	default:
		return nil
	}
}

func (v *VirtualPN532) communicateThru(data []byte) []byte {
	if v.card == nil || !v.targetSelected {
		return BuildErrorResponse(CmdInCommunicateThru, 0x01)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cardFrameTimeout)
	defer cancel()

	reply, err := v.card.TransceiveFrame(ctx, data)
	if err != nil {
		return BuildErrorResponse(CmdInCommunicateThru, 0x01)
	}
	return BuildCommunicateThruResponse(reply)
}
