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
	"encoding/binary"
	"errors"
	"sync"

	"github.com/ZaparooProject/go-isodep/apdu"
	"github.com/hsanjuan/go-ndef"
)

// NFC Forum Type 4 identifiers
var (
	NDEFApplicationID = []byte{0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01}
)

const (
	CCFileID   uint16 = 0xE103
	NDEFFileID uint16 = 0xE104

	// DefaultMLe and DefaultMLc are small enough to force several READ and
	// UPDATE BINARY commands for the default message.
	DefaultMLe = 0x3B
	DefaultMLc = 0x34

	DefaultNDEFFileSize = 0x0800
)

// TestType4UID is a sample 7-byte UID of an ISO-DEP card
var TestType4UID = []byte{0x04, 0x52, 0x6A, 0x1A, 0xB2, 0x5F, 0x80}

// TestType4ATS is the ATS of a DESFire-like card: FSCI 5 (64 bytes), FWI 8.
var TestType4ATS = []byte{0x06, 0x75, 0x77, 0x81, 0x02, 0x80}

// VirtualCard is a simulated NFC Forum Type 4 tag. It answers APDUs from an
// in-memory file system holding the capability container and the NDEF file,
// and implements isodep.APDUHandler.
type VirtualCard struct {
	files       map[uint16][]byte
	UID         []byte
	Commands    [][]byte
	HandleDelay func(cmd []byte)
	current     uint16
	appSelected bool
	present     bool
	mu          sync.Mutex
}

// ErrCardRemoved is returned while the card is out of the field.
var ErrCardRemoved = errors.New("virtual card removed")

// NewVirtualType4Card creates a card holding the text record "Hello World".
func NewVirtualType4Card(uid []byte) *VirtualCard {
	if uid == nil {
		uid = TestType4UID
	}

	card := &VirtualCard{
		UID:     uid,
		files:   make(map[uint16][]byte),
		present: true,
	}
	card.files[CCFileID] = BuildCapabilityContainer(DefaultMLe, DefaultMLc, NDEFFileID, DefaultNDEFFileSize, 0x00)
	card.files[NDEFFileID] = make([]byte, DefaultNDEFFileSize)

	if err := card.SetNDEFText("Hello World"); err != nil {
		panic(err)
	}
	return card
}

// BuildCapabilityContainer builds a mapping version 2.0 CC file with one
// NDEF File Control TLV.
func BuildCapabilityContainer(mle, mlc, fileID, maxSize uint16, writeAccess byte) []byte {
	cc := make([]byte, 0, 15)
	cc = binary.BigEndian.AppendUint16(cc, 15)
	cc = append(cc, 0x20)
	cc = binary.BigEndian.AppendUint16(cc, mle)
	cc = binary.BigEndian.AppendUint16(cc, mlc)
	cc = append(cc, 0x04, 0x06)
	cc = binary.BigEndian.AppendUint16(cc, fileID)
	cc = binary.BigEndian.AppendUint16(cc, maxSize)
	return append(cc, 0x00, writeAccess)
}

// SetNDEFText stores a single text record message.
func (v *VirtualCard) SetNDEFText(text string) error {
	raw, err := ndef.NewTextMessage(text, "en").Marshal()
	if err != nil {
		return err
	}
	v.SetNDEF(raw)
	return nil
}

// SetNDEF stores raw as the NDEF message, updating NLEN.
func (v *VirtualCard) SetNDEF(raw []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()

	file := v.files[NDEFFileID]
	binary.BigEndian.PutUint16(file, uint16(len(raw)))
	copy(file[2:], raw)
}

// NDEF returns the stored NDEF message.
func (v *VirtualCard) NDEF() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	file := v.files[NDEFFileID]
	n := int(binary.BigEndian.Uint16(file))
	if n > len(file)-2 {
		return nil
	}
	return append([]byte(nil), file[2:2+n]...)
}

// SetFile replaces a file, for example a malformed CC.
func (v *VirtualCard) SetFile(id uint16, data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.files[id] = data
}

// Remove takes the card out of the field.
func (v *VirtualCard) Remove() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.present = false
}

// Insert puts the card back and clears its selection state.
func (v *VirtualCard) Insert() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.present = true
	v.appSelected = false
	v.current = 0
}

// HandleAPDU implements isodep.APDUHandler.
func (v *VirtualCard) HandleAPDU(_ context.Context, raw []byte) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.present {
		return nil, ErrCardRemoved
	}
	v.Commands = append(v.Commands, append([]byte(nil), raw...))
	if v.HandleDelay != nil {
		v.HandleDelay(raw)
	}

	cmd, err := apdu.ParseCommand(raw)
	if err != nil {
		return status(apdu.SWWrongLength), nil
	}
	if cmd.CLA != 0x00 {
		return status(apdu.SWClaNotSupported), nil
	}

	switch cmd.INS {
	case apdu.InsSelect:
		return v.handleSelect(cmd), nil
	case apdu.InsReadBinary:
		return v.handleRead(cmd), nil
	case apdu.InsUpdateBinary:
		return v.handleUpdate(cmd), nil
	default:
		return status(apdu.SWInsNotSupported), nil
	}
}

func (v *VirtualCard) handleSelect(cmd *apdu.Command) []byte {
	switch cmd.P1 {
	case 0x04:
		if string(cmd.Data) != string(NDEFApplicationID) {
			return status(apdu.SWFileNotFound)
		}
		v.appSelected = true
		v.current = 0
		return status(apdu.SWSuccess)
	case 0x00:
		if !v.appSelected || len(cmd.Data) != 2 {
			return status(apdu.SWFileNotFound)
		}
		id := binary.BigEndian.Uint16(cmd.Data)
		if _, ok := v.files[id]; !ok {
			return status(apdu.SWFileNotFound)
		}
		v.current = id
		return status(apdu.SWSuccess)
	default:
		return status(apdu.SWWrongP1P2)
	}
}

func (v *VirtualCard) handleRead(cmd *apdu.Command) []byte {
	file, ok := v.files[v.current]
	if !ok {
		return status(apdu.SWConditionsNotMet)
	}
	offset := int(cmd.P1)<<8 | int(cmd.P2)
	if offset > len(file) {
		return status(apdu.SWWrongOffset)
	}
	end := offset + cmd.Ne
	if end > len(file) {
		end = len(file)
	}
	resp := &apdu.Response{Data: file[offset:end], Status: apdu.SWSuccess}
	return resp.Bytes()
}

func (v *VirtualCard) handleUpdate(cmd *apdu.Command) []byte {
	file, ok := v.files[v.current]
	if !ok || v.current == CCFileID {
		return status(apdu.SWConditionsNotMet)
	}
	if v.current == NDEFFileID && v.writeProtected() {
		return status(apdu.SWSecurityStatus)
	}
	offset := int(cmd.P1)<<8 | int(cmd.P2)
	if offset+len(cmd.Data) > len(file) {
		return status(apdu.SWWrongOffset)
	}
	copy(file[offset:], cmd.Data)
	return status(apdu.SWSuccess)
}

// writeProtected reads the write access byte of the NDEF File Control TLV.
func (v *VirtualCard) writeProtected() bool {
	cc := v.files[CCFileID]
	return len(cc) >= 15 && cc[14] != 0x00
}

func status(sw apdu.StatusWord) []byte {
	return []byte{sw.SW1(), sw.SW2()}
}
