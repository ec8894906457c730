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

// Package type4 reads and writes NDEF messages on NFC Forum Type 4 tags
// through any apdu.Transmitter, usually an isodep.Session.
package type4

import (
	"encoding/binary"
	"fmt"

	"github.com/ZaparooProject/go-isodep/apdu"
	"github.com/hsanjuan/go-ndef"
)

// NDEFApplicationID is the AID of the NDEF Tag Application, version 2.0
var NDEFApplicationID = []byte{0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01}

// Tag is a Type 4 tag. It is not safe for concurrent use.
type Tag struct {
	client *apdu.Client
	cc     *CapabilityContainer
}

// New creates a tag that talks through transmitter.
func New(transmitter apdu.Transmitter) *Tag {
	return &Tag{client: apdu.NewClient(transmitter)}
}

// ReadCapabilityContainer selects the NDEF application and reads the CC
// file. The result is cached for later reads and writes.
func (t *Tag) ReadCapabilityContainer() (*CapabilityContainer, error) {
	if err := t.selectApplication(); err != nil {
		return nil, err
	}
	if err := t.selectFile(ccFileID); err != nil {
		return nil, err
	}

	data, err := t.readBinary(0, ccMinSize)
	if err != nil {
		return nil, fmt.Errorf("reading CC file: %w", err)
	}
	cc, err := ParseCapabilityContainer(data)
	if err != nil {
		return nil, err
	}
	t.cc = cc
	return cc, nil
}

// ReadNDEF reads the NDEF message.
func (t *Tag) ReadNDEF() (*ndef.Message, error) {
	raw, err := t.ReadNDEFBytes()
	if err != nil {
		return nil, err
	}

	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("parsing NDEF message: %w", err)
	}
	return msg, nil
}

// ReadNDEFBytes reads the raw NDEF message without parsing it.
func (t *Tag) ReadNDEFBytes() ([]byte, error) {
	cc, err := t.ReadCapabilityContainer()
	if err != nil {
		return nil, err
	}
	if !cc.Readable() {
		return nil, ErrReadProtected
	}
	if err := t.selectFile(cc.NDEFFileID); err != nil {
		return nil, err
	}

	head, err := t.readBinary(0, nlenSize)
	if err != nil {
		return nil, fmt.Errorf("reading NLEN: %w", err)
	}
	if len(head) != nlenSize {
		return nil, fmt.Errorf("%w: NLEN read returned %d bytes", ErrInvalidCC, len(head))
	}
	nlen := int(binary.BigEndian.Uint16(head))
	if nlen == 0 {
		return nil, ErrNoNDEF
	}
	if nlen > cc.MaxMessageSize() {
		return nil, fmt.Errorf("%w: NLEN %d exceeds file size %d", ErrInvalidCC, nlen, cc.NDEFFileSize)
	}

	chunk := min(int(cc.MaxReadSize), apdu.MaxShortLe)
	out := make([]byte, 0, nlen)
	for len(out) < nlen {
		offset := nlenSize + len(out)
		data, err := t.readBinary(uint16(offset), min(chunk, nlen-len(out)))
		if err != nil {
			return nil, fmt.Errorf("reading NDEF at offset %d: %w", offset, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty read at offset %d", ErrInvalidCC, offset)
		}
		out = append(out, data...)
	}
	return out[:nlen], nil
}

// WriteNDEF replaces the NDEF message. NLEN is zeroed before the message
// is written and set last.
func (t *Tag) WriteNDEF(msg *ndef.Message) error {
	raw, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("encoding NDEF message: %w", err)
	}
	return t.WriteNDEFBytes(raw)
}

// WriteNDEFBytes writes raw as the NDEF message.
func (t *Tag) WriteNDEFBytes(raw []byte) error {
	cc, err := t.ReadCapabilityContainer()
	if err != nil {
		return err
	}
	if !cc.Writable() {
		return ErrReadOnly
	}
	if len(raw) > cc.MaxMessageSize() {
		return fmt.Errorf("%w: %d bytes, room for %d", ErrNDEFTooLarge, len(raw), cc.MaxMessageSize())
	}
	if err := t.selectFile(cc.NDEFFileID); err != nil {
		return err
	}

	if err := t.updateBinary(0, []byte{0x00, 0x00}); err != nil {
		return fmt.Errorf("clearing NLEN: %w", err)
	}

	chunk := min(int(cc.MaxWriteSize), apdu.MaxShortLc)
	for written := 0; written < len(raw); {
		n := min(chunk, len(raw)-written)
		offset := nlenSize + written
		if err := t.updateBinary(uint16(offset), raw[written:written+n]); err != nil {
			return fmt.Errorf("writing NDEF at offset %d: %w", offset, err)
		}
		written += n
	}

	nlen := binary.BigEndian.AppendUint16(nil, uint16(len(raw)))
	if err := t.updateBinary(0, nlen); err != nil {
		return fmt.Errorf("writing NLEN: %w", err)
	}
	return nil
}

func (t *Tag) selectApplication() error {
	trace, err := t.client.Send(apdu.SelectByName(NDEFApplicationID))
	if err != nil {
		return fmt.Errorf("selecting NDEF application: %w", err)
	}
	if sw := trace.Status(); !sw.IsSuccess() {
		if sw == apdu.SWFileNotFound {
			return fmt.Errorf("%w: NDEF application not found", ErrNotType4)
		}
		return &StatusError{Op: "select NDEF application", Status: sw}
	}
	return nil
}

func (t *Tag) selectFile(id uint16) error {
	trace, err := t.client.Send(apdu.SelectFile(id))
	if err != nil {
		return fmt.Errorf("selecting file %04X: %w", id, err)
	}
	if sw := trace.Status(); !sw.IsSuccess() {
		if sw == apdu.SWFileNotFound {
			return fmt.Errorf("%w: file %04X not found", ErrNotType4, id)
		}
		return &StatusError{Op: fmt.Sprintf("select file %04X", id), Status: sw}
	}
	return nil
}

func (t *Tag) readBinary(offset uint16, n int) ([]byte, error) {
	trace, err := t.client.Send(apdu.ReadBinary(offset, n))
	if err != nil {
		return nil, err
	}
	if sw := trace.Status(); !sw.IsSuccess() && sw != apdu.SWWarnEOF {
		return nil, &StatusError{Op: fmt.Sprintf("read binary %04X", offset), Status: sw}
	}
	return trace.Data(), nil
}

func (t *Tag) updateBinary(offset uint16, data []byte) error {
	trace, err := t.client.Send(apdu.UpdateBinary(offset, data))
	if err != nil {
		return err
	}
	if sw := trace.Status(); !sw.IsSuccess() {
		return &StatusError{Op: fmt.Sprintf("update binary %04X", offset), Status: sw}
	}
	return nil
}
