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

import "encoding/binary"

// SelectByName selects an application by its AID (first or only occurrence).
func SelectByName(aid []byte) *Command {
	return &Command{INS: InsSelect, P1: 0x04, P2: 0x00, Data: aid, Ne: MaxShortLe}
}

// SelectFile selects an elementary file by identifier without requesting
// control information.
func SelectFile(fileID uint16) *Command {
	data := binary.BigEndian.AppendUint16(nil, fileID)
	return &Command{INS: InsSelect, P1: 0x00, P2: 0x0C, Data: data}
}

// ReadBinary reads ne bytes at offset from the current file.
func ReadBinary(offset uint16, ne int) *Command {
	return &Command{INS: InsReadBinary, P1: byte(offset >> 8), P2: byte(offset), Ne: ne}
}

// UpdateBinary writes data at offset into the current file.
func UpdateBinary(offset uint16, data []byte) *Command {
	return &Command{INS: InsUpdateBinary, P1: byte(offset >> 8), P2: byte(offset), Data: data}
}
