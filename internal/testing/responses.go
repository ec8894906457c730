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

// BuildFirmwareVersionResponse creates a GetFirmwareVersion response:
// PN532 version 1.6, ISO14443A/B and ISO18092 supported.
func BuildFirmwareVersionResponse() []byte {
	return []byte{0x03, 0x32, 0x01, 0x06, 0x07}
}

// BuildSAMConfigurationResponse creates a SAMConfiguration response
func BuildSAMConfigurationResponse() []byte {
	return []byte{0x15}
}

// BuildISODEPTargetResponse creates an InListPassiveTarget response for an
// ISO/IEC 14443-4 card. ats starts with its TL byte.
func BuildISODEPTargetResponse(uid, ats []byte) []byte {
	response := []byte{0x4B, 0x01, 0x01}                         // 1 target, Tg 1
	response = append(response, 0x03, 0x44, 0x20, byte(len(uid))) // ATQA, SAK with ISO-DEP bit
	response = append(response, uid...)
	return append(response, ats...)
}

// BuildType2TargetResponse creates an InListPassiveTarget response for a
// card without ISO-DEP support (NTAG/Ultralight).
func BuildType2TargetResponse(uid []byte) []byte {
	response := []byte{0x4B, 0x01, 0x01}
	response = append(response, 0x00, 0x44, 0x00, byte(len(uid)))
	return append(response, uid...)
}

// BuildNoTagResponse creates an empty InListPassiveTarget response
func BuildNoTagResponse() []byte {
	return []byte{0x4B, 0x00}
}

// BuildCommunicateThruResponse creates a successful InCommunicateThru response
func BuildCommunicateThruResponse(data []byte) []byte {
	response := []byte{0x43, 0x00}
	return append(response, data...)
}

// BuildReleaseResponse creates a successful InRelease response
func BuildReleaseResponse() []byte {
	return []byte{0x53, 0x00}
}

// BuildErrorResponse creates a response carrying a PN532 status error
func BuildErrorResponse(cmd, errorCode byte) []byte {
	return []byte{cmd + 1, errorCode}
}

// Command bytes for reference
const (
	CmdGetFirmwareVersion  = 0x02
	CmdSAMConfiguration    = 0x14
	CmdInListPassiveTarget = 0x4A
	CmdInCommunicateThru   = 0x42
	CmdInRelease           = 0x52
)
