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

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist returns USB devices that must not be probed. These are
// serial bridges commonly used by other hardware that misbehaves when sent
// PN532 wake-up bytes.
func DefaultBlocklist() []string {
	return []string{
		"2341:0043", // Arduino Uno
		"2341:0001", // Arduino Uno (older)
		"1366:0105", // SEGGER J-Link CDC
		"0483:374B", // ST-LINK/V2-1 VCP
	}
}

// KnownBridges maps USB-serial bridges found on PN532 boards to their names
var KnownBridges = map[string]string{
	"1A86:7523": "CH340",
	"1A86:55D4": "CH9102",
	"10C4:EA60": "CP210x",
	"0403:6001": "FT232R",
	"0403:6015": "FT231X",
	"067B:2303": "PL2303",
}

// IsBlocked reports whether vidpid is in blocklist, ignoring case
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = normalizeVIDPID(vidpid)
	if vidpid == "" {
		return false
	}
	for _, blocked := range blocklist {
		if normalizeVIDPID(blocked) == vidpid {
			return true
		}
	}
	return false
}

// BridgeName returns the bridge chip name for a VID:PID, if known
func BridgeName(vidpid string) (string, bool) {
	name, ok := KnownBridges[normalizeVIDPID(vidpid)]
	return name, ok
}

// FormatVIDPID joins a vendor and product ID as VID:PID. The enumerator
// reports them as hex strings.
func FormatVIDPID(vid, pid string) string {
	if vid == "" || pid == "" {
		return ""
	}
	return normalizeVIDPID(vid + ":" + pid)
}

// ParseVIDPID extracts VID:PID from descriptors such as "VID:1234 PID:5678",
// "vendor=1234 product=5678", "USB\VID_1234&PID_5678" or "1234:5678".
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(descriptor)

	vid := hexAfter(descriptor, "VID:", "VID_", "VID=", "VENDOR=")
	pid := hexAfter(descriptor, "PID:", "PID_", "PID=", "PRODUCT=")
	if vid != "" && pid != "" {
		return vid + ":" + pid
	}

	if parts := strings.Split(strings.TrimSpace(descriptor), ":"); len(parts) == 2 &&
		isHex(parts[0]) && isHex(parts[1]) {
		return parts[0] + ":" + parts[1]
	}
	return ""
}

func normalizeVIDPID(vidpid string) string {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	vid, pid, ok := strings.Cut(vidpid, ":")
	if !ok || !isHex(vid) || !isHex(pid) {
		return ""
	}
	return padHex(vid) + ":" + padHex(pid)
}

func padHex(s string) string {
	if len(s) >= 4 {
		return s
	}
	return strings.Repeat("0", 4-len(s)) + s
}

func hexAfter(s string, markers ...string) string {
	for _, marker := range markers {
		if idx := strings.Index(s, marker); idx >= 0 {
			if digits := leadingHex(s[idx+len(marker):]); digits != "" {
				return digits
			}
		}
	}
	return ""
}

func leadingHex(s string) string {
	end := 0
	for end < len(s) && isHexDigit(rune(s[end])) {
		end++
	}
	return s[:end]
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f')
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isHexDigit(r) {
			return false
		}
	}
	return true
}

// IsPathIgnored reports whether devicePath matches one of ignorePaths after
// cleaning. Matching is case-insensitive so COM3 and com3 are the same port.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := normalizedPath(devicePath)
	for _, ignore := range ignorePaths {
		if ignore != "" && normalizedPath(ignore) == device {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
