// go-easytag
// Copyright (c) 2026 The Aintinksmart Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-easytag.
//
// go-easytag is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-easytag is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-easytag; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package easytag

import (
	"fmt"
	"strconv"
	"strings"
)

// Address is the 6-byte hardware address of a display. It routes the
// transport and seeds the packet keystream.
type Address [6]byte

// ParseAddress parses a hardware address written as six hex byte groups
// separated by colons or hyphens, e.g. "AA:BB:CC:DD:EE:FF".
func ParseAddress(s string) (Address, error) {
	var addr Address
	sep := ":"
	if !strings.Contains(s, ":") && strings.Contains(s, "-") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 6 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	for i, part := range parts {
		if len(part) != 2 {
			return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		addr[i] = byte(v)
	}
	return addr, nil
}

// String returns the canonical colon-separated uppercase form.
func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// TopicID returns the address with separators stripped, as used in MQTT
// topic segments.
func (a Address) TopicID() string {
	return fmt.Sprintf("%02X%02X%02X%02X%02X%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// XORKey returns the keystream byte derived from the address: the XOR of
// its six bytes.
func (a Address) XORKey() byte {
	var key byte
	for _, b := range a {
		key ^= b
	}
	return key
}
