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

// Package crc implements the checksum used by the easyTag display firmware.
package crc

// table is the 16-entry nibble lookup recovered from the vendor
// application. It does not correspond to any standard CRC16 profile.
var table = [16]uint16{
	0, 32773, 32783, 10, 32795, 30, 20, 32785,
	32819, 54, 60, 32825, 40, 32813, 32807, 34,
}

// Checksum16 computes the display protocol's nibble-driven CRC16 over data.
// The firmware validates packets with this exact algorithm; a standard
// table-driven CRC16 produces incompatible values.
func Checksum16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		v := b
		for i := 0; i < 2; i++ {
			idx := (byte(crc>>8) ^ v) >> 4
			crc = table[idx] ^ (crc << 4)
			v <<= 4
		}
	}
	return crc
}
