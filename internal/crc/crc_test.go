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

package crc

import "testing"

// Reference values were produced by running the vendor algorithm over the
// same inputs. They pin the nibble-driven variant against regressions.
func TestChecksum16(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{
			name: "empty data",
			data: []byte{},
			want: 0xFFFF,
		},
		{
			name: "single zero byte",
			data: []byte{0x00},
			want: 0xFD02,
		},
		{
			name: "check string",
			data: []byte("123456789"),
			want: 0xAEE7,
		},
		{
			name: "protocol tag",
			data: []byte("easyTag"),
			want: 0x626D,
		},
		{
			name: "empty payload header",
			data: []byte{
				0xFF, 0xFC, 'e', 'a', 's', 'y', 'T', 'a', 'g', 98,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 'B', 'T',
			},
			want: 0x2BB7,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Checksum16(tt.data); got != tt.want {
				t.Errorf("Checksum16() = %04X, want %04X", got, tt.want)
			}
		})
	}
}

func TestChecksum16Deterministic(t *testing.T) {
	t.Parallel()
	data := make([]byte, 204)
	for i := range data {
		data[i] = byte(i * 7)
	}
	first := Checksum16(data)
	for i := 0; i < 10; i++ {
		if got := Checksum16(data); got != first {
			t.Fatalf("Checksum16() not deterministic: %04X != %04X", got, first)
		}
	}
}
