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
	"strings"
)

// The firmware accepts two competing payload serializations: "FC" carries
// run-length encoded planes, "FE" carries them packed 8 bits per byte.
// EncodePayload emits both and returns the shorter hex string.

const maxRunLength = 65535

// runLengthEncode serializes a bit array with the display's RLE scheme.
//
// Runs shorter than 7 bits are not emitted as runs at all: up to 7 raw bits
// are packed positionally into one byte (0x80 | first<<6 | bits 2..7 at
// positions 5..0), regardless of whether they are identical. The firmware
// decodes them positionally, so this must not be "fixed" into classic RLE.
// Longer runs use 1, 2 or 3 bytes depending on the run length.
func runLengthEncode(bits BitPlane) []byte {
	var out []byte
	n := len(bits)
	for i := 0; i < n; {
		run := 0
		for i+run < n && bits[i+run] == bits[i] && run < maxRunLength {
			run++
		}

		if run < 7 {
			var first, pattern byte
			m := n - i
			if m > 7 {
				m = 7
			}
			for j := 0; j < m; j++ {
				var bit byte
				if bits[i+j] {
					bit = 1
				}
				if j == 0 {
					first = bit
				} else {
					pattern |= bit << (6 - j)
				}
			}
			out = append(out, 0x80|first<<6|pattern)
			i += m
			continue
		}

		var value byte
		if bits[i] {
			value = 1
		}
		switch {
		case run <= 31:
			out = append(out, value<<6|byte(run))
		case run <= 255:
			out = append(out, value<<6|1, byte(run))
		default:
			out = append(out, value<<6, byte(run), byte(run>>8))
		}
		i += run
	}
	return out
}

// packBits serializes a bit array 8 bits per byte, most significant bit
// first, zero-padding the final byte.
func packBits(bits BitPlane) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

func anySet(bits BitPlane) bool {
	for _, bit := range bits {
		if bit {
			return true
		}
	}
	return false
}

// EncodeRLE builds the "FC" run-length payload for bm. A second "FC8"
// section carrying the red plane is appended only when red pixels exist.
func EncodeRLE(bm *Bitmap) string {
	yEnd, xEnd := bm.Height-1, bm.Width-1
	black := runLengthEncode(bm.Black)

	var sb strings.Builder
	fmt.Fprintf(&sb, "FC%04X%04X%04X%04X%08X%X", 0, 0, yEnd, xEnd, len(black), black)
	if anySet(bm.Red) {
		red := runLengthEncode(bm.Red)
		// The red section squeezes the y coordinates into 3 digits with a
		// literal '8' flag between the two corner pairs.
		fmt.Fprintf(&sb, "FC8%03X%04X8%03X%04X%08X%X", 0, 0, yEnd, xEnd, len(red), red)
	}
	return sb.String()
}

// EncodePacked builds the "FE" packed payload for bm. A second "03" section
// carrying the red plane is appended only when red pixels exist.
func EncodePacked(bm *Bitmap) string {
	yEnd, xEnd := bm.Height-1, bm.Width-1

	var sb strings.Builder
	fmt.Fprintf(&sb, "FE%04X%04X%04X%04X%X", 0, 0, yEnd, xEnd, packBits(bm.Black))
	if anySet(bm.Red) {
		fmt.Fprintf(&sb, "03%04X%04X%04X%04X%X", 0, 0, yEnd, xEnd, packBits(bm.Red))
	}
	return sb.String()
}

// EncodePayload serializes bm in both payload formats and returns the
// shorter hex string. Ties favor the run-length format.
func EncodePayload(bm *Bitmap) (string, error) {
	if err := validateBitmap(bm); err != nil {
		return "", err
	}
	rle := EncodeRLE(bm)
	packed := EncodePacked(bm)
	if len(rle) <= len(packed) {
		return rle, nil
	}
	return packed, nil
}

func validateBitmap(bm *Bitmap) error {
	switch {
	case bm == nil:
		return fmt.Errorf("%w: nil bitmap", ErrEncode)
	case bm.Width <= 0 || bm.Height <= 0:
		return fmt.Errorf("%w: bad canvas %dx%d", ErrEncode, bm.Width, bm.Height)
	case len(bm.Black) != bm.Width*bm.Height || len(bm.Red) != len(bm.Black):
		return fmt.Errorf("%w: plane length %d/%d does not match canvas %dx%d",
			ErrEncode, len(bm.Black), len(bm.Red), bm.Width, bm.Height)
	}
	return nil
}
