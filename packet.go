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
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/aintinksmart/go-easytag/internal/crc"
)

// Packet layout constants recovered from the vendor application.
const (
	// HeaderLength is the size of the header packet.
	HeaderLength = 20
	// DataLength is the size of every data packet.
	DataLength = 204
	// DataPayloadLength is the payload capacity of one data packet.
	DataPayloadLength = 200

	// protocolByteIndex marks the header byte that is never obfuscated.
	protocolByteIndex = 9
	protocolByte      = 98
)

var headerMagic = [2]byte{0xFF, 0xFC}

const (
	headerTag    = "easyTag"
	headerSuffix = "BT"
)

// secretPad is the constant the vendor application XORs into every packet.
// Only the byte at index 98 feeds the keystream; the rest of the string is
// carried verbatim so the derivation stays recognizable against captures.
const secretPad = "b8b26356ec4473bd3f36e6495d756703a4bb835139f0b161423b5f286c4e97d6" +
	"0015bab2cdefb7ae0fcb099b599cc44d391645dde4b89b6e50f53dc046ec25ac" +
	"b8b26356ec4473bd3f36e6495d756703a4bb835139f0b161423b5f286c4e97d6" +
	"0015bab2cdefb7ae0fcb099b599ac44d391645dde4b89b6e50f53dc046ec25ac"

// secretKey is the fixed half of the keystream.
func secretKey() byte {
	return secretPad[protocolByte]
}

// BuildPackets splits a hex payload into the transmission units the display
// expects: one header packet followed by ceil(len/200) data packets, each
// checksummed and XOR-obfuscated with the keystream derived from addr.
// Returned packets must not be mutated; a transport consumes them as-is.
func BuildPackets(payload string, addr Address) ([][]byte, error) {
	raw, err := hex.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHexPayload, err)
	}

	key := addr.XORKey() ^ secretKey()
	chunks := (len(raw) + DataPayloadLength - 1) / DataPayloadLength

	packets := make([][]byte, 0, chunks+1)
	packets = append(packets, buildHeader(len(raw), chunks, key))
	for i := 0; i < chunks; i++ {
		start := i * DataPayloadLength
		end := min(start+DataPayloadLength, len(raw))
		packets = append(packets, buildData(i+1, raw[start:end], key))
	}
	return packets, nil
}

// buildHeader assembles the 20-byte header packet. Byte 9 is the protocol
// marker the firmware reads before deobfuscation, so it is the only byte
// the keystream skips.
func buildHeader(payloadLen, chunks int, key byte) []byte {
	h := make([]byte, HeaderLength)
	h[0], h[1] = headerMagic[0], headerMagic[1]
	copy(h[2:9], headerTag)
	h[protocolByteIndex] = protocolByte
	binary.BigEndian.PutUint32(h[10:14], uint32(payloadLen))
	binary.BigEndian.PutUint16(h[14:16], uint16(chunks))
	copy(h[16:18], headerSuffix)
	binary.BigEndian.PutUint16(h[18:20], crc.Checksum16(h[:18]))

	for i := range h {
		if i == protocolByteIndex {
			continue
		}
		h[i] ^= key
	}
	return h
}

// buildData assembles one 204-byte data packet: 1-based big-endian index,
// up to 200 payload bytes zero-padded on the last chunk, and the checksum
// over the first 202 bytes. Every byte is obfuscated.
func buildData(index int, payload []byte, key byte) []byte {
	d := make([]byte, DataLength)
	binary.BigEndian.PutUint16(d[0:2], uint16(index))
	copy(d[2:], payload)
	binary.BigEndian.PutUint16(d[202:204], crc.Checksum16(d[:202]))

	for i := range d {
		d[i] ^= key
	}
	return d
}
