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

// Package easytag sends raster images to "easyTag" battery-powered e-paper
// displays over their reverse-engineered wire protocol.
//
// The pipeline is: an image is quantized into black and red bit planes
// (Quantize), the planes are serialized into the shorter of the two payload
// formats the firmware accepts (EncodePayload), the payload is split into
// checksummed and XOR-obfuscated packets (BuildPackets), and a Sender
// delivers the packets over a Transport. Backends for a direct BLE link and
// for an MQTT gateway relay live under transport/.
//
// Quantize, EncodePayload and BuildPackets are pure functions and safe for
// concurrent use. Sender runs at most one transfer per target address at a
// time; concurrent transfers to different addresses are fine.
package easytag
