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

import "context"

// Transport defines the interface for delivering built packets to a display.
// Backends exist for a direct BLE link and for an MQTT gateway relay.
type Transport interface {
	// Send delivers packets to addr and blocks until the transfer reaches a
	// terminal outcome. Implementations must release the underlying link on
	// every exit path and honor ctx cancellation at every wait point. The
	// packet buffers must not be mutated.
	Send(ctx context.Context, addr Address, packets [][]byte, progress Progress) error

	// Type returns the transport type.
	Type() TransportType

	// Close releases resources held by the transport itself.
	Close() error
}

// TransportType identifies a transport backend.
type TransportType string

const (
	// TransportBLE writes packets over a direct BLE link.
	TransportBLE TransportType = "ble"
	// TransportGateway relays packets through a gateway on an MQTT bus.
	TransportGateway TransportType = "gateway"
	// TransportOMG relays packets through an OpenMQTTGateway instance.
	TransportOMG TransportType = "omg"
	// TransportMock is an in-memory transport for testing.
	TransportMock TransportType = "mock"
)

// Protocol endpoints on the display. The gateway firmware and the direct
// backend both write to the image characteristic and listen on the notify
// characteristic.
const (
	ServiceUUID              = "00001523-1212-efde-1523-785feabcd123"
	ImageCharacteristicUUID  = "00001525-1212-efde-1523-785feabcd123"
	NotifyCharacteristicUUID = "00001526-1212-efde-1523-785feabcd123"
)

// Progress receives phase and status updates for an in-flight transfer.
// Implementations must be safe for concurrent use; transports may report
// from listener goroutines.
type Progress interface {
	Update(phase Phase, status string)
}

// ProgressFunc adapts a function to the Progress interface.
type ProgressFunc func(phase Phase, status string)

// Update implements Progress.
func (f ProgressFunc) Update(phase Phase, status string) { f(phase, status) }

// NopProgress discards all updates. Useful when a transport is driven
// without a Sender.
var NopProgress Progress = ProgressFunc(func(Phase, string) {})
