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

import "errors"

// Pipeline errors. These are deterministic failures of the pure
// quantize/encode/build functions and are never retried.
var (
	ErrImageDecode    = errors.New("image cannot be decoded")
	ErrInvalidMode    = errors.New("invalid color mode")
	ErrEncode         = errors.New("payload encoding failed")
	ErrBadHexPayload  = errors.New("payload string is not valid hex")
	ErrInvalidAddress = errors.New("invalid device address")
)

// Transfer errors. A transfer that ends with one of these has already
// released its link and cleared its registry entry; the caller may start a
// fresh attempt.
var (
	ErrLink            = errors.New("link error")
	ErrBusy            = errors.New("transfer already in flight for address")
	ErrTimeout         = errors.New("operation timeout")
	ErrGatewayReported = errors.New("gateway reported error")
)

// IsPipelineError reports whether err is a deterministic failure of the
// image/payload/packet pipeline, as opposed to a transport outcome.
func IsPipelineError(err error) bool {
	return errors.Is(err, ErrImageDecode) ||
		errors.Is(err, ErrInvalidMode) ||
		errors.Is(err, ErrEncode) ||
		errors.Is(err, ErrBadHexPayload) ||
		errors.Is(err, ErrInvalidAddress)
}
