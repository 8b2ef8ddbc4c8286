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

package ble

import (
	"context"
	"fmt"
	"time"

	"tinygo.org/x/bluetooth"

	easytag "github.com/aintinksmart/go-easytag"
)

// DiscoveredDevice is one advertisement seen during a scan.
type DiscoveredDevice struct {
	Name    string
	Address string
	RSSI    int16
}

// Scan advertises-listens for up to duration and returns the unique devices
// seen. An empty name is kept; easyTag panels often advertise nameless.
func (t *Transport) Scan(ctx context.Context, duration time.Duration) ([]DiscoveredDevice, error) {
	seen := make(map[string]DiscoveredDevice)
	resultCh := make(chan bluetooth.ScanResult, 16)
	errCh := make(chan error, 1)

	go func() {
		err := t.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			select {
			case resultCh <- result:
			default:
			}
		})
		if err != nil {
			errCh <- err
		}
	}()
	defer func() { _ = t.adapter.StopScan() }()

	timer := time.NewTimer(duration)
	defer timer.Stop()
	for {
		select {
		case result := <-resultCh:
			addr := result.Address.String()
			if _, ok := seen[addr]; !ok {
				seen[addr] = DiscoveredDevice{
					Name:    result.LocalName(),
					Address: addr,
					RSSI:    result.RSSI,
				}
			}
		case err := <-errCh:
			return nil, fmt.Errorf("%w: scan: %v", easytag.ErrLink, err)
		case <-timer.C:
			devices := make([]DiscoveredDevice, 0, len(seen))
			for _, d := range seen {
				devices = append(devices, d)
			}
			return devices, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("scanning: %w", ctx.Err())
		}
	}
}
