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

// Package ble writes display packets over a direct BLE link.
//
// The display exposes one writable image characteristic and one notify
// characteristic. Packets are written without response with a short
// inter-packet delay; after the last packet the link is held open briefly
// so the panel can process the image and emit notifications.
package ble

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"tinygo.org/x/bluetooth"

	easytag "github.com/aintinksmart/go-easytag"
)

const (
	defaultScanTimeout = 30 * time.Second
	defaultPacketDelay = 20 * time.Millisecond
	defaultSettleDelay = 5 * time.Second
)

// Transport writes packets over the host's BLE adapter.
type Transport struct {
	adapter *bluetooth.Adapter

	serviceUUID bluetooth.UUID
	imageUUID   bluetooth.UUID
	notifyUUID  bluetooth.UUID

	scanTimeout time.Duration
	packetDelay time.Duration
	settleDelay time.Duration
}

// Option configures the Transport.
type Option func(*Transport)

// WithScanTimeout bounds the scan for the target display.
func WithScanTimeout(d time.Duration) Option {
	return func(t *Transport) { t.scanTimeout = d }
}

// WithPacketDelay sets the delay between characteristic writes.
func WithPacketDelay(d time.Duration) Option {
	return func(t *Transport) { t.packetDelay = d }
}

// WithSettleDelay sets the post-send wait before the link is released.
func WithSettleDelay(d time.Duration) Option {
	return func(t *Transport) { t.settleDelay = d }
}

// New enables the default adapter and returns a BLE transport.
func New(opts ...Option) (*Transport, error) {
	t := &Transport{
		adapter:     bluetooth.DefaultAdapter,
		scanTimeout: defaultScanTimeout,
		packetDelay: defaultPacketDelay,
		settleDelay: defaultSettleDelay,
	}
	for _, opt := range opts {
		opt(t)
	}

	var err error
	if t.serviceUUID, err = bluetooth.ParseUUID(easytag.ServiceUUID); err != nil {
		return nil, fmt.Errorf("parse service UUID: %w", err)
	}
	if t.imageUUID, err = bluetooth.ParseUUID(easytag.ImageCharacteristicUUID); err != nil {
		return nil, fmt.Errorf("parse image characteristic UUID: %w", err)
	}
	if t.notifyUUID, err = bluetooth.ParseUUID(easytag.NotifyCharacteristicUUID); err != nil {
		return nil, fmt.Errorf("parse notify characteristic UUID: %w", err)
	}

	if err := t.adapter.Enable(); err != nil {
		return nil, fmt.Errorf("%w: enable adapter: %v", easytag.ErrLink, err)
	}
	return t, nil
}

// Type implements easytag.Transport.
func (*Transport) Type() easytag.TransportType { return easytag.TransportBLE }

// Close implements easytag.Transport. The adapter itself stays enabled.
func (*Transport) Close() error { return nil }

// Send implements easytag.Transport.
func (t *Transport) Send(ctx context.Context, addr easytag.Address, packets [][]byte, progress easytag.Progress) error {
	progress.Update(easytag.PhaseConnecting, "connecting_ble")
	device, err := t.connect(ctx, addr)
	if err != nil {
		return err
	}
	defer func() {
		if err := device.Disconnect(); err != nil {
			log.Warn().Str("addr", addr.String()).Err(err).Msg("ble: disconnect failed")
		}
	}()

	imageChar, notifyChar, err := t.discover(device)
	if err != nil {
		return err
	}

	// Notifications are informational; the panel reports chunk acceptance
	// but the protocol does not require acting on it.
	if err := notifyChar.EnableNotifications(func(buf []byte) {
		log.Debug().Str("addr", addr.String()).Hex("data", buf).Msg("ble: notification")
	}); err != nil {
		log.Warn().Str("addr", addr.String()).Err(err).Msg("ble: notifications unavailable")
	}

	progress.Update(easytag.PhaseSending, "sending_packets")
	for i, packet := range packets {
		if _, err := imageChar.WriteWithoutResponse(packet); err != nil {
			return fmt.Errorf("%w: write packet %d/%d: %v", easytag.ErrLink, i+1, len(packets), err)
		}
		if err := sleepCtx(ctx, t.packetDelay); err != nil {
			return err
		}
	}

	progress.Update(easytag.PhaseSending, "waiting_device")
	if err := sleepCtx(ctx, t.settleDelay); err != nil {
		return err
	}
	log.Info().Str("addr", addr.String()).Int("packets", len(packets)).Msg("ble: transfer written")
	return nil
}

// connect scans for the display and opens a link. Scanning by address and
// connecting to the scan result keeps the code portable across the
// adapter's platform backends.
func (t *Transport) connect(ctx context.Context, addr easytag.Address) (bluetooth.Device, error) {
	var zero bluetooth.Device

	resultCh := make(chan bluetooth.ScanResult, 1)
	errCh := make(chan error, 1)
	go func() {
		err := t.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !matchesAddress(result.Address.String(), addr) {
				return
			}
			if err := adapter.StopScan(); err != nil {
				log.Debug().Err(err).Msg("ble: stop scan failed")
			}
			select {
			case resultCh <- result:
			default:
			}
		})
		if err != nil {
			errCh <- err
		}
	}()

	timer := time.NewTimer(t.scanTimeout)
	defer timer.Stop()

	var result bluetooth.ScanResult
	select {
	case result = <-resultCh:
	case err := <-errCh:
		return zero, fmt.Errorf("%w: scan: %v", easytag.ErrLink, err)
	case <-timer.C:
		_ = t.adapter.StopScan()
		return zero, fmt.Errorf("%w: display %s not found within %v", easytag.ErrTimeout, addr, t.scanTimeout)
	case <-ctx.Done():
		_ = t.adapter.StopScan()
		return zero, fmt.Errorf("scanning for display: %w", ctx.Err())
	}

	device, err := t.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return zero, fmt.Errorf("%w: connect %s: %v", easytag.ErrLink, addr, err)
	}
	return device, nil
}

// discover resolves the image and notify characteristics.
func (t *Transport) discover(device bluetooth.Device) (imageChar, notifyChar bluetooth.DeviceCharacteristic, err error) {
	services, err := device.DiscoverServices([]bluetooth.UUID{t.serviceUUID})
	if err != nil || len(services) == 0 {
		return imageChar, notifyChar, fmt.Errorf("%w: display service not found: %v", easytag.ErrLink, err)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{t.imageUUID, t.notifyUUID})
	if err != nil {
		return imageChar, notifyChar, fmt.Errorf("%w: discover characteristics: %v", easytag.ErrLink, err)
	}

	var haveImage, haveNotify bool
	for _, c := range chars {
		switch c.UUID() {
		case t.imageUUID:
			imageChar, haveImage = c, true
		case t.notifyUUID:
			notifyChar, haveNotify = c, true
		}
	}
	if !haveImage || !haveNotify {
		return imageChar, notifyChar, fmt.Errorf("%w: display characteristics missing", easytag.ErrLink)
	}
	return imageChar, notifyChar, nil
}

// matchesAddress compares a scan result address string against the target,
// tolerating case and separator differences between platform backends.
func matchesAddress(scanned string, addr easytag.Address) bool {
	normalized := strings.ToUpper(strings.NewReplacer("-", ":", " ", "").Replace(scanned))
	return normalized == addr.String()
}

// sleepCtx waits for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("inter-packet delay: %w", ctx.Err())
	}
}
