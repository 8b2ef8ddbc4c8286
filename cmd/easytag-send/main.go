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

// Command easytag-send pushes an image to an easyTag e-paper display, either
// over the host's BLE adapter or through an MQTT gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	easytag "github.com/aintinksmart/go-easytag"
	"github.com/aintinksmart/go-easytag/transport/ble"
	"github.com/aintinksmart/go-easytag/transport/gateway"
	"github.com/aintinksmart/go-easytag/transport/omg"
)

type config struct {
	imagePath string
	address   string
	mode      string
	transport string
	broker    string
	baseTopic string
	username  string
	password  string
	delay     time.Duration
	timeout   time.Duration
	scan      time.Duration
	debug     bool
}

// Package-level flag variables
var (
	flagImagePath = flag.String("image", "", "Path of the image to send (PNG, JPEG, GIF or BMP)")
	flagAddress   = flag.String("address", "", "Display hardware address, e.g. AA:BB:CC:DD:EE:FF")
	flagMode      = flag.String("mode", "bwr", "Color mode: bw or bwr")
	flagTransport = flag.String("transport", "ble", "Transport: ble, gateway or omg")
	flagBroker    = flag.String("broker", "localhost:1883", "MQTT broker URL (gateway and omg transports)")
	flagBaseTopic = flag.String("topic", "aintinksmart/gateway", "Gateway base topic (or OMG device base topic)")
	flagUsername  = flag.String("username", "", "MQTT username")
	flagPassword  = flag.String("password", "", "MQTT password")
	flagDelay     = flag.Duration("delay", 20*time.Millisecond, "Inter-packet delay")
	flagTimeout   = flag.Duration("timeout", 60*time.Second, "Overall send timeout")
	flagScan      = flag.Duration("scan", 0, "Scan for displays for the given duration and exit")
	flagDebug     = flag.Bool("debug", false, "Enable debug output")
)

func parseConfig() *config {
	flag.Parse()
	cfg := &config{
		imagePath: *flagImagePath,
		address:   *flagAddress,
		mode:      *flagMode,
		transport: *flagTransport,
		broker:    *flagBroker,
		baseTopic: *flagBaseTopic,
		username:  *flagUsername,
		password:  *flagPassword,
		delay:     *flagDelay,
		timeout:   *flagTimeout,
		scan:      *flagScan,
		debug:     *flagDebug,
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return cfg
}

func newTransport(cfg *config) (easytag.Transport, error) {
	switch cfg.transport {
	case "ble":
		transport, err := ble.New(ble.WithPacketDelay(cfg.delay))
		if err != nil {
			return nil, fmt.Errorf("failed to create BLE transport: %w", err)
		}
		return transport, nil
	case "gateway":
		transport, err := gateway.New(cfg.broker, cfg.baseTopic,
			gateway.WithPacketDelay(cfg.delay),
			gateway.WithCredentials(cfg.username, cfg.password))
		if err != nil {
			return nil, fmt.Errorf("failed to create gateway transport: %w", err)
		}
		return transport, nil
	case "omg":
		transport, err := omg.New(cfg.broker, cfg.baseTopic,
			omg.WithPacketDelay(cfg.delay),
			omg.WithCredentials(cfg.username, cfg.password))
		if err != nil {
			return nil, fmt.Errorf("failed to create OMG transport: %w", err)
		}
		return transport, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.transport)
	}
}

func runScan(ctx context.Context, cfg *config) error {
	transport, err := ble.New()
	if err != nil {
		return err
	}
	fmt.Printf("Scanning for %v...\n", cfg.scan)
	devices, err := transport.Scan(ctx, cfg.scan)
	if err != nil {
		return err
	}
	for _, d := range devices {
		name := d.Name
		if name == "" {
			name = "(no name)"
		}
		fmt.Printf("%s  rssi=%d  %s\n", d.Address, d.RSSI, name)
	}
	fmt.Printf("%d device(s) found\n", len(devices))
	return nil
}

func runSend(ctx context.Context, cfg *config) error {
	if cfg.imagePath == "" || cfg.address == "" {
		flag.Usage()
		return fmt.Errorf("both -image and -address are required")
	}

	addr, err := easytag.ParseAddress(cfg.address)
	if err != nil {
		return err
	}
	mode, err := easytag.ParseMode(cfg.mode)
	if err != nil {
		return err
	}
	imageData, err := os.ReadFile(cfg.imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	transport, err := newTransport(cfg)
	if err != nil {
		return err
	}

	sender, err := easytag.NewSender(transport, easytag.WithSendTimeout(cfg.timeout))
	if err != nil {
		return err
	}
	defer func() { _ = sender.Close() }()

	if err := sender.SendImage(ctx, addr, imageData, mode); err != nil {
		return err
	}
	fmt.Printf("Image sent to %s via %s\n", addr, transport.Type())
	return nil
}

func main() {
	cfg := parseConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if cfg.scan > 0 {
		err = runScan(ctx, cfg)
	} else {
		err = runSend(ctx, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
