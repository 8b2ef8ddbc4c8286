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

// Package omg relays display packets through an OpenMQTTGateway instance.
//
// This is a different dialect from the native gateway: each packet becomes
// a JSON BLE-write command addressed by hardware address, service and
// characteristic on the gateway's MQTTtoBT command topic. There is no
// readiness handshake and no per-display status topic; the only outcome
// available is broker publish confirmation.
package omg

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	easytag "github.com/aintinksmart/go-easytag"
	"github.com/aintinksmart/go-easytag/internal/mqttutil"
)

const defaultPacketDelay = 50 * time.Millisecond

// writeCommand is one OpenMQTTGateway BLE write request.
type writeCommand struct {
	ID           string `json:"id"`
	WriteAddress string `json:"ble_write_address"`
	WriteService string `json:"ble_write_service"`
	WriteChar    string `json:"ble_write_char"`
	WriteValue   string `json:"ble_write_value"`
	ValueType    string `json:"value_type"`
	MacType      int    `json:"mac_type"`
}

// Transport publishes packets as OpenMQTTGateway write commands.
type Transport struct {
	client       mqtt.Client
	commandTopic string
	packetDelay  time.Duration
	qos          byte
	factory      mqttutil.ClientFactory
	username     string
	password     string
}

// Option configures the Transport.
type Option func(*Transport)

// WithPacketDelay sets the delay between packet publishes.
func WithPacketDelay(d time.Duration) Option {
	return func(t *Transport) { t.packetDelay = d }
}

// WithCredentials sets broker authentication.
func WithCredentials(username, password string) Option {
	return func(t *Transport) {
		t.username = username
		t.password = password
	}
}

// WithClientFactory substitutes the paho client constructor. Used by tests.
func WithClientFactory(factory mqttutil.ClientFactory) Option {
	return func(t *Transport) { t.factory = factory }
}

// New connects to the broker and returns a transport publishing to the
// OpenMQTTGateway rooted at baseTopic (e.g. "home/OMG_ESP32_BLE").
func New(brokerURL, baseTopic string, opts ...Option) (*Transport, error) {
	t := &Transport{
		commandTopic: strings.TrimRight(baseTopic, "/") + "/commands/MQTTtoBT",
		packetDelay:  defaultPacketDelay,
		qos:          1,
		factory:      mqttutil.DefaultClientFactory,
	}
	for _, opt := range opts {
		opt(t)
	}

	clientOpts := mqttutil.NewClientOptions(brokerURL, "easytag-omg-", t.username, t.password)
	client, err := mqttutil.Connect(t.factory, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", easytag.ErrLink, err)
	}
	t.client = client
	log.Info().Str("broker", brokerURL).Str("topic", t.commandTopic).Msg("omg: connected")
	return t, nil
}

// Type implements easytag.Transport.
func (*Transport) Type() easytag.TransportType { return easytag.TransportOMG }

// Close disconnects from the broker.
func (t *Transport) Close() error {
	t.client.Disconnect(250)
	return nil
}

// Send implements easytag.Transport. Fire-and-forget: success means every
// write command was accepted by the broker, not that the display redrew.
func (t *Transport) Send(ctx context.Context, addr easytag.Address, packets [][]byte, progress easytag.Progress) error {
	progress.Update(easytag.PhaseSending, "publishing_write_commands")
	for i, packet := range packets {
		cmd := writeCommand{
			ID:           addr.String(),
			WriteAddress: addr.String(),
			WriteService: easytag.ServiceUUID,
			WriteChar:    easytag.ImageCharacteristicUUID,
			WriteValue:   fmt.Sprintf("%X", packet),
			ValueType:    "HEX",
		}
		payload, err := json.Marshal(cmd)
		if err != nil {
			return fmt.Errorf("marshal write command: %w", err)
		}

		token := t.client.Publish(t.commandTopic, t.qos, false, payload)
		if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
			return fmt.Errorf("%w: publish write command %d/%d: %v",
				easytag.ErrLink, i+1, len(packets), token.Error())
		}

		if i < len(packets)-1 {
			if err := sleepCtx(ctx, t.packetDelay); err != nil {
				return err
			}
		}
	}
	log.Info().Str("addr", addr.String()).Int("packets", len(packets)).
		Msg("omg: all write commands published")
	return nil
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
