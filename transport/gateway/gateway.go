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

// Package gateway relays display packets through an easyTag gateway process
// over MQTT.
//
// The gateway listens on per-display command topics and drives the BLE link
// on our behalf. A transfer publishes a start message, waits for the
// gateway to report "connected_ble" on the status topic, streams the
// packets hex-encoded, and then waits for the gateway's terminal status
// ("success" or an "error_*" string).
package gateway

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
	"github.com/aintinksmart/go-easytag/internal/syncutil"
)

const (
	defaultConnectTimeout = 60 * time.Second
	defaultStatusTimeout  = 60 * time.Second
	defaultPacketDelay    = 20 * time.Millisecond
	defaultQoS            = 1

	readyStatus   = "connected_ble"
	successStatus = "success"
	errorPrefix   = "error_"
)

// Transport relays packets through a gateway reachable on an MQTT broker.
// It is safe for concurrent use; transfers to distinct displays multiplex
// over the one client connection.
type Transport struct {
	client    mqtt.Client
	pending   map[string]*pendingTransfer
	baseTopic string

	connectTimeout time.Duration
	statusTimeout  time.Duration
	packetDelay    time.Duration
	qos            byte

	factory  mqttutil.ClientFactory
	username string
	password string

	mu syncutil.Mutex
}

// pendingTransfer is the rendezvous between a Send call and the status
// listener. ready is closed once when the gateway reports the display link
// is up; terminal receives the gateway's final status string.
type pendingTransfer struct {
	progress easytag.Progress
	ready    chan struct{}
	terminal chan string
	signaled bool
}

// Option configures the Transport.
type Option func(*Transport)

// WithConnectTimeout bounds the wait for the gateway readiness signal.
func WithConnectTimeout(d time.Duration) Option {
	return func(t *Transport) { t.connectTimeout = d }
}

// WithStatusTimeout bounds the wait for the gateway's terminal status after
// all packets are published.
func WithStatusTimeout(d time.Duration) Option {
	return func(t *Transport) { t.statusTimeout = d }
}

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

// New connects to the broker and returns a gateway transport publishing
// under baseTopic (e.g. "aintinksmart/gateway").
func New(brokerURL, baseTopic string, opts ...Option) (*Transport, error) {
	t := &Transport{
		baseTopic:      strings.TrimRight(baseTopic, "/"),
		pending:        make(map[string]*pendingTransfer),
		connectTimeout: defaultConnectTimeout,
		statusTimeout:  defaultStatusTimeout,
		packetDelay:    defaultPacketDelay,
		qos:            defaultQoS,
		factory:        mqttutil.DefaultClientFactory,
	}
	for _, opt := range opts {
		opt(t)
	}

	clientOpts := mqttutil.NewClientOptions(brokerURL, "easytag-gw-", t.username, t.password)
	clientOpts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("gateway: broker connection lost")
	}

	client, err := mqttutil.Connect(t.factory, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", easytag.ErrLink, err)
	}
	t.client = client
	log.Info().Str("broker", brokerURL).Str("base_topic", t.baseTopic).Msg("gateway: connected")
	return t, nil
}

// Type implements easytag.Transport.
func (*Transport) Type() easytag.TransportType { return easytag.TransportGateway }

// Close disconnects from the broker.
func (t *Transport) Close() error {
	t.client.Disconnect(250)
	return nil
}

func (t *Transport) topic(addr easytag.Address, suffix string) string {
	return fmt.Sprintf("%s/display/%s/%s", t.baseTopic, addr.TopicID(), suffix)
}

// Send implements easytag.Transport. The flow-control variant implemented
// here is the explicit-readiness one: no packet is published until the
// gateway reports connected_ble, and the outcome is whatever terminal
// status the gateway publishes afterwards.
func (t *Transport) Send(ctx context.Context, addr easytag.Address, packets [][]byte, progress easytag.Progress) error {
	id := addr.TopicID()

	pending := &pendingTransfer{
		progress: progress,
		ready:    make(chan struct{}),
		terminal: make(chan string, 1),
	}
	t.mu.Lock()
	if _, exists := t.pending[id]; exists {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", easytag.ErrBusy, addr)
	}
	t.pending[id] = pending
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	statusTopic := t.topic(addr, "status")
	token := t.client.Subscribe(statusTopic, t.qos, t.handleStatus)
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		return fmt.Errorf("%w: subscribe %s: %v", easytag.ErrLink, statusTopic, token.Error())
	}
	defer t.client.Unsubscribe(statusTopic)

	if err := t.publishStart(addr, len(packets)); err != nil {
		return err
	}

	progress.Update(easytag.PhaseConnecting, "gateway_waiting_connect")
	if err := t.awaitReady(ctx, pending); err != nil {
		return err
	}

	progress.Update(easytag.PhaseSending, "gateway_sending_packets")
	if err := t.publishPackets(ctx, addr, packets); err != nil {
		return err
	}

	return t.awaitTerminal(ctx, addr, pending)
}

// publishStart announces the transfer and the number of packet messages the
// gateway should expect (header included, matching the gateway firmware's
// count).
func (t *Transport) publishStart(addr easytag.Address, totalPackets int) error {
	payload, err := json.Marshal(map[string]int{"total_packets": totalPackets})
	if err != nil {
		return fmt.Errorf("marshal start command: %w", err)
	}
	token := t.client.Publish(t.topic(addr, "command/start"), t.qos, false, payload)
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		return fmt.Errorf("%w: publish start: %v", easytag.ErrLink, token.Error())
	}
	log.Debug().Str("addr", addr.String()).Int("total_packets", totalPackets).
		Msg("gateway: start published")
	return nil
}

func (t *Transport) awaitReady(ctx context.Context, pending *pendingTransfer) error {
	timer := time.NewTimer(t.connectTimeout)
	defer timer.Stop()
	select {
	case <-pending.ready:
		return nil
	case status := <-pending.terminal:
		// The gateway can fail before the link ever comes up.
		return fmt.Errorf("%w: %s", easytag.ErrGatewayReported, status)
	case <-timer.C:
		return fmt.Errorf("%w: gateway did not report %s within %v",
			easytag.ErrTimeout, readyStatus, t.connectTimeout)
	case <-ctx.Done():
		return fmt.Errorf("waiting for gateway readiness: %w", ctx.Err())
	}
}

func (t *Transport) publishPackets(ctx context.Context, addr easytag.Address, packets [][]byte) error {
	packetTopic := t.topic(addr, "command/packet")
	for i, packet := range packets {
		token := t.client.Publish(packetTopic, t.qos, false, fmt.Sprintf("%X", packet))
		if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
			return fmt.Errorf("%w: publish packet %d/%d: %v",
				easytag.ErrLink, i+1, len(packets), token.Error())
		}
		if i < len(packets)-1 {
			if err := sleepCtx(ctx, t.packetDelay); err != nil {
				return err
			}
		}
	}

	// End marker; the readiness-driven gateway does not require it but the
	// firmware uses it to close the link early.
	token := t.client.Publish(t.topic(addr, "command/end"), t.qos, false, "{}")
	token.WaitTimeout(10 * time.Second)
	log.Debug().Str("addr", addr.String()).Int("packets", len(packets)).
		Msg("gateway: all packets published")
	return nil
}

// awaitTerminal waits for the gateway to report the transfer's outcome.
func (t *Transport) awaitTerminal(ctx context.Context, addr easytag.Address, pending *pendingTransfer) error {
	timer := time.NewTimer(t.statusTimeout)
	defer timer.Stop()
	select {
	case status := <-pending.terminal:
		if strings.HasPrefix(status, errorPrefix) {
			return fmt.Errorf("%w: %s", easytag.ErrGatewayReported, status)
		}
		log.Info().Str("addr", addr.String()).Str("status", status).
			Msg("gateway: transfer finished")
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: no terminal status from gateway within %v",
			easytag.ErrTimeout, t.statusTimeout)
	case <-ctx.Done():
		return fmt.Errorf("waiting for gateway status: %w", ctx.Err())
	}
}

// handleStatus routes a status message to its pending transfer. Messages
// for unknown displays are logged and dropped; retained or late statuses
// are expected after a transfer tears down.
func (t *Transport) handleStatus(_ mqtt.Client, msg mqtt.Message) {
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) < 2 || parts[len(parts)-1] != "status" {
		log.Debug().Str("topic", msg.Topic()).Msg("gateway: ignoring message on unexpected topic")
		return
	}
	id := parts[len(parts)-2]
	status := string(msg.Payload())

	t.mu.Lock()
	pending, ok := t.pending[id]
	if ok && status == readyStatus && !pending.signaled {
		pending.signaled = true
		close(pending.ready)
	}
	t.mu.Unlock()

	if !ok {
		log.Debug().Str("id", id).Str("status", status).
			Msg("gateway: status for display with no pending transfer")
		return
	}

	switch {
	case status == readyStatus:
		pending.progress.Update(easytag.PhaseConnecting, status)
	case status == successStatus || strings.HasPrefix(status, errorPrefix):
		select {
		case pending.terminal <- status:
		default:
		}
	default:
		pending.progress.Update(easytag.PhaseSending, status)
	}
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
