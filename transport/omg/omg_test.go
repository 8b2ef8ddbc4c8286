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

package omg

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	easytag "github.com/aintinksmart/go-easytag"
)

type mockToken struct {
	err error
}

func (t *mockToken) Wait() bool                     { return true }
func (t *mockToken) WaitTimeout(time.Duration) bool { return true }
func (t *mockToken) Error() error                   { return t.err }
func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type publishRecord struct {
	topic   string
	payload []byte
}

type mockClient struct {
	mu         sync.Mutex
	publishes  []publishRecord
	publishErr error
}

func (c *mockClient) IsConnected() bool      { return true }
func (c *mockClient) IsConnectionOpen() bool { return true }
func (c *mockClient) Connect() mqtt.Token    { return &mockToken{} }
func (c *mockClient) Disconnect(uint)        {}

func (c *mockClient) Publish(topic string, _ byte, _ bool, payload any) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return &mockToken{err: c.publishErr}
	}
	c.publishes = append(c.publishes, publishRecord{topic: topic, payload: payload.([]byte)})
	return &mockToken{}
}

func (c *mockClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	return &mockToken{}
}

func (c *mockClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &mockToken{}
}

func (c *mockClient) Unsubscribe(...string) mqtt.Token { return &mockToken{} }

func (c *mockClient) AddRoute(string, mqtt.MessageHandler) {}

func (c *mockClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

func (c *mockClient) recorded() []publishRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]publishRecord, len(c.publishes))
	copy(out, c.publishes)
	return out
}

func newTestTransport(t *testing.T, client *mockClient) *Transport {
	t.Helper()
	transport, err := New("localhost:1883", "home/OMG_ESP32_BLE",
		WithClientFactory(func(*mqtt.ClientOptions) mqtt.Client { return client }),
		WithPacketDelay(0))
	require.NoError(t, err)
	return transport
}

func omgAddress(t *testing.T) easytag.Address {
	t.Helper()
	addr, err := easytag.ParseAddress("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	return addr
}

func TestSendPublishesWriteCommands(t *testing.T) {
	t.Parallel()
	client := &mockClient{}
	transport := newTestTransport(t, client)
	addr := omgAddress(t)

	packets := [][]byte{{0xFF, 0xFC}, {0x00, 0x01, 0xAB}}
	require.NoError(t, transport.Send(context.Background(), addr, packets, easytag.NopProgress))

	records := client.recorded()
	require.Len(t, records, 2)

	for i, record := range records {
		assert.Equal(t, "home/OMG_ESP32_BLE/commands/MQTTtoBT", record.topic)

		var cmd map[string]any
		require.NoError(t, json.Unmarshal(record.payload, &cmd))
		assert.Equal(t, "AA:BB:CC:DD:EE:FF", cmd["id"])
		assert.Equal(t, "AA:BB:CC:DD:EE:FF", cmd["ble_write_address"])
		assert.Equal(t, easytag.ServiceUUID, cmd["ble_write_service"])
		assert.Equal(t, easytag.ImageCharacteristicUUID, cmd["ble_write_char"])
		assert.Equal(t, "HEX", cmd["value_type"])
		if i == 0 {
			assert.Equal(t, "FFFC", cmd["ble_write_value"])
		} else {
			assert.Equal(t, "0001AB", cmd["ble_write_value"])
		}
	}
}

func TestSendPublishFailure(t *testing.T) {
	t.Parallel()
	client := &mockClient{publishErr: errors.New("broker gone")}
	transport := newTestTransport(t, client)

	err := transport.Send(context.Background(), omgAddress(t),
		[][]byte{{0x01}}, easytag.NopProgress)
	assert.ErrorIs(t, err, easytag.ErrLink)
}

func TestSendContextCanceledBetweenPackets(t *testing.T) {
	t.Parallel()
	client := &mockClient{}
	transport, err := New("localhost:1883", "home/OMG_ESP32_BLE/",
		WithClientFactory(func(*mqtt.ClientOptions) mqtt.Client { return client }),
		WithPacketDelay(time.Minute))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- transport.Send(ctx, omgAddress(t),
			[][]byte{{0x01}, {0x02}}, easytag.NopProgress)
	}()
	require.Eventually(t, func() bool { return len(client.recorded()) == 1 },
		time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestTrailingSlashTrimmed(t *testing.T) {
	t.Parallel()
	client := &mockClient{}
	transport, err := New("localhost:1883", "home/OMG_ESP32_BLE///",
		WithClientFactory(func(*mqtt.ClientOptions) mqtt.Client { return client }))
	require.NoError(t, err)
	assert.Equal(t, "home/OMG_ESP32_BLE/commands/MQTTtoBT", transport.commandTopic)
	assert.Equal(t, easytag.TransportOMG, transport.Type())
}

var (
	_ mqtt.Client       = (*mockClient)(nil)
	_ easytag.Transport = (*Transport)(nil)
)
