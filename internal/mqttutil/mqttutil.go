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

// Package mqttutil holds paho client plumbing shared by the MQTT-based
// transports.
package mqttutil

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClientFactory builds a paho client from options. Tests substitute a mock.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

// DefaultClientFactory returns the real paho client.
func DefaultClientFactory(opts *mqtt.ClientOptions) mqtt.Client {
	return mqtt.NewClient(opts)
}

// ProtocolInfo is the broker scheme resolved from a URL string.
type ProtocolInfo struct {
	Protocol  string
	Remainder string
	UseTLS    bool
}

// ParseProtocol extracts scheme information from an MQTT broker URL.
// "mqtts://" and "ssl://" select TLS; everything else is plain TCP.
func ParseProtocol(urlStr string) ProtocolInfo {
	info := ProtocolInfo{Protocol: "tcp", Remainder: urlStr}
	if strings.Contains(urlStr, "://") {
		parts := strings.SplitN(urlStr, "://", 2)
		info.Remainder = parts[1]
		if parts[0] == "mqtts" || parts[0] == "ssl" {
			info.Protocol = "ssl"
			info.UseTLS = true
		}
	}
	return info
}

// NewClientOptions configures paho options for a broker URL. The client ID
// is the prefix plus a random suffix so parallel senders do not evict each
// other's sessions.
func NewClientOptions(brokerURL, clientIDPrefix, username, password string) *mqtt.ClientOptions {
	info := ParseProtocol(brokerURL)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s://%s", info.Protocol, info.Remainder))
	opts.SetClientID(clientIDPrefix + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOrderMatters(false)

	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}
	if info.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
		log.Debug().Msgf("mqtt: using TLS for %s", info.Remainder)
	}
	return opts
}

// Connect connects a client built by factory and waits for the handshake.
func Connect(factory ClientFactory, opts *mqtt.ClientOptions) (mqtt.Client, error) {
	client := factory(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		client.Disconnect(0)
		return nil, errors.New("connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return client, nil
}
