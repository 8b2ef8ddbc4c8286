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

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// SenderConfig contains configuration options for the Sender.
type SenderConfig struct {
	// SendTimeout bounds one whole transfer, connect and settle included.
	SendTimeout time.Duration
}

// DefaultSenderConfig returns the default sender configuration.
func DefaultSenderConfig() *SenderConfig {
	return &SenderConfig{
		SendTimeout: 60 * time.Second,
	}
}

// Sender orchestrates transfers to displays over a single transport.
// It is safe for concurrent use; transfers to distinct addresses run in
// parallel while a second transfer to the same address is rejected.
type Sender struct {
	transport Transport
	registry  *registry
	config    *SenderConfig
}

// Option configures a Sender.
type Option func(*Sender) error

// WithSendTimeout bounds each Send call. Zero disables the bound.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Sender) error {
		if d < 0 {
			return fmt.Errorf("send timeout must not be negative: %v", d)
		}
		s.config.SendTimeout = d
		return nil
	}
}

// NewSender creates a Sender that delivers over transport.
func NewSender(transport Transport, opts ...Option) (*Sender, error) {
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	s := &Sender{
		transport: transport,
		registry:  newRegistry(),
		config:    DefaultSenderConfig(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Send delivers prebuilt packets to addr. It blocks until the transfer
// reaches a terminal outcome and always clears the transfer state on exit.
// A concurrent Send to the same address fails with ErrBusy without touching
// the in-flight transfer.
func (s *Sender) Send(ctx context.Context, addr Address, packets [][]byte) error {
	if err := s.registry.begin(addr); err != nil {
		log.Debug().Str("addr", addr.String()).Msg("sender: transfer rejected, already in flight")
		return err
	}
	defer s.registry.end(addr)

	if s.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.SendTimeout)
		defer cancel()
	}

	log.Info().
		Str("addr", addr.String()).
		Str("transport", string(s.transport.Type())).
		Int("packets", len(packets)).
		Msg("sender: transfer starting")

	s.registry.update(addr, PhaseConnecting, "connecting")
	progress := ProgressFunc(func(phase Phase, status string) {
		s.registry.update(addr, phase, status)
	})

	err := s.transport.Send(ctx, addr, packets, progress)
	switch {
	case err == nil:
		s.registry.update(addr, PhaseSuccess, "success")
		log.Info().Str("addr", addr.String()).Msg("sender: transfer complete")
		return nil
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		s.registry.update(addr, PhaseTimeout, "timeout")
		log.Warn().Str("addr", addr.String()).Err(err).Msg("sender: transfer timed out")
		if !errors.Is(err, ErrTimeout) {
			return fmt.Errorf("send to %s: %w", addr, ErrTimeout)
		}
		return err
	default:
		s.registry.update(addr, PhaseError, err.Error())
		log.Warn().Str("addr", addr.String()).Err(err).Msg("sender: transfer failed")
		return err
	}
}

// SendImage runs the whole pipeline: quantize the image, pick the shorter
// payload format, build packets and deliver them. Pipeline failures surface
// immediately and never create transfer state.
func (s *Sender) SendImage(ctx context.Context, addr Address, imageData []byte, mode Mode) error {
	bm, err := Quantize(imageData, mode)
	if err != nil {
		return err
	}
	payload, err := EncodePayload(bm)
	if err != nil {
		return err
	}
	packets, err := BuildPackets(payload, addr)
	if err != nil {
		return err
	}
	log.Debug().
		Str("addr", addr.String()).
		Str("format", payload[:2]).
		Int("payload_bytes", len(payload)/2).
		Msg("sender: payload prepared")
	return s.Send(ctx, addr, packets)
}

// Status returns a snapshot of the in-flight transfer for addr, if any.
func (s *Sender) Status(addr Address) (TransferState, bool) {
	return s.registry.snapshot(addr)
}

// Close closes the underlying transport.
func (s *Sender) Close() error {
	return s.transport.Close()
}
