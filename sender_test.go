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
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTransport records Send calls and can block until released, letting
// tests observe in-flight transfer state.
type mockTransport struct {
	mu          sync.Mutex
	calls       int
	lastAddr    Address
	lastPackets [][]byte
	err         error
	block       chan struct{} // when non-nil, Send waits for close or ctx
	started     chan struct{} // when non-nil, receives once per Send entry
}

func (m *mockTransport) Send(ctx context.Context, addr Address, packets [][]byte, progress Progress) error {
	m.mu.Lock()
	m.calls++
	m.lastAddr = addr
	m.lastPackets = packets
	block, started, errOut := m.block, m.started, m.err
	m.mu.Unlock()

	progress.Update(PhaseSending, "sending")
	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errOut
}

func (m *mockTransport) Type() TransportType { return TransportMock }
func (m *mockTransport) Close() error        { return nil }

func (m *mockTransport) sendCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockTransport) received() (Address, [][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAddr, m.lastPackets
}

func TestNewSenderValidation(t *testing.T) {
	t.Parallel()
	_, err := NewSender(nil)
	require.Error(t, err)

	_, err = NewSender(&mockTransport{}, WithSendTimeout(-time.Second))
	require.Error(t, err)
}

func TestSendSuccess(t *testing.T) {
	t.Parallel()
	mock := &mockTransport{}
	sender, err := NewSender(mock)
	require.NoError(t, err)

	addr := testAddress(t)
	packets := [][]byte{{0x01}, {0x02}}
	require.NoError(t, sender.Send(context.Background(), addr, packets))

	gotAddr, gotPackets := mock.received()
	assert.Equal(t, addr, gotAddr)
	assert.Equal(t, packets, gotPackets)

	// Terminal transfers leave no state behind.
	_, ok := sender.Status(addr)
	assert.False(t, ok)
}

func TestSendBusy(t *testing.T) {
	t.Parallel()
	mock := &mockTransport{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	sender, err := NewSender(mock)
	require.NoError(t, err)
	addr := testAddress(t)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- sender.Send(context.Background(), addr, [][]byte{{0x01}})
	}()
	<-mock.started

	before, ok := sender.Status(addr)
	require.True(t, ok)
	assert.Equal(t, PhaseSending, before.Phase)

	// A second transfer to the same address is rejected without touching
	// the one in flight.
	err = sender.Send(context.Background(), addr, [][]byte{{0x02}})
	assert.ErrorIs(t, err, ErrBusy)

	after, ok := sender.Status(addr)
	require.True(t, ok)
	assert.Equal(t, before.Phase, after.Phase)
	assert.Equal(t, before.LastStatus, after.LastStatus)
	assert.Equal(t, 1, mock.sendCalls())

	close(mock.block)
	require.NoError(t, <-firstDone)
	_, ok = sender.Status(addr)
	assert.False(t, ok)
}

func TestSendConcurrentAddresses(t *testing.T) {
	t.Parallel()
	mock := &mockTransport{
		block:   make(chan struct{}),
		started: make(chan struct{}, 2),
	}
	sender, err := NewSender(mock)
	require.NoError(t, err)

	addr1 := testAddress(t)
	addr2, err := ParseAddress("11:22:33:44:55:66")
	require.NoError(t, err)

	done := make(chan error, 2)
	go func() { done <- sender.Send(context.Background(), addr1, [][]byte{{0x01}}) }()
	go func() { done <- sender.Send(context.Background(), addr2, [][]byte{{0x02}}) }()
	<-mock.started
	<-mock.started

	_, ok := sender.Status(addr1)
	assert.True(t, ok)
	_, ok = sender.Status(addr2)
	assert.True(t, ok)

	close(mock.block)
	require.NoError(t, <-done)
	require.NoError(t, <-done)
}

func TestSendTimeout(t *testing.T) {
	t.Parallel()
	mock := &mockTransport{block: make(chan struct{})}
	sender, err := NewSender(mock, WithSendTimeout(20*time.Millisecond))
	require.NoError(t, err)
	addr := testAddress(t)

	err = sender.Send(context.Background(), addr, [][]byte{{0x01}})
	assert.ErrorIs(t, err, ErrTimeout)

	_, ok := sender.Status(addr)
	assert.False(t, ok)
}

func TestSendTransportError(t *testing.T) {
	t.Parallel()
	boom := errors.New("link dropped")
	mock := &mockTransport{err: boom}
	sender, err := NewSender(mock)
	require.NoError(t, err)
	addr := testAddress(t)

	err = sender.Send(context.Background(), addr, [][]byte{{0x01}})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTimeout)

	_, ok := sender.Status(addr)
	assert.False(t, ok)
}

func TestSendContextCanceled(t *testing.T) {
	t.Parallel()
	mock := &mockTransport{block: make(chan struct{})}
	sender, err := NewSender(mock, WithSendTimeout(0))
	require.NoError(t, err)
	addr := testAddress(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sender.Send(ctx, addr, [][]byte{{0x01}}) }()
	cancel()

	err = <-done
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := sender.Status(addr)
	assert.False(t, ok)
}

func TestSendImagePipelineErrors(t *testing.T) {
	t.Parallel()
	mock := &mockTransport{}
	sender, err := NewSender(mock)
	require.NoError(t, err)
	addr := testAddress(t)

	err = sender.SendImage(context.Background(), addr, []byte("not an image"), ModeBW)
	assert.ErrorIs(t, err, ErrImageDecode)

	data := encodePNG(t, 8, 8, color.Black)
	err = sender.SendImage(context.Background(), addr, data, Mode("grayscale"))
	assert.ErrorIs(t, err, ErrInvalidMode)

	// Pipeline failures never reach the transport or create state.
	assert.Zero(t, mock.sendCalls())
	_, ok := sender.Status(addr)
	assert.False(t, ok)
}

func TestSendImageEndToEnd(t *testing.T) {
	t.Parallel()
	mock := &mockTransport{}
	sender, err := NewSender(mock)
	require.NoError(t, err)
	addr := testAddress(t)

	data := encodePNG(t, 8, 8, color.Black)
	require.NoError(t, sender.SendImage(context.Background(), addr, data, ModeBW))

	_, packets := mock.received()
	require.Len(t, packets, 2)
	assert.Len(t, packets[0], HeaderLength)
	assert.Len(t, packets[1], DataLength)
	// A solid 8x8 black image compresses to the run-length form, so the
	// header matches the captured one.
	assert.Equal(t, goldenHeader, fmt.Sprintf("%X", packets[0]))
}
