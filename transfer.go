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
	"fmt"
	"time"

	"github.com/aintinksmart/go-easytag/internal/syncutil"
)

// Phase is the position of a transfer in its lifecycle.
type Phase int

const (
	// PhaseIdle means no transfer exists for the address.
	PhaseIdle Phase = iota
	// PhaseConnecting covers link acquisition and gateway readiness waits.
	PhaseConnecting
	// PhaseSending covers packet delivery and the post-send settle wait.
	PhaseSending
	// PhaseSuccess is the successful terminal phase.
	PhaseSuccess
	// PhaseError is the failed terminal phase.
	PhaseError
	// PhaseTimeout is the terminal phase for expired operations.
	PhaseTimeout
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseSending:
		return "sending"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	case PhaseTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether p ends a transfer.
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseError || p == PhaseTimeout
}

// TransferState is a snapshot of one in-flight transfer.
type TransferState struct {
	LastActivity time.Time
	LastStatus   string
	Phase        Phase
	Failed       bool
}

// registry tracks in-flight transfers by address and enforces the
// one-transfer-per-address invariant. The mutex guards only map membership
// and field updates; it is never held across a wait.
type registry struct {
	active map[Address]*TransferState
	mu     syncutil.Mutex
}

func newRegistry() *registry {
	return &registry{active: make(map[Address]*TransferState)}
}

// begin atomically checks for an existing transfer and inserts a fresh
// state. It fails with ErrBusy when addr already has one.
func (r *registry) begin(addr Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[addr]; ok {
		return fmt.Errorf("%w: %s", ErrBusy, addr)
	}
	r.active[addr] = &TransferState{
		Phase:        PhaseIdle,
		LastActivity: time.Now(),
	}
	return nil
}

// end removes the state for addr, returning the final snapshot if any.
func (r *registry) end(addr Address) (TransferState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.active[addr]
	if !ok {
		return TransferState{}, false
	}
	delete(r.active, addr)
	return *st, true
}

// update records a phase/status observation for addr. Observations for
// addresses with no pending transfer are dropped; the gateway status
// listener may deliver them after a transfer has already been torn down.
func (r *registry) update(addr Address, phase Phase, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.active[addr]
	if !ok {
		return
	}
	st.Phase = phase
	st.LastStatus = status
	st.LastActivity = time.Now()
	if phase == PhaseError || phase == PhaseTimeout {
		st.Failed = true
	}
}

// snapshot returns a copy of the state for addr.
func (r *registry) snapshot(addr Address) (TransferState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.active[addr]
	if !ok {
		return TransferState{}, false
	}
	return *st, true
}
