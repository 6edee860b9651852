// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"math/big"

	"github.com/stakewell/stakewell/types"
)

// Event is a signal emitted by the engine during a call. Events accumulate
// in memory until drained by the caller; they are not persisted.
type Event interface {
	EventName() string
}

// BoundaryDelayEvent signals a withdrawal settlement deferred past the
// engine's assumed window because the staking provider was not ready.
// Not a failure; the scheduler retries on later passes.
type BoundaryDelayEvent struct {
	Validator    types.ID
	Epoch        uint64 // the epoch slot whose settlement was deferred
	WithdrawalID uint64
	Amount       *big.Int
}

func (BoundaryDelayEvent) EventName() string { return "BoundaryDelay" }

// RewardsForwardedEvent signals a validator's accumulated reward queue
// crossed the payout floor and was forwarded in full.
type RewardsForwardedEvent struct {
	Validator types.ID
	Operator  types.Address
	Amount    *big.Int
	Epoch     uint64
}

func (RewardsForwardedEvent) EventName() string { return "RewardsForwarded" }

// ValidatorReapedEvent signals a deactivated validator was fully removed.
type ValidatorReapedEvent struct {
	Validator types.ID
	Operator  types.Address
	Epoch     uint64
}

func (ValidatorReapedEvent) EventName() string { return "ValidatorReaped" }

// EpochAdvancedEvent signals the internal epoch cursor moved forward.
type EpochAdvancedEvent struct {
	Epoch uint64
}

func (EpochAdvancedEvent) EventName() string { return "EpochAdvanced" }

func (e *Engine) emit(ev Event) {
	e.events = append(e.events, ev)
}

// DrainEvents returns the events accumulated since the last drain and
// clears the buffer.
func (e *Engine) DrainEvents() []Event {
	evs := e.events
	e.events = nil
	return evs
}
