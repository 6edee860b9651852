// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
)

// EpochRecord is a validator's position for one epoch of the rolling window.
// Mutated only by the crank scheduler; read-only to everything else.
type EpochRecord struct {
	TargetStake  *big.Int // desired allocation as of this epoch
	StakeDelta   *big.Int // delegation submitted this epoch, effective later
	UnstakeDelta *big.Int // undelegation submitted this epoch, claimed later

	QueuedDeposit    bool   // delegation still awaiting effectiveness
	QueuedWithdrawal bool   // undelegation still awaiting claim
	WithdrawalID     uint64 // in-flight withdrawal handle at the staking service
	BoundaryCranked  bool   // settlement deferred by a boundary delay
	WasCranked       bool   // scheduler finished this record

	Live bool // distinguishes a written record from the zero value
}

// IsEmpty returns whether the entry can be treated as empty.
func (r *EpochRecord) IsEmpty() bool {
	return !r.Live
}

// Settled returns whether nothing in the record awaits external settlement.
func (r *EpochRecord) Settled() bool {
	return !r.QueuedDeposit && !r.QueuedWithdrawal
}

func newEpochRecord(target *big.Int) *EpochRecord {
	return &EpochRecord{
		TargetStake:  new(big.Int).Set(target),
		StakeDelta:   new(big.Int),
		UnstakeDelta: new(big.Int),
		Live:         true,
	}
}

// Escrow holds pending stake movements. Live guarantees the record is
// distinguishable from an all-zero default.
type Escrow struct {
	PendingStake   *big.Int
	PendingUnstake *big.Int
	Live           bool
}

// IsEmpty returns whether the entry can be treated as empty.
func (e *Escrow) IsEmpty() bool {
	return !e.Live
}

// Idle returns whether no stake movement is pending.
func (e *Escrow) Idle() bool {
	return e.IsEmpty() || (e.PendingStake.Sign() == 0 && e.PendingUnstake.Sign() == 0)
}

func newEscrow() *Escrow {
	return &Escrow{
		PendingStake:   new(big.Int),
		PendingUnstake: new(big.Int),
		Live:           true,
	}
}

// CashFlow aggregates the asset movements queued within one epoch.
type CashFlow struct {
	Debits  *big.Int
	Credits *big.Int
	Live    bool
}

// IsEmpty returns whether the entry can be treated as empty.
func (c *CashFlow) IsEmpty() bool {
	return !c.Live
}

func newCashFlow() *CashFlow {
	return &CashFlow{
		Debits:  new(big.Int),
		Credits: new(big.Int),
		Live:    true,
	}
}

// RewardEntry is a validator's deferred reward queue. Sub-floor balances
// persist untouched across epochs until the floor is crossed.
type RewardEntry struct {
	Amount *big.Int
	Epoch  uint64 // epoch of the most recent accrual
}

// IsEmpty returns whether the entry can be treated as empty.
func (r *RewardEntry) IsEmpty() bool {
	return r.Amount == nil || r.Amount.Sign() == 0
}

// WorkingCapital is a point-in-time snapshot of the global capital cells.
type WorkingCapital struct {
	StakedCapital      *big.Int
	NativeBalance      *big.Int
	ReservedCapital    *big.Int
	RedemptionsPayable *big.Int
	RewardsPayable     *big.Int
	RevenueEarned      *big.Int
	RevenueAllocated   *big.Int
	EquityBacking      *big.Int
}

// UnpaidRevenue returns recognized revenue not yet claimed out.
func (w *WorkingCapital) UnpaidRevenue() *big.Int {
	return new(big.Int).Sub(w.RevenueEarned, w.RevenueAllocated)
}
