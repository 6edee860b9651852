// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/engine/reverts"
	"github.com/stakewell/stakewell/types"
)

// EpochRecordAt returns the validator's record for an absolute epoch.
func (s *Service) EpochRecordAt(id types.ID, epoch uint64) (*EpochRecord, error) {
	record, err := s.windows.Get(types.EpochKey(id, epoch))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get epoch record")
	}
	return record, nil
}

// SetEpochRecord stores the validator's record for an absolute epoch.
func (s *Service) SetEpochRecord(id types.ID, epoch uint64, record *EpochRecord) error {
	return s.windows.Set(types.EpochKey(id, epoch), record)
}

// TargetStake returns the validator's target as of the given epoch, walking
// back through the retained window when the epoch itself has no record.
func (s *Service) TargetStake(id types.ID, epoch uint64) (*big.Int, error) {
	for back := uint64(0); back <= WindowDepth; back++ {
		if back > epoch {
			break
		}
		record, err := s.EpochRecordAt(id, epoch-back)
		if err != nil {
			return nil, err
		}
		if !record.IsEmpty() {
			return new(big.Int).Set(record.TargetStake), nil
		}
	}
	return new(big.Int), nil
}

// RollForward advances the validator's window by one slot: the new record
// carries the previous target adjusted by the staged deposit/withdrawal
// deltas plus any compounded reward, and the matching escrow entries open.
// Compounded amounts raise the target without escrow; they are delegated
// immediately by the scheduler rather than queued.
func (s *Service) RollForward(id types.ID, epoch uint64, deposit, unstake, compound *big.Int) (*EpochRecord, error) {
	prevTarget, err := s.TargetStake(id, epoch)
	if err != nil {
		return nil, err
	}

	target := new(big.Int).Add(prevTarget, deposit)
	target.Add(target, compound)
	target.Sub(target, unstake)
	if target.Sign() < 0 {
		return nil, reverts.InvariantViolation("validator %v target below zero", id)
	}

	record := newEpochRecord(target)
	if deposit.Sign() > 0 {
		record.StakeDelta.Set(deposit)
		record.QueuedDeposit = true
	}
	if unstake.Sign() > 0 {
		record.UnstakeDelta.Set(unstake)
		record.QueuedWithdrawal = true
	}

	escrow, err := s.EscrowOf(id)
	if err != nil {
		return nil, err
	}
	if escrow.IsEmpty() {
		escrow = newEscrow()
	}
	escrow.PendingStake.Add(escrow.PendingStake, deposit)
	escrow.PendingUnstake.Add(escrow.PendingUnstake, unstake)
	if err := s.escrows.Set(id, escrow); err != nil {
		return nil, err
	}

	if err := s.SetEpochRecord(id, epoch, record); err != nil {
		return nil, err
	}
	return record, nil
}

// SettleStakeDelta marks a queued delegation effective and releases its escrow.
func (s *Service) SettleStakeDelta(id types.ID, epoch uint64, record *EpochRecord) error {
	if !record.QueuedDeposit {
		return nil
	}
	escrow, err := s.EscrowOf(id)
	if err != nil {
		return err
	}
	if escrow.IsEmpty() || escrow.PendingStake.Cmp(record.StakeDelta) < 0 {
		return reverts.InvariantViolation("validator %v escrow below settled stake delta", id)
	}
	escrow.PendingStake.Sub(escrow.PendingStake, record.StakeDelta)
	if err := s.escrows.Set(id, escrow); err != nil {
		return err
	}
	record.QueuedDeposit = false
	return s.SetEpochRecord(id, epoch, record)
}

// SettleUnstakeDelta clears a claimed withdrawal and releases its escrow.
func (s *Service) SettleUnstakeDelta(id types.ID, epoch uint64, record *EpochRecord) error {
	if !record.QueuedWithdrawal {
		return nil
	}
	escrow, err := s.EscrowOf(id)
	if err != nil {
		return err
	}
	if escrow.IsEmpty() || escrow.PendingUnstake.Cmp(record.UnstakeDelta) < 0 {
		return reverts.InvariantViolation("validator %v escrow below settled unstake delta", id)
	}
	escrow.PendingUnstake.Sub(escrow.PendingUnstake, record.UnstakeDelta)
	if err := s.escrows.Set(id, escrow); err != nil {
		return err
	}
	record.QueuedWithdrawal = false
	record.WithdrawalID = 0
	record.BoundaryCranked = false
	return s.SetEpochRecord(id, epoch, record)
}

// RetireEpochRecord drops a fully settled record that fell out of the window.
func (s *Service) RetireEpochRecord(id types.ID, epoch uint64) error {
	record, err := s.EpochRecordAt(id, epoch)
	if err != nil {
		return err
	}
	if record.IsEmpty() {
		return nil
	}
	if !record.Settled() {
		return reverts.InvariantViolation("validator %v epoch %d retired unsettled", id, epoch)
	}
	s.windows.Delete(types.EpochKey(id, epoch))
	return nil
}

// EscrowOf returns the validator's escrow entry.
func (s *Service) EscrowOf(id types.ID) (*Escrow, error) {
	escrow, err := s.escrows.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get escrow")
	}
	return escrow, nil
}

// HasUnsettled reports whether anything for the validator still awaits
// settlement within the retained window: open escrow, queued deltas, or a
// non-empty reward queue. Gates reaping.
func (s *Service) HasUnsettled(id types.ID, epoch uint64) (bool, error) {
	escrow, err := s.EscrowOf(id)
	if err != nil {
		return false, err
	}
	if !escrow.Idle() {
		return true, nil
	}
	queue, err := s.RewardQueue(id)
	if err != nil {
		return false, err
	}
	if !queue.IsEmpty() {
		return true, nil
	}
	for back := uint64(0); back <= WindowDepth; back++ {
		if back > epoch {
			break
		}
		record, err := s.EpochRecordAt(id, epoch-back)
		if err != nil {
			return false, err
		}
		if !record.IsEmpty() && !record.Settled() {
			return true, nil
		}
	}
	return false, nil
}

// PurgeWindows removes all window records of a reaped validator.
func (s *Service) PurgeWindows(id types.ID, epoch uint64) {
	for back := uint64(0); back <= WindowDepth+1; back++ {
		if back > epoch {
			break
		}
		s.windows.Delete(types.EpochKey(id, epoch-back))
	}
	s.escrows.Delete(id)
}
