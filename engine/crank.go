// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/engine/ledger"
	"github.com/stakewell/stakewell/engine/pool"
	"github.com/stakewell/stakewell/engine/registry"
	"github.com/stakewell/stakewell/metrics"
	"github.com/stakewell/stakewell/types"
)

// stepBudget counts validator work units. Zero max means unbounded.
type stepBudget struct {
	remaining uint64
	unbounded bool
}

func newStepBudget(maxSteps uint64) *stepBudget {
	return &stepBudget{remaining: maxSteps, unbounded: maxSteps == 0}
}

func (b *stepBudget) take() bool {
	if b.unbounded {
		return true
	}
	if b.remaining == 0 {
		return false
	}
	b.remaining--
	return true
}

func bigMin(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Crank advances the engine by at most one epoch: it runs the global pass
// once per epoch, then walks validators from the persisted cursor until the
// registry is exhausted or the step budget runs out. maxSteps zero means
// unbounded; the global pass costs one step, each validator one more.
//
// Returns true once the current epoch is fully cranked; repeated calls after
// completion are no-ops until the provider's clock moves. Two consecutive
// budget-limited calls leave the exact state one unbounded call would.
func (e *Engine) Crank(maxSteps uint64) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.Histogram("crank_duration_ms", metrics.Bucket10s).Observe(time.Since(start).Milliseconds())
	}()

	var complete bool
	err := e.run(func() error {
		metrics.Counter("crank_call_count").Add(1)
		budget := newStepBudget(maxSteps)

		epoch, err := e.epoch.Get()
		if err != nil {
			return err
		}
		done, err := e.epochDone.Get()
		if err != nil {
			return err
		}
		if done {
			providerEpoch, err := e.provider.CurrentEpoch()
			if err != nil {
				return errors.Wrap(err, "failed to query provider epoch")
			}
			if providerEpoch <= epoch {
				complete = true
				return nil
			}
			epoch++
			e.epoch.Set(epoch)
			e.epochDone.Set(false)
			e.emit(EpochAdvancedEvent{Epoch: epoch})
			logger.Debug("epoch advanced", "epoch", epoch)
		}

		// the global pass runs exactly once per epoch, before any
		// per-validator work
		globalMark, err := e.globalEpoch.Get()
		if err != nil {
			return err
		}
		if globalMark != epoch+1 {
			if !budget.take() {
				return nil
			}
			if err := e.crankGlobal(epoch); err != nil {
				return err
			}
			e.globalEpoch.Set(epoch + 1)
		}

		ptr, err := e.registry.Cursor()
		if err != nil {
			return err
		}
		if ptr == 0 {
			if ptr, err = e.registry.First(); err != nil {
				return err
			}
		}
		for ptr != 0 {
			if !budget.take() {
				e.registry.SetCursor(ptr)
				return nil
			}
			next, err := e.registry.NextAfter(ptr)
			if err != nil {
				return err
			}
			if err := e.crankValidator(ptr, epoch); err != nil {
				return errors.Wrapf(err, "failed to crank validator %v", ptr)
			}
			metrics.Counter("crank_validator_count").Add(1)
			ptr = next
		}

		e.registry.SetCursor(0)
		e.epochDone.Set(true)
		complete = true
		logger.Debug("epoch cranked", "epoch", epoch)
		return nil
	})
	return complete, err
}

// crankGlobal applies staged parameters, settles the pool, rebalances it
// toward target, and computes the deposit-allocation plan the per-validator
// passes consume. Idempotent per epoch by the caller's mark.
func (e *Engine) crankGlobal(epoch uint64) error {
	if err := e.params.apply(); err != nil {
		return err
	}
	e.ledger.SettleBoosts()

	targetBps, err := e.params.TargetLiquidityBps()
	if err != nil {
		return err
	}
	equity, err := e.ledger.TotalEquity(false)
	if err != nil {
		return err
	}
	target := pool.TargetLiquidity(equity, targetBps)

	util, err := e.pool.UtilizationBps(target)
	if err != nil {
		return err
	}
	metrics.Gauge("pool_utilization_bps").Set(int64(util))

	if _, err := e.pool.Settle(); err != nil {
		return err
	}

	// rebalance toward target; saturate silently when cash cannot cover
	current, err := e.pool.CurrentLiquidity()
	if err != nil {
		return err
	}
	switch current.Cmp(target) {
	case -1:
		need := new(big.Int).Sub(target, current)
		native, err := e.ledger.NativeBalance()
		if err != nil {
			return err
		}
		fill := bigMin(need, native)
		if fill.Sign() > 0 {
			if err := e.ledger.MoveNativeToPool(fill); err != nil {
				return err
			}
			if err := e.pool.Fill(fill); err != nil {
				return err
			}
			// buffer capital comes out of the deposit escrow first; what
			// the pool absorbs is deployed, not awaiting delegation
			pending, err := e.ledger.PendingStake()
			if err != nil {
				return err
			}
			if consumed := bigMin(fill, pending); consumed.Sign() > 0 {
				if err := e.ledger.ConsumeStakeEscrow(consumed); err != nil {
					return err
				}
			}
		}
	case 1:
		excess := new(big.Int).Sub(current, target)
		drained, err := e.pool.Drain(excess)
		if err != nil {
			return err
		}
		if err := e.ledger.MovePoolToNative(drained); err != nil {
			return err
		}
	}

	// deposit plan: split the delegable cash evenly across validators not
	// winding down; the first one processed takes the division remainder
	var activeCount uint64
	err = e.registry.Iterate(0, func(_ types.ID, entry *registry.Record) (bool, error) {
		if !entry.Deactivating() {
			activeCount++
		}
		return true, nil
	})
	if err != nil {
		return err
	}

	share := new(big.Int)
	extra := new(big.Int)
	if activeCount > 0 {
		pending, err := e.ledger.PendingStake()
		if err != nil {
			return err
		}
		native, err := e.ledger.NativeBalance()
		if err != nil {
			return err
		}
		total := bigMin(pending, native)
		if total.Sign() > 0 {
			share.QuoRem(total, new(big.Int).SetUint64(activeCount), extra)
		}
	}
	e.planShare.Set(share)
	e.planExtra.Set(extra)

	logger.Debug("global pass", "epoch", epoch, "poolTarget", target, "planShare", share, "validators", activeCount)
	return nil
}

// crankValidator settles a validator's past window edges, forwards rewards
// past the payout floor, rolls the window forward with this epoch's staged
// deltas, and reaps a deactivated node once everything has settled.
func (e *Engine) crankValidator(id types.ID, epoch uint64) error {
	entry, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if entry.IsEmpty() {
		return nil
	}
	current, err := e.ledger.EpochRecordAt(id, epoch)
	if err != nil {
		return err
	}
	if !current.IsEmpty() && current.WasCranked {
		return nil
	}

	// delegations submitted last epoch took effect at the provider
	if epoch >= 1 {
		prev, err := e.ledger.EpochRecordAt(id, epoch-1)
		if err != nil {
			return err
		}
		if !prev.IsEmpty() && prev.QueuedDeposit {
			if err := e.ledger.SettleStakeDelta(id, epoch-1, prev); err != nil {
				return err
			}
		}
	}

	if err := e.settlePastEdges(id, epoch); err != nil {
		return err
	}

	compound, err := e.forwardRewards(id, entry, epoch)
	if err != nil {
		return err
	}

	if current.IsEmpty() {
		if err := e.rollValidator(id, entry, epoch, compound); err != nil {
			return err
		}
	}

	// retire the slot that fell out of the window, once fully settled
	if retireAt := ledger.WindowDepth + 1; epoch > uint64(retireAt) {
		old, err := e.ledger.EpochRecordAt(id, epoch-uint64(retireAt))
		if err != nil {
			return err
		}
		if !old.IsEmpty() && old.Settled() {
			if err := e.ledger.RetireEpochRecord(id, epoch-uint64(retireAt)); err != nil {
				return err
			}
		}
	}

	return e.maybeReap(id, entry, epoch)
}

// rollValidator opens this epoch's window slot: the staged deposit slice and
// unstake demand are submitted to the provider and the record is marked
// cranked.
func (e *Engine) rollValidator(id types.ID, entry *registry.Record, epoch uint64, compound *big.Int) error {
	deposit := new(big.Int)
	unstake := new(big.Int)

	if entry.Deactivating() {
		// wind the whole position down; consume redemption demand first
		target, err := e.ledger.TargetStake(id, epoch)
		if err != nil {
			return err
		}
		unstake = target
		if unstake.Sign() > 0 {
			pending, err := e.ledger.PendingUnstake()
			if err != nil {
				return err
			}
			if fromEscrow := bigMin(unstake, pending); fromEscrow.Sign() > 0 {
				if _, err := e.ledger.ConsumeUnstakeEscrow(fromEscrow); err != nil {
					return err
				}
			}
		}
	} else {
		target, err := e.ledger.TargetStake(id, epoch)
		if err != nil {
			return err
		}
		pending, err := e.ledger.PendingUnstake()
		if err != nil {
			return err
		}
		if want := bigMin(target, pending); want.Sign() > 0 {
			if _, err := e.ledger.ConsumeUnstakeEscrow(want); err != nil {
				return err
			}
			unstake.Set(want)
		}

		share, err := e.planShare.Get()
		if err != nil {
			return err
		}
		extra, err := e.planExtra.Get()
		if err != nil {
			return err
		}
		deposit.Set(share)
		if extra.Sign() > 0 {
			deposit.Add(deposit, extra)
			e.planExtra.Set(new(big.Int))
		}
		if deposit.Sign() > 0 {
			if err := e.ledger.ConsumeStakeEscrow(deposit); err != nil {
				return err
			}
			if err := e.provider.Delegate(entry.Operator, deposit); err != nil {
				return errors.Wrap(err, "provider delegate failed")
			}
			if err := e.ledger.MoveNativeToStaked(deposit); err != nil {
				return err
			}
		}
	}

	var withdrawalID uint64
	if unstake.Sign() > 0 {
		var err error
		if withdrawalID, err = e.provider.Undelegate(entry.Operator, unstake); err != nil {
			return errors.Wrap(err, "provider undelegate failed")
		}
	}

	record, err := e.ledger.RollForward(id, epoch, deposit, unstake, compound)
	if err != nil {
		return err
	}
	record.WithdrawalID = withdrawalID
	record.WasCranked = true
	return e.ledger.SetEpochRecord(id, epoch, record)
}

// settlePastEdges claims ready withdrawals in the oldest retained window
// slots. A withdrawal the provider has not confirmed by the window's far edge
// is re-tagged as cranked-in-boundary and retried on later passes; the
// pending amount is never dropped.
func (e *Engine) settlePastEdges(id types.ID, epoch uint64) error {
	for back := uint64(2); back <= ledger.WindowDepth+2; back++ {
		if back > epoch {
			break
		}
		at := epoch - back
		record, err := e.ledger.EpochRecordAt(id, at)
		if err != nil {
			return err
		}
		if record.IsEmpty() || !record.QueuedWithdrawal {
			continue
		}

		ready, err := e.provider.WithdrawalReady(record.WithdrawalID)
		if err != nil {
			return errors.Wrap(err, "provider readiness query failed")
		}
		if ready {
			claimed, err := e.provider.ClaimWithdrawal(record.WithdrawalID)
			if err != nil {
				return errors.Wrap(err, "provider claim failed")
			}
			if claimed != nil && claimed.Cmp(record.UnstakeDelta) != 0 {
				logger.Warn("claimed amount differs from booked delta",
					"id", id, "epoch", at, "claimed", claimed, "booked", record.UnstakeDelta)
			}
			if err := e.ledger.SettleClaim(record.UnstakeDelta); err != nil {
				return err
			}
			if err := e.ledger.SettleUnstakeDelta(id, at, record); err != nil {
				return err
			}
		} else if back >= ledger.WindowDepth {
			if !record.BoundaryCranked {
				record.BoundaryCranked = true
				if err := e.ledger.SetEpochRecord(id, at, record); err != nil {
					return err
				}
			}
			e.emit(BoundaryDelayEvent{
				Validator:    id,
				Epoch:        at,
				WithdrawalID: record.WithdrawalID,
				Amount:       record.UnstakeDelta,
			})
			metrics.Counter("crank_boundary_delay_count").Add(1)
			logger.Warn("withdrawal settlement deferred", "id", id, "epoch", at, "withdrawalID", record.WithdrawalID)
		}
	}
	return nil
}

// forwardRewards forwards the validator's accumulated queue once it meets
// the payout floor, using the previous-epoch window for eligibility. Returns
// the amount compounded back into the validator's delegation.
func (e *Engine) forwardRewards(id types.ID, entry *registry.Record, epoch uint64) (*big.Int, error) {
	compound := new(big.Int)
	queue, err := e.ledger.RewardQueue(id)
	if err != nil {
		return nil, err
	}
	if queue.IsEmpty() || queue.Epoch >= epoch {
		return compound, nil
	}
	floor, err := e.params.MinPayoutFloor()
	if err != nil {
		return nil, err
	}
	if queue.Amount.Cmp(floor) < 0 {
		return compound, nil
	}

	amount := new(big.Int).Set(queue.Amount)
	if err := e.ledger.RecordRewardForward(id, amount); err != nil {
		return nil, err
	}
	if !entry.Deactivating() {
		// compound back into the delegation, bounded by the cash still on
		// hand; the pool refill may already have absorbed part of the reward
		// cash, in which case the remainder stays native as equity backing.
		// A winding-down validator keeps the recognized cash on hand instead.
		native, err := e.ledger.NativeBalance()
		if err != nil {
			return nil, err
		}
		restake := bigMin(amount, native)
		if restake.Sign() > 0 {
			if err := e.provider.ForwardRewards(entry.Operator, restake); err != nil {
				return nil, errors.Wrap(err, "provider reward forward failed")
			}
			if err := e.ledger.MoveNativeToStaked(restake); err != nil {
				return nil, err
			}
			compound.Set(restake)
		}
	}
	e.emit(RewardsForwardedEvent{Validator: id, Operator: entry.Operator, Amount: amount, Epoch: epoch})
	logger.Debug("rewards forwarded", "id", id, "amount", amount)
	return compound, nil
}

// maybeReap removes a deactivated validator once the delay elapsed and
// nothing of its ledger position remains unsettled. A sub-floor reward
// residue is flushed into equity first so it cannot block removal forever.
func (e *Engine) maybeReap(id types.ID, entry *registry.Record, epoch uint64) error {
	if !entry.Deactivating() {
		return nil
	}
	can, err := e.registry.CanReap(id, epoch)
	if err != nil {
		return err
	}
	if !can {
		return nil
	}

	queue, err := e.ledger.RewardQueue(id)
	if err != nil {
		return err
	}
	if !queue.IsEmpty() {
		amount := new(big.Int).Set(queue.Amount)
		if err := e.ledger.RecordRewardForward(id, amount); err != nil {
			return err
		}
		e.emit(RewardsForwardedEvent{Validator: id, Operator: entry.Operator, Amount: amount, Epoch: epoch})
	}

	unsettled, err := e.ledger.HasUnsettled(id, epoch)
	if err != nil {
		return err
	}
	if unsettled {
		return nil
	}

	reaped, err := e.registry.Reap(id)
	if err != nil {
		return err
	}
	e.ledger.PurgeWindows(id, epoch)
	e.emit(ValidatorReapedEvent{Validator: id, Operator: reaped.Operator, Epoch: epoch})
	logger.Info("validator reaped", "id", id, "operator", reaped.Operator, "epoch", epoch)
	return nil
}
