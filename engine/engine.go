// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"math/big"

	"github.com/stakewell/stakewell/engine/ledger"
	"github.com/stakewell/stakewell/engine/pool"
	"github.com/stakewell/stakewell/engine/registry"
	"github.com/stakewell/stakewell/engine/reverts"
	"github.com/stakewell/stakewell/engine/shares"
	"github.com/stakewell/stakewell/log"
	"github.com/stakewell/stakewell/metrics"
	"github.com/stakewell/stakewell/state"
	"github.com/stakewell/stakewell/storage"
	"github.com/stakewell/stakewell/types"
)

var logger = log.WithContext("pkg", "engine")

// Default delay windows in epochs.
const (
	DefaultDeactivationDelay = 5
	DefaultUnstakeDelay      = ledger.WindowDepth
)

var (
	slotEpoch       = storage.NameToSlot("engine-epoch")
	slotEpochDone   = storage.NameToSlot("engine-epoch-done")
	slotGlobalEpoch = storage.NameToSlot("engine-global-epoch")
	slotPlanShare   = storage.NameToSlot("engine-plan-share")
	slotPlanExtra   = storage.NameToSlot("engine-plan-extra")
	slotRedemptions = storage.NameToSlot("engine-redemptions")
	slotGenesis     = storage.NameToSlot("engine-genesis")
)

// Config tunes the engine's delay windows and ownership.
type Config struct {
	Owner types.Address
	// DeactivationDelay is how long a deactivated validator stays visible
	// and chained, in epochs. Zero selects the default.
	DeactivationDelay uint64
	// UnstakeDelay is the minimum number of epochs between an unstake
	// request and its completion. Zero selects the default.
	UnstakeDelay uint64
}

// redemptionTicket is an owner's aggregated pending unstake.
type redemptionTicket struct {
	Amount          *big.Int
	CompletionEpoch uint64
	Live            bool
}

func (t *redemptionTicket) IsEmpty() bool {
	return !t.Live
}

// Engine is the pooled-staking accounting engine. All mutating entry points
// run under a reentrancy guard, abort atomically on validation failure, and
// leave the conservation invariant intact.
//
// Execution is strictly serialized: an Engine must not be shared across
// goroutines without external synchronization.
type Engine struct {
	state    *state.State
	provider StakingProvider
	transfer TransferFunc

	owner        types.Address
	unstakeDelay uint64

	registry *registry.Service
	ledger   *ledger.Service
	pool     *pool.Service
	shares   *shares.Service
	params   *params

	epoch       *storage.Uint64
	epochDone   *storage.Bool
	globalEpoch *storage.Uint64
	planShare   *storage.Uint256
	planExtra   *storage.Uint256
	redemptions *storage.Mapping[types.Address, *redemptionTicket]
	genesis     *storage.Bool

	events  []Event
	entered bool
}

// New creates an engine bound to the state at the given address. Call
// Initialize once before the first operation.
func New(st *state.State, at types.Address, provider StakingProvider, transfer TransferFunc, cfg Config) *Engine {
	if cfg.DeactivationDelay == 0 {
		cfg.DeactivationDelay = DefaultDeactivationDelay
	}
	if cfg.UnstakeDelay == 0 {
		cfg.UnstakeDelay = DefaultUnstakeDelay
	}
	sctx := storage.NewContext(at, st)
	return &Engine{
		state:        st,
		provider:     provider,
		transfer:     transfer,
		owner:        cfg.Owner,
		unstakeDelay: cfg.UnstakeDelay,
		registry:     registry.New(sctx, cfg.DeactivationDelay),
		ledger:       ledger.New(sctx),
		pool:         pool.New(sctx),
		shares:       shares.New(sctx),
		params:       newParams(sctx),
		epoch:        storage.NewUint64(sctx, slotEpoch),
		epochDone:    storage.NewBool(sctx, slotEpochDone),
		globalEpoch:  storage.NewUint64(sctx, slotGlobalEpoch),
		planShare:    storage.NewUint256(sctx, slotPlanShare),
		planExtra:    storage.NewUint256(sctx, slotPlanExtra),
		redemptions:  storage.NewMapping[types.Address, *redemptionTicket](sctx, slotRedemptions),
		genesis:      storage.NewBool(sctx, slotGenesis),
	}
}

// Initialize seeds the registry sentinels, default parameters, and the epoch
// cursor from the provider's clock. Safe to call more than once.
func (e *Engine) Initialize() error {
	done, err := e.genesis.Get()
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	if err := e.registry.Initialize(); err != nil {
		return err
	}
	e.params.initialize()

	epoch, err := e.provider.CurrentEpoch()
	if err != nil {
		return err
	}
	e.epoch.Set(epoch)
	e.genesis.Set(true)
	logger.Info("engine initialized", "epoch", epoch, "owner", e.owner)
	return nil
}

// run executes a mutating operation under the reentrancy guard. Any failure,
// including a conservation mismatch after the mutation, rolls the state back
// to the entry checkpoint.
func (e *Engine) run(mutate func() error) error {
	if e.entered {
		return reverts.ReentrantCall()
	}
	e.entered = true
	defer func() { e.entered = false }()

	checkpoint := e.state.Snapshot()
	if err := mutate(); err != nil {
		e.state.RevertTo(checkpoint)
		return err
	}
	if err := e.checkConservation(); err != nil {
		e.state.RevertTo(checkpoint)
		return err
	}
	return nil
}

func (e *Engine) checkConservation() error {
	liquidity, err := e.pool.CurrentLiquidity()
	if err != nil {
		return err
	}
	return e.ledger.CheckConservation(liquidity)
}

func (e *Engine) requireOwner(caller types.Address) error {
	if caller != e.owner {
		return reverts.Unauthorized("caller %v is not the owner", caller)
	}
	return nil
}

//
// Share conversion
//

func ceilDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// convertToShares quotes how many shares back the given assets, rounded
// against the caller. An empty pool quotes one to one.
func (e *Engine) convertToShares(assets *big.Int, withdrawalBasis, roundUp bool) (*big.Int, error) {
	supply, err := e.shares.TotalSupply()
	if err != nil {
		return nil, err
	}
	if supply.Sign() == 0 {
		return new(big.Int).Set(assets), nil
	}
	equity, err := e.ledger.TotalEquity(withdrawalBasis)
	if err != nil {
		return nil, err
	}
	if equity.Sign() == 0 {
		return new(big.Int).Set(assets), nil
	}
	num := new(big.Int).Mul(assets, supply)
	if roundUp {
		return ceilDiv(num, equity), nil
	}
	return num.Quo(num, equity), nil
}

// convertToAssets quotes the asset value of the given shares.
func (e *Engine) convertToAssets(shareAmount *big.Int, withdrawalBasis, roundUp bool) (*big.Int, error) {
	supply, err := e.shares.TotalSupply()
	if err != nil {
		return nil, err
	}
	if supply.Sign() == 0 {
		return new(big.Int).Set(shareAmount), nil
	}
	equity, err := e.ledger.TotalEquity(withdrawalBasis)
	if err != nil {
		return nil, err
	}
	num := new(big.Int).Mul(shareAmount, equity)
	if roundUp {
		return ceilDiv(num, supply), nil
	}
	return num.Quo(num, supply), nil
}

// ConvertToShares quotes shares for assets at the current deposit price.
func (e *Engine) ConvertToShares(assets *big.Int) (*big.Int, error) {
	return e.convertToShares(assets, false, false)
}

// ConvertToAssets quotes assets for shares at the current deposit price.
func (e *Engine) ConvertToAssets(shareAmount *big.Int) (*big.Int, error) {
	return e.convertToAssets(shareAmount, false, false)
}

//
// Deposits
//

// Deposit takes assets in and mints shares to the receiver. The assets stay
// cash on hand until the next crank stages them across validators.
func (e *Engine) Deposit(assets *big.Int, receiver types.Address) (*big.Int, error) {
	var minted *big.Int
	err := e.run(func() error {
		if assets == nil || assets.Sign() <= 0 {
			return reverts.InvalidParameter("deposit amount must be positive")
		}
		out, err := e.convertToShares(assets, false, false)
		if err != nil {
			return err
		}
		epoch, err := e.epoch.Get()
		if err != nil {
			return err
		}
		if err := e.ledger.RecordDeposit(epoch, assets); err != nil {
			return err
		}
		if err := e.shares.Mint(receiver, out); err != nil {
			return err
		}
		minted = out
		logger.Debug("deposit", "assets", assets, "shares", out, "receiver", receiver)
		metrics.Counter("engine_deposit_count").Add(1)
		return nil
	})
	return minted, err
}

// Mint issues an exact share amount to the receiver and returns the assets
// required, rounded up so minting never dilutes existing holders.
func (e *Engine) Mint(shareAmount *big.Int, receiver types.Address) (*big.Int, error) {
	var assets *big.Int
	err := e.run(func() error {
		if shareAmount == nil || shareAmount.Sign() <= 0 {
			return reverts.InvalidParameter("mint amount must be positive")
		}
		in, err := e.convertToAssets(shareAmount, false, true)
		if err != nil {
			return err
		}
		epoch, err := e.epoch.Get()
		if err != nil {
			return err
		}
		if err := e.ledger.RecordDeposit(epoch, in); err != nil {
			return err
		}
		if err := e.shares.Mint(receiver, shareAmount); err != nil {
			return err
		}
		assets = in
		metrics.Counter("engine_deposit_count").Add(1)
		return nil
	})
	return assets, err
}

//
// Instant withdrawals
//

// instantWithdraw burns shares and pays gross minus the utilization fee out
// of the atomic pool. The fee quote uses pre-withdrawal utilization.
func (e *Engine) instantWithdraw(owner, receiver types.Address, gross, burn *big.Int) (*big.Int, error) {
	if gross.Sign() <= 0 {
		return nil, reverts.InvalidParameter("withdrawal amount must be positive")
	}
	targetBps, err := e.params.TargetLiquidityBps()
	if err != nil {
		return nil, err
	}
	equity, err := e.ledger.TotalEquity(true)
	if err != nil {
		return nil, err
	}
	target := pool.TargetLiquidity(equity, targetBps)
	util, err := e.pool.UtilizationBps(target)
	if err != nil {
		return nil, err
	}
	curve, err := e.params.FeeCurve()
	if err != nil {
		return nil, err
	}
	feeBps := curve.FeeBps(util, targetBps)
	fee := pool.FeeOn(gross, feeBps)
	net := new(big.Int).Sub(gross, fee)

	if err := e.pool.RecordOutflow(net); err != nil {
		return nil, err
	}
	if err := e.shares.Burn(owner, burn); err != nil {
		return nil, err
	}
	epoch, err := e.epoch.Get()
	if err != nil {
		return nil, err
	}
	if err := e.ledger.RecordInstantWithdrawal(epoch, gross, fee); err != nil {
		return nil, err
	}
	if err := e.transfer(receiver, net); err != nil {
		return nil, err
	}
	logger.Debug("instant withdrawal", "gross", gross, "fee", fee, "feeBps", feeBps, "owner", owner)
	metrics.Counter("engine_withdraw_count").Add(1)
	return net, nil
}

// Withdraw redeems an exact gross asset amount through the atomic pool and
// returns the shares burned. The utilization fee comes out of the amount.
func (e *Engine) Withdraw(assets *big.Int, receiver, owner types.Address) (*big.Int, error) {
	var burned *big.Int
	err := e.run(func() error {
		burn, err := e.convertToShares(assets, true, true)
		if err != nil {
			return err
		}
		if _, err := e.instantWithdraw(owner, receiver, assets, burn); err != nil {
			return err
		}
		burned = burn
		return nil
	})
	return burned, err
}

// Redeem burns an exact share amount through the atomic pool and returns the
// net assets paid out.
func (e *Engine) Redeem(shareAmount *big.Int, receiver, owner types.Address) (*big.Int, error) {
	var paid *big.Int
	err := e.run(func() error {
		gross, err := e.convertToAssets(shareAmount, true, false)
		if err != nil {
			return err
		}
		net, err := e.instantWithdraw(owner, receiver, gross, shareAmount)
		if err != nil {
			return err
		}
		paid = net
		return nil
	})
	return paid, err
}

//
// Two-phase unstaking
//

// RequestUnstake burns the owner's shares and books a fee-free redemption
// completing after the unstake delay. Repeated requests aggregate into one
// ticket whose completion epoch is the latest of the requests.
func (e *Engine) RequestUnstake(owner types.Address, shareAmount *big.Int) (uint64, error) {
	var completion uint64
	err := e.run(func() error {
		if shareAmount == nil || shareAmount.Sign() <= 0 {
			return reverts.InvalidParameter("unstake amount must be positive")
		}
		assets, err := e.convertToAssets(shareAmount, true, false)
		if err != nil {
			return err
		}
		if assets.Sign() == 0 {
			return reverts.InvalidParameter("unstake amount rounds to zero assets")
		}
		if err := e.shares.Burn(owner, shareAmount); err != nil {
			return err
		}
		epoch, err := e.epoch.Get()
		if err != nil {
			return err
		}
		if err := e.ledger.RecordUnstakeRequest(epoch, assets); err != nil {
			return err
		}

		ticket, err := e.redemptions.Get(owner)
		if err != nil {
			return err
		}
		if ticket.IsEmpty() {
			ticket = &redemptionTicket{Amount: new(big.Int), Live: true}
		}
		ticket.Amount.Add(ticket.Amount, assets)
		if due := epoch + e.unstakeDelay; due > ticket.CompletionEpoch {
			ticket.CompletionEpoch = due
		}
		if err := e.redemptions.Set(owner, ticket); err != nil {
			return err
		}
		completion = ticket.CompletionEpoch
		logger.Debug("unstake requested", "owner", owner, "assets", assets, "completion", completion)
		return nil
	})
	return completion, err
}

// CompleteUnstake pays out the owner's matured redemption and returns the
// amount. Fails with TooEarly before the completion epoch, or while the
// undelegated capital has not yet settled back from the staking provider.
func (e *Engine) CompleteUnstake(owner types.Address) (*big.Int, error) {
	var paid *big.Int
	err := e.run(func() error {
		ticket, err := e.redemptions.Get(owner)
		if err != nil {
			return err
		}
		if ticket.IsEmpty() {
			return reverts.InvalidParameter("no pending redemption for %v", owner)
		}
		epoch, err := e.epoch.Get()
		if err != nil {
			return err
		}
		if epoch < ticket.CompletionEpoch {
			return reverts.TooEarly("redemption completes at epoch %d, now %d", ticket.CompletionEpoch, epoch)
		}
		if err := e.ledger.RecordUnstakeCompletion(epoch, ticket.Amount); err != nil {
			return err
		}
		e.redemptions.Delete(owner)
		if err := e.transfer(owner, ticket.Amount); err != nil {
			return err
		}
		paid = ticket.Amount
		logger.Debug("unstake completed", "owner", owner, "assets", paid)
		return nil
	})
	return paid, err
}

//
// Validator management
//

// AddValidator registers a validator for the operator and returns its id.
// Owner-gated.
func (e *Engine) AddValidator(caller types.Address, operator types.Address) (types.ID, error) {
	var id types.ID
	err := e.run(func() error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
		epoch, err := e.epoch.Get()
		if err != nil {
			return err
		}
		id, err = e.registry.Add(operator, epoch)
		if err != nil {
			return err
		}
		logger.Info("validator added", "id", id, "operator", operator, "epoch", epoch)
		return nil
	})
	return id, err
}

// DeactivateValidator starts a validator's soft removal. The node stays
// chained for the deactivation delay so in-flight settlement completes; the
// scheduler winds its stake down and eventually reaps it. Owner-gated.
func (e *Engine) DeactivateValidator(caller types.Address, id types.ID) error {
	return e.run(func() error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
		epoch, err := e.epoch.Get()
		if err != nil {
			return err
		}
		if err := e.registry.Deactivate(id, epoch); err != nil {
			return err
		}
		logger.Info("validator deactivating", "id", id, "epoch", epoch)
		return nil
	})
}

//
// Reward and yield injection
//

// SendValidatorRewards books an incoming reward for the validator. The
// protocol fee and the boost commission on the remainder become recognized
// revenue immediately; the net payout defers into the validator's reward
// queue until the payout floor is crossed.
func (e *Engine) SendValidatorRewards(id types.ID, amount *big.Int, feeRateBps uint64) error {
	return e.run(func() error {
		if amount == nil || amount.Sign() <= 0 {
			return reverts.InvalidParameter("reward amount must be positive")
		}
		if feeRateBps > pool.BpsDenominator {
			return reverts.InvalidParameter("fee rate %d bps above denominator", feeRateBps)
		}
		if _, err := e.registry.GetExisting(id); err != nil {
			return err
		}
		commissionBps, err := e.params.BoostCommissionBps()
		if err != nil {
			return err
		}
		fee := pool.FeeOn(amount, feeRateBps)
		commission := pool.FeeOn(new(big.Int).Sub(amount, fee), commissionBps)
		payout := new(big.Int).Sub(amount, fee)
		payout.Sub(payout, commission)
		recognized := new(big.Int).Add(fee, commission)

		epoch, err := e.epoch.Get()
		if err != nil {
			return err
		}
		if err := e.ledger.RecordRewardInjection(id, epoch, amount, recognized, payout); err != nil {
			return err
		}
		logger.Debug("rewards injected", "id", id, "amount", amount, "recognized", recognized, "payout", payout)
		metrics.Counter("engine_reward_injection_count").Add(1)
		return nil
	})
}

// BoostYield recognizes a donated amount into equity immediately, raising the
// share price. The boost only enters the withdrawal basis once the next crank
// settles it, so it cannot be front-run through an instant withdrawal.
func (e *Engine) BoostYield(donor types.Address, amount *big.Int) error {
	return e.run(func() error {
		if amount == nil || amount.Sign() <= 0 {
			return reverts.InvalidParameter("boost amount must be positive")
		}
		epoch, err := e.epoch.Get()
		if err != nil {
			return err
		}
		if err := e.ledger.RecordBoost(epoch, amount); err != nil {
			return err
		}
		logger.Debug("yield boosted", "donor", donor, "amount", amount)
		return nil
	})
}

// ClaimProtocolRevenue pays recognized, unclaimed revenue out to the given
// address. Owner-gated.
func (e *Engine) ClaimProtocolRevenue(caller, to types.Address, amount *big.Int) error {
	return e.run(func() error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return reverts.InvalidParameter("claim amount must be positive")
		}
		epoch, err := e.epoch.Get()
		if err != nil {
			return err
		}
		if err := e.ledger.RecordRevenueClaim(epoch, amount); err != nil {
			return err
		}
		if err := e.transfer(to, amount); err != nil {
			return err
		}
		logger.Info("protocol revenue claimed", "to", to, "amount", amount)
		return nil
	})
}

//
// Staged admin setters
//

// SetTargetLiquidityBps stages the pool's target buffer size, as a share of
// total equity. Takes effect at the next crank. Owner-gated.
func (e *Engine) SetTargetLiquidityBps(caller types.Address, bps uint64) error {
	return e.run(func() error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
		return e.params.StageTargetLiquidityBps(bps)
	})
}

// SetFeeCurve stages the instant-withdrawal fee parameters. Takes effect at
// the next crank. Owner-gated.
func (e *Engine) SetFeeCurve(caller types.Address, baseBps, midBps, maxBps uint64) error {
	return e.run(func() error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
		return e.params.StageFeeCurve(baseBps, midBps, maxBps)
	})
}

// SetMinPayoutFloor stages the reward-forwarding floor. Takes effect at the
// next crank. Owner-gated.
func (e *Engine) SetMinPayoutFloor(caller types.Address, floor *big.Int) error {
	return e.run(func() error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
		return e.params.StageMinPayoutFloor(floor)
	})
}

// SetBoostCommissionBps stages the commission taken on validator reward
// payouts. Takes effect at the next crank. Owner-gated.
func (e *Engine) SetBoostCommissionBps(caller types.Address, bps uint64) error {
	return e.run(func() error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
		return e.params.StageBoostCommissionBps(bps)
	})
}

//
// Views
//

// CurrentEpoch returns the engine's internal epoch cursor.
func (e *Engine) CurrentEpoch() (uint64, error) {
	return e.epoch.Get()
}

// TotalEquity returns the share-backing equity, on the withdrawal basis when
// requested.
func (e *Engine) TotalEquity(withdrawalBasis bool) (*big.Int, error) {
	return e.ledger.TotalEquity(withdrawalBasis)
}

// TotalShares returns the outstanding share supply.
func (e *Engine) TotalShares() (*big.Int, error) {
	return e.shares.TotalSupply()
}

// SharesOf returns the holder's share balance.
func (e *Engine) SharesOf(holder types.Address) (*big.Int, error) {
	return e.shares.BalanceOf(holder)
}

// WorkingCapital snapshots the global capital cells.
func (e *Engine) WorkingCapital() (*ledger.WorkingCapital, error) {
	return e.ledger.WorkingCapital()
}

// CashFlows returns the debits and credits booked in the given epoch.
func (e *Engine) CashFlows(epoch uint64) (*ledger.CashFlow, error) {
	return e.ledger.CashFlow(epoch)
}

// CurrentLiquidity returns the atomic pool's unconsumed capital.
func (e *Engine) CurrentLiquidity() (*big.Int, error) {
	return e.pool.CurrentLiquidity()
}

// TargetLiquidity returns the pool's current sizing target.
func (e *Engine) TargetLiquidity() (*big.Int, error) {
	targetBps, err := e.params.TargetLiquidityBps()
	if err != nil {
		return nil, err
	}
	equity, err := e.ledger.TotalEquity(false)
	if err != nil {
		return nil, err
	}
	return pool.TargetLiquidity(equity, targetBps), nil
}

// QuoteWithdrawalFeeBps returns the fee a withdrawal would pay right now.
func (e *Engine) QuoteWithdrawalFeeBps() (uint64, error) {
	targetBps, err := e.params.TargetLiquidityBps()
	if err != nil {
		return 0, err
	}
	target, err := e.TargetLiquidity()
	if err != nil {
		return 0, err
	}
	util, err := e.pool.UtilizationBps(target)
	if err != nil {
		return 0, err
	}
	curve, err := e.params.FeeCurve()
	if err != nil {
		return 0, err
	}
	return curve.FeeBps(util, targetBps), nil
}

// NextToCrank returns the validator the next crank pass starts from, zero
// when the next pass starts at the head of the registry.
func (e *Engine) NextToCrank() (types.ID, error) {
	cursor, err := e.registry.Cursor()
	if err != nil {
		return 0, err
	}
	if cursor != 0 {
		return cursor, nil
	}
	return e.registry.First()
}

// PendingRedemption returns the owner's aggregated unstake ticket, zeroes
// when none is pending.
func (e *Engine) PendingRedemption(owner types.Address) (*big.Int, uint64, error) {
	ticket, err := e.redemptions.Get(owner)
	if err != nil {
		return nil, 0, err
	}
	if ticket.IsEmpty() {
		return new(big.Int), 0, nil
	}
	return ticket.Amount, ticket.CompletionEpoch, nil
}

// ValidatorStats aggregates a validator's registry record with its live
// ledger position.
type ValidatorStats struct {
	Record      *registry.Record
	TargetStake *big.Int
	Escrow      *ledger.Escrow
	RewardQueue *ledger.RewardEntry
	Window      *ledger.EpochRecord
}

// Stats returns the validator's registry record and live ledger position.
func (e *Engine) Stats(id types.ID) (*ValidatorStats, error) {
	record, err := e.registry.GetExisting(id)
	if err != nil {
		return nil, err
	}
	epoch, err := e.epoch.Get()
	if err != nil {
		return nil, err
	}
	target, err := e.ledger.TargetStake(id, epoch)
	if err != nil {
		return nil, err
	}
	escrow, err := e.ledger.EscrowOf(id)
	if err != nil {
		return nil, err
	}
	queue, err := e.ledger.RewardQueue(id)
	if err != nil {
		return nil, err
	}
	window, err := e.ledger.EpochRecordAt(id, epoch)
	if err != nil {
		return nil, err
	}
	return &ValidatorStats{
		Record:      record,
		TargetStake: target,
		Escrow:      escrow,
		RewardQueue: queue,
		Window:      window,
	}, nil
}
