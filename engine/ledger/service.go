// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/engine/reverts"
	"github.com/stakewell/stakewell/storage"
	"github.com/stakewell/stakewell/types"
)

// WindowDepth is how many past epochs stay addressable per validator.
const WindowDepth = 3

var (
	slotStaked           = storage.NameToSlot("ledger-staked-capital")
	slotNative           = storage.NameToSlot("ledger-native-balance")
	slotReserved         = storage.NameToSlot("ledger-reserved-capital")
	slotEquity           = storage.NameToSlot("ledger-equity-backing")
	slotRedemptions      = storage.NameToSlot("ledger-redemptions-payable")
	slotRewardsPayable   = storage.NameToSlot("ledger-rewards-payable")
	slotRevenueEarned    = storage.NameToSlot("ledger-revenue-earned")
	slotRevenueAllocated = storage.NameToSlot("ledger-revenue-allocated")
	slotUnsettledBoost   = storage.NameToSlot("ledger-unsettled-boost")
	slotEscrowStake      = storage.NameToSlot("ledger-escrow-stake")
	slotEscrowUnstake    = storage.NameToSlot("ledger-escrow-unstake")
	slotEscrows          = storage.NameToSlot("ledger-validator-escrows")
	slotWindows          = storage.NameToSlot("ledger-epoch-windows")
	slotCashFlows        = storage.NameToSlot("ledger-cash-flows")
	slotRewardQueues     = storage.NameToSlot("ledger-reward-queues")
)

// Service owns the global capital/liabilities cells and the per-validator
// epoch windows. Every mutating operation routes through here so the
// conservation invariant stays checkable in isolation.
type Service struct {
	staked           *storage.Uint256
	native           *storage.Uint256
	reserved         *storage.Uint256
	equity           *storage.Uint256
	redemptions      *storage.Uint256
	rewardsPayable   *storage.Uint256
	revenueEarned    *storage.Uint256
	revenueAllocated *storage.Uint256
	unsettledBoost   *storage.Uint256

	escrowStake   *storage.Uint256
	escrowUnstake *storage.Uint256

	escrows      *storage.Mapping[types.ID, *Escrow]
	windows      *storage.Mapping[types.Bytes32, *EpochRecord]
	cashFlows    *storage.Mapping[types.ID, *CashFlow]
	rewardQueues *storage.Mapping[types.ID, *RewardEntry]
}

func New(sctx *storage.Context) *Service {
	return &Service{
		staked:           storage.NewUint256(sctx, slotStaked),
		native:           storage.NewUint256(sctx, slotNative),
		reserved:         storage.NewUint256(sctx, slotReserved),
		equity:           storage.NewUint256(sctx, slotEquity),
		redemptions:      storage.NewUint256(sctx, slotRedemptions),
		rewardsPayable:   storage.NewUint256(sctx, slotRewardsPayable),
		revenueEarned:    storage.NewUint256(sctx, slotRevenueEarned),
		revenueAllocated: storage.NewUint256(sctx, slotRevenueAllocated),
		unsettledBoost:   storage.NewUint256(sctx, slotUnsettledBoost),
		escrowStake:      storage.NewUint256(sctx, slotEscrowStake),
		escrowUnstake:    storage.NewUint256(sctx, slotEscrowUnstake),
		escrows:          storage.NewMapping[types.ID, *Escrow](sctx, slotEscrows),
		windows:          storage.NewMapping[types.Bytes32, *EpochRecord](sctx, slotWindows),
		cashFlows:        storage.NewMapping[types.ID, *CashFlow](sctx, slotCashFlows),
		rewardQueues:     storage.NewMapping[types.ID, *RewardEntry](sctx, slotRewardQueues),
	}
}

//
// Views
//

// WorkingCapital snapshots the global capital cells.
func (s *Service) WorkingCapital() (*WorkingCapital, error) {
	var (
		wc  WorkingCapital
		err error
	)
	if wc.StakedCapital, err = s.staked.Get(); err != nil {
		return nil, err
	}
	if wc.NativeBalance, err = s.native.Get(); err != nil {
		return nil, err
	}
	if wc.ReservedCapital, err = s.reserved.Get(); err != nil {
		return nil, err
	}
	if wc.RedemptionsPayable, err = s.redemptions.Get(); err != nil {
		return nil, err
	}
	if wc.RewardsPayable, err = s.rewardsPayable.Get(); err != nil {
		return nil, err
	}
	if wc.RevenueEarned, err = s.revenueEarned.Get(); err != nil {
		return nil, err
	}
	if wc.RevenueAllocated, err = s.revenueAllocated.Get(); err != nil {
		return nil, err
	}
	if wc.EquityBacking, err = s.equity.Get(); err != nil {
		return nil, err
	}
	return &wc, nil
}

// TotalEquity returns the share-backing equity. With withdrawalBasis the
// quote excludes reward boosts recognized since the last crank, so redeemable
// value is never inflated by revenue not yet backed by settled cash.
func (s *Service) TotalEquity(withdrawalBasis bool) (*big.Int, error) {
	equity, err := s.equity.Get()
	if err != nil {
		return nil, err
	}
	if withdrawalBasis {
		boost, err := s.unsettledBoost.Get()
		if err != nil {
			return nil, err
		}
		equity.Sub(equity, boost)
		if equity.Sign() < 0 {
			equity.SetInt64(0)
		}
	}
	return equity, nil
}

// StakedCapital returns the capital delegated to validators, claims in flight included.
func (s *Service) StakedCapital() (*big.Int, error) {
	return s.staked.Get()
}

// NativeBalance returns undeployed cash on hand.
func (s *Service) NativeBalance() (*big.Int, error) {
	return s.native.Get()
}

// ReservedCapital returns cash set aside for matured redemptions.
func (s *Service) ReservedCapital() (*big.Int, error) {
	return s.reserved.Get()
}

// RedemptionsPayable returns the total owed to unstakers.
func (s *Service) RedemptionsPayable() (*big.Int, error) {
	return s.redemptions.Get()
}

// PendingStake returns the global deposit escrow awaiting delegation.
func (s *Service) PendingStake() (*big.Int, error) {
	return s.escrowStake.Get()
}

// PendingUnstake returns the global redemption escrow awaiting undelegation.
func (s *Service) PendingUnstake() (*big.Int, error) {
	return s.escrowUnstake.Get()
}

// CheckConservation verifies the system-wide conservation invariant:
//
//	staked + poolLiquidity + native + reserved ==
//	equity + redemptionsPayable + rewardsPayable + unpaidRevenue
//
// integer-exact. A mismatch is fatal: it can only be produced by a bug.
func (s *Service) CheckConservation(poolLiquidity *big.Int) error {
	wc, err := s.WorkingCapital()
	if err != nil {
		return err
	}
	assets := new(big.Int).Add(wc.StakedCapital, poolLiquidity)
	assets.Add(assets, wc.NativeBalance)
	assets.Add(assets, wc.ReservedCapital)

	claims := new(big.Int).Add(wc.EquityBacking, wc.RedemptionsPayable)
	claims.Add(claims, wc.RewardsPayable)
	claims.Add(claims, wc.UnpaidRevenue())

	if assets.Cmp(claims) != 0 {
		return reverts.InvariantViolation("assets %v != liabilities+equity %v", assets, claims)
	}
	return nil
}

//
// Entry-point mutations
//

// RecordDeposit stages incoming assets: cash on hand, equity, and the
// deposit escrow picked up by the next crank.
func (s *Service) RecordDeposit(epoch uint64, assets *big.Int) error {
	if err := s.native.Add(assets); err != nil {
		return err
	}
	if err := s.equity.Add(assets); err != nil {
		return err
	}
	if err := s.escrowStake.Add(assets); err != nil {
		return err
	}
	return s.credit(epoch, assets)
}

// RecordInstantWithdrawal burns gross equity; the fee portion stays behind as
// recognized revenue while net leaves through the atomic pool.
func (s *Service) RecordInstantWithdrawal(epoch uint64, gross, fee *big.Int) error {
	if err := s.equity.Sub(gross); err != nil {
		return err
	}
	if err := s.revenueEarned.Add(fee); err != nil {
		return err
	}
	return s.debit(epoch, new(big.Int).Sub(gross, fee))
}

// RecordUnstakeRequest converts equity into a redemption liability and queues
// the amount for undelegation.
func (s *Service) RecordUnstakeRequest(epoch uint64, assets *big.Int) error {
	if err := s.equity.Sub(assets); err != nil {
		return err
	}
	if err := s.redemptions.Add(assets); err != nil {
		return err
	}
	return s.escrowUnstake.Add(assets)
}

// RecordUnstakeCompletion pays a matured redemption out of reserved capital.
func (s *Service) RecordUnstakeCompletion(epoch uint64, assets *big.Int) error {
	reserved, err := s.reserved.Get()
	if err != nil {
		return err
	}
	if reserved.Cmp(assets) < 0 {
		return reverts.TooEarly("redemption of %v not yet backed by settled capital %v", assets, reserved)
	}
	if err := s.reserved.Sub(assets); err != nil {
		return err
	}
	if err := s.redemptions.Sub(assets); err != nil {
		return err
	}
	return s.debit(epoch, assets)
}

// RecordRewardInjection books an incoming reward amount: the protocol fee and
// boost commission are recognized immediately, the validator payout is
// deferred into the reward queue until the floor is crossed.
func (s *Service) RecordRewardInjection(id types.ID, epoch uint64, total, recognized, payout *big.Int) error {
	if err := s.native.Add(total); err != nil {
		return err
	}
	if err := s.revenueEarned.Add(recognized); err != nil {
		return err
	}
	if payout.Sign() == 0 {
		return s.credit(epoch, total)
	}
	if err := s.rewardsPayable.Add(payout); err != nil {
		return err
	}
	entry, err := s.rewardQueues.Get(id)
	if err != nil {
		return err
	}
	if entry.IsEmpty() {
		entry = &RewardEntry{Amount: new(big.Int)}
	}
	entry.Amount.Add(entry.Amount, payout)
	entry.Epoch = epoch
	if err := s.rewardQueues.Set(id, entry); err != nil {
		return err
	}
	return s.credit(epoch, total)
}

// RecordBoost recognizes donated yield into equity immediately. The amount is
// memoized so withdrawal-basis equity excludes it until the next crank.
func (s *Service) RecordBoost(epoch uint64, amount *big.Int) error {
	if err := s.native.Add(amount); err != nil {
		return err
	}
	if err := s.equity.Add(amount); err != nil {
		return err
	}
	if err := s.unsettledBoost.Add(amount); err != nil {
		return err
	}
	return s.credit(epoch, amount)
}

// RecordRevenueClaim pays recognized revenue out of cash on hand.
func (s *Service) RecordRevenueClaim(epoch uint64, amount *big.Int) error {
	wc, err := s.WorkingCapital()
	if err != nil {
		return err
	}
	if wc.UnpaidRevenue().Cmp(amount) < 0 {
		return reverts.InsufficientLiquidity("unpaid revenue below claim %v", amount)
	}
	if wc.NativeBalance.Cmp(amount) < 0 {
		return reverts.InsufficientLiquidity("cash on hand below claim %v", amount)
	}
	if err := s.native.Sub(amount); err != nil {
		return err
	}
	if err := s.revenueAllocated.Add(amount); err != nil {
		return err
	}
	return s.debit(epoch, amount)
}

//
// Crank mutations
//

// SettleBoosts clears the unsettled-boost memo at the epoch boundary.
func (s *Service) SettleBoosts() {
	s.unsettledBoost.Set(new(big.Int))
}

// MoveNativeToStaked books a delegation: cash becomes staked capital.
func (s *Service) MoveNativeToStaked(amount *big.Int) error {
	native, err := s.native.Get()
	if err != nil {
		return err
	}
	if native.Cmp(amount) < 0 {
		return reverts.InvariantViolation("delegation %v exceeds cash %v", amount, native)
	}
	if err := s.native.Sub(amount); err != nil {
		return err
	}
	return s.staked.Add(amount)
}

// SettleClaim books a claimed withdrawal: staked capital becomes cash,
// earmarked as reserved up to the outstanding redemption liability.
func (s *Service) SettleClaim(amount *big.Int) error {
	staked, err := s.staked.Get()
	if err != nil {
		return err
	}
	if staked.Cmp(amount) < 0 {
		return reverts.InvariantViolation("claim %v exceeds staked capital %v", amount, staked)
	}
	if err := s.staked.Sub(amount); err != nil {
		return err
	}

	redemptions, err := s.redemptions.Get()
	if err != nil {
		return err
	}
	reserved, err := s.reserved.Get()
	if err != nil {
		return err
	}
	shortfall := new(big.Int).Sub(redemptions, reserved)
	if shortfall.Sign() < 0 {
		shortfall.SetInt64(0)
	}
	earmark := amount
	if earmark.Cmp(shortfall) > 0 {
		earmark = shortfall
	}
	if err := s.reserved.Add(earmark); err != nil {
		return err
	}
	return s.native.Add(new(big.Int).Sub(amount, earmark))
}

// RecordRewardForward clears a validator's reward queue after the whole
// accumulated balance was forwarded in one call: the deferred payout turns
// from a liability into recognized equity. The backing cash stays on hand;
// the scheduler books the restake separately when it delegates the amount.
func (s *Service) RecordRewardForward(id types.ID, amount *big.Int) error {
	payable, err := s.rewardsPayable.Get()
	if err != nil {
		return err
	}
	if payable.Cmp(amount) < 0 {
		return reverts.InvariantViolation("reward forward %v exceeds rewards payable %v", amount, payable)
	}
	if err := s.rewardsPayable.Sub(amount); err != nil {
		return err
	}
	if err := s.equity.Add(amount); err != nil {
		return err
	}
	s.rewardQueues.Delete(id)
	return nil
}

// ConsumeStakeEscrow reduces the global deposit escrow by the delegated slice.
func (s *Service) ConsumeStakeEscrow(amount *big.Int) error {
	pending, err := s.escrowStake.Get()
	if err != nil {
		return err
	}
	if pending.Cmp(amount) < 0 {
		return reverts.InvariantViolation("stake escrow %v below consumed %v", pending, amount)
	}
	return s.escrowStake.Sub(amount)
}

// ConsumeUnstakeEscrow reduces the global redemption escrow by the
// undelegated slice and returns the remaining balance.
func (s *Service) ConsumeUnstakeEscrow(amount *big.Int) (*big.Int, error) {
	pending, err := s.escrowUnstake.Get()
	if err != nil {
		return nil, err
	}
	if pending.Cmp(amount) < 0 {
		return nil, reverts.InvariantViolation("unstake escrow %v below consumed %v", pending, amount)
	}
	if err := s.escrowUnstake.Sub(amount); err != nil {
		return nil, err
	}
	return new(big.Int).Sub(pending, amount), nil
}

//
// Pool interplay
//

// MoveNativeToPool earmarks cash into the atomic pool buffer.
// The pool service adjusts its own allocated cell; the ledger only gives up cash.
func (s *Service) MoveNativeToPool(amount *big.Int) error {
	native, err := s.native.Get()
	if err != nil {
		return err
	}
	if native.Cmp(amount) < 0 {
		return reverts.InvariantViolation("pool top-up %v exceeds cash %v", amount, native)
	}
	return s.native.Sub(amount)
}

// MovePoolToNative releases pool capital back into cash on hand.
func (s *Service) MovePoolToNative(amount *big.Int) error {
	return s.native.Add(amount)
}

func (s *Service) credit(epoch uint64, amount *big.Int) error {
	flow, err := s.CashFlow(epoch)
	if err != nil {
		return err
	}
	if flow.IsEmpty() {
		flow = newCashFlow()
	}
	flow.Credits.Add(flow.Credits, amount)
	return s.cashFlows.Set(types.ID(epoch), flow)
}

func (s *Service) debit(epoch uint64, amount *big.Int) error {
	flow, err := s.CashFlow(epoch)
	if err != nil {
		return err
	}
	if flow.IsEmpty() {
		flow = newCashFlow()
	}
	flow.Debits.Add(flow.Debits, amount)
	return s.cashFlows.Set(types.ID(epoch), flow)
}

// CashFlow returns the cash-flow aggregate for the epoch.
func (s *Service) CashFlow(epoch uint64) (*CashFlow, error) {
	flow, err := s.cashFlows.Get(types.ID(epoch))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get cash flow")
	}
	return flow, nil
}

// RewardQueue returns a validator's deferred reward entry.
func (s *Service) RewardQueue(id types.ID) (*RewardEntry, error) {
	entry, err := s.rewardQueues.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get reward queue")
	}
	return entry, nil
}
