// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakewell/stakewell/engine/reverts"
	"github.com/stakewell/stakewell/types"
)

func TestDepositMintsShares(t *testing.T) {
	rig := newTestRig(t)

	minted, err := rig.eng.Deposit(big.NewInt(10_000), user(1))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_000), minted, "first deposit mints one to one")
	rig.conserved(t)

	balance, err := rig.eng.SharesOf(user(1))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_000), balance)

	_, err = rig.eng.Deposit(new(big.Int), user(1))
	assert.True(t, reverts.IsInvalidParameter(err))
}

func TestMintQuotesAssetsUp(t *testing.T) {
	rig := newTestRig(t)

	_, err := rig.eng.Deposit(big.NewInt(1000), user(1))
	require.NoError(t, err)
	// raise the share price so the quote stops being one to one
	require.NoError(t, rig.eng.BoostYield(user(9), big.NewInt(500)))
	rig.conserved(t)

	assets, err := rig.eng.Mint(big.NewInt(100), user(2))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(150), assets, "100 shares at 1500/1000 price")
	rig.conserved(t)
}

func TestDepositCrankFillsPoolToTarget(t *testing.T) {
	rig := newTestRig(t)
	seq := NewSequence(rig).
		AddValidator(operator(1)).
		Deposit(user(1), 10_000).
		Crank()
	seq.Run(t)

	target, err := rig.eng.TargetLiquidity()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), target, "10% of equity")

	current, err := rig.eng.CurrentLiquidity()
	require.NoError(t, err)
	assert.Equal(t, target, current, "no withdrawals yet")

	stats, err := rig.eng.Stats(types.ID(3))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(9000), stats.TargetStake, "the rest delegated")
	assert.Equal(t, big.NewInt(9000), rig.provider.DelegatedTo(operator(1)))
}

func TestWithdrawReducesLiquidity(t *testing.T) {
	rig := newTestRig(t)
	NewSequence(rig).
		AddValidator(operator(1)).
		Deposit(user(1), 10_000).
		Crank().
		Run(t)

	// half the target buffer, gross
	burned, err := rig.eng.Withdraw(big.NewInt(500), user(1), user(1))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), burned)
	rig.conserved(t)

	// fee at zero utilization is base 10 bps, which floors to zero here
	assert.Equal(t, big.NewInt(500), rig.vault.BalanceOf(user(1)))

	current, err := rig.eng.CurrentLiquidity()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), current)
}

func TestWithdrawFeeRisesWithUtilization(t *testing.T) {
	rig := newTestRig(t)
	NewSequence(rig).
		AddValidator(operator(1)).
		Deposit(user(1), 1_000_000).
		Crank().
		Run(t)

	quote, err := rig.eng.QuoteWithdrawalFeeBps()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), quote)

	// consume most of the buffer, then re-quote
	_, err = rig.eng.Withdraw(big.NewInt(80_000), user(1), user(1))
	require.NoError(t, err)
	rig.conserved(t)

	requote, err := rig.eng.QuoteWithdrawalFeeBps()
	require.NoError(t, err)
	assert.Greater(t, requote, quote)

	// the pool refuses to pay out past its liquidity
	_, err = rig.eng.Withdraw(big.NewInt(50_000), user(1), user(1))
	assert.True(t, reverts.IsInsufficientLiquidity(err))
	rig.conserved(t)
}

func TestWithdrawMoreThanBalance(t *testing.T) {
	rig := newTestRig(t)
	NewSequence(rig).
		AddValidator(operator(1)).
		Deposit(user(1), 10_000).
		Crank().
		Run(t)

	_, err := rig.eng.Withdraw(big.NewInt(300), user(2), user(2))
	assert.True(t, reverts.IsInsufficientLiquidity(err), "owner holds no shares")
}

func TestUnstakeLifecycle(t *testing.T) {
	rig := newTestRig(t)
	NewSequence(rig).
		AddValidator(operator(1)).
		Deposit(user(1), 10_000).
		Crank().
		Run(t)

	completion, err := rig.eng.RequestUnstake(user(1), big.NewInt(4000))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), completion)
	rig.conserved(t)

	// undelegation is submitted at the next crank, claimable two epochs on
	rig.crankAll(t) // epoch 1
	rig.crankAll(t) // epoch 2

	_, err = rig.eng.CompleteUnstake(user(1))
	assert.True(t, reverts.IsTooEarly(err))

	rig.crankAll(t) // epoch 3: withdrawal claimed, reserved funded

	paid, err := rig.eng.CompleteUnstake(user(1))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(4000), paid)
	assert.Equal(t, big.NewInt(4000), rig.vault.BalanceOf(user(1)))
	rig.conserved(t)

	_, err = rig.eng.CompleteUnstake(user(1))
	assert.True(t, reverts.IsInvalidParameter(err), "ticket consumed")

	wc, err := rig.eng.WorkingCapital()
	require.NoError(t, err)
	assert.Zero(t, wc.RedemptionsPayable.Sign())
}

func TestUnstakeRequestsAggregate(t *testing.T) {
	rig := newTestRig(t)
	NewSequence(rig).
		AddValidator(operator(1)).
		Deposit(user(1), 10_000).
		Crank().
		Run(t)

	_, err := rig.eng.RequestUnstake(user(1), big.NewInt(1000))
	require.NoError(t, err)

	rig.crankAll(t) // epoch 1

	completion, err := rig.eng.RequestUnstake(user(1), big.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), completion, "later request pushes the ticket out")

	amount, due, err := rig.eng.PendingRedemption(user(1))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1500), amount)
	assert.Equal(t, uint64(4), due)
}

func TestBoostCannotBeFrontRun(t *testing.T) {
	rig := newTestRig(t)
	NewSequence(rig).
		AddValidator(operator(1)).
		Deposit(user(1), 10_000).
		Crank().
		Run(t)

	require.NoError(t, rig.eng.BoostYield(user(9), big.NewInt(1000)))
	rig.conserved(t)

	full, err := rig.eng.TotalEquity(false)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(11_000), full)

	basis, err := rig.eng.TotalEquity(true)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_000), basis, "boost excluded until cranked")

	rig.crankAll(t)

	basis, err = rig.eng.TotalEquity(true)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(11_000), basis)
}

func TestRewardRecognitionSplit(t *testing.T) {
	rig := newTestRig(t)
	NewSequence(rig).
		AddValidator(operator(1)).
		Deposit(user(1), 10_000).
		Crank().
		Run(t)

	// 1000 in: 10% protocol fee, then 10% default commission on the rest
	require.NoError(t, rig.eng.SendValidatorRewards(types.ID(3), big.NewInt(1000), 1000))
	rig.conserved(t)

	wc, err := rig.eng.WorkingCapital()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(190), wc.UnpaidRevenue())
	assert.Equal(t, big.NewInt(810), wc.RewardsPayable)

	stats, err := rig.eng.Stats(types.ID(3))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(810), stats.RewardQueue.Amount)
}

func TestClaimProtocolRevenue(t *testing.T) {
	rig := newTestRig(t)
	NewSequence(rig).
		AddValidator(operator(1)).
		Deposit(user(1), 10_000).
		SendRewards(types.ID(3), 1000, 1000).
		Run(t)

	err := rig.eng.ClaimProtocolRevenue(user(1), user(1), big.NewInt(100))
	assert.True(t, reverts.IsUnauthorized(err))

	require.NoError(t, rig.eng.ClaimProtocolRevenue(testOwner, testOwner, big.NewInt(150)))
	rig.conserved(t)
	assert.Equal(t, big.NewInt(150), rig.vault.BalanceOf(testOwner))

	err = rig.eng.ClaimProtocolRevenue(testOwner, testOwner, big.NewInt(100))
	assert.True(t, reverts.IsInsufficientLiquidity(err), "only 40 unpaid remains")
}

func TestStagedParamsApplyAtCrank(t *testing.T) {
	rig := newTestRig(t)
	NewSequence(rig).
		AddValidator(operator(1)).
		Deposit(user(1), 10_000).
		Crank().
		Run(t)

	require.NoError(t, rig.eng.SetTargetLiquidityBps(testOwner, 2000))

	target, err := rig.eng.TargetLiquidity()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), target, "still the old 10% before the crank")

	rig.crankAll(t)

	target, err = rig.eng.TargetLiquidity()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2000), target)

	// validation happens at staging time
	err = rig.eng.SetFeeCurve(testOwner, 50, 40, 200)
	assert.True(t, reverts.IsInvalidParameter(err))
	err = rig.eng.SetTargetLiquidityBps(user(1), 500)
	assert.True(t, reverts.IsUnauthorized(err))
}

func TestReentrancyGuard(t *testing.T) {
	rig := newTestRig(t)
	NewSequence(rig).
		AddValidator(operator(1)).
		Deposit(user(1), 10_000).
		Crank().
		Run(t)

	before, err := rig.eng.TotalEquity(false)
	require.NoError(t, err)

	var nested error
	rig.vault.OnTransfer = func(types.Address, *big.Int) error {
		_, nested = rig.eng.Deposit(big.NewInt(1), user(2))
		return nested
	}

	_, err = rig.eng.Withdraw(big.NewInt(100), user(1), user(1))
	require.Error(t, err)
	assert.True(t, reverts.IsReentrantCall(nested))

	// the outer call aborted atomically
	after, err := rig.eng.TotalEquity(false)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	rig.conserved(t)
}

func TestConversionRoundTrip(t *testing.T) {
	rig := newTestRig(t)

	_, err := rig.eng.Deposit(big.NewInt(3000), user(1))
	require.NoError(t, err)
	require.NoError(t, rig.eng.BoostYield(user(9), big.NewInt(1000)))

	quoted, err := rig.eng.ConvertToShares(big.NewInt(400))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(300), quoted, "400 assets at 4000/3000")

	back, err := rig.eng.ConvertToAssets(quoted)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(400), back)
}
