// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakewell/stakewell/engine/reverts"
	"github.com/stakewell/stakewell/kv"
	"github.com/stakewell/stakewell/state"
	"github.com/stakewell/stakewell/storage"
	"github.com/stakewell/stakewell/types"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	sctx := storage.NewContext(types.BytesToAddress([]byte("ledger-test")), state.New(kv.NewMemLevelDB()))
	return New(sctx)
}

func wei(n int64) *big.Int {
	return big.NewInt(n)
}

// conserved asserts the invariant with no pool capital in play.
func conserved(t *testing.T, svc *Service) {
	t.Helper()
	require.NoError(t, svc.CheckConservation(new(big.Int)))
}

func TestDepositConserves(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.RecordDeposit(1, wei(1000)))
	conserved(t, svc)

	native, err := svc.NativeBalance()
	require.NoError(t, err)
	assert.Equal(t, wei(1000), native)

	equity, err := svc.TotalEquity(false)
	require.NoError(t, err)
	assert.Equal(t, wei(1000), equity)

	pending, err := svc.PendingStake()
	require.NoError(t, err)
	assert.Equal(t, wei(1000), pending)

	flow, err := svc.CashFlow(1)
	require.NoError(t, err)
	assert.Equal(t, wei(1000), flow.Credits)
}

func TestInstantWithdrawalSplitsFee(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.RecordDeposit(1, wei(1000)))

	// fund the pool buffer, then take gross 200 out of it with 10 staying
	// behind as recognized revenue
	require.NoError(t, svc.MoveNativeToPool(wei(300)))
	require.NoError(t, svc.RecordInstantWithdrawal(1, wei(200), wei(10)))

	// net 190 left the buffer; the fee cash still backs unpaid revenue
	require.NoError(t, svc.CheckConservation(wei(110)))

	equity, err := svc.TotalEquity(false)
	require.NoError(t, err)
	assert.Equal(t, wei(800), equity)

	wc, err := svc.WorkingCapital()
	require.NoError(t, err)
	assert.Equal(t, wei(10), wc.UnpaidRevenue())

	flow, err := svc.CashFlow(1)
	require.NoError(t, err)
	assert.Equal(t, wei(190), flow.Debits)
}

func TestUnstakeLifecycle(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.RecordDeposit(1, wei(1000)))

	require.NoError(t, svc.RecordUnstakeRequest(1, wei(400)))
	conserved(t, svc)

	owed, err := svc.RedemptionsPayable()
	require.NoError(t, err)
	assert.Equal(t, wei(400), owed)

	// not yet backed by reserved capital
	err = svc.RecordUnstakeCompletion(4, wei(400))
	assert.True(t, reverts.IsTooEarly(err))

	// delegate, then claim back: the claim earmarks reserved up to the
	// redemption shortfall
	require.NoError(t, svc.MoveNativeToStaked(wei(1000)))
	conserved(t, svc)
	require.NoError(t, svc.SettleClaim(wei(500)))
	conserved(t, svc)

	reserved, err := svc.ReservedCapital()
	require.NoError(t, err)
	assert.Equal(t, wei(400), reserved)

	native, err := svc.NativeBalance()
	require.NoError(t, err)
	assert.Equal(t, wei(100), native)

	require.NoError(t, svc.RecordUnstakeCompletion(4, wei(400)))
	conserved(t, svc)

	owed, err = svc.RedemptionsPayable()
	require.NoError(t, err)
	assert.Zero(t, owed.Sign())
}

func TestRewardInjectionDefersPayout(t *testing.T) {
	svc := newTestService(t)
	id := types.ID(3)

	require.NoError(t, svc.RecordRewardInjection(id, 5, wei(100), wei(30), wei(70)))
	conserved(t, svc)

	wc, err := svc.WorkingCapital()
	require.NoError(t, err)
	assert.Equal(t, wei(30), wc.UnpaidRevenue())
	assert.Equal(t, wei(70), wc.RewardsPayable)

	queue, err := svc.RewardQueue(id)
	require.NoError(t, err)
	assert.Equal(t, wei(70), queue.Amount)
	assert.Equal(t, uint64(5), queue.Epoch)

	// a second injection accumulates and refreshes the accrual epoch
	require.NoError(t, svc.RecordRewardInjection(id, 6, wei(50), wei(20), wei(30)))
	queue, err = svc.RewardQueue(id)
	require.NoError(t, err)
	assert.Equal(t, wei(100), queue.Amount)
	assert.Equal(t, uint64(6), queue.Epoch)
	conserved(t, svc)
}

func TestRewardForwardRecognizesEquity(t *testing.T) {
	svc := newTestService(t)
	id := types.ID(3)

	require.NoError(t, svc.RecordRewardInjection(id, 5, wei(100), wei(0), wei(100)))

	require.NoError(t, svc.RecordRewardForward(id, wei(100)))
	conserved(t, svc)

	equity, err := svc.TotalEquity(false)
	require.NoError(t, err)
	assert.Equal(t, wei(100), equity)

	queue, err := svc.RewardQueue(id)
	require.NoError(t, err)
	assert.True(t, queue.IsEmpty())

	err = svc.RecordRewardForward(id, wei(1))
	assert.True(t, reverts.IsInvariantViolation(err))
}

func TestBoostWithdrawalBasis(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.RecordDeposit(1, wei(1000)))

	require.NoError(t, svc.RecordBoost(1, wei(50)))
	conserved(t, svc)

	full, err := svc.TotalEquity(false)
	require.NoError(t, err)
	assert.Equal(t, wei(1050), full)

	basis, err := svc.TotalEquity(true)
	require.NoError(t, err)
	assert.Equal(t, wei(1000), basis, "unsettled boost excluded from withdrawal basis")

	svc.SettleBoosts()
	basis, err = svc.TotalEquity(true)
	require.NoError(t, err)
	assert.Equal(t, wei(1050), basis)
}

func TestRevenueClaim(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.RecordRewardInjection(types.ID(3), 1, wei(100), wei(100), wei(0)))

	err := svc.RecordRevenueClaim(1, wei(101))
	assert.True(t, reverts.IsInsufficientLiquidity(err))

	require.NoError(t, svc.RecordRevenueClaim(1, wei(60)))
	conserved(t, svc)

	wc, err := svc.WorkingCapital()
	require.NoError(t, err)
	assert.Equal(t, wei(40), wc.UnpaidRevenue())
}

func TestEscrowConsumption(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.RecordDeposit(1, wei(300)))
	require.NoError(t, svc.RecordUnstakeRequest(1, wei(200)))

	require.NoError(t, svc.ConsumeStakeEscrow(wei(100)))
	pending, err := svc.PendingStake()
	require.NoError(t, err)
	assert.Equal(t, wei(200), pending)

	assert.True(t, reverts.IsInvariantViolation(svc.ConsumeStakeEscrow(wei(201))))

	left, err := svc.ConsumeUnstakeEscrow(wei(150))
	require.NoError(t, err)
	assert.Equal(t, wei(50), left)
}

func TestWindowRollForwardAndSettle(t *testing.T) {
	svc := newTestService(t)
	id := types.ID(3)

	record, err := svc.RollForward(id, 10, wei(500), wei(0), wei(0))
	require.NoError(t, err)
	assert.Equal(t, wei(500), record.TargetStake)
	assert.True(t, record.QueuedDeposit)
	assert.False(t, record.QueuedWithdrawal)

	target, err := svc.TargetStake(id, 12)
	require.NoError(t, err)
	assert.Equal(t, wei(500), target, "target carries across empty window slots")

	// roll with an unstake and a compounded reward
	record, err = svc.RollForward(id, 11, wei(0), wei(200), wei(40))
	require.NoError(t, err)
	assert.Equal(t, wei(340), record.TargetStake)
	assert.True(t, record.QueuedWithdrawal)

	escrow, err := svc.EscrowOf(id)
	require.NoError(t, err)
	assert.Equal(t, wei(500), escrow.PendingStake, "compound never enters escrow")
	assert.Equal(t, wei(200), escrow.PendingUnstake)

	unsettled, err := svc.HasUnsettled(id, 11)
	require.NoError(t, err)
	assert.True(t, unsettled)

	first, err := svc.EpochRecordAt(id, 10)
	require.NoError(t, err)
	require.NoError(t, svc.SettleStakeDelta(id, 10, first))
	require.NoError(t, svc.SettleUnstakeDelta(id, 11, record))

	unsettled, err = svc.HasUnsettled(id, 11)
	require.NoError(t, err)
	assert.False(t, unsettled)
}

func TestRetireRejectsUnsettled(t *testing.T) {
	svc := newTestService(t)
	id := types.ID(3)

	_, err := svc.RollForward(id, 10, wei(100), wei(0), wei(0))
	require.NoError(t, err)

	err = svc.RetireEpochRecord(id, 10)
	assert.True(t, reverts.IsInvariantViolation(err))

	record, err := svc.EpochRecordAt(id, 10)
	require.NoError(t, err)
	require.NoError(t, svc.SettleStakeDelta(id, 10, record))
	require.NoError(t, svc.RetireEpochRecord(id, 10))

	record, err = svc.EpochRecordAt(id, 10)
	require.NoError(t, err)
	assert.True(t, record.IsEmpty())
}

func TestNegativeTargetRejected(t *testing.T) {
	svc := newTestService(t)
	id := types.ID(3)

	_, err := svc.RollForward(id, 10, wei(0), wei(1), wei(0))
	assert.True(t, reverts.IsInvariantViolation(err))
}

func TestPurgeWindows(t *testing.T) {
	svc := newTestService(t)
	id := types.ID(3)

	for epoch := uint64(10); epoch <= 12; epoch++ {
		_, err := svc.RollForward(id, epoch, wei(10), wei(0), wei(0))
		require.NoError(t, err)
	}

	svc.PurgeWindows(id, 12)

	for epoch := uint64(10); epoch <= 12; epoch++ {
		record, err := svc.EpochRecordAt(id, epoch)
		require.NoError(t, err)
		assert.True(t, record.IsEmpty(), "epoch %d", epoch)
	}
	escrow, err := svc.EscrowOf(id)
	require.NoError(t, err)
	assert.True(t, escrow.IsEmpty())
}
