// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakewell/stakewell/fortest"
	"github.com/stakewell/stakewell/kv"
	"github.com/stakewell/stakewell/state"
	"github.com/stakewell/stakewell/types"
)

var (
	testOwner  = types.BytesToAddress([]byte("owner"))
	testEngine = types.BytesToAddress([]byte("engine"))
)

func user(b byte) types.Address {
	return types.BytesToAddress([]byte{'u', b})
}

func operator(b byte) types.Address {
	return types.BytesToAddress([]byte{'o', b})
}

type testRig struct {
	eng      *Engine
	provider *fortest.Provider
	vault    *fortest.Vault
}

// newTestRig wires an engine to a simulated provider whose withdrawals take
// two epochs to become claimable.
func newTestRig(t *testing.T) *testRig {
	t.Helper()
	provider := fortest.NewProvider(2)
	vault := fortest.NewVault()
	eng := New(state.New(kv.NewMemLevelDB()), testEngine, provider, vault.Transfer, Config{Owner: testOwner})
	require.NoError(t, eng.Initialize())
	return &testRig{eng: eng, provider: provider, vault: vault}
}

func (r *testRig) conserved(t *testing.T) {
	t.Helper()
	require.NoError(t, r.eng.checkConservation())
}

// crankAll cranks one full epoch: the current one if still open, otherwise
// the next, moving the provider clock along.
func (r *testRig) crankAll(t *testing.T) {
	t.Helper()
	done, err := r.eng.epochDone.Get()
	require.NoError(t, err)
	if done {
		r.provider.AdvanceEpoch()
	}
	complete, err := r.eng.Crank(0)
	require.NoError(t, err)
	require.True(t, complete)
	r.conserved(t)
}

// drainEvents discards events emitted so far, so a test can assert on just
// the ones the next step produces.
func (r *testRig) drainEvents() {
	r.eng.DrainEvents()
}

type TestFunc func(t *testing.T)

// TestSequence chains engine operations with a conservation check after
// every step.
type TestSequence struct {
	rig *testRig

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(rig *testRig) *TestSequence {
	return &TestSequence{rig: rig, funcs: make([]TestFunc, 0)}
}

func (ts *TestSequence) AddFunc(f TestFunc) *TestSequence {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.funcs = append(ts.funcs, func(t *testing.T) {
		f(t)
		ts.rig.conserved(t)
	})
	return ts
}

func (ts *TestSequence) AddValidator(op types.Address) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		id, err := ts.rig.eng.AddValidator(testOwner, op)
		if err != nil {
			t.Fatalf("failed to add validator %s: %v", op, err)
		}
		t.Logf("added validator %v for %s", id, op)
	})
}

func (ts *TestSequence) Deposit(receiver types.Address, assets int64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		minted, err := ts.rig.eng.Deposit(big.NewInt(assets), receiver)
		if err != nil {
			t.Fatalf("failed to deposit %d for %s: %v", assets, receiver, err)
		}
		t.Logf("deposited %d, minted %s shares", assets, minted)
	})
}

func (ts *TestSequence) Withdraw(owner types.Address, assets int64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		burned, err := ts.rig.eng.Withdraw(big.NewInt(assets), owner, owner)
		if err != nil {
			t.Fatalf("failed to withdraw %d for %s: %v", assets, owner, err)
		}
		t.Logf("withdrew %d, burned %s shares", assets, burned)
	})
}

func (ts *TestSequence) SendRewards(id types.ID, amount int64, feeRateBps uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.rig.eng.SendValidatorRewards(id, big.NewInt(amount), feeRateBps); err != nil {
			t.Fatalf("failed to send rewards to validator %v: %v", id, err)
		}
		t.Logf("sent %d rewards to validator %v", amount, id)
	})
}

func (ts *TestSequence) Crank() *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		ts.rig.crankAll(t)
		epoch, err := ts.rig.eng.CurrentEpoch()
		if err != nil {
			t.Fatalf("failed to read epoch: %v", err)
		}
		t.Logf("cranked epoch %d", epoch)
	})
}

func (ts *TestSequence) Run(t *testing.T) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for _, f := range ts.funcs {
		f(t)
	}
}
