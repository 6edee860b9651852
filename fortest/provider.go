// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package fortest provides an in-memory staking provider with a manually
// driven epoch clock, used by engine tests and the CLI simulator.
package fortest

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/types"
)

// Withdrawal is an in-flight undelegation at the simulated provider.
type Withdrawal struct {
	Operator types.Address
	Amount   *big.Int
	ReadyAt  uint64
	Claimed  bool
}

// Provider simulates the external staking service. The epoch clock only
// moves when the test advances it; withdrawal readiness follows a fixed
// delay that individual withdrawals can be pushed past to exercise the
// boundary-delay path.
type Provider struct {
	epoch           uint64
	withdrawalDelay uint64

	nextWithdrawalID uint64
	withdrawals      map[uint64]*Withdrawal
	delegated        map[types.Address]*big.Int
	forwarded        map[types.Address]*big.Int
}

// NewProvider creates a provider whose withdrawals become claimable
// withdrawalDelay epochs after submission.
func NewProvider(withdrawalDelay uint64) *Provider {
	return &Provider{
		withdrawalDelay:  withdrawalDelay,
		nextWithdrawalID: 1,
		withdrawals:      make(map[uint64]*Withdrawal),
		delegated:        make(map[types.Address]*big.Int),
		forwarded:        make(map[types.Address]*big.Int),
	}
}

// AdvanceEpoch moves the clock forward one epoch.
func (p *Provider) AdvanceEpoch() {
	p.epoch++
}

// SetEpoch moves the clock to an absolute epoch.
func (p *Provider) SetEpoch(epoch uint64) {
	p.epoch = epoch
}

func (p *Provider) CurrentEpoch() (uint64, error) {
	return p.epoch, nil
}

func (p *Provider) Delegate(operator types.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errors.New("negative delegation")
	}
	total, ok := p.delegated[operator]
	if !ok {
		total = new(big.Int)
		p.delegated[operator] = total
	}
	total.Add(total, amount)
	return nil
}

func (p *Provider) Undelegate(operator types.Address, amount *big.Int) (uint64, error) {
	total := p.delegated[operator]
	if total == nil || total.Cmp(amount) < 0 {
		return 0, errors.Errorf("undelegation %v exceeds delegated stake", amount)
	}
	total.Sub(total, amount)

	id := p.nextWithdrawalID
	p.nextWithdrawalID++
	p.withdrawals[id] = &Withdrawal{
		Operator: operator,
		Amount:   new(big.Int).Set(amount),
		ReadyAt:  p.epoch + p.withdrawalDelay,
	}
	return id, nil
}

func (p *Provider) WithdrawalReady(withdrawalID uint64) (bool, error) {
	w, ok := p.withdrawals[withdrawalID]
	if !ok {
		return false, errors.Errorf("unknown withdrawal %d", withdrawalID)
	}
	return !w.Claimed && p.epoch >= w.ReadyAt, nil
}

func (p *Provider) ClaimWithdrawal(withdrawalID uint64) (*big.Int, error) {
	w, ok := p.withdrawals[withdrawalID]
	if !ok {
		return nil, errors.Errorf("unknown withdrawal %d", withdrawalID)
	}
	if w.Claimed {
		return nil, errors.Errorf("withdrawal %d already claimed", withdrawalID)
	}
	if p.epoch < w.ReadyAt {
		return nil, errors.Errorf("withdrawal %d not ready until epoch %d", withdrawalID, w.ReadyAt)
	}
	w.Claimed = true
	return new(big.Int).Set(w.Amount), nil
}

func (p *Provider) ForwardRewards(operator types.Address, amount *big.Int) error {
	total, ok := p.forwarded[operator]
	if !ok {
		total = new(big.Int)
		p.forwarded[operator] = total
	}
	total.Add(total, amount)
	// forwarded rewards compound into the delegation
	return p.Delegate(operator, amount)
}

// DelayWithdrawal pushes a withdrawal's readiness by extra epochs, simulating
// the provider's delay window running past the engine's assumed window.
func (p *Provider) DelayWithdrawal(withdrawalID uint64, extra uint64) {
	if w, ok := p.withdrawals[withdrawalID]; ok {
		w.ReadyAt += extra
	}
}

// DelegatedTo returns the operator's simulated delegation balance.
func (p *Provider) DelegatedTo(operator types.Address) *big.Int {
	if total, ok := p.delegated[operator]; ok {
		return new(big.Int).Set(total)
	}
	return new(big.Int)
}

// ForwardedTo returns the rewards compounded for the operator so far.
func (p *Provider) ForwardedTo(operator types.Address) *big.Int {
	if total, ok := p.forwarded[operator]; ok {
		return new(big.Int).Set(total)
	}
	return new(big.Int)
}

// Vault records outbound transfers so tests can assert payouts, and can call
// back into arbitrary code mid-transfer to exercise the reentrancy guard.
type Vault struct {
	balances map[types.Address]*big.Int

	// OnTransfer, when set, runs before the balance is credited and can
	// fail the transfer.
	OnTransfer func(to types.Address, amount *big.Int) error
}

func NewVault() *Vault {
	return &Vault{balances: make(map[types.Address]*big.Int)}
}

// Transfer is assignable to the engine's TransferFunc.
func (v *Vault) Transfer(to types.Address, amount *big.Int) error {
	if v.OnTransfer != nil {
		if err := v.OnTransfer(to, amount); err != nil {
			return err
		}
	}
	balance, ok := v.balances[to]
	if !ok {
		balance = new(big.Int)
		v.balances[to] = balance
	}
	balance.Add(balance, amount)
	return nil
}

// BalanceOf returns the total transferred to the address.
func (v *Vault) BalanceOf(to types.Address) *big.Int {
	if balance, ok := v.balances[to]; ok {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}
