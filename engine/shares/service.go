// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package shares

import (
	"math/big"

	"github.com/stakewell/stakewell/engine/reverts"
	"github.com/stakewell/stakewell/storage"
	"github.com/stakewell/stakewell/types"
)

var (
	slotBalances    = storage.NameToSlot("shares-balances")
	slotTotalSupply = storage.NameToSlot("shares-total-supply")
)

// Service is the minimal fungible-share ledger the engine depends on: mint,
// burn, balances and total supply. The full token surface (transfer,
// approvals, permits) lives outside the engine.
type Service struct {
	balances    *storage.Mapping[types.Address, *big.Int]
	totalSupply *storage.Uint256
}

func New(sctx *storage.Context) *Service {
	return &Service{
		balances:    storage.NewMapping[types.Address, *big.Int](sctx, slotBalances),
		totalSupply: storage.NewUint256(sctx, slotTotalSupply),
	}
}

// TotalSupply returns the outstanding share count.
func (s *Service) TotalSupply() (*big.Int, error) {
	return s.totalSupply.Get()
}

// BalanceOf returns the holder's share balance.
func (s *Service) BalanceOf(holder types.Address) (*big.Int, error) {
	balance, err := s.balances.Get(holder)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return new(big.Int), nil
	}
	return balance, nil
}

// Mint issues shares to the receiver.
func (s *Service) Mint(receiver types.Address, amount *big.Int) error {
	balance, err := s.BalanceOf(receiver)
	if err != nil {
		return err
	}
	balance.Add(balance, amount)
	if err := s.balances.Set(receiver, balance); err != nil {
		return err
	}
	return s.totalSupply.Add(amount)
}

// Burn destroys shares held by the owner.
func (s *Service) Burn(owner types.Address, amount *big.Int) error {
	balance, err := s.BalanceOf(owner)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return reverts.InsufficientLiquidity("share balance %v below %v", balance, amount)
	}
	balance.Sub(balance, amount)
	if err := s.balances.Set(owner, balance); err != nil {
		return err
	}
	return s.totalSupply.Sub(amount)
}
