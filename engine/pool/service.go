// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/stakewell/stakewell/engine/reverts"
	"github.com/stakewell/stakewell/storage"
)

var (
	slotAllocated   = storage.NameToSlot("pool-allocated")
	slotDistributed = storage.NameToSlot("pool-distributed")
)

// Service maintains the atomic liquidity buffer: capital allocated into the
// pool versus capital distributed out through instant withdrawals since the
// last settlement. Distributed never exceeds allocated.
type Service struct {
	allocated   *storage.Uint256
	distributed *storage.Uint256
}

func New(sctx *storage.Context) *Service {
	return &Service{
		allocated:   storage.NewUint256(sctx, slotAllocated),
		distributed: storage.NewUint256(sctx, slotDistributed),
	}
}

// Allocated returns the capital backing the buffer.
func (s *Service) Allocated() (*big.Int, error) {
	return s.allocated.Get()
}

// Distributed returns the buffer capital consumed since the last settlement.
func (s *Service) Distributed() (*big.Int, error) {
	return s.distributed.Get()
}

// CurrentLiquidity returns allocated minus distributed.
func (s *Service) CurrentLiquidity() (*big.Int, error) {
	allocated, err := s.allocated.Get()
	if err != nil {
		return nil, err
	}
	distributed, err := s.distributed.Get()
	if err != nil {
		return nil, err
	}
	return allocated.Sub(allocated, distributed), nil
}

// UtilizationBps returns distributed over target in basis points, clamped to
// full utilization. A zero target reads as fully utilized.
func (s *Service) UtilizationBps(target *big.Int) (uint64, error) {
	if target.Sign() <= 0 {
		return BpsDenominator, nil
	}
	distributed, err := s.distributed.Get()
	if err != nil {
		return 0, err
	}
	util := new(big.Int).Mul(distributed, big.NewInt(BpsDenominator))
	util.Quo(util, target)
	if !util.IsUint64() || util.Uint64() > BpsDenominator {
		return BpsDenominator, nil
	}
	return util.Uint64(), nil
}

// RecordOutflow consumes buffer capital for an instant withdrawal.
func (s *Service) RecordOutflow(amount *big.Int) error {
	liquidity, err := s.CurrentLiquidity()
	if err != nil {
		return err
	}
	if liquidity.Cmp(amount) < 0 {
		return reverts.InsufficientLiquidity("withdrawal %v exceeds pool liquidity %v", amount, liquidity)
	}
	return s.distributed.Add(amount)
}

// Settle collapses distributed into allocated, returning the amount settled.
// Run by the crank before rebalancing so utilization restarts from zero.
func (s *Service) Settle() (*big.Int, error) {
	distributed, err := s.distributed.Get()
	if err != nil {
		return nil, err
	}
	if distributed.Sign() > 0 {
		if err := s.allocated.Sub(distributed); err != nil {
			return nil, err
		}
		s.distributed.Set(new(big.Int))
	}
	return distributed, nil
}

// Fill tops the buffer up with capital released by the ledger.
func (s *Service) Fill(amount *big.Int) error {
	return s.allocated.Add(amount)
}

// Drain releases buffer capital back toward the ledger, bounded by current
// liquidity. Returns the drained amount.
func (s *Service) Drain(amount *big.Int) (*big.Int, error) {
	liquidity, err := s.CurrentLiquidity()
	if err != nil {
		return nil, err
	}
	if amount.Cmp(liquidity) > 0 {
		amount = liquidity
	}
	if amount.Sign() > 0 {
		if err := s.allocated.Sub(amount); err != nil {
			return nil, err
		}
	}
	return amount, nil
}
