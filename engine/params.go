// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"math/big"

	"github.com/stakewell/stakewell/engine/pool"
	"github.com/stakewell/stakewell/engine/reverts"
	"github.com/stakewell/stakewell/storage"
)

// Default parameter values written at initialization.
const (
	defaultTargetLiquidityBps = 1000
	defaultBaseFeeBps         = 10
	defaultMidFeeBps          = 40
	defaultMaxFeeBps          = 200
	defaultBoostCommissionBps = 1000
)

var (
	slotTargetBps       = storage.NameToSlot("params-target-liquidity-bps")
	slotBaseFee         = storage.NameToSlot("params-base-fee-bps")
	slotMidFee          = storage.NameToSlot("params-mid-fee-bps")
	slotMaxFee          = storage.NameToSlot("params-max-fee-bps")
	slotPayoutFloor     = storage.NameToSlot("params-min-payout-floor")
	slotBoostCommission = storage.NameToSlot("params-boost-commission-bps")

	slotStagedTargetBps       = storage.NameToSlot("params-staged-target-liquidity-bps")
	slotStagedBaseFee         = storage.NameToSlot("params-staged-base-fee-bps")
	slotStagedMidFee          = storage.NameToSlot("params-staged-mid-fee-bps")
	slotStagedMaxFee          = storage.NameToSlot("params-staged-max-fee-bps")
	slotStagedPayoutFloor     = storage.NameToSlot("params-staged-min-payout-floor")
	slotStagedBoostCommission = storage.NameToSlot("params-staged-boost-commission-bps")

	slotHasTargetBps       = storage.NameToSlot("params-has-staged-target")
	slotHasFeeCurve        = storage.NameToSlot("params-has-staged-curve")
	slotHasPayoutFloor     = storage.NameToSlot("params-has-staged-floor")
	slotHasBoostCommission = storage.NameToSlot("params-has-staged-commission")
)

// params holds admin-tunable values. Setters stage; the staged values become
// active only when the next crank's global pass applies them, so a parameter
// change never affects the epoch already in flight.
type params struct {
	targetBps       *storage.Uint64
	baseFee         *storage.Uint64
	midFee          *storage.Uint64
	maxFee          *storage.Uint64
	payoutFloor     *storage.Uint256
	boostCommission *storage.Uint64

	stagedTargetBps       *storage.Uint64
	stagedBaseFee         *storage.Uint64
	stagedMidFee          *storage.Uint64
	stagedMaxFee          *storage.Uint64
	stagedPayoutFloor     *storage.Uint256
	stagedBoostCommission *storage.Uint64

	hasTargetBps       *storage.Bool
	hasFeeCurve        *storage.Bool
	hasPayoutFloor     *storage.Bool
	hasBoostCommission *storage.Bool
}

func newParams(sctx *storage.Context) *params {
	return &params{
		targetBps:       storage.NewUint64(sctx, slotTargetBps),
		baseFee:         storage.NewUint64(sctx, slotBaseFee),
		midFee:          storage.NewUint64(sctx, slotMidFee),
		maxFee:          storage.NewUint64(sctx, slotMaxFee),
		payoutFloor:     storage.NewUint256(sctx, slotPayoutFloor),
		boostCommission: storage.NewUint64(sctx, slotBoostCommission),

		stagedTargetBps:       storage.NewUint64(sctx, slotStagedTargetBps),
		stagedBaseFee:         storage.NewUint64(sctx, slotStagedBaseFee),
		stagedMidFee:          storage.NewUint64(sctx, slotStagedMidFee),
		stagedMaxFee:          storage.NewUint64(sctx, slotStagedMaxFee),
		stagedPayoutFloor:     storage.NewUint256(sctx, slotStagedPayoutFloor),
		stagedBoostCommission: storage.NewUint64(sctx, slotStagedBoostCommission),

		hasTargetBps:       storage.NewBool(sctx, slotHasTargetBps),
		hasFeeCurve:        storage.NewBool(sctx, slotHasFeeCurve),
		hasPayoutFloor:     storage.NewBool(sctx, slotHasPayoutFloor),
		hasBoostCommission: storage.NewBool(sctx, slotHasBoostCommission),
	}
}

func (p *params) initialize() {
	p.targetBps.Set(defaultTargetLiquidityBps)
	p.baseFee.Set(defaultBaseFeeBps)
	p.midFee.Set(defaultMidFeeBps)
	p.maxFee.Set(defaultMaxFeeBps)
	p.payoutFloor.Set(new(big.Int))
	p.boostCommission.Set(defaultBoostCommissionBps)
}

func (p *params) TargetLiquidityBps() (uint64, error) {
	return p.targetBps.Get()
}

func (p *params) FeeCurve() (pool.FeeCurve, error) {
	var (
		curve pool.FeeCurve
		err   error
	)
	if curve.BaseFeeBps, err = p.baseFee.Get(); err != nil {
		return curve, err
	}
	if curve.MidFeeBps, err = p.midFee.Get(); err != nil {
		return curve, err
	}
	curve.MaxFeeBps, err = p.maxFee.Get()
	return curve, err
}

func (p *params) MinPayoutFloor() (*big.Int, error) {
	return p.payoutFloor.Get()
}

func (p *params) BoostCommissionBps() (uint64, error) {
	return p.boostCommission.Get()
}

func (p *params) StageTargetLiquidityBps(bps uint64) error {
	if bps > pool.BpsDenominator {
		return reverts.InvalidParameter("target liquidity %d bps above denominator", bps)
	}
	p.stagedTargetBps.Set(bps)
	p.hasTargetBps.Set(true)
	return nil
}

func (p *params) StageFeeCurve(base, mid, max uint64) error {
	if base > mid || mid > max || max > pool.BpsDenominator {
		return reverts.InvalidParameter("fee curve %d/%d/%d bps not ascending within denominator", base, mid, max)
	}
	p.stagedBaseFee.Set(base)
	p.stagedMidFee.Set(mid)
	p.stagedMaxFee.Set(max)
	p.hasFeeCurve.Set(true)
	return nil
}

func (p *params) StageMinPayoutFloor(floor *big.Int) error {
	if floor.Sign() < 0 {
		return reverts.InvalidParameter("payout floor below zero")
	}
	p.stagedPayoutFloor.Set(floor)
	p.hasPayoutFloor.Set(true)
	return nil
}

func (p *params) StageBoostCommissionBps(bps uint64) error {
	if bps > pool.BpsDenominator {
		return reverts.InvalidParameter("boost commission %d bps above denominator", bps)
	}
	p.stagedBoostCommission.Set(bps)
	p.hasBoostCommission.Set(true)
	return nil
}

// apply activates staged values. Run once per epoch by the global pass.
func (p *params) apply() error {
	if staged, err := p.hasTargetBps.Get(); err != nil {
		return err
	} else if staged {
		v, err := p.stagedTargetBps.Get()
		if err != nil {
			return err
		}
		p.targetBps.Set(v)
		p.hasTargetBps.Set(false)
	}

	if staged, err := p.hasFeeCurve.Get(); err != nil {
		return err
	} else if staged {
		base, err := p.stagedBaseFee.Get()
		if err != nil {
			return err
		}
		mid, err := p.stagedMidFee.Get()
		if err != nil {
			return err
		}
		max, err := p.stagedMaxFee.Get()
		if err != nil {
			return err
		}
		p.baseFee.Set(base)
		p.midFee.Set(mid)
		p.maxFee.Set(max)
		p.hasFeeCurve.Set(false)
	}

	if staged, err := p.hasPayoutFloor.Get(); err != nil {
		return err
	} else if staged {
		floor, err := p.stagedPayoutFloor.Get()
		if err != nil {
			return err
		}
		p.payoutFloor.Set(floor)
		p.hasPayoutFloor.Set(false)
	}

	if staged, err := p.hasBoostCommission.Get(); err != nil {
		return err
	} else if staged {
		v, err := p.stagedBoostCommission.Get()
		if err != nil {
			return err
		}
		p.boostCommission.Set(v)
		p.hasBoostCommission.Set(false)
	}
	return nil
}
