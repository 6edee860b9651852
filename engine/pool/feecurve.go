// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"
)

// BpsDenominator is the fixed-point denominator for all rates.
const BpsDenominator = 10_000

// midpointBps is where the two fee segments join.
const midpointBps = BpsDenominator / 2

// FeeCurve holds the instant-withdrawal fee parameters in basis points.
// Base <= Mid <= Max is enforced at the setter.
type FeeCurve struct {
	BaseFeeBps uint64
	MidFeeBps  uint64
	MaxFeeBps  uint64
}

// FeeBps computes the fee for the given pool utilization. The curve is two
// linear segments joined at the midpoint: [0,50%] runs base..mid, (50%,100%]
// runs mid..max. Monotone non-decreasing and continuous at the joint by
// construction; saturates at max above full utilization. A disabled target
// buffer (targetBps == 0) always quotes the maximum fee.
func (c FeeCurve) FeeBps(utilizationBps, targetBps uint64) uint64 {
	if targetBps == 0 {
		return c.MaxFeeBps
	}
	if utilizationBps >= BpsDenominator {
		return c.MaxFeeBps
	}
	if utilizationBps <= midpointBps {
		return c.BaseFeeBps + (c.MidFeeBps-c.BaseFeeBps)*utilizationBps/midpointBps
	}
	return c.MidFeeBps + (c.MaxFeeBps-c.MidFeeBps)*(utilizationBps-midpointBps)/midpointBps
}

// FeeOn returns the fee amount charged on a gross withdrawal.
func FeeOn(gross *big.Int, feeBps uint64) *big.Int {
	fee := new(big.Int).Mul(gross, new(big.Int).SetUint64(feeBps))
	return fee.Quo(fee, big.NewInt(BpsDenominator))
}

// TargetLiquidity returns equity * targetBps, floor-divided.
func TargetLiquidity(equity *big.Int, targetBps uint64) *big.Int {
	target := new(big.Int).Mul(equity, new(big.Int).SetUint64(targetBps))
	return target.Quo(target, big.NewInt(BpsDenominator))
}
