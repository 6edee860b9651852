// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"math/big"

	"github.com/stakewell/stakewell/types"
)

// StakingProvider is the external validator-staking service the engine
// delegates through. The engine depends only on this observable contract:
// delegations take effect after a fixed number of epochs, withdrawals are
// queryable for completion, and reward forwards compound into the operator's
// delegation. The provider enforces its own delay windows.
type StakingProvider interface {
	// CurrentEpoch returns the provider's epoch clock. The engine's internal
	// epoch follows it, one step per crank.
	CurrentEpoch() (uint64, error)

	// Delegate submits capital toward the operator's validator.
	Delegate(operator types.Address, amount *big.Int) error

	// Undelegate submits a stake withdrawal and returns a handle the engine
	// polls for readiness.
	Undelegate(operator types.Address, amount *big.Int) (uint64, error)

	// WithdrawalReady reports whether the withdrawal can be claimed.
	WithdrawalReady(withdrawalID uint64) (bool, error)

	// ClaimWithdrawal collects a ready withdrawal and returns the amount.
	ClaimWithdrawal(withdrawalID uint64) (*big.Int, error)

	// ForwardRewards compounds an accumulated reward payout back into the
	// operator's delegation.
	ForwardRewards(operator types.Address, amount *big.Int) error
}

// TransferFunc sends base assets out of the engine. Implementations may call
// arbitrary receiver code; the engine's reentrancy guard stays held across
// the call so nested entries fail instead of observing intermediate state.
type TransferFunc func(to types.Address, amount *big.Int) error
