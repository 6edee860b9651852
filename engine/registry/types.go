// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/stakewell/stakewell/types"
)

// Reserved list ids. Sentinels bound the traversal order and are never
// surfaced as validators; real ids are assigned monotonically from FirstRealID.
const (
	SentinelFirst = types.ID(1)
	SentinelLast  = types.ID(2)
	FirstRealID   = types.ID(3)
)

// Record describes a registered validator. Owned exclusively by the registry;
// other components reference validators by id only.
type Record struct {
	Operator   types.Address // coinbase receiving forwarded rewards
	Active     bool
	AddedEpoch uint64
	// DeactivationMark holds the requested epoch plus one, so that a request
	// made at epoch 0 is distinguishable from no request at all.
	DeactivationMark uint64
}

// IsEmpty returns whether the entry can be treated as empty.
func (r *Record) IsEmpty() bool {
	return r.Operator.IsZero() && !r.Active
}

// Deactivating returns whether a deactivation has been requested.
func (r *Record) Deactivating() bool {
	return r.DeactivationMark != 0
}

// DeactivationEpoch returns the epoch the deactivation was requested at.
// Only meaningful while Deactivating.
func (r *Record) DeactivationEpoch() uint64 {
	return r.DeactivationMark - 1
}

// IsActive returns whether the validator is visible as active at the given
// epoch. A deactivating validator stays active for exactly the delay window,
// so in-flight settlement keeps running.
func (r *Record) IsActive(epoch, delay uint64) bool {
	if r.IsEmpty() || !r.Active {
		return false
	}
	if r.DeactivationMark == 0 {
		return true
	}
	return epoch < r.DeactivationEpoch()+delay
}
