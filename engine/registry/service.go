// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/engine/reverts"
	"github.com/stakewell/stakewell/storage"
	"github.com/stakewell/stakewell/types"
)

var (
	slotRecords   = storage.NameToSlot("registry-records")
	slotNext      = storage.NameToSlot("registry-next")
	slotPrev      = storage.NameToSlot("registry-prev")
	slotOperators = storage.NameToSlot("registry-operators")
	slotCount     = storage.NameToSlot("registry-count")
	slotNextID    = storage.NameToSlot("registry-next-id")
	slotCursor    = storage.NameToSlot("registry-cursor")
	slotGenesis   = storage.NameToSlot("registry-genesis")
)

// Service maintains the validator registry: an arena of records addressed by
// id, chained between two sentinels through explicit next/prev pointer
// tables. The crank cursor persists here so a budget-limited pass can resume.
type Service struct {
	records   *storage.Mapping[types.ID, *Record]
	next      *storage.Mapping[types.ID, uint64]
	prev      *storage.Mapping[types.ID, uint64]
	operators *storage.Mapping[types.Address, uint64]
	count     *storage.Uint64
	nextID    *storage.Uint64
	cursor    *storage.Uint64
	genesis   *storage.Bool

	deactivationDelay uint64
}

func New(sctx *storage.Context, deactivationDelay uint64) *Service {
	return &Service{
		records:           storage.NewMapping[types.ID, *Record](sctx, slotRecords),
		next:              storage.NewMapping[types.ID, uint64](sctx, slotNext),
		prev:              storage.NewMapping[types.ID, uint64](sctx, slotPrev),
		operators:         storage.NewMapping[types.Address, uint64](sctx, slotOperators),
		count:             storage.NewUint64(sctx, slotCount),
		nextID:            storage.NewUint64(sctx, slotNextID),
		cursor:            storage.NewUint64(sctx, slotCursor),
		genesis:           storage.NewBool(sctx, slotGenesis),
		deactivationDelay: deactivationDelay,
	}
}

// Initialize seeds the sentinel chain. Safe to call more than once.
func (s *Service) Initialize() error {
	done, err := s.genesis.Get()
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	if err := s.next.Set(SentinelFirst, uint64(SentinelLast)); err != nil {
		return err
	}
	if err := s.prev.Set(SentinelLast, uint64(SentinelFirst)); err != nil {
		return err
	}
	s.nextID.Set(uint64(FirstRealID))
	s.genesis.Set(true)
	return nil
}

// DeactivationDelay returns the configured delay window in epochs.
func (s *Service) DeactivationDelay() uint64 {
	return s.deactivationDelay
}

// Get returns the record for the id. Missing ids yield an empty record.
func (s *Service) Get(id types.ID) (*Record, error) {
	entry, err := s.records.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get validator record")
	}
	return entry, nil
}

// GetExisting returns the record for the id, failing for unknown ids.
func (s *Service) GetExisting(id types.ID) (*Record, error) {
	entry, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if entry.IsEmpty() {
		return nil, reverts.InvalidValidator("unknown validator %v", id)
	}
	return entry, nil
}

// Lookup resolves an operator address to its validator id at the given epoch.
// During the deactivation delay the mapping still resolves; afterwards it
// resolves to zero even before the node is reaped.
func (s *Service) Lookup(operator types.Address, epoch uint64) (types.ID, error) {
	raw, err := s.operators.Get(operator)
	if err != nil {
		return 0, err
	}
	if raw == 0 {
		return 0, nil
	}
	id := types.ID(raw)
	entry, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	if !entry.IsActive(epoch, s.deactivationDelay) {
		return 0, nil
	}
	return id, nil
}

// Add registers a new validator at the tail of the traversal order and
// returns its assigned id. It fails while a prior registration for the
// operator has not been fully reaped.
func (s *Service) Add(operator types.Address, epoch uint64) (types.ID, error) {
	if operator.IsZero() {
		return 0, reverts.InvalidValidator("operator address is zero")
	}
	bound, err := s.operators.Get(operator)
	if err != nil {
		return 0, err
	}
	if bound != 0 {
		entry, err := s.Get(types.ID(bound))
		if err != nil {
			return 0, err
		}
		if entry.Deactivating() {
			return 0, reverts.InvalidValidator("operator %v not fully removed", operator)
		}
		return 0, reverts.InvalidValidator("operator %v already bound to validator %v", operator, bound)
	}

	id, err := s.nextID.Get()
	if err != nil {
		return 0, err
	}
	s.nextID.Set(id + 1)

	entry := &Record{
		Operator:   operator,
		Active:     true,
		AddedEpoch: epoch,
	}
	if err := s.records.Set(types.ID(id), entry); err != nil {
		return 0, errors.Wrap(err, "failed to set validator record")
	}
	if err := s.operators.Set(operator, id); err != nil {
		return 0, err
	}
	if err := s.link(types.ID(id)); err != nil {
		return 0, err
	}

	count, err := s.count.Get()
	if err != nil {
		return 0, err
	}
	s.count.Set(count + 1)
	return types.ID(id), nil
}

// Deactivate marks the deactivation epoch. The node stays chained for the
// delay window so in-flight settlement continues; the scheduler reaps it
// once the window elapses and the ledger holds nothing unsettled.
func (s *Service) Deactivate(id types.ID, epoch uint64) error {
	entry, err := s.GetExisting(id)
	if err != nil {
		return err
	}
	if entry.Deactivating() {
		return reverts.InvalidValidator("validator %v already deactivating", id)
	}
	entry.DeactivationMark = epoch + 1
	return s.records.Set(id, entry)
}

// CanReap returns whether the deactivation delay has fully elapsed.
// The caller must additionally verify that no epoch entries remain unsettled.
func (s *Service) CanReap(id types.ID, epoch uint64) (bool, error) {
	entry, err := s.Get(id)
	if err != nil {
		return false, err
	}
	if entry.IsEmpty() || !entry.Deactivating() {
		return false, nil
	}
	return epoch >= entry.DeactivationEpoch()+s.deactivationDelay, nil
}

// Reap unlinks the node and clears its record and operator binding.
// Scheduler-only; the pointer pair is rewired atomically so traversal never
// observes a dangling reference.
func (s *Service) Reap(id types.ID) (*Record, error) {
	entry, err := s.GetExisting(id)
	if err != nil {
		return nil, err
	}
	if err := s.unlink(id); err != nil {
		return nil, err
	}
	s.records.Delete(id)
	s.operators.Delete(entry.Operator)

	count, err := s.count.Get()
	if err != nil {
		return nil, err
	}
	s.count.Set(count - 1)

	// a reaped node must not remain the resume point
	cur, err := s.cursor.Get()
	if err != nil {
		return nil, err
	}
	if types.ID(cur) == id {
		s.cursor.Set(0)
	}
	return entry, nil
}

// link inserts the id before the last sentinel.
func (s *Service) link(id types.ID) error {
	tail, err := s.prev.Get(SentinelLast)
	if err != nil {
		return err
	}
	if err := s.next.Set(types.ID(tail), uint64(id)); err != nil {
		return err
	}
	if err := s.prev.Set(id, tail); err != nil {
		return err
	}
	if err := s.next.Set(id, uint64(SentinelLast)); err != nil {
		return err
	}
	return s.prev.Set(SentinelLast, uint64(id))
}

// unlink removes the id from the chain and clears its pointers.
func (s *Service) unlink(id types.ID) error {
	prev, err := s.prev.Get(id)
	if err != nil {
		return err
	}
	next, err := s.next.Get(id)
	if err != nil {
		return err
	}
	if prev == 0 || next == 0 {
		return reverts.InvalidValidator("validator %v is not chained", id)
	}
	if err := s.next.Set(types.ID(prev), next); err != nil {
		return err
	}
	if err := s.prev.Set(types.ID(next), prev); err != nil {
		return err
	}
	s.next.Delete(id)
	s.prev.Delete(id)
	return nil
}

// NextAfter returns the validator chained after id, zero at the end.
func (s *Service) NextAfter(id types.ID) (types.ID, error) {
	next, err := s.next.Get(id)
	if err != nil {
		return 0, err
	}
	if next == 0 || types.ID(next) == SentinelLast {
		return 0, nil
	}
	return types.ID(next), nil
}

// PrevBefore returns the validator chained before id, zero at the start.
func (s *Service) PrevBefore(id types.ID) (types.ID, error) {
	prev, err := s.prev.Get(id)
	if err != nil {
		return 0, err
	}
	if prev == 0 || types.ID(prev) == SentinelFirst {
		return 0, nil
	}
	return types.ID(prev), nil
}

// First returns the first chained validator, zero when the registry is empty.
func (s *Service) First() (types.ID, error) {
	return s.NextAfter(SentinelFirst)
}

// Count returns the number of chained validators.
func (s *Service) Count() (uint64, error) {
	return s.count.Get()
}

// Cursor returns the persisted crank cursor, zero when no pass is in flight.
func (s *Service) Cursor() (types.ID, error) {
	cur, err := s.cursor.Get()
	return types.ID(cur), err
}

// SetCursor persists the crank cursor.
func (s *Service) SetCursor(id types.ID) {
	s.cursor.Set(uint64(id))
}

// Iterate walks the chain from the given id (or the head when zero) and calls
// the callback for each validator until it returns false or the chain ends.
func (s *Service) Iterate(from types.ID, callback func(types.ID, *Record) (bool, error)) error {
	ptr := from
	if ptr == 0 {
		first, err := s.First()
		if err != nil {
			return err
		}
		ptr = first
	}
	for ptr != 0 {
		entry, err := s.Get(ptr)
		if err != nil {
			return err
		}
		if entry.IsEmpty() {
			return reverts.InvariantViolation("chained validator %v has no record", ptr)
		}
		next, err := s.NextAfter(ptr)
		if err != nil {
			return err
		}
		keep, err := callback(ptr, entry)
		if err != nil {
			return err
		}
		if !keep {
			return nil
		}
		ptr = next
	}
	return nil
}
