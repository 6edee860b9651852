// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakewell/stakewell/engine/reverts"
	"github.com/stakewell/stakewell/kv"
	"github.com/stakewell/stakewell/state"
	"github.com/stakewell/stakewell/storage"
	"github.com/stakewell/stakewell/types"
)

func newTestService(t *testing.T, delay uint64) *Service {
	sctx := storage.NewContext(types.BytesToAddress([]byte("registry-test")), state.New(kv.NewMemLevelDB()))
	svc := New(sctx, delay)
	require.NoError(t, svc.Initialize())
	return svc
}

func addr(b byte) types.Address {
	return types.BytesToAddress([]byte{b})
}

func chainOf(t *testing.T, svc *Service) []types.ID {
	var ids []types.ID
	require.NoError(t, svc.Iterate(0, func(id types.ID, _ *Record) (bool, error) {
		ids = append(ids, id)
		return true, nil
	}))
	return ids
}

func TestInitializeIdempotent(t *testing.T) {
	svc := newTestService(t, 5)
	require.NoError(t, svc.Initialize())

	first, err := svc.First()
	require.NoError(t, err)
	assert.Equal(t, types.ID(0), first)

	count, err := svc.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestAddLinksAtTail(t *testing.T) {
	svc := newTestService(t, 5)

	a, err := svc.Add(addr(1), 10)
	require.NoError(t, err)
	assert.Equal(t, FirstRealID, a)

	b, err := svc.Add(addr(2), 10)
	require.NoError(t, err)
	c, err := svc.Add(addr(3), 11)
	require.NoError(t, err)

	assert.Equal(t, []types.ID{a, b, c}, chainOf(t, svc))

	count, err := svc.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	prev, err := svc.PrevBefore(b)
	require.NoError(t, err)
	assert.Equal(t, a, prev)

	next, err := svc.NextAfter(c)
	require.NoError(t, err)
	assert.Equal(t, types.ID(0), next)
}

func TestAddDuplicateOperator(t *testing.T) {
	svc := newTestService(t, 5)

	_, err := svc.Add(addr(1), 10)
	require.NoError(t, err)

	_, err = svc.Add(addr(1), 11)
	assert.True(t, reverts.IsInvalidValidator(err))

	_, err = svc.Add(types.Address{}, 11)
	assert.True(t, reverts.IsInvalidValidator(err))
}

func TestDeactivateKeepsChained(t *testing.T) {
	svc := newTestService(t, 5)

	a, err := svc.Add(addr(1), 10)
	require.NoError(t, err)
	b, err := svc.Add(addr(2), 10)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(a, 20))
	assert.Equal(t, []types.ID{a, b}, chainOf(t, svc))

	// visible for exactly the delay window
	for epoch := uint64(20); epoch < 25; epoch++ {
		id, err := svc.Lookup(addr(1), epoch)
		require.NoError(t, err)
		assert.Equal(t, a, id, "epoch %d", epoch)
	}
	id, err := svc.Lookup(addr(1), 25)
	require.NoError(t, err)
	assert.Equal(t, types.ID(0), id)

	// double deactivation fails
	assert.True(t, reverts.IsInvalidValidator(svc.Deactivate(a, 21)))
}

func TestDeactivateAtEpochZero(t *testing.T) {
	svc := newTestService(t, 5)

	a, err := svc.Add(addr(1), 0)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(a, 0))

	entry, err := svc.GetExisting(a)
	require.NoError(t, err)
	assert.True(t, entry.Deactivating())
	assert.Equal(t, uint64(0), entry.DeactivationEpoch())

	// re-adding the operator reports the pending removal
	_, err = svc.Add(addr(1), 1)
	assert.True(t, reverts.IsInvalidValidator(err))

	can, err := svc.CanReap(a, 4)
	require.NoError(t, err)
	assert.False(t, can)
	can, err = svc.CanReap(a, 5)
	require.NoError(t, err)
	assert.True(t, can)

	// visible for exactly the delay window
	id, err := svc.Lookup(addr(1), 4)
	require.NoError(t, err)
	assert.Equal(t, a, id)
	id, err = svc.Lookup(addr(1), 5)
	require.NoError(t, err)
	assert.Equal(t, types.ID(0), id)
}

func TestCanReap(t *testing.T) {
	svc := newTestService(t, 5)

	a, err := svc.Add(addr(1), 10)
	require.NoError(t, err)

	can, err := svc.CanReap(a, 30)
	require.NoError(t, err)
	assert.False(t, can, "active validator is never reapable")

	require.NoError(t, svc.Deactivate(a, 20))

	can, err = svc.CanReap(a, 24)
	require.NoError(t, err)
	assert.False(t, can)

	can, err = svc.CanReap(a, 25)
	require.NoError(t, err)
	assert.True(t, can)
}

func TestReapUnlinksAndRebinds(t *testing.T) {
	svc := newTestService(t, 5)

	a, err := svc.Add(addr(1), 10)
	require.NoError(t, err)
	b, err := svc.Add(addr(2), 10)
	require.NoError(t, err)
	c, err := svc.Add(addr(3), 10)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(b, 20))

	// re-adding the operator before reap fails
	_, err = svc.Add(addr(2), 26)
	assert.True(t, reverts.IsInvalidValidator(err))

	reaped, err := svc.Reap(b)
	require.NoError(t, err)
	assert.Equal(t, addr(2), reaped.Operator)
	assert.Equal(t, []types.ID{a, c}, chainOf(t, svc))

	// after reap the operator registers again under a fresh id, at the tail
	d, err := svc.Add(addr(2), 26)
	require.NoError(t, err)
	assert.Greater(t, uint64(d), uint64(c))
	assert.Equal(t, []types.ID{a, c, d}, chainOf(t, svc))
}

func TestReapResetsCursor(t *testing.T) {
	svc := newTestService(t, 5)

	a, err := svc.Add(addr(1), 10)
	require.NoError(t, err)
	b, err := svc.Add(addr(2), 10)
	require.NoError(t, err)

	svc.SetCursor(a)
	require.NoError(t, svc.Deactivate(a, 20))
	_, err = svc.Reap(a)
	require.NoError(t, err)

	cursor, err := svc.Cursor()
	require.NoError(t, err)
	assert.Equal(t, types.ID(0), cursor)

	svc.SetCursor(b)
	cursor, err = svc.Cursor()
	require.NoError(t, err)
	assert.Equal(t, b, cursor)
}

func TestIterateStopsEarly(t *testing.T) {
	svc := newTestService(t, 5)

	for i := byte(1); i <= 4; i++ {
		_, err := svc.Add(addr(i), 10)
		require.NoError(t, err)
	}

	var seen int
	require.NoError(t, svc.Iterate(0, func(types.ID, *Record) (bool, error) {
		seen++
		return seen < 2, nil
	}))
	assert.Equal(t, 2, seen)
}

func TestIterateFromCursor(t *testing.T) {
	svc := newTestService(t, 5)

	a, err := svc.Add(addr(1), 10)
	require.NoError(t, err)
	b, err := svc.Add(addr(2), 10)
	require.NoError(t, err)
	c, err := svc.Add(addr(3), 10)
	require.NoError(t, err)
	_ = a

	var ids []types.ID
	require.NoError(t, svc.Iterate(b, func(id types.ID, _ *Record) (bool, error) {
		ids = append(ids, id)
		return true, nil
	}))
	assert.Equal(t, []types.ID{b, c}, ids)
}
