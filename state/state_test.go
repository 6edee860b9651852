// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakewell/stakewell/kv"
	"github.com/stakewell/stakewell/types"
)

var (
	testAddr = types.BytesToAddress([]byte("account"))
	slotA    = types.BytesToBytes32([]byte("slot-a"))
	slotB    = types.BytesToBytes32([]byte("slot-b"))
)

func TestRawStorageRoundTrip(t *testing.T) {
	st := New(kv.NewMemLevelDB())

	raw, err := st.GetRawStorage(testAddr, slotA)
	require.NoError(t, err)
	assert.Nil(t, raw)

	st.SetRawStorage(testAddr, slotA, []byte("hello"))

	raw, err = st.GetRawStorage(testAddr, slotA)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), raw)
}

func TestSnapshotRevert(t *testing.T) {
	st := New(kv.NewMemLevelDB())
	st.SetRawStorage(testAddr, slotA, []byte("one"))

	rev := st.Snapshot()
	st.SetRawStorage(testAddr, slotA, []byte("two"))
	st.SetRawStorage(testAddr, slotB, []byte("new"))
	st.RevertTo(rev)

	raw, err := st.GetRawStorage(testAddr, slotA)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), raw)

	raw, err = st.GetRawStorage(testAddr, slotB)
	require.NoError(t, err)
	assert.Nil(t, raw, "write after the snapshot unwound")
}

func TestNestedSnapshots(t *testing.T) {
	st := New(kv.NewMemLevelDB())

	st.SetRawStorage(testAddr, slotA, []byte("a"))
	outer := st.Snapshot()
	st.SetRawStorage(testAddr, slotA, []byte("b"))
	inner := st.Snapshot()
	st.SetRawStorage(testAddr, slotA, []byte("c"))

	st.RevertTo(inner)
	raw, err := st.GetRawStorage(testAddr, slotA)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), raw)

	st.RevertTo(outer)
	raw, err = st.GetRawStorage(testAddr, slotA)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), raw)
}

func TestCommitPersistsToStore(t *testing.T) {
	store := kv.NewMemLevelDB()

	st := New(store)
	st.SetRawStorage(testAddr, slotA, []byte("durable"))
	require.NoError(t, st.Commit())

	// a fresh state over the same store sees the committed value
	fresh := New(store)
	raw, err := fresh.GetRawStorage(testAddr, slotA)
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), raw)
}

func TestCommitDeletesEmptySlots(t *testing.T) {
	store := kv.NewMemLevelDB()

	st := New(store)
	st.SetRawStorage(testAddr, slotA, []byte("gone soon"))
	require.NoError(t, st.Commit())

	st.SetRawStorage(testAddr, slotA, nil)
	require.NoError(t, st.Commit())

	fresh := New(store)
	raw, err := fresh.GetRawStorage(testAddr, slotA)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestRevertAfterCommitIsNoop(t *testing.T) {
	st := New(kv.NewMemLevelDB())

	st.SetRawStorage(testAddr, slotA, []byte("committed"))
	require.NoError(t, st.Commit())

	st.RevertTo(0)
	raw, err := st.GetRawStorage(testAddr, slotA)
	require.NoError(t, err)
	assert.Equal(t, []byte("committed"), raw)
}

func TestNilStoreIsMemoryOnly(t *testing.T) {
	st := New(nil)

	st.SetRawStorage(testAddr, slotA, []byte("volatile"))
	require.NoError(t, st.Commit())

	raw, err := st.GetRawStorage(testAddr, slotA)
	require.NoError(t, err)
	assert.Equal(t, []byte("volatile"), raw)
}
