// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/kv"
	"github.com/stakewell/stakewell/types"
)

const cacheSize = 4096

// State provides slot-addressed storage for engine accounts, in the manner of
// contract storage. Writes are journaled so a failed operation can be reverted
// to a prior snapshot without touching the backing store; Commit flushes the
// accumulated writes in one batch.
type State struct {
	store kv.Store
	cache *lru.Cache

	dirty   map[string][]byte
	journal []journalEntry
}

type journalEntry struct {
	key     string
	prev    []byte
	hadPrev bool // whether key existed in dirty before this write
}

// New creates a state instance over the given backing store.
// A nil store yields a memory-only state.
func New(store kv.Store) *State {
	cache, _ := lru.New(cacheSize)
	return &State{
		store: store,
		cache: cache,
		dirty: make(map[string][]byte),
	}
}

func storageKey(addr types.Address, key types.Bytes32) string {
	return string(addr.Bytes()) + string(key.Bytes())
}

// GetRawStorage returns the raw value stored at (addr, key).
// A missing slot yields a nil slice, never an error.
func (s *State) GetRawStorage(addr types.Address, key types.Bytes32) ([]byte, error) {
	sk := storageKey(addr, key)
	if raw, ok := s.dirty[sk]; ok {
		return raw, nil
	}
	if cached, ok := s.cache.Get(sk); ok {
		return cached.([]byte), nil
	}
	if s.store == nil {
		return nil, nil
	}
	raw, err := s.store.Get([]byte(sk))
	if err != nil {
		if s.store.IsNotFound(err) {
			s.cache.Add(sk, []byte(nil))
			return nil, nil
		}
		return nil, errors.Wrap(err, "get storage")
	}
	s.cache.Add(sk, raw)
	return raw, nil
}

// SetRawStorage stores the raw value at (addr, key). An empty value deletes the slot.
func (s *State) SetRawStorage(addr types.Address, key types.Bytes32, raw []byte) {
	sk := storageKey(addr, key)
	prev, hadPrev := s.dirty[sk]
	s.journal = append(s.journal, journalEntry{key: sk, prev: prev, hadPrev: hadPrev})
	s.dirty[sk] = raw
}

// DecodeStorage decodes the raw value at (addr, key) via the provided decoder.
// The decoder receives a nil slice for a missing slot.
func (s *State) DecodeStorage(addr types.Address, key types.Bytes32, decode func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	return decode(raw)
}

// EncodeStorage stores the value produced by the provided encoder at (addr, key).
func (s *State) EncodeStorage(addr types.Address, key types.Bytes32, encode func() ([]byte, error)) error {
	raw, err := encode()
	if err != nil {
		return err
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// Snapshot takes a snapshot of the current uncommitted writes and returns a
// revision usable with RevertTo.
func (s *State) Snapshot() int {
	return len(s.journal)
}

// RevertTo reverts uncommitted writes down to the given revision.
func (s *State) RevertTo(revision int) {
	for len(s.journal) > revision {
		entry := s.journal[len(s.journal)-1]
		s.journal = s.journal[:len(s.journal)-1]
		if entry.hadPrev {
			s.dirty[entry.key] = entry.prev
		} else {
			delete(s.dirty, entry.key)
		}
	}
}

// Commit flushes uncommitted writes into the backing store and resets the journal.
func (s *State) Commit() error {
	if s.store != nil {
		batch := s.store.NewBatch()
		for sk, raw := range s.dirty {
			if len(raw) == 0 {
				if err := batch.Delete([]byte(sk)); err != nil {
					return errors.Wrap(err, "commit storage")
				}
			} else if err := batch.Put([]byte(sk), raw); err != nil {
				return errors.Wrap(err, "commit storage")
			}
		}
		if err := batch.Write(); err != nil {
			return errors.Wrap(err, "commit storage")
		}
	}
	for sk, raw := range s.dirty {
		if len(raw) == 0 {
			s.cache.Add(sk, []byte(nil))
		} else {
			s.cache.Add(sk, raw)
		}
		delete(s.dirty, sk)
	}
	s.journal = s.journal[:0]
	return nil
}
