// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package types

import (
	"encoding/binary"
	"strconv"
)

// ID is a stable numeric identifier, validator ids included.
type ID uint64

// Bytes returns the big-endian form of the id, usable as a storage key.
func (id ID) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

// IsZero returns if the id is the zero value.
func (id ID) IsZero() bool {
	return id == 0
}

// String implements stringer
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// EpochKey composes a (id, epoch) pair into a storage key.
func EpochKey(id ID, epoch uint64) Bytes32 {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], uint64(id))
	binary.BigEndian.PutUint64(b[8:], epoch)
	return BytesToBytes32(b[:])
}
