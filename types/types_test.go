// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package types

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressParse(t *testing.T) {
	addr, err := ParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	require.NoError(t, err)
	assert.Equal(t, "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", addr.String())

	// the prefix is optional
	bare, err := ParseAddress("7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	require.NoError(t, err)
	assert.Equal(t, *addr, *bare)

	_, err = ParseAddress("0x7567")
	assert.Error(t, err)
	_, err = ParseAddress("zz67d83b7b8d80addcb281a71d54fc7b3364ffed")
	assert.Error(t, err)
}

func TestBytesToAddressAligns(t *testing.T) {
	short := BytesToAddress([]byte{1, 2})
	assert.Equal(t, byte(2), short[AddressLength-1], "short input right-aligned")
	assert.Equal(t, byte(0), short[0])

	long := BytesToAddress(make([]byte, 25))
	assert.True(t, long.IsZero())
}

func TestBytes32Parse(t *testing.T) {
	b, err := ParseBytes32("0x0101010101010101010101010101010101010101010101010101010101010101")
	require.NoError(t, err)
	assert.Equal(t, byte(1), b[0])
	assert.False(t, b.IsZero())

	_, err = ParseBytes32("0xdeadbeef")
	assert.Error(t, err)
}

func TestIDBytesAreBigEndian(t *testing.T) {
	id := ID(0x0102030405060708)
	b := id.Bytes()
	require.Len(t, b, 8)
	assert.Equal(t, uint64(id), binary.BigEndian.Uint64(b))
	assert.Equal(t, "72623859790382856", id.String())
	assert.True(t, ID(0).IsZero())
}

func TestEpochKeyIsUniquePerPair(t *testing.T) {
	a := EpochKey(ID(1), 2)
	b := EpochKey(ID(2), 1)
	assert.NotEqual(t, a, b, "id and epoch must not be interchangeable")
	assert.Equal(t, a, EpochKey(ID(1), 2))
}

func TestBlake2bIsDeterministic(t *testing.T) {
	h1 := Blake2b([]byte("hello"), []byte("world"))
	h2 := Blake2b([]byte("hello"), []byte("world"))
	assert.Equal(t, h1, h2)

	// multi-chunk hashing concatenates, matching the single-slice fast path
	h3 := Blake2b([]byte("helloworld"))
	assert.Equal(t, h1, h3)

	h4 := Blake2b([]byte("something else"))
	assert.NotEqual(t, h1, h4)
}
