// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/types"
)

// Uint256 is a wrapper for storage and retrieval of a big integer, similar to
// storing an uint256 in a smart contract.
type Uint256 struct {
	context *Context
	pos     types.Bytes32
}

func NewUint256(context *Context, slot types.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: slot}
}

func (u *Uint256) Get() (*big.Int, error) {
	raw, err := u.context.state.GetRawStorage(u.context.address, u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

func (u *Uint256) Set(value *big.Int) {
	u.context.state.SetRawStorage(u.context.address, u.pos, value.Bytes())
}

func (u *Uint256) Add(value *big.Int) error {
	stored, err := u.Get()
	if err != nil {
		return err
	}
	stored.Add(stored, value)
	u.Set(stored)
	return nil
}

func (u *Uint256) Sub(value *big.Int) error {
	stored, err := u.Get()
	if err != nil {
		return err
	}
	stored.Sub(stored, value)
	if stored.Sign() < 0 {
		return errors.Errorf("subtraction of %v underflows stored value", value)
	}
	u.Set(stored)
	return nil
}

// Uint64 is a wrapper for storage and retrieval of an uint64.
type Uint64 struct {
	context *Context
	pos     types.Bytes32
}

func NewUint64(context *Context, slot types.Bytes32) *Uint64 {
	return &Uint64{context: context, pos: slot}
}

func (u *Uint64) Get() (uint64, error) {
	raw, err := u.context.state.GetRawStorage(u.context.address, u.pos)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}
	var b [8]byte
	copy(b[8-len(raw):], raw)
	return binary.BigEndian.Uint64(b[:]), nil
}

func (u *Uint64) Set(value uint64) {
	if value == 0 {
		u.context.state.SetRawStorage(u.context.address, u.pos, nil)
		return
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], value)
	u.context.state.SetRawStorage(u.context.address, u.pos, b[:])
}

// Bool is a wrapper for storage and retrieval of a boolean flag.
type Bool struct {
	context *Context
	pos     types.Bytes32
}

func NewBool(context *Context, slot types.Bytes32) *Bool {
	return &Bool{context: context, pos: slot}
}

func (b *Bool) Get() (bool, error) {
	raw, err := b.context.state.GetRawStorage(b.context.address, b.pos)
	if err != nil {
		return false, err
	}
	return len(raw) == 1 && raw[0] == 1, nil
}

func (b *Bool) Set(value bool) {
	if value {
		b.context.state.SetRawStorage(b.context.address, b.pos, []byte{1})
	} else {
		b.context.state.SetRawStorage(b.context.address, b.pos, nil)
	}
}

// Address is a wrapper for storage and retrieval of an account address.
type Address struct {
	context *Context
	pos     types.Bytes32
}

func NewAddress(context *Context, slot types.Bytes32) *Address {
	return &Address{context: context, pos: slot}
}

func (a *Address) Get() (types.Address, error) {
	raw, err := a.context.state.GetRawStorage(a.context.address, a.pos)
	if err != nil {
		return types.Address{}, err
	}
	return types.BytesToAddress(raw), nil
}

func (a *Address) Set(value types.Address) {
	if value.IsZero() {
		a.context.state.SetRawStorage(a.context.address, a.pos, nil)
		return
	}
	a.context.state.SetRawStorage(a.context.address, a.pos, value.Bytes())
}

// Bytes32 is a wrapper for storage and retrieval of a raw 32-byte slot.
type Bytes32 struct {
	context *Context
	pos     types.Bytes32
}

func NewBytes32(context *Context, slot types.Bytes32) *Bytes32 {
	return &Bytes32{context: context, pos: slot}
}

func (b *Bytes32) Get() (types.Bytes32, error) {
	raw, err := b.context.state.GetRawStorage(b.context.address, b.pos)
	if err != nil {
		return types.Bytes32{}, err
	}
	return types.BytesToBytes32(raw), nil
}

func (b *Bytes32) Set(value types.Bytes32) {
	if value.IsZero() {
		b.context.state.SetRawStorage(b.context.address, b.pos, nil)
		return
	}
	b.context.state.SetRawStorage(b.context.address, b.pos, value.Bytes())
}
