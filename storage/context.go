// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"github.com/stakewell/stakewell/state"
	"github.com/stakewell/stakewell/types"
)

// Context binds typed storage cells to an account address within a state.
type Context struct {
	address types.Address
	state   *state.State
}

func NewContext(address types.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() types.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}

// NameToSlot derives a storage slot from a human readable name.
func NameToSlot(name string) types.Bytes32 {
	return types.BytesToBytes32([]byte(name))
}
