// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"fmt"

	"github.com/probechain/neo-zkvm/core/vm/stackitem"
)

// Slot is a fixed-size bank of item cells used for statics, locals and
// arguments. A nil *Slot is an uninitialized bank.
type Slot struct {
	items []stackitem.Item
}

func newSlot(n int) *Slot {
	s := &Slot{items: make([]stackitem.Item, n)}
	for i := range s.items {
		s.items[i] = stackitem.Null{}
	}
	return s
}

// Len returns the number of cells, zero for an uninitialized bank.
func (s *Slot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Get returns the item in cell i.
func (s *Slot) Get(i int) (stackitem.Item, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: slot not initialized", ErrInvalidOperation)
	}
	if i < 0 || i >= len(s.items) {
		return nil, fmt.Errorf("%w: slot index %d out of range [0, %d)", ErrInvalidOperation, i, len(s.items))
	}
	return s.items[i], nil
}

// Set stores item in cell i.
func (s *Slot) Set(i int, item stackitem.Item) error {
	if s == nil {
		return fmt.Errorf("%w: slot not initialized", ErrInvalidOperation)
	}
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("%w: slot index %d out of range [0, %d)", ErrInvalidOperation, i, len(s.items))
	}
	s.items[i] = item
	return nil
}

// Items returns a copy of the cells.
func (s *Slot) Items() []stackitem.Item {
	if s == nil {
		return nil
	}
	return append([]stackitem.Item(nil), s.items...)
}
