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

// Stack is the evaluation stack. The top of the stack is the last element of
// the backing slice; index 0 in Peek, Remove and Insert refers to the top.
type Stack struct {
	items []stackitem.Item
	limit int

	// Journal of the running instruction. Every item below the low-water
	// mark that the instruction displaced is kept in saved, top first.
	low   int
	saved []stackitem.Item

	digests *stackDigests // nil unless the VM is tracing
}

// NewStack returns an empty stack holding at most limit items.
func NewStack(limit int) *Stack {
	return &Stack{items: make([]stackitem.Item, 0, 16), limit: limit}
}

// Len returns the number of items on the stack.
func (s *Stack) Len() int { return len(s.items) }

// Push puts item on top of the stack.
func (s *Stack) Push(item stackitem.Item) error {
	if len(s.items) >= s.limit {
		return fmt.Errorf("%w: %d items", ErrStackOverflow, s.limit)
	}
	s.items = append(s.items, item)
	if s.digests != nil {
		s.digests.push(item)
	}
	return nil
}

// Pop removes and returns the top item.
func (s *Stack) Pop() (stackitem.Item, error) {
	n := len(s.items)
	if n == 0 {
		return nil, ErrStackUnderflow
	}
	s.touch(n - 1)
	item := s.items[n-1]
	s.items[n-1] = nil
	s.items = s.items[:n-1]
	if s.digests != nil {
		s.digests.truncate(n - 1)
	}
	return item, nil
}

// Peek returns the item n positions below the top without removing it.
func (s *Stack) Peek(n int) (stackitem.Item, error) {
	if n < 0 || n >= len(s.items) {
		return nil, fmt.Errorf("%w: peek %d of %d", ErrStackUnderflow, n, len(s.items))
	}
	return s.items[len(s.items)-1-n], nil
}

// Top returns the top item, or nil for an empty stack.
func (s *Stack) Top() stackitem.Item {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}

// Remove deletes and returns the item n positions below the top.
func (s *Stack) Remove(n int) (stackitem.Item, error) {
	if n < 0 || n >= len(s.items) {
		return nil, fmt.Errorf("%w: remove %d of %d", ErrStackUnderflow, n, len(s.items))
	}
	i := len(s.items) - 1 - n
	s.touch(i)
	item := s.items[i]
	copy(s.items[i:], s.items[i+1:])
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	if s.digests != nil {
		s.digests.remove(i)
	}
	return item, nil
}

// Insert places item so that it ends up n positions below the top.
func (s *Stack) Insert(n int, item stackitem.Item) error {
	if n < 0 || n > len(s.items) {
		return fmt.Errorf("%w: insert at %d of %d", ErrStackUnderflow, n, len(s.items))
	}
	if len(s.items) >= s.limit {
		return fmt.Errorf("%w: %d items", ErrStackOverflow, s.limit)
	}
	i := len(s.items) - n
	s.touch(i)
	s.items = append(s.items, nil)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = item
	if s.digests != nil {
		s.digests.insert(i, item)
	}
	return nil
}

// Reverse reverses the order of the top n items.
func (s *Stack) Reverse(n int) error {
	if n < 0 || n > len(s.items) {
		return fmt.Errorf("%w: reverse %d of %d", ErrStackUnderflow, n, len(s.items))
	}
	from := len(s.items) - n
	s.touch(from)
	top := s.items[from:]
	for i, j := 0, len(top)-1; i < j; i, j = i+1, j-1 {
		top[i], top[j] = top[j], top[i]
	}
	if s.digests != nil {
		s.digests.reverse(from)
	}
	return nil
}

// Clear removes every item.
func (s *Stack) Clear() {
	s.touch(0)
	for i := range s.items {
		s.items[i] = nil
	}
	s.items = s.items[:0]
	if s.digests != nil {
		s.digests.truncate(0)
	}
}

// Items returns a copy of the stack contents, bottom first.
func (s *Stack) Items() []stackitem.Item {
	return append([]stackitem.Item(nil), s.items...)
}

// ---- Instruction journal ---------------------------------------------------

// begin starts the journal of a new instruction.
func (s *Stack) begin() {
	clear(s.saved)
	s.saved = s.saved[:0]
	s.low = len(s.items)
}

// touch saves the items from i up to the low-water mark before they are
// moved or removed.
func (s *Stack) touch(i int) {
	for j := s.low - 1; j >= i; j-- {
		s.saved = append(s.saved, s.items[j])
	}
	if i < s.low {
		s.low = i
	}
}

// rollback restores the stack as it was when begin was called.
func (s *Stack) rollback() {
	clear(s.items[s.low:])
	s.items = s.items[:s.low]
	if s.digests != nil {
		s.digests.truncate(s.low)
	}
	for j := len(s.saved) - 1; j >= 0; j-- {
		s.items = append(s.items, s.saved[j])
		if s.digests != nil {
			s.digests.push(s.saved[j])
		}
	}
	s.begin()
}
