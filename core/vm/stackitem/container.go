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

package stackitem

import (
	"fmt"
	"strings"
)

const (
	// MaxEqualsDepth bounds the nesting followed by structural equality.
	MaxEqualsDepth = 64
	// MaxEqualsItems bounds the number of item pairs visited by one equality
	// check. It admits a container of the largest allowed size plus the
	// container itself.
	MaxEqualsItems = 2048 + 1
	// MaxCloneItems bounds the number of items copied when a Struct is cloned.
	MaxCloneItems = 2048
)

// ---- Array -----------------------------------------------------------------

// Array is an ordered, mutable sequence of items with reference semantics.
type Array struct {
	value []Item
}

// NewArray returns an Array holding items.
func NewArray(items []Item) *Array { return &Array{value: items} }

func (a *Array) Type() Type         { return ArrayT }
func (a *Array) Value() interface{} { return a.value }
func (a *Array) Bool() bool         { return len(a.value) > 0 }
func (a *Array) String() string     { return "Array" + listString(a.value) }

// Items returns the underlying item slice.
func (a *Array) Items() []Item { return a.value }

// Len returns the number of items.
func (a *Array) Len() int { return len(a.value) }

// Append adds item to the end of the array.
func (a *Array) Append(item Item) { a.value = append(a.value, item) }

// Set replaces the item at index i. The caller checks bounds.
func (a *Array) Set(i int, item Item) { a.value[i] = item }

// Remove deletes the item at index i. The caller checks bounds.
func (a *Array) Remove(i int) { a.value = append(a.value[:i], a.value[i+1:]...) }

// Clear removes every item.
func (a *Array) Clear() { a.value = a.value[:0] }

// Reverse reverses the items in place.
func (a *Array) Reverse() { reverseItems(a.value) }

// TryBytes implements Item.
func (a *Array) TryBytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: Array to bytes", ErrInvalidType)
}

// TryInteger implements Item.
func (a *Array) TryInteger() (*Integer, error) {
	return nil, fmt.Errorf("%w: Array to Integer", ErrInvalidType)
}

// Equals implements Item.
func (a *Array) Equals(o Item) bool {
	eq, _ := Equal(a, o)
	return eq
}

// Convert implements Item. Arrays convert to Struct with the same items.
func (a *Array) Convert(t Type) (Item, error) {
	switch t {
	case ArrayT:
		return a, nil
	case StructT:
		return NewStruct(append([]Item{}, a.value...)), nil
	case BooleanT:
		return Bool(true), nil
	default:
		return nil, fmt.Errorf("%w: Array to %s", ErrInvalidType, t)
	}
}

// ---- Struct ----------------------------------------------------------------

// Struct is an ordered sequence with value semantics: it is cloned when
// stored into another container or a slot.
type Struct struct {
	value []Item
}

// NewStruct returns a Struct holding items.
func NewStruct(items []Item) *Struct { return &Struct{value: items} }

func (s *Struct) Type() Type         { return StructT }
func (s *Struct) Value() interface{} { return s.value }
func (s *Struct) Bool() bool         { return len(s.value) > 0 }
func (s *Struct) String() string     { return "Struct" + listString(s.value) }

// Items returns the underlying item slice.
func (s *Struct) Items() []Item { return s.value }

// Len returns the number of items.
func (s *Struct) Len() int { return len(s.value) }

// Append adds item to the end of the struct.
func (s *Struct) Append(item Item) { s.value = append(s.value, item) }

// Set replaces the item at index i. The caller checks bounds.
func (s *Struct) Set(i int, item Item) { s.value[i] = item }

// Remove deletes the item at index i. The caller checks bounds.
func (s *Struct) Remove(i int) { s.value = append(s.value[:i], s.value[i+1:]...) }

// Clear removes every item.
func (s *Struct) Clear() { s.value = s.value[:0] }

// Reverse reverses the items in place.
func (s *Struct) Reverse() { reverseItems(s.value) }

// TryBytes implements Item.
func (s *Struct) TryBytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: Struct to bytes", ErrInvalidType)
}

// TryInteger implements Item.
func (s *Struct) TryInteger() (*Integer, error) {
	return nil, fmt.Errorf("%w: Struct to Integer", ErrInvalidType)
}

// Equals implements Item.
func (s *Struct) Equals(o Item) bool {
	eq, _ := Equal(s, o)
	return eq
}

// Convert implements Item.
func (s *Struct) Convert(t Type) (Item, error) {
	switch t {
	case StructT:
		return s, nil
	case ArrayT:
		return NewArray(append([]Item{}, s.value...)), nil
	case BooleanT:
		return Bool(true), nil
	default:
		return nil, fmt.Errorf("%w: Struct to %s", ErrInvalidType, t)
	}
}

// Clone returns a copy of the struct. Nested structs are cloned as well;
// other containers are shared.
func (s *Struct) Clone() (*Struct, error) {
	limit := MaxCloneItems
	return s.clone(&limit)
}

func (s *Struct) clone(limit *int) (*Struct, error) {
	out := &Struct{value: make([]Item, len(s.value))}
	for i, item := range s.value {
		*limit--
		if *limit < 0 {
			return nil, fmt.Errorf("%w: struct clone", ErrTooBig)
		}
		if inner, ok := item.(*Struct); ok {
			c, err := inner.clone(limit)
			if err != nil {
				return nil, err
			}
			out.value[i] = c
			continue
		}
		out.value[i] = item
	}
	return out, nil
}

// ---- Map -------------------------------------------------------------------

// MapElement is one key/value pair of a Map.
type MapElement struct {
	Key   Item
	Value Item
}

// Map is a mutable set of key/value pairs with primitive keys. Iteration
// follows insertion order.
type Map struct {
	value []MapElement
	index map[string]int
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// NewMapWithValue returns a Map holding elems. Later duplicates overwrite
// earlier ones.
func NewMapWithValue(elems []MapElement) *Map {
	m := NewMap()
	for _, e := range elems {
		m.Add(e.Key, e.Value)
	}
	return m
}

func (m *Map) Type() Type         { return MapT }
func (m *Map) Value() interface{} { return m.value }
func (m *Map) Bool() bool         { return len(m.value) > 0 }

// Elements returns the pairs in insertion order.
func (m *Map) Elements() []MapElement { return m.value }

// Len returns the number of pairs.
func (m *Map) Len() int { return len(m.value) }

// IsValidMapKey reports whether key may be used as a Map key.
func IsValidMapKey(key Item) error {
	if !key.Type().IsPrimitive() {
		return fmt.Errorf("%w: %s map key", ErrInvalidType, key.Type())
	}
	if b, ok := key.(ByteString); ok && len(b) > MaxKeySize {
		return fmt.Errorf("%w: %d byte map key", ErrTooBig, len(b))
	}
	return nil
}

// MaxKeySize is the maximum length of a ByteString map key.
const MaxKeySize = 64

func mapKey(key Item) string {
	b, _ := key.TryBytes()
	return string(byte(key.Type())) + string(b)
}

// Index returns the position of key, or -1.
func (m *Map) Index(key Item) int {
	if !key.Type().IsPrimitive() {
		return -1
	}
	if i, ok := m.index[mapKey(key)]; ok {
		return i
	}
	return -1
}

// Has reports whether key is present.
func (m *Map) Has(key Item) bool { return m.Index(key) >= 0 }

// Get returns the value stored under key.
func (m *Map) Get(key Item) (Item, bool) {
	i := m.Index(key)
	if i < 0 {
		return nil, false
	}
	return m.value[i].Value, true
}

// Add stores value under key, replacing an existing value. The caller
// validates the key with IsValidMapKey.
func (m *Map) Add(key, value Item) {
	if i := m.Index(key); i >= 0 {
		m.value[i].Value = value
		return
	}
	m.index[mapKey(key)] = len(m.value)
	m.value = append(m.value, MapElement{Key: key, Value: value})
}

// Drop removes key, if present.
func (m *Map) Drop(key Item) {
	i := m.Index(key)
	if i < 0 {
		return
	}
	m.value = append(m.value[:i], m.value[i+1:]...)
	m.reindex()
}

// Clear removes every pair.
func (m *Map) Clear() {
	m.value = m.value[:0]
	m.index = make(map[string]int)
}

func (m *Map) reindex() {
	m.index = make(map[string]int, len(m.value))
	for i, e := range m.value {
		m.index[mapKey(e.Key)] = i
	}
}

// TryBytes implements Item.
func (m *Map) TryBytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: Map to bytes", ErrInvalidType)
}

// TryInteger implements Item.
func (m *Map) TryInteger() (*Integer, error) {
	return nil, fmt.Errorf("%w: Map to Integer", ErrInvalidType)
}

// Equals implements Item.
func (m *Map) Equals(o Item) bool {
	eq, _ := Equal(m, o)
	return eq
}

// Convert implements Item.
func (m *Map) Convert(t Type) (Item, error) {
	switch t {
	case MapT:
		return m, nil
	case BooleanT:
		return Bool(true), nil
	default:
		return nil, fmt.Errorf("%w: Map to %s", ErrInvalidType, t)
	}
}

// String implements fmt.Stringer.
func (m *Map) String() string {
	parts := make([]string, len(m.value))
	for i, e := range m.value {
		parts[i] = e.Key.String() + ": " + shortString(e.Value)
	}
	return "Map{" + strings.Join(parts, ", ") + "}"
}

// ---- Structural equality ---------------------------------------------------

// Equal compares two items structurally. It returns ErrTooBig when the
// comparison nests deeper than MaxEqualsDepth or visits more than
// MaxEqualsItems pairs. The Equals methods report false in that case.
func Equal(a, b Item) (bool, error) {
	budget := MaxEqualsItems
	return equals(a, b, 0, &budget)
}

func equals(a, b Item, depth int, budget *int) (bool, error) {
	*budget--
	if *budget < 0 {
		return false, fmt.Errorf("%w: more than %d items compared", ErrTooBig, MaxEqualsItems)
	}
	if depth > MaxEqualsDepth {
		return false, fmt.Errorf("%w: comparison deeper than %d", ErrTooBig, MaxEqualsDepth)
	}
	switch x := a.(type) {
	case *Array:
		y, ok := b.(*Array)
		if !ok {
			return false, nil
		}
		if x == y {
			return true, nil
		}
		return listEquals(x.value, y.value, depth, budget)
	case *Struct:
		y, ok := b.(*Struct)
		if !ok {
			return false, nil
		}
		if x == y {
			return true, nil
		}
		return listEquals(x.value, y.value, depth, budget)
	case *Map:
		y, ok := b.(*Map)
		if !ok {
			return false, nil
		}
		if x == y {
			return true, nil
		}
		if len(x.value) != len(y.value) {
			return false, nil
		}
		for _, e := range x.value {
			v, ok := y.Get(e.Key)
			if !ok {
				return false, nil
			}
			if eq, err := equals(e.Value, v, depth+1, budget); !eq || err != nil {
				return false, err
			}
		}
		return true, nil
	default:
		return a.Equals(b), nil
	}
}

func listEquals(x, y []Item, depth int, budget *int) (bool, error) {
	if len(x) != len(y) {
		return false, nil
	}
	for i := range x {
		if eq, err := equals(x[i], y[i], depth+1, budget); !eq || err != nil {
			return false, err
		}
	}
	return true, nil
}

func reverseItems(items []Item) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func listString(items []Item) string {
	if len(items) > 16 {
		return fmt.Sprintf("[%d items]", len(items))
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = shortString(item)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// shortString prints nested containers by type only, so self-referencing
// values still format.
func shortString(item Item) string {
	switch item.(type) {
	case *Array, *Struct, *Map:
		return item.Type().String()
	}
	return item.String()
}
