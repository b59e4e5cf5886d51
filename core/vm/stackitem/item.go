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

// Package stackitem implements the run-time values of the virtual machine:
// a closed set of item types with structural equality, truthiness and
// conversion rules, plus their binary and JSON encodings.
package stackitem

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"
)

// ---- Error sentinels -------------------------------------------------------

// The engine re-exports these sentinels, so their messages carry its prefix.
var (
	// ErrInvalidType is returned when an item is of the wrong type for an
	// operation or conversion.
	ErrInvalidType = errors.New("vm: invalid type")

	// ErrInvalidOperation is returned for bounds violations, overflows and
	// malformed arguments.
	ErrInvalidOperation = errors.New("vm: invalid operation")

	// ErrDivisionByZero is returned by DIV, MOD and the modular operations.
	ErrDivisionByZero = errors.New("vm: division by zero")

	// ErrOverflow is returned when an integer result leaves the 128-bit range.
	ErrOverflow = fmt.Errorf("%w: integer overflow", ErrInvalidOperation)

	// ErrTooBig is returned when an item or encoding exceeds a size limit.
	ErrTooBig = fmt.Errorf("%w: item too big", ErrInvalidOperation)

	// ErrRecursive is returned when serializing a container that contains
	// itself.
	ErrRecursive = fmt.Errorf("%w: recursive reference", ErrInvalidOperation)
)

// MaxSize is the maximum byte size of a single item and of a serialized
// item graph.
const MaxSize = 1024 * 1024

// ---- Types -----------------------------------------------------------------

// Type is the one byte type tag used by ISTYPE, CONVERT, NEWARRAY_T and
// the binary serialization format.
type Type byte

// Item types.
const (
	AnyT        Type = 0x00
	PointerT    Type = 0x10
	BooleanT    Type = 0x20
	IntegerT    Type = 0x21
	ByteStringT Type = 0x28
	BufferT     Type = 0x30
	ArrayT      Type = 0x40
	StructT     Type = 0x41
	MapT        Type = 0x48
	InteropT    Type = 0x60
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case AnyT:
		return "Any"
	case PointerT:
		return "Pointer"
	case BooleanT:
		return "Boolean"
	case IntegerT:
		return "Integer"
	case ByteStringT:
		return "ByteString"
	case BufferT:
		return "Buffer"
	case ArrayT:
		return "Array"
	case StructT:
		return "Struct"
	case MapT:
		return "Map"
	case InteropT:
		return "InteropInterface"
	default:
		return "Unknown"
	}
}

// IsValid reports whether t is one of the defined type tags.
func (t Type) IsValid() bool {
	switch t {
	case AnyT, PointerT, BooleanT, IntegerT, ByteStringT, BufferT, ArrayT, StructT, MapT, InteropT:
		return true
	}
	return false
}

// IsPrimitive reports whether items of type t can be used as map keys.
func (t Type) IsPrimitive() bool {
	return t == BooleanT || t == IntegerT || t == ByteStringT
}

// Item is a value living on the evaluation stack or in a slot.
type Item interface {
	fmt.Stringer

	// Type returns the type tag of the item.
	Type() Type
	// Value returns the underlying Go value.
	Value() interface{}
	// Bool returns the truthiness of the item.
	Bool() bool
	// TryBytes returns the byte representation of a primitive or buffer.
	TryBytes() ([]byte, error)
	// TryInteger returns the integer representation of the item.
	TryInteger() (*Integer, error)
	// Equals reports whether the item is equal to o.
	Equals(o Item) bool
	// Convert converts the item to type t.
	Convert(t Type) (Item, error)
}

// ---- Null ------------------------------------------------------------------

// Null is the absent value.
type Null struct{}

func (Null) Type() Type                    { return AnyT }
func (Null) Value() interface{}            { return nil }
func (Null) Bool() bool                    { return false }
func (Null) String() string                { return "Null" }
func (Null) TryBytes() ([]byte, error)     { return nil, fmt.Errorf("%w: Null to bytes", ErrInvalidType) }
func (Null) TryInteger() (*Integer, error) { return nil, fmt.Errorf("%w: Null to Integer", ErrInvalidType) }

// Equals implements Item.
func (Null) Equals(o Item) bool {
	_, ok := o.(Null)
	return ok
}

// Convert implements Item. Null converts to Null for every defined type.
func (n Null) Convert(t Type) (Item, error) {
	if t == AnyT || !t.IsValid() {
		return nil, fmt.Errorf("%w: Null to %s", ErrInvalidType, t)
	}
	return n, nil
}

// ---- Boolean ---------------------------------------------------------------

// Bool is a boolean item.
type Bool bool

func (b Bool) Type() Type         { return BooleanT }
func (b Bool) Value() interface{} { return bool(b) }
func (b Bool) Bool() bool         { return bool(b) }

// String implements fmt.Stringer.
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// TryBytes implements Item.
func (b Bool) TryBytes() ([]byte, error) {
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

// TryInteger implements Item.
func (b Bool) TryInteger() (*Integer, error) {
	if b {
		return NewInt(1), nil
	}
	return NewInt(0), nil
}

// Equals implements Item.
func (b Bool) Equals(o Item) bool {
	other, ok := o.(Bool)
	return ok && b == other
}

// Convert implements Item.
func (b Bool) Convert(t Type) (Item, error) { return convertPrimitive(b, t) }

// ---- ByteString ------------------------------------------------------------

// ByteString is an immutable byte sequence.
type ByteString []byte

func (s ByteString) Type() Type                { return ByteStringT }
func (s ByteString) Value() interface{}        { return []byte(s) }
func (s ByteString) Bool() bool                { return anyNonZero(s) }
func (s ByteString) TryBytes() ([]byte, error) { return s, nil }

// TryInteger implements Item.
func (s ByteString) TryInteger() (*Integer, error) { return bytesToInteger(s) }

// Equals implements Item. A ByteString equals a ByteString or Buffer with
// the same contents.
func (s ByteString) Equals(o Item) bool {
	switch other := o.(type) {
	case ByteString:
		return bytes.Equal(s, other)
	case *Buffer:
		return bytes.Equal(s, other.data)
	}
	return false
}

// Convert implements Item.
func (s ByteString) Convert(t Type) (Item, error) { return convertPrimitive(s, t) }

// String implements fmt.Stringer.
func (s ByteString) String() string { return printable(s) }

// ---- Buffer ----------------------------------------------------------------

// Buffer is a mutable byte sequence.
type Buffer struct {
	data []byte
}

// NewBuffer returns a Buffer wrapping b.
func NewBuffer(b []byte) *Buffer { return &Buffer{data: b} }

func (b *Buffer) Type() Type                { return BufferT }
func (b *Buffer) Value() interface{}        { return b.data }
func (b *Buffer) Bool() bool                { return anyNonZero(b.data) }
func (b *Buffer) TryBytes() ([]byte, error) { return b.data, nil }

// Bytes returns the underlying, mutable byte slice.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the buffer length.
func (b *Buffer) Len() int { return len(b.data) }

// TryInteger implements Item.
func (b *Buffer) TryInteger() (*Integer, error) { return bytesToInteger(b.data) }

// Equals implements Item.
func (b *Buffer) Equals(o Item) bool {
	switch other := o.(type) {
	case ByteString:
		return bytes.Equal(b.data, other)
	case *Buffer:
		return b == other || bytes.Equal(b.data, other.data)
	}
	return false
}

// Convert implements Item.
func (b *Buffer) Convert(t Type) (Item, error) { return convertPrimitive(b, t) }

// String implements fmt.Stringer.
func (b *Buffer) String() string { return "Buffer(" + printable(b.data) + ")" }

// ---- Pointer ---------------------------------------------------------------

// Pointer is a code position within a script, produced by PUSHA and consumed
// by CALLA.
type Pointer struct {
	pos    int
	script []byte
}

// NewPointer returns a pointer to pos in script.
func NewPointer(pos int, script []byte) *Pointer {
	return &Pointer{pos: pos, script: script}
}

func (p *Pointer) Type() Type         { return PointerT }
func (p *Pointer) Value() interface{} { return p.pos }
func (p *Pointer) Bool() bool         { return true }
func (p *Pointer) String() string     { return fmt.Sprintf("Pointer(%d)", p.pos) }

// Position returns the code offset the pointer refers to.
func (p *Pointer) Position() int { return p.pos }

// Script returns the script the pointer refers into.
func (p *Pointer) Script() []byte { return p.script }

// TryBytes implements Item.
func (p *Pointer) TryBytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: Pointer to bytes", ErrInvalidType)
}

// TryInteger implements Item.
func (p *Pointer) TryInteger() (*Integer, error) {
	return nil, fmt.Errorf("%w: Pointer to Integer", ErrInvalidType)
}

// Equals implements Item.
func (p *Pointer) Equals(o Item) bool {
	other, ok := o.(*Pointer)
	return ok && p.pos == other.pos && bytes.Equal(p.script, other.script)
}

// Convert implements Item.
func (p *Pointer) Convert(t Type) (Item, error) { return convertOpaque(p, t) }

// ---- InteropInterface ------------------------------------------------------

// Interop is an opaque host handle.
type Interop struct {
	value interface{}
}

// NewInterop wraps a host value.
func NewInterop(v interface{}) *Interop { return &Interop{value: v} }

func (i *Interop) Type() Type         { return InteropT }
func (i *Interop) Value() interface{} { return i.value }
func (i *Interop) Bool() bool         { return true }
func (i *Interop) String() string     { return fmt.Sprintf("InteropInterface(%T)", i.value) }

// TryBytes implements Item.
func (i *Interop) TryBytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: InteropInterface to bytes", ErrInvalidType)
}

// TryInteger implements Item.
func (i *Interop) TryInteger() (*Integer, error) {
	return nil, fmt.Errorf("%w: InteropInterface to Integer", ErrInvalidType)
}

// Equals implements Item. Handles are equal only to themselves.
func (i *Interop) Equals(o Item) bool {
	other, ok := o.(*Interop)
	return ok && i == other
}

// Convert implements Item.
func (i *Interop) Convert(t Type) (Item, error) { return convertOpaque(i, t) }

// ---- Helpers ---------------------------------------------------------------

// Make converts a Go value into an Item. Supported inputs are nil, bool,
// the signed and unsigned integer kinds that fit into 64 bits, *big.Int,
// []byte, string, []Item and Item itself. Anything else panics; Make is meant
// for hosts and tests, never for script controlled input.
func Make(v interface{}) Item {
	switch val := v.(type) {
	case nil:
		return Null{}
	case Item:
		return val
	case bool:
		return Bool(val)
	case int:
		return NewInt(int64(val))
	case int64:
		return NewInt(val)
	case int32:
		return NewInt(int64(val))
	case uint8:
		return NewInt(int64(val))
	case uint32:
		return NewInt(int64(val))
	case uint64:
		i, err := NewIntFromBig(new(big.Int).SetUint64(val))
		if err != nil {
			panic(err)
		}
		return i
	case *big.Int:
		i, err := NewIntFromBig(val)
		if err != nil {
			panic(err)
		}
		return i
	case []byte:
		return ByteString(val)
	case string:
		return ByteString(val)
	case []Item:
		return NewArray(val)
	default:
		panic(fmt.Sprintf("stackitem: unsupported value %T", v))
	}
}

func anyNonZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return true
		}
	}
	return false
}

func bytesToInteger(b []byte) (*Integer, error) {
	if len(b) > MaxIntegerSize {
		return nil, fmt.Errorf("%w: %d byte integer", ErrInvalidOperation, len(b))
	}
	return IntFromBytes(b)
}

func printable(b []byte) string {
	if utf8.Valid(b) {
		return fmt.Sprintf("%q", string(b))
	}
	return "0x" + hex.EncodeToString(b)
}

// convertPrimitive implements CONVERT for Boolean, Integer, ByteString and
// Buffer items.
func convertPrimitive(item Item, t Type) (Item, error) {
	if item.Type() == t {
		if b, ok := item.(*Buffer); ok {
			return b, nil
		}
		return item, nil
	}
	switch t {
	case BooleanT:
		return Bool(item.Bool()), nil
	case IntegerT:
		return item.TryInteger()
	case ByteStringT:
		b, err := item.TryBytes()
		if err != nil {
			return nil, err
		}
		return ByteString(append([]byte{}, b...)), nil
	case BufferT:
		b, err := item.TryBytes()
		if err != nil {
			return nil, err
		}
		return NewBuffer(append([]byte{}, b...)), nil
	default:
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidType, item.Type(), t)
	}
}

// convertOpaque implements CONVERT for pointers and interop handles, which
// only convert to themselves or to Boolean.
func convertOpaque(item Item, t Type) (Item, error) {
	switch t {
	case item.Type():
		return item, nil
	case BooleanT:
		return Bool(true), nil
	default:
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidType, item.Type(), t)
	}
}
