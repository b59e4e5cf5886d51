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
	"encoding/binary"
	"fmt"
)

// MaxDeserialized is the maximum number of items a single encoding may hold.
const MaxDeserialized = 2048

// ErrUnserializable is returned for Pointer and InteropInterface items.
var ErrUnserializable = fmt.Errorf("%w: unserializable item", ErrInvalidType)

// errTruncated is returned when the input ends inside an item.
var errTruncated = fmt.Errorf("%w: truncated serialized item", ErrInvalidOperation)

// ---- Encoding --------------------------------------------------------------

type serializer struct {
	buf   []byte
	count int
	// path holds the containers currently being written.
	path map[Item]struct{}
}

// Serialize encodes item in the binary format: a type byte followed by a
// var-int length and payload for byte-like items, or by a var-int count and
// the elements for containers.
func Serialize(item Item) ([]byte, error) {
	s := &serializer{path: make(map[Item]struct{})}
	if err := s.write(item); err != nil {
		return nil, err
	}
	return s.buf, nil
}

func (s *serializer) write(item Item) error {
	s.count++
	if s.count > MaxDeserialized {
		return fmt.Errorf("%w: more than %d items", ErrTooBig, MaxDeserialized)
	}
	switch it := item.(type) {
	case Null:
		s.buf = append(s.buf, byte(AnyT))
	case Bool:
		s.buf = append(s.buf, byte(BooleanT))
		if it {
			s.buf = append(s.buf, 1)
		} else {
			s.buf = append(s.buf, 0)
		}
	case *Integer:
		s.buf = append(s.buf, byte(IntegerT))
		s.writeVarBytes(it.Bytes())
	case ByteString:
		s.buf = append(s.buf, byte(ByteStringT))
		s.writeVarBytes(it)
	case *Buffer:
		s.buf = append(s.buf, byte(BufferT))
		s.writeVarBytes(it.data)
	case *Array:
		if err := s.writeList(it, ArrayT, it.value); err != nil {
			return err
		}
	case *Struct:
		if err := s.writeList(it, StructT, it.value); err != nil {
			return err
		}
	case *Map:
		if err := s.enter(it); err != nil {
			return err
		}
		s.buf = append(s.buf, byte(MapT))
		s.writeVarUint(uint64(len(it.value)))
		for _, e := range it.value {
			if err := s.write(e.Key); err != nil {
				return err
			}
			if err := s.write(e.Value); err != nil {
				return err
			}
		}
		delete(s.path, it)
	default:
		return fmt.Errorf("%w: %s", ErrUnserializable, item.Type())
	}
	if len(s.buf) > MaxSize {
		return fmt.Errorf("%w: serialized size %d", ErrTooBig, len(s.buf))
	}
	return nil
}

func (s *serializer) writeList(container Item, t Type, items []Item) error {
	if err := s.enter(container); err != nil {
		return err
	}
	s.buf = append(s.buf, byte(t))
	s.writeVarUint(uint64(len(items)))
	for _, item := range items {
		if err := s.write(item); err != nil {
			return err
		}
	}
	delete(s.path, container)
	return nil
}

func (s *serializer) enter(container Item) error {
	if _, ok := s.path[container]; ok {
		return ErrRecursive
	}
	s.path[container] = struct{}{}
	return nil
}

func (s *serializer) writeVarBytes(b []byte) {
	s.writeVarUint(uint64(len(b)))
	s.buf = append(s.buf, b...)
}

func (s *serializer) writeVarUint(v uint64) {
	s.buf = AppendVarUint(s.buf, v)
}

// AppendVarUint appends v in the compact var-int format: one byte below
// 0xFD, otherwise a 0xFD, 0xFE or 0xFF marker followed by a little endian
// uint16, uint32 or uint64.
func AppendVarUint(dst []byte, v uint64) []byte {
	switch {
	case v < 0xFD:
		return append(dst, byte(v))
	case v <= 0xFFFF:
		dst = append(dst, 0xFD)
		return binary.LittleEndian.AppendUint16(dst, uint16(v))
	case v <= 0xFFFFFFFF:
		dst = append(dst, 0xFE)
		return binary.LittleEndian.AppendUint32(dst, uint32(v))
	default:
		dst = append(dst, 0xFF)
		return binary.LittleEndian.AppendUint64(dst, v)
	}
}

// ---- Decoding --------------------------------------------------------------

type deserializer struct {
	data  []byte
	pos   int
	count int
}

// Deserialize decodes an item produced by Serialize. Trailing bytes are an
// error.
func Deserialize(data []byte) (Item, error) {
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%w: input size %d", ErrTooBig, len(data))
	}
	d := &deserializer{data: data}
	item, err := d.read()
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidOperation, len(d.data)-d.pos)
	}
	return item, nil
}

func (d *deserializer) read() (Item, error) {
	d.count++
	if d.count > MaxDeserialized {
		return nil, fmt.Errorf("%w: more than %d items", ErrTooBig, MaxDeserialized)
	}
	tb, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch t := Type(tb); t {
	case AnyT:
		return Null{}, nil
	case BooleanT:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		if b > 1 {
			return nil, fmt.Errorf("%w: boolean byte %#x", ErrInvalidOperation, b)
		}
		return Bool(b == 1), nil
	case IntegerT:
		b, err := d.readVarBytes(MaxIntegerSize)
		if err != nil {
			return nil, err
		}
		n, err := bytesToInteger(b)
		if err != nil {
			return nil, err
		}
		return n, nil
	case ByteStringT:
		b, err := d.readVarBytes(MaxSize)
		if err != nil {
			return nil, err
		}
		return ByteString(b), nil
	case BufferT:
		b, err := d.readVarBytes(MaxSize)
		if err != nil {
			return nil, err
		}
		return NewBuffer(b), nil
	case ArrayT, StructT:
		n, err := d.readCount()
		if err != nil {
			return nil, err
		}
		items := make([]Item, n)
		for i := range items {
			if items[i], err = d.read(); err != nil {
				return nil, err
			}
		}
		if t == StructT {
			return NewStruct(items), nil
		}
		return NewArray(items), nil
	case MapT:
		n, err := d.readCount()
		if err != nil {
			return nil, err
		}
		m := NewMap()
		for i := 0; i < n; i++ {
			key, err := d.read()
			if err != nil {
				return nil, err
			}
			if err := IsValidMapKey(key); err != nil {
				return nil, err
			}
			value, err := d.read()
			if err != nil {
				return nil, err
			}
			m.Add(key, value)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: type byte %#x", ErrInvalidType, tb)
	}
}

func (d *deserializer) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, errTruncated
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *deserializer) readVarUint() (uint64, error) {
	v, n, err := ReadVarUint(d.data[d.pos:])
	if err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

// readCount reads a container element count. Counts beyond the item limit
// are rejected before anything is allocated.
func (d *deserializer) readCount() (int, error) {
	n, err := d.readVarUint()
	if err != nil {
		return 0, err
	}
	if n > MaxDeserialized {
		return 0, fmt.Errorf("%w: %d elements", ErrTooBig, n)
	}
	return int(n), nil
}

func (d *deserializer) readVarBytes(max int) ([]byte, error) {
	n, err := d.readVarUint()
	if err != nil {
		return nil, err
	}
	if n > uint64(max) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooBig, n)
	}
	if uint64(len(d.data)-d.pos) < n {
		return nil, errTruncated
	}
	b := make([]byte, n)
	copy(b, d.data[d.pos:])
	d.pos += int(n)
	return b, nil
}

// ReadVarUint decodes a var-int from the start of b, returning the value and
// the number of bytes consumed.
func ReadVarUint(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, errTruncated
	}
	var size int
	switch b[0] {
	case 0xFD:
		size = 2
	case 0xFE:
		size = 4
	case 0xFF:
		size = 8
	default:
		return uint64(b[0]), 1, nil
	}
	if len(b) < 1+size {
		return 0, 0, errTruncated
	}
	switch size {
	case 2:
		return uint64(binary.LittleEndian.Uint16(b[1:])), 3, nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b[1:])), 5, nil
	default:
		return binary.LittleEndian.Uint64(b[1:]), 9, nil
	}
}
