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
	"bytes"
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
)

func TestSerializeLayout(t *testing.T) {
	m := NewMap()
	m.Add(ByteString("k"), NewInt(0))
	cases := []struct {
		name string
		item Item
		want []byte
	}{
		{"null", Null{}, []byte{0x00}},
		{"true", Bool(true), []byte{0x20, 0x01}},
		{"int", NewInt(1), []byte{0x21, 0x01, 0x01}},
		{"negative", NewInt(-2), []byte{0x21, 0x01, 0xfe}},
		{"zero", NewInt(0), []byte{0x21, 0x00}},
		{"bytes", ByteString("hi"), []byte{0x28, 0x02, 'h', 'i'}},
		{"buffer", NewBuffer([]byte{9}), []byte{0x30, 0x01, 0x09}},
		{"array", NewArray([]Item{Null{}, ByteString("a")}), []byte{0x40, 0x02, 0x00, 0x28, 0x01, 'a'}},
		{"struct", NewStruct([]Item{Bool(false)}), []byte{0x41, 0x01, 0x20, 0x00}},
		{"map", m, []byte{0x48, 0x01, 0x28, 0x01, 'k', 0x21, 0x00}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Serialize(c.item)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("Serialize mismatch (-want +got):\n%s", diff)
			}
			back, err := Deserialize(got)
			if err != nil {
				t.Fatalf("Deserialize: %v", err)
			}
			if back.Type() != c.item.Type() || !back.Equals(c.item) {
				t.Errorf("Deserialize = %s; want %s", spew.Sdump(back), spew.Sdump(c.item))
			}
		})
	}
}

func TestSerializeErrors(t *testing.T) {
	self := NewArray(nil)
	self.Append(self)
	if _, err := Serialize(self); !errors.Is(err, ErrRecursive) {
		t.Errorf("recursive array: err = %v; want ErrRecursive", err)
	}
	if _, err := Serialize(NewPointer(0, nil)); !errors.Is(err, ErrInvalidType) {
		t.Errorf("pointer: err = %v; want ErrInvalidType", err)
	}
	if _, err := Serialize(NewArray([]Item{NewInterop(1)})); !errors.Is(err, ErrUnserializable) {
		t.Errorf("interop: err = %v; want ErrUnserializable", err)
	}

	// A container referenced twice without a cycle is fine.
	shared := NewArray([]Item{NewInt(1)})
	if _, err := Serialize(NewArray([]Item{shared, shared})); err != nil {
		t.Errorf("shared array: %v", err)
	}

	many := make([]Item, MaxDeserialized)
	for i := range many {
		many[i] = Null{}
	}
	if _, err := Serialize(NewArray(many)); !errors.Is(err, ErrTooBig) {
		t.Errorf("%d items: err = %v; want ErrTooBig", len(many)+1, err)
	}
	if _, err := Serialize(ByteString(make([]byte, MaxSize))); !errors.Is(err, ErrTooBig) {
		t.Errorf("oversized string: err = %v; want ErrTooBig", err)
	}
}

func TestDeserializeErrors(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", []byte{}, ErrInvalidOperation},
		{"truncated bytes", []byte{0x28, 0x05, 'a'}, ErrInvalidOperation},
		{"truncated array", []byte{0x40, 0x02, 0x00}, ErrInvalidOperation},
		{"trailing", []byte{0x00, 0x00}, ErrInvalidOperation},
		{"bad type", []byte{0x99}, ErrInvalidType},
		{"pointer", []byte{0x10}, ErrInvalidType},
		{"bad boolean", []byte{0x20, 0x02}, ErrInvalidOperation},
		{"wide integer", append([]byte{0x21, 0x11}, make([]byte, 17)...), ErrTooBig},
		{"huge count", []byte{0x40, 0xfd, 0x01, 0x10}, ErrTooBig},
		{"array key", []byte{0x48, 0x01, 0x40, 0x00, 0x00}, ErrInvalidType},
	}
	for _, c := range cases {
		if _, err := Deserialize(c.data); !errors.Is(err, c.err) {
			t.Errorf("%s: err = %v; want %v", c.name, err, c.err)
		}
	}
}

func TestVarUint(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{0xfc, []byte{0xfc}},
		{0xfd, []byte{0xfd, 0xfd, 0x00}},
		{0xffff, []byte{0xfd, 0xff, 0xff}},
		{0x10000, []byte{0xfe, 0x00, 0x00, 0x01, 0x00}},
		{1 << 32, []byte{0xff, 0, 0, 0, 0, 1, 0, 0, 0}},
	}
	for _, c := range cases {
		got := AppendVarUint(nil, c.v)
		if !bytes.Equal(got, c.want) {
			t.Errorf("AppendVarUint(%#x) = %x; want %x", c.v, got, c.want)
		}
		v, n, err := ReadVarUint(got)
		if err != nil || v != c.v || n != len(got) {
			t.Errorf("ReadVarUint(%x) = %d, %d, %v", got, v, n, err)
		}
	}
	if _, _, err := ReadVarUint([]byte{0xfe, 0x01}); err == nil {
		t.Error("truncated var-int accepted")
	}
}
