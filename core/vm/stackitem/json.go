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
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"unicode/utf8"
)

// MaxJSONDepth is the maximum container nesting of a JSON document.
const MaxJSONDepth = 10

// Integers outside [-2^53, 2^53] are written as JSON strings.
var (
	maxSafeInteger = NewInt(1 << 53)
	minSafeInteger = NewInt(-1 << 53)
)

// ToJSON encodes item as JSON. Integers beyond 2^53 are written as strings,
// map keys must be ByteStrings and byte strings must be valid UTF-8.
func ToJSON(item Item) ([]byte, error) {
	var buf bytes.Buffer
	if err := toJSON(&buf, item, 0, make(map[Item]struct{})); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toJSON(w *bytes.Buffer, item Item, depth int, path map[Item]struct{}) error {
	if depth > MaxJSONDepth {
		return fmt.Errorf("%w: JSON nesting deeper than %d", ErrTooBig, MaxJSONDepth)
	}
	switch it := item.(type) {
	case Null:
		w.WriteString("null")
	case Bool:
		w.WriteString(it.String())
	case *Integer:
		if it.Cmp(maxSafeInteger) > 0 || it.Cmp(minSafeInteger) < 0 {
			writeJSONString(w, it.String())
		} else {
			w.WriteString(it.String())
		}
	case ByteString, *Buffer:
		b, _ := it.TryBytes()
		if !utf8.Valid(b) {
			return fmt.Errorf("%w: byte string is not valid UTF-8", ErrInvalidOperation)
		}
		writeJSONString(w, string(b))
	case *Array, *Struct:
		if _, ok := path[it]; ok {
			return ErrRecursive
		}
		path[it] = struct{}{}
		var items []Item
		if a, ok := it.(*Array); ok {
			items = a.value
		} else {
			items = it.(*Struct).value
		}
		w.WriteByte('[')
		for i, elem := range items {
			if i > 0 {
				w.WriteByte(',')
			}
			if err := toJSON(w, elem, depth+1, path); err != nil {
				return err
			}
		}
		w.WriteByte(']')
		delete(path, it)
	case *Map:
		if _, ok := path[it]; ok {
			return ErrRecursive
		}
		path[it] = struct{}{}
		w.WriteByte('{')
		for i, e := range it.value {
			key, ok := e.Key.(ByteString)
			if !ok {
				return fmt.Errorf("%w: %s JSON object key", ErrInvalidType, e.Key.Type())
			}
			if !utf8.Valid(key) {
				return fmt.Errorf("%w: object key is not valid UTF-8", ErrInvalidOperation)
			}
			if i > 0 {
				w.WriteByte(',')
			}
			writeJSONString(w, string(key))
			w.WriteByte(':')
			if err := toJSON(w, e.Value, depth+1, path); err != nil {
				return err
			}
		}
		w.WriteByte('}')
		delete(path, it)
	default:
		return fmt.Errorf("%w: %s to JSON", ErrInvalidType, item.Type())
	}
	if w.Len() > MaxSize {
		return fmt.Errorf("%w: JSON size %d", ErrTooBig, w.Len())
	}
	return nil
}

func writeJSONString(w *bytes.Buffer, s string) {
	// Marshalling a string cannot fail.
	b, _ := json.Marshal(s)
	w.Write(b)
}

// FromJSON decodes a JSON document into an item. Numbers must be integers,
// objects become Maps with ByteString keys in document order.
func FromJSON(data []byte) (Item, error) {
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%w: JSON size %d", ErrTooBig, len(data))
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	item, err := fromJSON(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing JSON data", ErrInvalidOperation)
	}
	return item, nil
}

func fromJSON(dec *json.Decoder, depth int) (Item, error) {
	if depth > MaxJSONDepth {
		return nil, fmt.Errorf("%w: JSON nesting deeper than %d", ErrTooBig, MaxJSONDepth)
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return ByteString(t), nil
	case json.Number:
		b, ok := new(big.Int).SetString(t.String(), 10)
		if !ok {
			return nil, fmt.Errorf("%w: non-integer number %s", ErrInvalidOperation, t)
		}
		n, err := NewIntFromBig(b)
		if err != nil {
			return nil, err
		}
		return n, nil
	case json.Delim:
		switch t {
		case '[':
			var items []Item
			for dec.More() {
				elem, err := fromJSON(dec, depth+1)
				if err != nil {
					return nil, err
				}
				items = append(items, elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
			}
			return NewArray(items), nil
		case '{':
			m := NewMap()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("%w: object key", ErrInvalidOperation)
				}
				value, err := fromJSON(dec, depth+1)
				if err != nil {
					return nil, err
				}
				if err := IsValidMapKey(ByteString(key)); err != nil {
					return nil, err
				}
				m.Add(ByteString(key), value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
			}
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected JSON token %v", ErrInvalidOperation, tok)
}
