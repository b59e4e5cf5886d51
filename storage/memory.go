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

package storage

import (
	"bytes"
	"sort"
	"sync"

	"github.com/probechain/neo-zkvm/common"
)

// MemoryStorage is a Backend held entirely in memory. It is safe for
// concurrent use.
type MemoryStorage struct {
	lock sync.RWMutex
	data map[string][]byte
}

// NewMemoryStorage returns an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Get implements Backend.
func (m *MemoryStorage) Get(ctx StorageContext, key []byte) ([]byte, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.data == nil {
		return nil, false, ErrClosed
	}
	value, ok := m.data[string(ctx.Key(key))]
	if !ok {
		return nil, false, nil
	}
	return common.CopyBytes(value), true, nil
}

// Put implements Backend.
func (m *MemoryStorage) Put(ctx StorageContext, key, value []byte) error {
	if ctx.ReadOnly {
		return nil
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.data == nil {
		return ErrClosed
	}
	m.data[string(ctx.Key(key))] = common.CopyBytes(value)
	return nil
}

// Delete implements Backend.
func (m *MemoryStorage) Delete(ctx StorageContext, key []byte) error {
	if ctx.ReadOnly {
		return nil
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.data == nil {
		return ErrClosed
	}
	delete(m.data, string(ctx.Key(key)))
	return nil
}

// Find implements Backend.
func (m *MemoryStorage) Find(ctx StorageContext, prefix []byte) ([]KeyValue, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.data == nil {
		return nil, ErrClosed
	}
	full := ctx.Key(prefix)
	var out []KeyValue
	for k, v := range m.data {
		if bytes.HasPrefix([]byte(k), full) {
			out = append(out, KeyValue{Key: []byte(k[common.ScriptHashLength:]), Value: common.CopyBytes(v)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out, nil
}

// Commit implements Backend. Writes are applied immediately.
func (m *MemoryStorage) Commit() error { return nil }

// Len returns the number of stored entries.
func (m *MemoryStorage) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.data)
}

// Root returns the Merkle root of the whole store.
func (m *MemoryStorage) Root() common.Hash {
	m.lock.RLock()
	defer m.lock.RUnlock()

	entries := make([]KeyValue, 0, len(m.data))
	for k, v := range m.data {
		entries = append(entries, KeyValue{Key: []byte(k), Value: v})
	}
	return MerkleRoot(entries)
}

// Close releases the store. Further use returns ErrClosed.
func (m *MemoryStorage) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.data = nil
	return nil
}
