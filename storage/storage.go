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

// Package storage defines the contract storage consumed by the storage
// syscalls, together with in-memory, change-tracking and cached backends.
package storage

import (
	"bytes"
	"errors"
	"sort"

	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/crypto"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("storage: closed")

// StorageContext scopes storage access to a single script.
type StorageContext struct {
	ScriptHash common.ScriptHash
	ReadOnly   bool
}

// AsReadOnly returns a copy of the context that ignores writes.
func (c StorageContext) AsReadOnly() StorageContext {
	c.ReadOnly = true
	return c
}

// Key returns the backend key of key within the context.
func (c StorageContext) Key(key []byte) []byte {
	full := make([]byte, 0, common.ScriptHashLength+len(key))
	full = append(full, c.ScriptHash[:]...)
	return append(full, key...)
}

// KeyValue is a single storage entry.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// Backend is a key-value store partitioned by script hash. Writes through
// a read-only context are ignored.
type Backend interface {
	Get(ctx StorageContext, key []byte) ([]byte, bool, error)
	Put(ctx StorageContext, key, value []byte) error
	Delete(ctx StorageContext, key []byte) error
	// Find returns the entries under prefix in key order, with the script
	// hash stripped from the keys.
	Find(ctx StorageContext, prefix []byte) ([]KeyValue, error)
	Commit() error
}

// Config selects and sizes the storage backend.
type Config struct {
	Backend   string // "memory" or "leveldb"
	Path      string
	CacheSize int // megabytes of read cache, 0 disables it
	ReadOnly  bool
}

// DefaultConfig contains default settings for command line use.
var DefaultConfig = Config{
	Backend:   "memory",
	CacheSize: 16,
}

// ---- Merkle commitment -----------------------------------------------------

// MerkleRoot commits to entries given with full backend keys. Entries are
// sorted by key, each leaf is sha256(key || value) and each parent is
// sha256(left || right), with an odd node paired with itself. An empty set
// has the zero root.
func MerkleRoot(entries []KeyValue) common.Hash {
	if len(entries) == 0 {
		return common.Hash{}
	}
	sorted := append([]KeyValue(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i].Key, sorted[j].Key) < 0 })

	level := make([]common.Hash, len(sorted))
	for i, e := range sorted {
		level[i] = crypto.Sha256Hash(e.Key, e.Value)
	}
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left, right := level[i], level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, crypto.Sha256Hash(left[:], right[:]))
		}
		level = next
	}
	return level[0]
}
