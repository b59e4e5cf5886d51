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
	"sync"

	"github.com/probechain/neo-zkvm/common"
)

// Change records a single write. NewValue is nil for deletions and
// OldValue is nil when the key did not exist.
type Change struct {
	ScriptHash common.ScriptHash
	Key        []byte
	OldValue   []byte
	NewValue   []byte
}

// TrackedStorage wraps a Backend and journals every effective write.
type TrackedStorage struct {
	Backend

	lock    sync.Mutex
	changes []Change
}

// NewTrackedStorage wraps inner.
func NewTrackedStorage(inner Backend) *TrackedStorage {
	return &TrackedStorage{Backend: inner}
}

// Put implements Backend.
func (t *TrackedStorage) Put(ctx StorageContext, key, value []byte) error {
	if ctx.ReadOnly {
		return nil
	}
	return t.record(ctx, key, common.CopyBytes(value), func() error {
		return t.Backend.Put(ctx, key, value)
	})
}

// Delete implements Backend.
func (t *TrackedStorage) Delete(ctx StorageContext, key []byte) error {
	if ctx.ReadOnly {
		return nil
	}
	return t.record(ctx, key, nil, func() error {
		return t.Backend.Delete(ctx, key)
	})
}

func (t *TrackedStorage) record(ctx StorageContext, key, value []byte, write func() error) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	old, _, err := t.Backend.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := write(); err != nil {
		return err
	}
	t.changes = append(t.changes, Change{
		ScriptHash: ctx.ScriptHash,
		Key:        common.CopyBytes(key),
		OldValue:   old,
		NewValue:   value,
	})
	return nil
}

// Changes returns the journal in write order.
func (t *TrackedStorage) Changes() []Change {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]Change(nil), t.changes...)
}

// Reset clears the journal.
func (t *TrackedStorage) Reset() {
	t.lock.Lock()
	t.changes = nil
	t.lock.Unlock()
}
