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

// Package leveldb implements the contract storage backend on top of
// goleveldb.
package leveldb

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/storage"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	memstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to
	// leveldb read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the
	// open database files.
	minHandles = 16
)

// Database is a persistent storage.Backend. Writes are buffered in a batch
// until Commit.
type Database struct {
	fn string
	db *leveldb.DB

	lock  sync.Mutex
	batch *leveldb.Batch
	dirty map[string][]byte // pending writes, nil value for deletes

	log log.Logger
}

// New returns a wrapped LevelDB object.
func New(file string, cache int, handles int, readonly bool) (*Database, error) {
	if cache < minCache {
		cache = minCache
	}
	if handles < minHandles {
		handles = minHandles
	}
	logger := log.New("database", file)
	logger.Info("Allocated cache and file handles", "cache", cache, "handles", handles)

	db, err := leveldb.OpenFile(file, &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
		DisableSeeksCompaction: true,
		ReadOnly:               readonly,
	})
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return wrap(file, db, logger), nil
}

// NewMemory returns a Database backed by goleveldb's in-memory storage.
func NewMemory() (*Database, error) {
	db, err := leveldb.Open(memstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return wrap("", db, log.Root()), nil
}

func wrap(fn string, db *leveldb.DB, logger log.Logger) *Database {
	return &Database{
		fn:    fn,
		db:    db,
		batch: new(leveldb.Batch),
		dirty: make(map[string][]byte),
		log:   logger,
	}
}

// Close releases the database. Uncommitted writes are discarded.
func (d *Database) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.dirty) > 0 {
		d.log.Warn("Closing database with uncommitted writes", "count", len(d.dirty))
	}
	return d.db.Close()
}

// Get implements storage.Backend, observing uncommitted writes.
func (d *Database) Get(ctx storage.StorageContext, key []byte) ([]byte, bool, error) {
	full := ctx.Key(key)
	d.lock.Lock()
	if v, ok := d.dirty[string(full)]; ok {
		d.lock.Unlock()
		if v == nil {
			return nil, false, nil
		}
		return common.CopyBytes(v), true, nil
	}
	d.lock.Unlock()

	v, err := d.db.Get(full, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("leveldb get %x: %w", full, err)
	}
	return v, true, nil
}

// Put implements storage.Backend.
func (d *Database) Put(ctx storage.StorageContext, key, value []byte) error {
	if ctx.ReadOnly {
		return nil
	}
	full := ctx.Key(key)
	value = common.CopyBytes(value)
	if value == nil {
		value = []byte{}
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	d.batch.Put(full, value)
	d.dirty[string(full)] = value
	return nil
}

// Delete implements storage.Backend.
func (d *Database) Delete(ctx storage.StorageContext, key []byte) error {
	if ctx.ReadOnly {
		return nil
	}
	full := ctx.Key(key)
	d.lock.Lock()
	defer d.lock.Unlock()
	d.batch.Delete(full)
	d.dirty[string(full)] = nil
	return nil
}

// Find implements storage.Backend. Uncommitted writes are not visible.
func (d *Database) Find(ctx storage.StorageContext, prefix []byte) ([]storage.KeyValue, error) {
	it := d.db.NewIterator(util.BytesPrefix(ctx.Key(prefix)), nil)
	defer it.Release()

	var out []storage.KeyValue
	for it.Next() {
		out = append(out, storage.KeyValue{
			Key:   common.CopyBytes(it.Key()[common.ScriptHashLength:]),
			Value: common.CopyBytes(it.Value()),
		})
	}
	return out, it.Error()
}

// Commit writes the pending batch.
func (d *Database) Commit() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.batch.Len() == 0 {
		return nil
	}
	if err := d.db.Write(d.batch, nil); err != nil {
		return err
	}
	d.batch.Reset()
	d.dirty = make(map[string][]byte)
	return nil
}

// Root returns the Merkle root over all committed entries.
func (d *Database) Root() (common.Hash, error) {
	it := d.db.NewIterator(nil, nil)
	defer it.Release()

	var entries []storage.KeyValue
	for it.Next() {
		entries = append(entries, storage.KeyValue{
			Key:   common.CopyBytes(it.Key()),
			Value: common.CopyBytes(it.Value()),
		})
	}
	if err := it.Error(); err != nil {
		return common.Hash{}, err
	}
	return storage.MerkleRoot(entries), nil
}

// Path returns the path to the database directory.
func (d *Database) Path() string { return d.fn }
