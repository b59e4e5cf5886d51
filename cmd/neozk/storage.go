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

package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/interop"
	"github.com/probechain/neo-zkvm/core/native"
	"github.com/probechain/neo-zkvm/storage"
	"github.com/probechain/neo-zkvm/storage/leveldb"
)

// environment is the host side shared by the executions of one command:
// the storage stack and the native contracts.
type environment struct {
	store   *storage.TrackedStorage
	cache   *storage.CachedStorage // nil when caching is disabled
	natives *native.Registry
	cfg     storage.Config

	root  func() (common.Hash, error)
	close func() error
}

// openEnvironment opens the configured backend and wraps it in the optional
// read cache and then the change tracker.
func openEnvironment(cfg storage.Config) (*environment, error) {
	var (
		inner storage.Backend
		root  func() (common.Hash, error)
		close func() error
	)
	switch cfg.Backend {
	case "", "memory":
		mem := storage.NewMemoryStorage()
		inner, close = mem, mem.Close
		root = func() (common.Hash, error) { return mem.Root(), nil }
	case "leveldb":
		if cfg.Path == "" {
			return nil, fmt.Errorf("leveldb storage needs a path")
		}
		db, err := leveldb.New(cfg.Path, 0, 0, cfg.ReadOnly)
		if err != nil {
			return nil, err
		}
		inner, root, close = db, db.Root, db.Close
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	env := &environment{natives: native.NewRegistry(), cfg: cfg, root: root, close: close}
	if cfg.CacheSize > 0 {
		env.cache = storage.NewCachedStorage(inner, cfg.CacheSize)
		inner = env.cache
	}
	env.store = storage.NewTrackedStorage(inner)
	log.Debug("Opened storage", "backend", cfg.Backend, "path", cfg.Path, "cache", cfg.CacheSize)
	return env, nil
}

func (env *environment) newHost(cfg interop.Config) *interop.Host {
	opts := []interop.Option{
		interop.WithStorage(env.store),
		interop.WithNatives(env.natives),
	}
	if env.cfg.ReadOnly {
		opts = append(opts, interop.WithReadOnlyStorage())
	}
	return interop.NewHost(cfg, opts...)
}

// commit flushes the tracked writes to the backend and returns them.
func (env *environment) commit() ([]storage.Change, error) {
	changes := env.store.Changes()
	if err := env.store.Commit(); err != nil {
		return nil, err
	}
	env.store.Reset()
	if env.cache != nil {
		hits, misses := env.cache.Stats()
		log.Debug("Storage cache", "hits", hits, "misses", misses)
	}
	return changes, nil
}

// discard forgets the tracked writes without committing them. Backends that
// apply writes immediately keep them.
func (env *environment) discard() {
	env.store.Reset()
}

func (env *environment) Close() error {
	return env.close()
}
