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
	"github.com/VictoriaMetrics/fastcache"
)

// CachedStorage puts a fastcache read cache in front of a Backend. Misses
// are not cached; writes drop the cached entry.
type CachedStorage struct {
	Backend
	cache *fastcache.Cache
}

// NewCachedStorage wraps inner with a cache of roughly size megabytes.
func NewCachedStorage(inner Backend, size int) *CachedStorage {
	return &CachedStorage{Backend: inner, cache: fastcache.New(size * 1024 * 1024)}
}

// Get implements Backend.
func (c *CachedStorage) Get(ctx StorageContext, key []byte) ([]byte, bool, error) {
	full := ctx.Key(key)
	if value, ok := c.cache.HasGet(nil, full); ok {
		return value, true, nil
	}
	value, ok, err := c.Backend.Get(ctx, key)
	if err != nil || !ok {
		return value, ok, err
	}
	c.cache.Set(full, value)
	return value, true, nil
}

// Put implements Backend.
func (c *CachedStorage) Put(ctx StorageContext, key, value []byte) error {
	if ctx.ReadOnly {
		return nil
	}
	c.cache.Del(ctx.Key(key))
	return c.Backend.Put(ctx, key, value)
}

// Delete implements Backend.
func (c *CachedStorage) Delete(ctx StorageContext, key []byte) error {
	if ctx.ReadOnly {
		return nil
	}
	c.cache.Del(ctx.Key(key))
	return c.Backend.Delete(ctx, key)
}

// Stats reports cache hits and misses.
func (c *CachedStorage) Stats() (hits, misses uint64) {
	var s fastcache.Stats
	c.cache.UpdateStats(&s)
	return s.GetCalls - s.Misses, s.Misses
}
