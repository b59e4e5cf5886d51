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
	"testing"

	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ctxA = StorageContext{ScriptHash: common.ScriptHash{0xaa}}
	ctxB = StorageContext{ScriptHash: common.ScriptHash{0xbb}}
)

func TestMemoryStorageBasics(t *testing.T) {
	s := NewMemoryStorage()

	_, ok, err := s.Get(ctxA, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctxA, []byte("k"), []byte("v1")))
	v, ok, err := s.Get(ctxA, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	// Contexts are isolated.
	_, ok, _ = s.Get(ctxB, []byte("k"))
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctxA, []byte("k")))
	_, ok, _ = s.Get(ctxA, []byte("k"))
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStorageReadOnly(t *testing.T) {
	s := NewMemoryStorage()
	require.NoError(t, s.Put(ctxA, []byte("k"), []byte("v")))

	ro := ctxA.AsReadOnly()
	assert.True(t, ro.ReadOnly)
	assert.False(t, ctxA.ReadOnly)

	require.NoError(t, s.Put(ro, []byte("k"), []byte("other")))
	require.NoError(t, s.Put(ro, []byte("new"), []byte("x")))
	require.NoError(t, s.Delete(ro, []byte("k")))

	v, ok, err := s.Get(ro, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStorageFind(t *testing.T) {
	s := NewMemoryStorage()
	for _, k := range []string{"ab2", "ab1", "b", "abc"} {
		require.NoError(t, s.Put(ctxA, []byte(k), []byte("v"+k)))
	}
	require.NoError(t, s.Put(ctxB, []byte("ab0"), []byte("other")))

	found, err := s.Find(ctxA, []byte("ab"))
	require.NoError(t, err)
	keys := make([]string, len(found))
	for i, kv := range found {
		keys[i] = string(kv.Key)
	}
	assert.Equal(t, []string{"ab1", "ab2", "abc"}, keys)
	assert.Equal(t, []byte("vab1"), found[0].Value)
}

func TestMemoryStorageClosed(t *testing.T) {
	s := NewMemoryStorage()
	require.NoError(t, s.Close())
	_, _, err := s.Get(ctxA, []byte("k"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Put(ctxA, []byte("k"), nil), ErrClosed)
}

func TestMerkleRoot(t *testing.T) {
	assert.Equal(t, common.Hash{}, MerkleRoot(nil))

	a := KeyValue{Key: []byte("a"), Value: []byte("1")}
	b := KeyValue{Key: []byte("b"), Value: []byte("2")}
	c := KeyValue{Key: []byte("c"), Value: []byte("3")}
	la := crypto.Sha256Hash(a.Key, a.Value)
	lb := crypto.Sha256Hash(b.Key, b.Value)
	lc := crypto.Sha256Hash(c.Key, c.Value)

	assert.Equal(t, la, MerkleRoot([]KeyValue{a}))

	ab := crypto.Sha256Hash(la[:], lb[:])
	assert.Equal(t, ab, MerkleRoot([]KeyValue{b, a}), "entries are sorted by key")

	cc := crypto.Sha256Hash(lc[:], lc[:])
	assert.Equal(t, crypto.Sha256Hash(ab[:], cc[:]), MerkleRoot([]KeyValue{a, b, c}))
}

func TestMemoryStorageRoot(t *testing.T) {
	s := NewMemoryStorage()
	assert.Equal(t, common.Hash{}, s.Root())

	require.NoError(t, s.Put(ctxA, []byte("k"), []byte("v")))
	want := MerkleRoot([]KeyValue{{Key: ctxA.Key([]byte("k")), Value: []byte("v")}})
	assert.Equal(t, want, s.Root())

	before := s.Root()
	require.NoError(t, s.Put(ctxA, []byte("k"), []byte("w")))
	assert.NotEqual(t, before, s.Root())
}

func TestTrackedStorage(t *testing.T) {
	s := NewTrackedStorage(NewMemoryStorage())
	require.NoError(t, s.Put(ctxA, []byte("k"), []byte("v1")))
	require.NoError(t, s.Put(ctxA, []byte("k"), []byte("v2")))
	require.NoError(t, s.Delete(ctxA, []byte("k")))
	require.NoError(t, s.Put(ctxA.AsReadOnly(), []byte("k"), []byte("ignored")))

	want := []Change{
		{ScriptHash: ctxA.ScriptHash, Key: []byte("k"), OldValue: nil, NewValue: []byte("v1")},
		{ScriptHash: ctxA.ScriptHash, Key: []byte("k"), OldValue: []byte("v1"), NewValue: []byte("v2")},
		{ScriptHash: ctxA.ScriptHash, Key: []byte("k"), OldValue: []byte("v2"), NewValue: nil},
	}
	assert.Equal(t, want, s.Changes())

	s.Reset()
	assert.Empty(t, s.Changes())
}

func TestCachedStorage(t *testing.T) {
	inner := NewMemoryStorage()
	s := NewCachedStorage(inner, 1)

	require.NoError(t, s.Put(ctxA, []byte("k"), []byte("v1")))
	v, ok, err := s.Get(ctxA, []byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	v, _, _ = s.Get(ctxA, []byte("k"))
	assert.Equal(t, []byte("v1"), v)
	hits, _ := s.Stats()
	assert.Equal(t, uint64(1), hits)

	require.NoError(t, s.Put(ctxA, []byte("k"), []byte("v2")))
	v, _, _ = s.Get(ctxA, []byte("k"))
	assert.Equal(t, []byte("v2"), v, "write must invalidate the cached value")

	require.NoError(t, s.Delete(ctxA, []byte("k")))
	_, ok, _ = s.Get(ctxA, []byte("k"))
	assert.False(t, ok)
}
