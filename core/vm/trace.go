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

package vm

import (
	"encoding/binary"

	lru "github.com/hashicorp/golang-lru"

	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
	"github.com/probechain/neo-zkvm/crypto"
)

// TraceStep records the machine state after one executed instruction.
type TraceStep struct {
	IP          int
	Opcode      Opcode
	StackDepth  int
	GasConsumed uint64
	StateDigest common.Hash
}

// Trace is the execution record of a traced VM.
type Trace struct {
	InitialDigest common.Hash
	Steps         []TraceStep
	FinalDigest   common.Hash
}

// Commitment chains every digest of the trace into a single hash:
// c0 = initial, ci = keccak(ci-1 || step i), result = keccak(cn || final).
func (t *Trace) Commitment() common.Hash {
	if t == nil {
		return common.Hash{}
	}
	c := t.InitialDigest
	for _, step := range t.Steps {
		c = crypto.Keccak256Hash(c[:], step.StateDigest[:])
	}
	return crypto.Keccak256Hash(c[:], t.FinalDigest[:])
}

// unserializableTag marks a result item with no binary form in the final
// digest. It is followed by the item type.
const unserializableTag = 0xFF

// stateDigest hashes the instruction pointer, invocation depth, gas and the
// evaluation stack commitment.
func (v *VM) stateDigest() common.Hash {
	ip := -1
	if ctx := v.Context(); ctx != nil {
		ip = ctx.ip
	}
	buf := make([]byte, 0, 64)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(ip)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v.istack)))
	buf = binary.LittleEndian.AppendUint64(buf, v.gasConsumed)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(v.estack.Len()))
	root := v.estack.digests.root()
	buf = append(buf, root[:]...)
	return crypto.Keccak256Hash(buf)
}

// finalDigest is the state digest bound to the full serialization of the
// result item.
func (v *VM) finalDigest() common.Hash {
	d := v.stateDigest()
	top := v.estack.Top()
	if top == nil {
		return d
	}
	data, err := stackitem.Serialize(top)
	if err != nil {
		data = []byte{unserializableTag, byte(top.Type())}
	}
	return crypto.Keccak256Hash(d[:], data)
}

// ---- Stack commitment ------------------------------------------------------

// memoThreshold is the ByteString length from which fingerprints are
// memoized by backing array.
const memoThreshold = 64

type bytesKey struct {
	data *byte
	n    int
}

// stackDigests commits to the evaluation stack with a hash chain: link i
// hashes link i-1 with the fingerprint of item i. A fingerprint is taken
// once when the item is pushed, and links from the lowest changed position
// up are recomputed on demand. The work per instruction is therefore
// proportional to the stack positions it touches, not to the stack size.
//
// Buffers, containers and interop handles are mutable or opaque and are
// fingerprinted by type only. The result item is bound in full by the final
// digest.
type stackDigests struct {
	prints []common.Hash
	links  []common.Hash
	valid  int // links[:valid] are up to date

	memo   *lru.ARCCache // bytesKey -> common.Hash
	hashed int           // bytes fed to keccak, for accounting
}

func newStackDigests(size int) *stackDigests {
	memo, _ := lru.NewARC(size)
	return &stackDigests{memo: memo}
}

func (d *stackDigests) hash(parts ...[]byte) common.Hash {
	for _, p := range parts {
		d.hashed += len(p)
	}
	return crypto.Keccak256Hash(parts...)
}

func (d *stackDigests) fingerprint(item stackitem.Item) common.Hash {
	tag := []byte{byte(item.Type())}
	switch it := item.(type) {
	case stackitem.ByteString:
		if len(it) < memoThreshold {
			return d.hash(tag, it)
		}
		key := bytesKey{&it[0], len(it)}
		if h, ok := d.memo.Get(key); ok {
			return h.(common.Hash)
		}
		h := d.hash(tag, it)
		d.memo.Add(key, h)
		return h
	case stackitem.Bool, *stackitem.Integer:
		b, _ := it.TryBytes()
		return d.hash(tag, b)
	case *stackitem.Pointer:
		return d.hash(tag, binary.LittleEndian.AppendUint32(nil, uint32(it.Position())))
	}
	return d.hash(tag)
}

func (d *stackDigests) push(item stackitem.Item) {
	d.prints = append(d.prints, d.fingerprint(item))
}

func (d *stackDigests) invalidate(i int) {
	if i < d.valid {
		d.valid = i
	}
}

func (d *stackDigests) truncate(n int) {
	d.prints = d.prints[:n]
	d.invalidate(n)
}

func (d *stackDigests) remove(i int) {
	d.prints = append(d.prints[:i], d.prints[i+1:]...)
	d.invalidate(i)
}

func (d *stackDigests) insert(i int, item stackitem.Item) {
	d.prints = append(d.prints, common.Hash{})
	copy(d.prints[i+1:], d.prints[i:])
	d.prints[i] = d.fingerprint(item)
	d.invalidate(i)
}

func (d *stackDigests) reverse(from int) {
	top := d.prints[from:]
	for i, j := 0, len(top)-1; i < j; i, j = i+1, j-1 {
		top[i], top[j] = top[j], top[i]
	}
	d.invalidate(from)
}

// root returns the top link of the chain, or the zero hash for an empty
// stack.
func (d *stackDigests) root() common.Hash {
	if d == nil || len(d.prints) == 0 {
		return common.Hash{}
	}
	d.links = d.links[:d.valid]
	for i := d.valid; i < len(d.prints); i++ {
		var prev common.Hash
		if i > 0 {
			prev = d.links[i-1]
		}
		d.links = append(d.links, d.hash(prev[:], d.prints[i][:]))
	}
	d.valid = len(d.prints)
	return d.links[d.valid-1]
}
