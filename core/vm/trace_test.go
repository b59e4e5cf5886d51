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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
)

func tracedRun(t *testing.T, script []byte) *VM {
	t.Helper()
	v := New(1_000_000, WithTracing(true))
	if err := v.LoadScript(script); err != nil {
		t.Fatal(err)
	}
	v.Run()
	return v
}

func TestTraceSteps(t *testing.T) {
	v := tracedRun(t, program(PUSH2, PUSH3, ADD, RET))
	tr := v.Trace()
	if tr == nil {
		t.Fatal("no trace recorded")
	}
	want := []struct {
		ip    int
		op    Opcode
		depth int
		gas   uint64
	}{
		{0, PUSH2, 1, 1},
		{1, PUSH3, 2, 2},
		{2, ADD, 1, 10},
		{3, RET, 1, 10},
	}
	if len(tr.Steps) != len(want) {
		t.Fatalf("trace has %d steps; want %d", len(tr.Steps), len(want))
	}
	for i, w := range want {
		s := tr.Steps[i]
		if s.IP != w.ip || s.Opcode != w.op || s.StackDepth != w.depth || s.GasConsumed != w.gas {
			t.Errorf("step %d = {%d %s %d %d}; want {%d %s %d %d}", i, s.IP, s.Opcode, s.StackDepth, s.GasConsumed, w.ip, w.op, w.depth, w.gas)
		}
		if s.StateDigest == (common.Hash{}) {
			t.Errorf("step %d has an empty digest", i)
		}
	}
	if tr.InitialDigest == (common.Hash{}) || tr.FinalDigest == (common.Hash{}) {
		t.Error("initial or final digest missing")
	}
}

func TestTraceDeterminism(t *testing.T) {
	script := program(PUSH1, PUSH2, PUSH2, PACK, DUP, PUSH0, PICKITEM, SWAP, SIZE, ADD, RET)
	a := tracedRun(t, script).Trace()
	b := tracedRun(t, script).Trace()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("traces differ (-first +second):\n%s", diff)
	}
	if a.Commitment() != b.Commitment() {
		t.Error("commitments differ for identical runs")
	}

	c := tracedRun(t, program(PUSH1, PUSH2, PUSH2, PACK, DUP, PUSH1, PICKITEM, SWAP, SIZE, ADD, RET)).Trace()
	if c.Commitment() == a.Commitment() {
		t.Error("different executions share a commitment")
	}
}

func TestTraceOnFault(t *testing.T) {
	v := tracedRun(t, program(PUSH1, PUSH0, DIV))
	if v.State() != FaultState {
		t.Fatalf("state = %s; want FAULT", v.State())
	}
	tr := v.Trace()
	if len(tr.Steps) != 2 {
		t.Errorf("trace has %d steps; want 2 (faulting instruction is not recorded)", len(tr.Steps))
	}
	if tr.FinalDigest == (common.Hash{}) {
		t.Error("final digest not set on fault")
	}
}

func TestTraceUnserializableItems(t *testing.T) {
	v := tracedRun(t, program(NOP, PUSHA, 0x00, 0x00, 0x00, 0x00, RET))
	if v.State() != HaltState {
		t.Fatalf("state = %s; want HALT", v.State())
	}
	if _, err := stackitem.Serialize(v.Estack().Top()); err == nil {
		t.Fatal("pointer unexpectedly serializable")
	}
	if v.Trace().Steps[1].StateDigest == v.Trace().Steps[0].StateDigest {
		t.Error("pointer push did not change the state digest")
	}
}

func TestTracingDoesNotChangeExecution(t *testing.T) {
	script := program(PUSH5, PUSH3, SUB, PUSH2, MUL, RET)
	plain := newTestVM(t, script)
	runVM(t, plain)
	traced := tracedRun(t, script)
	if plain.GasConsumed() != traced.GasConsumed() || plain.State() != traced.State() {
		t.Errorf("tracing changed the outcome: %s/%d vs %s/%d", plain.State(), plain.GasConsumed(), traced.State(), traced.GasConsumed())
	}
	if plain.Trace() != nil {
		t.Error("untraced VM recorded a trace")
	}
}

func TestCommitmentChaining(t *testing.T) {
	tr := &Trace{
		InitialDigest: common.Hash{1},
		Steps:         []TraceStep{{StateDigest: common.Hash{2}}},
		FinalDigest:   common.Hash{3},
	}
	first := tr.Commitment()
	tr.Steps[0].StateDigest = common.Hash{4}
	if tr.Commitment() == first {
		t.Error("commitment ignores step digests")
	}
	var nilTrace *Trace
	if nilTrace.Commitment() != (common.Hash{}) {
		t.Error("nil trace commitment should be zero")
	}
}

func TestTraceHashingIsIncremental(t *testing.T) {
	const size, dups = 1 << 16, 1000
	script := []byte{byte(PUSHDATA4)}
	script = binary.LittleEndian.AppendUint32(script, size)
	script = append(script, make([]byte, size)...)
	for i := 0; i < dups; i++ {
		script = append(script, byte(DUP))
	}
	script = append(script, byte(RET))

	v := tracedRun(t, script)
	if v.State() != HaltState {
		t.Fatalf("state = %s; want HALT", v.State())
	}
	if n := len(v.Trace().Steps); n != dups+2 {
		t.Fatalf("trace has %d steps; want %d", n, dups+2)
	}
	// The payload is hashed once; every step only hashes fixed-size links.
	if hashed, limit := v.estack.digests.hashed, 2*size+256*(dups+2); hashed > limit {
		t.Errorf("hashed %d bytes for %d steps; want at most %d", hashed, dups+2, limit)
	}
}

func TestStackDigestMatchesRecomputation(t *testing.T) {
	script := program(
		PUSH1, PUSH2, PUSH3, PUSH4, PUSH5, pushString("x"), PUSHNULL, PUSHT,
		SWAP, ROT, PUSH4, REVERSEN, PUSH2, XDROP, PUSH3, ROLL, TUCK, OVER, NIP,
		PUSH2, PACK, DUP, PUSH9, APPEND, DROP,
		RET,
	)
	v := tracedRun(t, script)
	if v.State() != HaltState {
		t.Fatalf("state = %s; want HALT", v.State())
	}
	fresh := newStackDigests(16)
	for _, item := range v.estack.items {
		fresh.push(item)
	}
	if got, want := v.estack.digests.root(), fresh.root(); got != want {
		t.Errorf("incremental root %x differs from recomputed %x", got, want)
	}
}

func TestTraceRollbackKeepsDigest(t *testing.T) {
	a := tracedRun(t, program(PUSH1, PUSH2, NEWARRAY0, PUSH0, PICKITEM))
	b := tracedRun(t, program(PUSH1, PUSH2, NEWARRAY0, PUSH0, NOP))
	if a.State() != FaultState {
		t.Fatalf("state = %s; want FAULT", a.State())
	}
	if a.estack.Len() != 4 {
		t.Fatalf("stack depth after fault = %d; want 4", a.estack.Len())
	}
	if got, want := a.estack.digests.root(), b.estack.digests.root(); got != want {
		t.Errorf("digest after rollback = %x; want %x", got, want)
	}
}
