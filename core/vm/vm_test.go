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
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
)

// ---- Script builder helpers ------------------------------------------------

// program concatenates opcodes, raw operand bytes and byte slices into a
// single script.
func program(parts ...interface{}) []byte {
	var out []byte
	for _, p := range parts {
		switch p := p.(type) {
		case Opcode:
			out = append(out, byte(p))
		case byte:
			out = append(out, p)
		case int:
			out = append(out, byte(p))
		case rune:
			out = append(out, byte(p))
		case []byte:
			out = append(out, p...)
		default:
			panic("program: unsupported part")
		}
	}
	return out
}

// pushInt encodes n as PUSHINT64.
func pushInt(n int64) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(PUSHINT64)
	binary.LittleEndian.PutUint64(buf[1:], uint64(n))
	return buf
}

// pushData encodes b as PUSHDATA1.
func pushData(b []byte) []byte {
	return append([]byte{byte(PUSHDATA1), byte(len(b))}, b...)
}

func pushString(s string) []byte { return pushData([]byte(s)) }

// newTestVM creates a VM with a generous gas limit for tests that do not
// specifically test gas metering.
func newTestVM(t *testing.T, script []byte, opts ...Option) *VM {
	t.Helper()
	v := New(1_000_000, opts...)
	if err := v.LoadScript(script); err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	return v
}

// runVM runs the VM and fails the test unless it halts.
func runVM(t *testing.T, v *VM) {
	t.Helper()
	if err := v.Run(); err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
	if v.State() != HaltState {
		t.Fatalf("state = %s; want HALT", v.State())
	}
}

// runFault runs the VM and checks that it faults with want.
func runFault(t *testing.T, v *VM, want error) {
	t.Helper()
	err := v.Run()
	if !errors.Is(err, want) {
		t.Fatalf("Run error = %v; want %v", err, want)
	}
	if v.State() != FaultState {
		t.Fatalf("state = %s; want FAULT", v.State())
	}
	if v.Error() != err {
		t.Fatalf("Error() = %v; want %v", v.Error(), err)
	}
}

func topInt(t *testing.T, v *VM) int64 {
	t.Helper()
	top := v.Estack().Top()
	if top == nil {
		t.Fatal("evaluation stack is empty")
	}
	n, err := top.TryInteger()
	if err != nil {
		t.Fatalf("top %s is not an integer: %v", spew.Sdump(top), err)
	}
	i, ok := n.Int64()
	if !ok {
		t.Fatalf("top %s does not fit in int64", n)
	}
	return i
}

// ---- Scenarios -------------------------------------------------------------

func TestAddScript(t *testing.T) {
	v := newTestVM(t, []byte{0x12, 0x13, 0x9E, 0x40})
	runVM(t, v)
	if got := topInt(t, v); got != 5 {
		t.Errorf("result = %d; want 5", got)
	}
	if v.Estack().Len() != 1 {
		t.Errorf("stack depth = %d; want 1", v.Estack().Len())
	}
	if v.GasConsumed() != 10 {
		t.Errorf("gas = %d; want 10", v.GasConsumed())
	}
}

func TestDivisionByZeroScript(t *testing.T) {
	v := newTestVM(t, []byte{0x15, 0x10, 0xA1, 0x40})
	runFault(t, v, ErrDivisionByZero)
	if kind := ErrorKind(v.Error()); kind != "DivisionByZero" {
		t.Errorf("ErrorKind = %q; want DivisionByZero", kind)
	}
}

func TestOutOfGasScript(t *testing.T) {
	v := New(1)
	if err := v.LoadScript([]byte{0x12, 0x13, 0x9E, 0x40}); err != nil {
		t.Fatal(err)
	}
	runFault(t, v, ErrOutOfGas)
	if v.GasConsumed() != 1 {
		t.Errorf("gas = %d; want 1", v.GasConsumed())
	}
	if v.Estack().Len() != 1 {
		t.Errorf("stack depth = %d; want 1 (PUSH3 must not run)", v.Estack().Len())
	}
}

func TestJumpScript(t *testing.T) {
	v := newTestVM(t, []byte{0x22, 0x04, 0x11, 0x40, 0x12, 0x40})
	runVM(t, v)
	if got := topInt(t, v); got != 2 {
		t.Errorf("result = %d; want 2", got)
	}
	if v.Estack().Len() != 1 {
		t.Errorf("stack depth = %d; want 1", v.Estack().Len())
	}
}

// ---- Gas boundaries --------------------------------------------------------

func TestExactGasLimit(t *testing.T) {
	script := []byte{0x12, 0x13, 0x9E, 0x40}

	v := New(10)
	v.LoadScript(script)
	runVM(t, v)
	if v.GasConsumed() != 10 {
		t.Errorf("gas = %d; want 10", v.GasConsumed())
	}

	v = New(9)
	v.LoadScript(script)
	runFault(t, v, ErrOutOfGas)
	if v.GasConsumed() != 2 {
		t.Errorf("gas after fault = %d; want 2", v.GasConsumed())
	}
}

func TestNoGasAfterTerminalState(t *testing.T) {
	v := newTestVM(t, program(PUSH1, RET))
	runVM(t, v)
	gas := v.GasConsumed()
	if err := v.ExecuteNext(); !errors.Is(err, ErrHalted) {
		t.Fatalf("ExecuteNext after halt = %v; want ErrHalted", err)
	}
	if v.GasConsumed() != gas {
		t.Errorf("gas changed after halt: %d -> %d", gas, v.GasConsumed())
	}

	v = newTestVM(t, program(PUSH0, PUSH0, DIV))
	runFault(t, v, ErrDivisionByZero)
	if err := v.ExecuteNext(); !errors.Is(err, ErrHalted) {
		t.Fatalf("ExecuteNext after fault = %v; want ErrHalted", err)
	}
}

// ---- Dispatcher ------------------------------------------------------------

func TestLoadScriptErrors(t *testing.T) {
	v := New(100)
	if err := v.LoadScript(nil); !errors.Is(err, ErrInvalidScript) {
		t.Errorf("empty script: err = %v; want ErrInvalidScript", err)
	}
	v = New(100, WithLimits(Limits{MaxStackSize: 16, MaxInvocationDepth: 4, MaxScriptSize: 4, MaxItemSize: 16}))
	if err := v.LoadScript(make([]byte, 5)); !errors.Is(err, ErrInvalidScript) {
		t.Errorf("oversized script: err = %v; want ErrInvalidScript", err)
	}
}

func TestExecuteWithoutScript(t *testing.T) {
	v := New(100)
	if err := v.ExecuteNext(); !errors.Is(err, ErrNoScript) {
		t.Fatalf("err = %v; want ErrNoScript", err)
	}
	if v.State() != NoneState {
		t.Errorf("state = %s; want NONE", v.State())
	}
}

func TestImplicitReturn(t *testing.T) {
	v := newTestVM(t, program(PUSH7))
	runVM(t, v)
	if got := topInt(t, v); got != 7 {
		t.Errorf("result = %d; want 7", got)
	}
	if len(v.Istack()) != 1 {
		t.Errorf("invocation depth = %d; want 1 (frame is kept at end of script)", len(v.Istack()))
	}
}

func TestInvalidOpcode(t *testing.T) {
	v := newTestVM(t, []byte{0xFF})
	runFault(t, v, ErrInvalidOpcode)
	if v.GasConsumed() != 0 {
		t.Errorf("gas = %d; want 0", v.GasConsumed())
	}
}

func TestFaultCases(t *testing.T) {
	cases := []struct {
		name   string
		script []byte
		want   error
		kind   string
	}{
		{"drop empty", program(DROP), ErrStackUnderflow, "StackUnderflow"},
		{"add null", program(PUSHNULL, PUSH1, ADD), ErrInvalidType, "InvalidType"},
		{"unknown syscall", program(SYSCALL, 0x01, 0x00, 0x00, 0x00), ErrUnknownSyscall, "UnknownSyscall"},
		{"truncated syscall", program(SYSCALL, 0x01, 0x00), ErrInvalidScript, "InvalidScript"},
		{"missing jump offset", program(JMP), ErrInvalidScript, "InvalidScript"},
		{"truncated pushdata", program(PUSHDATA1, 0x05, 0x01), ErrInvalidScript, "InvalidScript"},
		{"jump past end", program(JMP, 0x7F), ErrInvalidScript, "InvalidScript"},
		{"jump before start", program(NOP, JMP, 0xF0), ErrInvalidScript, "InvalidScript"},
		{"negative newarray", program(PUSHM1, NEWARRAY), ErrInvalidOperation, "InvalidOperation"},
		{"pick out of range", program(PUSH1, PUSH5, PICK), ErrStackUnderflow, "StackUnderflow"},
		{"roll out of range", program(PUSH1, PUSH1, ROLL), ErrStackUnderflow, "StackUnderflow"},
		{"xdrop out of range", program(PUSH1, PUSH2, XDROP), ErrStackUnderflow, "StackUnderflow"},
		{"pick negative", program(PUSH1, PUSHM1, PICK), ErrInvalidOperation, "InvalidOperation"},
		{"size of integer", program(PUSH1, SIZE), ErrInvalidType, "InvalidType"},
		{"pickitem out of bounds", program(NEWARRAY0, PUSH0, PICKITEM), ErrInvalidOperation, "InvalidOperation"},
		{"setitem out of bounds", program(NEWARRAY0, PUSH0, PUSH1, SETITEM), ErrInvalidOperation, "InvalidOperation"},
		{"remove out of bounds", program(NEWARRAY0, PUSH0, REMOVE), ErrInvalidOperation, "InvalidOperation"},
		{"abort", program(ABORT), ErrAbort, "InvalidOperation"},
		{"assert false", program(PUSHF, ASSERT), ErrAssertFailed, "InvalidOperation"},
		{"callA on integer", program(PUSH1, CALLA), ErrInvalidType, "InvalidType"},
		{"overflow", program(PUSH1, pushInt(127), SHL), ErrOverflow, "InvalidOperation"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := newTestVM(t, c.script)
			runFault(t, v, c.want)
			if kind := ErrorKind(v.Error()); kind != c.kind {
				t.Errorf("ErrorKind = %q; want %q", kind, c.kind)
			}
		})
	}
}

func TestThrowMessage(t *testing.T) {
	v := newTestVM(t, program(pushString("boom"), THROW))
	runFault(t, v, ErrThrow)
	if !strings.Contains(v.Error().Error(), "boom") {
		t.Errorf("error %q does not carry the thrown message", v.Error())
	}
}

// ---- Control flow ----------------------------------------------------------

func TestJumpIf(t *testing.T) {
	cases := []struct {
		cond Opcode
		want int64
	}{
		{PUSHT, 2},
		{PUSHF, 1},
	}
	for _, c := range cases {
		// 0:cond 1:JMPIF +4 3:PUSH1 4:RET 5:PUSH2 6:RET
		v := newTestVM(t, program(c.cond, JMPIF, 0x04, PUSH1, RET, PUSH2, RET))
		runVM(t, v)
		if got := topInt(t, v); got != c.want {
			t.Errorf("%s JMPIF: result = %d; want %d", c.cond, got, c.want)
		}
		if v.Estack().Len() != 1 {
			t.Errorf("%s JMPIF: condition left on stack", c.cond)
		}
	}
}

func TestUntakenJumpTarget(t *testing.T) {
	// 0:PUSHF 1:JMPIF +0x70 3:PUSH3 4:RET
	v := newTestVM(t, program(PUSHF, JMPIF, 0x70, PUSH3, RET))
	runVM(t, v)
	if got := topInt(t, v); got != 3 {
		t.Errorf("result = %d; want 3", got)
	}

	v = newTestVM(t, program(PUSHT, JMPIF, 0x70, PUSH3, RET))
	runFault(t, v, ErrInvalidScript)
}

func TestConditionalJumps(t *testing.T) {
	cases := []struct {
		op   Opcode
		a, b Opcode
		jump bool
	}{
		{JMPEQ, PUSH1, PUSH1, true},
		{JMPEQ, PUSH1, PUSH2, false},
		{JMPNE, PUSH1, PUSH2, true},
		{JMPGT, PUSH2, PUSH1, true},
		{JMPGT, PUSH1, PUSH1, false},
		{JMPGE, PUSH1, PUSH1, true},
		{JMPLT, PUSH1, PUSH2, true},
		{JMPLT, PUSH2, PUSH1, false},
		{JMPLE, PUSH2, PUSH2, true},
		{JMPIFNOT, PUSH0, PUSH0, true},
	}
	for _, c := range cases {
		// 0:a 1:b 2:op +4 4:PUSH0 5:RET 6:PUSH10 7:RET
		v := newTestVM(t, program(c.a, c.b, c.op, 0x04, PUSH0, RET, PUSH10, RET))
		runVM(t, v)
		want := int64(0)
		if c.jump {
			want = 10
		}
		if got := topInt(t, v); got != want {
			t.Errorf("%s %s %s: result = %d; want %d", c.a, c.b, c.op, got, want)
		}
	}
}

func TestLongJump(t *testing.T) {
	// 0:JMP_L +7 5:PUSH1 6:RET 7:PUSH2 8:RET
	v := newTestVM(t, program(JMPL, 0x07, 0x00, 0x00, 0x00, PUSH1, RET, PUSH2, RET))
	runVM(t, v)
	if got := topInt(t, v); got != 2 {
		t.Errorf("result = %d; want 2", got)
	}
}

func TestJumpToEndHalts(t *testing.T) {
	v := newTestVM(t, program(PUSH3, JMP, 0x02))
	runVM(t, v)
	if got := topInt(t, v); got != 3 {
		t.Errorf("result = %d; want 3", got)
	}
}

func TestCallAndReturn(t *testing.T) {
	// 0:CALL +3 2:RET 3:PUSH2 4:RET
	v := newTestVM(t, program(CALL, 0x03, RET, PUSH2, RET))
	runVM(t, v)
	if got := topInt(t, v); got != 2 {
		t.Errorf("result = %d; want 2", got)
	}
	if len(v.Istack()) != 0 {
		t.Errorf("invocation depth = %d; want 0", len(v.Istack()))
	}
}

func TestCallA(t *testing.T) {
	// 0:PUSHA +7 5:CALLA 6:RET 7:PUSH3 8:RET
	v := newTestVM(t, program(PUSHA, 0x07, 0x00, 0x00, 0x00, CALLA, RET, PUSH3, RET))
	runVM(t, v)
	if got := topInt(t, v); got != 3 {
		t.Errorf("result = %d; want 3", got)
	}
	if v.Estack().Len() != 1 {
		t.Errorf("stack depth = %d; want 1", v.Estack().Len())
	}
}

func TestInvocationOverflow(t *testing.T) {
	v := New(1<<30, WithLimits(Limits{MaxStackSize: 16, MaxInvocationDepth: 8, MaxScriptSize: 64, MaxItemSize: 64}))
	v.LoadScript(program(CALL, 0x00))
	runFault(t, v, ErrInvocationOverflow)
	if len(v.Istack()) != 8 {
		t.Errorf("invocation depth = %d; want 8", len(v.Istack()))
	}
}

func TestStackOverflow(t *testing.T) {
	v := New(1<<20, WithLimits(Limits{MaxStackSize: 4, MaxInvocationDepth: 8, MaxScriptSize: 64, MaxItemSize: 64}))
	// 0:PUSH1 1:JMP -1
	v.LoadScript(program(PUSH1, JMP, 0xFF))
	runFault(t, v, ErrStackOverflow)
	if !errors.Is(v.Error(), ErrInvalidOperation) {
		t.Errorf("stack overflow should be an InvalidOperation: %v", v.Error())
	}
	if v.Estack().Len() != 4 {
		t.Errorf("stack depth = %d; want 4", v.Estack().Len())
	}
}

// ---- Slots -----------------------------------------------------------------

func TestInitSlotArgumentOrder(t *testing.T) {
	v := newTestVM(t, program(PUSH1, PUSH2, INITSLOT, 0x00, 0x02, LDARG0, LDARG1, RET))
	runVM(t, v)
	if v.Context() != nil {
		t.Fatal("frame should be popped after RET")
	}
	items := v.Estack().Items()
	if len(items) != 2 {
		t.Fatalf("stack depth = %d; want 2", len(items))
	}
	for i, want := range []int64{1, 2} {
		n, _ := items[i].TryInteger()
		if got, _ := n.Int64(); got != want {
			t.Errorf("item %d = %d; want %d", i, got, want)
		}
	}
}

func TestSlots(t *testing.T) {
	cases := []struct {
		name   string
		script []byte
		want   int64
		err    error
	}{
		{"static", program(INITSSLOT, 0x01, PUSH5, STSFLD0, LDSFLD0), 5, nil},
		{"static long form", program(INITSSLOT, 0x03, PUSH6, STSFLD, 0x02, LDSFLD, 0x02), 6, nil},
		{"local", program(INITSLOT, 0x02, 0x00, PUSH7, STLOC1, LDLOC1), 7, nil},
		{"argument store", program(PUSH1, INITSLOT, 0x00, 0x01, PUSH9, STARG0, LDARG0), 9, nil},
		{"static twice", program(INITSSLOT, 0x01, INITSSLOT, 0x01), 0, ErrInvalidOperation},
		{"static zero", program(INITSSLOT, 0x00), 0, ErrInvalidOperation},
		{"initslot twice", program(INITSLOT, 0x01, 0x00, INITSLOT, 0x01, 0x00), 0, ErrInvalidOperation},
		{"initslot zero", program(INITSLOT, 0x00, 0x00), 0, ErrInvalidOperation},
		{"initslot missing args", program(INITSLOT, 0x00, 0x02), 0, ErrStackUnderflow},
		{"uninitialized local", program(LDLOC0), 0, ErrInvalidOperation},
		{"uninitialized static", program(PUSH1, STSFLD0), 0, ErrInvalidOperation},
		{"local out of range", program(INITSLOT, 0x01, 0x00, LDLOC, 0x07), 0, ErrInvalidOperation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := newTestVM(t, c.script)
			if c.err != nil {
				runFault(t, v, c.err)
				return
			}
			runVM(t, v)
			if got := topInt(t, v); got != c.want {
				t.Errorf("result = %d; want %d", got, c.want)
			}
		})
	}
}

func TestSlotsAreNullInitialized(t *testing.T) {
	v := newTestVM(t, program(INITSLOT, 0x01, 0x00, LDLOC0, ISNULL))
	runVM(t, v)
	if !v.Estack().Top().Bool() {
		t.Error("fresh local slot is not Null")
	}
}

func TestCallFramesShareStatics(t *testing.T) {
	// 0:INITSSLOT 1 2:CALL +5 4:LDSFLD0 5:RET 6:NOP 7:PUSH8 8:STSFLD0 9:RET
	v := newTestVM(t, program(INITSSLOT, 0x01, CALL, 0x05, LDSFLD0, RET, NOP, PUSH8, STSFLD0, RET))
	runVM(t, v)
	if got := topInt(t, v); got != 8 {
		t.Errorf("result = %d; want 8", got)
	}
}

// ---- Host interaction ------------------------------------------------------

type testHost struct {
	prices  map[uint32]uint64
	invoked []uint32
}

func (h *testHost) Price(id uint32) (uint64, bool) {
	p, ok := h.prices[id]
	return p, ok
}

func (h *testHost) Invoke(id uint32, v *VM) error {
	h.invoked = append(h.invoked, id)
	return v.Push(stackitem.NewInt(42))
}

func TestSyscall(t *testing.T) {
	host := &testHost{prices: map[uint32]uint64{0x07: 100}}
	script := program(SYSCALL, 0x07, 0x00, 0x00, 0x00, RET)

	v := New(100, WithSyscalls(host))
	v.LoadScript(script)
	runVM(t, v)
	if got := topInt(t, v); got != 42 {
		t.Errorf("result = %d; want 42", got)
	}
	if v.GasConsumed() != 100 {
		t.Errorf("gas = %d; want 100", v.GasConsumed())
	}

	host.invoked = nil
	v = New(99, WithSyscalls(host))
	v.LoadScript(script)
	runFault(t, v, ErrOutOfGas)
	if len(host.invoked) != 0 {
		t.Errorf("host invoked %d times after failing to pay", len(host.invoked))
	}

	v = New(1000, WithSyscalls(host))
	v.LoadScript(program(SYSCALL, 0x08, 0x00, 0x00, 0x00))
	runFault(t, v, ErrUnknownSyscall)
}

func TestBreakPoints(t *testing.T) {
	v := newTestVM(t, program(PUSH1, PUSH2, PUSH3, RET))
	v.AddBreakPoint(2)
	if err := v.Run(); err != nil {
		t.Fatal(err)
	}
	if v.State() != BreakState {
		t.Fatalf("state = %s; want BREAK", v.State())
	}
	if v.Estack().Len() != 2 {
		t.Errorf("stack depth at break = %d; want 2", v.Estack().Len())
	}
	runVM(t, v)
	if v.Estack().Len() != 3 {
		t.Errorf("stack depth = %d; want 3", v.Estack().Len())
	}
}

func TestBreakStepping(t *testing.T) {
	v := newTestVM(t, program(PUSH1, PUSH2, RET))
	v.Break()
	if v.State() != BreakState {
		t.Fatalf("state = %s; want BREAK", v.State())
	}
	if err := v.ExecuteNext(); err != nil {
		t.Fatal(err)
	}
	if v.State() != NoneState {
		t.Errorf("state after step = %s; want NONE", v.State())
	}
	if v.Estack().Len() != 1 {
		t.Errorf("stack depth = %d; want 1", v.Estack().Len())
	}
}

func TestRunContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := newTestVM(t, program(PUSH1, RET))
	if err := v.RunContext(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v; want context.Canceled", err)
	}
	if v.State() != NoneState {
		t.Errorf("state = %s; want NONE", v.State())
	}
	if v.GasConsumed() != 0 {
		t.Errorf("gas = %d; want 0", v.GasConsumed())
	}
}

func TestVMStateString(t *testing.T) {
	cases := []struct {
		s    VMState
		want string
	}{
		{NoneState, "NONE"},
		{HaltState, "HALT"},
		{FaultState, "FAULT"},
		{BreakState, "BREAK"},
		{VMState(9), "UNKNOWN"},
	}
	for _, c := range cases {
		if got := c.s.String(); got != c.want {
			t.Errorf("VMState(%d).String() = %q; want %q", c.s, got, c.want)
		}
	}
}

func TestErrorKind(t *testing.T) {
	if ErrorKind(nil) != "" {
		t.Error("ErrorKind(nil) should be empty")
	}
	if got := ErrorKind(errors.New("other")); got != "Unknown" {
		t.Errorf("ErrorKind(other) = %q; want Unknown", got)
	}
	if got := ErrorKind(ErrThrow); got != "InvalidOperation" {
		t.Errorf("ErrorKind(ErrThrow) = %q; want InvalidOperation", got)
	}
}
