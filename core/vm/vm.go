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
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
	"github.com/probechain/neo-zkvm/crypto"
)

// ---- States ----------------------------------------------------------------

// VMState is the execution status of a VM.
type VMState uint8

const (
	NoneState VMState = iota
	HaltState
	FaultState
	BreakState
)

func (s VMState) String() string {
	switch s {
	case NoneState:
		return "NONE"
	case HaltState:
		return "HALT"
	case FaultState:
		return "FAULT"
	case BreakState:
		return "BREAK"
	}
	return "UNKNOWN"
}

// ---- Limits ----------------------------------------------------------------

// Limits bounds the resources a single execution may use.
type Limits struct {
	MaxStackSize       int // evaluation stack items, also the largest container
	MaxInvocationDepth int // call frames
	MaxScriptSize      int // bytes
	MaxItemSize        int // bytes of a single ByteString or Buffer
}

var DefaultLimits = Limits{
	MaxStackSize:       2048,
	MaxInvocationDepth: 1024,
	MaxScriptSize:      1024 * 1024,
	MaxItemSize:        stackitem.MaxSize,
}

// ---- Options ---------------------------------------------------------------

type Option func(*VM)

// WithCrypto replaces the provider used by SHA256, RIPEMD160, HASH160 and
// CHECKSIG.
func WithCrypto(p CryptoProvider) Option { return func(v *VM) { v.crypto = p } }

// WithSyscalls installs the host answering SYSCALL. Without one every id is
// unknown.
func WithSyscalls(h SyscallHost) Option { return func(v *VM) { v.syscalls = h } }

// WithTracing turns on per-instruction state digests.
func WithTracing(on bool) Option { return func(v *VM) { v.tracing = on } }

func WithLimits(l Limits) Option { return func(v *VM) { v.limits = l } }

func WithLogger(l log.Logger) Option { return func(v *VM) { v.logger = l } }

// ---- VM --------------------------------------------------------------------

// VM executes a single script. It is not safe for concurrent use.
type VM struct {
	limits   Limits
	crypto   CryptoProvider
	syscalls SyscallHost
	logger   log.Logger

	estack *Stack
	istack []*Context
	static *Slot
	script []byte

	state       VMState
	err         error
	gasLimit    uint64
	gasConsumed uint64

	breakpoints map[int]struct{}

	tracing bool
	trace   *Trace
}

// New returns a VM that may consume at most gasLimit.
func New(gasLimit uint64, opts ...Option) *VM {
	v := &VM{
		limits:      DefaultLimits,
		crypto:      crypto.Provider{},
		logger:      log.Root(),
		gasLimit:    gasLimit,
		breakpoints: make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.estack = NewStack(v.limits.MaxStackSize)
	if v.tracing {
		v.estack.digests = newStackDigests(2 * v.limits.MaxStackSize)
	}
	return v
}

// LoadScript makes script the entry frame.
func (v *VM) LoadScript(script []byte) error {
	if len(script) == 0 {
		return fmt.Errorf("%w: empty script", ErrInvalidScript)
	}
	if len(script) > v.limits.MaxScriptSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidScript, len(script), v.limits.MaxScriptSize)
	}
	v.script = script
	v.static = nil
	v.istack = append(v.istack[:0], newContext(script, 0))
	if v.tracing {
		v.trace = &Trace{InitialDigest: v.stateDigest()}
	}
	return nil
}

func (v *VM) State() VMState      { return v.state }
func (v *VM) GasConsumed() uint64 { return v.gasConsumed }
func (v *VM) GasLimit() uint64    { return v.gasLimit }
func (v *VM) Error() error        { return v.err }
func (v *VM) Estack() *Stack      { return v.estack }
func (v *VM) Limits() Limits      { return v.limits }
func (v *VM) Script() []byte      { return v.script }
func (v *VM) Trace() *Trace       { return v.trace }
func (v *VM) StaticSlot() *Slot   { return v.static }

// Istack returns a copy of the invocation stack, entry frame first.
func (v *VM) Istack() []*Context {
	return append([]*Context(nil), v.istack...)
}

// Context returns the executing frame, or nil once the invocation stack is
// empty.
func (v *VM) Context() *Context {
	if len(v.istack) == 0 {
		return nil
	}
	return v.istack[len(v.istack)-1]
}

// AddBreakPoint stops execution before the instruction at ip.
func (v *VM) AddBreakPoint(ip int) { v.breakpoints[ip] = struct{}{} }

// RemoveBreakPoint clears a breakpoint set by AddBreakPoint.
func (v *VM) RemoveBreakPoint(ip int) { delete(v.breakpoints, ip) }

// Break pauses a running VM. The next ExecuteNext resumes it.
func (v *VM) Break() {
	if v.state == NoneState {
		v.state = BreakState
	}
}

// Run executes until the VM halts, faults or hits a breakpoint.
func (v *VM) Run() error {
	return v.RunContext(context.Background())
}

// RunContext is Run with cancellation checked between instructions. A
// cancelled run leaves the state untouched and returns ctx.Err().
func (v *VM) RunContext(ctx context.Context) error {
	if v.state == BreakState {
		v.state = NoneState
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := v.ExecuteNext(); err != nil {
			return err
		}
		if v.state != NoneState {
			return nil
		}
	}
}

// ExecuteNext runs a single instruction.
func (v *VM) ExecuteNext() error {
	switch v.state {
	case HaltState, FaultState:
		return ErrHalted
	case BreakState:
		v.state = NoneState
	}
	ctx := v.Context()
	if ctx == nil {
		return ErrNoScript
	}
	if ctx.ip >= len(ctx.script) {
		v.halt()
		return nil
	}
	pos := ctx.ip
	op := Opcode(ctx.script[pos])
	operation := defaultJumpTable[op]
	if operation == nil {
		return v.fault(fmt.Errorf("%w: %#02x at %d", ErrInvalidOpcode, byte(op), pos))
	}
	if err := v.useGas(operation.constantGas); err != nil {
		return v.fault(err)
	}
	if v.estack.Len() < operation.minStack {
		return v.fault(fmt.Errorf("%w: %s needs %d items, have %d", ErrStackUnderflow, op, operation.minStack, v.estack.Len()))
	}
	param, next, err := decodeOperand(ctx.script, pos, op)
	if err != nil {
		return v.fault(err)
	}
	ctx.curIP, ctx.ip = pos, next
	v.estack.begin()
	if err := operation.execute(v, ctx, param); err != nil {
		v.estack.rollback()
		return v.fault(fmt.Errorf("%s at %d: %w", op, pos, err))
	}
	if v.tracing {
		v.trace.Steps = append(v.trace.Steps, TraceStep{
			IP:          pos,
			Opcode:      op,
			StackDepth:  v.estack.Len(),
			GasConsumed: v.gasConsumed,
			StateDigest: v.stateDigest(),
		})
	}
	if v.state == HaltState {
		v.halt()
		return nil
	}
	if cur := v.Context(); cur != nil {
		if _, ok := v.breakpoints[cur.ip]; ok {
			v.state = BreakState
		}
	}
	return nil
}

// useGas charges cost, leaving the counter untouched when it does not fit.
func (v *VM) useGas(cost uint64) error {
	if v.gasLimit-v.gasConsumed < cost {
		return fmt.Errorf("%w: need %d, have %d", ErrOutOfGas, cost, v.gasLimit-v.gasConsumed)
	}
	v.gasConsumed += cost
	return nil
}

// AddGas charges extra gas on behalf of a syscall or native contract.
func (v *VM) AddGas(cost uint64) error {
	return v.useGas(cost)
}

func (v *VM) call(script []byte, ip int) error {
	if len(v.istack) >= v.limits.MaxInvocationDepth {
		return fmt.Errorf("%w: %d frames", ErrInvocationOverflow, len(v.istack))
	}
	v.istack = append(v.istack, newContext(script, ip))
	return nil
}

func (v *VM) halt() {
	v.state = HaltState
	if v.tracing {
		v.trace.FinalDigest = v.finalDigest()
	}
	v.logger.Trace("VM halted", "gas", v.gasConsumed, "stack", v.estack.Len())
}

func (v *VM) fault(err error) error {
	v.state = FaultState
	v.err = err
	if v.tracing && v.trace != nil {
		v.trace.FinalDigest = v.finalDigest()
	}
	v.logger.Debug("VM fault", "kind", ErrorKind(err), "gas", v.gasConsumed, "err", err)
	return err
}

// Push places item on the evaluation stack. It is intended for hosts
// preparing arguments or returning syscall results.
func (v *VM) Push(item stackitem.Item) error { return v.estack.Push(item) }

// Pop removes the top of the evaluation stack.
func (v *VM) Pop() (stackitem.Item, error) { return v.estack.Pop() }

// decodeOperand returns the operand of the instruction at pos and the
// position of the following instruction.
func decodeOperand(script []byte, pos int, op Opcode) ([]byte, int, error) {
	start := pos + 1
	if n := op.PrefixSize(); n > 0 {
		if start+n > len(script) {
			return nil, 0, fmt.Errorf("%w: truncated %s length at %d", ErrInvalidScript, op, pos)
		}
		var size uint64
		switch n {
		case 1:
			size = uint64(script[start])
		case 2:
			size = uint64(binary.LittleEndian.Uint16(script[start:]))
		case 4:
			size = uint64(binary.LittleEndian.Uint32(script[start:]))
		}
		start += n
		if size > uint64(len(script)-start) {
			return nil, 0, fmt.Errorf("%w: %s of %d bytes overruns script at %d", ErrInvalidScript, op, size, pos)
		}
		end := start + int(size)
		return script[start:end], end, nil
	}
	end := start + op.OperandSize()
	if end > len(script) {
		return nil, 0, fmt.Errorf("%w: truncated %s operand at %d", ErrInvalidScript, op, pos)
	}
	return script[start:end], end, nil
}
