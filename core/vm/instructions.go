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
	"errors"
	"fmt"
	"math"

	"github.com/probechain/neo-zkvm/core/vm/stackitem"
	"github.com/probechain/neo-zkvm/crypto"
)

// ---- Operand helpers -------------------------------------------------------

// offsetOf decodes a signed 1 or 4 byte relative offset.
func offsetOf(param []byte) int {
	if len(param) == 1 {
		return int(int8(param[0]))
	}
	return int(int32(binary.LittleEndian.Uint32(param)))
}

// target resolves a relative offset against the current instruction and
// checks that it stays inside the script. A target equal to the script
// length is allowed and halts on the next step.
func (c *Context) target(offset int) (int, error) {
	t := c.curIP + offset
	if t < 0 || t > len(c.script) {
		return 0, fmt.Errorf("%w: jump target %d outside [0, %d]", ErrInvalidScript, t, len(c.script))
	}
	return t, nil
}

// ---- Stack helpers ---------------------------------------------------------

func (v *VM) push(item stackitem.Item) error { return v.estack.Push(item) }

func (v *VM) pop() (stackitem.Item, error) { return v.estack.Pop() }

func (v *VM) popInt() (*stackitem.Integer, error) {
	item, err := v.pop()
	if err != nil {
		return nil, err
	}
	return item.TryInteger()
}

func (v *VM) popBool() (bool, error) {
	item, err := v.pop()
	if err != nil {
		return false, err
	}
	return item.Bool(), nil
}

func (v *VM) popBytes() ([]byte, error) {
	item, err := v.pop()
	if err != nil {
		return nil, err
	}
	return item.TryBytes()
}

// popIndex pops a non-negative integer usable as an index, count or size.
func (v *VM) popIndex() (int, error) {
	n, err := v.popInt()
	if err != nil {
		return 0, err
	}
	i, ok := n.Int64()
	if !ok || i < 0 || i > math.MaxInt32 {
		return 0, fmt.Errorf("%w: index %s out of range", ErrInvalidOperation, n)
	}
	return int(i), nil
}

// storable returns the item to place into a container or slot. Structs have
// value semantics and are copied.
func storable(item stackitem.Item) (stackitem.Item, error) {
	if s, ok := item.(*stackitem.Struct); ok {
		return s.Clone()
	}
	return item, nil
}

func (v *VM) checkSize(n int) error {
	if n > v.limits.MaxItemSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", stackitem.ErrTooBig, n, v.limits.MaxItemSize)
	}
	return nil
}

// ---- Constants -------------------------------------------------------------

func opPushInt(v *VM, ctx *Context, param []byte) error {
	n, err := stackitem.IntFromBytes(param)
	if err != nil {
		return err
	}
	return v.push(n)
}

func makePushItem(item stackitem.Item) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		return v.push(item)
	}
}

func makePushConst(n int64) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		return v.push(stackitem.NewInt(n))
	}
}

func opPushA(v *VM, ctx *Context, param []byte) error {
	t, err := ctx.target(offsetOf(param))
	if err != nil {
		return err
	}
	return v.push(stackitem.NewPointer(t, ctx.script))
}

func opPushData(v *VM, ctx *Context, param []byte) error {
	if err := v.checkSize(len(param)); err != nil {
		return err
	}
	return v.push(stackitem.ByteString(param))
}

// ---- Flow control ----------------------------------------------------------

func opNop(v *VM, ctx *Context, param []byte) error { return nil }

// makeJump builds a jump handler. cond pops the branch operands and reports
// whether the jump is taken; a nil cond jumps unconditionally.
func makeJump(cond func(v *VM) (bool, error)) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		if cond != nil {
			ok, err := cond(v)
			if err != nil || !ok {
				return err
			}
		}
		// The target is only validated for a branch that is taken.
		t, err := ctx.target(offsetOf(param))
		if err != nil {
			return err
		}
		ctx.ip = t
		return nil
	}
}

func condIf(v *VM) (bool, error) { return v.popBool() }

func condIfNot(v *VM) (bool, error) {
	b, err := v.popBool()
	return !b, err
}

// makeCompareCond pops the right then the left operand and applies test to
// their comparison.
func makeCompareCond(test func(cmp int) bool) func(v *VM) (bool, error) {
	return func(v *VM) (bool, error) {
		x2, err := v.popInt()
		if err != nil {
			return false, err
		}
		x1, err := v.popInt()
		if err != nil {
			return false, err
		}
		return test(x1.Cmp(x2)), nil
	}
}

func opCall(v *VM, ctx *Context, param []byte) error {
	t, err := ctx.target(offsetOf(param))
	if err != nil {
		return err
	}
	return v.call(ctx.script, t)
}

func opCallA(v *VM, ctx *Context, param []byte) error {
	item, err := v.pop()
	if err != nil {
		return err
	}
	p, ok := item.(*stackitem.Pointer)
	if !ok {
		return fmt.Errorf("%w: CALLA on %s", ErrInvalidType, item.Type())
	}
	if p.Position() < 0 || p.Position() > len(ctx.script) || len(p.Script()) != len(ctx.script) {
		return fmt.Errorf("%w: pointer %d outside the current script", ErrInvalidOperation, p.Position())
	}
	return v.call(ctx.script, p.Position())
}

func opAbort(v *VM, ctx *Context, param []byte) error { return ErrAbort }

func opAssert(v *VM, ctx *Context, param []byte) error {
	ok, err := v.popBool()
	if err != nil {
		return err
	}
	if !ok {
		return ErrAssertFailed
	}
	return nil
}

func opThrow(v *VM, ctx *Context, param []byte) error {
	item, err := v.pop()
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrThrow, item)
}

func opRet(v *VM, ctx *Context, param []byte) error {
	v.istack = v.istack[:len(v.istack)-1]
	if len(v.istack) == 0 {
		v.state = HaltState
	}
	return nil
}

func opSyscall(v *VM, ctx *Context, param []byte) error {
	id := binary.LittleEndian.Uint32(param)
	if v.syscalls == nil {
		return fmt.Errorf("%w: %#x", ErrUnknownSyscall, id)
	}
	price, ok := v.syscalls.Price(id)
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownSyscall, id)
	}
	if err := v.useGas(price); err != nil {
		return err
	}
	return v.syscalls.Invoke(id, v)
}

// ---- Stack -----------------------------------------------------------------

func opDepth(v *VM, ctx *Context, param []byte) error {
	return v.push(stackitem.NewInt(int64(v.estack.Len())))
}

func opDrop(v *VM, ctx *Context, param []byte) error {
	_, err := v.pop()
	return err
}

func opNip(v *VM, ctx *Context, param []byte) error {
	_, err := v.estack.Remove(1)
	return err
}

func opXDrop(v *VM, ctx *Context, param []byte) error {
	n, err := v.popIndex()
	if err != nil {
		return err
	}
	_, err = v.estack.Remove(n)
	return err
}

func opClear(v *VM, ctx *Context, param []byte) error {
	v.estack.Clear()
	return nil
}

// makePeek copies the item n positions below the top onto the stack.
func makePeek(n int) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		item, err := v.estack.Peek(n)
		if err != nil {
			return err
		}
		return v.push(item)
	}
}

func opPick(v *VM, ctx *Context, param []byte) error {
	n, err := v.popIndex()
	if err != nil {
		return err
	}
	item, err := v.estack.Peek(n)
	if err != nil {
		return err
	}
	return v.push(item)
}

func opTuck(v *VM, ctx *Context, param []byte) error {
	top, err := v.estack.Peek(0)
	if err != nil {
		return err
	}
	return v.estack.Insert(2, top)
}

// makeRoll moves the item n positions below the top to the top.
func makeRoll(n int) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		return v.roll(n)
	}
}

func (v *VM) roll(n int) error {
	if n == 0 {
		if v.estack.Len() == 0 {
			return ErrStackUnderflow
		}
		return nil
	}
	item, err := v.estack.Remove(n)
	if err != nil {
		return err
	}
	return v.push(item)
}

func opRoll(v *VM, ctx *Context, param []byte) error {
	n, err := v.popIndex()
	if err != nil {
		return err
	}
	return v.roll(n)
}

func makeReverse(n int) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		return v.estack.Reverse(n)
	}
}

func opReverseN(v *VM, ctx *Context, param []byte) error {
	n, err := v.popIndex()
	if err != nil {
		return err
	}
	return v.estack.Reverse(n)
}

// ---- Slots -----------------------------------------------------------------

func opInitSSlot(v *VM, ctx *Context, param []byte) error {
	if v.static != nil {
		return fmt.Errorf("%w: static slots already initialized", ErrInvalidOperation)
	}
	if param[0] == 0 {
		return fmt.Errorf("%w: INITSSLOT with zero slots", ErrInvalidOperation)
	}
	v.static = newSlot(int(param[0]))
	return nil
}

func opInitSlot(v *VM, ctx *Context, param []byte) error {
	if ctx.initialized {
		return fmt.Errorf("%w: frame slots already initialized", ErrInvalidOperation)
	}
	locals, args := int(param[0]), int(param[1])
	if locals == 0 && args == 0 {
		return fmt.Errorf("%w: INITSLOT with zero slots", ErrInvalidOperation)
	}
	if args > v.estack.Len() {
		return fmt.Errorf("%w: INITSLOT needs %d arguments, stack has %d", ErrStackUnderflow, args, v.estack.Len())
	}
	if locals > 0 {
		ctx.local = newSlot(locals)
	}
	if args > 0 {
		ctx.args = newSlot(args)
		for i := args - 1; i >= 0; i-- {
			item, err := v.pop()
			if err != nil {
				return err
			}
			ctx.args.items[i] = item
		}
	}
	ctx.initialized = true
	return nil
}

type slotKind uint8

const (
	staticSlot slotKind = iota
	localSlot
	argumentSlot
)

func (v *VM) slot(ctx *Context, kind slotKind) *Slot {
	switch kind {
	case staticSlot:
		return v.static
	case localSlot:
		return ctx.local
	default:
		return ctx.args
	}
}

// makeLoad reads cell index of a slot bank. A negative index takes the
// index from the one byte operand.
func makeLoad(kind slotKind, index int) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		i := index
		if i < 0 {
			i = int(param[0])
		}
		item, err := v.slot(ctx, kind).Get(i)
		if err != nil {
			return err
		}
		return v.push(item)
	}
}

func makeStore(kind slotKind, index int) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		i := index
		if i < 0 {
			i = int(param[0])
		}
		item, err := v.pop()
		if err != nil {
			return err
		}
		if item, err = storable(item); err != nil {
			return err
		}
		return v.slot(ctx, kind).Set(i, item)
	}
}

// ---- Splice ----------------------------------------------------------------

func opNewBuffer(v *VM, ctx *Context, param []byte) error {
	n, err := v.popIndex()
	if err != nil {
		return err
	}
	if err := v.checkSize(n); err != nil {
		return err
	}
	return v.push(stackitem.NewBuffer(make([]byte, n)))
}

func opMemcpy(v *VM, ctx *Context, param []byte) error {
	count, err := v.popIndex()
	if err != nil {
		return err
	}
	si, err := v.popIndex()
	if err != nil {
		return err
	}
	src, err := v.popBytes()
	if err != nil {
		return err
	}
	if si+count > len(src) {
		return fmt.Errorf("%w: source range [%d, %d) exceeds %d", ErrInvalidOperation, si, si+count, len(src))
	}
	di, err := v.popIndex()
	if err != nil {
		return err
	}
	item, err := v.pop()
	if err != nil {
		return err
	}
	dst, ok := item.(*stackitem.Buffer)
	if !ok {
		return fmt.Errorf("%w: MEMCPY into %s", ErrInvalidType, item.Type())
	}
	if di+count > dst.Len() {
		return fmt.Errorf("%w: destination range [%d, %d) exceeds %d", ErrInvalidOperation, di, di+count, dst.Len())
	}
	copy(dst.Bytes()[di:di+count], src[si:si+count])
	return nil
}

func opCat(v *VM, ctx *Context, param []byte) error {
	x2, err := v.popBytes()
	if err != nil {
		return err
	}
	x1, err := v.popBytes()
	if err != nil {
		return err
	}
	if err := v.checkSize(len(x1) + len(x2)); err != nil {
		return err
	}
	out := make([]byte, 0, len(x1)+len(x2))
	out = append(append(out, x1...), x2...)
	return v.push(stackitem.NewBuffer(out))
}

func opSubstr(v *VM, ctx *Context, param []byte) error {
	count, err := v.popIndex()
	if err != nil {
		return err
	}
	index, err := v.popIndex()
	if err != nil {
		return err
	}
	x, err := v.popBytes()
	if err != nil {
		return err
	}
	if index+count > len(x) {
		return fmt.Errorf("%w: substring [%d, %d) of %d bytes", ErrInvalidOperation, index, index+count, len(x))
	}
	return v.push(stackitem.NewBuffer(append([]byte{}, x[index:index+count]...)))
}

func opLeft(v *VM, ctx *Context, param []byte) error {
	count, err := v.popIndex()
	if err != nil {
		return err
	}
	x, err := v.popBytes()
	if err != nil {
		return err
	}
	if count > len(x) {
		return fmt.Errorf("%w: LEFT %d of %d bytes", ErrInvalidOperation, count, len(x))
	}
	return v.push(stackitem.NewBuffer(append([]byte{}, x[:count]...)))
}

func opRight(v *VM, ctx *Context, param []byte) error {
	count, err := v.popIndex()
	if err != nil {
		return err
	}
	x, err := v.popBytes()
	if err != nil {
		return err
	}
	if count > len(x) {
		return fmt.Errorf("%w: RIGHT %d of %d bytes", ErrInvalidOperation, count, len(x))
	}
	return v.push(stackitem.NewBuffer(append([]byte{}, x[len(x)-count:]...)))
}

// ---- Arithmetic and logic --------------------------------------------------

func makeUnary(f func(x *stackitem.Integer) (*stackitem.Integer, error)) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		x, err := v.popInt()
		if err != nil {
			return err
		}
		r, err := f(x)
		if err != nil {
			return err
		}
		return v.push(r)
	}
}

// makeBinary pops the right operand, then the left one.
func makeBinary(f func(x1, x2 *stackitem.Integer) (stackitem.Item, error)) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		x2, err := v.popInt()
		if err != nil {
			return err
		}
		x1, err := v.popInt()
		if err != nil {
			return err
		}
		r, err := f(x1, x2)
		if err != nil {
			return err
		}
		return v.push(r)
	}
}

func arith(f func(x1, x2 *stackitem.Integer) (*stackitem.Integer, error)) executionFunc {
	return makeBinary(func(x1, x2 *stackitem.Integer) (stackitem.Item, error) {
		r, err := f(x1, x2)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}

func bitwise(f func(x1, x2 *stackitem.Integer) *stackitem.Integer) executionFunc {
	return makeBinary(func(x1, x2 *stackitem.Integer) (stackitem.Item, error) {
		return f(x1, x2), nil
	})
}

func numCompare(test func(cmp int) bool) executionFunc {
	return makeBinary(func(x1, x2 *stackitem.Integer) (stackitem.Item, error) {
		return stackitem.Bool(test(x1.Cmp(x2))), nil
	})
}

// makeOrder builds LT, LE, GT and GE, which push false when either operand
// is Null.
func makeOrder(test func(cmp int) bool) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		r, err := v.pop()
		if err != nil {
			return err
		}
		l, err := v.pop()
		if err != nil {
			return err
		}
		_, rnull := r.(stackitem.Null)
		_, lnull := l.(stackitem.Null)
		if rnull || lnull {
			return v.push(stackitem.Bool(false))
		}
		x2, err := r.TryInteger()
		if err != nil {
			return err
		}
		x1, err := l.TryInteger()
		if err != nil {
			return err
		}
		return v.push(stackitem.Bool(test(x1.Cmp(x2))))
	}
}

func opInvert(v *VM, ctx *Context, param []byte) error {
	x, err := v.popInt()
	if err != nil {
		return err
	}
	return v.push(x.Not())
}

func makeEqual(want bool) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		x2, err := v.pop()
		if err != nil {
			return err
		}
		x1, err := v.pop()
		if err != nil {
			return err
		}
		eq, err := stackitem.Equal(x1, x2)
		if err != nil {
			return err
		}
		return v.push(stackitem.Bool(eq == want))
	}
}

func opSign(v *VM, ctx *Context, param []byte) error {
	x, err := v.popInt()
	if err != nil {
		return err
	}
	return v.push(stackitem.NewInt(int64(x.Sign())))
}

var one = stackitem.NewInt(1)

func opInc(x *stackitem.Integer) (*stackitem.Integer, error) { return x.Add(one) }
func opDec(x *stackitem.Integer) (*stackitem.Integer, error) { return x.Sub(one) }

func opSqrt(x *stackitem.Integer) (*stackitem.Integer, error) { return x.Sqrt() }
func opAbs(x *stackitem.Integer) (*stackitem.Integer, error)  { return x.Abs() }
func opNeg(x *stackitem.Integer) (*stackitem.Integer, error)  { return x.Neg() }

// makeTernary pops three integers, top first, and passes them to f in push
// order.
func makeTernary(f func(x1, x2, x3 *stackitem.Integer) (*stackitem.Integer, error)) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		x3, err := v.popInt()
		if err != nil {
			return err
		}
		x2, err := v.popInt()
		if err != nil {
			return err
		}
		x1, err := v.popInt()
		if err != nil {
			return err
		}
		r, err := f(x1, x2, x3)
		if err != nil {
			return err
		}
		return v.push(r)
	}
}

func opModMul(x1, x2, m *stackitem.Integer) (*stackitem.Integer, error) { return x1.ModMul(x2, m) }
func opModPow(x, e, m *stackitem.Integer) (*stackitem.Integer, error)   { return x.ModPow(e, m) }

func opNot(v *VM, ctx *Context, param []byte) error {
	b, err := v.popBool()
	if err != nil {
		return err
	}
	return v.push(stackitem.Bool(!b))
}

func makeBoolBinary(f func(a, b bool) bool) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		x2, err := v.popBool()
		if err != nil {
			return err
		}
		x1, err := v.popBool()
		if err != nil {
			return err
		}
		return v.push(stackitem.Bool(f(x1, x2)))
	}
}

// opNz applies the same truthiness as NOT, so any item type is accepted.
func opNz(v *VM, ctx *Context, param []byte) error {
	b, err := v.popBool()
	if err != nil {
		return err
	}
	return v.push(stackitem.Bool(b))
}

func opMin(x1, x2 *stackitem.Integer) (stackitem.Item, error) {
	if x1.Cmp(x2) <= 0 {
		return x1, nil
	}
	return x2, nil
}

func opMax(x1, x2 *stackitem.Integer) (stackitem.Item, error) {
	if x1.Cmp(x2) >= 0 {
		return x1, nil
	}
	return x2, nil
}

func opWithin(v *VM, ctx *Context, param []byte) error {
	b, err := v.popInt()
	if err != nil {
		return err
	}
	a, err := v.popInt()
	if err != nil {
		return err
	}
	x, err := v.popInt()
	if err != nil {
		return err
	}
	return v.push(stackitem.Bool(a.Cmp(x) <= 0 && x.Cmp(b) < 0))
}

// ---- Compound types --------------------------------------------------------

func (v *VM) popCount() (int, error) {
	n, err := v.popIndex()
	if err != nil {
		return 0, err
	}
	if n > v.limits.MaxStackSize {
		return 0, fmt.Errorf("%w: size %d exceeds %d", ErrInvalidOperation, n, v.limits.MaxStackSize)
	}
	return n, nil
}

func opPackMap(v *VM, ctx *Context, param []byte) error {
	n, err := v.popCount()
	if err != nil {
		return err
	}
	if 2*n > v.estack.Len() {
		return fmt.Errorf("%w: PACKMAP of %d pairs", ErrStackUnderflow, n)
	}
	m := stackitem.NewMap()
	for i := 0; i < n; i++ {
		key, err := v.pop()
		if err != nil {
			return err
		}
		if err := stackitem.IsValidMapKey(key); err != nil {
			return err
		}
		value, err := v.pop()
		if err != nil {
			return err
		}
		m.Add(key, value)
	}
	return v.push(m)
}

// popItems pops n items; the top of the stack becomes the first element.
func (v *VM) popItems() ([]stackitem.Item, error) {
	n, err := v.popCount()
	if err != nil {
		return nil, err
	}
	if n > v.estack.Len() {
		return nil, fmt.Errorf("%w: packing %d of %d items", ErrStackUnderflow, n, v.estack.Len())
	}
	items := make([]stackitem.Item, n)
	for i := range items {
		if items[i], err = v.pop(); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func opPack(v *VM, ctx *Context, param []byte) error {
	items, err := v.popItems()
	if err != nil {
		return err
	}
	return v.push(stackitem.NewArray(items))
}

func opPackStruct(v *VM, ctx *Context, param []byte) error {
	items, err := v.popItems()
	if err != nil {
		return err
	}
	return v.push(stackitem.NewStruct(items))
}

func opUnpack(v *VM, ctx *Context, param []byte) error {
	item, err := v.pop()
	if err != nil {
		return err
	}
	var n int
	switch c := item.(type) {
	case *stackitem.Map:
		elems := c.Elements()
		for i := len(elems) - 1; i >= 0; i-- {
			if err := v.push(elems[i].Value); err != nil {
				return err
			}
			if err := v.push(elems[i].Key); err != nil {
				return err
			}
		}
		n = len(elems)
	case *stackitem.Array, *stackitem.Struct:
		items := listItems(c)
		for i := len(items) - 1; i >= 0; i-- {
			if err := v.push(items[i]); err != nil {
				return err
			}
		}
		n = len(items)
	default:
		return fmt.Errorf("%w: UNPACK of %s", ErrInvalidType, item.Type())
	}
	return v.push(stackitem.NewInt(int64(n)))
}

func opNewArray0(v *VM, ctx *Context, param []byte) error {
	return v.push(stackitem.NewArray([]stackitem.Item{}))
}

func opNewStruct0(v *VM, ctx *Context, param []byte) error {
	return v.push(stackitem.NewStruct([]stackitem.Item{}))
}

func (v *VM) filledItems(fill func() stackitem.Item) ([]stackitem.Item, error) {
	n, err := v.popCount()
	if err != nil {
		return nil, err
	}
	items := make([]stackitem.Item, n)
	for i := range items {
		items[i] = fill()
	}
	return items, nil
}

func nullItem() stackitem.Item { return stackitem.Null{} }

func opNewArray(v *VM, ctx *Context, param []byte) error {
	items, err := v.filledItems(nullItem)
	if err != nil {
		return err
	}
	return v.push(stackitem.NewArray(items))
}

func opNewStruct(v *VM, ctx *Context, param []byte) error {
	items, err := v.filledItems(nullItem)
	if err != nil {
		return err
	}
	return v.push(stackitem.NewStruct(items))
}

func opNewArrayT(v *VM, ctx *Context, param []byte) error {
	t := stackitem.Type(param[0])
	if !t.IsValid() {
		return fmt.Errorf("%w: NEWARRAY_T of type %#x", ErrInvalidOperation, param[0])
	}
	fill := nullItem
	switch t {
	case stackitem.BooleanT:
		fill = func() stackitem.Item { return stackitem.Bool(false) }
	case stackitem.IntegerT:
		fill = func() stackitem.Item { return stackitem.NewInt(0) }
	case stackitem.ByteStringT:
		fill = func() stackitem.Item { return stackitem.ByteString{} }
	}
	items, err := v.filledItems(fill)
	if err != nil {
		return err
	}
	return v.push(stackitem.NewArray(items))
}

func opNewMap(v *VM, ctx *Context, param []byte) error {
	return v.push(stackitem.NewMap())
}

func listItems(item stackitem.Item) []stackitem.Item {
	switch c := item.(type) {
	case *stackitem.Array:
		return c.Items()
	case *stackitem.Struct:
		return c.Items()
	}
	return nil
}

func opSize(v *VM, ctx *Context, param []byte) error {
	item, err := v.pop()
	if err != nil {
		return err
	}
	var n int
	switch c := item.(type) {
	case stackitem.ByteString:
		n = len(c)
	case *stackitem.Buffer:
		n = c.Len()
	case *stackitem.Array:
		n = c.Len()
	case *stackitem.Struct:
		n = c.Len()
	case *stackitem.Map:
		n = c.Len()
	default:
		return fmt.Errorf("%w: SIZE of %s", ErrInvalidType, item.Type())
	}
	return v.push(stackitem.NewInt(int64(n)))
}

// indexOf converts key into an index below n.
func indexOf(key stackitem.Item, n int) (int, error) {
	k, err := key.TryInteger()
	if err != nil {
		return 0, err
	}
	i, ok := k.Int64()
	if !ok || i < 0 || i >= int64(n) {
		return 0, fmt.Errorf("%w: index %s out of range [0, %d)", ErrInvalidOperation, k, n)
	}
	return int(i), nil
}

func opHasKey(v *VM, ctx *Context, param []byte) error {
	key, err := v.pop()
	if err != nil {
		return err
	}
	item, err := v.pop()
	if err != nil {
		return err
	}
	var n int
	switch c := item.(type) {
	case *stackitem.Map:
		if err := stackitem.IsValidMapKey(key); err != nil {
			return err
		}
		return v.push(stackitem.Bool(c.Has(key)))
	case *stackitem.Array, *stackitem.Struct:
		n = len(listItems(c))
	case *stackitem.Buffer:
		n = c.Len()
	case stackitem.ByteString:
		n = len(c)
	default:
		return fmt.Errorf("%w: HASKEY on %s", ErrInvalidType, item.Type())
	}
	k, err := key.TryInteger()
	if err != nil {
		return err
	}
	if k.Sign() < 0 {
		return fmt.Errorf("%w: negative index %s", ErrInvalidOperation, k)
	}
	return v.push(stackitem.Bool(k.Cmp(stackitem.NewInt(int64(n))) < 0))
}

func opKeys(v *VM, ctx *Context, param []byte) error {
	item, err := v.pop()
	if err != nil {
		return err
	}
	m, ok := item.(*stackitem.Map)
	if !ok {
		return fmt.Errorf("%w: KEYS of %s", ErrInvalidType, item.Type())
	}
	keys := make([]stackitem.Item, 0, m.Len())
	for _, e := range m.Elements() {
		keys = append(keys, e.Key)
	}
	return v.push(stackitem.NewArray(keys))
}

func opValues(v *VM, ctx *Context, param []byte) error {
	item, err := v.pop()
	if err != nil {
		return err
	}
	var src []stackitem.Item
	switch c := item.(type) {
	case *stackitem.Map:
		for _, e := range c.Elements() {
			src = append(src, e.Value)
		}
	case *stackitem.Array, *stackitem.Struct:
		src = listItems(c)
	default:
		return fmt.Errorf("%w: VALUES of %s", ErrInvalidType, item.Type())
	}
	values := make([]stackitem.Item, len(src))
	for i, val := range src {
		if values[i], err = storable(val); err != nil {
			return err
		}
	}
	return v.push(stackitem.NewArray(values))
}

func opPickItem(v *VM, ctx *Context, param []byte) error {
	key, err := v.pop()
	if err != nil {
		return err
	}
	item, err := v.pop()
	if err != nil {
		return err
	}
	switch c := item.(type) {
	case *stackitem.Map:
		if err := stackitem.IsValidMapKey(key); err != nil {
			return err
		}
		val, ok := c.Get(key)
		if !ok {
			return fmt.Errorf("%w: key %s not found", ErrInvalidOperation, key)
		}
		return v.push(val)
	case *stackitem.Array, *stackitem.Struct:
		items := listItems(c)
		i, err := indexOf(key, len(items))
		if err != nil {
			return err
		}
		return v.push(items[i])
	case stackitem.ByteString, *stackitem.Buffer:
		b, _ := c.TryBytes()
		i, err := indexOf(key, len(b))
		if err != nil {
			return err
		}
		return v.push(stackitem.NewInt(int64(b[i])))
	default:
		return fmt.Errorf("%w: PICKITEM on %s", ErrInvalidType, item.Type())
	}
}

func opAppend(v *VM, ctx *Context, param []byte) error {
	val, err := v.pop()
	if err != nil {
		return err
	}
	item, err := v.pop()
	if err != nil {
		return err
	}
	if val, err = storable(val); err != nil {
		return err
	}
	switch c := item.(type) {
	case *stackitem.Array:
		if c.Len() >= v.limits.MaxStackSize {
			return fmt.Errorf("%w: array size %d", ErrInvalidOperation, c.Len())
		}
		c.Append(val)
	case *stackitem.Struct:
		if c.Len() >= v.limits.MaxStackSize {
			return fmt.Errorf("%w: struct size %d", ErrInvalidOperation, c.Len())
		}
		c.Append(val)
	default:
		return fmt.Errorf("%w: APPEND to %s", ErrInvalidType, item.Type())
	}
	return nil
}

func opSetItem(v *VM, ctx *Context, param []byte) error {
	val, err := v.pop()
	if err != nil {
		return err
	}
	key, err := v.pop()
	if err != nil {
		return err
	}
	item, err := v.pop()
	if err != nil {
		return err
	}
	switch c := item.(type) {
	case *stackitem.Map:
		if err := stackitem.IsValidMapKey(key); err != nil {
			return err
		}
		if !c.Has(key) && c.Len() >= v.limits.MaxStackSize {
			return fmt.Errorf("%w: map size %d", ErrInvalidOperation, c.Len())
		}
		if val, err = storable(val); err != nil {
			return err
		}
		c.Add(key, val)
	case *stackitem.Array:
		i, err := indexOf(key, c.Len())
		if err != nil {
			return err
		}
		if val, err = storable(val); err != nil {
			return err
		}
		c.Set(i, val)
	case *stackitem.Struct:
		i, err := indexOf(key, c.Len())
		if err != nil {
			return err
		}
		if val, err = storable(val); err != nil {
			return err
		}
		c.Set(i, val)
	case *stackitem.Buffer:
		i, err := indexOf(key, c.Len())
		if err != nil {
			return err
		}
		n, err := val.TryInteger()
		if err != nil {
			return err
		}
		b, ok := n.Int64()
		if !ok || b < math.MinInt8 || b > math.MaxUint8 {
			return fmt.Errorf("%w: byte value %s", ErrInvalidOperation, n)
		}
		c.Bytes()[i] = byte(b)
	default:
		return fmt.Errorf("%w: SETITEM on %s", ErrInvalidType, item.Type())
	}
	return nil
}

func opReverseItems(v *VM, ctx *Context, param []byte) error {
	item, err := v.pop()
	if err != nil {
		return err
	}
	switch c := item.(type) {
	case *stackitem.Array:
		c.Reverse()
	case *stackitem.Struct:
		c.Reverse()
	case *stackitem.Buffer:
		b := c.Bytes()
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
	default:
		return fmt.Errorf("%w: REVERSEITEMS on %s", ErrInvalidType, item.Type())
	}
	return nil
}

func opRemove(v *VM, ctx *Context, param []byte) error {
	key, err := v.pop()
	if err != nil {
		return err
	}
	item, err := v.pop()
	if err != nil {
		return err
	}
	switch c := item.(type) {
	case *stackitem.Map:
		if err := stackitem.IsValidMapKey(key); err != nil {
			return err
		}
		c.Drop(key)
	case *stackitem.Array:
		i, err := indexOf(key, c.Len())
		if err != nil {
			return err
		}
		c.Remove(i)
	case *stackitem.Struct:
		i, err := indexOf(key, c.Len())
		if err != nil {
			return err
		}
		c.Remove(i)
	default:
		return fmt.Errorf("%w: REMOVE on %s", ErrInvalidType, item.Type())
	}
	return nil
}

func opClearItems(v *VM, ctx *Context, param []byte) error {
	item, err := v.pop()
	if err != nil {
		return err
	}
	switch c := item.(type) {
	case *stackitem.Array:
		c.Clear()
	case *stackitem.Struct:
		c.Clear()
	case *stackitem.Map:
		c.Clear()
	default:
		return fmt.Errorf("%w: CLEARITEMS on %s", ErrInvalidType, item.Type())
	}
	return nil
}

func opPopItem(v *VM, ctx *Context, param []byte) error {
	item, err := v.pop()
	if err != nil {
		return err
	}
	var last stackitem.Item
	switch c := item.(type) {
	case *stackitem.Array:
		if c.Len() == 0 {
			return fmt.Errorf("%w: POPITEM on empty array", ErrInvalidOperation)
		}
		last = c.Items()[c.Len()-1]
		c.Remove(c.Len() - 1)
	case *stackitem.Struct:
		if c.Len() == 0 {
			return fmt.Errorf("%w: POPITEM on empty struct", ErrInvalidOperation)
		}
		last = c.Items()[c.Len()-1]
		c.Remove(c.Len() - 1)
	default:
		return fmt.Errorf("%w: POPITEM on %s", ErrInvalidType, item.Type())
	}
	return v.push(last)
}

// ---- Types -----------------------------------------------------------------

func opIsNull(v *VM, ctx *Context, param []byte) error {
	item, err := v.pop()
	if err != nil {
		return err
	}
	_, null := item.(stackitem.Null)
	return v.push(stackitem.Bool(null))
}

func opIsType(v *VM, ctx *Context, param []byte) error {
	t := stackitem.Type(param[0])
	if t == stackitem.AnyT || !t.IsValid() {
		return fmt.Errorf("%w: ISTYPE %#x", ErrInvalidOperation, param[0])
	}
	item, err := v.pop()
	if err != nil {
		return err
	}
	return v.push(stackitem.Bool(item.Type() == t))
}

func opConvert(v *VM, ctx *Context, param []byte) error {
	item, err := v.pop()
	if err != nil {
		return err
	}
	out, err := item.Convert(stackitem.Type(param[0]))
	if err != nil {
		return err
	}
	return v.push(out)
}

// ---- Cryptography ----------------------------------------------------------

func makeDigest(f func(v *VM, data []byte) []byte) executionFunc {
	return func(v *VM, ctx *Context, param []byte) error {
		data, err := v.popBytes()
		if err != nil {
			return err
		}
		return v.push(stackitem.ByteString(f(v, data)))
	}
}

func digestSha256(v *VM, data []byte) []byte    { return v.crypto.Sha256(data) }
func digestRipemd160(v *VM, data []byte) []byte { return v.crypto.Ripemd160(data) }
func digestHash160(v *VM, data []byte) []byte {
	return v.crypto.Ripemd160(v.crypto.Sha256(data))
}

func opCheckSig(v *VM, ctx *Context, param []byte) error {
	pub, err := v.popBytes()
	if err != nil {
		return err
	}
	sig, err := v.popBytes()
	if err != nil {
		return err
	}
	msg, err := v.popBytes()
	if err != nil {
		return err
	}
	ok, err := v.crypto.VerifySignature(msg, sig, pub)
	switch {
	case err == nil:
		return v.push(stackitem.Bool(ok))
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, crypto.ErrInvalidSignature):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
}
