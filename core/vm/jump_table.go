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
	"fmt"

	"github.com/probechain/neo-zkvm/core/vm/stackitem"
)

type executionFunc func(v *VM, ctx *Context, param []byte) error

type operation struct {
	execute     executionFunc
	constantGas uint64
	// minStack is the evaluation stack depth the handler needs before it
	// pops anything. Dynamic requirements are checked by the handler.
	minStack int
}

// JumpTable maps every opcode byte to its operation. Undefined opcodes are
// nil.
type JumpTable [256]*operation

var defaultJumpTable = newJumpTable()

func (jt *JumpTable) set(op Opcode, execute executionFunc, gas uint64, minStack int) {
	jt[op] = &operation{execute: execute, constantGas: gas, minStack: minStack}
}

func ltCmp(c int) bool { return c < 0 }
func leCmp(c int) bool { return c <= 0 }
func gtCmp(c int) bool { return c > 0 }
func geCmp(c int) bool { return c >= 0 }
func eqCmp(c int) bool { return c == 0 }
func neCmp(c int) bool { return c != 0 }

func newJumpTable() *JumpTable {
	jt := new(JumpTable)

	// Constants
	for op := PUSHINT8; op <= PUSHINT256; op++ {
		jt.set(op, opPushInt, gasPush, 0)
	}
	jt.set(PUSHT, makePushItem(stackitem.Bool(true)), gasPush, 0)
	jt.set(PUSHF, makePushItem(stackitem.Bool(false)), gasPush, 0)
	jt.set(PUSHA, opPushA, gasPushA, 0)
	jt.set(PUSHNULL, makePushItem(stackitem.Null{}), gasPush, 0)
	jt.set(PUSHDATA1, opPushData, gasPushData1, 0)
	jt.set(PUSHDATA2, opPushData, gasPushData2, 0)
	jt.set(PUSHDATA4, opPushData, gasPushData4, 0)
	jt.set(PUSHM1, makePushConst(-1), gasPush, 0)
	for op := PUSH0; op <= PUSH16; op++ {
		jt.set(op, makePushConst(int64(op-PUSH0)), gasPush, 0)
	}

	// Flow control
	jt.set(NOP, opNop, gasPush, 0)
	jumps := []struct {
		short, long Opcode
		cond        func(v *VM) (bool, error)
		minStack    int
	}{
		{JMP, JMPL, nil, 0},
		{JMPIF, JMPIFL, condIf, 1},
		{JMPIFNOT, JMPIFNOTL, condIfNot, 1},
		{JMPEQ, JMPEQL, makeCompareCond(eqCmp), 2},
		{JMPNE, JMPNEL, makeCompareCond(neCmp), 2},
		{JMPGT, JMPGTL, makeCompareCond(gtCmp), 2},
		{JMPGE, JMPGEL, makeCompareCond(geCmp), 2},
		{JMPLT, JMPLTL, makeCompareCond(ltCmp), 2},
		{JMPLE, JMPLEL, makeCompareCond(leCmp), 2},
	}
	for _, j := range jumps {
		jt.set(j.short, makeJump(j.cond), gasJump, j.minStack)
		jt.set(j.long, makeJump(j.cond), gasJump, j.minStack)
	}
	jt.set(CALL, opCall, gasCall, 0)
	jt.set(CALLL, opCall, gasCall, 0)
	jt.set(CALLA, opCallA, gasCall, 1)
	jt.set(ABORT, opAbort, gasFree, 0)
	jt.set(ASSERT, opAssert, gasPush, 1)
	jt.set(THROW, opThrow, gasCall, 1)
	jt.set(RET, opRet, gasFree, 0)
	jt.set(SYSCALL, opSyscall, gasFree, 0)

	// Stack
	jt.set(DEPTH, opDepth, gasStack, 0)
	jt.set(DROP, opDrop, gasStack, 1)
	jt.set(NIP, opNip, gasStack, 2)
	jt.set(XDROP, opXDrop, gasStackN, 1)
	jt.set(CLEAR, opClear, gasStackN, 0)
	jt.set(DUP, makePeek(0), gasStack, 1)
	jt.set(OVER, makePeek(1), gasStack, 2)
	jt.set(PICK, opPick, gasStack, 1)
	jt.set(TUCK, opTuck, gasStack, 2)
	jt.set(SWAP, makeRoll(1), gasStack, 2)
	jt.set(ROT, makeRoll(2), gasStack, 3)
	jt.set(ROLL, opRoll, gasStackN, 1)
	jt.set(REVERSE3, makeReverse(3), gasStack, 3)
	jt.set(REVERSE4, makeReverse(4), gasStack, 4)
	jt.set(REVERSEN, opReverseN, gasStackN, 1)

	// Slots
	jt.set(INITSSLOT, opInitSSlot, gasStackN, 0)
	jt.set(INITSLOT, opInitSlot, gasInitSlot, 0)
	banks := []struct {
		kind       slotKind
		load, stor Opcode
	}{
		{staticSlot, LDSFLD0, STSFLD0},
		{localSlot, LDLOC0, STLOC0},
		{argumentSlot, LDARG0, STARG0},
	}
	for _, b := range banks {
		for i := 0; i < 6; i++ {
			jt.set(b.load+Opcode(i), makeLoad(b.kind, i), gasStack, 0)
			jt.set(b.stor+Opcode(i), makeStore(b.kind, i), gasStack, 1)
		}
		jt.set(b.load+6, makeLoad(b.kind, -1), gasStack, 0)
		jt.set(b.stor+6, makeStore(b.kind, -1), gasStack, 1)
	}

	// Splice
	jt.set(NEWBUFFER, opNewBuffer, gasNewBuffer, 1)
	jt.set(MEMCPY, opMemcpy, gasSplice, 5)
	jt.set(CAT, opCat, gasSplice, 2)
	jt.set(SUBSTR, opSubstr, gasSplice, 3)
	jt.set(LEFT, opLeft, gasSplice, 2)
	jt.set(RIGHT, opRight, gasSplice, 2)

	// Bitwise logic
	jt.set(INVERT, opInvert, gasArith, 1)
	jt.set(AND, bitwise((*stackitem.Integer).And), gasArith, 2)
	jt.set(OR, bitwise((*stackitem.Integer).Or), gasArith, 2)
	jt.set(XOR, bitwise((*stackitem.Integer).Xor), gasArith, 2)
	jt.set(EQUAL, makeEqual(true), gasArith, 2)
	jt.set(NOTEQUAL, makeEqual(false), gasArith, 2)

	// Arithmetic
	jt.set(SIGN, opSign, gasArith, 1)
	jt.set(ABS, makeUnary(opAbs), gasArith, 1)
	jt.set(NEGATE, makeUnary(opNeg), gasArith, 1)
	jt.set(INC, makeUnary(opInc), gasArith, 1)
	jt.set(DEC, makeUnary(opDec), gasArith, 1)
	jt.set(ADD, arith((*stackitem.Integer).Add), gasArith, 2)
	jt.set(SUB, arith((*stackitem.Integer).Sub), gasArith, 2)
	jt.set(MUL, arith((*stackitem.Integer).Mul), gasArith, 2)
	jt.set(DIV, arith((*stackitem.Integer).Div), gasArith, 2)
	jt.set(MOD, arith((*stackitem.Integer).Mod), gasArith, 2)
	jt.set(POW, arith((*stackitem.Integer).Pow), gasHeavyMath, 2)
	jt.set(SQRT, makeUnary(opSqrt), gasHeavyMath, 1)
	jt.set(MODMUL, makeTernary(opModMul), gasHeavyMath, 3)
	jt.set(MODPOW, makeTernary(opModPow), gasHeavyMath, 3)
	jt.set(SHL, arith((*stackitem.Integer).Shl), gasArith, 2)
	jt.set(SHR, arith((*stackitem.Integer).Shr), gasArith, 2)

	// Boolean and numeric comparison
	jt.set(NOT, opNot, gasArith, 1)
	jt.set(BOOLAND, makeBoolBinary(func(a, b bool) bool { return a && b }), gasArith, 2)
	jt.set(BOOLOR, makeBoolBinary(func(a, b bool) bool { return a || b }), gasArith, 2)
	jt.set(NZ, opNz, gasArith, 1)
	jt.set(NUMEQUAL, numCompare(eqCmp), gasArith, 2)
	jt.set(NUMNOTEQUAL, numCompare(neCmp), gasArith, 2)
	jt.set(LT, makeOrder(ltCmp), gasArith, 2)
	jt.set(LE, makeOrder(leCmp), gasArith, 2)
	jt.set(GT, makeOrder(gtCmp), gasArith, 2)
	jt.set(GE, makeOrder(geCmp), gasArith, 2)
	jt.set(MIN, makeBinary(opMin), gasArith, 2)
	jt.set(MAX, makeBinary(opMax), gasArith, 2)
	jt.set(WITHIN, opWithin, gasArith, 3)

	// Compound types
	jt.set(PACKMAP, opPackMap, gasContainer, 1)
	jt.set(PACKSTRUCT, opPackStruct, gasContainer, 1)
	jt.set(PACK, opPack, gasContainer, 1)
	jt.set(UNPACK, opUnpack, gasContainer, 1)
	jt.set(NEWARRAY0, opNewArray0, gasStackN, 0)
	jt.set(NEWARRAY, opNewArray, gasContainer, 1)
	jt.set(NEWARRAYT, opNewArrayT, gasContainer, 1)
	jt.set(NEWSTRUCT0, opNewStruct0, gasStackN, 0)
	jt.set(NEWSTRUCT, opNewStruct, gasContainer, 1)
	jt.set(NEWMAP, opNewMap, gasArith, 0)
	jt.set(SIZE, opSize, gasPushA, 1)
	jt.set(HASKEY, opHasKey, gasHeavyMath, 2)
	jt.set(KEYS, opKeys, gasStackN, 1)
	jt.set(VALUES, opValues, gasStackN, 1)
	jt.set(PICKITEM, opPickItem, gasHeavyMath, 2)
	jt.set(APPEND, opAppend, gasMutate, 2)
	jt.set(SETITEM, opSetItem, gasMutate, 3)
	jt.set(REVERSEITEMS, opReverseItems, gasMutate, 1)
	jt.set(REMOVE, opRemove, gasStackN, 2)
	jt.set(CLEARITEMS, opClearItems, gasStackN, 1)
	jt.set(POPITEM, opPopItem, gasStackN, 1)

	// Types
	jt.set(ISNULL, opIsNull, gasStack, 1)
	jt.set(ISTYPE, opIsType, gasStack, 1)
	jt.set(CONVERT, opConvert, gasMutate, 1)

	// Cryptography
	jt.set(SHA256, makeDigest(digestSha256), gasSha256, 1)
	jt.set(RIPEMD160, makeDigest(digestRipemd160), gasSha256, 1)
	jt.set(HASH160, makeDigest(digestHash160), gasHash160, 1)
	jt.set(CHECKSIG, opCheckSig, gasCheckSig, 3)

	for i := 0; i < 256; i++ {
		if Opcode(i).IsValid() != (jt[i] != nil) {
			panic(fmt.Sprintf("vm: jump table out of sync with opcode %#x", i))
		}
	}
	return jt
}
