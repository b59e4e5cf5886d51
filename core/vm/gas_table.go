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

// ---- Gas costs -------------------------------------------------------------

const (
	gasFree      uint64 = 0     // RET, ABORT, SYSCALL (the host price is charged separately)
	gasPush      uint64 = 1     // small constants, NOP, ASSERT
	gasJump      uint64 = 2     // any branch
	gasStack     uint64 = 2     // fixed depth stack shuffles, slot access, type checks
	gasPushA     uint64 = 4     // PUSHA, SIZE
	gasPushData1 uint64 = 8     // PUSHDATA1
	gasArith     uint64 = 8     // arithmetic, comparison, bitwise, NEWMAP
	gasStackN    uint64 = 16    // index-taking stack ops, CLEAR, INITSSLOT, small containers
	gasInitSlot  uint64 = 64    // INITSLOT
	gasHeavyMath uint64 = 64    // POW, SQRT, MODMUL, MODPOW, PICKITEM, HASKEY
	gasNewBuffer uint64 = 256   // NEWBUFFER
	gasContainer uint64 = 512   // NEWARRAY, NEWSTRUCT, PACK, UNPACK
	gasCall      uint64 = 512   // CALL, CALLA, THROW
	gasPushData2 uint64 = 512   // PUSHDATA2
	gasSha256    uint64 = 512   // SHA256, RIPEMD160
	gasHash160   uint64 = 1024  // HASH160
	gasSplice    uint64 = 2048  // CAT, SUBSTR, LEFT, RIGHT, MEMCPY
	gasPushData4 uint64 = 4096  // PUSHDATA4
	gasMutate    uint64 = 8192  // APPEND, SETITEM, REVERSEITEMS, CONVERT
	gasCheckSig  uint64 = 32768 // CHECKSIG
)

// OpcodePrice returns the constant gas cost of op, and false for undefined
// opcodes. SYSCALL additionally charges the price reported by the host.
func OpcodePrice(op Opcode) (uint64, bool) {
	operation := defaultJumpTable[op]
	if operation == nil {
		return 0, false
	}
	return operation.constantGas, true
}
