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
	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
)

// CryptoProvider supplies the primitives behind the hashing and signature
// opcodes.
type CryptoProvider interface {
	Sha256(data []byte) []byte
	Ripemd160(data []byte) []byte
	// VerifySignature reports whether sig is a valid signature of msg by
	// pub. Malformed keys or signatures are errors, a mismatch is not.
	VerifySignature(msg, sig, pub []byte) (bool, error)
}

// SyscallHost resolves and runs SYSCALL instructions. Price is consulted
// before Invoke and its cost is charged first.
type SyscallHost interface {
	Price(id uint32) (uint64, bool)
	Invoke(id uint32, v *VM) error
}

// NativeInvoker dispatches calls to built-in contracts.
type NativeInvoker interface {
	Invoke(hash common.ScriptHash, method string, args []stackitem.Item) (stackitem.Item, error)
}

// Syscall identifiers understood by the default host.
const (
	SyscallLog        uint32 = 0x01
	SyscallNotify     uint32 = 0x02
	SyscallGetTime    uint32 = 0x03
	SyscallStorageGet uint32 = 0x10
	SyscallStoragePut uint32 = 0x11
	SyscallStorageDel uint32 = 0x12
	SyscallCallNative uint32 = 0x20
)
