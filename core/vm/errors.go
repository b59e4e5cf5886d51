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
	"errors"
	"fmt"

	"github.com/probechain/neo-zkvm/core/vm/stackitem"
)

// ---- Error sentinels -------------------------------------------------------

var (
	// ErrStackUnderflow is returned when an instruction needs more items
	// than the evaluation stack holds.
	ErrStackUnderflow = errors.New("vm: stack underflow")

	// ErrInvalidOpcode is returned when the fetched byte is not a defined
	// opcode.
	ErrInvalidOpcode = errors.New("vm: invalid opcode")

	// ErrOutOfGas is returned when an instruction would push the consumed
	// gas past the limit.
	ErrOutOfGas = errors.New("vm: out of gas")

	// ErrInvalidScript is returned for truncated operands, oversized scripts
	// and jump targets outside the script.
	ErrInvalidScript = errors.New("vm: invalid script")

	// ErrUnknownSyscall is returned for a SYSCALL id the host does not know.
	ErrUnknownSyscall = errors.New("vm: unknown syscall")

	// ErrHalted is returned when ExecuteNext is called in a terminal state.
	ErrHalted = errors.New("vm: already halted")

	// ErrNoScript is returned when ExecuteNext is called before LoadScript.
	ErrNoScript = errors.New("vm: no script loaded")

	// ErrInvalidPublicKey and ErrInvalidSignature report malformed CHECKSIG
	// inputs. A well-formed signature that does not verify is not an error.
	ErrInvalidPublicKey = errors.New("vm: invalid public key")
	ErrInvalidSignature = errors.New("vm: invalid signature")
)

// Errors shared with the item model.
var (
	ErrDivisionByZero   = stackitem.ErrDivisionByZero
	ErrInvalidType      = stackitem.ErrInvalidType
	ErrInvalidOperation = stackitem.ErrInvalidOperation
	ErrOverflow         = stackitem.ErrOverflow
)

// Script initiated and limit faults. All of them are invalid operations.
var (
	ErrAbort              = fmt.Errorf("%w: ABORT", ErrInvalidOperation)
	ErrThrow              = fmt.Errorf("%w: THROW", ErrInvalidOperation)
	ErrAssertFailed       = fmt.Errorf("%w: assertion failed", ErrInvalidOperation)
	ErrStackOverflow      = fmt.Errorf("%w: evaluation stack overflow", ErrInvalidOperation)
	ErrInvocationOverflow = fmt.Errorf("%w: invocation stack overflow", ErrInvalidOperation)
)

// errorKinds is ordered from the most to the least specific sentinel.
var errorKinds = []struct {
	err  error
	name string
}{
	{ErrStackUnderflow, "StackUnderflow"},
	{ErrInvalidOpcode, "InvalidOpcode"},
	{ErrOutOfGas, "OutOfGas"},
	{ErrDivisionByZero, "DivisionByZero"},
	{ErrInvalidScript, "InvalidScript"},
	{ErrUnknownSyscall, "UnknownSyscall"},
	{ErrInvalidPublicKey, "InvalidPublicKey"},
	{ErrInvalidSignature, "InvalidSignature"},
	{ErrHalted, "Halted"},
	{ErrNoScript, "NoScript"},
	{ErrInvalidType, "InvalidType"},
	{ErrInvalidOperation, "InvalidOperation"},
}

// ErrorKind maps an engine error to its taxonomy name. It returns "" for
// nil and "Unknown" for errors outside the taxonomy.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Unknown"
}
