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

package prover

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"
	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
	"github.com/probechain/neo-zkvm/crypto"
)

// Execution states recorded in a ProofOutput.
const (
	StateHalt  uint8 = 0
	StateFault uint8 = 1
	StateOther uint8 = 2
)

// opaqueMarker prefixes the encoding of an item that has no binary
// serialization. Serialized items start with a type byte below 0x50.
const opaqueMarker = 0xFF

// ProofInput is a script together with its arguments and gas budget. The
// arguments are pushed in order after the script is loaded.
type ProofInput struct {
	Script    []byte
	Arguments []stackitem.Item
	GasLimit  uint64
}

// Hash is sha256(RLP(script, serialized arguments, gas limit)).
func (in *ProofInput) Hash() (common.Hash, error) {
	args := make([][]byte, len(in.Arguments))
	for i, arg := range in.Arguments {
		args[i] = encodeItem(arg)
	}
	enc, err := rlp.EncodeToBytes([]interface{}{in.Script, args, in.GasLimit})
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Sha256Hash(enc), nil
}

// ProofOutput is the observable result of an execution.
type ProofOutput struct {
	State       uint8
	Result      stackitem.Item // top of the evaluation stack, nil when empty
	GasConsumed uint64
	Error       string
}

// Success reports whether the execution halted.
func (o *ProofOutput) Success() bool { return o.State == StateHalt }

// Hash is sha256(RLP(state, serialized result, gas consumed)).
func (o *ProofOutput) Hash() (common.Hash, error) {
	enc, err := rlp.EncodeToBytes([]interface{}{o.State, encodeItem(o.Result), o.GasConsumed})
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Sha256Hash(enc), nil
}

// PublicValues are the values a proof commits to.
type PublicValues struct {
	ScriptHash       common.Hash
	InputHash        common.Hash
	OutputHash       common.Hash
	GasConsumed      uint64
	ExecutionSuccess bool
}

// Proof binds an execution output to its public values and trace
// commitment.
type Proof struct {
	ID           uuid.UUID
	Output       ProofOutput
	PublicValues PublicValues
	Commitment   common.Hash
	ProofBytes   []byte
}

// encodeItem serializes item for hashing. nil encodes as empty and items
// without a binary form as the marker followed by their type.
func encodeItem(item stackitem.Item) []byte {
	if item == nil {
		return []byte{}
	}
	b, err := stackitem.Serialize(item)
	if err != nil {
		return []byte{opaqueMarker, byte(item.Type())}
	}
	return b
}

func decodeItem(b []byte) (stackitem.Item, error) {
	if len(b) == 0 || b[0] == opaqueMarker {
		return nil, nil
	}
	return stackitem.Deserialize(b)
}
