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
	"context"
	"testing"

	"github.com/probechain/neo-zkvm/core/interop"
	"github.com/probechain/neo-zkvm/core/vm"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
	"github.com/probechain/neo-zkvm/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addScript = []byte{byte(vm.PUSH2), byte(vm.PUSH3), byte(vm.ADD)}

func prove(t *testing.T, mode Mode, input ProofInput) *Proof {
	t.Helper()
	cfg := DefaultConfig
	cfg.Mode = mode
	proof, err := New(cfg).Prove(context.Background(), input)
	require.NoError(t, err)
	return proof
}

func newVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(16)
	require.NoError(t, err)
	return v
}

func TestProveHalt(t *testing.T) {
	proof := prove(t, ModeMock, ProofInput{Script: addScript, GasLimit: 1000})

	assert.Equal(t, StateHalt, proof.Output.State)
	assert.Empty(t, proof.Output.Error)
	assert.True(t, proof.Output.Result.Equals(stackitem.NewInt(5)))
	assert.Equal(t, uint64(10), proof.Output.GasConsumed)

	pv := proof.PublicValues
	assert.Equal(t, crypto.Sha256Hash(addScript), pv.ScriptHash)
	assert.Equal(t, uint64(10), pv.GasConsumed)
	assert.True(t, pv.ExecutionSuccess)
	assert.False(t, proof.Commitment.IsZero())
	assert.NotEmpty(t, proof.ProofBytes)

	ok, err := newVerifier(t).Verify(proof)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProveArguments(t *testing.T) {
	input := ProofInput{
		Script:    []byte{byte(vm.ADD)},
		Arguments: []stackitem.Item{stackitem.NewInt(40), stackitem.NewInt(2)},
		GasLimit:  1000,
	}
	proof := prove(t, ModeExecute, input)
	assert.True(t, proof.Output.Result.Equals(stackitem.NewInt(42)))
	assert.Empty(t, proof.ProofBytes)

	other := input
	other.Arguments = []stackitem.Item{stackitem.NewInt(41), stackitem.NewInt(1)}
	h1, err := input.Hash()
	require.NoError(t, err)
	h2, err := other.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestProveDeterministic(t *testing.T) {
	input := ProofInput{Script: addScript, GasLimit: 1000}
	a := prove(t, ModeMock, input)
	b := prove(t, ModeMock, input)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.PublicValues, b.PublicValues)
	assert.Equal(t, a.Commitment, b.Commitment)
	assert.Equal(t, a.ProofBytes, b.ProofBytes)
}

func TestProveFault(t *testing.T) {
	input := ProofInput{Script: []byte{byte(vm.PUSH1), byte(vm.ABORT)}, GasLimit: 1000}

	mock := prove(t, ModeMock, input)
	assert.Equal(t, StateFault, mock.Output.State)
	assert.NotEmpty(t, mock.Output.Error)
	assert.False(t, mock.PublicValues.ExecutionSuccess)

	v := newVerifier(t)
	ok, err := v.Verify(mock)
	require.NoError(t, err)
	assert.True(t, ok, "mock proofs of faults carry proof bytes")

	exec := prove(t, ModeExecute, input)
	ok, err = v.Verify(exec)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProveOutOfGas(t *testing.T) {
	proof := prove(t, ModeExecute, ProofInput{Script: addScript, GasLimit: 5})
	assert.Equal(t, StateFault, proof.Output.State)
	assert.Contains(t, proof.Output.Error, "out of gas")
}

func TestVerifyRejectsTampering(t *testing.T) {
	v := newVerifier(t)
	cases := map[string]func(p *Proof){
		"gas":        func(p *Proof) { p.PublicValues.GasConsumed++; p.Output.GasConsumed++ },
		"commitment": func(p *Proof) { p.Commitment[0] ^= 1 },
		"output":     func(p *Proof) { p.PublicValues.OutputHash[0] ^= 1 },
		"claimed":    func(p *Proof) { p.Output.GasConsumed++ },
	}
	for name, tamper := range cases {
		t.Run(name, func(t *testing.T) {
			proof := prove(t, ModeMock, ProofInput{Script: addScript, GasLimit: 1000})
			tamper(proof)
			ok, err := v.Verify(proof)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}

	proof := prove(t, ModeMock, ProofInput{Script: addScript, GasLimit: 1000})
	proof.ProofBytes = []byte{0x01, 0x02, 0x03}
	_, err := v.Verify(proof)
	assert.ErrorIs(t, err, ErrInvalidProof)

	_, err = v.Verify(nil)
	assert.Error(t, err)
}

func TestEncodeDecodeProof(t *testing.T) {
	proof := prove(t, ModeMock, ProofInput{Script: addScript, GasLimit: 1000})
	enc, err := EncodeProof(proof)
	require.NoError(t, err)

	dec, err := DecodeProof(enc)
	require.NoError(t, err)
	assert.Equal(t, proof.ID, dec.ID)
	assert.Equal(t, proof.PublicValues, dec.PublicValues)
	assert.Equal(t, proof.Commitment, dec.Commitment)
	assert.Equal(t, proof.ProofBytes, dec.ProofBytes)
	assert.Equal(t, proof.Output.State, dec.Output.State)
	assert.True(t, dec.Output.Result.Equals(stackitem.NewInt(5)))

	ok, err := newVerifier(t).Verify(dec)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = DecodeProof([]byte("garbage"))
	assert.ErrorIs(t, err, ErrInvalidProof)
}

func TestProveBatch(t *testing.T) {
	inputs := make([]ProofInput, 8)
	for i := range inputs {
		inputs[i] = ProofInput{
			Script:    []byte{byte(vm.ADD)},
			Arguments: []stackitem.Item{stackitem.NewInt(int64(i)), stackitem.NewInt(100)},
			GasLimit:  1000,
		}
	}
	proofs, err := New(DefaultConfig).ProveBatch(context.Background(), inputs, 3)
	require.NoError(t, err)
	require.Len(t, proofs, len(inputs))
	for i, p := range proofs {
		assert.True(t, p.Output.Result.Equals(stackitem.NewInt(int64(100+i))), "proof %d", i)
	}

	inputs[5].Script = nil
	_, err = New(DefaultConfig).ProveBatch(context.Background(), inputs, 0)
	assert.ErrorIs(t, err, vm.ErrInvalidScript)
}

func TestProveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(DefaultConfig).Prove(ctx, ProofInput{Script: []byte{byte(vm.JMP), 0x00}, GasLimit: 1 << 30})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProveWithSyscalls(t *testing.T) {
	var host *interop.Host
	cfg := DefaultConfig
	cfg.Syscalls = func() vm.SyscallHost {
		host = interop.NewHost(interop.Config{Timestamp: 42})
		return host
	}
	script := []byte{byte(vm.SYSCALL), byte(vm.SyscallGetTime), 0, 0, 0}
	proof, err := New(cfg).Prove(context.Background(), ProofInput{Script: script, GasLimit: 1000})
	require.NoError(t, err)
	require.NotNil(t, host)
	assert.True(t, proof.Output.Result.Equals(stackitem.NewInt(42)))
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeMock, ModeExecute} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("groth16")
	assert.Error(t, err)
}
