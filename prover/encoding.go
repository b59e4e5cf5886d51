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
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/probechain/neo-zkvm/common"
)

// envelopeVersion is bumped whenever the envelope layout changes.
const envelopeVersion = 1

var ErrInvalidProof = errors.New("prover: invalid proof encoding")

type envelope struct {
	Version      uint8
	ID           uuid.UUID
	State        uint8
	Result       []byte
	GasConsumed  uint64
	Error        string
	PublicValues PublicValues
	Commitment   common.Hash
	ProofBytes   []byte
}

// EncodeProof serializes a proof as snappy compressed RLP.
func EncodeProof(p *Proof) ([]byte, error) {
	enc, err := rlp.EncodeToBytes(&envelope{
		Version:      envelopeVersion,
		ID:           p.ID,
		State:        p.Output.State,
		Result:       encodeItem(p.Output.Result),
		GasConsumed:  p.Output.GasConsumed,
		Error:        p.Output.Error,
		PublicValues: p.PublicValues,
		Commitment:   p.Commitment,
		ProofBytes:   p.ProofBytes,
	})
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, enc), nil
}

// DecodeProof is the inverse of EncodeProof. Results without a binary
// serialization decode as nil.
func DecodeProof(data []byte) (*Proof, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	var env envelope
	if err := rlp.DecodeBytes(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidProof, env.Version)
	}
	result, err := decodeItem(env.Result)
	if err != nil {
		return nil, fmt.Errorf("%w: result: %v", ErrInvalidProof, err)
	}
	return &Proof{
		ID: env.ID,
		Output: ProofOutput{
			State:       env.State,
			Result:      result,
			GasConsumed: env.GasConsumed,
			Error:       env.Error,
		},
		PublicValues: env.PublicValues,
		Commitment:   env.Commitment,
		ProofBytes:   env.ProofBytes,
	}, nil
}

func decodeMock(blob []byte) (*mockProof, error) {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, err
	}
	mock := new(mockProof)
	if err := rlp.DecodeBytes(raw, mock); err != nil {
		return nil, err
	}
	return mock, nil
}
