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

	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/crypto"
)

// DefaultVerifierCache is the number of verification results kept.
const DefaultVerifierCache = 1024

var errNilProof = errors.New("prover: nil proof")

// Verifier checks proofs against their public values.
type Verifier struct {
	results *lru.ARCCache // proof digest -> bool
	log     log.Logger
}

// NewVerifier creates a verifier remembering up to cacheSize results.
func NewVerifier(cacheSize int) (*Verifier, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultVerifierCache
	}
	results, err := lru.NewARC(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Verifier{results: results, log: log.New("module", "verifier")}, nil
}

// Verify accepts a proof that carries proof bytes or reports a halted
// execution. Proof bytes must decode to the proof's public values and
// trace commitment. Malformed proof bytes are an error.
func (v *Verifier) Verify(p *Proof) (bool, error) {
	if p == nil {
		return false, errNilProof
	}
	key, err := p.Digest()
	if err != nil {
		return false, err
	}
	if ok, cached := v.results.Get(key); cached {
		return ok.(bool), nil
	}
	ok, err := v.verify(p)
	if err != nil {
		return false, err
	}
	v.results.Add(key, ok)
	v.log.Debug("Verified proof", "id", p.ID, "valid", ok)
	return ok, nil
}

func (v *Verifier) verify(p *Proof) (bool, error) {
	if len(p.ProofBytes) == 0 {
		return p.Output.State == StateHalt && p.consistent(), nil
	}
	mock, err := decodeMock(p.ProofBytes)
	if err != nil {
		return false, ErrInvalidProof
	}
	return mock.Values == p.PublicValues && mock.Commitment == p.Commitment && p.consistent(), nil
}

// consistent checks the output against the public values it claims.
func (p *Proof) consistent() bool {
	return p.PublicValues.GasConsumed == p.Output.GasConsumed &&
		p.PublicValues.ExecutionSuccess == p.Output.Success()
}

// Digest identifies a proof by the hash of its encoding.
func (p *Proof) Digest() (common.Hash, error) {
	enc, err := EncodeProof(p)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Sha256Hash(enc), nil
}
