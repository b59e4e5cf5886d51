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

package native

import (
	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
	"github.com/probechain/neo-zkvm/crypto"
	"github.com/probechain/neo-zkvm/crypto/dilithium"
)

// CryptoLibHash is the script hash of the CryptoLib contract.
var CryptoLibHash = common.HexToScriptHash("726cb6e0cd8b0ac33ce1dec0d47e5c3c4a6b8a0d")

// CryptoLib exposes digests and signature verification.
type CryptoLib struct{ base }

// NewCryptoLib creates the CryptoLib contract.
func NewCryptoLib() *CryptoLib {
	return &CryptoLib{base{
		name: "CryptoLib",
		hash: CryptoLibHash,
		methods: map[string]method{
			"sha256":              {1, 1, digest(func(b []byte) []byte { return crypto.Sha256(b) })},
			"ripemd160":           {1, 1, digest(crypto.Ripemd160)},
			"verifyWithECDsa":     {3, 3, verify(verifyECDsa)},
			"verifyWithDilithium": {3, 3, verify(dilithium.VerifyBytes)},
		},
	}}
}

func digest(fn func([]byte) []byte) func([]stackitem.Item) (stackitem.Item, error) {
	return func(args []stackitem.Item) (stackitem.Item, error) {
		data, err := bytesArg(args, 0)
		if err != nil {
			return nil, err
		}
		return stackitem.ByteString(fn(data)), nil
	}
}

func verifyECDsa(pub, msg, sig []byte) (bool, error) {
	return crypto.VerifySignature(msg, sig, pub)
}

// verify takes (message, pubkey, signature). Malformed keys and signatures
// verify as false.
func verify(fn func(pub, msg, sig []byte) (bool, error)) func([]stackitem.Item) (stackitem.Item, error) {
	return func(args []stackitem.Item) (stackitem.Item, error) {
		var in [3][]byte
		for i := range in {
			b, err := bytesArg(args, i)
			if err != nil {
				return nil, err
			}
			in[i] = b
		}
		ok, err := fn(in[1], in[0], in[2])
		return stackitem.Bool(ok && err == nil), nil
	}
}
