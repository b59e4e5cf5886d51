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

// Package crypto provides the digest and signature primitives consumed by the
// virtual machine, the native contracts and the prover.
package crypto

import (
	"crypto/sha256"
	"errors"
	"hash"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
	"github.com/probechain/neo-zkvm/common"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// SignatureLength is the byte length of a compact r||s ECDSA signature.
const SignatureLength = 64

// DigestLength sets the signature digest exact length
const DigestLength = 32

var (
	secp256k1N     = btcec.S256().N
	secp256k1halfN = new(big.Int).Rsh(secp256k1N, 1)
)

var (
	// ErrInvalidPubkey is returned for public keys that are not a valid SEC1
	// encoding of a secp256k1 point.
	ErrInvalidPubkey = errors.New("crypto: invalid secp256k1 public key")

	// ErrInvalidSignature is returned for signatures that are not a 64 byte
	// r||s encoding with scalars in range.
	ErrInvalidSignature = errors.New("crypto: invalid signature encoding")
)

// KeccakState wraps sha3.state. In addition to the usual hash methods, it also supports
// Read to get a variable amount of data from the hash state. Read is faster than Sum
// because it doesn't copy the internal state, but also modifies the internal state.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// NewKeccakState creates a new KeccakState
func NewKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// Keccak256 calculates and returns the Keccak256 hash of the input data.
func Keccak256(data ...[]byte) []byte {
	b := make([]byte, 32)
	d := NewKeccakState()
	for _, b := range data {
		d.Write(b)
	}
	d.Read(b)
	return b
}

// Keccak256Hash calculates and returns the Keccak256 hash of the input data,
// converting it to an internal Hash data structure.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	d := NewKeccakState()
	for _, b := range data {
		d.Write(b)
	}
	d.Read(h[:])
	return h
}

// Sha256 calculates and returns the SHA-256 digest of the concatenated input.
func Sha256(data ...[]byte) []byte {
	d := sha256.New()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Sha256Hash is Sha256 returning a Hash.
func Sha256Hash(data ...[]byte) common.Hash {
	return common.BytesToHash(Sha256(data...))
}

// Ripemd160 calculates and returns the RIPEMD-160 digest of the input.
func Ripemd160(data []byte) []byte {
	d := ripemd160.New()
	d.Write(data)
	return d.Sum(nil)
}

// Hash160 returns RIPEMD-160(SHA-256(data)).
func Hash160(data []byte) []byte {
	return Ripemd160(Sha256(data))
}

// ScriptHashOf returns the Hash160 of a script as a ScriptHash.
func ScriptHashOf(script []byte) common.ScriptHash {
	return common.BytesToScriptHash(Hash160(script))
}

// UnmarshalPubkey parses a compressed or uncompressed SEC1 secp256k1 key.
func UnmarshalPubkey(pub []byte) (*btcec.PublicKey, error) {
	if len(pub) != 33 && len(pub) != 65 {
		return nil, ErrInvalidPubkey
	}
	key, err := btcec.ParsePubKey(pub, btcec.S256())
	if err != nil {
		return nil, ErrInvalidPubkey
	}
	return key, nil
}

// GenerateKey creates a new secp256k1 private key.
func GenerateKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey(btcec.S256())
}

// Sign signs SHA-256(msg) with priv and returns the 64 byte r||s encoding
// with a low S value.
func Sign(msg []byte, priv *btcec.PrivateKey) ([]byte, error) {
	sig, err := priv.Sign(Sha256(msg))
	if err != nil {
		return nil, err
	}
	s := sig.S
	if s.Cmp(secp256k1halfN) > 0 {
		s = new(big.Int).Sub(secp256k1N, s)
	}
	out := make([]byte, SignatureLength)
	sig.R.FillBytes(out[:32])
	s.FillBytes(out[32:])
	return out, nil
}

// VerifySignature checks a 64 byte r||s signature over SHA-256(msg) against
// a SEC1 encoded public key. A malformed key or signature is an error; a well
// formed signature that does not match yields false.
func VerifySignature(msg, sig, pub []byte) (bool, error) {
	key, err := UnmarshalPubkey(pub)
	if err != nil {
		return false, err
	}
	if len(sig) != SignatureLength {
		return false, ErrInvalidSignature
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	if r.Sign() == 0 || s.Sign() == 0 || r.Cmp(secp256k1N) >= 0 || s.Cmp(secp256k1N) >= 0 {
		return false, ErrInvalidSignature
	}
	signature := &btcec.Signature{R: r, S: s}
	return signature.Verify(Sha256(msg), key), nil
}

// Provider is the default cryptographic primitive provider handed to the
// virtual machine.
type Provider struct{}

// Sha256 implements vm.CryptoProvider.
func (Provider) Sha256(data []byte) []byte { return Sha256(data) }

// Ripemd160 implements vm.CryptoProvider.
func (Provider) Ripemd160(data []byte) []byte { return Ripemd160(data) }

// VerifySignature implements vm.CryptoProvider.
func (Provider) VerifySignature(msg, sig, pub []byte) (bool, error) {
	return VerifySignature(msg, sig, pub)
}
