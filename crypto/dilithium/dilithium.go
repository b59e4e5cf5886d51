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

// Package dilithium wraps CRYSTALS-Dilithium (Dilithium2) from cloudflare/circl
// for the post-quantum verification method of the CryptoLib native contract.
package dilithium

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode2"
)

const (
	// PublicKeySize is the size of a serialized Dilithium2 public key.
	PublicKeySize = mode2.PublicKeySize

	// PrivateKeySize is the size of a serialized Dilithium2 private key.
	PrivateKeySize = mode2.PrivateKeySize

	// SignatureSize is the size of a Dilithium2 signature.
	SignatureSize = mode2.SignatureSize
)

var (
	// ErrInvalidPublicKey is returned when a public key has the wrong length.
	ErrInvalidPublicKey = errors.New("dilithium: invalid public key")

	// ErrInvalidSignature is returned when a signature has the wrong length.
	ErrInvalidSignature = errors.New("dilithium: invalid signature")
)

// PrivateKey wraps a Dilithium2 private key.
type PrivateKey struct {
	inner *mode2.PrivateKey
	pub   *mode2.PublicKey
}

// PublicKey wraps a Dilithium2 public key.
type PublicKey struct {
	inner *mode2.PublicKey
}

// GenerateKey generates a new Dilithium2 key pair.
func GenerateKey() (*PrivateKey, error) {
	pub, priv, err := mode2.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("dilithium keygen: %w", err)
	}
	return &PrivateKey{inner: priv, pub: pub}, nil
}

// Public returns the public key corresponding to this private key.
func (sk *PrivateKey) Public() *PublicKey {
	if sk == nil || sk.pub == nil {
		return nil
	}
	return &PublicKey{inner: sk.pub}
}

// Sign signs msg with the private key and returns the signature.
func Sign(priv *PrivateKey, msg []byte) []byte {
	sig := make([]byte, SignatureSize)
	mode2.SignTo(priv.inner, msg, sig)
	return sig
}

// Verify reports whether sig is a valid Dilithium2 signature of msg.
func Verify(pub *PublicKey, msg, sig []byte) bool {
	if pub == nil || pub.inner == nil {
		return false
	}
	if len(sig) != SignatureSize {
		return false
	}
	return mode2.Verify(pub.inner, msg, sig)
}

// VerifyBytes is Verify over a serialized public key. Length errors on the
// key or the signature are reported; a mismatching signature is false.
func VerifyBytes(pub, msg, sig []byte) (bool, error) {
	key, err := UnmarshalPublicKey(pub)
	if err != nil {
		return false, err
	}
	if len(sig) != SignatureSize {
		return false, ErrInvalidSignature
	}
	return Verify(key, msg, sig), nil
}

// MarshalPublicKey serializes a Dilithium public key to bytes.
func MarshalPublicKey(pub *PublicKey) []byte {
	if pub == nil || pub.inner == nil {
		return nil
	}
	var buf [PublicKeySize]byte
	pub.inner.Pack(&buf)
	return buf[:]
}

// UnmarshalPublicKey deserializes a Dilithium public key from bytes.
func UnmarshalPublicKey(data []byte) (*PublicKey, error) {
	if len(data) != PublicKeySize {
		return nil, fmt.Errorf("%w: size %d, want %d", ErrInvalidPublicKey, len(data), PublicKeySize)
	}
	var buf [PublicKeySize]byte
	copy(buf[:], data)
	pk := new(mode2.PublicKey)
	pk.Unpack(&buf)
	return &PublicKey{inner: pk}, nil
}
