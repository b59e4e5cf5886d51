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

package dilithium

import (
	"errors"
	"testing"
)

func TestSignVerify(t *testing.T) {
	sk, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("neo-zkvm post-quantum message")
	sig := Sign(sk, msg)
	if len(sig) != SignatureSize {
		t.Fatalf("signature size = %d; want %d", len(sig), SignatureSize)
	}
	if !Verify(sk.Public(), msg, sig) {
		t.Fatal("valid signature rejected")
	}
	if Verify(sk.Public(), []byte("other"), sig) {
		t.Fatal("signature accepted for a different message")
	}
}

func TestVerifyBytes(t *testing.T) {
	sk, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("payload")
	sig := Sign(sk, msg)
	pub := MarshalPublicKey(sk.Public())

	ok, err := VerifyBytes(pub, msg, sig)
	if err != nil || !ok {
		t.Fatalf("VerifyBytes = %v, %v; want true, nil", ok, err)
	}
	if _, err := VerifyBytes(pub[:10], msg, sig); !errors.Is(err, ErrInvalidPublicKey) {
		t.Errorf("short key: err = %v; want ErrInvalidPublicKey", err)
	}
	if _, err := VerifyBytes(pub, msg, sig[:100]); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("short signature: err = %v; want ErrInvalidSignature", err)
	}
}
