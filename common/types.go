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

// Package common contains the fixed-size hash types shared by the engine,
// storage, native contracts and the prover.
package common

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Lengths of hashes and script hashes in bytes.
const (
	// HashLength is the expected length of a digest such as SHA-256 or Keccak-256.
	HashLength = 32
	// ScriptHashLength is the expected length of a Hash160 script hash.
	ScriptHashLength = 20
)

// Hash represents a 32 byte digest of arbitrary data.
type Hash [HashLength]byte

// BytesToHash sets b to hash.
// If b is larger than len(h), b will be cropped from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash sets byte representation of s to hash.
func HexToHash(s string) Hash { return BytesToHash(FromHex(s)) }

// Bytes gets the byte representation of the underlying hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex converts a hash to a hex string.
func (h Hash) Hex() string { return hexutil.Encode(h[:]) }

// IsZero reports whether every byte of the hash is zero.
func (h Hash) IsZero() bool { return h == Hash{} }

// TerminalString implements log.TerminalStringer, formatting a string for console
// output during logging.
func (h Hash) TerminalString() string {
	return fmt.Sprintf("%x..%x", h[:3], h[29:])
}

// String implements the stringer interface and is used also by the logger when
// doing full logging into a file.
func (h Hash) String() string {
	return h.Hex()
}

// Format implements fmt.Formatter.
// Hash supports the %v, %s, %x, %X and %q format verbs.
func (h Hash) Format(s fmt.State, c rune) {
	formatHex(s, c, h[:])
}

// UnmarshalText parses a hash in hex syntax.
func (h *Hash) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Hash", input, h[:])
}

// MarshalText returns the hex representation of h.
func (h Hash) MarshalText() ([]byte, error) {
	return hexutil.Bytes(h[:]).MarshalText()
}

// SetBytes sets the hash to the value of b.
// If b is larger than len(h), b will be cropped from the left.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > len(h) {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// ScriptHash is the Hash160 (RIPEMD-160 of SHA-256) of a script. It names
// contracts in storage keys, notifications and the native registry.
type ScriptHash [ScriptHashLength]byte

// BytesToScriptHash returns ScriptHash with value b.
// If b is larger than len(h), b will be cropped from the left.
func BytesToScriptHash(b []byte) ScriptHash {
	var h ScriptHash
	h.SetBytes(b)
	return h
}

// HexToScriptHash returns ScriptHash with byte values of s.
func HexToScriptHash(s string) ScriptHash { return BytesToScriptHash(FromHex(s)) }

// Bytes gets the byte representation of the underlying script hash.
func (h ScriptHash) Bytes() []byte { return h[:] }

// Hex returns the 0x-prefixed hex representation of the script hash.
func (h ScriptHash) Hex() string { return hexutil.Encode(h[:]) }

// String implements fmt.Stringer.
func (h ScriptHash) String() string { return h.Hex() }

// TerminalString implements log.TerminalStringer.
func (h ScriptHash) TerminalString() string {
	return fmt.Sprintf("%x..%x", h[:3], h[17:])
}

// Format implements fmt.Formatter.
func (h ScriptHash) Format(s fmt.State, c rune) {
	formatHex(s, c, h[:])
}

// SetBytes sets the script hash to the value of b.
// If b is larger than len(h), b will be cropped from the left.
func (h *ScriptHash) SetBytes(b []byte) {
	if len(b) > len(h) {
		b = b[len(b)-ScriptHashLength:]
	}
	copy(h[ScriptHashLength-len(b):], b)
}

// UnmarshalText parses a script hash in hex syntax.
func (h *ScriptHash) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("ScriptHash", input, h[:])
}

// MarshalText returns the hex representation of h.
func (h ScriptHash) MarshalText() ([]byte, error) {
	return hexutil.Bytes(h[:]).MarshalText()
}

func formatHex(s fmt.State, c rune, b []byte) {
	hexb := make([]byte, 2+len(b)*2)
	copy(hexb, "0x")
	hex.Encode(hexb[2:], b)

	switch c {
	case 'x', 'X':
		if !s.Flag('#') {
			hexb = hexb[2:]
		}
		if c == 'X' {
			hexb = bytes.ToUpper(hexb)
		}
		fallthrough
	case 'v', 's':
		s.Write(hexb)
	case 'q':
		q := []byte{'"'}
		s.Write(q)
		s.Write(hexb)
		s.Write(q)
	default:
		fmt.Fprintf(s, "%%!%c(hash=%x)", c, b)
	}
}
