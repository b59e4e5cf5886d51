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
	"math/big"
	"testing"

	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/interop"
	"github.com/probechain/neo-zkvm/core/vm"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
	"github.com/probechain/neo-zkvm/crypto"
	"github.com/probechain/neo-zkvm/crypto/dilithium"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bs(s string) stackitem.Item { return stackitem.ByteString(s) }

func invoke(t *testing.T, hash common.ScriptHash, method string, args ...stackitem.Item) stackitem.Item {
	t.Helper()
	out, err := NewRegistry().Invoke(hash, method, args)
	require.NoError(t, err, "%s", method)
	return out
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	contracts := r.Contracts()
	require.Len(t, contracts, 2)
	assert.Equal(t, "StdLib", contracts[0].Name())
	assert.Equal(t, "CryptoLib", contracts[1].Name())
	assert.Equal(t, "0xacce6fd80d44e1a3926de21ccf30969a224bc06b", StdLibHash.Hex())
	assert.Equal(t, "0x726cb6e0cd8b0ac33ce1dec0d47e5c3c4a6b8a0d", CryptoLibHash.Hex())

	c, ok := r.ByName("CryptoLib")
	require.True(t, ok)
	assert.Equal(t, []string{"ripemd160", "sha256", "verifyWithDilithium", "verifyWithECDsa"}, c.Methods())

	assert.Error(t, r.Register(NewStdLib()))

	_, err := r.Invoke(common.ScriptHash{1}, "itoa", nil)
	assert.ErrorIs(t, err, ErrUnknownContract)
	_, err = r.Invoke(StdLibHash, "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownMethod)
	_, err = r.Invoke(StdLibHash, "itoa", nil)
	assert.ErrorIs(t, err, ErrArgCount)
	_, err = r.Invoke(StdLibHash, "base64Encode", []stackitem.Item{stackitem.NewInt(1)})
	assert.ErrorIs(t, err, ErrArgType)
	assert.ErrorIs(t, err, vm.ErrInvalidType)
	_, err = r.Invoke(CryptoLibHash, "sha256", []stackitem.Item{stackitem.ByteString(make([]byte, MaxInputSize+1))})
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestItoa(t *testing.T) {
	cases := []struct {
		n    int64
		base int64
		want string
	}{
		{0, 10, "0"},
		{-42, 10, "-42"},
		{1, 16, "1"},
		{15, 16, "0f"},
		{255, 16, "0ff"},
		{1_000_000_000, 16, "3b9aca00"},
		{-1, 16, "f"},
		{-8, 16, "8"},
		{-9, 16, "f7"},
		{-16, 16, "f0"},
		{-128, 16, "80"},
		{-129, 16, "f7f"},
	}
	for _, c := range cases {
		out := invoke(t, StdLibHash, "itoa", stackitem.NewInt(c.n), stackitem.NewInt(c.base))
		assert.Equal(t, bs(c.want), out, "itoa(%d, %d)", c.n, c.base)

		back := invoke(t, StdLibHash, "atoi", out, stackitem.NewInt(c.base))
		assert.True(t, back.Equals(stackitem.NewInt(c.n)), "atoi(%s, %d) = %s", c.want, c.base, back)
	}
	assert.Equal(t, bs("7"), invoke(t, StdLibHash, "itoa", stackitem.NewInt(7)))

	_, err := NewRegistry().Invoke(StdLibHash, "itoa", []stackitem.Item{stackitem.NewInt(1), stackitem.NewInt(8)})
	assert.ErrorIs(t, err, vm.ErrInvalidOperation)
}

func TestAtoi(t *testing.T) {
	cases := []struct {
		in   string
		base int64
		want int64
	}{
		{"123", 10, 123},
		{" -7 ", 10, -7},
		{"101", 2, 5},
		{"-11", 2, -3},
		{"7f", 16, 127},
		{"ff", 16, -1},
	}
	for _, c := range cases {
		out := invoke(t, StdLibHash, "atoi", bs(c.in), stackitem.NewInt(c.base))
		assert.True(t, out.Equals(stackitem.NewInt(c.want)), "atoi(%q, %d) = %s", c.in, c.base, out)
	}
	for _, bad := range []string{"", "xyz", "-f"} {
		_, err := NewRegistry().Invoke(StdLibHash, "atoi", []stackitem.Item{bs(bad), stackitem.NewInt(16)})
		assert.ErrorIs(t, err, vm.ErrInvalidOperation, "atoi(%q)", bad)
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 200).String()
	_, err := NewRegistry().Invoke(StdLibHash, "atoi", []stackitem.Item{bs(huge)})
	assert.Error(t, err)
}

func TestStdLibEncodings(t *testing.T) {
	arr := stackitem.NewArray([]stackitem.Item{stackitem.NewInt(1), bs("a"), stackitem.Bool(true)})

	ser := invoke(t, StdLibHash, "serialize", arr)
	back := invoke(t, StdLibHash, "deserialize", ser)
	require.Equal(t, stackitem.ArrayT, back.Type())
	items := back.(*stackitem.Array).Items()
	require.Len(t, items, 3)
	assert.True(t, items[0].Equals(stackitem.NewInt(1)))
	assert.True(t, items[1].Equals(bs("a")))

	js := invoke(t, StdLibHash, "jsonSerialize", arr)
	assert.Equal(t, bs(`[1,"a",true]`), js)
	parsed := invoke(t, StdLibHash, "jsonDeserialize", js)
	require.Equal(t, stackitem.ArrayT, parsed.Type())
	assert.Equal(t, 3, parsed.(*stackitem.Array).Len())

	enc := invoke(t, StdLibHash, "base64Encode", bs("hello"))
	assert.Equal(t, bs("aGVsbG8="), enc)
	assert.Equal(t, bs("hello"), invoke(t, StdLibHash, "base64Decode", enc))

	_, err := NewRegistry().Invoke(StdLibHash, "base64Decode", []stackitem.Item{bs("!!")})
	assert.ErrorIs(t, err, vm.ErrInvalidOperation)

	cmp := []struct {
		a, b string
		want int64
	}{{"a", "b", -1}, {"b", "b", 0}, {"ba", "b", 1}}
	for _, c := range cmp {
		out := invoke(t, StdLibHash, "memoryCompare", bs(c.a), bs(c.b))
		assert.True(t, out.Equals(stackitem.NewInt(c.want)), "memoryCompare(%q, %q)", c.a, c.b)
	}
}

func TestCryptoLibDigests(t *testing.T) {
	assert.Equal(t, stackitem.ByteString(crypto.Sha256([]byte("abc"))), invoke(t, CryptoLibHash, "sha256", bs("abc")))
	assert.Equal(t, stackitem.ByteString(crypto.Ripemd160([]byte("abc"))), invoke(t, CryptoLibHash, "ripemd160", bs("abc")))
}

func TestVerifyWithECDsa(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	msg := []byte("native message")
	sig, err := crypto.Sign(msg, key)
	require.NoError(t, err)
	pub := key.PubKey().SerializeCompressed()

	ok := invoke(t, CryptoLibHash, "verifyWithECDsa", stackitem.ByteString(msg), stackitem.ByteString(pub), stackitem.ByteString(sig))
	assert.Equal(t, stackitem.Bool(true), ok)

	bad := invoke(t, CryptoLibHash, "verifyWithECDsa", bs("other"), stackitem.ByteString(pub), stackitem.ByteString(sig))
	assert.Equal(t, stackitem.Bool(false), bad)

	malformed := invoke(t, CryptoLibHash, "verifyWithECDsa", stackitem.ByteString(msg), bs("key"), stackitem.ByteString(sig))
	assert.Equal(t, stackitem.Bool(false), malformed)
}

func TestVerifyWithDilithium(t *testing.T) {
	key, err := dilithium.GenerateKey()
	require.NoError(t, err)
	msg := []byte("post-quantum")
	sig := dilithium.Sign(key, msg)
	pub := dilithium.MarshalPublicKey(key.Public())

	ok := invoke(t, CryptoLibHash, "verifyWithDilithium", stackitem.ByteString(msg), stackitem.ByteString(pub), stackitem.ByteString(sig))
	assert.Equal(t, stackitem.Bool(true), ok)

	sig[0] ^= 0xff
	bad := invoke(t, CryptoLibHash, "verifyWithDilithium", stackitem.ByteString(msg), stackitem.ByteString(pub), stackitem.ByteString(sig))
	assert.Equal(t, stackitem.Bool(false), bad)
}

func TestCallNativeThroughHost(t *testing.T) {
	method := []byte("itoa")
	script := []byte{byte(vm.PUSH16), byte(vm.PUSH16), byte(vm.PUSH2), byte(vm.PACK)}
	script = append(script, byte(vm.PUSHDATA1), byte(len(method)))
	script = append(script, method...)
	script = append(script, byte(vm.PUSHDATA1), common.ScriptHashLength)
	script = append(script, StdLibHash.Bytes()...)
	script = append(script, byte(vm.SYSCALL), byte(vm.SyscallCallNative), 0, 0, 0)

	host := interop.NewHost(interop.Config{}, interop.WithNatives(NewRegistry()))
	v := vm.New(1<<20, vm.WithSyscalls(host))
	require.NoError(t, v.LoadScript(script))
	require.NoError(t, v.Run())
	assert.Equal(t, bs("10"), v.Estack().Top())
}
