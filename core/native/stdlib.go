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
	"bytes"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/vm"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
)

// StdLibHash is the script hash of the StdLib contract.
var StdLibHash = common.HexToScriptHash("acce6fd80d44e1a3926de21ccf30969a224bc06b")

// StdLib provides serialization, encoding and number formatting helpers.
type StdLib struct{ base }

// NewStdLib creates the StdLib contract.
func NewStdLib() *StdLib {
	return &StdLib{base{
		name: "StdLib",
		hash: StdLibHash,
		methods: map[string]method{
			"serialize":       {1, 1, stdSerialize},
			"deserialize":     {1, 1, stdDeserialize},
			"jsonSerialize":   {1, 1, stdJSONSerialize},
			"jsonDeserialize": {1, 1, stdJSONDeserialize},
			"base64Encode":    {1, 1, stdBase64Encode},
			"base64Decode":    {1, 1, stdBase64Decode},
			"itoa":            {1, 2, stdItoa},
			"atoi":            {1, 2, stdAtoi},
			"memoryCompare":   {2, 2, stdMemoryCompare},
		},
	}}
}

func output(b []byte) (stackitem.Item, error) {
	if _, err := checkInput(b); err != nil {
		return nil, err
	}
	return stackitem.ByteString(b), nil
}

func stdSerialize(args []stackitem.Item) (stackitem.Item, error) {
	data, err := stackitem.Serialize(args[0])
	if err != nil {
		return nil, err
	}
	return output(data)
}

func stdDeserialize(args []stackitem.Item) (stackitem.Item, error) {
	data, err := bytesArg(args, 0)
	if err != nil {
		return nil, err
	}
	return stackitem.Deserialize(data)
}

func stdJSONSerialize(args []stackitem.Item) (stackitem.Item, error) {
	data, err := stackitem.ToJSON(args[0])
	if err != nil {
		return nil, err
	}
	return output(data)
}

func stdJSONDeserialize(args []stackitem.Item) (stackitem.Item, error) {
	data, err := bytesArg(args, 0)
	if err != nil {
		return nil, err
	}
	return stackitem.FromJSON(data)
}

func stdBase64Encode(args []stackitem.Item) (stackitem.Item, error) {
	data, err := bytesArg(args, 0)
	if err != nil {
		return nil, err
	}
	return output([]byte(base64.StdEncoding.EncodeToString(data)))
}

func stdBase64Decode(args []stackitem.Item) (stackitem.Item, error) {
	data, err := bytesArg(args, 0)
	if err != nil {
		return nil, err
	}
	out, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vm.ErrInvalidOperation, err)
	}
	return stackitem.ByteString(out), nil
}

func stdItoa(args []stackitem.Item) (stackitem.Item, error) {
	n, err := intArg(args, 0)
	if err != nil {
		return nil, err
	}
	b, err := baseArg(args, 1, 10, 16)
	if err != nil {
		return nil, err
	}
	if b == 16 {
		return stackitem.ByteString(hexTwosComplement(n.Big())), nil
	}
	return stackitem.ByteString(n.Big().String()), nil
}

func stdAtoi(args []stackitem.Item) (stackitem.Item, error) {
	data, err := bytesArg(args, 0)
	if err != nil {
		return nil, err
	}
	b, err := baseArg(args, 1, 2, 10, 16)
	if err != nil {
		return nil, err
	}
	s := strings.TrimSpace(string(data))
	var (
		x  *big.Int
		ok bool
	)
	if b == 16 {
		x, ok = parseHexTwosComplement(s)
	} else {
		x, ok = new(big.Int).SetString(s, b)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a base %d integer", vm.ErrInvalidOperation, s, b)
	}
	return stackitem.NewIntFromBig(x)
}

func stdMemoryCompare(args []stackitem.Item) (stackitem.Item, error) {
	a, err := bytesArg(args, 0)
	if err != nil {
		return nil, err
	}
	b, err := bytesArg(args, 1)
	if err != nil {
		return nil, err
	}
	return stackitem.NewInt(int64(bytes.Compare(a, b))), nil
}

// hexTwosComplement formats x with the fewest hex digits whose leading
// nibble carries the sign: 255 is "0ff", -1 is "f".
func hexTwosComplement(x *big.Int) string {
	if x.Sign() >= 0 {
		s := x.Text(16)
		if s[0] >= '8' {
			s = "0" + s
		}
		return s
	}
	for digits := 1; ; digits++ {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(4*digits))
		half := new(big.Int).Rsh(limit, 1)
		if x.Cmp(new(big.Int).Neg(half)) >= 0 {
			s := new(big.Int).Add(limit, x).Text(16)
			return strings.Repeat("0", digits-len(s)) + s
		}
	}
}

// parseHexTwosComplement is the inverse of hexTwosComplement.
func parseHexTwosComplement(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	x, ok := new(big.Int).SetString(s, 16)
	if !ok || x.Sign() < 0 || strings.HasPrefix(s, "+") {
		return nil, false
	}
	if s[0] >= '8' && s[0] <= '9' || strings.ContainsRune("abcdefABCDEF", rune(s[0])) {
		x.Sub(x, new(big.Int).Lsh(big.NewInt(1), uint(4*len(s))))
	}
	return x, true
}
