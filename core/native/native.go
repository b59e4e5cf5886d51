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

// Package native implements the built-in contracts reachable through the
// System.Contract.CallNative syscall.
package native

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/vm"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
)

// MaxInputSize bounds every byte argument and every produced output.
const MaxInputSize = 1024 * 1024

var (
	ErrUnknownContract = fmt.Errorf("%w: unknown native contract", vm.ErrInvalidOperation)
	ErrUnknownMethod   = fmt.Errorf("%w: unknown native method", vm.ErrInvalidOperation)
	ErrArgCount        = fmt.Errorf("%w: wrong native argument count", vm.ErrInvalidOperation)
	ErrArgType         = fmt.Errorf("%w: wrong native argument type", vm.ErrInvalidType)
	ErrInputTooLarge   = fmt.Errorf("%w: native input too large", vm.ErrInvalidOperation)

	errDuplicate = errors.New("native: contract already registered")
)

// Contract is a built-in contract addressed by a fixed script hash.
type Contract interface {
	Name() string
	Hash() common.ScriptHash
	Methods() []string
	Invoke(method string, args []stackitem.Item) (stackitem.Item, error)
}

// Registry dispatches native calls by contract hash. It implements
// vm.NativeInvoker.
type Registry struct {
	contracts map[common.ScriptHash]Contract
	order     []Contract
	log       log.Logger
}

// NewRegistry returns a registry holding StdLib and CryptoLib.
func NewRegistry() *Registry {
	r := &Registry{
		contracts: make(map[common.ScriptHash]Contract),
		log:       log.New("module", "native"),
	}
	for _, c := range []Contract{NewStdLib(), NewCryptoLib()} {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a contract. Hashes must be unique.
func (r *Registry) Register(c Contract) error {
	if _, ok := r.contracts[c.Hash()]; ok {
		return fmt.Errorf("%w: %s (%s)", errDuplicate, c.Name(), c.Hash())
	}
	r.contracts[c.Hash()] = c
	r.order = append(r.order, c)
	return nil
}

// Contract looks a contract up by hash.
func (r *Registry) Contract(hash common.ScriptHash) (Contract, bool) {
	c, ok := r.contracts[hash]
	return c, ok
}

// ByName looks a contract up by its name.
func (r *Registry) ByName(name string) (Contract, bool) {
	for _, c := range r.order {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Contracts lists the registered contracts in registration order.
func (r *Registry) Contracts() []Contract {
	return append([]Contract(nil), r.order...)
}

// Invoke implements vm.NativeInvoker.
func (r *Registry) Invoke(hash common.ScriptHash, method string, args []stackitem.Item) (stackitem.Item, error) {
	c, ok := r.contracts[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, hash)
	}
	result, err := c.Invoke(method, args)
	if err != nil {
		r.log.Debug("Native call failed", "contract", c.Name(), "method", method, "err", err)
		return nil, err
	}
	r.log.Trace("Native call", "contract", c.Name(), "method", method, "args", len(args))
	return result, nil
}

// ---- Method tables ---------------------------------------------------------

type method struct {
	minArgs, maxArgs int
	run              func(args []stackitem.Item) (stackitem.Item, error)
}

// base carries the identity and method table shared by the built-ins.
type base struct {
	name    string
	hash    common.ScriptHash
	methods map[string]method
}

func (b *base) Name() string            { return b.name }
func (b *base) Hash() common.ScriptHash { return b.hash }

func (b *base) Methods() []string {
	names := make([]string, 0, len(b.methods))
	for name := range b.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *base) Invoke(name string, args []stackitem.Item) (stackitem.Item, error) {
	m, ok := b.methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, b.name, name)
	}
	if len(args) < m.minArgs || len(args) > m.maxArgs {
		return nil, fmt.Errorf("%w: %s.%s takes %d..%d, got %d", ErrArgCount, b.name, name, m.minArgs, m.maxArgs, len(args))
	}
	return m.run(args)
}

// ---- Argument helpers ------------------------------------------------------

func bytesArg(args []stackitem.Item, i int) ([]byte, error) {
	switch item := args[i].(type) {
	case stackitem.ByteString:
		return checkInput(item)
	case *stackitem.Buffer:
		return checkInput(item.Bytes())
	default:
		return nil, fmt.Errorf("%w: argument %d is %s, want ByteString", ErrArgType, i, args[i].Type())
	}
}

func checkInput(b []byte) ([]byte, error) {
	if len(b) > MaxInputSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInputTooLarge, len(b))
	}
	return b, nil
}

func intArg(args []stackitem.Item, i int) (*stackitem.Integer, error) {
	n, ok := args[i].(*stackitem.Integer)
	if !ok {
		return nil, fmt.Errorf("%w: argument %d is %s, want Integer", ErrArgType, i, args[i].Type())
	}
	return n, nil
}

// baseArg reads the optional numeric base at index i.
func baseArg(args []stackitem.Item, i int, allowed ...int64) (int, error) {
	if len(args) <= i {
		return 10, nil
	}
	n, err := intArg(args, i)
	if err != nil {
		return 0, err
	}
	b, ok := n.Int64()
	if ok {
		for _, a := range allowed {
			if a == b {
				return int(b), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unsupported base %s", vm.ErrInvalidOperation, n)
}
