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

// Package prover turns traced executions into proofs over their public
// values and verifies them.
package prover

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/vm"
	"github.com/probechain/neo-zkvm/crypto"
	"golang.org/x/sync/errgroup"
)

// Mode selects what the prover emits besides the public values.
type Mode uint8

const (
	// ModeMock emits a self-describing proof blob over the public values
	// and the trace commitment.
	ModeMock Mode = iota
	// ModeExecute only executes; the proof bytes stay empty.
	ModeExecute
)

func (m Mode) String() string {
	switch m {
	case ModeMock:
		return "mock"
	case ModeExecute:
		return "execute"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "mock":
		return ModeMock, nil
	case "execute":
		return ModeExecute, nil
	}
	return 0, fmt.Errorf("prover: unknown mode %q", s)
}

// Config tunes a Prover.
type Config struct {
	Mode   Mode
	Limits vm.Limits

	// Syscalls, if set, creates the syscall host of every execution.
	Syscalls func() vm.SyscallHost `toml:"-"`
}

// DefaultConfig proves in mock mode with the default engine limits.
var DefaultConfig = Config{
	Mode:   ModeMock,
	Limits: vm.DefaultLimits,
}

// mockProof is the payload of a mock proof blob.
type mockProof struct {
	Values     PublicValues
	Commitment common.Hash
	Steps      uint64
}

// Prover executes scripts with tracing and packages the result.
type Prover struct {
	cfg Config
	log log.Logger
}

// New creates a prover.
func New(cfg Config) *Prover {
	return &Prover{cfg: cfg, log: log.New("module", "prover")}
}

// Config returns the prover configuration.
func (p *Prover) Config() Config { return p.cfg }

// Execute runs input and returns its output and trace.
func (p *Prover) Execute(ctx context.Context, input ProofInput) (*ProofOutput, *vm.Trace, error) {
	opts := []vm.Option{vm.WithTracing(true), vm.WithLimits(p.cfg.Limits)}
	if p.cfg.Syscalls != nil {
		opts = append(opts, vm.WithSyscalls(p.cfg.Syscalls()))
	}
	machine := vm.New(input.GasLimit, opts...)
	if err := machine.LoadScript(input.Script); err != nil {
		return nil, nil, err
	}
	for i, arg := range input.Arguments {
		if err := machine.Push(arg); err != nil {
			return nil, nil, fmt.Errorf("prover: argument %d: %w", i, err)
		}
	}
	if err := machine.RunContext(ctx); err != nil && ctx.Err() != nil {
		return nil, nil, err
	}
	out := &ProofOutput{
		State:       StateOther,
		Result:      machine.Estack().Top(),
		GasConsumed: machine.GasConsumed(),
	}
	switch machine.State() {
	case vm.HaltState:
		out.State = StateHalt
	case vm.FaultState:
		out.State = StateFault
	}
	if err := machine.Error(); err != nil {
		out.Error = err.Error()
	}
	return out, machine.Trace(), nil
}

// Prove executes input and builds a proof of the outcome. A faulting
// script still yields a proof; only invalid input or cancellation fail.
func (p *Prover) Prove(ctx context.Context, input ProofInput) (*Proof, error) {
	start := time.Now()
	out, trace, err := p.Execute(ctx, input)
	if err != nil {
		return nil, err
	}
	inputHash, err := input.Hash()
	if err != nil {
		return nil, err
	}
	outputHash, err := out.Hash()
	if err != nil {
		return nil, err
	}
	proof := &Proof{
		ID:     uuid.New(),
		Output: *out,
		PublicValues: PublicValues{
			ScriptHash:       crypto.Sha256Hash(input.Script),
			InputHash:        inputHash,
			OutputHash:       outputHash,
			GasConsumed:      out.GasConsumed,
			ExecutionSuccess: out.Success(),
		},
		Commitment: trace.Commitment(),
	}
	if p.cfg.Mode == ModeMock {
		blob, err := rlp.EncodeToBytes(&mockProof{
			Values:     proof.PublicValues,
			Commitment: proof.Commitment,
			Steps:      uint64(len(trace.Steps)),
		})
		if err != nil {
			return nil, err
		}
		proof.ProofBytes = snappy.Encode(nil, blob)
	}
	p.log.Info("Generated proof", "id", proof.ID, "mode", p.cfg.Mode, "state", out.State,
		"gas", out.GasConsumed, "steps", len(trace.Steps), "elapsed", time.Since(start))
	return proof, nil
}

// ProveBatch proves inputs on up to workers goroutines. The proofs are
// returned in input order; the first failure cancels the rest.
func (p *Prover) ProveBatch(ctx context.Context, inputs []ProofInput, workers int) ([]*Proof, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	proofs := make([]*Proof, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for idx := range jobs {
				proof, err := p.Prove(ctx, inputs[idx])
				if err != nil {
					return fmt.Errorf("prover: input %d: %w", idx, err)
				}
				proofs[idx] = proof
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(jobs)
		for i := range inputs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return proofs, nil
}
