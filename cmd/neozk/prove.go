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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/prover"
)

var (
	proveCommand = cli.Command{
		Action:    proveCmd,
		Name:      "prove",
		Usage:     "Execute scripts and write their proofs",
		ArgsUsage: "<file|hex> [<file|hex>...]",
		Flags:     []cli.Flag{gasFlag, asmFlag, argsFlag, outFlag},
		Description: `
The prove command executes every given script and writes a proof envelope for
each. Several scripts are proven in parallel. With --out a single proof is
written to the named file and several proofs to <out>.<index>; otherwise the
envelopes are printed as hex, one per line.`,
	}
	verifyCommand = cli.Command{
		Action:    verifyCmd,
		Name:      "verify",
		Usage:     "Check a proof envelope",
		ArgsUsage: "<file|hex>",
	}
)

var errInvalidProof = errors.New("proof rejected")

func proveCmd(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return errNoInput
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	args, err := parseArgs(ctx.String(argsFlag.Name))
	if err != nil {
		return err
	}
	inputs := make([]prover.ProofInput, ctx.NArg())
	for i, arg := range ctx.Args() {
		script, err := loadScript(arg, ctx.Bool(asmFlag.Name))
		if err != nil {
			return err
		}
		inputs[i] = prover.ProofInput{Script: script, Arguments: args, GasLimit: cfg.VM.GasLimit}
	}
	env, err := openEnvironment(cfg.Storage)
	if err != nil {
		return err
	}
	defer env.Close()

	p := prover.New(cfg.proverSettings(env))
	proofs, err := p.ProveBatch(context.Background(), inputs, cfg.Prover.Workers)
	if err != nil {
		return err
	}
	if allHalted(proofs) {
		if _, err := env.commit(); err != nil {
			return err
		}
	} else {
		env.discard()
	}
	out := ctx.String(outFlag.Name)
	for i, proof := range proofs {
		enc, err := prover.EncodeProof(proof)
		if err != nil {
			return err
		}
		switch {
		case out == "":
			fmt.Println(hexutil.Encode(enc))
		case len(proofs) == 1:
			err = os.WriteFile(out, enc, 0644)
		default:
			err = os.WriteFile(out+"."+strconv.Itoa(i), enc, 0644)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func allHalted(proofs []*prover.Proof) bool {
	for _, proof := range proofs {
		if !proof.Output.Success() {
			return false
		}
	}
	return true
}

// loadProof reads a proof envelope from a file or a hex string.
func loadProof(arg string) (*prover.Proof, error) {
	if arg == "" {
		return nil, errNoInput
	}
	var (
		data []byte
		err  error
	)
	if info, statErr := os.Stat(arg); statErr == nil && info.Mode().IsRegular() {
		data, err = os.ReadFile(arg)
	} else {
		data, err = common.ParseHex(arg)
	}
	if err != nil {
		return nil, err
	}
	return prover.DecodeProof(data)
}

func verifyCmd(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	proof, err := loadProof(ctx.Args().First())
	if err != nil {
		return err
	}
	verifier, err := prover.NewVerifier(cfg.Prover.VerifyCacheSize)
	if err != nil {
		return err
	}
	ok, err := verifier.Verify(proof)
	if err != nil {
		return err
	}
	printProof(os.Stdout, proof, ok)
	if !ok {
		return errInvalidProof
	}
	return nil
}

func printProof(w io.Writer, proof *prover.Proof, valid bool) {
	table := newTable(w, "Field", "Value")
	table.AppendBulk([][]string{
		{"ID", proof.ID.String()},
		{"State", stateName(proof.Output.State)},
		{"Script hash", proof.PublicValues.ScriptHash.Hex()},
		{"Input hash", proof.PublicValues.InputHash.Hex()},
		{"Output hash", proof.PublicValues.OutputHash.Hex()},
		{"Gas", strconv.FormatUint(proof.PublicValues.GasConsumed, 10)},
		{"Success", strconv.FormatBool(proof.PublicValues.ExecutionSuccess)},
		{"Commitment", proof.Commitment.Hex()},
		{"Proof bytes", strconv.Itoa(len(proof.ProofBytes))},
		{"Valid", strconv.FormatBool(valid)},
	})
	if proof.Output.Result != nil {
		table.Append([]string{"Result", proof.Output.Result.String()})
	}
	if proof.Output.Error != "" {
		table.Append([]string{"Error", proof.Output.Error})
	}
	table.Render()
}

func stateName(state uint8) string {
	switch state {
	case prover.StateHalt:
		return "HALT"
	case prover.StateFault:
		return "FAULT"
	}
	return "NONE"
}
