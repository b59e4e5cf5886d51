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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/neo-zkvm/asm"
	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/interop"
	"github.com/probechain/neo-zkvm/core/vm"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
	"github.com/probechain/neo-zkvm/internal/debug"
	"github.com/probechain/neo-zkvm/storage"
)

var (
	runCommand = cli.Command{
		Action:    runCmd,
		Name:      "run",
		Usage:     "Execute a script",
		ArgsUsage: "<file|hex>",
		Flags:     []cli.Flag{gasFlag, traceFlag, asmFlag, argsFlag},
		Description: `
The run command executes a script given as a bytecode file, a hex string or,
with --asm, assembly source. Storage writes of a halted run are committed.`,
	}
	asmCommand = cli.Command{
		Action:    asmCmd,
		Name:      "asm",
		Usage:     "Assemble source into bytecode",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{outFlag},
		Description: `
The asm command assembles a source file. Without --out the bytecode is
printed as hex.`,
	}
	disasmCommand = cli.Command{
		Action:    disasmCmd,
		Name:      "disasm",
		Usage:     "Disassemble bytecode",
		ArgsUsage: "<file|hex>",
		Flags:     []cli.Flag{colorFlag},
	}
)

var (
	errNoInput = errors.New("missing script argument")
	errFault   = errors.New("execution faulted")
)

// asmExtensions are the file extensions read as assembly source.
var asmExtensions = map[string]bool{".asm": true, ".nasm": true, ".neoasm": true}

// loadScript resolves a script argument. A path names a bytecode file, a
// hex text file or an assembly source; anything else is parsed as hex or,
// with assemble set, as inline assembly.
func loadScript(arg string, assemble bool) ([]byte, error) {
	if arg == "" {
		return nil, errNoInput
	}
	if info, err := os.Stat(arg); err == nil && info.Mode().IsRegular() {
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, err
		}
		if assemble || asmExtensions[strings.ToLower(filepath.Ext(arg))] {
			return asm.Assemble(string(data))
		}
		if hex, err := common.ParseHex(strings.TrimSpace(string(data))); err == nil && len(hex) > 0 {
			return hex, nil
		}
		return data, nil
	}
	if assemble {
		return asm.Assemble(arg)
	}
	script, err := common.ParseHex(arg)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a file nor hex: %w", arg, err)
	}
	return script, nil
}

// parseArgs decodes a JSON array of stack items.
func parseArgs(s string) ([]stackitem.Item, error) {
	if s == "" {
		return nil, nil
	}
	item, err := stackitem.FromJSON([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("invalid --args: %w", err)
	}
	arr, ok := item.(*stackitem.Array)
	if !ok {
		return nil, fmt.Errorf("invalid --args: want a JSON array, have %s", item.Type())
	}
	return arr.Items(), nil
}

func newMachine(cfg *neozkConfig, host vm.SyscallHost) *vm.VM {
	return vm.New(cfg.VM.GasLimit,
		vm.WithLimits(cfg.VM.limits()),
		vm.WithSyscalls(host),
		vm.WithTracing(cfg.VM.Trace),
	)
}

func runCmd(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	script, err := loadScript(ctx.Args().First(), ctx.Bool(asmFlag.Name))
	if err != nil {
		return err
	}
	args, err := parseArgs(ctx.String(argsFlag.Name))
	if err != nil {
		return err
	}
	env, err := openEnvironment(cfg.Storage)
	if err != nil {
		return err
	}
	defer env.Close()

	host := env.newHost(cfg.Runtime)
	machine := newMachine(&cfg, host)
	if err := machine.LoadScript(script); err != nil {
		return err
	}
	for _, arg := range args {
		if err := machine.Push(arg); err != nil {
			return err
		}
	}
	start := time.Now()
	machine.Run()
	elapsed := time.Since(start)

	var changes []storage.Change
	if machine.State() == vm.HaltState {
		if changes, err = env.commit(); err != nil {
			return err
		}
	} else {
		env.discard()
	}
	report(os.Stdout, machine, host, changes, elapsed)
	if machine.State() == vm.FaultState {
		return fmt.Errorf("%w: %v", errFault, machine.Error())
	}
	return nil
}

// report prints the outcome of an execution.
func report(w io.Writer, machine *vm.VM, host *interop.Host, changes []storage.Change, elapsed time.Duration) {
	fmt.Fprintf(w, "State:    %s\n", machine.State())
	fmt.Fprintf(w, "Gas:      %d / %d\n", machine.GasConsumed(), machine.GasLimit())
	fmt.Fprintf(w, "Elapsed:  %v\n", elapsed)
	if err := machine.Error(); err != nil {
		fmt.Fprintf(w, "Error:    %s (%v)\n", vm.ErrorKind(err), err)
	}
	fmt.Fprintln(w)
	printStack(w, machine.Estack())

	if logs := host.Logs(); len(logs) > 0 {
		fmt.Fprintln(w, "\nLogs:")
		table := newTable(w, "Contract", "Message")
		for _, entry := range logs {
			table.Append([]string{entry.ScriptHash.Hex(), entry.Message})
		}
		table.Render()
	}
	if notes := host.Notifications(); len(notes) > 0 {
		fmt.Fprintln(w, "\nNotifications:")
		table := newTable(w, "Contract", "Name", "State")
		for _, n := range notes {
			table.Append([]string{n.ScriptHash.Hex(), n.Name, n.State.String()})
		}
		table.Render()
	}
	if len(changes) > 0 {
		fmt.Fprintln(w, "\nStorage changes:")
		printChanges(w, changes)
	}
	if trace := machine.Trace(); trace != nil {
		fmt.Fprintln(w, "\nTrace:")
		printTrace(w, trace)
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// printStack prints the evaluation stack, top item first.
func printStack(w io.Writer, stack *vm.Stack) {
	items := stack.Items()
	if len(items) == 0 {
		fmt.Fprintln(w, "Stack:    empty")
		return
	}
	fmt.Fprintln(w, "Stack:")
	table := newTable(w, "#", "Type", "Value")
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		table.Append([]string{strconv.Itoa(len(items) - 1 - i), item.Type().String(), item.String()})
	}
	table.Render()
}

func printChanges(w io.Writer, changes []storage.Change) {
	table := newTable(w, "Contract", "Key", "Old", "New")
	for _, c := range changes {
		table.Append([]string{c.ScriptHash.Hex(), hexutil.Encode(c.Key), hexOrNone(c.OldValue), hexOrNone(c.NewValue)})
	}
	table.Render()
}

func hexOrNone(b []byte) string {
	if b == nil {
		return "-"
	}
	return hexutil.Encode(b)
}

func printTrace(w io.Writer, trace *vm.Trace) {
	table := newTable(w, "Step", "IP", "Opcode", "Depth", "Gas", "Digest")
	for i, step := range trace.Steps {
		table.Append([]string{
			strconv.Itoa(i),
			fmt.Sprintf("%04X", step.IP),
			step.Opcode.String(),
			strconv.Itoa(step.StackDepth),
			strconv.FormatUint(step.GasConsumed, 10),
			step.StateDigest.TerminalString(),
		})
	}
	table.Render()
	fmt.Fprintf(w, "Initial:     %s\n", trace.InitialDigest.Hex())
	fmt.Fprintf(w, "Final:       %s\n", trace.FinalDigest.Hex())
	fmt.Fprintf(w, "Commitment:  %s\n", trace.Commitment().Hex())
}

func asmCmd(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return errNoInput
	}
	src, err := os.ReadFile(ctx.Args().First())
	if err != nil {
		return err
	}
	script, err := asm.Assemble(string(src))
	if err != nil {
		return err
	}
	if out := ctx.String(outFlag.Name); out != "" {
		return os.WriteFile(out, script, 0644)
	}
	fmt.Println(hexutil.Encode(script))
	return nil
}

func disasmCmd(ctx *cli.Context) error {
	script, err := loadScript(ctx.Args().First(), false)
	if err != nil {
		return err
	}
	if ctx.Bool(colorFlag.Name) && debug.UseColor(os.Stdout) {
		fmt.Print(asm.DisassembleColor(script))
	} else {
		fmt.Print(asm.Disassemble(script))
	}
	return nil
}
