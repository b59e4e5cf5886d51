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
	"sort"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/neo-zkvm/core/vm"
)

var debugCommand = cli.Command{
	Action:    debugCmd,
	Name:      "debug",
	Usage:     "Step through a script interactively",
	ArgsUsage: "<file|hex>",
	Flags:     []cli.Flag{gasFlag, asmFlag, argsFlag},
	Description: `
The debug command loads a script into a paused machine and reads commands
from the terminal. Type "help" for the list.`,
}

const debugHelp = `Commands:
  step [n]        execute n instructions (default 1)
  continue        run until a breakpoint, halt or fault
  break [ip]      stop before the instruction at ip, or list breakpoints
  delete <ip>     remove a breakpoint
  where           show the next instruction
  stack           print the evaluation stack
  dump <n>        dump the n-th stack item, 0 being the top
  gas             show the gas consumption
  quit            leave the debugger`

// debugger interprets the commands of an interactive session on a machine.
type debugger struct {
	machine     *vm.VM
	breakpoints map[int]bool
	out         io.Writer
}

func newDebugger(machine *vm.VM, out io.Writer) *debugger {
	return &debugger{machine: machine, breakpoints: make(map[int]bool), out: out}
}

// exec runs a single command line and reports whether the session ends.
func (d *debugger) exec(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "s", "step":
		n := 1
		if len(args) > 0 {
			var err error
			if n, err = strconv.Atoi(args[0]); err != nil || n < 1 {
				return false, fmt.Errorf("invalid step count %q", args[0])
			}
		}
		for i := 0; i < n && !d.finished(); i++ {
			d.machine.ExecuteNext()
		}
		d.where()
	case "c", "cont", "continue":
		if !d.finished() {
			d.machine.Run()
		}
		d.where()
	case "b", "break", "d", "delete":
		if len(args) == 0 && cmd[0] == 'b' {
			d.listBreakpoints()
			return false, nil
		}
		if len(args) != 1 {
			return false, fmt.Errorf("%s needs an instruction offset", cmd)
		}
		ip, err := strconv.ParseInt(args[0], 0, 32)
		if err != nil || ip < 0 || int(ip) >= len(d.machine.Script()) {
			return false, fmt.Errorf("invalid offset %q", args[0])
		}
		if cmd[0] == 'b' {
			d.machine.AddBreakPoint(int(ip))
			d.breakpoints[int(ip)] = true
			fmt.Fprintf(d.out, "Breakpoint at %04X\n", ip)
		} else {
			d.machine.RemoveBreakPoint(int(ip))
			delete(d.breakpoints, int(ip))
		}
	case "w", "where":
		d.where()
	case "stack":
		printStack(d.out, d.machine.Estack())
	case "dump":
		n := 0
		if len(args) > 0 {
			var err error
			if n, err = strconv.Atoi(args[0]); err != nil {
				return false, fmt.Errorf("invalid stack index %q", args[0])
			}
		}
		item, err := d.machine.Estack().Peek(n)
		if err != nil {
			return false, err
		}
		fmt.Fprint(d.out, spew.Sdump(item))
	case "gas":
		fmt.Fprintf(d.out, "Gas: %d / %d\n", d.machine.GasConsumed(), d.machine.GasLimit())
	case "h", "help":
		fmt.Fprintln(d.out, debugHelp)
	case "q", "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", cmd)
	}
	return false, nil
}

func (d *debugger) listBreakpoints() {
	ips := make([]int, 0, len(d.breakpoints))
	for ip := range d.breakpoints {
		ips = append(ips, ip)
	}
	sort.Ints(ips)
	for _, ip := range ips {
		fmt.Fprintf(d.out, "Breakpoint at %04X\n", ip)
	}
}

func (d *debugger) finished() bool {
	state := d.machine.State()
	return state == vm.HaltState || state == vm.FaultState
}

// where prints the machine state and the instruction about to run.
func (d *debugger) where() {
	switch d.machine.State() {
	case vm.HaltState:
		fmt.Fprintf(d.out, "HALT, gas %d\n", d.machine.GasConsumed())
		return
	case vm.FaultState:
		fmt.Fprintf(d.out, "FAULT: %v\n", d.machine.Error())
		return
	}
	ctx := d.machine.Context()
	if ctx == nil {
		fmt.Fprintln(d.out, "no frame")
		return
	}
	op, param, err := ctx.NextInstruction()
	if err != nil {
		fmt.Fprintf(d.out, "%04X: %s <%v>\n", ctx.IP(), op, err)
		return
	}
	fmt.Fprintf(d.out, "%04X: %s %x (%s, depth %d)\n", ctx.IP(), op, param, d.machine.State(), len(d.machine.Istack()))
}

func debugCmd(ctx *cli.Context) error {
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

	machine := newMachine(&cfg, env.newHost(cfg.Runtime))
	if err := machine.LoadScript(script); err != nil {
		return err
	}
	for _, arg := range args {
		if err := machine.Push(arg); err != nil {
			return err
		}
	}
	machine.Break()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	history := filepath.Join(os.TempDir(), ".neozk_history")
	if f, err := os.Open(history); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(history); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	d := newDebugger(machine, os.Stdout)
	d.where()
	for {
		input, err := line.Prompt("neozk> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		quit, err := d.exec(input)
		if err != nil {
			fmt.Fprintln(os.Stdout, "error:", err)
		}
		if quit {
			break
		}
	}
	if machine.State() == vm.HaltState {
		_, err = env.commit()
		return err
	}
	return nil
}
