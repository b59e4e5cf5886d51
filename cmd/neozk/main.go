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

// neozk is the command line interface of the neo-zkvm virtual machine.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/neo-zkvm/internal/debug"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the LevelDB contract storage",
	}
	gasFlag = cli.Uint64Flag{
		Name:  "gas",
		Usage: "Gas limit of the execution (overrides the config)",
	}
	traceFlag = cli.BoolFlag{
		Name:  "trace",
		Usage: "Record and print the execution trace",
	}
	asmFlag = cli.BoolFlag{
		Name:  "asm",
		Usage: "Treat the input as assembly source",
	}
	argsFlag = cli.StringFlag{
		Name:  "args",
		Usage: "JSON array of stack items pushed before execution",
	}
	outFlag = cli.StringFlag{
		Name:  "out",
		Usage: "Output file (defaults to stdout)",
	}
	colorFlag = cli.BoolFlag{
		Name:  "color",
		Usage: "Colourise the disassembly",
	}
)

var app = newApp()

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "neozk"
	app.Usage = "the neo-zkvm command line interface"
	app.Version = "0.1.0"
	app.Flags = append([]cli.Flag{configFileFlag, dataDirFlag}, debug.Flags...)
	app.Commands = []cli.Command{
		runCommand,
		asmCommand,
		disasmCommand,
		proveCommand,
		verifyCommand,
		debugCommand,
		dumpConfigCommand,
	}
	app.Before = debug.Setup
	return app
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
