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

// Package debug wires the logging flags shared by the command line tools.
package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/urfave/cli.v1"
)

var (
	VerbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	VmoduleFlag = cli.StringFlag{
		Name:  "vmodule",
		Usage: "Per-module verbosity: comma-separated list of <pattern>=<level> (e.g. vm/*=5,prover=4)",
	}
	NoColorFlag = cli.BoolFlag{
		Name:  "nocolor",
		Usage: "Disable colored terminal output",
	}
)

// Flags holds all command-line flags required for debugging.
var Flags = []cli.Flag{VerbosityFlag, VmoduleFlag, NoColorFlag}

var glogger *log.GlogHandler

func init() {
	glogger = log.NewGlogHandler(log.NewTerminalHandler(os.Stderr, false))
	glogger.Verbosity(log.LevelWarn)
	log.SetDefault(log.NewLogger(glogger))
}

// UseColor reports whether w is a colour capable terminal.
func UseColor(w *os.File) bool {
	fd := w.Fd()
	return (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("TERM") != "dumb"
}

// Setup initializes logging from the command line flags.
func Setup(ctx *cli.Context) error {
	useColor := !ctx.GlobalBool(NoColorFlag.Name) && UseColor(os.Stderr)
	output := io.Writer(os.Stderr)
	if useColor {
		output = colorable.NewColorableStderr()
	}
	return setup(output, useColor, ctx.GlobalInt(VerbosityFlag.Name), ctx.GlobalString(VmoduleFlag.Name))
}

func setup(output io.Writer, useColor bool, verbosity int, vmodule string) error {
	if verbosity < 0 || verbosity > 5 {
		return fmt.Errorf("invalid verbosity %d", verbosity)
	}
	handler := log.NewGlogHandler(log.NewTerminalHandler(output, useColor))
	handler.Verbosity(log.FromLegacyLevel(verbosity))
	if vmodule != "" {
		if err := handler.Vmodule(vmodule); err != nil {
			return fmt.Errorf("invalid vmodule %q: %w", vmodule, err)
		}
	}
	glogger = handler
	log.SetDefault(log.NewLogger(glogger))
	return nil
}
