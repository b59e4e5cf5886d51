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
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/ethereum/go-ethereum/log"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/neo-zkvm/core/interop"
	"github.com/probechain/neo-zkvm/core/vm"
	"github.com/probechain/neo-zkvm/prover"
	"github.com/probechain/neo-zkvm/storage"
)

var (
	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[<file>]",
		Description: `The dumpconfig command shows the effective configuration as TOML.`,
	}

	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type vmConfig struct {
	GasLimit           uint64
	MaxStackSize       int
	MaxInvocationDepth int
	MaxScriptSize      int
	MaxItemSize        int
	Trace              bool
}

func (c *vmConfig) limits() vm.Limits {
	return vm.Limits{
		MaxStackSize:       c.MaxStackSize,
		MaxInvocationDepth: c.MaxInvocationDepth,
		MaxScriptSize:      c.MaxScriptSize,
		MaxItemSize:        c.MaxItemSize,
	}
}

type proverConfig struct {
	Mode            string
	Workers         int `toml:",omitempty"`
	VerifyCacheSize int
}

type neozkConfig struct {
	VM      vmConfig
	Storage storage.Config
	Runtime interop.Config
	Prover  proverConfig
}

func defaultConfig() neozkConfig {
	limits := vm.DefaultLimits
	return neozkConfig{
		VM: vmConfig{
			GasLimit:           10_000_000,
			MaxStackSize:       limits.MaxStackSize,
			MaxInvocationDepth: limits.MaxInvocationDepth,
			MaxScriptSize:      limits.MaxScriptSize,
			MaxItemSize:        limits.MaxItemSize,
		},
		Storage: storage.DefaultConfig,
		Prover: proverConfig{
			Mode:            prover.DefaultConfig.Mode.String(),
			VerifyCacheSize: prover.DefaultVerifierCache,
		},
	}
}

func loadConfig(file string, cfg *neozkConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the config file, if any, and applies the command line
// flags on top.
func makeConfig(ctx *cli.Context) (neozkConfig, error) {
	cfg := defaultConfig()
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if dir := ctx.GlobalString(dataDirFlag.Name); dir != "" {
		cfg.Storage.Backend = "leveldb"
		cfg.Storage.Path = dir
	}
	if ctx.IsSet(gasFlag.Name) {
		cfg.VM.GasLimit = ctx.Uint64(gasFlag.Name)
	}
	if ctx.Bool(traceFlag.Name) {
		cfg.VM.Trace = true
	}
	if _, err := prover.ParseMode(cfg.Prover.Mode); err != nil {
		return cfg, err
	}
	log.Debug("Loaded configuration", "gas", cfg.VM.GasLimit, "storage", cfg.Storage.Backend)
	return cfg, nil
}

// proverSettings builds the prover settings, with every execution served by
// a fresh syscall host on the shared storage.
func (c *neozkConfig) proverSettings(env *environment) prover.Config {
	mode, _ := prover.ParseMode(c.Prover.Mode)
	return prover.Config{
		Mode:   mode,
		Limits: c.VM.limits(),
		Syscalls: func() vm.SyscallHost {
			return env.newHost(c.Runtime)
		},
	}
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	_, err = dump.Write(out)
	return err
}
