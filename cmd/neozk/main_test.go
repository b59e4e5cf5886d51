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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/probechain/neo-zkvm/core/vm"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
	"github.com/probechain/neo-zkvm/crypto"
	"github.com/probechain/neo-zkvm/storage"
	"github.com/probechain/neo-zkvm/storage/leveldb"
)

var addScript = []byte{0x11, 0x12, 0x9E, 0x40}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadScript(t *testing.T) {
	cases := []struct {
		name     string
		arg      string
		assemble bool
		want     []byte
	}{
		{"hex", "11129e40", false, addScript},
		{"prefixed hex", "0x11129E40", false, addScript},
		{"binary file", writeFile(t, "add.bin", addScript), false, addScript},
		{"hex file", writeFile(t, "add.hex", []byte("0x11129e40\n")), false, addScript},
		{"asm file", writeFile(t, "add.asm", []byte("PUSH1\nPUSH2\nADD\nRET\n")), false, addScript},
		{"asm flag", writeFile(t, "add.txt", []byte("push1 push2 add ret")), true, addScript},
		{"inline asm", "PUSH1 PUSH2 ADD RET", true, addScript},
	}
	for _, c := range cases {
		got, err := loadScript(c.arg, c.assemble)
		require.NoError(t, err, c.name)
		require.Equal(t, c.want, got, c.name)
	}

	_, err := loadScript("", false)
	require.ErrorIs(t, err, errNoInput)
	_, err = loadScript("not-hex", false)
	require.Error(t, err)
	_, err = loadScript("BOGUS", true)
	require.Error(t, err)
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs(`[1, "two", true, null]`)
	require.NoError(t, err)
	require.Len(t, args, 4)
	require.Equal(t, stackitem.IntegerT, args[0].Type())
	require.Equal(t, stackitem.ByteString("two"), args[1])

	args, err = parseArgs("")
	require.NoError(t, err)
	require.Nil(t, args)

	_, err = parseArgs(`{"a": 1}`)
	require.Error(t, err)
	_, err = parseArgs(`[1.5]`)
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.toml", []byte(`
[VM]
GasLimit = 500
Trace = true

[Storage]
Backend = "leveldb"
Path = "/tmp/neozk"
CacheSize = 0

[Runtime]
Timestamp = 1700000000000

[Prover]
Mode = "execute"
Workers = 4
`))
	cfg := defaultConfig()
	require.NoError(t, loadConfig(path, &cfg))
	require.Equal(t, uint64(500), cfg.VM.GasLimit)
	require.True(t, cfg.VM.Trace)
	require.Equal(t, vm.DefaultLimits.MaxStackSize, cfg.VM.MaxStackSize)
	require.Equal(t, "leveldb", cfg.Storage.Backend)
	require.Equal(t, 0, cfg.Storage.CacheSize)
	require.Equal(t, uint64(1700000000000), cfg.Runtime.Timestamp)
	require.Equal(t, 4, cfg.Prover.Workers)

	bad := writeFile(t, "bad.toml", []byte("[VM]\nGasLimt = 1\n"))
	err := loadConfig(bad, &cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "GasLimt")
	require.Contains(t, err.Error(), bad)
}

func TestDumpConfig(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dump.toml")
	require.NoError(t, newApp().Run([]string{"neozk", "dumpconfig", out}))

	got := neozkConfig{}
	require.NoError(t, loadConfig(out, &got))
	if diff := cmp.Diff(defaultConfig(), got); diff != "" {
		t.Errorf("dumped config mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvironmentCommit(t *testing.T) {
	script, err := loadScript("PUSH \"k\"\nPUSH \"v\"\nSYSCALL Storage.Put\nPUSH1\nRET", true)
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "chaindata")
	cfg := defaultConfig()
	cfg.Storage = storage.Config{Backend: "leveldb", Path: dir, CacheSize: 1}

	env, err := openEnvironment(cfg.Storage)
	require.NoError(t, err)
	host := env.newHost(cfg.Runtime)
	machine := newMachine(&cfg, host)
	require.NoError(t, machine.LoadScript(script))
	require.NoError(t, machine.Run())
	require.Equal(t, vm.HaltState, machine.State())

	changes, err := env.commit()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, []byte("k"), changes[0].Key)
	require.Nil(t, changes[0].OldValue)
	require.Equal(t, []byte("v"), changes[0].NewValue)
	require.Empty(t, env.store.Changes())

	var buf bytes.Buffer
	report(&buf, machine, host, changes, 0)
	require.Contains(t, buf.String(), "HALT")
	require.Contains(t, buf.String(), "Storage changes")
	require.NoError(t, env.Close())

	db, err := leveldb.New(dir, 0, 0, true)
	require.NoError(t, err)
	defer db.Close()
	value, ok, err := db.Get(storage.StorageContext{ScriptHash: crypto.ScriptHashOf(script)}, []byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), value)
}

func TestOpenEnvironmentErrors(t *testing.T) {
	_, err := openEnvironment(storage.Config{Backend: "leveldb"})
	require.Error(t, err)
	_, err = openEnvironment(storage.Config{Backend: "redis"})
	require.Error(t, err)
}

func TestDebugger(t *testing.T) {
	machine := vm.New(1000)
	require.NoError(t, machine.LoadScript(addScript))
	machine.Break()

	var out bytes.Buffer
	d := newDebugger(machine, &out)
	exec := func(line string) bool {
		t.Helper()
		quit, err := d.exec(line)
		require.NoError(t, err, line)
		return quit
	}

	exec("break 2")
	exec("continue")
	require.Equal(t, vm.BreakState, machine.State())
	require.Equal(t, 2, machine.Estack().Len())
	require.Contains(t, out.String(), "0002: ADD")

	exec("step")
	require.Equal(t, 1, machine.Estack().Len())
	require.Equal(t, "3", machine.Estack().Top().String())

	out.Reset()
	exec("dump 0")
	require.Contains(t, out.String(), "Integer")

	exec("continue")
	require.Equal(t, vm.HaltState, machine.State())

	out.Reset()
	exec("gas")
	require.True(t, strings.HasPrefix(out.String(), "Gas: "))

	for _, bad := range []string{"bogus", "break 99", "break x", "step 0", "dump 5"} {
		_, err := d.exec(bad)
		require.Error(t, err, bad)
	}
	require.True(t, exec("quit"))
}

func TestProveVerifyCommands(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "add.proof")
	require.NoError(t, newApp().Run([]string{"neozk", "prove", "--out", out, "11129e40"}))
	require.FileExists(t, out)
	require.NoError(t, newApp().Run([]string{"neozk", "verify", out}))

	// A batch writes one envelope per script.
	batch := filepath.Join(dir, "batch.proof")
	require.NoError(t, newApp().Run([]string{"neozk", "prove", "--out", batch, "11129e40", "1510a140"}))
	require.FileExists(t, batch+".0")
	require.FileExists(t, batch+".1")
	require.NoError(t, newApp().Run([]string{"neozk", "verify", batch + ".1"}))

	garbage := writeFile(t, "garbage.proof", []byte{1, 2, 3})
	require.Error(t, newApp().Run([]string{"neozk", "verify", garbage}))
}

func TestRunCommand(t *testing.T) {
	require.NoError(t, newApp().Run([]string{"neozk", "run", "--trace", "11129e40"}))
	err := newApp().Run([]string{"neozk", "run", "1510a140"})
	require.ErrorIs(t, err, errFault)
}
