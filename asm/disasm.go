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

package asm

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	mapset "github.com/deckarep/golang-set"
	"github.com/fatih/color"
	"github.com/probechain/neo-zkvm/core/interop"
	"github.com/probechain/neo-zkvm/core/vm"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
)

const (
	maxShownBytes = 6  // raw bytes printed per line
	maxShownData  = 32 // payload bytes printed per PUSHDATA
)

// Instruction is a decoded instruction.
type Instruction struct {
	Offset    int
	Op        vm.Opcode
	Operand   []byte // fixed operand or variable payload, without prefix
	Size      int
	Target    int // jump target, -1 if none
	Truncated bool
}

// Decode splits script into instructions. Undefined bytes decode as
// single-byte instructions and a truncated tail is flagged.
func Decode(script []byte) []Instruction {
	var out []Instruction
	for pos := 0; pos < len(script); {
		inst := Instruction{Offset: pos, Op: vm.Opcode(script[pos]), Size: 1, Target: -1}
		op := inst.Op
		if op.IsValid() {
			start := pos + 1
			n := op.OperandSize()
			if p := op.PrefixSize(); p > 0 {
				if start+p > len(script) {
					inst.Truncated = true
				} else {
					n = int(readUint(script[start : start+p]))
					start += p
				}
			}
			switch {
			case inst.Truncated:
			case n < 0 || n > len(script)-start:
				inst.Truncated = true
			default:
				inst.Operand = script[start : start+n]
				inst.Size = start + n - pos
			}
			if inst.Truncated {
				inst.Size = len(script) - pos
			} else if op.IsJump() {
				inst.Target = pos + int(readInt(inst.Operand))
			}
		}
		out = append(out, inst)
		pos += inst.Size
	}
	return out
}

// Disassemble renders script one instruction per line.
func Disassemble(script []byte) string {
	return render(script, nil)
}

// DisassembleColor is Disassemble with colourised mnemonics.
func DisassembleColor(script []byte) string {
	return render(script, newPalette())
}

type palette struct {
	flow, push, crypto, invalid, addr *color.Color
}

func newPalette() *palette {
	p := &palette{
		flow:    color.New(color.FgYellow, color.Bold),
		push:    color.New(color.FgGreen),
		crypto:  color.New(color.FgMagenta),
		invalid: color.New(color.FgRed),
		addr:    color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{p.flow, p.push, p.crypto, p.invalid, p.addr} {
		c.EnableColor()
	}
	return p
}

func (p *palette) mnemonic(op vm.Opcode, s string) string {
	if p == nil {
		return s
	}
	switch {
	case !op.IsValid():
		return p.invalid.Sprint(s)
	case op.IsJump() || op >= vm.NOP && op <= vm.SYSCALL:
		return p.flow.Sprint(s)
	case op <= vm.PUSH16:
		return p.push.Sprint(s)
	case op >= vm.SHA256:
		return p.crypto.Sprint(s)
	}
	return s
}

func render(script []byte, p *palette) string {
	insts := Decode(script)
	targets := mapset.NewSet()
	for _, inst := range insts {
		if inst.Target >= 0 {
			targets.Add(inst.Target)
		}
	}
	var b strings.Builder
	for _, inst := range insts {
		if targets.Contains(inst.Offset) {
			label := fmt.Sprintf("loc_%04X:", inst.Offset)
			if p != nil {
				label = p.addr.Sprint(label)
			}
			b.WriteString(label + "\n")
		}
		raw := script[inst.Offset : inst.Offset+inst.Size]
		text := p.mnemonic(inst.Op, mnemonic(inst))
		if operand := describe(inst); operand != "" {
			text += " " + operand
		}
		fmt.Fprintf(&b, "%04X:  %-16s  %s\n", inst.Offset, hexBytes(raw), text)
	}
	return b.String()
}

func mnemonic(inst Instruction) string {
	if !inst.Op.IsValid() {
		return "DB"
	}
	return inst.Op.String()
}

func hexBytes(raw []byte) string {
	parts := make([]string, 0, maxShownBytes)
	for i, c := range raw {
		if i == maxShownBytes {
			parts[len(parts)-1] = ".."
			break
		}
		parts = append(parts, fmt.Sprintf("%02X", c))
	}
	return strings.Join(parts, " ")
}

// describe renders the operand of inst.
func describe(inst Instruction) string {
	op := inst.Op
	switch {
	case !op.IsValid():
		return fmt.Sprintf("0x%02X", byte(op))
	case inst.Truncated:
		return "<truncated>"
	case op.PrefixSize() > 0:
		return describeData(inst.Operand)
	case op >= vm.PUSHINT8 && op <= vm.PUSHINT256:
		n, err := stackitem.IntFromBytes(inst.Operand)
		if err != nil {
			return "0x" + hex.EncodeToString(inst.Operand)
		}
		return n.String()
	case op.IsJump():
		return fmt.Sprintf("%+d -> 0x%04X", readInt(inst.Operand), inst.Target)
	case op == vm.SYSCALL:
		id := uint32(readUint(inst.Operand))
		if name, ok := interop.SyscallName(id); ok {
			return fmt.Sprintf("%s (0x%08X)", name, id)
		}
		return fmt.Sprintf("0x%08X", id)
	case op == vm.ISTYPE || op == vm.CONVERT || op == vm.NEWARRAYT:
		if t := stackitem.Type(inst.Operand[0]); t.IsValid() {
			return t.String()
		}
		return fmt.Sprintf("0x%02X", inst.Operand[0])
	}
	parts := make([]string, len(inst.Operand))
	for i, c := range inst.Operand {
		parts[i] = strconv.Itoa(int(c))
	}
	return strings.Join(parts, " ")
}

func describeData(data []byte) string {
	if utf8.Valid(data) && printable(data) {
		if len(data) > maxShownData {
			return fmt.Sprintf("%q... (%d bytes)", data[:maxShownData], len(data))
		}
		return strconv.Quote(string(data))
	}
	if len(data) > maxShownData {
		return fmt.Sprintf("0x%x... (%d bytes)", data[:maxShownData], len(data))
	}
	return "0x" + hex.EncodeToString(data)
}

func printable(data []byte) bool {
	for _, r := range string(data) {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

func readUint(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// readInt reads a little-endian signed integer of up to 8 bytes.
func readInt(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	v := readUint(b)
	shift := uint(64 - 8*len(b))
	return int64(v<<shift) >> shift
}
