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

// Package asm converts between the textual assembly of the virtual machine
// and its byte code.
package asm

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/interop"
	"github.com/probechain/neo-zkvm/core/vm"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
)

const (
	// MaxMacroDepth bounds nested macro expansion.
	MaxMacroDepth = 100

	// maxRepeat bounds the count of INCn style repetitions.
	maxRepeat = 1024

	// maxExpansion bounds the lines produced by a single macro invocation.
	maxExpansion = 1 << 16
)

// ErrorKind classifies assembly errors.
type ErrorKind uint8

const (
	UnknownOpcode ErrorKind = iota
	InvalidOperand
	UndefinedLabel
	DuplicateLabel
	UndefinedMacro
	InvalidMacro
	SyntaxError
)

var kindNames = [...]string{
	UnknownOpcode:  "unknown opcode",
	InvalidOperand: "invalid operand",
	UndefinedLabel: "undefined label",
	DuplicateLabel: "duplicate label",
	UndefinedMacro: "undefined macro",
	InvalidMacro:   "invalid macro",
	SyntaxError:    "syntax error",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("error(%d)", uint8(k))
}

// Error is an assembly failure at a source line.
type Error struct {
	Line int
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Msg)
}

func errorf(line int, kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Line: line, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// aliases maps alternative mnemonics to opcodes. Every "_L" opcode is also
// accepted without the underscore.
var aliases = func() map[string]vm.Opcode {
	m := map[string]vm.Opcode{
		"TRUE":  vm.PUSHT,
		"FALSE": vm.PUSHF,
		"NEG":   vm.NEGATE,
	}
	for i := 0; i < 256; i++ {
		op := vm.Opcode(i)
		if name := op.String(); op.IsValid() && strings.Contains(name, "_") {
			m[strings.ReplaceAll(name, "_", "")] = op
		}
	}
	return m
}()

func lookupOpcode(name string) (vm.Opcode, bool) {
	name = strings.ToUpper(name)
	if op, ok := vm.FromString(name); ok {
		return op, true
	}
	op, ok := aliases[name]
	return op, ok
}

var typeNames = func() map[string]stackitem.Type {
	m := map[string]stackitem.Type{"bool": stackitem.BooleanT, "interop": stackitem.InteropT}
	for _, t := range []stackitem.Type{
		stackitem.AnyT, stackitem.PointerT, stackitem.BooleanT, stackitem.IntegerT, stackitem.ByteStringT,
		stackitem.BufferT, stackitem.ArrayT, stackitem.StructT, stackitem.MapT, stackitem.InteropT,
	} {
		m[strings.ToLower(t.String())] = t
	}
	return m
}()

// ---- Source handling -------------------------------------------------------

type sourceLine struct {
	num  int
	toks []string
}

type macro struct {
	line   int
	params []string
	body   []sourceLine
}

type instruction struct {
	line int
	op   vm.Opcode
	raw  bool // DB: data holds the bytes
	args []string
	data []byte
	pos  int
	size int
}

type assembler struct {
	macros map[string]*macro
	labels map[string]int
	insts  []*instruction
}

// Assemble translates assembly source to byte code.
func Assemble(src string) ([]byte, error) {
	a := &assembler{
		macros: make(map[string]*macro),
		labels: make(map[string]int),
	}
	lines, err := a.preprocess(src)
	if err != nil {
		return nil, err
	}
	if err := a.layout(lines); err != nil {
		return nil, err
	}
	return a.encode()
}

// tokenize splits a line on whitespace and commas. Quoted strings are kept
// whole, quotes included; ';' and '#' start a comment.
func tokenize(s string) ([]string, error) {
	var toks []string
	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == ';' || c == '#':
			return toks, nil
		case c == ' ' || c == '\t' || c == '\r' || c == ',':
			i++
		case c == '"':
			j := i + 1
			for ; j < len(s) && s[j] != '"'; j++ {
				if s[j] == '\\' {
					j++
				}
			}
			if j >= len(s) {
				return nil, errors.New("unterminated string")
			}
			toks = append(toks, s[i:j+1])
			i = j + 1
		default:
			j := i
			for j < len(s) && !strings.ContainsRune(" \t\r,;#\"", rune(s[j])) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		}
	}
	return toks, nil
}

// preprocess collects macro definitions and expands invocations and sugar.
func (a *assembler) preprocess(src string) ([]sourceLine, error) {
	var (
		out  []sourceLine
		cur  *macro
		name string
	)
	for i, raw := range strings.Split(src, "\n") {
		num := i + 1
		toks, err := tokenize(raw)
		if err != nil {
			return nil, errorf(num, SyntaxError, "%v", err)
		}
		if len(toks) == 0 {
			continue
		}
		switch head := strings.ToLower(toks[0]); head {
		case ".macro", "%macro":
			if cur != nil {
				return nil, errorf(num, InvalidMacro, "nested definition inside %s", name)
			}
			if len(toks) < 2 {
				return nil, errorf(num, InvalidMacro, "missing macro name")
			}
			name = toks[1]
			if _, ok := a.macros[name]; ok {
				return nil, errorf(num, InvalidMacro, "macro %s redefined", name)
			}
			cur = &macro{line: num, params: toks[2:]}
		case ".endmacro", "%endmacro":
			if cur == nil {
				return nil, errorf(num, InvalidMacro, "%s without .macro", toks[0])
			}
			a.macros[name] = cur
			cur = nil
		default:
			if cur != nil {
				cur.body = append(cur.body, sourceLine{num, toks})
				continue
			}
			lines, err := a.expand(sourceLine{num, toks}, 0)
			if err != nil {
				return nil, err
			}
			out = append(out, lines...)
		}
	}
	if cur != nil {
		return nil, errorf(cur.line, InvalidMacro, "macro %s is not terminated", name)
	}
	return out, nil
}

// expand resolves a macro invocation. Expanded lines report the line of
// the outermost invocation.
func (a *assembler) expand(l sourceLine, depth int) ([]sourceLine, error) {
	if !strings.HasPrefix(l.toks[0], "%") {
		return sugar(l)
	}
	if depth >= MaxMacroDepth {
		return nil, errorf(l.num, InvalidMacro, "expansion deeper than %d", MaxMacroDepth)
	}
	name := l.toks[0][1:]
	m, ok := a.macros[name]
	if !ok {
		return nil, errorf(l.num, UndefinedMacro, "%s", name)
	}
	args := l.toks[1:]
	if len(args) != len(m.params) {
		return nil, errorf(l.num, InvalidOperand, "macro %s takes %d arguments, got %d", name, len(m.params), len(args))
	}
	var out []sourceLine
	for _, body := range m.body {
		toks := make([]string, len(body.toks))
		for i, tok := range body.toks {
			toks[i] = tok
			for j, param := range m.params {
				if tok == param {
					toks[i] = args[j]
				}
			}
		}
		lines, err := a.expand(sourceLine{l.num, toks}, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
		if len(out) > maxExpansion {
			return nil, errorf(l.num, InvalidMacro, "expansion of %s exceeds %d lines", name, maxExpansion)
		}
	}
	return out, nil
}

var repeatable = []string{"INC", "DEC", "DUP", "DROP", "NOP"}

// sugar rewrites shorthand forms into plain instructions.
func sugar(l sourceLine) ([]sourceLine, error) {
	toks := l.toks
	if strings.HasSuffix(toks[0], ":") && len(toks) > 1 {
		rest, err := sugar(sourceLine{l.num, toks[1:]})
		if err != nil {
			return nil, err
		}
		return append([]sourceLine{{l.num, toks[:1]}}, rest...), nil
	}
	if len(toks) > 1 && allSimple(toks) {
		out := make([]sourceLine, len(toks))
		for i, tok := range toks {
			out[i] = sourceLine{l.num, []string{tok}}
		}
		return out, nil
	}
	upper := strings.ToUpper(toks[0])
	if upper == "PUSH" {
		if len(toks) != 2 {
			return nil, errorf(l.num, InvalidOperand, "PUSH takes one operand")
		}
		return []sourceLine{{l.num, pushFor(toks[1])}}, nil
	}
	if _, ok := lookupOpcode(upper); !ok && len(toks) == 1 {
		for _, base := range repeatable {
			if !strings.HasPrefix(upper, base) || len(upper) == len(base) {
				continue
			}
			n, err := strconv.Atoi(upper[len(base):])
			if err != nil {
				break
			}
			if n < 1 || n > maxRepeat {
				return nil, errorf(l.num, InvalidOperand, "repeat count %d out of range", n)
			}
			out := make([]sourceLine, n)
			for i := range out {
				out[i] = sourceLine{l.num, []string{base}}
			}
			return out, nil
		}
	}
	return []sourceLine{l}, nil
}

// allSimple reports whether every token names an opcode without operands.
func allSimple(toks []string) bool {
	for _, tok := range toks {
		op, ok := lookupOpcode(tok)
		if !ok || op.OperandSize() != 0 || op.PrefixSize() != 0 {
			return false
		}
	}
	return true
}

// pushFor picks the shortest instruction pushing the operand.
func pushFor(arg string) []string {
	n, ok := new(big.Int).SetString(arg, 0)
	if !ok {
		return []string{"PUSHDATA", arg}
	}
	switch {
	case n.Cmp(big.NewInt(-1)) == 0:
		return []string{"PUSHM1"}
	case n.Sign() >= 0 && n.Cmp(big.NewInt(16)) <= 0:
		return []string{"PUSH" + n.String()}
	}
	for _, w := range []struct {
		name  string
		width int
	}{{"PUSHINT8", 1}, {"PUSHINT16", 2}, {"PUSHINT32", 4}, {"PUSHINT64", 8}, {"PUSHINT128", 16}} {
		if fitsSigned(n, w.width) {
			return []string{w.name, arg}
		}
	}
	return []string{"PUSHINT256", arg}
}

// ---- Layout and encoding ---------------------------------------------------

func isLabel(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '.' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// layout assigns positions to instructions and labels.
func (a *assembler) layout(lines []sourceLine) error {
	pos := 0
	for _, l := range lines {
		if tok := l.toks[0]; strings.HasSuffix(tok, ":") {
			name := strings.TrimSuffix(tok, ":")
			if !isLabel(name) {
				return errorf(l.num, SyntaxError, "invalid label %q", name)
			}
			if _, ok := a.labels[name]; ok {
				return errorf(l.num, DuplicateLabel, "%s", name)
			}
			a.labels[name] = pos
			continue
		}
		inst, err := parseInstruction(l)
		if err != nil {
			return err
		}
		inst.pos = pos
		pos += inst.size
		a.insts = append(a.insts, inst)
	}
	return nil
}

func parseInstruction(l sourceLine) (*instruction, error) {
	mnemonic := strings.ToUpper(l.toks[0])
	inst := &instruction{line: l.num, args: l.toks[1:]}

	switch mnemonic {
	case "DB", ".BYTE":
		if len(inst.args) == 0 {
			return nil, errorf(l.num, InvalidOperand, "%s needs at least one byte", mnemonic)
		}
		for _, arg := range inst.args {
			b, err := parseBytes(arg, true)
			if err != nil {
				return nil, errorf(l.num, InvalidOperand, "%v", err)
			}
			inst.data = append(inst.data, b...)
		}
		inst.raw, inst.size = true, len(inst.data)
		return inst, nil
	case "PUSHDATA":
		if len(inst.args) != 1 {
			return nil, errorf(l.num, InvalidOperand, "PUSHDATA takes one operand")
		}
		data, err := parseBytes(inst.args[0], false)
		if err != nil {
			return nil, errorf(l.num, InvalidOperand, "%v", err)
		}
		switch {
		case len(data) <= 0xFF:
			mnemonic = "PUSHDATA1"
		case len(data) <= 0xFFFF:
			mnemonic = "PUSHDATA2"
		default:
			mnemonic = "PUSHDATA4"
		}
	}
	op, ok := lookupOpcode(mnemonic)
	if !ok {
		return nil, errorf(l.num, UnknownOpcode, "%s", l.toks[0])
	}
	inst.op = op

	want := 0
	switch {
	case op == vm.INITSLOT:
		want = 2
	case op.OperandSize() > 0 || op.PrefixSize() > 0:
		want = 1
	}
	if len(inst.args) != want {
		return nil, errorf(l.num, InvalidOperand, "%s takes %d operands, got %d", op, want, len(inst.args))
	}
	inst.size = 1 + op.OperandSize()
	if n := op.PrefixSize(); n > 0 {
		data, err := parseBytes(inst.args[0], false)
		if err != nil {
			return nil, errorf(l.num, InvalidOperand, "%v", err)
		}
		if n < 4 && len(data) >= 1<<(8*n) {
			return nil, errorf(l.num, InvalidOperand, "%d bytes do not fit %s", len(data), op)
		}
		inst.data = data
		inst.size += n + len(data)
	}
	return inst, nil
}

func (a *assembler) encode() ([]byte, error) {
	var out []byte
	for _, inst := range a.insts {
		if inst.raw {
			out = append(out, inst.data...)
			continue
		}
		out = append(out, byte(inst.op))
		operand, err := a.operand(inst)
		if err != nil {
			return nil, err
		}
		out = append(out, operand...)
	}
	return out, nil
}

// operand encodes the operand of inst.
func (a *assembler) operand(inst *instruction) ([]byte, error) {
	op := inst.op
	switch {
	case op.PrefixSize() > 0:
		prefix := make([]byte, op.PrefixSize())
		putUint(prefix, uint64(len(inst.data)))
		return append(prefix, inst.data...), nil

	case op >= vm.PUSHINT8 && op <= vm.PUSHINT256:
		n, ok := new(big.Int).SetString(inst.args[0], 0)
		if !ok || !fitsSigned(n, op.OperandSize()) {
			return nil, errorf(inst.line, InvalidOperand, "%s does not fit %s", inst.args[0], op)
		}
		return twosComplement(n, op.OperandSize()), nil

	case op.IsJump():
		offset, err := a.offset(inst)
		if err != nil {
			return nil, err
		}
		width := op.OperandSize()
		if !fitsSigned(big.NewInt(offset), width) {
			return nil, errorf(inst.line, InvalidOperand, "offset %d out of range for %s", offset, op)
		}
		return twosComplement(big.NewInt(offset), width), nil

	case op == vm.SYSCALL:
		id, ok := interop.SyscallID(inst.args[0])
		if !ok {
			n, err := strconv.ParseUint(inst.args[0], 0, 32)
			if err != nil {
				return nil, errorf(inst.line, InvalidOperand, "unknown syscall %s", inst.args[0])
			}
			id = uint32(n)
		}
		b := make([]byte, 4)
		putUint(b, uint64(id))
		return b, nil

	case op == vm.ISTYPE || op == vm.CONVERT || op == vm.NEWARRAYT:
		if t, ok := typeNames[strings.ToLower(inst.args[0])]; ok {
			return []byte{byte(t)}, nil
		}
		n, err := strconv.ParseUint(inst.args[0], 0, 8)
		if err != nil {
			return nil, errorf(inst.line, InvalidOperand, "unknown type %s", inst.args[0])
		}
		return []byte{byte(n)}, nil

	default:
		out := make([]byte, 0, len(inst.args))
		for _, arg := range inst.args {
			n, err := strconv.ParseUint(arg, 0, 8)
			if err != nil {
				return nil, errorf(inst.line, InvalidOperand, "%s is not a byte", arg)
			}
			out = append(out, byte(n))
		}
		return out, nil
	}
}

// offset resolves a jump operand relative to the instruction start.
func (a *assembler) offset(inst *instruction) (int64, error) {
	arg := inst.args[0]
	if n, err := strconv.ParseInt(arg, 0, 64); err == nil {
		return n, nil
	}
	if !isLabel(arg) {
		return 0, errorf(inst.line, InvalidOperand, "bad jump target %s", arg)
	}
	target, ok := a.labels[arg]
	if !ok {
		return 0, errorf(inst.line, UndefinedLabel, "%s", arg)
	}
	return int64(target - inst.pos), nil
}

// parseBytes decodes a quoted string or 0x-prefixed hex. With allowInt a
// bare number in byte range is accepted too.
func parseBytes(arg string, allowInt bool) ([]byte, error) {
	if strings.HasPrefix(arg, "\"") {
		s, err := strconv.Unquote(arg)
		if err != nil {
			return nil, fmt.Errorf("bad string %s", arg)
		}
		return []byte(s), nil
	}
	if allowInt {
		if n, err := strconv.ParseUint(arg, 0, 8); err == nil {
			return []byte{byte(n)}, nil
		}
	}
	if strings.HasPrefix(arg, "0x") || strings.HasPrefix(arg, "0X") {
		b, err := common.ParseHex(arg)
		if err != nil {
			return nil, fmt.Errorf("bad hex %s", arg)
		}
		return b, nil
	}
	return nil, fmt.Errorf("expected string or hex, got %s", arg)
}

func putUint(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
}

func fitsSigned(n *big.Int, width int) bool {
	limit := new(big.Int).Lsh(big.NewInt(1), uint(8*width-1))
	return n.Cmp(limit) < 0 && n.Cmp(new(big.Int).Neg(limit)) >= 0
}

// twosComplement encodes n little-endian in width bytes.
func twosComplement(n *big.Int, width int) []byte {
	v := new(big.Int).Set(n)
	if v.Sign() < 0 {
		v.Add(v, new(big.Int).Lsh(big.NewInt(1), uint(8*width)))
	}
	out := v.FillBytes(make([]byte, width))
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
