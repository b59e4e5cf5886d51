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

// Package vm implements a gas-metered stack virtual machine executing the
// NeoVM N3 byte code format. Scripts are a sequence of one-byte opcodes, each
// optionally followed by a fixed-width operand or a length-prefixed payload.
// Values live on a single evaluation stack shared by all call frames, plus
// three slot banks for statics, locals and arguments.
package vm

// Opcode is a single byte instruction code.
type Opcode byte

const (
	// ---- Constants ---------------------------------------------------------

	// PUSHINT8 through PUSHINT256 push a little-endian two's complement
	// operand of 1, 2, 4, 8, 16 or 32 bytes.
	PUSHINT8   Opcode = 0x00
	PUSHINT16  Opcode = 0x01
	PUSHINT32  Opcode = 0x02
	PUSHINT64  Opcode = 0x03
	PUSHINT128 Opcode = 0x04
	PUSHINT256 Opcode = 0x05
	PUSHT      Opcode = 0x08
	PUSHF      Opcode = 0x09
	// PUSHA pushes a Pointer to the instruction at the signed 4-byte offset.
	PUSHA    Opcode = 0x0A
	PUSHNULL Opcode = 0x0B
	// PUSHDATA1, PUSHDATA2 and PUSHDATA4 push a ByteString preceded by a
	// 1, 2 or 4 byte little-endian length.
	PUSHDATA1 Opcode = 0x0C
	PUSHDATA2 Opcode = 0x0D
	PUSHDATA4 Opcode = 0x0E
	PUSHM1    Opcode = 0x0F
	PUSH0     Opcode = 0x10
	PUSH1     Opcode = 0x11
	PUSH2     Opcode = 0x12
	PUSH3     Opcode = 0x13
	PUSH4     Opcode = 0x14
	PUSH5     Opcode = 0x15
	PUSH6     Opcode = 0x16
	PUSH7     Opcode = 0x17
	PUSH8     Opcode = 0x18
	PUSH9     Opcode = 0x19
	PUSH10    Opcode = 0x1A
	PUSH11    Opcode = 0x1B
	PUSH12    Opcode = 0x1C
	PUSH13    Opcode = 0x1D
	PUSH14    Opcode = 0x1E
	PUSH15    Opcode = 0x1F
	PUSH16    Opcode = 0x20

	// ---- Flow control ------------------------------------------------------
	// Jump offsets are relative to the position of the jump opcode itself.
	// The short forms take a signed byte, the _L forms a signed 4-byte value.

	NOP        Opcode = 0x21
	JMP        Opcode = 0x22
	JMPL       Opcode = 0x23
	JMPIF      Opcode = 0x24
	JMPIFL     Opcode = 0x25
	JMPIFNOT   Opcode = 0x26
	JMPIFNOTL  Opcode = 0x27
	JMPEQ      Opcode = 0x28
	JMPEQL     Opcode = 0x29
	JMPNE      Opcode = 0x2A
	JMPNEL     Opcode = 0x2B
	JMPGT      Opcode = 0x2C
	JMPGTL     Opcode = 0x2D
	JMPGE      Opcode = 0x2E
	JMPGEL     Opcode = 0x2F
	JMPLT      Opcode = 0x30
	JMPLTL     Opcode = 0x31
	JMPLE      Opcode = 0x32
	JMPLEL     Opcode = 0x33
	CALL       Opcode = 0x34
	CALLL      Opcode = 0x35
	CALLA      Opcode = 0x36
	ABORT      Opcode = 0x38
	ASSERT     Opcode = 0x39
	THROW      Opcode = 0x3A
	RET        Opcode = 0x40
	SYSCALL    Opcode = 0x41

	// ---- Stack -------------------------------------------------------------

	DEPTH    Opcode = 0x43
	DROP     Opcode = 0x45
	NIP      Opcode = 0x46
	XDROP    Opcode = 0x48
	CLEAR    Opcode = 0x49
	DUP      Opcode = 0x4A
	OVER     Opcode = 0x4B
	PICK     Opcode = 0x4D
	TUCK     Opcode = 0x4E
	SWAP     Opcode = 0x50
	ROT      Opcode = 0x51
	ROLL     Opcode = 0x52
	REVERSE3 Opcode = 0x53
	REVERSE4 Opcode = 0x54
	REVERSEN Opcode = 0x55

	// ---- Slots -------------------------------------------------------------

	// INITSSLOT allocates the static slot bank; its operand is the count.
	INITSSLOT Opcode = 0x56
	// INITSLOT allocates the local and argument banks of the current frame.
	// Operands: local count, argument count.
	INITSLOT Opcode = 0x57
	LDSFLD0  Opcode = 0x58
	LDSFLD1  Opcode = 0x59
	LDSFLD2  Opcode = 0x5A
	LDSFLD3  Opcode = 0x5B
	LDSFLD4  Opcode = 0x5C
	LDSFLD5  Opcode = 0x5D
	LDSFLD   Opcode = 0x5E
	STSFLD0  Opcode = 0x5F
	STSFLD1  Opcode = 0x60
	STSFLD2  Opcode = 0x61
	STSFLD3  Opcode = 0x62
	STSFLD4  Opcode = 0x63
	STSFLD5  Opcode = 0x64
	STSFLD   Opcode = 0x65
	LDLOC0   Opcode = 0x66
	LDLOC1   Opcode = 0x67
	LDLOC2   Opcode = 0x68
	LDLOC3   Opcode = 0x69
	LDLOC4   Opcode = 0x6A
	LDLOC5   Opcode = 0x6B
	LDLOC    Opcode = 0x6C
	STLOC0   Opcode = 0x6D
	STLOC1   Opcode = 0x6E
	STLOC2   Opcode = 0x6F
	STLOC3   Opcode = 0x70
	STLOC4   Opcode = 0x71
	STLOC5   Opcode = 0x72
	STLOC    Opcode = 0x73
	LDARG0   Opcode = 0x74
	LDARG1   Opcode = 0x75
	LDARG2   Opcode = 0x76
	LDARG3   Opcode = 0x77
	LDARG4   Opcode = 0x78
	LDARG5   Opcode = 0x79
	LDARG    Opcode = 0x7A
	STARG0   Opcode = 0x7B
	STARG1   Opcode = 0x7C
	STARG2   Opcode = 0x7D
	STARG3   Opcode = 0x7E
	STARG4   Opcode = 0x7F
	STARG5   Opcode = 0x80
	STARG    Opcode = 0x81

	// ---- Splice ------------------------------------------------------------

	NEWBUFFER Opcode = 0x88
	MEMCPY    Opcode = 0x89
	CAT       Opcode = 0x8B
	SUBSTR    Opcode = 0x8C
	LEFT      Opcode = 0x8D
	RIGHT     Opcode = 0x8E

	// ---- Bitwise logic -----------------------------------------------------

	INVERT   Opcode = 0x90
	AND      Opcode = 0x91
	OR       Opcode = 0x92
	XOR      Opcode = 0x93
	EQUAL    Opcode = 0x97
	NOTEQUAL Opcode = 0x98

	// ---- Arithmetic --------------------------------------------------------

	SIGN        Opcode = 0x99
	ABS         Opcode = 0x9A
	NEGATE      Opcode = 0x9B
	INC         Opcode = 0x9C
	DEC         Opcode = 0x9D
	ADD         Opcode = 0x9E
	SUB         Opcode = 0x9F
	MUL         Opcode = 0xA0
	DIV         Opcode = 0xA1
	MOD         Opcode = 0xA2
	POW         Opcode = 0xA3
	SQRT        Opcode = 0xA4
	MODMUL      Opcode = 0xA5
	MODPOW      Opcode = 0xA6
	SHL         Opcode = 0xA8
	SHR         Opcode = 0xA9
	NOT         Opcode = 0xAA
	BOOLAND     Opcode = 0xAB
	BOOLOR      Opcode = 0xAC
	NZ          Opcode = 0xB1
	NUMEQUAL    Opcode = 0xB3
	NUMNOTEQUAL Opcode = 0xB4
	LT          Opcode = 0xB5
	LE          Opcode = 0xB6
	GT          Opcode = 0xB7
	GE          Opcode = 0xB8
	MIN         Opcode = 0xB9
	MAX         Opcode = 0xBA
	WITHIN      Opcode = 0xBB

	// ---- Compound types ----------------------------------------------------

	PACKMAP      Opcode = 0xBE
	PACKSTRUCT   Opcode = 0xBF
	PACK         Opcode = 0xC0
	UNPACK       Opcode = 0xC1
	NEWARRAY0    Opcode = 0xC2
	NEWARRAY     Opcode = 0xC3
	NEWARRAYT    Opcode = 0xC4
	NEWSTRUCT0   Opcode = 0xC5
	NEWSTRUCT    Opcode = 0xC6
	NEWMAP       Opcode = 0xC8
	SIZE         Opcode = 0xCA
	HASKEY       Opcode = 0xCB
	KEYS         Opcode = 0xCC
	VALUES       Opcode = 0xCD
	PICKITEM     Opcode = 0xCE
	APPEND       Opcode = 0xCF
	SETITEM      Opcode = 0xD0
	REVERSEITEMS Opcode = 0xD1
	REMOVE       Opcode = 0xD2
	CLEARITEMS   Opcode = 0xD3
	POPITEM      Opcode = 0xD4

	// ---- Types -------------------------------------------------------------

	ISNULL  Opcode = 0xD8
	ISTYPE  Opcode = 0xD9
	CONVERT Opcode = 0xDB

	// ---- Cryptography ------------------------------------------------------

	// SHA256 replaces the top item with its SHA-256 digest.
	SHA256 Opcode = 0xF0
	// RIPEMD160 replaces the top item with its RIPEMD-160 digest.
	RIPEMD160 Opcode = 0xF1
	// HASH160 replaces the top item with RIPEMD-160(SHA-256(x)).
	HASH160 Opcode = 0xF2
	// CHECKSIG pops a public key, a signature and a message and pushes
	// whether the signature is valid.
	CHECKSIG Opcode = 0xF3
)

// opcodeInfo describes the encoding of an opcode. size is the width of a
// fixed operand; prefix is the width of the length prefix of a variable
// payload. An empty name marks an undefined byte.
type opcodeInfo struct {
	name   string
	size   int
	prefix int
}

var opcodeTable = [256]opcodeInfo{
	PUSHINT8:   {"PUSHINT8", 1, 0},
	PUSHINT16:  {"PUSHINT16", 2, 0},
	PUSHINT32:  {"PUSHINT32", 4, 0},
	PUSHINT64:  {"PUSHINT64", 8, 0},
	PUSHINT128: {"PUSHINT128", 16, 0},
	PUSHINT256: {"PUSHINT256", 32, 0},
	PUSHT:      {"PUSHT", 0, 0},
	PUSHF:      {"PUSHF", 0, 0},
	PUSHA:      {"PUSHA", 4, 0},
	PUSHNULL:   {"PUSHNULL", 0, 0},
	PUSHDATA1:  {"PUSHDATA1", 0, 1},
	PUSHDATA2:  {"PUSHDATA2", 0, 2},
	PUSHDATA4:  {"PUSHDATA4", 0, 4},
	PUSHM1:     {"PUSHM1", 0, 0},
	PUSH0:      {"PUSH0", 0, 0},
	PUSH1:      {"PUSH1", 0, 0},
	PUSH2:      {"PUSH2", 0, 0},
	PUSH3:      {"PUSH3", 0, 0},
	PUSH4:      {"PUSH4", 0, 0},
	PUSH5:      {"PUSH5", 0, 0},
	PUSH6:      {"PUSH6", 0, 0},
	PUSH7:      {"PUSH7", 0, 0},
	PUSH8:      {"PUSH8", 0, 0},
	PUSH9:      {"PUSH9", 0, 0},
	PUSH10:     {"PUSH10", 0, 0},
	PUSH11:     {"PUSH11", 0, 0},
	PUSH12:     {"PUSH12", 0, 0},
	PUSH13:     {"PUSH13", 0, 0},
	PUSH14:     {"PUSH14", 0, 0},
	PUSH15:     {"PUSH15", 0, 0},
	PUSH16:     {"PUSH16", 0, 0},

	NOP:       {"NOP", 0, 0},
	JMP:       {"JMP", 1, 0},
	JMPL:      {"JMP_L", 4, 0},
	JMPIF:     {"JMPIF", 1, 0},
	JMPIFL:    {"JMPIF_L", 4, 0},
	JMPIFNOT:  {"JMPIFNOT", 1, 0},
	JMPIFNOTL: {"JMPIFNOT_L", 4, 0},
	JMPEQ:     {"JMPEQ", 1, 0},
	JMPEQL:    {"JMPEQ_L", 4, 0},
	JMPNE:     {"JMPNE", 1, 0},
	JMPNEL:    {"JMPNE_L", 4, 0},
	JMPGT:     {"JMPGT", 1, 0},
	JMPGTL:    {"JMPGT_L", 4, 0},
	JMPGE:     {"JMPGE", 1, 0},
	JMPGEL:    {"JMPGE_L", 4, 0},
	JMPLT:     {"JMPLT", 1, 0},
	JMPLTL:    {"JMPLT_L", 4, 0},
	JMPLE:     {"JMPLE", 1, 0},
	JMPLEL:    {"JMPLE_L", 4, 0},
	CALL:      {"CALL", 1, 0},
	CALLL:     {"CALL_L", 4, 0},
	CALLA:     {"CALLA", 0, 0},
	ABORT:     {"ABORT", 0, 0},
	ASSERT:    {"ASSERT", 0, 0},
	THROW:     {"THROW", 0, 0},
	RET:       {"RET", 0, 0},
	SYSCALL:   {"SYSCALL", 4, 0},

	DEPTH:    {"DEPTH", 0, 0},
	DROP:     {"DROP", 0, 0},
	NIP:      {"NIP", 0, 0},
	XDROP:    {"XDROP", 0, 0},
	CLEAR:    {"CLEAR", 0, 0},
	DUP:      {"DUP", 0, 0},
	OVER:     {"OVER", 0, 0},
	PICK:     {"PICK", 0, 0},
	TUCK:     {"TUCK", 0, 0},
	SWAP:     {"SWAP", 0, 0},
	ROT:      {"ROT", 0, 0},
	ROLL:     {"ROLL", 0, 0},
	REVERSE3: {"REVERSE3", 0, 0},
	REVERSE4: {"REVERSE4", 0, 0},
	REVERSEN: {"REVERSEN", 0, 0},

	INITSSLOT: {"INITSSLOT", 1, 0},
	INITSLOT:  {"INITSLOT", 2, 0},
	LDSFLD0:   {"LDSFLD0", 0, 0},
	LDSFLD1:   {"LDSFLD1", 0, 0},
	LDSFLD2:   {"LDSFLD2", 0, 0},
	LDSFLD3:   {"LDSFLD3", 0, 0},
	LDSFLD4:   {"LDSFLD4", 0, 0},
	LDSFLD5:   {"LDSFLD5", 0, 0},
	LDSFLD:    {"LDSFLD", 1, 0},
	STSFLD0:   {"STSFLD0", 0, 0},
	STSFLD1:   {"STSFLD1", 0, 0},
	STSFLD2:   {"STSFLD2", 0, 0},
	STSFLD3:   {"STSFLD3", 0, 0},
	STSFLD4:   {"STSFLD4", 0, 0},
	STSFLD5:   {"STSFLD5", 0, 0},
	STSFLD:    {"STSFLD", 1, 0},
	LDLOC0:    {"LDLOC0", 0, 0},
	LDLOC1:    {"LDLOC1", 0, 0},
	LDLOC2:    {"LDLOC2", 0, 0},
	LDLOC3:    {"LDLOC3", 0, 0},
	LDLOC4:    {"LDLOC4", 0, 0},
	LDLOC5:    {"LDLOC5", 0, 0},
	LDLOC:     {"LDLOC", 1, 0},
	STLOC0:    {"STLOC0", 0, 0},
	STLOC1:    {"STLOC1", 0, 0},
	STLOC2:    {"STLOC2", 0, 0},
	STLOC3:    {"STLOC3", 0, 0},
	STLOC4:    {"STLOC4", 0, 0},
	STLOC5:    {"STLOC5", 0, 0},
	STLOC:     {"STLOC", 1, 0},
	LDARG0:    {"LDARG0", 0, 0},
	LDARG1:    {"LDARG1", 0, 0},
	LDARG2:    {"LDARG2", 0, 0},
	LDARG3:    {"LDARG3", 0, 0},
	LDARG4:    {"LDARG4", 0, 0},
	LDARG5:    {"LDARG5", 0, 0},
	LDARG:     {"LDARG", 1, 0},
	STARG0:    {"STARG0", 0, 0},
	STARG1:    {"STARG1", 0, 0},
	STARG2:    {"STARG2", 0, 0},
	STARG3:    {"STARG3", 0, 0},
	STARG4:    {"STARG4", 0, 0},
	STARG5:    {"STARG5", 0, 0},
	STARG:     {"STARG", 1, 0},

	NEWBUFFER: {"NEWBUFFER", 0, 0},
	MEMCPY:    {"MEMCPY", 0, 0},
	CAT:       {"CAT", 0, 0},
	SUBSTR:    {"SUBSTR", 0, 0},
	LEFT:      {"LEFT", 0, 0},
	RIGHT:     {"RIGHT", 0, 0},

	INVERT:   {"INVERT", 0, 0},
	AND:      {"AND", 0, 0},
	OR:       {"OR", 0, 0},
	XOR:      {"XOR", 0, 0},
	EQUAL:    {"EQUAL", 0, 0},
	NOTEQUAL: {"NOTEQUAL", 0, 0},

	SIGN:        {"SIGN", 0, 0},
	ABS:         {"ABS", 0, 0},
	NEGATE:      {"NEGATE", 0, 0},
	INC:         {"INC", 0, 0},
	DEC:         {"DEC", 0, 0},
	ADD:         {"ADD", 0, 0},
	SUB:         {"SUB", 0, 0},
	MUL:         {"MUL", 0, 0},
	DIV:         {"DIV", 0, 0},
	MOD:         {"MOD", 0, 0},
	POW:         {"POW", 0, 0},
	SQRT:        {"SQRT", 0, 0},
	MODMUL:      {"MODMUL", 0, 0},
	MODPOW:      {"MODPOW", 0, 0},
	SHL:         {"SHL", 0, 0},
	SHR:         {"SHR", 0, 0},
	NOT:         {"NOT", 0, 0},
	BOOLAND:     {"BOOLAND", 0, 0},
	BOOLOR:      {"BOOLOR", 0, 0},
	NZ:          {"NZ", 0, 0},
	NUMEQUAL:    {"NUMEQUAL", 0, 0},
	NUMNOTEQUAL: {"NUMNOTEQUAL", 0, 0},
	LT:          {"LT", 0, 0},
	LE:          {"LE", 0, 0},
	GT:          {"GT", 0, 0},
	GE:          {"GE", 0, 0},
	MIN:         {"MIN", 0, 0},
	MAX:         {"MAX", 0, 0},
	WITHIN:      {"WITHIN", 0, 0},

	PACKMAP:      {"PACKMAP", 0, 0},
	PACKSTRUCT:   {"PACKSTRUCT", 0, 0},
	PACK:         {"PACK", 0, 0},
	UNPACK:       {"UNPACK", 0, 0},
	NEWARRAY0:    {"NEWARRAY0", 0, 0},
	NEWARRAY:     {"NEWARRAY", 0, 0},
	NEWARRAYT:    {"NEWARRAY_T", 1, 0},
	NEWSTRUCT0:   {"NEWSTRUCT0", 0, 0},
	NEWSTRUCT:    {"NEWSTRUCT", 0, 0},
	NEWMAP:       {"NEWMAP", 0, 0},
	SIZE:         {"SIZE", 0, 0},
	HASKEY:       {"HASKEY", 0, 0},
	KEYS:         {"KEYS", 0, 0},
	VALUES:       {"VALUES", 0, 0},
	PICKITEM:     {"PICKITEM", 0, 0},
	APPEND:       {"APPEND", 0, 0},
	SETITEM:      {"SETITEM", 0, 0},
	REVERSEITEMS: {"REVERSEITEMS", 0, 0},
	REMOVE:       {"REMOVE", 0, 0},
	CLEARITEMS:   {"CLEARITEMS", 0, 0},
	POPITEM:      {"POPITEM", 0, 0},

	ISNULL:  {"ISNULL", 0, 0},
	ISTYPE:  {"ISTYPE", 1, 0},
	CONVERT: {"CONVERT", 1, 0},

	SHA256:    {"SHA256", 0, 0},
	RIPEMD160: {"RIPEMD160", 0, 0},
	HASH160:   {"HASH160", 0, 0},
	CHECKSIG:  {"CHECKSIG", 0, 0},
}

// String returns the mnemonic of the opcode, or "UNKNOWN" for undefined
// bytes.
func (op Opcode) String() string {
	if name := opcodeTable[op].name; name != "" {
		return name
	}
	return "UNKNOWN"
}

// IsValid reports whether op is a defined opcode.
func (op Opcode) IsValid() bool { return opcodeTable[op].name != "" }

// OperandSize returns the width of the fixed operand of op.
func (op Opcode) OperandSize() int { return opcodeTable[op].size }

// PrefixSize returns the width of the length prefix of a variable payload,
// or zero for opcodes without one.
func (op Opcode) PrefixSize() int { return opcodeTable[op].prefix }

// IsJump reports whether op carries a relative code offset: jumps, calls
// and PUSHA.
func (op Opcode) IsJump() bool {
	return (op >= JMP && op <= CALLL) || op == PUSHA
}

// FromString returns the opcode with the given mnemonic.
func FromString(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode)
	for i, info := range opcodeTable {
		if info.name != "" {
			m[info.name] = Opcode(i)
		}
	}
	return m
}()
