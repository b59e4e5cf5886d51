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

package vm

// Context is one call frame: an immutable script plus the position of the
// next instruction and the frame's local and argument banks.
type Context struct {
	script []byte
	// ip is the position of the next instruction, curIP the position of the
	// instruction being executed. Relative offsets are anchored at curIP.
	ip    int
	curIP int

	local *Slot
	args  *Slot
	// initialized is set once INITSLOT has run in this frame.
	initialized bool
}

func newContext(script []byte, ip int) *Context {
	return &Context{script: script, ip: ip, curIP: ip}
}

// Script returns the frame's script.
func (c *Context) Script() []byte { return c.script }

// IP returns the position of the next instruction.
func (c *Context) IP() int { return c.ip }

// CurrentIP returns the position of the last fetched instruction.
func (c *Context) CurrentIP() int { return c.curIP }

// Local returns the local slot bank, nil before INITSLOT.
func (c *Context) Local() *Slot { return c.local }

// Arguments returns the argument slot bank, nil before INITSLOT.
func (c *Context) Arguments() *Slot { return c.args }

// NextInstruction decodes the instruction at the frame's ip without
// executing it.
func (c *Context) NextInstruction() (Opcode, []byte, error) {
	if c.ip >= len(c.script) {
		return RET, nil, nil
	}
	op := Opcode(c.script[c.ip])
	param, _, err := decodeOperand(c.script, c.ip, op)
	return op, param, err
}
