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

package stackitem

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// MaxIntegerSize is the maximum byte length of an Integer's little-endian
// encoding accepted by conversions.
const MaxIntegerSize = 16

// MaxShift is the largest shift amount accepted by SHL and SHR.
const MaxShift = 256

var allOnes = new(uint256.Int).Not(new(uint256.Int))

// Integer is a signed 128-bit integer item.
//
// The value is kept in 256-bit two's complement so that the sum, difference
// and product of any two 128-bit operands are exact. Every operation narrows
// its result back to [-2^127, 2^127-1] and reports ErrOverflow otherwise.
type Integer struct {
	v uint256.Int
}

// fitsInt128 reports whether the 256-bit two's complement value x is the
// sign extension of a 128-bit value.
func fitsInt128(x *uint256.Int) bool {
	var hi uint256.Int
	hi.SRsh(x, 127)
	return hi.IsZero() || hi.Eq(allOnes)
}

func checked(x *uint256.Int) (*Integer, error) {
	if !fitsInt128(x) {
		return nil, ErrOverflow
	}
	return &Integer{v: *x}, nil
}

// NewInt returns an Integer holding x.
func NewInt(x int64) *Integer {
	i := new(Integer)
	if x >= 0 {
		i.v.SetUint64(uint64(x))
	} else {
		i.v.SetUint64(uint64(^x) + 1)
		i.v.Neg(&i.v)
	}
	return i
}

// NewIntFromBig returns an Integer holding b, or ErrOverflow if b does not
// fit into 128 bits.
func NewIntFromBig(b *big.Int) (*Integer, error) {
	abs := new(big.Int).Abs(b)
	if abs.BitLen() > 128 {
		return nil, ErrOverflow
	}
	z, _ := uint256.FromBig(abs)
	if b.Sign() < 0 {
		z.Neg(z)
	}
	return checked(z)
}

// IntFromBytes decodes a little-endian two's complement integer of at most
// 32 bytes. Values outside the 128-bit range are ErrOverflow.
func IntFromBytes(b []byte) (*Integer, error) {
	if len(b) > 32 {
		return nil, fmt.Errorf("%w: %d byte integer", ErrTooBig, len(b))
	}
	if len(b) == 0 {
		return new(Integer), nil
	}
	var be [32]byte
	if b[len(b)-1]&0x80 != 0 {
		for k := range be {
			be[k] = 0xff
		}
	}
	for k, c := range b {
		be[31-k] = c
	}
	var z uint256.Int
	z.SetBytes32(be[:])
	return checked(&z)
}

// Type implements Item.
func (i *Integer) Type() Type { return IntegerT }

// Value implements Item. It returns the value as a *big.Int.
func (i *Integer) Value() interface{} { return i.Big() }

// Bool implements Item; an Integer is true when it is not zero.
func (i *Integer) Bool() bool { return !i.v.IsZero() }

// TryBytes implements Item.
func (i *Integer) TryBytes() ([]byte, error) { return i.Bytes(), nil }

// TryInteger implements Item.
func (i *Integer) TryInteger() (*Integer, error) { return i, nil }

// Equals implements Item. Integers only equal other Integers.
func (i *Integer) Equals(o Item) bool {
	other, ok := o.(*Integer)
	return ok && i.v.Eq(&other.v)
}

// Convert implements Item.
func (i *Integer) Convert(t Type) (Item, error) { return convertPrimitive(i, t) }

// String implements fmt.Stringer.
func (i *Integer) String() string { return i.Big().String() }

// Big returns the value as a newly allocated *big.Int.
func (i *Integer) Big() *big.Int {
	if i.v.Sign() >= 0 {
		return i.v.ToBig()
	}
	var abs uint256.Int
	abs.Neg(&i.v)
	return new(big.Int).Neg(abs.ToBig())
}

// Int64 returns the value as an int64 and whether it fits.
func (i *Integer) Int64() (int64, bool) {
	var hi uint256.Int
	hi.SRsh(&i.v, 63)
	if !hi.IsZero() && !hi.Eq(allOnes) {
		return 0, false
	}
	return int64(i.v.Uint64()), true
}

// IsZero reports whether the value is zero.
func (i *Integer) IsZero() bool { return i.v.IsZero() }

// Sign returns -1, 0 or 1.
func (i *Integer) Sign() int { return i.v.Sign() }

// Bytes returns the minimal little-endian two's complement encoding. Zero
// encodes to an empty slice.
func (i *Integer) Bytes() []byte {
	if i.v.IsZero() {
		return []byte{}
	}
	be := i.v.Bytes32()
	le := make([]byte, 32)
	for k := range le {
		le[k] = be[31-k]
	}
	n := len(le)
	if i.v.Sign() < 0 {
		for n > 1 && le[n-1] == 0xff && le[n-2]&0x80 != 0 {
			n--
		}
	} else {
		for n > 1 && le[n-1] == 0x00 && le[n-2]&0x80 == 0 {
			n--
		}
	}
	return le[:n]
}

// Cmp compares two integers and returns -1, 0 or 1.
func (i *Integer) Cmp(o *Integer) int {
	switch {
	case i.v.Slt(&o.v):
		return -1
	case i.v.Sgt(&o.v):
		return 1
	default:
		return 0
	}
}

// ---- Checked arithmetic ----------------------------------------------------

// Add returns i + o.
func (i *Integer) Add(o *Integer) (*Integer, error) {
	var z uint256.Int
	z.Add(&i.v, &o.v)
	return checked(&z)
}

// Sub returns i - o.
func (i *Integer) Sub(o *Integer) (*Integer, error) {
	var z uint256.Int
	z.Sub(&i.v, &o.v)
	return checked(&z)
}

// Mul returns i * o.
func (i *Integer) Mul(o *Integer) (*Integer, error) {
	var z uint256.Int
	z.Mul(&i.v, &o.v)
	return checked(&z)
}

// Div returns i / o truncated toward zero.
func (i *Integer) Div(o *Integer) (*Integer, error) {
	if o.v.IsZero() {
		return nil, ErrDivisionByZero
	}
	var z uint256.Int
	z.SDiv(&i.v, &o.v)
	return checked(&z)
}

// Mod returns the remainder of i / o; its sign follows the dividend.
func (i *Integer) Mod(o *Integer) (*Integer, error) {
	if o.v.IsZero() {
		return nil, ErrDivisionByZero
	}
	var z uint256.Int
	z.SMod(&i.v, &o.v)
	return checked(&z)
}

// Neg returns -i.
func (i *Integer) Neg() (*Integer, error) {
	var z uint256.Int
	z.Neg(&i.v)
	return checked(&z)
}

// Abs returns |i|.
func (i *Integer) Abs() (*Integer, error) {
	var z uint256.Int
	z.Abs(&i.v)
	return checked(&z)
}

// Pow returns i raised to the power e. A negative exponent is an invalid
// operation.
func (i *Integer) Pow(e *Integer) (*Integer, error) {
	if e.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative exponent", ErrInvalidOperation)
	}
	one := NewInt(1)
	if e.IsZero() {
		return one, nil
	}
	// 0, 1 and -1 never grow; anything else overflows long before 2^64.
	if i.IsZero() || i.v.Eq(&one.v) {
		return i, nil
	}
	exp, ok := e.Int64()
	if !ok || exp > 128 {
		if i.v.Eq(allOnes) {
			if e.v.Uint64()&1 == 0 {
				return one, nil
			}
			return i, nil
		}
		return nil, ErrOverflow
	}
	var (
		result = one
		base   = i
		err    error
	)
	for {
		if exp&1 == 1 {
			if result, err = result.Mul(base); err != nil {
				return nil, err
			}
		}
		exp >>= 1
		if exp == 0 {
			return result, nil
		}
		if base, err = base.Mul(base); err != nil {
			return nil, err
		}
	}
}

// Sqrt returns the integer square root of i.
func (i *Integer) Sqrt() (*Integer, error) {
	if i.Sign() < 0 {
		return nil, fmt.Errorf("%w: square root of negative value", ErrInvalidOperation)
	}
	return NewIntFromBig(new(big.Int).Sqrt(i.Big()))
}

// ModMul returns (i * o) % m.
func (i *Integer) ModMul(o, m *Integer) (*Integer, error) {
	if m.IsZero() {
		return nil, ErrDivisionByZero
	}
	var z uint256.Int
	z.Mul(&i.v, &o.v)
	z.SMod(&z, &m.v)
	return checked(&z)
}

// ModPow returns i^e mod m. An exponent of -1 computes the modular inverse.
func (i *Integer) ModPow(e, m *Integer) (*Integer, error) {
	if m.IsZero() {
		return nil, ErrDivisionByZero
	}
	mod := m.Big()
	if e.Sign() < 0 {
		if e.Cmp(NewInt(-1)) != 0 {
			return nil, fmt.Errorf("%w: negative exponent", ErrInvalidOperation)
		}
		if i.Sign() <= 0 || mod.Cmp(big.NewInt(2)) < 0 {
			return nil, fmt.Errorf("%w: modular inverse of non-positive value", ErrInvalidOperation)
		}
		inv := new(big.Int).ModInverse(i.Big(), mod)
		if inv == nil {
			return nil, fmt.Errorf("%w: no modular inverse", ErrInvalidOperation)
		}
		return NewIntFromBig(inv)
	}
	base := i.Big()
	r := new(big.Int).Exp(new(big.Int).Abs(base), e.Big(), new(big.Int).Abs(mod))
	if base.Sign() < 0 && e.Big().Bit(0) == 1 && r.Sign() != 0 {
		r.Neg(r)
	}
	return NewIntFromBig(r)
}

// ---- Bitwise ---------------------------------------------------------------

// And returns i & o.
func (i *Integer) And(o *Integer) *Integer {
	z := new(Integer)
	z.v.And(&i.v, &o.v)
	return z
}

// Or returns i | o.
func (i *Integer) Or(o *Integer) *Integer {
	z := new(Integer)
	z.v.Or(&i.v, &o.v)
	return z
}

// Xor returns i ^ o.
func (i *Integer) Xor(o *Integer) *Integer {
	z := new(Integer)
	z.v.Xor(&i.v, &o.v)
	return z
}

// Not returns ^i.
func (i *Integer) Not() *Integer {
	z := new(Integer)
	z.v.Not(&i.v)
	return z
}

func shiftAmount(n *Integer) (uint, error) {
	s, ok := n.Int64()
	if !ok || s < 0 || s > MaxShift {
		return 0, fmt.Errorf("%w: shift %s out of range", ErrInvalidOperation, n)
	}
	return uint(s), nil
}

// Shl returns i << n for n in [0, 256].
func (i *Integer) Shl(n *Integer) (*Integer, error) {
	s, err := shiftAmount(n)
	if err != nil {
		return nil, err
	}
	if s == 0 || i.IsZero() {
		return i, nil
	}
	if s > 128 {
		return nil, ErrOverflow
	}
	var z uint256.Int
	z.Lsh(&i.v, s)
	return checked(&z)
}

// Shr returns the arithmetic shift i >> n for n in [0, 256].
func (i *Integer) Shr(n *Integer) (*Integer, error) {
	s, err := shiftAmount(n)
	if err != nil {
		return nil, err
	}
	if s > 255 {
		s = 255
	}
	z := new(Integer)
	z.v.SRsh(&i.v, s)
	return z, nil
}
