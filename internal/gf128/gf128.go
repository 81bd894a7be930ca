// Package gf128 implements the two representations the OKVS dense tail
// needs: plain XOR under GF(2), and multiplication under GF(2^128) with
// the AES-GCM reduction polynomial x^128 + x^7 + x^2 + x + 1.
package gf128

import "encoding/binary"

// Block is a 128-bit value, split into two 64-bit halves so XOR and
// multiplication operate at the machine word size instead of on a byte
// array. Lo holds the coefficients of x^0..x^63, Hi holds x^64..x^127.
type Block struct {
	Lo, Hi uint64
}

// Zero is the additive identity of both GF(2) and GF(2^128).
var Zero = Block{}

// One is the multiplicative identity of GF(2^128).
var One = Block{Lo: 1}

// reductionLow is the low-order terms of the reduction polynomial
// x^128 + x^7 + x^2 + x + 1, i.e. x^7+x^2+x+1, as a bit pattern.
const reductionLow = 1<<7 | 1<<2 | 1<<1 | 1

// FromBytes reads a little-endian 16 byte block. Panics if len(b) < 16.
func FromBytes(b []byte) Block {
	return Block{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// Bytes returns the little-endian 16 byte encoding of x.
func (x Block) Bytes() [16]byte {
	var out [16]byte
	binary.LittleEndian.PutUint64(out[0:8], x.Lo)
	binary.LittleEndian.PutUint64(out[8:16], x.Hi)
	return out
}

// Xor returns x ^ y, the GF(2) vector-space addition used throughout the
// sparse/dense linear system (Paxos step 3-4) and the mask combination in
// the PSI driver.
func (x Block) Xor(y Block) Block {
	return Block{Lo: x.Lo ^ y.Lo, Hi: x.Hi ^ y.Hi}
}

// IsZero reports whether x is the all-zero block.
func (x Block) IsZero() bool {
	return x.Lo == 0 && x.Hi == 0
}

// Equal reports value equality.
func (x Block) Equal(y Block) bool {
	return x.Lo == y.Lo && x.Hi == y.Hi
}

// shl1 multiplies a by x, i.e. shifts it left by one bit within the
// 128-bit lane, reducing modulo x^128+x^7+x^2+x+1 when the top bit
// overflows.
func shl1(a Block) Block {
	overflow := a.Hi >> 63
	hi := (a.Hi << 1) | (a.Lo >> 63)
	lo := a.Lo << 1
	if overflow != 0 {
		lo ^= reductionLow
	}
	return Block{Lo: lo, Hi: hi}
}

// Mul returns x*y in GF(2^128) reduced modulo the AES-GCM polynomial
// x^128 + x^7 + x^2 + x + 1, via peasant multiplication: accumulate x*2^i
// for each set bit of y, doubling (multiplying by the field element x,
// with reduction) between bits. Used when Paxos is configured for the
// GF128 field mode (spec.md 4.3/4.4, "field: Binary or GF(2^128)").
func (x Block) Mul(y Block) Block {
	var result Block
	a := x
	for i := 0; i < 64; i++ {
		if (y.Lo>>uint(i))&1 != 0 {
			result = result.Xor(a)
		}
		a = shl1(a)
	}
	for i := 0; i < 64; i++ {
		if (y.Hi>>uint(i))&1 != 0 {
			result = result.Xor(a)
		}
		a = shl1(a)
	}
	return result
}

// Inv returns the multiplicative inverse of x in GF(2^128) via Fermat's
// little theorem: x^-1 = x^(2^128-2) = product of x^(2^i) for i in
// [1,127], since 2^128-2 in binary is 127 ones followed by a zero. Panics
// if x is zero. Used by the dense-tail Gaussian elimination when the
// Paxos field mode is GF128 (spec.md 4.3 step 3).
func (x Block) Inv() Block {
	if x.IsZero() {
		panic("gf128: inverse of zero")
	}
	sq := x.Mul(x) // x^2
	result := sq
	for i := 2; i <= 127; i++ {
		sq = sq.Mul(sq) // x^(2^i)
		result = result.Mul(sq)
	}
	return result
}
