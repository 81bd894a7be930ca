// Package divide implements Barrett-style fast modular reduction for a
// fixed divisor, mirroring the libdivide_u64_t calls the original
// reference makes inside its hashed-partition and decode hot loops
// (hashing every key into a bin index, a sparse row, and decoding in
// batches, all against the same small set of divisors for the lifetime of
// an OKVS instance).
package divide

import "math/bits"

// ByConst precomputes the reciprocal for repeated division/modulo by a
// fixed uint32 divisor, replacing a hardware DIV per call with a multiply
// and shift. aeshash.New builds one for the bin count and reuses it for
// every key; aeshash.Hasher.Row builds one for m_s on each call.
type ByConst struct {
	divisor uint32
	magic   uint64
	shift   uint
}

// NewByConst builds a fast-divider for d. Panics if d == 0.
func NewByConst(d uint32) ByConst {
	if d == 0 {
		panic("divide: zero divisor")
	}
	if d == 1 {
		return ByConst{divisor: 1}
	}
	shift := uint(bits.Len32(d - 1))
	magic := (uint64(1)<<(32+shift) + uint64(d) - 1) / uint64(d)
	return ByConst{divisor: d, magic: magic, shift: shift}
}

// Div returns n / d.
func (b ByConst) Div(n uint32) uint32 {
	if b.divisor == 1 {
		return n
	}
	hi, lo := bits.Mul64(uint64(n), b.magic)
	totalShift := 32 + b.shift
	if totalShift == 64 {
		return uint32(hi)
	}
	return uint32((hi << (64 - totalShift)) | (lo >> totalShift))
}

// Mod returns n % d, computed from Div to avoid a second hardware
// division.
func (b ByConst) Mod(n uint32) uint32 {
	if b.divisor == 1 {
		return 0
	}
	return n - b.Div(n)*b.divisor
}

// Batch32 applies Mod to 32 values at once, the unit size the original
// reference's batched decode pipeline (implDecodeBatch) uses to keep the
// reduction loop branch-predictor and cache friendly. dst and src may
// overlap only if dst == src.
func (b ByConst) Batch32(dst, src *[32]uint32) {
	for i := range src {
		dst[i] = b.Mod(src[i])
	}
}
