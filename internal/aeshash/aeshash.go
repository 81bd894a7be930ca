// Package aeshash implements the Hasher (C1): a single keyed AES instance
// derives, for every item, its full hash, its bin index, its sparse row
// of w column indices, and its dense-tail contribution. The
// counter-splice-then-encrypt idiom is adapted from the teacher's own
// internal/crypto/cipher.go PseudorandomCode, which reuses one AES block
// cipher and writes a counter byte into the plaintext before encrypting,
// rather than constructing a fresh cipher.Stream per call.
package aeshash

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"github.com/optable/okvspsi/internal/divide"
	"github.com/optable/okvspsi/internal/gf128"
)

// Field selects the dense-tail arithmetic, mirroring PaxosParam.field.
type Field int

const (
	Binary Field = iota
	GF128
)

// Hasher derives h, bin(h), row(h), and dense(h) from a single keyed AES
// instance, per spec.md 4.1.
type Hasher struct {
	block cipher.Block
	bins  divide.ByConst
	w     int
	ms    int // m_s, sparse column count
	d     int // dense width: bits (Binary) or GF(2^128) coefficients (GF128)
	field Field
}

// New builds a Hasher keyed with seed, for B bins, row weight w, m_s
// sparse columns, and dense width d (bits if Binary, number of GF(2^128)
// coefficients per row if GF128).
func New(seed [32]byte, numBins int, w, ms, d int, field Field) (*Hasher, error) {
	block, err := aes.NewCipher(seed[:16])
	if err != nil {
		return nil, err
	}
	return &Hasher{
		block: block,
		bins:  divide.NewByConst(uint32(numBins)),
		w:     w,
		ms:    ms,
		d:     d,
		field: field,
	}, nil
}

// HashBlock returns h = AES_seed(k) xor k, spec.md 4.1's hashBlock.
func (h *Hasher) HashBlock(k gf128.Block) gf128.Block {
	in := k.Bytes()
	var out [16]byte
	h.block.Encrypt(out[:], in[:])
	return gf128.FromBytes(out[:]).Xor(k)
}

// BinIdx XOR-folds the upper 64 bits of h to 32 bits and reduces that
// modulo B via the fast-modulo constant. The full 64-bit value is not
// reduced directly.
func (h *Hasher) BinIdx(hv gf128.Block) uint32 {
	return h.bins.Mod(uint32(hv.Hi) ^ uint32(hv.Hi>>32))
}

// BinIdxBatch32 applies BinIdx to 32 hashes at once, the batch unit
// spec.md 4.1/4.4 calls out as the SIMD-amenable granularity.
func (h *Hasher) BinIdxBatch32(hs *[32]gf128.Block) (out [32]uint32) {
	var src [32]uint32
	for i, hv := range hs {
		src[i] = uint32(hv.Hi) ^ uint32(hv.Hi>>32)
	}
	h.bins.Batch32(&out, &src)
	return out
}

// derive produces a counter-mode keystream block: splice a domain byte and
// a little-endian counter into the last bytes of h's encoding, encrypt,
// and return the result. Distinct domain bytes give row() and dense()
// disjoint streams from the same AES key, per spec.md 4.1.
func (h *Hasher) derive(hv gf128.Block, domain byte, counter uint32) gf128.Block {
	buf := hv.Bytes()
	buf[15] = domain
	binary.LittleEndian.PutUint32(buf[11:15], counter)
	var out [16]byte
	h.block.Encrypt(out[:], buf[:])
	return gf128.FromBytes(out[:])
}

const (
	domainRow   byte = 1
	domainDense byte = 2
)

// Row expands h through a counter-mode stream to produce w distinct
// column indices in [0, m_s), regenerating with an incremented counter on
// collision, per spec.md 4.1.
func (h *Hasher) Row(hv gf128.Block) []uint32 {
	cols := make([]uint32, 0, h.w)
	seen := make(map[uint32]struct{}, h.w)
	var counter uint32
	msBound := divide.NewByConst(uint32(h.ms))
	for len(cols) < h.w {
		stream := h.derive(hv, domainRow, counter)
		counter++
		col := msBound.Mod(uint32(stream.Lo))
		if _, dup := seen[col]; dup {
			continue
		}
		seen[col] = struct{}{}
		cols = append(cols, col)
	}
	return cols
}

// DenseBinary derives the d-bit dense-tail row for Binary field mode,
// packed little-endian into ceil(d/8) bytes.
func (h *Hasher) DenseBinary(hv gf128.Block) []byte {
	nbytes := (h.d + 7) / 8
	out := make([]byte, nbytes)
	var counter uint32
	for i := 0; i < nbytes; i += 16 {
		stream := h.derive(hv, domainDense, counter)
		counter++
		sb := stream.Bytes()
		n := copy(out[i:], sb[:])
		_ = n
	}
	// mask off bits beyond d within the final byte.
	if rem := h.d % 8; rem != 0 && nbytes > 0 {
		out[nbytes-1] &= byte(1<<uint(rem) - 1)
	}
	return out
}

// DenseGF128Vec derives the d GF(2^128) coefficients used to weight the
// dense-tail columns in GF128 field mode: denseContribution(h) = XOR_j
// coeff[j] * P[ms+j]. One Block per row, per spec.md 4.1; a vector of d
// coefficients generalizes it to an arbitrary dense width.
func (h *Hasher) DenseGF128Vec(hv gf128.Block) []gf128.Block {
	out := make([]gf128.Block, h.d)
	for j := 0; j < h.d; j++ {
		out[j] = h.derive(hv, domainDense, uint32(j))
	}
	return out
}

// Field reports the configured dense-tail arithmetic.
func (h *Hasher) Field() Field { return h.field }

// W reports the configured row weight.
func (h *Hasher) W() int { return h.w }

// MS reports the configured sparse column count.
func (h *Hasher) MS() int { return h.ms }

// D reports the configured dense width.
func (h *Hasher) D() int { return h.d }
