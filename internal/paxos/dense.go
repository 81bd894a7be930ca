package paxos

import (
	"github.com/optable/okvspsi/internal/aeshash"
	"github.com/optable/okvspsi/internal/gf128"
)

// denseRow is one equation of the core's dense linear system: coeffs[j]
// is the GF(2^128) (or GF(2), represented as Zero/One) weight of dense
// column j, rhs is the target value for this row once its (zeroed) core
// sparse columns are accounted for.
type denseRow struct {
	coeffs []gf128.Block
	rhs    gf128.Block
}

// solveDense implements spec.md 4.3 step 3: invert the |core| x d dense
// system and write the solved dense columns into P[ms:ms+d]. Binary
// coefficients are represented as gf128.Zero/One so the same GF(2^128)
// elimination routine handles both field modes: multiplying by Zero or
// One behaves identically to a GF(2) presence weight for any field.
func (p *Paxos) solveDense(P []gf128.Block, ms, d int, hashes, values []gf128.Block, core []int) error {
	rows := make([]denseRow, len(core))
	for i, r := range core {
		rows[i] = denseRow{coeffs: p.denseCoeffs(hashes[r]), rhs: values[r]}
	}

	free := make([]bool, d)
	for i := range free {
		free[i] = true
	}

	var pivotCols []int
	rowPtr := 0
	for col := 0; col < d && rowPtr < len(rows); col++ {
		sel := -1
		for i := rowPtr; i < len(rows); i++ {
			if !rows[i].coeffs[col].IsZero() {
				sel = i
				break
			}
		}
		if sel == -1 {
			continue // no pivot available for this column; stays free
		}
		rows[rowPtr], rows[sel] = rows[sel], rows[rowPtr]

		pivotVal := rows[rowPtr].coeffs[col]
		if !pivotVal.Equal(gf128.One) {
			inv := pivotVal.Inv()
			scaleRow(&rows[rowPtr], inv)
		}

		for i := range rows {
			if i == rowPtr {
				continue
			}
			factor := rows[i].coeffs[col]
			if factor.IsZero() {
				continue
			}
			subtractRow(&rows[i], &rows[rowPtr], factor)
		}

		free[col] = false
		pivotCols = append(pivotCols, col)
		rowPtr++
	}

	// Any remaining (unpivoted) rows must be fully consistent: all-zero
	// coefficients and all-zero RHS, or the core was overdetermined and
	// the dense block is singular for this seed.
	for i := rowPtr; i < len(rows); i++ {
		if !rows[i].rhs.IsZero() {
			return ErrEncodeRetry
		}
		for _, c := range rows[i].coeffs {
			if !c.IsZero() {
				return ErrEncodeRetry
			}
		}
	}

	// After full elimination, pivot row i reads P[ms+pivot] + sum over free
	// columns j of coeffs[j]*P[ms+j] = rhs; solve it against the current P.
	for i, pc := range pivotCols {
		val := rows[i].rhs
		for j, c := range rows[i].coeffs {
			if free[j] && !c.IsZero() {
				val = val.Xor(c.Mul(P[ms+j]))
			}
		}
		P[ms+pc] = val
	}

	p.denseFreeMarker = free
	return nil
}

func scaleRow(r *denseRow, factor gf128.Block) {
	for j := range r.coeffs {
		if !r.coeffs[j].IsZero() {
			r.coeffs[j] = r.coeffs[j].Mul(factor)
		}
	}
	r.rhs = r.rhs.Mul(factor)
}

// subtractRow computes dst -= factor*src, i.e. dst ^= factor*src since
// char(GF(2^128)) == 2.
func subtractRow(dst, src *denseRow, factor gf128.Block) {
	for j := range dst.coeffs {
		if !src.coeffs[j].IsZero() {
			dst.coeffs[j] = dst.coeffs[j].Xor(src.coeffs[j].Mul(factor))
		}
	}
	dst.rhs = dst.rhs.Xor(src.rhs.Mul(factor))
}

// denseCoeffs returns the per-column weights of hash h's dense-tail row,
// uniformly as gf128.Block so the elimination routine above need not
// branch on field mode.
func (p *Paxos) denseCoeffs(h gf128.Block) []gf128.Block {
	d := p.param.D
	out := make([]gf128.Block, d)
	if p.hasher.Field() == aeshash.GF128 {
		copy(out, p.hasher.DenseGF128Vec(h))
		return out
	}
	bits := p.hasher.DenseBinary(h)
	for j := 0; j < d; j++ {
		byteIdx, bitIdx := j/8, uint(j%8)
		if (bits[byteIdx]>>bitIdx)&1 != 0 {
			out[j] = gf128.One
		}
	}
	return out
}
