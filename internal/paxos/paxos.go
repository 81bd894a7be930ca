package paxos

import (
	"github.com/optable/okvspsi/internal/aeshash"
	"github.com/optable/okvspsi/internal/gf128"
	"github.com/optable/okvspsi/internal/prng"
)

// Paxos runs the per-bin encode/decode algorithm (C3) for one bin, using
// the shared Hasher (C1) for row/dense derivation and Param (C2) for
// sizing. A single Paxos instance is reused across every bin a worker
// thread owns; it holds only configuration, and each Encode call
// allocates its own row, column and peeling scratch.
type Paxos struct {
	param  Param
	hasher *aeshash.Hasher
	debug  bool

	// denseFreeMarker records, for the Encode call in flight, which dense
	// columns had no pivot during solveDense and must be randomized in
	// step 5. Reset to nil at the end of every Encode call.
	denseFreeMarker []bool
}

// New builds a Paxos instance. debug enables the duplicate-input check
// spec.md 4.3 requires only in debug builds.
func New(param Param, hasher *aeshash.Hasher, debug bool) *Paxos {
	return &Paxos{param: param, hasher: hasher, debug: debug}
}

type pivot struct {
	row, col int
}

// Encode runs the 5-step algorithm of spec.md 4.3 for one bin and returns
// P of length param.M. hashes and values must have the same length.
func (p *Paxos) Encode(hashes, values []gf128.Block, rng *prng.Source) ([]gf128.Block, error) {
	b := len(hashes)
	if b != len(values) {
		return nil, newError(KindMalformedInput, "paxos: hashes/values length mismatch")
	}
	ms, d, m := p.param.MS, p.param.D, p.param.M

	P := make([]gf128.Block, m)

	if b == 0 {
		randomizeAll(P, rng)
		return P, nil
	}

	if p.debug {
		seen := make(map[gf128.Block]struct{}, b)
		for _, h := range hashes {
			if _, dup := seen[h]; dup {
				return nil, newError(KindMalformedInput, "paxos: duplicate input hash in bin")
			}
			seen[h] = struct{}{}
		}
	}

	rows := make([][]uint32, b)
	for i, h := range hashes {
		rows[i] = p.hasher.Row(h)
	}

	// Step 1: build column adjacency and initial peel stack.
	colWeight := make([]int, ms)
	colRows := make([][]int, ms)
	for r, cols := range rows {
		for _, c := range cols {
			colWeight[c]++
			colRows[c] = append(colRows[c], r)
		}
	}
	var stack []int
	for c := 0; c < ms; c++ {
		if colWeight[c] == 1 {
			stack = append(stack, c)
		}
	}

	// Step 2: peel.
	rowUsed := make([]bool, b)
	colPeeled := make([]bool, ms)
	var peelLog []pivot
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if colPeeled[c] || colWeight[c] != 1 {
			continue
		}
		r := -1
		for _, rr := range colRows[c] {
			if !rowUsed[rr] {
				r = rr
				break
			}
		}
		if r == -1 {
			continue
		}
		rowUsed[r] = true
		colPeeled[c] = true
		peelLog = append(peelLog, pivot{row: r, col: c})
		for _, c2u := range rows[r] {
			c2 := int(c2u)
			if c2 == c || colPeeled[c2] {
				continue
			}
			colWeight[c2]--
			if colWeight[c2] == 1 {
				stack = append(stack, c2)
			}
		}
	}

	// Core rows are everything peeling didn't consume.
	var core []int
	for r := 0; r < b; r++ {
		if !rowUsed[r] {
			core = append(core, r)
		}
	}

	// Unpeeled sparse columns that a core row touches are fixed to zero:
	// the dense solve below assumes their contribution is zero.
	coreSparseAssigned := make([]bool, ms)
	for _, r := range core {
		for _, c := range rows[r] {
			if !colPeeled[c] {
				coreSparseAssigned[c] = true
				P[c] = gf128.Zero
			}
		}
	}

	// Step 3: dense solve over the core.
	if err := p.solveDense(P, ms, d, hashes, values, core); err != nil {
		return nil, err
	}

	// Step 4: back-substitute peeled columns, most recently peeled first.
	for i := len(peelLog) - 1; i >= 0; i-- {
		pv := peelLog[i]
		val := values[pv.row]
		for _, cu := range rows[pv.row] {
			c := int(cu)
			if c != pv.col {
				val = val.Xor(P[c])
			}
		}
		val = val.Xor(p.denseContribution(hashes[pv.row], P[ms:]))
		P[pv.col] = val
	}

	// Step 5: every sparse column is either peeled (back-substituted
	// above), fixed to zero because a core row touches it, or never
	// constrained by any surviving equation (its rows were all consumed
	// as pivots for other columns) — randomize that last group.
	for c := 0; c < ms; c++ {
		if colPeeled[c] || coreSparseAssigned[c] {
			continue
		}
		randomizeOne(&P[c], rng)
	}
	// dense columns without a pivot in solveDense are marked via a
	// sentinel written by solveDense; randomize those too.
	for j := 0; j < d; j++ {
		if p.denseFreeMarker != nil && p.denseFreeMarker[j] {
			randomizeOne(&P[ms+j], rng)
		}
	}
	p.denseFreeMarker = nil

	return P, nil
}

func randomizeAll(P []gf128.Block, rng *prng.Source) {
	for i := range P {
		randomizeOne(&P[i], rng)
	}
}

func randomizeOne(dst *gf128.Block, rng *prng.Source) {
	if rng == nil {
		*dst = gf128.Zero
		return
	}
	dst.Lo = rng.Uint64()
	dst.Hi = rng.Uint64()
}

// denseContribution computes the dense-tail term of the row equation for
// hash h against the dense-column slice of P (already solved).
func (p *Paxos) denseContribution(h gf128.Block, denseP []gf128.Block) gf128.Block {
	var acc gf128.Block
	for j, c := range p.denseCoeffs(h) {
		if !c.IsZero() {
			acc = acc.Xor(c.Mul(denseP[j]))
		}
	}
	return acc
}

// Decode computes the value assigned to h under P, spec.md 4.5's per-item
// lookup: XOR of P over row(h) plus the dense contribution.
func (p *Paxos) Decode(h gf128.Block, P []gf128.Block) gf128.Block {
	var acc gf128.Block
	for _, c := range p.hasher.Row(h) {
		acc = acc.Xor(P[c])
	}
	acc = acc.Xor(p.denseContribution(h, P[p.param.MS:]))
	return acc
}
