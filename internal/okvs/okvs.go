// Package okvs implements the BinnedOKVS encoder (C4) and decoder (C5):
// parallel hash-and-partition over T worker threads with one barrier,
// per-bin solve via internal/paxos, and a batch-of-32 pipelined decode.
// Grounded on the reference implementation's implParSolve/implParDecode
// in OKVSImpl.h.
package okvs

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/optable/okvspsi/internal/aeshash"
	"github.com/optable/okvspsi/internal/gf128"
	"github.com/optable/okvspsi/internal/paxos"
	"github.com/optable/okvspsi/internal/prng"
)

// Config fixes an OKVS instance's shape for its lifetime.
type Config struct {
	Bins    int
	Threads int
	Param   paxos.Param
	W       int
	Field   aeshash.Field
	Seed    [32]byte
	Debug   bool
}

// OKVS is a binned, parallel OKVS encoder/decoder built from a single
// shared Hasher and one Paxos-param configuration applied uniformly to
// every bin.
type OKVS struct {
	cfg    Config
	hasher *aeshash.Hasher
}

// New builds an OKVS instance. The Hasher is keyed once with cfg.Seed and
// shared read-only across every worker thread (spec.md 4.1's AES
// instance has no mutable state, so concurrent Encrypt calls are safe).
func New(cfg Config) (*OKVS, error) {
	if cfg.Bins <= 0 {
		return nil, paxos.ErrMalformedBins
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	cfg.Threads = threads

	h, err := aeshash.New(cfg.Seed, cfg.Bins, cfg.W, cfg.Param.MS, cfg.Param.D, cfg.Field)
	if err != nil {
		return nil, err
	}
	return &OKVS{cfg: cfg, hasher: h}, nil
}

type entry struct {
	h   gf128.Block
	v   gf128.Block
	idx int
}

// binSizeBound returns a Chernoff-style upper bound on the number of
// items an average-loaded bin can receive without the probability of
// overflow exceeding 2^-ssp, for nPerThread balls thrown into bins
// uniformly at random: mean + (8 + ssp/4)*sqrt(mean + ssp), plus one,
// with mean floored at 1, matching the shape of the reference's balls-in-
// bins tail bound (spec.md 4.4, "Bin-size overflow").
func binSizeBound(bins, nPerThread, ssp int) int {
	if bins == 0 {
		return nPerThread
	}
	mean := float64(nPerThread) / float64(bins)
	if mean < 1 {
		mean = 1
	}
	margin := 8.0 + float64(ssp)/4.0
	bound := mean + margin*sqrtApprox(mean+float64(ssp))
	return int(bound) + 1
}

// sqrtApprox avoids importing math solely for one call site's sqrt; kept
// as a tiny Newton iteration since the input range here is small and
// bounded (balls-in-bins parameters), not a hot path.
func sqrtApprox(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 20; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// Encode runs C4: phase 1 hash & partition, one barrier, phase 2 per-bin
// Paxos solve. keys and values must have equal length; P must have
// length cfg.Bins * cfg.Param.M.
func (o *OKVS) Encode(ctx context.Context, keys, values []gf128.Block, P []gf128.Block) error {
	n := len(keys)
	if n != len(values) {
		return paxos.ErrMalformedLength
	}
	if len(P) != o.cfg.Bins*o.cfg.Param.M {
		return paxos.ErrMalformedLength
	}

	T := o.cfg.Threads
	bound := binSizeBound(o.cfg.Bins, ceilDiv(n, T), o.cfg.Param.SSP)

	threadBins := make([][][]entry, T)
	for t := range threadBins {
		threadBins[t] = make([][]entry, o.cfg.Bins)
	}

	g, gctx := errgroup.WithContext(ctx)
	for t := 0; t < T; t++ {
		t := t
		lo, hi := sliceBounds(n, T, t)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				h := o.hasher.HashBlock(keys[i])
				bin := o.hasher.BinIdx(h)
				tb := &threadBins[t][bin]
				*tb = append(*tb, entry{h: h, v: values[i], idx: i})
				if len(*tb) > bound {
					return paxos.ErrBinOverflow
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Barrier: phase 1 writes (disjoint per-thread slices) are now
	// visible to every goroutine launched below, per spec.md 5's
	// happens-before guarantee across the single barrier.

	g2, gctx2 := errgroup.WithContext(ctx)
	for t := 0; t < T; t++ {
		t := t
		g2.Go(func() error {
			px := paxos.New(o.cfg.Param, o.hasher, o.cfg.Debug)
			for bin := t; bin < o.cfg.Bins; bin += T {
				select {
				case <-gctx2.Done():
					return gctx2.Err()
				default:
				}
				var hashes, vals []gf128.Block
				for th := 0; th < T; th++ {
					for _, e := range threadBins[th][bin] {
						hashes = append(hashes, e.h)
						vals = append(vals, e.v)
					}
				}
				// Keyed by bin index, not thread index: which thread owns
				// a bin depends on the configured thread count, so keying
				// on t would make a bin's randomization depend on nt,
				// breaking determinism across thread counts (spec.md 8's
				// parallel determinism property).
				rng := prng.ForThread(o.cfg.Seed, bin)
				binP, err := px.Encode(hashes, vals, rng)
				if err != nil {
					return err
				}
				copy(P[bin*o.cfg.Param.M:(bin+1)*o.cfg.Param.M], binP)
			}
			return nil
		})
	}
	return g2.Wait()
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}

func sliceBounds(n, T, t int) (lo, hi int) {
	lo = t * n / T
	hi = (t + 1) * n / T
	return lo, hi
}
