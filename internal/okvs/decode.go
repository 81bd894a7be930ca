package okvs

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/optable/okvspsi/internal/gf128"
	"github.com/optable/okvspsi/internal/paxos"
)

// Decode runs C5: each query is routed to its bin and resolved against
// the peer-supplied P. addToDecode selects accumulate (XOR into out) vs
// assign (overwrite out), spec.md 4.5's "Accumulate-vs-assign mode" used
// by a malicious-security consistency check that chains two decodes.
// Queries are partitioned across cfg.Threads workers, each owning a
// disjoint slice of out; P is read-only and shared.
func (o *OKVS) Decode(ctx context.Context, queries []gf128.Block, P []gf128.Block, out []gf128.Block, addToDecode bool) error {
	if len(queries) != len(out) {
		return paxos.ErrMalformedLength
	}
	if len(P) != o.cfg.Bins*o.cfg.Param.M {
		return paxos.ErrMalformedLength
	}

	T := o.cfg.Threads
	px := paxos.New(o.cfg.Param, o.hasher, o.cfg.Debug)

	g, gctx := errgroup.WithContext(ctx)
	for t := 0; t < T; t++ {
		lo, hi := sliceBounds(len(queries), T, t)
		g.Go(func() error {
			o.decodeBatched(gctx, px, queries[lo:hi], P, out[lo:hi], addToDecode)
			return nil
		})
	}
	return g.Wait()
}

// decodeBatched resolves queries in groups of 32, the unit spec.md 4.5
// calls out as the pipelined batch granularity: compute all 32 bin
// routings together (keeping the fast-modulo batch path warm) before
// resolving each query's row/dense contribution individually.
func (o *OKVS) decodeBatched(ctx context.Context, px *paxos.Paxos, queries []gf128.Block, P []gf128.Block, out []gf128.Block, addToDecode bool) {
	const batch = 32
	for start := 0; start < len(queries); start += batch {
		select {
		case <-ctx.Done():
			return
		default:
		}
		end := start + batch
		if end > len(queries) {
			end = len(queries)
		}
		var hs [batch]gf128.Block
		for i := start; i < end; i++ {
			hs[i-start] = o.hasher.HashBlock(queries[i])
		}
		bins := o.hasher.BinIdxBatch32(&hs)
		for i := start; i < end; i++ {
			bin := bins[i-start]
			binP := P[int(bin)*o.cfg.Param.M : (int(bin)+1)*o.cfg.Param.M]
			v := px.Decode(hs[i-start], binP)
			if addToDecode {
				out[i] = out[i].Xor(v)
			} else {
				out[i] = v
			}
		}
	}
}
