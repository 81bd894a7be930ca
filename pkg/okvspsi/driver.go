// Package okvspsi implements the PSI driver (C6): a thin wrapper that
// sequences the OPRF collaborator (internal/oprf) and a local
// open-addressing table into the full Private Set Intersection protocol
// spec.md 4.6 describes. Mirrors the teacher's pkg/kkrtpsi/sender.go
// staging (one util.Sel-wrapped stage per protocol step) and buffered
// writer convention.
package okvspsi

import (
	"bufio"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/optable/okvspsi/internal/gf128"
	"github.com/optable/okvspsi/internal/oprf"
	"github.com/optable/okvspsi/internal/util"
)

// Options fixes protocol parameters both parties must agree on
// out-of-band, matching the original CLI's -nns/-nnr/-m flags
// (SPEC_FULL.md 6.1): set sizes are known to both sides in advance, the
// same way the reference implementation's benchmark harness configures
// them before the run.
type Options struct {
	SSP       int
	Malicious bool
	Threads   int
}

// DefaultOptions matches the reference's default statistical security
// parameter (spec.md 6's E6 example uses ssp=40).
func DefaultOptions() Options {
	return Options{SSP: 40}
}

// Sender runs the sender side of C6 over a full-duplex connection: it
// answers the receiver's OPRF blind requests, then evaluates F_k on its
// own inputs and ships the truncated mask buffer in one message.
type Sender struct {
	group oprf.Group
	opts  Options
}

// NewSender constructs a Sender bound to the given OPRF group backend
// and protocol options.
func NewSender(group oprf.Group, opts Options) *Sender {
	return &Sender{group: group, opts: opts}
}

// Run executes the sender protocol: OPRF setup, respond to the
// receiver's blinded inputs, evaluate and send the sender's own mask
// buffer. ids is the sender's input set S; nReceiver is the agreed |R|.
func (s *Sender) Run(ctx context.Context, ids []gf128.Block, nReceiver int, rw io.ReadWriter) error {
	sender := oprf.NewSender(s.group)

	if err := util.Sel(ctx, func() error { return sender.Setup(ctx) }); err != nil {
		return err
	}

	if err := util.Sel(ctx, func() error {
		return s.respondToBlinds(sender, nReceiver, rw)
	}); err != nil {
		return err
	}

	return util.Sel(ctx, func() error {
		return s.sendMasks(sender, ids, nReceiver, rw)
	})
}

// respondToBlinds reads nReceiver blinded group elements from rw and
// writes back k*each, the sender's half of the receiver's OPRF queries.
func (s *Sender) respondToBlinds(sender *oprf.Sender, nReceiver int, rw io.ReadWriter) error {
	elemSize := s.group.ElementSize()
	buf := make([]byte, elemSize)
	w := bufio.NewWriterSize(rw, 64*1024)
	for i := 0; i < nReceiver; i++ {
		if _, err := io.ReadFull(rw, buf); err != nil {
			return wrapTransport("read blinded element", err)
		}
		resp := sender.RespondToBlind(buf)
		if _, err := w.Write(resp); err != nil {
			return wrapTransport("write oprf response", err)
		}
	}
	return wrapTransport("flush oprf responses", w.Flush())
}

// sendMasks evaluates F_k on every sender input, truncates each to
// maskSize bytes, and writes the resulting buffer as one message, per
// spec.md 6's wire format.
func (s *Sender) sendMasks(sender *oprf.Sender, ids []gf128.Block, nReceiver int, rw io.Writer) error {
	size := maskSize(s.opts.SSP, len(ids), nReceiver, s.opts.Malicious)
	outputs := sender.EvalAll(ids)

	w := bufio.NewWriterSize(rw, 64*1024)
	rec := make([]byte, size)
	for _, y := range outputs {
		b := y.Bytes()
		truncate(b, size, rec)
		if _, err := w.Write(rec); err != nil {
			return wrapTransport("write mask", err)
		}
	}
	return wrapTransport("flush mask buffer", w.Flush())
}

// Receiver runs the receiver side of C6: blind every input and send the
// blinds to the sender, unblind the responses into OPRF outputs, build
// the local open-addressing table, then probe it against the sender's
// mask stream to recover the intersection.
type Receiver struct {
	group oprf.Group
	opts  Options
}

// NewReceiver constructs a Receiver bound to the given OPRF group
// backend and protocol options.
func NewReceiver(group oprf.Group, opts Options) *Receiver {
	return &Receiver{group: group, opts: opts}
}

// Run executes the receiver protocol and returns the indices into ids
// that are present in the sender's set, per spec.md 4.6's "intersection
// index list". nSender is the agreed |S|.
func (r *Receiver) Run(ctx context.Context, ids []gf128.Block, nSender int, rw io.ReadWriter) ([]int, error) {
	receiver := oprf.NewReceiver(r.group)

	outputs := make([]gf128.Block, len(ids))
	if err := util.Sel(ctx, func() error {
		return r.exchangeBlinds(receiver, ids, rw, outputs)
	}); err != nil {
		return nil, err
	}

	size := maskSize(r.opts.SSP, nSender, len(ids), r.opts.Malicious)
	table := r.buildTable(outputs, size)

	var result []int
	if err := util.Sel(ctx, func() error {
		var err error
		result, err = r.consumeMasks(table, nSender, size, rw)
		return err
	}); err != nil {
		return nil, err
	}
	// consumeMasks appends matches in sender-record order (and, when
	// threaded, across unordered per-stripe batches), so sort back into
	// receiver index order per spec.md's "sorted intersection indices".
	sort.Ints(result)
	return result, nil
}

// exchangeBlinds blinds every input, sends the blinded elements to the
// sender in order, reads back the corresponding responses, and unblinds
// each into outputs[i] = F_k(ids[i]).
func (r *Receiver) exchangeBlinds(receiver *oprf.Receiver, ids []gf128.Block, rw io.ReadWriter, outputs []gf128.Block) error {
	elemSize := r.group.ElementSize()
	blinds := make([][]byte, len(ids))

	w := bufio.NewWriterSize(rw, 64*1024)
	for i, id := range ids {
		blinded, blind := receiver.Blind(id)
		blinds[i] = blind
		if _, err := w.Write(blinded); err != nil {
			return wrapTransport("write blinded element", err)
		}
	}
	if err := w.Flush(); err != nil {
		return wrapTransport("flush blinded elements", err)
	}

	respBuf := make([]byte, elemSize)
	for i := range ids {
		if _, err := io.ReadFull(rw, respBuf); err != nil {
			return wrapTransport("read oprf response", err)
		}
		outputs[i] = receiver.Unblind(respBuf, blinds[i])
	}
	return nil
}

// buildTable inserts truncate(outputs[j], size) -> j for every
// receiver input, per spec.md 4.6 step (ii).
func (r *Receiver) buildTable(outputs []gf128.Block, size int) *openAddrTable {
	table := newOpenAddrTable(len(outputs))
	buf := make([]byte, size)
	for j, y := range outputs {
		b := y.Bytes()
		truncate(b, size, buf)
		table.insert(buf, j)
	}
	return table
}

// consumeMasks reads nSender fixed-size mask records off rw and, for
// each, probes table and records a match. A stream that ends before
// nSender records arrive yields ErrShortMaskRead. The records are read
// fully into memory first; when r.opts.Threads > 1 they are split into
// contiguous ranges, one per worker, every worker probes the same shared
// table, and the per-worker matches are merged under one mutex. Neither
// the table nor the records are partitioned by hash.
func (r *Receiver) consumeMasks(table *openAddrTable, nSender, size int, rw io.Reader) ([]int, error) {
	all := make([]byte, size*nSender)
	if _, err := io.ReadFull(rw, all); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrShortMaskRead
		}
		return nil, wrapTransport("read mask buffer", err)
	}

	threads := r.opts.Threads
	if threads <= 1 {
		var result []int
		for i := 0; i < nSender; i++ {
			if j, ok := table.lookup(all[i*size : (i+1)*size]); ok {
				result = append(result, j)
			}
		}
		return result, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	result := make([]int, 0, nSender)
	perThread := (nSender + threads - 1) / threads
	for t := 0; t < threads; t++ {
		lo := t * perThread
		hi := lo + perThread
		if hi > nSender {
			hi = nSender
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			var local []int
			for i := lo; i < hi; i++ {
				if j, ok := table.lookup(all[i*size : (i+1)*size]); ok {
					local = append(local, j)
				}
			}
			mu.Lock()
			result = append(result, local...)
			mu.Unlock()
		}(lo, hi)
	}
	wg.Wait()
	return result, nil
}
