// Package paxos implements PaxosParam (C2) and the per-bin Paxos
// encoder/decoder (C3): the sparse-peeling, dense Gaussian-elimination
// core the binned OKVS is built from, grounded on the reference
// implementation's Paxos<IdxType> in OKVSImpl.h.
package paxos

import "errors"

// Kind classifies a paxos failure per spec.md 7.
type Kind int

const (
	// KindEncodeRetry: the dense block was singular for this seed; the
	// caller should reseed and retry.
	KindEncodeRetry Kind = iota
	// KindBinOverflow: a bin exceeded its size bound.
	KindBinOverflow
	// KindMalformedInput: caller-supplied parameters or data violate an
	// invariant (duplicate items in debug mode, w < 2, ssp == 0, ...).
	KindMalformedInput
)

// Error wraps a Kind with a message, matching the plain
// errors.New/fmt.Errorf style used throughout the teacher's codebase
// (no custom error framework appears anywhere in the retrieved corpus).
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(k Kind, msg string) error { return &Error{Kind: k, msg: msg} }

// ErrEncodeRetry is the sentinel checked with errors.Is by callers that
// want to reseed and retry (spec.md 4.3, "Failure semantics").
var ErrEncodeRetry = newError(KindEncodeRetry, "paxos: dense block singular, retry with a new seed")

// ErrBinOverflow fires when a bin exceeds its precomputed size bound
// during the OKVS encoder's phase 1 partition (spec.md 4.4).
var ErrBinOverflow = newError(KindBinOverflow, "paxos: bin exceeded size bound")

// ErrMalformedBins and ErrMalformedLength are MalformedInput failures
// raised by the OKVS encoder/decoder's argument validation, not by
// Paxos itself, but kept alongside the other sentinels since they share
// the same Kind taxonomy (spec.md 7).
var ErrMalformedBins = newError(KindMalformedInput, "okvs: bin count must be > 0")
var ErrMalformedLength = newError(KindMalformedInput, "okvs: mismatched slice lengths")

// Is implements errors.Is comparisons against the Kind-tagged sentinels
// below; two *Error values compare equal by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsEncodeRetry reports whether err is (or wraps) an EncodeRetry failure.
func IsEncodeRetry(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindEncodeRetry
}

// IsBinOverflow reports whether err is (or wraps) a BinOverflow failure.
func IsBinOverflow(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindBinOverflow
}

// IsMalformedInput reports whether err is (or wraps) a MalformedInput
// failure.
func IsMalformedInput(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindMalformedInput
}
