package okvspsi

import "math/bits"

// maskSize computes ceil((ssp + log2(nSender*nReceiver)) / 8), capped at
// 16 bytes, forced to 16 when malicious, per spec.md 6's Open-Question
// resolution recorded in SPEC_FULL.md 9 ("spec.md adopts |S|*|R|, the
// general form"). Both parties compute this independently; it is never
// sent on the wire.
func maskSize(ssp, nSender, nReceiver int, malicious bool) int {
	if malicious {
		return 16
	}
	hi, lo := bits.Mul64(uint64(nSender), uint64(nReceiver))
	logProduct := log2Ceil(lo)
	if hi != 0 {
		// ceil(log2(hi*2^64 + lo)) for a product wider than 64 bits.
		if lo == 0 {
			logProduct = 64 + log2Ceil(hi)
		} else {
			logProduct = 64 + bits.Len64(hi)
		}
	}
	bitsNeeded := ssp + logProduct
	size := (bitsNeeded + 7) / 8
	if size > 16 {
		size = 16
	}
	if size < 1 {
		size = 1
	}
	return size
}

// log2Ceil returns ceil(log2(n)) for n >= 1, 0 for n == 0.
func log2Ceil(n uint64) int {
	if n <= 1 {
		return 0
	}
	return bits.Len64(n - 1)
}

// truncate writes the low size bytes of b's little-endian encoding into
// dst, the wire representation spec.md 6 specifies ("the low-maskSize
// bytes of y_i").
func truncate(b [16]byte, size int, dst []byte) {
	copy(dst, b[:size])
}
