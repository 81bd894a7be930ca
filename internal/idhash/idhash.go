// Package idhash turns arbitrary-length CLI input identifiers into the
// fixed 128-bit gf128.Block the OKVS/OPRF pipeline operates on, the same
// role internal/hash plays for the teacher's cuckoo-bucket index
// computation, generalized here to produce a full Block instead of a
// single uint64 bucket index.
package idhash

import (
	"github.com/optable/okvspsi/internal/gf128"
	"github.com/zeebo/blake3"
)

// Digest maps an arbitrary-length identifier to a Block by taking the
// first 16 bytes of its blake3-256 digest. Collisions among distinct
// identifiers are negligible at 128 bits and are exactly the birthday
// bound the rest of the pipeline already assumes for Block equality
// (spec.md 3, "Block: 128 bit opaque value").
func Digest(identifier []byte) gf128.Block {
	sum := blake3.Sum256(identifier)
	return gf128.FromBytes(sum[:16])
}

// DigestAll maps a slice of identifiers to their Blocks.
func DigestAll(identifiers [][]byte) []gf128.Block {
	out := make([]gf128.Block, len(identifiers))
	for i, id := range identifiers {
		out[i] = Digest(id)
	}
	return out
}
