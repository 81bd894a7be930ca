package okvspsi

import (
	"crypto/rand"

	"github.com/optable/okvspsi/internal/hash"
)

// openAddrTable is the receiver's set-membership map, named in spec.md 1
// as an external collaborator ("a straightforward open-addressing table
// keyed on a truncated mask") but implemented here directly since the
// driver cannot function without it. Linear probing, power-of-two sized
// — deliberately simple, no Robin Hood, no tombstone compaction, since
// spec.md scopes this component out of the performance-critical core.
// Probe keys are folded to a uint64 with the teacher's own
// internal/hash Hasher (murmur3, keyed with a per-table random salt) so
// a peer cannot predict probe placement from the mask alone.
type openAddrTable struct {
	hasher   hash.Hasher
	keys     []uint64
	occupied []bool
	idx      []int // receiver input index owning this slot, parallel to keys
	mask     uint64
}

// newOpenAddrTable sizes the table to the next power of two at least
// twice n, keeping the load factor under 50% so probe chains stay short.
func newOpenAddrTable(n int) *openAddrTable {
	size := 16
	for size < n*2 {
		size *= 2
	}
	var salt [hash.SaltLength]byte
	if _, err := rand.Read(salt[:]); err != nil {
		panic("okvspsi: system entropy source failed: " + err.Error())
	}
	h, err := hash.NewMurmur3Hasher(salt[:])
	if err != nil {
		panic(err)
	}
	return &openAddrTable{
		hasher:   h,
		keys:     make([]uint64, size),
		occupied: make([]bool, size),
		idx:      make([]int, size),
		mask:     uint64(size - 1),
	}
}

// insert adds mask -> idx, linear-probing past occupied slots.
func (t *openAddrTable) insert(mask []byte, idx int) {
	k := t.hasher.Hash64(mask)
	slot := k & t.mask
	for t.occupied[slot] {
		slot = (slot + 1) & t.mask
	}
	t.keys[slot] = k
	t.occupied[slot] = true
	t.idx[slot] = idx
}

// lookup returns the receiver index stored under mask and true if
// present, scanning the probe chain starting at mask's home slot.
func (t *openAddrTable) lookup(mask []byte) (int, bool) {
	k := t.hasher.Hash64(mask)
	slot := k & t.mask
	for t.occupied[slot] {
		if t.keys[slot] == k {
			return t.idx[slot], true
		}
		slot = (slot + 1) & t.mask
	}
	return 0, false
}
