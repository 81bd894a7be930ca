package okvspsi

import "testing"

func TestOpenAddrTableInsertLookupRoundTrip(t *testing.T) {
	n := 500
	table := newOpenAddrTable(n)
	masks := make([][]byte, n)
	for i := 0; i < n; i++ {
		m := []byte{byte(i), byte(i >> 8), byte(i * 7), byte(i * 13), byte(i >> 3), byte(i >> 5), byte(i), byte(i >> 1)}
		masks[i] = m
		table.insert(m, i)
	}
	for i, m := range masks {
		j, ok := table.lookup(m)
		if !ok {
			t.Fatalf("mask %d not found", i)
		}
		if j != i {
			t.Fatalf("mask %d resolved to index %d", i, j)
		}
	}
}

func TestOpenAddrTableLookupMissOnAbsentKey(t *testing.T) {
	table := newOpenAddrTable(16)
	table.insert([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 0)
	if _, ok := table.lookup([]byte{9, 9, 9, 9, 9, 9, 9, 9}); ok {
		t.Fatal("expected lookup miss on a key never inserted")
	}
}

func TestTableHandlesShortMasks(t *testing.T) {
	table := newOpenAddrTable(16)
	a := table.hasher.Hash64([]byte{1, 2, 3})
	b := table.hasher.Hash64([]byte{1, 2, 3})
	if a != b {
		t.Fatal("hasher not deterministic for identical short masks")
	}
	c := table.hasher.Hash64([]byte{1, 2, 4})
	if a == c {
		t.Fatal("hasher collided on distinct short masks")
	}
}
