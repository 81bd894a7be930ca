package paxos

import (
	"testing"

	"github.com/optable/okvspsi/internal/aeshash"
	"github.com/optable/okvspsi/internal/gf128"
	"github.com/optable/okvspsi/internal/prng"
)

func mkHasher(t *testing.T, seedByte byte, ms, d int, w int, field aeshash.Field) *aeshash.Hasher {
	var seed [32]byte
	for i := range seed {
		seed[i] = seedByte
	}
	h, err := aeshash.New(seed, 1, w, ms, d, field)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func distinctHashes(n int) []gf128.Block {
	out := make([]gf128.Block, n)
	for i := range out {
		out[i] = gf128.Block{Lo: uint64(i)*2 + 1, Hi: uint64(i) * 104729}
	}
	return out
}

func randomValues(n int) []gf128.Block {
	out := make([]gf128.Block, n)
	for i := range out {
		out[i] = gf128.Block{Lo: uint64(i) * 6364136223846793005, Hi: uint64(i) * 1442695040888963407}
	}
	return out
}

func TestDecodeAfterEncodeBinary(t *testing.T) {
	for _, n := range []int{1, 2, 10, 100, 1000} {
		for _, w := range []int{2, 3} {
			param, err := NewParam(n, w, 40, aeshash.Binary)
			if err != nil {
				t.Fatal(err)
			}
			h := mkHasher(t, byte(n+w), param.MS, param.D, w, aeshash.Binary)
			px := New(param, h, false)
			hashes := distinctHashes(n)
			values := randomValues(n)
			var seed [32]byte
			seed[0] = 9
			rng := prng.New(seed)

			P, err := px.Encode(hashes, values, rng)
			if err != nil {
				t.Fatalf("n=%d w=%d: encode error: %v", n, w, err)
			}
			for i := range hashes {
				got := px.Decode(hashes[i], P)
				if !got.Equal(values[i]) {
					t.Fatalf("n=%d w=%d item %d: decode = %v, want %v", n, w, i, got, values[i])
				}
			}
		}
	}
}

func TestDecodeAfterEncodeGF128(t *testing.T) {
	for _, n := range []int{1, 10, 200} {
		param, err := NewParam(n, 3, 40, aeshash.GF128)
		if err != nil {
			t.Fatal(err)
		}
		h := mkHasher(t, byte(n), param.MS, param.D, 3, aeshash.GF128)
		px := New(param, h, false)
		hashes := distinctHashes(n)
		values := randomValues(n)
		var seed [32]byte
		seed[1] = 3
		rng := prng.New(seed)

		P, err := px.Encode(hashes, values, rng)
		if err != nil {
			t.Fatalf("n=%d: encode error: %v", n, err)
		}
		for i := range hashes {
			got := px.Decode(hashes[i], P)
			if !got.Equal(values[i]) {
				t.Fatalf("n=%d item %d: decode = %v, want %v", n, i, got, values[i])
			}
		}
	}
}

func TestEmptyBinFullyRandom(t *testing.T) {
	param, err := NewParam(0, 3, 40, aeshash.Binary)
	if err != nil {
		t.Fatal(err)
	}
	h := mkHasher(t, 1, param.MS, param.D, 3, aeshash.Binary)
	px := New(param, h, false)
	var seed [32]byte
	rng := prng.New(seed)

	P, err := px.Encode(nil, nil, rng)
	if err != nil {
		t.Fatal(err)
	}
	if len(P) != param.M {
		t.Fatalf("len(P) = %d, want %d", len(P), param.M)
	}
	for i, v := range P {
		if v.IsZero() {
			t.Fatalf("column %d is zero, want a random fill", i)
		}
	}
}

func TestDuplicateInputRejectedInDebugMode(t *testing.T) {
	param, err := NewParam(4, 3, 40, aeshash.Binary)
	if err != nil {
		t.Fatal(err)
	}
	h := mkHasher(t, 2, param.MS, param.D, 3, aeshash.Binary)
	px := New(param, h, true)

	dup := gf128.Block{Lo: 7, Hi: 7}
	hashes := []gf128.Block{dup, dup}
	values := randomValues(2)
	var seed [32]byte
	rng := prng.New(seed)

	_, err = px.Encode(hashes, values, rng)
	if !IsMalformedInput(err) {
		t.Fatalf("expected MalformedInput, got %v", err)
	}
}

func TestEncodeDeterministicForFixedSeed(t *testing.T) {
	param, err := NewParam(50, 3, 40, aeshash.Binary)
	if err != nil {
		t.Fatal(err)
	}
	h := mkHasher(t, 3, param.MS, param.D, 3, aeshash.Binary)
	px := New(param, h, false)
	hashes := distinctHashes(50)
	values := randomValues(50)

	var seed [32]byte
	seed[5] = 42
	P1, err := px.Encode(hashes, values, prng.New(seed))
	if err != nil {
		t.Fatal(err)
	}
	P2, err := px.Encode(hashes, values, prng.New(seed))
	if err != nil {
		t.Fatal(err)
	}
	for i := range P1 {
		if !P1[i].Equal(P2[i]) {
			t.Fatalf("P not deterministic at column %d: %v != %v", i, P1[i], P2[i])
		}
	}
}
