package divide

import (
	"math/rand"
	"testing"
)

func TestDivMatchesHardwareDivision(t *testing.T) {
	divisors := []uint32{1, 2, 3, 5, 7, 16, 100, 1000, 65537, 4294967295, 4294967040}
	r := rand.New(rand.NewSource(1))
	for _, d := range divisors {
		bc := NewByConst(d)
		for i := 0; i < 2000; i++ {
			n := r.Uint32()
			if got, want := bc.Div(n), n/d; got != want {
				t.Fatalf("Div(%d)/%d = %d, want %d", n, d, got, want)
			}
			if got, want := bc.Mod(n), n%d; got != want {
				t.Fatalf("Mod(%d)/%d = %d, want %d", n, d, got, want)
			}
		}
	}
}

func TestBatch32MatchesScalar(t *testing.T) {
	bc := NewByConst(97)
	var src, dst [32]uint32
	r := rand.New(rand.NewSource(2))
	for i := range src {
		src[i] = r.Uint32()
	}
	bc.Batch32(&dst, &src)
	for i := range src {
		if want := bc.Mod(src[i]); dst[i] != want {
			t.Fatalf("Batch32[%d] = %d, want %d", i, dst[i], want)
		}
	}
}

func TestNewByConstPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on zero divisor")
		}
	}()
	NewByConst(0)
}
