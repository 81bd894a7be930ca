package okvspsi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/optable/okvspsi/internal/gf128"
)

// testGroup is a toy modular-arithmetic Group, exercising Sender/Receiver
// protocol logic end to end without depending on the real ristretto255
// elliptic-curve backends being wired correctly; see internal/oprf's
// own mockGroup for the same rationale.
type testGroup struct{}

const testPrime = 2147483647 // 2^31 - 1

func teBE(v uint32) []byte { return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)} }
func teFromBE(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func (testGroup) ElementSize() int { return 4 }

func (testGroup) HashToGroup(input []byte) []byte {
	var h uint32 = 2166136261
	for _, b := range input {
		h ^= uint32(b)
		h *= 16777619
	}
	return teBE(1 + h%(testPrime-1))
}

var scalarCounter uint32 = 777

func (testGroup) RandomScalar() []byte {
	scalarCounter = scalarCounter*1103515245 + 12345
	return teBE(1 + scalarCounter%(testPrime-1))
}

func (testGroup) ScalarMult(scalar, point []byte) []byte {
	s := uint64(teFromBE(scalar))
	p := uint64(teFromBE(point))
	return teBE(uint32((s * p) % testPrime))
}

func (testGroup) Invert(scalar []byte) []byte {
	s := uint64(teFromBE(scalar)) % testPrime
	result := uint64(1)
	exp := uint64(testPrime - 2)
	for exp > 0 {
		if exp&1 == 1 {
			result = (result * s) % testPrime
		}
		s = (s * s) % testPrime
		exp >>= 1
	}
	return teBE(uint32(result))
}

func runProtocol(t *testing.T, senderIDs, receiverIDs []gf128.Block, opts Options) []int {
	t.Helper()
	senderConn, receiverConn := net.Pipe()
	defer senderConn.Close()
	defer receiverConn.Close()

	sender := NewSender(testGroup{}, opts)
	receiver := NewReceiver(testGroup{}, opts)

	senderErr := make(chan error, 1)
	go func() {
		senderErr <- sender.Run(context.Background(), senderIDs, len(receiverIDs), senderConn)
	}()

	type recvResult struct {
		idx []int
		err error
	}
	recvCh := make(chan recvResult, 1)
	go func() {
		idx, err := receiver.Run(context.Background(), receiverIDs, len(senderIDs), receiverConn)
		recvCh <- recvResult{idx, err}
	}()

	select {
	case err := <-senderErr:
		if err != nil {
			t.Fatalf("sender: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("sender timed out")
	}

	select {
	case r := <-recvCh:
		if r.err != nil {
			t.Fatalf("receiver: %v", r.err)
		}
		return r.idx
	case <-time.After(10 * time.Second):
		t.Fatal("receiver timed out")
	}
	return nil
}

func TestIntersectionFindsPlantedOverlap(t *testing.T) {
	receiverIDs := make([]gf128.Block, 50)
	for i := range receiverIDs {
		receiverIDs[i] = gf128.Block{Lo: uint64(i)*97 + 3, Hi: uint64(i)}
	}
	// sender set: every even-indexed receiver id, plus 20 disjoint ids.
	var senderIDs []gf128.Block
	planted := map[int]bool{}
	for i := 0; i < len(receiverIDs); i += 2 {
		senderIDs = append(senderIDs, receiverIDs[i])
		planted[i] = true
	}
	for i := 0; i < 20; i++ {
		senderIDs = append(senderIDs, gf128.Block{Lo: uint64(i)*1_000_003 + 5, Hi: 777})
	}

	idx := runProtocol(t, senderIDs, receiverIDs, DefaultOptions())
	found := map[int]bool{}
	for _, j := range idx {
		found[j] = true
	}
	if len(found) != len(planted) {
		t.Fatalf("found %d matches, want %d", len(found), len(planted))
	}
	for j := range planted {
		if !found[j] {
			t.Fatalf("planted match at receiver index %d not found", j)
		}
	}
}

func TestIntersectionEmptyOnDisjointSets(t *testing.T) {
	// E7 PSI privacy smoke test (spec.md 8, property 7): when S and R are
	// disjoint, the intersection is empty (subject to the mask's false
	// positive rate, negligible at the sizes used here).
	receiverIDs := make([]gf128.Block, 200)
	for i := range receiverIDs {
		receiverIDs[i] = gf128.Block{Lo: uint64(i)*104729 + 1, Hi: uint64(i)}
	}
	senderIDs := make([]gf128.Block, 200)
	for i := range senderIDs {
		senderIDs[i] = gf128.Block{Lo: uint64(i)*104729 + 1<<40, Hi: uint64(i) + 1<<40}
	}

	idx := runProtocol(t, senderIDs, receiverIDs, DefaultOptions())
	if len(idx) != 0 {
		t.Fatalf("expected empty intersection on disjoint sets, got %d matches", len(idx))
	}
}

func TestThreadedReceiverMatchesSingleThreaded(t *testing.T) {
	receiverIDs := make([]gf128.Block, 64)
	for i := range receiverIDs {
		receiverIDs[i] = gf128.Block{Lo: uint64(i)*13 + 1, Hi: uint64(i)}
	}
	var senderIDs []gf128.Block
	for i := 0; i < len(receiverIDs); i += 3 {
		senderIDs = append(senderIDs, receiverIDs[i])
	}

	single := runProtocol(t, senderIDs, receiverIDs, DefaultOptions())
	threaded := runProtocol(t, senderIDs, receiverIDs, Options{SSP: 40, Threads: 4})

	if len(single) != len(threaded) {
		t.Fatalf("threaded result differs in size: single=%d threaded=%d", len(single), len(threaded))
	}
	seen := map[int]bool{}
	for _, j := range single {
		seen[j] = true
	}
	for _, j := range threaded {
		if !seen[j] {
			t.Fatalf("threaded result contains index %d not in single-threaded result", j)
		}
	}
}
