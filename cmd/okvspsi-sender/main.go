package main

import (
	"context"
	"encoding/hex"
	"flag"
	"log"
	"net"
	"os"

	"github.com/go-logr/logr"

	"github.com/optable/okvspsi/internal/gf128"
	"github.com/optable/okvspsi/internal/idhash"
	"github.com/optable/okvspsi/internal/oprf"
	"github.com/optable/okvspsi/internal/util"
	stdlog "github.com/optable/okvspsi/pkg/log"
	"github.com/optable/okvspsi/pkg/okvspsi"
)

const (
	defaultAddress = "127.0.0.1:6667"
)

func usage() {
	log.Printf("Usage: okvspsi-sender [-nns L] [-in file] [-a address] [-nt N] [-m] [-v level]\n")
	flag.PrintDefaults()
}

func showUsageAndExit(exitcode int) {
	usage()
	os.Exit(exitcode)
}

func exitOnErr(logger logr.Logger, err error, msg string) {
	if err != nil {
		logger.Error(err, msg)
		os.Exit(1)
	}
}

func main() {
	var nns = flag.Int("nns", 20, "log2 of the sender set size, used to generate a synthetic benchmark set when -in is omitted")
	var nnr = flag.Int("nnr", 20, "log2 of the receiver set size; sets how many blinded elements are answered and, with the sender set size, maskSize")
	var addr = flag.String("a", defaultAddress, "the receiver address")
	var file = flag.String("in", "", "a list of newline-terminated identifiers (hex-encoded 32-char Blocks, or arbitrary strings hashed to a Block)")
	var threads = flag.Int("nt", 0, "number of threads; the sender runs single-threaded and does not use this value")
	var malicious = flag.Bool("m", false, "malicious security mask size (forces maskSize=16)")
	var ristrettoBackend = flag.String("rg", "r255", "OPRF group backend: r255 (gtank/ristretto255) or gr (bwesterb/go-ristretto)")
	var verbose = flag.Int("v", 0, "verbosity level: 0 info, 1 debug, 2 trace")
	var fakeBaseOTs = flag.Bool("f", false, "accepted for CLI compatibility with the reference tool; the DH-OPRF collaborator has no base-OT step, so this is a no-op")
	var reducedRounds = flag.Bool("reducedRounds", false, "accepted for CLI compatibility; no-op, the DH-OPRF collaborator has no round-reduction notion")
	var showHelp = flag.Bool("h", false, "show help message")

	_ = fakeBaseOTs
	_ = reducedRounds

	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	if *showHelp {
		showUsageAndExit(0)
	}

	slog := stdlog.GetLogger(*verbose)

	ids, nReceiver := loadOrGenerateSenderSet(slog, *file, *nns, *nnr)

	group, err := groupFor(*ristrettoBackend)
	exitOnErr(slog, err, "failed to select OPRF group backend")

	c, err := net.Dial("tcp", *addr)
	exitOnErr(slog, err, "failed to dial receiver")
	defer c.Close()
	if v, ok := c.(*net.TCPConn); ok {
		v.SetNoDelay(false)
	}

	opts := okvspsi.Options{SSP: 40, Malicious: *malicious, Threads: *threads}
	sender := okvspsi.NewSender(group, opts)

	ctx := logr.NewContext(context.Background(), slog)
	err = sender.Run(ctx, ids, nReceiver, c)
	exitOnErr(slog, err, "failed to perform PSI")
	slog.Info("sender finished", "sent", len(ids))
}

// loadOrGenerateSenderSet reads -in when given, hashing each line to a
// Block, otherwise synthesizes a deterministic benchmark set of size
// 2^nns (SPEC_FULL.md 6.1). Returns the sender's inputs and the agreed
// receiver set size 2^nnr in both cases; that size sets how many blinded
// elements the sender answers and, with the sender set size, maskSize.
func loadOrGenerateSenderSet(logger logr.Logger, file string, nns, nnr int) ([]gf128.Block, int) {
	if file == "" {
		n := 1 << uint(nns)
		nr := 1 << uint(nnr)
		ids := make([]gf128.Block, n)
		for i := range ids {
			ids[i] = gf128.Block{Lo: uint64(i)*2654435761 + 1, Hi: uint64(i)}
		}
		logger.Info("generated random benchmark set", "size", n)
		return ids, nr
	}

	f, err := os.Open(file)
	exitOnErr(logger, err, "failed to open file")
	defer f.Close()

	n, err := util.Count(f)
	exitOnErr(logger, err, "failed to count lines")
	f.Seek(0, 0)

	ids := make([]gf128.Block, 0, n)
	for raw := range util.Exhaust(n, f) {
		ids = append(ids, blockFromLine(raw))
	}
	return ids, 1 << uint(nnr)
}

// blockFromLine decodes a 32-hex-char line directly to a Block, or hashes
// arbitrary identifier bytes via internal/idhash otherwise, matching
// SPEC_FULL.md 6.1's "-in" description.
func blockFromLine(line []byte) gf128.Block {
	if len(line) == 32 {
		if raw, err := hex.DecodeString(string(line)); err == nil {
			return gf128.FromBytes(raw)
		}
	}
	return idhash.Digest(line)
}

func groupFor(name string) (oprf.Group, error) {
	switch name {
	case "r255":
		return oprf.NewR255Group(), nil
	case "gr":
		return oprf.NewGRGroup(), nil
	default:
		return nil, okvspsi.ErrProtocolAbort
	}
}
