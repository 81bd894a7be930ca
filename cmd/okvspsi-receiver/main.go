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
	defaultPort           = ":6667"
	defaultCommonFileName = "common-ids.txt"
)

func usage() {
	log.Printf("Usage: okvspsi-receiver [-nnr L] [-in file] [-p port] [-out file] [-nt N] [-m] [-v level]\n")
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
	var nnr = flag.Int("nnr", 20, "log2 of the receiver set size, used to generate a synthetic benchmark set when -in is omitted")
	var nns = flag.Int("nns", 20, "log2 of the sender set size; sets how many sender masks are read and, with the receiver set size, maskSize")
	var port = flag.String("p", defaultPort, "the receiver port")
	var file = flag.String("in", "", "a list of newline-terminated identifiers (hex-encoded 32-char Blocks, or arbitrary strings hashed to a Block)")
	var out = flag.String("out", defaultCommonFileName, "file to write intersected identifiers to")
	var threads = flag.Int("nt", 0, "number of threads used to match sender masks, 0 or 1 runs single-threaded")
	var malicious = flag.Bool("m", false, "malicious security mask size (forces maskSize=16)")
	var role = flag.Int("r", 0, "accepted for CLI compatibility with the reference tool; this binary always runs the receiver role regardless of value")
	var ristrettoBackend = flag.String("rg", "r255", "OPRF group backend: r255 (gtank/ristretto255) or gr (bwesterb/go-ristretto)")
	var binSize = flag.Int("bs", 0, "accepted for CLI compatibility; no-op, the DH-OPRF-backed driver does not use a binned OKVS on the wire")
	var logBinSize = flag.Int("lbs", 0, "accepted for CLI compatibility; no-op, see -bs")
	var verbose = flag.Int("v", 0, "verbosity level: 0 info, 1 debug, 2 trace")
	var reducedRounds = flag.Bool("reducedRounds", false, "accepted for CLI compatibility; no-op, the DH-OPRF collaborator has no round-reduction notion")
	var showHelp = flag.Bool("h", false, "show help message")

	_ = role
	_ = binSize
	_ = logBinSize
	_ = reducedRounds

	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	if *showHelp {
		showUsageAndExit(0)
	}

	slog := stdlog.GetLogger(*verbose)

	ids, nSender := loadOrGenerateReceiverSet(slog, *file, *nnr, *nns)

	group, err := groupFor(*ristrettoBackend)
	exitOnErr(slog, err, "failed to select OPRF group backend")

	l, err := net.Listen("tcp", *port)
	exitOnErr(slog, err, "failed to listen on tcp port")
	slog.Info("receiver listening", "port", *port)

	c, err := l.Accept()
	exitOnErr(slog, err, "failed to accept incoming connection")
	defer c.Close()
	if v, ok := c.(*net.TCPConn); ok {
		v.SetNoDelay(false)
	}

	opts := okvspsi.Options{SSP: 40, Malicious: *malicious, Threads: *threads}
	receiver := okvspsi.NewReceiver(group, opts)

	ctx := logr.NewContext(context.Background(), slog)
	idx, err := receiver.Run(ctx, ids, nSender, c)
	exitOnErr(slog, err, "failed to perform PSI")

	slog.Info("intersection complete", "matches", len(idx))
	writeIntersection(slog, *out, ids, idx)
}

func loadOrGenerateReceiverSet(logger logr.Logger, file string, nnr, nns int) ([]gf128.Block, int) {
	if file == "" {
		n := 1 << uint(nnr)
		ns := 1 << uint(nns)
		ids := make([]gf128.Block, n)
		for i := range ids {
			ids[i] = gf128.Block{Lo: uint64(i)*2654435761 + 1, Hi: uint64(i)}
		}
		logger.Info("generated random benchmark set", "size", n)
		return ids, ns
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
	return ids, 1 << uint(nns)
}

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

// writeIntersection writes each matched receiver identifier's hex-encoded
// Block to out, one per line, mirroring the reference CLI's common-ids.txt
// output.
func writeIntersection(logger logr.Logger, out string, ids []gf128.Block, idx []int) {
	f, err := os.Create(out)
	exitOnErr(logger, err, "failed to create output file")
	defer f.Close()

	for _, j := range idx {
		b := ids[j].Bytes()
		line := hex.EncodeToString(b[:]) + "\n"
		if _, err := f.WriteString(line); err != nil {
			exitOnErr(logger, err, "failed to write intersected ID to file")
		}
	}
}
