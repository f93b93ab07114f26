// Command kzgtool exercises the KZG engine from the command line: commit to
// a blob, compute and verify proofs, erasure-code a blob into cells, and
// recover a blob from partial cells. Blobs are read as raw binary files;
// commitments and proofs are printed and accepted as hex.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	kzg "github.com/eth2030/kzg"
)

var (
	version = "v0.1.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("kzgtool", flag.ContinueOnError)

	setupPath := fs.String("setup", "trusted_setup.txt", "Path to the trusted setup file")
	precompute := fs.Uint64("precompute", 0, "Precompute level 0-15 for the MSM backend")
	blobPath := fs.String("blob", "", "Path to a raw blob file (131072 bytes)")
	commitmentHex := fs.String("commitment", "", "Commitment as 96 hex characters")
	proofHex := fs.String("proof", "", "Proof as 96 hex characters")
	zHex := fs.String("z", "", "Evaluation point as 64 hex characters")
	yHex := fs.String("y", "", "Claimed evaluation as 64 hex characters")
	cellsDir := fs.String("cells", "", "Directory to write cells to, or read partial cells from")
	verbosity := fs.Int("verbosity", 3, "Log level 0-5 (0=silent, 5=trace)")
	showVersion := fs.Bool("version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kzgtool [flags] <commit|prove|verify|blob-proof|verify-blob|cells|recover>\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if *showVersion {
		fmt.Printf("kzgtool %s (commit %s)\n", version, commit)
		return 0
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	command := fs.Arg(0)

	setupLogging(*verbosity)

	f, err := os.Open(*setupPath)
	if err != nil {
		log.Error("Cannot open trusted setup", "path", *setupPath, "err", err)
		return 1
	}
	ctx, err := kzg.LoadTrustedSetupFile(f, *precompute)
	f.Close()
	if err != nil {
		log.Error("Cannot load trusted setup", "path", *setupPath, "err", err)
		return 1
	}
	log.Info("Trusted setup loaded", "path", *setupPath, "precompute", *precompute)

	switch command {
	case "commit":
		return cmdCommit(ctx, *blobPath)
	case "prove":
		return cmdProve(ctx, *blobPath, *zHex)
	case "verify":
		return cmdVerify(ctx, *commitmentHex, *zHex, *yHex, *proofHex)
	case "blob-proof":
		return cmdBlobProof(ctx, *blobPath, *commitmentHex)
	case "verify-blob":
		return cmdVerifyBlob(ctx, *blobPath, *commitmentHex, *proofHex)
	case "cells":
		return cmdCells(ctx, *blobPath, *cellsDir)
	case "recover":
		return cmdRecover(ctx, *cellsDir)
	default:
		log.Error("Unknown command", "command", command)
		fs.Usage()
		return 2
	}
}

func setupLogging(verbosity int) {
	var lvl slog.Level
	switch {
	case verbosity <= 1:
		lvl = slog.LevelError
	case verbosity == 2:
		lvl = slog.LevelWarn
	case verbosity == 3:
		lvl = slog.LevelInfo
	case verbosity == 4:
		lvl = slog.LevelDebug
	default:
		lvl = log.LevelTrace
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
}

func readBlob(path string) (*kzg.Blob, error) {
	if path == "" {
		return nil, fmt.Errorf("missing -blob flag")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) != kzg.BytesPerBlob {
		return nil, fmt.Errorf("blob file is %d bytes, want %d", len(raw), kzg.BytesPerBlob)
	}
	var blob kzg.Blob
	copy(blob[:], raw)
	return &blob, nil
}

func parseBytes48(s, what string) (kzg.Bytes48, error) {
	var out kzg.Bytes48
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(raw) != len(out) {
		return out, fmt.Errorf("%s must be %d hex characters", what, 2*len(out))
	}
	copy(out[:], raw)
	return out, nil
}

func parseBytes32(s, what string) (kzg.Bytes32, error) {
	var out kzg.Bytes32
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(raw) != len(out) {
		return out, fmt.Errorf("%s must be %d hex characters", what, 2*len(out))
	}
	copy(out[:], raw)
	return out, nil
}

func cmdCommit(ctx *kzg.Context, blobPath string) int {
	blob, err := readBlob(blobPath)
	if err != nil {
		log.Error("Cannot read blob", "err", err)
		return 1
	}
	commitment, err := ctx.BlobToKZGCommitment(blob)
	if err != nil {
		log.Error("Commitment failed", "err", err)
		return 1
	}
	hash := kzg.KZGToVersionedHash(commitment)
	log.Info("Blob committed", "versionedHash", hex.EncodeToString(hash[:]))
	fmt.Printf("%x\n", commitment[:])
	return 0
}

func cmdProve(ctx *kzg.Context, blobPath, zHex string) int {
	blob, err := readBlob(blobPath)
	if err != nil {
		log.Error("Cannot read blob", "err", err)
		return 1
	}
	z, err := parseBytes32(zHex, "z")
	if err != nil {
		log.Error("Bad evaluation point", "err", err)
		return 1
	}
	proof, y, err := ctx.ComputeKZGProof(blob, z)
	if err != nil {
		log.Error("Proof computation failed", "err", err)
		return 1
	}
	fmt.Printf("proof: %x\ny:     %x\n", proof[:], y[:])
	return 0
}

func cmdVerify(ctx *kzg.Context, commitmentHex, zHex, yHex, proofHex string) int {
	commitment, err := parseBytes48(commitmentHex, "commitment")
	if err != nil {
		log.Error("Bad commitment", "err", err)
		return 1
	}
	z, err := parseBytes32(zHex, "z")
	if err != nil {
		log.Error("Bad evaluation point", "err", err)
		return 1
	}
	y, err := parseBytes32(yHex, "y")
	if err != nil {
		log.Error("Bad claimed evaluation", "err", err)
		return 1
	}
	proof, err := parseBytes48(proofHex, "proof")
	if err != nil {
		log.Error("Bad proof", "err", err)
		return 1
	}
	ok, err := ctx.VerifyKZGProof(commitment, z, y, proof)
	if err != nil {
		log.Error("Verification errored", "err", err)
		return 1
	}
	if !ok {
		log.Warn("Proof is INVALID")
		return 1
	}
	log.Info("Proof is valid")
	return 0
}

func cmdBlobProof(ctx *kzg.Context, blobPath, commitmentHex string) int {
	blob, err := readBlob(blobPath)
	if err != nil {
		log.Error("Cannot read blob", "err", err)
		return 1
	}
	commitment, err := parseBytes48(commitmentHex, "commitment")
	if err != nil {
		log.Error("Bad commitment", "err", err)
		return 1
	}
	proof, err := ctx.ComputeBlobKZGProof(blob, commitment)
	if err != nil {
		log.Error("Blob proof computation failed", "err", err)
		return 1
	}
	fmt.Printf("%x\n", proof[:])
	return 0
}

func cmdVerifyBlob(ctx *kzg.Context, blobPath, commitmentHex, proofHex string) int {
	blob, err := readBlob(blobPath)
	if err != nil {
		log.Error("Cannot read blob", "err", err)
		return 1
	}
	commitment, err := parseBytes48(commitmentHex, "commitment")
	if err != nil {
		log.Error("Bad commitment", "err", err)
		return 1
	}
	proof, err := parseBytes48(proofHex, "proof")
	if err != nil {
		log.Error("Bad proof", "err", err)
		return 1
	}
	ok, err := ctx.VerifyBlobKZGProof(blob, commitment, proof)
	if err != nil {
		log.Error("Verification errored", "err", err)
		return 1
	}
	if !ok {
		log.Warn("Blob proof is INVALID")
		return 1
	}
	log.Info("Blob proof is valid")
	return 0
}

func cmdCells(ctx *kzg.Context, blobPath, cellsDir string) int {
	blob, err := readBlob(blobPath)
	if err != nil {
		log.Error("Cannot read blob", "err", err)
		return 1
	}
	if cellsDir == "" {
		log.Error("Missing -cells directory")
		return 1
	}
	cells, proofs, err := ctx.ComputeCellsAndKZGProofs(blob)
	if err != nil {
		log.Error("Cell computation failed", "err", err)
		return 1
	}
	if err := os.MkdirAll(cellsDir, 0o755); err != nil {
		log.Error("Cannot create cells directory", "err", err)
		return 1
	}
	for i := range cells {
		path := cellPath(cellsDir, i)
		payload := append(append([]byte{}, cells[i][:]...), proofs[i][:]...)
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			log.Error("Cannot write cell", "index", i, "err", err)
			return 1
		}
	}
	log.Info("Cells written", "dir", cellsDir, "count", len(cells))
	return 0
}

func cmdRecover(ctx *kzg.Context, cellsDir string) int {
	if cellsDir == "" {
		log.Error("Missing -cells directory")
		return 1
	}
	entries, err := os.ReadDir(cellsDir)
	if err != nil {
		log.Error("Cannot read cells directory", "err", err)
		return 1
	}

	var indices []uint64
	var cells []kzg.Cell
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "cell-") || !strings.HasSuffix(name, ".bin") {
			continue
		}
		idx, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, "cell-"), ".bin"), 10, 64)
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(cellsDir + "/" + name)
		if err != nil || len(raw) < kzg.BytesPerCell {
			log.Error("Cannot read cell", "name", name, "err", err)
			return 1
		}
		var cell kzg.Cell
		copy(cell[:], raw)
		indices = append(indices, idx)
		cells = append(cells, cell)
	}
	log.Info("Recovering from partial cells", "available", len(cells))

	recovered, proofs, err := ctx.RecoverCellsAndKZGProofs(indices, cells)
	if err != nil {
		log.Error("Recovery failed", "err", err)
		return 1
	}
	for i := range recovered {
		path := cellPath(cellsDir, i)
		payload := append(append([]byte{}, recovered[i][:]...), proofs[i][:]...)
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			log.Error("Cannot write recovered cell", "index", i, "err", err)
			return 1
		}
	}
	log.Info("All cells recovered", "count", len(recovered))
	return 0
}

func cellPath(dir string, index int) string {
	return fmt.Sprintf("%s/cell-%d.bin", dir, index)
}
