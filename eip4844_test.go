package kzg

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto/kzg4844"
)

func TestBlobToKZGCommitmentDeterministic(t *testing.T) {
	c := testContext(t)
	blob := deterministicBlob("commit-deterministic")

	first, err := c.BlobToKZGCommitment(blob)
	if err != nil {
		t.Fatalf("first commitment: %v", err)
	}
	second, err := c.BlobToKZGCommitment(blob)
	if err != nil {
		t.Fatalf("second commitment: %v", err)
	}
	if first != second {
		t.Fatal("committing twice gave different results")
	}

	other, err := c.BlobToKZGCommitment(deterministicBlob("commit-other"))
	if err != nil {
		t.Fatalf("other commitment: %v", err)
	}
	if other == first {
		t.Fatal("different blobs committed identically")
	}
}

// TestZeroBlobCommitsToInfinity the all-zero blob is the zero polynomial,
// whose commitment is the canonical point at infinity.
func TestZeroBlobCommitsToInfinity(t *testing.T) {
	c := testContext(t)
	var blob Blob

	commitment, err := c.BlobToKZGCommitment(&blob)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if commitment[0] != 0xc0 {
		t.Fatalf("leading byte %#x, want 0xc0", commitment[0])
	}
	for i := 1; i < len(commitment); i++ {
		if commitment[i] != 0 {
			t.Fatalf("nonzero byte at %d", i)
		}
	}
}

func TestBlobToKZGCommitmentRejectsNonCanonical(t *testing.T) {
	c := testContext(t)
	blob := deterministicBlob("commit-non-canonical")
	m := blsModulusBytes()
	copy(blob[0:], m[:])

	if _, err := c.BlobToKZGCommitment(blob); !errors.Is(err, ErrBadArgs) {
		t.Fatalf("got %v, want ErrBadArgs", err)
	}
}

func TestComputeAndVerifyKZGProof(t *testing.T) {
	c := testContext(t)
	blob := deterministicBlob("proof-round-trip")

	commitment, err := c.BlobToKZGCommitment(blob)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	z := deterministicScalars("proof-z", 1)[0]
	zBytes := bytesFromBLSField(&z)

	proof, y, err := c.ComputeKZGProof(blob, zBytes)
	if err != nil {
		t.Fatalf("compute proof: %v", err)
	}

	ok, err := c.VerifyKZGProof(Bytes48(commitment), zBytes, y, Bytes48(proof))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("valid proof rejected")
	}

	// A wrong claimed evaluation must fail cleanly, not error.
	var wrongY Bytes32
	wrongY[31] = 1
	if wrongY == y {
		wrongY[31] = 2
	}
	ok, err = c.VerifyKZGProof(Bytes48(commitment), zBytes, wrongY, Bytes48(proof))
	if err != nil {
		t.Fatalf("verify wrong y: %v", err)
	}
	if ok {
		t.Fatal("wrong evaluation accepted")
	}

	// A valid-but-wrong proof point must also fail cleanly.
	ok, err = c.VerifyKZGProof(Bytes48(commitment), zBytes, y, Bytes48(commitment))
	if err != nil {
		t.Fatalf("verify wrong proof: %v", err)
	}
	if ok {
		t.Fatal("wrong proof accepted")
	}
}

// TestComputeKZGProofAtDomainPoint when z is an evaluation domain point the
// quotient needs the special-cased construction, and y must be the stored
// evaluation.
func TestComputeKZGProofAtDomainPoint(t *testing.T) {
	c := testContext(t)
	blob := deterministicBlob("proof-domain-point")
	commitment, err := c.BlobToKZGCommitment(blob)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	for _, i := range []int{0, 7, FieldElementsPerBlob - 1} {
		zBytes := bytesFromBLSField(&c.brpRootsOfUnity[i])
		proof, y, err := c.ComputeKZGProof(blob, zBytes)
		if err != nil {
			t.Fatalf("domain point %d: compute: %v", i, err)
		}

		var want Bytes32
		copy(want[:], blob[i*BytesPerFieldElement:])
		if y != want {
			t.Fatalf("domain point %d: y is not the blob element", i)
		}

		ok, err := c.VerifyKZGProof(Bytes48(commitment), zBytes, y, Bytes48(proof))
		if err != nil {
			t.Fatalf("domain point %d: verify: %v", i, err)
		}
		if !ok {
			t.Fatalf("domain point %d: valid proof rejected", i)
		}
	}
}

func TestComputeKZGProofAtZero(t *testing.T) {
	c := testContext(t)
	blob := deterministicBlob("proof-at-zero")
	commitment, err := c.BlobToKZGCommitment(blob)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	var zero Bytes32
	proof, y, err := c.ComputeKZGProof(blob, zero)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	ok, err := c.VerifyKZGProof(Bytes48(commitment), zero, y, Bytes48(proof))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("valid proof at zero rejected")
	}
}

func TestVerifyKZGProofRejectsMalformed(t *testing.T) {
	c := testContext(t)
	blob := deterministicBlob("verify-malformed")
	commitment, err := c.BlobToKZGCommitment(blob)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	z := deterministicScalars("verify-malformed-z", 1)[0]
	zBytes := bytesFromBLSField(&z)
	proof, y, err := c.ComputeKZGProof(blob, zBytes)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	var badPoint Bytes48
	badPoint[0] = 0x12
	nonCanonical := blsModulusBytes()

	cases := []struct {
		name       string
		commitment Bytes48
		z, y       Bytes32
		proof      Bytes48
	}{
		{"bad commitment", badPoint, zBytes, y, Bytes48(proof)},
		{"non-canonical z", Bytes48(commitment), nonCanonical, y, Bytes48(proof)},
		{"non-canonical y", Bytes48(commitment), zBytes, nonCanonical, Bytes48(proof)},
		{"bad proof", Bytes48(commitment), zBytes, y, badPoint},
	}
	for _, tc := range cases {
		if _, err := c.VerifyKZGProof(tc.commitment, tc.z, tc.y, tc.proof); !errors.Is(err, ErrBadArgs) {
			t.Errorf("%s: got %v, want ErrBadArgs", tc.name, err)
		}
	}

	if _, _, err := c.ComputeKZGProof(blob, nonCanonical); !errors.Is(err, ErrBadArgs) {
		t.Errorf("non-canonical z in compute: got %v, want ErrBadArgs", err)
	}
}

func TestBlobProofRoundTrip(t *testing.T) {
	c := testContext(t)
	blob := deterministicBlob("blob-proof")

	commitment, err := c.BlobToKZGCommitment(blob)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	proof, err := c.ComputeBlobKZGProof(blob, Bytes48(commitment))
	if err != nil {
		t.Fatalf("compute blob proof: %v", err)
	}

	ok, err := c.VerifyBlobKZGProof(blob, Bytes48(commitment), Bytes48(proof))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("valid blob proof rejected")
	}

	// Tampering with a single blob element invalidates the proof.
	tampered := *blob
	tampered[0] = 0x01
	ok, err = c.VerifyBlobKZGProof(&tampered, Bytes48(commitment), Bytes48(proof))
	if err != nil {
		t.Fatalf("verify tampered: %v", err)
	}
	if ok {
		t.Fatal("tampered blob accepted")
	}
}

// TestZeroBlobProof the zero blob proves against the infinity commitment with
// the infinity proof.
func TestZeroBlobProof(t *testing.T) {
	c := testContext(t)
	var blob Blob

	commitment, err := c.BlobToKZGCommitment(&blob)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	proof, err := c.ComputeBlobKZGProof(&blob, Bytes48(commitment))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if proof[0] != 0xc0 {
		t.Fatalf("zero-blob proof leading byte %#x, want 0xc0", proof[0])
	}

	ok, err := c.VerifyBlobKZGProof(&blob, Bytes48(commitment), Bytes48(proof))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("zero-blob proof rejected")
	}

	// The zero polynomial evaluates to zero everywhere, including on the
	// domain itself.
	zBytes := bytesFromBLSField(&c.brpRootsOfUnity[124])
	_, y, err := c.ComputeKZGProof(&blob, zBytes)
	if err != nil {
		t.Fatalf("compute at domain root: %v", err)
	}
	if y != (Bytes32{}) {
		t.Fatalf("zero blob evaluated to %x at a domain root", y)
	}
}

func TestVerifyBlobKZGProofBatch(t *testing.T) {
	c := testContext(t)

	const n = 4
	blobs := make([]Blob, n)
	commitments := make([]Bytes48, n)
	proofs := make([]Bytes48, n)
	for i := 0; i < n; i++ {
		blobs[i] = *deterministicBlob("batch-" + string(rune('a'+i)))
		commitment, err := c.BlobToKZGCommitment(&blobs[i])
		if err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
		commitments[i] = Bytes48(commitment)
		proof, err := c.ComputeBlobKZGProof(&blobs[i], commitments[i])
		if err != nil {
			t.Fatalf("prove %d: %v", i, err)
		}
		proofs[i] = Bytes48(proof)
	}

	ok, err := c.VerifyBlobKZGProofBatch(blobs, commitments, proofs)
	if err != nil {
		t.Fatalf("verify batch: %v", err)
	}
	if !ok {
		t.Fatal("valid batch rejected")
	}

	// Swapping two proofs breaks the batch.
	proofs[1], proofs[2] = proofs[2], proofs[1]
	ok, err = c.VerifyBlobKZGProofBatch(blobs, commitments, proofs)
	if err != nil {
		t.Fatalf("verify swapped batch: %v", err)
	}
	if ok {
		t.Fatal("batch with swapped proofs accepted")
	}
	proofs[1], proofs[2] = proofs[2], proofs[1]

	// Empty batch verifies trivially.
	ok, err = c.VerifyBlobKZGProofBatch(nil, nil, nil)
	if err != nil || !ok {
		t.Fatalf("empty batch: ok=%v err=%v", ok, err)
	}

	// Single-entry batch delegates to the single verification.
	ok, err = c.VerifyBlobKZGProofBatch(blobs[:1], commitments[:1], proofs[:1])
	if err != nil {
		t.Fatalf("single batch: %v", err)
	}
	if !ok {
		t.Fatal("valid single batch rejected")
	}

	// Length mismatch is caller error.
	if _, err := c.VerifyBlobKZGProofBatch(blobs, commitments[:n-1], proofs); !errors.Is(err, ErrBadArgs) {
		t.Fatalf("length mismatch: got %v, want ErrBadArgs", err)
	}

	// A malformed entry fails the batch with an error, not a false verdict.
	badCommitments := make([]Bytes48, n)
	copy(badCommitments, commitments)
	badCommitments[2] = Bytes48{0x01}
	if _, err := c.VerifyBlobKZGProofBatch(blobs, badCommitments, proofs); !errors.Is(err, ErrBadArgs) {
		t.Fatalf("malformed entry: got %v, want ErrBadArgs", err)
	}
}

// TestKZGToVersionedHash must agree with go-ethereum's versioned hash of the
// same commitment bytes.
func TestKZGToVersionedHash(t *testing.T) {
	c := testContext(t)
	blob := deterministicBlob("versioned-hash")
	commitment, err := c.BlobToKZGCommitment(blob)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	got := KZGToVersionedHash(commitment)
	if got[0] != versionedHashVersionKZG {
		t.Fatalf("version byte %#x, want %#x", got[0], versionedHashVersionKZG)
	}

	gethCommitment := kzg4844.Commitment(commitment)
	want := kzg4844.CalcBlobHashV1(sha256.New(), &gethCommitment)
	if got != Bytes32(want) {
		t.Fatalf("versioned hash %x disagrees with go-ethereum's %x", got, want)
	}
}

func BenchmarkBlobToKZGCommitment(b *testing.B) {
	c := testContext(b)
	blob := deterministicBlob("bench-commit")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.BlobToKZGCommitment(blob); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComputeBlobKZGProof(b *testing.B) {
	c := testContext(b)
	blob := deterministicBlob("bench-blob-proof")
	commitment, err := c.BlobToKZGCommitment(blob)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.ComputeBlobKZGProof(blob, Bytes48(commitment)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkVerifyBlobKZGProof(b *testing.B) {
	c := testContext(b)
	blob := deterministicBlob("bench-verify")
	commitment, err := c.BlobToKZGCommitment(blob)
	if err != nil {
		b.Fatal(err)
	}
	proof, err := c.ComputeBlobKZGProof(blob, Bytes48(commitment))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ok, err := c.VerifyBlobKZGProof(blob, Bytes48(commitment), Bytes48(proof))
		if err != nil || !ok {
			b.Fatalf("ok=%v err=%v", ok, err)
		}
	}
}
