package kzg

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
	"runtime"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/sync/errgroup"
)

// Domain separators for the Fiat-Shamir transcripts. The exact byte layout
// of each transcript is a wire contract shared with every other
// implementation; changing any of it breaks cross-client proof
// verification.
const (
	fiatShamirProtocolDomain   = "FSBLOBVERIFY_V1_"
	randomChallengeBatchDomain = "RCKZGBATCH___V1_"
	versionedHashVersionKZG    = 0x01
	challengeInputSize         = 16 + 16 + BytesPerBlob + BytesPerCommitment
)

// computeChallenge derives the evaluation challenge binding a blob to its
// commitment: sha256 over the domain separator, a 16-byte big-endian degree
// field, the blob, and the commitment, reduced into the field.
func computeChallenge(blob *Blob, commitment *bls12381.G1Affine) fr.Element {
	bytes := make([]byte, 0, challengeInputSize)
	bytes = append(bytes, fiatShamirProtocolDomain...)
	bytes = binary.BigEndian.AppendUint64(bytes, 0)
	bytes = binary.BigEndian.AppendUint64(bytes, FieldElementsPerBlob)
	bytes = append(bytes, blob[:]...)
	comp := commitment.Bytes()
	bytes = append(bytes, comp[:]...)

	hash := Bytes32(sha256.Sum256(bytes))
	return hashToBLSField(&hash)
}

// KZGToVersionedHash converts a commitment to its versioned hash as carried
// in blob transactions: sha256 of the commitment with the first byte
// replaced by the KZG version.
func KZGToVersionedHash(commitment KZGCommitment) Bytes32 {
	h := sha256.Sum256(commitment[:])
	h[0] = versionedHashVersionKZG
	return h
}

// BlobToKZGCommitment commits to the blob's polynomial: the linear
// combination of the Lagrange-form setup points weighted by the blob's field
// elements. The all-zero blob commits to the point at infinity.
func (c *Context) BlobToKZGCommitment(blob *Blob) (KZGCommitment, error) {
	poly, err := blobToPolynomial(blob)
	if err != nil {
		return KZGCommitment{}, err
	}
	commitment, err := c.msm.lincomb(c.g1LagrangeBrp, poly)
	if err != nil {
		return KZGCommitment{}, err
	}
	return KZGCommitment(bytesFromG1(&commitment)), nil
}

// ComputeKZGProof proves the evaluation of the blob's polynomial at z,
// returning the quotient commitment and the evaluation y = p(z).
func (c *Context) ComputeKZGProof(blob *Blob, zBytes Bytes32) (KZGProof, Bytes32, error) {
	poly, err := blobToPolynomial(blob)
	if err != nil {
		return KZGProof{}, Bytes32{}, err
	}
	z, err := bytesToBLSField(&zBytes)
	if err != nil {
		return KZGProof{}, Bytes32{}, err
	}
	proof, y, err := c.computeKZGProofImpl(poly, &z)
	if err != nil {
		return KZGProof{}, Bytes32{}, err
	}
	return proof, bytesFromBLSField(&y), nil
}

// computeKZGProofImpl builds the quotient polynomial q(x) = (p(x) - y)/(x - z)
// in evaluation form and commits to it. When z lands exactly on domain point
// m, the quotient at m is instead assembled from the remaining points, since
// (x - z) vanishes there.
func (c *Context) computeKZGProofImpl(poly []fr.Element, z *fr.Element) (KZGProof, fr.Element, error) {
	y, err := c.evaluatePolynomialInEvaluationForm(poly, z)
	if err != nil {
		return KZGProof{}, fr.Element{}, err
	}

	q := make([]fr.Element, FieldElementsPerBlob)
	inversesIn := make([]fr.Element, FieldElementsPerBlob)

	// m-1 is the domain index hit by z, if any.
	m := 0
	one := fr.One()
	for i := 0; i < FieldElementsPerBlob; i++ {
		if z.Equal(&c.brpRootsOfUnity[i]) {
			m = i + 1
			inversesIn[i] = one
			continue
		}
		q[i].Sub(&poly[i], &y)
		inversesIn[i].Sub(&c.brpRootsOfUnity[i], z)
	}

	inverses, err := frBatchInverted(inversesIn)
	if err != nil {
		return KZGProof{}, fr.Element{}, err
	}
	for i := 0; i < FieldElementsPerBlob; i++ {
		q[i].Mul(&q[i], &inverses[i])
	}

	if m != 0 {
		m--
		q[m].SetZero()
		var tmp fr.Element
		for i := 0; i < FieldElementsPerBlob; i++ {
			if i == m {
				inversesIn[i] = one
				continue
			}
			// Denominator: z * (z - w_i).
			tmp.Sub(z, &c.brpRootsOfUnity[i])
			inversesIn[i].Mul(&tmp, z)
		}
		inverses, err = frBatchInverted(inversesIn)
		if err != nil {
			return KZGProof{}, fr.Element{}, err
		}
		for i := 0; i < FieldElementsPerBlob; i++ {
			if i == m {
				continue
			}
			// Numerator: w_i * (p_i - y).
			tmp.Sub(&poly[i], &y)
			tmp.Mul(&tmp, &c.brpRootsOfUnity[i])
			tmp.Mul(&tmp, &inverses[i])
			q[m].Add(&q[m], &tmp)
		}
	}

	proof, err := c.msm.lincomb(c.g1LagrangeBrp, q)
	if err != nil {
		return KZGProof{}, fr.Element{}, err
	}
	return KZGProof(bytesFromG1(&proof)), y, nil
}

// VerifyKZGProof checks the claim p(z) == y against a commitment via the
// pairing equation e(P - [y]G1, G2) == e(proof, [tau - z]G2). All four
// inputs are fully validated before any group arithmetic runs; an honest
// mismatch returns (false, nil), malformed input returns an error.
func (c *Context) VerifyKZGProof(commitmentBytes Bytes48, zBytes, yBytes Bytes32, proofBytes Bytes48) (bool, error) {
	commitment, err := bytesToKZGCommitment(&commitmentBytes)
	if err != nil {
		return false, err
	}
	z, err := bytesToBLSField(&zBytes)
	if err != nil {
		return false, err
	}
	y, err := bytesToBLSField(&yBytes)
	if err != nil {
		return false, err
	}
	proof, err := bytesToKZGProof(&proofBytes)
	if err != nil {
		return false, err
	}
	return c.verifyKZGProofImpl(&commitment, &z, &y, &proof)
}

func (c *Context) verifyKZGProofImpl(commitment *bls12381.G1Affine, z, y *fr.Element, proof *bls12381.G1Affine) (bool, error) {
	_, _, g1Gen, g2Gen := bls12381.Generators()

	// [tau - z]G2
	var zBig big.Int
	z.BigInt(&zBig)
	var zG2, xMinusZ bls12381.G2Jac
	var g2GenJac bls12381.G2Jac
	g2GenJac.FromAffine(&g2Gen)
	zG2.ScalarMultiplication(&g2GenJac, &zBig)
	xMinusZ.FromAffine(&c.g2Monomial[1])
	xMinusZ.SubAssign(&zG2)
	var xMinusZAff bls12381.G2Affine
	xMinusZAff.FromJacobian(&xMinusZ)

	// P - [y]G1
	var yBig big.Int
	y.BigInt(&yBig)
	var yG1, pMinusY bls12381.G1Jac
	yG1.FromAffine(&g1Gen)
	yG1.ScalarMultiplication(&yG1, &yBig)
	pMinusY.FromAffine(commitment)
	pMinusY.SubAssign(&yG1)
	var pMinusYAff bls12381.G1Affine
	pMinusYAff.FromJacobian(&pMinusY)

	ok, err := pairingsVerify(&pMinusYAff, &g2Gen, proof, &xMinusZAff)
	if err != nil {
		return false, fmt.Errorf("%w: pairing check: %v", ErrInternal, err)
	}
	return ok, nil
}

// ComputeBlobKZGProof proves the blob against its commitment at the
// Fiat-Shamir challenge point, producing the proof checked by
// VerifyBlobKZGProof. The commitment is validated but not recomputed.
func (c *Context) ComputeBlobKZGProof(blob *Blob, commitmentBytes Bytes48) (KZGProof, error) {
	commitment, err := bytesToKZGCommitment(&commitmentBytes)
	if err != nil {
		return KZGProof{}, err
	}
	poly, err := blobToPolynomial(blob)
	if err != nil {
		return KZGProof{}, err
	}
	challenge := computeChallenge(blob, &commitment)
	proof, _, err := c.computeKZGProofImpl(poly, &challenge)
	return proof, err
}

// VerifyBlobKZGProof checks a blob directly against a commitment and proof,
// re-deriving the challenge point and the claimed evaluation from the blob
// itself.
func (c *Context) VerifyBlobKZGProof(blob *Blob, commitmentBytes, proofBytes Bytes48) (bool, error) {
	commitment, err := bytesToKZGCommitment(&commitmentBytes)
	if err != nil {
		return false, err
	}
	poly, err := blobToPolynomial(blob)
	if err != nil {
		return false, err
	}
	proof, err := bytesToKZGProof(&proofBytes)
	if err != nil {
		return false, err
	}

	challenge := computeChallenge(blob, &commitment)
	y, err := c.evaluatePolynomialInEvaluationForm(poly, &challenge)
	if err != nil {
		return false, err
	}
	return c.verifyKZGProofImpl(&commitment, &challenge, &y, &proof)
}

// computeRPowersForBlobBatch derives the batching coefficients
// [r^0, ..., r^(n-1)] with r hashed from every input, binding the random
// linear combination to the exact claims being verified.
func computeRPowersForBlobBatch(commitments []bls12381.G1Affine, zs, ys []fr.Element, proofs []bls12381.G1Affine) []fr.Element {
	n := len(commitments)
	inputSize := 16 + 8 + 8 + n*(BytesPerCommitment+2*BytesPerFieldElement+BytesPerProof)

	bytes := make([]byte, 0, inputSize)
	bytes = append(bytes, randomChallengeBatchDomain...)
	bytes = binary.BigEndian.AppendUint64(bytes, FieldElementsPerBlob)
	bytes = binary.BigEndian.AppendUint64(bytes, uint64(n))
	for i := 0; i < n; i++ {
		comp := commitments[i].Bytes()
		bytes = append(bytes, comp[:]...)
		zb := zs[i].Bytes()
		bytes = append(bytes, zb[:]...)
		yb := ys[i].Bytes()
		bytes = append(bytes, yb[:]...)
		pb := proofs[i].Bytes()
		bytes = append(bytes, pb[:]...)
	}

	hash := Bytes32(sha256.Sum256(bytes))
	r := hashToBLSField(&hash)
	return computePowers(&r, n)
}

// verifyKZGProofBatch folds n proof claims into one pairing check:
//
//	e(sum r^i proof_i, [tau]G2) == e(sum r^i (C_i - [y_i]) + sum r^i z_i proof_i, G2)
//
// which holds for random r exactly when every individual claim holds.
func (c *Context) verifyKZGProofBatch(commitments []bls12381.G1Affine, zs, ys []fr.Element, proofs []bls12381.G1Affine) (bool, error) {
	n := len(commitments)
	rPowers := computeRPowersForBlobBatch(commitments, zs, ys, proofs)

	proofLincomb, err := g1LincombNaive(proofs, rPowers)
	if err != nil {
		return false, err
	}

	_, _, g1Gen, g2Gen := bls12381.Generators()
	cMinusY := make([]bls12381.G1Affine, n)
	rTimesZ := make([]fr.Element, n)
	var yBig big.Int
	var yG1, acc bls12381.G1Jac
	for i := 0; i < n; i++ {
		ys[i].BigInt(&yBig)
		yG1.FromAffine(&g1Gen)
		yG1.ScalarMultiplication(&yG1, &yBig)
		acc.FromAffine(&commitments[i])
		acc.SubAssign(&yG1)
		cMinusY[i].FromJacobian(&acc)
		rTimesZ[i].Mul(&rPowers[i], &zs[i])
	}

	proofZLincomb, err := g1LincombNaive(proofs, rTimesZ)
	if err != nil {
		return false, err
	}
	cMinusYLincomb, err := g1LincombNaive(cMinusY, rPowers)
	if err != nil {
		return false, err
	}

	var rhs bls12381.G1Affine
	rhs.Add(&cMinusYLincomb, &proofZLincomb)

	ok, err := pairingsVerify(&proofLincomb, &c.g2Monomial[1], &rhs, &g2Gen)
	if err != nil {
		return false, fmt.Errorf("%w: pairing check: %v", ErrInternal, err)
	}
	return ok, nil
}

// VerifyBlobKZGProofBatch verifies n (blob, commitment, proof) triples with
// a single pairing check. Zero triples verify trivially; one delegates to
// the single verification. Any malformed entry fails the whole batch before
// cryptographic work runs. Per-entry decoding and challenge derivation run
// in parallel; the combining steps are order-independent.
func (c *Context) VerifyBlobKZGProofBatch(blobs []Blob, commitmentsBytes, proofsBytes []Bytes48) (bool, error) {
	if len(blobs) != len(commitmentsBytes) || len(blobs) != len(proofsBytes) {
		return false, fmt.Errorf("%w: %d blobs, %d commitments, %d proofs", ErrBadArgs, len(blobs), len(commitmentsBytes), len(proofsBytes))
	}
	n := len(blobs)
	if n == 0 {
		return true, nil
	}
	if n == 1 {
		return c.VerifyBlobKZGProof(&blobs[0], commitmentsBytes[0], proofsBytes[0])
	}

	commitments := make([]bls12381.G1Affine, n)
	proofs := make([]bls12381.G1Affine, n)
	challenges := make([]fr.Element, n)
	ys := make([]fr.Element, n)

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			commitment, err := bytesToKZGCommitment(&commitmentsBytes[i])
			if err != nil {
				return fmt.Errorf("batch entry %d: %w", i, err)
			}
			poly, err := blobToPolynomial(&blobs[i])
			if err != nil {
				return fmt.Errorf("batch entry %d: %w", i, err)
			}
			proof, err := bytesToKZGProof(&proofsBytes[i])
			if err != nil {
				return fmt.Errorf("batch entry %d: %w", i, err)
			}

			challenge := computeChallenge(&blobs[i], &commitment)
			y, err := c.evaluatePolynomialInEvaluationForm(poly, &challenge)
			if err != nil {
				return err
			}

			commitments[i] = commitment
			proofs[i] = proof
			challenges[i] = challenge
			ys[i] = y
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return false, err
	}

	return c.verifyKZGProofBatch(commitments, challenges, ys, proofs)
}
