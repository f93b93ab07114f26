package kzg

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"runtime"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/sync/errgroup"
)

// randomChallengeCellBatchDomain separates the cell-batch transcript from
// the blob-batch one. Same wire-contract caveat as the other separators.
const randomChallengeCellBatchDomain = "RCKZGCBATCH__V1_"

// cosetShiftIndex maps a cell index to the exponent of its coset factor:
// cell k covers the points h_k * <subgroup of size FieldElementsPerCell>
// where h_k = rootsOfUnity[reverseBitsLimited(CellsPerExtBlob, k)].
func cosetShiftIndex(cellIndex uint64) uint64 {
	return reverseBitsLimited(CellsPerExtBlob, cellIndex)
}

// invCosetShiftForCell returns h_k^-1. The inverse of any table root sits at
// the mirrored index, since the roots cycle with period
// FieldElementsPerExtBlob.
func (c *Context) invCosetShiftForCell(cellIndex uint64) fr.Element {
	return c.rootsOfUnity[FieldElementsPerExtBlob-cosetShiftIndex(cellIndex)]
}

// cosetShiftPowForCell returns h_k^FieldElementsPerCell. Multiplying the
// root-table index raises the root to that power.
func (c *Context) cosetShiftPowForCell(cellIndex uint64) fr.Element {
	return c.rootsOfUnity[cosetShiftIndex(cellIndex)*FieldElementsPerCell]
}

// extendedEvaluations evaluates the blob polynomial over the full extended
// domain and returns the evaluations in bit-reversal-permuted order, ready
// to slice into cells. The monomial form is returned alongside for proof
// computation.
func (c *Context) extendedEvaluations(blob *Blob) (data, polyMonomial []fr.Element, err error) {
	polyLagrange := make([]fr.Element, FieldElementsPerExtBlob)
	blobPoly, err := blobToPolynomial(blob)
	if err != nil {
		return nil, nil, err
	}
	copy(polyLagrange, blobPoly)

	// Interpolate over the blob domain, then zero-extend into the full
	// extended domain: the upper coefficient half must be zero for a
	// polynomial of blob degree.
	lower, err := c.polyLagrangeToMonomial(polyLagrange[:FieldElementsPerBlob])
	if err != nil {
		return nil, nil, err
	}
	polyMonomial = make([]fr.Element, FieldElementsPerExtBlob)
	copy(polyMonomial, lower)

	data, err = c.frFFT(polyMonomial)
	if err != nil {
		return nil, nil, err
	}
	if err := bitReversalPermutation(data); err != nil {
		return nil, nil, err
	}
	return data, polyMonomial, nil
}

// cellsFromExtendedData slices bit-reversal-permuted extended evaluations
// into serialized cells.
func cellsFromExtendedData(data []fr.Element) []Cell {
	cells := make([]Cell, CellsPerExtBlob)
	for i := range cells {
		cells[i] = cellFromFieldElements(data[i*FieldElementsPerCell : (i+1)*FieldElementsPerCell])
	}
	return cells
}

// proofsFromFK20 runs FK20 over the monomial polynomial and serializes the
// proofs in cell order.
func (c *Context) proofsFromFK20(polyMonomial []fr.Element) ([]KZGProof, error) {
	proofsG1, err := c.computeFK20CellProofs(polyMonomial)
	if err != nil {
		return nil, err
	}
	if err := bitReversalPermutation(proofsG1); err != nil {
		return nil, err
	}
	affine := bls12381.BatchJacobianToAffineG1(proofsG1)
	proofs := make([]KZGProof, CellsPerExtBlob)
	for i := range proofs {
		proofs[i] = KZGProof(bytesFromG1(&affine[i]))
	}
	return proofs, nil
}

// ComputeCellsAndKZGProofs erasure-codes a blob into its CellsPerExtBlob
// cells and computes the proof for each cell.
func (c *Context) ComputeCellsAndKZGProofs(blob *Blob) ([]Cell, []KZGProof, error) {
	data, polyMonomial, err := c.extendedEvaluations(blob)
	if err != nil {
		return nil, nil, err
	}
	proofs, err := c.proofsFromFK20(polyMonomial)
	if err != nil {
		return nil, nil, err
	}
	return cellsFromExtendedData(data), proofs, nil
}

// ComputeCells is ComputeCellsAndKZGProofs without the proofs, for callers
// that only disseminate data.
func (c *Context) ComputeCells(blob *Blob) ([]Cell, error) {
	data, _, err := c.extendedEvaluations(blob)
	if err != nil {
		return nil, err
	}
	return cellsFromExtendedData(data), nil
}

// deduplicateCommitments compacts a commitment list to its distinct byte
// patterns, preserving first-occurrence order, and returns the per-entry
// index into the compacted list. Pairing cost then scales with distinct
// commitments rather than cells.
func deduplicateCommitments(commitments []Bytes48) (unique []Bytes48, indices []uint64) {
	indices = make([]uint64, len(commitments))
	if len(commitments) == 0 {
		return nil, indices
	}

	unique = make([]Bytes48, 0, len(commitments))
	unique = append(unique, commitments[0])
	for i := 1; i < len(commitments); i++ {
		exists := false
		for j := range unique {
			if commitments[i] == unique[j] {
				indices[i] = uint64(j)
				exists = true
				break
			}
		}
		if !exists {
			indices[i] = uint64(len(unique))
			unique = append(unique, commitments[i])
		}
	}
	return unique, indices
}

// computeRPowersForCellBatch hashes everything the prover controls into the
// batching coefficient r and returns its powers, one per cell.
func computeRPowersForCellBatch(
	uniqueCommitments []Bytes48,
	commitmentIndices, cellIndices []uint64,
	cells []Cell,
	proofsBytes []Bytes48,
) []fr.Element {
	numCells := len(cells)
	inputSize := 16 + 8 + 8 + 8 +
		len(uniqueCommitments)*BytesPerCommitment +
		numCells*(8+8+BytesPerCell+BytesPerProof)

	bytes := make([]byte, 0, inputSize)
	bytes = append(bytes, randomChallengeCellBatchDomain...)
	bytes = binary.BigEndian.AppendUint64(bytes, FieldElementsPerCell)
	bytes = binary.BigEndian.AppendUint64(bytes, uint64(len(uniqueCommitments)))
	bytes = binary.BigEndian.AppendUint64(bytes, uint64(numCells))
	for i := range uniqueCommitments {
		bytes = append(bytes, uniqueCommitments[i][:]...)
	}
	for i := 0; i < numCells; i++ {
		bytes = binary.BigEndian.AppendUint64(bytes, commitmentIndices[i])
		bytes = binary.BigEndian.AppendUint64(bytes, cellIndices[i])
		bytes = append(bytes, cells[i][:]...)
		bytes = append(bytes, proofsBytes[i][:]...)
	}

	hash := Bytes32(sha256.Sum256(bytes))
	r := hashToBLSField(&hash)
	return computePowers(&r, numCells)
}

// weightedSumOfCommitments computes sum_k r^k C_{index(k)} over the deduped
// commitment set by accumulating the weights per distinct commitment first.
func (c *Context) weightedSumOfCommitments(
	uniqueCommitments []Bytes48,
	commitmentIndices []uint64,
	rPowers []fr.Element,
) (bls12381.G1Jac, error) {
	commitments := make([]bls12381.G1Affine, len(uniqueCommitments))
	for i := range uniqueCommitments {
		p, err := bytesToKZGCommitment(&uniqueCommitments[i])
		if err != nil {
			return bls12381.G1Jac{}, fmt.Errorf("commitment %d: %w", i, err)
		}
		commitments[i] = p
	}

	weights := make([]fr.Element, len(uniqueCommitments))
	for i := range rPowers {
		weights[commitmentIndices[i]].Add(&weights[commitmentIndices[i]], &rPowers[i])
	}

	sum, err := c.msm.lincomb(commitments, weights)
	if err != nil {
		return bls12381.G1Jac{}, err
	}
	var out bls12381.G1Jac
	out.FromAffine(&sum)
	return out, nil
}

// aggregatedInterpolationPolyCommitment computes the commitment to
// sum_k r^k interpolation_poly_k, where interpolation_poly_k interpolates
// cell k's data over its coset. Cells sharing a column are aggregated
// before the per-column IFFT, so at most CellsPerExtBlob small transforms
// run regardless of cell count.
func (c *Context) aggregatedInterpolationPolyCommitment(
	rPowers []fr.Element,
	cellIndices []uint64,
	cells []Cell,
) (bls12381.G1Jac, error) {
	aggregatedColumnCells := make([]fr.Element, FieldElementsPerExtBlob)
	var columnUsed [CellsPerExtBlob]bool

	var scaled fr.Element
	for i := range cells {
		column := cellIndices[i]
		cellFrs, err := cellToFieldElements(&cells[i])
		if err != nil {
			return bls12381.G1Jac{}, fmt.Errorf("cell %d: %w", i, err)
		}
		for j := 0; j < FieldElementsPerCell; j++ {
			scaled.Mul(&cellFrs[j], &rPowers[i])
			idx := column*FieldElementsPerCell + uint64(j)
			aggregatedColumnCells[idx].Add(&aggregatedColumnCells[idx], &scaled)
		}
		columnUsed[column] = true
	}

	aggregatedPoly := make([]fr.Element, FieldElementsPerCell)
	for i := uint64(0); i < CellsPerExtBlob; i++ {
		if !columnUsed[i] {
			continue
		}
		column := aggregatedColumnCells[i*FieldElementsPerCell : (i+1)*FieldElementsPerCell]
		if err := bitReversalPermutation(column); err != nil {
			return bls12381.G1Jac{}, err
		}

		// IFFT over the subgroup, then shift by h_k^-1: a direct IFFT over
		// the coset is impossible since the coset is not a subgroup.
		columnPoly, err := c.frIFFT(column)
		if err != nil {
			return bls12381.G1Jac{}, err
		}
		invShift := c.invCosetShiftForCell(i)
		shiftPoly(columnPoly, &invShift)

		for k := 0; k < FieldElementsPerCell; k++ {
			aggregatedPoly[k].Add(&aggregatedPoly[k], &columnPoly[k])
		}
	}

	commitment, err := c.msm.lincomb(c.g1Monomial[:FieldElementsPerCell], aggregatedPoly)
	if err != nil {
		return bls12381.G1Jac{}, err
	}
	var out bls12381.G1Jac
	out.FromAffine(&commitment)
	return out, nil
}

// weightedSumOfProofs computes sum_k r^k h_k^n proof_k, the coset-adjusted
// proof aggregate on the verification equation's left side.
func (c *Context) weightedSumOfProofs(
	proofs []bls12381.G1Affine,
	rPowers []fr.Element,
	cellIndices []uint64,
) (bls12381.G1Jac, error) {
	weighted := make([]fr.Element, len(proofs))
	for i := range proofs {
		hkPow := c.cosetShiftPowForCell(cellIndices[i])
		weighted[i].Mul(&rPowers[i], &hkPow)
	}
	sum, err := c.msm.lincomb(proofs, weighted)
	if err != nil {
		return bls12381.G1Jac{}, err
	}
	var out bls12381.G1Jac
	out.FromAffine(&sum)
	return out, nil
}

// VerifyCellKZGProofBatch verifies an arbitrary mix of cells, possibly from
// different blobs, against their commitments with a single pairing check.
// Input arrays are parallel: entry i claims that cells[i] is cell
// cellIndices[i] of the blob committed to by commitmentsBytes[i]. Repeated
// commitments are deduplicated so the pairing cost scales with distinct
// blobs.
func (c *Context) VerifyCellKZGProofBatch(commitmentsBytes []Bytes48, cellIndices []uint64, cells []Cell, proofsBytes []Bytes48) (bool, error) {
	numCells := len(cells)
	if len(commitmentsBytes) != numCells || len(cellIndices) != numCells || len(proofsBytes) != numCells {
		return false, fmt.Errorf("%w: %d commitments, %d indices, %d cells, %d proofs",
			ErrBadArgs, len(commitmentsBytes), len(cellIndices), numCells, len(proofsBytes))
	}
	if numCells == 0 {
		return true, nil
	}
	for i := range cellIndices {
		if cellIndices[i] >= CellsPerExtBlob {
			return false, fmt.Errorf("%w: cell index %d out of range", ErrBadArgs, cellIndices[i])
		}
	}

	uniqueCommitments, commitmentIndices := deduplicateCommitments(commitmentsBytes)
	rPowers := computeRPowersForCellBatch(uniqueCommitments, commitmentIndices, cellIndices, cells, proofsBytes)

	// Decode the proofs in parallel; everything after depends on all of
	// them.
	proofs := make([]bls12381.G1Affine, numCells)
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < numCells; i++ {
		eg.Go(func() error {
			p, err := bytesToKZGProof(&proofsBytes[i])
			if err != nil {
				return fmt.Errorf("proof %d: %w", i, err)
			}
			proofs[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return false, err
	}

	proofLincomb, err := g1LincombNaive(proofs, rPowers)
	if err != nil {
		return false, err
	}

	finalG1Sum, err := c.weightedSumOfCommitments(uniqueCommitments, commitmentIndices, rPowers)
	if err != nil {
		return false, err
	}

	interpolationCommit, err := c.aggregatedInterpolationPolyCommitment(rPowers, cellIndices, cells)
	if err != nil {
		return false, err
	}
	finalG1Sum.SubAssign(&interpolationCommit)

	weightedProofSum, err := c.weightedSumOfProofs(proofs, rPowers, cellIndices)
	if err != nil {
		return false, err
	}
	finalG1Sum.AddAssign(&weightedProofSum)

	var finalG1SumAff bls12381.G1Affine
	finalG1SumAff.FromJacobian(&finalG1Sum)

	_, _, _, g2Gen := bls12381.Generators()
	ok, err := pairingsVerify(&finalG1SumAff, &g2Gen, &proofLincomb, &c.g2Monomial[FieldElementsPerCell])
	if err != nil {
		return false, fmt.Errorf("%w: pairing check: %v", ErrInternal, err)
	}
	return ok, nil
}
