package kzg

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Cell recovery reconstructs the full extended evaluation of a blob
// polynomial from any half of its cells. The reconstruction works around
// the missing points with a vanishing polynomial Z(x) that is zero exactly
// there: (E*Z)(x) is known everywhere, its IFFT gives (P*Z)(x) in
// coefficient form, and dividing out Z over a coset (where Z has no zeros)
// recovers P itself.

// computeVanishingPolynomialFromRoots long-multiplies the factors (x - r_i)
// into a monic polynomial of degree len(roots).
func computeVanishingPolynomialFromRoots(roots []fr.Element) ([]fr.Element, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: no roots given", ErrBadArgs)
	}

	poly := make([]fr.Element, len(roots)+1)
	poly[0].Neg(&roots[0])

	var negRoot fr.Element
	for i := 1; i < len(roots); i++ {
		negRoot.Neg(&roots[i])
		poly[i].Add(&negRoot, &poly[i-1])
		for j := i - 1; j > 0; j-- {
			poly[j].Mul(&poly[j], &negRoot)
			poly[j].Add(&poly[j], &poly[j-1])
		}
		poly[0].Mul(&poly[0], &negRoot)
	}
	poly[len(roots)] = fr.One()
	return poly, nil
}

// vanishingPolynomialForMissingCells builds the degree-extended vanishing
// polynomial whose roots are every evaluation point of every missing cell.
// A short polynomial vanishing on the per-cell coset factors is computed
// first; spreading its coefficients FieldElementsPerCell apart makes each
// root a full coset of the extended domain.
func (c *Context) vanishingPolynomialForMissingCells(missingCellIndices []uint64) ([]fr.Element, error) {
	if len(missingCellIndices) == 0 || len(missingCellIndices) == CellsPerExtBlob {
		return nil, fmt.Errorf("%w: cannot build vanishing polynomial for %d missing cells", ErrBadArgs, len(missingCellIndices))
	}

	const stride = FieldElementsPerExtBlob / CellsPerExtBlob
	roots := make([]fr.Element, len(missingCellIndices))
	for i, idx := range missingCellIndices {
		roots[i] = c.rootsOfUnity[idx*stride]
	}

	shortPoly, err := computeVanishingPolynomialFromRoots(roots)
	if err != nil {
		return nil, err
	}

	vanishing := make([]fr.Element, FieldElementsPerExtBlob)
	for i := range shortPoly {
		vanishing[i*FieldElementsPerCell] = shortPoly[i]
	}
	return vanishing, nil
}

// recoverCells fills in the missing extended evaluations. data holds the
// known evaluations in cell order with present marking which cells arrived;
// both are indexed pre-permutation. The result is the complete extended
// evaluation set, bit-reversal permuted like cell data.
func (c *Context) recoverCells(data []fr.Element, present *[CellsPerExtBlob]bool) ([]fr.Element, error) {
	// Work in natural domain order.
	dataBrp := make([]fr.Element, FieldElementsPerExtBlob)
	copy(dataBrp, data)
	if err := bitReversalPermutation(dataBrp); err != nil {
		return nil, err
	}
	presentBrp := make([]bool, FieldElementsPerExtBlob)
	for i := uint64(0); i < CellsPerExtBlob; i++ {
		if !present[i] {
			continue
		}
		for j := uint64(0); j < FieldElementsPerCell; j++ {
			presentBrp[reverseBitsLimited(FieldElementsPerExtBlob, i*FieldElementsPerCell+j)] = true
		}
	}

	// The vanishing polynomial's roots are indexed by the bit-reversed
	// missing cell positions, matching the natural-order domain.
	var missingCellIndices []uint64
	for i := uint64(0); i < CellsPerExtBlob; i++ {
		if !present[i] {
			missingCellIndices = append(missingCellIndices, reverseBitsLimited(CellsPerExtBlob, i))
		}
	}

	vanishingCoeff, err := c.vanishingPolynomialForMissingCells(missingCellIndices)
	if err != nil {
		return nil, err
	}
	vanishingEval, err := c.frFFT(vanishingCoeff)
	if err != nil {
		return nil, err
	}

	// (E*Z)(x) over the domain: zero wherever E is unknown, which is
	// exactly where Z vanishes, so (E*Z) agrees with (P*Z) everywhere.
	eTimesZ := make([]fr.Element, FieldElementsPerExtBlob)
	for i := range eTimesZ {
		if presentBrp[i] {
			eTimesZ[i].Mul(&dataBrp[i], &vanishingEval[i])
		}
	}

	eTimesZCoeffs, err := c.frIFFT(eTimesZ)
	if err != nil {
		return nil, err
	}

	// Divide (P*Z) by Z over the shifted coset, where Z is nowhere zero.
	pzOverCoset, err := c.cosetFFT(eTimesZCoeffs)
	if err != nil {
		return nil, err
	}
	zOverCoset, err := c.cosetFFT(vanishingCoeff)
	if err != nil {
		return nil, err
	}
	zInverses, err := frBatchInverted(zOverCoset)
	if err != nil {
		return nil, fmt.Errorf("%w: vanishing polynomial is zero on the coset", ErrInternal)
	}
	for i := range pzOverCoset {
		pzOverCoset[i].Mul(&pzOverCoset[i], &zInverses[i])
	}

	reconstructedCoeff, err := c.cosetIFFT(pzOverCoset)
	if err != nil {
		return nil, err
	}

	reconstructed, err := c.frFFT(reconstructedCoeff)
	if err != nil {
		return nil, err
	}
	if err := bitReversalPermutation(reconstructed); err != nil {
		return nil, err
	}
	return reconstructed, nil
}

// RecoverCellsAndKZGProofs reconstructs all cells and proofs of a blob from
// at least half of its cells. cellIndices and cells are parallel arrays;
// indices must be distinct and in range. The recovered cells and proofs are
// byte-identical to computing them from the original blob.
func (c *Context) RecoverCellsAndKZGProofs(cellIndices []uint64, cells []Cell) ([]Cell, []KZGProof, error) {
	numCells := len(cells)
	if len(cellIndices) != numCells {
		return nil, nil, fmt.Errorf("%w: %d indices but %d cells", ErrBadArgs, len(cellIndices), numCells)
	}
	if numCells > CellsPerExtBlob {
		return nil, nil, fmt.Errorf("%w: %d cells exceed one extended blob", ErrBadArgs, numCells)
	}
	if numCells < CellsPerExtBlob/2 {
		return nil, nil, fmt.Errorf("%w: %d cells are not enough to recover, need at least %d", ErrBadArgs, numCells, CellsPerExtBlob/2)
	}

	var present [CellsPerExtBlob]bool
	data := make([]fr.Element, FieldElementsPerExtBlob)
	for i := 0; i < numCells; i++ {
		idx := cellIndices[i]
		if idx >= CellsPerExtBlob {
			return nil, nil, fmt.Errorf("%w: cell index %d out of range", ErrBadArgs, idx)
		}
		if present[idx] {
			return nil, nil, fmt.Errorf("%w: duplicate cell index %d", ErrBadArgs, idx)
		}
		present[idx] = true

		cellFrs, err := cellToFieldElements(&cells[i])
		if err != nil {
			return nil, nil, fmt.Errorf("cell %d: %w", i, err)
		}
		copy(data[idx*FieldElementsPerCell:], cellFrs)
	}

	recovered := data
	if numCells < CellsPerExtBlob {
		var err error
		recovered, err = c.recoverCells(data, &present)
		if err != nil {
			return nil, nil, err
		}
	}
	outCells := cellsFromExtendedData(recovered)

	// Recompute every proof from the recovered polynomial. The recovered
	// evaluations must interpolate to a polynomial within the blob degree
	// bound; a nonzero upper coefficient half means the supplied cells were
	// not the extension of any blob.
	polyMonomial, err := c.polyLagrangeToMonomial(recovered)
	if err != nil {
		return nil, nil, err
	}
	for i := FieldElementsPerBlob; i < FieldElementsPerExtBlob; i++ {
		if !polyMonomial[i].IsZero() {
			return nil, nil, fmt.Errorf("%w: recovered data exceeds the blob degree bound", ErrInternal)
		}
	}

	proofs, err := c.proofsFromFK20(polyMonomial)
	if err != nil {
		return nil, nil, err
	}
	return outCells, proofs, nil
}
