package kzg

import (
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// FK20 computes all CellsPerExtBlob cell proofs of a blob polynomial at
// once. Each proof is the commitment to a quotient against one coset of the
// extended domain; FK20 batches them through a Toeplitz matrix product
// evaluated with FFTs, so the whole set costs a handful of G1 FFTs plus one
// small MSM per circulant row instead of one large MSM per cell.

// toeplitzCoeffsStride extracts the strided Toeplitz column for the given
// offset from the polynomial's coefficients, zero-padded into the circulant
// domain.
func toeplitzCoeffsStride(out, p []fr.Element, offset int) {
	outStart := cellsPerBlob + 2
	inStart := 2*cellsPerBlob - offset - 1

	out[0] = p[FieldElementsPerBlob-1-offset]
	for i := 1; i < outStart; i++ {
		out[i].SetZero()
	}
	for i := 0; i < 2*cellsPerBlob-outStart; i++ {
		out[outStart+i] = p[inStart+i*FieldElementsPerCell]
	}
}

// computeFK20CellProofs returns the CellsPerExtBlob cell proofs for a
// polynomial in monomial form. Only the first FieldElementsPerBlob
// coefficients are read; the upper half of the extended polynomial is zero
// by construction.
func (c *Context) computeFK20CellProofs(polyMonomial []fr.Element) ([]bls12381.G1Jac, error) {
	const circulantDomainSize = 2 * cellsPerBlob

	// Per-row coefficient vectors, filled column by column from the FFTs of
	// the strided Toeplitz coefficients.
	coeffs := make([][]fr.Element, circulantDomainSize)
	for i := range coeffs {
		coeffs[i] = make([]fr.Element, FieldElementsPerCell)
	}

	toeplitzCoeffs := make([]fr.Element, circulantDomainSize)
	for i := 0; i < FieldElementsPerCell; i++ {
		toeplitzCoeffsStride(toeplitzCoeffs, polyMonomial, i)
		toeplitzCoeffsFFT, err := c.frFFT(toeplitzCoeffs)
		if err != nil {
			return nil, err
		}
		for j := 0; j < circulantDomainSize; j++ {
			coeffs[j][i] = toeplitzCoeffsFFT[j]
		}
	}

	// One MSM per circulant row against the precomputed setup columns.
	hExtFFT := make([]bls12381.G1Jac, circulantDomainSize)
	for i := 0; i < circulantDomainSize; i++ {
		row, err := c.msm.lincomb(c.xExtFFTColumns[i], coeffs[i])
		if err != nil {
			return nil, err
		}
		hExtFFT[i].FromAffine(&row)
	}

	h, err := c.g1IFFT(hExtFFT)
	if err != nil {
		return nil, err
	}
	for i := cellsPerBlob; i < circulantDomainSize; i++ {
		h[i] = bls12381.G1Jac{}
	}
	return c.g1FFT(h)
}
