package kzg

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// shiftPoly multiplies coefficient i by shiftFactor^i in place. The result
// evaluates at x*shiftFactor wherever the input evaluated at x, which is how
// the coset transforms move between the subgroup and its shifted copy.
func shiftPoly(p []fr.Element, shiftFactor *fr.Element) {
	factorPower := fr.One()
	for i := 1; i < len(p); i++ {
		factorPower.Mul(&factorPower, shiftFactor)
		p[i].Mul(&p[i], &factorPower)
	}
}

// polyLagrangeToMonomial converts a polynomial from evaluation form over the
// bit-reversal-permuted roots of unity to coefficient form: undo the
// permutation, then interpolate with an inverse FFT.
func (c *Context) polyLagrangeToMonomial(lagrange []fr.Element) ([]fr.Element, error) {
	brp := make([]fr.Element, len(lagrange))
	copy(brp, lagrange)
	if err := bitReversalPermutation(brp); err != nil {
		return nil, err
	}
	return c.frIFFT(brp)
}

// evaluatePolynomialInEvaluationForm evaluates a blob polynomial at an
// arbitrary point x using the barycentric formula
//
//	p(x) = (x^N - 1)/N * sum_i p_i * w_i / (x - w_i)
//
// over the bit-reversal-permuted domain. When x coincides with a domain
// point the formula would divide by zero, so that evaluation is returned
// directly.
func (c *Context) evaluatePolynomialInEvaluationForm(p []fr.Element, x *fr.Element) (fr.Element, error) {
	if len(p) != FieldElementsPerBlob {
		return fr.Element{}, fmt.Errorf("%w: polynomial has %d evaluations", ErrBadArgs, len(p))
	}

	inversesIn := make([]fr.Element, FieldElementsPerBlob)
	for i := 0; i < FieldElementsPerBlob; i++ {
		if x.Equal(&c.brpRootsOfUnity[i]) {
			return p[i], nil
		}
		inversesIn[i].Sub(x, &c.brpRootsOfUnity[i])
	}

	inverses, err := frBatchInverted(inversesIn)
	if err != nil {
		return fr.Element{}, err
	}

	var out, tmp fr.Element
	for i := 0; i < FieldElementsPerBlob; i++ {
		tmp.Mul(&inverses[i], &c.brpRootsOfUnity[i])
		tmp.Mul(&tmp, &p[i])
		out.Add(&out, &tmp)
	}

	var n fr.Element
	n.SetUint64(FieldElementsPerBlob)
	out = frDiv(&out, &n)
	tmp = frPow(x, FieldElementsPerBlob)
	one := fr.One()
	tmp.Sub(&tmp, &one)
	out.Mul(&out, &tmp)
	return out, nil
}
