package kzg

import (
	"fmt"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// The FFT subsystem transforms polynomials between coefficient and
// evaluation form over the roots of unity of order up to
// FieldElementsPerExtBlob, for both field elements and G1 points. All
// transforms share the Context's root tables: forward transforms walk
// rootsOfUnity, inverse transforms walk reverseRootsOfUnity and scale by 1/n.

// expandRootOfUnity generates the powers [1, root, root^2, ..., root^width].
// root must be a primitive width-th root of unity: root^width is one and no
// smaller positive power is. Anything else fails the domain check.
func expandRootOfUnity(root *fr.Element, width uint64) ([]fr.Element, error) {
	if width < 2 {
		return nil, fmt.Errorf("%w: domain width %d is too small", ErrBadArgs, width)
	}

	out := make([]fr.Element, width+1)
	out[0] = fr.One()
	out[1] = *root

	var i uint64
	for i = 2; i <= width; i++ {
		out[i].Mul(&out[i-1], root)
		if out[i].IsOne() {
			break
		}
	}
	if i != width || !out[width].IsOne() {
		return nil, fmt.Errorf("%w: element is not a primitive %d-th root of unity", ErrBadArgs, width)
	}
	return out, nil
}

// rootOfUnity returns the generator of the FieldElementsPerExtBlob-sized
// multiplicative subgroup: 7^((r-1)/8192) where 7 is the smallest primitive
// root of the scalar field.
func rootOfUnity() fr.Element {
	exp := new(big.Int).Sub(fr.Modulus(), big.NewInt(1))
	exp.Div(exp, big.NewInt(FieldElementsPerExtBlob))

	var root fr.Element
	root.Exp(fr.NewElement(7), exp)
	return root
}

// frFFTFast is the recursive radix-2 butterfly over field elements. in is
// read with the given stride; roots is read with rootsStride so that all
// recursion depths share the Context's single root table.
func frFFTFast(out, in []fr.Element, stride int, roots []fr.Element, rootsStride int) {
	half := len(out) / 2
	if half == 0 {
		out[0] = in[0]
		return
	}
	frFFTFast(out[:half], in, stride*2, roots, rootsStride*2)
	frFFTFast(out[half:], in[stride:], stride*2, roots, rootsStride*2)

	var yTimesRoot fr.Element
	for i := 0; i < half; i++ {
		yTimesRoot.Mul(&out[half+i], &roots[i*rootsStride])
		out[half+i].Sub(&out[i], &yTimesRoot)
		out[i].Add(&out[i], &yTimesRoot)
	}
}

// checkFFTSize validates a transform length against the extended domain.
func (c *Context) checkFFTSize(n int) error {
	if n == 0 || n > FieldElementsPerExtBlob || !isPowerOfTwo(uint64(n)) {
		return fmt.Errorf("%w: invalid FFT length %d", ErrBadArgs, n)
	}
	return nil
}

// frFFT evaluates a coefficient-form polynomial over the n-th roots of
// unity, n being len(in), a power of two up to FieldElementsPerExtBlob.
func (c *Context) frFFT(in []fr.Element) ([]fr.Element, error) {
	if err := c.checkFFTSize(len(in)); err != nil {
		return nil, err
	}
	out := make([]fr.Element, len(in))
	frFFTFast(out, in, 1, c.rootsOfUnity, FieldElementsPerExtBlob/len(in))
	return out, nil
}

// frIFFT interpolates evaluations over the n-th roots of unity back to
// coefficient form.
func (c *Context) frIFFT(in []fr.Element) ([]fr.Element, error) {
	if err := c.checkFFTSize(len(in)); err != nil {
		return nil, err
	}
	n := len(in)
	out := make([]fr.Element, n)
	frFFTFast(out, in, 1, c.reverseRootsOfUnity, FieldElementsPerExtBlob/n)

	var invLen fr.Element
	invLen.SetUint64(uint64(n))
	invLen.Inverse(&invLen)
	for i := range out {
		out[i].Mul(&out[i], &invLen)
	}
	return out, nil
}

// cosetFFT evaluates a coefficient-form polynomial over the coset
// shift * <roots of unity>, with shift the recovery shift factor. Shifting
// the coefficients first and running a plain FFT is equivalent to evaluating
// at the shifted points.
func (c *Context) cosetFFT(in []fr.Element) ([]fr.Element, error) {
	shifted := make([]fr.Element, len(in))
	copy(shifted, in)
	shiftPoly(shifted, &c.recoveryShiftFactor)
	return c.frFFT(shifted)
}

// cosetIFFT interpolates evaluations over the shifted coset back to
// coefficient form, undoing the shift afterwards.
func (c *Context) cosetIFFT(in []fr.Element) ([]fr.Element, error) {
	out, err := c.frIFFT(in)
	if err != nil {
		return nil, err
	}
	shiftPoly(out, &c.invRecoveryShiftFactor)
	return out, nil
}

// g1FFTFast is the radix-2 butterfly over G1 points in Jacobian form. The
// identity-point and unit-root shortcuts skip scalar multiplications, which
// dominate the cost here.
func g1FFTFast(out, in []bls12381.G1Jac, stride int, roots []fr.Element, rootsStride int) {
	half := len(out) / 2
	if half == 0 {
		out[0] = in[0]
		return
	}
	g1FFTFast(out[:half], in, stride*2, roots, rootsStride*2)
	g1FFTFast(out[half:], in[stride:], stride*2, roots, rootsStride*2)

	var yTimesRoot, tmp bls12381.G1Jac
	var rootBig big.Int
	for i := 0; i < half; i++ {
		if out[half+i].Z.IsZero() {
			out[half+i] = out[i]
			continue
		}
		if roots[i*rootsStride].IsOne() {
			yTimesRoot = out[half+i]
		} else {
			roots[i*rootsStride].BigInt(&rootBig)
			yTimesRoot.ScalarMultiplication(&out[half+i], &rootBig)
		}
		tmp.Set(&out[i])
		tmp.SubAssign(&yTimesRoot)
		out[i].AddAssign(&yTimesRoot)
		out[half+i] = tmp
	}
}

// g1FFT evaluates a G1-coefficient polynomial over the n-th roots of unity.
func (c *Context) g1FFT(in []bls12381.G1Jac) ([]bls12381.G1Jac, error) {
	if err := c.checkFFTSize(len(in)); err != nil {
		return nil, err
	}
	out := make([]bls12381.G1Jac, len(in))
	g1FFTFast(out, in, 1, c.rootsOfUnity, FieldElementsPerExtBlob/len(in))
	return out, nil
}

// g1IFFT is the inverse of g1FFT.
func (c *Context) g1IFFT(in []bls12381.G1Jac) ([]bls12381.G1Jac, error) {
	if err := c.checkFFTSize(len(in)); err != nil {
		return nil, err
	}
	n := len(in)
	out := make([]bls12381.G1Jac, n)
	g1FFTFast(out, in, 1, c.reverseRootsOfUnity, FieldElementsPerExtBlob/n)

	var invLen fr.Element
	invLen.SetUint64(uint64(n))
	invLen.Inverse(&invLen)
	var invLenBig big.Int
	invLen.BigInt(&invLenBig)
	for i := range out {
		out[i].ScalarMultiplication(&out[i], &invLenBig)
	}
	return out, nil
}
