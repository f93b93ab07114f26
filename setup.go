package kzg

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// cellsPerBlob is the number of cells covering the original (unextended)
// blob domain; the FK20 circulant domain is twice this.
const cellsPerBlob = FieldElementsPerBlob / FieldElementsPerCell

// maxPrecompute is the largest accepted precompute level. Levels map to
// fixed-base window sizes in backends that support them.
const maxPrecompute = 15

// Context holds the trusted setup and everything derived from it: the FFT
// root tables, the ceremony G1/G2 points, and the FK20 column precomputation
// used for cell proofs. A Context is immutable after construction and safe
// for concurrent use from any number of goroutines; construction must simply
// happen-before first use.
type Context struct {
	// rootsOfUnity are the ascending powers of the 8192nd root of unity,
	// with the redundant final entry rootsOfUnity[8192] = 1.
	rootsOfUnity []fr.Element

	// brpRootsOfUnity is rootsOfUnity[:8192] in bit-reversal-permuted order.
	// Its first half is the blob evaluation domain.
	brpRootsOfUnity []fr.Element

	// reverseRootsOfUnity are the descending powers, used by inverse FFTs.
	reverseRootsOfUnity []fr.Element

	// g1Monomial are the ceremony points [tau^i]G1.
	g1Monomial []bls12381.G1Affine

	// g1LagrangeBrp are the ceremony points in Lagrange form, stored in
	// bit-reversal-permuted order to match blob polynomials.
	g1LagrangeBrp []bls12381.G1Affine

	// g2Monomial are the ceremony points [tau^i]G2. Index 1 drives the
	// single-proof pairing check, index FieldElementsPerCell the cell
	// batch check.
	g2Monomial []bls12381.G2Affine

	// xExtFFTColumns is the FK20 precomputation: per circulant-domain row,
	// the G1 FFT of a strided, zero-extended slice of the monomial points,
	// organized by column.
	xExtFFTColumns [][]bls12381.G1Affine

	// recoveryShiftFactor shifts the evaluation domain off the subgroup
	// during cell recovery; its inverse undoes the shift.
	recoveryShiftFactor    fr.Element
	invRecoveryShiftFactor fr.Element

	// msm is the linear-combination strategy for large inputs.
	msm lincombStrategy

	// precompute is the level requested at load time. The pure-Go backend
	// records it but derives no tables from it beyond FK20.
	precompute uint64
}

// NewContext builds a trusted setup context from the raw ceremony data:
// monomial-form G1 points, Lagrange-form G1 points (in natural domain
// order), and monomial-form G2 points, all compressed. Every point is
// decompressed and subgroup-checked, the Lagrange claim is sanity-checked
// with a pairing, and the FFT and FK20 tables are derived.
func NewContext(g1MonomialBytes, g1LagrangeBytes, g2MonomialBytes []byte, precompute uint64) (*Context, error) {
	if precompute > maxPrecompute {
		return nil, fmt.Errorf("%w: precompute level %d exceeds %d", ErrBadArgs, precompute, maxPrecompute)
	}
	if len(g1MonomialBytes) != NumG1Points*BytesPerCommitment {
		return nil, fmt.Errorf("%w: g1 monomial data is %d bytes, want %d", ErrBadArgs, len(g1MonomialBytes), NumG1Points*BytesPerCommitment)
	}
	if len(g1LagrangeBytes) != NumG1Points*BytesPerCommitment {
		return nil, fmt.Errorf("%w: g1 lagrange data is %d bytes, want %d", ErrBadArgs, len(g1LagrangeBytes), NumG1Points*BytesPerCommitment)
	}
	if len(g2MonomialBytes) != NumG2Points*96 {
		return nil, fmt.Errorf("%w: g2 monomial data is %d bytes, want %d", ErrBadArgs, len(g2MonomialBytes), NumG2Points*96)
	}

	c := &Context{
		g1Monomial:    make([]bls12381.G1Affine, NumG1Points),
		g1LagrangeBrp: make([]bls12381.G1Affine, NumG1Points),
		g2Monomial:    make([]bls12381.G2Affine, NumG2Points),
		msm:           newLincombStrategy(precompute),
		precompute:    precompute,
	}
	c.recoveryShiftFactor = fr.NewElement(7)
	c.invRecoveryShiftFactor.Inverse(&c.recoveryShiftFactor)

	for i := 0; i < NumG1Points; i++ {
		var b Bytes48
		copy(b[:], g1MonomialBytes[i*BytesPerCommitment:])
		p, err := validateG1(&b)
		if err != nil {
			return nil, fmt.Errorf("g1 monomial point %d: %w", i, err)
		}
		c.g1Monomial[i] = p
	}
	for i := 0; i < NumG1Points; i++ {
		var b Bytes48
		copy(b[:], g1LagrangeBytes[i*BytesPerCommitment:])
		p, err := validateG1(&b)
		if err != nil {
			return nil, fmt.Errorf("g1 lagrange point %d: %w", i, err)
		}
		c.g1LagrangeBrp[i] = p
	}
	for i := 0; i < NumG2Points; i++ {
		var b [96]byte
		copy(b[:], g2MonomialBytes[i*96:])
		p, err := validateG2(&b)
		if err != nil {
			return nil, fmt.Errorf("g2 monomial point %d: %w", i, err)
		}
		c.g2Monomial[i] = p
	}

	if err := c.checkLagrangeForm(); err != nil {
		return nil, err
	}
	if err := c.computeRootsOfUnity(); err != nil {
		return nil, err
	}
	if err := bitReversalPermutation(c.g1LagrangeBrp); err != nil {
		return nil, err
	}
	if err := c.initFK20Columns(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkLagrangeForm rejects a setup whose claimed Lagrange-form points are
// actually monomial form. For monomial points e([tau]G1, G2) equals
// e(G1, [tau]G2); genuine Lagrange points fail that relation.
func (c *Context) checkLagrangeForm() error {
	isMonomial, err := pairingsVerify(&c.g1LagrangeBrp[1], &c.g2Monomial[0], &c.g1LagrangeBrp[0], &c.g2Monomial[1])
	if err != nil {
		return fmt.Errorf("%w: lagrange form check: %v", ErrInternal, err)
	}
	if isMonomial {
		return fmt.Errorf("%w: g1 lagrange points are in monomial form", ErrBadArgs)
	}
	return nil
}

// computeRootsOfUnity fills the three root tables from the extended-domain
// generator. The generator is a library constant, so an expansion failure
// here is an internal invariant violation, not caller error.
func (c *Context) computeRootsOfUnity() error {
	root := rootOfUnity()
	roots, err := expandRootOfUnity(&root, FieldElementsPerExtBlob)
	if err != nil {
		return fmt.Errorf("%w: root of unity table: %v", ErrInternal, err)
	}
	c.rootsOfUnity = roots

	c.brpRootsOfUnity = make([]fr.Element, FieldElementsPerExtBlob)
	copy(c.brpRootsOfUnity, roots[:FieldElementsPerExtBlob])
	if err := bitReversalPermutation(c.brpRootsOfUnity); err != nil {
		return err
	}

	c.reverseRootsOfUnity = make([]fr.Element, FieldElementsPerExtBlob+1)
	for i := 0; i <= FieldElementsPerExtBlob; i++ {
		c.reverseRootsOfUnity[i] = roots[FieldElementsPerExtBlob-i]
	}
	return nil
}

// toeplitzPart1 computes the G1 FFT of x zero-extended to twice its length,
// the setup-time half of the Toeplitz matrix multiplication used by FK20.
func (c *Context) toeplitzPart1(x []bls12381.G1Jac) ([]bls12381.G1Jac, error) {
	xExt := make([]bls12381.G1Jac, 2*len(x))
	copy(xExt, x)
	return c.g1FFT(xExt)
}

// initFK20Columns precomputes the per-column G1 FFTs of the reversed,
// strided monomial points consumed by computeFK20CellProofs.
func (c *Context) initFK20Columns() error {
	const k = cellsPerBlob
	const k2 = 2 * k

	c.xExtFFTColumns = make([][]bls12381.G1Affine, k2)
	for i := range c.xExtFFTColumns {
		c.xExtFFTColumns[i] = make([]bls12381.G1Affine, FieldElementsPerCell)
	}

	x := make([]bls12381.G1Jac, k)
	for offset := 0; offset < FieldElementsPerCell; offset++ {
		start := FieldElementsPerBlob - FieldElementsPerCell - 1 - offset
		for i := 0; i < k-1; i++ {
			x[i].FromAffine(&c.g1Monomial[start-i*FieldElementsPerCell])
		}
		x[k-1] = bls12381.G1Jac{}

		points, err := c.toeplitzPart1(x)
		if err != nil {
			return err
		}
		affine := bls12381.BatchJacobianToAffineG1(points)
		for row := 0; row < k2; row++ {
			c.xExtFFTColumns[row][offset] = affine[row]
		}
	}
	return nil
}

// pairingsVerify reports whether e(a1, a2) == e(b1, b2), via a single
// product-of-pairings check with a1 negated.
func pairingsVerify(a1 *bls12381.G1Affine, a2 *bls12381.G2Affine, b1 *bls12381.G1Affine, b2 *bls12381.G2Affine) (bool, error) {
	var a1Neg bls12381.G1Affine
	a1Neg.Neg(a1)
	return bls12381.PairingCheck(
		[]bls12381.G1Affine{a1Neg, *b1},
		[]bls12381.G2Affine{*a2, *b2},
	)
}

// LoadTrustedSetupFile reads a trusted setup in the ceremony text format:
// the G1 and G2 point counts in decimal, then the Lagrange-form G1 points,
// the G2 points, and the monomial-form G1 points as whitespace-separated hex
// strings.
func LoadTrustedSetupFile(r io.Reader, precompute uint64) (*Context, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256), 1024)
	sc.Split(bufio.ScanWords)

	next := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("%w: trusted setup file is truncated", ErrBadArgs)
		}
		return sc.Text(), nil
	}

	for _, want := range []string{"4096", "65"} {
		tok, err := next()
		if err != nil {
			return nil, err
		}
		if tok != want {
			return nil, fmt.Errorf("%w: unexpected point count %q, want %s", ErrBadArgs, tok, want)
		}
	}

	readPoints := func(count, size int) ([]byte, error) {
		out := make([]byte, 0, count*size)
		for i := 0; i < count; i++ {
			tok, err := next()
			if err != nil {
				return nil, err
			}
			raw, err := hex.DecodeString(tok)
			if err != nil || len(raw) != size {
				return nil, fmt.Errorf("%w: malformed point hex at index %d", ErrBadArgs, i)
			}
			out = append(out, raw...)
		}
		return out, nil
	}

	g1Lagrange, err := readPoints(NumG1Points, BytesPerCommitment)
	if err != nil {
		return nil, err
	}
	g2Monomial, err := readPoints(NumG2Points, 96)
	if err != nil {
		return nil, err
	}
	g1Monomial, err := readPoints(NumG1Points, BytesPerCommitment)
	if err != nil {
		return nil, err
	}
	return NewContext(g1Monomial, g1Lagrange, g2Monomial, precompute)
}
