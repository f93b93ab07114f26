package kzg

import (
	"math/big"
	"strings"
	"sync"
	"testing"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/crypto/sha3"
)

// The tests run against a deterministic setup derived from the fixed secret
// tau = 1337. It exercises the exact same code paths as a ceremony setup but
// is reproducible and fast to generate. Never use it outside of tests.

const testSecret = 1337

var (
	testSetupOnce      sync.Once
	testG1Monomial     []byte
	testG1Lagrange     []byte
	testG2Monomial     []byte
	testContextOnce   sync.Once
	testContextShared *Context
	testContextErr    error
)

// insecureSetupBytes generates the serialized setup points for tau = 1337:
// the monomial G1 points by repeated multiplication, the Lagrange points via
// an inverse G1 FFT of the monomial ones, and the 65 monomial G2 points.
func insecureSetupBytes() (g1Monomial, g1Lagrange, g2Monomial []byte) {
	testSetupOnce.Do(func() {
		_, _, g1Aff, g2Aff := bls12381.Generators()
		tau := big.NewInt(testSecret)

		monomialJac := make([]bls12381.G1Jac, NumG1Points)
		monomialJac[0].FromAffine(&g1Aff)
		for i := 1; i < NumG1Points; i++ {
			monomialJac[i].ScalarMultiplication(&monomialJac[i-1], tau)
		}
		monomialAff := bls12381.BatchJacobianToAffineG1(monomialJac)

		// Lagrange form is the inverse FFT of the monomial form over the
		// blob domain, in natural order.
		root := rootOfUnity()
		roots, err := expandRootOfUnity(&root, FieldElementsPerExtBlob)
		if err != nil {
			panic(err)
		}
		reverseRoots := make([]fr.Element, FieldElementsPerExtBlob+1)
		for i := range reverseRoots {
			reverseRoots[i] = roots[FieldElementsPerExtBlob-i]
		}
		lagrangeJac := make([]bls12381.G1Jac, NumG1Points)
		g1FFTFast(lagrangeJac, monomialJac, 1, reverseRoots, FieldElementsPerExtBlob/NumG1Points)

		var invN fr.Element
		invN.SetUint64(NumG1Points)
		invN.Inverse(&invN)
		var invNBig big.Int
		invN.BigInt(&invNBig)
		for i := range lagrangeJac {
			lagrangeJac[i].ScalarMultiplication(&lagrangeJac[i], &invNBig)
		}
		lagrangeAff := bls12381.BatchJacobianToAffineG1(lagrangeJac)

		var g2Jac bls12381.G2Jac
		g2Jac.FromAffine(&g2Aff)
		g2Points := make([]bls12381.G2Affine, NumG2Points)
		for i := 0; i < NumG2Points; i++ {
			g2Points[i].FromJacobian(&g2Jac)
			if i < NumG2Points-1 {
				g2Jac.ScalarMultiplication(&g2Jac, tau)
			}
		}

		testG1Monomial = make([]byte, 0, NumG1Points*BytesPerCommitment)
		testG1Lagrange = make([]byte, 0, NumG1Points*BytesPerCommitment)
		for i := 0; i < NumG1Points; i++ {
			m := monomialAff[i].Bytes()
			testG1Monomial = append(testG1Monomial, m[:]...)
			l := lagrangeAff[i].Bytes()
			testG1Lagrange = append(testG1Lagrange, l[:]...)
		}
		testG2Monomial = make([]byte, 0, NumG2Points*96)
		for i := 0; i < NumG2Points; i++ {
			g := g2Points[i].Bytes()
			testG2Monomial = append(testG2Monomial, g[:]...)
		}
	})
	return testG1Monomial, testG1Lagrange, testG2Monomial
}

// testContext returns the shared test Context, building it on first use.
func testContext(t testing.TB) *Context {
	t.Helper()
	testContextOnce.Do(func() {
		g1m, g1l, g2m := insecureSetupBytes()
		testContextShared, testContextErr = NewContext(g1m, g1l, g2m, 0)
	})
	if testContextErr != nil {
		t.Fatalf("building test context: %v", testContextErr)
	}
	return testContextShared
}

// deterministicBlob expands a seed into a valid blob. Every field element is
// reduced into the field, so the blob always deserializes.
func deterministicBlob(seed string) *Blob {
	h := sha3.NewShake256()
	h.Write([]byte(seed))

	var blob Blob
	chunk := make([]byte, BytesPerFieldElement)
	for i := 0; i < FieldElementsPerBlob; i++ {
		h.Read(chunk)
		var el fr.Element
		el.SetBytes(chunk)
		b := el.Bytes()
		copy(blob[i*BytesPerFieldElement:], b[:])
	}
	return &blob
}

// deterministicScalars expands a seed into n field elements.
func deterministicScalars(seed string, n int) []fr.Element {
	h := sha3.NewShake256()
	h.Write([]byte(seed))

	out := make([]fr.Element, n)
	chunk := make([]byte, BytesPerFieldElement)
	for i := range out {
		h.Read(chunk)
		out[i].SetBytes(chunk)
	}
	return out
}

// deterministicG1Points expands a seed into n valid G1 points.
func deterministicG1Points(seed string, n int) []bls12381.G1Affine {
	_, _, g1Aff, _ := bls12381.Generators()
	scalars := deterministicScalars(seed, n)

	jacs := make([]bls12381.G1Jac, n)
	var s big.Int
	for i := range jacs {
		scalars[i].BigInt(&s)
		jacs[i].FromAffine(&g1Aff)
		jacs[i].ScalarMultiplication(&jacs[i], &s)
	}
	return bls12381.BatchJacobianToAffineG1(jacs)
}

// testSetupFileText renders the test setup in the trusted setup file format.
func testSetupFileText() string {
	g1m, g1l, g2m := insecureSetupBytes()

	var sb strings.Builder
	sb.WriteString("4096\n65\n")
	writePoints := func(data []byte, size int) {
		for off := 0; off < len(data); off += size {
			writeHex(&sb, data[off:off+size])
			sb.WriteByte('\n')
		}
	}
	writePoints(g1l, BytesPerCommitment)
	writePoints(g2m, 96)
	writePoints(g1m, BytesPerCommitment)
	return sb.String()
}

func writeHex(sb *strings.Builder, data []byte) {
	const hexDigits = "0123456789abcdef"
	for _, b := range data {
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0x0f])
	}
}
