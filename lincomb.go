package kzg

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// A lincombStrategy computes sum(scalars[i] * points[i]). The naive strategy
// is the semantic reference; any other strategy must produce bit-identical
// affine results for all inputs.
type lincombStrategy interface {
	name() string
	lincomb(points []bls12381.G1Affine, scalars []fr.Element) (bls12381.G1Affine, error)
}

// windowedLincombThreshold is the input size below which the bucket method
// loses to plain accumulation.
const windowedLincombThreshold = 8

// naiveLincomb accumulates scalar multiplications one by one.
type naiveLincomb struct{}

func (naiveLincomb) name() string { return "naive" }

func (naiveLincomb) lincomb(points []bls12381.G1Affine, scalars []fr.Element) (bls12381.G1Affine, error) {
	if len(points) != len(scalars) {
		return bls12381.G1Affine{}, fmt.Errorf("%w: %d points but %d scalars", ErrBadArgs, len(points), len(scalars))
	}

	var acc, term bls12381.G1Jac
	var s big.Int
	for i := range points {
		if points[i].IsInfinity() || scalars[i].IsZero() {
			continue
		}
		scalars[i].BigInt(&s)
		term.FromAffine(&points[i])
		term.ScalarMultiplication(&term, &s)
		acc.AddAssign(&term)
	}

	var out bls12381.G1Affine
	out.FromJacobian(&acc)
	return out, nil
}

// windowedLincomb uses gnark-crypto's bucket (Pippenger) multi-exponentiation
// for large inputs and falls back to the naive strategy for small ones, where
// window setup costs more than it saves.
type windowedLincomb struct{}

func (windowedLincomb) name() string { return "windowed" }

func (windowedLincomb) lincomb(points []bls12381.G1Affine, scalars []fr.Element) (bls12381.G1Affine, error) {
	if len(points) != len(scalars) {
		return bls12381.G1Affine{}, fmt.Errorf("%w: %d points but %d scalars", ErrBadArgs, len(points), len(scalars))
	}
	if len(points) < windowedLincombThreshold {
		return naiveLincomb{}.lincomb(points, scalars)
	}

	// MultiExp treats infinity points as identity, so no filtering is needed
	// here. The result in affine form is canonical either way, which keeps
	// the strategies bit-compatible.
	var out bls12381.G1Affine
	if _, err := out.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return naiveLincomb{}.lincomb(points, scalars)
	}
	return out, nil
}

// g1LincombNaive is the reference linear combination, used by tests and by
// the verification paths where inputs are small.
func g1LincombNaive(points []bls12381.G1Affine, scalars []fr.Element) (bls12381.G1Affine, error) {
	return naiveLincomb{}.lincomb(points, scalars)
}
