//go:build blst

// blst-backed multi-scalar multiplication. Build with: go build -tags blst
//
// The strategy round-trips points through their compressed encodings, which
// both libraries share, and hands the scalar array to blst's parallel
// Pippenger implementation.

package kzg

import (
	"fmt"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	blst "github.com/supranational/blst/bindings/go"
)

// newLincombStrategy selects the blst backend under the blst build tag.
func newLincombStrategy(precompute uint64) lincombStrategy {
	_ = precompute
	return blstLincomb{}
}

type blstLincomb struct{}

func (blstLincomb) name() string { return "blst" }

func (blstLincomb) lincomb(points []bls12381.G1Affine, scalars []fr.Element) (bls12381.G1Affine, error) {
	if len(points) != len(scalars) {
		return bls12381.G1Affine{}, fmt.Errorf("%w: %d points but %d scalars", ErrBadArgs, len(points), len(scalars))
	}
	if len(points) < windowedLincombThreshold {
		return naiveLincomb{}.lincomb(points, scalars)
	}

	blstPoints := make(blst.P1Affines, 0, len(points))
	scalarBytes := make([]byte, 0, len(points)*BytesPerFieldElement)
	for i := range points {
		if points[i].IsInfinity() || scalars[i].IsZero() {
			continue
		}
		comp := points[i].Bytes()
		var p blst.P1Affine
		if p.Uncompress(comp[:]) == nil {
			return bls12381.G1Affine{}, fmt.Errorf("%w: point rejected by blst", ErrInternal)
		}
		blstPoints = append(blstPoints, p)

		// blst consumes raw scalar bytes little-endian.
		be := scalars[i].Bytes()
		for j := len(be) - 1; j >= 0; j-- {
			scalarBytes = append(scalarBytes, be[j])
		}
	}
	if len(blstPoints) == 0 {
		return bls12381.G1Affine{}, nil
	}

	acc := blstPoints.Mult(scalarBytes, fr.Bits)
	comp := acc.ToAffine().Compress()

	var out bls12381.G1Affine
	if _, err := out.SetBytes(comp); err != nil {
		return bls12381.G1Affine{}, fmt.Errorf("%w: blst result rejected: %v", ErrInternal, err)
	}
	return out, nil
}
