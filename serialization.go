package kzg

import (
	"fmt"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/holiman/uint256"
)

// blsModulus is the BLS12-381 scalar field prime, kept as a uint256 for the
// canonical-encoding bounds check that runs on every untrusted scalar.
var blsModulus = uint256.MustFromHex("0x73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001")

// bytesToBLSField decodes a big-endian 32-byte scalar, rejecting any value
// not strictly below the field modulus. Values are never silently reduced.
func bytesToBLSField(b *Bytes32) (fr.Element, error) {
	var v uint256.Int
	v.SetBytes32(b[:])
	if v.Cmp(blsModulus) >= 0 {
		return fr.Element{}, fmt.Errorf("%w: scalar is not canonical", ErrBadArgs)
	}
	var out fr.Element
	out.SetBytes(b[:])
	return out, nil
}

// hashToBLSField maps an arbitrary 32-byte hash output to a field element by
// reducing it modulo the field prime. Unlike bytesToBLSField it never fails.
// Fiat-Shamir challenge derivation depends on this exact mapping.
func hashToBLSField(b *Bytes32) fr.Element {
	var out fr.Element
	out.SetBytes(b[:])
	return out
}

// bytesFromBLSField serializes a field element canonically, big-endian.
func bytesFromBLSField(x *fr.Element) Bytes32 {
	return Bytes32(x.Bytes())
}

// validateG1 decodes a compressed G1 point. Decoding enforces the
// compression mask bits, curve membership and prime-subgroup membership; the
// point at infinity with a correctly set infinity flag is valid.
func validateG1(b *Bytes48) (bls12381.G1Affine, error) {
	var p bls12381.G1Affine
	if _, err := p.SetBytes(b[:]); err != nil {
		return bls12381.G1Affine{}, fmt.Errorf("%w: invalid G1 point: %v", ErrBadArgs, err)
	}
	return p, nil
}

// validateG2 decodes a compressed G2 point with the same checks as
// validateG1. Only setup loading handles G2 points.
func validateG2(b *[96]byte) (bls12381.G2Affine, error) {
	var p bls12381.G2Affine
	if _, err := p.SetBytes(b[:]); err != nil {
		return bls12381.G2Affine{}, fmt.Errorf("%w: invalid G2 point: %v", ErrBadArgs, err)
	}
	return p, nil
}

// bytesToKZGCommitment validates commitment bytes as a G1 point.
func bytesToKZGCommitment(b *Bytes48) (bls12381.G1Affine, error) {
	return validateG1(b)
}

// bytesToKZGProof validates proof bytes as a G1 point.
func bytesToKZGProof(b *Bytes48) (bls12381.G1Affine, error) {
	return validateG1(b)
}

// bytesFromG1 compresses a G1 point to its 48-byte encoding.
func bytesFromG1(p *bls12381.G1Affine) Bytes48 {
	return Bytes48(p.Bytes())
}

// blobToPolynomial deserializes a blob into its polynomial in evaluation
// form. Every 32-byte chunk must be a canonical field element.
func blobToPolynomial(blob *Blob) ([]fr.Element, error) {
	p := make([]fr.Element, FieldElementsPerBlob)
	for i := 0; i < FieldElementsPerBlob; i++ {
		var chunk Bytes32
		copy(chunk[:], blob[i*BytesPerFieldElement:])
		x, err := bytesToBLSField(&chunk)
		if err != nil {
			return nil, fmt.Errorf("blob element %d: %w", i, err)
		}
		p[i] = x
	}
	return p, nil
}

// cellToFieldElements deserializes one cell's field elements.
func cellToFieldElements(cell *Cell) ([]fr.Element, error) {
	out := make([]fr.Element, FieldElementsPerCell)
	for i := 0; i < FieldElementsPerCell; i++ {
		var chunk Bytes32
		copy(chunk[:], cell[i*BytesPerFieldElement:])
		x, err := bytesToBLSField(&chunk)
		if err != nil {
			return nil, fmt.Errorf("cell element %d: %w", i, err)
		}
		out[i] = x
	}
	return out, nil
}

// cellFromFieldElements serializes FieldElementsPerCell evaluations into a
// cell.
func cellFromFieldElements(evals []fr.Element) Cell {
	var cell Cell
	for i := range evals {
		b := evals[i].Bytes()
		copy(cell[i*BytesPerFieldElement:], b[:])
	}
	return cell
}
