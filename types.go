// Package kzg implements the KZG polynomial commitment engine behind
// Ethereum's data-availability layer: blob commitments and evaluation proofs
// per EIP-4844, and the cell-level erasure coding used by PeerDAS per
// EIP-7594, including recovery from partial cell sets and batched proof
// verification.
//
// Every operation runs against a Context built once from the trusted setup.
// A Context is immutable after construction and safe for concurrent use; the
// engine itself keeps no global state.
package kzg

// Protocol constants. These fix the wire sizes of every public input and
// output and must not change independently of the consensus spec.
const (
	// BytesPerFieldElement is the byte size of a BLS scalar field element.
	BytesPerFieldElement = 32

	// BytesPerCommitment is the byte size of a compressed G1 KZG commitment.
	BytesPerCommitment = 48

	// BytesPerProof is the byte size of a compressed G1 KZG proof.
	BytesPerProof = 48

	// FieldElementsPerBlob is the number of field elements in a blob.
	FieldElementsPerBlob = 4096

	// FieldElementsPerExtBlob is the number of field elements in an extended
	// blob, which carries the Reed-Solomon extension of the blob polynomial.
	FieldElementsPerExtBlob = 2 * FieldElementsPerBlob

	// FieldElementsPerCell is the number of field elements in a single cell.
	FieldElementsPerCell = 64

	// BytesPerBlob is the byte size of a blob.
	BytesPerBlob = FieldElementsPerBlob * BytesPerFieldElement

	// BytesPerCell is the byte size of a single cell.
	BytesPerCell = FieldElementsPerCell * BytesPerFieldElement

	// CellsPerExtBlob is the number of cells in an extended blob.
	CellsPerExtBlob = FieldElementsPerExtBlob / FieldElementsPerCell

	// NumG1Points is the number of G1 points in the trusted setup.
	NumG1Points = FieldElementsPerBlob

	// NumG2Points is the number of G2 points in the trusted setup.
	NumG2Points = 65
)

// Bytes32 is a 32-byte serialized scalar field element.
type Bytes32 [32]byte

// Bytes48 is a 48-byte serialized compressed G1 group element.
type Bytes48 [48]byte

// Blob is a flat serialization of FieldElementsPerBlob consecutive field
// elements. It represents a polynomial in evaluation form over the
// bit-reversal-permuted roots of unity of order FieldElementsPerBlob.
type Blob [BytesPerBlob]byte

// Cell is the smallest unit of blob data that can come with its own KZG
// proof: FieldElementsPerCell field elements cut from the extended blob.
type Cell [BytesPerCell]byte

// KZGCommitment is a compressed G1 point binding to a blob's polynomial.
type KZGCommitment Bytes48

// KZGProof is a compressed G1 point witnessing an evaluation or opening
// claim against a KZGCommitment.
type KZGProof Bytes48
