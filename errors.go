package kzg

import "errors"

// The engine distinguishes two failure classes. ErrBadArgs covers anything a
// caller handed us that fails validation; it is always raised before any
// group or field arithmetic runs, and no partial state is retained.
// ErrInternal marks an invariant violation that valid inputs cannot trigger:
// it means a bug in the library or corrupted setup data, not caller error.
// Allocation failure surfaces as a runtime panic, as everywhere else in Go.
//
// Specific failures wrap one of the two sentinels, so callers can test with
// errors.Is while logs keep the detail.
var (
	// ErrBadArgs is returned for malformed input: wrong lengths,
	// non-canonical field elements, invalid group encodings, duplicate or
	// out-of-range cell indices, mismatched batch array lengths.
	ErrBadArgs = errors.New("kzg: bad arguments")

	// ErrInternal is returned when a cryptographic invariant fails that no
	// caller input can reach: a root-of-unity table failing its defining
	// property, or cell recovery producing data inconsistent with the
	// blob's degree bound.
	ErrInternal = errors.New("kzg: internal error")
)
