package kzg

import (
	"fmt"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// isPowerOfTwo reports whether n is a power of two. Zero is not.
func isPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// log2PowTwo returns log2(n) for n a power of two.
func log2PowTwo(n uint64) uint64 {
	return uint64(bits.Len64(n) - 1)
}

// reverseBits reverses the bit order of a 64-bit integer.
func reverseBits(n uint64) uint64 {
	return bits.Reverse64(n)
}

// reverseBitsLimited reverses the lowest log2(order) bits of value.
// order must be a power of two.
func reverseBitsLimited(order, value uint64) uint64 {
	unusedBits := 64 - log2PowTwo(order)
	return reverseBits(value) >> unusedBits
}

// bitReversalPermutation reorders values in-place so that
// out[i] == in[reverseBitsLimited(len, i)]. The permutation is its own
// inverse. Lengths zero and one are no-ops; any other non-power-of-two
// length is rejected.
func bitReversalPermutation[T any](values []T) error {
	n := uint64(len(values))
	if n < 2 {
		return nil
	}
	if !isPowerOfTwo(n) {
		return fmt.Errorf("%w: length %d is not a power of two", ErrBadArgs, n)
	}

	unusedBits := 64 - log2PowTwo(n)
	for i := uint64(0); i < n; i++ {
		r := reverseBits(i) >> unusedBits
		if r > i {
			values[i], values[r] = values[r], values[i]
		}
	}
	return nil
}

// computePowers returns [x^0, x^1, ..., x^(n-1)]. The first entry is one
// even for x = 0.
func computePowers(x *fr.Element, n int) []fr.Element {
	powers := make([]fr.Element, n)
	if n == 0 {
		return powers
	}
	powers[0] = fr.One()
	for i := 1; i < n; i++ {
		powers[i].Mul(&powers[i-1], x)
	}
	return powers
}

// frPow computes x^n by square and multiply. A 64-bit exponent covers every
// use in the engine.
func frPow(x *fr.Element, n uint64) fr.Element {
	tmp := *x
	out := fr.One()
	for {
		if n&1 == 1 {
			out.Mul(&out, &tmp)
		}
		n >>= 1
		if n == 0 {
			break
		}
		tmp.Square(&tmp)
	}
	return out
}

// frDiv returns a/b. Division by zero is the caller's bug.
func frDiv(a, b *fr.Element) fr.Element {
	var inv, out fr.Element
	inv.Inverse(b)
	out.Mul(a, &inv)
	return out
}

// frBatchInverted returns the inverses of all elements of a. Unlike plain
// Montgomery batch inversion it rejects zero inputs instead of mapping them
// to zero, since every call site divides by the results.
func frBatchInverted(a []fr.Element) ([]fr.Element, error) {
	for i := range a {
		if a[i].IsZero() {
			return nil, fmt.Errorf("%w: zero in batch inversion input", ErrBadArgs)
		}
	}
	return fr.BatchInvert(a), nil
}
