//go:build !blst

package kzg

// newLincombStrategy selects the multi-scalar-multiplication backend. The
// default build uses gnark-crypto's bucket method; the precompute level is
// recorded on the Context but carries no extra tables here. Build with
// -tags blst for the fixed-base blst backend.
func newLincombStrategy(precompute uint64) lincombStrategy {
	_ = precompute
	return windowedLincomb{}
}
