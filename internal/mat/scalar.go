package mat

import (
	"fmt"
	"math/cmplx"
)

// Number is the set of element types arithmetic expressions support.
type Number interface {
	int32 | int64 | int | float32 | float64 | complex64 | complex128
}

// Scalar is every storable element type.
type Scalar interface {
	Number | bool
}

// ScalarName returns the element type name used in expression strings.
func ScalarName[T Scalar]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// conjugator returns complex conjugation for complex T and identity
// otherwise.
func conjugator[T Number]() func(T) T {
	var f any
	switch any(*new(T)).(type) {
	case complex64:
		f = func(v complex64) complex64 { return complex64(cmplx.Conj(complex128(v))) }
	case complex128:
		f = cmplx.Conj
	default:
		return func(v T) T { return v }
	}
	return f.(func(T) T)
}

// arith returns the read-modify-write combinator for a non-overwrite mode.
func arith[N Number](mode Mode) func(old, v N) N {
	switch mode {
	case ModeAdd:
		return func(old, v N) N { return old + v }
	case ModeSub:
		return func(old, v N) N { return old - v }
	case ModeMul:
		return func(old, v N) N { return old * v }
	case ModeDiv:
		return func(old, v N) N { return old / v }
	default:
		return func(_, v N) N { return v }
	}
}

// combiner resolves the destination write for mode. Only ModeWrite is
// defined for bool.
func combiner[T Scalar](mode Mode) (func(old, v T) T, bool) {
	if mode == ModeWrite {
		return func(_, v T) T { return v }, true
	}
	var f any
	switch any(*new(T)).(type) {
	case int32:
		f = arith[int32](mode)
	case int64:
		f = arith[int64](mode)
	case int:
		f = arith[int](mode)
	case float32:
		f = arith[float32](mode)
	case float64:
		f = arith[float64](mode)
	case complex64:
		f = arith[complex64](mode)
	case complex128:
		f = arith[complex128](mode)
	default:
		return nil, false
	}
	return f.(func(T, T) T), true
}
