package random

import "math"

// next advances state and returns its top bits as a signed 32-bit value.
func next(state *uint64, bits uint) int32 {
	*state = (*state*lcgMul + lcgInc) & lcgMask
	return int32(*state >> (48 - bits))
}

// intn32 draws from [lo, hi). Spans wider than MaxInt32 fall back to
// rejection over full 32-bit draws.
func intn32(state *uint64, lo, hi int32) int32 {
	if hi <= lo {
		return lo
	}
	span := uint32(hi) - uint32(lo)
	if span > math.MaxInt32 {
		for {
			if v := uint32(next(state, 32)); v < span {
				return int32(uint32(lo) + v)
			}
		}
	}
	n := int32(span)
	if n&-n == n {
		return int32((int64(n)*int64(next(state, 31)))>>31) + lo
	}
	for {
		bits := next(state, 31)
		val := bits % n
		// reject the partial bucket at the top of the range
		if bits-val+(n-1) >= 0 {
			return val + lo
		}
	}
}

// uint64n combines two 32-bit draws.
func uint64n(state *uint64) uint64 {
	hi := uint64(uint32(next(state, 32)))
	lo := uint64(uint32(next(state, 32)))
	return hi<<32 | lo
}

// uint63 is uint64n without the low bit.
func uint63(state *uint64) int64 {
	return int64(uint64n(state) >> 1)
}

// intn64 draws from [lo, hi) like intn32.
func intn64(state *uint64, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	span := uint64(hi) - uint64(lo)
	if span > math.MaxInt64 {
		for {
			if v := uint64n(state); v < span {
				return int64(uint64(lo) + v)
			}
		}
	}
	n := int64(span)
	if n&-n == n {
		return uint63(state)&(n-1) + lo
	}
	for {
		bits := uint63(state)
		val := bits % n
		if bits-val+(n-1) >= 0 {
			return val + lo
		}
	}
}

func float32n(state *uint64, lo, hi float32) float32 {
	v := float32(next(state, 24)) / (1 << 24)
	return v*(hi-lo) + lo
}

func float64n(state *uint64, lo, hi float64) float64 {
	v := float64(int64(next(state, 26))<<27+int64(next(state, 27))) / (1 << 53)
	return v*(hi-lo) + lo
}

// sampler returns the draw function for T.
func sampler[T any]() func(state *uint64, lo, hi T) T {
	var f any
	switch any(*new(T)).(type) {
	case int32:
		f = intn32
	case int64:
		f = intn64
	case int:
		f = func(state *uint64, lo, hi int) int {
			if math.MaxInt == math.MaxInt32 {
				return int(intn32(state, int32(lo), int32(hi)))
			}
			return int(intn64(state, int64(lo), int64(hi)))
		}
	case float32:
		f = float32n
	case float64:
		f = float64n
	case complex64:
		f = func(state *uint64, lo, hi complex64) complex64 {
			re := float32n(state, real(lo), real(hi))
			im := float32n(state, imag(lo), imag(hi))
			return complex(re, im)
		}
	case complex128:
		f = func(state *uint64, lo, hi complex128) complex128 {
			re := float64n(state, real(lo), real(hi))
			im := float64n(state, imag(lo), imag(hi))
			return complex(re, im)
		}
	case bool:
		f = func(state *uint64, _, _ bool) bool {
			return next(state, 1) != 0
		}
	}
	return f.(func(*uint64, T, T) T)
}
