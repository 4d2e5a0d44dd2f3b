package random

import (
	"context"
	"math"
	"testing"

	"github.com/samcharles93/mateval/internal/device"
	"github.com/samcharles93/mateval/internal/mat"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) *device.Context {
	t.Helper()
	dc := device.New(device.Props{Workers: 4})
	t.Cleanup(func() { _ = dc.Close() })
	return dc
}

func fill[T mat.Scalar](t *testing.T, g *Generator, rows, cols, batches int, lo, hi T) []T {
	t.Helper()
	m, err := mat.New[T](g.dc, rows, cols, batches)
	require.NoError(t, err)
	require.NoError(t, FillUniform[T](context.Background(), g, m, lo, hi))
	out, err := m.ToSlice()
	require.NoError(t, err)
	return out
}

func TestSameSeedSameSequence(t *testing.T) {
	dc := newTestDevice(t)
	a, err := New(dc, 42)
	require.NoError(t, err)
	b, err := New(dc, 42)
	require.NoError(t, err)
	c, err := New(dc, 43)
	require.NoError(t, err)

	for range 3 {
		va := fill[float64](t, a, 40, 30, 2, 0, 1)
		vb := fill[float64](t, b, 40, 30, 2, 0, 1)
		vc := fill[float64](t, c, 40, 30, 2, 0, 1)
		require.Equal(t, va, vb)
		require.NotEqual(t, va, vc)
	}
}

func TestStateAdvancesAcrossCalls(t *testing.T) {
	dc := newTestDevice(t)
	g, err := New(dc, 7)
	require.NoError(t, err)
	first := fill[int32](t, g, 64, 1, 1, 0, 1<<20)
	second := fill[int32](t, g, 64, 1, 1, 0, 1<<20)
	require.NotEqual(t, first, second)
}

func TestFloatRange(t *testing.T) {
	dc := newTestDevice(t)
	g, err := New(dc, 1)
	require.NoError(t, err)

	m, err := mat.New[float32](dc, 100_000, 1, 1)
	require.NoError(t, err)
	require.NoError(t, Fill[float32](context.Background(), g, m))
	vals, err := m.ToSlice()
	require.NoError(t, err)

	var sum float64
	for _, v := range vals {
		require.GreaterOrEqual(t, v, float32(0))
		require.Less(t, v, float32(1))
		sum += float64(v)
	}
	require.InDelta(t, 0.5, sum/float64(len(vals)), 0.01)

	for _, v := range fill[float64](t, g, 1000, 1, 1, -2, 3) {
		require.GreaterOrEqual(t, v, -2.0)
		require.Less(t, v, 3.0)
	}
}

func TestBoolProducesBothValues(t *testing.T) {
	dc := newTestDevice(t)
	g, err := New(dc, 99)
	require.NoError(t, err)
	counts := map[bool]int{}
	for _, v := range fill[bool](t, g, 256, 4, 1, false, false) {
		counts[v]++
	}
	require.Positive(t, counts[true])
	require.Positive(t, counts[false])
}

func TestIntegerRanges(t *testing.T) {
	dc := newTestDevice(t)
	g, err := New(dc, 5)
	require.NoError(t, err)

	seen := make(map[int32]bool)
	for _, v := range fill[int32](t, g, 2000, 1, 1, 0, 16) {
		require.GreaterOrEqual(t, v, int32(0))
		require.Less(t, v, int32(16))
		seen[v] = true
	}
	require.Len(t, seen, 16)

	for _, v := range fill[int32](t, g, 2000, 1, 1, -5, 5) {
		require.GreaterOrEqual(t, v, int32(-5))
		require.Less(t, v, int32(5))
	}
	for _, v := range fill[int64](t, g, 2000, 1, 1, 10, 1000) {
		require.GreaterOrEqual(t, v, int64(10))
		require.Less(t, v, int64(1000))
	}
	for _, v := range fill[int](t, g, 500, 1, 1, 0, 8) {
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 8)
	}
	for _, v := range fill[int32](t, g, 10, 1, 1, 3, 3) {
		require.Equal(t, int32(3), v)
	}
}

func TestWideIntegerRanges(t *testing.T) {
	dc := newTestDevice(t)
	g, err := New(dc, 17)
	require.NoError(t, err)

	lo32, hi32 := int32(math.MinInt32+1), int32(math.MaxInt32)
	var neg32, pos32 int
	for _, v := range fill[int32](t, g, 1000, 1, 1, lo32, hi32) {
		require.GreaterOrEqual(t, v, lo32)
		require.Less(t, v, hi32)
		if v < 0 {
			neg32++
		} else {
			pos32++
		}
	}
	require.Positive(t, neg32)
	require.Positive(t, pos32)

	lo64, hi64 := int64(math.MinInt64), int64(math.MaxInt64)
	distinct := make(map[int64]bool)
	var neg64 int
	for _, v := range fill[int64](t, g, 1000, 1, 1, lo64, hi64) {
		require.Less(t, v, hi64)
		distinct[v] = true
		if v < 0 {
			neg64++
		}
	}
	require.Greater(t, len(distinct), 990)
	require.Positive(t, neg64)
	require.Less(t, neg64, 1000)
}

func TestComplexParts(t *testing.T) {
	dc := newTestDevice(t)
	g, err := New(dc, 11)
	require.NoError(t, err)
	for _, v := range fill[complex128](t, g, 500, 1, 1, 0, 1+10i) {
		require.GreaterOrEqual(t, real(v), 0.0)
		require.Less(t, real(v), 1.0)
		require.GreaterOrEqual(t, imag(v), 0.0)
		require.Less(t, imag(v), 10.0)
	}
}

func TestFillBlockLeavesRestUntouched(t *testing.T) {
	dc := newTestDevice(t)
	g, err := New(dc, 3)
	require.NoError(t, err)
	m, err := mat.New[float64](dc, 4, 4, 1)
	require.NoError(t, err)
	b, err := m.Block(1, 1, 0, 2, 2, 1)
	require.NoError(t, err)
	require.NoError(t, FillUniform[float64](context.Background(), g, b, 1, 2))

	rows, err := m.ToRows()
	require.NoError(t, err)
	for r := range 4 {
		for c := range 4 {
			v := rows[0][r][c]
			if r >= 1 && r <= 2 && c >= 1 && c <= 2 {
				require.GreaterOrEqual(t, v, 1.0)
				continue
			}
			require.Zero(t, v)
		}
	}
}

func TestFillEdgeCases(t *testing.T) {
	dc := newTestDevice(t)
	g, err := New(dc, 3)
	require.NoError(t, err)

	empty, err := mat.New[float64](dc, 0, 3, 1)
	require.NoError(t, err)
	require.NoError(t, Fill[float64](context.Background(), g, empty))

	other := newTestDevice(t)
	foreign, err := mat.New[float64](other, 2, 2, 1)
	require.NoError(t, err)
	require.ErrorIs(t, Fill[float64](context.Background(), g, foreign), mat.ErrArgument)
}

func TestDefaultRange(t *testing.T) {
	t.Parallel()
	lo, hi := DefaultRange[float64]()
	require.Equal(t, [2]float64{0, 1}, [2]float64{lo, hi})
	ilo, ihi := DefaultRange[int32]()
	require.Equal(t, int32(0), ilo)
	require.Equal(t, int32(1<<31-1), ihi)
	clo, chi := DefaultRange[complex64]()
	require.Equal(t, complex64(0), clo)
	require.Equal(t, complex64(1+1i), chi)
}

func TestLCGMatchesReference(t *testing.T) {
	t.Parallel()
	state := uint64(0)
	require.Equal(t, int32(0), next(&state, 31))
	require.Equal(t, uint64(0xB), state)

	state = 1
	v := next(&state, 48-16)
	require.Equal(t, uint64(0x5DEECE66D+0xB)&lcgMask, state)
	require.Equal(t, int32(state>>16), v)
}
