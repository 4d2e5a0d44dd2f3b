package mat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnaryTableComplete(t *testing.T) {
	t.Parallel()
	require.Len(t, UnaryFuncs(), 26)
	for _, f := range UnaryFuncs() {
		_, err := resolveUnary[float64](f)
		require.NoError(t, err, f.String())
		_, err = resolveUnary[float32](f)
		require.NoError(t, err, f.String())

		parsed, err := ParseUnaryFunc(f.String())
		require.NoError(t, err)
		require.Equal(t, f, parsed)
	}
}

func TestParseUnaryFunc(t *testing.T) {
	t.Parallel()
	f, err := ParseUnaryFunc(" SQRT ")
	require.NoError(t, err)
	require.Equal(t, Sqrt, f)

	_, err = ParseUnaryFunc("softmax")
	require.ErrorIs(t, err, ErrArgument)
}

func TestUnaryFloat(t *testing.T) {
	dc := newTestDevice(t)
	m := mustRows(t, dc, [][][]float64{{{-4, 9}, {0.25, 16}}})

	neg, err := CwiseNegate[float64](m)
	require.NoError(t, err)
	require.Equal(t, [][][]float64{{{4, -9}, {-0.25, -16}}}, evalRows[float64](t, dc, neg))

	abs, err := CwiseAbs[float64](m)
	require.NoError(t, err)
	sqrt, err := CwiseSqrt[float64](abs)
	require.NoError(t, err)
	require.Equal(t, [][][]float64{{{2, 3}, {0.5, 4}}}, evalRows[float64](t, dc, sqrt))
	require.Equal(t, "sqrt(abs(Matrix<float64>2x2x1))", sqrt.String())

	inv, err := CwiseInverse[float64](abs)
	require.NoError(t, err)
	require.Equal(t, [][][]float64{{{0.25, 1.0 / 9}, {4, 1.0 / 16}}}, evalRows[float64](t, dc, inv))

	exp, err := CwiseExp[float64](m)
	require.NoError(t, err)
	got := evalRows[float64](t, dc, exp)
	require.InDelta(t, math.Exp(-4), got[0][0][0], 1e-12)
}

func TestUnaryRoundingFloat32(t *testing.T) {
	dc := newTestDevice(t)
	m := mustRows(t, dc, [][][]float32{{{1.5, -1.5, 2.2}}})

	for _, tc := range []struct {
		f    UnaryFunc
		want []float32
	}{
		{Round, []float32{2, -2, 2}},
		{Floor, []float32{1, -2, 2}},
		{Ceil, []float32{2, -1, 3}},
	} {
		op, err := Unary[float32](tc.f, m)
		require.NoError(t, err)
		require.Equal(t, tc.want, evalRows[float32](t, dc, op)[0][0], tc.f.String())
	}
}

func TestUnaryIntegerAndComplex(t *testing.T) {
	dc := newTestDevice(t)

	ints := mustRows(t, dc, [][][]int32{{{-3, 4}}})
	abs, err := CwiseAbs[int32](ints)
	require.NoError(t, err)
	require.Equal(t, [][][]int32{{{3, 4}}}, evalRows[int32](t, dc, abs))

	_, err = CwiseExp[int32](ints)
	require.ErrorIs(t, err, ErrConstraint)

	cs := mustRows(t, dc, [][][]complex128{{{3 + 4i}}})
	cabs, err := CwiseAbs[complex128](cs)
	require.NoError(t, err)
	require.Equal(t, complex128(5), evalRows[complex128](t, dc, cabs)[0][0][0])

	_, err = CwiseFloor[complex128](cs)
	require.ErrorIs(t, err, ErrConstraint)
}

func TestUnaryOverSparseStaysSparse(t *testing.T) {
	dc := newTestDevice(t)
	p, err := PatternFromEntries(2, 2, [][2]int{{0, 1}, {1, 0}})
	require.NoError(t, err)
	s, err := SparseFromValues(dc, p, 1, []float64{2, 3})
	require.NoError(t, err)

	neg, err := CwiseNegate[float64](s)
	require.NoError(t, err)
	require.Equal(t, KindSparse, neg.Kind())
	require.Same(t, p, neg.Pattern())
	require.Equal(t, [][][]float64{{{0, -2}, {-3, 0}}}, evalRows[float64](t, dc, neg))

	cos, err := CwiseCos[float64](s)
	require.NoError(t, err)
	require.Equal(t, [][][]float64{{{0, math.Cos(2)}, {math.Cos(3), 0}}}, evalRows[float64](t, dc, cos))
	require.Equal(t, 0.0, cos.Coeff(0, 0, 0))

	m := mustRows(t, dc, [][][]float64{{{1}}})
	dense, err := CwiseNegate[float64](m)
	require.NoError(t, err)
	require.Equal(t, KindCwise, dense.Kind())
	require.Nil(t, dense.Pattern())
}
