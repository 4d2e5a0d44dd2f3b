package mat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShapeIndexing(t *testing.T) {
	t.Parallel()
	s := Shape{Rows: 3, Cols: 4, Batches: 2}
	require.Equal(t, 24, s.Size())
	require.Equal(t, 18, s.Index(1, 2, 1, RowMajor))
	require.Equal(t, 19, s.Index(1, 2, 1, ColumnMajor))

	for _, order := range []Order{RowMajor, ColumnMajor} {
		seen := make(map[int]bool)
		for b := 0; b < s.Batches; b++ {
			for r := 0; r < s.Rows; r++ {
				for c := 0; c < s.Cols; c++ {
					i := s.Index(r, c, b, order)
					require.False(t, seen[i], "%s index %d reused", order, i)
					seen[i] = true
					gr, gc, gb := s.Coords(i, order)
					require.Equal(t, [3]int{r, c, b}, [3]int{gr, gc, gb})
				}
			}
		}
		require.Len(t, seen, s.Size())
	}
}

func TestSizes(t *testing.T) {
	t.Parallel()
	s := Sizes{Rows: Dynamic, Cols: Static(1), Batches: Static(2)}
	require.NoError(t, s.Validate())
	require.Equal(t, "<Dynamic,1,2>", s.String())
	require.NoError(t, s.check(Shape{Rows: 7, Cols: 1, Batches: 2}))
	require.ErrorIs(t, s.check(Shape{Rows: 7, Cols: 2, Batches: 2}), ErrArgument)
	require.ErrorIs(t, Sizes{Rows: Static(0), Cols: Dynamic, Batches: Dynamic}.Validate(), ErrArgument)

	require.Equal(t, Static(3), mergeBatches(Static(1), Static(3)))
	require.Equal(t, Static(3), mergeBatches(Static(3), Dynamic))
	require.Equal(t, Dynamic, mergeBatches(Dynamic, Dynamic))
}

func TestNewRejectsStaticMismatch(t *testing.T) {
	dc := newTestDevice(t)
	_, err := New[float32](dc, 3, 2, 1, WithSizes(Sizes{Rows: Dynamic, Cols: Static(1), Batches: Dynamic}))
	require.ErrorIs(t, err, ErrArgument)

	_, err = New[float32](dc, -1, 2, 1)
	require.ErrorIs(t, err, ErrArgument)

	_, err = FromSlice(dc, 2, 2, 1, []float32{1, 2, 3})
	require.ErrorIs(t, err, ErrArgument)
}

func TestMatrixHostAccess(t *testing.T) {
	dc := newTestDevice(t)
	m, err := FromSlice(dc, 2, 3, 1, []int{1, 2, 3, 4, 5, 6}, WithOrder(RowMajor))
	require.NoError(t, err)

	v, err := m.At(1, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 4, v)

	require.NoError(t, m.Set(1, 0, 0, 40))
	rows, err := m.ToRows()
	require.NoError(t, err)
	require.Equal(t, [][][]int{{{1, 2, 3}, {40, 5, 6}}}, rows)

	_, err = m.At(2, 0, 0)
	require.ErrorIs(t, err, ErrArgument)
	require.ErrorIs(t, m.Set(0, 3, 0, 1), ErrArgument)
}

func TestFromRowsRejectsRaggedInput(t *testing.T) {
	dc := newTestDevice(t)
	_, err := FromRows(dc, [][][]float64{{{1, 2}, {3}}})
	require.ErrorIs(t, err, ErrArgument)
	_, err = FromRows(dc, [][][]float64{{{1, 2}}, {{1, 2}, {3, 4}}})
	require.ErrorIs(t, err, ErrArgument)
}
