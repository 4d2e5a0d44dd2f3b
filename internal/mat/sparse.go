package mat

import (
	"cmp"
	"fmt"
	"slices"
	"sort"

	"github.com/samcharles93/mateval/internal/device"
)

// SparsityPattern is a validated CSR structure: outer row offsets and inner
// column indices, sorted and unique within each row. It is immutable.
type SparsityPattern struct {
	rows, cols int
	outer      []int32
	inner      []int32
}

// NewPattern validates and adopts a CSR structure. The slices must not be
// modified afterwards.
func NewPattern(rows, cols int, outer, inner []int32) (*SparsityPattern, error) {
	if rows < 0 || cols < 0 {
		return nil, argumentf("negative pattern shape %dx%d", rows, cols)
	}
	if len(outer) != rows+1 {
		return nil, argumentf("outer has %d offsets, want rows+1 = %d", len(outer), rows+1)
	}
	if outer[0] != 0 {
		return nil, argumentf("outer must start at 0, got %d", outer[0])
	}
	if int(outer[rows]) != len(inner) {
		return nil, argumentf("outer ends at %d but inner has %d entries", outer[rows], len(inner))
	}
	for r := 0; r < rows; r++ {
		if outer[r+1] < outer[r] {
			return nil, argumentf("outer offsets decrease at row %d", r)
		}
	}
	for r := 0; r < rows; r++ {
		lo, hi := outer[r], outer[r+1]
		for p := lo; p < hi; p++ {
			c := inner[p]
			if c < 0 || int(c) >= cols {
				return nil, argumentf("column %d at position %d outside [0,%d)", c, p, cols)
			}
			if p > lo && inner[p-1] >= c {
				return nil, argumentf("columns of row %d are not strictly increasing", r)
			}
		}
	}
	return &SparsityPattern{rows: rows, cols: cols, outer: outer, inner: inner}, nil
}

// PatternFromEntries builds a pattern from (row, col) pairs in any order.
// Duplicates are rejected.
func PatternFromEntries(rows, cols int, entries [][2]int) (*SparsityPattern, error) {
	if rows < 0 || cols < 0 {
		return nil, argumentf("negative pattern shape %dx%d", rows, cols)
	}
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b [2]int) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})
	outer := make([]int32, rows+1)
	inner := make([]int32, 0, len(sorted))
	for i, e := range sorted {
		if e[0] < 0 || e[0] >= rows || e[1] < 0 || e[1] >= cols {
			return nil, argumentf("entry (%d,%d) outside %dx%d", e[0], e[1], rows, cols)
		}
		if i > 0 && sorted[i-1] == e {
			return nil, argumentf("duplicate entry (%d,%d)", e[0], e[1])
		}
		outer[e[0]+1]++
		inner = append(inner, int32(e[1]))
	}
	for r := 0; r < rows; r++ {
		outer[r+1] += outer[r]
	}
	return NewPattern(rows, cols, outer, inner)
}

func (p *SparsityPattern) Rows() int { return p.rows }
func (p *SparsityPattern) Cols() int { return p.cols }
func (p *SparsityPattern) NNZ() int  { return len(p.inner) }

// Outer returns the row offsets. Callers must not modify it.
func (p *SparsityPattern) Outer() []int32 { return p.outer }

// Inner returns the column indices. Callers must not modify it.
func (p *SparsityPattern) Inner() []int32 { return p.inner }

// Position returns the storage position of (row, col), or -1 for a
// structural zero.
func (p *SparsityPattern) Position(row, col int) int {
	lo, hi := int(p.outer[row]), int(p.outer[row+1])
	i, found := slices.BinarySearch(p.inner[lo:hi], int32(col))
	if !found {
		return -1
	}
	return lo + i
}

// Row returns the row holding storage position pos.
func (p *SparsityPattern) Row(pos int) int {
	// first row whose end offset is past pos
	return sort.Search(p.rows, func(r int) bool { return int(p.outer[r+1]) > pos })
}

// Equal reports whether two patterns describe the same structure.
func (p *SparsityPattern) Equal(o *SparsityPattern) bool {
	if p == o {
		return true
	}
	return p.rows == o.rows && p.cols == o.cols && slices.Equal(p.outer, o.outer) && slices.Equal(p.inner, o.inner)
}

func (p *SparsityPattern) String() string {
	return fmt.Sprintf("CSR(%dx%d, nnz=%d)", p.rows, p.cols, p.NNZ())
}

// SparseMatrix is a batched CSR matrix. All batches share one pattern; the
// value of position pos in batch b is stored at nnz*b + pos.
type SparseMatrix[T Scalar] struct {
	dc      *device.Context
	pattern *SparsityPattern
	buf     *device.Buffer[T]
	batches int
	sizes   Sizes
}

// NewSparse allocates zeroed values for pattern with the given batch count.
// The batch axis is static unless sizes say otherwise.
func NewSparse[T Scalar](dc *device.Context, pattern *SparsityPattern, batches int, opts ...Option) (*SparseMatrix[T], error) {
	if pattern == nil {
		return nil, argumentf("nil sparsity pattern")
	}
	if batches < 0 {
		return nil, argumentf("negative batch count %d", batches)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	sizes := Sizes{Rows: Dynamic, Cols: Dynamic, Batches: batchDim(batches)}
	if o.sizes != nil {
		sizes = *o.sizes
	}
	if err := sizes.Validate(); err != nil {
		return nil, err
	}
	shape := Shape{Rows: pattern.rows, Cols: pattern.cols, Batches: batches}
	if err := sizes.check(shape); err != nil {
		return nil, err
	}
	buf, err := device.Alloc[T](dc, pattern.NNZ()*batches)
	if err != nil {
		return nil, err
	}
	return &SparseMatrix[T]{dc: dc, pattern: pattern, buf: buf, batches: batches, sizes: sizes}, nil
}

// SparseFromValues allocates a sparse matrix and schedules the upload of
// values laid out as nnz*batch + position.
func SparseFromValues[T Scalar](dc *device.Context, pattern *SparsityPattern, batches int, values []T, opts ...Option) (*SparseMatrix[T], error) {
	m, err := NewSparse[T](dc, pattern, batches, opts...)
	if err != nil {
		return nil, err
	}
	if len(values) != m.Size() {
		m.Free()
		return nil, argumentf("%d values for nnz %d and %d batches", len(values), pattern.NNZ(), batches)
	}
	if err := m.buf.CopyFromHostAsync(values); err != nil {
		m.Free()
		return nil, err
	}
	return m, nil
}

func (m *SparseMatrix[T]) Rows() int                  { return m.pattern.rows }
func (m *SparseMatrix[T]) Cols() int                  { return m.pattern.cols }
func (m *SparseMatrix[T]) Batches() int               { return m.batches }
func (m *SparseMatrix[T]) Sizes() Sizes               { return m.sizes }
func (m *SparseMatrix[T]) Kind() Kind                 { return KindSparse }
func (m *SparseMatrix[T]) Order() Order               { return RowMajor }
func (m *SparseMatrix[T]) Size() int                  { return m.pattern.NNZ() * m.batches }
func (m *SparseMatrix[T]) Context() *device.Context   { return m.dc }
func (m *SparseMatrix[T]) Pattern() *SparsityPattern  { return m.pattern }
func (m *SparseMatrix[T]) RawCoeff(index int) T       { return m.buf.Device()[index] }
func (m *SparseMatrix[T]) SetRawCoeff(index int, v T) { m.buf.Device()[index] = v }

func (m *SparseMatrix[T]) Coeff(row, col, batch int) T {
	pos := m.pattern.Position(row, col)
	if pos < 0 {
		var zero T
		return zero
	}
	return m.buf.Device()[m.pattern.NNZ()*batch+pos]
}

func (m *SparseMatrix[T]) SparseCoeff(_, _, batch, pos int) T {
	return m.buf.Device()[m.pattern.NNZ()*batch+pos]
}

func (m *SparseMatrix[T]) Coords(index int) (row, col, batch int) {
	nnz := m.pattern.NNZ()
	pos := index % nnz
	return m.pattern.Row(pos), int(m.pattern.inner[pos]), index / nnz
}

func (m *SparseMatrix[T]) Index(row, col, batch int) int {
	pos := m.pattern.Position(row, col)
	if pos < 0 {
		return -1
	}
	return m.pattern.NNZ()*batch + pos
}

// Values waits for pending work and returns the stored values.
func (m *SparseMatrix[T]) Values() ([]T, error) {
	out := make([]T, m.Size())
	if err := m.buf.CopyToHost(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *SparseMatrix[T]) Free() {
	m.buf.Free()
}

func (m *SparseMatrix[T]) String() string {
	return fmt.Sprintf("SparseMatrix<%s>(%s, batches=%d)", ScalarName[T](), m.pattern, m.batches)
}

// SparseView reads an expression only at the positions of a pattern, which
// turns it into a sparse-kind operand.
type SparseView[T Scalar] struct {
	child   Expr[T]
	pattern *SparsityPattern
}

// SparseViewOf wraps child, whose rows and cols must match the pattern.
func SparseViewOf[T Scalar](child Expr[T], pattern *SparsityPattern) (*SparseView[T], error) {
	if pattern == nil {
		return nil, argumentf("nil sparsity pattern")
	}
	if child.Rows() != pattern.rows || child.Cols() != pattern.cols {
		return nil, argumentf("expression %dx%d does not match pattern %s", child.Rows(), child.Cols(), pattern)
	}
	return &SparseView[T]{child: child, pattern: pattern}, nil
}

func (v *SparseView[T]) Rows() int                 { return v.pattern.rows }
func (v *SparseView[T]) Cols() int                 { return v.pattern.cols }
func (v *SparseView[T]) Batches() int              { return v.child.Batches() }
func (v *SparseView[T]) Sizes() Sizes              { return v.child.Sizes() }
func (v *SparseView[T]) Kind() Kind                { return KindSparse }
func (v *SparseView[T]) Context() *device.Context  { return v.child.Context() }
func (v *SparseView[T]) Pattern() *SparsityPattern { return v.pattern }

func (v *SparseView[T]) Coeff(row, col, batch int) T {
	if v.pattern.Position(row, col) < 0 {
		var zero T
		return zero
	}
	return v.child.Coeff(row, col, batch)
}

func (v *SparseView[T]) SparseCoeff(row, col, batch, _ int) T {
	return v.child.Coeff(row, col, batch)
}

func (v *SparseView[T]) String() string {
	return fmt.Sprintf("SparseView(%s, %s)", v.child, v.pattern)
}
