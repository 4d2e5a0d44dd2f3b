package mat

import (
	"fmt"

	"github.com/samcharles93/mateval/internal/device"
)

// Matrix is a dense batched matrix owning a device buffer.
type Matrix[T Scalar] struct {
	dc    *device.Context
	buf   *device.Buffer[T]
	shape Shape
	sizes Sizes
	order Order
}

type options struct {
	sizes *Sizes
	order Order
}

// Option configures a dense matrix at construction.
type Option func(*options)

// WithSizes fixes axes of the static size descriptor. Fixed axes must match
// the runtime shape.
func WithSizes(s Sizes) Option {
	return func(o *options) { o.sizes = &s }
}

// WithOrder selects the storage order. The default is ColumnMajor.
func WithOrder(order Order) Option {
	return func(o *options) { o.order = order }
}

// New allocates a zero-filled rows×cols×batches matrix on dc.
func New[T Scalar](dc *device.Context, rows, cols, batches int, opts ...Option) (*Matrix[T], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	shape := Shape{Rows: rows, Cols: cols, Batches: batches}
	if err := shape.validate(); err != nil {
		return nil, err
	}
	sizes := DynamicSizes
	if o.sizes != nil {
		sizes = *o.sizes
	}
	if err := sizes.Validate(); err != nil {
		return nil, err
	}
	if err := sizes.check(shape); err != nil {
		return nil, err
	}
	buf, err := device.Alloc[T](dc, shape.Size())
	if err != nil {
		return nil, err
	}
	return &Matrix[T]{dc: dc, buf: buf, shape: shape, sizes: sizes, order: o.order}, nil
}

// NewVector allocates a column vector: static one column and static batches.
func NewVector[T Scalar](dc *device.Context, rows, batches int, opts ...Option) (*Matrix[T], error) {
	sizes := Sizes{Rows: Dynamic, Cols: Static(1), Batches: batchDim(batches)}
	return New[T](dc, rows, 1, batches, append([]Option{WithSizes(sizes)}, opts...)...)
}

// NewRowVector allocates a row vector: static one row and static batches.
func NewRowVector[T Scalar](dc *device.Context, cols, batches int, opts ...Option) (*Matrix[T], error) {
	sizes := Sizes{Rows: Static(1), Cols: Dynamic, Batches: batchDim(batches)}
	return New[T](dc, 1, cols, batches, append([]Option{WithSizes(sizes)}, opts...)...)
}

// VectorFromSlice is NewVector followed by an upload of data, batch after
// batch.
func VectorFromSlice[T Scalar](dc *device.Context, rows, batches int, data []T) (*Matrix[T], error) {
	sizes := Sizes{Rows: Dynamic, Cols: Static(1), Batches: batchDim(batches)}
	return FromSlice(dc, rows, 1, batches, data, WithSizes(sizes))
}

// RowVectorFromSlice is NewRowVector followed by an upload of data.
func RowVectorFromSlice[T Scalar](dc *device.Context, cols, batches int, data []T) (*Matrix[T], error) {
	sizes := Sizes{Rows: Static(1), Cols: Dynamic, Batches: batchDim(batches)}
	return FromSlice(dc, 1, cols, batches, data, WithSizes(sizes))
}

func batchDim(batches int) Dim {
	if batches > 0 {
		return Static(batches)
	}
	return Dynamic
}

// FromSlice allocates a matrix and schedules the upload of data, which is
// laid out in the matrix's storage order.
func FromSlice[T Scalar](dc *device.Context, rows, cols, batches int, data []T, opts ...Option) (*Matrix[T], error) {
	m, err := New[T](dc, rows, cols, batches, opts...)
	if err != nil {
		return nil, err
	}
	if len(data) != m.shape.Size() {
		m.Free()
		return nil, argumentf("%d values for shape %s", len(data), m.shape)
	}
	if err := m.buf.CopyFromHostAsync(data); err != nil {
		m.Free()
		return nil, err
	}
	return m, nil
}

// FromRows builds a matrix from data[batch][row][col]. Every batch must have
// the same number of rows and every row the same number of columns.
func FromRows[T Scalar](dc *device.Context, data [][][]T, opts ...Option) (*Matrix[T], error) {
	batches := len(data)
	rows, cols := 0, 0
	if batches > 0 {
		rows = len(data[0])
		if rows > 0 {
			cols = len(data[0][0])
		}
	}
	m, err := New[T](dc, rows, cols, batches, opts...)
	if err != nil {
		return nil, err
	}
	flat := make([]T, m.shape.Size())
	for b, batch := range data {
		if len(batch) != rows {
			m.Free()
			return nil, argumentf("batch %d has %d rows, want %d", b, len(batch), rows)
		}
		for r, row := range batch {
			if len(row) != cols {
				m.Free()
				return nil, argumentf("batch %d row %d has %d columns, want %d", b, r, len(row), cols)
			}
			for c, v := range row {
				flat[m.shape.Index(r, c, b, m.order)] = v
			}
		}
	}
	if err := m.buf.CopyFromHostAsync(flat); err != nil {
		m.Free()
		return nil, err
	}
	return m, nil
}

func (m *Matrix[T]) Rows() int                { return m.shape.Rows }
func (m *Matrix[T]) Cols() int                { return m.shape.Cols }
func (m *Matrix[T]) Batches() int             { return m.shape.Batches }
func (m *Matrix[T]) Shape() Shape             { return m.shape }
func (m *Matrix[T]) Sizes() Sizes             { return m.sizes }
func (m *Matrix[T]) Kind() Kind               { return KindDense }
func (m *Matrix[T]) Order() Order             { return m.order }
func (m *Matrix[T]) Size() int                { return m.shape.Size() }
func (m *Matrix[T]) Context() *device.Context { return m.dc }

func (m *Matrix[T]) Coeff(row, col, batch int) T {
	return m.buf.Device()[m.shape.Index(row, col, batch, m.order)]
}

func (m *Matrix[T]) Coords(index int) (row, col, batch int) {
	return m.shape.Coords(index, m.order)
}

func (m *Matrix[T]) Index(row, col, batch int) int {
	return m.shape.Index(row, col, batch, m.order)
}

func (m *Matrix[T]) RawCoeff(index int) T {
	return m.buf.Device()[index]
}

func (m *Matrix[T]) SetRawCoeff(index int, v T) {
	m.buf.Device()[index] = v
}

func (m *Matrix[T]) String() string {
	return fmt.Sprintf("Matrix<%s>%s", ScalarName[T](), m.shape)
}

// ToSlice waits for pending work and returns the contents in storage order.
func (m *Matrix[T]) ToSlice() ([]T, error) {
	out := make([]T, m.shape.Size())
	if err := m.buf.CopyToHost(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToRows waits for pending work and returns the contents as
// out[batch][row][col].
func (m *Matrix[T]) ToRows() ([][][]T, error) {
	flat, err := m.ToSlice()
	if err != nil {
		return nil, err
	}
	out := make([][][]T, m.shape.Batches)
	for b := range out {
		out[b] = make([][]T, m.shape.Rows)
		for r := range out[b] {
			row := make([]T, m.shape.Cols)
			for c := range row {
				row[c] = flat[m.shape.Index(r, c, b, m.order)]
			}
			out[b][r] = row
		}
	}
	return out, nil
}

// At reads one coefficient from the host, after all pending work.
func (m *Matrix[T]) At(row, col, batch int) (T, error) {
	var v T
	if err := m.checkCoords(row, col, batch); err != nil {
		return v, err
	}
	idx := m.Index(row, col, batch)
	err := m.dc.Stream().Enqueue("read_coeff", func() error {
		v = m.buf.Device()[idx]
		return nil
	})
	if err != nil {
		return v, err
	}
	if err := m.dc.Synchronize(); err != nil {
		return v, err
	}
	return v, nil
}

// Set schedules a write of one coefficient.
func (m *Matrix[T]) Set(row, col, batch int, v T) error {
	if err := m.checkCoords(row, col, batch); err != nil {
		return err
	}
	idx := m.Index(row, col, batch)
	return m.dc.Stream().Enqueue("write_coeff", func() error {
		m.buf.Device()[idx] = v
		return nil
	})
}

func (m *Matrix[T]) checkCoords(row, col, batch int) error {
	if row < 0 || row >= m.shape.Rows || col < 0 || col >= m.shape.Cols || batch < 0 || batch >= m.shape.Batches {
		return argumentf("coordinate (%d,%d,%d) outside %s", row, col, batch, m.shape)
	}
	return nil
}

// Block returns a writable view of the given sub-range.
func (m *Matrix[T]) Block(startRow, startCol, startBatch, rows, cols, batches int) (*MutableBlock[T], error) {
	return MutableBlockOf[T](m, startRow, startCol, startBatch, rows, cols, batches)
}

// FixedBlock is Block with a static size descriptor. See FixedBlockOf.
func (m *Matrix[T]) FixedBlock(sizes Sizes, startRow, startCol, startBatch int, counts ...int) (*MutableBlock[T], error) {
	return FixedMutableBlockOf[T](m, sizes, startRow, startCol, startBatch, counts...)
}

// Free releases the matrix storage. Views of it must not be used afterwards.
func (m *Matrix[T]) Free() {
	m.buf.Free()
}
