// Package csrfile stores batched CSR matrices at rest: a compact binary
// container that is memory-mapped for reading, and a JSON document form for
// interchange.
package csrfile

import (
	"fmt"

	"github.com/samcharles93/mateval/internal/device"
	"github.com/samcharles93/mateval/internal/mat"
)

// Element is the set of value types the binary container encodes.
type Element interface {
	float32 | float64 | int32 | int64 | complex64 | complex128
}

// Matrix is the host-side form of a batched CSR matrix. Values are laid out
// as nnz*batch + position.
type Matrix[T Element] struct {
	Rows, Cols, Batches int
	Outer, Inner        []int32
	Values              []T
}

func (m *Matrix[T]) NNZ() int {
	return len(m.Inner)
}

// Validate checks that the slice lengths agree with the shape. The CSR
// structure itself is validated when the pattern is built.
func (m *Matrix[T]) Validate() error {
	if m.Rows < 0 || m.Cols < 0 || m.Batches < 0 {
		return fmt.Errorf("%w: negative shape %dx%dx%d", mat.ErrArgument, m.Rows, m.Cols, m.Batches)
	}
	if len(m.Outer) != m.Rows+1 {
		return fmt.Errorf("%w: %d outer offsets for %d rows", mat.ErrArgument, len(m.Outer), m.Rows)
	}
	if len(m.Values) != m.NNZ()*m.Batches {
		return fmt.Errorf("%w: %d values for nnz %d and %d batches", mat.ErrArgument, len(m.Values), m.NNZ(), m.Batches)
	}
	return nil
}

// Pattern builds and validates the sparsity pattern.
func (m *Matrix[T]) Pattern() (*mat.SparsityPattern, error) {
	return mat.NewPattern(m.Rows, m.Cols, m.Outer, m.Inner)
}

// ToSparse uploads m to dc.
func ToSparse[T Element](dc *device.Context, m *Matrix[T]) (*mat.SparseMatrix[T], error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	p, err := m.Pattern()
	if err != nil {
		return nil, err
	}
	return mat.SparseFromValues(dc, p, m.Batches, m.Values)
}

// FromSparse reads s back to the host.
func FromSparse[T Element](s *mat.SparseMatrix[T]) (*Matrix[T], error) {
	values, err := s.Values()
	if err != nil {
		return nil, err
	}
	p := s.Pattern()
	return &Matrix[T]{
		Rows:    p.Rows(),
		Cols:    p.Cols(),
		Batches: s.Batches(),
		Outer:   append([]int32(nil), p.Outer()...),
		Inner:   append([]int32(nil), p.Inner()...),
		Values:  values,
	}, nil
}

// ScalarOf returns the container code for T.
func ScalarOf[T Element]() ScalarType {
	switch any(*new(T)).(type) {
	case float32:
		return ScalarFloat32
	case float64:
		return ScalarFloat64
	case int32:
		return ScalarInt32
	case int64:
		return ScalarInt64
	case complex64:
		return ScalarComplex64
	default:
		return ScalarComplex128
	}
}
