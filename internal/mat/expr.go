// Package mat builds lazily evaluated, batched matrix expressions over
// device storage and assigns them into destinations.
//
// Every operand is addressed by (row, col, batch). Expressions are immutable
// trees; nothing is computed until Assign hands the tree to the strategy
// selected for its static descriptors, which then runs as a kernel on the
// destination's device stream.
package mat

import (
	"github.com/samcharles93/mateval/internal/device"
)

// Kind is the storage-kind tag of an operand.
type Kind int

const (
	// KindCwise is any expression readable coefficient by coefficient.
	KindCwise Kind = iota
	// KindDense is writable dense storage. As an operand it reads like
	// KindCwise.
	KindDense
	// KindSparse is CSR storage or an expression read through a pattern.
	KindSparse
)

func (k Kind) String() string {
	switch k {
	case KindDense:
		return "Dense"
	case KindSparse:
		return "Sparse"
	default:
		return "Cwise"
	}
}

// operand folds the dense tag into cwise for argument positions.
func (k Kind) operand() Kind {
	if k == KindSparse {
		return KindSparse
	}
	return KindCwise
}

// Expr is a readable operand. Coeff is a device-side read: it is only valid
// inside kernels or stream tasks of Context.
type Expr[T Scalar] interface {
	Rows() int
	Cols() int
	Batches() int
	Sizes() Sizes
	Kind() Kind
	Coeff(row, col, batch int) T
	Context() *device.Context
	String() string
}

// Writable is an assignable destination. Its Size slots are addressed by a
// linear index; Coords and Index translate between slots and coordinates.
// For sparse storage only stored entries have slots and Index returns -1 for
// structural zeros.
type Writable[T Scalar] interface {
	Expr[T]
	Order() Order
	Size() int
	Coords(index int) (row, col, batch int)
	Index(row, col, batch int) int
	RawCoeff(index int) T
	SetRawCoeff(index int, v T)
}

// SparseSource is implemented by sparse-kind operands: stored coefficients
// can be read by position in the pattern.
type SparseSource[T Scalar] interface {
	Expr[T]
	Pattern() *SparsityPattern
	SparseCoeff(row, col, batch, pos int) T
}

func shapeOf[T Scalar](e Expr[T]) Shape {
	return Shape{Rows: e.Rows(), Cols: e.Cols(), Batches: e.Batches()}
}
