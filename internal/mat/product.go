package mat

import (
	"fmt"

	"github.com/samcharles93/mateval/internal/device"
)

// ArgOp is the transformation applied to a product argument or to the
// product result.
type ArgOp int

const (
	ArgNone ArgOp = iota
	ArgTransposed
	ArgConjugated
	ArgAdjoint
)

var argOps = [...]ArgOp{ArgNone, ArgTransposed, ArgConjugated, ArgAdjoint}

func (o ArgOp) transposed() bool { return o == ArgTransposed || o == ArgAdjoint }
func (o ArgOp) conjugated() bool { return o == ArgConjugated || o == ArgAdjoint }

// then composes o with a later transformation.
func (o ArgOp) then(next ArgOp) ArgOp {
	t := o.transposed() != next.transposed()
	c := o.conjugated() != next.conjugated()
	switch {
	case t && c:
		return ArgAdjoint
	case t:
		return ArgTransposed
	case c:
		return ArgConjugated
	}
	return ArgNone
}

func (o ArgOp) String() string {
	switch o {
	case ArgTransposed:
		return "T"
	case ArgConjugated:
		return "C"
	case ArgAdjoint:
		return "H"
	}
	return "N"
}

type productOpts struct {
	left, right, dst ArgOp
}

// ProductArg sets a transformation on one side of a product.
type ProductArg func(*productOpts)

// LeftOp transforms the left argument.
func LeftOp(op ArgOp) ProductArg { return func(o *productOpts) { o.left = o.left.then(op) } }

// RightOp transforms the right argument.
func RightOp(op ArgOp) ProductArg { return func(o *productOpts) { o.right = o.right.then(op) } }

// DstOp transforms the product result.
func DstOp(op ArgOp) ProductArg { return func(o *productOpts) { o.dst = o.dst.then(op) } }

// ProductOp is the batched matrix product op(left)·op(right), optionally
// transformed as a whole. Batches broadcast: an argument with one batch is
// reused for every batch of the other.
type ProductOp[T Number] struct {
	left, right Expr[T]
	ops         productOpts
	rows, cols  int
	inner       int
	batches     int
	sizes       Sizes
	conj        func(T) T
}

// Product builds op(left)·op(right). Runtime extents are validated here;
// static operand requirements are checked when the product is assigned.
func Product[T Number](left, right Expr[T], args ...ProductArg) (*ProductOp[T], error) {
	var o productOpts
	for _, a := range args {
		a(&o)
	}
	if left.Context() != right.Context() {
		return nil, argumentf("product operands live on different device contexts")
	}
	lr, lc := opShape(left.Rows(), left.Cols(), o.left)
	rr, rc := opShape(right.Rows(), right.Cols(), o.right)
	if lc != rr {
		return nil, shapeMismatchf("product inner extents %d and %d differ", lc, rr)
	}
	lb, rb := left.Batches(), right.Batches()
	var batches int
	switch {
	case lb == 1:
		batches = rb
	case rb == 1, lb == rb:
		batches = lb
	default:
		return nil, shapeMismatchf("product batch counts %d and %d differ", lb, rb)
	}
	ls, rs := left.Sizes(), right.Sizes()
	srows, _ := opDims(ls.Rows, ls.Cols, o.left)
	_, scols := opDims(rs.Rows, rs.Cols, o.right)
	rows, cols := lr, rc
	if o.dst.transposed() {
		rows, cols = cols, rows
		srows, scols = scols, srows
	}
	return &ProductOp[T]{
		left:    left,
		right:   right,
		ops:     o,
		rows:    rows,
		cols:    cols,
		inner:   lc,
		batches: batches,
		sizes:   Sizes{Rows: srows, Cols: scols, Batches: mergeBatches(ls.Batches, rs.Batches)},
		conj:    conjugator[T](),
	}, nil
}

func opShape(rows, cols int, op ArgOp) (int, int) {
	if op.transposed() {
		return cols, rows
	}
	return rows, cols
}

func opDims(rows, cols Dim, op ArgOp) (Dim, Dim) {
	if op.transposed() {
		return cols, rows
	}
	return rows, cols
}

func (p *ProductOp[T]) Rows() int                { return p.rows }
func (p *ProductOp[T]) Cols() int                { return p.cols }
func (p *ProductOp[T]) Batches() int             { return p.batches }
func (p *ProductOp[T]) Sizes() Sizes             { return p.sizes }
func (p *ProductOp[T]) Kind() Kind               { return KindCwise }
func (p *ProductOp[T]) Context() *device.Context { return p.left.Context() }
func (p *ProductOp[T]) Left() Expr[T]            { return p.left }
func (p *ProductOp[T]) Right() Expr[T]           { return p.right }

// Transpose returns the transposed product without evaluating anything.
func (p *ProductOp[T]) Transpose() *ProductOp[T] { return p.withDst(ArgTransposed) }

// Conjugate returns the conjugated product.
func (p *ProductOp[T]) Conjugate() *ProductOp[T] { return p.withDst(ArgConjugated) }

// Adjoint returns the conjugate transpose of the product.
func (p *ProductOp[T]) Adjoint() *ProductOp[T] { return p.withDst(ArgAdjoint) }

func (p *ProductOp[T]) withDst(op ArgOp) *ProductOp[T] {
	q := *p
	q.ops.dst = p.ops.dst.then(op)
	if op.transposed() {
		q.rows, q.cols = p.cols, p.rows
		q.sizes.Rows, q.sizes.Cols = p.sizes.Cols, p.sizes.Rows
	}
	return &q
}

// Coeff evaluates one output coefficient as a dot product over the inner
// extent.
func (p *ProductOp[T]) Coeff(row, col, batch int) T {
	if p.ops.dst.transposed() {
		row, col = col, row
	}
	lb, rb := batch, batch
	if p.left.Batches() == 1 {
		lb = 0
	}
	if p.right.Batches() == 1 {
		rb = 0
	}
	var acc T
	for k := 0; k < p.inner; k++ {
		acc += p.arg(p.left, p.ops.left, row, k, lb) * p.arg(p.right, p.ops.right, k, col, rb)
	}
	if p.ops.dst.conjugated() {
		acc = p.conj(acc)
	}
	return acc
}

func (p *ProductOp[T]) arg(e Expr[T], op ArgOp, row, col, batch int) T {
	if op.transposed() {
		row, col = col, row
	}
	v := e.Coeff(row, col, batch)
	if op.conjugated() {
		v = p.conj(v)
	}
	return v
}

func (p *ProductOp[T]) String() string {
	return fmt.Sprintf("Product[%s%s->%s](%s, %s)", p.ops.left, p.ops.right, p.ops.dst, p.left, p.right)
}

// productInfo is the static description of a product the dispatcher keys
// on.
type productInfo struct {
	left, right           Kind
	leftOp, rightOp       ArgOp
	dstOp                 ArgOp
	leftSizes, rightSizes Sizes
}

// productEvaluator is implemented by ProductOp for every Number type, which
// lets the Scalar-typed dispatcher reach the arithmetic kernels.
type productEvaluator[T Scalar] interface {
	productInfo() productInfo
	csrMatVec(dst Writable[T], comb func(old, v T) T) error
}

func (p *ProductOp[T]) productInfo() productInfo {
	return productInfo{
		left:       p.left.Kind().operand(),
		right:      p.right.Kind().operand(),
		leftOp:     p.ops.left,
		rightOp:    p.ops.right,
		dstOp:      p.ops.dst,
		leftSizes:  p.left.Sizes(),
		rightSizes: p.right.Sizes(),
	}
}

func (p *ProductOp[T]) csrMatVec(dst Writable[T], comb func(old, v T) T) error {
	return csrMatVec(p, dst, comb)
}
