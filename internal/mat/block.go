package mat

import (
	"fmt"

	"github.com/samcharles93/mateval/internal/device"
)

// extent is a validated sub-range of a parent operand.
type extent struct {
	start [3]int
	count [3]int
	sizes Sizes
}

func (x extent) shape() Shape {
	return Shape{Rows: x.count[0], Cols: x.count[1], Batches: x.count[2]}
}

func dynamicExtent(parent Shape, sr, sc, sb, rows, cols, batches int) (extent, error) {
	x := extent{
		start: [3]int{sr, sc, sb},
		count: [3]int{rows, cols, batches},
		sizes: DynamicSizes,
	}
	return x, x.check(parent)
}

func staticExtent(parent Shape, sizes Sizes, sr, sc, sb int, counts []int) (extent, error) {
	if err := sizes.Validate(); err != nil {
		return extent{}, err
	}
	axes := sizes.axes()
	var count [3]int
	switch len(counts) {
	case 0:
		for i, d := range axes {
			if d.IsDynamic() {
				return extent{}, argumentf("dynamic axis %d of block %s needs an explicit count", i, sizes)
			}
			count[i] = int(d)
		}
	case 3:
		for i, d := range axes {
			if !d.accepts(counts[i]) {
				return extent{}, argumentf("block count %d on axis %d does not match static size %s", counts[i], i, d)
			}
			count[i] = counts[i]
		}
	default:
		return extent{}, argumentf("block takes 0 or 3 counts, got %d", len(counts))
	}
	x := extent{start: [3]int{sr, sc, sb}, count: count, sizes: sizes}
	return x, x.check(parent)
}

func (x extent) check(parent Shape) error {
	ext := [3]int{parent.Rows, parent.Cols, parent.Batches}
	for i := range ext {
		if x.start[i] < 0 {
			return argumentf("block start %v has a negative offset", x.start)
		}
		if x.count[i] < 0 {
			return argumentf("block count %v has a negative extent", x.count)
		}
		if x.start[i]+x.count[i] > ext[i] {
			return argumentf("block start %v count %v exceeds parent %s", x.start, x.count, parent)
		}
	}
	return nil
}

// compose expresses a sub-block of x in x's parent coordinates.
func (x extent) compose(inner extent) extent {
	out := inner
	for i := range out.start {
		out.start[i] += x.start[i]
	}
	return out
}

// Block is a read-only view of a sub-range of any expression.
type Block[T Scalar] struct {
	parent Expr[T]
	ext    extent
}

// BlockOf returns the sub-range of e starting at (startRow, startCol,
// startBatch) with the given extents. Extents may be zero.
func BlockOf[T Scalar](e Expr[T], startRow, startCol, startBatch, rows, cols, batches int) (*Block[T], error) {
	ext, err := dynamicExtent(shapeOf(e), startRow, startCol, startBatch, rows, cols, batches)
	if err != nil {
		return nil, err
	}
	return newBlock(e, ext), nil
}

// FixedBlockOf is BlockOf with a static size descriptor. Without counts
// every axis of sizes must be static; with three counts each must equal its
// static axis.
func FixedBlockOf[T Scalar](e Expr[T], sizes Sizes, startRow, startCol, startBatch int, counts ...int) (*Block[T], error) {
	ext, err := staticExtent(shapeOf(e), sizes, startRow, startCol, startBatch, counts)
	if err != nil {
		return nil, err
	}
	return newBlock(e, ext), nil
}

func newBlock[T Scalar](e Expr[T], ext extent) *Block[T] {
	switch p := e.(type) {
	case *Block[T]:
		return &Block[T]{parent: p.parent, ext: p.ext.compose(ext)}
	case *MutableBlock[T]:
		return &Block[T]{parent: p.root, ext: p.ext.compose(ext)}
	}
	return &Block[T]{parent: e, ext: ext}
}

func (b *Block[T]) Rows() int                { return b.ext.count[0] }
func (b *Block[T]) Cols() int                { return b.ext.count[1] }
func (b *Block[T]) Batches() int             { return b.ext.count[2] }
func (b *Block[T]) Sizes() Sizes             { return b.ext.sizes }
func (b *Block[T]) Kind() Kind               { return KindCwise }
func (b *Block[T]) Context() *device.Context { return b.parent.Context() }

func (b *Block[T]) Coeff(row, col, batch int) T {
	return b.parent.Coeff(row+b.ext.start[0], col+b.ext.start[1], batch+b.ext.start[2])
}

// Block returns a view of a sub-range of b, expressed directly on b's parent.
func (b *Block[T]) Block(startRow, startCol, startBatch, rows, cols, batches int) (*Block[T], error) {
	return BlockOf[T](b, startRow, startCol, startBatch, rows, cols, batches)
}

func (b *Block[T]) String() string {
	return fmt.Sprintf("Block(%s, start=%v, count=%v)", b.parent, b.ext.start, b.ext.count)
}

// MutableBlock is a writable view of a sub-range of dense storage. It
// shares the parent's scalar type and storage order and never owns memory.
type MutableBlock[T Scalar] struct {
	root Writable[T]
	ext  extent
}

// MutableBlockOf returns a writable view into dense storage w.
func MutableBlockOf[T Scalar](w Writable[T], startRow, startCol, startBatch, rows, cols, batches int) (*MutableBlock[T], error) {
	if err := checkDense(w); err != nil {
		return nil, err
	}
	ext, err := dynamicExtent(shapeOf[T](w), startRow, startCol, startBatch, rows, cols, batches)
	if err != nil {
		return nil, err
	}
	return newMutableBlock(w, ext), nil
}

// FixedMutableBlockOf is MutableBlockOf with a static size descriptor.
func FixedMutableBlockOf[T Scalar](w Writable[T], sizes Sizes, startRow, startCol, startBatch int, counts ...int) (*MutableBlock[T], error) {
	if err := checkDense(w); err != nil {
		return nil, err
	}
	ext, err := staticExtent(shapeOf[T](w), sizes, startRow, startCol, startBatch, counts)
	if err != nil {
		return nil, err
	}
	return newMutableBlock(w, ext), nil
}

func checkDense[T Scalar](w Writable[T]) error {
	if w.Kind() != KindDense {
		return argumentf("writable block of %s storage", w.Kind())
	}
	return nil
}

func newMutableBlock[T Scalar](w Writable[T], ext extent) *MutableBlock[T] {
	if p, ok := w.(*MutableBlock[T]); ok {
		return &MutableBlock[T]{root: p.root, ext: p.ext.compose(ext)}
	}
	return &MutableBlock[T]{root: w, ext: ext}
}

func (b *MutableBlock[T]) Rows() int                { return b.ext.count[0] }
func (b *MutableBlock[T]) Cols() int                { return b.ext.count[1] }
func (b *MutableBlock[T]) Batches() int             { return b.ext.count[2] }
func (b *MutableBlock[T]) Sizes() Sizes             { return b.ext.sizes }
func (b *MutableBlock[T]) Kind() Kind               { return KindDense }
func (b *MutableBlock[T]) Order() Order             { return b.root.Order() }
func (b *MutableBlock[T]) Size() int                { return b.ext.shape().Size() }
func (b *MutableBlock[T]) Context() *device.Context { return b.root.Context() }

// Start is the view's offset in its root storage.
func (b *MutableBlock[T]) Start() (row, col, batch int) {
	return b.ext.start[0], b.ext.start[1], b.ext.start[2]
}

func (b *MutableBlock[T]) Coeff(row, col, batch int) T {
	return b.root.Coeff(row+b.ext.start[0], col+b.ext.start[1], batch+b.ext.start[2])
}

func (b *MutableBlock[T]) Coords(index int) (row, col, batch int) {
	return b.ext.shape().Coords(index, b.root.Order())
}

func (b *MutableBlock[T]) Index(row, col, batch int) int {
	return b.ext.shape().Index(row, col, batch, b.root.Order())
}

func (b *MutableBlock[T]) RawCoeff(index int) T {
	return b.root.RawCoeff(b.rootIndex(index))
}

func (b *MutableBlock[T]) SetRawCoeff(index int, v T) {
	b.root.SetRawCoeff(b.rootIndex(index), v)
}

func (b *MutableBlock[T]) rootIndex(index int) int {
	r, c, k := b.Coords(index)
	return b.root.Index(r+b.ext.start[0], c+b.ext.start[1], k+b.ext.start[2])
}

// Block returns a writable view of a sub-range of b, expressed directly on
// b's root storage.
func (b *MutableBlock[T]) Block(startRow, startCol, startBatch, rows, cols, batches int) (*MutableBlock[T], error) {
	return MutableBlockOf[T](b, startRow, startCol, startBatch, rows, cols, batches)
}

func (b *MutableBlock[T]) String() string {
	return fmt.Sprintf("Block(%s, start=%v, count=%v)", b.root, b.ext.start, b.ext.count)
}
