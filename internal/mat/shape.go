package mat

import (
	"fmt"
	"strconv"
)

// Dim is one axis of a size descriptor: either a fixed positive extent or
// Dynamic, in which case the extent is only known at run time.
type Dim int

// Dynamic marks an axis whose extent is resolved at construction.
const Dynamic Dim = -1

// Static returns a fixed axis of extent n. n must be positive; Sizes.Validate
// rejects anything else.
func Static(n int) Dim {
	return Dim(n)
}

func (d Dim) IsDynamic() bool {
	return d == Dynamic
}

// Is reports whether d is the fixed extent n.
func (d Dim) Is(n int) bool {
	return d != Dynamic && int(d) == n
}

func (d Dim) accepts(n int) bool {
	return d == Dynamic || int(d) == n
}

func (d Dim) String() string {
	if d == Dynamic {
		return "Dynamic"
	}
	return strconv.Itoa(int(d))
}

// Sizes is the static size descriptor of an operand.
type Sizes struct {
	Rows, Cols, Batches Dim
}

// DynamicSizes leaves every axis to run time.
var DynamicSizes = Sizes{Rows: Dynamic, Cols: Dynamic, Batches: Dynamic}

// Validate checks that each axis is Dynamic or positive.
func (s Sizes) Validate() error {
	for _, d := range s.axes() {
		if d != Dynamic && d <= 0 {
			return argumentf("static size %s must be positive or Dynamic", s)
		}
	}
	return nil
}

// check verifies that the runtime shape agrees with every fixed axis.
func (s Sizes) check(sh Shape) error {
	if !s.Rows.accepts(sh.Rows) || !s.Cols.accepts(sh.Cols) || !s.Batches.accepts(sh.Batches) {
		return argumentf("shape %s does not match static sizes %s", sh, s)
	}
	return nil
}

func (s Sizes) axes() [3]Dim {
	return [3]Dim{s.Rows, s.Cols, s.Batches}
}

func (s Sizes) String() string {
	return fmt.Sprintf("<%s,%s,%s>", s.Rows, s.Cols, s.Batches)
}

// mergeBatches gives the static batch count of a binary operation with
// batch broadcasting.
func mergeBatches(a, b Dim) Dim {
	switch {
	case a.Is(1):
		return b
	case b.Is(1):
		return a
	case a != Dynamic:
		return a
	default:
		return b
	}
}

// Order is the storage order. It changes linear indexing only, never the
// logical meaning of (row, col, batch).
type Order int

const (
	ColumnMajor Order = iota
	RowMajor
)

func (o Order) String() string {
	if o == RowMajor {
		return "RowMajor"
	}
	return "ColumnMajor"
}

// Shape is the runtime extent of an operand.
type Shape struct {
	Rows, Cols, Batches int
}

// Size is the number of addressable elements.
func (s Shape) Size() int {
	return s.Rows * s.Cols * s.Batches
}

// Index maps a coordinate to the linear storage index. Batches are always
// outermost.
func (s Shape) Index(row, col, batch int, o Order) int {
	if o == RowMajor {
		return (batch*s.Rows+row)*s.Cols + col
	}
	return (batch*s.Cols+col)*s.Rows + row
}

// Coords is the inverse of Index.
func (s Shape) Coords(index int, o Order) (row, col, batch int) {
	if o == RowMajor {
		col = index % s.Cols
		index /= s.Cols
		row = index % s.Rows
		batch = index / s.Rows
		return row, col, batch
	}
	row = index % s.Rows
	index /= s.Rows
	col = index % s.Cols
	batch = index / s.Cols
	return row, col, batch
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Rows, s.Cols, s.Batches)
}

func (s Shape) validate() error {
	if s.Rows < 0 || s.Cols < 0 || s.Batches < 0 {
		return argumentf("negative extent in shape %s", s)
	}
	return nil
}
