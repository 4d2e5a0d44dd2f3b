package mat

import (
	"github.com/samcharles93/mateval/internal/device"
)

// cwiseAssign runs one logical thread per destination slot. For sparse
// destinations only stored entries have slots, so no nonzeros are created.
func cwiseAssign[T Scalar](op string, dst Writable[T], src Expr[T], comb func(old, v T) T) error {
	dc := dst.Context()
	cfg := dc.LaunchConfig1D(dst.Size(), 0)
	if cfg.Empty() {
		return nil
	}
	return device.Launch(dc, op, cfg, func(t device.Thread) {
		t.Loop(func(i int) {
			row, col, batch := dst.Coords(i)
			dst.SetRawCoeff(i, comb(dst.RawCoeff(i), src.Coeff(row, col, batch)))
		})
	})
}

// csrMatVec runs one logical thread per output row. Each thread walks the
// row's stored entries once per batch; an operand with a single batch is
// reused for every batch. Rows without entries receive zero through the
// combinator.
func csrMatVec[T Number](p *ProductOp[T], dst Writable[T], comb func(old, v T) T) error {
	src := p.left.(SparseSource[T])
	pattern := src.Pattern()
	vec := p.right
	outer, inner := pattern.Outer(), pattern.Inner()
	batches := p.batches
	leftShared := p.left.Batches() == 1
	rightShared := vec.Batches() == 1

	dc := dst.Context()
	cfg := dc.LaunchConfig1D(pattern.Rows(), 0)
	if cfg.Empty() || batches == 0 {
		return nil
	}
	return device.Launch(dc, "csr_mat_vec", cfg, func(t device.Thread) {
		t.Loop(func(row int) {
			lo, hi := int(outer[row]), int(outer[row+1])
			for b := 0; b < batches; b++ {
				lb, rb := b, b
				if leftShared {
					lb = 0
				}
				if rightShared {
					rb = 0
				}
				var acc T
				for pos := lo; pos < hi; pos++ {
					col := int(inner[pos])
					acc += src.SparseCoeff(row, col, lb, pos) * vec.Coeff(col, 0, rb)
				}
				i := dst.Index(row, 0, b)
				dst.SetRawCoeff(i, comb(dst.RawCoeff(i), acc))
			}
		})
	})
}
