package mat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samcharles93/mateval/internal/logger"
)

// Mode is how an assignment combines with the destination.
type Mode int

const (
	ModeWrite Mode = iota
	ModeAdd
	ModeSub
	ModeMul
	ModeDiv
)

var modes = [...]Mode{ModeWrite, ModeAdd, ModeSub, ModeMul, ModeDiv}

func (m Mode) String() string {
	switch m {
	case ModeAdd:
		return "add"
	case ModeSub:
		return "sub"
	case ModeMul:
		return "mul"
	case ModeDiv:
		return "div"
	}
	return "write"
}

// ParseMode accepts write, add, sub, mul and div.
func ParseMode(s string) (Mode, error) {
	for _, m := range modes {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, argumentf("unknown assignment mode %q", s)
}

// Strategy is the evaluation family selected for an assignment.
type Strategy int

const (
	StrategyUnsupported Strategy = iota
	// StrategyDenseCwise evaluates the source once per destination element.
	StrategyDenseCwise
	// StrategySparseOuterProduct evaluates a column-by-row product only at
	// the destination's stored entries.
	StrategySparseOuterProduct
	// StrategyCSRMatVec multiplies a CSR matrix by a dense vector, one
	// thread per row.
	StrategyCSRMatVec
	// StrategyDenseProduct evaluates a dense product once per destination
	// element.
	StrategyDenseProduct
)

func (s Strategy) String() string {
	switch s {
	case StrategyDenseCwise:
		return "dense_cwise"
	case StrategySparseOuterProduct:
		return "sparse_outer_product"
	case StrategyCSRMatVec:
		return "csr_mat_vec"
	case StrategyDenseProduct:
		return "dense_product"
	}
	return "unsupported"
}

// Key is the static description of an assignment. Non-product sources use
// Left for their kind and leave the product fields at their zero values.
type Key struct {
	Dst     Kind
	Product bool
	Left    Kind
	LeftOp  ArgOp
	Right   Kind
	RightOp ArgOp
	DstOp   ArgOp
	Mode    Mode
}

func (k Key) String() string {
	if !k.Product {
		return fmt.Sprintf("{%s %s= %s}", k.Dst, k.Mode, k.Left)
	}
	return fmt.Sprintf("{%s %s= (%s.%s * %s.%s).%s}", k.Dst, k.Mode, k.Left, k.LeftOp, k.Right, k.RightOp, k.DstOp)
}

type rule struct {
	name     string
	match    func(Key) bool
	strategy Strategy
	reason   string
}

var rules = []rule{
	{
		name:     "dense-cwise",
		match:    func(k Key) bool { return k.Dst == KindDense && !k.Product },
		strategy: StrategyDenseCwise,
	},
	{
		name:   "sparse-cwise",
		match:  func(k Key) bool { return k.Dst == KindSparse && !k.Product },
		reason: "a sparse destination can only be assigned an outer product",
	},
	{
		name: "csr-mat-vec",
		match: func(k Key) bool {
			return k.Dst == KindDense && k.Product && k.Left == KindSparse && k.Right == KindCwise &&
				k.LeftOp == ArgNone && k.RightOp == ArgNone && k.DstOp == ArgNone
		},
		strategy: StrategyCSRMatVec,
	},
	{
		name: "csr-transformed",
		match: func(k Key) bool {
			return k.Dst == KindDense && k.Product && k.Left == KindSparse && k.Right == KindCwise &&
				(k.LeftOp != ArgNone || k.RightOp != ArgNone || k.DstOp != ArgNone)
		},
		reason: "transposed or conjugated sparse products are not supported",
	},
	{
		name:   "sparse-right",
		match:  func(k Key) bool { return k.Product && k.Right == KindSparse },
		reason: "the right product operand cannot be sparse",
	},
	{
		name: "dense-product",
		match: func(k Key) bool {
			return k.Dst == KindDense && k.Product && k.Left == KindCwise && k.Right == KindCwise
		},
		strategy: StrategyDenseProduct,
	},
	{
		name: "sparse-outer-product",
		match: func(k Key) bool {
			return k.Dst == KindSparse && k.Product && k.Left == KindCwise && k.Right == KindCwise
		},
		strategy: StrategySparseOuterProduct,
	},
	{
		name: "sparse-by-sparse-source",
		match: func(k Key) bool {
			return k.Dst == KindSparse && k.Product && k.Left == KindSparse && k.Right == KindCwise
		},
		reason: "a sparse destination cannot be assigned a sparse-matrix product",
	},
}

// strategies maps every well-formed key to exactly one rule.
var strategies = buildStrategies()

// allKeys enumerates every key a Writable destination and an expression can
// produce.
func allKeys() []Key {
	var keys []Key
	for _, dst := range []Kind{KindDense, KindSparse} {
		for _, mode := range modes {
			for _, left := range []Kind{KindCwise, KindSparse} {
				keys = append(keys, Key{Dst: dst, Left: left, Mode: mode})
				for _, right := range []Kind{KindCwise, KindSparse} {
					for _, lop := range argOps {
						for _, rop := range argOps {
							for _, dop := range argOps {
								keys = append(keys, Key{
									Dst: dst, Product: true, Mode: mode,
									Left: left, LeftOp: lop, Right: right, RightOp: rop, DstOp: dop,
								})
							}
						}
					}
				}
			}
		}
	}
	return keys
}

func buildStrategies() map[Key]rule {
	table := make(map[Key]rule)
	for _, k := range allKeys() {
		var matched []string
		for _, r := range rules {
			if r.match(k) {
				matched = append(matched, r.name)
				table[k] = r
			}
		}
		if len(matched) != 1 {
			panic(fmt.Sprintf("mat: key %s matches rules %v, want exactly one", k, matched))
		}
	}
	return table
}

func keyOf[T Scalar](dst Writable[T], src Expr[T], mode Mode) (Key, *productInfo) {
	k := Key{Dst: dst.Kind(), Mode: mode}
	if p, ok := src.(productEvaluator[T]); ok {
		info := p.productInfo()
		k.Product = true
		k.Left, k.LeftOp = info.left, info.leftOp
		k.Right, k.RightOp = info.right, info.rightOp
		k.DstOp = info.dstOp
		return k, &info
	}
	k.Left = src.Kind().operand()
	return k, nil
}

// Resolve selects the strategy for dst = src under mode from static
// descriptors only. Unsupported combinations return a *ConstraintError.
func Resolve[T Scalar](dst Writable[T], src Expr[T], mode Mode) (Strategy, error) {
	key, info := keyOf(dst, src, mode)
	r, ok := strategies[key]
	if !ok {
		return StrategyUnsupported, &ConstraintError{Key: key, Reason: "destination must be dense or sparse storage"}
	}
	if r.strategy == StrategyUnsupported {
		return StrategyUnsupported, &ConstraintError{Key: key, Reason: r.reason}
	}
	if _, ok := combiner[T](mode); !ok {
		return StrategyUnsupported, &ConstraintError{
			Key:    key,
			Reason: fmt.Sprintf("mode %s is undefined for %s", mode, ScalarName[T]()),
		}
	}
	if reason := staticRequirement(r.strategy, info); reason != "" {
		return StrategyUnsupported, &ConstraintError{Key: key, Reason: reason}
	}
	return r.strategy, nil
}

func staticRequirement(s Strategy, info *productInfo) string {
	switch s {
	case StrategyCSRMatVec:
		if !info.rightSizes.Cols.Is(1) {
			return "the vector operand needs a static single column"
		}
		if info.leftSizes.Batches.IsDynamic() || info.rightSizes.Batches.IsDynamic() {
			return "sparse products need static batch counts"
		}
	case StrategySparseOuterProduct:
		_, innerLeft := opDims(info.leftSizes.Rows, info.leftSizes.Cols, info.leftOp)
		innerRight, _ := opDims(info.rightSizes.Rows, info.rightSizes.Cols, info.rightOp)
		if !innerLeft.Is(1) || !innerRight.Is(1) {
			return "an outer product needs a static column vector times a static row vector"
		}
	}
	return ""
}

// Assign evaluates dst = src.
func Assign[T Scalar](ctx context.Context, dst Writable[T], src Expr[T]) error {
	return AssignMode(ctx, dst, src, ModeWrite)
}

// AssignMode evaluates dst op= src. Constraint and shape errors are returned
// before anything is scheduled; kernel faults surface at the next
// synchronisation of the destination's context.
//
// The destination must not alias an operand of a product source.
func AssignMode[T Scalar](ctx context.Context, dst Writable[T], src Expr[T], mode Mode) error {
	strategy, err := Resolve(dst, src, mode)
	if err != nil {
		return err
	}
	if dst.Context() != src.Context() {
		return argumentf("destination and source live on different device contexts")
	}
	if ds, ss := shapeOf[T](dst), shapeOf(src); ds != ss {
		return shapeMismatchf("cannot assign %s %s to %s %s", ss, src, ds, dst)
	}
	comb, _ := combiner[T](mode)

	log := logger.FromContext(ctx)
	if log.Enabled(slog.LevelDebug) {
		log.Debug("evaluate assignment", "strategy", strategy.String(), "mode", mode.String(),
			"dst", dst.String(), "src", src.String())
	}

	switch strategy {
	case StrategyCSRMatVec:
		return src.(productEvaluator[T]).csrMatVec(dst, comb)
	default:
		return cwiseAssign(strategy.String(), dst, src, comb)
	}
}
