package mat

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/samcharles93/mateval/internal/device"
)

// UnaryFunc names an elementwise map.
type UnaryFunc int

const (
	Negate UnaryFunc = iota
	Abs
	Inverse
	Exp
	Log
	Log1p
	Log10
	Sqrt
	Rsqrt
	Cbrt
	Rcbrt
	Sin
	Cos
	Tan
	Asin
	Acos
	Atan
	Sinh
	Cosh
	Tanh
	Asinh
	Acosh
	Atanh
	Ceil
	Floor
	Round
)

// unaryDef holds one functor per element family. A nil entry means the
// functor is undefined for that family.
type unaryDef struct {
	name    string
	real    func(float64) float64
	cplx    func(complex128) complex128
	integer func(int64) int64
}

func identity(v int64) int64 { return v }

var unaryDefs = [...]unaryDef{
	Negate: {
		name:    "negate",
		real:    func(v float64) float64 { return -v },
		cplx:    func(v complex128) complex128 { return -v },
		integer: func(v int64) int64 { return -v },
	},
	Abs: {
		name:    "abs",
		real:    math.Abs,
		cplx:    func(v complex128) complex128 { return complex(cmplx.Abs(v), 0) },
		integer: func(v int64) int64 { return max(v, -v) },
	},
	Inverse: {
		name: "inverse",
		real: func(v float64) float64 { return 1 / v },
		cplx: func(v complex128) complex128 { return 1 / v },
	},
	Exp:   {name: "exp", real: math.Exp, cplx: cmplx.Exp},
	Log:   {name: "log", real: math.Log, cplx: cmplx.Log},
	Log1p: {name: "log1p", real: math.Log1p, cplx: func(v complex128) complex128 { return cmplx.Log(1 + v) }},
	Log10: {name: "log10", real: math.Log10, cplx: cmplx.Log10},
	Sqrt:  {name: "sqrt", real: math.Sqrt, cplx: cmplx.Sqrt},
	Rsqrt: {
		name: "rsqrt",
		real: func(v float64) float64 { return 1 / math.Sqrt(v) },
		cplx: func(v complex128) complex128 { return 1 / cmplx.Sqrt(v) },
	},
	Cbrt:  {name: "cbrt", real: math.Cbrt},
	Rcbrt: {name: "rcbrt", real: func(v float64) float64 { return 1 / math.Cbrt(v) }},
	Sin:   {name: "sin", real: math.Sin, cplx: cmplx.Sin},
	Cos:   {name: "cos", real: math.Cos, cplx: cmplx.Cos},
	Tan:   {name: "tan", real: math.Tan, cplx: cmplx.Tan},
	Asin:  {name: "asin", real: math.Asin, cplx: cmplx.Asin},
	Acos:  {name: "acos", real: math.Acos, cplx: cmplx.Acos},
	Atan:  {name: "atan", real: math.Atan, cplx: cmplx.Atan},
	Sinh:  {name: "sinh", real: math.Sinh, cplx: cmplx.Sinh},
	Cosh:  {name: "cosh", real: math.Cosh, cplx: cmplx.Cosh},
	Tanh:  {name: "tanh", real: math.Tanh, cplx: cmplx.Tanh},
	Asinh: {name: "asinh", real: math.Asinh, cplx: cmplx.Asinh},
	Acosh: {name: "acosh", real: math.Acosh, cplx: cmplx.Acosh},
	Atanh: {name: "atanh", real: math.Atanh, cplx: cmplx.Atanh},
	Ceil:  {name: "ceil", real: math.Ceil, integer: identity},
	Floor: {name: "floor", real: math.Floor, integer: identity},
	Round: {name: "round", real: math.Round, integer: identity},
}

func (f UnaryFunc) String() string {
	if f < 0 || int(f) >= len(unaryDefs) {
		return fmt.Sprintf("UnaryFunc(%d)", int(f))
	}
	return unaryDefs[f].name
}

// UnaryFuncs lists every elementwise map in declaration order.
func UnaryFuncs() []UnaryFunc {
	out := make([]UnaryFunc, len(unaryDefs))
	for i := range out {
		out[i] = UnaryFunc(i)
	}
	return out
}

// ParseUnaryFunc looks a functor up by name, case-insensitively.
func ParseUnaryFunc(name string) (UnaryFunc, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, d := range unaryDefs {
		if d.name == name {
			return UnaryFunc(i), nil
		}
	}
	return 0, argumentf("unknown unary function %q", name)
}

// resolveUnary binds f to element type T.
func resolveUnary[T Number](f UnaryFunc) (func(T) T, error) {
	if f < 0 || int(f) >= len(unaryDefs) {
		return nil, argumentf("unknown unary function %d", int(f))
	}
	d := unaryDefs[f]
	var fn any
	switch any(*new(T)).(type) {
	case float32:
		fn = func(v float32) float32 { return float32(d.real(float64(v))) }
	case float64:
		fn = d.real
	case complex64:
		if d.cplx != nil {
			fn = func(v complex64) complex64 { return complex64(d.cplx(complex128(v))) }
		}
	case complex128:
		if d.cplx != nil {
			fn = d.cplx
		}
	case int32:
		if d.integer != nil {
			fn = func(v int32) int32 { return int32(d.integer(int64(v))) }
		}
	case int64:
		if d.integer != nil {
			fn = d.integer
		}
	case int:
		if d.integer != nil {
			fn = func(v int) int { return int(d.integer(int64(v))) }
		}
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %s is not defined for %s", ErrConstraint, d.name, ScalarName[T]())
	}
	return fn.(func(T) T), nil
}

// UnaryOp applies an elementwise map to its child. Over a sparse child it is
// itself sparse and maps the stored coefficients only: structural zeros read
// as zero through every strategy, even when f(0) != 0.
type UnaryOp[T Number] struct {
	child Expr[T]
	fn    UnaryFunc
	apply func(T) T
}

// Unary builds f(child).
func Unary[T Number](f UnaryFunc, child Expr[T]) (*UnaryOp[T], error) {
	apply, err := resolveUnary[T](f)
	if err != nil {
		return nil, err
	}
	return &UnaryOp[T]{child: child, fn: f, apply: apply}, nil
}

func (u *UnaryOp[T]) Rows() int                { return u.child.Rows() }
func (u *UnaryOp[T]) Cols() int                { return u.child.Cols() }
func (u *UnaryOp[T]) Batches() int             { return u.child.Batches() }
func (u *UnaryOp[T]) Sizes() Sizes             { return u.child.Sizes() }
func (u *UnaryOp[T]) Context() *device.Context { return u.child.Context() }
func (u *UnaryOp[T]) Func() UnaryFunc          { return u.fn }

func (u *UnaryOp[T]) Kind() Kind {
	return u.child.Kind().operand()
}

func (u *UnaryOp[T]) Coeff(row, col, batch int) T {
	if p := u.Pattern(); p != nil {
		pos := p.Position(row, col)
		if pos < 0 {
			var zero T
			return zero
		}
		return u.SparseCoeff(row, col, batch, pos)
	}
	return u.apply(u.child.Coeff(row, col, batch))
}

// Pattern is the child's pattern, or nil when the child is not sparse.
func (u *UnaryOp[T]) Pattern() *SparsityPattern {
	if s, ok := u.child.(SparseSource[T]); ok && u.child.Kind() == KindSparse {
		return s.Pattern()
	}
	return nil
}

func (u *UnaryOp[T]) SparseCoeff(row, col, batch, pos int) T {
	return u.apply(u.child.(SparseSource[T]).SparseCoeff(row, col, batch, pos))
}

func (u *UnaryOp[T]) String() string {
	return fmt.Sprintf("%s(%s)", u.fn, u.child)
}

func CwiseNegate[T Number](e Expr[T]) (*UnaryOp[T], error) { return Unary(Negate, e) }
func CwiseAbs[T Number](e Expr[T]) (*UnaryOp[T], error)    { return Unary(Abs, e) }
func CwiseInverse[T Number](e Expr[T]) (*UnaryOp[T], error) { return Unary(Inverse, e) }
func CwiseExp[T Number](e Expr[T]) (*UnaryOp[T], error)   { return Unary(Exp, e) }
func CwiseLog[T Number](e Expr[T]) (*UnaryOp[T], error)   { return Unary(Log, e) }
func CwiseLog1p[T Number](e Expr[T]) (*UnaryOp[T], error) { return Unary(Log1p, e) }
func CwiseLog10[T Number](e Expr[T]) (*UnaryOp[T], error) { return Unary(Log10, e) }
func CwiseSqrt[T Number](e Expr[T]) (*UnaryOp[T], error)  { return Unary(Sqrt, e) }
func CwiseRsqrt[T Number](e Expr[T]) (*UnaryOp[T], error) { return Unary(Rsqrt, e) }
func CwiseCbrt[T Number](e Expr[T]) (*UnaryOp[T], error)  { return Unary(Cbrt, e) }
func CwiseRcbrt[T Number](e Expr[T]) (*UnaryOp[T], error) { return Unary(Rcbrt, e) }
func CwiseSin[T Number](e Expr[T]) (*UnaryOp[T], error)   { return Unary(Sin, e) }
func CwiseCos[T Number](e Expr[T]) (*UnaryOp[T], error)   { return Unary(Cos, e) }
func CwiseTan[T Number](e Expr[T]) (*UnaryOp[T], error)   { return Unary(Tan, e) }
func CwiseAsin[T Number](e Expr[T]) (*UnaryOp[T], error)  { return Unary(Asin, e) }
func CwiseAcos[T Number](e Expr[T]) (*UnaryOp[T], error)  { return Unary(Acos, e) }
func CwiseAtan[T Number](e Expr[T]) (*UnaryOp[T], error)  { return Unary(Atan, e) }
func CwiseSinh[T Number](e Expr[T]) (*UnaryOp[T], error)  { return Unary(Sinh, e) }
func CwiseCosh[T Number](e Expr[T]) (*UnaryOp[T], error)  { return Unary(Cosh, e) }
func CwiseTanh[T Number](e Expr[T]) (*UnaryOp[T], error)  { return Unary(Tanh, e) }
func CwiseAsinh[T Number](e Expr[T]) (*UnaryOp[T], error) { return Unary(Asinh, e) }
func CwiseAcosh[T Number](e Expr[T]) (*UnaryOp[T], error) { return Unary(Acosh, e) }
func CwiseAtanh[T Number](e Expr[T]) (*UnaryOp[T], error) { return Unary(Atanh, e) }
func CwiseCeil[T Number](e Expr[T]) (*UnaryOp[T], error)  { return Unary(Ceil, e) }
func CwiseFloor[T Number](e Expr[T]) (*UnaryOp[T], error) { return Unary(Floor, e) }
func CwiseRound[T Number](e Expr[T]) (*UnaryOp[T], error) { return Unary(Round, e) }
