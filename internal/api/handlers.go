package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/mateval/internal/csrfile"
	"github.com/samcharles93/mateval/internal/mat"
	"github.com/samcharles93/mateval/internal/random"
)

func (s *Server) handleSpMV(c *echo.Context) error {
	ev, err := s.begin(c, "spmv")
	if ev == nil {
		return err
	}
	req, err := decodeJSON[SpMVRequest](c.Request().Body)
	if err != nil {
		return s.fail(c, ev, err)
	}
	mode := mat.ModeWrite
	if req.Mode != "" {
		if mode, err = mat.ParseMode(req.Mode); err != nil {
			return s.fail(c, ev, err)
		}
	}
	host, err := csrfile.MatrixFromDocument[float64](&req.Matrix)
	if err != nil {
		return s.fail(c, ev, err)
	}
	vBatches := req.VectorBatches
	if vBatches == 0 {
		vBatches = 1
	}
	if err := checkSize(host.Cols, 1, vBatches); err != nil {
		return s.fail(c, ev, err)
	}
	if err := checkSize(host.Rows, 1, max(host.Batches, vBatches)); err != nil {
		return s.fail(c, ev, err)
	}

	var out []float64
	outBatches := max(host.Batches, vBatches)
	err = s.run(ev, func() error {
		sm, err := csrfile.ToSparse(s.dc, host)
		if err != nil {
			return err
		}
		defer sm.Free()
		vec, err := mat.VectorFromSlice(s.dc, host.Cols, vBatches, req.Vector)
		if err != nil {
			return err
		}
		defer vec.Free()
		var dst *mat.Matrix[float64]
		if len(req.Initial) > 0 {
			dst, err = mat.VectorFromSlice(s.dc, host.Rows, outBatches, req.Initial)
		} else {
			dst, err = mat.NewVector[float64](s.dc, host.Rows, outBatches)
		}
		if err != nil {
			return err
		}
		defer dst.Free()
		prod, err := mat.Product[float64](sm, vec)
		if err != nil {
			return err
		}
		if err := mat.AssignMode[float64](ev.ctx, dst, prod, mode); err != nil {
			return err
		}
		out, err = dst.ToSlice()
		return err
	})
	if err != nil {
		return s.fail(c, ev, err)
	}
	return c.JSON(http.StatusOK, MatrixResponse{
		ID: ev.id, Rows: host.Rows, Cols: 1, Batches: outBatches, Values: out,
	})
}

func (s *Server) handleRandom(c *echo.Context) error {
	ev, err := s.begin(c, "random")
	if ev == nil {
		return err
	}
	req, err := decodeJSON[RandomRequest](c.Request().Body)
	if err != nil {
		return s.fail(c, ev, err)
	}
	if req.Batches == 0 {
		req.Batches = 1
	}
	if err := checkSize(req.Rows, req.Cols, req.Batches); err != nil {
		return s.fail(c, ev, err)
	}
	// An explicit seed, zero included, is always honoured.
	var seed uint64
	switch {
	case req.Seed != nil:
		seed = *req.Seed
	case s.seed != 0:
		seed = s.seed
	default:
		seed = uint64(s.clock().UnixNano())
	}

	var values any
	err = s.run(ev, func() error {
		g, err := random.New(s.dc, seed)
		if err != nil {
			return err
		}
		defer g.Close()
		switch req.Type {
		case "", "float64":
			values, err = fillRandom[float64](s, ev, g, req)
		case "float32":
			values, err = fillRandom[float32](s, ev, g, req)
		case "int32":
			values, err = fillRandom[int32](s, ev, g, req)
		case "int64":
			values, err = fillRandom[int64](s, ev, g, req)
		case "bool":
			values, err = fillRandom[bool](s, ev, g, req)
		default:
			err = newInvalidRequest(fmt.Sprintf("unsupported type %q", req.Type))
		}
		return err
	})
	if err != nil {
		return s.fail(c, ev, err)
	}
	return c.JSON(http.StatusOK, RandomResponse{
		MatrixResponse: MatrixResponse{ID: ev.id, Rows: req.Rows, Cols: req.Cols, Batches: req.Batches, Values: values},
		Seed:           seed,
	})
}

func fillRandom[T interface {
	float32 | float64 | int32 | int64 | bool
}](s *Server, ev *evaluation, g *random.Generator, req RandomRequest) ([]T, error) {
	m, err := mat.New[T](s.dc, req.Rows, req.Cols, req.Batches, mat.WithOrder(mat.RowMajor))
	if err != nil {
		return nil, err
	}
	defer m.Free()
	lo, hi := random.DefaultRange[T]()
	if req.Min != nil {
		lo = convert[T](*req.Min)
	}
	if req.Max != nil {
		hi = convert[T](*req.Max)
	}
	if err := random.FillUniform[T](ev.ctx, g, m, lo, hi); err != nil {
		return nil, err
	}
	return m.ToSlice()
}

// convert maps a JSON number onto T; bool ignores the value.
func convert[T float32 | float64 | int32 | int64 | bool](v float64) T {
	var out any
	switch any(*new(T)).(type) {
	case float32:
		out = float32(v)
	case float64:
		out = v
	case int32:
		out = int32(v)
	case int64:
		out = int64(v)
	case bool:
		out = v != 0
	}
	return out.(T)
}

func (s *Server) handleUnary(c *echo.Context) error {
	ev, err := s.begin(c, "unary")
	if ev == nil {
		return err
	}
	req, err := decodeJSON[UnaryRequest](c.Request().Body)
	if err != nil {
		return s.fail(c, ev, err)
	}
	fn, err := mat.ParseUnaryFunc(req.Op)
	if err != nil {
		return s.fail(c, ev, err)
	}
	if req.Batches == 0 {
		req.Batches = 1
	}
	if err := checkSize(req.Rows, req.Cols, req.Batches); err != nil {
		return s.fail(c, ev, err)
	}

	var (
		out   []float64
		shape mat.Shape
	)
	err = s.run(ev, func() error {
		src, err := mat.FromSlice(s.dc, req.Rows, req.Cols, req.Batches, req.Values, mat.WithOrder(mat.RowMajor))
		if err != nil {
			return err
		}
		defer src.Free()
		var arg mat.Expr[float64] = src
		if b := req.Block; b != nil {
			blk, err := src.Block(b.StartRow, b.StartCol, b.StartBatch, b.Rows, b.Cols, b.Batches)
			if err != nil {
				return err
			}
			arg = blk
		}
		op, err := mat.Unary(fn, arg)
		if err != nil {
			return err
		}
		shape = mat.Shape{Rows: op.Rows(), Cols: op.Cols(), Batches: op.Batches()}
		dst, err := mat.New[float64](s.dc, shape.Rows, shape.Cols, shape.Batches, mat.WithOrder(mat.RowMajor))
		if err != nil {
			return err
		}
		defer dst.Free()
		if err := mat.Assign[float64](ev.ctx, dst, op); err != nil {
			return err
		}
		out, err = dst.ToSlice()
		return err
	})
	if err != nil {
		return s.fail(c, ev, err)
	}
	return c.JSON(http.StatusOK, MatrixResponse{
		ID: ev.id, Rows: shape.Rows, Cols: shape.Cols, Batches: shape.Batches, Values: out,
	})
}

func (s *Server) handleOuter(c *echo.Context) error {
	ev, err := s.begin(c, "outer")
	if ev == nil {
		return err
	}
	req, err := decodeJSON[OuterRequest](c.Request().Body)
	if err != nil {
		return s.fail(c, ev, err)
	}
	rows, cols := len(req.Column), len(req.Row)
	if err := checkSize(rows, cols, 1); err != nil {
		return s.fail(c, ev, err)
	}
	pattern, err := mat.PatternFromEntries(rows, cols, req.Entries)
	if err != nil {
		return s.fail(c, ev, err)
	}

	var out []float64
	err = s.run(ev, func() error {
		colVec, err := mat.VectorFromSlice(s.dc, rows, 1, req.Column)
		if err != nil {
			return err
		}
		defer colVec.Free()
		rowVec, err := mat.RowVectorFromSlice(s.dc, cols, 1, req.Row)
		if err != nil {
			return err
		}
		defer rowVec.Free()
		dst, err := mat.NewSparse[float64](s.dc, pattern, 1)
		if err != nil {
			return err
		}
		defer dst.Free()
		prod, err := mat.Product[float64](colVec, rowVec)
		if err != nil {
			return err
		}
		if err := mat.Assign[float64](ev.ctx, dst, prod); err != nil {
			return err
		}
		out, err = dst.Values()
		return err
	})
	if err != nil {
		return s.fail(c, ev, err)
	}
	return c.JSON(http.StatusOK, SparseResponse{
		ID: ev.id, Rows: rows, Cols: cols,
		Outer: pattern.Outer(), Inner: pattern.Inner(), Values: out,
	})
}
