package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mateval/internal/csrfile"
	"github.com/samcharles93/mateval/internal/device"
	"github.com/samcharles93/mateval/internal/logger"
	"github.com/samcharles93/mateval/internal/mat"
)

// spmvValue is the set of stored types the spmv command evaluates; vectors
// given on the command line are converted to it.
type spmvValue interface {
	float32 | float64 | int32 | int64
}

func spmvCmd() *cli.Command {
	var (
		matrixPath    string
		vectorArg     string
		vectorFile    string
		vectorBatches int
		modeName      string
		initialArg    string
		output        string
	)

	return &cli.Command{
		Name:  "spmv",
		Usage: "Multiply a stored CSR matrix by a dense vector",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "matrix",
				Aliases:     []string{"m"},
				Usage:       "CSR matrix (.csr container or .json document)",
				Required:    true,
				Destination: &matrixPath,
			},
			&cli.StringFlag{
				Name:        "vector",
				Aliases:     []string{"x"},
				Usage:       "comma separated vector values, batches concatenated",
				Destination: &vectorArg,
			},
			&cli.StringFlag{
				Name:        "vector-file",
				Usage:       "JSON array holding the vector values",
				Destination: &vectorFile,
			},
			&cli.IntFlag{
				Name:        "vector-batches",
				Usage:       "number of vector batches",
				Value:       1,
				Destination: &vectorBatches,
			},
			&cli.StringFlag{
				Name:        "mode",
				Usage:       "assignment mode (write, add, sub, mul, div)",
				Value:       "write",
				Destination: &modeName,
			},
			&cli.StringFlag{
				Name:        "initial",
				Usage:       "comma separated initial destination values for non-write modes",
				Destination: &initialArg,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &output,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mode, err := mat.ParseMode(modeName)
			if err != nil {
				return err
			}
			var vector []float64
			switch {
			case vectorFile != "":
				vector, err = readVectorFile(vectorFile)
			case vectorArg != "":
				vector, err = parseFloats(vectorArg)
			default:
				err = fmt.Errorf("one of --vector or --vector-file is required")
			}
			if err != nil {
				return err
			}
			initial, err := parseFloats(initialArg)
			if err != nil {
				return fmt.Errorf("--initial: %w", err)
			}

			job := spmvJob{vector: vector, vectorBatches: vectorBatches, mode: mode, initial: initial}
			res, err := runSpMVFile(ctx, matrixPath, job)
			if err != nil {
				return err
			}
			return printResult(os.Stdout, output, res)
		},
	}
}

type spmvJob struct {
	vector        []float64
	vectorBatches int
	mode          mat.Mode
	initial       []float64
}

// result is a dense evaluation result ready for printing.
type result struct {
	Type    string `json:"type"`
	Rows    int    `json:"rows"`
	Cols    int    `json:"cols"`
	Batches int    `json:"batches"`
	Values  any    `json:"values"`
}

// runSpMVFile loads the matrix at path in its stored type and evaluates it.
func runSpMVFile(ctx context.Context, path string, job spmvJob) (*result, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		doc, err := csrfile.ReadDocument(f)
		if err != nil {
			return nil, err
		}
		st, err := doc.ScalarType()
		if err != nil {
			return nil, err
		}
		if st == csrfile.ScalarFloat32 {
			m, err := csrfile.MatrixFromDocument[float32](doc)
			if err != nil {
				return nil, err
			}
			return spmv(ctx, m, job)
		}
		m, err := csrfile.MatrixFromDocument[float64](doc)
		if err != nil {
			return nil, err
		}
		return spmv(ctx, m, job)
	}

	f, err := csrfile.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	logger.FromContext(ctx).Debug("loaded csr container", "path", path, "header", f.Header.String())

	switch f.Header.Scalar {
	case csrfile.ScalarFloat32:
		return decodeAndRun[float32](ctx, f, job)
	case csrfile.ScalarFloat64:
		return decodeAndRun[float64](ctx, f, job)
	case csrfile.ScalarInt32:
		return decodeAndRun[int32](ctx, f, job)
	case csrfile.ScalarInt64:
		return decodeAndRun[int64](ctx, f, job)
	default:
		return nil, fmt.Errorf("spmv: %s matrices cannot take a command line vector", f.Header.Scalar)
	}
}

func decodeAndRun[T spmvValue](ctx context.Context, f *csrfile.File, job spmvJob) (*result, error) {
	m, err := csrfile.Decode[T](f)
	if err != nil {
		return nil, err
	}
	return spmv(ctx, m, job)
}

// spmv evaluates dst = m*x (or dst op= m*x) on the context's device.
func spmv[T spmvValue](ctx context.Context, host *csrfile.Matrix[T], job spmvJob) (*result, error) {
	dc := device.FromContext(ctx)
	vBatches := max(job.vectorBatches, 1)
	outBatches := max(host.Batches, vBatches)

	sm, err := csrfile.ToSparse(dc, host)
	if err != nil {
		return nil, err
	}
	defer sm.Free()

	vec, err := mat.VectorFromSlice(dc, host.Cols, vBatches, convert[T](job.vector))
	if err != nil {
		return nil, err
	}
	defer vec.Free()

	var dst *mat.Matrix[T]
	if len(job.initial) > 0 {
		dst, err = mat.VectorFromSlice(dc, host.Rows, outBatches, convert[T](job.initial))
	} else {
		dst, err = mat.NewVector[T](dc, host.Rows, outBatches)
	}
	if err != nil {
		return nil, err
	}
	defer dst.Free()

	prod, err := mat.Product[T](sm, vec)
	if err != nil {
		return nil, err
	}
	if err := mat.AssignMode[T](ctx, dst, prod, job.mode); err != nil {
		return nil, err
	}
	values, err := dst.ToSlice()
	if err != nil {
		return nil, err
	}
	return &result{
		Type:    mat.ScalarName[T](),
		Rows:    host.Rows,
		Cols:    1,
		Batches: outBatches,
		Values:  values,
	}, nil
}

func convert[T spmvValue](in []float64) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = T(v)
	}
	return out
}

// parseFloats splits a comma separated list. An empty string is an empty list.
func parseFloats(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func readVectorFile(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []float64
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

// printResult writes res as JSON or as one line per batch and row.
func printResult(w io.Writer, format string, res *result) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "text", "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	rows, err := rowsOf(res)
	if err != nil {
		return err
	}
	for b := range res.Batches {
		if res.Batches > 1 {
			if _, err := fmt.Fprintf(w, "batch %d:\n", b); err != nil {
				return err
			}
		}
		for r := range res.Rows {
			if _, err := fmt.Fprintln(w, strings.Join(rows[b*res.Rows+r], " ")); err != nil {
				return err
			}
		}
	}
	return nil
}

// rowsOf formats res.Values, stored row-major per batch, as text cells.
func rowsOf(res *result) ([][]string, error) {
	var cells []string
	switch v := res.Values.(type) {
	case []float32:
		cells = formatAll(v)
	case []float64:
		cells = formatAll(v)
	case []int32:
		cells = formatAll(v)
	case []int64:
		cells = formatAll(v)
	case []bool:
		cells = formatAll(v)
	default:
		return nil, fmt.Errorf("cannot print %T", res.Values)
	}
	if len(cells) != res.Rows*res.Cols*res.Batches {
		return nil, fmt.Errorf("result holds %d values, want %d", len(cells), res.Rows*res.Cols*res.Batches)
	}
	out := make([][]string, res.Rows*res.Batches)
	for i := range out {
		out[i] = cells[i*res.Cols : (i+1)*res.Cols]
	}
	return out, nil
}

func formatAll[T any](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = fmt.Sprint(v)
	}
	return out
}
