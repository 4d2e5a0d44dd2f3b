package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mateval/internal/device"
	"github.com/samcharles93/mateval/internal/logger"
	"github.com/samcharles93/mateval/internal/mat"
	"github.com/samcharles93/mateval/internal/random"
)

func randomCmd() *cli.Command {
	var (
		rows, cols, batches int
		typeName            string
		seed                uint64
		lo, hi              float64
		output              string
	)

	return &cli.Command{
		Name:  "random",
		Usage: "Fill a matrix with uniform random values",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "rows", Usage: "row count", Value: 1, Destination: &rows},
			&cli.IntFlag{Name: "cols", Usage: "column count", Value: 1, Destination: &cols},
			&cli.IntFlag{Name: "batches", Usage: "batch count", Value: 1, Destination: &batches},
			&cli.StringFlag{
				Name:        "type",
				Usage:       "element type (float32, float64, int32, int64, bool)",
				Value:       "float64",
				Destination: &typeName,
			},
			&cli.Uint64Flag{Name: "seed", Usage: "generator seed (0 = time-seeded)", Destination: &seed},
			&cli.Float64Flag{Name: "min", Usage: "lower bound (default depends on type)", Destination: &lo},
			&cli.Float64Flag{Name: "max", Usage: "upper bound (default depends on type)", Destination: &hi},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &output,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if loaded.Seed != nil && !cmd.IsSet("seed") {
				seed = *loaded.Seed
			}
			var bounds *[2]float64
			if cmd.IsSet("min") || cmd.IsSet("max") {
				bounds = &[2]float64{lo, hi}
				if !cmd.IsSet("min") {
					bounds[0] = 0
				}
				if !cmd.IsSet("max") {
					bounds[1] = 1
				}
			}
			res, usedSeed, err := runRandom(ctx, typeName, rows, cols, batches, seed, bounds)
			if err != nil {
				return err
			}
			logger.FromContext(ctx).Info("filled matrix", "type", res.Type, "seed", usedSeed)
			return printResult(os.Stdout, output, res)
		},
	}
}

// runRandom fills a rows x cols x batches matrix of the named type. bounds
// overrides the type's default range for numeric types.
func runRandom(ctx context.Context, typeName string, rows, cols, batches int, seed uint64, bounds *[2]float64) (*result, uint64, error) {
	dc := device.FromContext(ctx)
	var (
		g   *random.Generator
		err error
	)
	if seed == 0 {
		g, err = random.NewTimeSeeded(dc)
	} else {
		g, err = random.New(dc, seed)
	}
	if err != nil {
		return nil, 0, err
	}
	defer g.Close()

	var res *result
	switch typeName {
	case "float64":
		res, err = fillNumeric[float64](ctx, g, rows, cols, batches, bounds)
	case "float32":
		res, err = fillNumeric[float32](ctx, g, rows, cols, batches, bounds)
	case "int32":
		res, err = fillNumeric[int32](ctx, g, rows, cols, batches, bounds)
	case "int64":
		res, err = fillNumeric[int64](ctx, g, rows, cols, batches, bounds)
	case "bool":
		lo, hi := random.DefaultRange[bool]()
		res, err = fill(ctx, g, rows, cols, batches, lo, hi)
	default:
		err = fmt.Errorf("unsupported type %q", typeName)
	}
	return res, g.Seed(), err
}

func fillNumeric[T spmvValue](ctx context.Context, g *random.Generator, rows, cols, batches int, bounds *[2]float64) (*result, error) {
	lo, hi := random.DefaultRange[T]()
	if bounds != nil {
		lo, hi = T(bounds[0]), T(bounds[1])
	}
	return fill(ctx, g, rows, cols, batches, lo, hi)
}

func fill[T mat.Scalar](ctx context.Context, g *random.Generator, rows, cols, batches int, lo, hi T) (*result, error) {
	m, err := mat.New[T](device.FromContext(ctx), rows, cols, batches, mat.WithOrder(mat.RowMajor))
	if err != nil {
		return nil, err
	}
	defer m.Free()
	if err := random.FillUniform(ctx, g, m, lo, hi); err != nil {
		return nil, err
	}
	values, err := m.ToSlice()
	if err != nil {
		return nil, err
	}
	return &result{Type: mat.ScalarName[T](), Rows: rows, Cols: cols, Batches: batches, Values: values}, nil
}
