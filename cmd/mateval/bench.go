package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mateval/internal/device"
	"github.com/samcharles93/mateval/internal/logger"
	"github.com/samcharles93/mateval/internal/mat"
	"github.com/samcharles93/mateval/internal/random"
)

// workload is one timed evaluation; run must leave the stream drained.
type workload struct {
	name     string
	elements int
	run      func(ctx context.Context) error
	free     func()
}

func benchCmd() *cli.Command {
	var (
		size       int
		nnzPerRow  int
		batches    int
		warmupRuns int
		benchRuns  int
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Time cwise, sparse matrix-vector and random fill evaluations",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "size", Aliases: []string{"n"}, Usage: "matrix dimension", Value: 1024, Destination: &size},
			&cli.IntFlag{Name: "nnz-per-row", Usage: "stored entries per sparse row", Value: 16, Destination: &nnzPerRow},
			&cli.IntFlag{Name: "batches", Usage: "batch count", Value: 1, Destination: &batches},
			&cli.IntFlag{Name: "warmup", Usage: "number of warmup runs", Value: 1, Destination: &warmupRuns},
			&cli.IntFlag{Name: "runs", Usage: "number of benchmark runs", Value: 3, Destination: &benchRuns},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			dc := device.FromContext(ctx)
			if size <= 0 || batches <= 0 || benchRuns <= 0 {
				return cli.Exit("error: size, batches and runs must be positive", 1)
			}

			workloads, err := benchWorkloads(dc, size, nnzPerRow, batches)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: prepare workloads: %v", err), 1)
			}
			defer func() {
				for _, w := range workloads {
					w.free()
				}
			}()

			props := dc.Props()
			fmt.Println("=== mateval benchmark ===")
			fmt.Printf("Device:     %s\n", props.Name)
			fmt.Printf("Threads:    %d per block, %d resident blocks\n", props.MaxThreadsPerBlock, props.MaxResidentBlocks())
			fmt.Printf("Workers:    %d\n", props.Workers)
			fmt.Printf("CPUs:       %d\n", runtime.NumCPU())
			fmt.Printf("Shape:      %dx%dx%d, %d nnz/row\n", size, size, batches, min(nnzPerRow, size))
			fmt.Printf("Warmup:     %d runs\n", warmupRuns)
			fmt.Printf("Runs:       %d\n", benchRuns)
			fmt.Println()

			fmt.Printf("%-14s %12s %12s %12s %14s\n", "Workload", "Best", "Mean", "Worst", "Elements/s")
			for _, w := range workloads {
				for i := range warmupRuns {
					log.Debug("warmup run", "workload", w.name, "run", i+1)
					if err := w.run(ctx); err != nil {
						return cli.Exit(fmt.Sprintf("error: %s warmup: %v", w.name, err), 1)
					}
				}
				durations := make([]time.Duration, 0, benchRuns)
				for i := range benchRuns {
					start := time.Now()
					if err := w.run(ctx); err != nil {
						return cli.Exit(fmt.Sprintf("error: %s run %d: %v", w.name, i+1, err), 1)
					}
					durations = append(durations, time.Since(start))
				}
				best, mean, worst := summarize(durations)
				fmt.Printf("%-14s %12s %12s %12s %14.3g\n",
					w.name, best.Round(time.Microsecond), mean.Round(time.Microsecond), worst.Round(time.Microsecond),
					float64(w.elements)/mean.Seconds())
			}

			mem := dc.MemStats()
			fmt.Printf("\nDevice memory: %.1f MB peak, %d live buffers\n",
				float64(mem.PeakBytes)/(1024*1024), mem.LiveBuffers)
			return nil
		},
	}
}

// benchWorkloads allocates the operands for every workload up front.
func benchWorkloads(dc *device.Context, size, nnzPerRow, batches int) ([]workload, error) {
	var out []workload
	release := func() {
		for _, w := range out {
			w.free()
		}
	}

	a, err := mat.New[float64](dc, size, size, batches)
	if err != nil {
		return nil, err
	}
	dst, err := mat.New[float64](dc, size, size, batches)
	if err != nil {
		a.Free()
		return nil, err
	}
	g, err := random.New(dc, 42)
	if err != nil {
		a.Free()
		dst.Free()
		return nil, err
	}
	out = append(out, workload{
		name:     "random_fill",
		elements: a.Size(),
		run: func(ctx context.Context) error {
			if err := random.FillUniform(ctx, g, a, -1, 1); err != nil {
				return err
			}
			return dc.Synchronize()
		},
		free: func() {
			g.Close()
			a.Free()
			dst.Free()
		},
	})
	if err := random.FillUniform(context.Background(), g, a, -1, 1); err != nil {
		release()
		return nil, err
	}

	var op *mat.UnaryOp[float64]
	abs, err := mat.CwiseAbs[float64](a)
	if err == nil {
		op, err = mat.CwiseSqrt[float64](abs)
	}
	if err != nil {
		release()
		return nil, err
	}
	out = append(out, workload{
		name:     "dense_cwise",
		elements: dst.Size(),
		run: func(ctx context.Context) error {
			if err := mat.Assign[float64](ctx, dst, op); err != nil {
				return err
			}
			return dc.Synchronize()
		},
		free: func() {},
	})

	pattern, err := bandedPattern(size, nnzPerRow)
	if err != nil {
		release()
		return nil, err
	}
	sm, err := mat.NewSparse[float64](dc, pattern, batches)
	if err != nil {
		release()
		return nil, err
	}
	x, err := mat.NewVector[float64](dc, size, batches)
	if err != nil {
		sm.Free()
		release()
		return nil, err
	}
	y, err := mat.NewVector[float64](dc, size, batches)
	if err != nil {
		sm.Free()
		x.Free()
		release()
		return nil, err
	}
	freeSparse := func() {
		sm.Free()
		x.Free()
		y.Free()
	}
	if err := random.Fill[float64](context.Background(), g, sm); err == nil {
		err = random.Fill[float64](context.Background(), g, x)
	}
	if err != nil {
		freeSparse()
		release()
		return nil, err
	}
	prod, err := mat.Product[float64](sm, x)
	if err != nil {
		freeSparse()
		release()
		return nil, err
	}
	out = append(out, workload{
		name:     "csr_mat_vec",
		elements: pattern.NNZ() * batches,
		run: func(ctx context.Context) error {
			if err := mat.Assign[float64](ctx, y, prod); err != nil {
				return err
			}
			return dc.Synchronize()
		},
		free: freeSparse,
	})

	if err := dc.Synchronize(); err != nil {
		release()
		return nil, err
	}
	return out, nil
}

// bandedPattern spreads k entries per row evenly over the columns, shifted
// by the row index so every column is used.
func bandedPattern(n, k int) (*mat.SparsityPattern, error) {
	k = max(1, min(k, n))
	step := n / k
	outer := make([]int32, n+1)
	inner := make([]int32, 0, n*k)
	for r := range n {
		for j := range k {
			inner = append(inner, int32(j*step+r%step))
		}
		outer[r+1] = int32(len(inner))
	}
	return mat.NewPattern(n, n, outer, inner)
}

func summarize(ds []time.Duration) (best, mean, worst time.Duration) {
	best, worst = ds[0], ds[0]
	var total time.Duration
	for _, d := range ds {
		best = min(best, d)
		worst = max(worst, d)
		total += d
	}
	return best, total / time.Duration(len(ds)), worst
}
