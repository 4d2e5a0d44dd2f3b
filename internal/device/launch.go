package device

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Dim3 is a three-component launch extent.
type Dim3 struct {
	X, Y, Z int
}

// Size is X*Y*Z.
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// LaunchConfig is the geometry of one kernel launch. VirtualSize is the
// number of logical work items; when it exceeds the grid capacity each
// thread loops with stride BlockCount.X*ThreadsPerBlock.X.
type LaunchConfig struct {
	VirtualSize     Dim3
	ThreadsPerBlock Dim3
	BlockCount      Dim3
}

// Stride is the distance between consecutive items handled by one thread.
func (cfg LaunchConfig) Stride() int {
	return cfg.BlockCount.X * cfg.ThreadsPerBlock.X
}

// Empty reports whether the launch has no work.
func (cfg LaunchConfig) Empty() bool {
	return cfg.VirtualSize.Size() == 0
}

func (cfg LaunchConfig) validate(p Props) error {
	if cfg.ThreadsPerBlock.X <= 0 || cfg.ThreadsPerBlock.Y != 1 || cfg.ThreadsPerBlock.Z != 1 {
		return fmt.Errorf("threads per block %v", cfg.ThreadsPerBlock)
	}
	if cfg.ThreadsPerBlock.X > p.MaxThreadsPerBlock {
		return fmt.Errorf("%d threads per block exceeds device limit %d", cfg.ThreadsPerBlock.X, p.MaxThreadsPerBlock)
	}
	if cfg.BlockCount.X <= 0 || cfg.BlockCount.Y != 1 || cfg.BlockCount.Z != 1 {
		return fmt.Errorf("block count %v", cfg.BlockCount)
	}
	if cfg.VirtualSize.X < 0 {
		return fmt.Errorf("virtual size %v", cfg.VirtualSize)
	}
	return nil
}

// LaunchConfig1D computes a 1-D launch for n work items. maxThreads bounds
// the block size in addition to the device limit; pass 0 for no extra bound.
// The grid never exceeds the device's resident block capacity, so large n
// is covered by the grid-stride loop. n <= 0 yields an empty configuration,
// which callers must treat as a no-op rather than launch.
func (c *Context) LaunchConfig1D(n, maxThreads int) LaunchConfig {
	if n <= 0 {
		return LaunchConfig{
			VirtualSize:     Dim3{0, 1, 1},
			ThreadsPerBlock: Dim3{0, 1, 1},
			BlockCount:      Dim3{0, 1, 1},
		}
	}
	limit := c.props.MaxThreadsPerBlock
	if maxThreads > 0 && maxThreads < limit {
		limit = maxThreads
	}
	threads := min(n, limit)
	blocks := (n + threads - 1) / threads
	blocks = min(blocks, c.props.MaxResidentBlocks())
	return LaunchConfig{
		VirtualSize:     Dim3{n, 1, 1},
		ThreadsPerBlock: Dim3{threads, 1, 1},
		BlockCount:      Dim3{blocks, 1, 1},
	}
}

// Thread identifies one logical device thread inside a running kernel.
type Thread struct {
	BlockIdx  int
	ThreadIdx int
	BlockDim  int
	GridDim   int
	virtual   int
}

// Global is the flat thread index across the grid.
func (t Thread) Global() int {
	return t.BlockIdx*t.BlockDim + t.ThreadIdx
}

// Loop calls fn for every work item this thread owns under the grid-stride
// mapping: Global(), Global()+stride, ... while below the virtual size.
func (t Thread) Loop(fn func(index int)) {
	stride := t.BlockDim * t.GridDim
	for i := t.Global(); i < t.virtual; i += stride {
		fn(i)
	}
}

// Kernel is the per-thread body of a launch.
type Kernel func(t Thread)

// Launch validates cfg and enqueues the kernel on the context's stream. A bad
// configuration is reported synchronously; faults raised while the kernel
// runs surface at the next Synchronize as *ExecutionError.
func Launch(c *Context, op string, cfg LaunchConfig, k Kernel) error {
	if err := cfg.validate(c.props); err != nil {
		return executionError(op, StatusInvalidConfiguration, err)
	}
	return c.stream.Enqueue(op, func() error {
		return c.execute(op, cfg, k)
	})
}

func (c *Context) execute(op string, cfg LaunchConfig, k Kernel) error {
	var g errgroup.Group
	g.SetLimit(c.props.Workers)
	blocks, threads := cfg.BlockCount.X, cfg.ThreadsPerBlock.X
	for b := 0; b < blocks; b++ {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = executionError(op, StatusLaunchFailure, fmt.Errorf("block %d: %v", b, r))
				}
			}()
			for tid := 0; tid < threads; tid++ {
				k(Thread{
					BlockIdx:  b,
					ThreadIdx: tid,
					BlockDim:  threads,
					GridDim:   blocks,
					virtual:   cfg.VirtualSize.X,
				})
			}
			return nil
		})
	}
	return g.Wait()
}
