// Package random fills device matrices with uniformly distributed values
// from a pool of per-thread generator states that persists across fills.
//
// The generator is a 48-bit linear congruential generator: fast and fully
// deterministic for a given seed and call sequence, but not suitable where
// statistical quality matters.
package random

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/samcharles93/mateval/internal/device"
	"github.com/samcharles93/mateval/internal/logger"
	"github.com/samcharles93/mateval/internal/mat"
)

// NumStates is the size of the state pool and the maximum number of threads
// a fill launches.
const NumStates = 1024

const (
	lcgMul  = 0x5DEECE66D
	lcgInc  = 0xB
	lcgMask = 1<<48 - 1
)

// Generator owns a device-resident pool of NumStates generator states. A
// Generator is not safe for concurrent fills; calls are ordered on the
// context's stream.
type Generator struct {
	dc     *device.Context
	states *device.Buffer[uint64]
	seed   uint64
}

// New expands seed into NumStates states on the host and schedules their
// upload to dc.
func New(dc *device.Context, seed uint64) (*Generator, error) {
	states, err := device.Alloc[uint64](dc, NumStates)
	if err != nil {
		return nil, err
	}
	src := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	host := make([]uint64, NumStates)
	for i := range host {
		host[i] = src.Uint64()
	}
	if err := states.CopyFromHostAsync(host); err != nil {
		states.Free()
		return nil, err
	}
	return &Generator{dc: dc, states: states, seed: seed}, nil
}

// NewTimeSeeded seeds from the current wall clock.
func NewTimeSeeded(dc *device.Context) (*Generator, error) {
	return New(dc, uint64(time.Now().UnixNano()))
}

// Seed is the seed the pool was expanded from.
func (g *Generator) Seed() uint64 {
	return g.seed
}

// Close releases the state pool.
func (g *Generator) Close() {
	g.states.Free()
}

// Fill is FillUniform over DefaultRange.
func Fill[T mat.Scalar](ctx context.Context, g *Generator, dst mat.Writable[T]) error {
	lo, hi := DefaultRange[T]()
	return FillUniform(ctx, g, dst, lo, hi)
}

// FillUniform fills dst with values in [lo, hi). Integers are exact
// uniform draws, floats are scaled from 24 or 53 random bits, complex values
// draw the real then the imaginary part, and bool ignores the range.
//
// One block of at most NumStates threads runs; thread i uses state i and
// walks the destination with the grid-stride loop, then writes its state
// back. Empty destinations schedule nothing.
func FillUniform[T mat.Scalar](ctx context.Context, g *Generator, dst mat.Writable[T], lo, hi T) error {
	if dst.Context() != g.dc {
		return fmt.Errorf("%w: destination lives on a different device context than the generator", mat.ErrArgument)
	}
	n := dst.Size()
	if n == 0 {
		return nil
	}
	draw := sampler[T]()
	cfg := g.dc.LaunchConfig1D(n, NumStates)
	cfg.BlockCount = device.Dim3{X: 1, Y: 1, Z: 1}

	log := logger.FromContext(ctx)
	if log.Enabled(slog.LevelDebug) {
		log.Debug("fill uniform", "dst", dst.String(), "threads", cfg.ThreadsPerBlock.X, "elements", n)
	}

	states := g.states
	return device.Launch(g.dc, "random_fill", cfg, func(t device.Thread) {
		pool := states.Device()
		state := pool[t.ThreadIdx]
		t.Loop(func(i int) {
			dst.SetRawCoeff(i, draw(&state, lo, hi))
		})
		pool[t.ThreadIdx] = state
	})
}

// DefaultRange is [0, max] for integers, [0, 1) for floats, [(0,0), (1,1))
// for complex values and {false, true} for bool.
func DefaultRange[T mat.Scalar]() (lo, hi T) {
	var r any
	switch any(lo).(type) {
	case int32:
		r = [2]int32{0, math.MaxInt32}
	case int64:
		r = [2]int64{0, math.MaxInt64}
	case int:
		r = [2]int{0, math.MaxInt}
	case float32:
		r = [2]float32{0, 1}
	case float64:
		r = [2]float64{0, 1}
	case complex64:
		r = [2]complex64{0, 1 + 1i}
	case complex128:
		r = [2]complex128{0, 1 + 1i}
	case bool:
		r = [2]bool{false, true}
	}
	pair := r.([2]T)
	return pair[0], pair[1]
}
