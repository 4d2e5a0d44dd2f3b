package device

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T, props Props) *Context {
	t.Helper()
	c := New(props)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLaunchConfig1D(t *testing.T) {
	c := testContext(t, Props{MaxThreadsPerBlock: 256, MultiProcessors: 2, MaxBlocksPerMultiProcessor: 4})

	tests := []struct {
		name       string
		n, max     int
		threads    int
		blocks     int
		wantStride int
	}{
		{"small", 10, 0, 10, 1, 10},
		{"exact block", 256, 0, 256, 1, 256},
		{"two blocks", 300, 0, 256, 2, 512},
		{"capped grid", 1 << 20, 0, 256, 8, 2048},
		{"thread bound", 5000, 64, 64, 8, 512},
		{"bound above device limit", 100, 4096, 100, 1, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := c.LaunchConfig1D(tc.n, tc.max)
			require.Equal(t, tc.n, cfg.VirtualSize.X)
			require.Equal(t, tc.threads, cfg.ThreadsPerBlock.X)
			require.Equal(t, tc.blocks, cfg.BlockCount.X)
			require.Equal(t, tc.wantStride, cfg.Stride())
		})
	}
}

func TestLaunchConfig1DEmpty(t *testing.T) {
	c := testContext(t, Props{})
	cfg := c.LaunchConfig1D(0, 0)
	require.True(t, cfg.Empty())

	err := Launch(c, "empty", cfg, func(Thread) {})
	require.ErrorIs(t, err, ErrExecution)
	require.Equal(t, StatusInvalidConfiguration, StatusOf(err))
}

func TestLaunchCoversEveryItemOnce(t *testing.T) {
	c := testContext(t, Props{MaxThreadsPerBlock: 32, MultiProcessors: 1, MaxBlocksPerMultiProcessor: 3, Workers: 4})
	const n = 1000
	hits := make([]atomic.Int32, n)

	cfg := c.LaunchConfig1D(n, 0)
	require.Less(t, cfg.Stride(), n, "grid must be smaller than the work to exercise the stride loop")
	require.NoError(t, Launch(c, "count", cfg, func(th Thread) {
		th.Loop(func(i int) { hits[i].Add(1) })
	}))
	require.NoError(t, c.Synchronize())

	for i := range hits {
		require.EqualValues(t, 1, hits[i].Load(), "item %d", i)
	}
}

func TestLaunchRejectsOversizedBlocks(t *testing.T) {
	c := testContext(t, Props{MaxThreadsPerBlock: 64})
	cfg := LaunchConfig{VirtualSize: Dim3{10, 1, 1}, ThreadsPerBlock: Dim3{128, 1, 1}, BlockCount: Dim3{1, 1, 1}}
	err := Launch(c, "too_wide", cfg, func(Thread) {})
	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, "too_wide", ee.Op)
	require.Equal(t, StatusInvalidConfiguration, ee.Status)
}

func TestKernelPanicSurfacesAtSynchronize(t *testing.T) {
	c := testContext(t, Props{})
	cfg := c.LaunchConfig1D(4, 0)

	require.NoError(t, Launch(c, "faulty", cfg, func(th Thread) {
		th.Loop(func(i int) {
			if i == 2 {
				panic("index out of range")
			}
		})
	}))

	err := c.Synchronize()
	require.ErrorIs(t, err, ErrExecution)
	require.Equal(t, StatusLaunchFailure, StatusOf(err))
	require.Contains(t, err.Error(), "faulty")

	// The fault is reported once.
	require.NoError(t, c.Synchronize())
}

func TestStreamPreservesIssueOrder(t *testing.T) {
	c := testContext(t, Props{})
	var order []int
	for i := 0; i < 50; i++ {
		require.NoError(t, c.Stream().Enqueue("step", func() error {
			order = append(order, i)
			return nil
		}))
	}
	require.NoError(t, c.Synchronize())
	require.Len(t, order, 50)
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestStreamErrIsNonBlockingPeek(t *testing.T) {
	c := testContext(t, Props{})
	boom := errors.New("boom")
	require.NoError(t, c.Stream().Enqueue("fail", func() error { return boom }))
	require.ErrorIs(t, c.Synchronize(), boom)
	require.NoError(t, c.Stream().Err())
}

func TestClosedContextRejectsWork(t *testing.T) {
	c := New(Props{})
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	err := Launch(c, "late", c.LaunchConfig1D(1, 0), func(Thread) {})
	require.Equal(t, StatusContextDestroyed, StatusOf(err))
}
