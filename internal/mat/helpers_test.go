package mat

import (
	"context"
	"testing"

	"github.com/samcharles93/mateval/internal/device"
	"github.com/stretchr/testify/require"
)

// newTestDevice uses tiny blocks so kernels exercise the grid-stride loop.
func newTestDevice(t *testing.T) *device.Context {
	t.Helper()
	dc := device.New(device.Props{MaxThreadsPerBlock: 4, MultiProcessors: 2, MaxBlocksPerMultiProcessor: 2, Workers: 2})
	t.Cleanup(func() { _ = dc.Close() })
	return dc
}

func evalRows[T Scalar](t *testing.T, dc *device.Context, src Expr[T]) [][][]T {
	t.Helper()
	dst, err := New[T](dc, src.Rows(), src.Cols(), src.Batches())
	require.NoError(t, err)
	require.NoError(t, Assign[T](context.Background(), dst, src))
	rows, err := dst.ToRows()
	require.NoError(t, err)
	return rows
}

func mustRows[T Scalar](t *testing.T, dc *device.Context, data [][][]T) *Matrix[T] {
	t.Helper()
	m, err := FromRows(dc, data)
	require.NoError(t, err)
	return m
}
