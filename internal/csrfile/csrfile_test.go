package csrfile

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samcharles93/mateval/internal/device"
	"github.com/samcharles93/mateval/internal/mat"
	"github.com/stretchr/testify/require"
)

func example() *Matrix[float64] {
	return &Matrix[float64]{
		Rows:    3,
		Cols:    3,
		Batches: 2,
		Outer:   []int32{0, 2, 3, 5},
		Inner:   []int32{0, 2, 1, 0, 2},
		Values:  []float64{1, 2, 3, 4, 5, 10, 20, 30, 40, 50},
	}
}

func encode(t *testing.T, m *Matrix[float64]) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))
	return buf.Bytes()
}

func TestWriteParseRoundTrip(t *testing.T) {
	t.Parallel()
	data := encode(t, example())

	f, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, ScalarFloat64, f.Header.Scalar)
	require.Equal(t, uint64(5), f.Header.NNZ)
	require.Equal(t, uint64(len(data)), f.Header.FileSize)
	require.Zero(t, f.Header.InnerOffset%sectionAlign)
	require.Zero(t, f.Header.ValuesOffset%sectionAlign)

	got, err := Decode[float64](f)
	require.NoError(t, err)
	require.Equal(t, example(), got)

	_, err = Decode[float32](f)
	require.ErrorIs(t, err, ErrScalarMismatch)
}

func TestOpenMapsFile(t *testing.T) {
	t.Parallel()
	m := &Matrix[complex64]{
		Rows: 2, Cols: 2, Batches: 1,
		Outer:  []int32{0, 1, 1},
		Inner:  []int32{1},
		Values: []complex64{3 - 2i},
	}
	path := filepath.Join(t.TempDir(), "m.csr")
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, Write(out, m))
	require.NoError(t, out.Close())

	got, err := Load[complex64](path)
	require.NoError(t, err)
	require.Equal(t, m, got)

	f, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
}

func TestParseRejectsBadFiles(t *testing.T) {
	t.Parallel()
	good := encode(t, example())

	badMagic := bytes.Clone(good)
	badMagic[0] = 'X'
	_, err := Parse(badMagic)
	require.ErrorIs(t, err, ErrInvalidMagic)

	badMajor := bytes.Clone(good)
	binary.LittleEndian.PutUint16(badMajor[4:], CurrentMajor+1)
	_, err = Parse(badMajor)
	require.ErrorIs(t, err, ErrUnsupportedMajor)

	_, err = Parse(good[:len(good)-8])
	require.ErrorIs(t, err, ErrCorruptFile)

	_, err = Parse(good[:10])
	require.ErrorIs(t, err, ErrCorruptFile)

	badScalar := bytes.Clone(good)
	binary.LittleEndian.PutUint16(badScalar[8:], 99)
	_, err = Parse(badScalar)
	require.ErrorIs(t, err, ErrCorruptFile)

	// A huge nnz wraps the section sizes to zero, so the offsets alone
	// would describe a consistent 72-byte file.
	h := Header{Major: CurrentMajor, Scalar: ScalarFloat32, Rows: 1, Cols: 1, Batches: 1, NNZ: 1 << 62}
	copy(h.Magic[:], Magic)
	h.layout()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &h))
	wrapped := make([]byte, h.FileSize)
	copy(wrapped, buf.Bytes())
	require.Len(t, wrapped, 72)
	_, err = Parse(wrapped)
	require.ErrorIs(t, err, ErrCorruptFile)

	tooManyRows := bytes.Clone(good)
	binary.LittleEndian.PutUint32(tooManyRows[12:], 1<<30)
	_, err = Parse(tooManyRows)
	require.ErrorIs(t, err, ErrCorruptFile)
}

func TestWriteValidates(t *testing.T) {
	t.Parallel()
	m := example()
	m.Values = m.Values[:3]
	require.ErrorIs(t, Write(&bytes.Buffer{}, m), mat.ErrArgument)
}

func TestDocument(t *testing.T) {
	t.Parallel()
	in := `{"rows":3,"cols":3,"type":"float32","outer":[0,2,3,5],"inner":[0,2,1,0,2],"values":[1,2,3,4,5]}`
	d, err := ReadDocument(strings.NewReader(in))
	require.NoError(t, err)
	st, err := d.ScalarType()
	require.NoError(t, err)
	require.Equal(t, ScalarFloat32, st)

	m, err := MatrixFromDocument[float32](d)
	require.NoError(t, err)
	require.Equal(t, 1, m.Batches)
	require.Equal(t, []float32{1, 2, 3, 4, 5}, m.Values)

	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, DocumentFromMatrix(m)))
	back, err := ReadDocument(&buf)
	require.NoError(t, err)
	require.Equal(t, "float32", back.Type)
	require.Equal(t, d.Values, back.Values)

	_, err = ReadDocument(strings.NewReader(`{"rows":1,"colz":1}`))
	require.Error(t, err)

	d.Type = "int32"
	_, err = d.ScalarType()
	require.Error(t, err)
}

func TestSparseRoundTrip(t *testing.T) {
	dc := device.New(device.Props{})
	t.Cleanup(func() { _ = dc.Close() })

	s, err := ToSparse(dc, example())
	require.NoError(t, err)
	require.Equal(t, 2, s.Batches())

	v, err := mat.VectorFromSlice(dc, 3, 1, []float64{1, 1, 1})
	require.NoError(t, err)
	dst, err := mat.NewVector[float64](dc, 3, 2)
	require.NoError(t, err)
	prod, err := mat.Product[float64](s, v)
	require.NoError(t, err)
	require.NoError(t, mat.Assign[float64](context.Background(), dst, prod))
	got, err := dst.ToSlice()
	require.NoError(t, err)
	require.Equal(t, []float64{3, 3, 9, 30, 30, 90}, got)

	back, err := FromSparse(s)
	require.NoError(t, err)
	require.Equal(t, example(), back)

	bad := example()
	bad.Inner[1] = 7
	_, err = ToSparse(dc, bad)
	require.ErrorIs(t, err, mat.ErrArgument)
}
