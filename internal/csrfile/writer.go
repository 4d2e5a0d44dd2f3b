package csrfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Write encodes m in the binary container format.
func Write[T Element](w io.Writer, m *Matrix[T]) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.Rows > math.MaxUint32 || m.Cols > math.MaxUint32 || m.Batches > math.MaxUint32 {
		return fmt.Errorf("csrfile: shape %dx%dx%d does not fit the header", m.Rows, m.Cols, m.Batches)
	}
	h := Header{
		Major:   CurrentMajor,
		Minor:   CurrentMinor,
		Scalar:  ScalarOf[T](),
		Rows:    uint32(m.Rows),
		Cols:    uint32(m.Cols),
		Batches: uint32(m.Batches),
		NNZ:     uint64(m.NNZ()),
	}
	copy(h.Magic[:], Magic)
	h.layout()

	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}
	if err := binary.Write(cw, binary.LittleEndian, &h); err != nil {
		return err
	}
	sections := []struct {
		offset uint64
		data   any
	}{
		{h.OuterOffset, m.Outer},
		{h.InnerOffset, m.Inner},
		{h.ValuesOffset, m.Values},
	}
	for _, s := range sections {
		if err := cw.padTo(s.offset); err != nil {
			return err
		}
		if err := binary.Write(cw, binary.LittleEndian, s.data); err != nil {
			return err
		}
	}
	if cw.n != h.FileSize {
		return fmt.Errorf("csrfile: wrote %d bytes, header says %d", cw.n, h.FileSize)
	}
	return bw.Flush()
}

type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	return n, err
}

func (c *countingWriter) padTo(off uint64) error {
	if off < c.n {
		return fmt.Errorf("csrfile: section offset %d behind write position %d", off, c.n)
	}
	var zero [sectionAlign]byte
	_, err := c.Write(zero[:off-c.n])
	return err
}
