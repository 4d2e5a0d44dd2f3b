package csrfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// File is an opened binary CSR container. Section slices alias Data and
// must not be used after Close.
type File struct {
	Data    []byte
	Header  *Header
	mmapped bool
}

// Open maps a CSR file read-only and validates its structure, falling back
// to ReadAt-based loading where mmap is unavailable.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < int64(headerSize) || size64 > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		cf, parseErr := parse(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return cf, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parse(data, false)
}

// Parse validates an in-memory container. data is retained.
func Parse(data []byte) (*File, error) {
	return parse(data, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parse(data []byte, mmapped bool) (*File, error) {
	if len(data) < headerSize {
		return nil, ErrCorruptFile
	}
	var h Header
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	if !h.Valid() {
		return nil, ErrInvalidMagic
	}
	if !h.Compatible() {
		return nil, ErrUnsupportedMajor
	}
	if _, ok := scalarSizes[h.Scalar]; !ok {
		return nil, fmt.Errorf("%w: unknown scalar type %d", ErrCorruptFile, uint16(h.Scalar))
	}
	if !h.sectionsFit(uint64(len(data))) {
		return nil, fmt.Errorf("%w: counts exceed the file size", ErrCorruptFile)
	}
	if h.FileSize != uint64(len(data)) {
		return nil, fmt.Errorf("%w: header size %d, file size %d", ErrCorruptFile, h.FileSize, len(data))
	}
	// The layout is fully determined by the counts, so any other offsets
	// mean the file was not produced by Write.
	want := h
	want.layout()
	if want.OuterOffset != h.OuterOffset || want.InnerOffset != h.InnerOffset ||
		want.ValuesOffset != h.ValuesOffset || want.FileSize != h.FileSize {
		return nil, fmt.Errorf("%w: section layout does not match counts", ErrCorruptFile)
	}
	return &File{Data: data, Header: &h, mmapped: mmapped}, nil
}

// Close releases the mapping, if any.
func (f *File) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	var err error
	if f.mmapped {
		err = unix.Munmap(f.Data)
	}
	f.Data = nil
	f.Header = nil
	f.mmapped = false
	return err
}

func (f *File) section(off, size uint64) []byte {
	return f.Data[off : off+size]
}

// Decode copies the container into a typed host matrix. T must match the
// stored scalar type.
func Decode[T Element](f *File) (*Matrix[T], error) {
	h := f.Header
	if h == nil {
		return nil, fmt.Errorf("%w: file is closed", ErrCorruptFile)
	}
	if got := ScalarOf[T](); got != h.Scalar {
		return nil, fmt.Errorf("%w: file has %s, want %s", ErrScalarMismatch, h.Scalar, got)
	}
	m := &Matrix[T]{
		Rows:    int(h.Rows),
		Cols:    int(h.Cols),
		Batches: int(h.Batches),
		Outer:   make([]int32, h.Rows+1),
		Inner:   make([]int32, h.NNZ),
		Values:  make([]T, h.NNZ*uint64(h.Batches)),
	}
	if _, err := binary.Decode(f.section(h.OuterOffset, h.outerBytes()), binary.LittleEndian, m.Outer); err != nil {
		return nil, fmt.Errorf("%w: outer offsets: %v", ErrCorruptFile, err)
	}
	if _, err := binary.Decode(f.section(h.InnerOffset, h.innerBytes()), binary.LittleEndian, m.Inner); err != nil {
		return nil, fmt.Errorf("%w: inner indices: %v", ErrCorruptFile, err)
	}
	if _, err := binary.Decode(f.section(h.ValuesOffset, h.valuesBytes()), binary.LittleEndian, m.Values); err != nil {
		return nil, fmt.Errorf("%w: values: %v", ErrCorruptFile, err)
	}
	return m, nil
}

// Load opens, decodes and closes a container.
func Load[T Element](path string) (*Matrix[T], error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Decode[T](f)
}
