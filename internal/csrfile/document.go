package csrfile

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Document is the JSON interchange form of a real-valued CSR matrix.
type Document struct {
	Rows    int       `json:"rows"`
	Cols    int       `json:"cols"`
	Batches int       `json:"batches,omitempty"`
	Type    string    `json:"type,omitempty"`
	Outer   []int32   `json:"outer"`
	Inner   []int32   `json:"inner"`
	Values  []float64 `json:"values"`
}

// Real is the value set a Document can carry.
type Real interface {
	float32 | float64
}

// ReadDocument decodes one document. Unknown fields are rejected.
func ReadDocument(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var d Document
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("csrfile: decode document: %w", err)
	}
	return &d, nil
}

// WriteDocument encodes d as indented JSON.
func WriteDocument(w io.Writer, d *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// ScalarType resolves the document's type field; empty means float64.
func (d *Document) ScalarType() (ScalarType, error) {
	if d.Type == "" {
		return ScalarFloat64, nil
	}
	t, err := ParseScalarType(d.Type)
	if err != nil {
		return 0, err
	}
	if t != ScalarFloat32 && t != ScalarFloat64 {
		return 0, fmt.Errorf("csrfile: documents carry float32 or float64, not %s", t)
	}
	return t, nil
}

// MatrixFromDocument converts d to a typed host matrix. A zero batch count
// means one batch.
func MatrixFromDocument[T Real](d *Document) (*Matrix[T], error) {
	batches := d.Batches
	if batches == 0 {
		batches = 1
	}
	values := make([]T, len(d.Values))
	for i, v := range d.Values {
		values[i] = T(v)
	}
	m := &Matrix[T]{
		Rows:    d.Rows,
		Cols:    d.Cols,
		Batches: batches,
		Outer:   d.Outer,
		Inner:   d.Inner,
		Values:  values,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// DocumentFromMatrix is the inverse of MatrixFromDocument.
func DocumentFromMatrix[T Real](m *Matrix[T]) *Document {
	values := make([]float64, len(m.Values))
	for i, v := range m.Values {
		values[i] = float64(v)
	}
	return &Document{
		Rows:    m.Rows,
		Cols:    m.Cols,
		Batches: m.Batches,
		Type:    ScalarOf[T]().String(),
		Outer:   m.Outer,
		Inner:   m.Inner,
		Values:  values,
	}
}
