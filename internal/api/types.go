package api

import (
	"github.com/samcharles93/mateval/internal/csrfile"
	"github.com/samcharles93/mateval/internal/device"
)

// Dense matrices travel as row-major values, batch after batch.

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
}

type SpMVRequest struct {
	Matrix        csrfile.Document `json:"matrix"`
	Vector        []float64        `json:"vector"`
	VectorBatches int              `json:"vector_batches,omitempty"`
	Mode          string           `json:"mode,omitempty"`
	// Initial seeds the destination for non-write modes.
	Initial []float64 `json:"initial,omitempty"`
}

type RandomRequest struct {
	Rows    int      `json:"rows"`
	Cols    int      `json:"cols"`
	Batches int      `json:"batches,omitempty"`
	Type    string   `json:"type,omitempty"`
	Seed    *uint64  `json:"seed,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

type BlockSpec struct {
	StartRow   int `json:"start_row"`
	StartCol   int `json:"start_col"`
	StartBatch int `json:"start_batch"`
	Rows       int `json:"rows"`
	Cols       int `json:"cols"`
	Batches    int `json:"batches"`
}

type UnaryRequest struct {
	Op      string     `json:"op"`
	Rows    int        `json:"rows"`
	Cols    int        `json:"cols"`
	Batches int        `json:"batches,omitempty"`
	Values  []float64  `json:"values"`
	Block   *BlockSpec `json:"block,omitempty"`
}

type OuterRequest struct {
	Column  []float64 `json:"column"`
	Row     []float64 `json:"row"`
	Entries [][2]int  `json:"entries"`
}

type MatrixResponse struct {
	ID      string `json:"id"`
	Rows    int    `json:"rows"`
	Cols    int    `json:"cols"`
	Batches int    `json:"batches"`
	Values  any    `json:"values"`
}

type RandomResponse struct {
	MatrixResponse
	Seed uint64 `json:"seed"`
}

type SparseResponse struct {
	ID     string    `json:"id"`
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Outer  []int32   `json:"outer"`
	Inner  []int32   `json:"inner"`
	Values []float64 `json:"values"`
}

type HealthResponse struct {
	Status string          `json:"status"`
	Device device.Props    `json:"device"`
	Memory device.MemStats `json:"memory"`
}
