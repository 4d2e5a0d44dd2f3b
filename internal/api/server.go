// Package api serves the evaluation engine over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/samcharles93/mateval/internal/device"
	"github.com/samcharles93/mateval/internal/logger"
)

// maxElements bounds the size of any matrix a request may create.
const maxElements = 1 << 22

type Config struct {
	// RateLimit is the sustained number of evaluations per second; zero or
	// negative disables limiting.
	RateLimit float64
	Burst     int
	// Seed is used by /v1/random when a request names none; zero means
	// time-seeded.
	Seed uint64
}

type Server struct {
	dc      *device.Context
	log     logger.Logger
	limiter *rate.Limiter
	seed    uint64

	// mu serialises evaluations so a fault is reported to the request that
	// caused it.
	mu    sync.Mutex
	clock func() time.Time
}

func NewServer(dc *device.Context, log logger.Logger, cfg Config) *Server {
	if log == nil {
		log = logger.Discard()
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = max(1, int(cfg.RateLimit))
	}
	return &Server{
		dc:      dc,
		log:     log,
		limiter: rate.NewLimiter(limit, burst),
		seed:    cfg.Seed,
		clock:   time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.POST("/v1/spmv", s.handleSpMV)
	e.POST("/v1/random", s.handleRandom)
	e.POST("/v1/unary", s.handleUnary)
	e.POST("/v1/outer", s.handleOuter)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Device: s.dc.Props(),
		Memory: s.dc.MemStats(),
	})
}

// evaluation is the per-request state shared by every evaluating handler.
type evaluation struct {
	id  string
	ctx context.Context
	log logger.Logger
}

// begin assigns a request id and applies the rate limit. A nil evaluation
// means the response has already been written.
func (s *Server) begin(c *echo.Context, op string) (*evaluation, error) {
	id := "eval_" + uuid.NewString()
	log := s.log.With("request_id", id, "op", op)
	if !s.limiter.Allow() {
		log.Warn("rate limited")
		return nil, c.JSON(http.StatusTooManyRequests, map[string]any{
			"error": ErrorBody{Message: "evaluation rate limit exceeded", Type: "rate_limit_error", ID: id},
		})
	}
	ctx := logger.WithContext(c.Request().Context(), log)
	return &evaluation{id: id, ctx: ctx, log: log}, nil
}

// run executes fn with the device held, then waits for the stream so that
// kernel faults are attributed to this request.
func (s *Server) run(ev *evaluation, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.clock()
	err := fn()
	if syncErr := s.dc.Synchronize(); err == nil {
		err = syncErr
	}
	if err != nil {
		ev.log.Warn("evaluation failed", "error", err)
		return err
	}
	ev.log.Debug("evaluation finished", "elapsed", s.clock().Sub(start))
	return nil
}

func (s *Server) fail(c *echo.Context, ev *evaluation, err error) error {
	status, typ := classify(err)
	id := ""
	if ev != nil {
		id = ev.id
	}
	return c.JSON(status, map[string]any{
		"error": ErrorBody{Message: err.Error(), Type: typ, ID: id},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, newInvalidRequest("empty request body")
		}
		return out, newInvalidRequest(err.Error())
	}
	return out, nil
}

func checkSize(rows, cols, batches int) error {
	if rows < 0 || cols < 0 || batches < 0 {
		return newInvalidRequest("negative extent")
	}
	if rows > maxElements || cols > maxElements || batches > maxElements ||
		rows*cols > maxElements || rows*cols*batches > maxElements {
		return newInvalidRequest("matrix exceeds the element limit")
	}
	return nil
}
