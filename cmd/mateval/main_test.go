package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mateval/internal/csrfile"
	"github.com/samcharles93/mateval/internal/device"
	"github.com/samcharles93/mateval/internal/mat"
)

const exampleDocument = `{
  "rows": 3, "cols": 3,
  "outer": [0, 2, 3, 5],
  "inner": [0, 2, 1, 0, 2],
  "values": [1, 2, 3, 4, 5]
}`

func testContext(t *testing.T) context.Context {
	t.Helper()
	dc := device.New(device.Props{
		MaxThreadsPerBlock:         4,
		MultiProcessors:            2,
		MaxBlocksPerMultiProcessor: 2,
		Workers:                    2,
	})
	t.Cleanup(func() { _ = dc.Close() })
	return device.WithContext(context.Background(), dc)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseFloats(t *testing.T) {
	got, err := parseFloats(" 1, 2.5 ,-3 ")
	if err != nil {
		t.Fatalf("parseFloats returned error: %v", err)
	}
	if want := []float64{1, 2.5, -3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected values: got %v want %v", got, want)
	}

	empty, err := parseFloats("")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v (%v)", empty, err)
	}

	if _, err := parseFloats("1,x"); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file is empty", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadConfig returned error: %v", err)
		}
		if !reflect.DeepEqual(cfg, Config{}) {
			t.Fatalf("expected zero config, got %+v", cfg)
		}
	})

	t.Run("fields decode", func(t *testing.T) {
		path := writeFile(t, "config.yaml", `
log_level: debug
server_address: 0.0.0.0:9000
rate_limit: 2.5
seed: 7
device:
  max_threads_per_block: 64
  workers: 3
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig returned error: %v", err)
		}
		if cfg.LogLevel != "debug" || cfg.ServerAddress != "0.0.0.0:9000" {
			t.Fatalf("unexpected strings: %+v", cfg)
		}
		if cfg.RateLimit == nil || *cfg.RateLimit != 2.5 || cfg.Seed == nil || *cfg.Seed != 7 {
			t.Fatalf("unexpected server fields: %+v", cfg)
		}
		if cfg.Device.MaxThreadsPerBlock == nil || *cfg.Device.MaxThreadsPerBlock != 64 {
			t.Fatalf("unexpected device threads: %+v", cfg.Device)
		}
		if cfg.Device.MultiProcessors != nil {
			t.Fatalf("unset key should stay nil")
		}
	})

	t.Run("malformed file fails", func(t *testing.T) {
		path := writeFile(t, "config.yaml", "seed: [\n")
		if _, err := LoadConfig(path); err == nil {
			t.Fatalf("expected parse error")
		}
	})
}

func TestApplyServeConfigRespectsFlags(t *testing.T) {
	rate, seed := 4.0, uint64(9)
	cfg := Config{ServerAddress: "config:1", RateLimit: &rate, Seed: &seed}

	var (
		addr      string
		rateLimit float64
		burst     int
		gotSeed   uint64
	)
	cmd := &cli.Command{
		Name: "serve",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "default:1", Destination: &addr},
			&cli.Float64Flag{Name: "rate-limit", Destination: &rateLimit},
			&cli.IntFlag{Name: "burst", Destination: &burst},
			&cli.Uint64Flag{Name: "seed", Destination: &gotSeed},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			applyServeConfig(c, cfg, &addr, &rateLimit, &burst, &gotSeed)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"serve", "--addr", "flag:2"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if addr != "flag:2" {
		t.Fatalf("explicit flag should win, got %q", addr)
	}
	if rateLimit != 4 || gotSeed != 9 {
		t.Fatalf("config should fill unset flags, got rate=%v seed=%d", rateLimit, gotSeed)
	}
	if burst != 0 {
		t.Fatalf("burst should stay at its default, got %d", burst)
	}
}

func TestSpMVFromDocument(t *testing.T) {
	ctx := testContext(t)
	path := writeFile(t, "m.json", exampleDocument)

	res, err := runSpMVFile(ctx, path, spmvJob{vector: []float64{1, 1, 1}, vectorBatches: 1, mode: mat.ModeWrite})
	if err != nil {
		t.Fatalf("runSpMVFile returned error: %v", err)
	}
	if got, want := res.Values, []float64{3, 3, 9}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected product: got %v want %v", got, want)
	}

	res, err = runSpMVFile(ctx, path, spmvJob{
		vector: []float64{1, 1, 1}, vectorBatches: 1, mode: mat.ModeAdd, initial: []float64{1, 1, 1},
	})
	if err != nil {
		t.Fatalf("runSpMVFile add returned error: %v", err)
	}
	if got, want := res.Values, []float64{4, 4, 10}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected accumulated product: got %v want %v", got, want)
	}
}

func TestPackInspectAndSpMV(t *testing.T) {
	ctx := testContext(t)
	in := writeFile(t, "m.json", strings.Replace(exampleDocument, `"rows": 3`, `"type": "float32", "rows": 3`, 1))
	out := filepath.Join(t.TempDir(), "m.csr")

	h, err := packFile(in, out)
	if err != nil {
		t.Fatalf("packFile returned error: %v", err)
	}
	if h.Scalar != csrfile.ScalarFloat32 || h.Rows != 3 || h.NNZ != 5 || h.Batches != 1 {
		t.Fatalf("unexpected header: %s", h)
	}

	var buf bytes.Buffer
	if err := printHeader(&buf, h); err != nil {
		t.Fatalf("printHeader: %v", err)
	}
	if !strings.Contains(buf.String(), "scalar:   float32") || !strings.Contains(buf.String(), "shape:    3 x 3 x 1") {
		t.Fatalf("unexpected header output:\n%s", buf.String())
	}

	res, err := runSpMVFile(ctx, out, spmvJob{vector: []float64{1, 2, 1, 1, 1, 1}, vectorBatches: 2, mode: mat.ModeWrite})
	if err != nil {
		t.Fatalf("runSpMVFile returned error: %v", err)
	}
	if got, want := res.Values, []float32{3, 6, 9, 3, 3, 9}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected product: got %v want %v", got, want)
	}
	if res.Type != "float32" || res.Batches != 2 {
		t.Fatalf("unexpected result metadata: %+v", res)
	}

	buf.Reset()
	if err := printResult(&buf, "text", res); err != nil {
		t.Fatalf("printResult: %v", err)
	}
	if want := "batch 0:\n3\n6\n9\nbatch 1:\n3\n3\n9\n"; buf.String() != want {
		t.Fatalf("unexpected text output:\n%s", buf.String())
	}
}

func TestRunRandomIsDeterministic(t *testing.T) {
	ctx := testContext(t)

	a, seed, err := runRandom(ctx, "int32", 3, 4, 2, 11, &[2]float64{-5, 5})
	if err != nil {
		t.Fatalf("runRandom returned error: %v", err)
	}
	if seed != 11 {
		t.Fatalf("seed not reported: %d", seed)
	}
	b, _, err := runRandom(ctx, "int32", 3, 4, 2, 11, &[2]float64{-5, 5})
	if err != nil {
		t.Fatalf("runRandom returned error: %v", err)
	}
	if !reflect.DeepEqual(a.Values, b.Values) {
		t.Fatalf("same seed produced different values")
	}
	for _, v := range a.Values.([]int32) {
		if v < -5 || v >= 5 {
			t.Fatalf("value %d outside [-5, 5)", v)
		}
	}

	if _, _, err := runRandom(ctx, "complex64", 1, 1, 1, 1, nil); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestBandedPattern(t *testing.T) {
	p, err := bandedPattern(8, 3)
	if err != nil {
		t.Fatalf("bandedPattern returned error: %v", err)
	}
	if p.NNZ() != 24 {
		t.Fatalf("unexpected nnz %d", p.NNZ())
	}
	if _, err := bandedPattern(2, 5); err != nil {
		t.Fatalf("k above n should clamp: %v", err)
	}
}
