package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mateval/internal/api"
	"github.com/samcharles93/mateval/internal/device"
	"github.com/samcharles93/mateval/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		rateLimit   float64
		burst       int
		seed        uint64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the evaluation API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Float64Flag{
				Name:        "rate-limit",
				Usage:       "sustained evaluations per second (0 disables)",
				Destination: &rateLimit,
			},
			&cli.IntFlag{
				Name:        "burst",
				Usage:       "rate limiter burst (0 = rate limit rounded down, at least 1)",
				Destination: &burst,
			},
			&cli.Uint64Flag{
				Name:        "seed",
				Usage:       "default seed for /v1/random (0 = time-seeded)",
				Destination: &seed,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, loaded, &addr, &rateLimit, &burst, &seed)
			log := logger.FromContext(ctx)

			server := api.NewServer(device.FromContext(ctx), log, api.Config{
				RateLimit: rateLimit,
				Burst:     burst,
				Seed:      seed,
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", addr, "rate_limit", rateLimit)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
