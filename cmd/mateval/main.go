package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mateval/internal/device"
	"github.com/samcharles93/mateval/internal/logger"
)

func main() {
	app := &cli.Command{
		Name:   "mateval",
		Usage:  "Batched dense/sparse matrix expression engine",
		Flags:  append(loggingFlags(), deviceFlags()...),
		Before: setup,
		After:  teardown,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			serveCmd(),
			spmvCmd(),
			randomCmd(),
			packCmd(),
			inspectCmd(),
			benchCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config file, builds the logger and the device context and
// installs both into ctx for the subcommands.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return ctx, err
	}
	applyGlobalConfig(cmd, cfg)
	loaded = cfg

	level := logLevel
	if debug {
		level = "debug"
	}
	log, err := logger.Build(os.Stderr, logFormat, level)
	if err != nil {
		return ctx, err
	}

	dc = device.New(deviceProps())
	log.Debug("device ready",
		"name", dc.Props().Name,
		"threads_per_block", dc.Props().MaxThreadsPerBlock,
		"multiprocessors", dc.Props().MultiProcessors,
		"workers", dc.Props().Workers,
	)

	ctx = logger.WithContext(ctx, log)
	return device.WithContext(ctx, dc), nil
}

func teardown(ctx context.Context, cmd *cli.Command) error {
	if dc == nil {
		return nil
	}
	return dc.Close()
}
