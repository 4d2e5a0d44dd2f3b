package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mateval/internal/device"
)

var (
	logLevel   string
	logFormat  string
	debug      bool
	configFile string

	threadsPerBlock int
	multiProcessors int
	blocksPerMP     int
	workers         int

	// dc is the device context built by setup.
	dc *device.Context
	// loaded is the parsed config file, for subcommands that read their own keys.
	loaded Config
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml",
			Value:       configPath(),
			Destination: &configFile,
		},
	}
}

// deviceFlags shape the emulated device. Zero means the host default.
func deviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "threads-per-block",
			Usage:       "maximum threads per block (0 = 1024)",
			Destination: &threadsPerBlock,
		},
		&cli.IntFlag{
			Name:        "multiprocessors",
			Usage:       "number of multiprocessors (0 = CPU count)",
			Destination: &multiProcessors,
		},
		&cli.IntFlag{
			Name:        "blocks-per-mp",
			Usage:       "maximum resident blocks per multiprocessor (0 = 16)",
			Destination: &blocksPerMP,
		},
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "goroutines executing blocks (0 = GOMAXPROCS)",
			Destination: &workers,
		},
	}
}

func deviceProps() device.Props {
	return device.Props{
		MaxThreadsPerBlock:         threadsPerBlock,
		MultiProcessors:            multiProcessors,
		MaxBlocksPerMultiProcessor: blocksPerMP,
		Workers:                    workers,
	}
}
