package device

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Props describes the limits the launch geometry calculator works against.
type Props struct {
	Name                       string
	MaxThreadsPerBlock         int
	WarpSize                   int
	MultiProcessors            int
	MaxBlocksPerMultiProcessor int
	// Workers bounds how many blocks execute concurrently.
	Workers  int
	Features []string
}

const (
	defaultMaxThreadsPerBlock = 1024
	defaultWarpSize           = 32
	defaultBlocksPerMP        = 16
)

// HostProps returns the properties of the host-emulated device.
func HostProps() Props {
	return Props{
		Name:                       "host",
		MaxThreadsPerBlock:         defaultMaxThreadsPerBlock,
		WarpSize:                   defaultWarpSize,
		MultiProcessors:            runtime.NumCPU(),
		MaxBlocksPerMultiProcessor: defaultBlocksPerMP,
		Workers:                    runtime.GOMAXPROCS(0),
		Features:                   hostFeatures(),
	}
}

// MaxResidentBlocks is the largest grid a single launch may use.
func (p Props) MaxResidentBlocks() int {
	return p.MultiProcessors * p.MaxBlocksPerMultiProcessor
}

// withDefaults fills zero fields from HostProps.
func (p Props) withDefaults() Props {
	host := HostProps()
	if p.Name == "" {
		p.Name = host.Name
	}
	if p.MaxThreadsPerBlock <= 0 {
		p.MaxThreadsPerBlock = host.MaxThreadsPerBlock
	}
	if p.WarpSize <= 0 {
		p.WarpSize = host.WarpSize
	}
	if p.MultiProcessors <= 0 {
		p.MultiProcessors = host.MultiProcessors
	}
	if p.MaxBlocksPerMultiProcessor <= 0 {
		p.MaxBlocksPerMultiProcessor = host.MaxBlocksPerMultiProcessor
	}
	if p.Workers <= 0 {
		p.Workers = host.Workers
	}
	if p.Features == nil {
		p.Features = host.Features
	}
	return p
}

func hostFeatures() []string {
	features := make([]string, 0, 6)
	add := func(ok bool, name string) {
		if ok {
			features = append(features, name)
		}
	}
	add(cpu.X86.HasAVX2, "avx2")
	add(cpu.X86.HasFMA, "fma")
	add(cpu.X86.HasAVX512F, "avx512f")
	add(cpu.ARM64.HasASIMD, "asimd")
	add(cpu.ARM64.HasSVE, "sve")
	return features
}
