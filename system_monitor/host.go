package systemmonitor

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"github.com/Octogonapus/BenchLab/report"
	"github.com/hashicorp/go-version"
	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// DescribeHost collects static information about the machine. Fields that can't be determined are left empty.
func DescribeHost(ctx context.Context, gpuAvailable bool) *report.Host {
	h := &report.Host{
		CPUBrand:      cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  LogicalCores(),
		L1DataBytes:   cpuid.CPU.Cache.L1D,
		L2Bytes:       cpuid.CPU.Cache.L2,
		L3Bytes:       cpuid.CPU.Cache.L3,
		GoVersion:     GoVersion(),
		GPUAvailable:  gpuAvailable,
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		h.MemTotalBytes = vm.Total
	} else {
		slog.Debug("reading memory info failed", slog.String("error", err.Error()))
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		h.OS = info.OS
		h.Platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
		h.Kernel = info.KernelVersion
	} else {
		slog.Debug("reading host info failed", slog.String("error", err.Error()))
		h.OS = runtime.GOOS
	}
	return h
}

// LogicalCores is the number of logical CPUs this process may run on. cpuid sees the whole package, the runtime
// sees the affinity mask, so the smaller of the two wins.
func LogicalCores() int {
	n := cpuid.CPU.LogicalCores
	if m := runtime.NumCPU(); n <= 0 || m < n {
		return m
	}
	return n
}

// GoVersion returns the runtime version without the "go" prefix, or the raw string for development builds.
func GoVersion() string {
	raw := runtime.Version()
	v, err := version.NewVersion(strings.TrimPrefix(raw, "go"))
	if err != nil {
		return raw
	}
	return v.String()
}
