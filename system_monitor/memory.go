package systemmonitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/Octogonapus/BenchLab/report"
)

// parseMeminfo returns the /proc/meminfo values in bytes, keyed by field name without the trailing colon.
func parseMeminfo(buf []byte) map[string]int {
	out := map[string]int{}
	for _, line := range strings.Split(string(buf), "\n") {
		parts := strings.Fields(line)
		if len(parts) < 2 || !strings.HasSuffix(parts[0], ":") {
			continue
		}
		value, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		if len(parts) == 3 && parts[2] == "kB" {
			value *= 1024
		}
		out[strings.TrimSuffix(parts[0], ":")] = value
	}
	return out
}

func percentOf(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

func (mon *systemMonitor) appendMemoryMetrics(now time.Time, buf []byte) {
	info := parseMeminfo(buf)
	total := info["MemTotal"]
	if total == 0 {
		return
	}

	cached := info["Cached"] + info["SReclaimable"]
	used := total - info["MemFree"] - info["Buffers"] - cached
	available := info["MemAvailable"]
	swapUsed := info["SwapTotal"] - info["SwapFree"] - info["SwapCached"]

	at := now.UnixMilli()
	sm := mon.sm
	sm.MemUsedBytes = append(sm.MemUsedBytes, report.Measurement[int]{Time: at, Value: used})
	sm.MemUsedPct = append(sm.MemUsedPct, report.Measurement[float64]{Time: at, Value: percentOf(used, total)})
	sm.MemAvailBytes = append(sm.MemAvailBytes, report.Measurement[int]{Time: at, Value: available})
	sm.MemAvailPct = append(sm.MemAvailPct, report.Measurement[float64]{Time: at, Value: percentOf(available, total)})
	sm.SwapUsedBytes = append(sm.SwapUsedBytes, report.Measurement[int]{Time: at, Value: swapUsed})
	sm.SwapUsedPct = append(sm.SwapUsedPct, report.Measurement[float64]{Time: at, Value: percentOf(swapUsed, info["SwapTotal"])})
}
