package systemmonitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/Octogonapus/BenchLab/report"
)

// Jiffies spent in each state, in /proc/stat column order.
type cpuTimeStat struct {
	user      int
	nice      int
	system    int
	idle      int
	iowait    int
	irq       int
	softIrq   int
	steal     int
	guest     int
	guestNice int
}

// guest and guestNice are already counted in user and nice
func (ts *cpuTimeStat) totalCPUTime() int {
	return ts.user + ts.system + ts.nice + ts.iowait + ts.irq + ts.softIrq + ts.steal + ts.idle
}

// parseCPUTimeStat reads the aggregate "cpu" line. Older kernels report fewer columns; missing ones stay zero.
func parseCPUTimeStat(buf []byte) *cpuTimeStat {
	for _, line := range strings.Split(string(buf), "\n") {
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}

		var cols [10]int
		for i, field := range strings.Fields(line)[1:] {
			if i >= len(cols) {
				break
			}
			cols[i], _ = strconv.Atoi(field)
		}
		return &cpuTimeStat{
			user:      cols[0],
			nice:      cols[1],
			system:    cols[2],
			idle:      cols[3],
			iowait:    cols[4],
			irq:       cols[5],
			softIrq:   cols[6],
			steal:     cols[7],
			guest:     cols[8],
			guestNice: cols[9],
		}
	}
	return nil
}

func (mon *systemMonitor) appendCPUMetrics(now time.Time, curr *cpuTimeStat, prev *cpuTimeStat) {
	delta := float64(curr.totalCPUTime() - prev.totalCPUTime())
	if delta <= 0 {
		return
	}
	at := now.UnixMilli()
	pct := func(d int) report.Measurement[float64] {
		return report.Measurement[float64]{Time: at, Value: float64(100*d) / delta}
	}

	sm := mon.sm
	sm.CpuUsageUser = append(sm.CpuUsageUser, pct(curr.user-prev.user-(curr.guest-prev.guest)))
	sm.CpuUsageNice = append(sm.CpuUsageNice, pct(curr.nice-prev.nice-(curr.guestNice-prev.guestNice)))
	sm.CpuUsageSystem = append(sm.CpuUsageSystem, pct(curr.system-prev.system))
	sm.CpuUsageIdle = append(sm.CpuUsageIdle, pct(curr.idle-prev.idle))
	sm.CpuUsageIowait = append(sm.CpuUsageIowait, pct(curr.iowait-prev.iowait))
	sm.CpuUsageIrq = append(sm.CpuUsageIrq, pct(curr.irq-prev.irq))
	sm.CpuUsageSoftIrq = append(sm.CpuUsageSoftIrq, pct(curr.softIrq-prev.softIrq))
	sm.CpuUsageSteal = append(sm.CpuUsageSteal, pct(curr.steal-prev.steal))
	sm.CpuUsageGuest = append(sm.CpuUsageGuest, pct(curr.guest-prev.guest))
	sm.CpuUsageGuestNice = append(sm.CpuUsageGuestNice, pct(curr.guestNice-prev.guestNice))
}
