package systemmonitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/Octogonapus/BenchLab/report"
)

const sectorSize = 512

// Columns of /proc/diskstats, see Documentation/admin-guide/iostats.rst.
const (
	colMajor = iota
	colMinor
	colDevice
	colReadsCompleted
	colReadsMerged
	colSectorsRead
	colTimeReading
	colWritesCompleted
	colWritesMerged
	colSectorsWritten
	colTimeWriting
	colIosInProgress
	colTimeDoingIos
	colWeightedTimeDoingIos
	colDiscardsCompleted
	colDiscardsMerged
	colSectorsDiscarded
	colTimeDiscarding
	colFlushesCompleted
	colTimeFlushing
	colCount
)

type diskstatEntry struct {
	deviceName string
	cols       [colCount]int
}

func (e *diskstatEntry) get(col int) int { return e.cols[col] }

// parseDiskstats returns one entry per block device, skipping loop and ram devices. Columns the layout or the line
// does not provide are left zero.
func parseDiskstats(buf []byte, layout diskstatLayout) []diskstatEntry {
	want := colDiscardsCompleted
	if layout.discards {
		want = colFlushesCompleted
	}
	if layout.flushes {
		want = colCount
	}

	out := []diskstatEntry{}
	for _, line := range strings.Split(string(buf), "\n") {
		parts := strings.Fields(line)
		if len(parts) < colDiscardsCompleted {
			continue
		}
		name := parts[colDevice]
		if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "ram") {
			continue
		}

		entry := diskstatEntry{deviceName: name}
		for col := range min(want, len(parts)) {
			if col == colDevice {
				continue
			}
			entry.cols[col], _ = strconv.Atoi(parts[col])
		}
		out = append(out, entry)
	}
	return out
}

func deviceMeasurement(at int64, name string, value int) report.DeviceMeasurement[int] {
	return report.DeviceMeasurement[int]{
		DeviceName:  name,
		Measurement: report.Measurement[int]{Time: at, Value: value},
	}
}

func (mon *systemMonitor) appendDiskIOMetrics(now time.Time, buf []byte) {
	at := now.UnixMilli()
	sm := mon.sm
	for _, e := range parseDiskstats(buf, mon.layout) {
		name := e.deviceName
		sm.DiskReads = append(sm.DiskReads, deviceMeasurement(at, name, e.get(colReadsCompleted)))
		sm.DiskReadBytes = append(sm.DiskReadBytes, deviceMeasurement(at, name, e.get(colSectorsRead)*sectorSize))
		sm.DiskReadTimeMs = append(sm.DiskReadTimeMs, deviceMeasurement(at, name, e.get(colTimeReading)))
		sm.DiskWrites = append(sm.DiskWrites, deviceMeasurement(at, name, e.get(colWritesCompleted)))
		sm.DiskWriteBytes = append(sm.DiskWriteBytes, deviceMeasurement(at, name, e.get(colSectorsWritten)*sectorSize))
		sm.DiskWriteTimeMs = append(sm.DiskWriteTimeMs, deviceMeasurement(at, name, e.get(colTimeWriting)))
		sm.DiskIOTimeMs = append(sm.DiskIOTimeMs, deviceMeasurement(at, name, e.get(colTimeDoingIos)))
		sm.DiskWeightedIOTimeMs = append(sm.DiskWeightedIOTimeMs, deviceMeasurement(at, name, e.get(colWeightedTimeDoingIos)))
		sm.DiskIopsInProgress = append(sm.DiskIopsInProgress, deviceMeasurement(at, name, e.get(colIosInProgress)))
		if mon.layout.discards {
			sm.DiskDiscards = append(sm.DiskDiscards, deviceMeasurement(at, name, e.get(colDiscardsCompleted)))
		}
		if mon.layout.flushes {
			sm.DiskFlushes = append(sm.DiskFlushes, deviceMeasurement(at, name, e.get(colFlushesCompleted)))
			sm.DiskFlushTimeMs = append(sm.DiskFlushTimeMs, deviceMeasurement(at, name, e.get(colTimeFlushing)))
		}
	}
}
