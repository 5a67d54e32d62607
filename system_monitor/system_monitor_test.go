package systemmonitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Octogonapus/BenchLab/report"
	"github.com/Octogonapus/BenchLab/target"
	"github.com/shirou/gopsutil/v4/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const procStat = `cpu  100 10 50 800 20 5 5 10 0 0
cpu0 50 5 25 400 10 2 2 5 0 0
intr 12345
`

const procStatLater = `cpu  200 10 100 1650 20 5 5 10 40 0
`

const procMeminfo = `MemTotal:        1000 kB
MemFree:          200 kB
MemAvailable:     600 kB
Buffers:          100 kB
Cached:           200 kB
SwapCached:         0 kB
SwapTotal:        400 kB
SwapFree:         300 kB
SReclaimable:      50 kB
HugePages_Total:      0
`

const procDiskstats = `   7       0 loop0 10 0 20 0 0 0 0 0 0 0 0 0 0 0 0 0 0
   8       0 sda 1000 10 8000 400 2000 20 16000 800 1 1100 1300 5 0 40 3 30 60
 259       0 nvme0n1 500 0 4000 100 600 0 4800 120 0 200 220
`

func newTestMonitor(t *testing.T, layout diskstatLayout) *systemMonitor {
	return &systemMonitor{
		target:   &target.LocalTarget{Root: t.TempDir()},
		layout:   layout,
		interval: 10 * time.Millisecond,
		sm:       &report.SystemMeasurements{},
	}
}

func TestParseCPUTimeStat(t *testing.T) {
	ts := parseCPUTimeStat([]byte(procStat))
	require.NotNil(t, ts)
	assert.Equal(t, cpuTimeStat{user: 100, nice: 10, system: 50, idle: 800, iowait: 20, irq: 5, softIrq: 5, steal: 10}, *ts)
	assert.Equal(t, 1000, ts.totalCPUTime())

	assert.Nil(t, parseCPUTimeStat(nil))
	short := parseCPUTimeStat([]byte("cpu 1 2 3 4\n"))
	require.NotNil(t, short)
	assert.Equal(t, 4, short.idle)
}

func TestAppendCPUMetrics(t *testing.T) {
	mon := newTestMonitor(t, diskstatLayout{})
	prev := parseCPUTimeStat([]byte(procStat))
	curr := parseCPUTimeStat([]byte(procStatLater))
	mon.appendCPUMetrics(time.UnixMilli(42), curr, prev)

	sm := mon.GetSystemMeasurements()
	require.Len(t, sm.CpuUsageUser, 1)
	assert.Equal(t, int64(42), sm.CpuUsageUser[0].Time)
	// delta total = 1000; user = 100 - 40 guest
	assert.InDelta(t, 6.0, sm.CpuUsageUser[0].Value, 1e-9)
	assert.InDelta(t, 5.0, sm.CpuUsageSystem[0].Value, 1e-9)
	assert.InDelta(t, 85.0, sm.CpuUsageIdle[0].Value, 1e-9)
	assert.InDelta(t, 4.0, sm.CpuUsageGuest[0].Value, 1e-9)

	// A counter reset yields no sample rather than a negative one.
	mon.appendCPUMetrics(time.Now(), prev, curr)
	assert.Len(t, sm.CpuUsageUser, 1)
}

func TestAppendMemoryMetrics(t *testing.T) {
	mon := newTestMonitor(t, diskstatLayout{})
	mon.appendMemoryMetrics(time.UnixMilli(1), []byte(procMeminfo))

	sm := mon.GetSystemMeasurements()
	require.Len(t, sm.MemUsedBytes, 1)
	assert.Equal(t, 450*1024, sm.MemUsedBytes[0].Value)
	assert.InDelta(t, 45.0, sm.MemUsedPct[0].Value, 1e-9)
	assert.InDelta(t, 60.0, sm.MemAvailPct[0].Value, 1e-9)
	assert.Equal(t, 100*1024, sm.SwapUsedBytes[0].Value)
	assert.InDelta(t, 25.0, sm.SwapUsedPct[0].Value, 1e-9)

	mon.appendMemoryMetrics(time.Now(), nil)
	assert.Len(t, sm.MemUsedBytes, 1)
}

func TestParseDiskstats(t *testing.T) {
	entries := parseDiskstats([]byte(procDiskstats), diskstatLayout{discards: true, flushes: true})
	require.Len(t, entries, 2)

	sda := entries[0]
	assert.Equal(t, "sda", sda.deviceName)
	assert.Equal(t, 1000, sda.get(colReadsCompleted))
	assert.Equal(t, 16000, sda.get(colSectorsWritten))
	assert.Equal(t, 5, sda.get(colDiscardsCompleted))
	assert.Equal(t, 40, sda.get(colSectorsDiscarded))
	assert.Equal(t, 30, sda.get(colFlushesCompleted))
	assert.Equal(t, 60, sda.get(colTimeFlushing))

	// An old-style line simply has no discard or flush columns.
	nvme := entries[1]
	assert.Equal(t, "nvme0n1", nvme.deviceName)
	assert.Equal(t, 220, nvme.get(colWeightedTimeDoingIos))
	assert.Equal(t, 0, nvme.get(colFlushesCompleted))

	old := parseDiskstats([]byte(procDiskstats), diskstatLayout{})
	assert.Equal(t, 0, old[0].get(colFlushesCompleted))
	assert.Equal(t, 0, old[0].get(colDiscardsCompleted))
}

func TestAppendDiskIOMetrics(t *testing.T) {
	mon := newTestMonitor(t, diskstatLayout{discards: true, flushes: true})
	mon.appendDiskIOMetrics(time.UnixMilli(7), []byte(procDiskstats))

	sm := mon.GetSystemMeasurements()
	require.Len(t, sm.DiskReads, 2)
	assert.Len(t, sm.DiskReadBytes, 2)
	assert.Equal(t, 8000*512, sm.DiskReadBytes[0].Measurement.Value)
	assert.Equal(t, "sda", sm.DiskWriteBytes[0].DeviceName)
	assert.Equal(t, 16000*512, sm.DiskWriteBytes[0].Measurement.Value)
	assert.Len(t, sm.DiskFlushes, 2)
	assert.Equal(t, 30, sm.DiskFlushes[0].Measurement.Value)

	legacy := newTestMonitor(t, diskstatLayout{})
	legacy.appendDiskIOMetrics(time.Now(), []byte(procDiskstats))
	assert.Empty(t, legacy.sm.DiskFlushes)
	assert.Empty(t, legacy.sm.DiskDiscards)
}

func TestLayoutForKernel(t *testing.T) {
	tests := []struct {
		release string
		want    diskstatLayout
	}{
		{"3.10.0-1160.el7.x86_64", diskstatLayout{}},
		{"4.18.0-513.el8.x86_64", diskstatLayout{discards: true}},
		{"5.4.0-100-generic", diskstatLayout{discards: true}},
		{"5.15.0-91-generic", diskstatLayout{discards: true, flushes: true}},
		{"6.8.0", diskstatLayout{discards: true, flushes: true}},
		{"", diskstatLayout{discards: true, flushes: true}},
	}
	for _, tt := range tests {
		t.Run(tt.release, func(t *testing.T) {
			assert.Equal(t, tt.want, layoutForKernel(tt.release))
		})
	}
}

func TestSystemMonitor_SamplesUntilStopped(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("the monitor only samples on linux")
	}
	mon := newTestMonitor(t, diskstatLayout{discards: true, flushes: true})
	root := mon.target.(*target.LocalTarget).Root
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "proc", "stat"), []byte(procStat), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "proc", "meminfo"), []byte(procMeminfo), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "proc", "diskstats"), []byte(procDiskstats), 0o644))

	require.NoError(t, mon.StartMonitoring())
	time.Sleep(50 * time.Millisecond)
	mon.StopMonitoring()
	mon.WaitUntilStopped()

	sm := mon.GetSystemMeasurements()
	assert.GreaterOrEqual(t, len(sm.MemUsedBytes), 2)
	assert.GreaterOrEqual(t, len(sm.DiskReads), 4)
	// /proc/stat never changes in the fixture, so there is no delta to report
	assert.Empty(t, sm.CpuUsageUser)
}

func TestSystemMonitor_StopWithoutStart(t *testing.T) {
	mon := NewSystemMonitor(target.NewLocalTarget())
	mon.StopMonitoring()
	mon.WaitUntilStopped()
	assert.NotNil(t, mon.GetSystemMeasurements())
}

type fakeTarget struct {
	out []byte
	err error
}

func (f *fakeTarget) RunCommand(context.Context, string, ...string) ([]byte, error) { return f.out, f.err }
func (f *fakeTarget) ReadFile(string) ([]byte, error)                               { return nil, os.ErrNotExist }

func TestTemperatureSensor_Linux(t *testing.T) {
	s := NewTemperatureSensor(&fakeTarget{})
	s.goos = "linux"

	s.sensors = func(context.Context) ([]sensors.TemperatureStat, error) {
		return []sensors.TemperatureStat{
			{SensorKey: "nvme_composite", Temperature: 40},
			{SensorKey: "k10temp_tctl", Temperature: 55.5},
		}, errors.New("some sensors unreadable")
	}
	c, ok := s.CPUTemperature(context.Background())
	assert.True(t, ok)
	assert.Equal(t, 55.5, c)

	s.sensors = func(context.Context) ([]sensors.TemperatureStat, error) {
		return []sensors.TemperatureStat{{SensorKey: "acpitz", Temperature: 30}}, nil
	}
	_, ok = s.CPUTemperature(context.Background())
	assert.False(t, ok)

	s.sensors = func(context.Context) ([]sensors.TemperatureStat, error) { return nil, os.ErrPermission }
	_, ok = s.CPUTemperature(context.Background())
	assert.False(t, ok)
}

func TestTemperatureSensor_Darwin(t *testing.T) {
	out := []byte("**** SMC sensors ****\n\nCPU Thermal level: 0\nCPU die temperature: 48.12 C\nGPU die temperature: 40.00 C\n")
	s := NewTemperatureSensor(&fakeTarget{out: out})
	s.goos = "darwin"
	c, ok := s.CPUTemperature(context.Background())
	assert.True(t, ok)
	assert.Equal(t, 48.12, c)

	s = NewTemperatureSensor(&fakeTarget{err: errors.New("sudo: a password is required")})
	s.goos = "darwin"
	_, ok = s.CPUTemperature(context.Background())
	assert.False(t, ok)
}

func TestParsePowermetrics(t *testing.T) {
	_, err := parsePowermetrics([]byte("nothing here"))
	assert.ErrorIs(t, err, ErrSensorUnavailable)
	_, err = parsePowermetrics([]byte("CPU die temperature: hot C"))
	assert.ErrorIs(t, err, ErrSensorUnavailable)
}

func TestDescribeHost(t *testing.T) {
	h := DescribeHost(context.Background(), true)
	assert.True(t, h.GPUAvailable)
	assert.Positive(t, h.LogicalCores)
	assert.NotEmpty(t, h.OS)
	assert.NotEmpty(t, h.GoVersion)
	assert.LessOrEqual(t, LogicalCores(), runtime.NumCPU())
}
