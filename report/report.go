package report

import (
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
)

type Measurement[T any] struct {
	Time  int64
	Value T
}

type DeviceMeasurement[T any] struct {
	DeviceName  string
	Measurement Measurement[T]
}

type SystemMeasurements struct {
	CpuUsageUser      []Measurement[float64]
	CpuUsageSystem    []Measurement[float64]
	CpuUsageIdle      []Measurement[float64]
	CpuUsageNice      []Measurement[float64]
	CpuUsageIowait    []Measurement[float64]
	CpuUsageIrq       []Measurement[float64]
	CpuUsageSoftIrq   []Measurement[float64]
	CpuUsageSteal     []Measurement[float64]
	CpuUsageGuest     []Measurement[float64]
	CpuUsageGuestNice []Measurement[float64]

	MemUsedBytes  []Measurement[int]
	MemUsedPct    []Measurement[float64]
	MemAvailBytes []Measurement[int]
	MemAvailPct   []Measurement[float64]
	SwapUsedBytes []Measurement[int]
	SwapUsedPct   []Measurement[float64]

	DiskReads            []DeviceMeasurement[int]
	DiskReadBytes        []DeviceMeasurement[int]
	DiskReadTimeMs       []DeviceMeasurement[int]
	DiskWrites           []DeviceMeasurement[int]
	DiskWriteBytes       []DeviceMeasurement[int]
	DiskWriteTimeMs      []DeviceMeasurement[int]
	DiskIOTimeMs         []DeviceMeasurement[int]
	DiskWeightedIOTimeMs []DeviceMeasurement[int]
	DiskIopsInProgress   []DeviceMeasurement[int]
	DiskDiscards         []DeviceMeasurement[int] // kernel 4.18+
	DiskFlushes          []DeviceMeasurement[int] // kernel 5.5+
	DiskFlushTimeMs      []DeviceMeasurement[int] // kernel 5.5+
}

type TestState string

const (
	Pending   TestState = "pending"
	Running   TestState = "running"
	Completed TestState = "completed"
	Failed    TestState = "failed"
)

type TestReport struct {
	ID                 string
	Label              string
	Category           benchmark.Category
	State              TestState
	Input              map[string]any
	Metadata           map[string]string
	Result             benchmark.Result
	ErrorKind          benchmark.ErrorKind `json:",omitempty" yaml:",omitempty"`
	Error              string              `json:",omitempty" yaml:",omitempty"` // non-empty iff the test failed
	SystemMeasurements *SystemMeasurements `json:",omitempty" yaml:",omitempty"`
}

type Host struct {
	CPUBrand      string
	PhysicalCores int
	LogicalCores  int
	L1DataBytes   int
	L2Bytes       int
	L3Bytes       int
	MemTotalBytes uint64
	OS            string
	Platform      string
	Kernel        string
	GoVersion     string
	GPUAvailable  bool
}

type SessionReport struct {
	ID         string
	Host       *Host
	StartedAt  time.Time
	FinishedAt time.Time
	Cancelled  bool
	Unresolved []string `json:",omitempty" yaml:",omitempty"`
	Tests      []*TestReport
	Results    map[benchmark.Category][]benchmark.Result
}

// Failed returns the reports of the tests that failed.
func (s *SessionReport) Failed() []*TestReport {
	out := []*TestReport{}
	for _, t := range s.Tests {
		if t.State == Failed {
			out = append(out, t)
		}
	}
	return out
}
