package benchmark

// A Metric is one named value of a result, e.g. 512.3 MB/s.
type Metric struct {
	Name  string
	Value float64
	Unit  string
}

// Result is the outcome of one workload run. Results are values and are never modified after a workload returns
// them. The concrete types are DiskResult, CPUResult, MemoryResult and GPUResult.
type Result interface {
	Name() string
	Category() Category

	// Elapsed wall-clock seconds as measured by the workload. Always greater than zero.
	Seconds() float64

	// The throughput-like metric: MB/s for disk, ops/s for CPU and GPU, GB/s for memory.
	Primary() Metric

	// Family specific metrics (IOPS, score, temperature). Metrics that were not measured are omitted.
	Secondary() []Metric

	// The raw byte or operation count behind the primary metric.
	Transferred() int64
}

type DiskResult struct {
	TestName         string
	DurationSec      float64
	BytesTransferred int64
	ThroughputMBps   float64
	IOPS             *int   // random access tests only
	Checksum         uint64 // xxhash64 of the stream, sequential tests only
}

func (r DiskResult) Name() string       { return r.TestName }
func (r DiskResult) Category() Category { return Disk }
func (r DiskResult) Seconds() float64   { return r.DurationSec }
func (r DiskResult) Transferred() int64 { return r.BytesTransferred }
func (r DiskResult) Primary() Metric    { return Metric{Name: "throughput", Value: r.ThroughputMBps, Unit: "MB/s"} }
func (r DiskResult) Secondary() []Metric {
	if r.IOPS == nil {
		return nil
	}
	return []Metric{{Name: "iops", Value: float64(*r.IOPS), Unit: "IOPS"}}
}

type CPUResult struct {
	TestName     string
	DurationSec  float64
	Operations   int64
	OpsPerSecond float64
	Score        float64
	CoresUsed    int
	TemperatureC *float64 // nil when no sensor could be read
}

func (r CPUResult) Name() string       { return r.TestName }
func (r CPUResult) Category() Category { return CPU }
func (r CPUResult) Seconds() float64   { return r.DurationSec }
func (r CPUResult) Transferred() int64 { return r.Operations }
func (r CPUResult) Primary() Metric    { return Metric{Name: "rate", Value: r.OpsPerSecond, Unit: "ops/s"} }
func (r CPUResult) Secondary() []Metric {
	out := []Metric{{Name: "score", Value: r.Score}}
	if r.TemperatureC != nil {
		out = append(out, Metric{Name: "temperature", Value: *r.TemperatureC, Unit: "°C"})
	}
	return out
}

type MemoryResult struct {
	TestName         string
	DurationSec      float64
	BytesTransferred int64
	BandwidthGBps    float64
	Score            float64
	BufferSize       string
}

func (r MemoryResult) Name() string       { return r.TestName }
func (r MemoryResult) Category() Category { return Memory }
func (r MemoryResult) Seconds() float64   { return r.DurationSec }
func (r MemoryResult) Transferred() int64 { return r.BytesTransferred }
func (r MemoryResult) Primary() Metric {
	return Metric{Name: "bandwidth", Value: r.BandwidthGBps, Unit: "GB/s"}
}
func (r MemoryResult) Secondary() []Metric { return []Metric{{Name: "score", Value: r.Score}} }

type GPUResult struct {
	TestName     string
	DurationSec  float64
	Operations   int64
	OpsPerSecond float64
	Score        float64
	Device       string
	GFLOPS       float64 `json:",omitempty" yaml:",omitempty"` // matrix multiply only
}

func (r GPUResult) Name() string        { return r.TestName }
func (r GPUResult) Category() Category  { return GPU }
func (r GPUResult) Seconds() float64    { return r.DurationSec }
func (r GPUResult) Transferred() int64  { return r.Operations }
func (r GPUResult) Primary() Metric     { return Metric{Name: "rate", Value: r.OpsPerSecond, Unit: "ops/s"} }
func (r GPUResult) Secondary() []Metric { return []Metric{{Name: "score", Value: r.Score}} }
