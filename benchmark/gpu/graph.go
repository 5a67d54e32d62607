package gpu

import (
	"log/slog"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// compiled is a graph ready to run. output receives the value of the graph's result node on every run.
type compiled struct {
	vm     G.VM
	output *G.Value
}

// compile builds a graph with build, which may panic through G.Must.
func compile(build func(g *G.ExprGraph) *G.Node) (c compiled, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("building graph: %v", r)
		}
	}()
	g := G.NewGraph()
	out := build(g)
	var v G.Value
	G.Read(out, &v)
	return compiled{vm: G.NewTapeMachine(g), output: &v}, nil
}

func (c compiled) step() error {
	defer c.vm.Reset()
	return c.vm.RunAll()
}

// run executes warmup untimed iterations, then iters timed ones, and returns the timed seconds. The clock stops only
// after the output has been read back to host memory.
func (c compiled) run(warmup, iters int, sink benchmark.ProgressSink) (float64, error) {
	defer c.vm.Close()
	for range warmup {
		if err := c.step(); err != nil {
			return 0, errors.Wrap(err, "warmup")
		}
	}
	start := time.Now()
	for i := range iters {
		if err := c.step(); err != nil {
			return 0, errors.Wrapf(err, "iteration %d", i)
		}
		sink.Report(benchmark.Percent(i+1, iters))
	}
	if err := c.barrier(); err != nil {
		return 0, err
	}
	return benchmark.Elapsed(start), nil
}

// barrier copies the first element of the output to the host, forcing queued device work to finish.
func (c compiled) barrier() error {
	if *c.output == nil {
		return errors.New("graph produced no output")
	}
	t, ok := (*c.output).(tensor.Tensor)
	if !ok {
		return nil
	}
	data, ok := t.Data().([]float32)
	if !ok || len(data) == 0 {
		return errors.Errorf("unexpected output type %T", t.Data())
	}
	if math32.IsNaN(data[0]) || math32.IsInf(data[0], 0) {
		slog.Warn("graph output is not finite", slog.Float64("value", float64(data[0])))
	}
	return nil
}
