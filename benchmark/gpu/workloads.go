package gpu

import (
	"fmt"

	"github.com/Octogonapus/BenchLab/benchmark"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var errNoAccelerator = errors.New("no accelerator backend; build with -tags cuda or set allow_host")

type test struct {
	id    string
	label string
	name  string
	build func(p Params, g *G.ExprGraph) *G.Node

	// Defaults to p.Iterations and p.Warmup.
	iterations func(p Params) int
	warmup     func(p Params) int

	// score derives the score, and GFLOPS where it applies, from the timed run.
	score func(p Params, iters int, seconds float64) (score, gflops float64)
}

var tests = []test{
	{id: "gpu.matrix", label: "Matrix multiply", name: "Matrix Multiply", build: buildMatrix, score: matrixScore},
	{id: "gpu.conv", label: "Convolution", name: "Convolution", build: buildConv, score: rateScore(1)},
	{id: "gpu.element", label: "Element-wise ops", name: "Element-wise Ops", build: buildElement, score: rateScore(10)},
	{id: "gpu.transformer", label: "Transformer attention", name: "Transformer Attention", build: buildAttention, iterations: half, score: rateScore(20)},
	{
		id: "gpu.memory", label: "Memory bandwidth", name: "Memory Bandwidth", build: buildBandwidth,
		iterations: func(p Params) int { return p.MemoryIterations },
		warmup:     func(p Params) int { return min(p.Warmup, 3) },
		score:      bandwidthScore,
	},
	{id: "gpu.inference", label: "AI inference", name: "AI Inference", build: buildCNN, iterations: half, score: rateScore(50)},
}

func half(p Params) int { return max(p.Iterations/2, 1) }

func rateScore(scale float64) func(Params, int, float64) (float64, float64) {
	return func(_ Params, iters int, seconds float64) (float64, float64) {
		return benchmark.PerSecond(float64(iters), seconds) * scale, 0
	}
}

func matrixScore(p Params, iters int, seconds float64) (float64, float64) {
	n := float64(p.MatrixSize)
	gflops := benchmark.PerSecond(2*n*n*n*float64(iters), seconds) / 1e9
	return gflops / 100, gflops
}

func bandwidthScore(p Params, iters int, seconds float64) (float64, float64) {
	return benchmark.GBps(int64(p.MemoryMB)*benchmark.MiB*int64(iters)*2, seconds), 0
}

func (t test) factory(raw map[string]any) (benchmark.Workload, error) {
	p, err := ParseParams(raw)
	if err != nil {
		return nil, err
	}
	return &graphWorkload{test: t, params: p}, nil
}

type graphWorkload struct {
	test
	params Params
}

func (w *graphWorkload) Input() any { return w.params }

func (w *graphWorkload) Run(sink benchmark.ProgressSink) (benchmark.Result, error) {
	dev, ok := device(w.params)
	if !ok {
		return nil, benchmark.CapabilityError(w.name, errNoAccelerator)
	}
	iters, warmup := w.params.Iterations, w.params.Warmup
	if w.iterations != nil {
		iters = w.iterations(w.params)
	}
	if w.test.warmup != nil {
		warmup = w.test.warmup(w.params)
	}

	c, err := compile(func(g *G.ExprGraph) *G.Node { return w.build(w.params, g) })
	if err != nil {
		return nil, errors.Wrap(err, w.id)
	}
	seconds, err := c.run(warmup, iters, sink)
	if err != nil {
		return nil, errors.Wrap(err, w.id)
	}

	score, gflops := w.score(w.params, iters, seconds)
	return benchmark.GPUResult{
		TestName:     w.name,
		DurationSec:  seconds,
		Operations:   int64(iters),
		OpsPerSecond: benchmark.PerSecond(float64(iters), seconds),
		Score:        score,
		Device:       dev,
		GFLOPS:       gflops,
	}, nil
}

func buildMatrix(p Params, g *G.ExprGraph) *G.Node {
	n := p.MatrixSize
	a := G.NewMatrix(g, tensor.Float32, G.WithShape(n, n), G.WithName("a"), G.WithInit(G.Gaussian(0, 1)))
	b := G.NewMatrix(g, tensor.Float32, G.WithShape(n, n), G.WithName("b"), G.WithInit(G.Gaussian(0, 1)))
	return G.Must(G.Mul(a, b))
}

func buildConv(p Params, g *G.ExprGraph) *G.Node {
	x := G.NewTensor(g, tensor.Float32, 4, G.WithShape(p.ConvBatch, 64, p.ConvImage, p.ConvImage), G.WithName("x"), G.WithInit(G.Gaussian(0, 1)))
	w := G.NewTensor(g, tensor.Float32, 4, G.WithShape(128, 64, 3, 3), G.WithName("w"), G.WithInit(G.GlorotN(1)))
	return G.Must(G.Conv2d(x, w, tensor.Shape{3, 3}, []int{1, 1}, []int{1, 1}, []int{1, 1}))
}

// a*b + sin(a)*cos(b)
func buildElement(p Params, g *G.ExprGraph) *G.Node {
	a := G.NewVector(g, tensor.Float32, G.WithShape(p.ElementSize), G.WithName("a"), G.WithInit(G.Uniform(-1, 1)))
	b := G.NewVector(g, tensor.Float32, G.WithShape(p.ElementSize), G.WithName("b"), G.WithInit(G.Uniform(-1, 1)))
	prod := G.Must(G.HadamardProd(a, b))
	trig := G.Must(G.HadamardProd(G.Must(G.Sin(a)), G.Must(G.Cos(b))))
	return G.Must(G.Add(prod, trig))
}

// data*2 + 1
func buildBandwidth(p Params, g *G.ExprGraph) *G.Node {
	n := p.MemoryMB * benchmark.MiB / 4
	data := G.NewVector(g, tensor.Float32, G.WithShape(n), G.WithName("data"), G.WithInit(G.Uniform(0, 1)))
	scaled := G.Must(G.Mul(data, G.NewConstant(float32(2))))
	return G.Must(G.Add(scaled, G.NewConstant(float32(1))))
}

// buildAttention is one multi-head self-attention block over a (batch*seq, embed) input.
func buildAttention(p Params, g *G.ExprGraph) *G.Node {
	b, s, e, h := p.Batch, p.SeqLen, p.Embed, p.Heads
	d := e / h

	x := G.NewMatrix(g, tensor.Float32, G.WithShape(b*s, e), G.WithName("x"), G.WithInit(G.Gaussian(0, 1)))
	project := func(in *G.Node, name string) *G.Node {
		w := G.NewMatrix(g, tensor.Float32, G.WithShape(e, e), G.WithName(name), G.WithInit(G.GlorotN(1)))
		return G.Must(G.Mul(in, w))
	}
	splitHeads := func(m *G.Node) *G.Node {
		m = G.Must(G.Reshape(m, tensor.Shape{b, s, h, d}))
		m = G.Must(G.Transpose(m, 0, 2, 1, 3))
		return G.Must(G.Reshape(m, tensor.Shape{b * h, s, d}))
	}

	q := splitHeads(project(x, "wq"))
	k := splitHeads(project(x, "wk"))
	v := splitHeads(project(x, "wv"))

	scale := G.NewConstant(1 / math32.Sqrt(float32(d)))
	scores := G.Must(G.Mul(G.Must(G.BatchedMatMul(q, k, false, true)), scale))
	weights := G.Must(G.SoftMax(scores))
	ctx := G.Must(G.BatchedMatMul(weights, v))

	ctx = G.Must(G.Reshape(ctx, tensor.Shape{b, h, s, d}))
	ctx = G.Must(G.Transpose(ctx, 0, 2, 1, 3))
	ctx = G.Must(G.Reshape(ctx, tensor.Shape{b * s, e}))
	return project(ctx, "wo")
}

var cnnChannels = []int{32, 64, 128}

// buildCNN is a small image classifier: three conv/relu/maxpool stages and a fully connected layer to 10 classes.
func buildCNN(p Params, g *G.ExprGraph) *G.Node {
	size := p.InferenceImage
	x := G.NewTensor(g, tensor.Float32, 4, G.WithShape(1, 3, size, size), G.WithName("image"), G.WithInit(G.Uniform(0, 1)))

	in := 3
	for i, out := range cnnChannels {
		w := G.NewTensor(g, tensor.Float32, 4, G.WithShape(out, in, 3, 3), G.WithName(fmt.Sprintf("conv%d", i)), G.WithInit(G.GlorotN(1)))
		x = G.Must(G.Conv2d(x, w, tensor.Shape{3, 3}, []int{1, 1}, []int{1, 1}, []int{1, 1}))
		x = G.Must(G.Rectify(x))
		x = G.Must(G.MaxPool2D(x, tensor.Shape{2, 2}, []int{0, 0}, []int{2, 2}))
		in = out
		size = pooledSize(size)
	}

	features := in * size * size
	flat := G.Must(G.Reshape(x, tensor.Shape{1, features}))
	fc := G.NewMatrix(g, tensor.Float32, G.WithShape(features, 10), G.WithName("fc"), G.WithInit(G.GlorotN(1)))
	return G.Must(G.Mul(flat, fc))
}

// pooledSize is the side length after a 2x2 max pool with stride 2 and no padding.
func pooledSize(n int) int { return (n-2)/2 + 1 }
