package cpu

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"time"

	"github.com/Octogonapus/BenchLab/benchmark"
)

var cryptoInput = []byte("BenchLab benchmark data for cryptographic testing")

type crypto struct{ params Params }

func newCrypto(p Params) benchmark.Workload { return &crypto{params: p} }

func (w *crypto) Input() any { return w.params }

// Run digests the input with SHA-256, SHA-512 and MD5. Each digest is one operation.
func (w *crypto) Run(sink benchmark.ProgressSink) (benchmark.Result, error) {
	return measure(w.params, func() benchmark.CPUResult {
		dl := benchmark.NewDeadline(w.params.duration(), checkEvery*4).Reporting(sink)
		start := time.Now()
		var ops int64
		var acc byte
		for !dl.Passed() {
			a := sha256.Sum256(cryptoInput)
			b := sha512.Sum512(cryptoInput)
			c := md5.Sum(cryptoInput)
			acc ^= a[0] ^ b[0] ^ c[0]
			ops += 3
		}
		sinkBytes = []byte{acc}
		return result("Cryptography", ops, benchmark.Elapsed(start), 10000, 1)
	}), nil
}
