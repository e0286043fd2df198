package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/weiihann/tlsbench/benchmark"
)

// WriteMetrics writes the counts of every benchmark to path in the
// Prometheus text format, for pickup by a node exporter textfile collector.
func WriteMetrics(path string, benches []benchmark.Benchmark, results benchmark.Results) error {
	reg := prometheus.NewRegistry()

	instructions := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tlsbench_instructions",
			Help: "Instructions executed by one side of a benchmark",
		},
		[]string{"benchmark", "side", "resumption", "params"},
	)
	reg.MustRegister(instructions)

	for i := range benches {
		b := &benches[i]
		counts := benchmark.ReportedInstrCount(b, results)

		for _, side := range benchmark.AllSides() {
			instructions.WithLabelValues(
				b.Name(),
				side.String(),
				b.Kind.ResumptionKind().Label(),
				b.Params.Label(),
			).Set(float64(counts.Side(side)))
		}
	}

	return prometheus.WriteToTextfile(path, reg)
}
