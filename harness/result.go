// Package harness runs the external benchmark engine and collects the
// instruction counts it reports.
package harness

// Record is a single line of engine output: the instructions executed by
// one side of one benchmark.
type Record struct {
	Benchmark    string `json:"benchmark"`
	Side         string `json:"side"`
	Instructions uint64 `json:"instructions"`
}
