// Package report formats benchmark instruction counts into tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/weiihann/tlsbench/benchmark"
)

// Generate writes a markdown table of the counts of every benchmark. Every
// benchmark must have an entry in results.
func Generate(w io.Writer, benches []benchmark.Benchmark, results benchmark.Results) error {
	if len(benches) == 0 {
		return fmt.Errorf("no benchmarks to report")
	}

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Benchmark | Kind | Params | Client | Server | Total |")
	fmt.Fprintln(w, "|-----------|------|--------|--------|--------|-------|")

	for i := range benches {
		b := &benches[i]
		counts := benchmark.ReportedInstrCount(b, results)

		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s |\n",
			b.Name(),
			b.Kind,
			b.Params.Label(),
			formatCount(counts.Client),
			formatCount(counts.Server),
			formatCount(counts.Client+counts.Server),
		)
	}

	return nil
}

// Row is a single JSON report entry: one side of one benchmark.
type Row struct {
	Name         string `json:"name"`
	Benchmark    string `json:"benchmark"`
	Side         string `json:"side"`
	Resumption   string `json:"resumption"`
	Params       string `json:"params"`
	Instructions uint64 `json:"instructions"`
}

// GenerateJSON writes one row per benchmark and side as JSON to w.
func GenerateJSON(w io.Writer, benches []benchmark.Benchmark, results benchmark.Results) error {
	rows := make([]Row, 0, 2*len(benches))

	for i := range benches {
		b := &benches[i]
		counts := benchmark.ReportedInstrCount(b, results)

		for _, side := range benchmark.AllSides() {
			rows = append(rows, Row{
				Name:         b.NameWithSide(side),
				Benchmark:    b.Name(),
				Side:         side.String(),
				Resumption:   b.Kind.ResumptionKind().Label(),
				Params:       b.Params.Label(),
				Instructions: counts.Side(side),
			})
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(rows)
}

// CompareSummary counts the notable entries of a comparison.
type CompareSummary struct {
	Compared    int
	Significant int
	New         []string
}

type diff struct {
	name      string
	baseline  uint64
	candidate uint64
	pct       float64
}

// Compare writes a markdown table comparing candidate counts against a
// baseline, largest relative change first. Changes of at least threshold
// percent are flagged. Benchmarks absent from the baseline are listed
// separately; every benchmark must be present in candidate.
func Compare(
	w io.Writer,
	benches []benchmark.Benchmark,
	baseline, candidate benchmark.Results,
	threshold float64,
) (CompareSummary, error) {
	var summary CompareSummary

	if len(benches) == 0 {
		return summary, fmt.Errorf("no benchmarks to compare")
	}

	var diffs []diff

	for i := range benches {
		b := &benches[i]
		cand := benchmark.ReportedInstrCount(b, candidate)

		base, ok := baseline[b.Name()]
		if !ok {
			summary.New = append(summary.New, b.Name())

			continue
		}

		for _, side := range benchmark.AllSides() {
			diffs = append(diffs, diff{
				name:      b.NameWithSide(side),
				baseline:  base.Side(side),
				candidate: cand.Side(side),
				pct:       diffPct(base.Side(side), cand.Side(side)),
			})
		}
	}

	sort.SliceStable(diffs, func(i, j int) bool {
		return math.Abs(diffs[i].pct) > math.Abs(diffs[j].pct)
	})

	fmt.Fprintln(w, "## Instruction Count Comparison")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Benchmark | Baseline | Candidate | Diff | Diff % |")
	fmt.Fprintln(w, "|-----------|----------|-----------|------|--------|")

	for _, d := range diffs {
		pct := formatPct(d.pct)
		if math.Abs(d.pct) >= threshold {
			pct = "**" + pct + "**"
			summary.Significant++
		}

		fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n",
			d.name,
			formatCount(d.baseline),
			formatCount(d.candidate),
			formatDelta(d.baseline, d.candidate),
			pct,
		)
	}

	summary.Compared = len(diffs)

	if len(summary.New) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "New benchmarks (no baseline):")

		for _, name := range summary.New {
			fmt.Fprintf(w, "  - %s\n", name)
		}
	}

	return summary, nil
}

func diffPct(baseline, candidate uint64) float64 {
	if baseline == 0 {
		if candidate == 0 {
			return 0
		}

		return math.Inf(1)
	}

	return (float64(candidate) - float64(baseline)) / float64(baseline) * 100
}

func formatPct(pct float64) string {
	if math.IsInf(pct, 1) {
		return "+inf%"
	}

	return fmt.Sprintf("%+.2f%%", pct)
}

func formatDelta(baseline, candidate uint64) string {
	if candidate >= baseline {
		return "+" + formatCount(candidate-baseline)
	}

	return "-" + formatCount(baseline-candidate)
}

func formatCount(n uint64) string {
	return humanize.BigComma(new(big.Int).SetUint64(n))
}
