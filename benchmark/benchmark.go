// Package benchmark defines the TLS benchmarks run by tlsbench: what is
// measured, the parameters it runs with, and the rules a set of benchmark
// definitions must satisfy before it is executed.
package benchmark

import (
	"fmt"
	"strings"
)

// Benchmark is a single benchmark specification.
type Benchmark struct {
	// name is shown in the results and keys the result map.
	name string

	Kind   Kind
	Params Params
}

// New creates a new benchmark. Name uniqueness is checked by Validate.
func New(name string, kind Kind, params Params) Benchmark {
	return Benchmark{name: name, Kind: kind, Params: params}
}

// Name returns the benchmark's unique name.
func (b *Benchmark) Name() string {
	return b.name
}

// NameWithSide returns the benchmark's name with the side appended to it.
func (b *Benchmark) NameWithSide(side Side) string {
	return fmt.Sprintf("%s_%s", b.name, side)
}

// InstructionCounts are the instructions executed by each side of a
// benchmark.
type InstructionCounts struct {
	Client uint64 `json:"client" cbor:"1,keyasint"`
	Server uint64 `json:"server" cbor:"2,keyasint"`
}

// Side returns the count of one side.
func (c InstructionCounts) Side(side Side) uint64 {
	if side == SideServer {
		return c.Server
	}

	return c.Client
}

// Results maps bare benchmark names to their measured instruction counts.
type Results map[string]InstructionCounts

// DuplicateNamesError is returned by Validate when benchmark names are
// reused.
type DuplicateNamesError struct {
	// Names holds each duplicated name once, in the order its first repeat
	// was seen.
	Names []string
}

func (e *DuplicateNamesError) Error() string {
	return "the following benchmarks are defined multiple times: " +
		strings.Join(e.Names, ", ")
}

// Validate checks a benchmark collection, returning an error if it cannot
// be run. The only rule is that no benchmark name is defined twice.
func Validate(benchmarks []Benchmark) error {
	seen := make(map[string]int, len(benchmarks))

	var dups []string

	for i := range benchmarks {
		name := benchmarks[i].name
		seen[name]++

		if seen[name] == 2 {
			dups = append(dups, name)
		}
	}

	if len(dups) > 0 {
		return &DuplicateNamesError{Names: dups}
	}

	return nil
}

// ReportedInstrCount returns the instruction counts recorded for bench.
// It panics if results has no entry for it: a validated benchmark without
// results means the engine and the suite are out of sync.
func ReportedInstrCount(bench *Benchmark, results Results) InstructionCounts {
	counts, ok := results[bench.name]
	if !ok {
		panic(fmt.Sprintf("no instruction counts reported for benchmark %q", bench.name))
	}

	return counts
}
