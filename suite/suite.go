// Package suite generates deterministic TLS benchmark suites. A suite holds
// one handshake benchmark per resumption kind, plus a transfer benchmark, for
// every compatible (cipher suite, version, auth key) combination.
package suite

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	cartesian "github.com/schwarmco/go-cartesian-product"

	"github.com/weiihann/tlsbench/benchmark"
)

// Entry describes a single benchmark to the engine.
type Entry struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Resumption  string `json:"resumption"`
	Provider    string `json:"provider"`
	CipherSuite string `json:"cipher_suite"`
	Version     string `json:"version"`
	AuthKey     string `json:"auth_key"`
	Tickets     string `json:"tickets"`
	Params      string `json:"params"`
}

// Summary contains statistics about the generated suite.
type Summary struct {
	TotalBenchmarks int
	Handshakes      int
	Transfers       int
	ParamSets       int
	Skipped         int
}

// Generator produces deterministic suites from a Config.
type Generator struct {
	cfg      *Config
	provider benchmark.Provider
	ticketer benchmark.TicketerFactory
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg *Config) (*Generator, error) {
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}

	return &Generator{
		cfg:      cfg,
		provider: providers[cfg.Provider](),
		ticketer: ticketers[cfg.Tickets],
	}, nil
}

// Ticketer returns the factory every generated benchmark's server uses.
func (g *Generator) Ticketer() benchmark.TicketerFactory { return g.ticketer }

// Build returns the benchmarks of the suite in a stable order.
func (g *Generator) Build() ([]benchmark.Benchmark, Summary) {
	var (
		benches []benchmark.Benchmark
		summary Summary
	)

	combos := cartesian.Iter(
		toAny(g.cfg.CipherSuites),
		toAny(g.cfg.Versions),
		toAny(g.cfg.AuthKeys),
	)

	// combos must be drained or its producer goroutine leaks.
	for combo := range combos {
		cs, _ := g.provider.CipherSuite(combo[0].(string))
		version, _ := benchmark.ParseProtocolVersion(combo[1].(string))
		authKey, _ := benchmark.ParseAuthKeySource(combo[2].(string))

		if !compatible(cs, version, authKey) {
			summary.Skipped++

			continue
		}

		label := paramsLabel(g.provider, cs, version, authKey)
		params := benchmark.NewParams(
			g.provider, g.ticketer, authKey, cs, version, label,
		)
		summary.ParamSets++

		for _, kind := range benchmark.AllResumptionKinds() {
			if kind == benchmark.ResumptionTickets && g.cfg.Tickets == TicketsNone {
				summary.Skipped++

				continue
			}

			benches = append(benches, benchmark.New(
				fmt.Sprintf("handshake_%s_%s", kind.Label(), label),
				benchmark.Handshake(kind),
				params,
			))
			summary.Handshakes++
		}

		if !g.cfg.SkipTransfer {
			benches = append(benches, benchmark.New(
				fmt.Sprintf("transfer_%s_%s", benchmark.ResumptionNo.Label(), label),
				benchmark.Transfer(),
				params,
			))
			summary.Transfers++
		}
	}

	summary.TotalBenchmarks = len(benches)

	return benches, summary
}

// WriteManifest writes one JSON line per benchmark to w.
func WriteManifest(w io.Writer, benches []benchmark.Benchmark) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for i := range benches {
		if err := enc.Encode(NewEntry(&benches[i])); err != nil {
			return fmt.Errorf("encode %s: %w", benches[i].Name(), err)
		}
	}

	return nil
}

// NewEntry describes b for the engine.
func NewEntry(b *benchmark.Benchmark) Entry {
	kind := "handshake"
	if b.Kind.IsTransfer() {
		kind = "transfer"
	}

	e := Entry{
		Name:       b.Name(),
		Kind:       kind,
		Resumption: b.Kind.ResumptionKind().Label(),
		Provider:   b.Params.Provider().Name,
		Version:    b.Params.Version().Short(),
		AuthKey:    b.Params.AuthKey().String(),
		Tickets:    b.Params.Ticketer().Name,
		Params:     b.Params.Label(),
	}

	if cs := b.Params.CipherSuite(); cs != nil {
		e.CipherSuite = cs.Name
	}

	return e
}

// compatible reports whether a server with authKey can negotiate cs at
// version.
func compatible(
	cs *tls.CipherSuite,
	version benchmark.ProtocolVersion,
	authKey benchmark.AuthKeySource,
) bool {
	if !slices.Contains(cs.SupportedVersions, uint16(version)) {
		return false
	}

	// TLS 1.3 suites do not name an authentication algorithm.
	if version == benchmark.VersionTLS13 || authKey.IsFuzzingProvider() {
		return true
	}

	keyType, _ := authKey.KeyType()

	switch {
	case strings.Contains(cs.Name, "_ECDSA_"):
		return !keyType.IsRSA()
	case strings.Contains(cs.Name, "_RSA_"):
		return keyType.IsRSA()
	default:
		return true
	}
}

func paramsLabel(
	provider benchmark.Provider,
	cs *tls.CipherSuite,
	version benchmark.ProtocolVersion,
	authKey benchmark.AuthKeySource,
) string {
	suite := strings.ToLower(strings.TrimPrefix(cs.Name, "TLS_"))

	return fmt.Sprintf("%s_%s_%s_%s",
		version.Short(), provider.Name, authKey, suite)
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}

	return out
}
