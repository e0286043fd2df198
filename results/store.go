// Package results persists the instruction counts of a benchmark run.
package results

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/weiihann/tlsbench/benchmark"
)

// FormatVersion is the version of the on-disk document.
const FormatVersion = 1

// ErrVersion is returned when a results file has an unsupported version.
var ErrVersion = errors.New("results: unsupported format version")

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}

	return em
}

// Run is a stored benchmark run.
type Run struct {
	Version   int               `cbor:"1,keyasint"`
	Label     string            `cbor:"2,keyasint,omitempty"`
	CreatedAt time.Time         `cbor:"3,keyasint"`
	Counts    benchmark.Results `cbor:"4,keyasint"`
}

// NewRun wraps counts for storage.
func NewRun(label string, counts benchmark.Results) *Run {
	return &Run{
		Version:   FormatVersion,
		Label:     label,
		CreatedAt: time.Now().UTC(),
		Counts:    counts,
	}
}

// Marshal encodes r as CBOR.
func (r *Run) Marshal() ([]byte, error) {
	return encMode.Marshal(r)
}

// Unmarshal decodes and checks a CBOR encoded run.
func Unmarshal(b []byte) (*Run, error) {
	r := new(Run)

	if err := cbor.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("results: decode: %w", err)
	}
	if r.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, r.Version)
	}
	if r.Counts == nil {
		r.Counts = make(benchmark.Results)
	}

	return r, nil
}

// Save writes r to path, replacing any existing file.
func Save(path string, r *Run) error {
	b, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("results: encode: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("results: write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)

		return fmt.Errorf("results: rename %s: %w", path, err)
	}

	return nil
}

// Load reads a run stored by Save.
func Load(path string) (*Run, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Unmarshal(b)
}
