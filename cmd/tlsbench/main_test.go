package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/tlsbench/benchmark"
	"github.com/weiihann/tlsbench/results"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := newRootCmd(logger, new(slog.LevelVar))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string, mode os.FileMode) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), mode))

	return path
}

const smallSuite = `
CipherSuites = ["TLS_AES_128_GCM_SHA256"]
Versions = ["1.3"]
AuthKeys = ["rsa2048", "fuzzing"]
`

func TestValidateDefaultSuite(t *testing.T) {
	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Equal(t, "68 benchmarks over 17 parameter sets are valid\n", out)
}

func TestValidateDuplicateSuite(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dup.toml", `
CipherSuites = ["TLS_AES_128_GCM_SHA256", "TLS_AES_128_GCM_SHA256"]
Versions = ["1.3"]
AuthKeys = ["ed25519"]
`, 0o644)

	_, err := execute(t, "validate", "--suite", path)
	require.Error(t, err)

	var dupErr *benchmark.DuplicateNamesError
	require.ErrorAs(t, err, &dupErr)
	assert.Len(t, dupErr.Names, 4)
	assert.Contains(t, err.Error(), "handshake_tickets_1.3_gostd_ed25519_aes_128_gcm_sha256")
}

func TestValidateInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "validate", "--log-level", "loud")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	path := writeFile(t, t.TempDir(), "suite.toml", smallSuite, 0o644)

	out, err := execute(t, "list", "--suite", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "handshake_no_resume_1.3_gostd_rsa2048_aes_128_gcm_sha256", lines[0])
	assert.Equal(t, "transfer_no_resume_1.3_gostd_fuzzing_aes_128_gcm_sha256", lines[7])

	out, err = execute(t, "list", "--suite", path, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"auth_key":"fuzzing"`)
	assert.Contains(t, out, `"tickets":"aead"`)
}

const fakeEngine = `#!/bin/sh
side=$2
sed -n 's/^{"name":"\([^"]*\)".*/\1/p' | while read -r name; do
	echo "{\"benchmark\":\"$name\",\"side\":\"$side\",\"instructions\":1000}"
done
`

func TestRunAndCompare(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}

	dir := t.TempDir()
	suitePath := writeFile(t, dir, "suite.toml", smallSuite, 0o644)
	engine := writeFile(t, dir, "engine.sh", fakeEngine, 0o755)
	outputDir := filepath.Join(dir, "out")
	metrics := filepath.Join(dir, "tlsbench.prom")

	out, err := execute(t, "run",
		"--suite", suitePath,
		"--engine", engine,
		"--output-dir", outputDir,
		"--label", "ci",
		"--metrics-file", metrics,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "## Benchmark Results")
	assert.Contains(t, out, "| 1,000 | 1,000 | 2,000 |")

	resultsPath := filepath.Join(outputDir, "results.cbor")
	run, err := results.Load(resultsPath)
	require.NoError(t, err)
	assert.Equal(t, "ci", run.Label)
	assert.Len(t, run.Counts, 8)

	_, err = os.Stat(metrics)
	require.NoError(t, err)

	out, err = execute(t, "compare", "--suite", suitePath,
		"--fail-on-significant", resultsPath, resultsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "+0.00%")
	assert.NotContains(t, out, "**")
}

func TestCompareCandidateFromOtherSuite(t *testing.T) {
	dir := t.TempDir()
	suitePath := writeFile(t, dir, "suite.toml", smallSuite, 0o644)

	path := filepath.Join(dir, "partial.cbor")
	require.NoError(t, results.Save(path, results.NewRun("", benchmark.Results{
		"handshake_no_resume_1.3_gostd_rsa2048_aes_128_gcm_sha256": {Client: 1, Server: 1},
	})))

	_, err := execute(t, "compare", "--suite", suitePath, path, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not produced by this suite")
}

func TestCompareSignificant(t *testing.T) {
	dir := t.TempDir()
	suitePath := writeFile(t, dir, "suite.toml", `
CipherSuites = ["TLS_AES_128_GCM_SHA256"]
Versions = ["1.3"]
AuthKeys = ["rsa2048"]
SkipTransfer = true
Tickets = "none"
`, 0o644)

	base := benchmark.Results{
		"handshake_no_resume_1.3_gostd_rsa2048_aes_128_gcm_sha256":  {Client: 100, Server: 100},
		"handshake_session_id_1.3_gostd_rsa2048_aes_128_gcm_sha256": {Client: 100, Server: 100},
	}
	cand := benchmark.Results{
		"handshake_no_resume_1.3_gostd_rsa2048_aes_128_gcm_sha256":  {Client: 100, Server: 150},
		"handshake_session_id_1.3_gostd_rsa2048_aes_128_gcm_sha256": {Client: 100, Server: 100},
	}

	basePath := filepath.Join(dir, "base.cbor")
	candPath := filepath.Join(dir, "cand.cbor")
	require.NoError(t, results.Save(basePath, results.NewRun("base", base)))
	require.NoError(t, results.Save(candPath, results.NewRun("cand", cand)))

	out, err := execute(t, "compare", "--suite", suitePath, basePath, candPath)
	require.NoError(t, err)
	assert.Contains(t, out, "**+50.00%**")

	_, err = execute(t, "compare", "--suite", suitePath, "--fail-on-significant", basePath, candPath)
	assert.ErrorIs(t, err, errSignificant)
}
