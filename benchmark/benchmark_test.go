package benchmark

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams(t *testing.T) Params {
	t.Helper()

	provider := StdlibProvider()
	cs, ok := provider.CipherSuite("TLS_AES_128_GCM_SHA256")
	require.True(t, ok)

	return NewParams(
		provider,
		DisabledTickets,
		KeyTypeSource(KeyTypeRSA2048),
		cs,
		VersionTLS13,
		"1.3_gostd_rsa2048_aes_128_gcm_sha256",
	)
}

func benchmarksNamed(t *testing.T, names ...string) []Benchmark {
	t.Helper()

	params := testParams(t)
	benches := make([]Benchmark, 0, len(names))

	for _, name := range names {
		benches = append(benches, New(name, Handshake(ResumptionNo), params))
	}

	return benches
}

func TestValidateDistinctNames(t *testing.T) {
	benches := benchmarksNamed(t, "hs_no_resume", "hs_tickets", "transfer")
	require.NoError(t, Validate(benches))
}

func TestValidateEmpty(t *testing.T) {
	require.NoError(t, Validate(nil))
	require.NoError(t, Validate([]Benchmark{}))
}

func TestValidateDuplicateName(t *testing.T) {
	benches := benchmarksNamed(t, "hs_no_resume", "hs_no_resume", "transfer")

	err := Validate(benches)
	require.Error(t, err)

	var dupErr *DuplicateNamesError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, []string{"hs_no_resume"}, dupErr.Names)
	assert.Equal(t, 1, strings.Count(err.Error(), "hs_no_resume"))
	assert.NotContains(t, err.Error(), "transfer")
}

func TestValidateReportsEachDuplicateOnce(t *testing.T) {
	benches := benchmarksNamed(t,
		"a", "b", "a", "c", "a", "b", "d", "a",
	)

	err := Validate(benches)
	require.Error(t, err)

	var dupErr *DuplicateNamesError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, []string{"a", "b"}, dupErr.Names)
	assert.Equal(t,
		"the following benchmarks are defined multiple times: a, b",
		err.Error(),
	)
}

func TestValidateDeterministic(t *testing.T) {
	benches := benchmarksNamed(t, "z", "y", "x", "y", "z", "x")

	first := Validate(benches)
	require.Error(t, first)

	for i := 0; i < 10; i++ {
		assert.Equal(t, first.Error(), Validate(benches).Error())
	}
	assert.Contains(t, first.Error(), ": y, z, x")
}

func TestNameWithSide(t *testing.T) {
	bench := New("foo", Transfer(), testParams(t))

	client := bench.NameWithSide(SideClient)
	server := bench.NameWithSide(SideServer)

	assert.Equal(t, "foo_client", client)
	assert.Equal(t, "foo_server", server)
	assert.NotEqual(t, client, server)
	assert.True(t, strings.HasPrefix(client, "foo_"))
	assert.True(t, strings.HasPrefix(server, "foo_"))
}

func TestBenchmarkAccessors(t *testing.T) {
	params := testParams(t)
	bench := New("handshake_tickets", Handshake(ResumptionTickets), params)

	assert.Equal(t, "handshake_tickets", bench.Name())
	assert.Equal(t, ResumptionTickets, bench.Kind.ResumptionKind())
	assert.Equal(t, params.Label(), bench.Params.Label())
}

func TestTransferNeverResumes(t *testing.T) {
	bench := New("transfer_tickets", Transfer(), testParams(t))
	assert.Equal(t, ResumptionNo, bench.Kind.ResumptionKind())
}

func TestReportedInstrCount(t *testing.T) {
	bench := New("handshake_no_resume", Handshake(ResumptionNo), testParams(t))
	results := Results{
		"handshake_no_resume": {Client: 100, Server: 200},
		"transfer":            {Client: 1, Server: 2},
	}

	got := ReportedInstrCount(&bench, results)
	assert.Equal(t, InstructionCounts{Client: 100, Server: 200}, got)
	assert.Equal(t, uint64(100), got.Side(SideClient))
	assert.Equal(t, uint64(200), got.Side(SideServer))
}

func TestReportedInstrCountMissingPanics(t *testing.T) {
	bench := New("handshake_no_resume", Handshake(ResumptionNo), testParams(t))
	results := Results{"handshake_no_resume_client": {Client: 1}}

	assert.PanicsWithValue(t,
		`no instruction counts reported for benchmark "handshake_no_resume"`,
		func() { ReportedInstrCount(&bench, results) },
	)
}
