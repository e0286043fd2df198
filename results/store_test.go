package results

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/tlsbench/benchmark"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.cbor")
	counts := benchmark.Results{
		"handshake_no_resume_1.3_gostd_rsa2048_aes_128_gcm_sha256": {Client: 123, Server: 456},
		"transfer_no_resume_1.3_gostd_rsa2048_aes_128_gcm_sha256":  {Client: 7, Server: 8},
	}

	run := NewRun("main", counts)
	require.NoError(t, Save(path, run))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "main", got.Label)
	assert.Equal(t, counts, got.Counts)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cbor"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnmarshalVersion(t *testing.T) {
	b, err := cbor.Marshal(&Run{Version: FormatVersion + 1})
	require.NoError(t, err)

	_, err = Unmarshal(b)
	assert.ErrorIs(t, err, ErrVersion)
}

func TestUnmarshalGarbage(t *testing.T) {
	_, err := Unmarshal([]byte{0xff, 0x00, 0x13})
	assert.Error(t, err)
}

func TestUnmarshalEmptyCounts(t *testing.T) {
	b, err := cbor.Marshal(&Run{Version: FormatVersion})
	require.NoError(t, err)

	r, err := Unmarshal(b)
	require.NoError(t, err)
	assert.NotNil(t, r.Counts)
	assert.Empty(t, r.Counts)
}
