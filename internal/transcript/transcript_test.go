package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.ndjson.gz")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Record(DirInbound, []byte(`{"type":"message","data":{"content":"hi"}}`)))
	require.NoError(t, w.Record(DirOutbound, []byte(`{"type":"chat","requestId":"r1"}`)))
	// Sentinel frames are not JSON; they are stored quoted.
	require.NoError(t, w.Record(DirInbound, []byte("pong")))
	require.NoError(t, w.Close())

	records, err := Read(path)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, DirInbound, records[0].Direction)
	assert.JSONEq(t, `{"type":"message","data":{"content":"hi"}}`, string(records[0].Frame))
	assert.Equal(t, DirOutbound, records[1].Direction)
	assert.Equal(t, `"pong"`, string(records[2].Frame))
	assert.False(t, records[0].At.IsZero())
}

func TestFileIsGzipCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.ndjson.gz")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Record(DirInbound, []byte(`{"type":"status","status":"running"}`)))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 2)
	assert.Equal(t, byte(0x1F), raw[0])
	assert.Equal(t, byte(0x8B), raw[1])
}

func TestCloseIsIdempotentAndFinal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.ndjson.gz")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	err = w.Record(DirInbound, []byte(`{}`))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.ndjson.gz"))
	assert.Error(t, err)
}
