package adapter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileReader_MissingFileIsFatalAtConstruction(t *testing.T) {
	_, err := NewFileReader(filepath.Join(t.TempDir(), "nope.pcm"), nil)
	require.Error(t, err)
}

func TestFileReader_BootThenReadToEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.pcm")
	want := []byte{1, 2, 3, 4, 5, 6, 7}
	require.NoError(t, os.WriteFile(path, want, 0o644))

	r, err := NewFileReader(path, nil)
	require.NoError(t, err)
	require.NoError(t, r.Boot(context.Background()))

	var got []byte
	for {
		chunk, ok, err := r.Read(context.Background(), 3)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, chunk...)
	}
	assert.Equal(t, want, got)

	// read-after-EOF keeps returning EOF.
	_, ok, err := r.Read(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBufferReader_AdvancesPositionAcrossReads(t *testing.T) {
	src := bytes.NewReader([]byte{9, 8, 7, 6, 5})
	r, err := NewBufferReader(src, passthroughDecoder{})
	require.NoError(t, err)
	require.NoError(t, r.Boot(context.Background()))

	first, ok, err := r.Read(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{9, 8}, first)

	second, ok, err := r.Read(context.Background(), 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{7, 6, 5}, second)

	_, ok, err = r.Read(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBufferReader_NilSourceIsConfigurationError(t *testing.T) {
	_, err := NewBufferReader(nil, passthroughDecoder{})
	require.Error(t, err)
}

type passthroughDecoder struct{}

func (passthroughDecoder) DecodeToPCM16(payload []byte, sampleRate int) ([]byte, error) {
	return payload, nil
}
