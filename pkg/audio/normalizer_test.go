package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_AcceptedFormatsPassThrough(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{}, noopLogger())

	for _, ext := range []string{"mp3", "mp4", "mpeg", "mpga", "m4a", "wav", "webm"} {
		path := filepath.Join(t.TempDir(), "recording."+ext)
		require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))

		out, err := n.Normalize(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, path, out, "accepted format %s should pass through", ext)
		assert.FileExists(t, path)
	}
}

func TestNormalize_UppercaseExtensionPassThrough(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{}, noopLogger())

	path := filepath.Join(t.TempDir(), "recording.MP3")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))

	out, err := n.Normalize(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, out)
}

func TestNormalize_ConversionFailureKeepsOriginal(t *testing.T) {
	// "false" exits non-zero without producing output.
	n := NewNormalizer(NormalizerConfig{FFmpegPath: "false"}, noopLogger())

	dir := t.TempDir()
	path := filepath.Join(dir, "recording.ogg")
	require.NoError(t, os.WriteFile(path, []byte("OggS"), 0o644))

	_, err := n.Normalize(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversionFailed)

	// original survives, no partial mp3 remains
	assert.FileExists(t, path)
	assert.NoFileExists(t, filepath.Join(dir, "recording.mp3"))
}
