package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/pianotube/internal/types"
)

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("connection dropped") }

func TestSaveArtifact(t *testing.T) {
	t.Run("writes file with job name", func(t *testing.T) {
		tmpDir := t.TempDir()
		outDir := filepath.Join(tmpDir, "downloads")

		path, err := SaveArtifact(outDir, "abc", types.FormatMusicXML, strings.NewReader("<score/>"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(outDir, "transcription_abc.musicxml"), path)

		data, err := os.ReadFile(path)
		assert.NoError(t, err)
		assert.Equal(t, "<score/>", string(data))
	})

	t.Run("failed copy leaves nothing behind", func(t *testing.T) {
		tmpDir := t.TempDir()

		_, err := SaveArtifact(tmpDir, "abc", types.FormatMIDI, failingReader{})
		assert.Error(t, err)

		entries, err := os.ReadDir(tmpDir)
		require.NoError(t, err)
		assert.Empty(t, entries, "no partial or temp file")
	})

	t.Run("overwrites an existing artifact", func(t *testing.T) {
		tmpDir := t.TempDir()
		_, err := SaveArtifact(tmpDir, "abc", types.FormatPDF, strings.NewReader("old"))
		require.NoError(t, err)
		path, err := SaveArtifact(tmpDir, "abc", types.FormatPDF, strings.NewReader("new"))
		require.NoError(t, err)

		data, _ := os.ReadFile(path)
		assert.Equal(t, "new", string(data))
	})
}

func TestSaveArtifactRejectsUnsafeJobID(t *testing.T) {
	for _, id := range []string{"", ".", "..", "../escape", "a/b", `a\b`} {
		t.Run(id, func(t *testing.T) {
			tmpDir := t.TempDir()
			outDir := filepath.Join(tmpDir, "out")

			_, err := SaveArtifact(outDir, id, types.FormatMIDI, strings.NewReader("MThd"))
			assert.ErrorIs(t, err, ErrInvalidJobID)

			entries, err := os.ReadDir(tmpDir)
			require.NoError(t, err)
			assert.Empty(t, entries, "nothing written anywhere")
		})
	}
	assert.True(t, ValidJobID("3f2c9a1e-7d4b-4f0e-9c1a-2b8e5d6f7a90"))
}
