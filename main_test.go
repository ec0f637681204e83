package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/pianotube/internal/api"
	"github.com/schollz/pianotube/internal/devserver"
	"github.com/schollz/pianotube/internal/storage"
	"github.com/schollz/pianotube/internal/types"
)

// run executes the command tree with fresh flag values
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			require.NoError(t, f.Value.Set(f.DefValue))
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func startDevServer(t *testing.T, stage time.Duration) string {
	t.Helper()
	s, err := devserver.New(devserver.Config{StageDuration: stage, Quiet: true})
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(ln)
	t.Cleanup(func() { s.Shutdown() })
	return "http://" + ln.Addr().String() + devserver.Prefix
}

func submit(t *testing.T, baseURL, url string) string {
	t.Helper()
	req, err := api.NewTranscriptionRequest(url, false)
	require.NoError(t, err)
	job, err := api.NewClient(baseURL, 5*time.Second).CreateTranscription(context.Background(), req)
	require.NoError(t, err)
	return job.ID
}

func TestStatusCommand(t *testing.T) {
	base := startDevServer(t, 5*time.Millisecond)

	t.Run("completed", func(t *testing.T) {
		id := submit(t, base, "https://youtu.be/abc123")
		out, err := run(t, "status", id, "--api", base, "--interval", "5ms")
		require.NoError(t, err)
		assert.Contains(t, out, "Completed")
		assert.Contains(t, out, "pianotube download "+id)
	})

	t.Run("failed", func(t *testing.T) {
		id := submit(t, base, "https://youtu.be/fail123")
		_, err := run(t, "status", id, "--api", base, "--interval", "5ms")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Video unavailable")
	})
}

func TestDownloadCommand(t *testing.T) {
	base := startDevServer(t, 5*time.Millisecond)
	client := api.NewClient(base, 5*time.Second)
	id := submit(t, base, "https://www.youtube.com/watch?v=abc123")
	require.Eventually(t, func() bool {
		job, err := client.GetJobStatus(context.Background(), id)
		return err == nil && job.Status == types.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	dir := t.TempDir()
	out, err := run(t, "download", id, "--api", base, "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "pdf       not available, skipped")

	for _, f := range []types.ArtifactFormat{types.FormatMIDI, types.FormatMusicXML} {
		info, err := os.Stat(filepath.Join(dir, storage.ArtifactName(id, f)))
		require.NoError(t, err, f)
		assert.Positive(t, info.Size())
	}
	_, err = os.Stat(filepath.Join(dir, storage.ArtifactName(id, types.FormatPDF)))
	assert.True(t, os.IsNotExist(err))

	t.Run("single format", func(t *testing.T) {
		dir := t.TempDir()
		out, err := run(t, "download", id, "--api", base, "--out", dir, "--format", "MIDI")
		require.NoError(t, err)
		assert.NotContains(t, out, "musicxml")
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := run(t, "download", id, "--api", base, "--format", "wav")
		assert.ErrorContains(t, err, `unknown format "wav"`)
	})

	t.Run("not finished", func(t *testing.T) {
		slowBase := startDevServer(t, time.Hour)
		slow := submit(t, slowBase, "https://youtu.be/slow")
		_, err := run(t, "download", slow, "--api", slowBase, "--out", t.TempDir())
		assert.ErrorIs(t, err, api.ErrNotReady)
	})
}
