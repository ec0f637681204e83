package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/schollz/pianotube/internal/api"
	"github.com/schollz/pianotube/internal/devserver"
	"github.com/schollz/pianotube/internal/storage"
	"github.com/schollz/pianotube/internal/tracker"
	"github.com/schollz/pianotube/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Follow a job until it finishes, printing each change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
		t, err := tracker.New(client, args[0], tracker.WithInterval(cfg.Poll.Interval))
		if err != nil {
			return err
		}
		if err := t.Start(ctx); err != nil {
			return err
		}
		defer t.Stop()

		out := cmd.OutOrStdout()
		var last types.Job
		for u := range t.Updates() {
			last = u.Job
			if !u.Changed && !u.Done() {
				fmt.Fprintf(out, "  %3d%%\n", u.Job.Progress)
				continue
			}
			line := fmt.Sprintf("%-20s %3d%%", u.Job.Status.Label(), u.Job.Progress)
			if u.Job.VideoTitle != "" {
				line += "  " + u.Job.VideoTitle
			}
			fmt.Fprintln(out, line)
		}

		switch {
		case last.Status == types.JobStatusCompleted:
			fmt.Fprintf(out, "Done. Run `pianotube download %s` to save the files.\n", last.ID)
			return nil
		case last.Status == types.JobStatusFailed:
			return fmt.Errorf("job %s failed: %s", args[0], last.Error)
		case ctx.Err() != nil:
			return nil
		}
		return fmt.Errorf("stopped following job %s", args[0])
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <job-id>",
	Short: "Save the artifacts of a completed job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		defer closeLog()

		formats, err := parseFormats(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
		job, err := client.GetResult(ctx, args[0])
		if err != nil {
			return err
		}
		if job.Status != types.JobStatusCompleted {
			return fmt.Errorf("job %s is %s: %w", job.ID, job.Status.Label(), api.ErrNotReady)
		}

		out := cmd.OutOrStdout()
		for _, f := range formats {
			if !client.Available(ctx, job.ID, f, job.Result) {
				fmt.Fprintf(out, "%-9s not available, skipped\n", f)
				continue
			}
			path, err := downloadArtifact(ctx, client, cfg.Output.Dir, job.ID, f)
			if errors.Is(err, api.ErrNotFound) {
				fmt.Fprintf(out, "%-9s not available, skipped\n", f)
				continue
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-9s %s\n", f, path)
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().String("format", "",
		"Only save this format: midi, musicxml or pdf (default all)")

	devserverCmd.Flags().String("addr", "", "Address to listen on (default localhost:8000)")
	devserverCmd.Flags().Duration("stage", 0, "Time spent in each job stage (default 1.5s)")
	devserverCmd.Flags().String("midi", "", "MIDI file served as the result of every job")
}

func parseFormats(cmd *cobra.Command) ([]types.ArtifactFormat, error) {
	name, _ := cmd.Flags().GetString("format")
	if name == "" {
		return types.ArtifactFormats, nil
	}
	for _, f := range types.ArtifactFormats {
		if strings.EqualFold(name, string(f)) {
			return []types.ArtifactFormat{f}, nil
		}
	}
	return nil, fmt.Errorf("unknown format %q", name)
}

func downloadArtifact(ctx context.Context, client *api.Client, dir, jobID string, f types.ArtifactFormat) (string, error) {
	var buf bytes.Buffer
	if _, err := client.Download(ctx, jobID, f, &buf); err != nil {
		return "", err
	}
	return storage.SaveArtifact(dir, jobID, f, &buf)
}

var openCmd = &cobra.Command{
	Use:   "open <file.mid>",
	Short: "Practice a local MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		defer closeLog()
		return openLocal(cfg, args[0])
	},
}

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a fake transcription backend for development",
	Long: `devserver runs an in-memory backend with the same API as the real one.
Jobs walk through every stage on a timer and all of them produce the same
notes. A URL containing "fail" makes the job fail during the download stage.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig(cmd, true)
		if err != nil {
			return err
		}
		defer closeLog()

		srv, err := devserver.New(devserver.Config{
			StageDuration: cfg.DevServer.StageDuration,
			MIDIFile:      cfg.DevServer.MIDIFile,
		})
		if err != nil {
			return err
		}

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-c
			log.Println("devserver: shutting down")
			if err := srv.Shutdown(); err != nil {
				log.Printf("devserver: error shutting down: %v", err)
			}
		}()
		return srv.Listen(cfg.DevServer.Addr)
	},
}
