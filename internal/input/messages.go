package input

import (
	"bytes"
	"errors"
	"fmt"
	"log"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/schollz/pianotube/internal/api"
	"github.com/schollz/pianotube/internal/model"
	"github.com/schollz/pianotube/internal/storage"
	"github.com/schollz/pianotube/internal/tracker"
	"github.com/schollz/pianotube/internal/types"
)

// SubmittedMsg reports the outcome of creating a job
type SubmittedMsg struct {
	URL     string
	Tracker *tracker.Tracker
	Err     error
}

// JobUpdateMsg carries one tracker update
type JobUpdateMsg struct {
	Update  tracker.Update
	Tracker *tracker.Tracker
}

// TrackerClosedMsg is sent when a tracker stops publishing
type TrackerClosedMsg struct {
	JobID string
}

// ViewOpenedMsg reports the outcome of entering a result sub-view
type ViewOpenedMsg struct {
	Mode types.ViewMode
	Err  error
}

// DownloadedMsg reports one artifact download
type DownloadedMsg struct {
	Format   types.ArtifactFormat
	Artifact model.Artifact
}

// Submit validates the link in the input view and creates the job
func Submit(m *model.Model) tea.Cmd {
	url := m.URLInput.Value()
	if _, err := api.NewTranscriptionRequest(url, m.IsolatePiano); err != nil {
		m.InputError = err.Error()
		return nil
	}
	m.InputError = ""
	m.Submitting = true

	ctx, coord, isolate := m.Ctx, m.Coordinator, m.IsolatePiano
	return func() tea.Msg {
		t, err := coord.Submit(ctx, url, isolate)
		return SubmittedMsg{URL: url, Tracker: t, Err: err}
	}
}

// HandleSubmitted starts listening to the new job's tracker
func HandleSubmitted(m *model.Model, msg SubmittedMsg) tea.Cmd {
	m.Submitting = false
	if msg.Err != nil {
		log.Printf("Submit failed: %v", msg.Err)
		m.InputError = msg.Err.Error()
		return nil
	}
	m.SubmittedURL = msg.URL
	m.URLInput.Blur()
	return tea.Batch(ListenForUpdates(msg.Tracker), m.Spinner.Tick)
}

// ListenForUpdates waits for the next update of t
func ListenForUpdates(t *tracker.Tracker) tea.Cmd {
	if t == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-t.Updates()
		if !ok {
			return TrackerClosedMsg{JobID: t.Job().ID}
		}
		return JobUpdateMsg{Update: u, Tracker: t}
	}
}

// HandleJobUpdate folds an update into the session and keeps listening
func HandleJobUpdate(m *model.Model, msg JobUpdateMsg) tea.Cmd {
	u := msg.Update
	if _, err := m.Coordinator.HandleUpdate(u); err != nil {
		log.Printf("warning: %v", err)
	}
	if u.Job.Status == types.JobStatusCompleted {
		m.StatusMsg = "Transcription complete"
	}
	return ListenForUpdates(msg.Tracker)
}

// OpenView enters a result sub-view, loading note data first when the
// view draws notes
func OpenView(m *model.Model, mode types.ViewMode) tea.Cmd {
	if m.Loading {
		return nil
	}
	if mode.NeedsNoteData() {
		m.Loading = true
		m.StatusMsg = "Loading notes..."
	}
	ctx, coord := m.Ctx, m.Coordinator
	return func() tea.Msg {
		return ViewOpenedMsg{Mode: mode, Err: coord.Open(ctx, mode)}
	}
}

// HandleViewOpened starts playback for the views that have a transport
func HandleViewOpened(m *model.Model, msg ViewOpenedMsg) tea.Cmd {
	m.Loading = false
	m.StatusMsg = ""
	if msg.Err != nil {
		log.Printf("Opening %s failed: %v", msg.Mode, msg.Err)
		m.StatusMsg = fmt.Sprintf("Could not open %s: %v", msg.Mode, msg.Err)
		return nil
	}
	if !msg.Mode.NeedsNoteData() {
		return nil
	}
	data, err := m.Coordinator.NoteData(m.Ctx)
	if err != nil {
		m.StatusMsg = fmt.Sprintf("Could not load notes: %v", err)
		return nil
	}
	m.EnterPlayback(data)
	return Tick(m)
}

// CloseView returns from a sub-view to the result view
func CloseView(m *model.Model) tea.Cmd {
	m.LeavePlayback()
	if err := m.Coordinator.Close(); err != nil {
		log.Printf("warning: %v", err)
	}
	m.StatusMsg = ""
	return nil
}

// Restart abandons the job and goes back to the input view
func Restart(m *model.Model) tea.Cmd {
	if err := m.Coordinator.Restart(); err != nil {
		m.StatusMsg = "Nothing to restart"
		log.Printf("warning: %v", err)
		return nil
	}
	m.ResetInput()
	return textinput.Blink
}

// DownloadAll saves every available artifact of the completed job into
// the output folder, one command per format
func DownloadAll(m *model.Model) tea.Cmd {
	job, ok := m.Job()
	if !ok || m.Client == nil || m.PendingDownloads > 0 || job.Status != types.JobStatusCompleted {
		return nil
	}
	m.StatusMsg = "Downloading..."
	var cmds []tea.Cmd
	for _, f := range types.ArtifactFormats {
		m.PendingDownloads++
		cmds = append(cmds, download(m, job, f))
	}
	return tea.Batch(cmds...)
}

func download(m *model.Model, job types.Job, format types.ArtifactFormat) tea.Cmd {
	ctx, client, dir := m.Ctx, m.Client, m.OutputDir
	return func() tea.Msg {
		if !client.Available(ctx, job.ID, format, job.Result) {
			return DownloadedMsg{Format: format, Artifact: model.Artifact{Unavailable: true}}
		}
		var buf bytes.Buffer
		if _, err := client.Download(ctx, job.ID, format, &buf); err != nil {
			if errors.Is(err, api.ErrNotFound) {
				return DownloadedMsg{Format: format, Artifact: model.Artifact{Unavailable: true}}
			}
			return DownloadedMsg{Format: format, Artifact: model.Artifact{Err: err}}
		}
		path, err := storage.SaveArtifact(dir, job.ID, format, &buf)
		return DownloadedMsg{Format: format, Artifact: model.Artifact{Path: path, Err: err}}
	}
}

// HandleDownloaded records one finished download
func HandleDownloaded(m *model.Model, msg DownloadedMsg) tea.Cmd {
	m.Downloads[msg.Format] = msg.Artifact
	if msg.Artifact.Err != nil {
		log.Printf("Download of %s failed: %v", msg.Format, msg.Artifact.Err)
	}
	if m.PendingDownloads > 0 {
		m.PendingDownloads--
	}
	if m.PendingDownloads == 0 {
		saved := 0
		for _, a := range m.Downloads {
			if a.Path != "" {
				saved++
			}
		}
		m.StatusMsg = fmt.Sprintf("Saved %d file(s) to %s", saved, m.OutputDir)
	}
	return nil
}
