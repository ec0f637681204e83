package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/schollz/pianotube/internal/api"
	"github.com/schollz/pianotube/internal/tracker"
	"github.com/schollz/pianotube/internal/types"
)

// ErrInvalidTransition is returned when an event is not allowed in the current view
var ErrInvalidTransition = errors.New("invalid view transition")

// ErrNoJob is returned when note data is requested with no job loaded
var ErrNoJob = errors.New("no job loaded")

// Event drives the view state machine
type Event int

const (
	EventSubmit Event = iota
	EventJobCompleted
	EventJobFailed
	EventOpenPianoRoll
	EventOpenNotation
	EventOpenPractice
	EventClose
	EventRestart
)

func (e Event) String() string {
	switch e {
	case EventSubmit:
		return "submit"
	case EventJobCompleted:
		return "job-completed"
	case EventJobFailed:
		return "job-failed"
	case EventOpenPianoRoll:
		return "open-piano-roll"
	case EventOpenNotation:
		return "open-notation"
	case EventOpenPractice:
		return "open-practice"
	case EventClose:
		return "close"
	case EventRestart:
		return "restart"
	}
	return "unknown"
}

// transitions lists every allowed move. A failed job stays in the
// processing view so its error can be shown until the user restarts.
var transitions = map[types.ViewMode]map[Event]types.ViewMode{
	types.InputView: {
		EventSubmit: types.ProcessingView,
	},
	types.ProcessingView: {
		EventJobCompleted: types.ResultView,
		EventJobFailed:    types.ProcessingView,
		EventRestart:      types.InputView,
	},
	types.ResultView: {
		EventOpenPianoRoll: types.PianoRollView,
		EventOpenNotation:  types.NotationView,
		EventOpenPractice:  types.PracticeView,
		EventRestart:       types.InputView,
	},
	types.PianoRollView: {EventClose: types.ResultView},
	types.NotationView:  {EventClose: types.ResultView},
	types.PracticeView:  {EventClose: types.ResultView},
}

var openEvents = map[types.ViewMode]Event{
	types.PianoRollView: EventOpenPianoRoll,
	types.NotationView:  EventOpenNotation,
	types.PracticeView:  EventOpenPractice,
}

// Backend is the part of the transcription service the coordinator uses
type Backend interface {
	tracker.StatusSource
	CreateTranscription(ctx context.Context, req *api.TranscriptionRequest) (*types.Job, error)
	GetPianoRollData(ctx context.Context, jobID string) (*types.PianoRollData, error)
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithPollInterval sets the tracker cadence for submitted jobs
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		c.interval = d
	}
}

// Coordinator sequences the views of one session: it owns the current
// job, its tracker and the cached note data.
type Coordinator struct {
	backend  Backend
	interval time.Duration

	mu         sync.Mutex
	mode       types.ViewMode
	job        *types.Job
	tracker    *tracker.Tracker
	submitting bool // a Submit is waiting for the backend

	fetchMu sync.Mutex
	notes   *types.PianoRollData
	fetches int
}

// New creates a coordinator in the input view
func New(backend Backend, opts ...Option) *Coordinator {
	c := &Coordinator{
		backend:  backend,
		interval: tracker.DefaultInterval,
		mode:     types.InputView,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewLocal creates a coordinator for note data that did not come from the
// backend, e.g. a MIDI file on disk. It starts in the result view.
func NewLocal(title string, data *types.PianoRollData) *Coordinator {
	data.Normalize()
	return &Coordinator{
		mode: types.ResultView,
		job: &types.Job{
			ID:         "local",
			Status:     types.JobStatusCompleted,
			Progress:   100,
			VideoTitle: title,
			Result:     &types.Result{},
			CreatedAt:  time.Now(),
		},
		notes: data,
	}
}

// Mode is the current view
func (c *Coordinator) Mode() types.ViewMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Job returns a copy of the current job, or false when none is loaded
func (c *Coordinator) Job() (types.Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.job == nil {
		return types.Job{}, false
	}
	return *c.job, true
}

// Local reports whether the session was created from local note data
func (c *Coordinator) Local() bool {
	return c.backend == nil
}

// Fetches counts note data requests issued to the backend
func (c *Coordinator) Fetches() int {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()
	return c.fetches
}

// fire applies an event. Callers hold c.mu.
func (c *Coordinator) fire(ev Event) error {
	next, ok := transitions[c.mode][ev]
	if !ok {
		return fmt.Errorf("%w: %s in %s view", ErrInvalidTransition, ev, c.mode)
	}
	if next != c.mode {
		log.Printf("coordinator: %s -> %s (%s)", c.mode, next, ev)
	}
	c.mode = next
	return nil
}

// Can reports whether ev is allowed in the current view
func (c *Coordinator) Can(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := transitions[c.mode][ev]
	return ok
}

// Submit validates the link, creates a job and starts tracking it. The
// returned tracker's updates must be passed to HandleUpdate. While one
// Submit waits for the backend, others fail with ErrInvalidTransition.
func (c *Coordinator) Submit(ctx context.Context, rawURL string, isolatePiano bool) (*tracker.Tracker, error) {
	if c.backend == nil {
		return nil, fmt.Errorf("%w: submit without a backend", ErrInvalidTransition)
	}
	req, err := api.NewTranscriptionRequest(rawURL, isolatePiano)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if _, ok := transitions[c.mode][EventSubmit]; !ok || c.submitting {
		mode, busy := c.mode, c.submitting
		c.mu.Unlock()
		if busy {
			return nil, fmt.Errorf("%w: a submission is already in progress", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("%w: submit in %s view", ErrInvalidTransition, mode)
	}
	c.submitting = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	created, err := c.backend.CreateTranscription(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription: %w", err)
	}

	t, err := tracker.New(c.backend, created.ID, tracker.WithInterval(c.interval), tracker.WithSnapshot(*created))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if err := c.fire(EventSubmit); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	job := t.Job()
	c.job = &job
	c.tracker = t
	c.mu.Unlock()

	c.resetNotes()

	if err := t.Start(ctx); err != nil {
		return nil, err
	}
	log.Printf("coordinator: submitted %s as job %s", req.YouTubeURL, created.ID)

	// a backend may answer with a job that is already finished
	if job.IsDone() {
		if _, err := c.HandleUpdate(tracker.Update{Job: job, Previous: types.JobStatusPending, Changed: true}); err != nil {
			return t, err
		}
	}
	return t, nil
}

// HandleUpdate folds a tracker update into the session and moves to the
// result view when the job completes. Updates for a job that is no longer
// current are ignored.
func (c *Coordinator) HandleUpdate(u tracker.Update) (types.ViewMode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.job == nil || u.Job.ID != c.job.ID || c.mode != types.ProcessingView {
		return c.mode, nil
	}
	job := u.Job
	c.job = &job

	if !u.Done() {
		return c.mode, nil
	}
	ev := EventJobFailed
	if job.Status == types.JobStatusCompleted {
		ev = EventJobCompleted
	} else {
		log.Printf("coordinator: job %s failed: %s", job.ID, job.Error)
	}
	err := c.fire(ev)
	return c.mode, err
}

// Open enters a playback or notation view from the result view. Views
// that draw notes load the note data first; if that fails the view does
// not change.
func (c *Coordinator) Open(ctx context.Context, mode types.ViewMode) error {
	ev, ok := openEvents[mode]
	if !ok {
		return fmt.Errorf("%w: %s is not a result sub-view", ErrInvalidTransition, mode)
	}
	if !c.Can(ev) {
		return fmt.Errorf("%w: %s in %s view", ErrInvalidTransition, ev, c.Mode())
	}
	if mode.NeedsNoteData() {
		if _, err := c.NoteData(ctx); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fire(ev)
}

// Close leaves a sub-view back to the result view
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fire(EventClose)
}

// Restart abandons the current job and returns to the input view
func (c *Coordinator) Restart() error {
	if c.Local() {
		return fmt.Errorf("%w: restart without a backend", ErrInvalidTransition)
	}
	c.mu.Lock()
	if err := c.fire(EventRestart); err != nil {
		c.mu.Unlock()
		return err
	}
	t := c.tracker
	c.tracker = nil
	c.job = nil
	c.mu.Unlock()

	if t != nil {
		t.Stop()
	}
	c.resetNotes()
	return nil
}

// Shutdown stops any running tracker
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	t := c.tracker
	c.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}

// NoteData returns the note data of the completed job, fetching it on
// first use and caching it for the rest of the session.
func (c *Coordinator) NoteData(ctx context.Context) (*types.PianoRollData, error) {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()
	if c.notes != nil {
		return c.notes, nil
	}

	job, ok := c.Job()
	if !ok {
		return nil, ErrNoJob
	}
	if job.Status != types.JobStatusCompleted {
		return nil, fmt.Errorf("note data for %s: %w", job.ID, api.ErrNotReady)
	}
	if c.backend == nil {
		return nil, ErrNoJob
	}

	c.fetches++
	data, err := c.backend.GetPianoRollData(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notes for %s: %w", job.ID, err)
	}
	data.Normalize()
	log.Printf("coordinator: loaded %d notes for %s (%.1fs at %.0f BPM)", len(data.Notes), job.ID, data.Duration, data.Tempo)
	c.notes = data
	return data, nil
}

func (c *Coordinator) resetNotes() {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()
	if c.backend != nil {
		c.notes = nil
	}
}
