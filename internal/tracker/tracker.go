package tracker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/schollz/pianotube/internal/types"
)

// DefaultInterval is the poll cadence when none is configured.
const DefaultInterval = 2 * time.Second

// ErrEmptyJobID is returned by New when no job id is given.
var ErrEmptyJobID = errors.New("job id must not be empty")

// StatusSource answers one status query for a job.
type StatusSource interface {
	GetJobStatus(ctx context.Context, jobID string) (*types.Job, error)
}

// Update is announced after every poll that produced a usable report.
type Update struct {
	Job      types.Job
	Previous types.JobStatus
	Changed  bool // status differs from Previous
}

// Done reports whether this update ends the job
func (u Update) Done() bool {
	return u.Job.Status.IsTerminal()
}

// Option configures a Tracker
type Option func(*Tracker)

// WithInterval overrides the poll cadence
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithSnapshot seeds the tracker with the job returned at submission
func WithSnapshot(job types.Job) Option {
	return func(t *Tracker) {
		if st, ok := types.ParseJobStatus(string(job.Status)); ok {
			job.Status = st
		} else {
			job.Status = types.JobStatusPending
		}
		job.ID = t.job.ID
		job.Progress = types.ClampProgress(job.Progress)
		t.job = job
	}
}

// Tracker polls a StatusSource until the job reaches a terminal state.
type Tracker struct {
	source   StatusSource
	interval time.Duration

	mu    sync.Mutex
	job   types.Job
	polls int

	updates   chan Update
	closeOnce sync.Once
	sched     *Scheduler
}

// New creates a stopped tracker for jobID
func New(source StatusSource, jobID string, opts ...Option) (*Tracker, error) {
	if jobID == "" {
		return nil, ErrEmptyJobID
	}
	t := &Tracker{
		source:   source,
		interval: DefaultInterval,
		job:      types.Job{ID: jobID, Status: types.JobStatusPending},
		updates:  make(chan Update, 16),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.sched = NewScheduler(t.interval, t.poll)
	return t, nil
}

// Start begins polling. Updates arrive on Updates(), which is closed once
// polling ends for any reason.
func (t *Tracker) Start(ctx context.Context) error {
	job := t.Job()
	if job.IsDone() {
		t.sched.Stop()
		t.closeUpdates()
		return nil
	}
	if err := t.sched.Start(ctx); err != nil {
		return err
	}
	go func() {
		<-t.sched.Done()
		t.closeUpdates()
	}()
	log.Printf("tracker: polling job %s every %v", t.job.ID, t.interval)
	return nil
}

func (t *Tracker) closeUpdates() {
	t.closeOnce.Do(func() { close(t.updates) })
}

// Stop ends polling and closes Updates. No poll is issued after Stop
// returns.
func (t *Tracker) Stop() {
	t.sched.Stop()
	// the loop has exited, nothing sends anymore
	t.closeUpdates()
}

// Updates delivers one Update per applied poll
func (t *Tracker) Updates() <-chan Update {
	return t.updates
}

// Done is closed when polling has ended
func (t *Tracker) Done() <-chan struct{} {
	return t.sched.Done()
}

// Job returns a copy of the last known job state
func (t *Tracker) Job() types.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job
}

// Polls returns how many status queries have been issued
func (t *Tracker) Polls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.polls
}

func (t *Tracker) poll(ctx context.Context) bool {
	t.mu.Lock()
	t.polls++
	attempt := t.polls
	id := t.job.ID
	t.mu.Unlock()

	reported, err := t.source.GetJobStatus(ctx, id)
	if ctx.Err() != nil {
		// stopped while the request was outstanding
		return false
	}
	if err != nil {
		log.Printf("tracker: poll #%d (job=%s) failed, retrying next tick: %v", attempt, id, err)
		return true
	}
	if reported == nil {
		return true
	}

	u, ok := t.Apply(*reported)
	if !ok {
		return true
	}

	select {
	case t.updates <- u:
	case <-ctx.Done():
		return false
	}

	if u.Done() {
		log.Printf("tracker: job %s reached %s after %d polls", id, u.Job.Status, attempt)
		return false
	}
	return true
}

// Apply folds one status report into the tracked job. It returns false when
// the report was ignored: the job is already terminal or the status string
// is unknown. A report that would move the job back to an earlier stage
// keeps the current status but still updates progress and metadata.
func (t *Tracker) Apply(reported types.Job) (Update, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.job.Status
	if prev.IsTerminal() {
		return Update{}, false
	}

	status, known := types.ParseJobStatus(string(reported.Status))
	if !known {
		log.Printf("tracker: warning: job %s reported unknown status %q, keeping %s", t.job.ID, reported.Status, prev)
		return Update{}, false
	}
	if status != types.JobStatusFailed && status.Rank() < prev.Rank() {
		log.Printf("tracker: warning: job %s reported %s after %s, keeping %s", t.job.ID, status, prev, prev)
		status = prev
	}

	next := t.job
	next.Status = status
	next.Progress = types.ClampProgress(reported.Progress)
	if reported.VideoTitle != "" {
		next.VideoTitle = reported.VideoTitle
	}
	if reported.Error != "" {
		next.Error = reported.Error
	}
	if reported.Result != nil {
		next.Result = reported.Result
	}
	if status == types.JobStatusFailed && next.Error == "" {
		next.Error = "transcription failed"
	}
	t.job = next

	if status != prev {
		log.Printf("tracker: job %s %s -> %s (%d%%)", next.ID, prev, status, next.Progress)
	}
	return Update{Job: next, Previous: prev, Changed: status != prev}, true
}
