package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/pianotube/internal/types"
)

// scriptedSource replays a fixed list of reports, repeating the last one.
type scriptedSource struct {
	mu       sync.Mutex
	reports  []scriptedReport
	calls    int
	inFlight int
	maxInFly int
	delay    time.Duration
}

type scriptedReport struct {
	job types.Job
	err error
}

func (s *scriptedSource) GetJobStatus(ctx context.Context, jobID string) (*types.Job, error) {
	s.mu.Lock()
	s.calls++
	s.inFlight++
	if s.inFlight > s.maxInFly {
		s.maxInFly = s.inFlight
	}
	idx := s.calls - 1
	if idx >= len(s.reports) {
		idx = len(s.reports) - 1
	}
	r := s.reports[idx]
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	job := r.job
	job.ID = jobID
	return &job, nil
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func report(status string, progress int) scriptedReport {
	return scriptedReport{job: types.Job{Status: types.JobStatus(status), Progress: progress}}
}

func collect(t *testing.T, tr *Tracker) []Update {
	t.Helper()
	var got []Update
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-tr.Updates():
			if !ok {
				return got
			}
			got = append(got, u)
		case <-timeout:
			t.Fatal("tracker did not finish")
			return got
		}
	}
}

func TestNewRejectsEmptyID(t *testing.T) {
	_, err := New(&scriptedSource{}, "")
	assert.True(t, errors.Is(err, ErrEmptyJobID))
}

func TestHappyPath(t *testing.T) {
	src := &scriptedSource{reports: []scriptedReport{
		report("pending", 0),
		report("downloading", 10),
		report("processing", 30),
		report("transcribing", 50),
		report("converting", 80),
		{job: types.Job{Status: types.JobStatusCompleted, Progress: 100, VideoTitle: "Clair de Lune",
			Result: &types.Result{MIDIURL: "/download/x/midi"}}},
	}}
	tr, err := New(src, "job-1", WithInterval(time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	updates := collect(t, tr)
	require.Len(t, updates, 6)

	lastRank, lastProgress := -1, -1
	for _, u := range updates {
		assert.GreaterOrEqual(t, u.Job.Status.Rank(), lastRank, "state never moves backward")
		assert.GreaterOrEqual(t, u.Job.Progress, lastProgress, "progress never decreases")
		lastRank, lastProgress = u.Job.Status.Rank(), u.Job.Progress
	}

	final := tr.Job()
	assert.Equal(t, types.JobStatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, "Clair de Lune", final.VideoTitle)
	assert.True(t, final.Result.Has(types.FormatMIDI))
}

func TestPollingStopsAfterTerminal(t *testing.T) {
	for _, terminal := range []string{"completed", "failed"} {
		t.Run(terminal, func(t *testing.T) {
			src := &scriptedSource{reports: []scriptedReport{
				report("downloading", 10),
				{job: types.Job{Status: types.JobStatus(terminal), Progress: 100, Error: "boom"}},
			}}
			tr, err := New(src, "job-2", WithInterval(time.Millisecond))
			require.NoError(t, err)
			require.NoError(t, tr.Start(context.Background()))

			<-tr.Done()
			calls := src.Calls()
			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, calls, src.Calls(), "no polls after the terminal status")
			assert.Equal(t, 2, calls)
			assert.Equal(t, types.JobStatus(terminal), tr.Job().Status)
		})
	}
}

func TestTransientErrorsAreRetried(t *testing.T) {
	src := &scriptedSource{reports: []scriptedReport{
		report("downloading", 10),
		{err: errors.New("connection refused")},
		{err: errors.New("connection refused")},
		report("completed", 100),
	}}
	tr, err := New(src, "job-3", WithInterval(time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	updates := collect(t, tr)
	require.Len(t, updates, 2, "failed polls produce no updates")
	assert.Equal(t, types.JobStatusDownloading, updates[0].Job.Status)
	assert.Equal(t, types.JobStatusCompleted, updates[1].Job.Status)
	assert.Equal(t, 4, src.Calls())
}

func TestFailureSurfacesError(t *testing.T) {
	src := &scriptedSource{reports: []scriptedReport{
		report("processing", 30),
		{job: types.Job{Status: types.JobStatusFailed, Progress: 30, Error: "Video is private"}},
	}}
	tr, err := New(src, "job-4", WithInterval(time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	updates := collect(t, tr)
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.True(t, last.Done())
	assert.True(t, last.Changed)
	assert.Equal(t, types.JobStatusProcessing, last.Previous)
	assert.Equal(t, "Video is private", last.Job.Error)
}

func TestStop(t *testing.T) {
	src := &scriptedSource{reports: []scriptedReport{report("downloading", 10)}}
	tr, err := New(src, "job-5", WithInterval(time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	require.Eventually(t, func() bool { return src.Calls() >= 3 }, time.Second, time.Millisecond)
	go func() {
		for range tr.Updates() {
		}
	}()
	tr.Stop()

	calls := src.Calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, src.Calls(), "no polls after Stop")
	tr.Stop() // idempotent
}

func TestStopBeforeStart(t *testing.T) {
	src := &scriptedSource{reports: []scriptedReport{report("downloading", 10)}}
	tr, err := New(src, "job-9", WithInterval(time.Millisecond))
	require.NoError(t, err)

	tr.Stop()
	select {
	case _, ok := <-tr.Updates():
		assert.False(t, ok, "no update was ever sent")
	case <-time.After(time.Second):
		t.Fatal("Updates not closed after Stop")
	}
	<-tr.Done()

	assert.ErrorIs(t, tr.Start(context.Background()), ErrAlreadyStarted)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, src.Calls())
}

func TestAtMostOnePollInFlight(t *testing.T) {
	src := &scriptedSource{
		reports: []scriptedReport{report("transcribing", 50)},
		delay:   5 * time.Millisecond,
	}
	tr, err := New(src, "job-6", WithInterval(time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))
	go func() {
		for range tr.Updates() {
		}
	}()

	require.Eventually(t, func() bool { return src.Calls() >= 5 }, time.Second, time.Millisecond)
	tr.Stop()

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 1, src.maxInFly)
}

func TestApply(t *testing.T) {
	newTracker := func(t *testing.T) *Tracker {
		tr, err := New(&scriptedSource{}, "job-7")
		require.NoError(t, err)
		return tr
	}

	t.Run("unknown status is ignored", func(t *testing.T) {
		tr := newTracker(t)
		_, ok := tr.Apply(types.Job{Status: "downloading", Progress: 10})
		require.True(t, ok)
		_, ok = tr.Apply(types.Job{Status: "teleporting", Progress: 90})
		assert.False(t, ok)
		assert.Equal(t, types.JobStatusDownloading, tr.Job().Status)
		assert.Equal(t, 10, tr.Job().Progress)
	})

	t.Run("backward status keeps current stage", func(t *testing.T) {
		tr := newTracker(t)
		tr.Apply(types.Job{Status: "transcribing", Progress: 50})
		u, ok := tr.Apply(types.Job{Status: "downloading", Progress: 55})
		require.True(t, ok)
		assert.False(t, u.Changed)
		assert.Equal(t, types.JobStatusTranscribing, u.Job.Status)
		assert.Equal(t, 55, u.Job.Progress)
	})

	t.Run("failed is reachable from any stage and absorbing", func(t *testing.T) {
		for _, st := range types.Stages[:len(types.Stages)-1] {
			tr := newTracker(t)
			tr.Apply(types.Job{Status: st})
			u, ok := tr.Apply(types.Job{Status: types.JobStatusFailed})
			require.True(t, ok)
			assert.Equal(t, types.JobStatusFailed, u.Job.Status)
			assert.NotEmpty(t, u.Job.Error)

			_, ok = tr.Apply(types.Job{Status: types.JobStatusCompleted, Progress: 100})
			assert.False(t, ok, "terminal job is immutable")
			assert.Equal(t, types.JobStatusFailed, tr.Job().Status)
		}
	})

	t.Run("progress is clamped", func(t *testing.T) {
		tr := newTracker(t)
		u, _ := tr.Apply(types.Job{Status: "converting", Progress: 250})
		assert.Equal(t, 100, u.Job.Progress)
	})
}

func TestStartOnFinishedSnapshot(t *testing.T) {
	src := &scriptedSource{reports: []scriptedReport{report("completed", 100)}}
	tr, err := New(src, "job-8", WithSnapshot(types.Job{Status: types.JobStatusCompleted, Progress: 100}))
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	_, ok := <-tr.Updates()
	assert.False(t, ok)
	assert.Equal(t, 0, src.Calls())
}
