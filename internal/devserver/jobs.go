package devserver

import (
	"net/url"
	"strings"
	"time"

	"github.com/schollz/pianotube/internal/types"
)

// stageProgress is the progress the backend reports for each stage
var stageProgress = map[types.JobStatus]int{
	types.JobStatusPending:      0,
	types.JobStatusDownloading:  10,
	types.JobStatusProcessing:   30,
	types.JobStatusTranscribing: 50,
	types.JobStatusConverting:   80,
	types.JobStatusCompleted:    100,
}

// simulatedError is reported for URLs that ask to fail
const simulatedError = "Video unavailable: simulated download failure"

// job is one simulated transcription. Its status is derived from the time
// since creation so no goroutine drives it.
type job struct {
	id        string
	url       string
	isolate   bool
	title     string
	fail      bool
	createdAt time.Time
}

func newJob(id, rawURL string, isolate bool, now time.Time) *job {
	return &job{
		id:        id,
		url:       rawURL,
		isolate:   isolate,
		title:     videoTitle(rawURL),
		fail:      strings.Contains(strings.ToLower(rawURL), "fail"),
		createdAt: now,
	}
}

// state returns the status and progress at now. A job advances one stage
// per stageDuration; a failing job fails while downloading.
func (j *job) state(now time.Time, stageDuration time.Duration) (types.JobStatus, int) {
	step := len(types.Stages) - 1
	if stageDuration > 0 {
		step = min(step, int(now.Sub(j.createdAt)/stageDuration))
	}
	status := types.Stages[step]
	if j.fail && step >= 2 {
		return types.JobStatusFailed, stageProgress[types.JobStatusDownloading]
	}
	return status, stageProgress[status]
}

// completedAt is when the job reached its final stage
func (j *job) completedAt(stageDuration time.Duration) time.Time {
	steps := len(types.Stages) - 1
	if j.fail {
		steps = 2
	}
	return j.createdAt.Add(time.Duration(steps) * stageDuration)
}

// videoTitle makes a readable title out of the video id in the link
func videoTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "Simulated video"
	}
	id := u.Query().Get("v")
	if id == "" && strings.Contains(u.Host, "youtu.be") {
		id = strings.Trim(u.Path, "/")
	}
	if id == "" {
		return "Simulated video"
	}
	return "Simulated video " + id
}
