package api

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/schollz/pianotube/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// transcriptionResult is the backend's job document
type transcriptionResult struct {
	JobID         string          `json:"job_id"`
	Status        string          `json:"status"`
	Progress      int             `json:"progress"`
	VideoTitle    *string         `json:"video_title,omitempty"`
	VideoDuration *float64        `json:"video_duration,omitempty"`
	Quality       *qualityMetrics `json:"quality,omitempty"`
	MIDIURL       *string         `json:"midi_url,omitempty"`
	MusicXMLURL   *string         `json:"musicxml_url,omitempty"`
	PDFURL        *string         `json:"pdf_url,omitempty"`
	Error         *string         `json:"error,omitempty"`
	CreatedAt     string          `json:"created_at"`
	CompletedAt   *string         `json:"completed_at,omitempty"`
}

type qualityMetrics struct {
	ConfidenceScore float64 `json:"confidence_score"`
	NoteCount       int     `json:"note_count"`
	Duration        float64 `json:"duration"`
	PolyphonyAvg    float64 `json:"polyphony_avg"`
}

type jobStatusResponse struct {
	JobID    string               `json:"job_id"`
	Status   string               `json:"status"`
	Progress int                  `json:"progress"`
	Result   *transcriptionResult `json:"result,omitempty"`
}

type pianoRollResponse struct {
	Notes    []noteEvent `json:"notes"`
	Tempo    float64     `json:"tempo"`
	Duration float64     `json:"duration"`
}

type noteEvent struct {
	Pitch    int     `json:"pitch"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Velocity int     `json:"velocity"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// timestamps usually come without a zone and with microseconds
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// toJob maps the wire document onto the client's job type. The status
// string is passed through untouched; the tracker decides what it means.
func (r *transcriptionResult) toJob() *types.Job {
	job := &types.Job{
		ID:         r.JobID,
		Status:     types.JobStatus(r.Status),
		Progress:   r.Progress,
		VideoTitle: str(r.VideoTitle),
		Error:      str(r.Error),
	}
	if t, ok := parseTime(r.CreatedAt); ok {
		job.CreatedAt = t
	}
	if r.MIDIURL != nil || r.MusicXMLURL != nil || r.PDFURL != nil || r.Quality != nil {
		job.Result = r.toResult()
	}
	return job
}

func (r *transcriptionResult) toResult() *types.Result {
	res := &types.Result{
		MIDIURL:     str(r.MIDIURL),
		MusicXMLURL: str(r.MusicXMLURL),
		PDFURL:      str(r.PDFURL),
	}
	if r.VideoDuration != nil {
		res.VideoLength = *r.VideoDuration
	}
	if r.Quality != nil {
		res.Quality = &types.Quality{
			ConfidenceScore: r.Quality.ConfidenceScore,
			NoteCount:       r.Quality.NoteCount,
			Duration:        r.Quality.Duration,
			PolyphonyAvg:    r.Quality.PolyphonyAvg,
		}
	}
	if r.CompletedAt != nil {
		if t, ok := parseTime(*r.CompletedAt); ok {
			res.CompletedAt = &t
		}
	}
	return res
}

func (s *jobStatusResponse) toJob() *types.Job {
	if s.Result != nil {
		job := s.Result.toJob()
		job.Status = types.JobStatus(s.Status)
		job.Progress = s.Progress
		if job.ID == "" {
			job.ID = s.JobID
		}
		return job
	}
	return &types.Job{
		ID:       s.JobID,
		Status:   types.JobStatus(s.Status),
		Progress: s.Progress,
	}
}

// toPianoRoll converts note events, skipping any that fail validation.
// Events with a zero duration field fall back to end-start.
func (p *pianoRollResponse) toPianoRoll() (*types.PianoRollData, int) {
	data := &types.PianoRollData{Tempo: p.Tempo, Duration: p.Duration}
	skipped := 0
	for _, ev := range p.Notes {
		dur := ev.Duration
		if dur <= 0 {
			dur = ev.End - ev.Start
		}
		n, err := types.NewNote(ev.Pitch, ev.Start, dur, ev.Velocity)
		if err != nil {
			skipped++
			continue
		}
		data.Notes = append(data.Notes, n)
	}
	data.Normalize()
	return data, skipped
}
