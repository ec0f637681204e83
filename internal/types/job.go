package types

import "time"

// JobStatus is the lifecycle stage of a transcription job as reported by the backend.
type JobStatus string

const (
	JobStatusPending      JobStatus = "pending"
	JobStatusDownloading  JobStatus = "downloading"
	JobStatusProcessing   JobStatus = "processing"
	JobStatusTranscribing JobStatus = "transcribing"
	JobStatusConverting   JobStatus = "converting"
	JobStatusCompleted    JobStatus = "completed"
	JobStatusFailed       JobStatus = "failed"
)

// Stages is the happy path in canonical order
var Stages = []JobStatus{
	JobStatusPending,
	JobStatusDownloading,
	JobStatusProcessing,
	JobStatusTranscribing,
	JobStatusConverting,
	JobStatusCompleted,
}

var stageLabels = map[JobStatus]string{
	JobStatusPending:      "Queued",
	JobStatusDownloading:  "Downloading",
	JobStatusProcessing:   "Processing Audio",
	JobStatusTranscribing: "Transcribing",
	JobStatusConverting:   "Converting Formats",
	JobStatusCompleted:    "Completed",
	JobStatusFailed:       "Failed",
}

// ParseJobStatus maps a raw status string to a known status
func ParseJobStatus(s string) (JobStatus, bool) {
	st := JobStatus(s)
	if st.Valid() {
		return st, true
	}
	return "", false
}

// Valid reports whether s is one of the seven known statuses
func (s JobStatus) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

// IsTerminal reports whether no further transition can happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Rank is the position in the canonical order. Failed ranks after every
// stage because it is absorbing; unknown statuses rank -1.
func (s JobStatus) Rank() int {
	if s == JobStatusFailed {
		return len(Stages)
	}
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Label is the human readable stage name
func (s JobStatus) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return "Processing"
}

// ArtifactFormat names a downloadable output of a completed job.
type ArtifactFormat string

const (
	FormatMIDI     ArtifactFormat = "midi"
	FormatMusicXML ArtifactFormat = "musicxml"
	FormatPDF      ArtifactFormat = "pdf"
)

// ArtifactFormats lists every format the download surface knows about
var ArtifactFormats = []ArtifactFormat{FormatMIDI, FormatMusicXML, FormatPDF}

// Extension returns the file extension used when saving the artifact
func (f ArtifactFormat) Extension() string {
	switch f {
	case FormatMIDI:
		return ".mid"
	case FormatMusicXML:
		return ".musicxml"
	case FormatPDF:
		return ".pdf"
	}
	return "." + string(f)
}

// Quality holds the backend's transcription metrics
type Quality struct {
	ConfidenceScore float64
	NoteCount       int
	Duration        float64
	PolyphonyAvg    float64
}

// Result references the artifacts of a completed job.
type Result struct {
	MIDIURL     string
	MusicXMLURL string
	PDFURL      string
	Quality     *Quality
	CompletedAt *time.Time
	VideoLength float64
}

// Has reports whether the backend advertised the artifact
func (r *Result) Has(f ArtifactFormat) bool {
	if r == nil {
		return false
	}
	switch f {
	case FormatMIDI:
		return r.MIDIURL != ""
	case FormatMusicXML:
		return r.MusicXMLURL != ""
	case FormatPDF:
		return r.PDFURL != ""
	}
	return false
}

// Job is the client's view of one transcription job.
type Job struct {
	ID         string
	Status     JobStatus
	Progress   int
	VideoTitle string
	Error      string
	Result     *Result
	CreatedAt  time.Time
}

// IsDone reports whether the job reached a terminal state.
func (j *Job) IsDone() bool {
	return j.Status.IsTerminal()
}

// ClampProgress bounds p to 0-100
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
