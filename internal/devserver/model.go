package devserver

// transcriptionResult mirrors the backend's job document
type transcriptionResult struct {
	JobID         string          `json:"job_id"`
	Status        string          `json:"status"`
	Progress      int             `json:"progress"`
	VideoTitle    *string         `json:"video_title"`
	VideoDuration *float64        `json:"video_duration"`
	Quality       *qualityMetrics `json:"quality"`
	MIDIURL       *string         `json:"midi_url"`
	MusicXMLURL   *string         `json:"musicxml_url"`
	PDFURL        *string         `json:"pdf_url"`
	Error         *string         `json:"error"`
	CreatedAt     string          `json:"created_at"`
	CompletedAt   *string         `json:"completed_at"`
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
	Result   *transcriptionResult `json:"result"`
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

// isoformat is the backend's timestamp layout: no zone, microseconds
const isoformat = "2006-01-02T15:04:05.000000"
