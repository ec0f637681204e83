package types

// ViewMode is the screen the user is looking at
type ViewMode int

const (
	InputView ViewMode = iota
	ProcessingView
	ResultView
	PianoRollView
	NotationView
	PracticeView
)

func (v ViewMode) String() string {
	switch v {
	case InputView:
		return "input"
	case ProcessingView:
		return "processing"
	case ResultView:
		return "result"
	case PianoRollView:
		return "piano-roll"
	case NotationView:
		return "notation"
	case PracticeView:
		return "practice"
	}
	return "unknown"
}

// NeedsNoteData reports whether entering the view requires PianoRollData
func (v ViewMode) NeedsNoteData() bool {
	return v == PianoRollView || v == PracticeView
}

// TransportState is a snapshot of the playback clock. Only the transport
// controller produces new values; everyone else reads copies.
type TransportState struct {
	CurrentTime float64 // seconds
	Tempo       float64 // BPM selected by the user
	LoopStart   float64 // seconds
	LoopEnd     float64 // seconds
	Playing     bool
}
