package types

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidNote is returned when note fields fall outside their ranges.
var ErrInvalidNote = errors.New("invalid note")

const (
	MaxPitch    = 127
	MaxVelocity = 127

	// DefaultTempo is used when a source reports no usable tempo
	DefaultTempo = 120.0
)

// Note is one timed, pitched event. Fields are unexported so a Note
// cannot change after construction.
type Note struct {
	pitch    int
	start    float64
	duration float64
	velocity int
}

// NewNote validates and builds a Note
func NewNote(pitch int, start, duration float64, velocity int) (Note, error) {
	if pitch < 0 || pitch > MaxPitch {
		return Note{}, fmt.Errorf("%w: pitch %d outside 0-%d", ErrInvalidNote, pitch, MaxPitch)
	}
	if start < 0 {
		return Note{}, fmt.Errorf("%w: start %.3f is negative", ErrInvalidNote, start)
	}
	if duration <= 0 {
		return Note{}, fmt.Errorf("%w: duration %.3f must be positive", ErrInvalidNote, duration)
	}
	if velocity < 0 || velocity > MaxVelocity {
		return Note{}, fmt.Errorf("%w: velocity %d outside 0-%d", ErrInvalidNote, velocity, MaxVelocity)
	}
	return Note{pitch: pitch, start: start, duration: duration, velocity: velocity}, nil
}

// MustNote is NewNote for literals in tests and generated data
func MustNote(pitch int, start, duration float64, velocity int) Note {
	n, err := NewNote(pitch, start, duration, velocity)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Note) Pitch() int        { return n.pitch }
func (n Note) Start() float64    { return n.start }
func (n Note) Duration() float64 { return n.duration }
func (n Note) Velocity() int     { return n.velocity }
func (n Note) End() float64      { return n.start + n.duration }

// IsBlackKey reports whether the pitch class is a black piano key
func IsBlackKey(pitch int) bool {
	switch pitch % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName converts a MIDI pitch to a readable name (e.g. "C4", "F#3")
func NoteName(pitch int) string {
	if pitch < 0 {
		return "--"
	}
	return fmt.Sprintf("%s%d", noteNames[pitch%12], pitch/12-1)
}

// PianoRollData is the note list of a finished job together with its
// timeline length and source tempo.
type PianoRollData struct {
	Notes    []Note
	Duration float64 // seconds, authoritative timeline length
	Tempo    float64 // BPM of the source
}

// Normalize repairs a timeline the backend could not measure. Tempo falls
// back to DefaultTempo; duration falls back to the latest note end, then 1s.
// Notes are sorted by start time.
func (d *PianoRollData) Normalize() {
	if d.Tempo <= 0 {
		d.Tempo = DefaultTempo
	}
	if d.Duration <= 0 {
		d.Duration = d.LastNoteEnd()
	}
	if d.Duration <= 0 {
		d.Duration = 1
	}
	sort.SliceStable(d.Notes, func(i, j int) bool {
		return d.Notes[i].start < d.Notes[j].start
	})
}

// LastNoteEnd returns the largest start+duration over all notes
func (d *PianoRollData) LastNoteEnd() float64 {
	end := 0.0
	for _, n := range d.Notes {
		if n.End() > end {
			end = n.End()
		}
	}
	return end
}

// PitchRange returns the lowest and highest pitch. ok is false when there
// are no notes.
func PitchRange(notes []Note) (lo, hi int, ok bool) {
	if len(notes) == 0 {
		return 0, 0, false
	}
	lo, hi = notes[0].pitch, notes[0].pitch
	for _, n := range notes[1:] {
		if n.pitch < lo {
			lo = n.pitch
		}
		if n.pitch > hi {
			hi = n.pitch
		}
	}
	return lo, hi, true
}
