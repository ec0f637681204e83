package transport

import (
	"math"

	"github.com/schollz/pianotube/internal/types"
)

const (
	// MinTempoRatio and MaxTempoRatio bound the selectable tempo relative
	// to the source tempo.
	MinTempoRatio = 0.5
	MaxTempoRatio = 1.5
)

// Timeline is the fixed part of a playback session
type Timeline struct {
	Duration      float64 // seconds
	OriginalTempo float64 // BPM of the source
}

// TempoRatio is the playback speed multiplier for the selected tempo
func (tl Timeline) TempoRatio(tempo float64) float64 {
	if tl.OriginalTempo <= 0 {
		return 1
	}
	return tempo / tl.OriginalTempo
}

// ClampTempo bounds bpm to the selectable range
func (tl Timeline) ClampTempo(bpm float64) float64 {
	lo := tl.OriginalTempo * MinTempoRatio
	hi := tl.OriginalTempo * MaxTempoRatio
	return math.Max(lo, math.Min(hi, bpm))
}

// Clamp bounds a time to [0, Duration]
func (tl Timeline) Clamp(t float64) float64 {
	return math.Max(0, math.Min(tl.Duration, t))
}

// Advance moves the clock forward by wallDelta seconds of wall time, scaled
// by the tempo ratio. Passing loopEnd wraps to loopStart plus the overshoot.
// A paused state or a non-positive delta returns s unchanged.
func Advance(s types.TransportState, tl Timeline, wallDelta float64) types.TransportState {
	if !s.Playing || wallDelta <= 0 {
		return s
	}

	prev := s.CurrentTime
	next := prev + wallDelta*tl.TempoRatio(s.Tempo)

	loopLen := s.LoopEnd - s.LoopStart
	if loopLen > 0 && next >= s.LoopEnd {
		overshoot := math.Mod(next-math.Max(prev, s.LoopEnd), loopLen)
		next = s.LoopStart + overshoot
	}

	s.CurrentTime = tl.Clamp(next)
	return s
}
