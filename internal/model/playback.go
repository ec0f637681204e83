package model

import (
	"log"
	"math"
	"time"

	"github.com/schollz/pianotube/internal/playback"
	"github.com/schollz/pianotube/internal/transport"
	"github.com/schollz/pianotube/internal/types"
)

// Transport helpers used by the piano-roll and practice views

const (
	ScrubStep     = 1.0 // seconds
	FastScrubStep = 5.0 // seconds
	TempoStep     = 5.0 // BPM
)

// EnterPlayback prepares a fresh transport and player for data. The
// previous tick chain, if any, is invalidated.
func (m *Model) EnterPlayback(data *types.PianoRollData) {
	m.LeavePlayback()
	m.Notes = data
	m.Transport = transport.New(data)
	m.Player = playback.NewPlayer(m.Sink, data.Notes)
	m.TickGeneration++
	m.StatusMsg = ""
}

// LeavePlayback pauses the transport, silences the player and stops the
// tick chain. The sink stays open for the next view.
func (m *Model) LeavePlayback() {
	if m.Transport == nil {
		return
	}
	m.Transport.Pause()
	m.Player.Silence()
	m.Transport = nil
	m.Player = nil
	m.TickGeneration++
}

// InPlayback reports whether a transport is active
func (m *Model) InPlayback() bool {
	return m.Transport != nil
}

// TogglePlay starts or pauses the transport and reports whether it is playing
func (m *Model) TogglePlay() bool {
	if m.Transport == nil {
		return false
	}
	playing := m.Transport.Toggle()
	if !playing {
		m.Player.Silence()
	}
	return playing
}

// ResetPlayback stops and rewinds to the loop start
func (m *Model) ResetPlayback() {
	if m.Transport == nil {
		return
	}
	m.Transport.Reset()
	m.Player.Silence()
}

// Scrub moves the cursor by one step in direction (-1 or 1); fast uses the
// larger step. The result is clamped to the timeline.
func (m *Model) Scrub(direction float64, fast bool) {
	if m.Transport == nil {
		return
	}
	step := ScrubStep
	if fast {
		step = FastScrubStep
	}
	cur := m.Transport.Snapshot().CurrentTime
	m.Transport.Seek(cur + step*direction)
	m.Player.Silence()
}

// NudgeTempo changes the tempo by one step in direction
func (m *Model) NudgeTempo(direction float64) {
	if m.Transport == nil {
		return
	}
	tempo := m.Transport.Snapshot().Tempo
	got := m.Transport.SetTempo(tempo + TempoStep*direction)
	m.StatusMsg = ""
	if got == tempo {
		m.StatusMsg = "Tempo limit reached"
	}
}

// MarkLoopStart moves the loop start to the cursor
func (m *Model) MarkLoopStart() {
	if m.Transport == nil {
		return
	}
	s := m.Transport.Snapshot()
	m.setLoop(s.CurrentTime, s.LoopEnd)
}

// MarkLoopEnd moves the loop end to the cursor
func (m *Model) MarkLoopEnd() {
	if m.Transport == nil {
		return
	}
	s := m.Transport.Snapshot()
	m.setLoop(s.LoopStart, s.CurrentTime)
}

func (m *Model) setLoop(start, end float64) {
	if err := m.Transport.SetLoop(start, end); err != nil {
		log.Printf("warning: %v", err)
		m.StatusMsg = "Loop start must be before loop end"
		return
	}
	m.StatusMsg = ""
}

// ClearLoop resets the loop to the whole piece
func (m *Model) ClearLoop() {
	if m.Transport == nil {
		return
	}
	m.Transport.ClearLoop()
	m.StatusMsg = ""
}

// AdvancePlayback moves the transport to now and plays the notes it passed
func (m *Model) AdvancePlayback(now time.Time) transport.Step {
	if m.Transport == nil {
		return transport.Step{}
	}
	step := m.Transport.Tick(now)
	m.Player.Advance(step, m.Transport.Snapshot())
	return step
}

// TempoPercent is the selected tempo as a percentage of the original
func (m *Model) TempoPercent() int {
	if m.Transport == nil {
		return 100
	}
	return int(math.Round(100 * m.Transport.Snapshot().Tempo / m.Transport.OriginalTempo()))
}

// HasLoop reports whether the loop is narrower than the whole piece
func (m *Model) HasLoop() bool {
	if m.Transport == nil {
		return false
	}
	s := m.Transport.Snapshot()
	return s.LoopStart > 0 || s.LoopEnd < m.Transport.Duration()
}
