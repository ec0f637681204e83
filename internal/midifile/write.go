package midifile

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/schollz/pianotube/internal/types"
)

// Resolution is the ticks per quarter note of written files
const Resolution = 960

type timedMessage struct {
	tick uint32
	on   bool
	msg  midi.Message
}

// Write encodes the notes as a type 1 file: a tempo track followed by one
// note track on channel 1.
func Write(w io.Writer, data *types.PianoRollData) error {
	tempo := data.Tempo
	if tempo <= 0 {
		tempo = types.DefaultTempo
	}
	ticksPerSecond := float64(Resolution) * tempo / 60
	toTicks := func(sec float64) uint32 {
		return uint32(math.Round(sec * ticksPerSecond))
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(Resolution)

	var tempoTrack smf.Track
	tempoTrack.Add(0, smf.MetaMeter(4, 4))
	tempoTrack.Add(0, smf.MetaTempo(tempo))
	tempoTrack.Close(0)
	if err := sm.Add(tempoTrack); err != nil {
		return fmt.Errorf("error adding tempo track: %w", err)
	}

	events := make([]timedMessage, 0, len(data.Notes)*2)
	for _, n := range data.Notes {
		start, end := toTicks(n.Start()), toTicks(n.End())
		if end <= start {
			end = start + 1
		}
		// velocity 0 would read back as a note-off
		vel := uint8(max(1, n.Velocity()))
		events = append(events,
			timedMessage{tick: start, on: true, msg: midi.NoteOn(0, uint8(n.Pitch()), vel)},
			timedMessage{tick: end, on: false, msg: midi.NoteOff(0, uint8(n.Pitch()))},
		)
	}
	// offs before ons on the same tick so repeated pitches pair up
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})

	var noteTrack smf.Track
	var last uint32
	for _, ev := range events {
		noteTrack.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}
	noteTrack.Close(0)
	if err := sm.Add(noteTrack); err != nil {
		return fmt.Errorf("error adding note track: %w", err)
	}

	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI: %w", err)
	}
	return nil
}
