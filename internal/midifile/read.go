package midifile

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/schollz/pianotube/internal/types"
)

// ErrUnsupportedTimeFormat is returned for SMPTE timed files
var ErrUnsupportedTimeFormat = errors.New("only metric time format is supported")

type noteKey struct {
	channel uint8
	pitch   uint8
}

type openNote struct {
	start    float64
	velocity uint8
}

// ReadFile parses a Standard MIDI File from disk
func ReadFile(path string) (*types.PianoRollData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MIDI file: %w", err)
	}
	defer f.Close()
	data, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// Read parses a Standard MIDI File into piano-roll data. Note-on and
// note-off events are paired per channel and pitch, first in first out; a
// note-on with velocity zero ends a note. Times follow the file's tempo
// map. Tempo is the first tempo change, duration the latest note end.
func Read(r io.Reader) (*types.PianoRollData, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}
	if _, ok := s.TimeFormat.(smf.MetricTicks); !ok {
		return nil, ErrUnsupportedTimeFormat
	}

	seconds := func(absTicks int64) float64 {
		return float64(s.TimeAt(absTicks)) / 1e6
	}

	data := &types.PianoRollData{Tempo: types.DefaultTempo}
	if tc := s.TempoChanges(); len(tc) > 0 && tc[0].BPM > 0 {
		data.Tempo = tc[0].BPM
	}

	dropped := 0
	for _, track := range s.Tracks {
		open := make(map[noteKey][]openNote)
		var absTicks int64

		closeNote := func(k noteKey, end float64) {
			stack := open[k]
			if len(stack) == 0 {
				return
			}
			on := stack[0]
			open[k] = stack[1:]
			n, err := types.NewNote(int(k.pitch), on.start, end-on.start, int(on.velocity))
			if err != nil {
				dropped++
				return
			}
			data.Notes = append(data.Notes, n)
		}

		for _, ev := range track {
			absTicks += int64(ev.Delta)
			var ch, key, vel uint8
			switch {
			case ev.Message.GetNoteStart(&ch, &key, &vel):
				k := noteKey{ch, key}
				open[k] = append(open[k], openNote{start: seconds(absTicks), velocity: vel})
			case ev.Message.GetNoteEnd(&ch, &key):
				closeNote(noteKey{ch, key}, seconds(absTicks))
			}
		}

		// notes still sounding at the end of the track end with it
		end := seconds(absTicks)
		keys := make([]noteKey, 0, len(open))
		for k := range open {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].channel != keys[j].channel {
				return keys[i].channel < keys[j].channel
			}
			return keys[i].pitch < keys[j].pitch
		})
		for _, k := range keys {
			for len(open[k]) > 0 {
				closeNote(k, end)
			}
		}
	}

	if dropped > 0 {
		log.Printf("midifile: warning: dropped %d zero-length notes", dropped)
	}
	data.Duration = data.LastNoteEnd()
	data.Normalize()
	return data, nil
}
