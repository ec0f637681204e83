package devserver

import (
	"encoding/xml"
	"io"
	"math"
	"sort"

	"github.com/schollz/pianotube/internal/types"
)

// divisions per quarter note in generated scores
const divisions = 4

type scorePartwise struct {
	XMLName  xml.Name `xml:"score-partwise"`
	Version  string   `xml:"version,attr"`
	Title    string   `xml:"work>work-title,omitempty"`
	PartList partList `xml:"part-list"`
	Parts    []part   `xml:"part"`
}

type partList struct {
	ScorePart scorePart `xml:"score-part"`
}

type scorePart struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"part-name"`
}

type part struct {
	ID       string    `xml:"id,attr"`
	Measures []measure `xml:"measure"`
}

type measure struct {
	Number     int         `xml:"number,attr"`
	Attributes *attributes `xml:"attributes,omitempty"`
	Direction  *direction  `xml:"direction,omitempty"`
	Notes      []xmlNote   `xml:"note"`
}

type attributes struct {
	Divisions int    `xml:"divisions"`
	Beats     int    `xml:"time>beats"`
	BeatType  int    `xml:"time>beat-type"`
	ClefSign  string `xml:"clef>sign"`
	ClefLine  int    `xml:"clef>line"`
}

type direction struct {
	Sound sound `xml:"sound"`
}

type sound struct {
	Tempo float64 `xml:"tempo,attr"`
}

type xmlNote struct {
	Chord    *struct{} `xml:"chord,omitempty"`
	Rest     *struct{} `xml:"rest,omitempty"`
	Pitch    *pitch    `xml:"pitch,omitempty"`
	Duration int       `xml:"duration"`
}

type pitch struct {
	Step   string `xml:"step"`
	Alter  int    `xml:"alter,omitempty"`
	Octave int    `xml:"octave"`
}

var steps = [12]struct {
	step  string
	alter int
}{
	{"C", 0}, {"C", 1}, {"D", 0}, {"D", 1}, {"E", 0}, {"F", 0},
	{"F", 1}, {"G", 0}, {"G", 1}, {"A", 0}, {"A", 1}, {"B", 0},
}

func spell(midiPitch int) *pitch {
	s := steps[midiPitch%12]
	return &pitch{Step: s.step, Alter: s.alter, Octave: midiPitch/12 - 1}
}

// WriteMusicXML writes a minimal single-part score. All notes go in one
// measure; notes sharing an onset become a chord and overlaps are pushed
// back to the previous note's end.
func WriteMusicXML(w io.Writer, title string, data *types.PianoRollData) error {
	tempo := data.Tempo
	if tempo <= 0 {
		tempo = types.DefaultTempo
	}
	perSecond := float64(divisions) * tempo / 60
	toDiv := func(sec float64) int { return int(math.Round(sec * perSecond)) }

	notes := make([]types.Note, len(data.Notes))
	copy(notes, data.Notes)
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Start() < notes[j].Start() })

	m := measure{
		Number:     1,
		Attributes: &attributes{Divisions: divisions, Beats: 4, BeatType: 4, ClefSign: "G", ClefLine: 2},
		Direction:  &direction{Sound: sound{Tempo: tempo}},
	}
	cursor, lastOnset := 0, -1
	for _, n := range notes {
		onset := toDiv(n.Start())
		dur := max(1, toDiv(n.Duration()))
		xn := xmlNote{Pitch: spell(n.Pitch()), Duration: dur}
		if onset == lastOnset {
			xn.Chord = &struct{}{}
			m.Notes = append(m.Notes, xn)
			continue
		}
		if onset > cursor {
			m.Notes = append(m.Notes, xmlNote{Rest: &struct{}{}, Duration: onset - cursor})
			cursor = onset
		}
		m.Notes = append(m.Notes, xn)
		lastOnset = onset
		cursor += dur
	}

	score := scorePartwise{
		Version:  "3.1",
		Title:    title,
		PartList: partList{ScorePart: scorePart{ID: "P1", Name: "Piano"}},
		Parts:    []part{{ID: "P1", Measures: []measure{m}}},
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(score); err != nil {
		return err
	}
	return enc.Flush()
}
