package playback

import (
	"log"
	"sort"
	"sync"

	"github.com/schollz/pianotube/internal/transport"
	"github.com/schollz/pianotube/internal/types"
)

type sounding struct {
	pitch uint8
	end   float64
}

// Player turns transport steps into note events on a Sink. A note starts
// when its start time falls in [from, to) of a step and is released once
// a step reaches its end.
type Player struct {
	mu     sync.Mutex
	sink   Sink
	notes  []types.Note // by start time
	active []sounding
	errs   int
}

// NewPlayer plays notes to sink. A nil sink is treated as Nop.
func NewPlayer(sink Sink, notes []types.Note) *Player {
	if sink == nil {
		sink = Nop{}
	}
	sorted := make([]types.Note, len(notes))
	copy(sorted, notes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start() < sorted[j].Start() })
	return &Player{sink: sink, notes: sorted}
}

// Advance plays one transport step. A step that wrapped finishes the pass
// up to the loop end, then restarts from the loop start; any other
// backwards step only silences.
func (p *Player) Advance(step transport.Step, state types.TransportState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case step.Wrapped:
		if state.LoopEnd > step.From {
			p.releaseUntil(state.LoopEnd)
			p.play(step.From, state.LoopEnd)
		}
		p.releaseAll()
		p.play(state.LoopStart, step.To)
	case step.To < step.From:
		p.releaseAll()
	case step.To > step.From:
		p.releaseUntil(step.To)
		p.play(step.From, step.To)
	}
}

// Silence releases every sounding note
func (p *Player) Silence() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseAll()
}

// Sounding is the number of notes currently held
func (p *Player) Sounding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Close silences the player and closes the sink
func (p *Player) Close() error {
	p.Silence()
	return p.sink.Close()
}

func (p *Player) play(from, to float64) {
	i := sort.Search(len(p.notes), func(i int) bool { return p.notes[i].Start() >= from })
	for ; i < len(p.notes) && p.notes[i].Start() < to; i++ {
		n := p.notes[i]
		pitch := uint8(n.Pitch())
		p.check(p.sink.NoteOn(pitch, uint8(max(1, n.Velocity()))))
		p.active = append(p.active, sounding{pitch: pitch, end: n.End()})
	}
	// notes shorter than the step still get their note-off
	p.releaseUntil(to)
}

func (p *Player) releaseUntil(t float64) {
	kept := p.active[:0]
	var done []sounding
	for _, s := range p.active {
		if s.end <= t {
			done = append(done, s)
		} else {
			kept = append(kept, s)
		}
	}
	p.active = kept
	p.release(done)
}

func (p *Player) releaseAll() {
	done := p.active
	p.active = nil
	p.release(done)
}

// release sends one note-off per pitch in done, skipping pitches that
// another held note still sounds
func (p *Player) release(done []sounding) {
	var off [128]bool
	for _, s := range done {
		off[s.pitch&0x7f] = true
	}
	for _, s := range p.active {
		off[s.pitch&0x7f] = false
	}
	for pitch, ok := range off {
		if ok {
			p.check(p.sink.NoteOff(uint8(pitch)))
		}
	}
}

func (p *Player) check(err error) {
	if err == nil {
		return
	}
	p.errs++
	// one line per burst is enough
	if p.errs == 1 || p.errs%100 == 0 {
		log.Printf("playback: warning: sink error (%d so far): %v", p.errs, err)
	}
}
