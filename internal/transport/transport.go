package transport

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/schollz/pianotube/internal/types"
)

// ErrInvalidLoop is returned when loop bounds are empty or inverted
var ErrInvalidLoop = errors.New("invalid loop bounds")

// Step describes one clock movement produced by Tick
type Step struct {
	From    float64
	To      float64
	Wrapped bool // the clock jumped back to the loop start
}

// Controller owns the playback clock for one session. It is the only
// writer of TransportState; callers get copies from Snapshot.
type Controller struct {
	mu       sync.Mutex
	timeline Timeline
	state    types.TransportState
	lastTick time.Time
	clock    func() time.Time
}

// New creates a paused controller at time zero with the loop covering the
// whole timeline. data should already be normalized.
func New(data *types.PianoRollData) *Controller {
	tl := Timeline{Duration: data.Duration, OriginalTempo: data.Tempo}
	if tl.Duration <= 0 {
		tl.Duration = 1
	}
	if tl.OriginalTempo <= 0 {
		tl.OriginalTempo = types.DefaultTempo
	}
	return &Controller{
		timeline: tl,
		state: types.TransportState{
			Tempo:   tl.OriginalTempo,
			LoopEnd: tl.Duration,
		},
		clock: time.Now,
	}
}

// SetClock replaces the wall clock used when playback starts
func (c *Controller) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() types.TransportState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Duration() float64      { return c.timeline.Duration }
func (c *Controller) OriginalTempo() float64 { return c.timeline.OriginalTempo }

// Play starts the clock. The next Tick measures from now.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Playing {
		return
	}
	c.state.Playing = true
	c.lastTick = c.clock()
	log.Printf("transport: play at %.3fs", c.state.CurrentTime)
}

// Pause freezes the clock
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Playing {
		return
	}
	c.state.Playing = false
	c.lastTick = time.Time{}
	log.Printf("transport: pause at %.3fs", c.state.CurrentTime)
}

// Toggle switches between playing and paused and reports the new state
func (c *Controller) Toggle() bool {
	if c.Snapshot().Playing {
		c.Pause()
		return false
	}
	c.Play()
	return true
}

// Seek moves the clock to t clamped to the timeline, in any play state.
func (c *Controller) Seek(t float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.CurrentTime = c.timeline.Clamp(t)
	return c.state.CurrentTime
}

// SetTempo selects a playback tempo, clamped to 50%-150% of the original.
// The current time is not affected.
func (c *Controller) SetTempo(bpm float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Tempo = c.timeline.ClampTempo(bpm)
	return c.state.Tempo
}

// SetLoop sets the loop bounds after clamping them to the timeline.
func (c *Controller) SetLoop(start, end float64) error {
	start = c.timeline.Clamp(start)
	end = c.timeline.Clamp(end)
	if start >= end {
		return fmt.Errorf("%w: start %.2fs must be before end %.2fs", ErrInvalidLoop, start, end)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LoopStart = start
	c.state.LoopEnd = end
	return nil
}

// ClearLoop resets the loop to the whole timeline
func (c *Controller) ClearLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LoopStart = 0
	c.state.LoopEnd = c.timeline.Duration
}

// Reset stops playback and rewinds to the loop start
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Playing = false
	c.state.CurrentTime = c.state.LoopStart
	c.lastTick = time.Time{}
}

// Tick advances the clock by the wall time elapsed since the previous tick
// (or since Play). Calling it twice with the same instant moves nothing.
func (c *Controller) Tick(now time.Time) Step {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.state.CurrentTime
	if !c.state.Playing {
		return Step{From: from, To: from}
	}
	if c.lastTick.IsZero() {
		c.lastTick = now
		return Step{From: from, To: from}
	}

	delta := now.Sub(c.lastTick).Seconds()
	if delta <= 0 {
		return Step{From: from, To: from}
	}
	c.lastTick = now

	c.state = Advance(c.state, c.timeline, delta)
	to := c.state.CurrentTime
	return Step{From: from, To: to, Wrapped: to < from}
}
