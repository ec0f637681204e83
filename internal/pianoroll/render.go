package pianoroll

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/schollz/pianotube/internal/types"
)

const (
	gridLineWidth = 0.5
	cursorWidth   = 2.0
	noteInset     = 1.0
)

// Kind identifies what a Command draws
type Kind int

const (
	KindBackground Kind = iota
	KindRow
	KindGrid
	KindNote
	KindCursor
)

// Rect is an axis aligned rectangle in pixel space, origin top-left
type Rect struct {
	X, Y, W, H float64
}

// Command is one fill operation of a frame
type Command struct {
	Kind   Kind
	Rect   Rect
	Color  colorful.Color
	Alpha  float64
	Border bool // one pixel outline in Palette.NoteBorder
	Pitch  int  // rows and notes only
}

// Frame is the output of Render: fill commands in paint order plus the
// geometry they were derived from.
type Frame struct {
	Width, Height int
	Commands      []Command

	MinPitch, MaxPitch int
	RowHeight          float64
	TimeScale          float64 // pixels per second
	Empty              bool    // no notes were drawn
}

// Render maps notes onto a width x height time-pitch grid. Time runs left
// to right over duration seconds, pitch bottom to top over the range of
// pitches present. An empty note list draws only background and grid. The
// cursor is drawn when currentTime is positive.
func Render(notes []types.Note, duration float64, width, height int, currentTime float64) Frame {
	f := Frame{Width: width, Height: height}
	if width <= 0 || height <= 0 {
		f.Empty = true
		return f
	}
	w, h := float64(width), float64(height)

	f.Commands = append(f.Commands, Command{
		Kind:  KindBackground,
		Rect:  Rect{0, 0, w, h},
		Color: Palette.Background,
		Alpha: 1,
	})

	if duration > 0 {
		f.TimeScale = w / duration
	}

	lo, hi, ok := types.PitchRange(notes)
	f.Empty = !ok
	if ok {
		f.MinPitch, f.MaxPitch = lo, hi
		f.RowHeight = h / float64(hi-lo+1)
		for p := lo; p <= hi; p++ {
			c := Palette.WhiteRow
			if types.IsBlackKey(p) {
				c = Palette.BlackRow
			}
			f.Commands = append(f.Commands, Command{
				Kind:  KindRow,
				Rect:  Rect{0, f.rowTop(p), w, f.RowHeight},
				Color: c,
				Alpha: 1,
				Pitch: p,
			})
		}
	}

	if f.TimeScale > 0 {
		for i := 0; float64(i) <= duration; i++ {
			x := float64(i) * f.TimeScale
			f.Commands = append(f.Commands, Command{
				Kind:  KindGrid,
				Rect:  Rect{x - gridLineWidth/2, 0, gridLineWidth, h},
				Color: Palette.Grid,
				Alpha: 1,
			})
		}
	}

	if ok {
		for _, n := range notes {
			f.Commands = append(f.Commands, Command{
				Kind: KindNote,
				Rect: Rect{
					X: n.Start() * f.TimeScale,
					Y: f.rowTop(n.Pitch()) + noteInset,
					W: n.Duration() * f.TimeScale,
					H: math.Max(0, f.RowHeight-2*noteInset),
				},
				Color:  Palette.Note,
				Alpha:  Opacity(n.Velocity()),
				Border: true,
				Pitch:  n.Pitch(),
			})
		}
	}

	if currentTime > 0 && f.TimeScale > 0 {
		x := currentTime * f.TimeScale
		f.Commands = append(f.Commands, Command{
			Kind:  KindCursor,
			Rect:  Rect{x - cursorWidth/2, 0, cursorWidth, h},
			Color: Palette.Cursor,
			Alpha: 1,
		})
	}

	return f
}

func (f Frame) rowTop(pitch int) float64 {
	return float64(f.Height) - float64(pitch-f.MinPitch+1)*f.RowHeight
}

// Notes returns the note commands of the frame
func (f Frame) Notes() []Command {
	var out []Command
	for _, c := range f.Commands {
		if c.Kind == KindNote {
			out = append(out, c)
		}
	}
	return out
}

// Opacity maps a velocity onto [0.5, 1.0]
func Opacity(velocity int) float64 {
	v := math.Max(0, math.Min(types.MaxVelocity, float64(velocity)))
	return 0.5 + 0.5*v/types.MaxVelocity
}
