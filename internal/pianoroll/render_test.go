package pianoroll

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/pianotube/internal/types"
)

func assertColor(t *testing.T, expected, actual colorful.Color, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, 0, expected.DistanceRgb(actual), 0.01, msgAndArgs...)
}

func TestRenderSingleNote(t *testing.T) {
	notes := []types.Note{types.MustNote(60, 0, 1, 100)}
	f := Render(notes, 2, 1200, 600, 0)

	require.False(t, f.Empty)
	assert.Equal(t, 60, f.MinPitch)
	assert.Equal(t, 60, f.MaxPitch)
	assert.Equal(t, 600.0, f.RowHeight)
	assert.Equal(t, 600.0, f.TimeScale)

	drawn := f.Notes()
	require.Len(t, drawn, 1)
	assert.Equal(t, Rect{X: 0, Y: 1, W: 600, H: 598}, drawn[0].Rect)
	assert.InDelta(t, 0.5+0.5*100/127.0, drawn[0].Alpha, 1e-9)

	x0, x1, y0, y1 := PixelSpan(drawn[0].Rect, f.Width, f.Height)
	assert.Equal(t, 0, x0)
	assert.Equal(t, 600, x1)
	assert.Equal(t, 1, y0)
	assert.Equal(t, 599, y1)

	rows := 0
	for _, c := range f.Commands {
		if c.Kind == KindRow {
			rows++
		}
		assert.NotEqual(t, KindCursor, c.Kind, "no cursor at time zero")
	}
	assert.Equal(t, 1, rows)
}

func TestRasterizeSingleNote(t *testing.T) {
	notes := []types.Note{types.MustNote(60, 0, 1, 100)}
	img := Rasterize(Render(notes, 2, 1200, 600, 0))
	require.Equal(t, 1200, img.Bounds().Dx())
	require.Equal(t, 600, img.Bounds().Dy())

	fillColor := Palette.WhiteRow.BlendRgb(Palette.Note, Opacity(100))
	assertColor(t, fillColor, ColorAt(img, 300, 300), "note body")
	assertColor(t, Palette.NoteBorder, ColorAt(img, 0, 300), "left edge")
	assertColor(t, Palette.NoteBorder, ColorAt(img, 599, 300), "right edge")
	assertColor(t, Palette.Grid, ColorAt(img, 600, 300), "grid line at one second")
	assertColor(t, Palette.WhiteRow, ColorAt(img, 900, 300), "row after the note")
	assertColor(t, Palette.WhiteRow, ColorAt(img, 300, 0), "top inset")
	assertColor(t, Palette.WhiteRow, ColorAt(img, 300, 599), "bottom inset")
}

func TestRenderEmpty(t *testing.T) {
	f := Render(nil, 2, 100, 50, 0)
	assert.True(t, f.Empty)

	kinds := map[Kind]int{}
	for _, c := range f.Commands {
		kinds[c.Kind]++
	}
	assert.Equal(t, 1, kinds[KindBackground])
	assert.Equal(t, 3, kinds[KindGrid], "lines at 0, 1 and 2 seconds")
	assert.Zero(t, kinds[KindRow])
	assert.Zero(t, kinds[KindNote])

	img := Rasterize(f)
	assertColor(t, Palette.Background, ColorAt(img, 25, 25))

	assert.Empty(t, Render(nil, 2, 0, 0, 0).Commands, "zero sized viewport draws nothing")
	assert.NotPanics(t, func() { Rasterize(Render(nil, 0, 10, 10, 1)) })
}

func TestRenderRows(t *testing.T) {
	notes := []types.Note{types.MustNote(60, 0, 1, 64), types.MustNote(61, 1, 1, 64)}
	f := Render(notes, 2, 200, 600, 0)
	assert.Equal(t, 300.0, f.RowHeight)

	for _, c := range f.Commands {
		if c.Kind != KindRow {
			continue
		}
		switch c.Pitch {
		case 60:
			assert.Equal(t, 300.0, c.Rect.Y)
			assert.Equal(t, Palette.WhiteRow, c.Color)
		case 61:
			assert.Equal(t, 0.0, c.Rect.Y, "highest pitch is the top row")
			assert.Equal(t, Palette.BlackRow, c.Color)
		default:
			t.Fatalf("unexpected row for pitch %d", c.Pitch)
		}
	}
}

func TestRenderCursor(t *testing.T) {
	notes := []types.Note{types.MustNote(60, 0, 1, 100)}
	f := Render(notes, 2, 1200, 600, 1)

	last := f.Commands[len(f.Commands)-1]
	require.Equal(t, KindCursor, last.Kind, "cursor is painted last")
	assert.Equal(t, 599.0, last.Rect.X)
	assert.Equal(t, 2.0, last.Rect.W)

	img := Rasterize(f)
	assertColor(t, Palette.Cursor, ColorAt(img, 599, 10))
	assertColor(t, Palette.Cursor, ColorAt(img, 600, 10))
}

func TestNoteOutsideTimeline(t *testing.T) {
	notes := []types.Note{types.MustNote(60, 1.5, 3, 100)}
	f := Render(notes, 2, 200, 100, 0)
	x0, x1, _, _ := PixelSpan(f.Notes()[0].Rect, f.Width, f.Height)
	assert.Equal(t, 150, x0)
	assert.Equal(t, 200, x1, "clipped to the viewport")
}

func TestOpacity(t *testing.T) {
	assert.Equal(t, 0.5, Opacity(0))
	assert.Equal(t, 1.0, Opacity(127))
	assert.Equal(t, 0.5, Opacity(-20))
	assert.Equal(t, 1.0, Opacity(200))

	prev := Opacity(-1)
	for v := 0; v <= 140; v++ {
		o := Opacity(v)
		assert.GreaterOrEqual(t, o, 0.5)
		assert.LessOrEqual(t, o, 1.0)
		assert.GreaterOrEqual(t, o, prev, "velocity %d", v)
		prev = o
	}
}

func withProfile(t *testing.T, p termenv.Profile) {
	t.Helper()
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(p)
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })
}

func TestRenderTerminal(t *testing.T) {
	notes := []types.Note{types.MustNote(60, 0, 1, 100), types.MustNote(67, 1, 1, 50)}
	v := View{Notes: notes, Duration: 2, Cols: 40, Rows: 8, CurrentTime: 0.5, LoopEnd: 2}

	t.Run("plain layout", func(t *testing.T) {
		withProfile(t, termenv.Ascii)
		out := RenderTerminal(v)
		lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
		require.Len(t, lines, 8+2, "roll rows plus ruler")
		for _, line := range lines[:8] {
			assert.Equal(t, strings.Repeat(halfBlock, 40), line)
		}
		assert.Contains(t, lines[8], "^")
	})

	t.Run("true color", func(t *testing.T) {
		withProfile(t, termenv.TrueColor)
		out := RenderTerminal(v)
		assert.Contains(t, out, "\x1b[")
	})

	t.Run("no space", func(t *testing.T) {
		assert.Empty(t, RenderTerminal(View{Duration: 2}))
	})
}

func TestTimestampRuler(t *testing.T) {
	withProfile(t, termenv.Ascii)
	out := timestampRuler(40, 10, 5, 2, 4)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, []rune(lines[0]), 40)
	assert.Equal(t, '[', []rune(lines[0])[7])
	assert.Equal(t, ']', []rune(lines[0])[15])
	assert.Equal(t, '^', []rune(lines[0])[19])
	assert.Contains(t, lines[1], "0")
	assert.Contains(t, lines[1], "10")

	full := timestampRuler(40, 10, 0, 0, 10)
	assert.NotContains(t, full, "[", "full-length loop is not marked")
}

func TestPitchLabel(t *testing.T) {
	assert.Equal(t, "no notes", PitchLabel(nil))
	assert.Equal(t, "C4-G4", PitchLabel([]types.Note{types.MustNote(67, 0, 1, 1), types.MustNote(60, 0, 1, 1)}))
}
