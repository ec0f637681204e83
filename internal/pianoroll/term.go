package pianoroll

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/schollz/pianotube/internal/types"
)

// upper half block: foreground paints the top pixel, background the bottom
const halfBlock = "▀"

// View describes one terminal rendering of the piano roll
type View struct {
	Notes       []types.Note
	Duration    float64
	Cols, Rows  int // character cells for the roll, ruler excluded
	CurrentTime float64
	LoopStart   float64
	LoopEnd     float64
}

// RenderTerminal draws the piano roll with half-block characters, two pixel
// rows per cell, followed by a two line timestamp ruler.
func RenderTerminal(v View) string {
	if v.Cols <= 0 || v.Rows <= 0 {
		return ""
	}

	f := Render(v.Notes, v.Duration, v.Cols, v.Rows*2, v.CurrentTime)
	// cells are too coarse for outlines
	for i := range f.Commands {
		f.Commands[i].Border = false
	}
	img := Rasterize(f)

	var sb strings.Builder
	for row := 0; row < v.Rows; row++ {
		x := 0
		for x < v.Cols {
			top := ColorAt(img, x, row*2).Hex()
			bottom := ColorAt(img, x, row*2+1).Hex()
			// merge runs of identical cells into one styled segment
			n := 1
			for x+n < v.Cols &&
				ColorAt(img, x+n, row*2).Hex() == top &&
				ColorAt(img, x+n, row*2+1).Hex() == bottom {
				n++
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom))
			sb.WriteString(style.Render(strings.Repeat(halfBlock, n)))
			x += n
		}
		sb.WriteString("\n")
	}

	sb.WriteString(timestampRuler(v.Cols, v.Duration, v.CurrentTime, v.LoopStart, v.LoopEnd))
	return sb.String()
}

// timestampRuler draws tick marks and labels under the roll. Loop bounds
// narrower than the timeline are marked with brackets, the cursor with a caret.
func timestampRuler(width int, duration, cursor, loopStart, loopEnd float64) string {
	if width <= 0 || duration <= 0 {
		return ""
	}

	var precision int
	var interval float64
	switch {
	case duration < 1.0:
		precision, interval = 2, 0.1
	case duration < 10.0:
		precision, interval = 1, 0.5
	case duration < 60.0:
		precision, interval = 0, 2.0
	default:
		precision, interval = 0, 10.0
	}

	// aim for a handful of labels
	numTimestamps := int(duration / interval)
	if numTimestamps < 4 {
		numTimestamps = 4
		interval = duration / float64(numTimestamps)
	} else if numTimestamps > 12 {
		numTimestamps = 12
		interval = duration / float64(numTimestamps)
	}
	if maxLabels := width / 8; numTimestamps > maxLabels && maxLabels > 0 {
		numTimestamps = maxLabels
		interval = duration / float64(numTimestamps)
	}

	pos := func(t float64) int {
		p := int(float64(width-1) * t / duration)
		return max(0, min(width-1, p))
	}

	tickLine := []rune(strings.Repeat(" ", width))
	labelLine := []rune(strings.Repeat(" ", width))
	labels := make(map[int]string)

	for i := 0; i <= numTimestamps; i++ {
		t := min(float64(i)*interval, duration)
		p := pos(t)
		tickLine[p] = '|'
		labels[p] = fmt.Sprintf("%.*f", precision, t)
	}

	for p, label := range labels {
		start := p - len(label)/2
		if start < 0 {
			start = 0
		}
		if start+len(label) > width {
			start = width - len(label)
		}
		for i, ch := range label {
			if start+i >= 0 && start+i < width {
				labelLine[start+i] = ch
			}
		}
	}

	loopSet := loopEnd > loopStart && (loopStart > 0 || loopEnd < duration)
	marks := make(map[int]lipgloss.Style)
	if loopSet {
		loopStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(Palette.Loop.Hex()))
		tickLine[pos(loopStart)] = '['
		tickLine[pos(loopEnd)] = ']'
		marks[pos(loopStart)] = loopStyle
		marks[pos(loopEnd)] = loopStyle
	}
	if cursor > 0 {
		tickLine[pos(cursor)] = '^'
		marks[pos(cursor)] = lipgloss.NewStyle().Foreground(lipgloss.Color(Palette.Cursor.Hex()))
	}

	var sb strings.Builder
	for i, ch := range tickLine {
		if style, ok := marks[i]; ok {
			sb.WriteString(style.Render(string(ch)))
			continue
		}
		sb.WriteRune(ch)
	}
	sb.WriteString("\n")
	sb.WriteString(string(labelLine))
	sb.WriteString("\n")
	return sb.String()
}

// PitchLabel describes the visible pitch span, e.g. "C3-G5"
func PitchLabel(notes []types.Note) string {
	lo, hi, ok := types.PitchRange(notes)
	if !ok {
		return "no notes"
	}
	return types.NoteName(lo) + "-" + types.NoteName(hi)
}
