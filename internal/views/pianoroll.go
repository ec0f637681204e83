package views

import (
	"fmt"

	"github.com/schollz/pianotube/internal/model"
	"github.com/schollz/pianotube/internal/pianoroll"
)

// transportLabel is the play state and position shown in the header
func transportLabel(m *model.Model) string {
	s := m.Transport.Snapshot()
	state := "■"
	if s.Playing {
		state = "▶"
	}
	return fmt.Sprintf("%s %s / %s", state, formatTime(s.CurrentTime), formatTime(m.Transport.Duration()))
}

// renderRoll draws the notes at the current transport position
func renderRoll(m *model.Model, reserved int) string {
	cols, rows := rollSize(m, reserved)
	s := m.Transport.Snapshot()
	roll := pianoroll.RenderTerminal(pianoroll.View{
		Notes:       m.Notes.Notes,
		Duration:    m.Transport.Duration(),
		Cols:        cols,
		Rows:        rows,
		CurrentTime: s.CurrentTime,
		LoopStart:   s.LoopStart,
		LoopEnd:     s.LoopEnd,
	})
	return roll + pianoroll.PitchLabel(m.Notes.Notes) + "\n"
}

func RenderPianoRollView(m *model.Model) string {
	if !m.InPlayback() {
		return renderViewWithCommonPattern(m, "Piano Roll", "", func(styles *ViewStyles) string {
			return styles.Label.Render("Loading notes...") + "\n"
		}, m.StatusMsg)
	}
	return renderViewWithCommonPattern(m, "Piano Roll", transportLabel(m), func(styles *ViewStyles) string {
		return renderRoll(m, 0)
	}, m.StatusMsg)
}
