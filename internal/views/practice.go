package views

import (
	"fmt"
	"strings"

	"github.com/schollz/pianotube/internal/model"
)

// GetPracticeStatusMessage summarises the practice settings
func GetPracticeStatusMessage(m *model.Model) string {
	s := m.Transport.Snapshot()
	msg := fmt.Sprintf("Notes %d | Original %.0f BPM | Tempo %.0f BPM (%d%%)",
		len(m.Notes.Notes), m.Transport.OriginalTempo(), s.Tempo, m.TempoPercent())
	if m.HasLoop() {
		msg += fmt.Sprintf(" | Loop %s-%s", formatTime(s.LoopStart), formatTime(s.LoopEnd))
	}
	return msg
}

func RenderPracticeView(m *model.Model) string {
	if !m.InPlayback() {
		return renderViewWithCommonPattern(m, "Practice", "", func(styles *ViewStyles) string {
			return styles.Label.Render("Loading notes...") + "\n"
		}, m.StatusMsg)
	}
	return renderViewWithCommonPattern(m, "Practice", transportLabel(m), func(styles *ViewStyles) string {
		var content strings.Builder
		content.WriteString(renderRoll(m, 2))
		content.WriteString("\n")
		content.WriteString(styles.Normal.Render(GetPracticeStatusMessage(m)))
		content.WriteString("\n")
		return content.String()
	}, m.StatusMsg)
}
