package views

import (
	"strings"

	"github.com/schollz/pianotube/internal/model"
)

func RenderInputView(m *model.Model) string {
	return renderViewWithCommonPattern(m, "pianotube", "YouTube to piano sheet music", func(styles *ViewStyles) string {
		var content strings.Builder
		content.WriteString(styles.Normal.Render("Paste a YouTube link to transcribe its piano part."))
		content.WriteString("\n\n")
		content.WriteString(m.URLInput.View())
		content.WriteString("\n\n")

		box := "[ ]"
		if m.IsolatePiano {
			box = styles.Playback.Render("[x]")
		}
		content.WriteString(box + " " + styles.Normal.Render("Isolate piano") + " " + styles.Label.Render("(slower, for mixed recordings)"))
		content.WriteString("\n\n")

		switch {
		case m.InputError != "":
			content.WriteString(styles.Error.Render(m.InputError))
			content.WriteString("\n")
		case m.Submitting:
			content.WriteString(m.Spinner.View() + " " + styles.Label.Render("Creating job..."))
			content.WriteString("\n")
		}
		return content.String()
	}, m.StatusMsg)
}
