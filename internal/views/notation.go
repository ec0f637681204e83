package views

import (
	"strings"

	"github.com/schollz/pianotube/internal/model"
	"github.com/schollz/pianotube/internal/types"
)

func RenderNotationView(m *model.Model) string {
	return renderViewWithCommonPattern(m, "Sheet Music", "", func(styles *ViewStyles) string {
		var content strings.Builder
		content.WriteString(styles.Normal.Render("Sheet music is not drawn in the terminal."))
		content.WriteString("\n\n")

		var saved []string
		for _, f := range []types.ArtifactFormat{types.FormatMusicXML, types.FormatPDF} {
			if a := m.Downloads[f]; a.Path != "" {
				saved = append(saved, a.Path)
			}
		}
		if len(saved) == 0 {
			content.WriteString(styles.Label.Render("Download the MusicXML or PDF from the result view (d) and open it in a notation editor such as MuseScore."))
			content.WriteString("\n")
			return content.String()
		}
		content.WriteString(styles.Label.Render("Open one of these in a notation editor:"))
		content.WriteString("\n")
		for _, p := range saved {
			content.WriteString("  " + styles.Link.Render(p) + "\n")
		}
		return content.String()
	}, m.StatusMsg)
}
