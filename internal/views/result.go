package views

import (
	"fmt"
	"strings"

	"github.com/schollz/pianotube/internal/model"
	"github.com/schollz/pianotube/internal/storage"
	"github.com/schollz/pianotube/internal/types"
)

var formatNames = map[types.ArtifactFormat]string{
	types.FormatMIDI:     "MIDI",
	types.FormatMusicXML: "MusicXML",
	types.FormatPDF:      "PDF",
}

func RenderResultView(m *model.Model) string {
	job, _ := m.Job()
	return renderViewWithCommonPattern(m, "Transcription", job.ID, func(styles *ViewStyles) string {
		var content strings.Builder

		title := job.VideoTitle
		if title == "" {
			title = "Untitled"
		}
		content.WriteString(styles.Title.Render(title))
		content.WriteString("\n\n")

		if job.Result != nil && job.Result.Quality != nil {
			q := job.Result.Quality
			settings := []struct {
				label string
				value string
			}{
				{"Confidence:", fmt.Sprintf("%.0f%%", q.ConfidenceScore*100)},
				{"Notes:", fmt.Sprintf("%d", q.NoteCount)},
				{"Duration:", formatTime(q.Duration)},
				{"Polyphony:", fmt.Sprintf("%.1f", q.PolyphonyAvg)},
			}
			for _, setting := range settings {
				content.WriteString(fmt.Sprintf("  %s %s\n", styles.Label.Render(fmt.Sprintf("%-12s", setting.label)), styles.Normal.Render(setting.value)))
			}
			content.WriteString("\n")
		}

		if m.Coordinator.Local() {
			content.WriteString(styles.Label.Render("Opened from a local MIDI file"))
			content.WriteString("\n")
			return content.String()
		}

		content.WriteString(styles.Normal.Render("Artifacts"))
		content.WriteString("\n")
		for _, f := range types.ArtifactFormats {
			a, tried := m.Downloads[f]
			// PDF engraving is optional on the backend
			if f == types.FormatPDF && !job.Result.Has(f) && a.Path == "" {
				continue
			}
			var state string
			switch {
			case !tried:
				state = styles.Label.Render(storage.ArtifactName(job.ID, f))
			case a.Err != nil:
				state = styles.Error.Render("failed: " + a.Err.Error())
			case a.Unavailable:
				state = styles.Warning.Render("not available")
			default:
				state = styles.Playback.Render("saved to " + a.Path)
			}
			content.WriteString(fmt.Sprintf("  %-10s %s\n", formatNames[f], state))
		}
		if m.PendingDownloads > 0 {
			content.WriteString("\n" + m.Spinner.View() + " " + styles.Label.Render("Downloading..."))
			content.WriteString("\n")
		}
		return content.String()
	}, m.StatusMsg)
}
