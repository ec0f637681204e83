package views

import (
	"fmt"
	"strings"

	"github.com/schollz/pianotube/internal/model"
	"github.com/schollz/pianotube/internal/types"
)

func RenderProcessingView(m *model.Model) string {
	job, _ := m.Job()
	right := job.ID
	if job.VideoTitle != "" {
		right = job.VideoTitle
	}

	return renderViewWithCommonPattern(m, "Transcribing", right, func(styles *ViewStyles) string {
		var content strings.Builder
		failed := job.Status == types.JobStatusFailed
		current := job.Status.Rank()

		for _, st := range types.Stages {
			var mark, label string
			switch {
			case failed:
				mark, label = styles.Label.Render("·"), styles.Label.Render(st.Label())
			case st.Rank() < current || job.Status == types.JobStatusCompleted:
				mark, label = styles.Playback.Render("✓"), styles.Normal.Render(st.Label())
			case st == job.Status:
				mark, label = m.Spinner.View(), styles.Title.Render(st.Label())
			default:
				mark, label = styles.Label.Render("·"), styles.Label.Render(st.Label())
			}
			content.WriteString(fmt.Sprintf("  %s %s\n", mark, label))
		}
		if failed {
			content.WriteString(fmt.Sprintf("  %s %s\n", styles.Error.Render("✗"), styles.Error.Render(types.JobStatusFailed.Label())))
		}
		content.WriteString("\n")

		content.WriteString(m.Progress.ViewAs(float64(job.Progress) / 100))
		content.WriteString("\n\n")

		if job.VideoTitle != "" {
			content.WriteString(styles.Label.Render("Video: ") + styles.Normal.Render(job.VideoTitle))
			content.WriteString("\n")
		}
		if m.SubmittedURL != "" {
			content.WriteString(styles.Label.Render("URL:   ") + styles.Link.Render(m.SubmittedURL))
			content.WriteString("\n")
		}

		if failed {
			content.WriteString("\n")
			content.WriteString(styles.Error.Render(job.Error))
			content.WriteString("\n\n")
			content.WriteString(styles.Warning.Render("press r to start over"))
			content.WriteString("\n")
		}
		return content.String()
	}, m.StatusMsg)
}
