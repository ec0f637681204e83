package views

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/schollz/pianotube/internal/model"
	"github.com/schollz/pianotube/internal/types"
)

// Common styles used across all views
type ViewStyles struct {
	Selected  lipgloss.Style
	Normal    lipgloss.Style
	Label     lipgloss.Style
	Container lipgloss.Style
	Playback  lipgloss.Style
	Title     lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Link      lipgloss.Style
}

// getCommonStyles returns the standard style definitions used across views
func getCommonStyles() *ViewStyles {
	return &ViewStyles{
		Selected:  lipgloss.NewStyle().Background(lipgloss.Color("7")).Foreground(lipgloss.Color("0")),
		Normal:    lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		Label:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Container: lipgloss.NewStyle().Padding(1, 2),
		Playback:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Link:      lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

// renderViewWithCommonPattern provides a common structure for rendering views
func renderViewWithCommonPattern(m *model.Model, leftHeader, rightHeader string, renderContent func(styles *ViewStyles) string, statusMsg string) string {
	styles := getCommonStyles()

	var content strings.Builder
	if leftHeader != "" || rightHeader != "" {
		content.WriteString(RenderHeader(m, leftHeader, rightHeader))
	}
	content.WriteString(renderContent(styles))

	contentLines := strings.Count(content.String(), "\n")
	content.WriteString(RenderFooter(m, contentLines, statusMsg))

	return styles.Container.Render(content.String())
}

// RenderHeader renders the title line shared by all views
func RenderHeader(m *model.Model, leftContent, rightContent string) string {
	styles := getCommonStyles()

	// Calculate available space for padding (account for container padding)
	availableWidth := m.TermWidth - 4
	leftLen := lipgloss.Width(leftContent)
	rightLen := lipgloss.Width(rightContent)

	paddingSize := availableWidth - leftLen - rightLen
	if paddingSize < 1 {
		paddingSize = 1
	}

	fullHeader := styles.Title.Render(leftContent)
	if rightContent != "" {
		fullHeader += strings.Repeat(" ", paddingSize) + styles.Label.Render(rightContent)
	}
	return fullHeader + "\n\n"
}

// RenderNavigationLine renders the breadcrumb of the session with the
// current view highlighted, e.g. input-processing-result-practice
func RenderNavigationLine(m *model.Model) string {
	highlightStyle := lipgloss.NewStyle().Background(lipgloss.Color("7")).Foreground(lipgloss.Color("0"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	mode := m.ViewMode()
	steps := []types.ViewMode{types.InputView, types.ProcessingView, types.ResultView}
	if m.Coordinator.Local() {
		steps = []types.ViewMode{types.ResultView}
	}
	switch mode {
	case types.PianoRollView, types.NotationView, types.PracticeView:
		steps = append(steps, mode)
	}

	parts := make([]string, 0, len(steps))
	for _, step := range steps {
		if step == mode {
			parts = append(parts, highlightStyle.Render(step.String()))
		} else {
			parts = append(parts, dimStyle.Render(step.String()))
		}
	}
	return strings.Join(parts, dimStyle.Render("-"))
}

// RenderFooter fills the remaining height and adds navigation, help and status
func RenderFooter(m *model.Model, contentLines int, statusMsg string) string {
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	var content strings.Builder

	footerLines := 2
	if statusMsg != "" {
		footerLines++
	}

	// Fill remaining space if terminal is larger
	// Account for container padding (2 top + 2 bottom) and footer lines
	maxContentLines := m.TermHeight - 4 - footerLines
	if m.TermHeight > 0 && contentLines < maxContentLines {
		for i := contentLines; i < maxContentLines; i++ {
			content.WriteString("\n")
		}
	}

	content.WriteString(RenderNavigationLine(m))
	content.WriteString("\n")
	content.WriteString(m.HelpView())

	if statusMsg != "" {
		content.WriteString("\n")
		content.WriteString(statusStyle.Render(statusMsg))
	}
	return content.String()
}

// formatTime renders seconds as m:ss.s
func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds) / 60
	rest := seconds - float64(minutes*60)
	// 59.96 would print as 60.0
	rest = math.Floor(rest*10) / 10
	return fmt.Sprintf("%d:%04.1f", minutes, rest)
}

// rollSize returns the piano roll dimensions that fit the terminal when
// reserved lines are kept for the rest of the view
func rollSize(m *model.Model, reserved int) (cols, rows int) {
	cols = m.TermWidth - 4
	// container padding, header, ruler, pitch label and footer
	rows = m.TermHeight - 4 - 2 - 2 - 1 - 3 - reserved
	return max(cols, 10), max(rows, 4)
}
