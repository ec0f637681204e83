package input

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/schollz/pianotube/internal/model"
	"github.com/schollz/pianotube/internal/types"
)

// HandleKeyInput routes a key press to the handler of the current view
func HandleKeyInput(m *model.Model, msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.Keys.Quit) {
		return tea.Quit
	}

	switch m.ViewMode() {
	case types.InputView:
		return handleInputView(m, msg)
	case types.ProcessingView:
		return handleProcessingView(m, msg)
	case types.ResultView:
		return handleResultView(m, msg)
	case types.PianoRollView:
		return handlePianoRollView(m, msg)
	case types.PracticeView:
		return handlePracticeView(m, msg)
	case types.NotationView:
		if key.Matches(msg, m.Keys.Back) {
			return CloseView(m)
		}
	}
	return nil
}

func handleInputView(m *model.Model, msg tea.KeyMsg) tea.Cmd {
	if m.Submitting {
		return nil
	}
	switch {
	case key.Matches(msg, m.Keys.Submit):
		return Submit(m)
	case key.Matches(msg, m.Keys.Isolate):
		m.IsolatePiano = !m.IsolatePiano
		return nil
	}

	var cmd tea.Cmd
	m.URLInput, cmd = m.URLInput.Update(msg)
	m.InputError = ""
	return cmd
}

func handleProcessingView(m *model.Model, msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.Keys.Restart) {
		return Restart(m)
	}
	return nil
}

func handleResultView(m *model.Model, msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.Keys.PianoRoll):
		return OpenView(m, types.PianoRollView)
	case key.Matches(msg, m.Keys.Notation):
		return OpenView(m, types.NotationView)
	case key.Matches(msg, m.Keys.Practice):
		return OpenView(m, types.PracticeView)
	case key.Matches(msg, m.Keys.Download):
		return DownloadAll(m)
	case key.Matches(msg, m.Keys.Restart):
		return Restart(m)
	}
	return nil
}

// handleTransportKeys covers the keys shared by both playback views and
// reports whether msg was one of them
func handleTransportKeys(m *model.Model, msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.Keys.Back):
		return CloseView(m), true
	case key.Matches(msg, m.Keys.Play):
		return TogglePlayback(m), true
	case key.Matches(msg, m.Keys.Rewind):
		m.ResetPlayback()
	case key.Matches(msg, m.Keys.ScrubBack):
		m.Scrub(-1, false)
	case key.Matches(msg, m.Keys.ScrubFwd):
		m.Scrub(1, false)
	case key.Matches(msg, m.Keys.FastBack):
		m.Scrub(-1, true)
	case key.Matches(msg, m.Keys.FastFwd):
		m.Scrub(1, true)
	default:
		return nil, false
	}
	return nil, true
}

func handlePianoRollView(m *model.Model, msg tea.KeyMsg) tea.Cmd {
	cmd, _ := handleTransportKeys(m, msg)
	return cmd
}

func handlePracticeView(m *model.Model, msg tea.KeyMsg) tea.Cmd {
	if cmd, ok := handleTransportKeys(m, msg); ok {
		return cmd
	}
	switch {
	case key.Matches(msg, m.Keys.TempoUp):
		m.NudgeTempo(1)
	case key.Matches(msg, m.Keys.TempoDown):
		m.NudgeTempo(-1)
	case key.Matches(msg, m.Keys.LoopStart):
		m.MarkLoopStart()
	case key.Matches(msg, m.Keys.LoopEnd):
		m.MarkLoopEnd()
	case key.Matches(msg, m.Keys.ClearLoop):
		m.ClearLoop()
	}
	return nil
}
