package model

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/schollz/pianotube/internal/types"
)

type KeyMap struct {
	Quit      key.Binding
	Submit    key.Binding
	Isolate   key.Binding
	Restart   key.Binding
	PianoRoll key.Binding
	Notation  key.Binding
	Practice  key.Binding
	Download  key.Binding
	Back      key.Binding
	Play      key.Binding
	Rewind    key.Binding
	ScrubBack key.Binding
	ScrubFwd  key.Binding
	FastBack  key.Binding
	FastFwd   key.Binding
	TempoUp   key.Binding
	TempoDown key.Binding
	LoopStart key.Binding
	LoopEnd   key.Binding
	ClearLoop key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:      key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+q", "quit")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "transcribe")),
		Isolate:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "isolate piano")),
		Restart:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "new")),
		PianoRoll: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "piano roll")),
		Notation:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "notation")),
		Practice:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "practice")),
		Download:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download all")),
		Back:      key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("esc", "back")),
		Play:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Rewind:    key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset")),
		ScrubBack: key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-1s")),
		ScrubFwd:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+1s")),
		FastBack:  key.NewBinding(key.WithKeys("shift+left"), key.WithHelp("⇧←", "-5s")),
		FastFwd:   key.NewBinding(key.WithKeys("shift+right"), key.WithHelp("⇧→", "+5s")),
		TempoUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "tempo up")),
		TempoDown: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "tempo down")),
		LoopStart: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "loop start")),
		LoopEnd:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "loop end")),
		ClearLoop: key.NewBinding(key.WithKeys("\\"), key.WithHelp("\\", "clear loop")),
	}
}

// HelpFor lists the bindings shown in the footer of a view
func (k KeyMap) HelpFor(mode types.ViewMode, local bool) []key.Binding {
	switch mode {
	case types.InputView:
		return []key.Binding{k.Submit, k.Isolate, k.Quit}
	case types.ProcessingView:
		return []key.Binding{k.Restart, k.Quit}
	case types.ResultView:
		if local {
			return []key.Binding{k.PianoRoll, k.Notation, k.Practice, k.Quit}
		}
		return []key.Binding{k.PianoRoll, k.Notation, k.Practice, k.Download, k.Restart, k.Quit}
	case types.PianoRollView:
		return []key.Binding{k.Play, k.Rewind, k.ScrubBack, k.ScrubFwd, k.FastBack, k.FastFwd, k.Back}
	case types.PracticeView:
		return []key.Binding{k.Play, k.Rewind, k.ScrubBack, k.ScrubFwd, k.TempoUp, k.TempoDown, k.LoopStart, k.LoopEnd, k.ClearLoop, k.Back}
	case types.NotationView:
		return []key.Binding{k.Back, k.Quit}
	}
	return []key.Binding{k.Quit}
}

// viewHelp adapts a binding list to help.KeyMap
type viewHelp []key.Binding

func (v viewHelp) ShortHelp() []key.Binding  { return v }
func (v viewHelp) FullHelp() [][]key.Binding { return [][]key.Binding{v} }

// HelpView renders the short help line of the current view
func (m *Model) HelpView() string {
	return m.Help.View(viewHelp(m.Keys.HelpFor(m.ViewMode(), m.Coordinator.Local())))
}
