package input

import (
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/schollz/pianotube/internal/model"
)

// TickMsg advances the transport. Generation ties it to one tick chain;
// a tick from an older chain is dropped, which ends that chain.
type TickMsg struct {
	Generation int
	Time       time.Time
}

// Tick schedules the next transport tick at the model's frame rate
func Tick(m *model.Model) tea.Cmd {
	gen := m.TickGeneration
	return tea.Tick(m.FrameInterval, func(t time.Time) tea.Msg {
		return TickMsg{Generation: gen, Time: t}
	})
}

// AdvancePlayback handles a tick and schedules the next one while the
// playback view that started the chain is still open.
func AdvancePlayback(m *model.Model, msg TickMsg) tea.Cmd {
	if msg.Generation != m.TickGeneration || !m.InPlayback() {
		return nil
	}
	m.AdvancePlayback(msg.Time)
	return Tick(m)
}

// TogglePlayback starts or pauses the transport
func TogglePlayback(m *model.Model) tea.Cmd {
	if !m.InPlayback() {
		return nil
	}
	if m.TogglePlay() {
		log.Printf("Playback started at %.2fs", m.Transport.Snapshot().CurrentTime)
	} else {
		log.Printf("Playback paused at %.2fs", m.Transport.Snapshot().CurrentTime)
	}
	return nil
}
