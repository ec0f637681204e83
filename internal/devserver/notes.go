package devserver

import "github.com/schollz/pianotube/internal/types"

// Arpeggio is the default material of the simulated backend: a C-major
// arpeggio in eighths at 120 BPM over a held bass note per bar.
func Arpeggio() *types.PianoRollData {
	const eighth = 0.25
	pattern := []int{60, 64, 67, 72, 76, 72, 67, 64}

	data := &types.PianoRollData{Tempo: 120}
	for bar := 0; bar < 4; bar++ {
		barStart := float64(bar) * eighth * float64(len(pattern))
		data.Notes = append(data.Notes, types.MustNote(48, barStart, eighth*float64(len(pattern)), 70))
		for i, p := range pattern {
			vel := 80 + 5*(i%4)
			data.Notes = append(data.Notes, types.MustNote(p, barStart+float64(i)*eighth, eighth, vel))
		}
	}
	data.Duration = data.LastNoteEnd()
	return data
}
