package pianoroll

import "github.com/lucasb-eyer/go-colorful"

// Colors used by the renderer
type Colors struct {
	Background colorful.Color
	BlackRow   colorful.Color
	WhiteRow   colorful.Color
	Grid       colorful.Color
	Note       colorful.Color
	NoteBorder colorful.Color
	Cursor     colorful.Color
	Loop       colorful.Color
}

// Palette is the dark theme shared by the raster and terminal output
var Palette = Colors{
	Background: mustParseHex("#1f2937"),
	BlackRow:   mustParseHex("#374151"),
	WhiteRow:   mustParseHex("#4b5563"),
	Grid:       mustParseHex("#6b7280"),
	Note:       mustParseHex("#3b82f6"),
	NoteBorder: mustParseHex("#1d4ed8"),
	Cursor:     mustParseHex("#ef4444"),
	Loop:       mustParseHex("#f59e0b"),
}

// mustParseHex parses a hex color and panics on invalid input
func mustParseHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic("MustParseHex: " + err.Error())
	}
	return c
}
