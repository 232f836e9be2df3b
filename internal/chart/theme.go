package chart

import "github.com/wcharczuk/go-chart/v2/drawing"

// Theme holds the chart palette.
type Theme struct {
	Name       string
	Background drawing.Color
	Stroke     drawing.Color
	Muted      drawing.Color
	Accent     drawing.Color
	Grid       drawing.Color
}

var (
	// Dark is the default dashboard palette.
	Dark = Theme{
		Name:       "dark",
		Background: drawing.ColorFromHex("0b1018"),
		Stroke:     drawing.ColorFromHex("223042"),
		Muted:      drawing.ColorFromHex("a8b4c6"),
		Accent:     drawing.ColorFromHex("46d6a3"),
		Grid:       drawing.Color{R: 168, G: 180, B: 198, A: 46},
	}
	// Light swaps the background for white.
	Light = Theme{
		Name:       "light",
		Background: drawing.ColorFromHex("ffffff"),
		Stroke:     drawing.ColorFromHex("223042"),
		Muted:      drawing.ColorFromHex("a8b4c6"),
		Accent:     drawing.ColorFromHex("46d6a3"),
		Grid:       drawing.Color{R: 168, G: 180, B: 198, A: 46},
	}
)

// ThemeByName returns Light for "light" and Dark for anything else.
func ThemeByName(name string) Theme {
	if name == "light" {
		return Light
	}
	return Dark
}
