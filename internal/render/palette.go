// Package render turns resolved tier results into terminal and file output:
// coloured labels, progress bars and board reports.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/workbench/internal/tier"
)

// Default colours for the tokens the built-in tier tables use.
var defaultColors = map[string]string{
	"green":  "#4CAF50",
	"yellow": "#F7D154",
	"amber":  "#F7B801",
	"red":    "#FF6B6B",
	"blue":   "#5B8DEF",
	"grey":   "#999999",
	"gray":   "#999999",
}

const (
	mutedColor = "#888888"
	trackColor = "#444444"
)

// Palette maps colour tokens to terminal colours. Tokens are opaque: any
// string a tier table uses can be given a colour, and unknown tokens render
// uncoloured.
type Palette struct {
	colors map[string]lipgloss.Color
}

// DefaultPalette returns the built-in colours.
func DefaultPalette() Palette {
	return NewPalette(nil)
}

// NewPalette layers overrides (token → "#RRGGBB" or ANSI number) on top of
// the defaults.
func NewPalette(overrides map[string]string) Palette {
	colors := make(map[string]lipgloss.Color, len(defaultColors)+len(overrides))
	for token, value := range defaultColors {
		colors[token] = lipgloss.Color(value)
	}
	for token, value := range overrides {
		token = strings.TrimSpace(token)
		value = strings.TrimSpace(value)
		if token == "" || value == "" {
			continue
		}
		colors[token] = lipgloss.Color(value)
	}
	return Palette{colors: colors}
}

// Color returns the colour for token.
func (p Palette) Color(token string) (lipgloss.Color, bool) {
	c, ok := p.colors[token]
	return c, ok
}

// Style returns a foreground style for token, or a plain style when the
// token is unknown.
func (p Palette) Style(token string) lipgloss.Style {
	style := lipgloss.NewStyle()
	if c, ok := p.Color(token); ok {
		style = style.Foreground(c)
	}
	return style
}

// Label renders the tier label in its colour, or the muted placeholder for
// NoScore.
func (p Palette) Label(result tier.Result) string {
	if !result.HasScore() {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(mutedColor)).Render(tier.NoScoreDisplay)
	}
	return p.Style(result.ColorToken).Bold(true).Render(result.Label)
}

// Percent renders "45%" or the placeholder.
func Percent(result tier.Result) string {
	return result.Display()
}
