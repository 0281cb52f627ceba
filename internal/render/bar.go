package render

import (
	"github.com/charmbracelet/bubbles/progress"

	"github.com/kingrea/workbench/internal/tier"
)

// DefaultBarWidth is used when a caller passes a non-positive width.
const DefaultBarWidth = 20

// Bar renders result.BarFraction as a solid bar in the tier colour. NoScore
// renders an empty track.
func (p Palette) Bar(result tier.Result, width int) string {
	if width <= 0 {
		width = DefaultBarWidth
	}
	fill := mutedColor
	if c, ok := p.Color(result.ColorToken); ok {
		fill = string(c)
	}
	bar := progress.New(
		progress.WithSolidFill(fill),
		progress.WithoutPercentage(),
		progress.WithWidth(width),
	)
	bar.EmptyColor = trackColor
	fraction := 0.0
	if result.HasScore() {
		fraction = result.BarFraction
	}
	return bar.ViewAs(fraction)
}
