package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"drawclass/internal/ui/theme"
)

var (
	layerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Surface1).
			Foreground(theme.Subtext0).
			Padding(0, 1)

	layerActiveStyle = layerStyle.
				BorderForeground(theme.Peach).
				Foreground(theme.Peach).
				Bold(true)
)

// LayerStrip renders one box per layer left to right and highlights active.
// values, when present, is printed under each name.
func LayerStrip(names []string, active int, values []string) string {
	if len(names) == 0 {
		return theme.Muted.Render("(no layers yet)")
	}
	boxes := make([]string, len(names))
	for i, name := range names {
		body := name
		if i < len(values) && values[i] != "" {
			body += "\n" + values[i]
		}
		style := layerStyle
		if i == active {
			style = layerActiveStyle
		}
		boxes[i] = style.Render(body)
	}
	arrow := theme.Muted.Render(" → ")
	joined := make([]string, 0, len(boxes)*2)
	for i, box := range boxes {
		if i > 0 {
			joined = append(joined, lipgloss.PlaceVertical(lipgloss.Height(box), lipgloss.Center, arrow))
		}
		joined = append(joined, box)
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, joined...)
}

// Bar draws a plain horizontal bar of width cells filled to fraction.
func Bar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction*float64(width) + 0.5)
	return theme.Hot.Render(strings.Repeat("█", filled)) + theme.Muted.Render(strings.Repeat("░", width-filled))
}
