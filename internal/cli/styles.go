package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type printStyles struct {
	header lipgloss.Style
	good   lipgloss.Style
	fair   lipgloss.Style
	poor   lipgloss.Style
	dim    lipgloss.Style
}

func newPrintStyles() printStyles {
	return printStyles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		good:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		fair:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		poor:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// score renders a [0,1] score coloured against the feedback threshold.
func (s printStyles) score(v float64, threshold float64) string {
	text := fmt.Sprintf("%.2f", v)
	switch {
	case v >= 0.8:
		return s.good.Render(text)
	case v >= threshold:
		return s.fair.Render(text)
	default:
		return s.poor.Render(text)
	}
}

func cell(width int, s string) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}
