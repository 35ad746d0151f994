// Package render formats API records for the terminal.
package render

import "github.com/charmbracelet/lipgloss"

var (
	Subtle = lipgloss.Color("#a6adc8")
	Accent = lipgloss.Color("#74c7ec")
	Green  = lipgloss.Color("#a6e3a1")
	Yellow = lipgloss.Color("#f9e2af")
	Red    = lipgloss.Color("#f38ba8")
	Border = lipgloss.Color("#45475a")

	Title   = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	Label   = lipgloss.NewStyle().Foreground(Subtle)
	Muted   = lipgloss.NewStyle().Foreground(Subtle).Italic(true)
	Success = lipgloss.NewStyle().Foreground(Green)
	Warning = lipgloss.NewStyle().Foreground(Yellow)
	Failure = lipgloss.NewStyle().Foreground(Red).Bold(true)

	Banner = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Red).
		Padding(0, 1)
)

var statusStyles = map[string]lipgloss.Style{
	"DRAFT":     Label,
	"SENT":      lipgloss.NewStyle().Foreground(Accent),
	"PAID":      Success,
	"OVERDUE":   Failure,
	"CANCELLED": Muted,
}

// Status renders an invoice status in its color
func Status(s string) string {
	if style, ok := statusStyles[s]; ok {
		return style.Render(s)
	}
	return s
}
