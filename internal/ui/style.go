package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	Title = lipgloss.NewStyle().Inline(true).Bold(true).Foreground(lipgloss.Color("252")).Render
	Help  = lipgloss.NewStyle().Inline(true).Foreground(lipgloss.Color("241")).Render
	Label = lipgloss.NewStyle().Inline(true).Width(18).Foreground(lipgloss.Color("109")).Render
	Value = lipgloss.NewStyle().Inline(true).Foreground(lipgloss.Color("229")).Render
	Error = lipgloss.NewStyle().Inline(true).Bold(true).Foreground(lipgloss.Color("203")).Render

	SpinnerColor = lipgloss.Color("69")
)

// Field renders one "label value" line of a record view.
func Field(label string, value any) string {
	return Label(label) + Value(formatValue(value)) + "\n"
}

func formatValue(value any) string {
	switch v := value.(type) {
	case time.Time:
		return v.Format("2006-01-02T15:04:05.000Z07:00")
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
