package tui

import (
	"github.com/bjaus/rowform"
	"github.com/charmbracelet/lipgloss"
)

// Presentation only; state decisions come from the orchestrator.
var (
	editingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	savingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F4A156")).
			Italic(true)

	lockedStyle = lipgloss.NewStyle().Faint(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5484D"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(14)

	focusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

func rowStyle(st rowform.RowStatus) func(string) string {
	switch {
	case st.State == rowform.Saving:
		return render(savingStyle)
	case st.State == rowform.Editing:
		return render(editingStyle)
	case st.Dimmed:
		return render(lockedStyle)
	}
	return nil
}

func render(style lipgloss.Style) func(string) string {
	return func(s string) string { return style.Render(s) }
}
