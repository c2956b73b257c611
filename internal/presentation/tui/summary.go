package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/charmbracelet/lipgloss"
)

var (
	subtleColor  = lipgloss.Color("#6C6C6C")
	successColor = lipgloss.Color("#73F59F")
	errorColor   = lipgloss.Color("#FF6B6B")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(subtleColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtleColor).
			Padding(0, 1)
)

// RenderSummary formats a finished run for the terminal.
func RenderSummary(rec *domain.RunRecord) string {
	status := successStyle.Render("✔ " + string(rec.Status))
	if rec.Status == domain.RunStatusFailed {
		status = errorStyle.Render("✘ " + string(rec.Status))
	}

	lines := []string{
		titleStyle.Render(rec.Pipeline) + "  " + status,
		subtleStyle.Render("run " + rec.ID),
		fmt.Sprintf("visited %d task(s): %s", len(rec.Visited), joinInts(rec.Visited)),
	}
	if len(rec.Unreachable) > 0 {
		lines = append(lines, subtleStyle.Render("unreachable: "+joinInts(rec.Unreachable)))
	}
	if rec.FailedTask != nil {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("failed at task %d", *rec.FailedTask)))
	}
	if rec.Error != "" {
		lines = append(lines, rec.Error)
	}
	if d := rec.Duration(); d > 0 {
		lines = append(lines, subtleStyle.Render("took "+d.String()))
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}

func joinInts(ids []int) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, " → ")
}
