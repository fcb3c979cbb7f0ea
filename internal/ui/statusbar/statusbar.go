// Package statusbar renders the bottom bar: mode tag, worker summary, hints.
package statusbar

import (
	"github.com/charmbracelet/lipgloss"

	"mapleboard/internal/ui/styles"
)

// StatusBar is the single-line bar at the bottom of the TUI.
type StatusBar struct {
	mode    string
	summary string // worker @ project assignments
	hints   string
	width   int
	styles  *styles.Styles
}

func New(mode, summary, hints string, width int, s *styles.Styles) StatusBar {
	return StatusBar{mode: mode, summary: summary, hints: hints, width: width, styles: s}
}

// Render renders the status bar as a string.
func (sb StatusBar) Render() string {
	modeBadge := sb.styles.ModeTag.Render(" " + sb.mode + " ")

	parts := []string{modeBadge}
	if sb.summary != "" {
		parts = append(parts, sb.styles.StatusBar.Render(sb.summary))
	}
	if sb.hints != "" {
		parts = append(parts, sb.styles.StatusBar.Render(sb.hints))
	}

	sep := sb.styles.StatusBar.Render(" │ ")
	content := parts[0]
	for _, p := range parts[1:] {
		content = lipgloss.JoinHorizontal(lipgloss.Left, content, sep, p)
	}
	return sb.styles.StatusBar.Width(sb.width).Render(content)
}
