// Package styles centralizes the lipgloss styling for the TUI.
package styles

import "github.com/charmbracelet/lipgloss"

// Catppuccin Macchiato color palette
var (
	Base     = lipgloss.Color("#24273a")
	Surface0 = lipgloss.Color("#363a4f")
	Surface1 = lipgloss.Color("#494d64")

	Text     = lipgloss.Color("#cad3f5")
	Subtext0 = lipgloss.Color("#a5adcb")
	Overlay0 = lipgloss.Color("#6e738d")

	Blue   = lipgloss.Color("#8aadf4")
	Teal   = lipgloss.Color("#8bd5ca")
	Green  = lipgloss.Color("#a6da95")
	Yellow = lipgloss.Color("#eed49f")
	Peach  = lipgloss.Color("#f5a97f")
	Red    = lipgloss.Color("#ed8796")
	Mauve  = lipgloss.Color("#c6a0f6")
)

// Styles contains all the lipgloss styles used in the application
type Styles struct {
	// Sidebar
	Sidebar        lipgloss.Style
	SidebarItem    lipgloss.Style
	SidebarActive  lipgloss.Style
	SidebarVersion lipgloss.Style

	// Task list
	TaskPane   lipgloss.Style
	TaskRow    lipgloss.Style
	TaskActive lipgloss.Style
	TaskTag    lipgloss.Style
	Header     lipgloss.Style

	// Status colors
	StatusTodo    lipgloss.Style
	StatusQueued  lipgloss.Style
	StatusRunning lipgloss.Style
	StatusDone    lipgloss.Style
	StatusBlocked lipgloss.Style
	StatusOther   lipgloss.Style

	// Log pane
	LogPane  lipgloss.Style
	LogTitle lipgloss.Style

	// Permission prompt bar
	PromptBar lipgloss.Style

	// Status bar
	StatusBar lipgloss.Style
	ModeTag   lipgloss.Style

	// Toasts
	ToastInfo    lipgloss.Style
	ToastSuccess lipgloss.Style
	ToastWarning lipgloss.Style
	ToastError   lipgloss.Style
}

// New creates the default Catppuccin Macchiato styling
func New() *Styles {
	return &Styles{
		Sidebar: lipgloss.NewStyle().
			Width(24).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Surface0),

		SidebarItem:   lipgloss.NewStyle().Foreground(Subtext0),
		SidebarActive: lipgloss.NewStyle().Foreground(Blue).Bold(true),
		SidebarVersion: lipgloss.NewStyle().
			Foreground(Overlay0),

		TaskPane: lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Surface0),

		TaskRow:    lipgloss.NewStyle().Foreground(Text),
		TaskActive: lipgloss.NewStyle().Foreground(Text).Background(Surface1).Bold(true),
		TaskTag:    lipgloss.NewStyle().Foreground(Mauve),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(Text).
			MarginBottom(1),

		StatusTodo:    lipgloss.NewStyle().Foreground(Subtext0),
		StatusQueued:  lipgloss.NewStyle().Foreground(Teal),
		StatusRunning: lipgloss.NewStyle().Foreground(Blue).Bold(true),
		StatusDone:    lipgloss.NewStyle().Foreground(Green),
		StatusBlocked: lipgloss.NewStyle().Foreground(Red),
		StatusOther:   lipgloss.NewStyle().Foreground(Yellow),

		LogPane: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Surface0).
			Padding(0, 1),

		LogTitle: lipgloss.NewStyle().Foreground(Teal).Bold(true),

		PromptBar: lipgloss.NewStyle().
			Background(Yellow).
			Foreground(Base).
			Bold(true).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Background(Surface0).
			Foreground(Subtext0).
			Padding(0, 1),

		ModeTag: lipgloss.NewStyle().
			Bold(true).
			Foreground(Base).
			Background(Blue).
			Padding(0, 1),

		ToastInfo:    lipgloss.NewStyle().Background(Surface1).Foreground(Text).Padding(0, 1),
		ToastSuccess: lipgloss.NewStyle().Background(Green).Foreground(Base).Padding(0, 1),
		ToastWarning: lipgloss.NewStyle().Background(Yellow).Foreground(Base).Padding(0, 1),
		ToastError:   lipgloss.NewStyle().Background(Red).Foreground(Base).Padding(0, 1),
	}
}
