package shell

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary     = lipgloss.Color("#2563EB")
	colorForeground  = lipgloss.Color("#0F172A")
	colorMuted       = lipgloss.Color("#64748B")
	colorSuccess     = lipgloss.Color("#16A34A")
	colorWarning     = lipgloss.Color("#CA8A04")
	colorDestructive = lipgloss.Color("#DC2626")
	colorBorder      = lipgloss.Color("#CBD5E1")
)

// Styles holds the lipgloss styles used by the shell.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Banner   lipgloss.Style
	Alert    lipgloss.Style
	Notice   lipgloss.Style
	Success  lipgloss.Style
	Item     lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Label    lipgloss.Style
	Focused  lipgloss.Style
	Form     lipgloss.Style
	Spinner  lipgloss.Style
	Help     lipgloss.Style
}

// DefaultStyles returns the shell palette.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		Subtitle: lipgloss.NewStyle().Foreground(colorMuted),
		Banner: lipgloss.NewStyle().
			Foreground(colorDestructive).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDestructive).
			Padding(0, 1),
		Alert: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorDestructive).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorDestructive).
			Padding(0, 2),
		Notice:   lipgloss.NewStyle().Foreground(colorWarning),
		Success:  lipgloss.NewStyle().Foreground(colorSuccess),
		Item:     lipgloss.NewStyle().Foreground(colorForeground).PaddingLeft(2),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).PaddingLeft(2),
		Muted:    lipgloss.NewStyle().Foreground(colorMuted),
		Label:    lipgloss.NewStyle().Width(18).Foreground(colorMuted),
		Focused:  lipgloss.NewStyle().Width(18).Bold(true).Foreground(colorPrimary),
		Form: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1),
		Spinner: lipgloss.NewStyle().Foreground(colorPrimary),
		Help:    lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1),
	}
}
