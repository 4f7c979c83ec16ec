package styles

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors
	Primary    = lipgloss.Color("#7C3AED") // Purple
	Secondary  = lipgloss.Color("#10B981") // Green
	Accent     = lipgloss.Color("#F59E0B") // Amber
	Danger     = lipgloss.Color("#EF4444") // Red
	MutedColor = lipgloss.Color("#6B7280") // Gray

	Muted = lipgloss.NewStyle().
		Foreground(MutedColor)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	ExtensionID = lipgloss.NewStyle().
			Bold(true)

	// Status indicators
	StatusPending = lipgloss.NewStyle().
			Foreground(MutedColor).
			SetString("○")

	StatusPackaged = lipgloss.NewStyle().
			Foreground(Secondary).
			SetString("●")

	StatusFailed = lipgloss.NewStyle().
			Foreground(Danger).
			SetString("✗")

	StatusSkipped = lipgloss.NewStyle().
			Foreground(Accent).
			SetString("◌")

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	// Messages
	ErrorMsg = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	SuccessMsg = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	WarningMsg = lipgloss.NewStyle().
			Foreground(Accent)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)

	// Indented failure detail under a row
	Detail = lipgloss.NewStyle().
		Foreground(MutedColor).
		PaddingLeft(4)
)

// FormatHelp formats help text with highlighted keys
func FormatHelp(pairs ...string) string {
	var result string
	for i := 0; i < len(pairs); i += 2 {
		if i > 0 {
			result += "  "
		}
		result += HelpKey.Render(pairs[i]) + " " + pairs[i+1]
	}
	return HelpBar.Render(result)
}
