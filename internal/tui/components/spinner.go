package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"extpack/internal/tui/styles"
)

// Spinner is the activity indicator shared by every row that is building
type Spinner struct {
	spinner spinner.Model
}

// NewSpinner creates a new spinner
func NewSpinner() Spinner {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = styles.SpinnerStyle
	return Spinner{spinner: s}
}

// Update advances the animation on its own tick messages only
func (s *Spinner) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(spinner.TickMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

// Frame renders the current animation frame
func (s Spinner) Frame() string {
	return s.spinner.View()
}

// Tick returns the tick command
func (s Spinner) Tick() tea.Cmd {
	return s.spinner.Tick
}
