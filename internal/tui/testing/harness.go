package testing

import (
	tea "github.com/charmbracelet/bubbletea"
)

// TestHarness drives a Bubble Tea model with messages, without a terminal
type TestHarness struct {
	model tea.Model
}

// NewTestHarness creates a new test harness wrapping a Bubble Tea model
func NewTestHarness(model tea.Model) *TestHarness {
	return &TestHarness{model: model}
}

// Model returns the current model state
func (h *TestHarness) Model() tea.Model {
	return h.model
}

// SendKey sends a single key message and returns the resulting command
func (h *TestHarness) SendKey(key string) tea.Cmd {
	return h.SendMsg(KeyMsg(key))
}

// SendMsg sends any tea.Msg to the model
func (h *TestHarness) SendMsg(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	h.model, cmd = h.model.Update(msg)
	return cmd
}

// SendMsgs sends messages in order
func (h *TestHarness) SendMsgs(msgs ...tea.Msg) {
	for _, msg := range msgs {
		h.SendMsg(msg)
	}
}

// View returns the current view of the model
func (h *TestHarness) View() string {
	return h.model.View()
}

// IsQuit reports whether cmd, when run, asks the program to quit
func IsQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

// KeyMsg converts a key string to a tea.KeyMsg.
// Supports "enter", "esc", "ctrl+c"; anything else is sent as runes.
func KeyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}
