// Package tui renders live packaging progress in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"extpack/internal/pipeline"
	"extpack/internal/tui/components"
	"extpack/internal/tui/styles"
)

// EventMsg carries a pipeline event into the program
type EventMsg pipeline.Event

// DoneMsg reports that the run finished
type DoneMsg struct {
	Report *pipeline.Report
	Err    error
}

// Progress is the model showing one row per selected extension
type Progress struct {
	title      string
	rows       []pipeline.Outcome
	spinner    components.Spinner
	cancel     context.CancelFunc
	cancelling bool
	done       bool
	report     *pipeline.Report
	err        error
}

// NewProgress creates the progress model. cancel is called when the
// operator interrupts; the model keeps running until DoneMsg arrives so
// builds can clean up.
func NewProgress(title string, cancel context.CancelFunc) *Progress {
	return &Progress{
		title:   title,
		spinner: components.NewSpinner(),
		cancel:  cancel,
	}
}

// Init starts the spinner
func (m *Progress) Init() tea.Cmd {
	return m.spinner.Tick()
}

// Update handles messages
func (m *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		for len(m.rows) <= msg.Index {
			m.rows = append(m.rows, pipeline.Outcome{})
		}
		m.rows[msg.Index] = msg.Outcome
		return m, nil

	case DoneMsg:
		m.done = true
		m.report = msg.Report
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.cancelling && !m.done {
				m.cancelling = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil
	}

	return m, m.spinner.Update(msg)
}

// Cancelling reports whether the operator asked to stop
func (m *Progress) Cancelling() bool {
	return m.cancelling
}

// Done reports whether the run finished
func (m *Progress) Done() bool {
	return m.done
}

// View renders the model
func (m *Progress) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(m.title))
	b.WriteString("\n")

	if len(m.rows) == 0 && m.done {
		b.WriteString(styles.Muted.Render("Nothing to package"))
		b.WriteString("\n")
	}
	for _, o := range m.rows {
		b.WriteString(components.Row(o, m.spinner))
		b.WriteString("\n")
	}

	switch {
	case m.done:
		b.WriteString(m.summary())
	case m.cancelling:
		b.WriteString(styles.WarningMsg.Render("Cancelling, waiting for running builds to clean up..."))
	default:
		b.WriteString(styles.FormatHelp("ctrl+c", "cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m *Progress) summary() string {
	if m.report == nil {
		if m.err != nil {
			return styles.ErrorMsg.Render("Error: " + m.err.Error())
		}
		return ""
	}

	line := fmt.Sprintf("%d packaged, %d failed, %d skipped",
		m.report.Count(pipeline.StatusPackaged),
		m.report.Count(pipeline.StatusFailed),
		m.report.Count(pipeline.StatusSkipped))

	if m.err != nil || m.report.Count(pipeline.StatusFailed) > 0 {
		return "\n" + styles.ErrorMsg.Render(line)
	}
	return "\n" + styles.SuccessMsg.Render(line)
}

// RunFunc runs a packaging pass, reporting progress to obs
type RunFunc func(ctx context.Context, obs pipeline.Observer) (*pipeline.Report, error)

// Run drives run while rendering its progress. It returns once run has
// returned, even when the operator interrupted it.
func Run(ctx context.Context, title string, run RunFunc) (*pipeline.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewProgress(title, cancel)
	p := tea.NewProgram(model)

	var (
		report *pipeline.Report
		runErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		report, runErr = run(ctx, func(e pipeline.Event) {
			p.Send(EventMsg(e))
		})
		p.Send(DoneMsg{Report: report, Err: runErr})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-finished
		return report, fmt.Errorf("TUI error: %w", err)
	}
	<-finished
	return report, runErr
}
