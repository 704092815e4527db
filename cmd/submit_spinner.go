package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/engagement-accounts-cli/internal/application"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type submitDoneMsg struct{}

type submitSpinnerModel struct {
	spinner  spinner.Model
	label    string
	progress func() string
	wait     tea.Cmd
	done     bool
}

func newSubmitSpinnerModel(label string, progress func() string, wait tea.Cmd) submitSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return submitSpinnerModel{
		spinner:  s,
		label:    label,
		progress: progress,
		wait:     wait,
	}
}

func (m submitSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.wait)
}

func (m submitSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case submitDoneMsg:
		m.done = true
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m submitSpinnerModel) View() string {
	if m.done {
		return ""
	}

	label := m.label
	if m.progress != nil {
		if p := m.progress(); p != "" {
			label += " " + p
		}
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), label)
}

// runSubmitSpinner shows progress until exec is done or ctx ends. The report itself is
// read from exec by the caller.
func runSubmitSpinner(ctx context.Context, output io.Writer, label string, progress func() string, exec *application.Execution) error {
	waitCmd := func() tea.Msg {
		select {
		case <-exec.Done():
		case <-ctx.Done():
		}
		return submitDoneMsg{}
	}

	p := tea.NewProgram(
		newSubmitSpinnerModel(label, progress, waitCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run progress spinner: %w", err)
	}
	return nil
}
