package status

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// snapshotMsg asks the model to render its single frame.
type snapshotMsg struct{}

// snapshotModel renders one frame and quits. Views are printed by the caller, so the
// program runs headless.
type snapshotModel struct {
	render func(styles) string
	styles styles
	frame  string
}

func (m snapshotModel) Init() tea.Cmd {
	return func() tea.Msg { return snapshotMsg{} }
}

func (m snapshotModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(snapshotMsg); !ok {
		return m, nil
	}
	m.frame = m.render(m.styles)
	return m, tea.Quit
}

func (m snapshotModel) View() string {
	return m.frame
}

func run(render func(styles) string) (string, error) {
	program := tea.NewProgram(
		snapshotModel{render: render, styles: newStyles()},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("render view: %w", err)
	}

	snapshot, ok := final.(snapshotModel)
	if !ok {
		return "", fmt.Errorf("render view: unexpected model %T", final)
	}
	return snapshot.frame, nil
}
