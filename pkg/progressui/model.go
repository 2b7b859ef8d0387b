// Package progressui renders provisioning progress as an interactive
// terminal view.
package progressui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/opslab/labseed/pkg/phase"
)

const historyLines = 8

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Bold(true)
)

// eventMsg wraps one progress event from the executor.
type eventMsg phase.ProgressEvent

// closedMsg signals that the event channel was closed.
type closedMsg struct{}

// Model is the bubbletea model for the apply progress view.
type Model struct {
	spinner  spinner.Model
	bar      progress.Model
	ch       <-chan phase.ProgressEvent
	events   []phase.ProgressEvent
	percent  int
	stage    phase.Stage
	failed   bool
	finished bool
}

// New creates a progress view fed by ch. The channel must be closed once
// the executor finishes.
func New(ch <-chan phase.ProgressEvent) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return Model{
		spinner: s,
		bar:     p,
		ch:      ch,
		events:  make([]phase.ProgressEvent, 0),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.ch))
}

// waitForEvent reads the next progress event.
func waitForEvent(ch <-chan phase.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return eventMsg(e)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		e := phase.ProgressEvent(msg)
		m.events = append(m.events, e)
		m.stage = e.Stage
		if e.Percent >= 0 {
			m.percent = e.Percent
		}
		if e.IsError {
			m.failed = true
		}
		if e.Stage == phase.StageComplete {
			m.percent = 100
		}
		return m, waitForEvent(m.ch)

	case closedMsg:
		m.finished = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

// Failed reports whether an error event was seen.
func (m Model) Failed() bool {
	return m.failed
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Provisioning"))
	b.WriteString("\n\n")

	switch {
	case m.failed:
		b.WriteString(errorStyle.Render("✗ " + m.stage.DisplayName()))
	case m.finished || m.stage == phase.StageComplete:
		b.WriteString(doneStyle.Render("✓ " + phase.StageComplete.DisplayName()))
	default:
		b.WriteString(m.spinner.View())
		b.WriteString(stageStyle.Render(m.stage.DisplayName()))
	}
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(float64(m.percent) / 100))
	b.WriteString(fmt.Sprintf(" %d%%\n\n", m.percent))

	start := 0
	if len(m.events) > historyLines {
		start = len(m.events) - historyLines
	}
	for _, e := range m.events[start:] {
		switch {
		case e.IsError:
			b.WriteString(errorStyle.Render("  ✗ " + e.Message))
		case e.Command != "":
			b.WriteString(commandStyle.Render("  $ " + e.Command))
		default:
			b.WriteString("  " + e.Message)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Run drives the view until the event channel closes. It returns an error
// only when the terminal program itself fails; command failures surface
// through the executor.
func Run(ch <-chan phase.ProgressEvent) error {
	_, err := tea.NewProgram(New(ch)).Run()
	return err
}
