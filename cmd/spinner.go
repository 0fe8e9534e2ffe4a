package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// stepFunc names the phase a load has reached.
type stepFunc func(label string)

type stepMsg string

type loadDoneMsg struct {
	err error
}

type finishedStep struct {
	label string
	took  time.Duration
}

// loaderModel shows the running step of a conductor load with a trail of the finished ones.
// It clears itself when the load ends.
type loaderModel struct {
	spinner  spinner.Model
	doneMark lipgloss.Style
	faint    lipgloss.Style
	now      func() time.Time

	finished []finishedStep
	current  string
	since    time.Time
	load     tea.Cmd
	err      error
	done     bool
}

func newLoaderModel(first string, load tea.Cmd, now func() time.Time) loaderModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("39"))),
	)

	return loaderModel{
		spinner:  s,
		doneMark: lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		faint:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		now:      now,
		current:  first,
		since:    now(),
		load:     load,
	}
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load)
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case stepMsg:
		now := m.now()
		m.finished = append(m.finished, finishedStep{label: m.current, took: now.Sub(m.since)})
		m.current = string(msg)
		m.since = now
		return m, nil
	case loadDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	for _, step := range m.finished {
		fmt.Fprintf(&b, "%s %s %s\n", m.doneMark.Render("✓"), step.label, m.faint.Render(step.took.Round(time.Millisecond).String()))
	}
	fmt.Fprintf(&b, "%s %s...", m.spinner.View(), m.current)
	return b.String()
}

// runLoader runs load behind the step display on output and returns load's error.
func runLoader(ctx context.Context, output io.Writer, first string, load func(context.Context, stepFunc) error) error {
	var program *tea.Program
	step := func(label string) {
		program.Send(stepMsg(label))
	}
	loadCmd := func() tea.Msg {
		return loadDoneMsg{err: load(ctx, step)}
	}

	program = tea.NewProgram(
		newLoaderModel(first, loadCmd, time.Now),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := program.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(loaderModel)
	if !ok {
		return fmt.Errorf("unexpected final loader model type %T", finalModel)
	}

	return result.err
}

// runLoad runs load behind the step display, or directly when the output is machine readable.
func runLoad(cmd *cobra.Command, quiet bool, first string, load func(context.Context, stepFunc) error) error {
	if quiet {
		return load(cmd.Context(), func(string) {})
	}
	return runLoader(cmd.Context(), cmd.ErrOrStderr(), first, load)
}
