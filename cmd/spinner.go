package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bnema/pacer/internal/application"
	"github.com/bnema/pacer/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type spinnerDoneMsg struct {
	err error
}

type spinnerModel struct {
	spinner spinner.Model
	label   string
	started time.Time
	now     func() time.Time
	work    tea.Cmd
	err     error
	done    bool
}

func newSpinnerModel(label string, work tea.Cmd, now func() time.Time) spinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return spinnerModel{
		spinner: s,
		label:   label,
		started: now(),
		now:     now,
		work:    work,
	}
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.work)
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case spinnerDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}

	line := fmt.Sprintf("%s %s...", m.spinner.View(), m.label)
	if elapsed := m.now().Sub(m.started); elapsed >= time.Second {
		line += fmt.Sprintf(" %ds", int(elapsed/time.Second))
	}

	return line
}

// acquireLabel describes what acquiring the session is about to do, based on
// the stored record. A blocked fresh login shows how long it stays blocked.
func acquireLabel(info application.SessionInfo, now time.Time, allowLogin bool, bypassValidation bool) string {
	if info.State == domain.SessionStateValid {
		if bypassValidation {
			return fmt.Sprintf("Restoring session for %s without validation", info.Username)
		}
		return fmt.Sprintf("Validating session for %s", info.Username)
	}
	if !allowLogin {
		return fmt.Sprintf("Checking session for %s", info.Username)
	}
	if info.LoginRateLimited {
		return fmt.Sprintf("Checking session for %s (fresh login blocked for %s)", info.Username, shortWait(info.NextLoginAllowedAt.Sub(now)))
	}

	return fmt.Sprintf("Logging in as %s", info.Username)
}

func refreshLabel(info application.SessionInfo) string {
	return fmt.Sprintf("Logging in as %s (login #%d)", info.Username, info.LoginCount+1)
}

func shortWait(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "<1m"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}

	return fmt.Sprintf("%dh%02dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

// runWithSpinner shows label on output while work runs.
func runWithSpinner(ctx context.Context, output io.Writer, label string, work func(context.Context) error) error {
	workCmd := func() tea.Msg {
		return spinnerDoneMsg{err: work(ctx)}
	}

	p := tea.NewProgram(
		newSpinnerModel(label, workCmd, time.Now),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(spinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
