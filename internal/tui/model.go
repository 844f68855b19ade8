// Package tui renders live progress of a generation run.
package tui

import (
	"fmt"
	"strings"

	progressbar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/progress"
	"github.com/Iron-Ham/scribe/internal/usage"
	"github.com/Iron-Ham/scribe/internal/util"
)

const (
	maxLogLines  = 8
	minBarWidth  = 10
	maxBarWidth  = 40
	defaultWidth = 80
)

// Agents in display order.
var agentOrder = []string{
	usage.AgentResearch,
	usage.AgentArchitect,
	usage.AgentSlidePlanner,
	usage.AgentWriter,
	usage.AgentImageAnalyzer,
	usage.AgentReviewer,
}

// AgentMsg carries an agent status update into the program.
type AgentMsg struct {
	Agent  string
	Update progress.AgentUpdate
}

// LogMsg carries a run log line.
type LogMsg struct {
	Entry progress.LogEntry
}

// PhaseMsg reports a pipeline phase change.
type PhaseMsg struct {
	Phase string
}

// DoneMsg ends the program with the run's outcome.
type DoneMsg struct {
	Bundle *document.Bundle
	Err    error
}

type agentRow struct {
	name   string
	update progress.AgentUpdate
}

// Model is the bubbletea model for one run.
type Model struct {
	title  string
	phase  string
	agents []agentRow
	index  map[string]int
	logs   []string

	bar     progressbar.Model
	spinner spinner.Model
	width   int

	cancel    func()
	canceling bool
	done      bool
	bundle    *document.Bundle
	err       error
}

// NewModel creates a model for a run titled title. cancel is called when the
// user interrupts; it may be nil.
func NewModel(title string, cancel func()) Model {
	m := Model{
		title:   title,
		phase:   "starting",
		index:   make(map[string]int),
		bar:     progressbar.New(progressbar.WithDefaultGradient(), progressbar.WithoutPercentage()),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(Secondary)),
		width:   defaultWidth,
		cancel:  cancel,
	}
	for _, name := range agentOrder {
		m.index[name] = len(m.agents)
		m.agents = append(m.agents, agentRow{name: name, update: progress.AgentUpdate{Status: progress.StatusPending}})
	}
	m.bar.Width = barWidth(m.width)
	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.done || m.canceling {
				return m, tea.Quit
			}
			m.canceling = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = barWidth(msg.Width)
		return m, nil

	case AgentMsg:
		i, ok := m.index[msg.Agent]
		if !ok {
			i = len(m.agents)
			m.index[msg.Agent] = i
			m.agents = append(m.agents, agentRow{name: msg.Agent})
		}
		m.agents[i].update = msg.Update
		return m, nil

	case LogMsg:
		line := fmt.Sprintf("[%s] %s", msg.Entry.Agent, msg.Entry.Message)
		m.logs = append(m.logs, line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		return m, nil

	case PhaseMsg:
		m.phase = msg.Phase
		return m, nil

	case DoneMsg:
		m.done = true
		m.bundle = msg.Bundle
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(Header.Render(fmt.Sprintf("scribe · %s  [%s]", m.title, m.phase)))
	b.WriteString("\n")

	for _, row := range m.agents {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}

	if len(m.logs) > 0 {
		b.WriteString("\n")
		for _, l := range m.logs {
			b.WriteString(Muted.Render(util.TruncateANSI(l, m.width)))
			b.WriteString("\n")
		}
	}

	switch {
	case m.done && m.err != nil:
		b.WriteString("\n" + Error.Render("failed: "+m.err.Error()) + "\n")
	case m.done:
		b.WriteString("\n" + Secondary.Render("done") + "\n")
	case m.canceling:
		b.WriteString(HelpBar.Render("canceling... press q again to quit now"))
	default:
		b.WriteString(HelpBar.Render("q cancel"))
	}
	return b.String()
}

func (m Model) renderRow(row agentRow) string {
	u := row.update
	icon := " "
	switch u.Status {
	case progress.StatusRunning:
		icon = m.spinner.View()
	case progress.StatusCompleted:
		icon = "✓"
	case progress.StatusSkipped:
		icon = "-"
	case progress.StatusFailed:
		icon = "✗"
	}
	line := fmt.Sprintf("%s %s %s %s",
		statusStyle(u.Status).Render(icon),
		AgentName.Render(row.name),
		m.bar.ViewAs(u.Progress/100),
		Muted.Render(u.Detail),
	)
	return line
}

// Outcome returns the run result once the program has finished.
func (m Model) Outcome() (*document.Bundle, error) {
	return m.bundle, m.err
}

func barWidth(termWidth int) int {
	w := termWidth / 3
	if w < minBarWidth {
		return minBarWidth
	}
	if w > maxBarWidth {
		return maxBarWidth
	}
	return w
}
