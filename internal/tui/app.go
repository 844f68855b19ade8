package tui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/event"
	"github.com/Iron-Ham/scribe/internal/progress"
)

// Generate runs one generation, reporting to sink.
type Generate func(ctx context.Context, sink progress.Sink) (*document.Bundle, error)

// Sink forwards progress into a running program.
type Sink struct {
	send func(tea.Msg)
}

var _ progress.Sink = (*Sink)(nil)

// NewSink creates a sink delivering messages through send, usually
// (*tea.Program).Send.
func NewSink(send func(tea.Msg)) *Sink {
	return &Sink{send: send}
}

func (s *Sink) UpdateAgent(_, agent string, update progress.AgentUpdate) {
	s.send(AgentMsg{Agent: agent, Update: update})
}

func (s *Sink) AddLog(_ string, entry progress.LogEntry) {
	s.send(LogMsg{Entry: entry})
}

// App wraps the Bubbletea program for one run
type App struct {
	title string
	bus   *event.Bus
}

// New creates a TUI for a run titled title. Phase changes are read from bus,
// which may be nil.
func New(title string, bus *event.Bus) *App {
	return &App{title: title, bus: bus}
}

// Run shows progress while gen executes and returns its outcome. Quitting
// the UI cancels the run.
func (a *App) Run(ctx context.Context, gen Generate) (*document.Bundle, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(NewModel(a.title, cancel))

	if a.bus != nil {
		id := a.bus.Subscribe(event.TypePhaseChanged, func(ev event.Event) {
			if pe, ok := ev.(event.PhaseChangedEvent); ok {
				program.Send(PhaseMsg{Phase: pe.Current})
			}
		})
		defer a.bus.Unsubscribe(id)
	}

	// Quit cleanly on termination signals so the terminal is restored
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
			program.Send(tea.Quit())
		case <-ctx.Done():
		}
	}()

	go func() {
		b, err := gen(ctx, NewSink(program.Send))
		program.Send(DoneMsg{Bundle: b, Err: err})
	}()

	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("TUI error: unexpected model %T", final)
	}
	if !m.done {
		return nil, context.Canceled
	}
	return m.Outcome()
}
