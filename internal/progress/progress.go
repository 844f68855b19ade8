// Package progress defines the observer interface the pipeline reports to.
// Sinks are fire-and-forget: nothing they do, including panicking, can change
// the outcome of a run.
package progress

import (
	"sync"

	"github.com/Iron-Ham/scribe/internal/event"
	"github.com/Iron-Ham/scribe/internal/logging"
)

// Agent statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// AgentUpdate is a status report for one agent.
type AgentUpdate struct {
	Status   string
	Progress float64 // 0..100
	Detail   string
}

// LogEntry is a human-readable line for the run log.
type LogEntry struct {
	Agent   string
	Level   string
	Message string
}

// Sink receives progress from a run.
type Sink interface {
	UpdateAgent(runID, agent string, update AgentUpdate)
	AddLog(runID string, entry LogEntry)
}

// Nop discards everything.
type Nop struct{}

func (Nop) UpdateAgent(string, string, AgentUpdate) {}
func (Nop) AddLog(string, LogEntry)                 {}

// Safe wraps a sink so calls are serialized and panics are recovered and
// logged. A nil sink becomes Nop.
func Safe(s Sink, logger *logging.Logger) Sink {
	if s == nil {
		return Nop{}
	}
	if _, ok := s.(*safeSink); ok {
		return s
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &safeSink{inner: s, logger: logger}
}

type safeSink struct {
	mu     sync.Mutex
	inner  Sink
	logger *logging.Logger
}

func (s *safeSink) UpdateAgent(runID, agent string, update AgentUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.recover("update_agent")
	s.inner.UpdateAgent(runID, agent, update)
}

func (s *safeSink) AddLog(runID string, entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.recover("add_log")
	s.inner.AddLog(runID, entry)
}

func (s *safeSink) recover(op string) {
	if r := recover(); r != nil {
		s.logger.Warn("progress sink panicked", "op", op, "panic", r)
	}
}

// BusSink publishes progress as events on a bus.
type BusSink struct {
	Bus *event.Bus
}

// NewBusSink creates a sink publishing to bus.
func NewBusSink(bus *event.Bus) *BusSink {
	return &BusSink{Bus: bus}
}

func (b *BusSink) UpdateAgent(runID, agent string, update AgentUpdate) {
	b.Bus.Publish(event.NewAgentStatusEvent(runID, agent, update.Status, update.Progress, update.Detail))
}

func (b *BusSink) AddLog(runID string, entry LogEntry) {
	b.Bus.Publish(event.NewAgentLogEvent(runID, entry.Agent, entry.Level, entry.Message))
}

// Multi fans calls out to several sinks in order.
type Multi []Sink

func (m Multi) UpdateAgent(runID, agent string, update AgentUpdate) {
	for _, s := range m {
		s.UpdateAgent(runID, agent, update)
	}
}

func (m Multi) AddLog(runID string, entry LogEntry) {
	for _, s := range m {
		s.AddLog(runID, entry)
	}
}
