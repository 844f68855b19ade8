package event

import "time"

// Event is implemented by everything published on a Bus.
type Event interface {
	// EventType is a "category.action" identifier such as "agent.status".
	EventType() string
	Timestamp() time.Time
}

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// Event type identifiers.
const (
	TypeAgentStatus      = "agent.status"
	TypeAgentLog         = "agent.log"
	TypePhaseChanged     = "pipeline.phase"
	TypeSectionCompleted = "section.completed"
	TypeRunCompleted     = "run.completed"
)

// AgentStatusEvent reports an agent's status and progress.
type AgentStatusEvent struct {
	baseEvent
	RunID    string
	Agent    string
	Status   string
	Progress float64 // 0..100
	Detail   string
}

// NewAgentStatusEvent creates an AgentStatusEvent.
func NewAgentStatusEvent(runID, agent, status string, progress float64, detail string) AgentStatusEvent {
	return AgentStatusEvent{
		baseEvent: newBaseEvent(TypeAgentStatus),
		RunID:     runID,
		Agent:     agent,
		Status:    status,
		Progress:  progress,
		Detail:    detail,
	}
}

// AgentLogEvent carries a human-readable log line from an agent.
type AgentLogEvent struct {
	baseEvent
	RunID   string
	Agent   string
	Level   string
	Message string
}

// NewAgentLogEvent creates an AgentLogEvent.
func NewAgentLogEvent(runID, agent, level, message string) AgentLogEvent {
	return AgentLogEvent{
		baseEvent: newBaseEvent(TypeAgentLog),
		RunID:     runID,
		Agent:     agent,
		Level:     level,
		Message:   message,
	}
}

// PhaseChangedEvent is published when the pipeline enters a new phase.
type PhaseChangedEvent struct {
	baseEvent
	RunID    string
	Previous string
	Current  string
}

// NewPhaseChangedEvent creates a PhaseChangedEvent.
func NewPhaseChangedEvent(runID, previous, current string) PhaseChangedEvent {
	return PhaseChangedEvent{
		baseEvent: newBaseEvent(TypePhaseChanged),
		RunID:     runID,
		Previous:  previous,
		Current:   current,
	}
}

// SectionCompletedEvent is published after each writer task finishes.
type SectionCompletedEvent struct {
	baseEvent
	RunID     string
	SectionID string
	Title     string
	Completed int
	Total     int
}

// NewSectionCompletedEvent creates a SectionCompletedEvent.
func NewSectionCompletedEvent(runID, sectionID, title string, completed, total int) SectionCompletedEvent {
	return SectionCompletedEvent{
		baseEvent: newBaseEvent(TypeSectionCompleted),
		RunID:     runID,
		SectionID: sectionID,
		Title:     title,
		Completed: completed,
		Total:     total,
	}
}

// RunCompletedEvent is published when a run returns.
type RunCompletedEvent struct {
	baseEvent
	RunID   string
	Success bool
	Err     error
	Cost    float64
}

// NewRunCompletedEvent creates a RunCompletedEvent.
func NewRunCompletedEvent(runID string, err error, cost float64) RunCompletedEvent {
	return RunCompletedEvent{
		baseEvent: newBaseEvent(TypeRunCompleted),
		RunID:     runID,
		Success:   err == nil,
		Err:       err,
		Cost:      cost,
	}
}
