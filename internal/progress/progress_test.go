package progress

import (
	"testing"

	"github.com/Iron-Ham/scribe/internal/event"
)

type panicSink struct{}

func (panicSink) UpdateAgent(string, string, AgentUpdate) { panic("boom") }
func (panicSink) AddLog(string, LogEntry)                 { panic("boom") }

type recordingSink struct {
	updates []AgentUpdate
	logs    []LogEntry
}

func (r *recordingSink) UpdateAgent(_, _ string, u AgentUpdate) { r.updates = append(r.updates, u) }
func (r *recordingSink) AddLog(_ string, e LogEntry)            { r.logs = append(r.logs, e) }

func TestSafe_RecoversPanics(t *testing.T) {
	s := Safe(panicSink{}, nil)

	// Must not panic.
	s.UpdateAgent("run", "writer", AgentUpdate{Status: StatusRunning})
	s.AddLog("run", LogEntry{Agent: "writer", Level: "info", Message: "x"})
}

func TestSafe_NilAndIdempotent(t *testing.T) {
	if _, ok := Safe(nil, nil).(Nop); !ok {
		t.Error("Safe(nil) should return Nop")
	}
	once := Safe(&recordingSink{}, nil)
	if Safe(once, nil) != once {
		t.Error("Safe should not double wrap")
	}
}

func TestBusSink_PublishesEvents(t *testing.T) {
	bus := event.NewBus()
	var got []event.Event
	bus.SubscribeAll(func(e event.Event) { got = append(got, e) })

	sink := NewBusSink(bus)
	sink.UpdateAgent("run-1", "writer", AgentUpdate{Status: StatusRunning, Progress: 40, Detail: "2/5"})
	sink.AddLog("run-1", LogEntry{Agent: "writer", Level: "info", Message: "round 1 done"})

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	status, ok := got[0].(event.AgentStatusEvent)
	if !ok || status.Progress != 40 || status.Detail != "2/5" || status.RunID != "run-1" {
		t.Errorf("status event = %+v", got[0])
	}
	logEv, ok := got[1].(event.AgentLogEvent)
	if !ok || logEv.Message != "round 1 done" {
		t.Errorf("log event = %+v", got[1])
	}
}

func TestMulti(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := Multi{a, Safe(panicSink{}, nil), b}

	m.UpdateAgent("run", "x", AgentUpdate{Status: StatusCompleted})
	m.AddLog("run", LogEntry{Message: "m"})

	if len(a.updates) != 1 || len(b.updates) != 1 || len(a.logs) != 1 || len(b.logs) != 1 {
		t.Errorf("fan-out failed: a=%+v b=%+v", a, b)
	}
}
