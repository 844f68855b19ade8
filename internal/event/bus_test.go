package event

import (
	"sync"
	"testing"
)

func TestBus_PublishOrder(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.SubscribeAll(func(e Event) { got = append(got, "all") })
	bus.Subscribe(TypeAgentStatus, func(e Event) { got = append(got, "status-1") })
	bus.Subscribe(TypeAgentStatus, func(e Event) { got = append(got, "status-2") })
	bus.Subscribe(TypeAgentLog, func(e Event) { got = append(got, "log") })

	bus.Publish(NewAgentStatusEvent("run", "writer", "running", 50, "3/6"))

	want := []string{"status-1", "status-2", "all"}
	if len(got) != len(want) {
		t.Fatalf("handlers called = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("handler[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	id := bus.Subscribe(TypeAgentLog, func(e Event) { calls++ })

	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe() = false, want true")
	}
	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe() = true, want false")
	}
	bus.Publish(NewAgentLogEvent("run", "writer", "info", "hello"))
	if calls != 0 {
		t.Errorf("calls = %d after unsubscribe", calls)
	}
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d", bus.SubscriptionCount())
	}
}

func TestBus_PanickingHandlerIsContained(t *testing.T) {
	bus := NewBus()

	var recovered any
	bus.OnPanic(func(ev Event, r any, stack []byte) { recovered = r })

	after := false
	bus.Subscribe(TypeRunCompleted, func(e Event) { panic("sink exploded") })
	bus.Subscribe(TypeRunCompleted, func(e Event) { after = true })

	bus.Publish(NewRunCompletedEvent("run", nil, 0.1))

	if !after {
		t.Error("handler after a panicking one should still run")
	}
	if recovered != "sink exploded" {
		t.Errorf("recovered = %v", recovered)
	}
	if bus.PanicCount() != 1 {
		t.Errorf("PanicCount() = %d, want 1", bus.PanicCount())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	count := 0
	bus.Subscribe(TypeSectionCompleted, func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bus.Publish(NewSectionCompletedEvent("run", "1", "t", i, 20))
		}(i)
	}
	wg.Wait()

	if count != 20 {
		t.Errorf("count = %d, want 20", count)
	}
}

func TestEventConstructors(t *testing.T) {
	ev := NewPhaseChangedEvent("run", "planning", "writing")
	if ev.EventType() != TypePhaseChanged || ev.Timestamp().IsZero() {
		t.Errorf("unexpected event %+v", ev)
	}
	done := NewRunCompletedEvent("run", nil, 0)
	if !done.Success {
		t.Error("nil error should mark success")
	}
}
