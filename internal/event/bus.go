package event

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Handler handles one event.
type Handler func(Event)

// PanicHandler is told about handlers that panicked.
type PanicHandler func(ev Event, recovered any, stack []byte)

type subscription struct {
	id      string
	handler Handler
}

// wildcard is the pseudo event type used by SubscribeAll.
const wildcard = "*"

// Bus is a synchronous pub-sub event bus. Handlers run on the publishing
// goroutine; a panicking handler is recovered and never reaches the
// publisher or other handlers.
type Bus struct {
	mu       sync.RWMutex
	subs     map[string][]subscription
	nextID   atomic.Uint64
	onPanic  PanicHandler
	panicked atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// OnPanic installs a callback for recovered handler panics.
func (b *Bus) OnPanic(h PanicHandler) {
	b.mu.Lock()
	b.onPanic = h
	b.mu.Unlock()
}

// Subscribe registers handler for eventType and returns its subscription id.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))

	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()
	return id
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(wildcard, handler)
}

// Unsubscribe removes a subscription. It reports whether one was removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subs {
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			remaining := make([]subscription, 0, len(subs)-1)
			remaining = append(remaining, subs[:i]...)
			remaining = append(remaining, subs[i+1:]...)
			b.subs[eventType] = remaining
			return true
		}
	}
	return false
}

// Publish delivers ev to handlers of its type, then to wildcard handlers,
// each group in registration order.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	specific := b.subs[ev.EventType()]
	all := b.subs[wildcard]
	onPanic := b.onPanic
	b.mu.RUnlock()

	for _, sub := range specific {
		b.deliver(sub.handler, ev, onPanic)
	}
	for _, sub := range all {
		b.deliver(sub.handler, ev, onPanic)
	}
}

func (b *Bus) deliver(h Handler, ev Event, onPanic PanicHandler) {
	defer func() {
		if r := recover(); r != nil {
			b.panicked.Add(1)
			if onPanic != nil {
				onPanic(ev, r, debug.Stack())
			}
		}
	}()
	h(ev)
}

// PanicCount returns how many handler panics have been recovered.
func (b *Bus) PanicCount() uint64 {
	return b.panicked.Load()
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subs {
		count += len(subs)
	}
	return count
}
