// Package testutil provides test doubles for the provider and progress
// interfaces.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Iron-Ham/scribe/internal/progress"
	"github.com/Iron-Ham/scribe/internal/provider"
)

// TextHandler answers one fake text generation call.
type TextHandler func(ctx context.Context, req provider.Request) (provider.Response, error)

// FakeText is a TextGenerator that routes calls to per-agent handlers and
// records every request.
type FakeText struct {
	mu       sync.Mutex
	handlers map[string]TextHandler
	fallback TextHandler
	calls    []provider.Request
}

var _ provider.TextGenerator = (*FakeText)(nil)

// NewFakeText creates a FakeText with no handlers. Unhandled agents fail.
func NewFakeText() *FakeText {
	return &FakeText{handlers: make(map[string]TextHandler)}
}

// On registers the handler for agent.
func (f *FakeText) On(agent string, h TextHandler) *FakeText {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[agent] = h
	return f
}

// OnText registers a handler returning a fixed text with the given usage.
func (f *FakeText) OnText(agent, text string, in, out int64) *FakeText {
	return f.On(agent, func(context.Context, provider.Request) (provider.Response, error) {
		return provider.Response{Text: text, Usage: provider.Usage{InputTokens: in, OutputTokens: out}}, nil
	})
}

// OnSequence registers responses returned in order; the last one repeats.
func (f *FakeText) OnSequence(agent string, texts ...string) *FakeText {
	var mu sync.Mutex
	i := 0
	return f.On(agent, func(context.Context, provider.Request) (provider.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		text := texts[len(texts)-1]
		if i < len(texts) {
			text = texts[i]
		}
		i++
		return provider.Response{Text: text, Usage: provider.Usage{InputTokens: 100, OutputTokens: 50}}, nil
	})
}

// Otherwise sets the handler used for agents without one.
func (f *FakeText) Otherwise(h TextHandler) *FakeText {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = h
	return f
}

// GenerateText records req and dispatches it.
func (f *FakeText) GenerateText(ctx context.Context, req provider.Request) (provider.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	h, ok := f.handlers[req.Agent]
	if !ok {
		h = f.fallback
	}
	f.mu.Unlock()

	if h == nil {
		return provider.Response{}, fmt.Errorf("fake: no handler for agent %q", req.Agent)
	}
	return h(ctx, req)
}

// Calls returns every recorded request.
func (f *FakeText) Calls() []provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]provider.Request, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns the recorded requests for agent.
func (f *FakeText) CallsFor(agent string) []provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []provider.Request
	for _, c := range f.calls {
		if c.Agent == agent {
			out = append(out, c)
		}
	}
	return out
}

// FakeSearcher is an ImageSearcher backed by a function.
type FakeSearcher struct {
	Fn    func(ctx context.Context, keywords []string, count int) ([]provider.Photo, error)
	mu    sync.Mutex
	calls int
}

func (f *FakeSearcher) SearchImages(ctx context.Context, keywords []string, count int) ([]provider.Photo, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.Fn == nil {
		return nil, nil
	}
	return f.Fn(ctx, keywords, count)
}

// Calls returns the number of searches made.
func (f *FakeSearcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeGenerator is an ImageGenerator backed by a function.
type FakeGenerator struct {
	Fn    func(ctx context.Context, prompt, category string) (provider.GeneratedImage, error)
	mu    sync.Mutex
	calls []string
}

func (f *FakeGenerator) GenerateImage(ctx context.Context, prompt, category string) (provider.GeneratedImage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()
	if f.Fn == nil {
		return provider.GeneratedImage{}, fmt.Errorf("fake: image generation unavailable")
	}
	return f.Fn(ctx, prompt, category)
}

// Prompts returns every prompt the generator received.
func (f *FakeGenerator) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Block returns a function that blocks until release is closed, ignoring
// context cancellation, to simulate a provider that never answers.
func Block(release <-chan struct{}) func(ctx context.Context, keywords []string, count int) ([]provider.Photo, error) {
	return func(context.Context, []string, int) ([]provider.Photo, error) {
		<-release
		return []provider.Photo{{URL: "https://late.example/photo.jpg"}}, nil
	}
}

// RecordingSink is a progress.Sink that keeps everything it receives.
type RecordingSink struct {
	mu      sync.Mutex
	Updates []RecordedUpdate
	Logs    []progress.LogEntry
}

// RecordedUpdate is one UpdateAgent call.
type RecordedUpdate struct {
	RunID  string
	Agent  string
	Update progress.AgentUpdate
}

var _ progress.Sink = (*RecordingSink)(nil)

func (r *RecordingSink) UpdateAgent(runID, agent string, u progress.AgentUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updates = append(r.Updates, RecordedUpdate{RunID: runID, Agent: agent, Update: u})
}

func (r *RecordingSink) AddLog(runID string, e progress.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Logs = append(r.Logs, e)
}

// UpdatesFor returns the updates recorded for agent.
func (r *RecordingSink) UpdatesFor(agent string) []progress.AgentUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []progress.AgentUpdate
	for _, u := range r.Updates {
		if u.Agent == agent {
			out = append(out, u.Update)
		}
	}
	return out
}

// PanicSink panics on every call.
type PanicSink struct{}

func (PanicSink) UpdateAgent(string, string, progress.AgentUpdate) { panic("sink failure") }
func (PanicSink) AddLog(string, progress.LogEntry)                 { panic("sink failure") }
