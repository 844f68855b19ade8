package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/errors"
	"github.com/Iron-Ham/scribe/internal/event"
	"github.com/Iron-Ham/scribe/internal/provider"
	"github.com/Iron-Ham/scribe/internal/testutil"
	"github.com/Iron-Ham/scribe/internal/usage"
	"github.com/Iron-Ham/scribe/internal/writer"
)

const (
	researchReport = `{"summary": "Indoor farming is growing.", "key_facts": ["Yields are 10x"], "sources": ["https://a.example"]}`
	slidePlan      = `{"slides": [{"title": "Overview", "bullets": ["Why now"], "section_id": "1.1"}]}`
	imagePlan      = `{"needs_images": true, "images": [{"type": "photo", "method": "search", "placement": "top", "keywords": ["vertical", "farm"], "caption": "A farm"}]}`
	passingReview  = `{"total_score": 95, "verdict": "pass"}`
)

var brief = document.Brief{
	Title:         "Smart Farm",
	Idea:          "Vertical farming for cities",
	Category:      "business_plan",
	CorrelationID: "req-42",
}

// outlineJSON builds architect output with one top-level section per entry
// in leaves, each holding that many subsections.
func outlineJSON(t *testing.T, leaves ...int) string {
	t.Helper()
	type sub struct {
		Title          string `json:"title"`
		EstimatedWords int    `json:"estimated_words"`
	}
	type top struct {
		Title       string `json:"title"`
		Subsections []sub  `json:"subsections"`
	}
	var sections []top
	for i, n := range leaves {
		s := top{Title: fmt.Sprintf("Part %d", i+1)}
		for j := 0; j < n; j++ {
			s.Subsections = append(s.Subsections, sub{Title: fmt.Sprintf("Part %d.%d", i+1, j+1), EstimatedWords: 500})
		}
		sections = append(sections, s)
	}
	data, err := json.Marshal(map[string]any{"title": "Smart Farm Plan", "sections": sections})
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// newFake answers every agent with well-formed output.
func newFake(t *testing.T, leaves ...int) *testutil.FakeText {
	t.Helper()
	return testutil.NewFakeText().
		OnText(usage.AgentResearch, researchReport, 300, 200).
		OnText(usage.AgentArchitect, outlineJSON(t, leaves...), 400, 900).
		OnText(usage.AgentSlidePlanner, slidePlan, 200, 150).
		OnText(usage.AgentWriter, "Vertical farms grow **40%** more per square meter.", 600, 800).
		OnText(usage.AgentImageAnalyzer, imagePlan, 100, 60).
		OnText(usage.AgentReviewer, passingReview, 700, 120)
}

func photoSearcher() *testutil.FakeSearcher {
	return &testutil.FakeSearcher{Fn: func(context.Context, []string, int) ([]provider.Photo, error) {
		return []provider.Photo{{URL: "https://images.example/farm.jpg", Credit: "Jane"}}, nil
	}}
}

func fullConfig(text provider.TextGenerator) Config {
	return Config{
		Text:       text,
		Searcher:   photoSearcher(),
		PoolSize:   2,
		RoundDelay: NoRoundDelay,
		Research:   true,
		Slides:     true,
		Images:     ImagesConfig{Enabled: true},
	}
}

func newController(t *testing.T, cfg Config, opts ...Option) *Controller {
	t.Helper()
	c, err := NewController(cfg, opts...)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return c
}

func TestNewController_RequiresText(t *testing.T) {
	if _, err := NewController(Config{}); err == nil {
		t.Fatal("NewController() without Text should fail")
	}
}

func TestGenerateDocument_HappyPath(t *testing.T) {
	fake := newFake(t, 2, 2)
	c := newController(t, fullConfig(fake))

	b, err := c.GenerateDocument(context.Background(), brief, nil)
	if err != nil {
		t.Fatalf("GenerateDocument() error = %v", err)
	}

	if len(b.Tasks) != 4 || len(b.Sections) != 4 || len(b.Images) != 4 {
		t.Fatalf("tasks/sections/images = %d/%d/%d, want 4/4/4", len(b.Tasks), len(b.Sections), len(b.Images))
	}
	for i, s := range b.Sections {
		if s.SectionID != b.Tasks[i].ID {
			t.Errorf("Sections[%d].SectionID = %q, want %q", i, s.SectionID, b.Tasks[i].ID)
		}
		if s.Content == "" {
			t.Errorf("Sections[%d] has no content", i)
		}
		if got := b.Images[i].Images; len(got) != 1 || got[0].Source != document.SourceSearch {
			t.Errorf("Images[%d] = %+v, want one searched photo", i, got)
		}
	}

	if b.Research == nil || b.Research.Summary == "" {
		t.Error("research report missing")
	}
	if !strings.Contains(b.Brief.Context, "Yields are 10x") {
		t.Errorf("brief context = %q, want research facts", b.Brief.Context)
	}
	if len(b.Slides) != 1 {
		t.Errorf("len(Slides) = %d, want 1", len(b.Slides))
	}
	if b.Reviews.Passes != 1 || b.Reviews.Rewrites != 0 {
		t.Errorf("reviews = %d passes, %d rewrites, want 1, 0", b.Reviews.Passes, b.Reviews.Rewrites)
	}

	m := b.Metadata
	if m.RunID == "" || m.CorrelationID != "req-42" || m.Category != "business_plan" {
		t.Errorf("metadata ids = %+v", m)
	}
	for _, stage := range []string{StageResearch, StageSlides, StageImages} {
		if m.Stages[stage] != document.StageCompleted {
			t.Errorf("Stages[%s] = %q, want completed", stage, m.Stages[stage])
		}
	}
	if m.Usage.Writer.Sections != 4 || m.Usage.Writer.Calls != 4 {
		t.Errorf("writer usage = %+v, want 4 sections in 4 calls", m.Usage.Writer)
	}
	if m.Usage.Total.Cost <= 0 || m.Optimization.TotalCost != m.Usage.Total.Cost {
		t.Errorf("total cost = %v, optimization total = %v", m.Usage.Total.Cost, m.Optimization.TotalCost)
	}

	agents := map[string]bool{}
	for _, a := range m.Usage.Agents {
		agents[a.Agent] = true
	}
	for _, want := range []string{usage.AgentResearch, usage.AgentArchitect, usage.AgentSlidePlanner, usage.AgentImageAnalyzer, usage.AgentReviewer, usage.AgentWriter} {
		if !agents[want] {
			t.Errorf("usage summary missing agent %q", want)
		}
	}
}

func TestGenerateDocument_DisabledStages(t *testing.T) {
	fake := newFake(t, 1, 1)
	c := newController(t, Config{Text: fake, RoundDelay: NoRoundDelay})

	b, err := c.GenerateDocument(context.Background(), brief, nil)
	if err != nil {
		t.Fatalf("GenerateDocument() error = %v", err)
	}
	for _, stage := range []string{StageResearch, StageSlides, StageImages} {
		if b.Metadata.Stages[stage] != document.StageDisabled {
			t.Errorf("Stages[%s] = %q, want disabled", stage, b.Metadata.Stages[stage])
		}
	}
	for _, agent := range []string{usage.AgentResearch, usage.AgentSlidePlanner, usage.AgentImageAnalyzer} {
		if n := len(fake.CallsFor(agent)); n != 0 {
			t.Errorf("%s calls = %d, want 0", agent, n)
		}
	}
	if len(b.Images) != 2 || b.Images[0].Images == nil {
		t.Errorf("Images = %+v, want two empty lists", b.Images)
	}
}

func TestGenerateDocument_PlannerErrorIsFatal(t *testing.T) {
	fake := newFake(t, 2).On(usage.AgentArchitect, func(context.Context, provider.Request) (provider.Response, error) {
		return provider.Response{}, errors.NewProviderError("unavailable", nil).WithStatusCode(503)
	})
	c := newController(t, fullConfig(fake))

	b, err := c.GenerateDocument(context.Background(), brief, nil)
	if b != nil {
		t.Error("bundle should be nil on planner failure")
	}
	var perr *errors.PlanningError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *PlanningError", err)
	}
	if !errors.Is(err, &errors.ProviderError{}) {
		t.Error("planning error should wrap the provider error")
	}
	if n := len(fake.CallsFor(usage.AgentWriter)); n != 0 {
		t.Errorf("writer calls = %d, want 0", n)
	}
}

func TestGenerateDocument_WriterErrorIsFatal(t *testing.T) {
	fake := newFake(t, 3).On(usage.AgentWriter, func(_ context.Context, req provider.Request) (provider.Response, error) {
		if strings.Contains(req.Prompt, "Write section 1.2:") {
			return provider.Response{}, errors.NewProviderError("rate limited", nil).WithStatusCode(429)
		}
		return provider.Response{Text: "body", Usage: provider.Usage{InputTokens: 10, OutputTokens: 10}}, nil
	})
	c := newController(t, fullConfig(fake))

	b, err := c.GenerateDocument(context.Background(), brief, nil)
	if b != nil {
		t.Error("bundle should be nil on writer failure")
	}
	var werr *errors.WriterError
	if !errors.As(err, &werr) {
		t.Fatalf("error = %v, want *WriterError", err)
	}
	if werr.SectionID != "1.2" {
		t.Errorf("SectionID = %q, want 1.2", werr.SectionID)
	}
	if !errors.Is(err, errors.ErrRateLimited) {
		t.Error("writer error should keep the provider cause")
	}
	if n := len(fake.CallsFor(usage.AgentReviewer)); n != 0 {
		t.Errorf("reviewer calls = %d, want 0", n)
	}
}

func TestGenerateDocument_SoftStageFailures(t *testing.T) {
	fail := func(context.Context, provider.Request) (provider.Response, error) {
		return provider.Response{}, errors.NewProviderError("boom", nil).WithStatusCode(500)
	}
	fake := newFake(t, 2).On(usage.AgentResearch, fail).On(usage.AgentSlidePlanner, fail)
	sink := &testutil.RecordingSink{}
	c := newController(t, fullConfig(fake))

	b, err := c.GenerateDocument(context.Background(), brief, sink)
	if err != nil {
		t.Fatalf("GenerateDocument() error = %v", err)
	}
	if b.Research != nil || b.Slides != nil {
		t.Error("failed soft stages should leave no output")
	}
	if b.Brief.Context != "" {
		t.Errorf("brief context = %q, want none", b.Brief.Context)
	}
	for _, stage := range []string{StageResearch, StageSlides} {
		if b.Metadata.Stages[stage] != document.StageSkipped {
			t.Errorf("Stages[%s] = %q, want skipped", stage, b.Metadata.Stages[stage])
		}
	}
	if len(b.Sections) != 2 {
		t.Errorf("len(Sections) = %d, want 2", len(b.Sections))
	}

	warned := 0
	for _, l := range sink.Logs {
		if l.Level == "warn" && strings.Contains(l.Message, "skipped") {
			warned++
		}
	}
	if warned != 2 {
		t.Errorf("skip warnings = %d, want 2", warned)
	}
}

func TestGenerateDocument_PanickingSink(t *testing.T) {
	c := newController(t, fullConfig(newFake(t, 2, 1)))

	b, err := c.GenerateDocument(context.Background(), brief, testutil.PanicSink{})
	if err != nil {
		t.Fatalf("GenerateDocument() error = %v", err)
	}
	if len(b.Sections) != 3 {
		t.Errorf("len(Sections) = %d, want 3", len(b.Sections))
	}
}

func TestGenerateDocument_ImageTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	cfg := fullConfig(newFake(t, 2))
	cfg.Searcher = &testutil.FakeSearcher{Fn: testutil.Block(release)}
	cfg.Images.Timeout = 50 * time.Millisecond
	c := newController(t, cfg)

	start := time.Now()
	b, err := c.GenerateDocument(context.Background(), brief, nil)
	if err != nil {
		t.Fatalf("GenerateDocument() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("run took %v, the image timeout should bound it", elapsed)
	}
	if b.Metadata.Stages[StageImages] != document.StageTimedOut {
		t.Errorf("Stages[images] = %q, want timed_out", b.Metadata.Stages[StageImages])
	}
	if len(b.Images) != 2 {
		t.Fatalf("len(Images) = %d, want 2", len(b.Images))
	}
	for i, si := range b.Images {
		if len(si.Images) != 0 {
			t.Errorf("Images[%d] = %+v, want none", i, si.Images)
		}
	}
	if len(b.Sections) != 2 || b.Reviews.Passes == 0 {
		t.Error("review should still run after the image stage times out")
	}
}

func TestGenerateDocument_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := newFake(t, 2).On(usage.AgentArchitect, func(context.Context, provider.Request) (provider.Response, error) {
		cancel()
		return provider.Response{}, context.Canceled
	})
	c := newController(t, fullConfig(fake))

	if _, err := c.GenerateDocument(ctx, brief, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
}

func TestGenerateDocument_RunsAreIsolated(t *testing.T) {
	c := newController(t, fullConfig(newFake(t, 2, 2)))

	var wg sync.WaitGroup
	bundles := make([]*document.Bundle, 2)
	errs := make([]error, 2)
	for i := range bundles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bundles[i], errs[i] = c.GenerateDocument(context.Background(), brief, nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("run %d error = %v", i, err)
		}
	}
	a, b := bundles[0].Metadata, bundles[1].Metadata
	if a.RunID == b.RunID {
		t.Error("runs should have distinct ids")
	}
	if a.Usage.Total.Calls != b.Usage.Total.Calls {
		t.Errorf("calls = %d vs %d, want equal", a.Usage.Total.Calls, b.Usage.Total.Calls)
	}
	if a.Usage.Total.TotalTokens() != b.Usage.Total.TotalTokens() {
		t.Errorf("tokens = %d vs %d, want equal", a.Usage.Total.TotalTokens(), b.Usage.Total.TotalTokens())
	}
	if a.Usage.Writer.Sections != 4 || b.Usage.Writer.Sections != 4 {
		t.Errorf("writer sections = %d, %d, want 4 each", a.Usage.Writer.Sections, b.Usage.Writer.Sections)
	}
}

func TestGenerateDocument_OverfullOutline(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	fake := newFake(t, 7, 7, 7, 7, 7).On(usage.AgentWriter, func(context.Context, provider.Request) (provider.Response, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		return provider.Response{Text: "Section body.", Usage: provider.Usage{InputTokens: 500, OutputTokens: 700}}, nil
	})
	cfg := fullConfig(fake)
	cfg.PoolSize = 3
	cfg.Images.Enabled = false
	c := newController(t, cfg)

	b, err := c.GenerateDocument(context.Background(), brief, nil)
	if err != nil {
		t.Fatalf("GenerateDocument() error = %v", err)
	}
	if len(b.Sections) != 30 {
		t.Fatalf("len(Sections) = %d, want 30", len(b.Sections))
	}
	if last := b.Tasks[29]; last.ID != "5.2" || last.Title != "Part 5.2" {
		t.Errorf("last task = %s %q, want 5.2 from the trimmed tail", last.ID, last.Title)
	}
	if got := maxInFlight.Load(); got > 3 {
		t.Errorf("max concurrent writer calls = %d, want <= 3", got)
	}
	if n := len(fake.CallsFor(usage.AgentWriter)); n != 30 {
		t.Errorf("writer calls = %d, want 30", n)
	}
	// Every leaf sits at level 2, so all of them are mandatory review members.
	if len(b.Reviews.Sampled) != 30 {
		t.Errorf("len(Sampled) = %d, want 30", len(b.Reviews.Sampled))
	}
	if n := len(fake.CallsFor(usage.AgentReviewer)); n != 30 {
		t.Errorf("reviewer calls = %d, want 30", n)
	}
	if b.Metadata.Usage.Writer.Sections != 30 {
		t.Errorf("writer sections = %d, want 30", b.Metadata.Usage.Writer.Sections)
	}
}

func TestGenerateDocument_PublishesEvents(t *testing.T) {
	bus := event.NewBus()
	var (
		mu       sync.Mutex
		phases   []string
		sections int
		done     []event.RunCompletedEvent
	)
	bus.Subscribe(event.TypePhaseChanged, func(ev event.Event) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, ev.(event.PhaseChangedEvent).Current)
	})
	bus.Subscribe(event.TypeSectionCompleted, func(event.Event) {
		mu.Lock()
		defer mu.Unlock()
		sections++
	})
	bus.Subscribe(event.TypeRunCompleted, func(ev event.Event) {
		mu.Lock()
		defer mu.Unlock()
		done = append(done, ev.(event.RunCompletedEvent))
	})

	c := newController(t, fullConfig(newFake(t, 2, 2)), WithBus(bus))
	if c.Bus() != bus {
		t.Fatal("Bus() should return the configured bus")
	}
	if _, err := c.GenerateDocument(context.Background(), brief, nil); err != nil {
		t.Fatalf("GenerateDocument() error = %v", err)
	}

	want := []string{"research", "planning", "slides", "writing", "images", "review", "done"}
	if strings.Join(phases, ",") != strings.Join(want, ",") {
		t.Errorf("phases = %v, want %v", phases, want)
	}
	if sections != 4 {
		t.Errorf("section events = %d, want 4", sections)
	}
	if len(done) != 1 || !done[0].Success || done[0].Cost <= 0 {
		t.Errorf("run completed events = %+v", done)
	}
}

func TestGenerateDocument_FailedRunPublishesFailure(t *testing.T) {
	bus := event.NewBus()
	var last event.PhaseChangedEvent
	var completed event.RunCompletedEvent
	bus.Subscribe(event.TypePhaseChanged, func(ev event.Event) { last = ev.(event.PhaseChangedEvent) })
	bus.Subscribe(event.TypeRunCompleted, func(ev event.Event) { completed = ev.(event.RunCompletedEvent) })

	fake := newFake(t, 2).On(usage.AgentArchitect, func(context.Context, provider.Request) (provider.Response, error) {
		return provider.Response{}, errors.NewProviderError("bad request", nil).WithStatusCode(400)
	})
	c := newController(t, Config{Text: fake, RoundDelay: NoRoundDelay}, WithBus(bus))
	if _, err := c.GenerateDocument(context.Background(), brief, nil); err == nil {
		t.Fatal("expected an error")
	}

	if last.Previous != string(PhasePlanning) || last.Current != string(PhaseFailed) {
		t.Errorf("last phase change = %s -> %s, want planning -> failed", last.Previous, last.Current)
	}
	if completed.Success || completed.Err == nil {
		t.Errorf("run completed = %+v, want failure", completed)
	}
}

func TestPhase_IsTerminal(t *testing.T) {
	tests := []struct {
		phase Phase
		want  bool
	}{
		{PhaseResearch, false},
		{PhasePlanning, false},
		{PhaseWriting, false},
		{PhaseReview, false},
		{PhaseDone, true},
		{PhaseFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			if got := tt.phase.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoundDelay(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"unset uses the writer default", 0, writer.DefaultRoundDelay},
		{"disabled", NoRoundDelay, 0},
		{"any negative disables", -time.Second, 0},
		{"explicit", 250 * time.Millisecond, 250 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := roundDelay(tt.in); got != tt.want {
				t.Errorf("roundDelay(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSoftStageError(t *testing.T) {
	t.Run("foreign error is wrapped", func(t *testing.T) {
		cause := errors.New("search backend down")
		serr := softStageError(StageResearch, cause)
		if serr.Stage != StageResearch || !errors.IsSoft(serr) {
			t.Errorf("stage = %q, soft = %v", serr.Stage, errors.IsSoft(serr))
		}
		if !errors.Is(serr, cause) {
			t.Error("cause should stay in the chain")
		}
		if errors.GetSeverity(serr) != errors.SeverityWarning {
			t.Errorf("severity = %v, want warning", errors.GetSeverity(serr))
		}
	})

	t.Run("existing stage error is reused", func(t *testing.T) {
		orig := errors.NewStageError(StageSlides, "slide planning call failed",
			errors.NewProviderError("overloaded", nil).WithStatusCode(503))
		serr := softStageError(StageSlides, fmt.Errorf("slides: %w", orig))
		if serr != orig {
			t.Error("expected the stage error from the chain")
		}
		if !errors.IsRetryable(serr) {
			t.Error("a 503 cause should stay retryable")
		}
	})
}
