// Package planner turns a brief into a bounded document outline and the
// ordered list of section tasks the writers work through.
package planner

import (
	"context"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/errors"
	"github.com/Iron-Ham/scribe/internal/logging"
	"github.com/Iron-Ham/scribe/internal/provider"
	"github.com/Iron-Ham/scribe/internal/router"
	"github.com/Iron-Ham/scribe/internal/structured"
	"github.com/Iron-Ham/scribe/internal/usage"
)

// maxOutlineTokens bounds the architect's response.
const maxOutlineTokens = 3000

// Result is the output of one planning call.
type Result struct {
	Outline  *document.Outline
	Template string
	Usage    usage.Entry
}

// Planner is the architect stage.
type Planner struct {
	text     provider.TextGenerator
	registry *Registry
	logger   *logging.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithRegistry replaces the built-in category templates.
func WithRegistry(r *Registry) Option {
	return func(p *Planner) { p.registry = r }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// New creates a Planner.
func New(text provider.TextGenerator, opts ...Option) *Planner {
	p := &Planner{text: text}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = DefaultRegistry()
	}
	if p.logger == nil {
		p.logger = logging.NopLogger()
	}
	return p
}

// Plan asks the architect for an outline. Provider failures are returned as
// *errors.PlanningError. Undecodable output is not an error: it yields the
// single-section fallback outline.
func (p *Planner) Plan(ctx context.Context, brief document.Brief) (*Result, error) {
	if brief.Title == "" && brief.Idea == "" {
		return nil, errors.NewPlanningError("brief has neither title nor idea", errors.ErrInvalidInput)
	}

	tmpl, ok := p.registry.Match(brief.Category)
	res := &Result{}
	if ok {
		res.Template = tmpl.Name
	}

	tier := router.ArchitectModel()
	resp, err := p.text.GenerateText(ctx, provider.Request{
		Agent:        usage.AgentArchitect,
		Prompt:       buildPrompt(brief, tmpl),
		SystemPrompt: systemPrompt,
		Tier:         tier,
		MaxTokens:    maxOutlineTokens,
		Temperature:  0.4,
	})
	if err != nil {
		return nil, errors.NewPlanningError("architect call failed", err).WithCategory(brief.Category)
	}
	res.Usage = usage.Discard.Record(usage.AgentArchitect, usage.Entry{
		Tier:         tier,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	})

	raw, err := structured.Decode[rawOutline]("outline", resp.Text)
	outline := raw.toOutline()
	switch {
	case err != nil:
		p.logger.Warn("outline undecodable, using fallback", "error", err)
		outline = FallbackOutline(brief)
	case len(outline.Sections) == 0:
		p.logger.Warn("outline has no sections, using fallback")
		outline = FallbackOutline(brief)
	}
	if outline.Title == "" {
		outline.Title = brief.Title
	}

	before := outline.LeafCount()
	Normalize(outline)
	if after := outline.LeafCount(); after != before {
		p.logger.Info("outline trimmed", "leaves_before", before, "leaves_after", after)
	}

	res.Outline = outline
	p.logger.Info("outline planned",
		"template", res.Template,
		"top_level", len(outline.Sections),
		"leaves", outline.LeafCount(),
		"fallback", outline.Fallback,
	)
	return res, nil
}

// Tasks flattens an outline and routes each task.
func Tasks(o *document.Outline, proMode bool) []document.SectionTask {
	tasks := Flatten(o)
	Route(tasks, proMode)
	return tasks
}
