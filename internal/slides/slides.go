// Package slides plans a presentation deck from a document outline.
package slides

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/errors"
	"github.com/Iron-Ham/scribe/internal/logging"
	"github.com/Iron-Ham/scribe/internal/provider"
	"github.com/Iron-Ham/scribe/internal/router"
	"github.com/Iron-Ham/scribe/internal/structured"
	"github.com/Iron-Ham/scribe/internal/usage"
)

// MaxSlides caps the planned deck.
const MaxSlides = 15

const systemPrompt = `You turn document outlines into presentation slide plans. Respond with a
single JSON object and nothing else.`

type plan struct {
	Slides []document.Slide `json:"slides"`
}

// Planner runs the slide planning agent.
type Planner struct {
	text     provider.TextGenerator
	recorder usage.Recorder
	logger   *logging.Logger
}

// New creates a slide Planner.
func New(text provider.TextGenerator, recorder usage.Recorder, logger *logging.Logger) *Planner {
	if recorder == nil {
		recorder = usage.Discard
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Planner{text: text, recorder: recorder, logger: logger.WithAgent(usage.AgentSlidePlanner)}
}

// Plan returns the slide plan for the outline. Unreadable output yields no
// slides and no error; a failed call is a soft *errors.StageError.
func (p *Planner) Plan(ctx context.Context, brief document.Brief, tasks []document.SectionTask) ([]document.Slide, error) {
	tier := router.SlidePlannerModel()
	resp, err := p.text.GenerateText(ctx, provider.Request{
		Agent:        usage.AgentSlidePlanner,
		Prompt:       buildPrompt(brief, tasks),
		SystemPrompt: systemPrompt,
		Tier:         tier,
		MaxTokens:    1500,
		Temperature:  0.4,
	})
	if err != nil {
		return nil, errors.NewStageError("slides", "slide planning call failed", err)
	}
	p.recorder.Record(usage.AgentSlidePlanner, usage.Entry{
		Tier:         tier,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	})

	out, ok, err := structured.DecodeOr("slide plan", resp.Text, plan{})
	if !ok {
		p.logger.Warn("slide plan unreadable, continuing without slides", "error", err)
		return nil, nil
	}

	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}
	var slides []document.Slide
	for _, s := range out.Slides {
		if strings.TrimSpace(s.Title) == "" {
			continue
		}
		if !known[s.SectionID] {
			s.SectionID = ""
		}
		slides = append(slides, s)
		if len(slides) == MaxSlides {
			break
		}
	}
	p.logger.Info("slides planned", "slides", len(slides))
	return slides, nil
}

func buildPrompt(brief document.Brief, tasks []document.SectionTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Presentation for: %s\n%s\n\nOutline:\n", brief.Title, strings.TrimSpace(brief.Idea))
	for _, t := range tasks {
		fmt.Fprintf(&b, "%s%s %s\n", strings.Repeat("  ", max(t.Level-1, 0)), t.ID, t.Title)
	}
	fmt.Fprintf(&b, `
Return JSON: {"slides": [{"title": "...", "bullets": ["..."], "visual": "suggested visual", "section_id": "outline id"}]}
Use at most %d slides.`, MaxSlides)
	return b.String()
}
