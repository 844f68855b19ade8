// Package research enriches a brief with facts and market data before the
// outline is planned. Research is optional: callers treat any error as a
// reason to continue with the brief unchanged.
package research

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

const systemPrompt = `You are a research analyst. Summarize what a writer needs to know
before drafting a document. Respond with a single JSON object and nothing else.`

const reportFormat = `Return JSON:
{"summary": "one paragraph",
 "key_facts": ["..."],
 "market_data": ["figures with units and years"],
 "sources": ["urls or publication names"]}`

// maxWebResults bounds how many search hits are quoted in the prompt.
const maxWebResults = 5

// Researcher runs the research agent, optionally grounded in web search.
type Researcher struct {
	text     provider.TextGenerator
	web      provider.WebSearcher
	recorder usage.Recorder
	logger   *logging.Logger
}

// New creates a Researcher. web may be nil.
func New(text provider.TextGenerator, web provider.WebSearcher, recorder usage.Recorder, logger *logging.Logger) *Researcher {
	if recorder == nil {
		recorder = usage.Discard
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Researcher{text: text, web: web, recorder: recorder, logger: logger.WithAgent(usage.AgentResearch)}
}

// Research produces a report for brief. Errors are *errors.StageError or
// *errors.ParseError.
func (r *Researcher) Research(ctx context.Context, brief document.Brief) (*document.ResearchReport, error) {
	var hits []provider.WebResult
	if r.web != nil {
		var err error
		hits, err = r.web.SearchWeb(ctx, query(brief))
		if err != nil {
			r.logger.Warn("web search failed, researching without it", "error", err)
			hits = nil
		}
		if len(hits) > maxWebResults {
			hits = hits[:maxWebResults]
		}
	}

	tier := router.ResearchModel()
	resp, err := r.text.GenerateText(ctx, provider.Request{
		Agent:        usage.AgentResearch,
		Prompt:       buildPrompt(brief, hits),
		SystemPrompt: systemPrompt,
		Tier:         tier,
		MaxTokens:    1500,
		Temperature:  0.3,
	})
	if err != nil {
		return nil, errors.NewStageError("research", "research call failed", err)
	}
	r.recorder.Record(usage.AgentResearch, usage.Entry{
		Tier:         tier,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	})

	report, err := structured.Decode[document.ResearchReport]("research report", resp.Text)
	if err != nil {
		return nil, errors.NewStageError("research", "research report unreadable", err)
	}
	if strings.TrimSpace(report.Summary) == "" && len(report.KeyFacts) == 0 {
		return nil, errors.NewStageError("research", "research report is empty", errors.ErrEmptyResponse)
	}
	for _, h := range hits {
		if !contains(report.Sources, h.URL) {
			report.Sources = append(report.Sources, h.URL)
		}
	}
	r.logger.Info("research complete", "facts", len(report.KeyFacts), "sources", len(report.Sources))
	return &report, nil
}

// Enrich returns a copy of brief whose Context carries the report.
func Enrich(brief document.Brief, report *document.ResearchReport) document.Brief {
	if report == nil {
		return brief
	}
	var b strings.Builder
	if report.Summary != "" {
		b.WriteString(strings.TrimSpace(report.Summary))
		b.WriteString("\n")
	}
	for _, f := range report.KeyFacts {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	for _, m := range report.MarketData {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	if brief.Context != "" {
		brief.Context = strings.TrimSpace(brief.Context) + "\n\n" + strings.TrimSpace(b.String())
	} else {
		brief.Context = strings.TrimSpace(b.String())
	}
	return brief
}

func query(brief document.Brief) string {
	q := brief.Title
	if brief.Category != "" {
		q += " " + strings.ReplaceAll(brief.Category, "_", " ")
	}
	return q + " market size statistics"
}

func buildPrompt(brief document.Brief, hits []provider.WebResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document title: %s\n", brief.Title)
	if brief.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", brief.Category)
	}
	fmt.Fprintf(&b, "Idea: %s\n", strings.TrimSpace(brief.Idea))
	if len(hits) > 0 {
		b.WriteString("\nWeb search results:\n")
		for i, h := range hits {
			fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", i+1, h.Title, h.URL, h.Snippet)
		}
	}
	b.WriteString("\n")
	b.WriteString(reportFormat)
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
