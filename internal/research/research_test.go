package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Iron-Ham/scribe/internal/document"
	scerrors "github.com/Iron-Ham/scribe/internal/errors"
	"github.com/Iron-Ham/scribe/internal/provider"
	"github.com/Iron-Ham/scribe/internal/testutil"
	"github.com/Iron-Ham/scribe/internal/usage"
)

type fakeWeb struct {
	results []provider.WebResult
	err     error
	queries []string
}

func (f *fakeWeb) SearchWeb(_ context.Context, q string) ([]provider.WebResult, error) {
	f.queries = append(f.queries, q)
	return f.results, f.err
}

var brief = document.Brief{Title: "Smart Farm", Idea: "Vertical farming", Category: "business_plan"}

const report = `{"summary": "Indoor farming is growing.", "key_facts": ["Yields are 10x"], "market_data": ["$5.6B in 2023"], "sources": ["https://a.example"]}`

func TestResearch(t *testing.T) {
	tests := []struct {
		name         string
		web          *fakeWeb
		wantSources  int
		wantInPrompt string
	}{
		{"no web", nil, 1, "Vertical farming"},
		{"web hits merged", &fakeWeb{results: []provider.WebResult{
			{Title: "A", URL: "https://a.example"},
			{Title: "B", URL: "https://b.example", Snippet: "vertical farms"},
		}}, 2, "https://b.example"},
		{"web failure ignored", &fakeWeb{err: errors.New("quota")}, 1, "Smart Farm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeText().OnText(usage.AgentResearch, report, 300, 200)
			tracker := usage.NewTracker()
			var web provider.WebSearcher
			if tt.web != nil {
				web = tt.web
			}

			got, err := New(fake, web, tracker, nil).Research(context.Background(), brief)
			if err != nil {
				t.Fatalf("Research() error = %v", err)
			}
			if len(got.Sources) != tt.wantSources {
				t.Errorf("Sources = %v, want %d", got.Sources, tt.wantSources)
			}
			if p := fake.CallsFor(usage.AgentResearch)[0].Prompt; !strings.Contains(p, tt.wantInPrompt) {
				t.Errorf("prompt missing %q", tt.wantInPrompt)
			}
			if tracker.Summary().Total.Calls != 1 {
				t.Error("research usage not recorded")
			}
			if tt.web != nil && !strings.Contains(tt.web.queries[0], "business plan") {
				t.Errorf("query = %q", tt.web.queries[0])
			}
		})
	}
}

func TestResearch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler testutil.TextHandler
	}{
		{"provider error", func(context.Context, provider.Request) (provider.Response, error) {
			return provider.Response{}, errors.New("timeout")
		}},
		{"garbage", func(context.Context, provider.Request) (provider.Response, error) {
			return provider.Response{Text: "no idea"}, nil
		}},
		{"empty report", func(context.Context, provider.Request) (provider.Response, error) {
			return provider.Response{Text: `{"summary": ""}`}, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeText().On(usage.AgentResearch, tt.handler)
			_, err := New(fake, nil, nil, nil).Research(context.Background(), brief)
			if !scerrors.IsSoft(err) {
				t.Errorf("error = %v, want a soft stage error", err)
			}
		})
	}
}

func TestEnrich(t *testing.T) {
	r := &document.ResearchReport{Summary: "Growing market.", KeyFacts: []string{"fact one"}, MarketData: []string{"$1B"}}

	got := Enrich(brief, r)
	for _, want := range []string{"Growing market.", "- fact one", "- $1B"} {
		if !strings.Contains(got.Context, want) {
			t.Errorf("Context missing %q:\n%s", want, got.Context)
		}
	}
	if brief.Context != "" {
		t.Error("Enrich must not modify its argument")
	}
	if Enrich(brief, nil) != brief {
		t.Error("nil report should return the brief unchanged")
	}

	withCtx := brief
	withCtx.Context = "Existing notes."
	if got := Enrich(withCtx, r); !strings.HasPrefix(got.Context, "Existing notes.\n\n") {
		t.Errorf("Context = %q", got.Context)
	}
}
