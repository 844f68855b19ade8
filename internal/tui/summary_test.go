package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/usage"
)

func TestRenderSummary(t *testing.T) {
	b := &document.Bundle{
		Brief: document.Brief{Title: "Smart Farm"},
		Sections: []document.SectionResult{
			{SectionID: "1", WordCount: 120},
			{SectionID: "2", WordCount: 80},
		},
		Images: []document.SectionImages{
			{SectionID: "1", Images: []document.ImageRecord{{URL: "a"}}},
			{SectionID: "2", Images: []document.ImageRecord{}},
		},
		Reviews: document.ReviewSummary{Passes: 2, Rewrites: 1, FinalScore: 92.5},
		Metadata: document.Metadata{
			RunID:   "run-1",
			Elapsed: 1500 * time.Millisecond,
			Stages:  map[string]document.StageStatus{"research": document.StageSkipped, "images": document.StageCompleted},
			Usage: usage.Summary{Total: usage.Totals{
				InputTokens:  12000,
				OutputTokens: 3000,
				Cost:         0.0123,
			}},
			Optimization: usage.OptimizationReport{CostStatus: usage.StatusOK, CostStatusNote: "within target"},
		},
	}

	out := RenderSummary(b, []string{"out/document.md", "out/bundle.json"}, 80)
	for _, want := range []string{
		"Smart Farm",
		"run-1",
		"2 (200 words)",
		"score 92.5, 2 passes, 1 rewrites",
		"15.0K",
		"$0.0123",
		"within target",
		"1.5s",
		"images=completed research=skipped",
		"out/document.md",
		"out/bundle.json",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderSummary() missing %q\n%s", want, out)
		}
	}
}
