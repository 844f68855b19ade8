// Package quality reviews writer output and rewrites weak sections in a
// bounded loop. The loop keeps the best-scoring version of the document seen
// so far and falls back to it if the final rewrite round makes things worse.
package quality

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/logging"
	"github.com/Iron-Ham/scribe/internal/progress"
	"github.com/Iron-Ham/scribe/internal/provider"
	"github.com/Iron-Ham/scribe/internal/usage"
)

// Loop limits.
const (
	Threshold        = 90
	MaxRewriteRounds = 2
	MaxPasses        = 1 + MaxRewriteRounds

	reviewConcurrency = 4
)

// Checklist is appended to the feedback of every rewritten section.
var Checklist = []string{
	"Support every claim with concrete numbers or evidence.",
	"Include at least one Markdown data table.",
	"Use **bold** to emphasize the key points.",
}

// Rewriter regenerates one section with feedback. writer.Pool implements it.
type Rewriter interface {
	Rewrite(ctx context.Context, index int, task document.SectionTask, feedback string, revision int) (document.SectionResult, error)
	Size() int
}

// Outcome is the result of the quality loop.
type Outcome struct {
	Sections []document.SectionResult
	Summary  document.ReviewSummary
}

// Gate runs the review and rewrite loop.
type Gate struct {
	reviewer *Reviewer
	rewriter Rewriter
	logger   *logging.Logger
	sink     progress.Sink
	runID    string
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithProgress reports review progress for runID to sink.
func WithProgress(runID string, sink progress.Sink) Option {
	return func(g *Gate) {
		g.runID = runID
		g.sink = sink
	}
}

// New creates a Gate that reviews with text and rewrites with rw.
func New(text provider.TextGenerator, rw Rewriter, recorder usage.Recorder, opts ...Option) *Gate {
	g := &Gate{
		reviewer: NewReviewer(text, recorder),
		rewriter: rw,
		logger:   logging.NopLogger(),
		sink:     progress.Nop{},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.WithAgent(usage.AgentReviewer)
	return g
}

// Run reviews results (aligned with tasks) and rewrites flagged sections.
// The first pass reviews the whole sample; later passes re-review only the
// sections flagged in the pass before. The mean is taken over the latest
// record of every reviewed section. The returned sections are a new slice;
// results is not modified.
func (g *Gate) Run(ctx context.Context, tasks []document.SectionTask, results []document.SectionResult) (*Outcome, error) {
	current := append([]document.SectionResult(nil), results...)
	sample := Sample(tasks)
	summary := document.ReviewSummary{Sampled: sample}

	var (
		bestScore    = -1.0
		bestSnapshot []document.SectionResult
		latest       = make(map[int]document.ReviewRecord, len(sample))
		pending      = sample
	)

	for pass := 1; pass <= MaxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g.sink.UpdateAgent(g.runID, usage.AgentReviewer, progress.AgentUpdate{
			Status:   progress.StatusRunning,
			Progress: float64(pass-1) / MaxPasses * 100,
			Detail:   fmt.Sprintf("pass %d/%d, %d sections", pass, MaxPasses, len(pending)),
		})

		records := g.reviewPass(ctx, pass, pending, tasks, current)
		summary.Passes = pass
		summary.Records = append(summary.Records, records...)
		if len(records) == 0 {
			g.logger.Warn("no reviews succeeded, keeping best version", "pass", pass)
			if bestSnapshot != nil {
				current = bestSnapshot
				summary.FinalScore = bestScore
			}
			break
		}
		for _, rec := range records {
			latest[rec.Index] = rec
		}

		mean := meanScore(carried(sample, latest))
		summary.FinalScore = mean
		g.logger.Info("review pass scored", "pass", pass, "mean", mean, "reviewed", len(records))

		if mean > bestScore {
			bestScore = mean
			bestSnapshot = append([]document.SectionResult(nil), current...)
		}

		if mean >= Threshold {
			break
		}
		if pass == MaxPasses {
			if mean < bestScore {
				g.logger.Info("final pass regressed, restoring best version", "mean", mean, "best", bestScore)
				current = bestSnapshot
				summary.FinalScore = bestScore
				summary.Restored = true
			}
			break
		}

		flagged := Flag(records, tasks)
		if len(flagged) == 0 {
			break
		}
		summary.Rewrites += len(flagged)
		g.rewrite(ctx, flagged, tasks, current)

		pending = make([]int, 0, len(flagged))
		for _, f := range flagged {
			pending = append(pending, f.Index)
		}
	}

	if bestScore >= 0 {
		summary.BestScore = bestScore
	}
	g.sink.UpdateAgent(g.runID, usage.AgentReviewer, progress.AgentUpdate{
		Status:   progress.StatusCompleted,
		Progress: 100,
		Detail:   fmt.Sprintf("score %.1f after %d passes, %d rewrites", summary.FinalScore, summary.Passes, summary.Rewrites),
	})
	return &Outcome{Sections: current, Summary: summary}, nil
}

// carried returns the latest record of each sampled section in sample order.
// Sections whose review never succeeded are left out.
func carried(sample []int, latest map[int]document.ReviewRecord) []document.ReviewRecord {
	out := make([]document.ReviewRecord, 0, len(latest))
	for _, idx := range sample {
		if rec, ok := latest[idx]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// reviewPass reviews the given sections concurrently. Failed reviews are
// dropped; the rest are returned in input order.
func (g *Gate) reviewPass(ctx context.Context, pass int, indices []int, tasks []document.SectionTask, current []document.SectionResult) []document.ReviewRecord {
	slots := make([]*document.ReviewRecord, len(indices))

	p := pool.New().WithMaxGoroutines(reviewConcurrency)
	for k, idx := range indices {
		p.Go(func() {
			rec, err := g.reviewer.Review(ctx, idx, tasks[idx], current[idx])
			if err != nil {
				g.logger.WithSection(tasks[idx].ID).Warn("review dropped", "pass", pass, "error", err)
				return
			}
			rec.Pass = pass
			slots[k] = &rec
		})
	}
	p.Wait()

	var records []document.ReviewRecord
	for _, rec := range slots {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

// Flagged is a section chosen for rewrite with its collected feedback.
type Flagged struct {
	Index    int
	Feedback string
}

// Flag returns the sections to rewrite: every record scoring below
// Threshold or without a pass verdict, mapped back to its task by title.
func Flag(records []document.ReviewRecord, tasks []document.SectionTask) []Flagged {
	var out []Flagged
	seen := make(map[int]bool)
	for _, rec := range records {
		if rec.Overall >= Threshold && rec.Verdict == document.VerdictPass {
			continue
		}
		idx := indexByTitle(tasks, rec.Title, rec.Index)
		if idx < 0 || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, Flagged{Index: idx, Feedback: Feedback(rec)})
	}
	return out
}

func indexByTitle(tasks []document.SectionTask, title string, fallback int) int {
	for i, t := range tasks {
		if t.Title == title {
			return i
		}
	}
	if fallback >= 0 && fallback < len(tasks) {
		return fallback
	}
	return -1
}

// Feedback renders a review as rewrite guidance followed by the checklist.
func Feedback(rec document.ReviewRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Previous score: %d/100 (%s).\n", rec.Overall, rec.Verdict)
	if len(rec.Weaknesses) > 0 {
		b.WriteString("Weaknesses:\n")
		for _, w := range rec.Weaknesses {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	if len(rec.Improvements) > 0 {
		b.WriteString("Improvements:\n")
		for _, s := range rec.Improvements {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	b.WriteString("Checklist:\n")
	for _, c := range Checklist {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	return b.String()
}

// rewrite regenerates the flagged sections in place. A failed rewrite keeps
// the previous content.
func (g *Gate) rewrite(ctx context.Context, flagged []Flagged, tasks []document.SectionTask, current []document.SectionResult) {
	p := pool.New().WithMaxGoroutines(max(g.rewriter.Size(), 1))
	for _, f := range flagged {
		p.Go(func() {
			res, err := g.rewriter.Rewrite(ctx, f.Index, tasks[f.Index], f.Feedback, current[f.Index].Revision+1)
			if err != nil {
				g.logger.WithSection(tasks[f.Index].ID).Warn("rewrite failed, keeping previous version", "error", err)
				return
			}
			current[f.Index] = res
		})
	}
	p.Wait()
}

func meanScore(records []document.ReviewRecord) float64 {
	sum := 0
	for _, r := range records {
		sum += r.Overall
	}
	return float64(sum) / float64(len(records))
}
