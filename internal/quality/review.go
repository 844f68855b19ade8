package quality

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/scribe/internal/document"
	"github.com/Iron-Ham/scribe/internal/errors"
	"github.com/Iron-Ham/scribe/internal/provider"
	"github.com/Iron-Ham/scribe/internal/router"
	"github.com/Iron-Ham/scribe/internal/structured"
	"github.com/Iron-Ham/scribe/internal/usage"
)

// Sub-score ceilings. They sum to 100.
const (
	MaxStructure = 25
	MaxStyle     = 25
	MaxContent   = 30
	MaxEmphasis  = 20
)

const reviewerSystemPrompt = `You are a strict editor reviewing one section of a professional
document. Respond with a single JSON object and nothing else.`

const reviewFormat = `Score the section on four dimensions:
- structure (0-%d): logical flow, headings, paragraphing
- style (0-%d): clarity, tone, concision
- content (0-%d): depth, concrete numbers, evidence
- emphasis (0-%d): key points highlighted, tables used where data is compared

Return JSON:
{"scores": {"structure": 0, "style": 0, "content": 0, "emphasis": 0},
 "total_score": 0,
 "verdict": "pass|revise|fail",
 "weaknesses": ["..."],
 "improvements": ["..."]}`

type rawScores struct {
	Structure float64 `json:"structure"`
	Style     float64 `json:"style"`
	Content   float64 `json:"content"`
	Emphasis  float64 `json:"emphasis"`
}

type rawReview struct {
	Scores       *rawScores `json:"scores"`
	SubScores    *rawScores `json:"sub_scores"`
	TotalScore   float64    `json:"total_score"`
	Score        float64    `json:"score"`
	Verdict      string     `json:"verdict"`
	Weaknesses   []string   `json:"weaknesses"`
	Improvements []string   `json:"improvements"`
}

// Reviewer scores sections with the standard-tier review agent.
type Reviewer struct {
	text     provider.TextGenerator
	recorder usage.Recorder
}

// NewReviewer creates a Reviewer recording usage into recorder.
func NewReviewer(text provider.TextGenerator, recorder usage.Recorder) *Reviewer {
	if recorder == nil {
		recorder = usage.Discard
	}
	return &Reviewer{text: text, recorder: recorder}
}

// Review scores one section. A malformed response is a *errors.ParseError.
func (r *Reviewer) Review(ctx context.Context, index int, task document.SectionTask, result document.SectionResult) (document.ReviewRecord, error) {
	tier := router.ReviewerModel()
	resp, err := r.text.GenerateText(ctx, provider.Request{
		Agent:        usage.AgentReviewer,
		Prompt:       buildReviewPrompt(task, result),
		SystemPrompt: reviewerSystemPrompt,
		Tier:         tier,
		MaxTokens:    800,
		Temperature:  0.2,
	})
	if err != nil {
		return document.ReviewRecord{}, errors.NewStageError("review", "reviewer call failed", err)
	}
	r.recorder.Record(usage.AgentReviewer, usage.Entry{
		SectionTitle: task.Title,
		Tier:         tier,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	})

	raw, err := structured.Decode[rawReview]("review", resp.Text)
	if err != nil {
		return document.ReviewRecord{}, err
	}
	rec := toRecord(raw)
	rec.SectionID = task.ID
	rec.Title = task.Title
	rec.Index = index
	return rec, nil
}

func toRecord(raw rawReview) document.ReviewRecord {
	scores := raw.Scores
	if scores == nil {
		scores = raw.SubScores
	}
	var sub document.SubScores
	if scores != nil {
		sub = document.SubScores{
			Structure: clamp(scores.Structure, MaxStructure),
			Style:     clamp(scores.Style, MaxStyle),
			Content:   clamp(scores.Content, MaxContent),
			Emphasis:  clamp(scores.Emphasis, MaxEmphasis),
		}
	}

	overall := sub.Sum()
	if overall == 0 {
		total := raw.TotalScore
		if total == 0 {
			total = raw.Score
		}
		overall = clamp(total, 100)
	}

	return document.ReviewRecord{
		Scores:       sub,
		Overall:      overall,
		Verdict:      parseVerdict(raw.Verdict, overall),
		Weaknesses:   raw.Weaknesses,
		Improvements: raw.Improvements,
	}
}

func clamp(v float64, ceiling int) int {
	switch {
	case v < 0:
		return 0
	case v > float64(ceiling):
		return ceiling
	default:
		return int(v + 0.5)
	}
}

// parseVerdict normalizes the reviewer's verdict, deriving one from the
// score when it is missing or unrecognized.
func parseVerdict(s string, overall int) document.Verdict {
	switch v := document.Verdict(strings.ToLower(strings.TrimSpace(s))); v {
	case document.VerdictPass, document.VerdictRevise, document.VerdictFail:
		return v
	}
	switch {
	case overall >= Threshold:
		return document.VerdictPass
	case overall >= 70:
		return document.VerdictRevise
	default:
		return document.VerdictFail
	}
}

func buildReviewPrompt(task document.SectionTask, result document.SectionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Section %s: %s\n", task.ID, task.Title)
	fmt.Fprintf(&b, "Target length: about %d words. Actual: %d words.\n", task.EstimatedWords, result.WordCount)
	if task.Requirements != "" {
		fmt.Fprintf(&b, "Requirements:\n%s\n", task.Requirements)
	}
	fmt.Fprintf(&b, "\n--- SECTION START ---\n%s\n--- SECTION END ---\n\n", result.Content)
	fmt.Fprintf(&b, reviewFormat, MaxStructure, MaxStyle, MaxContent, MaxEmphasis)
	return b.String()
}
