package imagery

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

const analyzerSystemPrompt = `You decide which images a document section needs. Respond with a
single JSON object and nothing else.`

const analyzerFormat = `Return JSON:
{"needs_images": true,
 "images": [{"type": "photo|architecture|flowchart|chart|workflow",
             "method": "search|generate",
             "placement": "top|middle|bottom",
             "keywords": ["english", "search", "terms"],
             "prompt": "image generation prompt for diagrams",
             "caption": "short caption"}]}
Use "search" for photos and "generate" for diagrams. Use at most %d images.`

// maxContentChars bounds how much of a section is shown to the analyzer.
const maxContentChars = 1500

// Plan is the analyzer's decision for one image slot.
type Plan struct {
	Type      string   `json:"type"`
	Method    string   `json:"method"`
	Placement string   `json:"placement"`
	Keywords  []string `json:"keywords"`
	Prompt    string   `json:"prompt"`
	Caption   string   `json:"caption"`
}

type analysis struct {
	NeedsImages *bool  `json:"needs_images"`
	Images      []Plan `json:"images"`
}

// Analyzer asks the economy-tier model what imagery a section needs.
type Analyzer struct {
	text       provider.TextGenerator
	recorder   usage.Recorder
	perSection int
}

// NewAnalyzer creates an Analyzer allowing at most perSection images.
func NewAnalyzer(text provider.TextGenerator, recorder usage.Recorder, perSection int) *Analyzer {
	if recorder == nil {
		recorder = usage.Discard
	}
	if perSection < 1 {
		perSection = 1
	}
	return &Analyzer{text: text, recorder: recorder, perSection: perSection}
}

// Analyze returns the image plans for a section. An empty slice means no
// images are needed.
func (a *Analyzer) Analyze(ctx context.Context, task document.SectionTask, result document.SectionResult) ([]Plan, error) {
	tier := router.ImageAnalyzerModel()
	resp, err := a.text.GenerateText(ctx, provider.Request{
		Agent:        usage.AgentImageAnalyzer,
		Prompt:       a.buildPrompt(task, result),
		SystemPrompt: analyzerSystemPrompt,
		Tier:         tier,
		MaxTokens:    500,
		Temperature:  0.3,
	})
	if err != nil {
		return nil, errors.NewStageError("images", "image analysis failed", err)
	}
	a.recorder.Record(usage.AgentImageAnalyzer, usage.Entry{
		SectionTitle: task.Title,
		Tier:         tier,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	})

	raw, err := structured.Decode[analysis]("image analysis", resp.Text)
	if err != nil {
		return nil, err
	}
	if raw.NeedsImages != nil && !*raw.NeedsImages {
		return nil, nil
	}

	var plans []Plan
	for i, p := range raw.Images {
		if len(plans) == a.perSection {
			break
		}
		plans = append(plans, normalizePlan(p, i))
	}
	return plans, nil
}

var placements = []string{document.PlacementTop, document.PlacementMiddle, document.PlacementBottom}

func normalizePlan(p Plan, i int) Plan {
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	switch p.Type {
	case document.ImagePhoto, document.ImageArchitecture, document.ImageFlowchart, document.ImageChart, document.ImageWorkflow:
	default:
		p.Type = document.ImagePhoto
	}

	p.Method = strings.ToLower(strings.TrimSpace(p.Method))
	if p.Method != document.MethodSearch && p.Method != document.MethodGenerate {
		if p.Type == document.ImagePhoto {
			p.Method = document.MethodSearch
		} else {
			p.Method = document.MethodGenerate
		}
	}

	p.Placement = strings.ToLower(strings.TrimSpace(p.Placement))
	switch p.Placement {
	case document.PlacementTop, document.PlacementMiddle, document.PlacementBottom:
	default:
		p.Placement = placements[i%len(placements)]
	}

	var kws []string
	for _, k := range p.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	p.Keywords = kws
	return p
}

func (a *Analyzer) buildPrompt(task document.SectionTask, result document.SectionResult) string {
	content := result.Content
	if r := []rune(content); len(r) > maxContentChars {
		content = string(r[:maxContentChars])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Section: %s\n\n%s\n\n", task.Title, content)
	fmt.Fprintf(&b, analyzerFormat, a.perSection)
	return b.String()
}
