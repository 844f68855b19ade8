// Package provider defines the external capabilities the generation pipeline
// consumes (text generation, photo search, image generation, web search) and
// ships HTTP-backed implementations of each.
package provider

import (
	"context"

	"github.com/Iron-Ham/scribe/internal/router"
)

// Usage is the token accounting returned with every text generation.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Request is a single text generation call. Model overrides the model that
// Tier would otherwise resolve to. Agent names the caller for logging and
// for test doubles.
type Request struct {
	Agent        string
	Prompt       string
	SystemPrompt string
	Tier         router.Tier
	Model        string
	MaxTokens    int
	Temperature  float64
}

// Response is the result of a text generation call.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// TextGenerator produces text from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, req Request) (Response, error)
}

// Photo is a stock photo search hit.
type Photo struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
	Credit  string `json:"credit,omitempty"`
}

// ImageSearcher finds existing photos. An empty result is not an error.
type ImageSearcher interface {
	SearchImages(ctx context.Context, keywords []string, count int) ([]Photo, error)
}

// GeneratedImage is the output of an image generation call.
type GeneratedImage struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// ImageGenerator renders a new image for a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, category string) (GeneratedImage, error)
}

// WebResult is a web search hit used for research enrichment.
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearcher runs a web query.
type WebSearcher interface {
	SearchWeb(ctx context.Context, query string) ([]WebResult, error)
}

// Models maps tiers to concrete model names.
type Models map[router.Tier]string

// Resolve returns the model for tier, falling back to the standard tier's
// model when tier is not mapped.
func (m Models) Resolve(tier router.Tier) string {
	if name, ok := m[tier]; ok && name != "" {
		return name
	}
	return m[router.TierStandard]
}
