package provider

import (
	"context"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Iron-Ham/scribe/internal/errors"
)

const providerOpenAI = "openai"

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Models     Models
	ImageModel string
	Timeout    time.Duration
}

// OpenAI implements TextGenerator and ImageGenerator on the chat completions
// and images endpoints. The SDK's own retries are disabled; a failed call
// fails its caller.
type OpenAI struct {
	client     openai.Client
	models     Models
	imageModel string
}

var (
	_ TextGenerator  = (*OpenAI)(nil)
	_ ImageGenerator = (*OpenAI)(nil)
)

// NewOpenAI builds the client. An API key and a standard-tier model are required.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.NewProviderError("api key missing", errors.ErrProviderUnavailable).WithProvider(providerOpenAI)
	}
	if cfg.Models.Resolve("") == "" {
		return nil, errors.NewProviderError("no standard tier model configured", errors.ErrInvalidInput).WithProvider(providerOpenAI)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = string(openai.ImageModelDallE3)
	}

	return &OpenAI{
		client:     openai.NewClient(opts...),
		models:     cfg.Models,
		imageModel: imageModel,
	}, nil
}

// GenerateText runs one chat completion.
func (o *OpenAI) GenerateText(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = o.models.Resolve(req.Tier)
	}

	var msgs []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, wrapOpenAIError("chat completion failed", model, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Response{}, errors.NewProviderError("chat completion returned no content", errors.ErrEmptyResponse).
			WithProvider(providerOpenAI).WithModel(model)
	}

	return Response{
		Text:  resp.Choices[0].Message.Content,
		Model: model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// GenerateImage renders a single image and returns its hosted URL.
func (o *OpenAI) GenerateImage(ctx context.Context, prompt, category string) (GeneratedImage, error) {
	resp, err := o.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(o.imageModel),
		N:      openai.Int(1),
	})
	if err != nil {
		return GeneratedImage{}, wrapOpenAIError("image generation failed", o.imageModel, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return GeneratedImage{}, errors.NewProviderError("image generation returned no image", errors.ErrEmptyResponse).
			WithProvider(providerOpenAI).WithModel(o.imageModel)
	}
	return GeneratedImage{
		URL:           resp.Data[0].URL,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
	}, nil
}

func wrapOpenAIError(message, model string, err error) error {
	perr := errors.NewProviderError(message, err).WithProvider(providerOpenAI).WithModel(model)
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		perr = perr.WithStatusCode(apiErr.StatusCode)
	} else if errors.Is(err, context.DeadlineExceeded) {
		perr = perr.WithRetryable(true)
	}
	return perr
}
