package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/metrics"
)

// GeneratorConfig holds the chat provider settings.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	User    string
	Logger  *zap.Logger
}

// Generator implements domain.Generator over the OpenAI-compatible chat API.
// It has no grounding tool: WebSearch is left to models that search on their own.
type Generator struct {
	client *openai.Client
	apiKey string
	model  string
	user   string
	logger *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client: newClient(cfg.APIKey, cfg.BaseURL),
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		user:   cfg.User,
		logger: logger,
	}
}

// Generate sends one chat completion. An attached schema becomes a strict
// json_schema response format.
func (g *Generator) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	if g.apiKey == "" {
		return domain.GenerateResult{}, fmt.Errorf("chat: api key not configured: %w", domain.ErrProviderPermanent)
	}

	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		User:        g.user,
	}
	if req.Schema != nil {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: req.Schema.Definition,
				Strict: true,
			},
		}
	}
	if req.WebSearch {
		g.logger.Debug("web search requested on a provider without a grounding tool", zap.String("model", g.model))
	}

	resp, err := g.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return domain.GenerateResult{}, classifyError("chat", err)
	}

	metrics.GenerationTokensTotal.WithLabelValues("openai", g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues("openai", g.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return domain.GenerateResult{}, fmt.Errorf("chat: no content in response: %w", domain.ErrEmptyResponse)
	}

	return domain.GenerateResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if g.apiKey == "" {
		return fmt.Errorf("chat: api key not configured: %w", domain.ErrProviderPermanent)
	}
	if _, err := g.client.ListModels(ctx); err != nil {
		return classifyError("list models", err)
	}
	return nil
}
