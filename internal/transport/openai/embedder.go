package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/metrics"
)

// Config holds the embedding provider settings. Any OpenAI-compatible
// endpoint works (Nebius, vLLM, Ollama).
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Logger     *zap.Logger
}

// Embedder turns a search phrase into a single query vector.
type Embedder struct {
	client *openai.Client
	req    openai.EmbeddingRequest
	logger *zap.Logger
}

// NewEmbedder builds an embedder. Dimensions of zero lets the model choose.
func NewEmbedder(cfg *Config) *Embedder {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Embedder{
		client: newClient(cfg.APIKey, cfg.BaseURL),
		req: openai.EmbeddingRequest{
			Model:          openai.EmbeddingModel(cfg.Model),
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
			Dimensions:     cfg.Dimensions,
			User:           cfg.User,
		},
		logger: log,
	}
}

// Embed makes one CreateEmbeddings call. Retries and budgets are layered on
// top by the embedding use case.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := e.req
	req.Input = []string{text}
	model := string(req.Model)

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		e.fail(model, "api_error")
		return domain.EmbeddingResult{}, classifyError("embedding", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		e.fail(model, "empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("embedding: no vector in response: %w", domain.ErrEmptyResponse)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if n := resp.Usage.TotalTokens; n > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(model).Add(float64(n))
	}

	vec := resp.Data[0].Embedding
	e.logger.Debug("embedding created", zap.Int("dimensions", len(vec)), zap.Int("tokens", resp.Usage.TotalTokens))
	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

func (e *Embedder) fail(model, reason string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(model, reason).Inc()
}

// HealthCheck lists models, which is not billed.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return classifyError("list models", err)
	}
	return nil
}
