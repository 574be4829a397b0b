// Package anthropic implements domain.Generator over the Anthropic Messages API,
// with optional grounding through the server-side web search tool.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/metrics"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 2048
	webSearchMaxUses = 5
)

// Config holds the Anthropic provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// Generator calls the Messages API once per Generate; retries belong to the caller.
type Generator struct {
	client anthropic.Client
	apiKey string
	model  string
	logger *zap.Logger
}

// NewGenerator creates an Anthropic generator.
func NewGenerator(cfg *Config) *Generator {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Generator{
		client: anthropic.NewClient(opts...),
		apiKey: cfg.APIKey,
		model:  model,
		logger: logger,
	}
}

// HealthCheck reports whether the provider is configured. It makes no API
// call, since every Messages request is billed.
func (g *Generator) HealthCheck(_ context.Context) error {
	if g.apiKey == "" {
		return fmt.Errorf("anthropic: api key not configured: %w", domain.ErrProviderPermanent)
	}
	return nil
}

// Generate sends one message. A schema is described in the system prompt; the
// Messages API has no constrained decoding, so the caller still extracts defensively.
func (g *Generator) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	if g.apiKey == "" {
		return domain.GenerateResult{}, fmt.Errorf("messages: api key not configured: %w", domain.ErrProviderPermanent)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if system := systemPrompt(req); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}

	var opts []option.RequestOption
	if req.WebSearch {
		opts = append(opts, option.WithJSONSet("tools", []map[string]any{{
			"type":     "web_search_20250305",
			"name":     "web_search",
			"max_uses": webSearchMaxUses,
		}}))
	}

	resp, err := g.client.Messages.New(ctx, params, opts...)
	if err != nil {
		return domain.GenerateResult{}, classifyError(err)
	}

	metrics.GenerationTokensTotal.WithLabelValues("anthropic", g.model, "prompt").Add(float64(resp.Usage.InputTokens))
	metrics.GenerationTokensTotal.WithLabelValues("anthropic", g.model, "completion").Add(float64(resp.Usage.OutputTokens))

	res := domain.GenerateResult{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}

	var text strings.Builder
	seen := map[string]bool{}
	for _, block := range resp.Content {
		raw := block.RawJSON()
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
			for _, c := range textCitations(raw) {
				if c.URL != "" && !seen[c.URL] {
					seen[c.URL] = true
					res.Citations = append(res.Citations, c)
				}
			}
		case "server_tool_use":
			if q := searchQuery(raw); q != "" {
				res.SearchQueries = append(res.SearchQueries, q)
			}
		case "web_search_tool_result":
			for _, c := range searchResults(raw) {
				if c.URL != "" && !seen[c.URL] {
					seen[c.URL] = true
					res.Citations = append(res.Citations, c)
				}
			}
		}
	}

	res.Text = text.String()
	if strings.TrimSpace(res.Text) == "" {
		return domain.GenerateResult{}, fmt.Errorf("messages: no text in response (stop_reason %s): %w",
			resp.StopReason, domain.ErrEmptyResponse)
	}

	g.logger.Debug("anthropic response",
		zap.Int("citations", len(res.Citations)),
		zap.Int("search_queries", len(res.SearchQueries)),
		zap.Int("total_tokens", res.TotalTokens()))

	return res, nil
}

func systemPrompt(req domain.GenerateRequest) string {
	if req.Schema == nil {
		return req.System
	}
	var b strings.Builder
	if req.System != "" {
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	b.WriteString("Respond with a single JSON object matching this JSON Schema and nothing else:\n")
	b.Write(req.Schema.Definition)
	return b.String()
}

type citationJSON struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func textCitations(raw string) []domain.Citation {
	var block struct {
		Citations []citationJSON `json:"citations"`
	}
	if json.Unmarshal([]byte(raw), &block) != nil {
		return nil
	}
	return toCitations(block.Citations)
}

func searchResults(raw string) []domain.Citation {
	var block struct {
		Content json.RawMessage `json:"content"`
	}
	if json.Unmarshal([]byte(raw), &block) != nil {
		return nil
	}
	// content is an error object when the search itself failed
	var results []citationJSON
	if json.Unmarshal(block.Content, &results) != nil {
		return nil
	}
	return toCitations(results)
}

func searchQuery(raw string) string {
	var block struct {
		Name  string `json:"name"`
		Input struct {
			Query string `json:"query"`
		} `json:"input"`
	}
	if json.Unmarshal([]byte(raw), &block) != nil || block.Name != "web_search" {
		return ""
	}
	return strings.TrimSpace(block.Input.Query)
}

func toCitations(in []citationJSON) []domain.Citation {
	out := make([]domain.Citation, 0, len(in))
	for _, c := range in {
		out = append(out, domain.Citation{URL: strings.TrimSpace(c.URL), Title: strings.TrimSpace(c.Title)})
	}
	return out
}

// classifyError maps SDK failures onto the provider error taxonomy.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("messages: %w", err)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("messages API error %d: %w", apiErr.StatusCode, domain.ErrorForStatus(apiErr.StatusCode))
	}
	if domain.IsDecodeError(err) {
		return fmt.Errorf("messages: undecodable response: %v: %w", err, domain.ErrMalformedResponse)
	}
	return fmt.Errorf("messages request failed: %v: %w", err, domain.ErrNetwork)
}
