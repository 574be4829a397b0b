package domain

import (
	"context"
	"encoding/json"
)

// Generator is the contract for a text-generation provider.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// Schema is a JSON Schema the provider should constrain its output to.
type Schema struct {
	Name       string
	Definition json.RawMessage
}

// GenerateRequest is one provider call.
type GenerateRequest struct {
	System      string
	Prompt      string
	Schema      *Schema
	WebSearch   bool // ask the provider to ground the answer in live web results
	MaxTokens   int
	Temperature float32
}

// Citation is a source the provider reported for its answer.
type Citation struct {
	URL   string
	Title string
}

// GenerateResult is the provider's raw answer plus grounding metadata.
type GenerateResult struct {
	Text             string
	Citations        []Citation
	SearchQueries    []string
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens returns prompt plus completion tokens.
func (r GenerateResult) TotalTokens() int { return r.PromptTokens + r.CompletionTokens }
