package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/bookscout/internal/domain"
)

func newClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// classifyError turns a go-openai error into one wrapping a domain provider
// sentinel, so the retry layer can tell transient failures from permanent ones.
func classifyError(op string, err error) error {
	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case errors.As(err, &apiErr):
		return statusError(op, apiErr.HTTPStatusCode, apiErr.Message)
	case errors.As(err, &reqErr):
		msg := extractDetail(reqErr.Body)
		if msg == "" {
			msg = string(reqErr.Body)
		}
		return statusError(op, reqErr.HTTPStatusCode, msg)
	case domain.IsDecodeError(err):
		return fmt.Errorf("%s: undecodable response: %v: %w", op, err, domain.ErrMalformedResponse)
	default:
		return fmt.Errorf("%s request failed: %v: %w", op, err, domain.ErrNetwork)
	}
}

func statusError(op string, status int, msg string) error {
	return fmt.Errorf("%s API error %d: %s: %w", op, status, msg, domain.ErrorForStatus(status))
}

// extractDetail reads the {"detail": "..."} body some compatible servers
// (Nebius, vLLM) return instead of the OpenAI error object.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return parsed.Detail
}
