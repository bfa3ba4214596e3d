package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Client abstracts LLM providers for filing analysis and summarization.
type Client interface {
	AnalyzeFilings(ctx context.Context, input AnalyzeInput) (json.RawMessage, error)
	SummarizeFiling(ctx context.Context, input SummarizeInput) (string, error)
}

// AnalyzeInput captures the inputs needed for a filing analysis request.
type AnalyzeInput struct {
	CompanyName string
	FilingsText string
}

// SummarizeInput captures the inputs for a single-filing summary request.
type SummarizeInput struct {
	FilingType string
	FilingDate string
	Text       string
}

// Sentinel errors used to classify provider failures. Providers wrap these
// with %w so callers can map them to distinct degraded outcomes.
var (
	ErrUnauthorized      = errors.New("llm unauthorized")
	ErrRateLimited       = errors.New("llm rate limited")
	ErrTimeout           = errors.New("llm timeout")
	ErrMalformedResponse = errors.New("llm malformed response")
)

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm client not configured")

// PlaceholderClient is a stub implementation used when no provider is wired.
type PlaceholderClient struct{}

// AnalyzeFilings returns ErrNotConfigured.
func (PlaceholderClient) AnalyzeFilings(ctx context.Context, input AnalyzeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, ErrNotConfigured
}

// SummarizeFiling returns ErrNotConfigured.
func (PlaceholderClient) SummarizeFiling(ctx context.Context, input SummarizeInput) (string, error) {
	_ = ctx
	_ = input
	return "", ErrNotConfigured
}
