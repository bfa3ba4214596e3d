package analyses

import (
	"context"
	"errors"

	"biotech-backend/internal/llm"
	"biotech-backend/internal/shared/telemetry"
)

// Engine turns fetched filing text into a Verdict. It never returns an
// error: every backend failure category maps to a distinct degraded verdict
// so a dispatched analysis always reaches a terminal record.
type Engine struct {
	Client       llm.Client
	BudgetTokens int
}

// Analyze assembles the fetched categories under the token budget and asks
// the reasoning backend for a verdict. docs must be non-empty; the no-filings
// case is the orchestrator's degraded path, not the engine's.
func (e *Engine) Analyze(ctx context.Context, companyName string, docs map[string]string, requested []string) Verdict {
	input := assembleInput(docs, requested, e.BudgetTokens)

	raw, err := e.Client.AnalyzeFilings(ctx, llm.AnalyzeInput{
		CompanyName: companyName,
		FilingsText: input,
	})
	if err != nil {
		return e.degrade(companyName, err)
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		return e.degrade(companyName, errors.Join(llm.ErrMalformedResponse, err))
	}
	return verdict
}

func (e *Engine) degrade(companyName string, err error) Verdict {
	telemetry.Warn("analysis.engine_degraded", map[string]any{
		"company": companyName,
		"error":   err.Error(),
	})

	switch {
	case errors.Is(err, llm.ErrUnauthorized), errors.Is(err, llm.ErrNotConfigured):
		return degradedVerdict("Analysis unavailable: the reasoning backend rejected the request due to an authentication or configuration problem. No buy signal can be derived.")
	case errors.Is(err, llm.ErrTimeout):
		return degradedVerdict("Analysis unavailable: the reasoning backend timed out before producing a verdict. No buy signal can be derived.")
	case errors.Is(err, llm.ErrRateLimited):
		return degradedVerdict("Analysis unavailable: the reasoning backend rate limited the request. No buy signal can be derived.")
	case errors.Is(err, llm.ErrMalformedResponse):
		return degradedVerdict("Analysis unavailable: the reasoning backend returned a malformed response that could not be parsed into a verdict. No buy signal can be derived.")
	}
	return degradedVerdict("Analysis unavailable: the reasoning backend failed with an unexpected error. No buy signal can be derived.")
}
