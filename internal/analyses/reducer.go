package analyses

import (
	"context"
	"fmt"
	"strings"

	"biotech-backend/internal/llm"
	"biotech-backend/internal/shared/telemetry"
)

// maxSummaryInputChars bounds how much of a category's text is sent to the
// summarizer.
const maxSummaryInputChars = 12000

// Reducer compresses each fetched category into a shorter summary before
// analysis. It is optional; a nil Reducer means raw text feeds the engine.
type Reducer struct {
	Client llm.Client
}

// ReduceAll summarizes every category. A failed summary is replaced by a
// bracketed placeholder so one bad document never aborts the batch.
func (r *Reducer) ReduceAll(ctx context.Context, docs map[string]string) map[string]string {
	out := make(map[string]string, len(docs))
	for form, text := range docs {
		out[form] = r.reduce(ctx, form, text)
	}
	return out
}

func (r *Reducer) reduce(ctx context.Context, form, text string) string {
	date := extractFilingDate(text)
	text = truncateChars(text, maxSummaryInputChars)

	summary, err := r.Client.SummarizeFiling(ctx, llm.SummarizeInput{
		FilingType: form,
		FilingDate: date,
		Text:       text,
	})
	if err != nil {
		telemetry.Warn("analysis.summary_failed", map[string]any{
			"form":  form,
			"error": err.Error(),
		})
		return fmt.Sprintf("[Summary unavailable for %s filing: %s]", form, sanitizeError(err.Error()))
	}
	return fmt.Sprintf("--- %s SUMMARY ---\n\n%s", form, summary)
}

// extractFilingDate pulls the first filing date out of the concatenation
// header the fetcher writes.
func extractFilingDate(text string) string {
	const marker = "FILING DATE: "
	idx := strings.Index(text, marker)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(marker):]
	if len(rest) < 10 {
		return ""
	}
	return rest[:10]
}
