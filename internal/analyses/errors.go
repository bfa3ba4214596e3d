package analyses

import "errors"

// Sentinel errors surfaced by Start and the read paths.
var (
	ErrValidation          = errors.New("invalid analysis request")
	ErrNotFound            = errors.New("analysis not found")
	ErrCompanyNotFound     = errors.New("company not found")
	ErrTickerMissing       = errors.New("company has no ticker")
	ErrResolutionFailed    = errors.New("ticker could not be resolved to a filer identifier")
	ErrUpstreamUnavailable = errors.New("filer identifier directory unavailable")
	ErrTerminal            = errors.New("analysis is terminal and immutable")
)

// Error codes persisted on failed analyses and rendered in API error bodies.
const (
	CodeValidation  = "validation_error"
	CodeNotFound    = "not_found"
	CodeResolution  = "resolution_failed"
	CodeUpstream    = "upstream_unavailable"
	CodePersistence = "persistence_error"
	CodeStuck       = "stuck_timeout"
	CodeInternal    = "internal_error"
)

// sanitizeError caps persisted error text so a huge upstream body cannot
// bloat the record.
func sanitizeError(msg string) string {
	const max = 500
	if len(msg) > max {
		return msg[:max]
	}
	return msg
}
