package analyses

import (
	"context"
	"time"
)

// Repo defines persistence operations for analysis records.
//
// UpdateFields must refuse writes to terminal records with ErrTerminal;
// the orchestrator is the only writer, so no further locking is required.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	UpdateFields(ctx context.Context, analysisID string, fields map[string]any) error
	ListByCompany(ctx context.Context, companyID string) ([]Analysis, error)
	// FailStuck marks non-terminal analyses last updated before the cutoff as
	// failed and returns how many were reclaimed.
	FailStuck(ctx context.Context, cutoff time.Time, errorCode, errorMessage string) (int, error)
}
