package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Analysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Analysis)}
}

// Create stores the analysis record.
func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[analysis.ID] = analysis
	return nil
}

// GetByID returns an analysis by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

// UpdateFields applies a partial update to a non-terminal analysis.
func (r *MemoryRepo) UpdateFields(ctx context.Context, analysisID string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return ErrNotFound
	}
	if IsTerminal(analysis.Status) {
		return ErrTerminal
	}
	applyFields(&analysis, fields)
	analysis.UpdatedAt = time.Now().UTC()
	r.byID[analysisID] = analysis
	return nil
}

// ListByCompany returns a company's analyses, newest first.
func (r *MemoryRepo) ListByCompany(ctx context.Context, companyID string) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := []Analysis{}
	for _, analysis := range r.byID {
		if analysis.CompanyID == companyID {
			out = append(out, analysis)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// FailStuck marks non-terminal analyses last updated before the cutoff as failed.
func (r *MemoryRepo) FailStuck(ctx context.Context, cutoff time.Time, errorCode, errorMessage string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	count := 0
	for id, analysis := range r.byID {
		if IsTerminal(analysis.Status) || !analysis.UpdatedAt.Before(cutoff) {
			continue
		}
		analysis.Status = StatusFailed
		analysis.ErrorCode = &errorCode
		analysis.ErrorMessage = &errorMessage
		analysis.CompletedAt = &now
		analysis.UpdatedAt = now
		r.byID[id] = analysis
		count++
	}
	return count, nil
}

func applyFields(analysis *Analysis, fields map[string]any) {
	for key, value := range fields {
		switch key {
		case "status":
			if v, ok := value.(string); ok {
				analysis.Status = v
			}
		case "filings_analyzed":
			if v, ok := value.([]string); ok {
				analysis.FilingsAnalyzed = v
			}
		case "result":
			switch v := value.(type) {
			case Verdict:
				analysis.Result = &v
			case *Verdict:
				analysis.Result = v
			}
		case "error_code":
			analysis.ErrorCode = toStringPtr(value)
		case "error_message":
			analysis.ErrorMessage = toStringPtr(value)
		case "task_id":
			analysis.TaskID = toStringPtr(value)
		case "started_at":
			analysis.StartedAt = toTimePtr(value)
		case "completed_at":
			analysis.CompletedAt = toTimePtr(value)
		}
	}
}

func toStringPtr(value any) *string {
	switch v := value.(type) {
	case string:
		return &v
	case *string:
		return v
	}
	return nil
}

func toTimePtr(value any) *time.Time {
	switch v := value.(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	}
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
