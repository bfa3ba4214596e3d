package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PGRepo implements Repo using Postgres. Slice and verdict fields are stored
// as JSONB.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, company_id, status, filings_requested, filings_analyzed, result,
       error_code, error_message, task_id, created_at, started_at, completed_at, updated_at`

// Create inserts a new analysis record.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (
	id, company_id, status, filings_requested, filings_analyzed, result,
	error_code, error_message, task_id, created_at, started_at, completed_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	requested, err := json.Marshal(sliceOrEmpty(analysis.FilingsRequested))
	if err != nil {
		return fmt.Errorf("marshal filings_requested: %w", err)
	}
	analyzed, err := json.Marshal(sliceOrEmpty(analysis.FilingsAnalyzed))
	if err != nil {
		return fmt.Errorf("marshal filings_analyzed: %w", err)
	}
	var result any
	if analysis.Result != nil {
		result, err = json.Marshal(analysis.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	_, err = r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.CompanyID,
		analysis.Status,
		requested,
		analyzed,
		result,
		analysis.ErrorCode,
		analysis.ErrorMessage,
		analysis.TaskID,
		analysis.CreatedAt,
		analysis.StartedAt,
		analysis.CompletedAt,
		analysis.UpdatedAt,
	)
	return err
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1 LIMIT 1`
	analysis, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, analysisID))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return analysis, err
}

var allowedAnalysisColumns = map[string]struct{}{
	"status": {}, "filings_analyzed": {}, "result": {}, "error_code": {},
	"error_message": {}, "task_id": {}, "started_at": {}, "completed_at": {},
}

var jsonAnalysisColumns = map[string]struct{}{
	"filings_analyzed": {}, "result": {},
}

// UpdateFields applies a partial update to a non-terminal analysis. Terminal
// records are immutable; writes against them return ErrTerminal.
func (r *PGRepo) UpdateFields(ctx context.Context, analysisID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	idx := 1
	for column, value := range fields {
		if _, ok := allowedAnalysisColumns[column]; !ok {
			return fmt.Errorf("update field %q not allowed", column)
		}
		if _, ok := jsonAnalysisColumns[column]; ok {
			encoded, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", column, err)
			}
			value = encoded
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", idx))
	args = append(args, time.Now().UTC())
	idx++
	args = append(args, analysisID)

	query := fmt.Sprintf(
		"UPDATE analyses SET %s WHERE id = $%d AND status NOT IN ('completed', 'failed')",
		strings.Join(setClauses, ", "), idx,
	)
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var status string
		err := r.DB.QueryRowContext(ctx, `SELECT status FROM analyses WHERE id = $1`, analysisID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrTerminal
	}
	return nil
}

// ListByCompany returns a company's analyses, newest first.
func (r *PGRepo) ListByCompany(ctx context.Context, companyID string) ([]Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE company_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, analysis)
	}
	return out, rows.Err()
}

// FailStuck marks non-terminal analyses last updated before the cutoff as failed.
func (r *PGRepo) FailStuck(ctx context.Context, cutoff time.Time, errorCode, errorMessage string) (int, error) {
	const query = `
UPDATE analyses
SET status = 'failed', error_code = $1, error_message = $2, completed_at = $3, updated_at = $3
WHERE status NOT IN ('completed', 'failed') AND updated_at < $4`

	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, query, errorCode, errorMessage, now, cutoff)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var requested, analyzed, result []byte
	var errorCode, errorMessage, taskID sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.CompanyID, &a.Status, &requested, &analyzed, &result,
		&errorCode, &errorMessage, &taskID, &a.CreatedAt, &startedAt, &completedAt, &a.UpdatedAt,
	)
	if err != nil {
		return Analysis{}, err
	}

	if len(requested) > 0 {
		if err := json.Unmarshal(requested, &a.FilingsRequested); err != nil {
			return Analysis{}, fmt.Errorf("decode filings_requested: %w", err)
		}
	}
	if len(analyzed) > 0 {
		if err := json.Unmarshal(analyzed, &a.FilingsAnalyzed); err != nil {
			return Analysis{}, fmt.Errorf("decode filings_analyzed: %w", err)
		}
	}
	if len(result) > 0 {
		var v Verdict
		if err := json.Unmarshal(result, &v); err != nil {
			return Analysis{}, fmt.Errorf("decode result: %w", err)
		}
		a.Result = &v
	}
	if errorCode.Valid {
		a.ErrorCode = &errorCode.String
	}
	if errorMessage.Valid {
		a.ErrorMessage = &errorMessage.String
	}
	if taskID.Valid {
		a.TaskID = &taskID.String
	}
	if startedAt.Valid {
		a.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return a, nil
}

func sliceOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

var _ Repo = (*PGRepo)(nil)
