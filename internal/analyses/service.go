package analyses

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"biotech-backend/internal/companies"
	"biotech-backend/internal/edgar"
	"biotech-backend/internal/shared/metrics"
	"biotech-backend/internal/shared/telemetry"
)

// Dispatch modes. Background runs the pipeline in a goroutine detached from
// the request; inline blocks the caller until the job is terminal.
const (
	DispatchBackground = "background"
	DispatchInline     = "inline"
)

// Resolver maps a ticker to a zero-padded filer identifier.
type Resolver interface {
	Resolve(ctx context.Context, ticker string) (string, error)
}

// Fetcher retrieves filing text grouped by form type.
type Fetcher interface {
	FetchFilings(ctx context.Context, cik string, forms []string, lookbackDays int) map[string]string
}

// Service orchestrates analysis runs: it validates the company, resolves the
// filer identifier, creates the durable record, and walks the pipeline
// through its states. It is the only writer of analysis records.
type Service struct {
	Repo         Repo
	Companies    companies.Repo
	Resolver     Resolver
	Fetcher      Fetcher
	Engine       *Engine
	Reducer      *Reducer
	Dispatch     string
	LookbackDays int
}

// Start validates the request, resolves the company's filer identifier if it
// is not yet known, creates a pending analysis record, and dispatches the
// pipeline. Validation and resolution failures surface before any record is
// created, so a rejected request has no side effect beyond a committed CIK.
func (s *Service) Start(ctx context.Context, companyID string, forms []string) (Analysis, error) {
	if strings.TrimSpace(companyID) == "" {
		return Analysis{}, fmt.Errorf("%w: companyId is required", ErrValidation)
	}

	company, err := s.Companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, companies.ErrNotFound) {
			return Analysis{}, ErrCompanyNotFound
		}
		return Analysis{}, fmt.Errorf("load company: %w", err)
	}
	if strings.TrimSpace(company.Ticker) == "" {
		return Analysis{}, ErrTickerMissing
	}

	cik, err := s.ensureCIK(ctx, company)
	if err != nil {
		return Analysis{}, err
	}

	forms = normalizeForms(forms)
	now := time.Now().UTC()
	analysis := Analysis{
		ID:               uuid.NewString(),
		CompanyID:        company.ID,
		Status:           StatusPending,
		FilingsRequested: forms,
		FilingsAnalyzed:  []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, fmt.Errorf("create analysis: %w", err)
	}

	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.dispatched", map[string]any{
		"analysis_id": analysis.ID,
		"company_id":  company.ID,
		"ticker":      company.Ticker,
		"forms":       forms,
		"dispatch":    s.Dispatch,
	})

	if s.Dispatch == DispatchInline {
		s.run(ctx, analysis.ID, company, cik, forms)
	} else {
		go s.run(context.WithoutCancel(ctx), analysis.ID, company, cik, forms)
	}

	if current, err := s.Repo.GetByID(ctx, analysis.ID); err == nil {
		return current, nil
	}
	return analysis, nil
}

// ensureCIK returns the company's filer identifier, resolving and persisting
// it on first use.
func (s *Service) ensureCIK(ctx context.Context, company companies.Company) (string, error) {
	if company.CIK != nil && *company.CIK != "" {
		return *company.CIK, nil
	}

	cik, err := s.Resolver.Resolve(ctx, company.Ticker)
	if err != nil {
		switch {
		case errors.Is(err, edgar.ErrTickerNotFound):
			return "", ErrResolutionFailed
		case errors.Is(err, edgar.ErrDirectoryUnavailable):
			return "", ErrUpstreamUnavailable
		}
		return "", fmt.Errorf("resolve ticker %s: %w", company.Ticker, err)
	}

	if err := s.Companies.UpdateFields(ctx, company.ID, map[string]any{"cik": cik}); err != nil {
		return "", fmt.Errorf("persist cik for company %s: %w", company.ID, err)
	}
	telemetry.Info("analysis.cik_resolved", map[string]any{
		"company_id": company.ID,
		"ticker":     company.Ticker,
		"cik":        cik,
	})
	return cik, nil
}

// run walks one analysis through the pipeline. Intermediate status writes
// are advisory; only the terminal write is the durability contract, so a
// failed progress update logs and moves on while a failed terminal write
// marks the job failed.
func (s *Service) run(ctx context.Context, analysisID string, company companies.Company, cik string, forms []string) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, analysisID, CodeInternal, fmt.Sprintf("panic: %v", r))
		}
	}()

	runStart := time.Now()
	now := runStart.UTC()
	s.setStatus(ctx, analysisID, StatusStarted, map[string]any{"started_at": &now})
	s.setStatus(ctx, analysisID, StatusFetching, nil)

	docs := s.Fetcher.FetchFilings(ctx, cik, forms, s.LookbackDays)

	var verdict Verdict
	analyzed := []string{}
	if len(docs) == 0 {
		verdict = degradedVerdict(fmt.Sprintf(
			"No filings were found for %s within the lookback window, so there is no material to analyze. No buy signal can be derived.",
			company.Ticker,
		))
	} else {
		for form := range docs {
			analyzed = append(analyzed, form)
		}
		sort.Strings(analyzed)

		if s.Reducer != nil {
			docs = s.Reducer.ReduceAll(ctx, docs)
		}

		s.setStatus(ctx, analysisID, StatusAnalyzing, nil)
		verdict = s.Engine.Analyze(ctx, company.Name, docs, forms)
	}

	s.setStatus(ctx, analysisID, StatusSaving, nil)
	completedAt := time.Now().UTC()
	err := s.Repo.UpdateFields(ctx, analysisID, map[string]any{
		"status":           StatusCompleted,
		"result":           verdict,
		"filings_analyzed": analyzed,
		"completed_at":     &completedAt,
	})
	if err != nil {
		s.fail(ctx, analysisID, CodePersistence, sanitizeError(err.Error()))
		return
	}

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(time.Since(runStart).Milliseconds()))
	telemetry.Info("analysis.completed", map[string]any{
		"analysis_id": analysisID,
		"company_id":  company.ID,
		"forms":       analyzed,
		"duration_ms": time.Since(runStart).Milliseconds(),
	})
}

func (s *Service) setStatus(ctx context.Context, analysisID, status string, extra map[string]any) {
	fields := map[string]any{"status": status}
	for k, v := range extra {
		fields[k] = v
	}
	if err := s.Repo.UpdateFields(ctx, analysisID, fields); err != nil {
		telemetry.Warn("analysis.status_update_failed", map[string]any{
			"analysis_id": analysisID,
			"status":      status,
			"error":       err.Error(),
		})
		return
	}
	telemetry.Info("analysis.status", map[string]any{
		"analysis_id": analysisID,
		"status":      status,
	})
}

func (s *Service) fail(ctx context.Context, analysisID, code, message string) {
	now := time.Now().UTC()
	err := s.Repo.UpdateFields(ctx, analysisID, map[string]any{
		"status":        StatusFailed,
		"error_code":    code,
		"error_message": sanitizeError(message),
		"completed_at":  &now,
	})
	if err != nil {
		telemetry.Error("analysis.fail_write_failed", map[string]any{
			"analysis_id": analysisID,
			"error":       err.Error(),
		})
	}
	metrics.IncAnalysisFailed()
	telemetry.Error("analysis.failed", map[string]any{
		"analysis_id": analysisID,
		"error_code":  code,
		"error":       message,
	})
}

// Get returns the full analysis record.
func (s *Service) Get(ctx context.Context, analysisID string) (Analysis, error) {
	return s.Repo.GetByID(ctx, analysisID)
}

// GetStatus returns the compact poller view.
func (s *Service) GetStatus(ctx context.Context, analysisID string) (StatusSnapshot, error) {
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return analysis.Snapshot(), nil
}

// ListForCompany returns a company's analyses, newest first. The company
// must exist.
func (s *Service) ListForCompany(ctx context.Context, companyID string) ([]Analysis, error) {
	if _, err := s.Companies.GetByID(ctx, companyID); err != nil {
		if errors.Is(err, companies.ErrNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	return s.Repo.ListByCompany(ctx, companyID)
}

// FailStuck reclaims analyses stuck in a non-terminal state for longer than
// olderThan, marking them failed.
func (s *Service) FailStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	count, err := s.Repo.FailStuck(ctx, cutoff, CodeStuck, "analysis exceeded the maximum runtime and was reclaimed")
	if err != nil {
		return 0, err
	}
	if count > 0 {
		telemetry.Warn("analysis.stuck_reclaimed", map[string]any{
			"count":      count,
			"older_than": olderThan.String(),
		})
	}
	return count, nil
}

func normalizeForms(forms []string) []string {
	out := make([]string, 0, len(forms))
	seen := make(map[string]struct{}, len(forms))
	for _, form := range forms {
		form = strings.ToUpper(strings.TrimSpace(form))
		if form == "" {
			continue
		}
		if _, dup := seen[form]; dup {
			continue
		}
		seen[form] = struct{}{}
		out = append(out, form)
	}
	return out
}
