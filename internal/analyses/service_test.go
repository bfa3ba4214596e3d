package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"biotech-backend/internal/companies"
	"biotech-backend/internal/edgar"
	"biotech-backend/internal/llm"
)

type stubResolver struct {
	cik   string
	err   error
	calls int
}

func (s *stubResolver) Resolve(ctx context.Context, ticker string) (string, error) {
	_ = ctx
	_ = ticker
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.cik, nil
}

type stubFetcher struct {
	docs map[string]string
}

func (s *stubFetcher) FetchFilings(ctx context.Context, cik string, forms []string, lookbackDays int) map[string]string {
	_ = ctx
	_ = cik
	_ = forms
	_ = lookbackDays
	return s.docs
}

type stubLLM struct {
	raw        string
	analyzeErr error
	summary    string
	summaryErr error
}

func (s *stubLLM) AnalyzeFilings(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	if s.analyzeErr != nil {
		return nil, s.analyzeErr
	}
	return json.RawMessage(s.raw), nil
}

func (s *stubLLM) SummarizeFiling(ctx context.Context, input llm.SummarizeInput) (string, error) {
	_ = ctx
	_ = input
	if s.summaryErr != nil {
		return "", s.summaryErr
	}
	return s.summary, nil
}

type testEnv struct {
	service   *Service
	repo      *MemoryRepo
	companies *companies.MemoryRepo
	resolver  *stubResolver
	fetcher   *stubFetcher
	llm       *stubLLM
	companyID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	companyRepo := companies.NewMemoryRepo()
	company := companies.Company{
		ID:        "company-1",
		Ticker:    "BIIB",
		Name:      "Biogen Inc",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := companyRepo.Create(context.Background(), company); err != nil {
		t.Fatalf("create company: %v", err)
	}

	repo := NewMemoryRepo()
	resolver := &stubResolver{cik: "0000875045"}
	fetcher := &stubFetcher{docs: map[string]string{"10-K": "--- 10-K FILING DATE: 2026-02-11 ---\n\nannual report text"}}
	client := &stubLLM{raw: `{"stock_expected_to_go_up": true, "expected_by_date": "2026-12-31", "is_good_buy": true, "reasoning": "late-stage pipeline looks strong"}`}

	service := &Service{
		Repo:         repo,
		Companies:    companyRepo,
		Resolver:     resolver,
		Fetcher:      fetcher,
		Engine:       &Engine{Client: client, BudgetTokens: 32000},
		Dispatch:     DispatchInline,
		LookbackDays: 365,
	}
	return &testEnv{
		service:   service,
		repo:      repo,
		companies: companyRepo,
		resolver:  resolver,
		fetcher:   fetcher,
		llm:       client,
		companyID: company.ID,
	}
}

func TestStartHappyPath(t *testing.T) {
	env := newTestEnv(t)

	analysis, err := env.service.Start(context.Background(), env.companyID, []string{"10-K"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if analysis.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", analysis.Status)
	}
	if analysis.Result == nil || !analysis.Result.GoodBuy {
		t.Fatalf("result = %+v, want good buy verdict", analysis.Result)
	}
	if analysis.Result.ExpectedByDate == nil || *analysis.Result.ExpectedByDate != "2026-12-31" {
		t.Fatalf("date = %v, want 2026-12-31", analysis.Result.ExpectedByDate)
	}
	if len(analysis.FilingsAnalyzed) != 1 || analysis.FilingsAnalyzed[0] != "10-K" {
		t.Fatalf("filings analyzed = %v", analysis.FilingsAnalyzed)
	}
	if analysis.CompletedAt == nil || analysis.StartedAt == nil {
		t.Fatal("timestamps not set on completed analysis")
	}

	// Resolved CIK must be persisted on the company.
	company, err := env.companies.GetByID(context.Background(), env.companyID)
	if err != nil {
		t.Fatalf("load company: %v", err)
	}
	if company.CIK == nil || *company.CIK != "0000875045" {
		t.Fatalf("company cik = %v, want 0000875045", company.CIK)
	}
}

func TestStartSkipsResolverWhenCIKKnown(t *testing.T) {
	env := newTestEnv(t)
	cik := "0000320193"
	if err := env.companies.UpdateFields(context.Background(), env.companyID, map[string]any{"cik": cik}); err != nil {
		t.Fatalf("seed cik: %v", err)
	}

	if _, err := env.service.Start(context.Background(), env.companyID, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if env.resolver.calls != 0 {
		t.Fatalf("resolver called %d times, want 0", env.resolver.calls)
	}
}

func TestStartCompanyNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Start(context.Background(), "no-such-company", nil)
	if !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("err = %v, want ErrCompanyNotFound", err)
	}

	// No record may be created on a rejected request.
	list, err := env.repo.ListByCompany(context.Background(), "no-such-company")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("found %d analyses for rejected request", len(list))
	}
}

func TestStartResolutionFailed(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.err = edgar.ErrTickerNotFound

	_, err := env.service.Start(context.Background(), env.companyID, nil)
	if !errors.Is(err, ErrResolutionFailed) {
		t.Fatalf("err = %v, want ErrResolutionFailed", err)
	}

	list, _ := env.repo.ListByCompany(context.Background(), env.companyID)
	if len(list) != 0 {
		t.Fatalf("found %d analyses after failed resolution", len(list))
	}
	company, _ := env.companies.GetByID(context.Background(), env.companyID)
	if company.CIK != nil {
		t.Fatalf("company cik = %v, want untouched nil", company.CIK)
	}
}

func TestStartDirectoryUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.err = fmt.Errorf("http 503: %w", edgar.ErrDirectoryUnavailable)

	_, err := env.service.Start(context.Background(), env.companyID, nil)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestStartNoFilingsCompletesDegraded(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.docs = map[string]string{}

	analysis, err := env.service.Start(context.Background(), env.companyID, []string{"10-K"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if analysis.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", analysis.Status)
	}
	verdict := analysis.Result
	if verdict == nil {
		t.Fatal("degraded verdict missing")
	}
	if verdict.ExpectedToRise || verdict.GoodBuy || verdict.ExpectedByDate != nil {
		t.Fatalf("degraded verdict = %+v, want both booleans false and null date", verdict)
	}
	if verdict.Reasoning == "" {
		t.Fatal("degraded verdict needs non-empty reasoning")
	}
	if len(analysis.FilingsAnalyzed) != 0 {
		t.Fatalf("filings analyzed = %v, want empty", analysis.FilingsAnalyzed)
	}
}

func TestStartBackendTimeoutCompletesDegraded(t *testing.T) {
	env := newTestEnv(t)
	env.llm.analyzeErr = fmt.Errorf("openai request: %w", llm.ErrTimeout)

	analysis, err := env.service.Start(context.Background(), env.companyID, []string{"10-K"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if analysis.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed (not failed)", analysis.Status)
	}
	verdict := analysis.Result
	if verdict == nil || verdict.ExpectedToRise || verdict.GoodBuy || verdict.ExpectedByDate != nil {
		t.Fatalf("verdict = %+v, want degraded", verdict)
	}
	if !strings.Contains(verdict.Reasoning, "timed out") {
		t.Fatalf("reasoning %q should mention the timeout", verdict.Reasoning)
	}
}

func TestStartMalformedResponseCompletesDegraded(t *testing.T) {
	env := newTestEnv(t)
	env.llm.raw = `{"stock_expected_to_go_up": "maybe"}`

	analysis, err := env.service.Start(context.Background(), env.companyID, []string{"10-K"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if analysis.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", analysis.Status)
	}
	if !strings.Contains(analysis.Result.Reasoning, "malformed") {
		t.Fatalf("reasoning %q should mention the malformed response", analysis.Result.Reasoning)
	}
}

type terminalWriteFailRepo struct {
	*MemoryRepo
}

func (r *terminalWriteFailRepo) UpdateFields(ctx context.Context, analysisID string, fields map[string]any) error {
	if _, ok := fields["result"]; ok {
		return errors.New("connection reset by peer")
	}
	return r.MemoryRepo.UpdateFields(ctx, analysisID, fields)
}

func TestStartPersistenceFailureEndsFailed(t *testing.T) {
	env := newTestEnv(t)
	env.service.Repo = &terminalWriteFailRepo{MemoryRepo: env.repo}

	analysis, err := env.service.Start(context.Background(), env.companyID, []string{"10-K"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if analysis.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", analysis.Status)
	}
	if analysis.ErrorCode == nil || *analysis.ErrorCode != CodePersistence {
		t.Fatalf("error code = %v, want %s", analysis.ErrorCode, CodePersistence)
	}
}

func TestStartSummarizesWhenReducerWired(t *testing.T) {
	env := newTestEnv(t)
	env.llm.summary = "positive phase 3 readout, NDA submission planned"
	env.service.Reducer = &Reducer{Client: env.llm}

	analysis, err := env.service.Start(context.Background(), env.companyID, []string{"10-K"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if analysis.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", analysis.Status)
	}
}

func TestStartReducerFailureStillCompletes(t *testing.T) {
	env := newTestEnv(t)
	env.llm.summaryErr = errors.New("model overloaded")
	env.service.Reducer = &Reducer{Client: env.llm}

	analysis, err := env.service.Start(context.Background(), env.companyID, []string{"10-K"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if analysis.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed despite summary failure", analysis.Status)
	}
	if analysis.Result == nil || !analysis.Result.GoodBuy {
		t.Fatalf("result = %+v, want real verdict from placeholder input", analysis.Result)
	}
}

func TestConcurrentStartsProduceDistinctJobs(t *testing.T) {
	env := newTestEnv(t)

	var wg sync.WaitGroup
	ids := make([]string, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			analysis, err := env.service.Start(context.Background(), env.companyID, []string{"10-K"})
			ids[i] = analysis.ID
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
	}
	if ids[0] == ids[1] {
		t.Fatalf("both starts produced the same analysis id %s", ids[0])
	}
	for _, id := range ids {
		analysis, err := env.repo.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if !IsTerminal(analysis.Status) {
			t.Fatalf("analysis %s ended in %q, want terminal", id, analysis.Status)
		}
	}
}

func TestFailStuckOnlyTouchesNonTerminal(t *testing.T) {
	env := newTestEnv(t)
	old := time.Now().UTC().Add(-2 * time.Hour)

	stuck := Analysis{ID: "stuck-1", CompanyID: env.companyID, Status: StatusFetching, CreatedAt: old, UpdatedAt: old}
	done := Analysis{ID: "done-1", CompanyID: env.companyID, Status: StatusCompleted, CreatedAt: old, UpdatedAt: old}
	fresh := Analysis{ID: "fresh-1", CompanyID: env.companyID, Status: StatusFetching, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	for _, a := range []Analysis{stuck, done, fresh} {
		if err := env.repo.Create(context.Background(), a); err != nil {
			t.Fatalf("seed %s: %v", a.ID, err)
		}
	}

	count, err := env.service.FailStuck(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("fail stuck: %v", err)
	}
	if count != 1 {
		t.Fatalf("reclaimed %d, want 1", count)
	}

	got, _ := env.repo.GetByID(context.Background(), "stuck-1")
	if got.Status != StatusFailed {
		t.Fatalf("stuck analysis status = %q, want failed", got.Status)
	}
	if got.ErrorCode == nil || *got.ErrorCode != CodeStuck {
		t.Fatalf("stuck error code = %v, want %s", got.ErrorCode, CodeStuck)
	}
	for _, id := range []string{"done-1", "fresh-1"} {
		got, _ := env.repo.GetByID(context.Background(), id)
		if got.Status == StatusFailed && id == "fresh-1" {
			t.Fatalf("%s should not be reclaimed", id)
		}
		if id == "done-1" && got.Status != StatusCompleted {
			t.Fatalf("%s should stay completed", id)
		}
	}
}

func TestTerminalRecordsAreImmutable(t *testing.T) {
	env := newTestEnv(t)

	analysis, err := env.service.Start(context.Background(), env.companyID, []string{"10-K"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if analysis.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", analysis.Status)
	}

	err = env.repo.UpdateFields(context.Background(), analysis.ID, map[string]any{"status": StatusFetching})
	if !errors.Is(err, ErrTerminal) {
		t.Fatalf("err = %v, want ErrTerminal", err)
	}
}

func TestListForCompanyNewestFirst(t *testing.T) {
	env := newTestEnv(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		a := Analysis{
			ID:        fmt.Sprintf("a-%d", i),
			CompanyID: env.companyID,
			Status:    StatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := env.repo.Create(context.Background(), a); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	list, err := env.service.ListForCompany(context.Background(), env.companyID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Fatal("analyses not sorted newest first")
		}
	}
}
