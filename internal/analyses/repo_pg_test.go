package analyses

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	analysis := Analysis{
		ID:               "analysis-1",
		CompanyID:        "company-1",
		Status:           StatusPending,
		FilingsRequested: []string{"10-K", "8-K"},
		FilingsAnalyzed:  []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(
			analysis.ID,
			analysis.CompanyID,
			analysis.Status,
			[]byte(`["10-K","8-K"]`),
			[]byte(`[]`),
			nil, // result
			nil, // error_code
			nil, // error_message
			nil, // task_id
			analysis.CreatedAt,
			nil, // started_at
			nil, // completed_at
			analysis.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), analysis); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT (.+) FROM analyses WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGRepoGetByIDDecodesJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	columns := []string{
		"id", "company_id", "status", "filings_requested", "filings_analyzed", "result",
		"error_code", "error_message", "task_id", "created_at", "started_at", "completed_at", "updated_at",
	}
	result := []byte(`{"stock_expected_to_go_up": true, "expected_by_date": "2026-09-01", "is_good_buy": false, "reasoning": "mixed signals"}`)
	rows := sqlmock.NewRows(columns).AddRow(
		"analysis-1", "company-1", StatusCompleted,
		[]byte(`["10-K"]`), []byte(`["10-K"]`), result,
		nil, nil, nil, now, now, now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM analyses WHERE id").
		WithArgs("analysis-1").
		WillReturnRows(rows)

	analysis, err := repo.GetByID(context.Background(), "analysis-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if analysis.Result == nil || !analysis.Result.ExpectedToRise || analysis.Result.GoodBuy {
		t.Fatalf("result = %+v", analysis.Result)
	}
	if analysis.Result.ExpectedByDate == nil || *analysis.Result.ExpectedByDate != "2026-09-01" {
		t.Fatalf("date = %v", analysis.Result.ExpectedByDate)
	}
	if len(analysis.FilingsRequested) != 1 || analysis.FilingsRequested[0] != "10-K" {
		t.Fatalf("filings requested = %v", analysis.FilingsRequested)
	}
}

func TestPGRepoUpdateFieldsTerminal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec("UPDATE analyses SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM analyses WHERE id").
		WithArgs("analysis-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusCompleted))

	err = repo.UpdateFields(context.Background(), "analysis-1", map[string]any{"status": StatusFetching})
	if !errors.Is(err, ErrTerminal) {
		t.Fatalf("err = %v, want ErrTerminal", err)
	}
}

func TestPGRepoUpdateFieldsMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec("UPDATE analyses SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM analyses WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	err = repo.UpdateFields(context.Background(), "missing", map[string]any{"status": StatusFetching})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGRepoUpdateFieldsRejectsUnknownColumn(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	if err := repo.UpdateFields(context.Background(), "analysis-1", map[string]any{"company_id": "other"}); err == nil {
		t.Fatal("expected rejection of non-whitelisted column")
	}
}

func TestPGRepoFailStuck(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE analyses").
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.FailStuck(context.Background(), time.Now().UTC().Add(-time.Hour), CodeStuck, "reclaimed")
	if err != nil {
		t.Fatalf("FailStuck: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}
