package companies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const companyColumns = `id, ticker, name, cik, sector, industry, country, exchange, website,
       market_cap, employees, total_revenue, current_price, created_at, updated_at`

// Create inserts a new company.
func (r *PGRepo) Create(ctx context.Context, company Company) error {
	const query = `
INSERT INTO companies (
	id, ticker, name, cik, sector, industry, country, exchange, website,
	market_cap, employees, total_revenue, current_price, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.DB.ExecContext(ctx, query,
		company.ID,
		strings.ToUpper(company.Ticker),
		company.Name,
		company.CIK,
		company.Sector,
		company.Industry,
		company.Country,
		company.Exchange,
		company.Website,
		company.MarketCap,
		company.Employees,
		company.TotalRevenue,
		company.CurrentPrice,
		company.CreatedAt,
		company.UpdatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "companies_ticker_key") {
		return ErrDuplicateTicker
	}
	return err
}

// GetByID returns a company by ID.
func (r *PGRepo) GetByID(ctx context.Context, companyID string) (Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1 LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, companyID))
}

// GetByTicker returns a company by ticker (case-insensitive).
func (r *PGRepo) GetByTicker(ctx context.Context, ticker string) (Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE ticker = $1 LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, strings.ToUpper(ticker)))
}

// List returns companies ordered by ticker.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Company, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + companyColumns + ` FROM companies ORDER BY ticker LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Company{}
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, company)
	}
	return out, rows.Err()
}

// allowedUpdateColumns whitelists UpdateFields targets.
var allowedUpdateColumns = map[string]struct{}{
	"name": {}, "cik": {}, "sector": {}, "industry": {}, "country": {},
	"exchange": {}, "website": {}, "market_cap": {}, "employees": {},
	"total_revenue": {}, "current_price": {},
}

// UpdateFields applies a partial update to an existing company.
func (r *PGRepo) UpdateFields(ctx context.Context, companyID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	idx := 1
	for column, value := range fields {
		if _, ok := allowedUpdateColumns[column]; !ok {
			return fmt.Errorf("update field %q not allowed", column)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", idx))
	args = append(args, time.Now().UTC())
	idx++
	args = append(args, companyID)

	query := fmt.Sprintf("UPDATE companies SET %s WHERE id = $%d", strings.Join(setClauses, ", "), idx)
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (Company, error) {
	company, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Company{}, ErrNotFound
	}
	return company, err
}

func scanCompany(row rowScanner) (Company, error) {
	var c Company
	var cik, sector, industry, country, exchange, website sql.NullString
	var marketCap, totalRevenue, currentPrice sql.NullFloat64
	var employees sql.NullInt64

	err := row.Scan(
		&c.ID, &c.Ticker, &c.Name, &cik, &sector, &industry, &country, &exchange, &website,
		&marketCap, &employees, &totalRevenue, &currentPrice, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Company{}, err
	}

	c.CIK = nullString(cik)
	c.Sector = nullString(sector)
	c.Industry = nullString(industry)
	c.Country = nullString(country)
	c.Exchange = nullString(exchange)
	c.Website = nullString(website)
	c.MarketCap = nullFloat(marketCap)
	c.TotalRevenue = nullFloat(totalRevenue)
	c.CurrentPrice = nullFloat(currentPrice)
	if employees.Valid {
		v := int(employees.Int64)
		c.Employees = &v
	}
	return c, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

var _ Repo = (*PGRepo)(nil)
