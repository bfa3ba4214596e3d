package companies

import "context"

// Repo defines persistence operations for companies.
type Repo interface {
	Create(ctx context.Context, company Company) error
	GetByID(ctx context.Context, companyID string) (Company, error)
	GetByTicker(ctx context.Context, ticker string) (Company, error)
	List(ctx context.Context, limit, offset int) ([]Company, error)
	UpdateFields(ctx context.Context, companyID string, fields map[string]any) error
}
