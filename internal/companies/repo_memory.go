package companies

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo stores companies in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	byID     map[string]Company
	byTicker map[string]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:     make(map[string]Company),
		byTicker: make(map[string]string),
	}
}

// Create stores the company.
func (r *MemoryRepo) Create(ctx context.Context, company Company) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ticker := strings.ToUpper(company.Ticker)
	if _, ok := r.byTicker[ticker]; ok {
		return ErrDuplicateTicker
	}
	r.byID[company.ID] = company
	r.byTicker[ticker] = company.ID
	return nil
}

// GetByID returns a company by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, companyID string) (Company, error) {
	if err := ctx.Err(); err != nil {
		return Company{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	company, ok := r.byID[companyID]
	if !ok {
		return Company{}, ErrNotFound
	}
	return company, nil
}

// GetByTicker returns a company by its ticker symbol.
func (r *MemoryRepo) GetByTicker(ctx context.Context, ticker string) (Company, error) {
	if err := ctx.Err(); err != nil {
		return Company{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTicker[strings.ToUpper(ticker)]
	if !ok {
		return Company{}, ErrNotFound
	}
	return r.byID[id], nil
}

// List returns companies ordered by ticker with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Company, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	out := make([]Company, 0, len(r.byID))
	for _, company := range r.byID {
		out = append(out, company)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Ticker < out[j].Ticker
	})

	if offset >= len(out) {
		return []Company{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// UpdateFields applies a partial update to an existing company.
func (r *MemoryRepo) UpdateFields(ctx context.Context, companyID string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	company, ok := r.byID[companyID]
	if !ok {
		return ErrNotFound
	}

	for key, value := range fields {
		switch key {
		case "name":
			if v, ok := value.(string); ok {
				company.Name = v
			}
		case "cik":
			company.CIK = toStringPtr(value)
		case "sector":
			company.Sector = toStringPtr(value)
		case "industry":
			company.Industry = toStringPtr(value)
		case "country":
			company.Country = toStringPtr(value)
		case "exchange":
			company.Exchange = toStringPtr(value)
		case "website":
			company.Website = toStringPtr(value)
		case "market_cap":
			company.MarketCap = toFloatPtr(value)
		case "employees":
			company.Employees = toIntPtr(value)
		case "total_revenue":
			company.TotalRevenue = toFloatPtr(value)
		case "current_price":
			company.CurrentPrice = toFloatPtr(value)
		}
	}
	company.UpdatedAt = time.Now().UTC()
	r.byID[companyID] = company
	return nil
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

func toFloatPtr(value any) *float64 {
	switch v := value.(type) {
	case float64:
		return &v
	case *float64:
		return v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func toIntPtr(value any) *int {
	switch v := value.(type) {
	case int:
		return &v
	case *int:
		return v
	case float64:
		i := int(v)
		return &i
	}
	return nil
}
