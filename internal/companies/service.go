package companies

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service contains business logic for the company registry.
type Service struct {
	Repo Repo
}

// CreateInput carries caller-supplied fields for a new company.
type CreateInput struct {
	Ticker string
	Name   string

	Sector   *string
	Industry *string
	Country  *string
	Exchange *string
	Website  *string

	MarketCap    *float64
	Employees    *int
	TotalRevenue *float64
	CurrentPrice *float64
}

// Create registers a new company.
func (s *Service) Create(ctx context.Context, input CreateInput) (Company, error) {
	ticker := strings.ToUpper(strings.TrimSpace(input.Ticker))
	name := strings.TrimSpace(input.Name)
	if ticker == "" || name == "" {
		return Company{}, errors.New("ticker and name are required")
	}

	now := time.Now().UTC()
	company := Company{
		ID:           uuid.NewString(),
		Ticker:       ticker,
		Name:         name,
		Sector:       input.Sector,
		Industry:     input.Industry,
		Country:      input.Country,
		Exchange:     input.Exchange,
		Website:      input.Website,
		MarketCap:    input.MarketCap,
		Employees:    input.Employees,
		TotalRevenue: input.TotalRevenue,
		CurrentPrice: input.CurrentPrice,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, company); err != nil {
		return Company{}, err
	}
	return company, nil
}

// Get returns a company by ID.
func (s *Service) Get(ctx context.Context, companyID string) (Company, error) {
	if strings.TrimSpace(companyID) == "" {
		return Company{}, errors.New("companyID is required")
	}
	return s.Repo.GetByID(ctx, companyID)
}

// List returns companies ordered by ticker.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Company, error) {
	return s.Repo.List(ctx, limit, offset)
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name *string

	Sector   *string
	Industry *string
	Country  *string
	Exchange *string
	Website  *string

	MarketCap    *float64
	Employees    *int
	TotalRevenue *float64
	CurrentPrice *float64
}

// Update applies a partial update and returns the refreshed company.
// The ticker is immutable once created.
func (s *Service) Update(ctx context.Context, companyID string, input UpdateInput) (Company, error) {
	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Company{}, errors.New("name cannot be empty")
		}
		fields["name"] = name
	}
	addOptField(fields, "sector", input.Sector)
	addOptField(fields, "industry", input.Industry)
	addOptField(fields, "country", input.Country)
	addOptField(fields, "exchange", input.Exchange)
	addOptField(fields, "website", input.Website)
	if input.MarketCap != nil {
		fields["market_cap"] = input.MarketCap
	}
	if input.Employees != nil {
		fields["employees"] = input.Employees
	}
	if input.TotalRevenue != nil {
		fields["total_revenue"] = input.TotalRevenue
	}
	if input.CurrentPrice != nil {
		fields["current_price"] = input.CurrentPrice
	}

	if len(fields) > 0 {
		if err := s.Repo.UpdateFields(ctx, companyID, fields); err != nil {
			return Company{}, err
		}
	}
	return s.Repo.GetByID(ctx, companyID)
}
