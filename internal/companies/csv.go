package companies

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"biotech-backend/internal/shared/telemetry"
)

// ImportResult summarizes a bulk CSV import.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ImportCSV bulk-imports companies from a CSV stream. The header row names
// the columns; ticker and name are required, everything else optional.
// Existing tickers are updated in place rather than duplicated.
func (s *Service) ImportCSV(ctx context.Context, reader io.Reader) (ImportResult, error) {
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["ticker"]; !ok {
		return ImportResult{}, errors.New("csv missing ticker column")
	}
	if _, ok := cols["name"]; !ok {
		return ImportResult{}, errors.New("csv missing name column")
	}

	var result ImportResult
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Skipped++
			continue
		}

		ticker := strings.ToUpper(strings.TrimSpace(field(record, cols, "ticker")))
		name := strings.TrimSpace(field(record, cols, "name"))
		if ticker == "" || name == "" {
			result.Skipped++
			continue
		}

		input := CreateInput{
			Ticker:       ticker,
			Name:         name,
			Sector:       optString(record, cols, "sector"),
			Industry:     optString(record, cols, "industry"),
			Country:      optString(record, cols, "country"),
			Exchange:     optString(record, cols, "exchange"),
			Website:      optString(record, cols, "website"),
			MarketCap:    optFloat(record, cols, "market_cap"),
			Employees:    optInt(record, cols, "employees"),
			TotalRevenue: optFloat(record, cols, "total_revenue"),
			CurrentPrice: optFloat(record, cols, "current_price"),
		}

		existing, err := s.Repo.GetByTicker(ctx, ticker)
		switch {
		case err == nil:
			fields := map[string]any{"name": name}
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
			if err := s.Repo.UpdateFields(ctx, existing.ID, fields); err != nil {
				result.Skipped++
				continue
			}
			result.Updated++
		case errors.Is(err, ErrNotFound):
			if _, err := s.Create(ctx, input); err != nil {
				result.Skipped++
				continue
			}
			result.Created++
		default:
			return result, err
		}
	}

	telemetry.Info("companies.import", map[string]any{
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
	})
	return result, nil
}

func field(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func optString(record []string, cols map[string]int, name string) *string {
	v := strings.TrimSpace(field(record, cols, name))
	if v == "" {
		return nil
	}
	return &v
}

func optFloat(record []string, cols map[string]int, name string) *float64 {
	v := strings.TrimSpace(field(record, cols, name))
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

func optInt(record []string, cols map[string]int, name string) *int {
	v := strings.TrimSpace(field(record, cols, name))
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &parsed
}

func addOptField(fields map[string]any, name string, value *string) {
	if value != nil {
		fields[name] = value
	}
}
