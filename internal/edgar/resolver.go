package edgar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"biotech-backend/internal/shared/telemetry"
)

var (
	// ErrTickerNotFound means the ticker has no entry in the EDGAR directory.
	ErrTickerNotFound = errors.New("ticker not found in EDGAR directory")
	// ErrDirectoryUnavailable means the company directory could not be fetched.
	ErrDirectoryUnavailable = errors.New("EDGAR company directory unavailable")
)

type directoryEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// Resolve maps a ticker symbol to its 10-digit zero-padded CIK. The directory
// is refetched per call; it changes rarely but is small enough that callers
// may cache or not as they see fit.
func (c *Client) Resolve(ctx context.Context, ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", ErrTickerNotFound
	}

	var directory map[string]directoryEntry
	url := c.baseURL + "/files/company_tickers.json"
	if err := c.getJSON(ctx, url, &directory); err != nil {
		telemetry.Error("edgar.directory_fetch_failed", map[string]any{"error": err.Error()})
		return "", fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	for _, entry := range directory {
		if strings.EqualFold(entry.Ticker, ticker) {
			cik := fmt.Sprintf("%010d", entry.CIK)
			telemetry.Info("edgar.resolved", map[string]any{"ticker": ticker, "cik": cik})
			return cik, nil
		}
	}

	telemetry.Warn("edgar.ticker_not_found", map[string]any{"ticker": ticker})
	return "", ErrTickerNotFound
}
