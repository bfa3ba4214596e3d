package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to SEC EDGAR. Every remote call waits on the shared rate
// limiter first: EDGAR caps clients at 10 requests per second and treats
// violations as abuse, so the wait is part of the contract, not a tuning knob.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	baseURL    string
	dataURL    string
}

// Config controls EDGAR endpoints and pacing.
type Config struct {
	UserAgent     string
	BaseURL       string
	DataURL       string
	MinIntervalMS int
}

// NewClient constructs an EDGAR client.
func NewClient(cfg Config) *Client {
	interval := time.Duration(cfg.MinIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://www.sec.gov"
	}
	dataURL := cfg.DataURL
	if dataURL == "" {
		dataURL = "https://data.sec.gov"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		userAgent:  cfg.UserAgent,
		baseURL:    baseURL,
		dataURL:    dataURL,
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("edgar GET %s: http %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("edgar decode %s: %w", url, err)
	}
	return nil
}
