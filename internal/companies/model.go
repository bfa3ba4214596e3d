package companies

import "time"

// Company is a tracked biotech company. Ticker is unique; CIK is populated
// lazily the first time an analysis is requested and the company has none.
// External-sourced descriptive and financial attributes are all optional.
type Company struct {
	ID     string  `json:"id"`
	Ticker string  `json:"ticker"`
	Name   string  `json:"name"`
	CIK    *string `json:"cik,omitempty"`

	Sector   *string `json:"sector,omitempty"`
	Industry *string `json:"industry,omitempty"`
	Country  *string `json:"country,omitempty"`
	Exchange *string `json:"exchange,omitempty"`
	Website  *string `json:"website,omitempty"`

	MarketCap    *float64 `json:"marketCap,omitempty"`
	Employees    *int     `json:"employees,omitempty"`
	TotalRevenue *float64 `json:"totalRevenue,omitempty"`
	CurrentPrice *float64 `json:"currentPrice,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
