package edgar

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"biotech-backend/internal/shared/metrics"
	"biotech-backend/internal/shared/telemetry"
)

// maxFallbackPerForm bounds how many filings per form are taken when no
// filing falls inside the lookback window.
const maxFallbackPerForm = 10

type filing struct {
	Form            string
	FilingDate      time.Time
	AccessionNumber string
	PrimaryDocument string
}

type submissionsResponse struct {
	Filings struct {
		Recent struct {
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			AccessionNumber []string `json:"accessionNumber"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

type archiveIndex struct {
	Directory struct {
		Item []struct {
			Name string `json:"name"`
			Size string `json:"size"`
		} `json:"item"`
	} `json:"directory"`
}

// FetchFilings retrieves the text of a filer's submissions grouped by form
// type. Forms restricts the result to the given form codes; an empty slice
// means all forms. Documents are kept when their filing date falls inside the
// lookback window; if none survive, the most recent filings per form are taken
// regardless of age so thinly-filed companies still yield some signal.
//
// A failure to fetch the submissions index returns an empty map: the caller
// treats that the same as a filer with no filings. Failures on individual
// documents are logged and skipped.
func (c *Client) FetchFilings(ctx context.Context, cik string, forms []string, lookbackDays int) map[string]string {
	submissions, err := c.fetchSubmissions(ctx, cik)
	if err != nil {
		telemetry.Error("edgar.submissions_fetch_failed", map[string]any{"cik": cik, "error": err.Error()})
		return map[string]string{}
	}

	cutoff := time.Now().AddDate(0, 0, -lookbackDays)
	matched, all := filterFilings(submissions, forms, cutoff)
	if len(matched) == 0 {
		matched = mostRecentPerForm(all, maxFallbackPerForm)
		if len(matched) > 0 {
			telemetry.Warn("edgar.lookback_fallback", map[string]any{
				"cik":           cik,
				"lookback_days": lookbackDays,
				"filings":       len(matched),
			})
		}
	}

	out := make(map[string]string)
	fetched := 0
	for _, f := range matched {
		text, err := c.fetchFilingText(ctx, cik, f)
		if err != nil {
			if ctx.Err() != nil {
				return out
			}
			metrics.IncFilingFetchErrors()
			telemetry.Warn("edgar.filing_fetch_failed", map[string]any{
				"cik":       cik,
				"form":      f.Form,
				"accession": f.AccessionNumber,
				"error":     err.Error(),
			})
			continue
		}
		header := fmt.Sprintf("\n\n--- %s FILING DATE: %s ---\n\n", f.Form, f.FilingDate.Format("2006-01-02"))
		out[f.Form] += header + text
		fetched++
	}
	metrics.IncFilingsFetched(fetched)

	telemetry.Info("edgar.filings_fetched", map[string]any{
		"cik":       cik,
		"forms":     len(out),
		"documents": fetched,
	})
	return out
}

func (c *Client) fetchSubmissions(ctx context.Context, cik string) ([]filing, error) {
	var resp submissionsResponse
	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, cik)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}

	recent := resp.Filings.Recent
	filings := make([]filing, 0, len(recent.Form))
	for i, form := range recent.Form {
		if i >= len(recent.FilingDate) || i >= len(recent.AccessionNumber) || i >= len(recent.PrimaryDocument) {
			break
		}
		date, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			continue
		}
		filings = append(filings, filing{
			Form:            form,
			FilingDate:      date,
			AccessionNumber: recent.AccessionNumber[i],
			PrimaryDocument: recent.PrimaryDocument[i],
		})
	}
	return filings, nil
}

// filterFilings returns the filings matching both the form set and the date
// cutoff, plus the full form-matched list used by the fallback path.
func filterFilings(filings []filing, forms []string, cutoff time.Time) (matched, all []filing) {
	wanted := make(map[string]struct{}, len(forms))
	for _, f := range forms {
		wanted[strings.ToUpper(strings.TrimSpace(f))] = struct{}{}
	}

	for _, f := range filings {
		if len(wanted) > 0 {
			if _, ok := wanted[strings.ToUpper(f.Form)]; !ok {
				continue
			}
		}
		all = append(all, f)
		if !f.FilingDate.Before(cutoff) {
			matched = append(matched, f)
		}
	}
	return matched, all
}

// mostRecentPerForm keeps the newest limit filings of each form.
func mostRecentPerForm(filings []filing, limit int) []filing {
	byForm := make(map[string][]filing)
	for _, f := range filings {
		byForm[f.Form] = append(byForm[f.Form], f)
	}

	var out []filing
	for _, group := range byForm {
		sort.Slice(group, func(i, j int) bool {
			return group[i].FilingDate.After(group[j].FilingDate)
		})
		if len(group) > limit {
			group = group[:limit]
		}
		out = append(out, group...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Form != out[j].Form {
			return out[i].Form < out[j].Form
		}
		return out[i].FilingDate.After(out[j].FilingDate)
	})
	return out
}

func (c *Client) fetchFilingText(ctx context.Context, cik string, f filing) (string, error) {
	cikTrimmed := strings.TrimLeft(cik, "0")
	accession := strings.ReplaceAll(f.AccessionNumber, "-", "")

	var index archiveIndex
	indexURL := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/index.json", c.baseURL, cikTrimmed, accession)
	if err := c.getJSON(ctx, indexURL, &index); err != nil {
		return "", err
	}

	// The complete submission text is the .txt member of the archive.
	var txtName string
	for _, item := range index.Directory.Item {
		if strings.HasSuffix(item.Name, ".txt") {
			txtName = item.Name
			break
		}
	}
	if txtName == "" {
		return "", fmt.Errorf("no text document in archive %s", f.AccessionNumber)
	}

	textURL := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s", c.baseURL, cikTrimmed, accession, txtName)
	raw, err := c.get(ctx, textURL)
	if err != nil {
		return "", err
	}
	return cleanDocument(string(raw)), nil
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// cleanDocument strips markup and collapses whitespace. goquery handles
// well-formed HTML; raw SGML submission wrappers fall back to tag stripping.
func cleanDocument(raw string) string {
	text := raw
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
		doc.Find("script, style").Remove()
		if t := doc.Text(); strings.TrimSpace(t) != "" {
			text = t
		}
	}
	text = tagPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
