package analyses

import (
	"encoding/json"
	"fmt"
	"time"
)

// Verdict is the structured output of an analysis run. The field names match
// the model's response schema so the raw completion unmarshals directly.
type Verdict struct {
	ExpectedToRise bool    `json:"stock_expected_to_go_up"`
	ExpectedByDate *string `json:"expected_by_date"`
	GoodBuy        bool    `json:"is_good_buy"`
	Reasoning      string  `json:"reasoning"`
}

// ParseVerdict decodes a model completion into a Verdict. The date field is
// coerced to null when it does not parse as a calendar date; a missing or
// empty reasoning makes the whole response malformed.
func ParseVerdict(raw json.RawMessage) (Verdict, error) {
	var v Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if v.Reasoning == "" {
		return Verdict{}, fmt.Errorf("verdict missing reasoning")
	}
	v.ExpectedByDate = coerceDate(v.ExpectedByDate)
	return v, nil
}

// coerceDate keeps strict YYYY-MM-DD strings and nulls everything else.
func coerceDate(value *string) *string {
	if value == nil {
		return nil
	}
	if _, err := time.Parse("2006-01-02", *value); err != nil {
		return nil
	}
	return value
}

// degradedVerdict builds the no-signal verdict used when analysis could not
// produce a real one. Both booleans are false and the date is null; only the
// reasoning tells the failure categories apart.
func degradedVerdict(reasoning string) Verdict {
	return Verdict{
		ExpectedToRise: false,
		ExpectedByDate: nil,
		GoodBuy:        false,
		Reasoning:      reasoning,
	}
}
