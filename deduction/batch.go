package deduction

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrEmptyBatch is returned when there is nothing to calculate.
var ErrEmptyBatch = errors.New("no incidents to calculate")

// Incident is one deviation entered directly in minutes.
type Incident struct {
	Type    Type `json:"type"`
	Minutes int  `json:"minutes"`
}

// BatchDetail is a resolved incident.
type BatchDetail struct {
	Incident
	Range     string          `json:"range"`
	Deduction decimal.Decimal `json:"deduction"`
}

// BatchResult sums incidents of one employee.
type BatchResult struct {
	Unit    string          `json:"unit"`
	Jabatan string          `json:"jabatan"`
	Details []BatchDetail   `json:"details"`
	Failed  []Incident      `json:"failed,omitempty"`
	Total   decimal.Decimal `json:"total"`
}

// CalculateBatch resolves every incident for the same position and sums the
// absolute deductions. Incidents whose lookup fails are listed in Failed and
// contribute nothing; only an invalid incident aborts the batch.
func CalculateBatch(ctx context.Context, lookup Lookup, unit, jabatan string, incidents []Incident) (BatchResult, error) {
	if len(incidents) == 0 {
		return BatchResult{}, ErrEmptyBatch
	}
	for i, inc := range incidents {
		if !inc.Type.Valid() {
			return BatchResult{}, fmt.Errorf("incident %d: %w: %q", i, ErrInvalidType, inc.Type)
		}
		if inc.Minutes <= 0 {
			return BatchResult{}, fmt.Errorf("incident %d: minutes must be positive", i)
		}
	}

	res := BatchResult{Unit: unit, Jabatan: jabatan, Total: decimal.Zero}
	for _, inc := range incidents {
		r, err := lookup.Calculate(ctx, unit, jabatan, inc.Type, inc.Minutes)
		if err != nil {
			if ctx.Err() != nil {
				return BatchResult{}, ctx.Err()
			}
			res.Failed = append(res.Failed, inc)
			continue
		}
		res.Details = append(res.Details, BatchDetail{Incident: inc, Range: r.Range, Deduction: r.Deduction})
		res.Total = res.Total.Add(r.Amount())
	}
	return res, nil
}
