package attendance

import (
	"github.com/shopspring/decimal"
)

// Summary aggregates the records of one position.
type Summary struct {
	Filter         Filter
	Records        []Record // most recent first
	Issues         []Record // days with lateness or early leave
	LateDays       int
	EarlyDays      int
	TotalDeduction decimal.Decimal
	From           Date // earliest record, zero when empty
	To             Date // latest record, zero when empty
}

// Empty reports whether there is nothing to summarize.
func (s Summary) Empty() bool { return len(s.Records) == 0 }

// Summarize counts late and early days and totals deductions. Records are
// sorted most recent first.
func Summarize(f Filter, records []Record) Summary {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	SortByDateDesc(sorted)

	s := Summary{Filter: f, Records: sorted, Issues: []Record{}, TotalDeduction: decimal.Zero}
	for _, r := range sorted {
		if r.LateMinutes > 0 {
			s.LateDays++
		}
		if r.EarlyMinutes > 0 {
			s.EarlyDays++
		}
		if r.HasIssue() {
			s.Issues = append(s.Issues, r)
		}
		s.TotalDeduction = s.TotalDeduction.Add(r.Deduction.Abs())

		if s.From.IsZero() || r.Date.Before(s.From) {
			s.From = r.Date
		}
		if s.To.IsZero() || r.Date.After(s.To) {
			s.To = r.Date
		}
	}
	return s
}
