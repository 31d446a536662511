/*
Package deduction models the tiered payroll deductions for lateness and
early leave.

PURPOSE:
  Every (unit, jabatan) pair owns two ordered tier lists: one for arriving
  late ("terlambat") and one for leaving early ("pulang_awal"). A tier maps a
  minute bracket to a currency deduction. The backend service owns the table;
  clients only ask it to resolve a minute count into an amount.

KEY CONCEPTS IN THIS FILE (types.go):
  - Type:   deviation kind, using the service's wire values
  - Tier:   minute bracket + deduction (decimal, may be signed)
  - Table:  the two tier lists of one position
  - Result: a resolved lookup
  - Lookup: anything that can resolve a deduction (HTTP client or Catalog)

AMOUNTS:
  Deductions are whole rupiah held as decimal.Decimal. The spreadsheet the
  tables come from stores them as negative numbers; consumers always sum
  the absolute value (see Result.Amount).

SEE ALSO:
  - catalog.go: In-memory index of positions and tier resolution
  - loader.go:  Workbook and YAML loaders
  - remote/catalog.go: HTTP implementation of Lookup
*/
package deduction

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrLookupFailed marks a lookup that could not produce an amount. The
	// attendance flow treats it as a zero contribution.
	ErrLookupFailed = errors.New("deduction lookup failed")

	// ErrPositionNotFound is returned for an unknown (unit, jabatan) pair.
	ErrPositionNotFound = errors.New("position not found")

	// ErrNoTier is returned when no bracket covers the minute count.
	ErrNoTier = errors.New("no deduction tier for minutes")

	// ErrInvalidType is returned for an unknown deviation type.
	ErrInvalidType = errors.New("invalid deviation type")
)

// =============================================================================
// TYPE
// =============================================================================

// Type is the deviation kind a deduction applies to.
type Type string

const (
	Late       Type = "terlambat"
	EarlyLeave Type = "pulang_awal"
)

// ParseType accepts the wire values and a few human aliases.
func ParseType(s string) (Type, error) {
	switch s {
	case string(Late), "late":
		return Late, nil
	case string(EarlyLeave), "early-leave", "early_leave", "early":
		return EarlyLeave, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (t Type) Valid() bool { return t == Late || t == EarlyLeave }

// Label is the display name used in summaries.
func (t Type) Label() string {
	switch t {
	case Late:
		return "late arrival"
	case EarlyLeave:
		return "early leave"
	}
	return string(t)
}

// =============================================================================
// TIER / TABLE
// =============================================================================

// Tier is one minute bracket. Max == 0 means the bracket is open-ended.
type Tier struct {
	Min       int             `json:"min"`
	Max       int             `json:"max"`
	Range     string          `json:"range"`
	Deduction decimal.Decimal `json:"deduction"`
}

// Contains reports whether minutes falls inside the bracket.
func (t Tier) Contains(minutes int) bool {
	if minutes < t.Min {
		return false
	}
	return t.Max == 0 || minutes <= t.Max
}

// Table holds both tier lists of one position, in bracket order.
type Table struct {
	Late       []Tier `json:"terlambat"`
	EarlyLeave []Tier `json:"pulang_awal"`
}

// Tiers returns the list for a deviation type.
func (t Table) Tiers(typ Type) []Tier {
	switch typ {
	case Late:
		return t.Late
	case EarlyLeave:
		return t.EarlyLeave
	}
	return nil
}

// Resolve returns the first tier of the given type that covers minutes.
func (t Table) Resolve(typ Type, minutes int) (Tier, error) {
	if !typ.Valid() {
		return Tier{}, fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	for _, tier := range t.Tiers(typ) {
		if tier.Contains(minutes) {
			return tier, nil
		}
	}
	return Tier{}, fmt.Errorf("%w: %s %d", ErrNoTier, typ, minutes)
}

// Result is a resolved deduction for one deviation.
type Result struct {
	Unit      string          `json:"unit"`
	Jabatan   string          `json:"jabatan"`
	Type      Type            `json:"type"`
	Minutes   int             `json:"minutes"`
	Range     string          `json:"range"`
	Deduction decimal.Decimal `json:"deduction"`
}

// Amount is the non-negative deduction to sum into a record.
func (r Result) Amount() decimal.Decimal { return r.Deduction.Abs() }

// Lookup resolves a deduction for a deviation.
type Lookup interface {
	Calculate(ctx context.Context, unit, jabatan string, typ Type, minutes int) (Result, error)
}

// LookupError wraps a failure from a Lookup implementation.
type LookupError struct {
	Unit    string
	Jabatan string
	Type    Type
	Minutes int
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("deduction lookup %s/%s %s %dm: %v", e.Unit, e.Jabatan, e.Type, e.Minutes, e.Err)
}

func (e *LookupError) Unwrap() []error { return []error{ErrLookupFailed, e.Err} }
