package deduction

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STANDARD BRACKETS
// =============================================================================

// Bracket is a tier without an amount.
type Bracket struct {
	Min   int
	Max   int
	Range string
}

// LateBrackets are the lateness brackets of the payroll sheet. Lateness
// inside the grace band (1-5 minutes) has no bracket.
var LateBrackets = []Bracket{
	{6, 10, "6-10 menit"},
	{11, 15, "11-15 menit"},
	{16, 20, "16-20 menit"},
	{21, 25, "21-25 menit"},
	{26, 30, "26-30 menit"},
	{31, 45, "31-45 menit"},
	{46, 60, "46-60 menit"},
}

// EarlyLeaveBrackets are the early-leave brackets of the payroll sheet.
var EarlyLeaveBrackets = []Bracket{
	{1, 10, "1-10 menit"},
	{11, 20, "11-20 menit"},
	{21, 30, "21-30 menit"},
	{31, 40, "31-40 menit"},
	{41, 50, "41-50 menit"},
	{51, 60, "51-60 menit"},
	{61, 0, "> 60 menit"},
}

// BuildTiers pairs brackets with amounts. len(amounts) must match.
func BuildTiers(brackets []Bracket, amounts []decimal.Decimal) ([]Tier, error) {
	if len(amounts) != len(brackets) {
		return nil, fmt.Errorf("expected %d amounts, got %d", len(brackets), len(amounts))
	}
	tiers := make([]Tier, len(brackets))
	for i, b := range brackets {
		tiers[i] = Tier{Min: b.Min, Max: b.Max, Range: b.Range, Deduction: amounts[i]}
	}
	return tiers, nil
}

// StandardTable builds a Table on the standard brackets.
func StandardTable(late, early []decimal.Decimal) (Table, error) {
	lt, err := BuildTiers(LateBrackets, late)
	if err != nil {
		return Table{}, fmt.Errorf("late tiers: %w", err)
	}
	et, err := BuildTiers(EarlyLeaveBrackets, early)
	if err != nil {
		return Table{}, fmt.Errorf("early leave tiers: %w", err)
	}
	return Table{Late: lt, EarlyLeave: et}, nil
}

// =============================================================================
// CATALOG
// =============================================================================

// Position is one row of the payroll sheet.
type Position struct {
	Unit    string `json:"unit"`
	Jabatan string `json:"jabatan"`
	Table   Table  `json:"deduction_table"`
}

type positionKey struct {
	unit    string
	jabatan string
}

// Catalog indexes positions by unit and jabatan. Safe for concurrent use;
// Replace swaps the whole content atomically.
type Catalog struct {
	mu        sync.RWMutex
	positions []Position
	index     map[positionKey]int
}

// NewCatalog builds a catalog. When a (unit, jabatan) pair appears twice the
// first row wins.
func NewCatalog(positions []Position) *Catalog {
	c := &Catalog{}
	c.Replace(positions)
	return c
}

// Replace swaps the catalog content.
func (c *Catalog) Replace(positions []Position) {
	index := make(map[positionKey]int, len(positions))
	kept := make([]Position, 0, len(positions))
	for _, p := range positions {
		k := positionKey{p.Unit, p.Jabatan}
		if _, dup := index[k]; dup {
			continue
		}
		index[k] = len(kept)
		kept = append(kept, p)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions = kept
	c.index = index
}

// All returns every position in load order.
func (c *Catalog) All() []Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Position, len(c.positions))
	copy(out, c.positions)
	return out
}

// Units returns the distinct unit names, sorted.
func (c *Catalog) Units() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	units := []string{}
	for _, p := range c.positions {
		if !seen[p.Unit] {
			seen[p.Unit] = true
			units = append(units, p.Unit)
		}
	}
	sort.Strings(units)
	return units
}

// Positions returns the distinct jabatan names of a unit, sorted. Unknown
// units yield an empty list.
func (c *Catalog) Positions(unit string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	jabatan := []string{}
	for _, p := range c.positions {
		if p.Unit == unit && !seen[p.Jabatan] {
			seen[p.Jabatan] = true
			jabatan = append(jabatan, p.Jabatan)
		}
	}
	sort.Strings(jabatan)
	return jabatan
}

// Table returns the tier table of a position.
func (c *Catalog) Table(unit, jabatan string) (Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[positionKey{unit, jabatan}]
	if !ok {
		return Table{}, fmt.Errorf("%w: %s - %s", ErrPositionNotFound, unit, jabatan)
	}
	return c.positions[i].Table, nil
}

// Calculate resolves the deduction for a deviation. Implements Lookup so a
// catalog can stand in for the remote service; failures are *LookupError
// wrapping ErrPositionNotFound or ErrNoTier.
func (c *Catalog) Calculate(_ context.Context, unit, jabatan string, typ Type, minutes int) (Result, error) {
	fail := func(err error) (Result, error) {
		return Result{}, &LookupError{Unit: unit, Jabatan: jabatan, Type: typ, Minutes: minutes, Err: err}
	}
	table, err := c.Table(unit, jabatan)
	if err != nil {
		return fail(err)
	}
	tier, err := table.Resolve(typ, minutes)
	if err != nil {
		return fail(err)
	}
	return Result{
		Unit:      unit,
		Jabatan:   jabatan,
		Type:      typ,
		Minutes:   minutes,
		Range:     tier.Range,
		Deduction: tier.Deduction,
	}, nil
}
