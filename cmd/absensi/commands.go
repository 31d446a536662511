package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/deduction"
)

// =============================================================================
// FLAG HELPERS
// =============================================================================

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

type positionFlags struct {
	unit, jabatan *string
}

func addPosition(fs *flag.FlagSet) positionFlags {
	return positionFlags{
		unit:    fs.String("unit", "", "unit"),
		jabatan: fs.String("jabatan", "", "position"),
	}
}

type dayFlags struct {
	positionFlags
	date, name         *string
	arrival, departure *string
	late, early        *int
}

func addDay(fs *flag.FlagSet) dayFlags {
	return dayFlags{
		positionFlags: addPosition(fs),
		date:          fs.String("date", attendance.Today().String(), "day, YYYY-MM-DD"),
		name:          fs.String("name", "", "employee name"),
		arrival:       fs.String("arrival", "", "arrival time, HH:MM"),
		departure:     fs.String("departure", "", "departure time, HH:MM"),
		late:          fs.Int("late", -1, "minutes late, instead of -arrival/-departure"),
		early:         fs.Int("early", -1, "minutes of early leave, instead of -arrival/-departure"),
	}
}

func (d dayFlags) submission() attendance.Submission {
	sub := attendance.Submission{
		Date:      *d.date,
		Name:      *d.name,
		Unit:      *d.unit,
		Jabatan:   *d.jabatan,
		Arrival:   *d.arrival,
		Departure: *d.departure,
	}
	if *d.late >= 0 || *d.early >= 0 {
		late, early := max(0, *d.late), max(0, *d.early)
		sub.LateMinutes, sub.EarlyMinutes = &late, &early
	}
	return sub
}

func (a *app) find(ctx context.Context, d dayFlags) (attendance.Record, bool, error) {
	date, err := attendance.ParseDate(*d.date)
	if err != nil {
		return attendance.Record{}, false, fmt.Errorf("%w: %w", attendance.ErrInvalidInput, err)
	}
	records, err := a.recorder.History(ctx, attendance.Filter{Unit: *d.unit, Jabatan: *d.jabatan, Name: *d.name})
	if err != nil {
		return attendance.Record{}, false, err
	}
	key := attendance.Key{Date: date, Name: strings.TrimSpace(*d.name), Unit: *d.unit, Jabatan: *d.jabatan}
	for _, r := range records {
		if r.Key().Matches(key) {
			return r, true, nil
		}
	}
	return attendance.Record{}, false, nil
}

// =============================================================================
// RECORD COMMANDS
// =============================================================================

func (a *app) save(ctx context.Context, args []string) error {
	fs := newFlags("save")
	d := addDay(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	rcpt, err := a.recorder.Submit(ctx, d.submission())
	if err != nil {
		return err
	}
	a.printReceipt("Saved", rcpt)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := newFlags("edit")
	d := addDay(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	existing, ok, err := a.find(ctx, d)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s on %s", attendance.ErrRecordNotFound, *d.name, *d.date)
	}

	rcpt, err := a.recorder.Edit(ctx, existing, d.submission())
	if err != nil {
		return err
	}
	a.printReceipt("Updated", rcpt)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := newFlags("delete")
	d := addDay(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	existing, ok, err := a.find(ctx, d)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(a.out, "Nothing to delete for %s on %s\n", *d.name, *d.date)
		return nil
	}
	if err := a.recorder.Delete(ctx, existing); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s on %s%s\n", existing.Name, existing.Date, a.storageNote())
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := newFlags("list")
	p := addPosition(fs)
	name := fs.String("name", "", "name contains (case-insensitive)")
	if err := parse(fs, args); err != nil {
		return err
	}

	records, err := a.recorder.History(ctx, attendance.Filter{Unit: *p.unit, Jabatan: *p.jabatan, Name: *name})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No records")
		return nil
	}
	a.printRecords(records)
	return nil
}

func (a *app) summary(ctx context.Context, args []string) error {
	fs := newFlags("summary")
	p := addPosition(fs)
	name := fs.String("name", "", "name contains (case-insensitive)")
	if err := parse(fs, args); err != nil {
		return err
	}

	sum, err := a.recorder.Summary(ctx, attendance.Filter{Unit: *p.unit, Jabatan: *p.jabatan, Name: *name})
	if err != nil {
		return err
	}
	if sum.Empty() {
		fmt.Fprintln(a.out, "No records")
		return nil
	}

	fmt.Fprintf(a.out, "%s - %s\n", *p.unit, *p.jabatan)
	fmt.Fprintf(a.out, "Period:          %s to %s\n", sum.From, sum.To)
	fmt.Fprintf(a.out, "Records:         %d\n", len(sum.Records))
	fmt.Fprintf(a.out, "Late days:       %d\n", sum.LateDays)
	fmt.Fprintf(a.out, "Early leave days: %d\n", sum.EarlyDays)
	fmt.Fprintf(a.out, "Total deduction: %s\n", rupiah(sum.TotalDeduction))
	if len(sum.Issues) > 0 {
		fmt.Fprintln(a.out)
		a.printRecords(sum.Issues)
	}
	return nil
}

// =============================================================================
// LOCAL STORAGE COMMANDS
// =============================================================================

func (a *app) localInfo(ctx context.Context) error {
	info, err := a.local.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Local records: %d\n", info.Records)
	if !info.UpdatedAt.IsZero() {
		fmt.Fprintf(a.out, "Last write:    %s\n", info.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *app) reset(ctx context.Context, args []string) error {
	fs := newFlags("reset")
	yes := fs.Bool("yes", false, "confirm dropping every local record")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("%w: reset drops every local record, pass -yes to confirm", errUsage)
	}

	n, err := a.local.Clear(ctx)
	if err != nil {
		return err
	}
	a.log.WithField("records", n).Info("local storage cleared")
	fmt.Fprintf(a.out, "Dropped %d local record(s)\n", n)
	return nil
}

// =============================================================================
// CATALOG COMMANDS
// =============================================================================

func (a *app) units(ctx context.Context) error {
	var units []string
	switch {
	case a.catalog != nil:
		units = a.catalog.Units()
	case a.client != nil:
		var err error
		if units, err = a.client.Units(ctx); err != nil {
			return err
		}
	default:
		return errNoCatalog
	}
	for _, u := range units {
		fmt.Fprintln(a.out, u)
	}
	return nil
}

func (a *app) positions(ctx context.Context, args []string) error {
	fs := newFlags("positions")
	unit := fs.String("unit", "", "unit")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *unit == "" {
		return fmt.Errorf("%w: positions: -unit is required", errUsage)
	}

	var positions []string
	switch {
	case a.catalog != nil:
		positions = a.catalog.Positions(*unit)
	case a.client != nil:
		var err error
		if positions, err = a.client.Positions(ctx, *unit); err != nil {
			return err
		}
	default:
		return errNoCatalog
	}
	for _, p := range positions {
		fmt.Fprintln(a.out, p)
	}
	return nil
}

func (a *app) table(ctx context.Context, args []string) error {
	fs := newFlags("table")
	p := addPosition(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	var (
		table deduction.Table
		err   error
	)
	switch {
	case a.catalog != nil:
		table, err = a.catalog.Table(*p.unit, *p.jabatan)
	case a.client != nil:
		table, err = a.client.DeductionTable(ctx, *p.unit, *p.jabatan)
	default:
		err = errNoCatalog
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, typ := range []deduction.Type{deduction.Late, deduction.EarlyLeave} {
		fmt.Fprintf(tw, "%s\t\n", strings.ToUpper(typ.Label()))
		for _, tier := range table.Tiers(typ) {
			fmt.Fprintf(tw, "  %s\t%s\n", tier.Range, rupiah(tier.Deduction.Abs()))
		}
	}
	return tw.Flush()
}

func (a *app) calc(ctx context.Context, args []string) error {
	fs := newFlags("calc")
	p := addPosition(fs)
	typName := fs.String("type", string(deduction.Late), "terlambat or pulang_awal")
	minutes := fs.Int("minutes", 0, "deviation in minutes")
	if err := parse(fs, args); err != nil {
		return err
	}
	typ, err := deduction.ParseType(*typName)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	res, err := a.lookup.Calculate(ctx, *p.unit, *p.jabatan, typ, *minutes)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %d minutes (%s): %s\n", typ.Label(), res.Minutes, res.Range, rupiah(res.Amount()))
	return nil
}

func (a *app) batch(ctx context.Context, args []string) error {
	fs := newFlags("batch")
	p := addPosition(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	incidents, err := parseIncidents(fs.Args())
	if err != nil {
		return err
	}

	res, err := deduction.CalculateBatch(ctx, a.lookup, *p.unit, *p.jabatan, incidents)
	if err != nil {
		if errors.Is(err, deduction.ErrEmptyBatch) {
			return fmt.Errorf("%w: batch: %v", errUsage, err)
		}
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, d := range res.Details {
		fmt.Fprintf(tw, "%s\t%d min\t%s\t%s\n", d.Type.Label(), d.Minutes, d.Range, rupiah(d.Deduction.Abs()))
	}
	for _, f := range res.Failed {
		fmt.Fprintf(tw, "%s\t%d min\tno deduction found\t-\n", f.Type.Label(), f.Minutes)
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t%s\n", rupiah(res.Total))
	return tw.Flush()
}

// parseIncidents reads "type:minutes" arguments.
func parseIncidents(args []string) ([]deduction.Incident, error) {
	incidents := make([]deduction.Incident, 0, len(args))
	for _, arg := range args {
		typName, raw, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not type:minutes", errUsage, arg)
		}
		typ, err := deduction.ParseType(typName)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("%w: %q: minutes must be a positive number", errUsage, arg)
		}
		incidents = append(incidents, deduction.Incident{Type: typ, Minutes: minutes})
	}
	return incidents, nil
}

var errNoCatalog = errors.New("offline without a deduction catalog: pass -catalog")

// =============================================================================
// OUTPUT
// =============================================================================

func (a *app) storageNote() string {
	if a.adapter.Mode() == attendance.LocalFallback {
		return " (stored locally)"
	}
	return ""
}

func (a *app) printReceipt(verb string, rcpt attendance.Receipt) {
	r := rcpt.Record
	fmt.Fprintf(a.out, "%s %s on %s%s\n", verb, r.Name, r.Date, a.storageNote())
	fmt.Fprintf(a.out, "  %s-%s  %s  deduction %s\n", r.Arrival, r.Departure, r.Status, rupiah(r.Deduction))
	for _, typ := range rcpt.Degraded {
		fmt.Fprintf(a.out, "  warning: no %s deduction could be resolved, counted as zero\n", typ.Label())
	}
}

func (a *app) printRecords(records []attendance.Record) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tNAME\tARRIVAL\tDEPARTURE\tSTATUS\tDEDUCTION")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Date, r.Name, r.Arrival, r.Departure, r.Status, rupiah(r.Deduction))
	}
	tw.Flush()
}

// rupiah formats a whole amount with dot thousands separators: "Rp 15.000".
func rupiah(d decimal.Decimal) string {
	s := d.Abs().StringFixed(0)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	if d.IsNegative() {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}
