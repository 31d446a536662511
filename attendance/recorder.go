/*
recorder.go - Submit and edit flow for attendance records

PURPOSE:
  Glues the pieces together for one form submission:

    Submission --validate--> deviations --lookup--> deduction --Store--> Record

FLOW:
  1. Validate required fields (no I/O on failure)
  2. Compute raw lateness and early leave, from clock times or from minutes
     entered directly
  3. Look up at most one deduction per deviation type, concurrently:
     lateness only past the grace band, early leave for any minute
  4. Sum the absolute deductions; a failed lookup contributes zero and is
     reported in Receipt.Degraded, it never aborts the save
  5. Classify, build the Record, persist through the Store

SEE ALSO:
  - deviation/: Pure deviation arithmetic
  - deduction/: Lookup interface
  - adapter.go: Store implementation
*/
package attendance

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/deduction"
	"github.com/warp/attendance-engine/deviation"
	"golang.org/x/sync/errgroup"
)

// Submission is the attendance form. Either Arrival and Departure are given,
// or the deviations are entered directly in LateMinutes/EarlyMinutes.
type Submission struct {
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Name         string `json:"name" validate:"required"`
	Unit         string `json:"unit" validate:"required"`
	Jabatan      string `json:"jabatan" validate:"required"`
	Arrival      string `json:"arrival"`
	Departure    string `json:"departure"`
	LateMinutes  *int   `json:"late_minutes" validate:"omitempty,min=0"`
	EarlyMinutes *int   `json:"early_minutes" validate:"omitempty,min=0"`
}

func (s Submission) directEntry() bool { return s.LateMinutes != nil || s.EarlyMinutes != nil }

// Receipt is the outcome of a submission.
type Receipt struct {
	Record   Record
	Late     *deduction.Result
	Early    *deduction.Result
	Degraded []deduction.Type // lookups that failed and counted as zero
}

// Recorder turns submissions into stored records.
type Recorder struct {
	store    Store
	lookup   deduction.Lookup
	schedule deviation.Schedule
	validate *validator.Validate
	log      logrus.FieldLogger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSchedule overrides the default 09:00-18:00 schedule.
func WithSchedule(s deviation.Schedule) RecorderOption {
	return func(r *Recorder) { r.schedule = s }
}

// WithRecorderLogger sets the recorder logger.
func WithRecorderLogger(l logrus.FieldLogger) RecorderOption {
	return func(r *Recorder) { r.log = l }
}

func NewRecorder(store Store, lookup deduction.Lookup, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:    store,
		lookup:   lookup,
		schedule: deviation.DefaultSchedule(),
		validate: newValidator(),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Schedule returns the schedule deviations are measured against.
func (r *Recorder) Schedule() deviation.Schedule { return r.schedule }

// Submit computes and stores a new record. A record with the same key is
// overwritten.
func (r *Recorder) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	rcpt, err := r.build(ctx, sub)
	if err != nil {
		return Receipt{}, err
	}
	saved, err := r.store.Save(ctx, rcpt.Record)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to save attendance: %w", err)
	}
	rcpt.Record = saved
	return rcpt, nil
}

// Edit recomputes an existing record from a new submission. The stored
// record is located by its remote identifier when it has one, otherwise by
// the submission's key.
func (r *Recorder) Edit(ctx context.Context, existing Record, sub Submission) (Receipt, error) {
	rcpt, err := r.build(ctx, sub)
	if err != nil {
		return Receipt{}, err
	}
	rec := rcpt.Record
	if _, ok := existing.RemoteID(); ok {
		rec = rec.WithOrigin(existing.Origin)
	}
	updated, err := r.store.Update(ctx, rec)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to update attendance: %w", err)
	}
	rcpt.Record = updated
	return rcpt, nil
}

// Delete removes a record.
func (r *Recorder) Delete(ctx context.Context, rec Record) error {
	return r.store.Delete(ctx, rec)
}

// History returns the records of a position, most recent first.
func (r *Recorder) History(ctx context.Context, f Filter) ([]Record, error) {
	return r.store.Query(ctx, f)
}

// Summary aggregates the records of a position.
func (r *Recorder) Summary(ctx context.Context, f Filter) (Summary, error) {
	records, err := r.store.Query(ctx, f)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(f, records), nil
}

// =============================================================================
// BUILD
// =============================================================================

func (r *Recorder) check(sub Submission) error {
	fields := map[string]string{}
	if err := r.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	if !sub.directEntry() {
		if strings.TrimSpace(sub.Arrival) == "" {
			fields["arrival"] = "required"
		}
		if strings.TrimSpace(sub.Departure) == "" {
			fields["departure"] = "required"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (r *Recorder) measure(sub Submission) (deviation.Deviations, error) {
	if sub.directEntry() {
		var late, early int
		if sub.LateMinutes != nil {
			late = *sub.LateMinutes
		}
		if sub.EarlyMinutes != nil {
			early = *sub.EarlyMinutes
		}
		return r.schedule.Derive(late, early), nil
	}
	d, err := r.schedule.Measure(sub.Arrival, sub.Departure)
	if err != nil {
		return deviation.Deviations{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return d, nil
}

func (r *Recorder) build(ctx context.Context, sub Submission) (Receipt, error) {
	if err := r.check(sub); err != nil {
		return Receipt{}, err
	}
	date, err := ParseDate(sub.Date)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	dev, err := r.measure(sub)
	if err != nil {
		return Receipt{}, err
	}

	rcpt := Receipt{}
	var g errgroup.Group
	if deviation.IsLate(dev.Late) {
		g.Go(func() error {
			rcpt.Late = r.resolve(ctx, sub, deduction.Late, dev.Late)
			return nil
		})
	}
	if deviation.IsEarly(dev.Early) {
		g.Go(func() error {
			rcpt.Early = r.resolve(ctx, sub, deduction.EarlyLeave, dev.Early)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	total := decimal.Zero
	if deviation.IsLate(dev.Late) {
		if rcpt.Late != nil {
			total = total.Add(rcpt.Late.Amount())
		} else {
			rcpt.Degraded = append(rcpt.Degraded, deduction.Late)
		}
	}
	if deviation.IsEarly(dev.Early) {
		if rcpt.Early != nil {
			total = total.Add(rcpt.Early.Amount())
		} else {
			rcpt.Degraded = append(rcpt.Degraded, deduction.EarlyLeave)
		}
	}

	status := dev.Status()
	rcpt.Record = Record{
		Date:         date,
		Name:         strings.TrimSpace(sub.Name),
		Unit:         sub.Unit,
		Jabatan:      sub.Jabatan,
		Arrival:      dev.Arrival.String(),
		Departure:    dev.Departure.String(),
		LateMinutes:  status.Late,
		EarlyMinutes: status.Early,
		Deduction:    total,
		Status:       status.Label,
		Origin:       Unpersisted{},
	}
	return rcpt, nil
}

// resolve runs one lookup. Failures are logged and yield nil.
func (r *Recorder) resolve(ctx context.Context, sub Submission, typ deduction.Type, minutes int) *deduction.Result {
	res, err := r.lookup.Calculate(ctx, sub.Unit, sub.Jabatan, typ, minutes)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"unit":    sub.Unit,
			"jabatan": sub.Jabatan,
			"type":    typ,
			"minutes": minutes,
		}).WithError(err).Warn("deduction lookup failed, counting zero")
		return nil
	}
	return &res
}
