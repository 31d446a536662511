/*
Package attendance records daily attendance deviations and their deductions.

PURPOSE:
  Turns a submitted attendance form into a persisted Record and reads records
  back for summaries. Persistence goes through the Adapter, which prefers the
  remote store and demotes itself to the local fallback store on the first
  remote failure.

KEY CONCEPTS IN THIS FILE (record.go):
  - Date:        calendar day, JSON "YYYY-MM-DD"
  - Key:         (date, name, unit, jabatan), unique per local store
  - Persistence: where a record lives (Unpersisted, RemotePersisted, LocalPersisted)
  - Record:      one day of one employee

INVARIANTS:
  - LateMinutes is 0 or greater than the grace band (5 minutes)
  - Deduction is never negative
  - Only RemotePersisted records carry an identifier

SEE ALSO:
  - adapter.go:  Remote/local persistence state machine
  - local.go:    Local fallback record set
  - recorder.go: Submit and edit flow
*/
package attendance

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE
// =============================================================================

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day in UTC.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date { return DateOf(time.Now()) }

// ParseDate parses "YYYY-MM-DD". A trailing time part ("T...") is ignored,
// since some stores return full timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i > 0 {
		s = s[:i]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time          { return d.t }
func (d Date) IsZero() bool             { return d.t.IsZero() }
func (d Date) Equal(other Date) bool    { return d.t.Equal(other.t) }
func (d Date) Before(other Date) bool   { return d.t.Before(other.t) }
func (d Date) After(other Date) bool    { return d.t.After(other.t) }
func (d Date) String() string           { return d.t.Format(DateLayout) }
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// KEY
// =============================================================================

// Key identifies a record when no remote identifier is known.
type Key struct {
	Date    Date
	Name    string
	Unit    string
	Jabatan string
}

// Matches compares keys field by field.
func (k Key) Matches(other Key) bool {
	return k.Date.Equal(other.Date) && k.Name == other.Name && k.Unit == other.Unit && k.Jabatan == other.Jabatan
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Date, k.Name, k.Unit, k.Jabatan)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Persistence tells where a record is stored. It is a closed sum type:
// Unpersisted, RemotePersisted or LocalPersisted.
type Persistence interface {
	persistence()
}

// Unpersisted records have not been saved yet.
type Unpersisted struct{}

// RemotePersisted records live in the remote store under ID.
type RemotePersisted struct {
	ID string
}

// LocalPersisted records live in the local fallback store.
type LocalPersisted struct{}

func (Unpersisted) persistence()     {}
func (RemotePersisted) persistence() {}
func (LocalPersisted) persistence()  {}

// =============================================================================
// RECORD
// =============================================================================

// Record is one attendance day of one employee.
type Record struct {
	Date         Date
	Name         string
	Unit         string
	Jabatan      string
	Arrival      string
	Departure    string
	LateMinutes  int
	EarlyMinutes int
	Deduction    decimal.Decimal
	Status       string
	Origin       Persistence
}

func (r Record) Key() Key {
	return Key{Date: r.Date, Name: r.Name, Unit: r.Unit, Jabatan: r.Jabatan}
}

// RemoteID returns the remote identifier when the record is remote.
func (r Record) RemoteID() (string, bool) {
	if p, ok := r.Origin.(RemotePersisted); ok && p.ID != "" {
		return p.ID, true
	}
	return "", false
}

// Persisted reports whether the record has been stored anywhere.
func (r Record) Persisted() bool {
	switch r.Origin.(type) {
	case RemotePersisted, LocalPersisted:
		return true
	}
	return false
}

// WithOrigin returns a copy with a different persistence state.
func (r Record) WithOrigin(p Persistence) Record {
	if p == nil {
		p = Unpersisted{}
	}
	r.Origin = p
	return r
}

// HasIssue reports whether the day had any penalized deviation.
func (r Record) HasIssue() bool { return r.LateMinutes > 0 || r.EarlyMinutes > 0 }

// storedRecord is the JSON shape of a record in the local fallback entry.
// The remote identifier is never written there.
type storedRecord struct {
	Date         Date            `json:"date"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Jabatan      string          `json:"jabatan"`
	Arrival      string          `json:"arrival"`
	Departure    string          `json:"departure"`
	LateMinutes  int             `json:"lateMinutes"`
	EarlyMinutes int             `json:"earlyMinutes"`
	Deduction    decimal.Decimal `json:"deduction"`
	Status       string          `json:"status"`
}

func toStored(r Record) storedRecord {
	return storedRecord{
		Date:         r.Date,
		Name:         r.Name,
		Unit:         r.Unit,
		Jabatan:      r.Jabatan,
		Arrival:      r.Arrival,
		Departure:    r.Departure,
		LateMinutes:  r.LateMinutes,
		EarlyMinutes: r.EarlyMinutes,
		Deduction:    r.Deduction,
		Status:       r.Status,
	}
}

func (s storedRecord) record() Record {
	return Record{
		Date:         s.Date,
		Name:         s.Name,
		Unit:         s.Unit,
		Jabatan:      s.Jabatan,
		Arrival:      s.Arrival,
		Departure:    s.Departure,
		LateMinutes:  s.LateMinutes,
		EarlyMinutes: s.EarlyMinutes,
		Deduction:    s.Deduction,
		Status:       s.Status,
		Origin:       LocalPersisted{},
	}
}

func encodeRecords(records []Record) ([]byte, error) {
	stored := make([]storedRecord, len(records))
	for i, r := range records {
		stored[i] = toStored(r)
	}
	return json.Marshal(stored)
}

func decodeRecords(data []byte) ([]Record, error) {
	var stored []storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	records := make([]Record, len(stored))
	for i, s := range stored {
		records[i] = s.record()
	}
	return records, nil
}
