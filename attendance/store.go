package attendance

import (
	"context"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// STORE INTERFACES
// =============================================================================

// RemoteStore is the remote attendance service. Every failure must be
// reported as a *RemoteError so the Adapter can decide to fall back.
type RemoteStore interface {
	// Create stores a record and returns its remote identifier. The service
	// upserts by composite key.
	Create(ctx context.Context, rec Record) (string, error)

	// Query returns the records matching the filter, in any order.
	Query(ctx context.Context, f Filter) ([]Record, error)

	// Update replaces the record stored under id.
	Update(ctx context.Context, id string, rec Record) error

	// Delete removes the record stored under id.
	Delete(ctx context.Context, id string) error
}

// KVStore is the local fallback primitive: named entries holding opaque
// bytes, read and written whole.
type KVStore interface {
	// Get returns the entry value and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put replaces the entry value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete drops the entry. Missing entries are not an error.
	Delete(ctx context.Context, key string) error
}

// TimestampedKV is a KVStore that remembers when each entry was written.
type TimestampedKV interface {
	KVStore
	UpdatedAt(ctx context.Context, key string) (time.Time, bool, error)
}

// Store is the uniform record interface the Adapter presents.
type Store interface {
	Save(ctx context.Context, rec Record) (Record, error)
	Query(ctx context.Context, f Filter) ([]Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	Delete(ctx context.Context, rec Record) error
}

// =============================================================================
// FILTER
// =============================================================================

// Filter selects records of one position, optionally narrowed by name.
type Filter struct {
	Unit    string
	Jabatan string
	Name    string // case-insensitive substring, empty matches all
}

// Validate requires unit and jabatan.
func (f Filter) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(f.Unit) == "" {
		fields["unit"] = "required"
	}
	if strings.TrimSpace(f.Jabatan) == "" {
		fields["jabatan"] = "required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Matches applies the filter to a record.
func (f Filter) Matches(r Record) bool {
	if r.Unit != f.Unit || r.Jabatan != f.Jabatan {
		return false
	}
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Name), strings.ToLower(name))
}

// SortByDateDesc orders records most recent first. Records on the same day
// keep their relative order.
func SortByDateDesc(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
}
