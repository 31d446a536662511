package attendance

import (
	"context"
	"sync"
	"time"
)

// StorageKey names the single local entry holding every record.
const StorageKey = "attendance_records"

// LocalRecords is the local fallback record set. All records live in one
// KVStore entry that is read in full and rewritten in full on every
// mutation. A mutex serializes the read-modify-write cycles.
type LocalRecords struct {
	kv  KVStore
	key string
	mu  sync.Mutex
}

// NewLocalRecords uses StorageKey as the entry name.
func NewLocalRecords(kv KVStore) *LocalRecords {
	return &LocalRecords{kv: kv, key: StorageKey}
}

func (l *LocalRecords) load(ctx context.Context) ([]Record, error) {
	data, ok, err := l.kv.Get(ctx, l.key)
	if err != nil {
		return nil, &StorageError{Op: "read", Err: err}
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}
	records, err := decodeRecords(data)
	if err != nil {
		return nil, &StorageError{Op: "decode", Err: err}
	}
	return records, nil
}

func (l *LocalRecords) store(ctx context.Context, records []Record) error {
	data, err := encodeRecords(records)
	if err != nil {
		return &StorageError{Op: "encode", Err: err}
	}
	if err := l.kv.Put(ctx, l.key, data); err != nil {
		return &StorageError{Op: "write", Err: err}
	}
	return nil
}

func indexOf(records []Record, k Key) int {
	for i, r := range records {
		if r.Key().Matches(k) {
			return i
		}
	}
	return -1
}

// Save overwrites the record with the same key, or appends it.
func (l *LocalRecords) Save(ctx context.Context, rec Record) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return Record{}, err
	}

	rec = rec.WithOrigin(LocalPersisted{})
	if i := indexOf(records, rec.Key()); i >= 0 {
		records[i] = rec
	} else {
		records = append(records, rec)
	}

	if err := l.store(ctx, records); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Query filters and sorts most recent first.
func (l *LocalRecords) Query(ctx context.Context, f Filter) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	out := []Record{}
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	SortByDateDesc(out)
	return out, nil
}

// Update overwrites the record with the same key. Missing keys are an error.
func (l *LocalRecords) Update(ctx context.Context, rec Record) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return Record{}, err
	}

	i := indexOf(records, rec.Key())
	if i < 0 {
		return Record{}, &NotFoundError{Key: rec.Key()}
	}

	rec = rec.WithOrigin(LocalPersisted{})
	records[i] = rec
	if err := l.store(ctx, records); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Delete removes the record with the key. It reports whether one existed;
// a missing key is not an error and leaves storage untouched.
func (l *LocalRecords) Delete(ctx context.Context, k Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return false, err
	}

	i := indexOf(records, k)
	if i < 0 {
		return false, nil
	}
	records = append(records[:i], records[i+1:]...)
	return true, l.store(ctx, records)
}

// LocalInfo describes the local record set.
type LocalInfo struct {
	Records int
	// UpdatedAt is zero when the entry was never written or the KVStore
	// keeps no timestamps.
	UpdatedAt time.Time
}

// Info counts the stored records and reports the last write.
func (l *LocalRecords) Info(ctx context.Context) (LocalInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return LocalInfo{}, err
	}
	info := LocalInfo{Records: len(records)}
	if ts, ok := l.kv.(TimestampedKV); ok {
		at, found, err := ts.UpdatedAt(ctx, l.key)
		if err != nil {
			return LocalInfo{}, &StorageError{Op: "read", Err: err}
		}
		if found {
			info.UpdatedAt = at
		}
	}
	return info, nil
}

// Clear drops every local record and returns how many there were. The
// entry is removed even when it cannot be decoded.
func (l *LocalRecords) Clear(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	if records, err := l.load(ctx); err == nil {
		n = len(records)
	}
	if err := l.kv.Delete(ctx, l.key); err != nil {
		return 0, &StorageError{Op: "delete", Err: err}
	}
	return n, nil
}
