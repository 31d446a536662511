/*
adapter.go - Record Store Adapter (remote first, local fallback)

PURPOSE:
  Presents one Store over two backends. While the adapter is RemoteActive
  every operation goes to the remote store first. The first failed remote
  call of any kind (transport error or explicit rejection) demotes the
  adapter to LocalFallback, and the same call is retried locally.

STATE MACHINE:
  RemoteActive --(any remote failure)--> LocalFallback
  LocalFallback is terminal. Nothing contacts the remote store again, not even a
  later successful local call. Each Adapter owns its own state, so separate
  sessions (and tests) never share it.

  The state is an atomic int32 moved with compare-and-swap. Two requests
  failing at once both end in LocalFallback and only one logs the
  transition.

OPERATIONS:
  Save    remote create (id assigned) | local upsert by key
  Query   remote query | local filter; both sorted most recent first
  Update  remote update by id | local overwrite by key
  Delete  remote delete by id | local delete by key (missing key is a no-op)

NOT DEMOTING:
  - Invalid input is rejected before any I/O.
  - A cancelled context is returned as is.
  - Local storage failures are fatal (ErrStorageUnavailable).

SEE ALSO:
  - local.go:  LocalRecords
  - remote/attendance.go: HTTP RemoteStore
*/
package attendance

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Mode is the adapter's session state.
type Mode int32

const (
	RemoteActive Mode = iota
	LocalFallback
)

func (m Mode) String() string {
	if m == LocalFallback {
		return "local_fallback"
	}
	return "remote_active"
}

// Adapter implements Store over a RemoteStore and LocalRecords.
type Adapter struct {
	remote RemoteStore
	local  *LocalRecords
	mode   atomic.Int32
	log    logrus.FieldLogger
}

var _ Store = (*Adapter)(nil)

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(l logrus.FieldLogger) AdapterOption {
	return func(a *Adapter) { a.log = l }
}

// NewAdapter builds an adapter. With a nil remote the adapter starts in
// LocalFallback.
func NewAdapter(remote RemoteStore, local *LocalRecords, opts ...AdapterOption) *Adapter {
	a := &Adapter{remote: remote, local: local, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(a)
	}
	if remote == nil {
		a.mode.Store(int32(LocalFallback))
	}
	return a
}

// Mode returns the current session state.
func (a *Adapter) Mode() Mode { return Mode(a.mode.Load()) }

func (a *Adapter) remoteActive() bool { return a.Mode() == RemoteActive }

// fallback decides whether err from a remote call demotes the adapter. It
// returns true when the caller should continue with the local store.
func (a *Adapter) fallback(ctx context.Context, op string, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		return false
	}
	if a.mode.CompareAndSwap(int32(RemoteActive), int32(LocalFallback)) {
		a.log.WithFields(logrus.Fields{
			"op":   op,
			"kind": rerr.Kind.String(),
		}).WithError(err).Warn("remote store failed, switching to local storage for this session")
	}
	return true
}

// Save persists a record.
func (a *Adapter) Save(ctx context.Context, rec Record) (Record, error) {
	if err := validateKey(rec.Key()); err != nil {
		return Record{}, err
	}

	if a.remoteActive() {
		id, err := a.remote.Create(ctx, rec)
		if err == nil {
			return rec.WithOrigin(RemotePersisted{ID: id}), nil
		}
		if !a.fallback(ctx, "save", err) {
			return Record{}, err
		}
	}
	return a.local.Save(ctx, rec)
}

// Query returns the records of a position, most recent first.
func (a *Adapter) Query(ctx context.Context, f Filter) ([]Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	if a.remoteActive() {
		records, err := a.remote.Query(ctx, f)
		if err == nil {
			SortByDateDesc(records)
			return records, nil
		}
		if !a.fallback(ctx, "query", err) {
			return nil, err
		}
	}
	return a.local.Query(ctx, f)
}

// Update replaces a stored record. Records with a remote identifier are
// updated remotely while the adapter is RemoteActive; records without one
// go through the remote upsert. Locally the record is matched by its
// current key only: nothing is written under a previous key, so callers
// reload after editing.
func (a *Adapter) Update(ctx context.Context, rec Record) (Record, error) {
	if err := validateKey(rec.Key()); err != nil {
		return Record{}, err
	}

	if a.remoteActive() {
		var err error
		if id, ok := rec.RemoteID(); ok {
			if err = a.remote.Update(ctx, id, rec); err == nil {
				return rec, nil
			}
		} else {
			var id string
			if id, err = a.remote.Create(ctx, rec); err == nil {
				return rec.WithOrigin(RemotePersisted{ID: id}), nil
			}
		}
		if !a.fallback(ctx, "update", err) {
			return Record{}, err
		}
	}
	return a.local.Update(ctx, rec)
}

// Delete removes a record. Deleting something that does not exist succeeds.
func (a *Adapter) Delete(ctx context.Context, rec Record) error {
	if id, ok := rec.RemoteID(); ok && a.remoteActive() {
		err := a.remote.Delete(ctx, id)
		if err == nil {
			return nil
		}
		if !a.fallback(ctx, "delete", err) {
			return err
		}
	}
	if err := validateKey(rec.Key()); err != nil {
		return err
	}
	_, err := a.local.Delete(ctx, rec.Key())
	return err
}

func validateKey(k Key) error {
	fields := map[string]string{}
	if k.Date.IsZero() {
		fields["date"] = "required"
	}
	if k.Name == "" {
		fields["name"] = "required"
	}
	if k.Unit == "" {
		fields["unit"] = "required"
	}
	if k.Jabatan == "" {
		fields["jabatan"] = "required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
