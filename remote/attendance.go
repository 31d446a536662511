package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
)

var _ attendance.RemoteStore = (*AttendanceStore)(nil)

// AttendanceStore is the attendance side of the service, as an
// attendance.RemoteStore.
type AttendanceStore struct {
	c *Client
}

// Attendance returns the RemoteStore view of the client.
func (c *Client) Attendance() *AttendanceStore { return &AttendanceStore{c: c} }

// remoteError converts a call failure for the Adapter.
func remoteError(op string, err error) error {
	rerr := &attendance.RemoteError{Op: op, Kind: attendance.RemoteTransport, Err: err}
	var cerr *CallError
	if errors.As(err, &cerr) && !cerr.Transport {
		rerr.Kind = attendance.RemoteRejected
		rerr.Status = cerr.Status
		rerr.Message = cerr.Message
	}
	return rerr
}

// Create upserts a record and returns its identifier.
func (s *AttendanceStore) Create(ctx context.Context, rec attendance.Record) (string, error) {
	dto := api.RecordToDTO(rec)
	dto.ID = ""

	env, err := s.c.do(ctx, http.MethodPost, "/api/attendance", nil, dto, nil)
	if err != nil {
		return "", remoteError("create", err)
	}
	if env.ID == "" {
		return "", &attendance.RemoteError{
			Op:      "create",
			Kind:    attendance.RemoteRejected,
			Status:  http.StatusOK,
			Message: "response carries no id",
		}
	}
	return env.ID, nil
}

// Query fetches the records of a position.
func (s *AttendanceStore) Query(ctx context.Context, f attendance.Filter) ([]attendance.Record, error) {
	q := url.Values{"unit": {f.Unit}, "jabatan": {f.Jabatan}}
	if f.Name != "" {
		q.Set("name", f.Name)
	}

	var dtos []api.AttendanceDTO
	if _, err := s.c.do(ctx, http.MethodGet, "/api/attendance", q, nil, &dtos); err != nil {
		return nil, remoteError("query", err)
	}

	records := make([]attendance.Record, 0, len(dtos))
	for _, d := range dtos {
		rec, err := d.Record()
		if err != nil {
			return nil, &attendance.RemoteError{Op: "query", Kind: attendance.RemoteRejected, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Update replaces the record stored under id.
func (s *AttendanceStore) Update(ctx context.Context, id string, rec attendance.Record) error {
	dto := api.RecordToDTO(rec)
	dto.ID = id
	if _, err := s.c.do(ctx, http.MethodPut, "/api/attendance", nil, dto, nil); err != nil {
		return remoteError("update", err)
	}
	return nil
}

// Delete removes the record stored under id.
func (s *AttendanceStore) Delete(ctx context.Context, id string) error {
	if _, err := s.c.do(ctx, http.MethodDelete, "/api/attendance", nil, api.DeleteRequest{ID: id}, nil); err != nil {
		return remoteError("delete", err)
	}
	return nil
}
