package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/deduction"
	"github.com/warp/attendance-engine/store/repository"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return log
}

// newService starts the real backend on an in-memory database.
func newService(t *testing.T) *httptest.Server {
	t.Helper()
	dec := func(vs ...int64) []decimal.Decimal {
		out := make([]decimal.Decimal, len(vs))
		for i, v := range vs {
			out[i] = decimal.NewFromInt(v)
		}
		return out
	}
	table, err := deduction.StandardTable(
		dec(-10000, -12500, -15000, -20000, -25000, -30000, -50000),
		dec(-5000, -10000, -15000, -20000, -25000, -30000, -40000),
	)
	require.NoError(t, err)
	catalog := deduction.NewCatalog([]deduction.Position{
		{Unit: "Finance", Jabatan: "Clerk", Table: table},
	})

	db, err := repository.Open(":memory:")
	require.NoError(t, err)
	repo, err := repository.New(db, quietLogger())
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(catalog, repo, quietLogger()), api.RouterOptions{}))
	t.Cleanup(func() {
		srv.Close()
		repo.Close()
	})
	return srv
}

func newClient(srv *httptest.Server) *Client {
	return New(srv.URL+"/", WithLogger(quietLogger()))
}

func record(date attendance.Date, name string) attendance.Record {
	return attendance.Record{
		Date:        date,
		Name:        name,
		Unit:        "Finance",
		Jabatan:     "Clerk",
		Arrival:     "09:20",
		Departure:   "18:00",
		LateMinutes: 20,
		Deduction:   decimal.NewFromInt(15000),
		Status:      "late 20m",
		Origin:      attendance.Unpersisted{},
	}
}

// =============================================================================
// CATALOG
// =============================================================================

func TestClient_Catalog(t *testing.T) {
	ctx := context.Background()
	c := newClient(newService(t))

	units, err := c.Units(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Finance"}, units)

	positions, err := c.Positions(ctx, "Finance")
	require.NoError(t, err)
	assert.Equal(t, []string{"Clerk"}, positions)

	table, err := c.DeductionTable(ctx, "Finance", "Clerk")
	require.NoError(t, err)
	require.Len(t, table.Late, 7)
	assert.Equal(t, "6-10 menit", table.Late[0].Range)
	assert.True(t, table.Late[0].Deduction.Equal(decimal.NewFromInt(-10000)))

	_, err = c.DeductionTable(ctx, "Finance", "Janitor")
	var cerr *CallError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusNotFound, cerr.Status)
	assert.ErrorIs(t, err, ErrService)
}

func TestClient_Calculate(t *testing.T) {
	ctx := context.Background()
	c := newClient(newService(t))

	res, err := c.Calculate(ctx, "Finance", "Clerk", deduction.Late, 20)
	require.NoError(t, err)
	assert.Equal(t, "16-20 menit", res.Range)
	assert.True(t, res.Amount().Equal(decimal.NewFromInt(15000)))

	_, err = c.Calculate(ctx, "Finance", "Clerk", deduction.Late, 90)
	assert.ErrorIs(t, err, deduction.ErrLookupFailed)
	var lerr *deduction.LookupError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 90, lerr.Minutes)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestAttendanceStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newClient(newService(t)).Attendance()
	day := attendance.NewDate(2024, time.March, 1)

	// GIVEN a record created remotely
	id, err := store.Create(ctx, record(day, "Ani"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// WHEN it is queried back
	got, err := store.Query(ctx, attendance.Filter{Unit: "Finance", Jabatan: "Clerk"})
	require.NoError(t, err)

	// THEN it carries its remote identifier and fields
	require.Len(t, got, 1)
	gotID, ok := got[0].RemoteID()
	require.True(t, ok)
	assert.Equal(t, id, gotID)
	assert.True(t, got[0].Date.Equal(day))
	assert.Equal(t, 20, got[0].LateMinutes)
	assert.True(t, got[0].Deduction.Equal(decimal.NewFromInt(15000)))

	// AND a second create with the same key upserts
	again, err := store.Create(ctx, record(day, "Ani"))
	require.NoError(t, err)
	assert.Equal(t, id, again)

	// AND update and delete work by id
	changed := record(day, "Ani")
	changed.LateMinutes = 0
	changed.Status = "on time"
	require.NoError(t, store.Update(ctx, id, changed))

	got, err = store.Query(ctx, attendance.Filter{Unit: "Finance", Jabatan: "Clerk"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "on time", got[0].Status)

	require.NoError(t, store.Delete(ctx, id))
	got, err = store.Query(ctx, attendance.Filter{Unit: "Finance", Jabatan: "Clerk"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAttendanceStore_RejectionIsRemoteError(t *testing.T) {
	ctx := context.Background()
	store := newClient(newService(t)).Attendance()

	err := store.Delete(ctx, "missing")
	var rerr *attendance.RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, attendance.RemoteRejected, rerr.Kind)
	assert.Equal(t, http.StatusNotFound, rerr.Status)
	assert.ErrorIs(t, err, attendance.ErrRemoteStoreFailed)
}

func TestAttendanceStore_SuccessFalseIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "error": "database is read-only"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv).Attendance().Create(context.Background(), record(attendance.NewDate(2024, time.March, 1), "Ani"))
	var rerr *attendance.RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, attendance.RemoteRejected, rerr.Kind)
	assert.Equal(t, "database is read-only", rerr.Message)
}

func TestAttendanceStore_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, WithTimeout(time.Second), WithLogger(quietLogger()))
	_, err := c.Attendance().Query(context.Background(), attendance.Filter{Unit: "Finance", Jabatan: "Clerk"})

	var rerr *attendance.RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, attendance.RemoteTransport, rerr.Kind)
	assert.True(t, errors.Is(err, attendance.ErrRemoteStoreFailed))
}

func TestNew_DefaultTimeout(t *testing.T) {
	c := New("http://localhost:8080/")
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
	assert.Equal(t, "http://localhost:8080", c.BaseURL())
}

func TestNew_TimeoutDoesNotMutateSharedClient(t *testing.T) {
	// GIVEN: A caller-owned http.Client shared with other code
	shared := &http.Client{Timeout: time.Minute}

	// WHEN: A client is built with it and a shorter timeout
	c := New("http://localhost:8080", WithHTTPClient(shared), WithTimeout(2*time.Second))

	// THEN: Only the client's own copy carries the timeout
	assert.Equal(t, 2*time.Second, c.http.Timeout)
	assert.Equal(t, time.Minute, shared.Timeout)
	assert.NotSame(t, shared, c.http)
}

func TestNew_SharedClientKeptWithoutTimeout(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c := New("http://localhost:8080", WithHTTPClient(shared))
	assert.Same(t, shared, c.http)
}

func TestNew_NilHTTPClientFallsBackToDefault(t *testing.T) {
	assert.NotPanics(t, func() {
		c := New("http://localhost:8080", WithHTTPClient(nil), WithTimeout(3*time.Second))
		require.NotNil(t, c.http)
		assert.Equal(t, 3*time.Second, c.http.Timeout)
	})

	c := New("http://localhost:8080", WithHTTPClient(nil))
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}
