package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
)

func TestStore_GetPutDelete(t *testing.T) {
	ctx := context.Background()
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "k", []byte(`[1]`)))
	require.NoError(t, store.Put(ctx, "k", []byte(`[1,2]`)))

	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[1,2]`, string(v))

	_, ok, err = store.UpdatedAt(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_LocalRecordsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.db")

	// GIVEN a record saved through the local fallback
	store, err := New(path)
	require.NoError(t, err)
	_, err = attendance.NewLocalRecords(store).Save(ctx, attendance.Record{
		Date:        attendance.NewDate(2024, 3, 4),
		Name:        "Ani",
		Unit:        "Finance",
		Jabatan:     "Clerk",
		Arrival:     "09:20",
		Departure:   "18:00",
		LateMinutes: 20,
		Deduction:   decimal.NewFromInt(15000),
		Status:      "late 20m",
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// WHEN the database is reopened
	store, err = New(path)
	require.NoError(t, err)
	defer store.Close()

	// THEN the record is still there
	got, err := attendance.NewLocalRecords(store).Query(ctx, attendance.Filter{Unit: "Finance", Jabatan: "Clerk"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ani", got[0].Name)
	assert.True(t, got[0].Deduction.Equal(decimal.NewFromInt(15000)))
}

func TestStore_LocalInfoAndClear(t *testing.T) {
	ctx := context.Background()
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()
	local := attendance.NewLocalRecords(store)

	// GIVEN an empty store
	info, err := local.Info(ctx)
	require.NoError(t, err)
	assert.Zero(t, info.Records)
	assert.True(t, info.UpdatedAt.IsZero())

	// WHEN a record is saved
	_, err = local.Save(ctx, attendance.Record{
		Date:    attendance.NewDate(2024, 3, 4),
		Name:    "Ani",
		Unit:    "Finance",
		Jabatan: "Clerk",
	})
	require.NoError(t, err)

	// THEN the write time is reported
	info, err = local.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Records)
	assert.False(t, info.UpdatedAt.IsZero())

	// WHEN the store is cleared
	n, err := local.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// THEN the entry is gone
	_, ok, err := store.Get(ctx, attendance.StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
	info, err = local.Info(ctx)
	require.NoError(t, err)
	assert.Zero(t, info.Records)
	assert.True(t, info.UpdatedAt.IsZero())
}
