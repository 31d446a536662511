package repository

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	repo, err := New(db, log)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func row(date, name string) *Attendance {
	return &Attendance{
		Date:        date,
		Name:        name,
		Unit:        "Finance",
		Jabatan:     "Clerk",
		Arrival:     "09:20",
		Departure:   "18:00",
		LateMinutes: 20,
		Deduction:   15000,
		Status:      "late 20m",
	}
}

func TestUpsert_CreatesThenUpdatesByKey(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	// GIVEN a fresh row
	first := row("2024-03-01", "Ani")
	created, err := repo.Upsert(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotEmpty(t, first.ID)

	// WHEN the same key is stored again with new values
	second := row("2024-03-01", "Ani")
	second.LateMinutes = 0
	second.Deduction = 0
	second.Status = "on time"
	created, err = repo.Upsert(ctx, second)
	require.NoError(t, err)

	// THEN the existing row is overwritten in place
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	rows, err := repo.List(ctx, Filter{Unit: "Finance", Jabatan: "Clerk"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "on time", rows[0].Status)
	assert.Equal(t, int64(0), rows[0].Deduction)
}

func TestList_FiltersAndSortsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, r := range []*Attendance{
		row("2024-03-01", "Ani"),
		row("2024-03-05", "Budi"),
		row("2024-03-03", "Anita"),
	} {
		_, err := repo.Upsert(ctx, r)
		require.NoError(t, err)
	}
	other := row("2024-03-04", "Ani")
	other.Unit = "HR"
	_, err := repo.Upsert(ctx, other)
	require.NoError(t, err)

	rows, err := repo.List(ctx, Filter{Unit: "Finance", Jabatan: "Clerk"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-03-05", rows[0].Date)
	assert.Equal(t, "2024-03-03", rows[1].Date)
	assert.Equal(t, "2024-03-01", rows[2].Date)

	rows, err = repo.List(ctx, Filter{Unit: "Finance", Jabatan: "Clerk", Name: "ANI"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Anita", rows[0].Name)
	assert.Equal(t, "Ani", rows[1].Name)
}

func TestList_NameFilterTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, r := range []*Attendance{
		row("2024-03-01", "Ani"),
		row("2024-03-02", "a_i Budi"),
		row("2024-03-03", "Sari 100%"),
	} {
		_, err := repo.Upsert(ctx, r)
		require.NoError(t, err)
	}

	cases := []struct {
		name string
		want []string
	}{
		{"a_i", []string{"a_i Budi"}},
		{"%", []string{"Sari 100%"}},
		{"100%", []string{"Sari 100%"}},
		{`\`, nil},
		{"ani", []string{"Ani"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := repo.List(ctx, Filter{Unit: "Finance", Jabatan: "Clerk", Name: tc.name})
			require.NoError(t, err)
			var got []string
			for _, r := range rows {
				got = append(got, r.Name)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a := row("2024-03-01", "Ani")
	_, err := repo.Upsert(ctx, a)
	require.NoError(t, err)
	b := row("2024-03-02", "Ani")
	_, err = repo.Upsert(ctx, b)
	require.NoError(t, err)

	t.Run("overwrites by id", func(t *testing.T) {
		changed := *a
		changed.Departure = "17:30"
		changed.EarlyMinutes = 30
		require.NoError(t, repo.Update(ctx, &changed))

		got, err := repo.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "17:30", got.Departure)
		assert.Equal(t, 30, got.EarlyMinutes)
	})

	t.Run("unknown id", func(t *testing.T) {
		missing := row("2024-03-09", "Ani")
		missing.ID = "does-not-exist"
		assert.ErrorIs(t, repo.Update(ctx, missing), ErrNotFound)
	})

	t.Run("key collision", func(t *testing.T) {
		moved := *b
		moved.Date = "2024-03-01"
		assert.ErrorIs(t, repo.Update(ctx, &moved), ErrConflict)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a := row("2024-03-01", "Ani")
	_, err := repo.Upsert(ctx, a)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, a.ID))
	_, err = repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, a.ID), ErrNotFound)
}
