package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/deduction"
)

const testCatalog = `
positions:
  - unit: Finance
    jabatan: Clerk
    terlambat: [-10000, -12500, -15000, -20000, -25000, -30000, -50000]
    pulang_awal: [-5000, -10000, -15000, -20000, -25000, -30000, -40000]
`

// offline runs the CLI against a temporary local database and catalog.
func offline(t *testing.T) func(args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(testCatalog), 0o644))

	cfg := config.Defaults()
	cfg.LocalDBPath = filepath.Join(dir, "local.db")
	cfg.CatalogPath = catalog

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return func(args ...string) (string, error) {
		var out bytes.Buffer
		err := run(context.Background(), append([]string{"-offline"}, args...), &out, cfg, log)
		return out.String(), err
	}
}

func TestCLI_SaveListSummary(t *testing.T) {
	cli := offline(t)

	out, err := cli("save", "-date", "2024-03-04", "-name", "Ani", "-unit", "Finance", "-jabatan", "Clerk",
		"-arrival", "09:20", "-departure", "18:00")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved Ani on 2024-03-04 (stored locally)")
	assert.Contains(t, out, "late 20m")
	assert.Contains(t, out, "Rp 15.000")

	_, err = cli("save", "-date", "2024-03-05", "-name", "Ani", "-unit", "Finance", "-jabatan", "Clerk",
		"-late", "0", "-early", "30")
	require.NoError(t, err)

	out, err = cli("list", "-unit", "Finance", "-jabatan", "Clerk")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-03-05")
	assert.Contains(t, out, "early leave 30m")
	assert.Less(t, bytes.Index([]byte(out), []byte("2024-03-05")), bytes.Index([]byte(out), []byte("2024-03-04")))

	out, err = cli("summary", "-unit", "Finance", "-jabatan", "Clerk")
	require.NoError(t, err)
	assert.Contains(t, out, "Late days:       1")
	assert.Contains(t, out, "Total deduction: Rp 30.000")
}

func TestCLI_EditAndDelete(t *testing.T) {
	cli := offline(t)

	_, err := cli("save", "-date", "2024-03-04", "-name", "Ani", "-unit", "Finance", "-jabatan", "Clerk",
		"-arrival", "09:20", "-departure", "18:00")
	require.NoError(t, err)

	out, err := cli("edit", "-date", "2024-03-04", "-name", "Ani", "-unit", "Finance", "-jabatan", "Clerk",
		"-arrival", "09:00", "-departure", "18:00")
	require.NoError(t, err)
	assert.Contains(t, out, "on time")

	out, err = cli("delete", "-date", "2024-03-04", "-name", "Ani", "-unit", "Finance", "-jabatan", "Clerk")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted Ani")

	out, err = cli("delete", "-date", "2024-03-04", "-name", "Ani", "-unit", "Finance", "-jabatan", "Clerk")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to delete")

	_, err = cli("edit", "-date", "2024-03-04", "-name", "Ani", "-unit", "Finance", "-jabatan", "Clerk",
		"-arrival", "09:00", "-departure", "18:00")
	assert.Error(t, err)
}

func TestCLI_CatalogCommands(t *testing.T) {
	cli := offline(t)

	out, err := cli("calc", "-unit", "Finance", "-jabatan", "Clerk", "-type", "late", "-minutes", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "16-20 menit")
	assert.Contains(t, out, "Rp 15.000")

	out, err = cli("batch", "-unit", "Finance", "-jabatan", "Clerk", "terlambat:20", "pulang_awal:15", "terlambat:90")
	require.NoError(t, err)
	assert.Contains(t, out, "no deduction found")
	assert.Contains(t, out, "Rp 25.000")

	out, err = cli("table", "-unit", "Finance", "-jabatan", "Clerk")
	require.NoError(t, err)
	assert.Contains(t, out, "LATE ARRIVAL")
	assert.Contains(t, out, "Rp 50.000")

	out, err = cli("units")
	require.NoError(t, err)
	assert.Equal(t, "Finance\n", out)
}

func TestCLI_UsageErrors(t *testing.T) {
	cli := offline(t)

	_, err := cli()
	assert.ErrorIs(t, err, errUsage)

	_, err = cli("dance")
	assert.ErrorIs(t, err, errUsage)

	_, err = cli("batch", "-unit", "Finance", "-jabatan", "Clerk", "terlambat")
	assert.ErrorIs(t, err, errUsage)
}

func TestParseIncidents(t *testing.T) {
	got, err := parseIncidents([]string{"late:20", "pulang_awal:5"})
	require.NoError(t, err)
	assert.Equal(t, []deduction.Incident{
		{Type: deduction.Late, Minutes: 20},
		{Type: deduction.EarlyLeave, Minutes: 5},
	}, got)

	_, err = parseIncidents([]string{"late:-3"})
	assert.ErrorIs(t, err, errUsage)
}

func TestRupiah(t *testing.T) {
	assert.Equal(t, "Rp 0", rupiah(decimal.Zero))
	assert.Equal(t, "Rp 500", rupiah(decimal.NewFromInt(500)))
	assert.Equal(t, "Rp 15.000", rupiah(decimal.NewFromInt(15000)))
	assert.Equal(t, "Rp 1.250.000", rupiah(decimal.NewFromInt(1250000)))
	assert.Equal(t, "-Rp 15.000", rupiah(decimal.NewFromInt(-15000)))
}

func TestCLI_EphemeralSession(t *testing.T) {
	cli := offline(t)

	// GIVEN: a record saved to the persistent local database
	_, err := cli("save", "-date", "2024-03-04", "-name", "Ani", "-unit", "Finance", "-jabatan", "Clerk",
		"-arrival", "09:20", "-departure", "18:00")
	require.NoError(t, err)

	// WHEN: listing from an in-memory session
	out, err := cli("-ephemeral", "list", "-unit", "Finance", "-jabatan", "Clerk")

	// THEN: the persistent record is not visible
	require.NoError(t, err)
	assert.NotContains(t, out, "2024-03-04")
}

func TestCLI_LocalInfoAndReset(t *testing.T) {
	cli := offline(t)

	// GIVEN: Two days stored locally
	for _, date := range []string{"2024-03-04", "2024-03-05"} {
		_, err := cli("save", "-date", date, "-name", "Ani", "-unit", "Finance", "-jabatan", "Clerk", "-late", "0", "-early", "0")
		require.NoError(t, err)
	}

	out, err := cli("local")
	require.NoError(t, err)
	assert.Contains(t, out, "Local records: 2")
	assert.Contains(t, out, "Last write:")

	// WHEN: Resetting without confirmation
	_, err = cli("reset")

	// THEN: Nothing is dropped
	assert.ErrorIs(t, err, errUsage)
	out, err = cli("local")
	require.NoError(t, err)
	assert.Contains(t, out, "Local records: 2")

	// WHEN: Resetting with confirmation
	out, err = cli("reset", "-yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Dropped 2 local record(s)")

	// THEN: The local store is empty
	out, err = cli("list", "-unit", "Finance", "-jabatan", "Clerk")
	require.NoError(t, err)
	assert.Contains(t, out, "No records")
	out, err = cli("local")
	require.NoError(t, err)
	assert.Equal(t, "Local records: 0\n", out)
}
