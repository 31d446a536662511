/*
main.go - Staff attendance client

PURPOSE:
  Command-line counterpart of the staff attendance form. Records are sent
  to the attendance service; when the service fails the session switches to
  a local SQLite file and stays there until the process exits.

USAGE:
  absensi [global flags] <command> [flags]

GLOBAL FLAGS:
  -remote   Service URL (default: ATTENDANCE_REMOTE_URL)
  -local    Local fallback database (default: ATTENDANCE_LOCAL_DB)
  -catalog  Resolve deductions from a local catalog file instead of the service
  -offline  Never contact the service
  -ephemeral Keep fallback records in memory for this run only

COMMANDS:
  save       Record a day (arrival/departure or -late/-early minutes)
  edit       Recompute an existing day
  delete     Remove a day
  list       Show records of a position, most recent first
  summary    Late days, early days, total deduction
  units      List units
  positions  List positions of a unit
  table      Show the deduction table of a position
  calc       Deduction of one deviation
  batch      Sum several deviations, e.g. terlambat:20 pulang_awal:15
  local      Count records kept in local storage and show the last write
  reset      Drop every locally stored record (requires -yes)

EXIT CODES:
  0 success, 1 failure, 2 invalid input

SEE ALSO:
  - attendance/recorder.go: Submit and edit flow
  - attendance/adapter.go: Remote/local switching
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/deduction"
	"github.com/warp/attendance-engine/remote"
	"github.com/warp/attendance-engine/store/memory"
	"github.com/warp/attendance-engine/store/sqlite"
)

// errUsage marks command-line mistakes.
var errUsage = errors.New("usage")

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, os.Args[1:], os.Stdout, cfg, cfg.Logger(os.Stderr))
	switch {
	case err == nil:
	case errors.Is(err, errUsage), attendance.IsUserError(err):
		fmt.Fprintln(os.Stderr, "absensi:", err)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "absensi:", err)
		os.Exit(1)
	}
}

// app holds the wired components of one session.
type app struct {
	out      io.Writer
	log      logrus.FieldLogger
	client   *remote.Client     // nil when offline
	catalog  *deduction.Catalog // nil unless -catalog is given
	lookup   deduction.Lookup
	local    *attendance.LocalRecords
	adapter  *attendance.Adapter
	recorder *attendance.Recorder
}

func run(ctx context.Context, args []string, out io.Writer, cfg config.Config, log *logrus.Logger) error {
	fs := flag.NewFlagSet("absensi", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	remoteURL := fs.String("remote", cfg.RemoteURL, "attendance service URL")
	localPath := fs.String("local", cfg.LocalDBPath, "local fallback database")
	catalogPath := fs.String("catalog", cfg.CatalogPath, "deduction catalog file")
	offline := fs.Bool("offline", false, "never contact the service")
	ephemeral := fs.Bool("ephemeral", false, "keep fallback records in memory")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: absensi [flags] <save|edit|delete|list|summary|units|positions|table|calc|batch|local|reset> [flags]", errUsage)
	}

	var kv attendance.KVStore
	if *ephemeral {
		kv = memory.NewMemory()
	} else {
		db, err := sqlite.New(*localPath)
		if err != nil {
			return fmt.Errorf("failed to open local storage: %w", err)
		}
		defer db.Close()
		kv = db
	}

	a := &app{out: out, log: log}

	var remoteStore attendance.RemoteStore
	if !*offline {
		a.client = remote.New(*remoteURL, remote.WithTimeout(cfg.HTTPTimeout), remote.WithLogger(log))
		remoteStore = a.client.Attendance()
	}

	// Only the catalog file is read here; the service catalog is queried per call.
	if *catalogPath != "" {
		positions, err := deduction.LoadFile(*catalogPath)
		if err != nil {
			return err
		}
		a.catalog = deduction.NewCatalog(positions)
	}
	switch {
	case a.catalog != nil:
		a.lookup = a.catalog
	case a.client != nil:
		a.lookup = a.client
	default:
		a.lookup = unavailableLookup{}
	}

	a.local = attendance.NewLocalRecords(kv)
	a.adapter = attendance.NewAdapter(remoteStore, a.local, attendance.WithLogger(log))
	a.recorder = attendance.NewRecorder(a.adapter, a.lookup,
		attendance.WithSchedule(cfg.Schedule),
		attendance.WithRecorderLogger(log),
	)

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "save":
		return a.save(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "list":
		return a.list(ctx, rest)
	case "summary":
		return a.summary(ctx, rest)
	case "units":
		return a.units(ctx)
	case "positions":
		return a.positions(ctx, rest)
	case "table":
		return a.table(ctx, rest)
	case "calc":
		return a.calc(ctx, rest)
	case "batch":
		return a.batch(ctx, rest)
	case "local":
		return a.localInfo(ctx)
	case "reset":
		return a.reset(ctx, rest)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

// unavailableLookup stands in when neither the service nor a catalog file
// can resolve deductions. Every lookup fails, so deductions count as zero.
type unavailableLookup struct{}

func (unavailableLookup) Calculate(_ context.Context, unit, jabatan string, typ deduction.Type, minutes int) (deduction.Result, error) {
	return deduction.Result{}, &deduction.LookupError{
		Unit:    unit,
		Jabatan: jabatan,
		Type:    typ,
		Minutes: minutes,
		Err:     errors.New("offline without a deduction catalog"),
	}
}
