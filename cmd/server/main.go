/*
main.go - Attendance service entry point

PURPOSE:
  Serves the deduction catalog and the attendance records over HTTP.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment), then apply flags
  2. Load the deduction catalog (xlsx, yaml or json)
  3. Open the attendance database (GORM, SQLite)
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -addr     Listen address (default: ATTENDANCE_ADDR or :8080)
  -db       SQLite database path (default: ATTENDANCE_DB or attendance.db)
            Use ":memory:" for an in-memory database
  -catalog  Deduction catalog file (default: ATTENDANCE_CATALOG)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server -catalog="./data/Pot Keterlambatan.xlsx"
  ./server -db=":memory:" -catalog=./data/catalog.yaml -addr=:3000

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment variables
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/deduction"
	"github.com/warp/attendance-engine/store/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Flags
	addr := flag.String("addr", cfg.Addr, "HTTP listen address")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	catalogPath := flag.String("catalog", cfg.CatalogPath, "Deduction catalog (.xlsx, .yaml, .json)")
	flag.Parse()

	log := cfg.Logger(os.Stderr)

	if *catalogPath == "" {
		log.Fatal("No deduction catalog: set -catalog or ATTENDANCE_CATALOG")
	}
	positions, err := deduction.LoadFile(*catalogPath)
	if err != nil {
		log.WithError(err).WithField("path", *catalogPath).Fatal("Failed to load deduction catalog")
	}
	catalog := deduction.NewCatalog(positions)
	log.WithFields(logrus.Fields{
		"path":      *catalogPath,
		"positions": len(positions),
		"units":     len(catalog.Units()),
	}).Info("Deduction catalog loaded")

	// Initialize store
	db, err := repository.Open(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	repo, err := repository.New(db, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create attendance repository")
	}
	defer repo.Close()

	handler := api.NewHandler(catalog, repo, log)
	router := api.NewRouter(handler, api.RouterOptions{})

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("addr", *addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
		return
	}

	log.Info("Server stopped")
}
