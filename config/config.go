/*
Package config loads runtime configuration from the environment.

PURPOSE:
  Both binaries read the same variables. A .env file in the working
  directory is loaded first when present; variables already set in the
  environment win over it.

VARIABLES:
  ATTENDANCE_ADDR          HTTP listen address of the service   (:8080)
  ATTENDANCE_DB            Service database path                 (attendance.db)
  ATTENDANCE_CATALOG       Deduction catalog (.xlsx, .yaml, .json)
  ATTENDANCE_REMOTE_URL    Service URL used by the client CLI    (http://localhost:8080)
  ATTENDANCE_LOCAL_DB      Client local fallback database        (absensi-local.db)
  ATTENDANCE_WORK_START    Scheduled start                       (09:00)
  ATTENDANCE_WORK_END      Scheduled end                         (18:00)
  ATTENDANCE_HTTP_TIMEOUT  Client request timeout                (10s)
  ATTENDANCE_LOG_LEVEL     logrus level                          (info)
  ATTENDANCE_LOG_FORMAT    text or json                          (text)

ERRORS:
  Every invalid value is collected; Load reports them together.

SEE ALSO:
  - cmd/server/main.go, cmd/absensi/main.go: Flags override these values
*/
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/deviation"
)

// ErrInvalidConfig marks a configuration that failed to load.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the runtime configuration.
type Config struct {
	Addr        string
	DBPath      string
	CatalogPath string
	RemoteURL   string
	LocalDBPath string
	Schedule    deviation.Schedule
	HTTPTimeout time.Duration
	LogLevel    logrus.Level
	LogFormat   string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Addr:        ":8080",
		DBPath:      "attendance.db",
		RemoteURL:   "http://localhost:8080",
		LocalDBPath: "absensi-local.db",
		Schedule:    deviation.DefaultSchedule(),
		HTTPTimeout: 10 * time.Second,
		LogLevel:    logrus.InfoLevel,
		LogFormat:   "text",
	}
}

// Load reads .env (if any) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: .env: %v", ErrInvalidConfig, err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a configuration from a lookup function.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()
	var problems []string

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("ATTENDANCE_ADDR"); ok {
		cfg.Addr = v
	}
	if v, ok := get("ATTENDANCE_DB"); ok {
		cfg.DBPath = v
	}
	if v, ok := get("ATTENDANCE_CATALOG"); ok {
		cfg.CatalogPath = v
	}
	if v, ok := get("ATTENDANCE_REMOTE_URL"); ok {
		cfg.RemoteURL = v
	}
	if v, ok := get("ATTENDANCE_LOCAL_DB"); ok {
		cfg.LocalDBPath = v
	}

	start, end := cfg.Schedule.Start.String(), cfg.Schedule.End.String()
	if v, ok := get("ATTENDANCE_WORK_START"); ok {
		start = v
	}
	if v, ok := get("ATTENDANCE_WORK_END"); ok {
		end = v
	}
	if sched, err := deviation.ParseSchedule(start, end); err != nil {
		problems = append(problems, fmt.Sprintf("ATTENDANCE_WORK_START/END: %v", err))
	} else {
		cfg.Schedule = sched
	}

	if v, ok := get("ATTENDANCE_HTTP_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("ATTENDANCE_HTTP_TIMEOUT: %q is not a positive duration", v))
		} else {
			cfg.HTTPTimeout = d
		}
	}

	if v, ok := get("ATTENDANCE_LOG_LEVEL"); ok {
		lvl, err := logrus.ParseLevel(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("ATTENDANCE_LOG_LEVEL: %v", err))
		} else {
			cfg.LogLevel = lvl
		}
	}

	if v, ok := get("ATTENDANCE_LOG_FORMAT"); ok {
		v = strings.ToLower(v)
		if v != "text" && v != "json" {
			problems = append(problems, fmt.Sprintf("ATTENDANCE_LOG_FORMAT: %q is not text or json", v))
		} else {
			cfg.LogFormat = v
		}
	}

	if len(problems) > 0 {
		return cfg, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return cfg, nil
}

// NewLogger builds the process logger.
func NewLogger(level logrus.Level, format string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// Logger builds the logger described by the configuration.
func (c Config) Logger(out io.Writer) *logrus.Logger {
	return NewLogger(c.LogLevel, c.LogFormat, out)
}
