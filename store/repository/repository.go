/*
Package repository is the server-side attendance repository.

PURPOSE:
  Stores attendance rows for the backend service on GORM. One row per
  composite key (date, name, unit, jabatan); the key is enforced with a
  unique index so concurrent upserts cannot create duplicates.

KEY TABLES:
  attendance_records: id (uuid), date, name, unit, jabatan, arrival,
                      departure, late_minutes, early_minutes, deduction,
                      status, created_at, updated_at

ORDERING:
  List returns rows most recent date first. Dates are stored as
  YYYY-MM-DD text so lexical order is calendar order.

USAGE:
  db, err := repository.Open("./attendance.db")
  repo, err := repository.New(db, logger)

SEE ALSO:
  - api/handlers.go: HTTP surface
  - store/sqlite/sqlite.go: Client-side local store
*/
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned when no row has the requested id.
	ErrNotFound = errors.New("attendance record not found")

	// ErrConflict is returned when an update would collide with another
	// row's composite key.
	ErrConflict = errors.New("attendance record already exists")
)

// Attendance is one stored row.
type Attendance struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Date         string    `gorm:"size:10;not null;uniqueIndex:idx_attendance_key,priority:1;index:idx_attendance_date"`
	Name         string    `gorm:"not null;uniqueIndex:idx_attendance_key,priority:2"`
	Unit         string    `gorm:"not null;uniqueIndex:idx_attendance_key,priority:3;index:idx_attendance_position,priority:1"`
	Jabatan      string    `gorm:"not null;uniqueIndex:idx_attendance_key,priority:4;index:idx_attendance_position,priority:2"`
	Arrival      string    `gorm:"size:8"`
	Departure    string    `gorm:"size:8"`
	LateMinutes  int       `gorm:"not null;default:0"`
	EarlyMinutes int       `gorm:"not null;default:0"`
	Deduction    int64     `gorm:"not null;default:0"`
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName sets the table name.
func (Attendance) TableName() string {
	return "attendance_records"
}

// Filter selects rows. Unit and Jabatan match exactly when set; Name is a
// case-insensitive substring.
type Filter struct {
	Unit    string
	Jabatan string
	Name    string
}

// Repository stores attendance rows.
type Repository struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// Open opens a SQLite database for the repository. Use ":memory:" for an
// in-memory database.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// New migrates the schema and returns the repository.
func New(db *gorm.DB, log logrus.FieldLogger) (*Repository, error) {
	if err := db.AutoMigrate(&Attendance{}); err != nil {
		return nil, fmt.Errorf("failed to migrate attendance: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Repository{db: db, log: log}, nil
}

// Close closes the underlying connection.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Upsert stores a row by composite key. An existing row keeps its id and
// creation time; every other field is overwritten. It reports whether a
// new row was created.
func (r *Repository) Upsert(ctx context.Context, a *Attendance) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Attendance
		err := tx.Where("date = ? AND name = ? AND unit = ? AND jabatan = ?", a.Date, a.Name, a.Unit, a.Jabatan).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			a.ID = uuid.NewString()
			created = true
			return tx.Create(a).Error
		case err != nil:
			return err
		}

		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
		return tx.Save(a).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert attendance: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"id":      a.ID,
		"date":    a.Date,
		"unit":    a.Unit,
		"jabatan": a.Jabatan,
		"created": created,
	}).Debug("attendance stored")
	return created, nil
}

// Get returns the row with the id.
func (r *Repository) Get(ctx context.Context, id string) (*Attendance, error) {
	var a Attendance
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Update overwrites the row with a.ID.
func (r *Repository) Update(ctx context.Context, a *Attendance) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Attendance
		err := tx.First(&existing, "id = ?", a.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		a.CreatedAt = existing.CreatedAt
		err = tx.Save(a).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s %s", ErrConflict, a.Date, a.Name)
		}
		return err
	})
}

// Delete removes the row with the id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&Attendance{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete attendance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// likeEscaper makes the name filter a plain substring match.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// List returns the rows matching the filter, most recent date first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Attendance, error) {
	q := r.db.WithContext(ctx).Model(&Attendance{})
	if f.Unit != "" {
		q = q.Where("unit = ?", f.Unit)
	}
	if f.Jabatan != "" {
		q = q.Where("jabatan = ?", f.Jabatan)
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(name))+"%")
	}

	var rows []Attendance
	if err := q.Order("date DESC").Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return rows, nil
}
