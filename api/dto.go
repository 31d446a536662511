/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures of the attendance service. The same types are
  used by the HTTP client in remote/, so both sides agree on one wire
  contract.

ENVELOPE:
  Every response is wrapped:
    {"success": true,  "data": ..., "message": "...", "id": "..."}
    {"success": false, "error": "...", "details": ...}

NAMING CONVENTION:
  - *DTO: Payload types
  - *Request: Request body types from clients

AMOUNTS:
  Deductions travel as whole rupiah integers, signed as stored in the
  deduction table. Clients take the absolute value.

TYPES:
  Catalog:     TierDTO, DeductionTableDTO, PositionTableDTO, CalculateRequest,
               CalculateDTO
  Attendance:  AttendanceDTO, DeleteRequest

SEE ALSO:
  - handlers.go: Uses these types
  - remote/client.go: Client side of the contract
*/
package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/deduction"
	"github.com/warp/attendance-engine/store/repository"
)

// =============================================================================
// ENVELOPE
// =============================================================================

// Envelope wraps every response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// RawEnvelope is the decoding side of Envelope.
type RawEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	ID      string          `json:"id,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// =============================================================================
// CATALOG
// =============================================================================

// TierDTO is one bracket of a deduction table.
type TierDTO struct {
	Range     string `json:"range"`
	Deduction int64  `json:"deduction"`
}

// DeductionTableDTO holds both tier lists.
type DeductionTableDTO struct {
	Late       []TierDTO `json:"terlambat"`
	EarlyLeave []TierDTO `json:"pulang_awal"`
}

// PositionTableDTO is the deduction-table response.
type PositionTableDTO struct {
	Unit           string            `json:"unit"`
	Jabatan        string            `json:"jabatan"`
	DeductionTable DeductionTableDTO `json:"deduction_table"`
}

// CalculateRequest asks for the deduction of one deviation.
type CalculateRequest struct {
	Unit    string `json:"unit" validate:"required"`
	Jabatan string `json:"jabatan" validate:"required"`
	Type    string `json:"type" validate:"required"` // terlambat, pulang_awal or an alias accepted by deduction.ParseType
	Minutes int    `json:"minutes" validate:"gt=0"`
}

// CalculateDTO is the resolved deduction.
type CalculateDTO struct {
	Unit      string `json:"unit"`
	Jabatan   string `json:"jabatan"`
	Type      string `json:"type"`
	Minutes   int    `json:"minutes"`
	Range     string `json:"range"`
	Deduction int64  `json:"deduction"`
}

func tiersToDTO(tiers []deduction.Tier) []TierDTO {
	out := make([]TierDTO, len(tiers))
	for i, t := range tiers {
		out[i] = TierDTO{Range: t.Range, Deduction: t.Deduction.IntPart()}
	}
	return out
}

// TableToDTO converts a deduction table.
func TableToDTO(unit, jabatan string, t deduction.Table) PositionTableDTO {
	return PositionTableDTO{
		Unit:    unit,
		Jabatan: jabatan,
		DeductionTable: DeductionTableDTO{
			Late:       tiersToDTO(t.Late),
			EarlyLeave: tiersToDTO(t.EarlyLeave),
		},
	}
}

// Table converts back to display tiers. Bracket bounds are not on the wire;
// only Range and Deduction are filled.
func (d DeductionTableDTO) Table() deduction.Table {
	conv := func(in []TierDTO) []deduction.Tier {
		out := make([]deduction.Tier, len(in))
		for i, t := range in {
			out[i] = deduction.Tier{Range: t.Range, Deduction: decimal.NewFromInt(t.Deduction)}
		}
		return out
	}
	return deduction.Table{Late: conv(d.Late), EarlyLeave: conv(d.EarlyLeave)}
}

// ResultToDTO converts a resolved deduction.
func ResultToDTO(r deduction.Result) CalculateDTO {
	return CalculateDTO{
		Unit:      r.Unit,
		Jabatan:   r.Jabatan,
		Type:      string(r.Type),
		Minutes:   r.Minutes,
		Range:     r.Range,
		Deduction: r.Deduction.IntPart(),
	}
}

// Result converts back to a deduction result.
func (c CalculateDTO) Result() deduction.Result {
	return deduction.Result{
		Unit:      c.Unit,
		Jabatan:   c.Jabatan,
		Type:      deduction.Type(c.Type),
		Minutes:   c.Minutes,
		Range:     c.Range,
		Deduction: decimal.NewFromInt(c.Deduction),
	}
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceDTO is an attendance record on the wire. ID is empty on create.
type AttendanceDTO struct {
	ID           string `json:"_id,omitempty"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Name         string `json:"name" validate:"required"`
	Unit         string `json:"unit" validate:"required"`
	Jabatan      string `json:"jabatan" validate:"required"`
	Arrival      string `json:"arrival"`
	Departure    string `json:"departure"`
	LateMinutes  int    `json:"lateMinutes" validate:"gte=0"`
	EarlyMinutes int    `json:"earlyMinutes" validate:"gte=0"`
	Deduction    int64  `json:"deduction" validate:"gte=0"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// DeleteRequest identifies the record to delete.
type DeleteRequest struct {
	ID string `json:"_id"`
}

// RecordToDTO converts a record for the wire.
func RecordToDTO(r attendance.Record) AttendanceDTO {
	id, _ := r.RemoteID()
	return AttendanceDTO{
		ID:           id,
		Date:         r.Date.String(),
		Name:         r.Name,
		Unit:         r.Unit,
		Jabatan:      r.Jabatan,
		Arrival:      r.Arrival,
		Departure:    r.Departure,
		LateMinutes:  r.LateMinutes,
		EarlyMinutes: r.EarlyMinutes,
		Deduction:    r.Deduction.Abs().IntPart(),
		Status:       r.Status,
	}
}

// Record converts a wire record. A non-empty ID makes it RemotePersisted.
func (d AttendanceDTO) Record() (attendance.Record, error) {
	date, err := attendance.ParseDate(d.Date)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("record %s: %w", d.ID, err)
	}
	var origin attendance.Persistence = attendance.Unpersisted{}
	if d.ID != "" {
		origin = attendance.RemotePersisted{ID: d.ID}
	}
	return attendance.Record{
		Date:         date,
		Name:         d.Name,
		Unit:         d.Unit,
		Jabatan:      d.Jabatan,
		Arrival:      d.Arrival,
		Departure:    d.Departure,
		LateMinutes:  d.LateMinutes,
		EarlyMinutes: d.EarlyMinutes,
		Deduction:    decimal.NewFromInt(d.Deduction).Abs(),
		Status:       d.Status,
		Origin:       origin,
	}, nil
}

// AttendanceToDTO converts a stored row.
func AttendanceToDTO(a repository.Attendance) AttendanceDTO {
	return AttendanceDTO{
		ID:           a.ID,
		Date:         a.Date,
		Name:         a.Name,
		Unit:         a.Unit,
		Jabatan:      a.Jabatan,
		Arrival:      a.Arrival,
		Departure:    a.Departure,
		LateMinutes:  a.LateMinutes,
		EarlyMinutes: a.EarlyMinutes,
		Deduction:    a.Deduction,
		Status:       a.Status,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    a.UpdatedAt.Format(time.RFC3339),
	}
}

// Model converts to a row for the repository. Names are trimmed.
func (d AttendanceDTO) Model() repository.Attendance {
	return repository.Attendance{
		ID:           d.ID,
		Date:         d.Date,
		Name:         strings.TrimSpace(d.Name),
		Unit:         d.Unit,
		Jabatan:      d.Jabatan,
		Arrival:      d.Arrival,
		Departure:    d.Departure,
		LateMinutes:  d.LateMinutes,
		EarlyMinutes: d.EarlyMinutes,
		Deduction:    d.Deduction,
		Status:       d.Status,
	}
}
