/*
handlers.go - HTTP API handlers for the attendance service

PURPOSE:
  Exposes the deduction catalog and the attendance repository via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  deduction catalog and the repository.

ENDPOINTS:
  Catalog:
    GET    /api/units                          Sorted unit names
    GET    /api/positions?unit=                Sorted positions of a unit
    GET    /api/deduction-table?unit=&jabatan= Tier table of a position
    GET    /api/employees                      Every catalog row with tables
    POST   /api/calculate                      Deduction of one deviation

  Attendance:
    GET    /api/attendance?unit=&jabatan=&name= Records, most recent first
    GET    /api/attendance/{id}                 One record
    POST   /api/attendance                      Upsert by composite key
    PUT    /api/attendance                      Update by _id
    DELETE /api/attendance                      Delete by _id

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Catalog: Deduction tables, read-only after startup
  - Repo: Attendance rows (GORM)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (go-playground/validator)
  3. Call catalog or repository
  4. Serialize response inside the Envelope
  5. Handle errors

ERROR HANDLING:
  Errors are returned as {"success": false, "error": ...} with status:
  - 400: Validation errors, invalid input
  - 404: Unknown position, tier or record id
  - 409: Update colliding with another record's key
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/deduction"
	"github.com/warp/attendance-engine/store/repository"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Catalog *deduction.Catalog
	Repo    *repository.Repository

	validate *validator.Validate
	log      logrus.FieldLogger
}

// NewHandler creates a new handler.
func NewHandler(catalog *deduction.Catalog, repo *repository.Repository, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{Catalog: catalog, Repo: repo, validate: v, log: log}
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListUnits returns the sorted unit names.
// GET /api/units
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: h.Catalog.Units()})
}

// ListPositions returns the positions of a unit.
// GET /api/positions?unit=
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	unit := r.URL.Query().Get("unit")
	if unit == "" {
		writeError(w, http.StatusBadRequest, "unit parameter required", nil)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: h.Catalog.Positions(unit)})
}

// GetDeductionTable returns the tier table of a position.
// GET /api/deduction-table?unit=&jabatan=
func (h *Handler) GetDeductionTable(w http.ResponseWriter, r *http.Request) {
	unit := r.URL.Query().Get("unit")
	jabatan := r.URL.Query().Get("jabatan")
	if unit == "" || jabatan == "" {
		writeError(w, http.StatusBadRequest, "unit and jabatan parameters required", nil)
		return
	}

	table, err := h.Catalog.Table(unit, jabatan)
	if errors.Is(err, deduction.ErrPositionNotFound) {
		writeError(w, http.StatusNotFound, "Position not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get deduction table", err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: TableToDTO(unit, jabatan, table)})
}

// ListEmployees returns every catalog row with its deduction table.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	positions := h.Catalog.All()
	dtos := make([]PositionTableDTO, len(positions))
	for i, p := range positions {
		dtos[i] = TableToDTO(p.Unit, p.Jabatan, p.Table)
	}
	count := len(dtos)
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: dtos, Count: &count})
}

// Calculate resolves the deduction of one deviation.
// POST /api/calculate
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if !h.decode(w, r, &req) {
		return
	}

	typ, err := deduction.ParseType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "type must be terlambat or pulang_awal", err)
		return
	}

	res, err := h.Catalog.Calculate(r.Context(), req.Unit, req.Jabatan, typ, req.Minutes)
	switch {
	case errors.Is(err, deduction.ErrPositionNotFound):
		writeError(w, http.StatusNotFound, "Position not found", err)
		return
	case errors.Is(err, deduction.ErrNoTier):
		writeError(w, http.StatusNotFound, "No deduction tier for this duration", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to calculate deduction", err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: ResultToDTO(res)})
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// ListAttendance returns attendance records.
// GET /api/attendance?unit=&jabatan=&name=
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := h.Repo.List(r.Context(), repository.Filter{
		Unit:    q.Get("unit"),
		Jabatan: q.Get("jabatan"),
		Name:    q.Get("name"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attendance", err)
		return
	}

	dtos := make([]AttendanceDTO, len(rows))
	for i, a := range rows {
		dtos[i] = AttendanceToDTO(a)
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: dtos})
}

// GetAttendance returns one record.
// GET /api/attendance/{id}
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	row, err := h.Repo.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Record not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: AttendanceToDTO(*row)})
}

// SaveAttendance upserts a record by (date, name, unit, jabatan).
// POST /api/attendance
func (h *Handler) SaveAttendance(w http.ResponseWriter, r *http.Request) {
	var req AttendanceDTO
	if !h.decode(w, r, &req) {
		return
	}

	row := req.Model()
	row.ID = ""
	created, err := h.Repo.Upsert(r.Context(), &row)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save attendance", err)
		return
	}

	msg := "Record updated"
	if created {
		msg = "Record created"
	}
	h.log.WithFields(logrus.Fields{
		"id":      row.ID,
		"date":    row.Date,
		"unit":    row.Unit,
		"jabatan": row.Jabatan,
	}).Info(msg)
	writeJSON(w, http.StatusOK, Envelope{Success: true, ID: row.ID, Message: msg})
}

// UpdateAttendance replaces the record with the given _id.
// PUT /api/attendance
func (h *Handler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	var req AttendanceDTO
	if !h.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "_id is required", nil)
		return
	}

	row := req.Model()
	err := h.Repo.Update(r.Context(), &row)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Record not found", err)
		return
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "Another record has the same date, name and position", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to update attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, ID: row.ID, Message: "Record updated"})
}

// DeleteAttendance removes the record with the given _id.
// DELETE /api/attendance
func (h *Handler) DeleteAttendance(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "_id is required", nil)
		return
	}

	err := h.Repo.Delete(r.Context(), req.ID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Record not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, ID: req.ID, Message: "Record deleted"})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body and validates it. On failure the error response
// is already written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, Envelope{Error: "Validation failed", Details: fields})
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := Envelope{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// NotFound answers unknown routes in the envelope format.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, fmt.Sprintf("No route for %s %s", r.Method, r.URL.Path), nil)
}
