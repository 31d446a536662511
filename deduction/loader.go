/*
loader.go - Builds a Catalog from the payroll workbook or a YAML file

PURPOSE:
  The deduction tables live in a payroll spreadsheet maintained by HR
  ("Pot Keterlambatan.xlsx"). LoadWorkbook reads it directly so a new sheet
  can be dropped in without code changes. LoadYAML reads a hand-written
  catalog for development and tests.

WORKBOOK LAYOUT (first sheet, 1-based rows, letter columns):
  Rows 1-8   headers, ignored
  Column B   row number; rows where it is empty or "NO" are skipped
  Column E   unit; blank or "0" means "same unit as the row above"
  Column F   jabatan
  Columns G-M  early leave: 1-10, 11-20, 21-30, 31-40, 41-50, 51-60, > 60
  Columns N-T  late:        6-10, 11-15, 16-20, 21-25, 26-30, 31-45, 46-60
  Empty amount cells mean no deduction. Rows with a non-numeric amount are
  skipped.

YAML SCHEMA:
  positions:
    - unit: Finance
      jabatan: Clerk
      terlambat:   [-10000, -15000, -15000, -20000, -25000, -30000, -50000]
      pulang_awal: [-10000, -15000, -20000, -25000, -30000, -40000, -50000]

SEE ALSO:
  - catalog.go: Catalog and standard brackets
  - cmd/server/main.go: Loads the catalog at startup
*/
package deduction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

const (
	workbookFirstDataRow = 8 // 0-based
	colNo                = 1
	colUnit              = 4
	colJabatan           = 5
	colEarlyFirst        = 6
	colLateFirst         = 13
)

// LoadFile picks the loader from the file extension.
func LoadFile(path string) ([]Position, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadWorkbook(path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".json":
		return LoadJSON(path)
	}
	return nil, fmt.Errorf("unsupported catalog format: %s", path)
}

// =============================================================================
// WORKBOOK
// =============================================================================

// LoadWorkbook reads positions from the first sheet of a payroll workbook.
func LoadWorkbook(path string) ([]Position, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return ParseRows(rows), nil
}

// ParseRows converts raw sheet rows into positions.
func ParseRows(rows [][]string) []Position {
	var positions []Position
	lastUnit := ""

	for i := workbookFirstDataRow; i < len(rows); i++ {
		row := rows[i]
		no := cell(row, colNo)
		if no == "" || no == "NO" {
			continue
		}

		unit := cell(row, colUnit)
		if isBlank(unit) {
			unit = lastUnit
		} else {
			lastUnit = unit
		}
		jabatan := cell(row, colJabatan)
		if isBlank(unit) || isBlank(jabatan) {
			continue
		}

		early, err := amounts(row, colEarlyFirst, len(EarlyLeaveBrackets))
		if err != nil {
			continue
		}
		late, err := amounts(row, colLateFirst, len(LateBrackets))
		if err != nil {
			continue
		}
		table, err := StandardTable(late, early)
		if err != nil {
			continue
		}
		positions = append(positions, Position{Unit: unit, Jabatan: jabatan, Table: table})
	}
	return positions
}

func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func isBlank(s string) bool {
	return s == "" || s == "0" || strings.EqualFold(s, "nan")
}

func amounts(row []string, first, n int) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, n)
	for i := 0; i < n; i++ {
		raw := cell(row, first+i)
		if raw == "" {
			out[i] = decimal.Zero
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", first+i, err)
		}
		out[i] = d.Truncate(0)
	}
	return out, nil
}

// =============================================================================
// YAML / JSON
// =============================================================================

// CatalogFile is the YAML/JSON catalog schema.
type CatalogFile struct {
	Positions []PositionEntry `yaml:"positions" json:"positions"`
}

// PositionEntry lists amounts in standard bracket order.
type PositionEntry struct {
	Unit       string  `yaml:"unit" json:"unit"`
	Jabatan    string  `yaml:"jabatan" json:"jabatan"`
	Late       []int64 `yaml:"terlambat" json:"terlambat"`
	EarlyLeave []int64 `yaml:"pulang_awal" json:"pulang_awal"`
}

// LoadYAML reads a YAML catalog.
func LoadYAML(path string) ([]Position, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var cf CatalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	return cf.Build()
}

// LoadJSON reads a JSON catalog with the YAML schema.
func LoadJSON(path string) ([]Position, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var cf CatalogFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return cf.Build()
}

// Build converts entries into positions.
func (cf CatalogFile) Build() ([]Position, error) {
	positions := make([]Position, 0, len(cf.Positions))
	for i, e := range cf.Positions {
		if e.Unit == "" || e.Jabatan == "" {
			return nil, fmt.Errorf("position %d: unit and jabatan are required", i)
		}
		table, err := StandardTable(toDecimals(e.Late), toDecimals(e.EarlyLeave))
		if err != nil {
			return nil, fmt.Errorf("position %s - %s: %w", e.Unit, e.Jabatan, err)
		}
		positions = append(positions, Position{Unit: e.Unit, Jabatan: e.Jabatan, Table: table})
	}
	return positions, nil
}

func toDecimals(vs []int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vs))
	for i, v := range vs {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}
