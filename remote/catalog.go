package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/deduction"
)

var _ deduction.Lookup = (*Client)(nil)

// Units lists the organisational units.
func (c *Client) Units(ctx context.Context) ([]string, error) {
	var units []string
	if _, err := c.do(ctx, http.MethodGet, "/api/units", nil, nil, &units); err != nil {
		return nil, err
	}
	return units, nil
}

// Positions lists the positions of a unit.
func (c *Client) Positions(ctx context.Context, unit string) ([]string, error) {
	var positions []string
	q := url.Values{"unit": {unit}}
	if _, err := c.do(ctx, http.MethodGet, "/api/positions", q, nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// DeductionTable fetches the tier table of a position. Only the display
// fields (Range, Deduction) of each tier are filled.
func (c *Client) DeductionTable(ctx context.Context, unit, jabatan string) (deduction.Table, error) {
	var dto api.PositionTableDTO
	q := url.Values{"unit": {unit}, "jabatan": {jabatan}}
	if _, err := c.do(ctx, http.MethodGet, "/api/deduction-table", q, nil, &dto); err != nil {
		return deduction.Table{}, err
	}
	return dto.DeductionTable.Table(), nil
}

// Calculate resolves the deduction of one deviation remotely.
func (c *Client) Calculate(ctx context.Context, unit, jabatan string, typ deduction.Type, minutes int) (deduction.Result, error) {
	req := api.CalculateRequest{Unit: unit, Jabatan: jabatan, Type: string(typ), Minutes: minutes}

	var dto api.CalculateDTO
	if _, err := c.do(ctx, http.MethodPost, "/api/calculate", nil, req, &dto); err != nil {
		return deduction.Result{}, &deduction.LookupError{
			Unit:    unit,
			Jabatan: jabatan,
			Type:    typ,
			Minutes: minutes,
			Err:     err,
		}
	}

	res := dto.Result()
	if res.Type == "" {
		res.Type = typ
	}
	if res.Minutes == 0 {
		res.Minutes = minutes
	}
	return res, nil
}
