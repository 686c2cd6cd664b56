// Package sample fetches and reshapes stored Monte-Carlo path bundles for
// display. It never pulls a full bundle: every request is bounded by a
// (limit, stride) pair, and the server reports the full dimensions alongside
// the subset so views can label what fraction they show.
package sample

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/client"
	"github.com/quantdesk/quantjobs/internal/interpret"
)

const (
	DefaultLimit  = 50
	DefaultStride = 1
	// MaxLimit caps how many paths a single view may request.
	MaxLimit = 500
)

// Request is a bounded sub-selection: the first Limit paths, every Stride-th
// step.
type Request struct {
	Limit  int
	Stride int
}

// Normalize clamps a request to usable values. Zero or negative fields take
// the defaults; Limit is capped at MaxLimit.
func (r Request) Normalize() Request {
	if r.Limit < 1 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	if r.Stride < 1 {
		r.Stride = DefaultStride
	}
	return r
}

// Applicable returns the path bundle reference of an interpreted result, or
// nil when the result carries no stored paths. Multi-leg results only ever
// reference the first leg's bundle.
func Applicable(result interpret.Result) *api.PathBundleRef {
	return result.PathRef()
}

// Table is a chart-friendly view of a paths subset: one row per retained
// step, first column the time value, then one column per path.
type Table struct {
	Columns    []string
	Rows       [][]float64
	NTotal     int
	StepsTotal int
}

// Fetcher is the single client operation the sampler needs.
type Fetcher interface {
	JobPaths(ctx context.Context, id uuid.UUID, limit, stride int) (*api.PathsResponse, error)
}

// Fetch retrieves a subset of a job's paths and reshapes it. A job without a
// stored bundle yields (nil, nil): absence is a normal display state, not an
// error.
func Fetch(ctx context.Context, f Fetcher, jobID uuid.UUID, req Request) (*Table, error) {
	req = req.Normalize()
	resp, err := f.JobPaths(ctx, jobID, req.Limit, req.Stride)
	if err != nil {
		if client.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return BuildTable(resp), nil
}

// BuildTable transposes the per-path series into per-step rows.
func BuildTable(resp *api.PathsResponse) *Table {
	table := &Table{
		Columns:    make([]string, 0, len(resp.Series)+1),
		NTotal:     resp.NTotal,
		StepsTotal: resp.StepsTotal,
	}
	table.Columns = append(table.Columns, "t")
	for i := range resp.Series {
		table.Columns = append(table.Columns, fmt.Sprintf("path_%d", i+1))
	}

	steps := len(resp.T)
	for _, series := range resp.Series {
		if len(series) < steps {
			steps = len(series)
		}
	}

	table.Rows = make([][]float64, 0, steps)
	for step := 0; step < steps; step++ {
		row := make([]float64, 0, len(resp.Series)+1)
		row = append(row, resp.T[step])
		for _, series := range resp.Series {
			row = append(row, series[step])
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
