package interpret

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
)

func TestClassifySingleInstrument(t *testing.T) {
	raw := api.JobResult{
		"price":  4.52,
		"stderr": 0.03,
		"S0":     182.5,
		"sigma":  0.27,
		"T":      0.5,
	}

	result := Classify(raw)
	require.Equal(t, KindSingleInstrument, result.Kind)
	require.NotNil(t, result.Single)
	assert.Equal(t, 4.52, result.Single.Price)
	assert.Equal(t, 0.03, result.Single.StdErr)
	assert.Equal(t, raw, result.Raw)
	assert.Nil(t, result.MultiLeg)
	assert.Nil(t, result.Optimization)
}

func TestClassifyMultiLeg(t *testing.T) {
	raw := api.JobResult{
		"legs": []any{
			map[string]any{
				"leg": 1, "ticker": "AAPL", "otype": "CALL",
				"strike": 180.0, "qty": 2.0, "S0": 182.5,
				"sigma": 0.27, "T": 0.3, "price": 9.1,
			},
		},
		"totals": map[string]any{"notional": 18.2, "weightedAvg": 9.1},
	}

	result := Classify(raw)
	require.Equal(t, KindMultiLeg, result.Kind)
	require.NotNil(t, result.MultiLeg)
	require.Len(t, result.MultiLeg.Legs, 1)
	assert.Equal(t, "AAPL", result.MultiLeg.Legs[0].Ticker)
	require.NotNil(t, result.MultiLeg.Totals)
	assert.Equal(t, 18.2, result.MultiLeg.Totals.Notional)
}

// a payload carrying both legs and a top-level price is a multi-leg result
func TestLegsPresenceWinsOverPrice(t *testing.T) {
	raw := api.JobResult{
		"legs":  []any{map[string]any{"leg": 1, "ticker": "SPY", "otype": "PUT", "strike": 500.0, "qty": 1.0, "price": 3.3}},
		"price": 3.3,
	}

	result := Classify(raw)
	assert.Equal(t, KindMultiLeg, result.Kind)
	assert.Nil(t, result.Single)
}

func TestClassifyOptimizationWeights(t *testing.T) {
	raw := api.JobResult{
		"weights":        map[string]any{"AAPL": 0.4, "MSFT": 0.6},
		"expectedReturn": 0.08,
		"variance":       0.021,
		"constraint":     "Long-only",
	}

	result := Classify(raw)
	require.Equal(t, KindOptimizationWeights, result.Kind)
	require.NotNil(t, result.Optimization)
	assert.Equal(t, 0.4, result.Optimization.Weights["AAPL"])
	assert.Equal(t, "Long-only", result.Optimization.Constraint)
}

func TestClassifyUnknownShapes(t *testing.T) {
	assert.Equal(t, KindUnknown, Classify(nil).Kind)
	assert.Equal(t, KindUnknown, Classify(api.JobResult{}).Kind)
	assert.Equal(t, KindUnknown, Classify(api.JobResult{"legs": "oops"}).Kind)
	assert.Equal(t, KindUnknown, Classify(api.JobResult{"weights": []any{1, 2}}).Kind)

	// raw payload survives even when unclassifiable
	raw := api.JobResult{"something": "else"}
	result := Classify(raw)
	assert.Equal(t, KindUnknown, result.Kind)
	assert.Equal(t, raw, result.Raw)
}

func TestClassifyJobRequiresTerminalStatus(t *testing.T) {
	job := &api.Job{
		Status: api.JobStatusRunning,
		Result: api.JobResult{"price": 1.0},
	}
	assert.Equal(t, KindUnknown, ClassifyJob(job).Kind)

	now := time.Now()
	job.Status = api.JobStatusSucceeded
	job.FinishedAt = &now
	assert.Equal(t, KindSingleInstrument, ClassifyJob(job).Kind)

	assert.Equal(t, KindUnknown, ClassifyJob(nil).Kind)
}

func TestPathRef(t *testing.T) {
	single := Classify(api.JobResult{
		"price": 2.0,
		"paths": map[string]any{"bundle_id": "b1", "n_paths": 200, "steps": 253},
	})
	require.Equal(t, KindSingleInstrument, single.Kind)
	require.NotNil(t, single.PathRef())
	assert.Equal(t, "b1", single.PathRef().BundleID)

	multi := Classify(api.JobResult{
		"legs": []any{
			map[string]any{"leg": 1, "ticker": "A", "otype": "CALL", "strike": 1.0, "qty": 1.0, "price": 0.1,
				"paths": map[string]any{"bundle_id": "b2", "n_paths": 100, "steps": 11}},
			map[string]any{"leg": 2, "ticker": "B", "otype": "PUT", "strike": 1.0, "qty": 1.0, "price": 0.2},
		},
	})
	require.Equal(t, KindMultiLeg, multi.Kind)
	require.NotNil(t, multi.PathRef())
	assert.Equal(t, "b2", multi.PathRef().BundleID)

	none := Classify(api.JobResult{"price": 1.5})
	assert.Nil(t, none.PathRef())
}
