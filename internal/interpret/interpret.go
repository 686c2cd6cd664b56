// Package interpret classifies the raw result payload of a terminal job into
// one of three typed shapes. Classification is purely structural and happens
// client-side; the server treats results as opaque.
package interpret

import (
	"encoding/json"
	"fmt"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
)

// Kind discriminates the variants of an interpreted result.
type Kind string

const (
	// KindSingleInstrument is a point estimate for one instrument.
	KindSingleInstrument Kind = "SingleInstrument"
	// KindMultiLeg is a per-leg table with book totals.
	KindMultiLeg Kind = "MultiLeg"
	// KindOptimizationWeights is a ticker-to-weight allocation.
	KindOptimizationWeights Kind = "OptimizationWeights"
	// KindUnknown is a payload matching none of the known shapes. The raw
	// payload is still available to the caller.
	KindUnknown Kind = "Unknown"
)

// Result is the typed view over a job's raw result payload. Exactly one of
// the variant fields is set, matching Kind; Raw always holds the original
// payload.
type Result struct {
	Kind Kind

	Single       *api.SingleInstrumentResult
	MultiLeg     *api.MultiLegResult
	Optimization *api.OptimizationResult

	Raw api.JobResult
}

// Classify inspects the structure of a raw result payload. Presence of a legs
// array wins over any price/stderr fields; a weights map is checked next; a
// price field last. A nil payload yields KindUnknown with a nil Raw.
func Classify(raw api.JobResult) Result {
	out := Result{Kind: KindUnknown, Raw: raw}
	if raw == nil {
		return out
	}

	if legs, ok := raw["legs"]; ok {
		if isArray(legs) {
			if ml, err := decodeAs[api.MultiLegResult](raw); err == nil {
				out.Kind = KindMultiLeg
				out.MultiLeg = ml
				return out
			}
		}
		return out
	}

	if weights, ok := raw["weights"]; ok {
		if isObject(weights) {
			if opt, err := decodeAs[api.OptimizationResult](raw); err == nil {
				out.Kind = KindOptimizationWeights
				out.Optimization = opt
				return out
			}
		}
		return out
	}

	if _, ok := raw["price"]; ok {
		if single, err := decodeAs[api.SingleInstrumentResult](raw); err == nil {
			out.Kind = KindSingleInstrument
			out.Single = single
			return out
		}
	}

	return out
}

// ClassifyJob classifies a job's result. Non-terminal jobs and failed jobs
// carry no result, so they classify as KindUnknown.
func ClassifyJob(job *api.Job) Result {
	if job == nil || !job.Terminal() {
		return Result{Kind: KindUnknown}
	}
	return Classify(job.Result)
}

// PathRef extracts the path bundle reference of a result when one exists.
// For multi-leg results only the first leg is consulted.
func (r Result) PathRef() *api.PathBundleRef {
	switch r.Kind {
	case KindSingleInstrument:
		return r.Single.Paths
	case KindMultiLeg:
		if len(r.MultiLeg.Legs) > 0 {
			return r.MultiLeg.Legs[0].Paths
		}
	}
	return nil
}

func decodeAs[T any](raw api.JobResult) (*T, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return &out, nil
}

func isArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

func isObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}
