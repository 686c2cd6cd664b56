package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"sigs.k8s.io/yaml"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
)

const (
	JobKind    = "job"
	ClientKind = "client"
)

// parseAndValidateKindId splits a TYPE or TYPE/ID argument.
func parseAndValidateKindId(arg string) (string, *uuid.UUID, error) {
	kind, idStr, found := strings.Cut(arg, "/")
	kind = singular(kind)
	if !found {
		return kind, nil, nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return kind, nil, fmt.Errorf("invalid id %q: %w", idStr, err)
	}
	return kind, &id, nil
}

func singular(kind string) string {
	return strings.TrimSuffix(strings.ToLower(kind), "s")
}

func plural(kind string) string {
	return kind + "s"
}

func marshalOutput(v any, format string) (string, error) {
	switch format {
	case jsonFormat:
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshalling resource: %w", err)
		}
		return string(raw), nil
	case yamlFormat:
		raw, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshalling resource: %w", err)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

func formatDuration(job *api.Job) string {
	if job.DurationSec == nil {
		return "-"
	}
	return (time.Duration(*job.DurationSec) * time.Second).String()
}

func formatAge(t time.Time) string {
	return time.Since(t).Round(time.Second).String()
}
