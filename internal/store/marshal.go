package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/hartcheck/internal/report"
)

// timeLayout is the storage format of started_at. Fixed width keeps the
// column sortable as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// marshalFailures converts a failure list to canonical JSON TEXT for storage.
func marshalFailures(failures []string) (string, error) {
	if failures == nil {
		failures = []string{}
	}
	data, err := report.MarshalCanonical(failures)
	if err != nil {
		return "", fmt.Errorf("marshal failures: %w", err)
	}
	return string(data), nil
}

// unmarshalFailures parses a stored failure list. An empty list reads back
// as nil.
func unmarshalFailures(data string) ([]string, error) {
	var failures []string
	if err := json.Unmarshal([]byte(data), &failures); err != nil {
		return nil, fmt.Errorf("unmarshal failures: %w", err)
	}
	if len(failures) == 0 {
		return nil, nil
	}
	return failures, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse started_at: %w", err)
	}
	return t, nil
}
