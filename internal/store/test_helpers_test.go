package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/hartcheck/internal/report"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func passed(index int, name string) report.Outcome {
	return report.Outcome{Index: index, Name: name, Component: "trap", Status: report.StatusPassed}
}

func failedOutcome(index int, name string, failures ...string) report.Outcome {
	return report.Outcome{Index: index, Name: name, Component: "trap", Status: report.StatusFailed,
		Cause: "illegal instruction", Failures: failures}
}

func skipped(index int, name, reason string) report.Outcome {
	return report.Outcome{Index: index, Name: name, Component: "peripherals", Status: report.StatusSkipped, Reason: reason}
}

// sealedRun creates a run with the given outcomes and seals it.
func sealedRun(t *testing.T, id string, outcomes ...report.Outcome) report.Run {
	t.Helper()
	run := report.Run{
		ID:        id,
		StartedAt: testStart,
		Profile:   "default",
		Device:    "rv32imacu",
		Outcomes:  outcomes,
	}
	if err := run.Seal(); err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}
	return run
}
