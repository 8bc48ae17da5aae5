package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/hartcheck/internal/report"
)

const runColumns = `id, started_at, profile, device, passed, failed, skipped, total, aborted, digest`

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (report.Run, error) {
	var r report.Run
	var startedAt string
	err := row.Scan(&r.ID, &startedAt, &r.Profile, &r.Device,
		&r.Passed, &r.Failed, &r.Skipped, &r.Total, &r.Aborted, &r.Digest)
	if err != nil {
		return report.Run{}, err
	}
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return report.Run{}, err
	}
	return r, nil
}

// ListRuns returns run summaries, newest first, without outcomes.
// A limit of zero or less returns every run.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]report.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []report.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run with its outcomes in catalog order.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetRun(ctx context.Context, id string) (*report.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	outcomes, err := s.readOutcomes(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Outcomes = outcomes
	return &r, nil
}

// RunsWithDigest returns the ids of every run whose outcome vector hashes to
// digest, oldest first.
func (s *Store) RunsWithDigest(ctx context.Context, digest string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM runs WHERE digest = ? ORDER BY seq ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("query runs by digest: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run ids: %w", err)
	}
	return ids, nil
}

func (s *Store) readOutcomes(ctx context.Context, runID string) ([]report.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, name, component, status, reason, cause, failures
		FROM outcomes
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []report.Outcome{}
	for rows.Next() {
		var o report.Outcome
		var failures string
		if err := rows.Scan(&o.Index, &o.Name, &o.Component, &o.Status, &o.Reason, &o.Cause, &failures); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if o.Failures, err = unmarshalFailures(failures); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}
