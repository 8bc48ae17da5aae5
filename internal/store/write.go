package store

import (
	"context"
	"fmt"

	"github.com/roach88/hartcheck/internal/report"
)

// WriteRun inserts a sealed run and its outcomes in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - writing the same run id
// twice is silently ignored.
//
// The run must be sealed: its digest must match its outcomes.
func (s *Store) WriteRun(ctx context.Context, run report.Run) error {
	digest, err := report.Digest(run.Outcomes)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if digest != run.Digest {
		return fmt.Errorf("write run %s: digest %q does not match outcomes (%q)", run.ID, run.Digest, digest)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, profile, device, passed, failed, skipped, total, aborted, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		formatTime(run.StartedAt),
		run.Profile,
		run.Device,
		run.Passed,
		run.Failed,
		run.Skipped,
		run.Total,
		run.Aborted,
		run.Digest,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	for _, o := range run.Outcomes {
		failures, err := marshalFailures(o.Failures)
		if err != nil {
			return fmt.Errorf("write run: case %d: %w", o.Index, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO outcomes
			(run_id, idx, name, component, status, reason, cause, failures)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`,
			run.ID,
			o.Index,
			o.Name,
			o.Component,
			o.Status,
			o.Reason,
			o.Cause,
			failures,
		)
		if err != nil {
			return fmt.Errorf("write run: case %d: %w", o.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}
