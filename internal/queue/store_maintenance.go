package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DeleteQueued removes every job still waiting in the queue and reports how
// many were dropped. In-flight and terminal records are untouched.
func (s *Store) DeleteQueued(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusQueued)
	if err != nil {
		return 0, fmt.Errorf("clear queued jobs: %w", err)
	}
	return res.RowsAffected()
}

// DeleteTerminalOlderThan removes done and failed records whose end time
// predates the cutoff, returning the pairs needed to clean up their artifact
// files. The delete happens in one statement so a partially removed batch is
// never observable.
func (s *Store) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) ([]RemovedJob, error) {
	ctx = ensureContext(ctx)
	var removed []RemovedJob
	err := retryOnBusy(ctx, func() error {
		removed = removed[:0]
		rows, queryErr := s.db.QueryContext(
			ctx,
			`DELETE FROM jobs
             WHERE status IN (?, ?) AND end_time IS NOT NULL AND end_time < ?
             RETURNING job_id, filename`,
			StatusDone,
			StatusFailed,
			cutoff.UTC().Format(timestampLayout),
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()
		for rows.Next() {
			var rj RemovedJob
			if scanErr := rows.Scan(&rj.ID, &rj.Filename); scanErr != nil {
				return scanErr
			}
			removed = append(removed, rj)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("delete old jobs: %w", err)
	}
	return removed, nil
}

// TerminalOlderThan lists done and failed records past the cutoff without
// deleting them, for archiving artifacts before cleanup.
func (s *Store) TerminalOlderThan(ctx context.Context, cutoff time.Time) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs
         WHERE status IN (?, ?) AND end_time IS NOT NULL AND end_time < ?
         ORDER BY end_time ASC`,
		StatusDone,
		StatusFailed,
		cutoff.UTC().Format(timestampLayout),
	)
	if err != nil {
		return nil, classifyStorageErr(fmt.Errorf("list old jobs: %w", err))
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Metrics aggregates lifetime counters: totals per terminal status, mean
// wall time of completed jobs, and the most recent claim time.
func (s *Store) Metrics(ctx context.Context) (*Metrics, error) {
	ctx = ensureContext(ctx)
	metrics := &Metrics{}

	row := s.db.QueryRowContext(
		ctx,
		`SELECT
            COUNT(1),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
         FROM jobs`,
		StatusDone,
		StatusFailed,
	)
	if err := row.Scan(&metrics.TotalJobs, &metrics.CompletedJobs, &metrics.FailedJobs); err != nil {
		return nil, classifyStorageErr(fmt.Errorf("queue metrics: %w", err))
	}

	var avgSeconds sql.NullFloat64
	row = s.db.QueryRowContext(
		ctx,
		`SELECT AVG(julianday(end_time) - julianday(start_time)) * 86400.0
         FROM jobs
         WHERE status = ? AND start_time IS NOT NULL AND end_time IS NOT NULL`,
		StatusDone,
	)
	if err := row.Scan(&avgSeconds); err != nil {
		return nil, classifyStorageErr(fmt.Errorf("queue metrics: average duration: %w", err))
	}
	if avgSeconds.Valid {
		metrics.AverageDuration = time.Duration(avgSeconds.Float64 * float64(time.Second))
	}

	var latest sql.NullString
	row = s.db.QueryRowContext(ctx, `SELECT MAX(start_time) FROM jobs WHERE start_time IS NOT NULL`)
	if err := row.Scan(&latest); err != nil {
		return nil, classifyStorageErr(fmt.Errorf("queue metrics: most recent start: %w", err))
	}
	metrics.MostRecentStart = parseNullableTime(latest)

	return metrics, nil
}
