package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ClaimOldestQueued atomically selects the oldest queued job, transitions it
// to in_progress, stamps its start time and heartbeat, and returns it. FIFO
// order follows insertion order (rowid). An empty queue returns (nil, nil);
// that is the normal idle outcome, not an error.
//
// The select-and-flip happens in a single UPDATE with a subquery, so SQLite's
// writer serialization guarantees two concurrent callers never receive the
// same job: the losing writer's subquery re-evaluates after the winner
// commits and picks the next row or nothing.
func (s *Store) ClaimOldestQueued(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	stamp := now.Format(timestampLayout)

	var job *Job
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`UPDATE jobs
             SET status = ?, start_time = ?, last_heartbeat = ?
             WHERE job_id = (
                 SELECT job_id FROM jobs WHERE status = ? ORDER BY rowid ASC LIMIT 1
             ) AND status = ?
             RETURNING `+jobColumns,
			StatusInProgress,
			stamp,
			stamp,
			StatusQueued,
			StatusQueued,
		)
		claimed, scanErr := scanJob(row)
		if scanErr != nil {
			return scanErr
		}
		job = claimed
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStorageErr(fmt.Errorf("claim job: %w", err))
	}
	return job, nil
}
