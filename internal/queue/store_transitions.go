package queue

import (
	"context"
	"fmt"
	"time"
)

// MarkDone transitions an in_progress job to done and stamps its end time.
// Calling it on a job that already reached a terminal status is a no-op, so
// duplicate completion signals cannot rewrite history.
func (s *Store) MarkDone(ctx context.Context, id string, endTime time.Time) error {
	return s.transitionToTerminal(ctx, id, StatusDone, endTime, "")
}

// MarkFailed transitions an in_progress job to failed with the given error
// detail. Idempotent in the same way as MarkDone.
func (s *Store) MarkFailed(ctx context.Context, id string, endTime time.Time, errorMessage string) error {
	return s.transitionToTerminal(ctx, id, StatusFailed, endTime, errorMessage)
}

func (s *Store) transitionToTerminal(ctx context.Context, id string, status Status, endTime time.Time, errorMessage string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, end_time = ?, error_message = ?, last_heartbeat = NULL
         WHERE job_id = ? AND status = ?`,
		status,
		endTime.UTC().Format(timestampLayout),
		nullableString(errorMessage),
		id,
		StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("transition job %s to %s: %w", id, status, err)
	}
	return nil
}

// UpdateHeartbeat stamps the liveness marker for an in-flight job. Jobs that
// already left in_progress are untouched.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ? WHERE job_id = ? AND status = ?`,
		now.Format(timestampLayout),
		id,
		StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimAbandoned fails in_progress jobs whose heartbeat predates the
// cutoff. A worker that crashed mid-job stops heartbeating; its job surfaces
// here instead of sitting in in_progress forever. The record moves forward to
// failed (never back to queued) so the state machine stays one-directional;
// rerunning is an explicit retry that enqueues a new job.
func (s *Store) ReclaimAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, end_time = ?, error_message = ?, last_heartbeat = NULL
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusFailed,
		now.Format(timestampLayout),
		AbandonedReason,
		StatusInProgress,
		cutoff.UTC().Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim abandoned jobs: %w", err)
	}
	return res.RowsAffected()
}
