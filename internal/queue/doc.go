// Package queue persists generation jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, the atomic
// claim that hands a queued job to exactly one worker, idempotent terminal
// transitions, heartbeat tracking, abandoned-job recovery, and the
// maintenance queries behind queue flush and aged cleanup.
//
// Jobs only move forward: queued, in_progress, then done or failed. Nothing
// transitions back to queued; rerunning failed work happens by enqueueing a
// brand-new job so the failed record stays queryable as an audit trail.
//
// Treat this package as the single source of truth for queue semantics; when
// you add new statuses or fields, update schema.go.
package queue
