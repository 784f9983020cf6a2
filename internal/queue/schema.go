package queue

import (
	"context"
	"fmt"
)

const createTableJobs = `
CREATE TABLE IF NOT EXISTS jobs (
    job_id TEXT PRIMARY KEY,
    prompt TEXT NOT NULL,
    steps INTEGER NOT NULL,
    guidance_scale REAL NOT NULL,
    height INTEGER NOT NULL,
    width INTEGER NOT NULL,
    autotune INTEGER NOT NULL DEFAULT 1,
    init_image TEXT,
    strength REAL,
    status TEXT NOT NULL,
    filename TEXT NOT NULL UNIQUE,
    custom_filename TEXT,
    output_dir TEXT NOT NULL,
    error_message TEXT,
    created_at TEXT NOT NULL,
    start_time TEXT,
    end_time TEXT,
    last_heartbeat TEXT
)`

var schemaIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_end_time ON jobs(end_time)`,
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableJobs); err != nil {
		return fmt.Errorf("create jobs table: %w", err)
	}
	for _, stmt := range schemaIndexes {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
