package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const jobColumns = "job_id, prompt, steps, guidance_scale, height, width, autotune, init_image, strength, status, filename, custom_filename, output_dir, error_message, created_at, start_time, end_time, last_heartbeat"

// timestampLayout pads fractional seconds to a fixed nine digits so stored
// timestamps order correctly under SQLite's string comparison. RFC3339Nano
// trims trailing zeros, which breaks sub-second ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Create inserts a new record with status queued. The job's CreatedAt is
// stamped by the store so insertion order and creation time agree.
func (s *Store) Create(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(job.Filename) == "" {
		return errors.New("job filename is required")
	}

	now := time.Now().UTC()
	job.CreatedAt = now
	job.Status = StatusQueued

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            job_id, prompt, steps, guidance_scale, height, width, autotune,
            init_image, strength, status, filename, custom_filename,
            output_dir, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Prompt,
		job.Steps,
		job.GuidanceScale,
		job.Height,
		job.Width,
		boolToInt(job.Autotune),
		nullableString(job.InitImage),
		nullableFloat(job.Strength, job.IsImageToImage()),
		StatusQueued,
		job.Filename,
		nullableString(job.CustomFilename),
		job.OutputDir,
		now.Format(timestampLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, job.ID)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job by identifier. Missing jobs return (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStorageErr(fmt.Errorf("get job: %w", err))
	}
	return job, nil
}

// GetByFilename fetches the job owning an internal artifact filename.
func (s *Store) GetByFilename(ctx context.Context, filename string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE filename = ?`, filename)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStorageErr(fmt.Errorf("get job by filename: %w", err))
	}
	return job, nil
}

// ListRecent returns up to limit jobs ordered newest-first by creation time.
// A non-empty statusFilter restricts results to that status.
func (s *Store) ListRecent(ctx context.Context, limit int, statusFilter Status) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if statusFilter != "" {
		rows, err = s.db.QueryContext(
			ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
			statusFilter, limit,
		)
	} else {
		rows, err = s.db.QueryContext(
			ctx,
			`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
			limit,
		)
	}
	if err != nil {
		return nil, classifyStorageErr(fmt.Errorf("list jobs: %w", err))
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CountByStatus returns the number of jobs currently in the given status.
func (s *Store) CountByStatus(ctx context.Context, status Status) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs WHERE status = ?`, status)
	if err := row.Scan(&count); err != nil {
		return 0, classifyStorageErr(fmt.Errorf("count jobs: %w", err))
	}
	return count, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, classifyStorageErr(fmt.Errorf("queue stats: %w", err))
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		prompt       string
		steps        int
		guidance     float64
		height       int
		width        int
		autotune     int
		initImage    sql.NullString
		strength     sql.NullFloat64
		statusStr    string
		filename     string
		customName   sql.NullString
		outputDir    string
		errorMessage sql.NullString
		createdRaw   string
		startRaw     sql.NullString
		endRaw       sql.NullString
		heartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&prompt,
		&steps,
		&guidance,
		&height,
		&width,
		&autotune,
		&initImage,
		&strength,
		&statusStr,
		&filename,
		&customName,
		&outputDir,
		&errorMessage,
		&createdRaw,
		&startRaw,
		&endRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:             id,
		Prompt:         prompt,
		Steps:          steps,
		GuidanceScale:  guidance,
		Height:         height,
		Width:          width,
		Autotune:       autotune != 0,
		InitImage:      initImage.String,
		Strength:       strength.Float64,
		Status:         Status(statusStr),
		Filename:       filename,
		CustomFilename: customName.String,
		OutputDir:      outputDir,
		ErrorMessage:   errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	job.StartTime = parseNullableTime(startRaw)
	job.EndTime = parseNullableTime(endRaw)
	job.LastHeartbeat = parseNullableTime(heartbeatRaw)
	return job, nil
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value float64, valid bool) any {
	if !valid {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
