package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusInProgress,
	StatusDone,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AbandonedReason is the error message recorded when the reclaimer fails a
// job whose worker stopped heartbeating.
const AbandonedReason = "worker stopped responding; job abandoned"

// Job represents a generation job persisted in SQLite.
type Job struct {
	ID             string
	Prompt         string
	Steps          int
	GuidanceScale  float64
	Height         int
	Width          int
	Autotune       bool
	InitImage      string
	Strength       float64
	Status         Status
	Filename       string
	CustomFilename string
	OutputDir      string
	ErrorMessage   string
	CreatedAt      time.Time
	StartTime      *time.Time
	EndTime        *time.Time
	LastHeartbeat  *time.Time
}

// Metrics aggregates queue-wide counters for operational dashboards.
type Metrics struct {
	TotalJobs       int
	CompletedJobs   int
	FailedJobs      int
	AverageDuration time.Duration
	MostRecentStart *time.Time
}

// RemovedJob identifies a deleted record so callers can remove the matching
// artifact files.
type RemovedJob struct {
	ID       string
	Filename string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// IsTerminal reports whether the job has reached a terminal status.
func (j Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// IsImageToImage reports whether the job runs in image-to-image mode.
func (j Job) IsImageToImage() bool {
	return strings.TrimSpace(j.InitImage) != ""
}

// Duration returns the wall time between claim and terminal transition, or
// zero when either timestamp is missing.
func (j Job) Duration() time.Duration {
	if j.StartTime == nil || j.EndTime == nil {
		return 0
	}
	return j.EndTime.Sub(*j.StartTime)
}
