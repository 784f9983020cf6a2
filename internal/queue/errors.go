package queue

import "errors"

// ErrDuplicateID is returned by Create when a job with the same identifier
// already exists. Identifier generation makes this vanishingly unlikely, but
// the store guards it regardless.
var ErrDuplicateID = errors.New("duplicate job id")

// ErrStorageUnavailable wraps transient persistence failures (lock
// contention, disk trouble) that survived the store's internal busy retries.
// Callers on the claim path treat it as "try again later", never as a job
// failure.
var ErrStorageUnavailable = errors.New("storage unavailable")
