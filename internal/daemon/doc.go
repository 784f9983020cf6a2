// Package daemon owns the long-running fluxqueue process lifecycle. It
// enforces single-instance execution with a flock beside the queue database
// and runs the worker pool until asked to stop. Job semantics live in the
// worker and queue packages; this package only does startup and shutdown.
package daemon
