// Package worker drives jobs from claim to terminal status. Each Loop
// repeatedly claims the oldest queued job, runs the generator for it, places
// the resulting files, and records the outcome. A Pool runs several loops
// against one store plus a reclaimer that fails jobs whose worker died.
package worker
