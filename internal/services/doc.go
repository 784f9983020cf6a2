// Package services defines shared utilities consumed by the dispatcher, the
// worker loop, and the external generator integration.
//
// Key responsibilities:
//   - Context helpers that stamp job identifiers and worker names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     consistently (validation vs configuration vs external process vs
//     transient storage trouble).
//
// Use these helpers when wiring new components so operational behaviour
// (error handling, observability, retries) stays uniform across the system.
package services
