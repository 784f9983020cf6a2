// Package main hosts the fluxqueue CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the full queue lifecycle: submitting
// generation requests, running the worker pool, inspecting jobs, and the
// retention commands (clear, retry, cleanup, archive). It centralizes
// configuration resolution and store setup so subcommands stay thin.
//
// Queue semantics live in the internal packages; commands here only parse
// flags, call into them, and render output.
package main
