// Package logs reads the daemon's log file for the CLI: last-N-lines tailing
// with bounded memory, plus offset-based forward reads for follow mode.
package logs
