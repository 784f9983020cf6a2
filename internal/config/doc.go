// Package config loads, validates, and normalizes the fluxqueue
// configuration.
//
// Configuration is a single TOML file with sections for paths, the external
// generator command, worker scheduling, and logging. Load applies defaults,
// expands ~ in every path field, and validates the result so downstream
// packages never perform ad-hoc path lookups.
package config
