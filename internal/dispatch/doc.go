// Package dispatch turns generation requests into persisted queue jobs. It
// owns request normalization: parameter defaults, prompt validation,
// identifier and filename assignment, custom filename sanitization, output
// directory preparation, and init image resolution. Workers never see a raw
// request; everything they run was shaped here first.
package dispatch
