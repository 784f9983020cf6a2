// Package generator wraps the external image-generation command. It builds
// the argument list for a job, runs the process, and streams its output into
// the structured log. The Runner interface is the seam worker tests stub.
package generator
