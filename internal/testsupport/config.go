package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"fluxqueue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ArtifactDir = filepath.Join(base, "artifacts")
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Workers.Count = 1
	cfgVal.Workers.PollInterval = 1
	cfgVal.Workers.ErrorRetryInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkerCount sets the worker pool size on the test config.
func WithWorkerCount(count int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.Count = count
	}
}

// WithGenerator points the generator binary at an explicit path instead of a
// stub.
func WithGenerator(binary string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generator.Binary = binary
		b.cfg.Generator.Script = ""
	}
}

// WithStubGenerator wires the config to a shell script that fakes the
// external generator, writing the file named by its --output argument and
// exiting with the given code.
func WithStubGenerator(exitCode int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generator.Binary = StubGenerator(b.t, b.baseDir, exitCode)
		b.cfg.Generator.Script = ""
	}
}

// StubGenerator writes a fake generator script under dir/bin and returns its
// path. On a zero exit code it touches --output_dir/--output so worker
// reconciliation finds an artifact; on a nonzero code it writes nothing.
func StubGenerator(t testing.TB, dir string, exitCode int) string {
	t.Helper()

	binDir := filepath.Join(dir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}

	script := "#!/bin/sh\n" +
		"out=\"\"\n" +
		"dir=\"\"\n" +
		"while [ $# -gt 0 ]; do\n" +
		"  case \"$1\" in\n" +
		"    --output) out=\"$2\"; shift ;;\n" +
		"    --output_dir) dir=\"$2\"; shift ;;\n" +
		"  esac\n" +
		"  shift\n" +
		"done\n"
	if exitCode == 0 {
		script += "[ -n \"$dir\" ] && [ -n \"$out\" ] && : > \"$dir/$out\"\n"
	} else {
		script += "echo \"generation failed\" >&2\n"
	}
	script += fmt.Sprintf("exit %d\n", exitCode)

	target := filepath.Join(binDir, "run_flux")
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub generator: %v", err)
	}
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ArtifactDir)
}
