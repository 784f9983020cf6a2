package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fluxqueue/internal/config"
	"fluxqueue/internal/queue"
	"fluxqueue/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	stub := testsupport.StubGenerator(t, base, 0)

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
artifact_dir = %q
upload_dir = %q
log_dir = %q

[generator]
binary = %q

[workers]
count = 1
poll_interval = 1
error_retry_interval = 1
heartbeat_interval = 5
heartbeat_timeout = 60

[logging]
format = "console"
level = "warn"
`,
		filepath.Join(base, "artifacts"),
		filepath.Join(base, "uploads"),
		filepath.Join(base, "logs"),
		stub,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append(args, "--config", configPath))
	err := cmd.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output missing %q:\n%s", needle, haystack)
	}
}
