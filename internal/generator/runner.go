package generator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"fluxqueue/internal/config"
	"fluxqueue/internal/logging"
	"fluxqueue/internal/queue"
	"fluxqueue/internal/services"
)

// Runner executes the generation command for a claimed job.
type Runner interface {
	Generate(ctx context.Context, job *queue.Job, artifactDir string) error
}

// CommandRunner runs the configured generator binary as a child process.
type CommandRunner struct {
	binary string
	script string
	logger *slog.Logger
}

// NewCommandRunner builds a CommandRunner from the generator configuration.
func NewCommandRunner(cfg *config.Config, logger *slog.Logger) *CommandRunner {
	return &CommandRunner{
		binary: cfg.Generator.Binary,
		script: cfg.Generator.Script,
		logger: logging.NewComponentLogger(logger, "generator"),
	}
}

// tailLines is how much trailing process output is attached to a failure.
const tailLines = 12

// Generate runs the external command synchronously. Process output is logged
// line by line at debug level; on a non-zero exit the trailing lines ride
// along in the returned error so the job record carries a usable diagnostic.
func (r *CommandRunner) Generate(ctx context.Context, job *queue.Job, artifactDir string) error {
	args := make([]string, 0, 20)
	if r.script != "" {
		args = append(args, r.script)
	}
	args = append(args, BuildArgs(job, artifactDir)...)

	logger := logging.WithContext(ctx, r.logger)
	logger.Info("starting generation",
		logging.String("binary", r.binary),
		logging.Int("steps", job.Steps),
		logging.Bool("img2img", job.IsImageToImage()),
	)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "generator", "run", "stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "generator", "run", "stderr pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "generator", "run",
			fmt.Sprintf("start %s", filepath.Base(r.binary)), err)
	}

	var (
		mu   sync.Mutex
		tail []string
		wg   sync.WaitGroup
	)
	record := func(line string) {
		mu.Lock()
		tail = append(tail, line)
		if len(tail) > tailLines {
			tail = tail[len(tail)-tailLines:]
		}
		mu.Unlock()
	}
	scan := func(reader io.Reader, stream string) {
		defer wg.Done()
		scanner := bufio.NewScanner(reader)
		for scanner.Scan() {
			line := scanner.Text()
			record(line)
			logger.Debug("generator output", logging.String("stream", stream), logging.String("line", line))
		}
	}
	wg.Add(2)
	go scan(stdout, "stdout")
	go scan(stderr, "stderr")
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		detail := fmt.Sprintf("%s exited: %v", filepath.Base(r.binary), err)
		mu.Lock()
		if len(tail) > 0 {
			detail = fmt.Sprintf("%s: %s", detail, strings.Join(tail, " | "))
		}
		mu.Unlock()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return services.Wrap(services.ErrExternalTool, "generator", "run", "generation canceled", ctxErr)
		}
		return services.Wrap(services.ErrExternalTool, "generator", "run", detail, nil)
	}

	logger.Info("generation finished", logging.String("filename", job.Filename))
	return nil
}
