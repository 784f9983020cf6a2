package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"fluxqueue/internal/artifacts"
	"fluxqueue/internal/config"
	"fluxqueue/internal/generator"
	"fluxqueue/internal/logging"
	"fluxqueue/internal/queue"
	"fluxqueue/internal/services"
)

// Loop is a single worker: one claimed job at a time, claim to terminal.
type Loop struct {
	name      string
	store     *queue.Store
	cfg       *config.Config
	runner    generator.Runner
	artifacts *artifacts.Manager
	logger    *slog.Logger
}

// NewLoop builds a named worker loop.
func NewLoop(name string, store *queue.Store, cfg *config.Config, runner generator.Runner, manager *artifacts.Manager, logger *slog.Logger) *Loop {
	return &Loop{
		name:      name,
		store:     store,
		cfg:       cfg,
		runner:    runner,
		artifacts: manager,
		logger:    logging.NewComponentLogger(logger, "worker").With(logging.String(logging.FieldWorker, name)),
	}
}

// Run claims and processes jobs until the context is canceled. An idle queue
// sleeps the poll interval; storage trouble backs off the error retry
// interval and tries again rather than giving up.
func (l *Loop) Run(ctx context.Context) error {
	ctx = services.WithWorker(ctx, l.name)
	l.logger.Info("worker started")
	defer l.logger.Info("worker stopped")

	pollInterval := time.Duration(l.cfg.Workers.PollInterval) * time.Second
	retryInterval := time.Duration(l.cfg.Workers.ErrorRetryInterval) * time.Second

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		job, err := l.store.ClaimOldestQueued(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			l.logger.Warn("claim failed; backing off", logging.Error(err))
			if !sleepCtx(ctx, retryInterval) {
				return nil
			}
			continue
		}
		if job == nil {
			if !sleepCtx(ctx, pollInterval) {
				return nil
			}
			continue
		}

		l.process(ctx, job)
	}
}

// process runs one claimed job to a terminal status. Every path out of here
// ends in MarkDone or MarkFailed; a claimed job is never released back.
func (l *Loop) process(ctx context.Context, job *queue.Job) {
	jobCtx := services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(jobCtx, l.logger)
	logger.Info("job claimed", logging.Bool("img2img", job.IsImageToImage()))

	// Terminal writes go through a detached context: shutdown cancels the
	// generator, and the outcome must still be recorded.
	writeCtx := context.WithoutCancel(jobCtx)

	stopHeartbeat := l.startHeartbeat(jobCtx, job.ID)
	defer stopHeartbeat()

	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		l.fail(writeCtx, logger, job, fmt.Sprintf("output dir error: %v", err))
		return
	}

	if err := l.runner.Generate(jobCtx, job, l.cfg.Paths.ArtifactDir); err != nil {
		l.fail(writeCtx, logger, job, err.Error())
		return
	}

	// Placement problems are warnings; the generated artifact exists and the
	// job is done.
	l.artifacts.Reconcile(jobCtx, job)

	end := time.Now().UTC()
	if err := l.store.MarkDone(writeCtx, job.ID, end); err != nil {
		logger.Error("failed to record completion", logging.Error(err))
		return
	}
	logger.Info("job done", logging.Duration("elapsed", elapsed(job, end)))
}

func (l *Loop) fail(ctx context.Context, logger *slog.Logger, job *queue.Job, message string) {
	end := time.Now().UTC()
	if err := l.store.MarkFailed(ctx, job.ID, end, message); err != nil {
		logger.Error("failed to record failure", logging.Error(err))
		return
	}
	logger.Error("job failed", logging.String("error_message", message))
}

// startHeartbeat stamps job liveness on an interval until the returned stop
// function runs.
func (l *Loop) startHeartbeat(ctx context.Context, jobID string) func() {
	interval := time.Duration(l.cfg.Workers.HeartbeatInterval) * time.Second
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := l.store.UpdateHeartbeat(ctx, jobID); err != nil {
					logging.WithContext(ctx, l.logger).Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

func elapsed(job *queue.Job, end time.Time) time.Duration {
	if job.StartTime == nil {
		return 0
	}
	return end.Sub(*job.StartTime)
}

// sleepCtx waits the given duration, returning false if the context was
// canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
