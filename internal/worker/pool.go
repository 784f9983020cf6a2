package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fluxqueue/internal/artifacts"
	"fluxqueue/internal/config"
	"fluxqueue/internal/generator"
	"fluxqueue/internal/logging"
	"fluxqueue/internal/queue"
)

// Pool runs the configured number of worker loops against one store.
type Pool struct {
	store  *queue.Store
	cfg    *config.Config
	runner generator.Runner
	logger *slog.Logger
}

// NewPool builds a Pool; the runner may be swapped for a stub in tests.
func NewPool(store *queue.Store, cfg *config.Config, runner generator.Runner, logger *slog.Logger) *Pool {
	return &Pool{
		store:  store,
		cfg:    cfg,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "pool"),
	}
}

// Run starts the worker loops and the stale-job reclaimer and blocks until
// the context is canceled and every loop has drained its current job.
func (p *Pool) Run(ctx context.Context) error {
	count := p.cfg.Workers.Count
	if count < 1 {
		count = 1
	}
	manager := artifacts.NewManager(p.store, p.cfg, p.logger)

	p.logger.Info("starting worker pool", logging.Int("workers", count))

	var wg sync.WaitGroup
	for i := 1; i <= count; i++ {
		loop := NewLoop(fmt.Sprintf("worker-%d", i), p.store, p.cfg, p.runner, manager, p.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = loop.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.runReclaimer(ctx)
	}()

	wg.Wait()
	p.logger.Info("worker pool stopped")
	return nil
}

// runReclaimer periodically fails in_progress jobs whose heartbeat went
// stale, covering workers that died without reaching a terminal transition.
func (p *Pool) runReclaimer(ctx context.Context) {
	timeout := time.Duration(p.cfg.Workers.HeartbeatTimeout) * time.Second
	if timeout <= 0 {
		return
	}
	interval := timeout / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-timeout)
			count, err := p.store.ReclaimAbandoned(ctx, cutoff)
			if err != nil {
				p.logger.Warn("reclaim pass failed", logging.Error(err))
				continue
			}
			if count > 0 {
				p.logger.Warn("abandoned jobs failed", logging.Int64("count", count))
			}
		}
	}
}
