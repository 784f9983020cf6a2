package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"fluxqueue/internal/config"
	"fluxqueue/internal/generator"
	"fluxqueue/internal/logging"
	"fluxqueue/internal/queue"
	"fluxqueue/internal/worker"
)

// Daemon runs the worker pool as a single-instance background process.
type Daemon struct {
	cfg    *config.Config
	store  *queue.Store
	pool   *worker.Pool
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "fluxqueue.lock")
	runner := generator.NewCommandRunner(cfg, logger)
	return &Daemon{
		cfg:      cfg,
		store:    store,
		pool:     worker.NewPool(store, cfg, runner, logger),
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// LockPath returns the location of the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Running reports whether the pool is currently active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Start acquires the instance lock and launches the worker pool in the
// background. A second instance fails fast instead of competing for jobs.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fluxqueue instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)

	go func() {
		defer close(d.done)
		_ = d.pool.Run(runCtx)
	}()

	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("workers", d.cfg.Workers.Count),
	)
	return nil
}

// Wait blocks until the worker pool exits.
func (d *Daemon) Wait() {
	if d.done != nil {
		<-d.done
	}
}

// Stop cancels the pool, waits for in-flight jobs to record their outcome,
// and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.Wait()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release instance lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}
