package artifacts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"fluxqueue/internal/config"
	"fluxqueue/internal/fileutil"
	"fluxqueue/internal/logging"
	"fluxqueue/internal/queue"
)

// thumbnailWidth is the target width in pixels; height follows the aspect
// ratio.
const thumbnailWidth = 256

// Manager owns post-generation file placement and retention.
type Manager struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewManager builds a Manager for the given store and configuration.
func NewManager(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "artifacts"),
	}
}

// Reconcile places a freshly generated artifact. The image always lives in
// the artifact directory under the job's internal filename; when the job
// asked for a custom filename or a different output directory, a verified
// copy goes there too. Placement trouble is logged and swallowed: the
// generation itself succeeded, and that is the fact the job record states.
func (m *Manager) Reconcile(ctx context.Context, job *queue.Job) {
	logger := logging.WithContext(ctx, m.logger)
	src := filepath.Join(m.cfg.Paths.ArtifactDir, job.Filename)

	switch {
	case job.CustomFilename != "":
		dst := filepath.Join(job.OutputDir, job.CustomFilename)
		if err := fileutil.CopyFileVerified(src, dst); err != nil {
			logger.Warn("artifact copy failed", logging.String("destination", dst), logging.Error(err))
		} else {
			logger.Info("artifact copied", logging.String("destination", dst))
		}
	case !samePath(job.OutputDir, m.cfg.Paths.ArtifactDir):
		dst := filepath.Join(job.OutputDir, job.Filename)
		if err := fileutil.CopyFileVerified(src, dst); err != nil {
			logger.Warn("artifact copy failed", logging.String("destination", dst), logging.Error(err))
		} else {
			logger.Info("artifact copied", logging.String("destination", dst))
		}
	}

	if err := m.writeThumbnail(src, job.Filename); err != nil {
		logger.Warn("thumbnail generation failed", logging.String("filename", job.Filename), logging.Error(err))
	}
}

// writeThumbnail renders a fixed-width thumbnail into the thumbnail
// directory under the artifact's filename.
func (m *Manager) writeThumbnail(src, filename string) error {
	img, err := imaging.Open(src)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	if err := os.MkdirAll(m.cfg.ThumbnailDir(), 0o755); err != nil {
		return fmt.Errorf("create thumbnail directory: %w", err)
	}
	dst := filepath.Join(m.cfg.ThumbnailDir(), filename)
	if err := imaging.Save(thumb, dst); err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}
	return nil
}

// ThumbnailPath returns where the thumbnail for an artifact filename lives.
func (m *Manager) ThumbnailPath(filename string) string {
	return filepath.Join(m.cfg.ThumbnailDir(), filename)
}

// ArchiveOlderThan moves artifacts of completed jobs past the age cutoff
// into archive/<YYYY-MM-DD> directories keyed by the job's end date. The job
// records stay in the database; only the files move. Returns how many
// artifacts were relocated.
func (m *Manager) ArchiveOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-age)
	jobs, err := m.store.TerminalOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list archivable jobs: %w", err)
	}

	logger := logging.WithContext(ctx, m.logger)
	moved := 0
	for _, job := range jobs {
		if job.Status != queue.StatusDone || job.EndTime == nil {
			continue
		}
		src := filepath.Join(m.cfg.Paths.ArtifactDir, job.Filename)
		if _, err := os.Stat(src); err != nil {
			// Already archived or manually removed.
			continue
		}
		dateDir := job.EndTime.UTC().Format("2006-01-02")
		dst := filepath.Join(m.cfg.ArchiveDir(), dateDir, job.Filename)
		if err := fileutil.MoveFile(src, dst); err != nil {
			logger.Warn("archive move failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.String("destination", dst),
				logging.Error(err),
			)
			continue
		}
		moved++
	}
	if moved > 0 {
		logger.Info("artifacts archived", logging.Int("count", moved))
	}
	return moved, nil
}

// CleanupOlderThan deletes terminal job records past the age cutoff and
// removes their artifact and thumbnail files. File removal is best-effort;
// the record deletion is what guarantees the queue stops referencing them.
func (m *Manager) CleanupOlderThan(ctx context.Context, age time.Duration) ([]queue.RemovedJob, error) {
	cutoff := time.Now().UTC().Add(-age)
	removed, err := m.store.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("delete old jobs: %w", err)
	}

	logger := logging.WithContext(ctx, m.logger)
	for _, job := range removed {
		artifact := filepath.Join(m.cfg.Paths.ArtifactDir, job.Filename)
		if err := fileutil.RemoveIfExists(artifact); err != nil {
			logger.Warn("artifact removal failed", logging.String("path", artifact), logging.Error(err))
		}
		thumb := m.ThumbnailPath(job.Filename)
		if err := fileutil.RemoveIfExists(thumb); err != nil {
			logger.Warn("thumbnail removal failed", logging.String("path", thumb), logging.Error(err))
		}
	}
	if len(removed) > 0 {
		logger.Info("old jobs cleaned up", logging.Int("count", len(removed)))
	}
	return removed, nil
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
