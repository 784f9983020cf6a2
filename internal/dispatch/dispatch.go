package dispatch

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"fluxqueue/internal/config"
	"fluxqueue/internal/logging"
	"fluxqueue/internal/queue"
	"fluxqueue/internal/services"
)

const (
	defaultSteps         = 4
	defaultGuidanceScale = 3.5
	defaultDimension     = 1024
	defaultStrength      = 0.75

	// createAttempts bounds how many fresh identifiers Submit mints when an
	// insert collides with an existing job id.
	createAttempts = 3
)

// Request carries the caller-supplied generation parameters before
// normalization. Zero values take documented defaults.
type Request struct {
	Prompt        string
	Steps         int
	GuidanceScale float64
	Height        int
	Width         int
	// Autotune defaults to enabled; nil means "not specified".
	Autotune *bool
	// Filename is an optional external name for the artifact; it is
	// sanitized and never used as the internal storage name.
	Filename  string
	OutputDir string
	// InitImage switches the job to image-to-image mode. Absolute paths are
	// used as-is; relative names resolve against the artifact and upload
	// directories.
	InitImage string
	Strength  float64
}

// Receipt describes an accepted job.
type Receipt struct {
	JobID     string
	Status    queue.Status
	Filename  string
	OutputDir string
	// CustomFilename echoes the caller's requested display name verbatim.
	// The persisted record carries the sanitized form.
	CustomFilename string
}

// Dispatcher validates requests and persists them as queued jobs.
type Dispatcher struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	newID  func() string
}

// New constructs a Dispatcher bound to the given store and configuration.
func New(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "dispatch"),
		newID:  newJobID,
	}
}

// Submit normalizes the request and enqueues it. The returned receipt names
// the new job; the queue position is implicit in insertion order.
func (d *Dispatcher) Submit(ctx context.Context, req Request) (*Receipt, error) {
	job, err := d.buildJob(req)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		err := d.store.Create(ctx, job)
		if err == nil {
			break
		}
		// A duplicate id is a collision on this identifier, not a fault of
		// the request. Mint a fresh identity and insert again.
		if errors.Is(err, queue.ErrDuplicateID) && attempt < createAttempts {
			id := d.newID()
			job.ID = id
			job.Filename = id + ".png"
			continue
		}
		return nil, services.Wrap(services.ErrTransient, "dispatch", "submit", "persist job", err)
	}

	d.logger.Info("job queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("filename", job.Filename),
		logging.Bool("img2img", job.IsImageToImage()),
	)

	return &Receipt{
		JobID:          job.ID,
		Status:         job.Status,
		Filename:       job.Filename,
		OutputDir:      job.OutputDir,
		CustomFilename: req.Filename,
	}, nil
}

// Retry clones a failed job's parameters into a brand-new queued job with a
// fresh identifier and filename. The failed record is left untouched.
func (d *Dispatcher) Retry(ctx context.Context, jobID string) (*Receipt, error) {
	original, err := d.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "dispatch", "retry", "load job", err)
	}
	if original == nil {
		return nil, services.Wrap(services.ErrNotFound, "dispatch", "retry", fmt.Sprintf("job %s does not exist", jobID), nil)
	}
	if original.Status != queue.StatusFailed {
		return nil, services.Wrap(services.ErrValidation, "dispatch", "retry",
			fmt.Sprintf("job %s is %s; only failed jobs can be retried", jobID, original.Status), nil)
	}

	autotune := original.Autotune
	return d.Submit(ctx, Request{
		Prompt:        original.Prompt,
		Steps:         original.Steps,
		GuidanceScale: original.GuidanceScale,
		Height:        original.Height,
		Width:         original.Width,
		Autotune:      &autotune,
		Filename:      original.CustomFilename,
		OutputDir:     original.OutputDir,
		InitImage:     original.InitImage,
		Strength:      original.Strength,
	})
}

func (d *Dispatcher) buildJob(req Request) (*queue.Job, error) {
	req.applyDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}

	outputDir, err := d.resolveOutputDir(req.OutputDir)
	if err != nil {
		return nil, err
	}

	initImage, err := d.resolveInitImage(req.InitImage)
	if err != nil {
		return nil, err
	}

	id := d.newID()
	return &queue.Job{
		ID:             id,
		Prompt:         strings.TrimSpace(req.Prompt),
		Steps:          req.Steps,
		GuidanceScale:  req.GuidanceScale,
		Height:         req.Height,
		Width:          req.Width,
		Autotune:       *req.Autotune,
		InitImage:      initImage,
		Strength:       req.Strength,
		Filename:       id + ".png",
		CustomFilename: SanitizeFilename(req.Filename),
		OutputDir:      outputDir,
	}, nil
}

func (r *Request) applyDefaults() {
	if r.Steps == 0 {
		r.Steps = defaultSteps
	}
	if r.GuidanceScale == 0 {
		r.GuidanceScale = defaultGuidanceScale
	}
	if r.Height == 0 {
		r.Height = defaultDimension
	}
	if r.Width == 0 {
		r.Width = defaultDimension
	}
	if r.Autotune == nil {
		enabled := true
		r.Autotune = &enabled
	}
	if r.Strength == 0 {
		r.Strength = defaultStrength
	}
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return services.Wrap(services.ErrValidation, "dispatch", "submit", "prompt is required", nil)
	}
	if r.Steps < 1 {
		return services.Wrap(services.ErrValidation, "dispatch", "submit", "steps must be at least 1", nil)
	}
	if r.GuidanceScale <= 0 {
		return services.Wrap(services.ErrValidation, "dispatch", "submit", "guidance_scale must be positive", nil)
	}
	if r.Height < 1 || r.Width < 1 {
		return services.Wrap(services.ErrValidation, "dispatch", "submit", "height and width must be positive", nil)
	}
	if r.Strength < 0 || r.Strength > 1 {
		return services.Wrap(services.ErrValidation, "dispatch", "submit", "strength must be between 0 and 1", nil)
	}
	return nil
}

// resolveOutputDir expands the requested directory and creates it, falling
// back to the configured artifact directory when none was requested.
func (d *Dispatcher) resolveOutputDir(requested string) (string, error) {
	if strings.TrimSpace(requested) == "" {
		return d.cfg.Paths.ArtifactDir, nil
	}
	expanded, err := config.ExpandPath(requested)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "dispatch", "submit", "resolve output_dir", err)
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "dispatch", "submit",
			fmt.Sprintf("create output_dir %s", expanded), err)
	}
	return expanded, nil
}

// resolveInitImage locates the init image for image-to-image jobs. Absolute
// paths must exist as given; relative names are tried against the artifact
// directory, then the upload directory.
func (d *Dispatcher) resolveInitImage(requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return "", nil
	}

	var candidates []string
	switch {
	case filepath.IsAbs(requested):
		candidates = []string{requested}
	case strings.HasPrefix(requested, "~"):
		expanded, err := config.ExpandPath(requested)
		if err != nil {
			return "", services.Wrap(services.ErrConfiguration, "dispatch", "submit", "resolve init image path", err)
		}
		candidates = []string{expanded}
	default:
		candidates = []string{
			filepath.Join(d.cfg.Paths.ArtifactDir, requested),
			filepath.Join(d.cfg.Paths.UploadDir, requested),
		}
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", services.Wrap(services.ErrNotFound, "dispatch", "submit",
		fmt.Sprintf("init image %s does not exist", requested), nil)
}

// newJobID produces the short hex identifier used for jobs and their
// internal artifact filenames.
func newJobID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:4])
}
