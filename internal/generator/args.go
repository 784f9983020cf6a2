package generator

import (
	"strconv"

	"fluxqueue/internal/queue"
)

// BuildArgs assembles the generator's command line for a job. The artifact is
// always written into artifactDir under the job's internal filename; copies
// to the user-requested destination happen after generation succeeds.
func BuildArgs(job *queue.Job, artifactDir string) []string {
	args := []string{
		"--prompt", job.Prompt,
		"--output", job.Filename,
		"--steps", strconv.Itoa(job.Steps),
		"--guidance_scale", formatFloat(job.GuidanceScale),
		"--height", strconv.Itoa(job.Height),
		"--width", strconv.Itoa(job.Width),
		"--output_dir", artifactDir,
	}
	if job.Autotune {
		args = append(args, "--autotune")
	}
	if job.IsImageToImage() {
		args = append(args,
			"--init_image", job.InitImage,
			"--strength", formatFloat(job.Strength),
		)
	}
	return args
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
