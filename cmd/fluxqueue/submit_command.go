package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fluxqueue/internal/dispatch"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		steps      int
		guidance   float64
		height     int
		width      int
		noAutotune bool
		filename   string
		outputDir  string
		initImage  string
		strength   float64
	)

	cmd := &cobra.Command{
		Use:   "submit <prompt>",
		Short: "Queue a generation job",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			autotune := !noAutotune
			dispatcher := dispatch.New(store, cfg, ctx.cliLogger())
			receipt, err := dispatcher.Submit(cmd.Context(), dispatch.Request{
				Prompt:        strings.Join(args, " "),
				Steps:         steps,
				GuidanceScale: guidance,
				Height:        height,
				Width:         width,
				Autotune:      &autotune,
				Filename:      filename,
				OutputDir:     outputDir,
				InitImage:     initImage,
				Strength:      strength,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "queued job %s\n", receipt.JobID)
			fmt.Fprintf(out, "  filename:   %s\n", receipt.Filename)
			if receipt.CustomFilename != "" {
				fmt.Fprintf(out, "  custom:     %s\n", receipt.CustomFilename)
			}
			fmt.Fprintf(out, "  output dir: %s\n", receipt.OutputDir)
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 0, "Inference steps (default 4)")
	cmd.Flags().Float64Var(&guidance, "guidance-scale", 0, "Guidance scale (default 3.5)")
	cmd.Flags().IntVar(&height, "height", 0, "Image height in pixels (default 1024)")
	cmd.Flags().IntVar(&width, "width", 0, "Image width in pixels (default 1024)")
	cmd.Flags().BoolVar(&noAutotune, "no-autotune", false, "Disable generator autotune")
	cmd.Flags().StringVar(&filename, "filename", "", "Custom output filename")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to copy the finished image into")
	cmd.Flags().StringVar(&initImage, "init-image", "", "Init image for image-to-image generation")
	cmd.Flags().Float64Var(&strength, "strength", 0, "Image-to-image strength (default 0.75)")

	return cmd
}
