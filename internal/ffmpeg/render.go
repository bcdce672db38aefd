package ffmpeg

import (
	"context"
	"fmt"
	"strings"
)

// Render re-encodes a single input with the given filters and codec
// settings. Effects and load-time normalization both funnel through
// here.
func (e *Executor) Render(ctx context.Context, opts RenderOptions) error {
	if err := validateRenderOptions(opts); err != nil {
		return fmt.Errorf("invalid render options: %w", err)
	}

	e.logger.Debug().
		Str("input", opts.Input).
		Str("output", opts.Output).
		Msg("starting render")

	args := []string{"-i", opts.Input}

	if len(opts.Filters) > 0 {
		args = append(args, "-vf", strings.Join(opts.Filters, ","))
	}
	if len(opts.AudioFilters) > 0 {
		args = append(args, "-af", strings.Join(opts.AudioFilters, ","))
	}

	// Video codec settings
	videoCodec := opts.VideoCodec
	if videoCodec == "" {
		videoCodec = DefaultVideoCodec
	}
	args = append(args, "-c:v", videoCodec)

	// Quality settings
	crf := opts.CRF
	if crf == 0 {
		crf = DefaultCRF
	}
	args = append(args, "-crf", fmt.Sprintf("%d", crf))

	// Preset
	preset := opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	args = append(args, "-preset", preset)

	// Audio codec settings
	audioCodec := opts.AudioCodec
	if audioCodec == "" {
		audioCodec = DefaultAudioCodec
	}
	args = append(args, "-c:a", audioCodec)

	// FPS conversion
	if opts.FPS > 0 {
		args = append(args, "-r", fmt.Sprintf("%.2f", opts.FPS))
	}

	// Custom arguments
	if len(opts.CustomArgs) > 0 {
		args = append(args, opts.CustomArgs...)
	}

	// Output file
	args = append(args, opts.Output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("render output")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	e.logger.Debug().Str("output", opts.Output).Msg("render completed")
	return nil
}

// validateRenderOptions validates the render options
func validateRenderOptions(opts RenderOptions) error {
	if opts.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.CRF < 0 || opts.CRF > 51 {
		return fmt.Errorf("CRF must be between 0 and 51")
	}
	if opts.FPS < 0 {
		return fmt.Errorf("FPS cannot be negative")
	}
	return nil
}
