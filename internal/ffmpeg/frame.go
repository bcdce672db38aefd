package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/MoodyStars/FreePoop/pkg/util"
)

// ExtractFrame saves the frame at timestamp as a single image.
// Fast mode seeks before decode, which can land on a nearby keyframe;
// accurate mode decodes up to the exact frame.
func (e *Executor) ExtractFrame(ctx context.Context, input, output string, timestamp time.Duration, accurate bool) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", output).
		Dur("timestamp", timestamp).
		Bool("accurate", accurate).
		Msg("extracting frame")

	var args []string
	if accurate {
		args = []string{
			"-i", input,
			"-ss", util.FormatDuration(timestamp),
		}
	} else {
		args = []string{
			"-ss", util.FormatDuration(timestamp),
			"-i", input,
		}
	}
	args = append(args,
		"-vframes", "1",
		"-q:v", "2",
		output,
	)

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("frame extraction")
		},
	}

	return e.Run(ctx, opts)
}

// ExportFrames decomposes a video into a numbered image sequence.
// Pattern must contain a printf index placeholder ("frame_%06d.png").
func (e *Executor) ExportFrames(ctx context.Context, input, pattern string, fps float64, progressFunc ProgressFunc) error {
	if input == "" || pattern == "" {
		return fmt.Errorf("input and pattern are required")
	}

	e.logger.Info().
		Str("input", input).
		Str("pattern", pattern).
		Float64("fps", fps).
		Msg("exporting frame sequence")

	args := []string{"-i", input}
	if fps > 0 {
		args = append(args, "-vf", fmt.Sprintf("fps=%f", fps))
	}
	args = append(args, pattern)

	opts := RunOptions{
		Args:            args,
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("frame export")
		},
	}

	return e.Run(ctx, opts)
}

// FramesToVideo reassembles a numbered image sequence into a video,
// optionally muxing an audio file alongside.
func (e *Executor) FramesToVideo(ctx context.Context, pattern, audio, output string, fps float64, progressFunc ProgressFunc) error {
	if pattern == "" || output == "" {
		return fmt.Errorf("pattern and output are required")
	}
	if fps <= 0 {
		fps = 30
	}

	e.logger.Info().
		Str("pattern", pattern).
		Str("audio", audio).
		Str("output", output).
		Msg("assembling frame sequence")

	args := []string{
		"-framerate", fmt.Sprintf("%f", fps),
		"-i", pattern,
	}
	if audio != "" {
		args = append(args, "-i", audio, "-map", "0:v:0", "-map", "1:a:0", "-shortest")
	}
	args = append(args,
		"-c:v", DefaultVideoCodec,
		"-pix_fmt", "yuv420p",
		"-crf", fmt.Sprintf("%d", DefaultCRF),
	)
	if audio != "" {
		args = append(args, "-c:a", DefaultAudioCodec)
	}
	args = append(args, output)

	opts := RunOptions{
		Args:            args,
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("frame assembly")
		},
	}

	return e.Run(ctx, opts)
}

// StillOptions configures image-to-clip synthesis.
type StillOptions struct {
	Duration time.Duration
	Width    int
	Height   int
	FPS      float64
	CRF      int
	Preset   string
}

// StillToVideo turns a single image into a video clip of the given
// duration so stills flow through the pipeline like any other source.
func (e *Executor) StillToVideo(ctx context.Context, image, output string, opts StillOptions) error {
	if image == "" || output == "" {
		return fmt.Errorf("image and output paths are required")
	}
	if opts.Duration <= 0 {
		return fmt.Errorf("still duration must be positive")
	}

	e.logger.Debug().
		Str("image", image).
		Str("output", output).
		Dur("duration", opts.Duration).
		Msg("synthesizing still clip")

	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}
	crf := opts.CRF
	if crf == 0 {
		crf = DefaultCRF
	}
	preset := opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}

	fb := NewFilterBuilder().Scale(opts.Width, opts.Height).Custom("setsar=1").FPS(fps)

	args := []string{
		"-loop", "1",
		"-i", image,
		"-t", util.FormatSeconds(opts.Duration),
		"-vf", fb.Build(),
		"-c:v", DefaultVideoCodec,
		"-pix_fmt", "yuv420p",
		"-crf", fmt.Sprintf("%d", crf),
		"-preset", preset,
		output,
	}

	runOpts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("still synthesis")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("still synthesis failed: %w", err)
	}
	return nil
}
