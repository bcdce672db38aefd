package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/MoodyStars/FreePoop/internal/ffmpeg"
)

// ErrExhausted means every encoder strategy was tried and none wrote a
// playable file.
var ErrExhausted = errors.New("all export strategies failed")

// Part is one rendered timeline entry, in playback order.
type Part struct {
	Path     string
	Duration time.Duration
	HasAudio bool
}

// Timeline is the sequencer's finished cut. AudioPath, when set, is a
// driving track looped or trimmed to the visual duration at mux time.
type Timeline struct {
	Parts     []Part
	AudioPath string
}

// Duration sums the parts.
func (t *Timeline) Duration() time.Duration {
	var total time.Duration
	for _, p := range t.Parts {
		total += p.Duration
	}
	return total
}

func (t *Timeline) paths() []string {
	out := make([]string, len(t.Parts))
	for i, p := range t.Parts {
		out[i] = p.Path
	}
	return out
}

// Encoder is the slice of the ffmpeg executor the exporter drives.
type Encoder interface {
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
	MuxAudio(ctx context.Context, video, audio, output string, opts ffmpeg.MuxOptions) error
	AddSilentAudio(ctx context.Context, input, output string) error
	ExtractAudio(ctx context.Context, input, output string, format ffmpeg.AudioFormat, progressFunc ffmpeg.ProgressFunc) error
	ExportFrames(ctx context.Context, input, pattern string, fps float64, progressFunc ffmpeg.ProgressFunc) error
	FramesToVideo(ctx context.Context, pattern, audio, output string, fps float64, progressFunc ffmpeg.ProgressFunc) error
}

// Options configure one export.
type Options struct {
	OutputPath string
	FPS        float64
	CRF        int
	Preset     string
	// OnProgress receives raw encoder progress during long passes.
	OnProgress ffmpeg.ProgressFunc
}

// Attempt records one strategy try. Err is nil on the succeeding one.
type Attempt struct {
	Strategy string
	Err      error
	Elapsed  time.Duration
}

// Report lists every attempt in order plus the strategy that finally
// produced OutputPath.
type Report struct {
	OutputPath string
	Strategy   string
	Attempts   []Attempt
}

type strategy struct {
	name string
	run  func(ctx context.Context, tl *Timeline, scratch string, opts Options) error
}

// Exporter serializes a timeline to a video file, walking a fixed
// ladder of encoder strategies until one accepts.
type Exporter struct {
	logger zerolog.Logger
	enc    Encoder
}

func New(logger zerolog.Logger, enc Encoder) *Exporter {
	return &Exporter{
		logger: logger.With().Str("component", "exporter").Logger(),
		enc:    enc,
	}
}

// Export writes the timeline to opts.OutputPath. Strategies run in
// fixed order from highest fidelity to last resort; the report records
// every attempt. A context cancellation between attempts stops the
// ladder and surfaces as the returned error.
func (e *Exporter) Export(ctx context.Context, tl *Timeline, scratch string, opts Options) (*Report, error) {
	if tl == nil || len(tl.Parts) == 0 {
		return nil, fmt.Errorf("timeline has no parts")
	}
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("output path is required")
	}

	tl, err := e.uniformAudio(ctx, tl, scratch)
	if err != nil {
		return nil, fmt.Errorf("audio prepass: %w", err)
	}

	report := &Report{}
	for _, strat := range e.strategies() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		e.logger.Info().Str("strategy", strat.name).Msg("export attempt")
		start := time.Now()
		err := strat.run(ctx, tl, scratch, opts)
		report.Attempts = append(report.Attempts, Attempt{
			Strategy: strat.name,
			Err:      err,
			Elapsed:  time.Since(start),
		})

		if err == nil {
			report.Strategy = strat.name
			report.OutputPath = opts.OutputPath
			e.logger.Info().
				Str("strategy", strat.name).
				Str("output", opts.OutputPath).
				Msg("export complete")
			return report, nil
		}

		// The failure may just be the context being pulled out from
		// under the encoder.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}

		e.logger.Warn().
			Err(err).
			Str("strategy", strat.name).
			Msg("export strategy failed, trying next")
		os.Remove(opts.OutputPath)
	}

	return report, fmt.Errorf("%w after %d attempts", ErrExhausted, len(report.Attempts))
}

func (e *Exporter) strategies() []strategy {
	return []strategy{
		{"full", e.runFull},
		{"basic", e.runBasic},
		{"copy", e.runCopy},
		{"frames", e.runFrames},
	}
}

// runFull re-encodes the concat with the configured quality settings,
// a forced frame rate and faststart for streamable output.
func (e *Exporter) runFull(ctx context.Context, tl *Timeline, scratch string, opts Options) error {
	extra := []string{"-pix_fmt", "yuv420p", "-movflags", "+faststart"}
	if opts.FPS > 0 {
		extra = append(extra, "-r", fmt.Sprintf("%g", opts.FPS))
	}
	return e.concatAndMux(ctx, tl, scratch, opts, ffmpeg.ConcatOptions{
		Inputs:       tl.paths(),
		ReEncode:     true,
		CRF:          opts.CRF,
		Preset:       opts.Preset,
		ExtraArgs:    extra,
		ProgressFunc: opts.OnProgress,
	})
}

// runBasic drops every optional flag and lets the encoder defaults
// carry it.
func (e *Exporter) runBasic(ctx context.Context, tl *Timeline, scratch string, opts Options) error {
	return e.concatAndMux(ctx, tl, scratch, opts, ffmpeg.ConcatOptions{
		Inputs:       tl.paths(),
		ReEncode:     true,
		ProgressFunc: opts.OnProgress,
	})
}

// runCopy stream-copies the parts. Works because the loader normalized
// every source to one format; if that assumption ever breaks the
// strategy fails and the ladder moves on.
func (e *Exporter) runCopy(ctx context.Context, tl *Timeline, scratch string, opts Options) error {
	return e.concatAndMux(ctx, tl, scratch, opts, ffmpeg.ConcatOptions{
		Inputs:       tl.paths(),
		ReEncode:     false,
		ProgressFunc: opts.OnProgress,
	})
}

// concatAndMux runs one concat shape, then lays the driving track over
// the result when the timeline carries one.
func (e *Exporter) concatAndMux(ctx context.Context, tl *Timeline, scratch string, opts Options, concat ffmpeg.ConcatOptions) error {
	dest := opts.OutputPath
	if tl.AudioPath != "" {
		dest = filepath.Join(scratch, "export_visual.mp4")
		defer os.Remove(dest)
	}
	concat.Output = dest

	if err := e.enc.Concat(ctx, concat); err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	if tl.AudioPath == "" {
		return nil
	}

	err := e.enc.MuxAudio(ctx, dest, tl.AudioPath, opts.OutputPath, ffmpeg.MuxOptions{
		LoopAudio:    true,
		CopyVideo:    true,
		ProgressFunc: opts.OnProgress,
	})
	if err != nil {
		return fmt.Errorf("driving audio mux: %w", err)
	}
	return nil
}

// runFrames is the last resort: decompose every part into images,
// renumber them into one sequence and rebuild from scratch. Part audio
// travels as a separate WAV track and is multiplexed back in during
// the rebuild; a driving track, when present, replaces it.
func (e *Exporter) runFrames(ctx context.Context, tl *Timeline, scratch string, opts Options) error {
	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}

	framesDir := filepath.Join(scratch, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(framesDir)

	counter := 0
	for i, part := range tl.Parts {
		partDir := filepath.Join(framesDir, fmt.Sprintf("part%03d", i))
		if err := os.MkdirAll(partDir, 0o755); err != nil {
			return err
		}
		pattern := filepath.Join(partDir, "f_%06d.png")
		if err := e.enc.ExportFrames(ctx, part.Path, pattern, fps, nil); err != nil {
			return fmt.Errorf("decompose part %d: %w", i, err)
		}

		frames, err := filepath.Glob(filepath.Join(partDir, "f_*.png"))
		if err != nil {
			return err
		}
		sort.Strings(frames)
		for _, frame := range frames {
			counter++
			renamed := filepath.Join(framesDir, fmt.Sprintf("frame_%08d.png", counter))
			if err := os.Rename(frame, renamed); err != nil {
				return err
			}
		}
	}
	if counter == 0 {
		return fmt.Errorf("no frames decoded")
	}

	pattern := filepath.Join(framesDir, "frame_%08d.png")
	if tl.AudioPath == "" {
		audio, err := e.partsAudio(ctx, tl, scratch)
		if err != nil {
			return err
		}
		return e.enc.FramesToVideo(ctx, pattern, audio, opts.OutputPath, fps, opts.OnProgress)
	}

	visual := filepath.Join(scratch, "export_frames.mp4")
	defer os.Remove(visual)
	if err := e.enc.FramesToVideo(ctx, pattern, "", visual, fps, opts.OnProgress); err != nil {
		return err
	}
	return e.enc.MuxAudio(ctx, visual, tl.AudioPath, opts.OutputPath, ffmpeg.MuxOptions{
		LoopAudio:    true,
		CopyVideo:    true,
		ProgressFunc: opts.OnProgress,
	})
}

// partsAudio pulls each part's audio into a WAV and joins them into the
// timeline's separate track. The audio prepass already made the parts
// uniformly voiced or silent, so checking the first one is enough; for
// silent timelines the track is the empty string.
func (e *Exporter) partsAudio(ctx context.Context, tl *Timeline, scratch string) (string, error) {
	if !tl.Parts[0].HasAudio {
		return "", nil
	}

	wavs := make([]string, len(tl.Parts))
	for i, part := range tl.Parts {
		wavs[i] = filepath.Join(scratch, fmt.Sprintf("audio_%03d.wav", i))
		if err := e.enc.ExtractAudio(ctx, part.Path, wavs[i], ffmpeg.WAVFormat(), nil); err != nil {
			return "", fmt.Errorf("extract audio of part %d: %w", i, err)
		}
	}
	if len(wavs) == 1 {
		return wavs[0], nil
	}

	joined := filepath.Join(scratch, "parts_audio.wav")
	if err := e.enc.Concat(ctx, ffmpeg.ConcatOptions{Inputs: wavs, Output: joined}); err != nil {
		return "", fmt.Errorf("join part audio: %w", err)
	}
	return joined, nil
}

// uniformAudio pads silence onto silent parts when the timeline mixes
// voiced and silent ones, because the concat demuxer needs one stream
// layout across all entries. All-silent timelines pass through.
func (e *Exporter) uniformAudio(ctx context.Context, tl *Timeline, scratch string) (*Timeline, error) {
	voiced := 0
	for _, p := range tl.Parts {
		if p.HasAudio {
			voiced++
		}
	}
	if voiced == 0 || voiced == len(tl.Parts) {
		return tl, nil
	}

	out := &Timeline{Parts: make([]Part, len(tl.Parts)), AudioPath: tl.AudioPath}
	copy(out.Parts, tl.Parts)
	for i, p := range out.Parts {
		if p.HasAudio {
			continue
		}
		padded := filepath.Join(scratch, fmt.Sprintf("pad_%03d.mp4", i))
		if err := e.enc.AddSilentAudio(ctx, p.Path, padded); err != nil {
			return nil, fmt.Errorf("pad part %d: %w", i, err)
		}
		e.logger.Debug().Str("part", p.Path).Msg("padded silent part")
		out.Parts[i].Path = padded
		out.Parts[i].HasAudio = true
	}
	return out, nil
}
