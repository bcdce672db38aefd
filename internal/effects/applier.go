package effects

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/MoodyStars/FreePoop/internal/clips"
	"github.com/MoodyStars/FreePoop/internal/ffmpeg"
	"github.com/MoodyStars/FreePoop/pkg/util"
)

// Renderer is the slice of the ffmpeg executor the applier drives.
type Renderer interface {
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
	Render(ctx context.Context, opts ffmpeg.RenderOptions) error
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

// Applier materializes recipes into real clips. Recipes only carry
// audio filters for clips that have audio, so filter passes never ask
// ffmpeg for a missing track.
type Applier struct {
	logger zerolog.Logger
	ff     Renderer
	crf    int
	preset string
}

// NewApplier creates an applier over a renderer.
func NewApplier(logger zerolog.Logger, ff Renderer, crf int, preset string) *Applier {
	return &Applier{
		logger: logger.With().Str("component", "applier").Logger(),
		ff:     ff,
		crf:    crf,
		preset: preset,
	}
}

// Materialize runs a recipe against a clip, writing the result to
// output and returning the probe-refreshed clip. Identity recipes
// return the input clip untouched.
func (a *Applier) Materialize(ctx context.Context, clip *clips.Clip, recipe *Recipe, output string) (*clips.Clip, error) {
	if recipe.IsIdentity() {
		return clip, nil
	}

	input := clip.Path
	var intermediates []string
	defer func() { util.CleanupFiles(intermediates...) }()

	if len(recipe.Segments) > 0 {
		spliced := output
		if len(recipe.VideoFilters) > 0 || len(recipe.AudioFilters) > 0 {
			spliced = stageName(output, "spliced")
			intermediates = append(intermediates, spliced)
		}

		if err := a.splice(ctx, input, recipe.Segments, spliced, &intermediates); err != nil {
			return nil, err
		}
		input = spliced
	}

	if len(recipe.VideoFilters) > 0 || len(recipe.AudioFilters) > 0 {
		err := a.ff.Render(ctx, ffmpeg.RenderOptions{
			Input:        input,
			Output:       output,
			Filters:      recipe.VideoFilters,
			AudioFilters: recipe.AudioFilters,
			CRF:          a.crf,
			Preset:       a.preset,
		})
		if err != nil {
			return nil, fmt.Errorf("filter pass: %w", err)
		}
	}

	info, err := a.ff.ProbeVideo(ctx, output)
	if err != nil {
		return nil, fmt.Errorf("probe effect output: %w", err)
	}

	out := clip.WithPath(output)
	out.Duration = info.Duration
	out.Width = info.Width
	out.Height = info.Height
	out.FPS = info.FPS
	out.HasAudio = info.HasAudio
	return out, nil
}

// splice extracts the recipe segments and concatenates them into dest.
// A single whole-segment splice collapses to one extraction.
func (a *Applier) splice(ctx context.Context, input string, segments []Segment, dest string, intermediates *[]string) error {
	if len(segments) == 1 {
		return a.extract(ctx, input, segments[0], dest)
	}

	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = stageName(dest, fmt.Sprintf("part%03d", i))
		*intermediates = append(*intermediates, parts[i])
		if err := a.extract(ctx, input, seg, parts[i]); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}

	err := a.ff.Concat(ctx, ffmpeg.ConcatOptions{
		Inputs:   parts,
		Output:   dest,
		ReEncode: true,
		CRF:      a.crf,
		Preset:   a.preset,
	})
	if err != nil {
		return fmt.Errorf("splice concat: %w", err)
	}
	return nil
}

func (a *Applier) extract(ctx context.Context, input string, seg Segment, output string) error {
	return a.ff.ExtractClip(ctx, input, ffmpeg.ClipOptions{
		Start:  seg.Start,
		End:    seg.End,
		Output: output,
		CRF:    a.crf,
	})
}

// stageName derives an intermediate filename next to the final output.
func stageName(output, stage string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + "_" + stage + ext
}
