package clips

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MoodyStars/FreePoop/internal/ffmpeg"
	"github.com/MoodyStars/FreePoop/internal/media"
)

// Transcoder is the slice of the ffmpeg executor the loader needs.
// Tests substitute a fake.
type Transcoder interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
	Render(ctx context.Context, opts ffmpeg.RenderOptions) error
	StillToVideo(ctx context.Context, image, output string, opts ffmpeg.StillOptions) error
}

// LoaderOptions sets the uniform clip parameters every visual source
// is normalized to. Uniform size, rate and SAR keep the later concat
// glitch-free.
type LoaderOptions struct {
	Width         int
	Height        int
	FPS           float64
	StillDuration time.Duration
	CRF           int
	Preset        string
}

// Loader turns registered references into render-ready clips.
type Loader struct {
	logger zerolog.Logger
	ff     Transcoder
	opts   LoaderOptions
}

// NewLoader creates a loader over a transcoder.
func NewLoader(logger zerolog.Logger, ff Transcoder, opts LoaderOptions) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "loader").Logger(),
		ff:     ff,
		opts:   opts,
	}
}

// Load probes a reference and materializes a normalized clip in
// scratchDir. Audio references are probed in place; images become
// still clips; everything else is re-encoded to the uniform format.
func (l *Loader) Load(ctx context.Context, ref media.Reference, scratchDir string) (*Clip, error) {
	id := uuid.New().String()[:8]

	switch ref.Kind {
	case media.Audio:
		return l.loadAudio(ctx, ref, id)
	case media.Image:
		return l.loadStill(ctx, ref, id, scratchDir)
	case media.Video, media.GIF, media.Transition:
		return l.loadVisual(ctx, ref, id, scratchDir)
	case media.RemoteURL:
		return nil, fmt.Errorf("remote reference %s must be fetched before loading", ref.Locator)
	default:
		return nil, fmt.Errorf("cannot load media kind %s", ref.Kind)
	}
}

func (l *Loader) loadAudio(ctx context.Context, ref media.Reference, id string) (*Clip, error) {
	info, err := l.ff.ProbeVideo(ctx, ref.Locator)
	if err != nil {
		return nil, fmt.Errorf("probe audio %s: %w", ref.Locator, err)
	}
	if !info.HasAudio {
		return nil, fmt.Errorf("no audio stream in %s", ref.Locator)
	}
	if info.Duration <= 0 {
		return nil, fmt.Errorf("zero duration audio %s", ref.Locator)
	}

	l.logger.Debug().
		Str("clip_id", id).
		Str("source", ref.Locator).
		Dur("duration", info.Duration).
		Msg("loaded audio track")

	return &Clip{
		ID:       id,
		Path:     ref.Locator,
		Duration: info.Duration,
		HasAudio: true,
		Source:   ref,
	}, nil
}

func (l *Loader) loadStill(ctx context.Context, ref media.Reference, id, scratchDir string) (*Clip, error) {
	output := filepath.Join(scratchDir, fmt.Sprintf("src_%s.mp4", id))

	err := l.ff.StillToVideo(ctx, ref.Locator, output, ffmpeg.StillOptions{
		Duration: l.opts.StillDuration,
		Width:    l.opts.Width,
		Height:   l.opts.Height,
		FPS:      l.opts.FPS,
		CRF:      l.opts.CRF,
		Preset:   l.opts.Preset,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize still %s: %w", ref.Locator, err)
	}

	info, err := l.ff.ProbeVideo(ctx, output)
	if err != nil {
		return nil, fmt.Errorf("probe still clip %s: %w", output, err)
	}

	l.logger.Debug().
		Str("clip_id", id).
		Str("source", ref.Locator).
		Dur("duration", info.Duration).
		Msg("loaded still image")

	return &Clip{
		ID:       id,
		Path:     output,
		Duration: info.Duration,
		Width:    info.Width,
		Height:   info.Height,
		FPS:      info.FPS,
		HasAudio: false,
		Still:    true,
		Source:   ref,
	}, nil
}

func (l *Loader) loadVisual(ctx context.Context, ref media.Reference, id, scratchDir string) (*Clip, error) {
	info, err := l.ff.ProbeVideo(ctx, ref.Locator)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", ref.Locator, err)
	}
	if !info.HasVideo {
		return nil, fmt.Errorf("no video stream in %s", ref.Locator)
	}
	if info.Duration <= 0 {
		return nil, fmt.Errorf("zero duration media %s", ref.Locator)
	}

	output := filepath.Join(scratchDir, fmt.Sprintf("src_%s.mp4", id))
	fb := ffmpeg.NewFilterBuilder().
		Scale(l.opts.Width, l.opts.Height).
		Custom("setsar=1")

	err = l.ff.Render(ctx, ffmpeg.RenderOptions{
		Input:   ref.Locator,
		Output:  output,
		Filters: fb.BuildAll(),
		CRF:     l.opts.CRF,
		Preset:  l.opts.Preset,
		FPS:     l.opts.FPS,
	})
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", ref.Locator, err)
	}

	norm, err := l.ff.ProbeVideo(ctx, output)
	if err != nil {
		return nil, fmt.Errorf("probe normalized clip %s: %w", output, err)
	}

	l.logger.Debug().
		Str("clip_id", id).
		Str("source", ref.Locator).
		Dur("duration", norm.Duration).
		Bool("audio", norm.HasAudio).
		Msg("loaded clip")

	return &Clip{
		ID:       id,
		Path:     output,
		Duration: norm.Duration,
		Width:    norm.Width,
		Height:   norm.Height,
		FPS:      norm.FPS,
		HasAudio: norm.HasAudio,
		Source:   ref,
	}, nil
}
