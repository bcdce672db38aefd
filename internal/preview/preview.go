// Package preview decodes single frames from loaded clips for
// inspection outside the render path. Nothing in the pipeline depends
// on it; the CLI and any embedding frontend call it directly.
package preview

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"

	"github.com/MoodyStars/FreePoop/internal/clips"
)

// Grabber extracts a single frame to an image file. Satisfied by
// *ffmpeg.Executor.
type Grabber interface {
	ExtractFrame(ctx context.Context, input, output string, timestamp time.Duration, accurate bool) error
}

// Previewer turns clip positions into decoded, display-sized frames.
type Previewer struct {
	logger zerolog.Logger
	ff     Grabber
}

// New creates a previewer on top of a frame grabber.
func New(logger zerolog.Logger, ff Grabber) *Previewer {
	return &Previewer{
		logger: logger.With().Str("component", "preview").Logger(),
		ff:     ff,
	}
}

// FrameAt decodes the frame at position. Positions outside the clip are
// clamped into it. When maxW and maxH are positive the frame is fitted
// inside that box with aspect preserved; otherwise it comes back at
// native size.
//
// Fast keyframe seeking can miss on sparsely keyframed files, so a
// failed fast grab silently retries with accurate seeking before the
// error surfaces.
func (p *Previewer) FrameAt(ctx context.Context, clip *clips.Clip, position time.Duration, maxW, maxH int) (image.Image, error) {
	if clip == nil {
		return nil, fmt.Errorf("clip is required")
	}
	if clip.AudioOnly() {
		return nil, fmt.Errorf("no picture to preview in %s", clip.Path)
	}
	position = clampPosition(position, clip.Duration)

	framePath := filepath.Join(os.TempDir(),
		fmt.Sprintf("freepoop_frame_%d.png", time.Now().UnixNano()))
	defer os.Remove(framePath)

	img, err := p.grab(ctx, clip.Path, framePath, position, false)
	if err != nil {
		p.logger.Debug().
			Err(err).
			Str("clip", clip.Path).
			Dur("position", position).
			Msg("fast seek missed, decoding accurately")
		img, err = p.grab(ctx, clip.Path, framePath, position, true)
	}
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", clip.Path, err)
	}

	if maxW > 0 && maxH > 0 {
		img = resize.Thumbnail(uint(maxW), uint(maxH), img, resize.Lanczos3)
	}
	return img, nil
}

func (p *Previewer) grab(ctx context.Context, input, framePath string, position time.Duration, accurate bool) (image.Image, error) {
	if err := p.ff.ExtractFrame(ctx, input, framePath, position, accurate); err != nil {
		return nil, err
	}

	f, err := os.Open(framePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// clampPosition keeps the seek target inside the clip. Seeking at or
// past the end yields no frame at all, so the clamp backs off slightly
// from the final timestamp.
func clampPosition(position, duration time.Duration) time.Duration {
	if position < 0 {
		return 0
	}
	if duration <= 0 {
		return position
	}
	limit := duration - 50*time.Millisecond
	if limit < 0 {
		limit = 0
	}
	if position > limit {
		return limit
	}
	return position
}
