package clips

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MoodyStars/FreePoop/internal/ffmpeg"
	"github.com/MoodyStars/FreePoop/internal/media"
)

// fakeTranscoder satisfies Transcoder without touching ffmpeg. Renders
// and still syntheses record their options and register plausible
// probe results for their outputs.
type fakeTranscoder struct {
	infos   map[string]*ffmpeg.VideoInfo
	renders []ffmpeg.RenderOptions
	stills  []ffmpeg.StillOptions
}

func newFakeTranscoder() *fakeTranscoder {
	return &fakeTranscoder{infos: make(map[string]*ffmpeg.VideoInfo)}
}

func (f *fakeTranscoder) ProbeVideo(_ context.Context, path string) (*ffmpeg.VideoInfo, error) {
	info, ok := f.infos[path]
	if !ok {
		return nil, fmt.Errorf("ffprobe failed: no such file %s", path)
	}
	return info, nil
}

func (f *fakeTranscoder) Render(_ context.Context, opts ffmpeg.RenderOptions) error {
	f.renders = append(f.renders, opts)
	src := f.infos[opts.Input]
	f.infos[opts.Output] = &ffmpeg.VideoInfo{
		FilePath: opts.Output,
		Duration: src.Duration,
		Width:    1280,
		Height:   720,
		FPS:      30,
		HasVideo: true,
		HasAudio: src.HasAudio,
	}
	return nil
}

func (f *fakeTranscoder) StillToVideo(_ context.Context, _, output string, opts ffmpeg.StillOptions) error {
	f.stills = append(f.stills, opts)
	f.infos[output] = &ffmpeg.VideoInfo{
		FilePath: output,
		Duration: opts.Duration,
		Width:    opts.Width,
		Height:   opts.Height,
		FPS:      opts.FPS,
		HasVideo: true,
	}
	return nil
}

func testLoader(ff Transcoder) *Loader {
	return NewLoader(zerolog.Nop(), ff, LoaderOptions{
		Width:         1280,
		Height:        720,
		FPS:           30,
		StillDuration: 3 * time.Second,
	})
}

func TestLoadVideoNormalizes(t *testing.T) {
	ff := newFakeTranscoder()
	ff.infos["in.mp4"] = &ffmpeg.VideoInfo{
		FilePath: "in.mp4",
		Duration: 5 * time.Second,
		Width:    1920,
		Height:   1080,
		FPS:      60,
		HasVideo: true,
		HasAudio: true,
	}

	clip, err := testLoader(ff).Load(context.Background(), media.Reference{Kind: media.Video, Locator: "in.mp4"}, "/scratch")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(ff.renders) != 1 {
		t.Fatalf("renders = %d, want 1", len(ff.renders))
	}
	r := ff.renders[0]
	if r.Input != "in.mp4" {
		t.Errorf("render input = %q", r.Input)
	}
	if !strings.HasPrefix(r.Output, "/scratch/") {
		t.Errorf("render output %q not in scratch dir", r.Output)
	}
	joined := strings.Join(r.Filters, ",")
	if !strings.Contains(joined, "scale=1280:720") || !strings.Contains(joined, "setsar=1") {
		t.Errorf("normalization filters = %q", joined)
	}

	if clip.ID == "" {
		t.Error("clip ID empty")
	}
	if clip.Duration != 5*time.Second {
		t.Errorf("duration = %v", clip.Duration)
	}
	if clip.Width != 1280 || clip.Height != 720 {
		t.Errorf("size = %dx%d", clip.Width, clip.Height)
	}
	if !clip.HasAudio {
		t.Error("audio flag lost in normalization")
	}
	if clip.Still {
		t.Error("video clip marked as still")
	}
}

func TestLoadImageBecomesStill(t *testing.T) {
	ff := newFakeTranscoder()

	clip, err := testLoader(ff).Load(context.Background(), media.Reference{Kind: media.Image, Locator: "pic.png"}, "/scratch")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(ff.stills) != 1 {
		t.Fatalf("stills = %d, want 1", len(ff.stills))
	}
	if ff.stills[0].Duration != 3*time.Second {
		t.Errorf("still duration = %v", ff.stills[0].Duration)
	}
	if !clip.Still {
		t.Error("image clip not marked still")
	}
	if clip.HasAudio {
		t.Error("still clip should be silent")
	}
}

func TestLoadAudioProbesInPlace(t *testing.T) {
	ff := newFakeTranscoder()
	ff.infos["song.mp3"] = &ffmpeg.VideoInfo{
		FilePath: "song.mp3",
		Duration: 30 * time.Second,
		HasAudio: true,
	}

	clip, err := testLoader(ff).Load(context.Background(), media.Reference{Kind: media.Audio, Locator: "song.mp3"}, "/scratch")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ff.renders) != 0 {
		t.Error("audio load should not re-encode")
	}
	if clip.Path != "song.mp3" {
		t.Errorf("audio path = %q, want original", clip.Path)
	}
	if !clip.AudioOnly() {
		t.Error("AudioOnly() should be true")
	}
}

func TestLoadRejectsBrokenMedia(t *testing.T) {
	ff := newFakeTranscoder()
	ff.infos["empty.mp4"] = &ffmpeg.VideoInfo{FilePath: "empty.mp4", HasVideo: true}
	ff.infos["noaudio.mp3"] = &ffmpeg.VideoInfo{FilePath: "noaudio.mp3", Duration: time.Second}

	loader := testLoader(ff)
	ctx := context.Background()

	if _, err := loader.Load(ctx, media.Reference{Kind: media.Video, Locator: "missing.mp4"}, "/s"); err == nil {
		t.Error("unreadable file should error")
	}
	if _, err := loader.Load(ctx, media.Reference{Kind: media.Video, Locator: "empty.mp4"}, "/s"); err == nil {
		t.Error("zero duration should error")
	}
	if _, err := loader.Load(ctx, media.Reference{Kind: media.Audio, Locator: "noaudio.mp3"}, "/s"); err == nil {
		t.Error("audio ref without audio stream should error")
	}
	if _, err := loader.Load(ctx, media.Reference{Kind: media.RemoteURL, Locator: "http://x/y.mp4"}, "/s"); err == nil {
		t.Error("unfetched remote ref should error")
	}
}
