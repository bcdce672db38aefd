package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MoodyStars/FreePoop/internal/ffmpeg"
)

// fakeEncoder scripts per-call results so the strategy ladder can be
// exercised without ffmpeg.
type fakeEncoder struct {
	concatErrs    []error
	concatCalls   []ffmpeg.ConcatOptions
	muxCalls      []string
	muxErr        error
	padded        []string
	padErr        error
	extracted     []string
	extractErr    error
	framesPer     int
	framesErr     error
	assembleAudio []string
	assembleErr   error
	onConcat      func()
}

func (f *fakeEncoder) Concat(_ context.Context, opts ffmpeg.ConcatOptions) error {
	f.concatCalls = append(f.concatCalls, opts)
	if f.onConcat != nil {
		f.onConcat()
	}
	if len(f.concatErrs) == 0 {
		return nil
	}
	err := f.concatErrs[0]
	f.concatErrs = f.concatErrs[1:]
	return err
}

func (f *fakeEncoder) MuxAudio(_ context.Context, video, audio, output string, _ ffmpeg.MuxOptions) error {
	f.muxCalls = append(f.muxCalls, fmt.Sprintf("%s+%s->%s", video, audio, output))
	return f.muxErr
}

func (f *fakeEncoder) AddSilentAudio(_ context.Context, input, output string) error {
	f.padded = append(f.padded, input)
	return f.padErr
}

func (f *fakeEncoder) ExtractAudio(_ context.Context, input, output string, _ ffmpeg.AudioFormat, _ ffmpeg.ProgressFunc) error {
	f.extracted = append(f.extracted, input)
	return f.extractErr
}

func (f *fakeEncoder) ExportFrames(_ context.Context, input, pattern string, _ float64, _ ffmpeg.ProgressFunc) error {
	if f.framesErr != nil {
		return f.framesErr
	}
	for i := 1; i <= f.framesPer; i++ {
		path := fmt.Sprintf(pattern, i)
		if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeEncoder) FramesToVideo(_ context.Context, pattern, audio, output string, _ float64, _ ffmpeg.ProgressFunc) error {
	f.assembleAudio = append(f.assembleAudio, audio)
	return f.assembleErr
}

func testTimeline(n int, audio bool) *Timeline {
	tl := &Timeline{}
	for i := 0; i < n; i++ {
		tl.Parts = append(tl.Parts, Part{
			Path:     fmt.Sprintf("/scratch/step_%03d.mp4", i),
			Duration: time.Second,
			HasAudio: audio,
		})
	}
	return tl
}

func TestThirdStrategyAccepts(t *testing.T) {
	enc := &fakeEncoder{concatErrs: []error{
		errors.New("full rejected"),
		errors.New("basic rejected"),
	}}
	exp := New(zerolog.Nop(), enc)

	out := filepath.Join(t.TempDir(), "out.mp4")
	report, err := exp.Export(context.Background(), testTimeline(2, true), t.TempDir(), Options{OutputPath: out})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if len(report.Attempts) != 3 {
		t.Fatalf("attempts = %d, want exactly 3", len(report.Attempts))
	}
	if report.Attempts[0].Err == nil || report.Attempts[1].Err == nil {
		t.Error("first two attempts should record their rejection")
	}
	last := report.Attempts[2]
	if last.Err != nil {
		t.Errorf("last attempt err = %v", last.Err)
	}
	if last.Strategy != "copy" || report.Strategy != "copy" {
		t.Errorf("succeeding strategy = %q / %q, want copy", last.Strategy, report.Strategy)
	}
	if report.OutputPath != out {
		t.Errorf("output = %q", report.OutputPath)
	}
}

func TestExhaustedAfterAllStrategies(t *testing.T) {
	enc := &fakeEncoder{
		concatErrs:  []error{errors.New("no"), errors.New("no"), errors.New("no")},
		framesErr:   errors.New("no frames either"),
		assembleErr: errors.New("unused"),
	}
	exp := New(zerolog.Nop(), enc)

	report, err := exp.Export(context.Background(), testTimeline(1, true), t.TempDir(), Options{
		OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if len(report.Attempts) != 4 {
		t.Errorf("attempts = %d, want the full ladder", len(report.Attempts))
	}
	for _, a := range report.Attempts {
		if a.Err == nil {
			t.Errorf("attempt %s recorded no error", a.Strategy)
		}
	}
}

func TestCancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enc := &fakeEncoder{}
	exp := New(zerolog.Nop(), enc)
	report, err := exp.Export(ctx, testTimeline(1, true), t.TempDir(), Options{OutputPath: "/tmp/never.mp4"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(report.Attempts) != 0 {
		t.Errorf("attempts = %d, want none", len(report.Attempts))
	}
	if len(enc.concatCalls) != 0 {
		t.Error("encoder should never run under a dead context")
	}
}

func TestCancelMidAttemptStopsLadder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	enc := &fakeEncoder{
		concatErrs: []error{errors.New("killed")},
		onConcat:   cancel,
	}
	exp := New(zerolog.Nop(), enc)

	report, err := exp.Export(ctx, testTimeline(1, true), t.TempDir(), Options{OutputPath: "/tmp/never.mp4"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(report.Attempts) != 1 {
		t.Errorf("attempts = %d, want 1: the kill must not read as a strategy rejection", len(report.Attempts))
	}
}

func TestDrivingAudioMuxedOverConcat(t *testing.T) {
	enc := &fakeEncoder{}
	exp := New(zerolog.Nop(), enc)

	tl := testTimeline(2, false)
	tl.AudioPath = "/media/song.mp3"
	out := filepath.Join(t.TempDir(), "out.mp4")
	scratch := t.TempDir()

	report, err := exp.Export(context.Background(), tl, scratch, Options{OutputPath: out})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if report.Strategy != "full" {
		t.Errorf("strategy = %q", report.Strategy)
	}

	if len(enc.concatCalls) != 1 {
		t.Fatalf("concat calls = %d", len(enc.concatCalls))
	}
	intermediate := enc.concatCalls[0].Output
	if intermediate == out {
		t.Error("with a driving track the concat must land on an intermediate")
	}
	want := fmt.Sprintf("%s+%s->%s", intermediate, "/media/song.mp3", out)
	if len(enc.muxCalls) != 1 || enc.muxCalls[0] != want {
		t.Errorf("mux calls = %v, want %q", enc.muxCalls, want)
	}
}

func TestMixedAudioPartsGetPadded(t *testing.T) {
	enc := &fakeEncoder{}
	exp := New(zerolog.Nop(), enc)

	tl := testTimeline(3, true)
	tl.Parts[1].HasAudio = false
	scratch := t.TempDir()

	_, err := exp.Export(context.Background(), tl, scratch, Options{
		OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if len(enc.padded) != 1 || enc.padded[0] != tl.Parts[1].Path {
		t.Errorf("padded = %v, want just the silent part", enc.padded)
	}
	got := enc.concatCalls[0].Inputs[1]
	if got != filepath.Join(scratch, "pad_001.mp4") {
		t.Errorf("concat input = %q, want the padded file", got)
	}
	// The original timeline is not mutated.
	if tl.Parts[1].HasAudio {
		t.Error("caller's timeline changed")
	}
}

func TestAllSilentTimelineUntouched(t *testing.T) {
	enc := &fakeEncoder{}
	exp := New(zerolog.Nop(), enc)

	_, err := exp.Export(context.Background(), testTimeline(2, false), t.TempDir(), Options{
		OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(enc.padded) != 0 {
		t.Errorf("padded = %v, want none", enc.padded)
	}
}

func TestFramesStrategyRenumbersSequence(t *testing.T) {
	enc := &fakeEncoder{
		concatErrs: []error{errors.New("no"), errors.New("no"), errors.New("no")},
		framesPer:  3,
	}
	exp := New(zerolog.Nop(), enc)

	scratch := t.TempDir()
	report, err := exp.Export(context.Background(), testTimeline(2, true), scratch, Options{
		OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
		FPS:        30,
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if report.Strategy != "frames" {
		t.Fatalf("strategy = %q, want frames", report.Strategy)
	}
	if len(report.Attempts) != 4 {
		t.Errorf("attempts = %d", len(report.Attempts))
	}

	// Voiced parts ride along as a separate track: one WAV per part,
	// joined by a stream-copy concat, handed to the rebuild.
	if len(enc.extracted) != 2 || enc.extracted[0] != "/scratch/step_000.mp4" {
		t.Fatalf("extracted = %v, want both part paths", enc.extracted)
	}
	joined := filepath.Join(scratch, "parts_audio.wav")
	audioJoin := enc.concatCalls[len(enc.concatCalls)-1]
	if audioJoin.Output != joined || audioJoin.ReEncode {
		t.Errorf("audio join = %+v, want plain concat into %q", audioJoin, joined)
	}
	if len(enc.assembleAudio) != 1 || enc.assembleAudio[0] != joined {
		t.Errorf("assemble audio = %v, want the joined track", enc.assembleAudio)
	}
}

func TestFramesStrategySinglePartSkipsJoin(t *testing.T) {
	enc := &fakeEncoder{
		concatErrs: []error{errors.New("no"), errors.New("no"), errors.New("no")},
		framesPer:  2,
	}
	exp := New(zerolog.Nop(), enc)

	scratch := t.TempDir()
	_, err := exp.Export(context.Background(), testTimeline(1, true), scratch, Options{
		OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(enc.concatCalls) != 3 {
		t.Errorf("concat calls = %d, a lone WAV needs no join", len(enc.concatCalls))
	}
	want := filepath.Join(scratch, "audio_000.wav")
	if len(enc.assembleAudio) != 1 || enc.assembleAudio[0] != want {
		t.Errorf("assemble audio = %v, want %q", enc.assembleAudio, want)
	}
}

func TestFramesStrategyAudioExtractFailureExhausts(t *testing.T) {
	enc := &fakeEncoder{
		concatErrs: []error{errors.New("no"), errors.New("no"), errors.New("no")},
		framesPer:  1,
		extractErr: errors.New("no pcm"),
	}
	exp := New(zerolog.Nop(), enc)

	_, err := exp.Export(context.Background(), testTimeline(1, true), t.TempDir(), Options{
		OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if len(enc.assembleAudio) != 0 {
		t.Error("rebuild must not run after a failed audio extract")
	}
}

func TestFramesStrategySilentPartsStaySilent(t *testing.T) {
	enc := &fakeEncoder{
		concatErrs: []error{errors.New("no"), errors.New("no"), errors.New("no")},
		framesPer:  2,
	}
	exp := New(zerolog.Nop(), enc)

	_, err := exp.Export(context.Background(), testTimeline(2, false), t.TempDir(), Options{
		OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(enc.extracted) != 0 {
		t.Errorf("extracted = %v, want none", enc.extracted)
	}
	if len(enc.assembleAudio) != 1 || enc.assembleAudio[0] != "" {
		t.Errorf("assemble audio = %v, want one empty entry", enc.assembleAudio)
	}
}

func TestTimelineDuration(t *testing.T) {
	tl := testTimeline(3, false)
	tl.Parts[2].Duration = 2 * time.Second
	if got := tl.Duration(); got != 4*time.Second {
		t.Errorf("Duration = %v, want 4s", got)
	}
}

func TestExportValidation(t *testing.T) {
	exp := New(zerolog.Nop(), &fakeEncoder{})
	if _, err := exp.Export(context.Background(), &Timeline{}, t.TempDir(), Options{OutputPath: "x.mp4"}); err == nil {
		t.Error("empty timeline should be rejected")
	}
	if _, err := exp.Export(context.Background(), testTimeline(1, true), t.TempDir(), Options{}); err == nil {
		t.Error("missing output path should be rejected")
	}
}
