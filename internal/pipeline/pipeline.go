package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MoodyStars/FreePoop/internal/clips"
	"github.com/MoodyStars/FreePoop/internal/compose"
	"github.com/MoodyStars/FreePoop/internal/config"
	"github.com/MoodyStars/FreePoop/internal/effects"
	"github.com/MoodyStars/FreePoop/internal/export"
	"github.com/MoodyStars/FreePoop/internal/fetch"
	"github.com/MoodyStars/FreePoop/internal/ffmpeg"
	"github.com/MoodyStars/FreePoop/internal/logging"
	"github.com/MoodyStars/FreePoop/internal/media"
	"github.com/MoodyStars/FreePoop/internal/progress"
	"github.com/MoodyStars/FreePoop/pkg/util"
)

// ErrRenderInProgress is returned when Render is called while another
// render holds the worker.
var ErrRenderInProgress = errors.New("a render is already in progress")

type sourceLoader interface {
	Load(ctx context.Context, ref media.Reference, scratchDir string) (*clips.Clip, error)
}

type planComposer interface {
	Compose(src compose.Sources, opts compose.Options) (*compose.RenderPlan, error)
}

type timelineSequencer interface {
	Run(ctx context.Context, plan *compose.RenderPlan, scratch string, rep progress.Reporter) (*export.Timeline, []LogEntry, error)
}

type timelineExporter interface {
	Export(ctx context.Context, tl *export.Timeline, scratch string, opts export.Options) (*export.Report, error)
}

// Renderer runs the whole pipeline: fetch remote sources, load and
// normalize clips, compose a plan, sequence it, export the timeline.
// It admits one render at a time.
type Renderer struct {
	logger    zerolog.Logger
	cfg       *config.Config
	fetcher   fetch.Fetcher
	loader    sourceLoader
	composer  planComposer
	sequencer timelineSequencer
	exporter  timelineExporter
	busy      atomic.Bool
}

// New wires a renderer from configuration. The encoder toolchain is a
// fatal precondition: a missing ffmpeg fails here, once, not mid-render.
func New(logger zerolog.Logger, cfg *config.Config) (*Renderer, error) {
	ff, err := ffmpeg.New(logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
	})
	if err != nil {
		return nil, fmt.Errorf("encoder toolchain: %w", err)
	}

	registry := effects.NewRegistry()
	applier := effects.NewApplier(logger, ff, cfg.FFmpeg.CRF, cfg.FFmpeg.Preset)
	maxSegment := time.Duration(cfg.Render.MaxSegmentSeconds * float64(time.Second))
	fetchTimeout := time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second

	return &Renderer{
		logger:  logger.With().Str("component", "pipeline").Logger(),
		cfg:     cfg,
		fetcher: fetch.NewHTTPFetcher(logger, fetchTimeout, cfg.Fetch.UserAgent),
		loader: clips.NewLoader(logger, ff, clips.LoaderOptions{
			Width:         cfg.Render.Width,
			Height:        cfg.Render.Height,
			FPS:           float64(cfg.Render.FPS),
			StillDuration: time.Duration(cfg.Render.StillSeconds * float64(time.Second)),
			CRF:           cfg.FFmpeg.CRF,
			Preset:        cfg.FFmpeg.Preset,
		}),
		composer:  compose.New(logger, registry, maxSegment),
		sequencer: NewSequencer(logger, registry, applier, ff, cfg.FFmpeg.CRF),
		exporter:  export.New(logger, ff),
	}, nil
}

// SetFetcher swaps the remote resolver, for callers that plug in a
// richer one than the direct-link default.
func (r *Renderer) SetFetcher(f fetch.Fetcher) {
	r.fetcher = f
}

// Busy reports whether a render currently holds the worker.
func (r *Renderer) Busy() bool {
	return r.busy.Load()
}

// Render executes one request. Cancellation through ctx ends the
// render at the next step boundary and comes back as StatusCancelled
// with a nil error; hard failures return the error alongside a result
// carrying whatever log accumulated. The per-render scratch directory
// is removed on every exit path.
func (r *Renderer) Render(ctx context.Context, req Request) (*Result, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrRenderInProgress
	}
	defer r.busy.Store(false)

	start := time.Now()
	rep := req.Progress
	if rep == nil {
		rep = progress.Discard
	}

	result := &Result{Status: StatusFailure, Seed: req.Seed}

	// finish stamps the elapsed time and folds a dead context into the
	// cancelled status, whatever error the stage reported.
	finish := func(err error) (*Result, error) {
		result.Elapsed = time.Since(start)
		if ctx.Err() != nil {
			result.Status = StatusCancelled
			rep.Report(progress.Event{Stage: progress.StageDone, Message: "cancelled", Percent: progress.Indeterminate})
			return result, nil
		}
		return result, err
	}

	if req.OutputPath == "" {
		return finish(fmt.Errorf("output path is required"))
	}
	if req.Snapshot == nil || req.Snapshot.Total() == 0 {
		return finish(fmt.Errorf("%w: nothing registered", compose.ErrInsufficientSources))
	}

	renderID := uuid.New().String()[:8]
	logger := logging.WithRender(r.logger, renderID)

	scratch := filepath.Join(r.workDir(), "render_"+renderID)
	if err := util.EnsureDir(scratch); err != nil {
		return finish(fmt.Errorf("scratch dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logger.Warn().Err(err).Str("dir", scratch).Msg("scratch cleanup failed")
		}
	}()

	logger.Info().
		Str("mode", string(req.Mode)).
		Str("output", req.OutputPath).
		Int("sources", req.Snapshot.Total()).
		Msg("starting render")

	groups, fetchLog, err := r.resolveSources(ctx, req.Snapshot, scratch, rep)
	result.Log = append(result.Log, fetchLog...)
	if err != nil {
		return finish(err)
	}

	src, loadLog, err := r.loadSources(ctx, groups, scratch, rep)
	result.Log = append(result.Log, loadLog...)
	if err != nil {
		return finish(err)
	}

	rep.Report(progress.Event{Stage: progress.StageCompose, Message: "composing plan", Percent: progress.Indeterminate})
	plan, err := r.composer.Compose(src, compose.Options{
		Mode:         req.Mode,
		Year:         req.StyleYear,
		Seed:         req.Seed,
		Effects:      req.Effects,
		EraOverrides: r.cfg.Eras,
	})
	if err != nil {
		return finish(fmt.Errorf("compose: %w", err))
	}
	result.Seed = plan.Seed
	result.StepsTotal = len(plan.Steps)

	tl, seqLog, err := r.sequencer.Run(ctx, plan, scratch, rep)
	result.Log = append(result.Log, seqLog...)
	if tl != nil {
		result.StepsCompleted = len(tl.Parts)
	}
	if err != nil {
		return finish(fmt.Errorf("sequence: %w", err))
	}

	rep.Report(progress.Event{Stage: progress.StageExport, Message: "exporting timeline", Percent: progress.Indeterminate})
	report, err := r.exporter.Export(ctx, tl, scratch, export.Options{
		OutputPath: req.OutputPath,
		FPS:        float64(r.cfg.Render.FPS),
		CRF:        r.cfg.FFmpeg.CRF,
		Preset:     r.cfg.FFmpeg.Preset,
	})
	if report != nil {
		result.Log = append(result.Log, attemptEntries(report)...)
	}
	if err != nil {
		return finish(fmt.Errorf("export: %w", err))
	}

	result.OutputPath = report.OutputPath
	result.Strategy = report.Strategy
	result.Elapsed = time.Since(start)
	if result.Degradations() > 0 {
		result.Status = StatusPartialFailure
	} else {
		result.Status = StatusSuccess
	}

	rep.Report(progress.Event{Stage: progress.StageDone, Message: "render complete", Percent: 100})
	logger.Info().
		Str("status", string(result.Status)).
		Str("strategy", result.Strategy).
		Int("steps", result.StepsCompleted).
		Dur("elapsed", result.Elapsed).
		Msg("render finished")
	return result, nil
}

// sourceGroups are references bucketed for composition, local by the
// time loading starts.
type sourceGroups struct {
	visuals     []media.Reference
	audio       []media.Reference
	transitions []media.Reference
}

// resolveSources buckets the snapshot and downloads remote references,
// classifying each fetched file by extension. A failed download drops
// that one source with a degradation entry; the render carries on with
// whatever resolved.
func (r *Renderer) resolveSources(ctx context.Context, snap *media.Snapshot, scratch string, rep progress.Reporter) (sourceGroups, []LogEntry, error) {
	g := sourceGroups{
		visuals:     snap.Visuals(),
		audio:       snap.Refs(media.Audio),
		transitions: snap.Refs(media.Transition),
	}

	remotes := snap.Refs(media.RemoteURL)
	var log []LogEntry
	for i, ref := range remotes {
		if err := ctx.Err(); err != nil {
			return g, log, err
		}
		rep.Report(progress.Event{
			Stage:   progress.StageFetch,
			Message: ref.Locator,
			Percent: float64(i) / float64(len(remotes)) * 100,
		})

		local, err := r.fetcher.Fetch(ctx, ref.Locator, scratch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return g, log, ctxErr
			}
			log = append(log, LogEntry{
				Time:     time.Now(),
				Stage:    progress.StageFetch,
				Message:  fmt.Sprintf("skipping %s", ref.Locator),
				Degraded: true,
				Err:      err.Error(),
			})
			continue
		}
		log = append(log, LogEntry{
			Time:    time.Now(),
			Stage:   progress.StageFetch,
			Message: fmt.Sprintf("downloaded %s", ref.Locator),
		})

		resolved := media.Reference{Kind: media.KindForPath(local), Locator: local}
		if resolved.IsVisual() {
			g.visuals = append(g.visuals, resolved)
		} else {
			g.audio = append(g.audio, resolved)
		}
	}
	return g, log, nil
}

// loadSources normalizes every reference into a render-ready clip.
// Unreadable sources are skipped the same way failed downloads are;
// composition decides later whether enough survived.
func (r *Renderer) loadSources(ctx context.Context, g sourceGroups, scratch string, rep progress.Reporter) (compose.Sources, []LogEntry, error) {
	var src compose.Sources
	var log []LogEntry
	total := len(g.visuals) + len(g.audio) + len(g.transitions)
	done := 0

	load := func(refs []media.Reference, dst *[]*clips.Clip) error {
		for _, ref := range refs {
			if err := ctx.Err(); err != nil {
				return err
			}
			clip, err := r.loader.Load(ctx, ref, scratch)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log = append(log, LogEntry{
					Time:     time.Now(),
					Stage:    progress.StageLoad,
					Message:  fmt.Sprintf("skipping %s", ref.Locator),
					Degraded: true,
					Err:      err.Error(),
				})
				done++
				continue
			}
			*dst = append(*dst, clip)
			done++
			rep.Report(progress.Event{
				Stage:   progress.StageLoad,
				Message: ref.Locator,
				Percent: float64(done) / float64(total) * 100,
			})
		}
		return nil
	}

	if err := load(g.visuals, &src.Visuals); err != nil {
		return src, log, err
	}
	if err := load(g.audio, &src.Audio); err != nil {
		return src, log, err
	}
	if err := load(g.transitions, &src.Transitions); err != nil {
		return src, log, err
	}
	return src, log, nil
}

func (r *Renderer) workDir() string {
	if r.cfg.WorkDir != "" {
		return r.cfg.WorkDir
	}
	return filepath.Join(os.TempDir(), "freepoop")
}

func attemptEntries(report *export.Report) []LogEntry {
	out := make([]LogEntry, 0, len(report.Attempts))
	for i, a := range report.Attempts {
		entry := LogEntry{Time: time.Now(), Stage: progress.StageExport}
		if a.Err != nil {
			entry.Message = fmt.Sprintf("attempt %d: strategy %s failed", i+1, a.Strategy)
			entry.Err = a.Err.Error()
		} else {
			entry.Message = fmt.Sprintf("attempt %d: strategy %s succeeded", i+1, a.Strategy)
		}
		out = append(out, entry)
	}
	return out
}
