package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/MoodyStars/FreePoop/internal/clips"
	"github.com/MoodyStars/FreePoop/internal/compose"
	"github.com/MoodyStars/FreePoop/internal/effects"
	"github.com/MoodyStars/FreePoop/internal/export"
	"github.com/MoodyStars/FreePoop/internal/ffmpeg"
	"github.com/MoodyStars/FreePoop/internal/progress"
)

// clipCutter is the slice of the ffmpeg executor the sequencer uses to
// cut plan windows.
type clipCutter interface {
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
}

// Sequencer walks a render plan step by step, materializing each
// step's effect chain into a part file. A step whose chain fails is
// not fatal: the unmodified clip stands in and the log records the
// degradation, once. Cancellation is honored between steps.
type Sequencer struct {
	logger   zerolog.Logger
	registry *effects.Registry
	applier  *effects.Applier
	cutter   clipCutter
	crf      int
}

// NewSequencer creates a sequencer over an effect registry and the
// applier that materializes its recipes.
func NewSequencer(logger zerolog.Logger, registry *effects.Registry, applier *effects.Applier, cutter clipCutter, crf int) *Sequencer {
	return &Sequencer{
		logger:   logger.With().Str("component", "sequencer").Logger(),
		registry: registry,
		applier:  applier,
		cutter:   cutter,
		crf:      crf,
	}
}

// Run executes the plan, writing part files into scratch. It returns
// the timeline built so far even on cancellation, so the caller can
// report how many steps completed.
func (s *Sequencer) Run(ctx context.Context, plan *compose.RenderPlan, scratch string, rep progress.Reporter) (*export.Timeline, []LogEntry, error) {
	if rep == nil {
		rep = progress.Discard
	}

	tl := &export.Timeline{}
	if plan.DrivingAudio != nil {
		tl.AudioPath = plan.DrivingAudio.Path
	}

	var log []LogEntry
	total := len(plan.Steps)
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return tl, log, err
		}

		cut, err := s.cutWindow(ctx, step, scratch)
		if err != nil {
			if ctx.Err() != nil {
				return tl, log, ctx.Err()
			}
			s.logger.Warn().Err(err).Int("step", step.Ordinal).Msg("window cut failed, substituting whole source")
			log = append(log, stepEntry(step, "window cut failed, substituted whole source", true, err))
			tl.Parts = append(tl.Parts, partOf(step.Source))
			reportStep(rep, i+1, total)
			continue
		}

		final, err := s.applyChain(ctx, step, cut, scratch)
		if err != nil {
			if ctx.Err() != nil {
				return tl, log, ctx.Err()
			}
			s.logger.Warn().Err(err).Int("step", step.Ordinal).Msg("effect chain failed, substituting unmodified clip")
			log = append(log, stepEntry(step, "effect chain failed, substituted unmodified clip", true, err))
			final = cut
		} else {
			log = append(log, stepEntry(step, stepMessage(step), false, nil))
		}

		tl.Parts = append(tl.Parts, partOf(final))
		reportStep(rep, i+1, total)
	}

	s.logger.Info().
		Int("parts", len(tl.Parts)).
		Dur("duration", tl.Duration()).
		Msg("timeline sequenced")
	return tl, log, nil
}

// cutWindow extracts the step's window into a part file. A window
// spanning the whole source skips the cut and reuses the normalized
// file, which is what transition steps always do.
func (s *Sequencer) cutWindow(ctx context.Context, step compose.PlanStep, scratch string) (*clips.Clip, error) {
	if step.Window.Start == 0 && step.Window.End >= step.Source.Duration {
		return step.Source, nil
	}

	out := filepath.Join(scratch, fmt.Sprintf("step_%03d.mp4", step.Ordinal))
	err := s.cutter.ExtractClip(ctx, step.Source.Path, ffmpeg.ClipOptions{
		Start:  step.Window.Start,
		End:    step.Window.End,
		Output: out,
		CRF:    s.crf,
	})
	if err != nil {
		return nil, fmt.Errorf("cut %s: %w", step.Source.ID, err)
	}

	cut := step.Source.WithPath(out)
	cut.Duration = step.Window.Duration()
	return cut, nil
}

// applyChain runs the step's effects in order, each materialized from
// the previous one's output.
func (s *Sequencer) applyChain(ctx context.Context, step compose.PlanStep, cut *clips.Clip, scratch string) (*clips.Clip, error) {
	working := cut
	for i, spec := range step.Effects {
		effect, ok := s.registry.Get(spec.Name)
		if !ok {
			return nil, fmt.Errorf("unknown effect %q", spec.Name)
		}

		recipe, err := effect.Apply(working, spec.Params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Name, err)
		}

		out := filepath.Join(scratch, fmt.Sprintf("step_%03d_fx%02d.mp4", step.Ordinal, i))
		next, err := s.applier.Materialize(ctx, working, recipe, out)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Name, err)
		}
		working = next
	}
	return working, nil
}

func partOf(clip *clips.Clip) export.Part {
	return export.Part{
		Path:     clip.Path,
		Duration: clip.Duration,
		HasAudio: clip.HasAudio,
	}
}

func stepMessage(step compose.PlanStep) string {
	if step.Transition {
		return "transition placed"
	}
	if len(step.Effects) == 0 {
		return "step rendered clean"
	}
	names := make([]string, len(step.Effects))
	for i, spec := range step.Effects {
		names[i] = spec.Name
	}
	return fmt.Sprintf("step rendered with %v", names)
}

func stepEntry(step compose.PlanStep, msg string, degraded bool, err error) LogEntry {
	entry := LogEntry{
		Time:     time.Now(),
		Stage:    progress.StageSequence,
		Step:     step.Ordinal + 1,
		Message:  msg,
		Degraded: degraded,
	}
	if err != nil {
		entry.Err = err.Error()
	}
	return entry
}

func reportStep(rep progress.Reporter, done, total int) {
	rep.Report(progress.Event{
		Stage:   progress.StageSequence,
		Message: fmt.Sprintf("step %d/%d", done, total),
		Percent: float64(done) / float64(total) * 100,
	})
}
