// Package compose turns loaded sources into a render plan. All
// randomness is resolved here, up front, from a single seeded stream:
// the sequencer and exporter downstream execute the plan verbatim, so
// a fixed seed reproduces the exact same edit.
package compose

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MoodyStars/FreePoop/internal/clips"
	"github.com/MoodyStars/FreePoop/internal/config"
	"github.com/MoodyStars/FreePoop/internal/effects"
	"github.com/MoodyStars/FreePoop/internal/media"
)

// ErrInsufficientSources reports a mode that cannot run on the sources
// it was given. Composition aborts, nothing is rendered.
var ErrInsufficientSources = errors.New("insufficient sources for mode")

// Mode selects the composition strategy.
type Mode string

const (
	ModeDeluxe     Mode = "deluxe"
	ModeTennis     Mode = "tennis"
	ModeMusicVideo Mode = "musicvideo"
)

// ParseMode resolves a mode name from user input.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDeluxe:
		return ModeDeluxe, nil
	case ModeTennis:
		return ModeTennis, nil
	case ModeMusicVideo:
		return ModeMusicVideo, nil
	}
	return "", fmt.Errorf("unknown mode: %q", s)
}

// tennisRallies is how many times each source gets the ball.
const tennisRallies = 3

// PlanStep is one edit in the plan: take Window out of Source, run
// the resolved effect chain over it.
type PlanStep struct {
	Source     *clips.Clip
	Window     effects.Segment
	Effects    []effects.Spec
	Ordinal    int
	Transition bool
}

// RenderPlan is the immutable output of composition.
type RenderPlan struct {
	Mode         Mode
	Era          EraTuning
	Seed         int64
	Steps        []PlanStep
	DrivingAudio *clips.Clip
}

// Sources are loaded clips grouped for composition, in registration
// order.
type Sources struct {
	Visuals     []*clips.Clip
	Audio       []*clips.Clip
	Transitions []*clips.Clip
}

// Options configure one composition.
type Options struct {
	Mode Mode
	Year int
	Seed int64
	// Effects is the requested effect set; empty means every
	// registered effect.
	Effects      effects.Set
	EraOverrides map[string]config.EraOverride
}

// Composer builds render plans.
type Composer struct {
	logger     zerolog.Logger
	registry   *effects.Registry
	maxSegment time.Duration
}

// New creates a composer over an effect registry.
func New(logger zerolog.Logger, registry *effects.Registry, maxSegment time.Duration) *Composer {
	if maxSegment <= 0 {
		maxSegment = 6 * time.Second
	}
	return &Composer{
		logger:     logger.With().Str("component", "composer").Logger(),
		registry:   registry,
		maxSegment: maxSegment,
	}
}

// Compose validates the effect set once, resolves the era tuning and
// builds the plan for the requested mode. An empty effect set means
// the whole library, not none of it.
func (c *Composer) Compose(src Sources, opts Options) (*RenderPlan, error) {
	if err := c.registry.Validate(opts.Effects); err != nil {
		return nil, fmt.Errorf("invalid effect set: %w", err)
	}
	set := opts.Effects
	if len(set) == 0 {
		set = c.registry.AllEnabled()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	tuning := TuningForYear(opts.Year, opts.EraOverrides)

	plan := &RenderPlan{
		Mode: opts.Mode,
		Era:  tuning,
		Seed: seed,
	}

	var err error
	switch opts.Mode {
	case ModeDeluxe:
		err = c.composeDeluxe(plan, src, set, tuning, rng)
	case ModeTennis:
		err = c.composeTennis(plan, src, set, tuning, rng)
	case ModeMusicVideo:
		err = c.composeMusicVideo(plan, src, set, tuning, rng)
	default:
		return nil, fmt.Errorf("unknown mode: %q", opts.Mode)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("mode", string(plan.Mode)).
		Str("era", tuning.Name).
		Int64("seed", seed).
		Int("steps", len(plan.Steps)).
		Msg("plan composed")

	return plan, nil
}

// composeDeluxe shuffles the visual sources and cuts one windowed,
// effected step from each.
func (c *Composer) composeDeluxe(plan *RenderPlan, src Sources, set effects.Set, tuning EraTuning, rng *rand.Rand) error {
	if len(src.Visuals) == 0 {
		return fmt.Errorf("%w: deluxe needs at least one visual source", ErrInsufficientSources)
	}

	order := make([]*clips.Clip, len(src.Visuals))
	copy(order, src.Visuals)
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	for _, clip := range order {
		c.appendStep(plan, clip, c.rollWindow(rng, clip.Duration), set, tuning, rng)
		c.maybeTransition(plan, src.Transitions, rng)
	}
	trimTrailingTransition(plan)
	return nil
}

// composeTennis volleys between the video sources in strict rotation.
func (c *Composer) composeTennis(plan *RenderPlan, src Sources, set effects.Set, tuning EraTuning, rng *rand.Rand) error {
	var videos []*clips.Clip
	for _, clip := range src.Visuals {
		if clip.Source.Kind == media.Video {
			videos = append(videos, clip)
		}
	}
	if len(videos) < 2 {
		return fmt.Errorf("%w: tennis needs at least two video sources, have %d", ErrInsufficientSources, len(videos))
	}

	for rally := 0; rally < tennisRallies; rally++ {
		for _, clip := range videos {
			c.appendStep(plan, clip, c.rollWindow(rng, clip.Duration), set, tuning, rng)
			c.maybeTransition(plan, src.Transitions, rng)
		}
	}
	trimTrailingTransition(plan)
	return nil
}

// composeMusicVideo subdivides the driving track into fixed intervals
// and fills each with a randomly chosen visual. Cuts follow the track
// duration, not its beats.
func (c *Composer) composeMusicVideo(plan *RenderPlan, src Sources, set effects.Set, tuning EraTuning, rng *rand.Rand) error {
	if len(src.Audio) == 0 || len(src.Visuals) == 0 {
		return fmt.Errorf("%w: music video needs one audio and one visual source", ErrInsufficientSources)
	}

	plan.DrivingAudio = src.Audio[0]
	total := plan.DrivingAudio.Duration

	interval := total / 8
	if interval > c.maxSegment {
		interval = c.maxSegment
	}
	if interval < time.Second {
		interval = time.Second
	}

	for covered := time.Duration(0); covered < total; covered += interval {
		clip := src.Visuals[rng.Intn(len(src.Visuals))]
		window := c.rollWindowSized(rng, clip.Duration, interval)
		c.appendStep(plan, clip, window, set, tuning, rng)
	}
	return nil
}

// rollWindow picks a sub-segment the way the deluxe cut does: a
// quarter of the clip, clamped into [0.5s, maxSegment].
func (c *Composer) rollWindow(rng *rand.Rand, total time.Duration) effects.Segment {
	dur := total / 4
	if dur < 500*time.Millisecond {
		dur = 500 * time.Millisecond
	}
	if dur > c.maxSegment {
		dur = c.maxSegment
	}
	return c.placeWindow(rng, total, dur)
}

// rollWindowSized picks a window of a requested length.
func (c *Composer) rollWindowSized(rng *rand.Rand, total, dur time.Duration) effects.Segment {
	return c.placeWindow(rng, total, dur)
}

func (c *Composer) placeWindow(rng *rand.Rand, total, dur time.Duration) effects.Segment {
	if dur > total {
		dur = total
	}
	var start time.Duration
	if room := total - dur; room > 0 {
		start = time.Duration(rng.Int63n(int64(room) + 1))
	}
	return effects.ClampSegment(effects.Segment{Start: start, End: start + dur}, total)
}

// appendStep rolls the effect chain for one step and appends it.
func (c *Composer) appendStep(plan *RenderPlan, clip *clips.Clip, window effects.Segment, set effects.Set, tuning EraTuning, rng *rand.Rand) {
	plan.Steps = append(plan.Steps, PlanStep{
		Source:  clip,
		Window:  window,
		Effects: c.rollChain(set, tuning, rng),
		Ordinal: len(plan.Steps),
	})
}

// rollChain walks the enabled effects in set order, rolling each one
// in or out per the era's probabilities and resolving its parameters.
func (c *Composer) rollChain(set effects.Set, tuning EraTuning, rng *rand.Rand) []effects.Spec {
	var chain []effects.Spec
	for _, spec := range set {
		if !spec.Enabled {
			continue
		}
		effect, ok := c.registry.Get(spec.Name)
		if !ok {
			continue
		}

		chance := tuning.EffectChance
		if aggressiveEffects[spec.Name] {
			chance = tuning.AggressiveChance
		}
		if rng.Float64() >= chance {
			continue
		}

		params := effect.Roll(rng, tuning.Intensity)
		for k, v := range spec.Params {
			params[k] = v
		}

		chain = append(chain, effects.Spec{Name: spec.Name, Enabled: true, Params: params})
		if len(chain) >= tuning.MaxChain {
			break
		}
	}
	return chain
}

// maybeTransition splices a transition clip step after the current
// step. Transitions play whole and carry no effects.
func (c *Composer) maybeTransition(plan *RenderPlan, transitions []*clips.Clip, rng *rand.Rand) {
	if len(transitions) == 0 {
		return
	}
	clip := transitions[rng.Intn(len(transitions))]
	plan.Steps = append(plan.Steps, PlanStep{
		Source:     clip,
		Window:     effects.Segment{Start: 0, End: clip.Duration},
		Ordinal:    len(plan.Steps),
		Transition: true,
	})
}

// trimTrailingTransition drops a transition left dangling at the end
// of the plan.
func trimTrailingTransition(plan *RenderPlan) {
	for len(plan.Steps) > 0 && plan.Steps[len(plan.Steps)-1].Transition {
		plan.Steps = plan.Steps[:len(plan.Steps)-1]
	}
}
