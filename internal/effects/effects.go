// Package effects implements the transformation library. Effects are
// pure: they turn a clip plus resolved parameters into a Recipe, a
// declarative description of source segments to splice and filters to
// apply. Randomness enters only through the seed parameter, so a
// resolved effect always produces the same recipe for the same clip.
package effects

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/MoodyStars/FreePoop/internal/clips"
)

// ErrUnsupportedMedia reports an effect that cannot run at all on the
// clip's track layout, like a picture effect on an audio-only clip.
// Effects that merely find one track missing pass the clip through
// instead of returning this.
var ErrUnsupportedMedia = errors.New("unsupported media kind for effect")

// Params holds resolved numeric parameters for one effect instance.
type Params map[string]float64

// Value returns a parameter or its default.
func (p Params) Value(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Int returns an integer parameter or its default.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		return int(v)
	}
	return def
}

// Seed returns the effect seed, 0 when absent. Seeds are rolled as
// 31-bit values so they survive the float64 round trip exactly.
func (p Params) Seed() int64 {
	return int64(p.Value("seed", 0))
}

// Spec names one requested effect. Disabled specs stay in the set but
// are never composed into plans.
type Spec struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	Params  Params `yaml:"params,omitempty"`
}

// Set is an ordered effect selection.
type Set []Spec

// EnabledNames returns the enabled effect names in order.
func (s Set) EnabledNames() []string {
	var out []string
	for _, spec := range s {
		if spec.Enabled {
			out = append(out, spec.Name)
		}
	}
	return out
}

// Segment is a time range within a source clip.
type Segment struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the segment length.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// ClampSegment fits a segment into [0, limit], never failing on an
// out-of-range request.
func ClampSegment(s Segment, limit time.Duration) Segment {
	if s.Start < 0 {
		s.Start = 0
	}
	if s.End > limit {
		s.End = limit
	}
	if s.End < s.Start {
		s.End = s.Start
	}
	return s
}

// Recipe is the declarative output of an effect: splice these source
// segments (empty means the whole clip), then run these filter
// chains. Duration predicts the output length for planning.
type Recipe struct {
	Segments     []Segment
	VideoFilters []string
	AudioFilters []string
	Duration     time.Duration
}

// Identity returns a recipe that leaves the clip untouched.
func Identity(clip *clips.Clip) *Recipe {
	return &Recipe{Duration: clip.Duration}
}

// IsIdentity reports whether materializing the recipe would change
// nothing.
func (r *Recipe) IsIdentity() bool {
	return len(r.Segments) == 0 && len(r.VideoFilters) == 0 && len(r.AudioFilters) == 0
}

// Effect is one transformation in the library.
type Effect interface {
	Name() string
	// Roll resolves randomized parameters. intensity in [0,1] scales
	// how hard the effect hits; the returned params feed Apply.
	Roll(rng *rand.Rand, intensity float64) Params
	// Apply computes the recipe for a clip. Implementations must be
	// deterministic for identical clip and params.
	Apply(clip *clips.Clip, params Params) (*Recipe, error)
}

// Registry holds the available effects in a stable order.
type Registry struct {
	effects map[string]Effect
	order   []string
}

// NewRegistry creates a registry with every built-in effect.
func NewRegistry() *Registry {
	r := &Registry{effects: make(map[string]Effect)}
	r.Register(Stutter{})
	r.Register(Reverse{})
	r.Register(Scramble{})
	r.Register(ZoomPunch{})
	r.Register(Gain{})
	r.Register(Speed{})
	r.Register(Mirror{})
	r.Register(Flash{})
	return r
}

// Register adds an effect, replacing any previous one of the same name.
func (r *Registry) Register(e Effect) {
	if _, exists := r.effects[e.Name()]; !exists {
		r.order = append(r.order, e.Name())
	}
	r.effects[e.Name()] = e
}

// Get retrieves an effect by name.
func (r *Registry) Get(name string) (Effect, bool) {
	e, ok := r.effects[name]
	return e, ok
}

// Names lists registered effects in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// AllEnabled builds a set with every registered effect enabled. This
// is the working set when a request names no effects at all.
func (r *Registry) AllEnabled() Set {
	var set Set
	for _, name := range r.order {
		set = append(set, Spec{Name: name, Enabled: true})
	}
	return set
}

// Validate checks a set against the registry. Performed once, at
// composition time.
func (r *Registry) Validate(set Set) error {
	for _, spec := range set {
		if _, ok := r.effects[spec.Name]; !ok {
			return fmt.Errorf("unknown effect %q", spec.Name)
		}
	}
	return nil
}

// rollSeed draws a 31-bit effect seed.
func rollSeed(rng *rand.Rand) float64 {
	return float64(rng.Int31())
}
