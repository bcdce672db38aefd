package effects

import (
	"math/rand"
	"time"

	"github.com/MoodyStars/FreePoop/internal/clips"
)

const minChunk = 200 * time.Millisecond

// Stutter repeats a short sub-segment of the clip back to back, the
// classic sentence-mixing repeat.
type Stutter struct{}

func (Stutter) Name() string { return "stutter" }

func (Stutter) Roll(rng *rand.Rand, intensity float64) Params {
	return Params{
		"chunk": 0.2 + rng.Float64()*0.6,
		"count": float64(2 + rng.Intn(2+int(intensity*6))),
		"seed":  rollSeed(rng),
	}
}

func (Stutter) Apply(clip *clips.Clip, params Params) (*Recipe, error) {
	total := clip.Duration
	if total <= 0 {
		return Identity(clip), nil
	}

	chunk := time.Duration(params.Value("chunk", 0.4) * float64(time.Second))
	if chunk < 50*time.Millisecond {
		chunk = 50 * time.Millisecond
	}
	if chunk > total {
		chunk = total
	}

	count := params.Int("count", 3)
	if count < 1 {
		count = 1
	}
	if count > 16 {
		count = 16
	}

	rng := rand.New(rand.NewSource(params.Seed()))
	var start time.Duration
	if room := total - chunk; room > 0 {
		start = time.Duration(rng.Int63n(int64(room) + 1))
	}

	seg := ClampSegment(Segment{Start: start, End: start + chunk}, total)
	segments := make([]Segment, count)
	for i := range segments {
		segments[i] = seg
	}

	return &Recipe{
		Segments: segments,
		Duration: seg.Duration() * time.Duration(count),
	}, nil
}

// Scramble cuts the clip into equal chunks and splices them back in a
// shuffled order.
type Scramble struct{}

func (Scramble) Name() string { return "scramble" }

func (Scramble) Roll(rng *rand.Rand, intensity float64) Params {
	return Params{
		"chunks": float64(4 + rng.Intn(2+int(intensity*6))),
		"seed":   rollSeed(rng),
	}
}

func (Scramble) Apply(clip *clips.Clip, params Params) (*Recipe, error) {
	total := clip.Duration
	if total < 2*minChunk {
		return Identity(clip), nil
	}

	n := params.Int("chunks", 6)
	if n < 2 {
		n = 2
	}
	if n > 32 {
		n = 32
	}
	if max := int(total / minChunk); n > max {
		n = max
	}

	chunk := total / time.Duration(n)
	segments := make([]Segment, n)
	for i := 0; i < n; i++ {
		start := time.Duration(i) * chunk
		end := start + chunk
		if i == n-1 {
			end = total
		}
		segments[i] = Segment{Start: start, End: end}
	}

	rng := rand.New(rand.NewSource(params.Seed()))
	rng.Shuffle(n, func(i, j int) {
		segments[i], segments[j] = segments[j], segments[i]
	})

	return &Recipe{
		Segments: segments,
		Duration: total,
	}, nil
}
