package effects

import (
	"fmt"
	"math/rand"

	"github.com/MoodyStars/FreePoop/internal/clips"
	"github.com/MoodyStars/FreePoop/internal/ffmpeg"
)

// Reverse plays the clip backwards, audio included when present.
type Reverse struct{}

func (Reverse) Name() string { return "reverse" }

func (Reverse) Roll(*rand.Rand, float64) Params { return Params{} }

func (Reverse) Apply(clip *clips.Clip, _ Params) (*Recipe, error) {
	r := &Recipe{Duration: clip.Duration}
	if !clip.AudioOnly() {
		r.VideoFilters = ffmpeg.NewFilterBuilder().Reverse().BuildAll()
	}
	if clip.HasAudio {
		r.AudioFilters = ffmpeg.NewFilterBuilder().AudioReverse().BuildAll()
	}
	return r, nil
}

// Mirror flips the picture horizontally.
type Mirror struct{}

func (Mirror) Name() string { return "mirror" }

func (Mirror) Roll(*rand.Rand, float64) Params { return Params{} }

func (Mirror) Apply(clip *clips.Clip, _ Params) (*Recipe, error) {
	if clip.AudioOnly() {
		return nil, ErrUnsupportedMedia
	}
	return &Recipe{
		VideoFilters: ffmpeg.NewFilterBuilder().HFlip().BuildAll(),
		Duration:     clip.Duration,
	}, nil
}

// ZoomPunch crops a window out of the frame and blows it back up to
// full size.
type ZoomPunch struct{}

func (ZoomPunch) Name() string { return "zoompunch" }

func (ZoomPunch) Roll(rng *rand.Rand, intensity float64) Params {
	return Params{
		"factor": 1.3 + rng.Float64()*(0.4+intensity*1.2),
		"seed":   rollSeed(rng),
	}
}

func (ZoomPunch) Apply(clip *clips.Clip, params Params) (*Recipe, error) {
	if clip.AudioOnly() {
		return nil, ErrUnsupportedMedia
	}
	if clip.Width <= 0 || clip.Height <= 0 {
		// Unknown frame size, nothing sensible to crop.
		return Identity(clip), nil
	}

	factor := params.Value("factor", 1.6)
	if factor < 1.1 {
		factor = 1.1
	}
	if factor > 4 {
		factor = 4
	}

	// Even dimensions keep the encoder happy.
	cw := int(float64(clip.Width)/factor) &^ 1
	ch := int(float64(clip.Height)/factor) &^ 1
	if cw < 2 || ch < 2 {
		return Identity(clip), nil
	}

	// Window center drifts off-center per seed.
	rng := rand.New(rand.NewSource(params.Seed()))
	maxX := clip.Width - cw
	maxY := clip.Height - ch
	x := maxX / 2
	y := maxY / 2
	if maxX > 0 {
		x = rng.Intn(maxX + 1)
	}
	if maxY > 0 {
		y = rng.Intn(maxY + 1)
	}

	fb := ffmpeg.NewFilterBuilder().
		Crop(cw, ch, x, y).
		Scale(clip.Width, clip.Height)

	return &Recipe{
		VideoFilters: fb.BuildAll(),
		Duration:     clip.Duration,
	}, nil
}

// Flash strobes the brightness on a fixed frame period.
type Flash struct{}

func (Flash) Name() string { return "flash" }

func (Flash) Roll(rng *rand.Rand, intensity float64) Params {
	return Params{
		"period":    float64(6 + rng.Intn(10)),
		"intensity": 0.2 + intensity*0.4,
	}
}

func (Flash) Apply(clip *clips.Clip, params Params) (*Recipe, error) {
	if clip.AudioOnly() {
		return nil, ErrUnsupportedMedia
	}
	period := params.Int("period", 10)
	if period < 2 {
		period = 2
	}
	if period > 60 {
		period = 60
	}
	strength := params.Value("intensity", 0.35)
	if strength < 0.05 {
		strength = 0.05
	}
	if strength > 1 {
		strength = 1
	}

	// Commas inside the expression are escaped so the filter survives
	// chain joining.
	filter := fmt.Sprintf("eq=brightness='if(lt(mod(n\\,%d),%d),%.2f,0)':eval=frame",
		period, period/2, strength)

	return &Recipe{
		VideoFilters: ffmpeg.NewFilterBuilder().Custom(filter).BuildAll(),
		Duration:     clip.Duration,
	}, nil
}
