package effects

import (
	"math/rand"
	"time"

	"github.com/MoodyStars/FreePoop/internal/clips"
	"github.com/MoodyStars/FreePoop/internal/ffmpeg"
)

// Speed changes playback rate for both tracks.
type Speed struct{}

func (Speed) Name() string { return "speed" }

func (Speed) Roll(rng *rand.Rand, _ float64) Params {
	return Params{
		"factor": 0.5 + rng.Float64()*2.0,
	}
}

func (Speed) Apply(clip *clips.Clip, params Params) (*Recipe, error) {
	factor := params.Value("factor", 1.5)
	if factor < 0.25 {
		factor = 0.25
	}
	if factor > 4 {
		factor = 4
	}

	r := &Recipe{
		Duration: time.Duration(float64(clip.Duration) / factor),
	}
	if !clip.AudioOnly() {
		r.VideoFilters = ffmpeg.NewFilterBuilder().SetPTS(factor).BuildAll()
	}
	if clip.HasAudio {
		r.AudioFilters = ffmpeg.NewFilterBuilder().AudioTempo(factor).BuildAll()
	}
	return r, nil
}

// Gain amplifies the audio track. On a silent clip it passes the clip
// through untouched instead of failing.
type Gain struct{}

func (Gain) Name() string { return "gain" }

func (Gain) Roll(rng *rand.Rand, intensity float64) Params {
	return Params{
		"db": 6 + rng.Float64()*(6+intensity*12),
	}
}

func (Gain) Apply(clip *clips.Clip, params Params) (*Recipe, error) {
	if !clip.HasAudio {
		return Identity(clip), nil
	}

	db := params.Value("db", 9)
	if db < -30 {
		db = -30
	}
	if db > 30 {
		db = 30
	}

	return &Recipe{
		AudioFilters: ffmpeg.NewFilterBuilder().AudioVolume(db).BuildAll(),
		Duration:     clip.Duration,
	}, nil
}
