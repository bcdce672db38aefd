package clips

import (
	"time"

	"github.com/MoodyStars/FreePoop/internal/media"
)

// Clip is a loaded, render-ready media file. The path points into the
// render scratch dir for anything that needed normalization; clips are
// read-only once loaded.
type Clip struct {
	ID       string
	Path     string
	Duration time.Duration
	Width    int
	Height   int
	FPS      float64
	HasAudio bool
	Still    bool
	Source   media.Reference
}

// AudioOnly reports whether the clip carries no picture (driving
// tracks for music video mode).
func (c *Clip) AudioOnly() bool {
	return c.Width == 0 && c.Height == 0 && c.HasAudio
}

// WithPath returns a copy of the clip pointing at a new file, keeping
// identity and source. Probed fields are the caller's responsibility.
func (c *Clip) WithPath(path string) *Clip {
	out := *c
	out.Path = path
	return &out
}
