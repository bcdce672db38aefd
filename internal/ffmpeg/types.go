package ffmpeg

import (
	"time"

	"github.com/MoodyStars/FreePoop/pkg/util"
)

// VideoInfo contains metadata about a media file
type VideoInfo struct {
	FilePath     string
	Duration     time.Duration
	Width        int
	Height       int
	FPS          float64
	Bitrate      int64
	VideoCodec   string
	HasVideo     bool
	HasAudio     bool
	AudioCodec   string
	AudioBitrate int64
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// Seconds converts the progress timestamp into seconds, 0 when absent
// or unparsable.
func (p *Progress) Seconds() float64 {
	if p == nil || p.Time == "" {
		return 0
	}
	d, err := util.ParseTimestamp(p.Time)
	if err != nil {
		return 0
	}
	return d.Seconds()
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)

// RenderOptions configures single-input render operations
type RenderOptions struct {
	Input        string
	Output       string
	Filters      []string
	AudioFilters []string
	VideoCodec   string
	AudioCodec   string
	CRF          int
	Preset       string
	FPS          float64
	ProgressFunc ProgressFunc
	CustomArgs   []string
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)
