package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// WorkDir is the parent directory for per-render scratch dirs.
	WorkDir string `yaml:"work_dir"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Render settings
	Render RenderConfig `yaml:"render"`

	// Fetch settings for remote sources
	Fetch FetchConfig `yaml:"fetch"`

	// Watch settings for the source inbox
	Watch WatchConfig `yaml:"watch"`

	// Eras overrides entries of the built-in style era table,
	// keyed by bucket name (classic, golden, modern, contemporary).
	Eras map[string]EraOverride `yaml:"eras"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
}

type RenderConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`

	// StillSeconds is the clip duration assigned to images and GIFs.
	StillSeconds float64 `yaml:"still_seconds"`

	// MaxSegmentSeconds caps the random sub-segment window length.
	MaxSegmentSeconds float64 `yaml:"max_segment_seconds"`
}

type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
}

type WatchConfig struct {
	// StabilitySeconds is how long a new file must stop growing
	// before it is ingested.
	StabilitySeconds float64 `yaml:"stability_seconds"`
}

// EraOverride replaces the tuning of one style era bucket.
type EraOverride struct {
	EffectChance     float64 `yaml:"effect_chance"`
	AggressiveChance float64 `yaml:"aggressive_chance"`
	MaxRepeats       int     `yaml:"max_repeats"`
	MaxChain         int     `yaml:"max_chain"`
}

// Load reads configuration from file or returns defaults.
// Environment overrides (FREEPOOP_*) apply last.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		WorkDir: "./work",
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
		},
		Render: RenderConfig{
			Width:             1280,
			Height:            720,
			FPS:               30,
			StillSeconds:      3.0,
			MaxSegmentSeconds: 6.0,
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 120,
			UserAgent:      "freepoop/1.0",
		},
		Watch: WatchConfig{
			StabilitySeconds: 2.0,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./freepoop.yaml",
		"./freepoop.yml",
		filepath.Join(os.Getenv("HOME"), ".freepoop", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FREEPOOP_WORK_DIR"); v != "" {
		cfg.WorkDir = v
	}
	if v := os.Getenv("FREEPOOP_FFMPEG_PATH"); v != "" {
		cfg.FFmpeg.BinaryPath = v
	}
	if v := os.Getenv("FREEPOOP_FFPROBE_PATH"); v != "" {
		cfg.FFmpeg.ProbePath = v
	}
	if v := os.Getenv("FREEPOOP_PRESET"); v != "" {
		cfg.FFmpeg.Preset = v
	}
	if v := os.Getenv("FREEPOOP_CRF"); v != "" {
		if crf, err := strconv.Atoi(v); err == nil {
			cfg.FFmpeg.CRF = crf
		}
	}
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
