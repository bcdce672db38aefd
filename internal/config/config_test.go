package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FFmpeg.BinaryPath != "ffmpeg" {
		t.Errorf("default binary path = %q", cfg.FFmpeg.BinaryPath)
	}
	if cfg.FFmpeg.CRF != 23 {
		t.Errorf("default crf = %d", cfg.FFmpeg.CRF)
	}
	if cfg.Render.MaxSegmentSeconds != 6.0 {
		t.Errorf("default max segment = %v", cfg.Render.MaxSegmentSeconds)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "freepoop.yaml")
	data := []byte("ffmpeg:\n  preset: veryfast\nrender:\n  width: 640\n  height: 360\neras:\n  classic:\n    effect_chance: 0.9\n    max_repeats: 8\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FFmpeg.Preset != "veryfast" {
		t.Errorf("preset = %q, want veryfast", cfg.FFmpeg.Preset)
	}
	if cfg.Render.Width != 640 || cfg.Render.Height != 360 {
		t.Errorf("render size = %dx%d", cfg.Render.Width, cfg.Render.Height)
	}
	// Untouched keys keep their defaults.
	if cfg.Render.FPS != 30 {
		t.Errorf("fps = %d, want default 30", cfg.Render.FPS)
	}
	era, ok := cfg.Eras["classic"]
	if !ok {
		t.Fatal("classic era override missing")
	}
	if era.EffectChance != 0.9 || era.MaxRepeats != 8 {
		t.Errorf("era override = %+v", era)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "freepoop.yaml")
	if err := os.WriteFile(path, []byte("ffmpeg:\n  preset: slow\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FREEPOOP_PRESET", "ultrafast")
	t.Setenv("FREEPOOP_CRF", "30")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FFmpeg.Preset != "ultrafast" {
		t.Errorf("preset = %q, want env override", cfg.FFmpeg.Preset)
	}
	if cfg.FFmpeg.CRF != 30 {
		t.Errorf("crf = %d, want 30", cfg.FFmpeg.CRF)
	}
}

func TestConfigContext(t *testing.T) {
	cfg := defaultConfig()
	cfg.WorkDir = "/tmp/somewhere"

	ctx := WithConfig(context.Background(), cfg)
	got := FromContext(ctx)
	if got.WorkDir != "/tmp/somewhere" {
		t.Errorf("FromContext work dir = %q", got.WorkDir)
	}

	// Absent config falls back to defaults.
	if FromContext(context.Background()).WorkDir != "./work" {
		t.Error("missing config should return defaults")
	}
}
