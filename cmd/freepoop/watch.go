package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/MoodyStars/FreePoop/internal/compose"
	"github.com/MoodyStars/FreePoop/internal/config"
	"github.com/MoodyStars/FreePoop/internal/media"
	"github.com/MoodyStars/FreePoop/internal/pipeline"
	"github.com/MoodyStars/FreePoop/internal/watch"
	"github.com/MoodyStars/FreePoop/pkg/util"
)

var watchFlags struct {
	auto   bool
	idle   float64
	outDir string
	mode   string
	year   int
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest sources dropped into a directory",
	Long:  "Registers every media file dropped into the watched directory. With --auto, a render fires from everything collected once the inbox goes idle.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		registry := media.NewRegistry()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		onIngest, join, err := setupAutoRender(ctx, cfg, registry)
		if err != nil {
			return err
		}

		w := watch.New(log.Logger, registry, watch.Options{
			Stability: time.Duration(cfg.Watch.StabilitySeconds * float64(time.Second)),
			OnIngest:  onIngest,
		})

		watchErr := w.Watch(ctx, args[0])

		// Release the auto-render goroutine before joining it; Watch
		// may have returned on its own error with ctx still live.
		stop()
		join()

		if watchErr != nil && !errors.Is(watchErr, context.Canceled) {
			return watchErr
		}
		return nil
	},
}

func init() {
	f := watchCmd.Flags()
	f.BoolVar(&watchFlags.auto, "auto", false, "render automatically when the inbox goes idle")
	f.Float64Var(&watchFlags.idle, "idle", 30, "seconds of inbox quiet before an auto render")
	f.StringVar(&watchFlags.outDir, "out-dir", ".", "directory for auto render outputs")
	f.StringVar(&watchFlags.mode, "mode", "deluxe", "composition mode for auto renders")
	f.IntVar(&watchFlags.year, "year", 0, "style year for auto renders")
}

// setupAutoRender arms a timer that every ingest pushes back; when it
// finally fires, one render runs from whatever the registry holds.
// Renders run on a single goroutine, so a batch landing mid-render
// queues exactly one follow-up instead of piling on.
func setupAutoRender(ctx context.Context, cfg *config.Config, registry *media.Registry) (func(media.Reference), func(), error) {
	if !watchFlags.auto {
		return nil, func() {}, nil
	}

	renderer, err := pipeline.New(log.Logger, cfg)
	if err != nil {
		return nil, nil, err
	}
	mode, err := compose.ParseMode(watchFlags.mode)
	if err != nil {
		return nil, nil, err
	}
	if err := util.EnsureDir(watchFlags.outDir); err != nil {
		return nil, nil, err
	}

	idle := time.Duration(watchFlags.idle * float64(time.Second))
	if idle <= 0 {
		idle = 30 * time.Second
	}

	kick := make(chan struct{}, 1)
	timer := time.AfterFunc(time.Hour, func() {
		select {
		case kick <- struct{}{}:
		default:
		}
	})
	timer.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-kick:
				autoRender(ctx, renderer, registry, mode)
			}
		}
	}()

	log.Info().
		Dur("idle", idle).
		Str("mode", watchFlags.mode).
		Msg("auto render armed")

	onIngest := func(media.Reference) { timer.Reset(idle) }
	join := func() {
		timer.Stop()
		<-done
	}
	return onIngest, join, nil
}

func autoRender(ctx context.Context, renderer *pipeline.Renderer, registry *media.Registry, mode compose.Mode) {
	out := filepath.Join(watchFlags.outDir,
		fmt.Sprintf("poop_%s.mp4", time.Now().Format("20060102_150405")))

	log.Info().Str("output", out).Msg("inbox settled, rendering")

	result, err := renderer.Render(ctx, pipeline.Request{
		Snapshot:   registry.Snapshot(),
		Mode:       mode,
		StyleYear:  watchFlags.year,
		OutputPath: out,
	})
	if err != nil {
		log.Error().Err(err).Msg("auto render failed")
		return
	}

	log.Info().
		Str("status", string(result.Status)).
		Str("output", result.OutputPath).
		Int64("seed", result.Seed).
		Int("degradations", result.Degradations()).
		Msg("auto render finished")
}
