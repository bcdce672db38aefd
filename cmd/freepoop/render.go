package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/MoodyStars/FreePoop/internal/compose"
	"github.com/MoodyStars/FreePoop/internal/config"
	"github.com/MoodyStars/FreePoop/internal/effects"
	"github.com/MoodyStars/FreePoop/internal/media"
	"github.com/MoodyStars/FreePoop/internal/pipeline"
	"github.com/MoodyStars/FreePoop/internal/progress"
	"github.com/MoodyStars/FreePoop/pkg/util"
)

var renderFlags struct {
	videos      []string
	audios      []string
	images      []string
	gifs        []string
	transitions []string
	urls        []string
	project     string
	mode        string
	year        int
	seed        int64
	effectNames []string
	output      string
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Compose and export a poop from the given sources",
	Long:  "Collects sources from flags and an optional project file, composes a randomized edit plan and renders it to one video. A single interrupt stops the render at the next step boundary; scratch files are cleaned up either way.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		req, err := buildRequest(cmd)
		if err != nil {
			return err
		}

		renderer, err := pipeline.New(log.Logger, cfg)
		if err != nil {
			return err
		}

		// The first interrupt asks the render to stop at the next
		// step boundary; dropping the handler after that lets a
		// second interrupt kill the process outright.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			stop()
		}()

		events := progress.NewChannel(64)
		req.Progress = events

		type outcome struct {
			result *pipeline.Result
			err    error
		}
		done := make(chan outcome, 1)
		go func() {
			result, err := renderer.Render(ctx, req)
			done <- outcome{result, err}
		}()

		bars := &stageBars{}
		for {
			select {
			case e := <-events.Events():
				bars.update(e)
			case out := <-done:
				bars.finish()
				printResult(out.result)
				return out.err
			}
		}
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringArrayVar(&renderFlags.videos, "video", nil, "video source (repeatable)")
	f.StringArrayVar(&renderFlags.audios, "audio", nil, "audio source (repeatable)")
	f.StringArrayVar(&renderFlags.images, "image", nil, "image source (repeatable)")
	f.StringArrayVar(&renderFlags.gifs, "gif", nil, "gif source (repeatable)")
	f.StringArrayVar(&renderFlags.transitions, "transition", nil, "transition clip (repeatable)")
	f.StringArrayVar(&renderFlags.urls, "url", nil, "remote source url (repeatable)")
	f.StringVar(&renderFlags.project, "project", "", "project file carrying sources and settings")
	f.StringVar(&renderFlags.mode, "mode", "deluxe", "composition mode: deluxe, tennis or musicvideo")
	f.IntVar(&renderFlags.year, "year", 0, "style year steering the era tuning (0 = golden era)")
	f.Int64Var(&renderFlags.seed, "seed", 0, "random seed, 0 draws a fresh one")
	f.StringSliceVar(&renderFlags.effectNames, "effects", nil, "effects to enable, comma separated (default: all)")
	f.StringVarP(&renderFlags.output, "output", "o", "poop.mp4", "output video path")
}

type sourceGroup struct {
	kind media.Kind
	list []string
}

// buildRequest merges the project file, when given, under the command
// line: scalar flags win where set, source lists concatenate.
func buildRequest(cmd *cobra.Command) (pipeline.Request, error) {
	var req pipeline.Request

	var proj *config.Project
	if renderFlags.project != "" {
		var err error
		proj, err = config.LoadProject(renderFlags.project)
		if err != nil {
			return req, err
		}
	}

	mode := renderFlags.mode
	year := renderFlags.year
	seed := renderFlags.seed
	output := renderFlags.output
	if proj != nil {
		flags := cmd.Flags()
		if proj.Mode != "" && !flags.Changed("mode") {
			mode = proj.Mode
		}
		if proj.Year != 0 && !flags.Changed("year") {
			year = proj.Year
		}
		if proj.Seed != 0 && !flags.Changed("seed") {
			seed = proj.Seed
		}
		if proj.Output != "" && !flags.Changed("output") {
			output = proj.Output
		}
	}

	parsedMode, err := compose.ParseMode(mode)
	if err != nil {
		return req, err
	}

	set, err := buildEffectSet(cmd, proj)
	if err != nil {
		return req, err
	}

	registry := media.NewRegistry()
	groups := []sourceGroup{
		{media.Video, renderFlags.videos},
		{media.Audio, renderFlags.audios},
		{media.Image, renderFlags.images},
		{media.GIF, renderFlags.gifs},
		{media.Transition, renderFlags.transitions},
		{media.RemoteURL, renderFlags.urls},
	}
	if proj != nil {
		groups = append(projectGroups(proj), groups...)
	}
	for _, g := range groups {
		for _, loc := range g.list {
			if _, err := registry.Add(g.kind, loc); err != nil {
				return req, err
			}
		}
	}

	return pipeline.Request{
		Snapshot:   registry.Snapshot(),
		Effects:    set,
		Mode:       parsedMode,
		StyleYear:  year,
		Seed:       seed,
		OutputPath: util.EnsureExt(output, ".mp4"),
	}, nil
}

func projectGroups(proj *config.Project) []sourceGroup {
	return []sourceGroup{
		{media.Video, proj.Videos},
		{media.Audio, proj.Audios},
		{media.Image, proj.Images},
		{media.GIF, proj.GIFs},
		{media.Transition, proj.Transitions},
		{media.RemoteURL, proj.URLs},
	}
}

// buildEffectSet resolves --effects over the project's effect list.
// Naming nothing, or "all", leaves the whole library enabled.
func buildEffectSet(cmd *cobra.Command, proj *config.Project) (effects.Set, error) {
	registry := effects.NewRegistry()

	if !cmd.Flags().Changed("effects") {
		if proj != nil && len(proj.Effects) > 0 {
			if err := registry.Validate(proj.Effects); err != nil {
				return nil, err
			}
			return proj.Effects, nil
		}
		return nil, nil
	}

	var set effects.Set
	for _, name := range renderFlags.effectNames {
		if name == "all" {
			return nil, nil
		}
		set = append(set, effects.Spec{Name: name, Enabled: true})
	}
	if err := registry.Validate(set); err != nil {
		return nil, err
	}
	return set, nil
}

func printResult(result *pipeline.Result) {
	if result == nil {
		return
	}

	for _, entry := range result.Log {
		if entry.Degraded {
			log.Warn().
				Str("stage", entry.Stage).
				Int("step", entry.Step).
				Str("err", entry.Err).
				Msg(entry.Message)
		}
	}

	fmt.Printf("status:   %s\n", result.Status)
	if result.OutputPath != "" {
		fmt.Printf("output:   %s\n", result.OutputPath)
	}
	if result.Strategy != "" {
		fmt.Printf("strategy: %s\n", result.Strategy)
	}
	fmt.Printf("steps:    %d/%d\n", result.StepsCompleted, result.StepsTotal)
	fmt.Printf("seed:     %d\n", result.Seed)
	fmt.Printf("elapsed:  %s\n", result.Elapsed.Round(time.Millisecond))
}

// stageBars renders one terminal progress bar per pipeline stage,
// spinner-style for stages that report no percentage.
type stageBars struct {
	bar   *progressbar.ProgressBar
	stage string
}

func (s *stageBars) update(e progress.Event) {
	if e.Stage == progress.StageDone {
		s.finish()
		return
	}
	if e.Stage != s.stage {
		s.finish()
		s.stage = e.Stage
		s.bar = newStageBar(e)
	}
	if e.Percent >= 0 {
		s.bar.Set(int(e.Percent))
	} else {
		s.bar.Add(1)
	}
}

func (s *stageBars) finish() {
	if s.bar != nil {
		s.bar.Finish()
		fmt.Fprintln(os.Stderr)
		s.bar = nil
		s.stage = ""
	}
}

func newStageBar(e progress.Event) *progressbar.ProgressBar {
	total := 100
	if e.Percent < 0 {
		total = -1
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(e.Stage),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSpinnerType(14),
	)
}
