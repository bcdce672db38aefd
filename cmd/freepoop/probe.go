package main

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/MoodyStars/FreePoop/internal/clips"
	"github.com/MoodyStars/FreePoop/internal/config"
	"github.com/MoodyStars/FreePoop/internal/ffmpeg"
	"github.com/MoodyStars/FreePoop/internal/preview"
	"github.com/MoodyStars/FreePoop/pkg/util"
)

var probeFlags struct {
	frame string
	out   string
}

var probeCmd = &cobra.Command{
	Use:   "probe [media file]",
	Short: "Inspect a media file's render-relevant metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		ff, err := ffmpeg.New(log.Logger, ffmpeg.Options{
			FFmpegPath:  cfg.FFmpeg.BinaryPath,
			FFprobePath: cfg.FFmpeg.ProbePath,
			Threads:     cfg.FFmpeg.Threads,
		})
		if err != nil {
			return err
		}

		info, err := ff.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("file:     %s\n", info.FilePath)
		fmt.Printf("duration: %s\n", util.FormatDuration(info.Duration))
		if info.HasVideo {
			fmt.Printf("video:    %dx%d @ %.2f fps, %s\n", info.Width, info.Height, info.FPS, info.VideoCodec)
		}
		if info.HasAudio {
			fmt.Printf("audio:    %s\n", info.AudioCodec)
		}

		if probeFlags.frame == "" {
			return nil
		}
		return dumpFrame(cmd, ff, info)
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeFlags.frame, "frame", "", "dump the frame at this timestamp (seconds or mm:ss) as a png")
	probeCmd.Flags().StringVar(&probeFlags.out, "out", "", "frame output path (default: derived from the input name)")
}

func dumpFrame(cmd *cobra.Command, ff *ffmpeg.Executor, info *ffmpeg.VideoInfo) error {
	at, err := util.ParseTimestamp(probeFlags.frame)
	if err != nil {
		return err
	}

	clip := &clips.Clip{
		Path:     info.FilePath,
		Duration: info.Duration,
		Width:    info.Width,
		Height:   info.Height,
		FPS:      info.FPS,
		HasAudio: info.HasAudio,
	}
	img, err := preview.New(log.Logger, ff).FrameAt(cmd.Context(), clip, at, 0, 0)
	if err != nil {
		return err
	}

	out := probeFlags.out
	if out == "" {
		base := strings.TrimSuffix(filepath.Base(info.FilePath), filepath.Ext(info.FilePath))
		out = fmt.Sprintf("%s_%s.png", base, strings.ReplaceAll(probeFlags.frame, ":", "-"))
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return err
	}

	fmt.Printf("frame:    %s\n", out)
	return nil
}
