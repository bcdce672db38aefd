package ffmpeg

import (
	"context"
	"fmt"
)

// AudioFormat defines audio extraction format options
type AudioFormat struct {
	Codec      string
	SampleRate int
	Channels   int
	Bitrate    string
}

// WAVFormat returns the PCM format used for intermediate audio files.
func WAVFormat() AudioFormat {
	return AudioFormat{
		Codec:      "pcm_s16le",
		SampleRate: 44100,
		Channels:   2,
	}
}

// ExtractAudio extracts audio stream to a separate file
func (e *Executor) ExtractAudio(ctx context.Context, input, output string, format AudioFormat, progressFunc ProgressFunc) error {
	e.logger.Debug().
		Str("input", input).
		Str("output", output).
		Str("codec", format.Codec).
		Int("sample_rate", format.SampleRate).
		Msg("extracting audio")

	args := []string{
		"-i", input,
		"-vn", // no video
		"-acodec", format.Codec,
		"-ar", fmt.Sprintf("%d", format.SampleRate),
		"-ac", fmt.Sprintf("%d", format.Channels),
	}

	if format.Bitrate != "" {
		args = append(args, "-b:a", format.Bitrate)
	}

	args = append(args, output)

	opts := RunOptions{
		Args:            args,
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("audio extraction")
		},
	}

	return e.Run(ctx, opts)
}

// AddSilentAudio pads a video that has no audio stream with silence so
// it concatenates cleanly next to clips that do.
func (e *Executor) AddSilentAudio(ctx context.Context, input, output string) error {
	e.logger.Debug().
		Str("input", input).
		Str("output", output).
		Msg("padding silent audio track")

	args := []string{
		"-i", input,
		"-f", "lavfi",
		"-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-shortest",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", DefaultAudioCodec,
		output,
	}

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("silent audio pad")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("silent audio pad failed: %w", err)
	}
	return nil
}

// MuxOptions configures audio track replacement.
type MuxOptions struct {
	// LoopAudio repeats the audio input until the video ends.
	LoopAudio bool
	// CopyVideo keeps the video stream untouched.
	CopyVideo    bool
	ProgressFunc ProgressFunc
}

// MuxAudio replaces the audio track of a video with a separate audio
// file. The output always ends with the shorter of the two inputs,
// which with LoopAudio means the video length.
func (e *Executor) MuxAudio(ctx context.Context, video, audio, output string, opts MuxOptions) error {
	if video == "" || audio == "" || output == "" {
		return fmt.Errorf("video, audio and output paths are required")
	}

	e.logger.Info().
		Str("video", video).
		Str("audio", audio).
		Str("output", output).
		Bool("loop", opts.LoopAudio).
		Msg("muxing audio track")

	args := []string{"-i", video}
	if opts.LoopAudio {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args, "-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
	)

	if opts.CopyVideo {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args, "-c:v", DefaultVideoCodec)
	}
	args = append(args, "-c:a", DefaultAudioCodec, output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("audio mux")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("audio mux failed: %w", err)
	}
	return nil
}
