// Package watch turns a directory into a source inbox. Files dropped
// into the watched directory are classified by extension and registered
// once they stop growing, so a long-running session can keep gaining
// material without restarts.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/MoodyStars/FreePoop/internal/media"
)

// Options tunes the watcher.
type Options struct {
	// Stability is how long a new file must stop growing before it
	// is considered fully written and safe to register.
	Stability time.Duration

	// OnIngest fires after a file lands in the registry.
	OnIngest func(media.Reference)
}

// Watcher ingests files created under a directory into a registry.
type Watcher struct {
	logger   zerolog.Logger
	registry *media.Registry
	opts     Options
	wg       sync.WaitGroup
}

// New creates a watcher feeding the given registry.
func New(logger zerolog.Logger, registry *media.Registry, opts Options) *Watcher {
	if opts.Stability <= 0 {
		opts.Stability = 2 * time.Second
	}
	return &Watcher{
		logger:   logger.With().Str("component", "watch").Logger(),
		registry: registry,
		opts:     opts,
	}
}

// Watch blocks on dir until ctx ends. Every media file created in the
// directory is registered once stable; in-flight stability waits are
// drained before Watch returns.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info().
		Str("dir", dir).
		Dur("stability", w.opts.Stability).
		Msg("watching source inbox")

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !ingestible(event.Name) {
				w.logger.Debug().Str("file", event.Name).Msg("ignoring non-media file")
				continue
			}

			w.wg.Add(1)
			go func(path string) {
				defer w.wg.Done()
				w.ingest(ctx, path)
			}(event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// ingest waits for the file to settle, then registers it by kind.
func (w *Watcher) ingest(ctx context.Context, path string) {
	if err := w.waitStable(ctx, path); err != nil {
		w.logger.Warn().Err(err).Str("file", path).Msg("skipping unsettled file")
		return
	}

	kind := media.KindForPath(path)
	ref, err := w.registry.Add(kind, path)
	if err != nil {
		w.logger.Warn().Err(err).Str("file", path).Msg("could not register file")
		return
	}

	w.logger.Info().
		Str("file", path).
		Str("kind", string(kind)).
		Msg("ingested source")

	if w.opts.OnIngest != nil {
		w.opts.OnIngest(ref)
	}
}

// waitStable polls the file size until it holds still for the
// configured stability window. Slow uploads and network copies keep
// growing for a while after the create event fires.
func (w *Watcher) waitStable(ctx context.Context, path string) error {
	poll := w.opts.Stability / 4
	if poll < 25*time.Millisecond {
		poll = 25 * time.Millisecond
	}

	lastSize := int64(-1)
	lastChange := time.Now()
	for {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() != lastSize {
			lastSize = info.Size()
			lastChange = time.Now()
		} else if time.Since(lastChange) >= w.opts.Stability {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

var mediaExts = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".webm": true, ".m4v": true, ".flv": true,
	".mp3": true, ".wav": true, ".ogg": true, ".flac": true,
	".m4a": true, ".aac": true, ".opus": true,
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true,
	".webp": true, ".tiff": true,
	".gif": true,
}

// ingestible filters out hidden files, in-progress downloads and
// anything without a known media extension.
func ingestible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return mediaExts[strings.ToLower(filepath.Ext(path))]
}
