package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MoodyStars/FreePoop/internal/media"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWatchIngestsDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	registry := media.NewRegistry()

	var mu sync.Mutex
	var ingested []media.Reference
	w := New(zerolog.Nop(), registry, Options{
		Stability: 50 * time.Millisecond,
		OnIngest: func(ref media.Reference) {
			mu.Lock()
			ingested = append(ingested, ref)
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, dir) }()

	// Give the watcher a beat to arm before dropping files.
	time.Sleep(100 * time.Millisecond)

	for _, name := range []string{"clip.mp4", "song.mp3", "notes.txt", ".hidden.mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	waitFor(t, "media files to register", func() bool {
		return registry.Count(media.Video) == 1 && registry.Count(media.Audio) == 1
	})

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch returned %v, want context.Canceled", err)
	}

	if n := registry.Count(media.Video); n != 1 {
		t.Errorf("video count = %d, want only clip.mp4", n)
	}
	if n := registry.Count(media.Image); n != 0 {
		t.Errorf("image count = %d, nothing image-like was dropped", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ingested) != 2 {
		t.Errorf("OnIngest fired %d times, want 2: %v", len(ingested), ingested)
	}
}

func TestWaitStableHoldsUntilWritesStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "growing.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Keep the file growing for ~200ms.
	go func() {
		for i := 0; i < 8; i++ {
			time.Sleep(25 * time.Millisecond)
			f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return
			}
			f.WriteString("more")
			f.Close()
		}
	}()

	w := New(zerolog.Nop(), media.NewRegistry(), Options{Stability: 100 * time.Millisecond})
	start := time.Now()
	if err := w.waitStable(context.Background(), path); err != nil {
		t.Fatalf("waitStable: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 250*time.Millisecond {
		t.Errorf("settled after %s, before the writes stopped", elapsed)
	}
}

func TestWaitStableMissingFile(t *testing.T) {
	w := New(zerolog.Nop(), media.NewRegistry(), Options{Stability: 50 * time.Millisecond})
	if err := w.waitStable(context.Background(), filepath.Join(t.TempDir(), "nope.mp4")); err == nil {
		t.Fatal("vanished file should fail the stability wait")
	}
}

func TestWaitStableCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slow.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(zerolog.Nop(), media.NewRegistry(), Options{Stability: time.Hour})
	if err := w.waitStable(ctx, path); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestIngestible(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"clip.mp4", true},
		{"SONG.MP3", true},
		{"frame.jpeg", true},
		{"anim.gif", true},
		{"wipe.webm", true},
		{"notes.txt", false},
		{".hidden.mp4", false},
		{"video.mp4.part", false},
		{"archive.zip", false},
	}
	for _, tc := range cases {
		if got := ingestible(filepath.Join("inbox", tc.path)); got != tc.want {
			t.Errorf("ingestible(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
