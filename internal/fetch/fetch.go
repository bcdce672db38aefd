// Package fetch resolves remote source references into local files.
// The Fetcher boundary is pluggable so richer resolvers can slot in
// without touching the rest of the pipeline; the built-in fetcher
// handles direct links only.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrDownloadFailed marks any failure to resolve a remote source.
// Callers skip the source and keep rendering unless nothing is left.
var ErrDownloadFailed = errors.New("download failed")

// Fetcher resolves a URL to a local file under destDir.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, destDir string) (string, error)
}

// HTTPFetcher downloads direct links over HTTP(S).
type HTTPFetcher struct {
	logger    zerolog.Logger
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a direct-link fetcher.
func NewHTTPFetcher(logger zerolog.Logger, timeout time.Duration, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPFetcher{
		logger:    logger.With().Str("component", "fetch").Logger(),
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch downloads rawURL into destDir and returns the local path.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, destDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid url %q: %v", ErrDownloadFailed, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrDownloadFailed, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	f.logger.Info().Str("url", rawURL).Msg("fetching remote source")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned status %d", ErrDownloadFailed, u.Host, resp.StatusCode)
	}

	dest := filepath.Join(destDir, localName(u, resp.Header.Get("Content-Type")))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrDownloadFailed, dest, err)
	}

	written, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err != nil || closeErr != nil {
		os.Remove(dest)
		if err == nil {
			err = closeErr
		}
		return "", fmt.Errorf("%w: write %s: %v", ErrDownloadFailed, dest, err)
	}

	f.logger.Info().
		Str("url", rawURL).
		Str("dest", dest).
		Int64("bytes", written).
		Msg("fetched remote source")

	return dest, nil
}

// localName derives a unique filename, inferring the extension from
// the content type when the URL path carries none.
func localName(u *url.URL, contentType string) string {
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		base = "download"
	}

	if filepath.Ext(base) == "" {
		base += extForContentType(contentType)
	}

	// Short unique prefix avoids collisions between same-named URLs.
	return uuid.New().String()[:8] + "_" + base
}

func extForContentType(contentType string) string {
	ct := contentType
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	switch strings.TrimSpace(strings.ToLower(ct)) {
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	default:
		return ".mp4"
	}
}
