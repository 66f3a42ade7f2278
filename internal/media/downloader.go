package media

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"context"

	"github.com/rs/zerolog"
)

const defaultFetchTimeout = 5 * time.Minute

// FetchError wraps a segment download failure.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch segment from %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Downloader fetches short video segments with yt-dlp.
type Downloader struct {
	// YtdlpPath is the path to the yt-dlp executable.
	YtdlpPath string

	// Timeout bounds a single segment download.
	Timeout time.Duration

	Log zerolog.Logger
}

// DownloadSegment fetches only [startS, endS] of the video at url into
// outPath, using yt-dlp's --download-sections so just a short clip moves
// over the network.
func (d *Downloader) DownloadSegment(ctx context.Context, url string, startS, endS float64, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return &FetchError{URL: url, Err: err}
	}

	section := fmt.Sprintf("*%.2f-%.2f", startS, endS)
	args := []string{
		"--no-warnings",
		"--quiet",
		"--download-sections", section,
		"--force-keyframes-at-cuts",
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"--merge-output-format", "mp4",
		"-o", outPath,
		url,
	}

	d.Log.Info().
		Str("url", url).
		Float64("start_s", startS).
		Float64("end_s", endS).
		Msg("downloading segment")

	timeout := d.Timeout
	if timeout == 0 {
		timeout = defaultFetchTimeout
	}
	if _, err := runCmd(ctx, d.Log, timeout, d.path(), args...); err != nil {
		return &FetchError{URL: url, Err: err}
	}
	return nil
}

func (d *Downloader) path() string {
	if d.YtdlpPath == "" {
		return "yt-dlp"
	}
	return d.YtdlpPath
}
