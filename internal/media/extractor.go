package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const defaultExtractTimeout = 60 * time.Second

// Extractor decodes consecutive frames from a clip with ffmpeg.
type Extractor struct {
	// FfmpegPath is the path to the ffmpeg executable.
	FfmpegPath string

	// Timeout bounds a single extraction.
	Timeout time.Duration

	Log zerolog.Logger
}

// ExtractFrames decodes up to count consecutive frames from clipPath into
// outDir, named {prefix}_{seq:06d}.{ext}. Returns the written paths in name
// order. Zero frames produced is a valid empty result, not an error.
func (e *Extractor) ExtractFrames(ctx context.Context, clipPath string, count int, outDir, prefix, imageFormat string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	ext := "png"
	if imageFormat == "jpg" {
		ext = "jpg"
	}
	pattern := filepath.Join(outDir, fmt.Sprintf("%s_%%06d.%s", prefix, ext))

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", clipPath,
		"-fps_mode", "passthrough",
		"-frames:v", fmt.Sprintf("%d", count),
	}
	if ext == "jpg" {
		args = append(args, "-q:v", "2") // high quality JPEG
	}
	args = append(args, pattern)

	timeout := e.Timeout
	if timeout == 0 {
		timeout = defaultExtractTimeout
	}
	if _, err := runCmd(ctx, e.Log, timeout, e.path(), args...); err != nil {
		return nil, err
	}

	written, err := filepath.Glob(filepath.Join(outDir, fmt.Sprintf("%s_*.%s", prefix, ext)))
	if err != nil {
		return nil, fmt.Errorf("collect written frames: %w", err)
	}
	sort.Strings(written)

	e.Log.Info().
		Int("frames", len(written)).
		Str("prefix", prefix).
		Str("dir", outDir).
		Msg("extracted frames")
	return written, nil
}

func (e *Extractor) path() string {
	if e.FfmpegPath == "" {
		return "ffmpeg"
	}
	return e.FfmpegPath
}
