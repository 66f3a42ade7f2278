package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultFPS is returned whenever probing fails. 30 is the dominant
	// broadcast rate for the source material.
	DefaultFPS = 30.0

	defaultProbeTimeout = 30 * time.Second
)

// Prober reads a clip's average frame rate with ffprobe.
type Prober struct {
	// FfprobePath is the path to the ffprobe executable.
	FfprobePath string

	// Timeout bounds a single probe.
	Timeout time.Duration

	Log zerolog.Logger
}

// FPS returns the average frame rate of the clip at path, or DefaultFPS on
// any failure. Probing never fails the caller.
func (p *Prober) FPS(ctx context.Context, path string) float64 {
	args := []string{
		"-v", "quiet",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate",
		"-of", "json",
		path,
	}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = defaultProbeTimeout
	}

	var result struct {
		Streams []struct {
			AvgFrameRate string `json:"avg_frame_rate"`
		} `json:"streams"`
	}
	if err := runCmdJSON(ctx, p.Log, timeout, &result, p.path(), args...); err != nil {
		p.Log.Warn().Err(err).Str("path", path).Float64("fallback", DefaultFPS).Msg("fps probe failed")
		return DefaultFPS
	}
	if len(result.Streams) == 0 {
		p.Log.Warn().Str("path", path).Float64("fallback", DefaultFPS).Msg("fps probe found no video stream")
		return DefaultFPS
	}

	fps, err := parseFrameRate(result.Streams[0].AvgFrameRate)
	if err != nil {
		p.Log.Warn().Err(err).Str("path", path).Float64("fallback", DefaultFPS).Msg("fps probe unparseable")
		return DefaultFPS
	}

	p.Log.Debug().Float64("fps", fps).Str("path", path).Msg("probed fps")
	return fps
}

// parseFrameRate parses ffprobe's rational frame rate ("30000/1001").
func parseFrameRate(rate string) (float64, error) {
	num, den, found := strings.Cut(rate, "/")
	if !found {
		f, err := strconv.ParseFloat(rate, 64)
		if err != nil || f <= 0 {
			return 0, fmt.Errorf("invalid frame rate %q", rate)
		}
		return f, nil
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q", rate)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid frame rate %q", rate)
	}

	fps := n / d
	if fps <= 0 {
		return 0, fmt.Errorf("non-positive frame rate %q", rate)
	}
	return fps, nil
}

func (p *Prober) path() string {
	if p.FfprobePath == "" {
		return "ffprobe"
	}
	return p.FfprobePath
}
