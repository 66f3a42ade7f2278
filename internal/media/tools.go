// Package media wraps the yt-dlp/ffmpeg/ffprobe subprocess calls that turn
// a video URL into decoded frames on disk.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrToolNotFound is wrapped by EnsureTool failures.
var ErrToolNotFound = fmt.Errorf("required tool not found on PATH")

// EnsureTool returns the full path to an executable or an error telling the
// operator to install it. Called fail-fast at startup for every external
// tool the run will need.
func EnsureTool(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return path, nil
}

// runCmd executes a command under a timeout and returns its stdout.
// A timeout is reported the same way as any other failure.
func runCmd(ctx context.Context, log zerolog.Logger, timeout time.Duration, name string, args ...string) ([]byte, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("cmd", name).Strs("args", args).Msg("running")

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			if i := strings.IndexByte(msg, '\n'); i >= 0 {
				msg = msg[:i]
			}
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// runCmdJSON executes a command and unmarshals its stdout into dst.
func runCmdJSON(ctx context.Context, log zerolog.Logger, timeout time.Duration, dst any, name string, args ...string) error {
	out, err := runCmd(ctx, log, timeout, name, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out, dst); err != nil {
		return fmt.Errorf("%s: parse JSON output: %w", name, err)
	}
	return nil
}
