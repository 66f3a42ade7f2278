package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

const defaultCommandTimeout = 2 * time.Minute

// CommandGate evaluates bursts by running an external analyzer, following
// the same subprocess pattern as the yt-dlp and ffmpeg wrappers. The
// command receives the frame paths as arguments and must print a JSON
// object {"accepted": bool, "reason": string, "metrics": {...}} on stdout.
type CommandGate struct {
	Path       string
	Thresholds Thresholds
	Timeout    time.Duration
	Log        zerolog.Logger
}

func (g *CommandGate) Evaluate(ctx context.Context, framePaths []string) (Decision, error) {
	var resp struct {
		Accepted bool    `json:"accepted"`
		Reason   string  `json:"reason"`
		Metrics  Metrics `json:"metrics"`
	}
	args := append([]string{"gate", "--thresholds", mustJSON(g.Thresholds)}, framePaths...)
	if err := runJSON(ctx, g.Log, g.Path, g.timeout(), args, &resp); err != nil {
		return Decision{}, fmt.Errorf("gate command: %w", err)
	}
	return Decision{Accepted: resp.Accepted, Reason: resp.Reason, Metrics: resp.Metrics}, nil
}

func (g *CommandGate) timeout() time.Duration {
	if g.Timeout > 0 {
		return g.Timeout
	}
	return defaultCommandTimeout
}

// CommandScorer ranks frames by court presence through an external
// analyzer. The command receives the frame paths as arguments and must
// print {"path": string, "composite": float} on stdout; an empty path
// means no frame could be scored.
type CommandScorer struct {
	Path    string
	Timeout time.Duration
	Log     zerolog.Logger
}

func (s *CommandScorer) PickBest(ctx context.Context, framePaths []string) (*BestFrame, error) {
	var resp struct {
		Path      string  `json:"path"`
		Composite float64 `json:"composite"`
	}
	args := append([]string{"score"}, framePaths...)
	if err := runJSON(ctx, s.Log, s.Path, s.timeout(), args, &resp); err != nil {
		return nil, fmt.Errorf("scorer command: %w", err)
	}
	if resp.Path == "" {
		return nil, nil
	}
	return &BestFrame{Path: resp.Path, Score: Score{Composite: resp.Composite}}, nil
}

func (s *CommandScorer) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return defaultCommandTimeout
}

// PassGate accepts every burst. It is the default when no gate command is
// configured, keeping collection unattended rather than failing.
type PassGate struct{}

func (PassGate) Evaluate(ctx context.Context, framePaths []string) (Decision, error) {
	return Decision{Accepted: true, Reason: "ok"}, nil
}

// FirstFrameScorer scores every frame equally and picks the first. With
// strict-improvement best tracking this makes each video's first successful
// attempt win, which is the useful default when no scorer command is
// configured.
type FirstFrameScorer struct{}

func (FirstFrameScorer) PickBest(ctx context.Context, framePaths []string) (*BestFrame, error) {
	if len(framePaths) == 0 {
		return nil, nil
	}
	return &BestFrame{Path: framePaths[0], Score: Score{Composite: 1.0}}, nil
}

func runJSON(ctx context.Context, log zerolog.Logger, path string, timeout time.Duration, args []string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("cmd", path).Int("frames", len(args)-1).Msg("running analyzer")
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("%s: %w: %s", path, err, bytes.Split(stderr.Bytes(), []byte("\n"))[0])
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := json.Unmarshal(stdout.Bytes(), dst); err != nil {
		return fmt.Errorf("%s: parse output: %w", path, err)
	}
	return nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
