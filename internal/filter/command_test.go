package filter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analyzer.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommandGate(t *testing.T) {
	script := writeScript(t, `echo '{"accepted": true, "reason": "ok", "metrics": {"motion_score": 0.5}}'`)
	gate := &CommandGate{Path: script, Thresholds: DefaultThresholds(), Log: zerolog.Nop()}

	d, err := gate.Evaluate(context.Background(), []string{"a.jpg", "b.jpg"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !d.Accepted || d.Reason != "ok" {
		t.Errorf("decision = %+v, want accepted ok", d)
	}
	if d.Metrics.MotionScore != 0.5 {
		t.Errorf("motion score = %v, want 0.5", d.Metrics.MotionScore)
	}
}

func TestCommandGateFailure(t *testing.T) {
	script := writeScript(t, `echo "no frames visible" >&2; exit 1`)
	gate := &CommandGate{Path: script, Log: zerolog.Nop()}

	if _, err := gate.Evaluate(context.Background(), []string{"a.jpg"}); err == nil {
		t.Fatal("Evaluate() error = nil, want failure")
	}
}

func TestCommandScorer(t *testing.T) {
	script := writeScript(t, `echo '{"path": "a.jpg", "composite": 0.73}'`)
	scorer := &CommandScorer{Path: script, Log: zerolog.Nop()}

	best, err := scorer.PickBest(context.Background(), []string{"a.jpg", "b.jpg"})
	if err != nil {
		t.Fatalf("PickBest() error = %v", err)
	}
	if best == nil || best.Path != "a.jpg" || best.Score.Composite != 0.73 {
		t.Errorf("best = %+v, want a.jpg at 0.73", best)
	}
}

func TestCommandScorerNoPick(t *testing.T) {
	script := writeScript(t, `echo '{"path": "", "composite": 0}'`)
	scorer := &CommandScorer{Path: script, Log: zerolog.Nop()}

	best, err := scorer.PickBest(context.Background(), []string{"a.jpg"})
	if err != nil {
		t.Fatalf("PickBest() error = %v", err)
	}
	if best != nil {
		t.Errorf("best = %+v, want nil", best)
	}
}

func TestFirstFrameScorer(t *testing.T) {
	best, err := FirstFrameScorer{}.PickBest(context.Background(), []string{"x.jpg", "y.jpg"})
	if err != nil || best == nil || best.Path != "x.jpg" {
		t.Fatalf("PickBest() = %+v, %v; want x.jpg", best, err)
	}

	best, err = FirstFrameScorer{}.PickBest(context.Background(), nil)
	if err != nil || best != nil {
		t.Fatalf("PickBest(nil) = %+v, %v; want nil, nil", best, err)
	}
}
