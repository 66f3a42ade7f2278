// Package filter defines the quality-gate and court-scorer contracts the
// collectors delegate to. The pixel-level implementations live outside this
// module; the collectors only depend on these interfaces and record the
// decisions they return.
package filter

import "context"

// Thresholds configure a burst quality gate.
type Thresholds struct {
	MinMotionScore     float64 `json:"min_motion_score"`
	MaxStaticScore     float64 `json:"max_static_score"`
	MinEdgeDensity     float64 `json:"min_edge_density"`
	MaxOverlayCoverage float64 `json:"max_overlay_coverage"`
	RejectOnSceneCuts  bool    `json:"reject_on_scene_cuts"`
	SceneCutRateMax    float64 `json:"scene_cut_rate_max"`
}

// DefaultThresholds returns the tuned defaults for broadcast pickleball
// footage.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinMotionScore:     0.015,
		MaxStaticScore:     0.92,
		MinEdgeDensity:     0.01,
		MaxOverlayCoverage: 0.70,
		RejectOnSceneCuts:  false,
		SceneCutRateMax:    0.50,
	}
}

// Metrics are the per-burst visual measurements a gate computed. The
// collectors persist them into the manifest verbatim.
type Metrics struct {
	MotionScore     float64  `json:"motion_score"`
	StaticScore     float64  `json:"static_score"`
	EdgeDensity     float64  `json:"edge_density"`
	OverlayCoverage float64  `json:"overlay_coverage"`
	SceneCutRate    *float64 `json:"scene_cut_rate,omitempty"`
}

// Decision is a gate's verdict on one burst.
type Decision struct {
	Accepted bool
	// Reason is a short machine-readable token ("ok", "low_motion", ...).
	Reason  string
	Metrics Metrics
}

// Gate decides whether a burst of extracted frames is usable training
// material.
type Gate interface {
	Evaluate(ctx context.Context, framePaths []string) (Decision, error)
}

// Score is a court-presence scorer's output for a single frame.
type Score struct {
	// Composite is the weighted combination of the scorer's heuristics,
	// in [0, 1].
	Composite float64 `json:"composite"`
}

// BestFrame is the winning frame of one scoring pass.
type BestFrame struct {
	Path  string
	Score Score
}

// Scorer ranks candidate frames by court presence.
type Scorer interface {
	// PickBest returns the highest-scoring frame among framePaths, or nil
	// when none could be scored.
	PickBest(ctx context.Context, framePaths []string) (*BestFrame, error)
}
