// Package sampling picks segment start timestamps and plans segment
// lengths. Both operations are pure given their inputs and the RNG state,
// which keeps runs reproducible under a fixed seed.
package sampling

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"framesampler/internal/config"
)

// Beta(2.5, 2.5) is bell-shaped with its peak at the midpoint, so soft-bias
// samples are pushed toward the middle of the legal interval.
const (
	betaAlpha = 2.5
	betaBeta  = 2.5
)

// Params are the inputs to a timestamp draw.
type Params struct {
	DurationS    float64
	SegmentLenS  float64
	IntroMarginS float64
	OutroMarginS float64
	Bias         config.BiasMode
}

// SampleTimestamp returns a start timestamp in seconds such that
// [start, start+SegmentLenS] fits within the video.
//
// The legal interval is [intro, duration-outro-segLen]. If the margins eat
// the whole video they are discarded and [0, duration-segLen] is used; if
// that is still empty the start is 0. hard_margin draws uniformly;
// soft_bias maps a Beta(2.5, 2.5) draw onto the interval.
func SampleTimestamp(p Params, rng *rand.Rand) float64 {
	lo := p.IntroMarginS
	hi := p.DurationS - p.OutroMarginS - p.SegmentLenS

	if hi <= lo {
		lo = 0.0
		hi = p.DurationS - p.SegmentLenS
		if hi < 0 {
			hi = 0
		}
	}

	if hi <= lo {
		return 0.0
	}

	if p.Bias == config.BiasHardMargin {
		return lo + rng.Float64()*(hi-lo)
	}

	beta := distuv.Beta{Alpha: betaAlpha, Beta: betaBeta, Src: rng}
	t := beta.Rand() // in [0, 1]
	return lo + t*(hi-lo)
}

// PlanSegmentLen computes the clip length in seconds needed to decode
// frames consecutive frames at fpsGuess, plus a buffer for seek inaccuracy.
// Never less than 2 seconds; monotonic non-decreasing in frames and buffer.
func PlanSegmentLen(frames int, fpsGuess, bufferS float64) float64 {
	fps := fpsGuess
	if fps < 1.0 {
		fps = 1.0
	}
	needed := float64(frames)/fps + bufferS
	if needed < 2.0 {
		return 2.0
	}
	return needed
}
