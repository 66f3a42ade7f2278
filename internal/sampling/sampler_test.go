package sampling

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"framesampler/internal/config"
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestSampleTimestamp_HardMarginBounds(t *testing.T) {
	p := Params{
		DurationS:    600,
		SegmentLenS:  3,
		IntroMarginS: 15,
		OutroMarginS: 15,
		Bias:         config.BiasHardMargin,
	}
	rng := newRNG(1)

	lo := p.IntroMarginS
	hi := p.DurationS - p.OutroMarginS - p.SegmentLenS

	for i := 0; i < 500; i++ {
		got := SampleTimestamp(p, rng)
		if got < lo || got > hi {
			t.Fatalf("trial %d: SampleTimestamp() = %v, want in [%v, %v]", i, got, lo, hi)
		}
	}
}

func TestSampleTimestamp_SoftBiasBounds(t *testing.T) {
	p := Params{
		DurationS:    600,
		SegmentLenS:  3,
		IntroMarginS: 15,
		OutroMarginS: 15,
		Bias:         config.BiasSoft,
	}
	rng := newRNG(2)

	lo := p.IntroMarginS
	hi := p.DurationS - p.OutroMarginS - p.SegmentLenS

	for i := 0; i < 500; i++ {
		got := SampleTimestamp(p, rng)
		if got < lo || got > hi {
			t.Fatalf("trial %d: SampleTimestamp() = %v, want in [%v, %v]", i, got, lo, hi)
		}
	}
}

func TestSampleTimestamp_SoftBiasCentersOnMidpoint(t *testing.T) {
	p := Params{
		DurationS:    600,
		SegmentLenS:  3,
		IntroMarginS: 15,
		OutroMarginS: 15,
		Bias:         config.BiasSoft,
	}
	rng := newRNG(3)

	lo := p.IntroMarginS
	hi := p.DurationS - p.OutroMarginS - p.SegmentLenS
	mid := (lo + hi) / 2
	width := hi - lo

	sum := 0.0
	const trials = 500
	for i := 0; i < trials; i++ {
		sum += SampleTimestamp(p, rng)
	}
	mean := sum / trials

	if math.Abs(mean-mid) > 0.1*width {
		t.Errorf("soft_bias mean = %v, want within 10%% of interval width from midpoint %v", mean, mid)
	}
}

func TestSampleTimestamp_MarginsExceedVideo(t *testing.T) {
	p := Params{
		DurationS:    20,
		SegmentLenS:  3,
		IntroMarginS: 15,
		OutroMarginS: 15,
		Bias:         config.BiasHardMargin,
	}
	rng := newRNG(4)

	// Margins are discarded: legal range becomes [0, 17].
	for i := 0; i < 200; i++ {
		got := SampleTimestamp(p, rng)
		if got < 0 || got > 17 {
			t.Fatalf("trial %d: SampleTimestamp() = %v, want in [0, 17]", i, got)
		}
	}
}

func TestSampleTimestamp_SegmentLongerThanVideo(t *testing.T) {
	p := Params{
		DurationS:    2,
		SegmentLenS:  10,
		IntroMarginS: 0,
		OutroMarginS: 0,
		Bias:         config.BiasSoft,
	}
	if got := SampleTimestamp(p, newRNG(5)); got != 0.0 {
		t.Errorf("SampleTimestamp() = %v, want 0.0 when nothing fits", got)
	}
}

func TestSampleTimestamp_Reproducible(t *testing.T) {
	p := Params{
		DurationS:    600,
		SegmentLenS:  3,
		IntroMarginS: 15,
		OutroMarginS: 15,
		Bias:         config.BiasSoft,
	}

	a := newRNG(42)
	b := newRNG(42)
	for i := 0; i < 100; i++ {
		va := SampleTimestamp(p, a)
		vb := SampleTimestamp(p, b)
		if va != vb {
			t.Fatalf("draw %d: %v != %v with identical seeds", i, va, vb)
		}
	}
}

func TestPlanSegmentLen(t *testing.T) {
	tests := []struct {
		name    string
		frames  int
		fps     float64
		bufferS float64
		want    float64
	}{
		{name: "typical", frames: 20, fps: 30.0, bufferS: 1.0, want: 20.0/30.0 + 1.0},
		{name: "floor applies", frames: 1, fps: 60.0, bufferS: 0.0, want: 2.0},
		{name: "zero fps clamped to 1", frames: 5, fps: 0.0, bufferS: 0.0, want: 5.0},
		{name: "negative fps clamped to 1", frames: 5, fps: -10.0, bufferS: 1.0, want: 6.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanSegmentLen(tt.frames, tt.fps, tt.bufferS)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PlanSegmentLen(%d, %v, %v) = %v, want %v", tt.frames, tt.fps, tt.bufferS, got, tt.want)
			}
		})
	}
}

func TestPlanSegmentLen_Monotonic(t *testing.T) {
	for frames := 1; frames < 100; frames++ {
		a := PlanSegmentLen(frames, 30.0, 1.0)
		b := PlanSegmentLen(frames+1, 30.0, 1.0)
		if b < a {
			t.Fatalf("PlanSegmentLen decreased from %v to %v at frames=%d", a, b, frames)
		}
		if a < 2.0 {
			t.Fatalf("PlanSegmentLen(%d) = %v, want >= 2.0", frames, a)
		}
	}

	for buf := 0.0; buf < 10.0; buf += 0.5 {
		a := PlanSegmentLen(20, 30.0, buf)
		b := PlanSegmentLen(20, 30.0, buf+0.5)
		if b < a {
			t.Fatalf("PlanSegmentLen decreased from %v to %v at buffer=%v", a, b, buf)
		}
	}
}
