package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"framesampler/internal/config"
	"framesampler/internal/filter"
	"framesampler/internal/media"
	"framesampler/internal/output"
	"framesampler/internal/sampling"
	"framesampler/internal/youtube"
)

// ErrTargetUnreachable indicates the attempt ceiling was exhausted before
// the frame target was met. The partial manifest is still valid.
var ErrTargetUnreachable = errors.New("pipeline: frame target not reachable within attempt ceiling")

// Fetcher downloads one video segment to disk.
type Fetcher interface {
	DownloadSegment(ctx context.Context, url string, startS, endS float64, outPath string) error
}

// Extractor decodes frames from a downloaded clip.
type Extractor interface {
	ExtractFrames(ctx context.Context, clipPath string, count int, outDir, prefix, imageFormat string) ([]string, error)
}

// Prober reads a clip's frame rate. Never fails; falls back internally.
type Prober interface {
	FPS(ctx context.Context, path string) float64
}

// Collector is the budgeted burst-collection loop. It repeatedly picks a
// random candidate, downloads a short segment, extracts a burst of frames,
// and submits them to the quality gate, until exactly Cfg.TotalFrames
// frames have been accepted.
//
// A rejected burst retries download/extract/gate on the same sampled
// segment (no timestamp re-roll) up to Cfg.MaxRetriesPerBurst times; a
// fresh video and timestamp are only drawn when the outer loop moves on.
// The RNG is consumed in a fixed order (video pick, then timestamp) so a
// seeded run is fully reproducible.
type Collector struct {
	Cfg       *config.Config
	Fetcher   Fetcher
	Extractor Extractor
	Prober    Prober
	Gate      filter.Gate
	RNG       *rand.Rand
	Log       zerolog.Logger
}

// Run executes the collection loop over the candidate pool. It returns the
// number of frames written, which never exceeds Cfg.TotalFrames, and the
// run manifest. ErrTargetUnreachable is returned when the global attempt
// ceiling ran out first.
func (c *Collector) Run(ctx context.Context, runID string, candidates []youtube.VideoMeta) (int, *Manifest, error) {
	cfg := c.Cfg
	manifest := NewManifest(runID, "clips", cfg, len(candidates))

	collected := 0
	burstIdx := 0
	totalAttempts := 0
	ceiling := cfg.AttemptCeiling()

	for collected < cfg.TotalFrames {
		if err := ctx.Err(); err != nil {
			manifest.Totals.FramesWritten = collected
			return collected, manifest, err
		}
		if totalAttempts >= ceiling {
			c.Log.Error().
				Int("attempts", totalAttempts).
				Int("collected", collected).
				Int("target", cfg.TotalFrames).
				Msg("attempt ceiling exhausted")
			manifest.Totals.FramesWritten = collected
			return collected, manifest, ErrTargetUnreachable
		}

		video := candidates[c.RNG.Intn(len(candidates))]
		burstIdx++

		segLen := sampling.PlanSegmentLen(cfg.FramesPerSample, media.DefaultFPS, cfg.BufferSeconds)
		start := sampling.SampleTimestamp(sampling.Params{
			DurationS:    video.DurationS,
			SegmentLenS:  segLen,
			IntroMarginS: cfg.IntroMarginS,
			OutroMarginS: cfg.OutroMarginS,
			Bias:         cfg.Bias,
		}, c.RNG)
		end := min(video.DurationS, start+segLen)

		clipPath := filepath.Join(cfg.TmpDir, fmt.Sprintf("%s_b%05d.mp4", output.Slug(video.VideoID), burstIdx))

		accepted := false
		attempts := 0

		for attempts < cfg.MaxRetriesPerBurst && totalAttempts < ceiling && !accepted {
			attempts++
			totalAttempts++

			var abandon bool
			accepted, abandon, collected, end = c.attempt(ctx, manifest, video, clipPath, start, end, attempts, collected)
			// Download and extraction errors abandon the burst rather than
			// retrying; only gate rejections retry the same segment.
			if abandon {
				break
			}
		}

		manifest.Totals.FramesWritten = collected
	}

	c.Log.Info().
		Int("frames", collected).
		Int("accepted_bursts", manifest.Totals.AcceptedBursts).
		Int("rejected_bursts", manifest.Totals.RejectedBursts).
		Msg("collection complete")
	return collected, manifest, nil
}

// attempt runs one burst attempt end to end. It returns the new accepted
// flag and collected count, the (possibly extended) segment end, and
// whether the burst must be abandoned without retry.
func (c *Collector) attempt(ctx context.Context, manifest *Manifest, video youtube.VideoMeta, clipPath string, start, end float64, attempt, collected int) (accepted, abandon bool, newCollected int, newEnd float64) {
	cfg := c.Cfg

	if err := c.Fetcher.DownloadSegment(ctx, video.WebpageURL, start, end, clipPath); err != nil {
		c.Log.Warn().
			Str("video", video.VideoID).
			Float64("start_s", start).
			Float64("end_s", end).
			Err(err).
			Msg("segment download failed")
		c.record(manifest, video, start, end, 0, false, ReasonDownloadError, err.Error(), nil, attempt, "")
		return false, true, collected, end
	}

	// The segment was planned against a guessed frame rate. Probe the real
	// one and extend the clip once if the plan came up short.
	fps := c.Prober.FPS(ctx, clipPath)
	neededLen := float64(cfg.FramesPerSample)/fps + cfg.BufferSeconds
	if end-start < neededLen && attempt == 1 {
		newEnd := min(video.DurationS, start+neededLen+cfg.BufferSeconds)
		if newEnd > end {
			c.Log.Info().
				Float64("start_s", start).
				Float64("end_s", newEnd).
				Msg("re-downloading with extended segment")
			os.Remove(clipPath)
			end = newEnd
			if err := c.Fetcher.DownloadSegment(ctx, video.WebpageURL, start, end, clipPath); err != nil {
				c.Log.Warn().Err(err).Msg("extended download failed")
				c.record(manifest, video, start, end, 0, false, ReasonDownloadError, err.Error(), nil, attempt, "")
				return false, true, collected, end
			}
		}
	}

	tsMS := int64(start * 1000)
	prefix := fmt.Sprintf("%s_%010dms", output.Slug(video.VideoID), tsMS)

	// Budget-aware: one burst must never push the total past the target.
	remaining := cfg.TotalFrames - collected
	toExtract := min(cfg.FramesPerSample, remaining)

	framePaths, err := c.Extractor.ExtractFrames(ctx, clipPath, toExtract, cfg.OutDir, prefix, cfg.ImageFormat)
	if err != nil {
		c.Log.Warn().Err(err).Msg("frame extraction failed")
		c.record(manifest, video, start, end, 0, false, ReasonExtractError, err.Error(), nil, attempt, "")
		c.removeClip(clipPath)
		return false, true, collected, end
	}
	if len(framePaths) == 0 {
		c.record(manifest, video, start, end, 0, false, ReasonNoFrames, "", nil, attempt, "")
		c.removeClip(clipPath)
		return false, true, collected, end
	}

	// Extraction can overshoot the remaining budget; drop the trailing
	// excess from disk immediately.
	if collected+len(framePaths) > cfg.TotalFrames {
		overflow := collected + len(framePaths) - cfg.TotalFrames
		for _, p := range framePaths[len(framePaths)-overflow:] {
			os.Remove(p)
		}
		framePaths = framePaths[:len(framePaths)-overflow]
	}

	decision, gateErr := c.Gate.Evaluate(ctx, framePaths)
	if gateErr != nil {
		decision = filter.Decision{Accepted: false, Reason: "gate_error: " + gateErr.Error()}
	}

	reason := ReasonRejected
	if decision.Accepted {
		reason = ReasonAccepted
	}
	metrics := decision.Metrics
	c.record(manifest, video, start, end, len(framePaths), decision.Accepted, reason, decision.Reason, &metrics, attempt, prefix)

	if decision.Accepted {
		collected += len(framePaths)
		manifest.Totals.AcceptedBursts++
		c.Log.Info().
			Int("frames", len(framePaths)).
			Int("collected", collected).
			Int("target", cfg.TotalFrames).
			Msg("burst accepted")
	} else {
		for _, p := range framePaths {
			os.Remove(p)
		}
		manifest.Totals.RejectedBursts++
		c.Log.Info().Str("reason", decision.Reason).Msg("burst rejected")
	}

	c.removeClip(clipPath)
	return decision.Accepted, false, collected, end
}

func (c *Collector) record(manifest *Manifest, video youtube.VideoMeta, start, end float64, extracted int, accepted bool, reason Reason, detail string, metrics *filter.Metrics, attempt int, prefix string) {
	manifest.Samples = append(manifest.Samples, SampleRecord{
		VideoID:         video.VideoID,
		VideoURL:        video.WebpageURL,
		Title:           video.Title,
		UploadDate:      video.UploadDate,
		DurationS:       video.DurationS,
		Segment:         Segment{StartS: start, EndS: end},
		ExtractedFrames: extracted,
		Accepted:        accepted,
		Reason:          reason,
		Detail:          detail,
		Metrics:         metrics,
		Attempt:         attempt,
		OutputPrefix:    prefix,
	})
}

func (c *Collector) removeClip(clipPath string) {
	if c.Cfg.KeepTmp {
		return
	}
	os.Remove(clipPath)
}
