package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"framesampler/internal/config"
	"framesampler/internal/filter"
	"framesampler/internal/output"
	"framesampler/internal/sampling"
	"framesampler/internal/youtube"
)

// CourtCollector reduces each candidate video to at most one representative
// frame: it samples up to Cfg.Court.SampleAttempts segments, scores the
// extracted frames, and keeps only the highest-composite frame per video.
//
// The current best frame is tracked as a held directory on disk rather
// than a score alone, so promotion at the end is a copy of a file that
// still exists. A new attempt supersedes the held best only on strict
// improvement; ties keep the earlier frame.
type CourtCollector struct {
	Cfg       *config.Config
	Fetcher   Fetcher
	Extractor Extractor
	Scorer    filter.Scorer
	RNG       *rand.Rand
	Log       zerolog.Logger
}

// heldBest is the per-video best candidate held on disk until promotion.
type heldBest struct {
	framePath string
	dir       string
	score     float64
	tsS       float64
}

// Run processes every candidate and returns the number of frames saved to
// Cfg.Court.OutDir plus the court manifest. Videos whose best composite
// stays below Cfg.Court.MinScore are recorded as skipped.
func (c *CourtCollector) Run(ctx context.Context, runID string, candidates []youtube.VideoMeta) (int, *Manifest, error) {
	cfg := c.Cfg
	manifest := NewManifest(runID, "court-frames", cfg, len(candidates))

	saved := 0
	for i, video := range candidates {
		if err := ctx.Err(); err != nil {
			manifest.Totals.FramesWritten = saved
			return saved, manifest, err
		}

		best := c.bestForVideo(ctx, manifest, i, video)

		result := CourtResult{
			VideoID:    video.VideoID,
			VideoURL:   video.WebpageURL,
			Title:      video.Title,
			UploadDate: video.UploadDate,
			DurationS:  video.DurationS,
			MatchType:  youtube.ClassifyMatchType(video.Title),
			Status:     CourtSkipped,
		}
		if best != nil {
			ts := best.tsS
			score := best.score
			result.TimestampS = &ts
			result.CompositeScore = &score

			if score >= cfg.Court.MinScore {
				outPath := filepath.Join(cfg.Court.OutDir, output.FrameName(video.VideoID, ts, cfg.Court.FrameFormat))
				if err := copyFile(best.framePath, outPath); err != nil {
					c.Log.Warn().Str("video", video.VideoID).Err(err).Msg("failed to save court frame")
				} else {
					result.Status = CourtSaved
					result.Filename = filepath.Base(outPath)
					saved++
				}
			} else {
				c.Log.Info().
					Str("video", video.VideoID).
					Float64("score", score).
					Float64("min_score", cfg.Court.MinScore).
					Msg("best frame below score threshold")
			}
			os.RemoveAll(best.dir)
		}

		manifest.Results = append(manifest.Results, result)
		manifest.Totals.VideosProcessed++
		if result.Status == CourtSaved {
			manifest.Totals.FramesSaved++
		} else {
			manifest.Totals.VideosSkipped++
		}
		manifest.Totals.FramesWritten = saved
	}

	c.Log.Info().
		Int("saved", saved).
		Int("videos", len(candidates)).
		Msg("court frame pass complete")
	return saved, manifest, nil
}

// bestForVideo runs the per-video attempt loop and returns the held best,
// or nil when no attempt produced a scorable frame.
func (c *CourtCollector) bestForVideo(ctx context.Context, manifest *Manifest, idx int, video youtube.VideoMeta) *heldBest {
	cfg := c.Cfg
	var best *heldBest

	for attempt := 1; attempt <= cfg.Court.SampleAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}

		segLen := cfg.Court.SegmentSeconds
		start := sampling.SampleTimestamp(sampling.Params{
			DurationS:    video.DurationS,
			SegmentLenS:  segLen,
			IntroMarginS: cfg.Court.IntroMarginS,
			OutroMarginS: cfg.Court.OutroMarginS,
			Bias:         cfg.Bias,
		}, c.RNG)
		end := min(video.DurationS, start+segLen)

		attemptDir := filepath.Join(cfg.TmpDir, fmt.Sprintf("court_%s_v%03d_a%02d", output.Slug(video.VideoID), idx, attempt))
		if err := os.MkdirAll(attemptDir, 0o755); err != nil {
			c.Log.Warn().Err(err).Msg("cannot create attempt dir")
			continue
		}
		clipPath := filepath.Join(attemptDir, "clip.mp4")

		if err := c.Fetcher.DownloadSegment(ctx, video.WebpageURL, start, end, clipPath); err != nil {
			c.Log.Warn().
				Str("video", video.VideoID).
				Int("attempt", attempt).
				Err(err).
				Msg("court segment download failed")
			c.recordAttempt(manifest, video, start, end, 0, ReasonDownloadError, err.Error(), attempt)
			os.RemoveAll(attemptDir)
			continue
		}

		prefix := fmt.Sprintf("%s_%010dms", output.Slug(video.VideoID), int64(start*1000))
		framePaths, err := c.Extractor.ExtractFrames(ctx, clipPath, cfg.Court.FramesPerAttempt, attemptDir, prefix, cfg.Court.FrameFormat)
		if err != nil {
			c.recordAttempt(manifest, video, start, end, 0, ReasonExtractError, err.Error(), attempt)
			os.RemoveAll(attemptDir)
			continue
		}
		if len(framePaths) == 0 {
			c.recordAttempt(manifest, video, start, end, 0, ReasonNoFrames, "", attempt)
			os.RemoveAll(attemptDir)
			continue
		}

		candidate, err := c.Scorer.PickBest(ctx, framePaths)
		if err != nil || candidate == nil {
			detail := ""
			if err != nil {
				detail = err.Error()
			}
			c.recordAttempt(manifest, video, start, end, len(framePaths), ReasonRejected, detail, attempt)
			os.RemoveAll(attemptDir)
			continue
		}

		c.recordAttempt(manifest, video, start, end, len(framePaths), ReasonAccepted, "", attempt)
		os.Remove(clipPath)

		// Strict improvement only; the superseded held directory goes with
		// its frame.
		if best == nil || candidate.Score.Composite > best.score {
			if best != nil {
				os.RemoveAll(best.dir)
			}
			best = &heldBest{
				framePath: candidate.Path,
				dir:       attemptDir,
				score:     candidate.Score.Composite,
				tsS:       start,
			}
		} else {
			os.RemoveAll(attemptDir)
		}
	}

	return best
}

func (c *CourtCollector) recordAttempt(manifest *Manifest, video youtube.VideoMeta, start, end float64, extracted int, reason Reason, detail string, attempt int) {
	manifest.Samples = append(manifest.Samples, SampleRecord{
		VideoID:         video.VideoID,
		VideoURL:        video.WebpageURL,
		Title:           video.Title,
		UploadDate:      video.UploadDate,
		DurationS:       video.DurationS,
		Segment:         Segment{StartS: start, EndS: end},
		ExtractedFrames: extracted,
		Accepted:        reason == ReasonAccepted,
		Reason:          reason,
		Detail:          detail,
		Attempt:         attempt,
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
