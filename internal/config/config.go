// Package config manages application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"framesampler/internal/filter"
)

// BiasMode selects the timestamp sampling distribution.
type BiasMode string

const (
	// BiasHardMargin draws uniformly across the legal interval.
	BiasHardMargin BiasMode = "hard_margin"
	// BiasSoft draws from a Beta(2.5, 2.5) mapped onto the legal interval,
	// pushing samples toward the middle of the video.
	BiasSoft BiasMode = "soft_bias"
)

// Config holds all application configuration.
type Config struct {
	// Channel / catalog settings
	ChannelQuery string `json:"channel_query"`
	ChannelURL   string `json:"channel_url"`
	MinAgeDays   int    `json:"min_age_days"`
	MaxAgeDays   int    `json:"max_age_days"`
	MaxVideos    int    `json:"max_videos"`
	MinDurationS int    `json:"min_video_duration_s"`
	MatchType    string `json:"match_type"` // singles, doubles, both

	// CatalogSlack is the number of entries added on each side of the
	// binary-search date range. It is a correctness safety margin for
	// ordering anomalies in the channel listing, not a tuning knob.
	CatalogSlack int `json:"catalog_slack"`

	// CacheTTL bounds how long cached channel resolutions and catalogs
	// stay valid. Zero or negative disables expiry.
	CacheTTL time.Duration `json:"cache_ttl"`
	CacheDir string        `json:"cache_dir"`

	// Sampling settings
	FramesPerSample    int      `json:"frames_per_sample"`
	TotalFrames        int      `json:"total_frames"`
	Seed               int64    `json:"seed"`
	SeedSet            bool     `json:"-"`
	Bias               BiasMode `json:"bias_mode"`
	IntroMarginS       float64  `json:"intro_margin_s"`
	OutroMarginS       float64  `json:"outro_margin_s"`
	BufferSeconds      float64  `json:"buffer_seconds"`
	MaxRetriesPerBurst int      `json:"max_retries_per_burst"`

	// MaxTotalAttempts caps burst attempts across the whole run so a gate
	// that rejects everything cannot spin forever. Zero derives a default
	// from TotalFrames and FramesPerSample.
	MaxTotalAttempts int `json:"max_total_attempts"`

	// Tool settings
	YtdlpPath     string        `json:"ytdlp_path"`
	FfmpegPath    string        `json:"ffmpeg_path"`
	FfprobePath   string        `json:"ffprobe_path"`
	ListTimeout   time.Duration `json:"list_timeout"`
	FetchTimeout  time.Duration `json:"fetch_timeout"`
	DetailTimeout time.Duration `json:"detail_timeout"`

	// DetailRPS throttles per-video metadata fetches during catalog
	// construction.
	DetailRPS float64 `json:"detail_rps"`

	// APIKey enables YouTube Data API channel resolution. Optional; yt-dlp
	// text search is used when empty. Never serialized: the config is
	// recorded verbatim into run manifests.
	APIKey string `json:"-"`

	// External analyzers. When empty the gate accepts every burst and the
	// scorer picks the first frame of each attempt.
	GateCmd   string            `json:"gate_cmd"`
	ScorerCmd string            `json:"scorer_cmd"`
	Filter    filter.Thresholds `json:"filter"`

	// Output settings
	OutDir      string `json:"out_dir"`
	TmpDir      string `json:"tmp_dir"`
	ImageFormat string `json:"image_format"` // jpg or png
	MakeZip     bool   `json:"make_zip"`
	KeepTmp     bool   `json:"keep_tmp"`

	// Court-frames mode settings
	Court CourtConfig `json:"court"`
}

// CourtConfig holds settings for the court-frames mode.
type CourtConfig struct {
	OutDir           string  `json:"out_dir"`
	FrameFormat      string  `json:"frame_format"`
	SampleAttempts   int     `json:"sample_attempts"`
	IntroMarginS     float64 `json:"intro_margin_s"`
	OutroMarginS     float64 `json:"outro_margin_s"`
	SegmentSeconds   float64 `json:"segment_seconds"`
	FramesPerAttempt int     `json:"frames_per_attempt"`
	MinScore         float64 `json:"min_score"`
	SaveManifest     bool    `json:"save_manifest"`
}

// Default returns configuration with safe defaults.
func Default() *Config {
	return &Config{
		ChannelQuery:       "PPA Tour",
		MinAgeDays:         0,
		MaxAgeDays:         365,
		MaxVideos:          200,
		MinDurationS:       120,
		MatchType:          "both",
		CatalogSlack:       5,
		CacheTTL:           24 * time.Hour,
		CacheDir:           "output/.cache",
		FramesPerSample:    20,
		TotalFrames:        500,
		Bias:               BiasSoft,
		IntroMarginS:       15.0,
		OutroMarginS:       15.0,
		BufferSeconds:      1.0,
		MaxRetriesPerBurst: 5,
		YtdlpPath:          "yt-dlp",
		FfmpegPath:         "ffmpeg",
		FfprobePath:        "ffprobe",
		ListTimeout:        5 * time.Minute,
		FetchTimeout:       5 * time.Minute,
		DetailTimeout:      30 * time.Second,
		DetailRPS:          2.0,
		Filter:             filter.DefaultThresholds(),
		OutDir:             "output/frames",
		TmpDir:             "output/tmp",
		ImageFormat:        "jpg",
		Court: CourtConfig{
			OutDir:           "output/court_detections",
			FrameFormat:      "jpg",
			SampleAttempts:   5,
			IntroMarginS:     20.0,
			OutroMarginS:     20.0,
			SegmentSeconds:   2.0,
			FramesPerAttempt: 3,
			MinScore:         0.45,
			SaveManifest:     true,
		},
	}
}

// Load returns defaults overridden by a .env file (if present) and
// environment variables. Priority: env vars > .env > defaults.
func Load() (*Config, error) {
	cfg := Default()

	// .env is optional; godotenv never overrides variables that are
	// already set in the environment.
	_ = godotenv.Load()

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	setStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setDur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	setStr("FRAMESAMPLER_CHANNEL_QUERY", &c.ChannelQuery)
	setStr("FRAMESAMPLER_CHANNEL_URL", &c.ChannelURL)
	setInt("FRAMESAMPLER_MIN_AGE_DAYS", &c.MinAgeDays)
	setInt("FRAMESAMPLER_MAX_AGE_DAYS", &c.MaxAgeDays)
	setInt("FRAMESAMPLER_MAX_VIDEOS", &c.MaxVideos)
	setInt("FRAMESAMPLER_MIN_DURATION_S", &c.MinDurationS)
	setInt("FRAMESAMPLER_CATALOG_SLACK", &c.CatalogSlack)
	setDur("FRAMESAMPLER_CACHE_TTL", &c.CacheTTL)
	setStr("FRAMESAMPLER_CACHE_DIR", &c.CacheDir)
	setInt("FRAMESAMPLER_FRAMES_PER_SAMPLE", &c.FramesPerSample)
	setInt("FRAMESAMPLER_TOTAL_FRAMES", &c.TotalFrames)
	setFloat("FRAMESAMPLER_INTRO_MARGIN_S", &c.IntroMarginS)
	setFloat("FRAMESAMPLER_OUTRO_MARGIN_S", &c.OutroMarginS)
	setFloat("FRAMESAMPLER_BUFFER_SECONDS", &c.BufferSeconds)
	setInt("FRAMESAMPLER_MAX_RETRIES_PER_BURST", &c.MaxRetriesPerBurst)
	setInt("FRAMESAMPLER_MAX_TOTAL_ATTEMPTS", &c.MaxTotalAttempts)
	setStr("FRAMESAMPLER_YTDLP_PATH", &c.YtdlpPath)
	setStr("FRAMESAMPLER_FFMPEG_PATH", &c.FfmpegPath)
	setStr("FRAMESAMPLER_FFPROBE_PATH", &c.FfprobePath)
	setDur("FRAMESAMPLER_LIST_TIMEOUT", &c.ListTimeout)
	setDur("FRAMESAMPLER_FETCH_TIMEOUT", &c.FetchTimeout)
	setDur("FRAMESAMPLER_DETAIL_TIMEOUT", &c.DetailTimeout)
	setFloat("FRAMESAMPLER_DETAIL_RPS", &c.DetailRPS)
	setStr("FRAMESAMPLER_API_KEY", &c.APIKey)
	setStr("FRAMESAMPLER_GATE_CMD", &c.GateCmd)
	setStr("FRAMESAMPLER_SCORER_CMD", &c.ScorerCmd)
	setStr("FRAMESAMPLER_OUT_DIR", &c.OutDir)
	setStr("FRAMESAMPLER_TMP_DIR", &c.TmpDir)
	setStr("FRAMESAMPLER_IMAGE_FORMAT", &c.ImageFormat)
	setBool("FRAMESAMPLER_MAKE_ZIP", &c.MakeZip)
	setBool("FRAMESAMPLER_KEEP_TMP", &c.KeepTmp)

	if v := os.Getenv("FRAMESAMPLER_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = n
			c.SeedSet = true
		}
	}
	if v := os.Getenv("FRAMESAMPLER_BIAS_MODE"); v != "" {
		c.Bias = BiasMode(v)
	}
	if v := os.Getenv("FRAMESAMPLER_MATCH_TYPE"); v != "" {
		c.MatchType = v
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.FramesPerSample <= 0 {
		return fmt.Errorf("frames_per_sample must be positive")
	}
	if c.TotalFrames <= 0 {
		return fmt.Errorf("total_frames must be positive")
	}
	if c.MinAgeDays < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("age bounds must be non-negative")
	}
	if c.MinAgeDays > c.MaxAgeDays {
		return fmt.Errorf("min_age_days must be <= max_age_days")
	}
	if c.MaxVideos <= 0 {
		return fmt.Errorf("max_videos must be positive")
	}
	if c.MinDurationS < 0 {
		return fmt.Errorf("min_video_duration_s must be non-negative")
	}
	if c.CatalogSlack < 0 {
		return fmt.Errorf("catalog_slack must be non-negative")
	}
	if c.MaxRetriesPerBurst <= 0 {
		return fmt.Errorf("max_retries_per_burst must be positive")
	}
	if c.MaxTotalAttempts < 0 {
		return fmt.Errorf("max_total_attempts must be non-negative")
	}
	if c.Bias != BiasHardMargin && c.Bias != BiasSoft {
		return fmt.Errorf("bias_mode must be %q or %q", BiasHardMargin, BiasSoft)
	}
	switch c.MatchType {
	case "singles", "doubles", "both":
	default:
		return fmt.Errorf("match_type must be singles, doubles, or both")
	}
	switch c.ImageFormat {
	case "jpg", "png":
	default:
		return fmt.Errorf("image_format must be jpg or png")
	}
	if c.Court.SampleAttempts <= 0 {
		return fmt.Errorf("court sample_attempts must be positive")
	}
	if c.Court.FramesPerAttempt <= 0 {
		return fmt.Errorf("court frames_per_attempt must be positive")
	}
	if c.Court.MinScore < 0 || c.Court.MinScore > 1 {
		return fmt.Errorf("court min_score must be in [0, 1]")
	}
	return nil
}

// AttemptCeiling returns the effective cap on total burst attempts for a
// run. With no explicit cap it scales with the number of accepted bursts
// the target requires.
func (c *Config) AttemptCeiling() int {
	if c.MaxTotalAttempts > 0 {
		return c.MaxTotalAttempts
	}
	bursts := (c.TotalFrames + c.FramesPerSample - 1) / c.FramesPerSample
	return 50 * bursts
}
