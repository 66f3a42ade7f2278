package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"golang.org/x/time/rate"

	"framesampler/internal/config"
	"framesampler/internal/filter"
	"framesampler/internal/logging"
	"framesampler/internal/media"
	"framesampler/internal/output"
	"framesampler/internal/pipeline"
	"framesampler/internal/youtube"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "clips":
		cmdClips(args)
	case "court-frames":
		cmdCourtFrames(args)
	case "check":
		cmdCheck()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `framesampler - frame curation from YouTube match footage

Usage:
  framesampler clips [flags]         Collect a fixed budget of burst frames
  framesampler court-frames [flags]  Save one best court frame per video
  framesampler check                 Verify required tools are installed
  framesampler help                  Show this help message

Configuration comes from the environment (FRAMESAMPLER_* variables, or a
.env file); flags override it for the run.

Examples:
  framesampler clips --total 500 --seed 42
  framesampler clips --channel "PPA Tour" --match singles --zip
  framesampler court-frames --max-videos 50 --min-score 0.6

For help on specific command: framesampler <command> -h
`)
}

func cmdClips(args []string) {
	cfg, log := load("clips")

	fs := flag.NewFlagSet("clips", flag.ExitOnError)
	channel := fs.String("channel", cfg.ChannelQuery, "Channel search query")
	channelURL := fs.String("channel-url", cfg.ChannelURL, "Explicit channel URL (skips search)")
	maxVideos := fs.Int("max-videos", cfg.MaxVideos, "Maximum candidate videos")
	match := fs.String("match", cfg.MatchType, "Match type filter: singles, doubles, or both")
	total := fs.Int("total", cfg.TotalFrames, "Total frames to collect")
	perBurst := fs.Int("per-burst", cfg.FramesPerSample, "Frames per burst")
	seed := fs.Int64("seed", cfg.Seed, "RNG seed for reproducible runs")
	bias := fs.String("bias", string(cfg.Bias), "Timestamp bias: hard_margin or soft_bias")
	outDir := fs.String("out", cfg.OutDir, "Frame output directory")
	makeZip := fs.Bool("zip", cfg.MakeZip, "Package collected frames into a zip")
	keepTmp := fs.Bool("keep-tmp", cfg.KeepTmp, "Keep downloaded clips in the tmp directory")
	fs.Parse(args)

	cfg.ChannelQuery = *channel
	cfg.ChannelURL = *channelURL
	cfg.MaxVideos = *maxVideos
	cfg.MatchType = *match
	cfg.TotalFrames = *total
	cfg.FramesPerSample = *perBurst
	cfg.Bias = config.BiasMode(*bias)
	cfg.OutDir = *outDir
	cfg.MakeZip = *makeZip
	cfg.KeepTmp = *keepTmp
	seedFlagSet(fs, cfg, *seed)
	if err := cfg.Validate(); err != nil {
		fatal(log, err, "invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mustTools(log, cfg.YtdlpPath, cfg.FfmpegPath, cfg.FfprobePath)

	candidates, err := discover(ctx, cfg)
	if err != nil {
		fatal(log, err, "catalog discovery failed")
	}

	runID := output.RunID(cfg.Seed, cfg.SeedSet)
	log.Info().
		Str("run_id", runID).
		Int("candidates", len(candidates)).
		Int("target", cfg.TotalFrames).
		Msg("starting collection")

	collector := &pipeline.Collector{
		Cfg: cfg,
		Fetcher: &media.Downloader{
			YtdlpPath: cfg.YtdlpPath,
			Timeout:   cfg.FetchTimeout,
			Log:       logging.WithComponent("downloader"),
		},
		Extractor: &media.Extractor{
			FfmpegPath: cfg.FfmpegPath,
			Log:        logging.WithComponent("extractor"),
		},
		Prober: &media.Prober{
			FfprobePath: cfg.FfprobePath,
			Log:         logging.WithComponent("prober"),
		},
		Gate: buildGate(cfg),
		RNG:  newRNG(cfg),
		Log:  logging.WithComponent("collector"),
	}

	collected, manifest, runErr := collector.Run(ctx, runID, candidates)

	manifestPath := filepath.Join(filepath.Dir(cfg.OutDir), "run_manifest.json")
	if err := manifest.Write(manifestPath); err != nil {
		log.Error().Err(err).Str("path", manifestPath).Msg("failed to write manifest")
	} else {
		log.Info().Str("path", manifestPath).Msg("manifest written")
	}

	if runErr != nil {
		if errors.Is(runErr, pipeline.ErrTargetUnreachable) {
			log.Error().Int("collected", collected).Msg("run ended short of target")
		}
		fatal(log, runErr, "collection failed")
	}

	if cfg.MakeZip {
		zipPath := filepath.Join(filepath.Dir(cfg.OutDir), "cvat_upload.zip")
		if err := output.ZipFrames(cfg.OutDir, zipPath); err != nil {
			fatal(log, err, "zip packaging failed")
		}
		log.Info().Str("path", zipPath).Msg("zip written")
	}

	cleanup(cfg, log)
	log.Info().Int("frames", collected).Str("dir", cfg.OutDir).Msg("done")
}

func cmdCourtFrames(args []string) {
	cfg, log := load("court-frames")

	fs := flag.NewFlagSet("court-frames", flag.ExitOnError)
	channel := fs.String("channel", cfg.ChannelQuery, "Channel search query")
	channelURL := fs.String("channel-url", cfg.ChannelURL, "Explicit channel URL (skips search)")
	maxVideos := fs.Int("max-videos", cfg.MaxVideos, "Maximum candidate videos")
	match := fs.String("match", cfg.MatchType, "Match type filter: singles, doubles, or both")
	attempts := fs.Int("attempts", cfg.Court.SampleAttempts, "Sample attempts per video")
	minScore := fs.Float64("min-score", cfg.Court.MinScore, "Minimum composite score to save a frame")
	seed := fs.Int64("seed", cfg.Seed, "RNG seed for reproducible runs")
	outDir := fs.String("out", cfg.Court.OutDir, "Court frame output directory")
	keepTmp := fs.Bool("keep-tmp", cfg.KeepTmp, "Keep temporary artifacts")
	fs.Parse(args)

	cfg.ChannelQuery = *channel
	cfg.ChannelURL = *channelURL
	cfg.MaxVideos = *maxVideos
	cfg.MatchType = *match
	cfg.Court.SampleAttempts = *attempts
	cfg.Court.MinScore = *minScore
	cfg.Court.OutDir = *outDir
	cfg.KeepTmp = *keepTmp
	seedFlagSet(fs, cfg, *seed)
	if err := cfg.Validate(); err != nil {
		fatal(log, err, "invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mustTools(log, cfg.YtdlpPath, cfg.FfmpegPath)

	candidates, err := discover(ctx, cfg)
	if err != nil {
		fatal(log, err, "catalog discovery failed")
	}

	runID := output.RunID(cfg.Seed, cfg.SeedSet)
	log.Info().
		Str("run_id", runID).
		Int("candidates", len(candidates)).
		Msg("starting court frame pass")

	collector := &pipeline.CourtCollector{
		Cfg: cfg,
		Fetcher: &media.Downloader{
			YtdlpPath: cfg.YtdlpPath,
			Timeout:   cfg.FetchTimeout,
			Log:       logging.WithComponent("downloader"),
		},
		Extractor: &media.Extractor{
			FfmpegPath: cfg.FfmpegPath,
			Log:        logging.WithComponent("extractor"),
		},
		Scorer: buildScorer(cfg),
		RNG:    newRNG(cfg),
		Log:    logging.WithComponent("court"),
	}

	saved, manifest, runErr := collector.Run(ctx, runID, candidates)

	if cfg.Court.SaveManifest {
		manifestPath := filepath.Join(cfg.Court.OutDir, "court_detection_manifest.json")
		if err := manifest.Write(manifestPath); err != nil {
			log.Error().Err(err).Str("path", manifestPath).Msg("failed to write manifest")
		} else {
			log.Info().Str("path", manifestPath).Msg("manifest written")
		}
	}

	if runErr != nil {
		fatal(log, runErr, "court frame pass failed")
	}

	cleanup(cfg, log)
	log.Info().Int("saved", saved).Str("dir", cfg.Court.OutDir).Msg("done")
}

func cmdCheck() {
	cfg, log := load("check")

	ok := true
	for _, tool := range []string{cfg.YtdlpPath, cfg.FfmpegPath, cfg.FfprobePath} {
		path, err := media.EnsureTool(tool)
		if err != nil {
			log.Error().Str("tool", tool).Msg("not found")
			ok = false
			continue
		}
		log.Info().Str("tool", tool).Str("path", path).Msg("found")
	}
	if !ok {
		os.Exit(1)
	}
}

func load(component string) (*config.Config, zerolog.Logger) {
	logging.Configure(logging.Config{})
	log := logging.WithComponent(component)

	cfg, err := config.Load()
	if err != nil {
		fatal(log, err, "invalid configuration")
	}
	return cfg, log
}

// seedFlagSet records whether --seed was given explicitly; an unset seed
// means each run draws a fresh one, and the run ID omits the seed suffix.
func seedFlagSet(fs *flag.FlagSet, cfg *config.Config, seed int64) {
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.SeedSet = true
		}
	})
	cfg.Seed = seed
}

func newRNG(cfg *config.Config) *rand.Rand {
	if cfg.SeedSet {
		return rand.New(rand.NewSource(uint64(cfg.Seed)))
	}
	return rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
}

func buildGate(cfg *config.Config) filter.Gate {
	if cfg.GateCmd != "" {
		return &filter.CommandGate{
			Path:       cfg.GateCmd,
			Thresholds: cfg.Filter,
			Log:        logging.WithComponent("gate"),
		}
	}
	return filter.PassGate{}
}

func buildScorer(cfg *config.Config) filter.Scorer {
	if cfg.ScorerCmd != "" {
		return &filter.CommandScorer{
			Path: cfg.ScorerCmd,
			Log:  logging.WithComponent("scorer"),
		}
	}
	return filter.FirstFrameScorer{}
}

func discover(ctx context.Context, cfg *config.Config) ([]youtube.VideoMeta, error) {
	log := logging.WithComponent("catalog")

	runner := youtube.NewRunner(logging.WithComponent("ytdlp"))
	runner.Path = cfg.YtdlpPath
	runner.ListTimeout = cfg.ListTimeout
	runner.DetailTimeout = cfg.DetailTimeout

	var cache *youtube.Cache
	if cfg.CacheDir != "" {
		var err error
		cache, err = youtube.NewCache(filepath.Join(cfg.CacheDir, "catalog.json"), cfg.CacheTTL, log)
		if err != nil {
			log.Warn().Err(err).Msg("cache unavailable, continuing without it")
		} else {
			defer cache.Close()
		}
	}

	// Config slack 0 is an explicit "none"; the builder's zero value means
	// "use the default".
	slack := cfg.CatalogSlack
	if slack == 0 {
		slack = youtube.NoSlack
	}

	builder := &youtube.Builder{
		Lister: runner,
		Resolver: &youtube.Resolver{
			Searcher: runner,
			Cache:    cache,
			APIKey:   cfg.APIKey,
			Log:      logging.WithComponent("resolver"),
		},
		Cache:   cache,
		Limiter: rate.NewLimiter(rate.Limit(cfg.DetailRPS), 1),
		Slack:   slack,
		Log:     log,
	}

	return builder.Discover(ctx, youtube.DiscoverRequest{
		ChannelQuery: cfg.ChannelQuery,
		ChannelURL:   cfg.ChannelURL,
		MinAgeDays:   cfg.MinAgeDays,
		MaxAgeDays:   cfg.MaxAgeDays,
		MinDurationS: cfg.MinDurationS,
		MaxVideos:    cfg.MaxVideos,
		MatchType:    matchFilter(cfg.MatchType),
	})
}

// matchFilter maps the config's "both" to no filter at all.
func matchFilter(matchType string) youtube.MatchType {
	switch matchType {
	case "singles":
		return youtube.MatchSingles
	case "doubles":
		return youtube.MatchDoubles
	default:
		return youtube.MatchUnknown
	}
}

func cleanup(cfg *config.Config, log zerolog.Logger) {
	if cfg.KeepTmp {
		return
	}
	if err := output.CleanupTmp(cfg.TmpDir); err != nil {
		log.Warn().Err(err).Str("dir", cfg.TmpDir).Msg("tmp cleanup failed")
	}
}

func mustTools(log zerolog.Logger, tools ...string) {
	for _, tool := range tools {
		if _, err := media.EnsureTool(tool); err != nil {
			fatal(log, err, "required tool missing")
		}
	}
}

func fatal(log zerolog.Logger, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	os.Exit(1)
}
