// Package framesampler curates training images from YouTube match footage.
//
// It drives yt-dlp, ffmpeg, and ffprobe as subprocesses to turn a channel's
// recent uploads into a bounded, reproducible set of frames for manual
// labeling. Two modes are available through cmd/framesampler:
//
//   - clips: collect exactly N frames across many short randomly sampled
//     bursts, each burst checked by a quality gate
//   - court-frames: save at most one best representative frame per eligible
//     video, ranked by a court-presence scorer
//
// # Overview
//
// A run proceeds in two phases. Catalog discovery resolves the channel,
// lists its uploads, and narrows them to eligible candidates by age,
// duration, and match type; when the listing lacks upload dates the
// builder binary-searches the date boundaries so only O(log n) per-video
// metadata fetches are needed. Collection then repeatedly samples a
// timestamp inside each picked video, downloads just that segment, and
// extracts a burst of consecutive frames, until the frame budget is met.
//
// Runs are reproducible: with a fixed seed the sequence of video picks and
// sampled timestamps is identical across runs against the same candidate
// set.
//
// # Configuration
//
// Settings load from the environment (FRAMESAMPLER_* variables), an
// optional .env file, and defaults, in that priority order. CLI flags
// override all three for a single run. See internal/config for the full
// set.
//
// # Dependencies
//
// framesampler requires yt-dlp, ffmpeg, and ffprobe to be installed and
// available in PATH, or pointed at via FRAMESAMPLER_YTDLP_PATH,
// FRAMESAMPLER_FFMPEG_PATH, and FRAMESAMPLER_FFPROBE_PATH.
//
// Install yt-dlp: https://github.com/yt-dlp/yt-dlp
package framesampler
