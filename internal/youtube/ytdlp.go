package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"framesampler/internal/retry"
)

const (
	defaultYtdlpPath     = "yt-dlp"
	defaultListTimeout   = 5 * time.Minute
	defaultDetailTimeout = 30 * time.Second
)

// Runner wraps yt-dlp subprocess invocations used during catalog
// construction: the flat channel listing, per-video detail fetches, and
// text search.
type Runner struct {
	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string

	// ListTimeout bounds the flat-playlist fetch. Defaults to 5 minutes.
	ListTimeout time.Duration

	// DetailTimeout bounds a single per-video detail fetch.
	DetailTimeout time.Duration

	// RetryConfig holds retry behavior for the flat-playlist fetch. Detail
	// fetches are never retried.
	RetryConfig *retry.Config

	Log zerolog.Logger
}

// NewRunner creates a yt-dlp runner with default timeouts.
func NewRunner(log zerolog.Logger) *Runner {
	cfg := retry.DefaultConfig()
	return &Runner{
		Path:          defaultYtdlpPath,
		ListTimeout:   defaultListTimeout,
		DetailTimeout: defaultDetailTimeout,
		RetryConfig:   &cfg,
		Log:           log,
	}
}

// FlatEntry is one row of a channel's flat-playlist listing. Duration and
// UploadDate may be absent depending on what the listing exposes.
type FlatEntry struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Duration   *float64 `json:"duration"`
	UploadDate string   `json:"upload_date"`
}

// WatchURL returns the entry's watch URL, synthesizing one from the ID when
// the listing did not carry a URL.
func (e FlatEntry) WatchURL() string {
	if e.URL != "" {
		return e.URL
	}
	return WatchURL(e.ID)
}

// flatPlaylist is the shape of yt-dlp's --flat-playlist -J output.
type flatPlaylist struct {
	Entries []FlatEntry `json:"entries"`
}

// VideoDetail is the subset of a full per-video metadata dump the catalog
// needs.
type VideoDetail struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Duration   *float64 `json:"duration"`
	UploadDate string   `json:"upload_date"`
}

// SearchEntry is one result of a yt-dlp text search.
type SearchEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ChannelURL  string `json:"channel_url"`
	UploaderURL string `json:"uploader_url"`
}

// FlatPlaylist fetches all entries from a channel's videos tab via
// `--flat-playlist -J`. This is the one unconditionally cheap listing call;
// it is retried on transient failures.
func (r *Runner) FlatPlaylist(ctx context.Context, channelURL string) ([]FlatEntry, error) {
	url := normalizeChannelURL(channelURL)

	var entries []FlatEntry
	cfg := r.retryConfig()
	err := retry.Do(ctx, cfg, nil, func(ctx context.Context) error {
		out, err := r.runJSON(ctx, r.listTimeout(), "--no-warnings", "--flat-playlist", "-J", url)
		if err != nil {
			return err
		}
		var playlist flatPlaylist
		if err := json.Unmarshal(out, &playlist); err != nil {
			return fmt.Errorf("parse playlist JSON: %w", err)
		}
		entries = playlist.Entries
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list channel %s: %w", url, err)
	}
	return entries, nil
}

// Detail fetches full metadata for a single video URL. Failures are the
// caller's problem; there is no retry.
func (r *Runner) Detail(ctx context.Context, videoURL string) (*VideoDetail, error) {
	out, err := r.runJSON(ctx, r.detailTimeout(), "--no-warnings", "--skip-download", "-J", videoURL)
	if err != nil {
		return nil, err
	}
	var detail VideoDetail
	if err := json.Unmarshal(out, &detail); err != nil {
		return nil, fmt.Errorf("parse detail JSON: %w", err)
	}
	return &detail, nil
}

// Search runs a bounded yt-dlp text search ("ytsearchN:query") and returns
// the flat results.
func (r *Runner) Search(ctx context.Context, query string, limit int) ([]SearchEntry, error) {
	target := fmt.Sprintf("ytsearch%d:%s", limit, query)
	out, err := r.runJSON(ctx, r.detailTimeout()*2, "--no-warnings", "--flat-playlist", "-J", target)
	if err != nil {
		return nil, err
	}
	var results struct {
		Entries []SearchEntry `json:"entries"`
	}
	if err := json.Unmarshal(out, &results); err != nil {
		return nil, fmt.Errorf("parse search JSON: %w", err)
	}
	return results.Entries, nil
}

// CheckInstalled verifies the yt-dlp binary is runnable.
func (r *Runner) CheckInstalled(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.path(), "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp not installed or not runnable at %q: %w", r.path(), err)
	}
	return nil
}

func (r *Runner) runJSON(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, r.path(), args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Log.Debug().Strs("args", args).Msg("running yt-dlp")

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("yt-dlp: %w: %s", err, firstLine(msg))
		}
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}
	return stdout.Bytes(), nil
}

func (r *Runner) path() string {
	if r.Path == "" {
		return defaultYtdlpPath
	}
	return r.Path
}

func (r *Runner) listTimeout() time.Duration {
	if r.ListTimeout == 0 {
		return defaultListTimeout
	}
	return r.ListTimeout
}

func (r *Runner) detailTimeout() time.Duration {
	if r.DetailTimeout == 0 {
		return defaultDetailTimeout
	}
	return r.DetailTimeout
}

func (r *Runner) retryConfig() retry.Config {
	if r.RetryConfig != nil {
		return *r.RetryConfig
	}
	return retry.DefaultConfig()
}

// normalizeChannelURL appends the /videos tab to a channel URL or handle.
func normalizeChannelURL(channelURL string) string {
	url := strings.TrimSuffix(channelURL, "/")
	if strings.HasSuffix(url, "/videos") {
		return url
	}
	if !strings.Contains(url, "youtube.com") {
		// Bare channel ID or handle
		if strings.HasPrefix(url, "@") {
			url = "https://www.youtube.com/" + url
		} else {
			url = "https://www.youtube.com/channel/" + url
		}
	}
	return url + "/videos"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
