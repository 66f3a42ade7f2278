// Package youtube provides channel resolution, video catalog construction,
// and catalog caching on top of yt-dlp.
package youtube

import (
	"errors"
	"regexp"
	"strings"
)

// Sentinel errors for catalog operations.
var (
	// ErrNoEligibleVideos indicates catalog construction produced an empty
	// candidate set.
	ErrNoEligibleVideos = errors.New("youtube: no eligible videos")
	// ErrNoMatchingVideos indicates the match-type filter emptied the set.
	ErrNoMatchingVideos = errors.New("youtube: no videos of requested match type")
)

// VideoMeta describes one eligible channel video. Immutable once built.
type VideoMeta struct {
	// VideoID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	VideoID string `json:"video_id"`

	// Title is the video title.
	Title string `json:"title"`

	// WebpageURL is the full watch URL.
	WebpageURL string `json:"webpage_url"`

	// DurationS is the video length in seconds.
	DurationS float64 `json:"duration_s"`

	// UploadDate is the upload day as YYYYMMDD. The fixed width makes
	// lexicographic order equal to date order, which the catalog's binary
	// search and the cache keys rely on.
	UploadDate string `json:"upload_date"`
}

// MatchType classifies a video by the kind of match its title describes.
type MatchType string

const (
	MatchSingles MatchType = "singles"
	MatchDoubles MatchType = "doubles"
	MatchUnknown MatchType = "unknown"
)

// vsSeparator matches the versus divider between player names in match
// titles ("A vs B", "A vs. B", "A v B").
var vsSeparator = regexp.MustCompile(`(?i)\s+vs?\.?\s+`)

// ClassifyMatchType derives a match type from a video title. Doubles titles
// name teams with slash notation ("Johns/Johns vs Tardio/Tardio") or say
// "doubles" outright; singles titles name one player per side.
func ClassifyMatchType(title string) MatchType {
	lower := strings.ToLower(title)

	if strings.Contains(lower, "doubles") {
		return MatchDoubles
	}
	if strings.Contains(lower, "singles") {
		return MatchSingles
	}

	sides := vsSeparator.Split(title, 2)
	if len(sides) != 2 {
		return MatchUnknown
	}
	if strings.Contains(sides[0], "/") || strings.Contains(sides[1], "/") {
		return MatchDoubles
	}
	return MatchSingles
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
