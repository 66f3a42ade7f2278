// Package output handles run identity, file naming, archive packaging, and
// temporary-directory cleanup.
package output

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxSlugLen = 200

var (
	unsafeChars    = regexp.MustCompile(`[^\w\-.]`)
	repeatedUnders = regexp.MustCompile(`_+`)
)

// Slug converts text to a filesystem-safe slug. Unsafe characters become
// underscores, runs of underscores collapse, and the result is capped at
// 200 characters. Empty input yields "item".
func Slug(text string) string {
	s := unsafeChars.ReplaceAllString(text, "_")
	s = repeatedUnders.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	if s == "" {
		return "item"
	}
	return s
}

// FrameName builds the output filename for a saved frame: the video's slug
// plus the segment start in milliseconds, zero-padded so names sort
// chronologically within a video.
func FrameName(videoID string, timestampS float64, ext string) string {
	ms := int64(timestampS * 1000)
	return fmt.Sprintf("%s_%010dms.%s", Slug(videoID), ms, ext)
}

// RunID generates a unique run identifier: UTC timestamp, the seed when one
// was fixed, and a short random suffix so concurrent runs cannot collide.
func RunID(seed int64, seedSet bool) string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05Z")
	suffix := uuid.NewString()[:8]
	if seedSet {
		return fmt.Sprintf("%s_seed%d_%s", ts, seed, suffix)
	}
	return fmt.Sprintf("%s_%s", ts, suffix)
}
