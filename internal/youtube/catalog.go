package youtube

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const dateLayout = "20060102"

// defaultSlack is the number of entries added on each side of the
// binary-search range. Channel listings are assumed newest-first, but minor
// ordering anomalies occur; the slack is a correctness safety margin, not
// an optimization.
const defaultSlack = 5

// NoSlack disables the binary-search range expansion when assigned to
// Builder.Slack.
const NoSlack = -1

// Lister is the subset of the yt-dlp runner the catalog builder consumes.
type Lister interface {
	FlatPlaylist(ctx context.Context, channelURL string) ([]FlatEntry, error)
	Detail(ctx context.Context, videoURL string) (*VideoDetail, error)
}

// DiscoverRequest carries every parameter that affects candidate
// eligibility.
type DiscoverRequest struct {
	ChannelQuery string
	ChannelURL   string // explicit URL; skips resolution when set
	MinAgeDays   int
	MaxAgeDays   int
	MinDurationS int
	MaxVideos    int
	MatchType    MatchType // empty or MatchUnknown means no filter
}

// Builder constructs the eligible video catalog for a channel.
//
// The flat channel listing is cheap; per-video detail fetches are not. When
// the listing already carries upload dates the whole list is filtered in
// memory (fast path). Otherwise the builder binary-searches the
// newest-first listing for the two date boundaries, costing O(log n) detail
// fetches per boundary instead of O(n) (slow path).
type Builder struct {
	Lister   Lister
	Resolver *Resolver
	Cache    *Cache

	// Limiter throttles per-video detail fetches.
	Limiter *rate.Limiter

	// Slack expands the binary-search index range on both sides to absorb
	// ordering noise in the listing. Zero means the default, so a
	// zero-value Builder keeps the safety margin; use NoSlack to disable
	// the expansion entirely.
	Slack int

	Log zerolog.Logger

	// Now is swappable for tests. Nil means time.Now.
	Now func() time.Time
}

// Discover resolves the channel, narrows its listing to the eligible
// candidate set, and caches the result. Returns ErrNoEligibleVideos when
// nothing qualifies, and ErrNoMatchingVideos when the match-type filter
// empties a non-empty set.
func (b *Builder) Discover(ctx context.Context, req DiscoverRequest) ([]VideoMeta, error) {
	channelURL := req.ChannelURL
	if channelURL == "" {
		channelURL = b.Resolver.Resolve(ctx, req.ChannelQuery)
	}

	key := CatalogKey{
		ChannelURL:   channelURL,
		MaxAgeDays:   req.MaxAgeDays,
		MinAgeDays:   req.MinAgeDays,
		MinDurationS: req.MinDurationS,
		MaxVideos:    req.MaxVideos,
	}

	var eligible []VideoMeta
	if b.Cache != nil {
		eligible = b.Cache.Catalog(key)
	}

	if eligible == nil {
		var err error
		eligible, err = b.build(ctx, channelURL, req)
		if err != nil {
			return nil, err
		}
		if b.Cache != nil && len(eligible) > 0 {
			if err := b.Cache.SetCatalog(key, eligible); err != nil {
				b.Log.Warn().Err(err).Msg("failed to cache catalog")
			}
		}
	}

	if len(eligible) > req.MaxVideos {
		eligible = eligible[:req.MaxVideos]
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleVideos
	}

	if req.MatchType == MatchSingles || req.MatchType == MatchDoubles {
		filtered := make([]VideoMeta, 0, len(eligible))
		for _, v := range eligible {
			if ClassifyMatchType(v.Title) == req.MatchType {
				filtered = append(filtered, v)
			}
		}
		b.Log.Info().
			Int("before", len(eligible)).
			Int("after", len(filtered)).
			Str("match_type", string(req.MatchType)).
			Msg("filtered candidates by match type")
		if len(filtered) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoMatchingVideos, req.MatchType)
		}
		eligible = filtered
	}

	return eligible, nil
}

func (b *Builder) build(ctx context.Context, channelURL string, req DiscoverRequest) ([]VideoMeta, error) {
	b.Log.Info().Str("channel", channelURL).Msg("fetching channel video listing")

	entries, err := b.Lister.FlatPlaylist(ctx, channelURL)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		b.Log.Warn().Msg("channel listing is empty")
		return nil, nil
	}

	now := b.now().UTC()
	oldestDate := now.AddDate(0, 0, -req.MaxAgeDays).Format(dateLayout)
	newestDate := ""
	if req.MinAgeDays > 0 {
		newestDate = now.AddDate(0, 0, -req.MinAgeDays).Format(dateLayout)
	}

	// Pre-filter by duration where the listing already knows it. Free and
	// local; unknown durations survive for the detail fetch to decide.
	filtered := entries[:0:0]
	for _, e := range entries {
		if e.Duration == nil || *e.Duration >= float64(req.MinDurationS) {
			filtered = append(filtered, e)
		}
	}

	var eligible []VideoMeta
	if entriesHaveUploadDate(filtered) {
		b.Log.Info().Msg("fast path: listing carries upload dates, filtering in memory")
		eligible = b.filterByDateRange(ctx, filtered, oldestDate, newestDate, req)
	} else {
		b.Log.Info().Msg("slow path: binary searching date boundaries")
		eligible = b.searchAndCollect(ctx, filtered, oldestDate, newestDate, req)
	}

	b.Log.Info().
		Int("eligible", len(eligible)).
		Int("total", len(entries)).
		Msg("catalog built")
	return eligible, nil
}

// entriesHaveUploadDate samples the first few entries to detect fast-path
// eligibility.
func entriesHaveUploadDate(entries []FlatEntry) bool {
	sample := entries
	if len(sample) > 3 {
		sample = sample[:3]
	}
	if len(sample) == 0 {
		return false
	}
	for _, e := range sample {
		if e.UploadDate == "" {
			return false
		}
	}
	return true
}

// filterByDateRange is the fast path: filter in memory, detail-fetching
// only entries whose duration the listing did not expose.
func (b *Builder) filterByDateRange(ctx context.Context, entries []FlatEntry, oldestDate, newestDate string, req DiscoverRequest) []VideoMeta {
	var eligible []VideoMeta

	for _, entry := range entries {
		if len(eligible) >= req.MaxVideos {
			break
		}
		if entry.ID == "" || entry.UploadDate == "" {
			continue
		}
		if entry.UploadDate < oldestDate {
			continue
		}
		if newestDate != "" && entry.UploadDate > newestDate {
			continue
		}

		uploadDate := entry.UploadDate
		duration := entry.Duration
		title := entry.Title

		if duration == nil {
			detail, err := b.fetchDetail(ctx, entry.WatchURL())
			if err != nil {
				b.Log.Debug().Str("video", entry.ID).Err(err).Msg("detail fetch failed, skipping")
				continue
			}
			duration = detail.Duration
			if detail.UploadDate != "" {
				uploadDate = detail.UploadDate
			}
			if detail.Title != "" {
				title = detail.Title
			}
		}

		if duration == nil || *duration < float64(req.MinDurationS) {
			continue
		}

		eligible = append(eligible, VideoMeta{
			VideoID:    entry.ID,
			Title:      title,
			WebpageURL: entry.WatchURL(),
			DurationS:  *duration,
			UploadDate: uploadDate,
		})
	}

	return eligible
}

// searchAndCollect is the slow path: binary search for the date boundaries,
// expand by slack, then detail-fetch the narrowed slice.
func (b *Builder) searchAndCollect(ctx context.Context, entries []FlatEntry, oldestDate, newestDate string, req DiscoverRequest) []VideoMeta {
	rangeStart := 0
	if newestDate != "" {
		rangeStart = b.searchDateBoundary(ctx, entries, newestDate, true)
	}
	rangeEnd := b.searchDateBoundary(ctx, entries, oldestDate, false)

	slack := b.slack()
	rangeStart = max(0, rangeStart-slack)
	rangeEnd = min(len(entries), rangeEnd+slack)

	b.Log.Info().
		Int("start", rangeStart).
		Int("end", rangeEnd).
		Int("total", len(entries)).
		Msg("binary search narrowed listing")

	var eligible []VideoMeta
	for _, entry := range entries[rangeStart:rangeEnd] {
		if len(eligible) >= req.MaxVideos {
			break
		}
		if entry.ID == "" {
			continue
		}

		detail, err := b.fetchDetail(ctx, entry.WatchURL())
		if err != nil {
			b.Log.Debug().Str("video", entry.ID).Err(err).Msg("detail fetch failed, skipping")
			continue
		}

		uploadDate := detail.UploadDate
		if uploadDate == "" {
			uploadDate = entry.UploadDate
		}
		duration := detail.Duration
		if duration == nil {
			duration = entry.Duration
		}
		title := detail.Title
		if title == "" {
			title = entry.Title
		}

		if uploadDate == "" || duration == nil {
			continue
		}
		if *duration < float64(req.MinDurationS) {
			continue
		}
		if uploadDate < oldestDate {
			continue
		}
		if newestDate != "" && uploadDate > newestDate {
			continue
		}

		eligible = append(eligible, VideoMeta{
			VideoID:    entry.ID,
			Title:      title,
			WebpageURL: entry.WatchURL(),
			DurationS:  *duration,
			UploadDate: uploadDate,
		})
	}

	return eligible
}

// searchDateBoundary binary searches a newest-first entry list for a date
// boundary, detail-fetching only probed midpoints.
//
// findOlder=true: first index whose upload date <= targetDate (start of
// "old enough" entries, for the minimum age). findOlder=false: first index
// whose upload date < targetDate (start of "too old" entries, for the
// maximum age). Returns len(entries) if the boundary is never reached.
//
// Correctness requires dates monotonically non-increasing over the list;
// the caller's slack expansion is the only safety net when they are not.
func (b *Builder) searchDateBoundary(ctx context.Context, entries []FlatEntry, targetDate string, findOlder bool) int {
	lo, hi := 0, len(entries)-1
	result := len(entries)

	for lo <= hi {
		mid := (lo + hi) / 2
		date := b.fetchDate(ctx, entries[mid])

		if date == "" {
			// Probe failed; treat the entry as too new and move on.
			lo = mid + 1
			continue
		}

		var isPast bool
		if findOlder {
			isPast = date <= targetDate
		} else {
			isPast = date < targetDate
		}

		if isPast {
			result = mid
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}

	return result
}

// fetchDate returns the upload date for an entry, preferring what the
// listing already carries over a detail fetch. Empty on failure.
func (b *Builder) fetchDate(ctx context.Context, entry FlatEntry) string {
	if entry.UploadDate != "" {
		return entry.UploadDate
	}
	detail, err := b.fetchDetail(ctx, entry.WatchURL())
	if err != nil {
		return ""
	}
	return detail.UploadDate
}

func (b *Builder) fetchDetail(ctx context.Context, videoURL string) (*VideoDetail, error) {
	if b.Limiter != nil {
		if err := b.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return b.Lister.Detail(ctx, videoURL)
}

func (b *Builder) slack() int {
	if b.Slack == 0 {
		return defaultSlack
	}
	if b.Slack < 0 {
		return 0
	}
	return b.Slack
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}
