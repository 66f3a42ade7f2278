package youtube

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"framesampler/internal/storage"
)

const (
	bucketChannelURLs   = "channel_urls"
	bucketVideoCatalogs = "video_catalogs"
)

// Cache persists resolved channel URLs and eligible video catalogs so
// repeated runs skip the expensive yt-dlp lookups.
//
// Entries expire after TTL; a TTL <= 0 disables expiry. A single policy
// with one knob, rather than separate TTL and infinite variants.
type Cache struct {
	store *storage.KVStore
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCache opens a cache backed by a JSON KV store at path.
func NewCache(path string, ttl time.Duration, log zerolog.Logger) (*Cache, error) {
	store, err := storage.OpenKV(path)
	if err != nil {
		return nil, err
	}
	return &Cache{store: store, ttl: ttl, log: log}, nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// ChannelURL returns a cached channel resolution for the query.
func (c *Cache) ChannelURL(query string) (string, bool) {
	var url string
	writtenAt, err := c.store.Get(bucketChannelURLs, query, &url)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Warn().Err(err).Msg("channel URL cache read failed")
		}
		return "", false
	}
	if c.expired(writtenAt) {
		return "", false
	}
	return url, true
}

// SetChannelURL caches a successful channel resolution.
func (c *Cache) SetChannelURL(query, url string) error {
	return c.store.Set(bucketChannelURLs, query, url)
}

// CatalogKey identifies a cached catalog by every parameter that affects
// eligibility. UploadDate's fixed-width date format keeps keys stable.
type CatalogKey struct {
	ChannelURL   string
	MaxAgeDays   int
	MinAgeDays   int
	MinDurationS int
	MaxVideos    int
}

func (k CatalogKey) String() string {
	return fmt.Sprintf("%s|age=%d|minage=%d|dur=%d|maxv=%d",
		k.ChannelURL, k.MaxAgeDays, k.MinAgeDays, k.MinDurationS, k.MaxVideos)
}

// Catalog returns a cached candidate list for the key, or nil if absent or
// expired.
func (c *Cache) Catalog(key CatalogKey) []VideoMeta {
	var videos []VideoMeta
	writtenAt, err := c.store.Get(bucketVideoCatalogs, key.String(), &videos)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Warn().Err(err).Msg("catalog cache read failed")
		}
		return nil
	}
	if c.expired(writtenAt) {
		c.log.Debug().Str("key", key.String()).Msg("catalog cache entry expired")
		return nil
	}
	c.log.Info().Int("videos", len(videos)).Msg("using cached video catalog")
	return videos
}

// SetCatalog caches the eligible candidate list for the key.
func (c *Cache) SetCatalog(key CatalogKey, videos []VideoMeta) error {
	return c.store.Set(bucketVideoCatalogs, key.String(), videos)
}

func (c *Cache) expired(writtenAt time.Time) bool {
	if c.ttl <= 0 {
		return false
	}
	return time.Since(writtenAt) > c.ttl
}
