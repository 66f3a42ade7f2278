package youtube

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// FallbackChannelURL is the known source channel for this dataset, used
// when every resolution strategy fails. Falling back trades correctness
// checks for availability; it is always logged, never silent.
const FallbackChannelURL = "https://www.youtube.com/@PPATour"

const searchLimit = 5

// Searcher is the text-search capability the resolver consumes.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchEntry, error)
}

// Resolver turns a free-text channel query into a channel URL.
//
// Strategies, in order: cached resolution, YouTube Data API search (when an
// API key is configured), yt-dlp text search, fixed fallback URL. Resolution
// itself never fails; the fallback absorbs total search failure.
type Resolver struct {
	Searcher Searcher
	Cache    *Cache
	APIKey   string
	Fallback string
	Log      zerolog.Logger

	// apiSearch is swappable for tests; nil means use the Data API client.
	apiSearch func(ctx context.Context, query string) (string, error)
}

// Resolve returns a channel URL for the query. Successful non-fallback
// resolutions are cached.
func (r *Resolver) Resolve(ctx context.Context, query string) string {
	if r.Cache != nil {
		if url, ok := r.Cache.ChannelURL(query); ok {
			r.Log.Info().Str("query", query).Str("url", url).Msg("using cached channel URL")
			return url
		}
	}

	if url, err := r.search(ctx, query); err == nil {
		r.Log.Info().Str("query", query).Str("url", url).Msg("resolved channel URL")
		if r.Cache != nil {
			if cerr := r.Cache.SetChannelURL(query, url); cerr != nil {
				r.Log.Warn().Err(cerr).Msg("failed to cache channel URL")
			}
		}
		return url
	} else {
		r.Log.Warn().Err(err).Str("query", query).Msg("channel search failed, using fallback URL")
	}

	fallback := r.Fallback
	if fallback == "" {
		fallback = FallbackChannelURL
	}
	r.Log.Info().Str("url", fallback).Msg("using fallback channel URL")
	return fallback
}

func (r *Resolver) search(ctx context.Context, query string) (string, error) {
	if r.APIKey != "" || r.apiSearch != nil {
		url, err := r.searchAPI(ctx, query)
		if err == nil {
			return url, nil
		}
		r.Log.Warn().Err(err).Msg("API channel search failed, trying yt-dlp search")
	}
	return r.searchYtdlp(ctx, query)
}

// searchAPI resolves via the YouTube Data API's channel search.
func (r *Resolver) searchAPI(ctx context.Context, query string) (string, error) {
	search := r.apiSearch
	if search == nil {
		search = func(ctx context.Context, query string) (string, error) {
			service, err := ytapi.NewService(ctx, option.WithAPIKey(r.APIKey))
			if err != nil {
				return "", fmt.Errorf("create youtube service: %w", err)
			}
			resp, err := service.Search.List([]string{"snippet"}).
				Q(query).
				Type("channel").
				MaxResults(searchLimit).
				Context(ctx).
				Do()
			if err != nil {
				return "", fmt.Errorf("api search: %w", err)
			}
			for _, item := range resp.Items {
				if item.Snippet != nil && item.Snippet.ChannelId != "" {
					return "https://www.youtube.com/channel/" + item.Snippet.ChannelId, nil
				}
			}
			return "", fmt.Errorf("api search: no channel results for %q", query)
		}
	}
	return search(ctx, query)
}

// searchYtdlp resolves via a bounded yt-dlp text search, taking the first
// result that exposes a channel URL.
func (r *Resolver) searchYtdlp(ctx context.Context, query string) (string, error) {
	entries, err := r.Searcher.Search(ctx, query, searchLimit)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.ChannelURL != "" {
			return entry.ChannelURL, nil
		}
		if entry.UploaderURL != "" {
			return entry.UploaderURL, nil
		}
	}
	return "", fmt.Errorf("no search result exposes a channel URL for %q", query)
}
