package youtube

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	cache, err := NewCache(filepath.Join(t.TempDir(), "cache.json"), ttl, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func testCatalogKey() CatalogKey {
	return CatalogKey{
		ChannelURL:   "https://www.youtube.com/@test",
		MaxAgeDays:   365,
		MinAgeDays:   0,
		MinDurationS: 120,
		MaxVideos:    200,
	}
}

func TestCache_CatalogRoundTrip(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	key := testCatalogKey()

	want := []VideoMeta{
		{VideoID: "a1", Title: "First", WebpageURL: WatchURL("a1"), DurationS: 600, UploadDate: "20260501"},
		{VideoID: "b2", Title: "Second", WebpageURL: WatchURL("b2"), DurationS: 1200.5, UploadDate: "20260415"},
	}
	if err := cache.SetCatalog(key, want); err != nil {
		t.Fatalf("SetCatalog() error = %v", err)
	}

	got := cache.Catalog(key)
	if len(got) != len(want) {
		t.Fatalf("Catalog() returned %d videos, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("video %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCache_KeyIncludesAllEligibilityParams(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	key := testCatalogKey()

	if err := cache.SetCatalog(key, []VideoMeta{{VideoID: "a1"}}); err != nil {
		t.Fatal(err)
	}

	variants := []CatalogKey{
		func() CatalogKey { k := key; k.MaxAgeDays = 30; return k }(),
		func() CatalogKey { k := key; k.MinAgeDays = 7; return k }(),
		func() CatalogKey { k := key; k.MinDurationS = 60; return k }(),
		func() CatalogKey { k := key; k.MaxVideos = 50; return k }(),
		func() CatalogKey { k := key; k.ChannelURL = "https://www.youtube.com/@other"; return k }(),
	}
	for _, variant := range variants {
		if got := cache.Catalog(variant); got != nil {
			t.Errorf("Catalog(%s) = %d videos, want miss", variant, len(got))
		}
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	cache := newTestCache(t, 10*time.Millisecond)
	key := testCatalogKey()

	if err := cache.SetCatalog(key, []VideoMeta{{VideoID: "a1"}}); err != nil {
		t.Fatal(err)
	}
	if got := cache.Catalog(key); got == nil {
		t.Fatal("Catalog() missed immediately after write")
	}

	time.Sleep(20 * time.Millisecond)
	if got := cache.Catalog(key); got != nil {
		t.Errorf("Catalog() = %d videos after TTL, want miss", len(got))
	}
}

func TestCache_TTLDisabled(t *testing.T) {
	cache := newTestCache(t, 0)
	key := testCatalogKey()

	if err := cache.SetCatalog(key, []VideoMeta{{VideoID: "a1"}}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if got := cache.Catalog(key); got == nil {
		t.Error("Catalog() missed with expiry disabled")
	}
}

func TestCache_ChannelURL(t *testing.T) {
	cache := newTestCache(t, time.Hour)

	if _, ok := cache.ChannelURL("PPA Tour"); ok {
		t.Error("ChannelURL() hit on empty cache")
	}
	if err := cache.SetChannelURL("PPA Tour", FallbackChannelURL); err != nil {
		t.Fatal(err)
	}
	url, ok := cache.ChannelURL("PPA Tour")
	if !ok || url != FallbackChannelURL {
		t.Errorf("ChannelURL() = %q, %v; want %q, true", url, ok, FallbackChannelURL)
	}
}
