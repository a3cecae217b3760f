package provider

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmaku-hub/aggregator/internal/cache"
	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/storage"
)

type countingAdapter struct {
	name          string
	searchCalls   int32
	episodeCalls  int32
	searchResults []domain.ProviderSearchInfo
	episodes      []domain.ProviderEpisodeInfo
}

func (a *countingAdapter) Name() string { return a.name }

func (a *countingAdapter) Search(ctx context.Context, keyword string, episodeHint int) ([]domain.ProviderSearchInfo, error) {
	atomic.AddInt32(&a.searchCalls, 1)
	return a.searchResults, nil
}

func (a *countingAdapter) GetEpisodes(ctx context.Context, mediaID string, targetIndex int, kind domain.MediaKind) ([]domain.ProviderEpisodeInfo, error) {
	atomic.AddInt32(&a.episodeCalls, 1)
	return a.episodes, nil
}

func (a *countingAdapter) GetComments(ctx context.Context, providerEpisodeID string, progress domain.ProgressCallback) ([]domain.NormalizedComment, error) {
	return nil, nil
}

func (a *countingAdapter) Close() error { return nil }

func newTestRegistry(t *testing.T, adapters ...*countingAdapter) (*Registry, *storage.DB) {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	factories := make(map[string]Factory, len(adapters))
	for _, a := range adapters {
		a := a
		factories[a.name] = func() Adapter { return a }
	}
	reg := NewRegistry(db, factories)
	if err := reg.Sync(context.Background()); err != nil {
		t.Fatalf("sync registry: %v", err)
	}
	return reg, db
}

func TestSearchAllCachesAcrossCalls(t *testing.T) {
	adapter := &countingAdapter{
		name:          "bilibili",
		searchResults: []domain.ProviderSearchInfo{{Provider: "bilibili", MediaID: "ss1", Title: "Show"}},
	}
	reg, _ := newTestRegistry(t, adapter)
	reg.SetCache(cache.NewMemoryCache(), time.Minute, time.Minute)

	ctx := context.Background()
	first := reg.SearchAll(ctx, []string{"Show"}, 0)
	second := reg.SearchAll(ctx, []string{"Show"}, 0)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one result both times, got %d and %d", len(first), len(second))
	}
	if calls := atomic.LoadInt32(&adapter.searchCalls); calls != 1 {
		t.Fatalf("expected adapter.Search called once (second call served from cache), got %d", calls)
	}
}

func TestSearchAllWithoutCacheAlwaysInvokesAdapter(t *testing.T) {
	adapter := &countingAdapter{
		name:          "bilibili",
		searchResults: []domain.ProviderSearchInfo{{Provider: "bilibili", MediaID: "ss1", Title: "Show"}},
	}
	reg, _ := newTestRegistry(t, adapter)

	ctx := context.Background()
	reg.SearchAll(ctx, []string{"Show"}, 0)
	reg.SearchAll(ctx, []string{"Show"}, 0)

	if calls := atomic.LoadInt32(&adapter.searchCalls); calls != 2 {
		t.Fatalf("expected adapter.Search called twice with no cache attached, got %d", calls)
	}
}

func TestGetEpisodesCachedServesSecondCallFromCache(t *testing.T) {
	adapter := &countingAdapter{
		name:     "tencent",
		episodes: []domain.ProviderEpisodeInfo{{Index: 1, Title: "Ep 1"}},
	}
	reg, _ := newTestRegistry(t, adapter)
	reg.SetCache(cache.NewMemoryCache(), time.Minute, time.Minute)

	ctx := context.Background()
	if _, err := reg.GetEpisodesCached(ctx, "tencent", "cid1", 0, domain.MediaKindTVSeries); err != nil {
		t.Fatalf("get episodes: %v", err)
	}
	if _, err := reg.GetEpisodesCached(ctx, "tencent", "cid1", 0, domain.MediaKindTVSeries); err != nil {
		t.Fatalf("get episodes: %v", err)
	}

	if calls := atomic.LoadInt32(&adapter.episodeCalls); calls != 1 {
		t.Fatalf("expected adapter.GetEpisodes called once, got %d", calls)
	}
}

func TestGetEpisodesCachedBypassesCacheWithTargetHint(t *testing.T) {
	adapter := &countingAdapter{
		name:     "tencent",
		episodes: []domain.ProviderEpisodeInfo{{Index: 1, Title: "Ep 1"}},
	}
	reg, _ := newTestRegistry(t, adapter)
	reg.SetCache(cache.NewMemoryCache(), time.Minute, time.Minute)

	ctx := context.Background()
	if _, err := reg.GetEpisodesCached(ctx, "tencent", "cid1", 3, domain.MediaKindTVSeries); err != nil {
		t.Fatalf("get episodes: %v", err)
	}
	if _, err := reg.GetEpisodesCached(ctx, "tencent", "cid1", 3, domain.MediaKindTVSeries); err != nil {
		t.Fatalf("get episodes: %v", err)
	}

	if calls := atomic.LoadInt32(&adapter.episodeCalls); calls != 2 {
		t.Fatalf("expected target-hint calls to always bypass the cache, got %d", calls)
	}
}

// Exercise the mutex-guarded concurrent path once more with caching
// enabled, matching spec §5's "across adapters in SearchAll: unordered"
// guarantee — this must not deadlock or race regardless of cache state.
func TestSearchAllConcurrentWithCache(t *testing.T) {
	adapter := &countingAdapter{
		name:          "mgtv",
		searchResults: []domain.ProviderSearchInfo{{Provider: "mgtv", MediaID: "m1", Title: "Show"}},
	}
	reg, _ := newTestRegistry(t, adapter)
	reg.SetCache(cache.NewMemoryCache(), time.Minute, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.SearchAll(context.Background(), []string{"Show"}, 0)
		}()
	}
	wg.Wait()
}
