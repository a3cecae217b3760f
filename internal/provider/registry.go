package provider

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danmaku-hub/aggregator/internal/cache"
	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/storage"
	"github.com/danmaku-hub/aggregator/pkg/logger"
)

// Factory constructs a concrete Adapter instance. Each provider package
// exposes one; Registry holds the static list rather than discovering
// adapters via reflection (spec §9: "Plugin discovery via file scan +
// reflection -> a static registry at build time").
type Factory func() Adapter

// Registry holds (name -> adapter instance) and (name -> setting), and
// implements the concurrent fan-out / sequential / dedupe operations of
// spec §4.2. Reload is not safe under a concurrent SearchAll — callers
// must ensure no in-flight SearchAll when reloading (spec §4.2).
type Registry struct {
	db        *storage.DB
	factories map[string]Factory

	mu       sync.RWMutex
	adapters map[string]Adapter
	settings map[string]domain.ScraperSetting

	cache          cache.Cache
	searchTTL      time.Duration
	episodesTTL    time.Duration
}

func NewRegistry(db *storage.DB, factories map[string]Factory) *Registry {
	return &Registry{
		db:        db,
		factories: factories,
	}
}

// SetCache attaches the TTL-bound search/episode-list cache of spec §2,
// §4.2 to the registry. Uncalled, the registry simply skips caching
// (nil cache), which is what the unit tests do.
func (r *Registry) SetCache(c cache.Cache, searchTTL, episodesTTL time.Duration) {
	r.cache = c
	r.searchTTL = searchTTL
	r.episodesTTL = episodesTTL
}

// Sync discovers adapters from the static factory list and upserts a
// ScraperSetting row for each new provider, preserving existing
// enable/order values (spec §4.2).
func (r *Registry) Sync(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	adapters := make(map[string]Adapter, len(r.factories))
	for order, name := range names {
		if err := r.db.UpsertScraperSetting(name, order); err != nil {
			return err
		}
		adapters[name] = r.factories[name]()
	}

	settingsList, err := r.db.ScraperSettings()
	if err != nil {
		return err
	}
	settings := make(map[string]domain.ScraperSetting, len(settingsList))
	for _, s := range settingsList {
		settings[s.Provider] = s
	}

	r.adapters = adapters
	r.settings = settings
	return nil
}

// Reload closes all existing adapters, re-reads settings, and
// re-instantiates. Not safe under concurrent SearchAll (spec §4.2).
func (r *Registry) Reload(ctx context.Context) error {
	r.mu.Lock()
	for _, a := range r.adapters {
		_ = a.Close()
	}
	r.mu.Unlock()

	return r.Sync(ctx)
}

func (r *Registry) enabledAdapters() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Adapter
	for name, a := range r.adapters {
		if s, ok := r.settings[name]; ok && !s.IsEnabled {
			continue
		}
		out = append(out, a)
	}
	return out
}

// orderedAdapters returns enabled adapters sorted by ascending
// display_order, for SearchSequential.
func (r *Registry) orderedAdapters() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type entry struct {
		adapter Adapter
		order   int
	}
	var entries []entry
	for name, a := range r.adapters {
		s, ok := r.settings[name]
		if ok && !s.IsEnabled {
			continue
		}
		entries = append(entries, entry{adapter: a, order: s.DisplayOrder})
	}

	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].order < entries[j-1].order; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	out := make([]Adapter, len(entries))
	for i, e := range entries {
		out[i] = e.adapter
	}
	return out
}

type searchJob struct {
	adapter Adapter
	keyword string
}

// SearchAll launches one task per (keyword x enabled adapter) pair
// concurrently, isolates individual adapter failures, and dedupes
// results by (provider, media_id) preserving first-seen order (spec
// §4.2, §5).
func (r *Registry) SearchAll(ctx context.Context, keywords []string, episodeHint int) []domain.ProviderSearchInfo {
	cacheKey := ""
	if r.cache != nil {
		cacheKey = r.cache.GenerateKey("registry", "search_all", map[string]string{
			"keywords": strings.Join(keywords, "\x1f"),
			"episode":  strconv.Itoa(episodeHint),
		})
		if cached, ok := r.readSearchCache(cacheKey); ok {
			return cached
		}
	}

	out := r.searchAll(ctx, keywords, episodeHint)

	if r.cache != nil {
		if payload, err := json.Marshal(out); err == nil {
			if err := r.cache.Set(cacheKey, payload, r.searchTTL); err != nil {
				logger.Warnf("registry: cache search_all: %v", err)
			}
		}
	}
	return out
}

func (r *Registry) readSearchCache(key string) ([]domain.ProviderSearchInfo, bool) {
	payload, err := r.cache.Get(key)
	if err != nil || payload == nil {
		return nil, false
	}
	var out []domain.ProviderSearchInfo
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, false
	}
	return out, true
}

// searchAll is SearchAll's uncached core (spec §4.2, §5).
func (r *Registry) searchAll(ctx context.Context, keywords []string, episodeHint int) []domain.ProviderSearchInfo {
	adapters := r.enabledAdapters()

	var jobs []searchJob
	for _, kw := range keywords {
		for _, a := range adapters {
			jobs = append(jobs, searchJob{adapter: a, keyword: kw})
		}
	}

	resultChan := make(chan []domain.ProviderSearchInfo, len(jobs))
	var wg sync.WaitGroup

	for _, job := range jobs {
		wg.Add(1)
		go func(j searchJob) {
			defer wg.Done()

			results, err := j.adapter.Search(ctx, j.keyword, episodeHint)
			if err != nil {
				logger.Warnf("provider %s: search %q failed: %v", j.adapter.Name(), j.keyword, err)
				return
			}
			resultChan <- results
		}(job)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	seen := make(map[string]bool)
	var out []domain.ProviderSearchInfo
	for batch := range resultChan {
		for _, info := range batch {
			key := info.Provider + "|" + info.MediaID
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, info)
		}
	}
	return out
}

// SearchSequential iterates adapters in ascending display_order and
// returns the first adapter that yields a non-empty result (spec §4.2).
func (r *Registry) SearchSequential(ctx context.Context, keyword string, episodeHint int) (string, []domain.ProviderSearchInfo) {
	for _, a := range r.orderedAdapters() {
		results, err := a.Search(ctx, keyword, episodeHint)
		if err != nil {
			logger.Warnf("provider %s: search %q failed: %v", a.Name(), keyword, err)
			continue
		}
		if len(results) > 0 {
			return a.Name(), results
		}
	}
	return "", nil
}

// Get returns the adapter registered under name, or
// domain.ErrUnknownProvider.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[name]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	return a, nil
}

// GetEpisodesCached wraps adapter.GetEpisodes with the episode-list
// cache of spec §2, §4.2. A target episode hint bypasses the cache
// (adapters are allowed to short-circuit their listing around it, so a
// cached full list must never stand in for a targeted fetch).
func (r *Registry) GetEpisodesCached(ctx context.Context, providerName, mediaID string, target int, kind domain.MediaKind) ([]domain.ProviderEpisodeInfo, error) {
	adapter, err := r.Get(providerName)
	if err != nil {
		return nil, err
	}
	if r.cache == nil || target > 0 {
		return adapter.GetEpisodes(ctx, mediaID, target, kind)
	}

	key := r.cache.GenerateKey(providerName, "get_episodes", map[string]string{
		"media_id": mediaID,
		"kind":     string(kind),
	})
	if payload, err := r.cache.Get(key); err == nil && payload != nil {
		var cached []domain.ProviderEpisodeInfo
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	}

	episodes, err := adapter.GetEpisodes(ctx, mediaID, target, kind)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(episodes); err == nil {
		if err := r.cache.Set(key, payload, r.episodesTTL); err != nil {
			logger.Warnf("registry: cache get_episodes for %s: %v", providerName, err)
		}
	}
	return episodes, nil
}

// DisplayOrder returns name's configured display_order, used by the
// match dispatcher's fuzzy-ranking tiebreak (spec §4.6). Unknown
// providers sort last.
func (r *Registry) DisplayOrder(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[name]
	if !ok {
		return int(^uint(0) >> 1) // math.MaxInt, unknown providers sort last
	}
	return s.DisplayOrder
}
