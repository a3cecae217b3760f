package importjob

import (
	"context"
	"testing"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider"
	"github.com/danmaku-hub/aggregator/internal/storage"
)

type fakeAdapter struct {
	name     string
	episodes []domain.ProviderEpisodeInfo
	comments map[string][]domain.NormalizedComment
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Search(ctx context.Context, keyword string, episodeHint int) ([]domain.ProviderSearchInfo, error) {
	return nil, nil
}

func (f *fakeAdapter) GetEpisodes(ctx context.Context, mediaID string, targetIndex int, kind domain.MediaKind) ([]domain.ProviderEpisodeInfo, error) {
	return f.episodes, nil
}

func (f *fakeAdapter) GetComments(ctx context.Context, providerEpisodeID string, progress domain.ProgressCallback) ([]domain.NormalizedComment, error) {
	if progress != nil {
		progress(100, "fetched")
	}
	return f.comments[providerEpisodeID], nil
}

func (f *fakeAdapter) Close() error { return nil }

func newTestEngine(t *testing.T, adapters ...*fakeAdapter) (*Engine, *storage.DB) {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	factories := make(map[string]provider.Factory, len(adapters))
	for _, a := range adapters {
		a := a
		factories[a.name] = func() provider.Adapter { return a }
	}
	registry := provider.NewRegistry(db, factories)
	if err := registry.Sync(context.Background()); err != nil {
		t.Fatalf("sync registry: %v", err)
	}

	return New(registry, db), db
}

func TestGenericImportCreatesWorkSourceAndEpisodes(t *testing.T) {
	adapter := &fakeAdapter{
		name: "tencent",
		episodes: []domain.ProviderEpisodeInfo{
			{Index: 1, Title: "Episode 1", ProviderEpisodeID: "vid-1"},
			{Index: 2, Title: "Episode 2", ProviderEpisodeID: "vid-2"},
		},
		comments: map[string][]domain.NormalizedComment{
			"vid-1": {{CID: "c1", P: "1.000,1,16777215,[tencent]", M: "hello", T: 1}},
			"vid-2": {{CID: "c2", P: "2.000,1,16777215,[tencent]", M: "world", T: 2}},
		},
	}
	engine, db := newTestEngine(t, adapter)

	var progressCalls []int
	req := Request{
		Provider: "tencent",
		MediaID:  "media-1",
		Title:    "Some Show",
		Kind:     domain.MediaKindTVSeries,
		Season:   1,
	}
	err := engine.GenericImport(context.Background(), req, func(pct int, desc string) {
		progressCalls = append(progressCalls, pct)
	})
	if err != nil {
		t.Fatalf("generic import: %v", err)
	}

	source, err := db.GetSourceByProviderMediaID("tencent", "media-1")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	episodes, err := db.EpisodesForSource(source.ID)
	if err != nil {
		t.Fatalf("episodes for source: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(episodes))
	}

	comments, err := db.CommentsForEpisode(episodes[0].ID)
	if err != nil {
		t.Fatalf("comments for episode: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment on episode 1, got %d", len(comments))
	}

	if len(progressCalls) == 0 || progressCalls[len(progressCalls)-1] != 100 {
		t.Fatalf("expected progress to finish at 100, got %v", progressCalls)
	}
}

func TestGenericImportTruncatesMovieToFirstEpisode(t *testing.T) {
	adapter := &fakeAdapter{
		name: "iqiyi",
		episodes: []domain.ProviderEpisodeInfo{
			{Index: 1, Title: "Part 1", ProviderEpisodeID: "vid-1"},
			{Index: 2, Title: "Part 2", ProviderEpisodeID: "vid-2"},
		},
		comments: map[string][]domain.NormalizedComment{},
	}
	engine, db := newTestEngine(t, adapter)

	req := Request{
		Provider: "iqiyi",
		MediaID:  "movie-1",
		Title:    "Some Movie",
		Kind:     domain.MediaKindMovie,
	}
	if err := engine.GenericImport(context.Background(), req, nil); err != nil {
		t.Fatalf("generic import: %v", err)
	}

	source, err := db.GetSourceByProviderMediaID("iqiyi", "movie-1")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	episodes, err := db.EpisodesForSource(source.ID)
	if err != nil {
		t.Fatalf("episodes for source: %v", err)
	}
	if len(episodes) != 1 {
		t.Fatalf("expected movie import truncated to 1 episode, got %d", len(episodes))
	}
}

func TestRefreshSourceClearsEpisodesAndReimports(t *testing.T) {
	adapter := &fakeAdapter{
		name: "tencent",
		episodes: []domain.ProviderEpisodeInfo{
			{Index: 1, Title: "Episode 1", ProviderEpisodeID: "vid-1"},
		},
		comments: map[string][]domain.NormalizedComment{
			"vid-1": {{CID: "c1", P: "1.000,1,16777215,[tencent]", M: "hello", T: 1}},
		},
	}
	engine, db := newTestEngine(t, adapter)

	req := Request{
		Provider: "tencent",
		MediaID:  "media-1",
		Title:    "Some Show",
		Kind:     domain.MediaKindTVSeries,
		Poster:   "http://example.com/poster.jpg",
	}
	if err := engine.GenericImport(context.Background(), req, nil); err != nil {
		t.Fatalf("generic import: %v", err)
	}

	source, err := db.GetSourceByProviderMediaID("tencent", "media-1")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	work, err := db.GetWork(source.WorkID)
	if err != nil {
		t.Fatalf("get work: %v", err)
	}
	if work.PosterURL != "http://example.com/poster.jpg" {
		t.Fatalf("expected poster set on first import, got %q", work.PosterURL)
	}

	// simulate new comments arriving on refresh
	adapter.comments["vid-1"] = []domain.NormalizedComment{
		{CID: "c1", P: "1.000,1,16777215,[tencent]", M: "hello", T: 1},
		{CID: "c2", P: "1.500,1,16777215,[tencent]", M: "again", T: 1.5},
	}

	refreshReq := req
	refreshReq.Poster = "http://example.com/different-poster.jpg"
	if err := engine.RefreshSource(context.Background(), refreshReq, nil); err != nil {
		t.Fatalf("refresh source: %v", err)
	}

	episodes, err := db.EpisodesForSource(source.ID)
	if err != nil {
		t.Fatalf("episodes for source: %v", err)
	}
	if len(episodes) != 1 {
		t.Fatalf("expected 1 episode after refresh, got %d", len(episodes))
	}
	comments, err := db.CommentsForEpisode(episodes[0].ID)
	if err != nil {
		t.Fatalf("comments for episode: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments after refresh, got %d", len(comments))
	}

	work, err = db.GetWork(source.WorkID)
	if err != nil {
		t.Fatalf("get work: %v", err)
	}
	if work.PosterURL != "http://example.com/poster.jpg" {
		t.Fatalf("expected poster unchanged by refresh, got %q", work.PosterURL)
	}
}

func TestRefreshEpisodeClearsAndRefetchesComments(t *testing.T) {
	adapter := &fakeAdapter{
		name: "tencent",
		episodes: []domain.ProviderEpisodeInfo{
			{Index: 1, Title: "Episode 1", ProviderEpisodeID: "vid-1"},
		},
		comments: map[string][]domain.NormalizedComment{
			"vid-1": {{CID: "c1", P: "1.000,1,16777215,[tencent]", M: "hello", T: 1}},
		},
	}
	engine, db := newTestEngine(t, adapter)

	req := Request{
		Provider: "tencent",
		MediaID:  "media-1",
		Title:    "Some Show",
		Kind:     domain.MediaKindTVSeries,
	}
	if err := engine.GenericImport(context.Background(), req, nil); err != nil {
		t.Fatalf("generic import: %v", err)
	}

	adapter.comments["vid-1"] = []domain.NormalizedComment{
		{CID: "c3", P: "3.000,1,16777215,[tencent]", M: "new comment", T: 3},
	}

	if err := engine.RefreshEpisode(context.Background(), "tencent", "vid-1", nil); err != nil {
		t.Fatalf("refresh episode: %v", err)
	}

	episode, err := db.GetEpisodeByProviderID("tencent", "vid-1")
	if err != nil {
		t.Fatalf("get episode: %v", err)
	}
	comments, err := db.CommentsForEpisode(episode.ID)
	if err != nil {
		t.Fatalf("comments for episode: %v", err)
	}
	if len(comments) != 1 || comments[0].M != "new comment" {
		t.Fatalf("expected refreshed single comment, got %v", comments)
	}
}

func TestImportEpisodesIsolatesPerEpisodeFailures(t *testing.T) {
	adapter := &fakeAdapter{
		name: "mgtv",
		episodes: []domain.ProviderEpisodeInfo{
			{Index: 1, Title: "Episode 1", ProviderEpisodeID: "vid-1"},
			{Index: 2, Title: "Episode 2", ProviderEpisodeID: "vid-2"},
		},
		comments: map[string][]domain.NormalizedComment{
			// vid-1 has no entry: GetComments returns nil, nil, simulating
			// an empty/failed fetch that must not abort vid-2's import.
			"vid-2": {{CID: "c2", P: "2.000,1,16777215,[mgtv]", M: "ok", T: 2}},
		},
	}
	engine, db := newTestEngine(t, adapter)

	req := Request{
		Provider: "mgtv",
		MediaID:  "media-2",
		Title:    "Another Show",
		Kind:     domain.MediaKindTVSeries,
	}
	if err := engine.GenericImport(context.Background(), req, nil); err != nil {
		t.Fatalf("generic import: %v", err)
	}

	source, err := db.GetSourceByProviderMediaID("mgtv", "media-2")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	episodes, err := db.EpisodesForSource(source.ID)
	if err != nil {
		t.Fatalf("episodes for source: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected both episodes created despite empty comments, got %d", len(episodes))
	}
}
