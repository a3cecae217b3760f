package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/importjob"
	"github.com/danmaku-hub/aggregator/internal/provider"
	"github.com/danmaku-hub/aggregator/internal/storage"
	"github.com/danmaku-hub/aggregator/internal/taskqueue"
)

type recordingAdapter struct {
	name         string
	searchCalled bool
	searchResult []domain.ProviderSearchInfo
	episodes     []domain.ProviderEpisodeInfo
}

func (a *recordingAdapter) Name() string { return a.name }

func (a *recordingAdapter) Search(ctx context.Context, keyword string, episodeHint int) ([]domain.ProviderSearchInfo, error) {
	a.searchCalled = true
	return a.searchResult, nil
}

func (a *recordingAdapter) GetEpisodes(ctx context.Context, mediaID string, targetIndex int, kind domain.MediaKind) ([]domain.ProviderEpisodeInfo, error) {
	return a.episodes, nil
}

func (a *recordingAdapter) GetComments(ctx context.Context, providerEpisodeID string, progress domain.ProgressCallback) ([]domain.NormalizedComment, error) {
	return nil, nil
}

func (a *recordingAdapter) Close() error { return nil }

func newTestDispatcher(t *testing.T, adapters ...*recordingAdapter) (*Dispatcher, *storage.DB, context.Context) {
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

	imports := importjob.New(registry, db)
	tasks := taskqueue.New(db, 4)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go tasks.Run(ctx)

	return New(registry, db, imports, tasks), db, ctx
}

func TestDispatchFavoritedSourceShortcutSkipsSearchAll(t *testing.T) {
	other := &recordingAdapter{name: "tencent", searchResult: []domain.ProviderSearchInfo{
		{Provider: "tencent", MediaID: "tencent-media-1", Title: "Some Show", MediaKind: domain.MediaKindTVSeries, Season: 1},
	}}
	d, db, _ := newTestDispatcher(t, other)

	work, err := db.GetOrCreateWork("Some Show", domain.MediaKindTVSeries, 1, "")
	if err != nil {
		t.Fatalf("get or create work: %v", err)
	}
	source, err := db.LinkSource(work.ID, "tencent", "tencent-media-1")
	if err != nil {
		t.Fatalf("link source: %v", err)
	}
	if err := db.ToggleFavorited(source.ID); err != nil {
		t.Fatalf("toggle favorited: %v", err)
	}

	taskID, err := d.Dispatch(context.Background(), WebhookPayload{
		Title:  "Some Show",
		Kind:   domain.MediaKindTVSeries,
		Season: 1,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if taskID == 0 {
		t.Fatal("expected a non-zero task id")
	}

	waitForTaskCompletion(t, db, taskID)

	if other.searchCalled {
		t.Fatal("expected favorited-source shortcut to skip SearchAll entirely")
	}
}

func TestDispatchFallsBackToSearchAllAndRanksByJaroWinkler(t *testing.T) {
	closeMatch := &recordingAdapter{name: "bilibili", searchResult: []domain.ProviderSearchInfo{
		{Provider: "bilibili", MediaID: "bili-1", Title: "Attack on Titan", MediaKind: domain.MediaKindTVSeries, Season: 1},
	}}
	farMatch := &recordingAdapter{name: "youku", searchResult: []domain.ProviderSearchInfo{
		{Provider: "youku", MediaID: "youku-1", Title: "Completely Different Name", MediaKind: domain.MediaKindTVSeries, Season: 1},
	}}
	d, db, _ := newTestDispatcher(t, closeMatch, farMatch)

	taskID, err := d.Dispatch(context.Background(), WebhookPayload{
		Title:  "Attack on Titan",
		Kind:   domain.MediaKindTVSeries,
		Season: 1,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	waitForTaskCompletion(t, db, taskID)

	if !closeMatch.searchCalled || !farMatch.searchCalled {
		t.Fatal("expected SearchAll to query both adapters")
	}

	source, err := db.GetSourceByProviderMediaID("bilibili", "bili-1")
	if err != nil {
		t.Fatalf("expected the closer-matching provider's source to be imported: %v", err)
	}
	_ = source
}

func TestFilterCandidatesCoercesMoviePhraseToMovie(t *testing.T) {
	candidates := []domain.ProviderSearchInfo{
		{Provider: "iqiyi", MediaID: "m1", Title: "Some Series 剧场版", MediaKind: domain.MediaKindTVSeries, Season: 2},
	}
	filtered := filterCandidates(candidates, domain.MediaKindMovie, 1)
	if len(filtered) != 1 {
		t.Fatalf("expected movie-phrase title coerced into the movie-kind filter, got %d matches", len(filtered))
	}
}

func TestFilterCandidatesRejectsSeasonMismatch(t *testing.T) {
	candidates := []domain.ProviderSearchInfo{
		{Provider: "tencent", MediaID: "t1", Title: "Some Show Season 2", MediaKind: domain.MediaKindTVSeries, Season: 2},
	}
	filtered := filterCandidates(candidates, domain.MediaKindTVSeries, 1)
	if len(filtered) != 0 {
		t.Fatalf("expected season mismatch to be filtered out, got %d matches", len(filtered))
	}
}

func waitForTaskCompletion(t *testing.T, db *storage.DB, taskID int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		th, err := db.GetTaskHistory(taskID)
		if err != nil {
			t.Fatalf("get task history: %v", err)
		}
		if th.Status == domain.TaskStatusCompleted || th.Status == domain.TaskStatusFailed {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("task %d never finished, last status %q", taskID, th.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
