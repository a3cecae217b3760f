// Package matcher implements the webhook match dispatcher of spec §4.6:
// given an Emby/Jellyfin-style payload, it either reuses a Work's
// favorited Source outright or runs a fuzzy search-and-rank over every
// adapter before dispatching a generic-import task for the winner.
package matcher

import (
	"context"
	"fmt"

	"github.com/xrash/smetrics"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/importjob"
	"github.com/danmaku-hub/aggregator/internal/provider"
	"github.com/danmaku-hub/aggregator/internal/provider/titlenorm"
	"github.com/danmaku-hub/aggregator/internal/storage"
	"github.com/danmaku-hub/aggregator/internal/taskqueue"
)

// WebhookPayload is the normalized form of an Emby/Jellyfin webhook body.
type WebhookPayload struct {
	Title       string
	Kind        domain.MediaKind
	Season      int
	Episode     int
	ExternalIDs domain.WorkMetadata
}

// Dispatcher wires the registry, storage, import engine, and task queue
// together to implement spec §4.6's dispatch algorithm.
type Dispatcher struct {
	registry *provider.Registry
	db       *storage.DB
	imports  *importjob.Engine
	tasks    *taskqueue.Engine

	jaroWinklerBoostThreshold float64
	jaroWinklerPrefixSize     int
}

func New(registry *provider.Registry, db *storage.DB, imports *importjob.Engine, tasks *taskqueue.Engine) *Dispatcher {
	return &Dispatcher{
		registry:                  registry,
		db:                        db,
		imports:                   imports,
		tasks:                     tasks,
		jaroWinklerBoostThreshold: 0.7,
		jaroWinklerPrefixSize:     4,
	}
}

// Dispatch runs the full spec §4.6 algorithm and returns the id of the
// generic-import task it submitted.
func (d *Dispatcher) Dispatch(ctx context.Context, payload WebhookPayload) (int64, error) {
	if source, err := d.db.FavoritedSourceForWork(payload.Title, payload.Season); err == nil {
		return d.submitFavoritedImport(source.ID, payload)
	} else if err != domain.ErrNotFound {
		return 0, fmt.Errorf("matcher: lookup favorited source: %w", err)
	}

	candidates := d.registry.SearchAll(ctx, []string{payload.Title}, payload.Episode)
	filtered := filterCandidates(candidates, payload.Kind, payload.Season)
	if len(filtered) == 0 {
		return 0, fmt.Errorf("matcher: no candidate matched title %q", payload.Title)
	}

	winner := d.rank(payload.Title, filtered)

	taskID, err := d.tasks.Submit(fmt.Sprintf("import %s (%s)", winner.Title, winner.Provider), func(ctx context.Context, progress domain.ProgressCallback) error {
		return d.imports.GenericImport(ctx, importjob.Request{
			Provider:    winner.Provider,
			MediaID:     winner.MediaID,
			Title:       payload.Title,
			Kind:        payload.Kind,
			Season:      payload.Season,
			Poster:      winner.PosterURL,
			ExternalIDs: payload.ExternalIDs,
		}, progress)
	})
	if err != nil {
		return 0, fmt.Errorf("matcher: submit import task: %w", err)
	}
	return taskID, nil
}

// submitFavoritedImport implements step 1's shortcut: exactly one
// import task, no SearchAll call (spec §8 scenario 4).
func (d *Dispatcher) submitFavoritedImport(sourceID int64, payload WebhookPayload) (int64, error) {
	source, err := d.db.GetSource(sourceID)
	if err != nil {
		return 0, fmt.Errorf("matcher: lookup source %d: %w", sourceID, err)
	}

	taskID, err := d.tasks.Submit(fmt.Sprintf("refresh %s (%s)", payload.Title, source.Provider), func(ctx context.Context, progress domain.ProgressCallback) error {
		return d.imports.GenericImport(ctx, importjob.Request{
			Provider:    source.Provider,
			MediaID:     source.ProviderMediaID,
			Title:       payload.Title,
			Kind:        payload.Kind,
			Season:      payload.Season,
			ExternalIDs: payload.ExternalIDs,
		}, progress)
	})
	if err != nil {
		return 0, fmt.Errorf("matcher: submit favorited-source import task: %w", err)
	}
	return taskID, nil
}

// filterCandidates implements spec §4.6 step 3: a candidate whose title
// matches the movie-phrase regex is coerced to kind=movie, season=1
// before the kind/season filter is applied.
func filterCandidates(candidates []domain.ProviderSearchInfo, wantKind domain.MediaKind, wantSeason int) []domain.ProviderSearchInfo {
	var out []domain.ProviderSearchInfo
	for _, c := range candidates {
		if titlenorm.IsMoviePhrase(c.Title) {
			c.MediaKind = domain.MediaKindMovie
			c.Season = 1
		}
		if c.MediaKind != wantKind {
			continue
		}
		if wantKind == domain.MediaKindTVSeries && c.Season != wantSeason {
			continue
		}
		out = append(out, c)
	}
	return out
}

// rank implements spec §4.6 step 4: order by
// (JaroWinkler(requested, candidate) DESC, provider_display_order ASC)
// and return the top candidate.
func (d *Dispatcher) rank(requestedTitle string, candidates []domain.ProviderSearchInfo) domain.ProviderSearchInfo {
	best := candidates[0]
	bestScore := d.similarity(requestedTitle, best.Title)
	bestOrder := d.registry.DisplayOrder(best.Provider)

	for _, c := range candidates[1:] {
		score := d.similarity(requestedTitle, c.Title)
		order := d.registry.DisplayOrder(c.Provider)

		if score > bestScore || (score == bestScore && order < bestOrder) {
			best, bestScore, bestOrder = c, score, order
		}
	}
	return best
}

func (d *Dispatcher) similarity(a, b string) float64 {
	return smetrics.JaroWinkler(a, b, d.jaroWinklerBoostThreshold, d.jaroWinklerPrefixSize)
}
