// Package importjob implements the task coroutines of spec §4.3: generic
// import, full source refresh, and single-episode refresh (webhook
// dispatch lives in internal/matcher). Each is a plain function taking a
// domain.ProgressCallback,
// grounded on the teacher's ProcessRequest/tryAllPrimaryAPIsWithFallback
// orchestration shape (search -> fetch -> persist -> report).
package importjob

import (
	"context"
	"fmt"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider"
	"github.com/danmaku-hub/aggregator/internal/storage"
	"github.com/danmaku-hub/aggregator/pkg/logger"
)

// Engine wires the provider registry and storage layer for the import
// task bodies.
type Engine struct {
	registry *provider.Registry
	db       *storage.DB
}

func New(registry *provider.Registry, db *storage.DB) *Engine {
	return &Engine{registry: registry, db: db}
}

// Request describes one generic-import invocation (spec §4.3).
type Request struct {
	Provider      string
	MediaID       string
	Title         string
	Kind          domain.MediaKind
	Season        int
	TargetEpisode int // 0 = none
	Poster        string
	ExternalIDs   domain.WorkMetadata // WorkID ignored; fields are fill-if-absent
	Aliases       domain.WorkAliases  // WorkID ignored
}

// subRange maps a callback's 0-100% into [base, base+span] of the
// outer task's progress range (spec §4.3 step 4, spec §9's explicit
// callout of "lambda-wrapped progress callbacks capturing loop state"
// replaced by this bound callback type).
func subRange(outer domain.ProgressCallback, base, span int, description string) domain.ProgressCallback {
	if outer == nil {
		return nil
	}
	return func(progress int, _ string) {
		outer(base+span*progress/100, description)
	}
}

// GenericImport resolves/creates the Work, links the Source, walks
// episodes, and persists comments with per-episode progress reporting
// (spec §4.3 "Generic import").
func (e *Engine) GenericImport(ctx context.Context, req Request, progress domain.ProgressCallback) error {
	adapter, err := e.registry.Get(req.Provider)
	if err != nil {
		return err
	}

	work, err := e.db.GetOrCreateWork(req.Title, req.Kind, req.Season, req.Poster)
	if err != nil {
		return fmt.Errorf("importjob: resolve work: %w", err)
	}
	if err := e.db.FillWorkMetadata(work.ID, req.ExternalIDs); err != nil {
		return fmt.Errorf("importjob: fill work metadata: %w", err)
	}
	if err := e.db.FillWorkAliases(work.ID, req.Aliases); err != nil {
		return fmt.Errorf("importjob: fill work aliases: %w", err)
	}

	source, err := e.db.LinkSource(work.ID, req.Provider, req.MediaID)
	if err != nil {
		return fmt.Errorf("importjob: link source: %w", err)
	}

	episodes, err := e.registry.GetEpisodesCached(ctx, req.Provider, req.MediaID, req.TargetEpisode, req.Kind)
	if err != nil {
		return fmt.Errorf("importjob: get episodes: %w", err)
	}
	if req.Kind == domain.MediaKindMovie && len(episodes) > 1 {
		episodes = episodes[:1]
	}

	inserted := e.importEpisodes(ctx, adapter, source.ID, episodes, progress)

	if progress != nil {
		progress(100, fmt.Sprintf("imported %d episodes, %d new comments", len(episodes), inserted))
	}
	return nil
}

// importEpisodes creates/updates Episode rows and fetches+persists
// their comments, isolating per-episode failures (spec §4.3 "Failure
// policy").
func (e *Engine) importEpisodes(ctx context.Context, adapter provider.Adapter, sourceID int64, episodes []domain.ProviderEpisodeInfo, progress domain.ProgressCallback) int {
	totalInserted := 0
	n := len(episodes)
	if n == 0 {
		return 0
	}

	for i, ep := range episodes {
		episode, err := e.db.GetOrCreateEpisode(sourceID, ep.Index, ep.Title, ep.PlaybackURL, ep.ProviderEpisodeID)
		if err != nil {
			logger.Warnf("importjob: create episode %d: %v", ep.Index, err)
			continue
		}

		base := 100 * i / n
		span := 100/n + 1
		sub := subRange(progress, base, span, fmt.Sprintf("episode %d/%d", i+1, n))

		comments, err := adapter.GetComments(ctx, ep.ProviderEpisodeID, sub)
		if err != nil {
			logger.Warnf("importjob: get comments for episode %d: %v", ep.Index, err)
			continue
		}
		if len(comments) == 0 {
			continue
		}

		rows, err := e.db.InsertComments(episode.ID, comments)
		if err != nil {
			logger.Warnf("importjob: insert comments for episode %d: %v", ep.Index, err)
			continue
		}
		totalInserted += rows
	}
	return totalInserted
}

// RefreshSource clears all Episodes/Comments for (provider, mediaID) and
// reruns the generic import without overwriting the existing poster
// (spec §4.3 "Full refresh of a Source").
func (e *Engine) RefreshSource(ctx context.Context, req Request, progress domain.ProgressCallback) error {
	source, err := e.db.GetSourceByProviderMediaID(req.Provider, req.MediaID)
	if err != nil {
		return fmt.Errorf("importjob: lookup source: %w", err)
	}
	if err := e.db.ClearSourceEpisodes(source.ID); err != nil {
		return fmt.Errorf("importjob: clear source episodes: %w", err)
	}

	req.Poster = "" // do not overwrite the existing poster on refresh
	return e.GenericImport(ctx, req, progress)
}

// RefreshEpisode clears comments for one (provider, providerEpisodeID),
// resets comment_count, refetches, and updates fetched_at (spec §4.3
// "Single-episode refresh"). fetched_at is updated only when the refetch
// returns at least one comment; an empty refetch leaves it unchanged.
func (e *Engine) RefreshEpisode(ctx context.Context, providerName, providerEpisodeID string, progress domain.ProgressCallback) error {
	adapter, err := e.registry.Get(providerName)
	if err != nil {
		return err
	}

	episode, err := e.db.GetEpisodeByProviderID(providerName, providerEpisodeID)
	if err != nil {
		return fmt.Errorf("importjob: lookup episode: %w", err)
	}
	if err := e.db.ClearEpisodeComments(episode.ID); err != nil {
		return fmt.Errorf("importjob: clear episode comments: %w", err)
	}

	comments, err := adapter.GetComments(ctx, providerEpisodeID, progress)
	if err != nil {
		return fmt.Errorf("importjob: get comments: %w", err)
	}
	if len(comments) == 0 {
		return nil
	}

	if _, err := e.db.InsertComments(episode.ID, comments); err != nil {
		return fmt.Errorf("importjob: insert comments: %w", err)
	}
	return nil
}
