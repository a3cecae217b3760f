// Package tmdbautomap implements the TMDB auto-map scheduled job (spec
// §4.5.1): for every Work that has a TMDB id but no episode-group
// mapping yet, pick an episode group, replace its episode mapping
// table, and fill in any empty alias slots from alternative titles.
package tmdbautomap

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/metadata/tmdb"
	"github.com/danmaku-hub/aggregator/internal/storage"
	"github.com/danmaku-hub/aggregator/pkg/logger"
)

// Job runs one pass over every eligible Work.
type Job struct {
	db     *storage.DB
	client *tmdb.Client
	sleep  func(time.Duration)
}

func New(db *storage.DB, client *tmdb.Client) *Job {
	return &Job{db: db, client: client, sleep: time.Sleep}
}

// Run executes the full auto-map pass described by spec §4.5.1,
// reporting progress across the work list.
func (j *Job) Run(ctx context.Context, progress domain.ProgressCallback) error {
	works, err := j.db.WorksWithTmdbIDButNoGroup()
	if err != nil {
		return fmt.Errorf("tmdbautomap: list eligible works: %w", err)
	}

	n := len(works)
	for i, work := range works {
		if err := j.processWork(ctx, work); err != nil {
			logger.Warnf("tmdbautomap: work %d (%s): %v", work.ID, work.Title, err)
		}
		if progress != nil {
			progress(100*(i+1)/max(n, 1), fmt.Sprintf("mapped %d/%d works", i+1, n))
		}
		if i < n-1 {
			j.sleep(time.Second) // spec §4.5.1 step 5: sleep 1s between shows
		}
	}
	return nil
}

func (j *Job) processWork(ctx context.Context, work domain.Work) error {
	meta, err := j.db.GetWorkMetadata(work.ID)
	if err != nil {
		return fmt.Errorf("get work metadata: %w", err)
	}

	groups, err := j.client.EpisodeGroups(ctx, meta.TmdbID)
	if err != nil {
		return fmt.Errorf("fetch episode groups: %w", err)
	}
	chosen, ok := selectEpisodeGroup(groups)
	if !ok {
		return fmt.Errorf("no eligible episode group for tmdb id %s", meta.TmdbID)
	}

	if err := j.db.SetWorkTmdbEpisodeGroup(work.ID, chosen.ID); err != nil {
		return fmt.Errorf("persist episode group id: %w", err)
	}

	detail, err := j.client.EpisodeGroupDetail(ctx, chosen.ID)
	if err != nil {
		return fmt.Errorf("fetch episode group detail: %w", err)
	}
	mappings := buildMappings(meta.TmdbID, chosen.ID, detail)
	if err := j.db.SaveTmdbEpisodeGroupMappings(chosen.ID, mappings); err != nil {
		return fmt.Errorf("save episode group mappings: %w", err)
	}

	tvDetail, err := j.client.TVDetailWithAlternativeTitles(ctx, meta.TmdbID)
	if err != nil {
		return fmt.Errorf("fetch alternative titles: %w", err)
	}
	aliases := extractAliases(work.ID, tvDetail.AlternativeTitles.Results)
	if err := j.db.FillWorkAliases(work.ID, aliases); err != nil {
		return fmt.Errorf("fill work aliases: %w", err)
	}

	return nil
}

var seasonOnlyNamePattern = regexp.MustCompile(`(?i)^Season \d+$`)

// selectEpisodeGroup implements spec §4.5.1 step 1's selection
// algorithm: drop plain "Season N" groups, prefer an exact "seasons"
// name, else a name containing "seasons", else the first remaining
// group in API order.
func selectEpisodeGroup(groups []tmdb.EpisodeGroup) (tmdb.EpisodeGroup, bool) {
	var remaining []tmdb.EpisodeGroup
	for _, g := range groups {
		if seasonOnlyNamePattern.MatchString(strings.TrimSpace(g.Name)) {
			continue
		}
		remaining = append(remaining, g)
	}
	if len(remaining) == 0 {
		return tmdb.EpisodeGroup{}, false
	}

	for _, g := range remaining {
		if strings.EqualFold(strings.TrimSpace(g.Name), "seasons") {
			return g, true
		}
	}
	for _, g := range remaining {
		if strings.Contains(strings.ToLower(g.Name), "seasons") {
			return g, true
		}
	}
	return remaining[0], true
}

// buildMappings implements spec §4.5.1 step 3: walk custom seasons in
// `order` ascending, emitting one TmdbEpisodeMapping row per episode
// with custom_season_number = group order, custom_episode_number =
// 1-based index within the season, absolute_episode_number =
// episode.order + 1.
func buildMappings(tmdbTVID, groupID string, detail *tmdb.EpisodeGroupDetail) []domain.TmdbEpisodeMapping {
	seasons := append([]tmdb.EpisodeGroupSeason(nil), detail.Groups...)
	sort.SliceStable(seasons, func(i, j int) bool { return seasons[i].Order < seasons[j].Order })

	var out []domain.TmdbEpisodeMapping
	for _, season := range seasons {
		for idx, ep := range season.Episodes {
			out = append(out, domain.TmdbEpisodeMapping{
				TmdbTVID:              tmdbTVID,
				GroupID:               groupID,
				TmdbEpisodeID:         fmt.Sprintf("%d", ep.ID),
				TmdbSeasonNumber:      ep.SeasonNumber,
				TmdbEpisodeNumber:     ep.EpisodeNumber,
				CustomSeasonNumber:    season.Order,
				CustomEpisodeNumber:   idx + 1,
				AbsoluteEpisodeNumber: ep.Order + 1,
			})
		}
	}
	return out
}

var trailingPunctuationPattern = regexp.MustCompile(`[\s：:,，。.!！]+$`)

var theMoviePattern = regexp.MustCompile(`(?i)the movie`)

// cleanAlias strips the movie-release phrases and trailing punctuation
// spec §4.5.1 step 4 names.
func cleanAlias(title string) string {
	title = strings.ReplaceAll(title, "劇場版", "")
	title = strings.ReplaceAll(title, "剧场版", "")
	title = theMoviePattern.ReplaceAllString(title, "")
	title = trailingPunctuationPattern.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// extractAliases implements spec §4.5.1 step 4's country-code mapping:
// US -> en with GB fallback, JP with Type=="Romaji" -> romaji else jp,
// CN/HK/TW -> the first three cn slots in encounter order.
func extractAliases(workID int64, titles []tmdb.AlternativeTitle) domain.WorkAliases {
	a := domain.WorkAliases{WorkID: workID}

	var gbFallback string
	var cnSlots []string

	for _, t := range titles {
		title := cleanAlias(t.Title)
		if title == "" {
			continue
		}
		switch t.ISO3166_1 {
		case "US":
			if a.EN == "" {
				a.EN = title
			}
		case "GB":
			if gbFallback == "" {
				gbFallback = title
			}
		case "JP":
			if strings.EqualFold(t.Type, "Romaji") {
				if a.Romaji == "" {
					a.Romaji = title
				}
			} else if a.JP == "" {
				a.JP = title
			}
		case "CN", "HK", "TW":
			if len(cnSlots) < 3 {
				cnSlots = append(cnSlots, title)
			}
		}
	}

	if a.EN == "" {
		a.EN = gbFallback
	}
	if len(cnSlots) > 0 {
		a.CN1 = cnSlots[0]
	}
	if len(cnSlots) > 1 {
		a.CN2 = cnSlots[1]
	}
	if len(cnSlots) > 2 {
		a.CN3 = cnSlots[2]
	}

	return a
}
