package gamer

import (
	"context"
	"net/url"
	"regexp"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider/titlenorm"
)

var searchEntryPattern = regexp.MustCompile(`animeVideo\.php\?sn=(\d+)"[^>]*>\s*<[^>]*title="([^"]+)"`)

// Search applies the simplified->traditional keyword conversion before
// querying, then converts returned titles back to simplified for
// consistent storage (spec §4.1.6).
func (a *Adapter) Search(ctx context.Context, keyword string, episodeHint int) ([]domain.ProviderSearchInfo, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	traditionalKeyword := simplifiedToTraditional(keyword)
	reqURL := searchURL + "?kw=" + url.QueryEscape(traditionalKeyword)

	body, err := a.doGet(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var out []domain.ProviderSearchInfo
	for _, m := range searchEntryPattern.FindAllStringSubmatch(string(body), -1) {
		sn := m[1]
		title := traditionalToSimplified(m[2])
		title = titlenorm.Normalize(title)
		if titlenorm.IsJunk(title) {
			continue
		}
		season, base := titlenorm.ExtractSeason(title)

		kind := domain.MediaKindTVSeries
		if titlenorm.IsMoviePhrase(title) {
			kind = domain.MediaKindMovie
		}

		out = append(out, domain.ProviderSearchInfo{
			Provider:  a.Name(),
			MediaID:   sn,
			Title:     base,
			MediaKind: kind,
			Season:    season,
		})
	}
	return out, nil
}
