package gamer

import (
	"context"
	"fmt"
	"regexp"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider/titlenorm"
)

var episodeEntryPattern = regexp.MustCompile(`sn=(\d+)[^>]*>\s*第?\s*([^<]+?)\s*集?\s*<`)

// GetEpisodes scrapes the anime video page's episode list (spec
// §4.1.6). Titles are converted back to simplified Chinese.
func (a *Adapter) GetEpisodes(ctx context.Context, mediaID string, targetIndex int, dbMediaKind domain.MediaKind) ([]domain.ProviderEpisodeInfo, error) {
	body, err := a.fetchVideoEndpoint(ctx, fmt.Sprintf("%s?sn=%s", videoPageURL, mediaID))
	if err != nil {
		return nil, err
	}

	matches := episodeEntryPattern.FindAllStringSubmatch(string(body), -1)
	if len(matches) == 0 {
		// no episode list found: the sn itself is the only (movie) episode
		return []domain.ProviderEpisodeInfo{{
			Index:             1,
			ProviderEpisodeID: mediaID,
		}}, nil
	}

	out := make([]domain.ProviderEpisodeInfo, 0, len(matches))
	for i, m := range matches {
		title := titlenorm.Normalize(traditionalToSimplified(m[2]))
		out = append(out, domain.ProviderEpisodeInfo{
			Index:             i + 1,
			Title:             title,
			ProviderEpisodeID: m[1],
		})
	}
	return out, nil
}
