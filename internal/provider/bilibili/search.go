package bilibili

import (
	"context"
	"fmt"
	"sync"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider/titlenorm"
)

type searchResultItem struct {
	Title        string `json:"title"`
	MediaID      int64  `json:"media_id"`
	SeasonID     int64  `json:"season_id"`
	BVID         string `json:"bvid"`
	Year         string `json:"season_type_name"`
	Cover        string `json:"cover"`
	EpisodeCount int    `json:"ep_size"`
}

type searchResponse struct {
	Data struct {
		Result []searchResultItem `json:"result"`
	} `json:"data"`
}

// Search issues the two typed searches of spec §4.1.1 (media_bangumi,
// media_ft) in parallel, unions and dedupes by (provider, media_id).
func (a *Adapter) Search(ctx context.Context, keyword string, episodeHint int) ([]domain.ProviderSearchInfo, error) {
	types := []string{"media_bangumi", "media_ft"}

	var wg sync.WaitGroup
	resultsCh := make(chan []domain.ProviderSearchInfo, len(types))
	errCh := make(chan error, len(types))

	for _, t := range types {
		wg.Add(1)
		go func(searchType string) {
			defer wg.Done()
			items, err := a.searchOne(ctx, keyword, searchType)
			if err != nil {
				errCh <- err
				return
			}
			resultsCh <- items
		}(t)
	}

	wg.Wait()
	close(resultsCh)
	close(errCh)

	var lastErr error
	for err := range errCh {
		lastErr = err
	}

	seen := make(map[string]bool)
	var out []domain.ProviderSearchInfo
	for batch := range resultsCh {
		for _, info := range batch {
			key := info.MediaID
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, info)
		}
	}

	if out == nil && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (a *Adapter) searchOne(ctx context.Context, keyword, searchType string) ([]domain.ProviderSearchInfo, error) {
	resp, err := a.signedGet(ctx, searchTypeURL, map[string]string{
		"keyword":     keyword,
		"search_type": searchType,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body searchResponse
	if err := decodeJSON(resp, &body); err != nil {
		return nil, fmt.Errorf("bilibili: decode search response: %w", err)
	}

	var out []domain.ProviderSearchInfo
	for _, item := range body.Data.Result {
		title := titlenorm.Normalize(item.Title)
		if titlenorm.IsJunk(title) {
			continue
		}

		mediaID := "bv" + item.BVID
		if item.SeasonID != 0 {
			mediaID = fmt.Sprintf("ss%d", item.SeasonID)
		}

		season, base := titlenorm.ExtractSeason(title)
		out = append(out, domain.ProviderSearchInfo{
			Provider:     a.Name(),
			MediaID:      mediaID,
			Title:        base,
			MediaKind:    domain.MediaKindTVSeries,
			Season:       season,
			PosterURL:    item.Cover,
			EpisodeCount: item.EpisodeCount,
		})
	}
	return out, nil
}
