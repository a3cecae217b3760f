package youku

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider/titlenorm"
)

type searchVideoItem struct {
	VideoID      string `json:"videoid"`
	Title        string `json:"title"`
	Img          string `json:"img"`
	EpisodeTotal int    `json:"episodeTotal"`
}

type searchResponse struct {
	PageComponentList []struct {
		CommonData struct {
			Videos []json.RawMessage `json:"videos"`
		} `json:"commonData"`
	} `json:"pageComponentList"`
}

func (a *Adapter) Search(ctx context.Context, keyword string, episodeHint int) ([]domain.ProviderSearchInfo, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?keyword="+keyword, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("youku: decode search response: %w", err)
	}

	var out []domain.ProviderSearchInfo
	for _, component := range body.PageComponentList {
		for _, raw := range component.CommonData.Videos {
			var item searchVideoItem
			if err := json.Unmarshal(raw, &item); err != nil {
				continue // tolerant per-item decode, spec §9
			}
			if item.VideoID == "" {
				continue
			}

			title := titlenorm.Normalize(item.Title)
			if titlenorm.IsJunk(title) {
				continue
			}
			season, base := titlenorm.ExtractSeason(title)

			kind := domain.MediaKindTVSeries
			if titlenorm.IsMoviePhrase(title) {
				kind = domain.MediaKindMovie
			}

			out = append(out, domain.ProviderSearchInfo{
				Provider:     a.Name(),
				MediaID:      item.VideoID,
				Title:        base,
				MediaKind:    kind,
				Season:       season,
				PosterURL:    item.Img,
				EpisodeCount: item.EpisodeTotal,
			})
		}
	}
	return out, nil
}
