package tencent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider/titlenorm"
)

const searchURL = "https://pbaccess.video.qq.com/trpc.videosearch.mobile_search.MultiTerminalSearch/MbSearch"

type searchRequestBody struct {
	Query    string `json:"query"`
	PageNum  int    `json:"pagenum"`
	PageSize int    `json:"pagesize"`
}

// searchItem is decoded per-item tolerantly: a malformed element is
// skipped rather than failing the whole response (spec §9).
type searchItem struct {
	Title        string `json:"title"`
	Cover        string `json:"img_url"`
	DocID        string `json:"doc_id"`
	EpisodeCount int    `json:"video_num"`
}

type searchResponse struct {
	Data struct {
		NormalList struct {
			ItemList []json.RawMessage `json:"itemList"`
		} `json:"normalList"`
	} `json:"data"`
}

func (a *Adapter) Search(ctx context.Context, keyword string, episodeHint int) ([]domain.ProviderSearchInfo, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(searchRequestBody{Query: keyword, PageNum: 0, PageSize: 20})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("tencent: decode search response: %w", err)
	}

	var out []domain.ProviderSearchInfo
	for _, raw := range parsed.Data.NormalList.ItemList {
		var item searchItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue // tolerant per-item decode, spec §9
		}
		if item.DocID == "" {
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
			MediaID:      item.DocID,
			Title:        base,
			MediaKind:    kind,
			Season:       season,
			PosterURL:    item.Cover,
			EpisodeCount: item.EpisodeCount,
		})
	}
	return out, nil
}
