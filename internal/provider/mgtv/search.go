package mgtv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider/titlenorm"
)

type searchContentData struct {
	Source       string `json:"source"`
	ClipID       int    `json:"clipId"`
	Title        string `json:"title"`
	Img          string `json:"img"`
	VideoCount   int    `json:"videoCount"`
}

type searchContent struct {
	Data json.RawMessage `json:"data"`
}

type searchResponse struct {
	Data struct {
		Contents []searchContent `json:"contents"`
	} `json:"data"`
}

// Search queries the mobile search endpoint, keeping only results whose
// source is the native "imgo" library (spec §4.1.5).
func (a *Adapter) Search(ctx context.Context, keyword string, episodeHint int) ([]domain.ProviderSearchInfo, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?q="+keyword, nil)
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
		return nil, fmt.Errorf("mgtv: decode search response: %w", err)
	}

	var out []domain.ProviderSearchInfo
	for _, content := range body.Data.Contents {
		var item searchContentData
		if err := json.Unmarshal(content.Data, &item); err != nil {
			continue // tolerant per-item decode, spec §9
		}
		if item.Source != "imgo" {
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
			MediaID:      strconv.Itoa(item.ClipID),
			Title:        base,
			MediaKind:    kind,
			Season:       season,
			PosterURL:    item.Img,
			EpisodeCount: item.VideoCount,
		})
	}
	return out, nil
}
