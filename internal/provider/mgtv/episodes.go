package mgtv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider/titlenorm"
)

type videoInfoEpisode struct {
	VideoID string `json:"video_id"`
	Title   string `json:"t3"`
}

type videoInfoResponse struct {
	Data struct {
		Info struct {
			VideoID  string `json:"video_id"`
			Title    string `json:"title"`
		} `json:"info"`
		TV struct {
			List []videoInfoEpisode `json:"list"`
		} `json:"tv"`
	} `json:"data"`
}

// GetEpisodes fetches the video/info payload for a clip id. A populated
// tv.list means a series; otherwise the clip itself is the sole (movie)
// episode (spec §4.1.5).
func (a *Adapter) GetEpisodes(ctx context.Context, mediaID string, targetIndex int, dbMediaKind domain.MediaKind) ([]domain.ProviderEpisodeInfo, error) {
	body, err := a.fetchVideoInfo(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	if len(body.Data.TV.List) > 0 {
		out := make([]domain.ProviderEpisodeInfo, 0, len(body.Data.TV.List))
		for i, ep := range body.Data.TV.List {
			out = append(out, domain.ProviderEpisodeInfo{
				Index:             i + 1,
				Title:             titlenorm.Normalize(ep.Title),
				ProviderEpisodeID: fmt.Sprintf("%s,%s", mediaID, ep.VideoID),
			})
		}
		return out, nil
	}

	return []domain.ProviderEpisodeInfo{{
		Index:             1,
		Title:             titlenorm.Normalize(body.Data.Info.Title),
		ProviderEpisodeID: fmt.Sprintf("%s,%s", mediaID, body.Data.Info.VideoID),
	}}, nil
}

func (a *Adapter) fetchVideoInfo(ctx context.Context, clipID string) (*videoInfoResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoInfoURL+"?cid="+clipID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body videoInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("mgtv: decode video info: %w", err)
	}
	return &body, nil
}
