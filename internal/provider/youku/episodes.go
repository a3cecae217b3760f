package youku

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider/titlenorm"
)

const showVideosURL = "https://www.youku.com/alipiaypage/videos"

type showVideo struct {
	Vid      string `json:"vid"`
	Title    string `json:"title"`
	Stage    int    `json:"stage"`
	Duration int    `json:"seconds"`
}

type showVideosResponse struct {
	Data struct {
		Videos []showVideo `json:"videos"`
	} `json:"data"`
}

// GetEpisodes lists a show's videos in stage order. Each entry's
// ProviderEpisodeID carries "vid,duration_seconds" since the duration is
// needed to compute the danmaku segment count (spec §4.1.4).
func (a *Adapter) GetEpisodes(ctx context.Context, mediaID string, targetIndex int, dbMediaKind domain.MediaKind) ([]domain.ProviderEpisodeInfo, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, showVideosURL+"?show_id="+mediaID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var body showVideosResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("youku: decode show videos: %w", err)
	}

	out := make([]domain.ProviderEpisodeInfo, 0, len(body.Data.Videos))
	for i, v := range body.Data.Videos {
		out = append(out, domain.ProviderEpisodeInfo{
			Index:             i + 1,
			Title:             titlenorm.Normalize(v.Title),
			ProviderEpisodeID: fmt.Sprintf("%s,%d", v.Vid, v.Duration),
		})
	}
	return out, nil
}
