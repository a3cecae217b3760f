package bilibili

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider/titlenorm"
)

type pgcListResponse struct {
	Result struct {
		Episodes []struct {
			Aid   int64  `json:"aid"`
			Cid   int64  `json:"cid"`
			Title string `json:"title"`
			LongTitle string `json:"long_title"`
		} `json:"episodes"`
	} `json:"result"`
}

type viewResponse struct {
	Data struct {
		Aid   int64 `json:"aid"`
		Pages []struct {
			Cid  int64  `json:"cid"`
			Page int    `json:"page"`
			Part string `json:"part"`
		} `json:"pages"`
	} `json:"data"`
}

// GetEpisodes dispatches on the media_id prefix: ss* -> PGC list
// endpoint, bv* -> video view endpoint enumerating pages (spec §4.1.1).
// Episode id is stored as "aid,cid".
func (a *Adapter) GetEpisodes(ctx context.Context, mediaID string, targetIndex int, dbMediaKind domain.MediaKind) ([]domain.ProviderEpisodeInfo, error) {
	if strings.HasPrefix(mediaID, "ss") {
		return a.episodesFromPGC(ctx, strings.TrimPrefix(mediaID, "ss"))
	}
	if strings.HasPrefix(mediaID, "bv") {
		return a.episodesFromView(ctx, strings.TrimPrefix(mediaID, "bv"))
	}
	return nil, fmt.Errorf("bilibili: unrecognized media_id %q", mediaID)
}

func (a *Adapter) episodesFromPGC(ctx context.Context, seasonID string) ([]domain.ProviderEpisodeInfo, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pgcListURL+"?season_id="+seasonID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body pgcListResponse
	if err := decodeJSON(resp, &body); err != nil {
		return nil, fmt.Errorf("bilibili: decode pgc list: %w", err)
	}

	out := make([]domain.ProviderEpisodeInfo, 0, len(body.Result.Episodes))
	for i, ep := range body.Result.Episodes {
		title := ep.LongTitle
		if title == "" {
			title = ep.Title
		}
		out = append(out, domain.ProviderEpisodeInfo{
			Index:             i + 1,
			Title:             titlenorm.Normalize(title),
			ProviderEpisodeID: fmt.Sprintf("%d,%d", ep.Aid, ep.Cid),
		})
	}
	return out, nil
}

func (a *Adapter) episodesFromView(ctx context.Context, bvid string) ([]domain.ProviderEpisodeInfo, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, viewURL+"?bvid="+bvid, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body viewResponse
	if err := decodeJSON(resp, &body); err != nil {
		return nil, fmt.Errorf("bilibili: decode view response: %w", err)
	}

	out := make([]domain.ProviderEpisodeInfo, 0, len(body.Data.Pages))
	for _, page := range body.Data.Pages {
		title := page.Part
		if title == "" {
			title = "P" + strconv.Itoa(page.Page)
		}
		out = append(out, domain.ProviderEpisodeInfo{
			Index:             page.Page,
			Title:             titlenorm.Normalize(title),
			ProviderEpisodeID: fmt.Sprintf("%d,%d", body.Data.Aid, page.Cid),
		})
	}
	return out, nil
}
