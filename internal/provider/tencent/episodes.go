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

type pageParams struct {
	Cid         string `json:"cid"`
	VideoAppID  string `json:"video_appid"`
	VPlatform   string `json:"vplatform"`
	PageSize    string `json:"pageSize"`
	PageContext string `json:"pageContext"`
}

type pageRequestBody struct {
	PageParams pageParams `json:"pageParams"`
}

type itemData struct {
	ItemParams struct {
		Vid        string `json:"vid"`
		Title      string `json:"title"`
		IsTrailer  string `json:"is_trailer"`
		PlayTitle  string `json:"play_title"`
	} `json:"item_params"`
}

type moduleData struct {
	ItemDataLists struct {
		ItemDatas []json.RawMessage `json:"itemDatas"`
	} `json:"itemDataLists"`
}

type pageResponse struct {
	Data struct {
		ModuleListDatas []struct {
			ModuleDatas []moduleData `json:"moduleDatas"`
		} `json:"module_list_datas"`
	} `json:"data"`
}

// GetEpisodes walks the page-context pagination protocol (spec §4.1.2):
// repeatedly POST with an opaque pageContext, collecting the first
// non-empty itemDatas array per page, until the duplicate-page guard or
// a short page terminates the walk.
func (a *Adapter) GetEpisodes(ctx context.Context, mediaID string, targetIndex int, dbMediaKind domain.MediaKind) ([]domain.ProviderEpisodeInfo, error) {
	var out []domain.ProviderEpisodeInfo
	pageContext := ""
	var lastVid string

	for {
		items, nextContext, err := a.fetchPage(ctx, mediaID, pageContext)
		if err != nil {
			return out, err
		}
		if len(items) == 0 {
			break
		}

		pageLastVid := ""
		added := 0
		for _, item := range items {
			if item.ItemParams.Vid == "" {
				continue
			}
			if item.ItemParams.IsTrailer == "1" {
				continue
			}
			title := titlenorm.Normalize(firstNonEmpty(item.ItemParams.PlayTitle, item.ItemParams.Title))
			if titlenorm.IsJunk(title) {
				continue
			}
			pageLastVid = item.ItemParams.Vid
			out = append(out, domain.ProviderEpisodeInfo{
				Index:             len(out) + 1,
				Title:             title,
				ProviderEpisodeID: item.ItemParams.Vid,
			})
			added++
		}

		if pageLastVid != "" && pageLastVid == lastVid {
			break // duplicate-page guard: spec's documented boundary behavior
		}
		lastVid = pageLastVid

		if added < defaultPageSize || nextContext == "" {
			break
		}
		pageContext = nextContext
	}

	return out, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func (a *Adapter) fetchPage(ctx context.Context, cid, pageContext string) ([]itemData, string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	reqBody, err := json.Marshal(pageRequestBody{PageParams: pageParams{
		Cid:         cid,
		VideoAppID:  "100402",
		VPlatform:   "2",
		PageSize:    fmt.Sprintf("%d", defaultPageSize),
		PageContext: pageContext,
	}})
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pageServerURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var body pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", fmt.Errorf("tencent: decode page response: %w", err)
	}

	var items []itemData
	for _, moduleList := range body.Data.ModuleListDatas {
		for _, module := range moduleList.ModuleDatas {
			if len(module.ItemDataLists.ItemDatas) == 0 {
				continue
			}
			for _, raw := range module.ItemDataLists.ItemDatas {
				var item itemData
				if err := json.Unmarshal(raw, &item); err != nil {
					continue // tolerant per-item decode, spec §9
				}
				items = append(items, item)
			}
			if len(items) > 0 {
				break
			}
		}
		if len(items) > 0 {
			break
		}
	}

	nextContext := fmt.Sprintf("episode_begin=%d&episode_end=%d&episode_step=%d",
		len(items), len(items)*2, defaultPageSize)
	return items, nextContext, nil
}
