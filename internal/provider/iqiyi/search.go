package iqiyi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider/titlenorm"
)

var linkIDPattern = regexp.MustCompile(`v_(\w+)\.html`)

var excludedChannels = map[string]bool{
	"原创": true,
	"教育": true,
}

type searchDocItem struct {
	SiteID       string `json:"site_id"`
	VideoDocType int    `json:"video_doc_type"`
	Channel      string `json:"channel"`
	Title        string `json:"title"`
	PlayURL      string `json:"play_url"`
	ImageURL     string `json:"image_url"`
	VideoCount   int    `json:"video_count"`
}

type searchDoc struct {
	Score float64         `json:"score"`
	Video json.RawMessage `json:"video_info"`
}

type searchResponse struct {
	Data struct {
		Docinfos []struct {
			Albumdocinfo json.RawMessage `json:"albumDocInfo"`
		} `json:"docinfos"`
	} `json:"data"`
}

// Search queries the open search endpoint, filtering to genuine iQiyi
// video results and stripping non-content channels (spec §4.1.3).
func (a *Adapter) Search(ctx context.Context, keyword string, episodeHint int) ([]domain.ProviderSearchInfo, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?key="+keyword+"&pageNum=1&pageSize=20", nil)
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
		return nil, fmt.Errorf("iqiyi: decode search response: %w", err)
	}

	var out []domain.ProviderSearchInfo
	for _, doc := range body.Data.Docinfos {
		var item searchDocItem
		if err := json.Unmarshal(doc.Albumdocinfo, &item); err != nil {
			continue // tolerant per-item decode, spec §9
		}
		if item.SiteID != "iqiyi" || item.VideoDocType != 1 {
			continue
		}
		if excludedChannels[item.Channel] {
			continue
		}

		m := linkIDPattern.FindStringSubmatch(item.PlayURL)
		if m == nil {
			continue
		}
		linkID := m[1]

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
			MediaID:      linkID,
			Title:        base,
			MediaKind:    kind,
			Season:       season,
			PosterURL:    item.ImageURL,
			EpisodeCount: item.VideoCount,
		})
	}
	return out, nil
}
