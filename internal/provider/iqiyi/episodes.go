package iqiyi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/provider/titlenorm"
)

var videoInfoPattern = regexp.MustCompile(`"videoInfo":(\{.*?\}),`)
var albumInfoPattern = regexp.MustCompile(`"albumInfo":(\{.*?\}),`)

type albumInfo struct {
	VideoInfos []struct {
		Tvid string `json:"tvId"`
		Name string `json:"name"`
		Order int   `json:"order"`
	} `json:"videoinfos"`
}

type videoInfo struct {
	Tvid string `json:"tvId"`
	Name string `json:"name"`
}

// GetEpisodes scrapes the mobile HTML page for a link id, extracting the
// two embedded JSON blobs described in spec §4.1.3. albumInfo carries
// the full episode list for series; a bare videoInfo blob with no album
// means the link itself is the single (movie) episode.
func (a *Adapter) GetEpisodes(ctx context.Context, mediaID string, targetIndex int, dbMediaKind domain.MediaKind) ([]domain.ProviderEpisodeInfo, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v_%s.html", mobilePageURL, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	html, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if m := albumInfoPattern.FindSubmatch(html); m != nil {
		var album albumInfo
		if err := json.Unmarshal(m[1], &album); err == nil && len(album.VideoInfos) > 0 {
			out := make([]domain.ProviderEpisodeInfo, 0, len(album.VideoInfos))
			for i, v := range album.VideoInfos {
				out = append(out, domain.ProviderEpisodeInfo{
					Index:             i + 1,
					Title:             titlenorm.Normalize(v.Name),
					ProviderEpisodeID: v.Tvid,
				})
			}
			return out, nil
		}
	}

	if m := videoInfoPattern.FindSubmatch(html); m != nil {
		var v videoInfo
		if err := json.Unmarshal(m[1], &v); err == nil && v.Tvid != "" {
			return []domain.ProviderEpisodeInfo{{
				Index:             1,
				Title:             titlenorm.Normalize(v.Name),
				ProviderEpisodeID: v.Tvid,
			}}, nil
		}
	}

	return nil, fmt.Errorf("iqiyi: no videoInfo/albumInfo blob found for %q", mediaID)
}
