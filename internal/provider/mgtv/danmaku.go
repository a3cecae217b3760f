package mgtv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

type ctlBarrageResponse struct {
	Data struct {
		CDNHost    string `json:"cdn_host"`
		CDNVersion string `json:"cdn_version"`
	} `json:"data"`
}

type cdnSegmentItem struct {
	Time    int    `json:"time"` // milliseconds
	Content string `json:"content"`
	Color   string `json:"color"`
	Type    int    `json:"type"`
}

type cdnSegmentResponse struct {
	Items []cdnSegmentItem `json:"items"`
}

type opBarrageItem struct {
	Time    int    `json:"time"`
	Content string `json:"content"`
	Color   string `json:"color"`
}

type opBarrageResponse struct {
	Data struct {
		Items []opBarrageItem `json:"items"`
		Next  int             `json:"next"`
	} `json:"data"`
}

// GetComments runs the primary CDN-segment strategy, falling back to
// the time-cursor-paginated opbarrage endpoint if the primary strategy
// cannot resolve a cdn_version (spec §4.1.5).
func (a *Adapter) GetComments(ctx context.Context, providerEpisodeID string, progress domain.ProgressCallback) ([]domain.NormalizedComment, error) {
	cid, vid, err := splitCidVid(providerEpisodeID)
	if err != nil {
		return nil, err
	}

	out, ok, err := a.fetchPrimary(ctx, cid, vid, progress)
	if err != nil {
		return nil, err
	}
	if ok {
		return out, nil
	}

	return a.fetchFallback(ctx, cid, vid, progress)
}

func splitCidVid(providerEpisodeID string) (cid, vid string, err error) {
	parts := strings.SplitN(providerEpisodeID, ",", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("mgtv: malformed episode id %q", providerEpisodeID)
	}
	return parts[0], parts[1], nil
}

// fetchPrimary returns ok=false when cdn_version is unresolved, which
// signals the caller to use the fallback strategy.
func (a *Adapter) fetchPrimary(ctx context.Context, cid, vid string, progress domain.ProgressCallback) ([]domain.NormalizedComment, bool, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getCtlBarrageURL+"?cid="+cid+"&vid="+vid, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	var ctl ctlBarrageResponse
	if err := json.NewDecoder(resp.Body).Decode(&ctl); err != nil {
		return nil, false, fmt.Errorf("mgtv: decode getctlbarrage: %w", err)
	}
	if ctl.Data.CDNVersion == "" {
		return nil, false, nil // cdn_version==null: switch to fallback, spec §8
	}

	info, err := a.fetchVideoInfo(ctx, cid)
	if err != nil {
		return nil, false, err
	}
	totalMinutes := videoTotalMinutes(info)

	var out []domain.NormalizedComment
	for minute := 0; minute < totalMinutes; minute++ {
		items, err := a.fetchCDNMinute(ctx, ctl.Data.CDNHost, ctl.Data.CDNVersion, minute)
		if err != nil {
			continue // per-minute failure skipped, not fatal (spec §7)
		}
		for _, item := range items {
			out = append(out, toNormalizedComment(item))
		}
		if progress != nil {
			progress(100*(minute+1)/totalMinutes, fmt.Sprintf("fetched minute %d/%d", minute+1, totalMinutes))
		}
	}
	return out, true, nil
}

func videoTotalMinutes(info *videoInfoResponse) int {
	// each list entry is one minute-indexed title track in the absence of
	// an explicit duration field; fall back to a single segment.
	if n := len(info.Data.TV.List); n > 0 {
		return n
	}
	return 1
}

func (a *Adapter) fetchCDNMinute(ctx context.Context, cdnHost, cdnVersion string, minute int) ([]cdnSegmentItem, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://%s/%s/%d.json", cdnHost, cdnVersion, minute)
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

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	var body cdnSegmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("mgtv: decode cdn minute %d: %w", minute, err)
	}
	return body.Items, nil
}

func (a *Adapter) fetchFallback(ctx context.Context, cid, vid string, progress domain.ProgressCallback) ([]domain.NormalizedComment, error) {
	var out []domain.NormalizedComment
	cursor := 0

	for page := 1; ; page++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return out, err
		}

		url := fmt.Sprintf("%s?cid=%s&vid=%s&time=%d", opBarrageURL, cid, vid, cursor)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return out, err
		}
		req.Header.Set("User-Agent", browserUA)

		resp, err := a.client.Do(req)
		if err != nil {
			return out, err
		}

		var body opBarrageResponse
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return out, fmt.Errorf("mgtv: decode opbarrage page %d: %w", page, err)
		}

		if len(body.Data.Items) == 0 {
			break
		}
		for _, item := range body.Data.Items {
			out = append(out, toOpBarrageComment(item))
		}
		if progress != nil {
			progress(page, fmt.Sprintf("fetched opbarrage page %d", page))
		}

		if body.Data.Next == 0 {
			break
		}
		cursor = body.Data.Next
	}

	return out, nil
}

func toNormalizedComment(item cdnSegmentItem) domain.NormalizedComment {
	seconds := float64(item.Time) / 1000
	color := item.Color
	if color == "" {
		color = "16777215"
	}
	return domain.NormalizedComment{
		CID: fmt.Sprintf("%d_%s", item.Time, item.Content),
		P:   fmt.Sprintf("%.3f,1,%s,[mgtv]", seconds, color),
		M:   item.Content,
		T:   seconds,
	}
}

func toOpBarrageComment(item opBarrageItem) domain.NormalizedComment {
	seconds := float64(item.Time) / 1000
	color := item.Color
	if color == "" {
		color = "16777215"
	}
	return domain.NormalizedComment{
		CID: fmt.Sprintf("%d_%s", item.Time, item.Content),
		P:   fmt.Sprintf("%.3f,1,%s,[mgtv]", seconds, color),
		M:   item.Content,
		T:   seconds,
	}
}

